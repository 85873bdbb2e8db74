package playbook

// TagTotals sums each counter across all bullets.
type TagTotals struct {
	Helpful int `json:"helpful" yaml:"helpful"`
	Harmful int `json:"harmful" yaml:"harmful"`
	Neutral int `json:"neutral" yaml:"neutral"`
}

// Stats holds aggregate counts for a playbook.
type Stats struct {
	Sections int       `json:"sections" yaml:"sections"`
	Bullets  int       `json:"bullets" yaml:"bullets"`
	Tags     TagTotals `json:"tags" yaml:"tags"`
}

// Stats returns section, bullet and counter totals.
func (p *Playbook) Stats() Stats {
	st := Stats{
		Sections: len(p.sections),
		Bullets:  len(p.bullets),
	}
	for _, b := range p.bullets {
		st.Tags.Helpful += b.Helpful
		st.Tags.Harmful += b.Harmful
		st.Tags.Neutral += b.Neutral
	}
	return st
}

package model

// Metadata is a sparse set of counter values keyed by Tag. Depending on the
// operation it carries absolute values (ADD, UPDATE) or signed increments (TAG).
// The zero value is empty.
type Metadata struct {
	vals [numTags]int
	set  [numTags]bool
}

// MetadataFromMap builds Metadata from a string-keyed map. Keys that are not
// tag names are dropped.
func MetadataFromMap(m map[string]int) Metadata {
	var md Metadata
	for k, v := range m {
		if t, err := ParseTag(k); err == nil {
			md.Set(t, v)
		}
	}
	return md
}

// Set records v for t.
func (m *Metadata) Set(t Tag, v int) {
	m.vals[t] = v
	m.set[t] = true
}

// Get returns the value for t and whether it is present.
func (m Metadata) Get(t Tag) (int, bool) {
	return m.vals[t], m.set[t]
}

// Len returns the number of present tags.
func (m Metadata) Len() int {
	n := 0
	for _, ok := range m.set {
		if ok {
			n++
		}
	}
	return n
}

// Each calls fn for every present tag in the fixed order helpful, harmful, neutral.
func (m Metadata) Each(fn func(Tag, int)) {
	for _, t := range Tags {
		if m.set[t] {
			fn(t, m.vals[t])
		}
	}
}

// Clamped returns a copy with negative values raised to 0.
func (m Metadata) Clamped() Metadata {
	out := m
	for i := range out.vals {
		out.vals[i] = max(out.vals[i], 0)
	}
	return out
}

// Map converts m to its wire form. It returns nil when m is empty.
func (m Metadata) Map() map[string]int {
	if m.Len() == 0 {
		return nil
	}
	out := make(map[string]int, m.Len())
	m.Each(func(t Tag, v int) {
		out[t.String()] = v
	})
	return out
}

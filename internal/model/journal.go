package model

import "time"

// DeltaRecord is a journal entry for one delta batch submitted to a playbook.
type DeltaRecord struct {
	ID         string           `json:"id" yaml:"id"`
	Playbook   string           `json:"playbook" yaml:"playbook"`
	Reasoning  string           `json:"reasoning" yaml:"reasoning"`
	Operations []map[string]any `json:"operations" yaml:"operations"`
	Applied    int              `json:"applied" yaml:"applied"`
	Total      int              `json:"total" yaml:"total"`
	Error      string           `json:"error,omitempty" yaml:"error,omitempty"`
	CreatedAt  time.Time        `json:"created_at" yaml:"created_at"`
}

// Failed reports whether the batch stopped before its last operation.
func (r DeltaRecord) Failed() bool {
	return r.Error != ""
}

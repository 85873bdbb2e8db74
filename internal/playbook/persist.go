package playbook

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rcliao/agent-playbook/internal/model"
)

type wirePlaybook struct {
	Bullets  map[string]*model.Bullet `json:"bullets"`
	Sections map[string][]string      `json:"sections"`
	NextID   uint64                   `json:"next_id"`
}

func (p *Playbook) MarshalJSON() ([]byte, error) {
	return json.Marshal(wirePlaybook{
		Bullets:  p.bullets,
		Sections: p.sections,
		NextID:   p.nextID,
	})
}

// UnmarshalJSON decodes the persisted form and checks that the section index
// is consistent with the bullet map.
func (p *Playbook) UnmarshalJSON(data []byte) error {
	var w wirePlaybook
	if err := json.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("%w: failed to parse JSON: %v", ErrInvalidData, err)
	}
	if w.Bullets == nil {
		w.Bullets = make(map[string]*model.Bullet)
	}
	if w.Sections == nil {
		w.Sections = make(map[string][]string)
	}
	if err := checkIndex(w); err != nil {
		return err
	}

	p.bullets = w.Bullets
	p.sections = w.Sections
	p.nextID = w.NextID
	return nil
}

func checkIndex(w wirePlaybook) error {
	for id, b := range w.Bullets {
		if b == nil {
			return fmt.Errorf("%w: bullet %q is null", ErrInvalidData, id)
		}
		if b.ID == "" {
			b.ID = id
		}
		if b.ID != id {
			return fmt.Errorf("%w: bullet stored under %q has id %q", ErrInvalidData, id, b.ID)
		}
		for _, t := range model.Tags {
			if b.Count(t) < 0 {
				return fmt.Errorf("%w: bullet %q has negative %s count", ErrInvalidData, id, t)
			}
		}
	}

	indexed := make(map[string]bool, len(w.Bullets))
	for section, ids := range w.Sections {
		if len(ids) == 0 {
			return fmt.Errorf("%w: section %q is empty", ErrInvalidData, section)
		}
		for _, id := range ids {
			b, ok := w.Bullets[id]
			if !ok {
				return fmt.Errorf("%w: section %q references unknown bullet %q", ErrInvalidData, section, id)
			}
			if b.Section != section {
				return fmt.Errorf("%w: bullet %q indexed under %q but belongs to %q", ErrInvalidData, id, section, b.Section)
			}
			if indexed[id] {
				return fmt.Errorf("%w: bullet %q indexed twice", ErrInvalidData, id)
			}
			indexed[id] = true
		}
	}
	if len(indexed) != len(w.Bullets) {
		for id := range w.Bullets {
			if !indexed[id] {
				return fmt.Errorf("%w: bullet %q missing from section index", ErrInvalidData, id)
			}
		}
	}
	return nil
}

// ToJSON returns the indented persisted form.
func (p *Playbook) ToJSON() (string, error) {
	b, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// FromJSON parses a playbook from its persisted form.
func FromJSON(data string) (*Playbook, error) {
	p := New()
	if err := p.UnmarshalJSON([]byte(data)); err != nil {
		return nil, err
	}
	return p, nil
}

// Save writes the playbook to path, creating parent directories as needed.
// The file is replaced atomically.
func (p *Playbook) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create playbook dir: %w", err)
	}

	data, err := p.ToJSON()
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.WriteString(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write playbook: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write playbook: %w", err)
	}
	return os.Rename(tmp.Name(), path)
}

// Load reads a playbook from path. A missing file yields an error wrapping
// fs.ErrNotExist.
func Load(path string) (*Playbook, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("playbook file: %w", err)
	}
	return FromJSON(string(data))
}

// Package playbook implements the in-memory bullet store: section indexing,
// id generation, delta application, prompt rendering and JSON persistence.
//
// A Playbook is not safe for concurrent use. Wrap it in Locked when it is
// shared between goroutines.
package playbook

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/rcliao/agent-playbook/internal/model"
)

var (
	// ErrBulletNotFound is returned when an operation references an id that is not stored.
	ErrBulletNotFound = errors.New("bullet not found")

	// ErrDeltaMissingField is returned when a delta operation lacks a field its kind requires.
	ErrDeltaMissingField = errors.New("delta operation missing required field")

	// ErrInvalidData is returned when persisted playbook JSON is malformed or inconsistent.
	ErrInvalidData = errors.New("invalid playbook data")
)

// Playbook is the aggregate root holding bullets and their section index.
type Playbook struct {
	bullets  map[string]*model.Bullet
	sections map[string][]string
	nextID   uint64
}

// New returns an empty playbook.
func New() *Playbook {
	return &Playbook{
		bullets:  make(map[string]*model.Bullet),
		sections: make(map[string][]string),
	}
}

// AddBullet stores a new bullet and appends it to its section. When id is nil
// one is generated. An existing bullet with the same id is replaced and
// detached from its old section first.
func (p *Playbook) AddBullet(section, content string, id *string, md *model.Metadata) *model.Bullet {
	var bulletID string
	if id != nil {
		bulletID = *id
	} else {
		bulletID = p.generateID(section)
	}

	if _, exists := p.bullets[bulletID]; exists {
		p.detach(bulletID)
	}

	b := model.NewBullet(section, content)
	b.ID = bulletID
	if md != nil {
		b.ApplyMetadata(*md)
	}

	p.bullets[bulletID] = b
	p.sections[section] = append(p.sections[section], bulletID)
	return b
}

// UpdateBullet replaces the content and/or counters of an existing bullet.
func (p *Playbook) UpdateBullet(id string, content *string, md *model.Metadata) (*model.Bullet, error) {
	b, ok := p.bullets[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrBulletNotFound, id)
	}

	if content != nil {
		b.Content = *content
	}
	if md != nil {
		b.ApplyMetadata(*md)
	}
	b.UpdatedAt = time.Now().UTC()
	if b.UpdatedAt.Before(b.CreatedAt) {
		b.UpdatedAt = b.CreatedAt
	}
	return b, nil
}

// TagBullet adds delta to the named counter of an existing bullet.
func (p *Playbook) TagBullet(id, tag string, delta int) (*model.Bullet, error) {
	b, ok := p.bullets[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrBulletNotFound, id)
	}
	if err := b.Tag(tag, delta); err != nil {
		return nil, err
	}
	return b, nil
}

// RemoveBullet deletes a bullet and drops it from its section. Removing an
// unknown id is a no-op and reports false.
func (p *Playbook) RemoveBullet(id string) (*model.Bullet, bool) {
	b, ok := p.bullets[id]
	if !ok {
		return nil, false
	}
	p.detach(id)
	return b, true
}

// detach removes id from the bullet map and from its section index, dropping
// the section when it becomes empty.
func (p *Playbook) detach(id string) {
	b := p.bullets[id]
	delete(p.bullets, id)
	if b == nil {
		return
	}

	ids := slices.DeleteFunc(p.sections[b.Section], func(s string) bool { return s == id })
	if len(ids) == 0 {
		delete(p.sections, b.Section)
		return
	}
	p.sections[b.Section] = ids
}

// Bullet returns the bullet stored under id.
func (p *Playbook) Bullet(id string) (*model.Bullet, bool) {
	b, ok := p.bullets[id]
	return b, ok
}

// Bullets returns every bullet in no particular order.
func (p *Playbook) Bullets() []*model.Bullet {
	out := make([]*model.Bullet, 0, len(p.bullets))
	for _, b := range p.bullets {
		out = append(out, b)
	}
	return out
}

// Sections returns the section names sorted lexicographically.
func (p *Playbook) Sections() []string {
	names := make([]string, 0, len(p.sections))
	for name := range p.sections {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SectionIDs returns the bullet ids of a section in insertion order.
func (p *Playbook) SectionIDs(section string) []string {
	return slices.Clone(p.sections[section])
}

// NextID returns the last value used for id generation.
func (p *Playbook) NextID() uint64 { return p.nextID }

// Len returns the number of bullets.
func (p *Playbook) Len() int { return len(p.bullets) }

// Clone returns a deep copy of p.
func (p *Playbook) Clone() *Playbook {
	c := &Playbook{
		bullets:  make(map[string]*model.Bullet, len(p.bullets)),
		sections: make(map[string][]string, len(p.sections)),
		nextID:   p.nextID,
	}
	for id, b := range p.bullets {
		cp := *b
		c.bullets[id] = &cp
	}
	for name, ids := range p.sections {
		c.sections[name] = slices.Clone(ids)
	}
	return c
}

// generateID returns "<prefix>-<nnnnn>" where prefix is the lowercased first
// word of the section, or "default" for a blank section.
func (p *Playbook) generateID(section string) string {
	p.nextID++
	prefix := "default"
	if fields := strings.Fields(section); len(fields) > 0 {
		prefix = strings.ToLower(fields[0])
	}
	return fmt.Sprintf("%s-%05d", prefix, p.nextID)
}

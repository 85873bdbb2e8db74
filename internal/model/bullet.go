// Package model defines the core playbook data types.
package model

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrInvalidTag is returned when a tag name is not one of helpful, harmful, neutral.
var ErrInvalidTag = errors.New("invalid tag")

// Tag identifies one of the three outcome counters on a bullet.
type Tag int

const (
	TagHelpful Tag = iota
	TagHarmful
	TagNeutral

	numTags
)

// Tags lists every tag in its fixed order.
var Tags = [numTags]Tag{TagHelpful, TagHarmful, TagNeutral}

var tagNames = [numTags]string{"helpful", "harmful", "neutral"}

func (t Tag) String() string {
	if t < 0 || t >= numTags {
		return fmt.Sprintf("Tag(%d)", int(t))
	}
	return tagNames[t]
}

// ParseTag maps a tag name to its Tag. Names are matched exactly.
func ParseTag(name string) (Tag, error) {
	for i, n := range tagNames {
		if n == name {
			return Tag(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %s. Supported tags: helpful, harmful, neutral", ErrInvalidTag, name)
}

// Bullet is a single stored strategy note with outcome counters.
type Bullet struct {
	ID        string    `json:"id" yaml:"id"`
	Section   string    `json:"section" yaml:"section"`
	Content   string    `json:"content" yaml:"content"`
	Helpful   int       `json:"helpful" yaml:"helpful"`
	Harmful   int       `json:"harmful" yaml:"harmful"`
	Neutral   int       `json:"neutral" yaml:"neutral"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at"`
}

// NewBullet returns a bullet with zero counters and both timestamps set to now.
// The id is left empty for the caller to assign.
func NewBullet(section, content string) *Bullet {
	now := time.Now().UTC()
	return &Bullet{
		Section:   section,
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (b *Bullet) counter(t Tag) *int {
	switch t {
	case TagHelpful:
		return &b.Helpful
	case TagHarmful:
		return &b.Harmful
	case TagNeutral:
		return &b.Neutral
	}
	return nil
}

// Count returns the current value of the counter for t.
func (b *Bullet) Count(t Tag) int {
	if c := b.counter(t); c != nil {
		return *c
	}
	return 0
}

// ApplyMetadata sets each counter present in m to its absolute value.
// Negative values are stored as 0.
func (b *Bullet) ApplyMetadata(m Metadata) {
	m.Each(func(t Tag, v int) {
		*b.counter(t) = max(v, 0)
	})
	b.touch()
}

// Tag adds delta to the named counter, flooring the result at 0.
func (b *Bullet) Tag(name string, delta int) error {
	t, err := ParseTag(name)
	if err != nil {
		return err
	}
	c := b.counter(t)
	if delta > 0 && *c > math.MaxInt-delta {
		*c = math.MaxInt
	} else {
		*c = max(*c+delta, 0)
	}
	b.touch()
	return nil
}

func (b *Bullet) touch() {
	now := time.Now().UTC()
	if now.Before(b.CreatedAt) {
		now = b.CreatedAt
	}
	b.UpdatedAt = now
}

package model

import (
	"errors"
	"math"
	"testing"
)

func TestParseTag(t *testing.T) {
	for i, name := range []string{"helpful", "harmful", "neutral"} {
		tag, err := ParseTag(name)
		if err != nil {
			t.Fatalf("parse %q: %v", name, err)
		}
		if tag != Tags[i] || tag.String() != name {
			t.Errorf("expected %s, got %s", name, tag)
		}
	}

	if _, err := ParseTag("Helpful"); !errors.Is(err, ErrInvalidTag) {
		t.Errorf("expected ErrInvalidTag for wrong case, got %v", err)
	}
	if _, err := ParseTag("bogus"); !errors.Is(err, ErrInvalidTag) {
		t.Errorf("expected ErrInvalidTag, got %v", err)
	}
}

func TestNewBullet(t *testing.T) {
	b := NewBullet("Retry", "Use backoff")
	if b.ID != "" {
		t.Errorf("expected empty id, got %q", b.ID)
	}
	if !b.CreatedAt.Equal(b.UpdatedAt) {
		t.Error("expected created_at == updated_at on a new bullet")
	}
	if b.Helpful != 0 || b.Harmful != 0 || b.Neutral != 0 {
		t.Error("expected zero counters")
	}
}

func TestApplyMetadata(t *testing.T) {
	b := NewBullet("s", "c")
	b.Harmful = 7

	var md Metadata
	md.Set(TagHelpful, 4)
	md.Set(TagNeutral, -2)
	b.ApplyMetadata(md)

	if b.Helpful != 4 {
		t.Errorf("expected helpful 4, got %d", b.Helpful)
	}
	if b.Harmful != 7 {
		t.Errorf("expected harmful untouched at 7, got %d", b.Harmful)
	}
	if b.Neutral != 0 {
		t.Errorf("expected negative absolute value stored as 0, got %d", b.Neutral)
	}
	if b.UpdatedAt.Before(b.CreatedAt) {
		t.Error("updated_at before created_at")
	}
}

func TestTagClampsAtZero(t *testing.T) {
	b := NewBullet("s", "c")
	b.Helpful = 3

	if err := b.Tag("helpful", -100); err != nil {
		t.Fatalf("tag: %v", err)
	}
	if b.Helpful != 0 {
		t.Errorf("expected helpful clamped to 0, got %d", b.Helpful)
	}

	if err := b.Tag("harmful", 2); err != nil {
		t.Fatalf("tag: %v", err)
	}
	if err := b.Tag("harmful", -1); err != nil {
		t.Fatalf("tag: %v", err)
	}
	if b.Harmful != 1 {
		t.Errorf("expected harmful 1, got %d", b.Harmful)
	}
}

func TestTagSaturates(t *testing.T) {
	b := NewBullet("s", "c")
	b.Helpful = math.MaxInt
	if err := b.Tag("helpful", 1); err != nil {
		t.Fatalf("tag: %v", err)
	}
	if b.Helpful != math.MaxInt {
		t.Errorf("expected helpful to stay at MaxInt, got %d", b.Helpful)
	}

	b.Harmful = math.MaxInt - 1
	if err := b.Tag("harmful", math.MaxInt); err != nil {
		t.Fatalf("tag: %v", err)
	}
	if b.Harmful != math.MaxInt {
		t.Errorf("expected harmful saturated at MaxInt, got %d", b.Harmful)
	}
	if err := b.Tag("harmful", math.MinInt); err != nil {
		t.Fatalf("tag: %v", err)
	}
	if b.Harmful != 0 {
		t.Errorf("expected harmful floored at 0, got %d", b.Harmful)
	}
}

func TestCount(t *testing.T) {
	b := NewBullet("s", "c")
	b.Helpful, b.Harmful, b.Neutral = 1, 2, 3
	for i, tag := range Tags {
		if got := b.Count(tag); got != i+1 {
			t.Errorf("%s: expected %d, got %d", tag, i+1, got)
		}
	}
	if got := b.Count(numTags); got != 0 {
		t.Errorf("expected 0 for an unknown tag, got %d", got)
	}
}

func TestTagInvalid(t *testing.T) {
	b := NewBullet("s", "c")
	before := b.UpdatedAt

	err := b.Tag("bogus", 1)
	if !errors.Is(err, ErrInvalidTag) {
		t.Fatalf("expected ErrInvalidTag, got %v", err)
	}
	if !b.UpdatedAt.Equal(before) {
		t.Error("updated_at changed on failed tag")
	}
}

func TestMetadataFromMap(t *testing.T) {
	md := MetadataFromMap(map[string]int{"helpful": 1, "bogus": 9, "neutral": -3})
	if md.Len() != 2 {
		t.Fatalf("expected 2 entries, got %d", md.Len())
	}
	if v, ok := md.Get(TagHelpful); !ok || v != 1 {
		t.Errorf("expected helpful=1, got %d (%v)", v, ok)
	}
	if _, ok := md.Get(TagHarmful); ok {
		t.Error("harmful should be absent")
	}

	var order []Tag
	md.Each(func(tag Tag, _ int) { order = append(order, tag) })
	if len(order) != 2 || order[0] != TagHelpful || order[1] != TagNeutral {
		t.Errorf("unexpected iteration order %v", order)
	}

	clamped := md.Clamped()
	if v, _ := clamped.Get(TagNeutral); v != 0 {
		t.Errorf("expected clamped neutral 0, got %d", v)
	}
	if v, _ := md.Get(TagNeutral); v != -3 {
		t.Error("Clamped modified the receiver")
	}

	m := md.Map()
	if len(m) != 2 || m["helpful"] != 1 || m["neutral"] != -3 {
		t.Errorf("unexpected map %v", m)
	}
	if (Metadata{}).Map() != nil {
		t.Error("expected nil map for empty metadata")
	}
}

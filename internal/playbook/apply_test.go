package playbook

import (
	"errors"
	"slices"
	"strings"
	"testing"

	"github.com/rcliao/agent-playbook/internal/delta"
	"github.com/rcliao/agent-playbook/internal/model"
)

func mustBatch(t *testing.T, data string) delta.Batch {
	t.Helper()
	b, err := delta.DecodeBatch([]byte(data))
	if err != nil {
		t.Fatalf("decode batch: %v", err)
	}
	return b
}

func TestApplyDeltaEndToEnd(t *testing.T) {
	p := New()
	err := p.ApplyDelta(mustBatch(t, `{
		"reasoning": "init",
		"operations": [{"type": "add", "section": "Retry", "content": "Use backoff"}]
	}`))
	if err != nil {
		t.Fatalf("apply: %v", err)
	}

	if p.Len() != 1 {
		t.Fatalf("expected 1 bullet, got %d", p.Len())
	}
	b, ok := p.Bullet("retry-00001")
	if !ok {
		t.Fatal("expected bullet retry-00001")
	}
	if b.Content != "Use backoff" {
		t.Errorf("unexpected content %q", b.Content)
	}
	if p.NextID() != 1 {
		t.Errorf("expected next_id 1, got %d", p.NextID())
	}

	want := Stats{Sections: 1, Bullets: 1}
	if st := p.Stats(); st != want {
		t.Errorf("expected stats %+v, got %+v", want, st)
	}
}

func TestApplyDeltaAllKinds(t *testing.T) {
	p := New()
	err := p.ApplyDelta(mustBatch(t, `{
		"reasoning": "lifecycle",
		"operations": [
			{"type": "ADD", "section": "Retry", "content": "Use backoff", "metadata": {"helpful": 2, "harmful": -4}},
			{"type": "add", "section": "Retry", "content": "Cap retries", "bullet_id": "cap"},
			{"type": "update", "section": "Retry", "bullet_id": "retry-00001", "content": "Use jittered backoff", "metadata": {"neutral": 3}},
			{"type": "tag", "section": "Retry", "bullet_id": "retry-00001", "metadata": {"helpful": 1, "harmful": 2, "bogus": 5}},
			{"type": "remove", "section": "Retry", "bullet_id": "cap"},
			{"type": "remove", "section": "Retry", "bullet_id": "never-existed"}
		]
	}`))
	if err != nil {
		t.Fatalf("apply: %v", err)
	}

	b, ok := p.Bullet("retry-00001")
	if !ok {
		t.Fatal("expected retry-00001")
	}
	if b.Content != "Use jittered backoff" {
		t.Errorf("unexpected content %q", b.Content)
	}
	if b.Helpful != 3 || b.Harmful != 2 || b.Neutral != 3 {
		t.Errorf("unexpected counters %d/%d/%d", b.Helpful, b.Harmful, b.Neutral)
	}
	if _, ok := p.Bullet("cap"); ok {
		t.Error("expected cap removed")
	}
	if ids := p.SectionIDs("Retry"); !slices.Equal(ids, []string{"retry-00001"}) {
		t.Errorf("unexpected section ids %v", ids)
	}
	checkInvariants(t, p)
}

func TestApplyDeltaAddWithoutContent(t *testing.T) {
	p := New()
	id := "x"
	err := p.ApplyDelta(delta.Batch{Operations: []delta.Operation{
		{Type: delta.OpAdd, Section: "S", BulletID: &id},
	}})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if b, _ := p.Bullet("x"); b.Content != "" {
		t.Errorf("expected empty content, got %q", b.Content)
	}
}

func TestApplyDeltaStopsAtFirstFailure(t *testing.T) {
	p := New()
	err := p.ApplyDelta(mustBatch(t, `{"operations": [
		{"type": "add", "section": "A", "content": "one"},
		{"type": "add", "section": "B", "content": "two"},
		{"type": "tag", "section": "A", "bullet_id": "missing", "metadata": {"helpful": 1}},
		{"type": "add", "section": "C", "content": "never"}
	]}`))
	if !errors.Is(err, ErrBulletNotFound) {
		t.Fatalf("expected ErrBulletNotFound, got %v", err)
	}
	if !strings.Contains(err.Error(), "operation 2 (TAG)") {
		t.Errorf("expected failing index in error, got %q", err)
	}
	var opErr *OpError
	if !errors.As(err, &opErr) || opErr.Index != 2 || opErr.Type != delta.OpTag {
		t.Errorf("expected *OpError at index 2, got %#v", err)
	}

	// earlier operations are kept
	if p.Len() != 2 {
		t.Errorf("expected 2 bullets from ops before the failure, got %d", p.Len())
	}
	if _, ok := p.Bullet("c-00003"); ok {
		t.Error("operation after the failure was applied")
	}
	if !slices.Equal(p.Sections(), []string{"A", "B"}) {
		t.Errorf("unexpected sections %v", p.Sections())
	}
}

func TestApplyDeltaMissingBulletID(t *testing.T) {
	for _, typ := range []delta.OpType{delta.OpUpdate, delta.OpTag, delta.OpRemove} {
		t.Run(typ.String(), func(t *testing.T) {
			p := New()
			err := p.ApplyDelta(delta.Batch{Operations: []delta.Operation{{Type: typ, Section: "S"}}})
			if !errors.Is(err, ErrDeltaMissingField) {
				t.Errorf("expected ErrDeltaMissingField, got %v", err)
			}
			if !strings.Contains(err.Error(), "bullet_id required for "+typ.String()) {
				t.Errorf("unexpected message %q", err)
			}
		})
	}
}

func TestApplyDeltaUpdateMissingBullet(t *testing.T) {
	p := New()
	id := "ghost"
	err := p.ApplyDelta(delta.Batch{Operations: []delta.Operation{
		{Type: delta.OpUpdate, BulletID: &id},
	}})
	if !errors.Is(err, ErrBulletNotFound) {
		t.Errorf("expected ErrBulletNotFound, got %v", err)
	}
}

func TestApplyDeltaTagPartialEntries(t *testing.T) {
	p := New()
	b := p.AddBullet("S", "c", nil, nil)

	var md model.Metadata
	md.Set(model.TagHelpful, 2)
	md.Set(model.TagNeutral, -1)
	err := p.ApplyDelta(delta.Batch{Operations: []delta.Operation{
		{Type: delta.OpTag, BulletID: &b.ID, Metadata: md},
	}})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if b.Helpful != 2 || b.Neutral != 0 || b.Harmful != 0 {
		t.Errorf("unexpected counters %d/%d/%d", b.Helpful, b.Harmful, b.Neutral)
	}
}

func TestApplyDeltaUnknownType(t *testing.T) {
	p := New()
	err := p.ApplyDelta(delta.Batch{Operations: []delta.Operation{{Type: delta.OpType(99)}}})
	if !errors.Is(err, delta.ErrInvalidOperationType) {
		t.Errorf("expected ErrInvalidOperationType, got %v", err)
	}
}

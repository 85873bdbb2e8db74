package store

import (
	"context"
	"errors"
	"path/filepath"
	"slices"
	"testing"

	"github.com/rcliao/agent-playbook/internal/delta"
	"github.com/rcliao/agent-playbook/internal/playbook"
)

// backends returns a fresh store per backend, each rooted in its own temp dir.
func backends(t *testing.T) map[string]Store {
	t.Helper()
	return map[string]Store{
		BackendFile:   newTestFileStore(t),
		BackendSQLite: newTestStore(t),
	}
}

func mustBatch(t *testing.T, data string) delta.Batch {
	t.Helper()
	b, err := delta.DecodeBatch([]byte(data))
	if err != nil {
		t.Fatalf("decode batch: %v", err)
	}
	return b
}

func TestLoadMissingIsEmpty(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			pb, err := s.Load(ctx, "fresh")
			if err != nil {
				t.Fatalf("load: %v", err)
			}
			if pb.Len() != 0 || pb.NextID() != 0 {
				t.Errorf("expected empty playbook, got %d bullets", pb.Len())
			}
		})
	}
}

func TestSaveAndLoad(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			pb := playbook.New()
			pb.AddBullet("Retry", "Use backoff", nil, nil)
			pb.AddBullet("Parsing", "Validate first", nil, nil)
			pb.TagBullet("retry-00001", "helpful", 3)

			if err := s.Save(ctx, "agent", pb); err != nil {
				t.Fatalf("save: %v", err)
			}
			// later mutation of the caller's copy must not leak in
			pb.AddBullet("Retry", "unsaved", nil, nil)

			got, err := s.Load(ctx, "agent")
			if err != nil {
				t.Fatalf("load: %v", err)
			}
			if got.Len() != 2 || got.NextID() != 2 {
				t.Errorf("expected 2 bullets / next_id 2, got %d / %d", got.Len(), got.NextID())
			}
			b, ok := got.Bullet("retry-00001")
			if !ok || b.Helpful != 3 {
				t.Errorf("expected tagged bullet, got %+v", b)
			}

			names, err := s.Names(ctx)
			if err != nil {
				t.Fatalf("names: %v", err)
			}
			if !slices.Equal(names, []string{"agent"}) {
				t.Errorf("expected [agent], got %v", names)
			}
		})
	}
}

func TestApplyAndHistory(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			res, err := s.Apply(ctx, "agent", mustBatch(t, `{
				"reasoning": "init",
				"operations": [{"type": "add", "section": "Retry", "content": "Use backoff"}]
			}`))
			if err != nil {
				t.Fatalf("apply: %v", err)
			}
			if res.Record.ID == "" || res.Record.Applied != 1 || res.Record.Total != 1 {
				t.Errorf("unexpected record %+v", res.Record)
			}
			want := playbook.Stats{Sections: 1, Bullets: 1}
			if res.Stats != want {
				t.Errorf("expected stats %+v, got %+v", want, res.Stats)
			}

			res, err = s.Apply(ctx, "agent", mustBatch(t, `{
				"reasoning": "tag then fail",
				"operations": [
					{"type": "tag", "bullet_id": "retry-00001", "metadata": {"helpful": 2}},
					{"type": "update", "bullet_id": "ghost", "content": "x"},
					{"type": "add", "section": "Never", "content": "skipped"}
				]
			}`))
			if !errors.Is(err, playbook.ErrBulletNotFound) {
				t.Fatalf("expected ErrBulletNotFound, got %v", err)
			}
			if res == nil || res.Record.Applied != 1 || res.Record.Total != 3 || !res.Record.Failed() {
				t.Fatalf("unexpected result %+v", res)
			}

			// partial effects are persisted
			pb, err := s.Load(ctx, "agent")
			if err != nil {
				t.Fatalf("load: %v", err)
			}
			b, _ := pb.Bullet("retry-00001")
			if b == nil || b.Helpful != 2 {
				t.Errorf("expected tag from before the failure to persist, got %+v", b)
			}
			if pb.Len() != 1 {
				t.Errorf("expected 1 bullet, got %d", pb.Len())
			}

			hist, err := s.History(ctx, HistoryParams{Playbook: "agent"})
			if err != nil {
				t.Fatalf("history: %v", err)
			}
			if len(hist) != 2 {
				t.Fatalf("expected 2 records, got %d", len(hist))
			}
			if hist[0].Reasoning != "tag then fail" || hist[1].Reasoning != "init" {
				t.Errorf("expected newest first, got %q then %q", hist[0].Reasoning, hist[1].Reasoning)
			}
			if len(hist[0].Operations) != 3 || hist[0].Operations[0]["type"] != "tag" {
				t.Errorf("unexpected journaled operations %v", hist[0].Operations)
			}
			if hist[1].Failed() {
				t.Error("first batch should not be marked failed")
			}

			limited, _ := s.History(ctx, HistoryParams{Playbook: "agent", Limit: 1})
			if len(limited) != 1 {
				t.Errorf("expected limit 1, got %d", len(limited))
			}
		})
	}
}

func TestHistoryAcrossPlaybooks(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			s.Apply(ctx, "one", mustBatch(t, `{"reasoning": "a", "operations": [{"type": "add", "section": "S"}]}`))
			s.Apply(ctx, "two", mustBatch(t, `{"reasoning": "b", "operations": [{"type": "add", "section": "S"}]}`))
			s.Apply(ctx, "one", mustBatch(t, `{"reasoning": "c", "operations": []}`))

			all, err := s.History(ctx, HistoryParams{})
			if err != nil {
				t.Fatalf("history: %v", err)
			}
			var got []string
			for _, r := range all {
				got = append(got, r.Reasoning)
			}
			if !slices.Equal(got, []string{"c", "b", "a"}) {
				t.Errorf("expected [c b a], got %v", got)
			}

			one, _ := s.History(ctx, HistoryParams{Playbook: "one"})
			if len(one) != 2 {
				t.Errorf("expected 2 records for one, got %d", len(one))
			}
		})
	}
}

func TestInvalidName(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			for _, bad := range []string{"", "..", "a/b", `a\b`} {
				if _, err := s.Load(ctx, bad); !errors.Is(err, ErrInvalidName) {
					t.Errorf("load %q: expected ErrInvalidName, got %v", bad, err)
				}
			}
		})
	}
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()

	s, err := Open(BackendFile, filepath.Join(dir, "files"))
	if err != nil {
		t.Fatalf("open file: %v", err)
	}
	if _, ok := s.(*FileStore); !ok {
		t.Errorf("expected *FileStore, got %T", s)
	}
	s.Close()

	s, err = Open(BackendSQLite, filepath.Join(dir, "db", "playbook.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if _, ok := s.(*SQLiteStore); !ok {
		t.Errorf("expected *SQLiteStore, got %T", s)
	}
	s.Close()

	if _, err := Open("postgres", dir); err == nil {
		t.Error("expected error for unknown backend")
	}
}

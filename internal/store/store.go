// Package store persists named playbooks and journals the delta batches
// applied to them.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rcliao/agent-playbook/internal/delta"
	"github.com/rcliao/agent-playbook/internal/model"
	"github.com/rcliao/agent-playbook/internal/playbook"
)

// ErrInvalidName is returned for playbook names that cannot be stored.
var ErrInvalidName = errors.New("invalid playbook name")

// Backend names accepted by Open.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// HistoryParams holds parameters for reading the delta journal.
type HistoryParams struct {
	Playbook string
	Limit    int // 0 means 20
}

// ApplyResult describes a batch application.
type ApplyResult struct {
	Record model.DeltaRecord `json:"record"`
	Stats  playbook.Stats    `json:"stats"`
}

// Store defines the playbook storage interface.
type Store interface {
	// Load returns the named playbook, or an empty one if nothing is stored yet.
	Load(ctx context.Context, name string) (*playbook.Playbook, error)

	// Save replaces the named playbook.
	Save(ctx context.Context, name string, pb *playbook.Playbook) error

	// Apply applies a batch to the named playbook, persists the result and
	// journals the batch. Effects of operations before a failing one are
	// persisted; the failure is returned alongside the result.
	Apply(ctx context.Context, name string, b delta.Batch) (*ApplyResult, error)

	// History returns journal entries, newest first.
	History(ctx context.Context, p HistoryParams) ([]model.DeltaRecord, error)

	// Names lists stored playbooks.
	Names(ctx context.Context) ([]string, error)

	// Close closes the store.
	Close() error
}

// Open returns the store for backend rooted at path.
func Open(backend, path string) (Store, error) {
	switch backend {
	case BackendFile, "":
		return NewFileStore(path)
	case BackendSQLite:
		return NewSQLiteStore(path)
	}
	return nil, fmt.Errorf("unknown backend %q (use file or sqlite)", backend)
}

func validateName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

// applyBatch runs b against pb and builds the journal record for it.
func applyBatch(pb *playbook.Playbook, name, id string, b delta.Batch) (model.DeltaRecord, error) {
	ops := make([]map[string]any, 0, len(b.Operations))
	for _, op := range b.Operations {
		ops = append(ops, op.Map())
	}
	rec := model.DeltaRecord{
		ID:         id,
		Playbook:   name,
		Reasoning:  b.Reasoning,
		Operations: ops,
		Applied:    len(b.Operations),
		Total:      len(b.Operations),
		CreatedAt:  time.Now().UTC(),
	}

	err := pb.ApplyDelta(b)
	if err != nil {
		rec.Error = err.Error()
		var opErr *playbook.OpError
		if errors.As(err, &opErr) {
			rec.Applied = opErr.Index
		}
	}
	return rec, err
}

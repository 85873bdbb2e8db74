package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"

	"github.com/rcliao/agent-playbook/internal/delta"
	"github.com/rcliao/agent-playbook/internal/model"
	"github.com/rcliao/agent-playbook/internal/playbook"
)

// SQLiteStore implements Store using SQLite. Each playbook is stored as a
// JSON snapshot; every applied batch is journaled in the deltas table.
type SQLiteStore struct {
	db *sql.DB

	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

// NewSQLiteStore opens or creates a SQLite database at the given path.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	s := &SQLiteStore{
		db:      db,
		entropy: ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0),
	}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) newID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), s.entropy).String()
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS playbooks (
		name        TEXT PRIMARY KEY,
		data        TEXT NOT NULL,
		bullets     INTEGER NOT NULL DEFAULT 0,
		next_id     INTEGER NOT NULL DEFAULT 0,
		updated_at  TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS deltas (
		id          TEXT PRIMARY KEY,
		playbook    TEXT NOT NULL,
		reasoning   TEXT NOT NULL,
		operations  TEXT NOT NULL,
		applied     INTEGER NOT NULL,
		total       INTEGER NOT NULL,
		error       TEXT,
		created_at  TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_deltas_playbook ON deltas(playbook, id DESC);
	`
	_, err := s.db.Exec(schema)
	return err
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func loadPlaybook(ctx context.Context, q queryer, name string) (*playbook.Playbook, error) {
	var data string
	err := q.QueryRowContext(ctx, `SELECT data FROM playbooks WHERE name = ?`, name).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return playbook.New(), nil
	}
	if err != nil {
		return nil, err
	}
	pb, err := playbook.FromJSON(data)
	if err != nil {
		return nil, fmt.Errorf("playbook %s: %w", name, err)
	}
	return pb, nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func savePlaybook(ctx context.Context, e execer, name string, pb *playbook.Playbook) error {
	data, err := json.Marshal(pb)
	if err != nil {
		return err
	}
	_, err = e.ExecContext(ctx,
		`INSERT INTO playbooks (name, data, bullets, next_id, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET
		   data = excluded.data, bullets = excluded.bullets,
		   next_id = excluded.next_id, updated_at = excluded.updated_at`,
		name, string(data), pb.Len(), int64(pb.NextID()), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("save playbook: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Load(ctx context.Context, name string) (*playbook.Playbook, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}
	return loadPlaybook(ctx, s.db, name)
}

func (s *SQLiteStore) Save(ctx context.Context, name string, pb *playbook.Playbook) error {
	if err := validateName(name); err != nil {
		return err
	}
	return savePlaybook(ctx, s.db, name, pb)
}

func (s *SQLiteStore) Apply(ctx context.Context, name string, b delta.Batch) (*ApplyResult, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	pb, err := loadPlaybook(ctx, tx, name)
	if err != nil {
		return nil, err
	}

	rec, applyErr := applyBatch(pb, name, s.newID(), b)

	if err := savePlaybook(ctx, tx, name, pb); err != nil {
		return nil, err
	}

	ops, err := json.Marshal(rec.Operations)
	if err != nil {
		return nil, err
	}
	var errText *string
	if rec.Error != "" {
		errText = &rec.Error
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO deltas (id, playbook, reasoning, operations, applied, total, error, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, name, rec.Reasoning, string(ops), rec.Applied, rec.Total, errText,
		rec.CreatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return nil, fmt.Errorf("insert delta: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return &ApplyResult{Record: rec, Stats: pb.Stats()}, applyErr
}

func (s *SQLiteStore) History(ctx context.Context, p HistoryParams) ([]model.DeltaRecord, error) {
	limit := p.Limit
	if limit <= 0 {
		limit = 20
	}

	query := `SELECT id, playbook, reasoning, operations, applied, total, error, created_at
	          FROM deltas`
	args := []any{}
	if p.Playbook != "" {
		query += ` WHERE playbook = ?`
		args = append(args, p.Playbook)
	}
	query += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []model.DeltaRecord
	for rows.Next() {
		r, err := scanDelta(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

func (s *SQLiteStore) Names(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM playbooks ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		names = append(names, n)
	}
	return names, rows.Err()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDelta(row scanner) (model.DeltaRecord, error) {
	var r model.DeltaRecord
	var ops, createdAt string
	var errText sql.NullString

	err := row.Scan(&r.ID, &r.Playbook, &r.Reasoning, &ops, &r.Applied, &r.Total, &errText, &createdAt)
	if err != nil {
		return r, err
	}

	r.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	if errText.Valid {
		r.Error = errText.String
	}
	if err := json.Unmarshal([]byte(ops), &r.Operations); err != nil {
		return r, fmt.Errorf("delta %s operations: %w", r.ID, err)
	}
	return r, nil
}

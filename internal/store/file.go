package store

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math/rand"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/rcliao/agent-playbook/internal/delta"
	"github.com/rcliao/agent-playbook/internal/model"
	"github.com/rcliao/agent-playbook/internal/playbook"
)

const (
	playbookExt = ".json"
	historyExt  = ".history.jsonl"
)

// FileStore implements Store with one JSON file per playbook and a JSONL
// journal beside it. Loaded playbooks are cached for the life of the store,
// so writes from other processes are not observed.
type FileStore struct {
	dir string

	mu      sync.Mutex
	cache   map[string]*playbook.Locked
	entropy *ulid.MonotonicEntropy
}

// NewFileStore returns a store rooted at dir, creating it if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create playbook dir: %w", err)
	}
	return &FileStore{
		dir:     dir,
		cache:   make(map[string]*playbook.Locked),
		entropy: ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0),
	}, nil
}

// Path returns the JSON file backing the named playbook.
func (s *FileStore) Path(name string) string {
	return filepath.Join(s.dir, name+playbookExt)
}

func (s *FileStore) historyPath(name string) string {
	return filepath.Join(s.dir, name+historyExt)
}

func (s *FileStore) newID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), s.entropy).String()
}

// locked returns the cached playbook for name, loading it on first use.
func (s *FileStore) locked(name string) (*playbook.Locked, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if l, ok := s.cache[name]; ok {
		return l, nil
	}

	pb, err := playbook.Load(s.Path(name))
	if errors.Is(err, fs.ErrNotExist) {
		pb = playbook.New()
	} else if err != nil {
		return nil, err
	}

	l := playbook.NewLocked(pb)
	s.cache[name] = l
	return l, nil
}

// evict drops l from the cache so the next access reloads name from disk.
func (s *FileStore) evict(name string, l *playbook.Locked) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cache[name] == l {
		delete(s.cache, name)
	}
}

func (s *FileStore) Load(ctx context.Context, name string) (*playbook.Playbook, error) {
	l, err := s.locked(name)
	if err != nil {
		return nil, err
	}
	return l.Snapshot(), nil
}

func (s *FileStore) Save(ctx context.Context, name string, pb *playbook.Playbook) error {
	l, err := s.locked(name)
	if err != nil {
		return err
	}
	snap := pb.Clone()
	l.Replace(snap)
	if err := snap.Save(s.Path(name)); err != nil {
		s.evict(name, l)
		return err
	}
	return nil
}

func (s *FileStore) Apply(ctx context.Context, name string, b delta.Batch) (*ApplyResult, error) {
	l, err := s.locked(name)
	if err != nil {
		return nil, err
	}

	var (
		rec      model.DeltaRecord
		applyErr error
		stats    playbook.Stats
	)
	err = l.Do(func(pb *playbook.Playbook) error {
		rec, applyErr = applyBatch(pb, name, s.newID(), b)
		stats = pb.Stats()
		return pb.Save(s.Path(name))
	})
	if err != nil {
		s.evict(name, l)
		return nil, err
	}

	if err := s.appendHistory(name, rec); err != nil {
		return nil, err
	}
	return &ApplyResult{Record: rec, Stats: stats}, applyErr
}

func (s *FileStore) appendHistory(name string, rec model.DeltaRecord) error {
	line, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	f, err := os.OpenFile(s.historyPath(name), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open history: %w", err)
	}
	defer f.Close()
	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("write history: %w", err)
	}
	return nil
}

func (s *FileStore) History(ctx context.Context, p HistoryParams) ([]model.DeltaRecord, error) {
	limit := p.Limit
	if limit <= 0 {
		limit = 20
	}

	names := []string{p.Playbook}
	if p.Playbook == "" {
		var err error
		if names, err = s.Names(ctx); err != nil {
			return nil, err
		}
	}

	var records []model.DeltaRecord
	for _, name := range names {
		recs, err := s.readHistory(name)
		if err != nil {
			return nil, err
		}
		records = append(records, recs...)
	}

	// ULIDs sort by creation time
	slices.SortFunc(records, func(a, b model.DeltaRecord) int {
		return strings.Compare(b.ID, a.ID)
	})
	if len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

func (s *FileStore) readHistory(name string) ([]model.DeltaRecord, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}
	f, err := os.Open(s.historyPath(name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var records []model.DeltaRecord
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	for sc.Scan() {
		if len(strings.TrimSpace(sc.Text())) == 0 {
			continue
		}
		var r model.DeltaRecord
		if err := json.Unmarshal(sc.Bytes(), &r); err != nil {
			return nil, fmt.Errorf("history %s: %w", name, err)
		}
		records = append(records, r)
	}
	return records, sc.Err()
}

func (s *FileStore) Names(ctx context.Context) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(s.dir, "*"+playbookExt))
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		names = append(names, strings.TrimSuffix(filepath.Base(m), playbookExt))
	}
	slices.Sort(names)
	return names, nil
}

func (s *FileStore) Close() error {
	return nil
}

package store

import (
	"context"
	"os"
)

// Stats holds database statistics.
type Stats struct {
	DBPath       string          `json:"db_path" yaml:"db_path"`
	DBSizeBytes  int64           `json:"db_size_bytes" yaml:"db_size_bytes"`
	Playbooks    int             `json:"playbooks" yaml:"playbooks"`
	TotalDeltas  int             `json:"total_deltas" yaml:"total_deltas"`
	FailedDeltas int             `json:"failed_deltas" yaml:"failed_deltas"`
	PerPlaybook  []PlaybookStats `json:"per_playbook" yaml:"per_playbook"`
}

// PlaybookStats holds per-playbook counts.
type PlaybookStats struct {
	Name    string `json:"name" yaml:"name"`
	Bullets int    `json:"bullets" yaml:"bullets"`
	Deltas  int    `json:"deltas" yaml:"deltas"`
}

// Stats returns database statistics.
func (s *SQLiteStore) Stats(ctx context.Context, dbPath string) (*Stats, error) {
	st := &Stats{DBPath: dbPath}

	// DB file size
	if info, err := os.Stat(dbPath); err == nil {
		st.DBSizeBytes = info.Size()
	}

	s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM playbooks`).Scan(&st.Playbooks)
	s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM deltas`).Scan(&st.TotalDeltas)
	s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM deltas WHERE error IS NOT NULL`).Scan(&st.FailedDeltas)

	rows, err := s.db.QueryContext(ctx, `
		SELECT p.name, p.bullets, COUNT(d.id) AS deltas
		FROM playbooks p LEFT JOIN deltas d ON d.playbook = p.name
		GROUP BY p.name ORDER BY deltas DESC, p.name`)
	if err != nil {
		return st, err
	}
	defer rows.Close()

	for rows.Next() {
		var ps PlaybookStats
		rows.Scan(&ps.Name, &ps.Bullets, &ps.Deltas)
		st.PerPlaybook = append(st.PerPlaybook, ps)
	}

	return st, nil
}

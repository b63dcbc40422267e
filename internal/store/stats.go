package store

import (
	"context"
	"os"
)

// Stats holds database statistics.
type Stats struct {
	DBPath        string       `json:"db_path"`
	DBSizeBytes   int64        `json:"db_size_bytes"`
	TotalSaves    int          `json:"total_saves"`
	ActiveSaves   int          `json:"active_saves"`
	TotalExcerpts int          `json:"total_excerpts"`
	TotalLinks    int          `json:"total_links"`
	MirrorKeys    int          `json:"mirror_keys"`
	Stories       []StoryStats `json:"stories"`
}

// StoryStats holds per-story counts.
type StoryStats struct {
	Story string `json:"story"`
	Count int    `json:"count"`
	Slots int    `json:"slots"`
}

// Stats returns database statistics.
func (s *SQLiteStore) Stats(ctx context.Context, dbPath string) (*Stats, error) {
	st := &Stats{DBPath: dbPath}

	if info, err := os.Stat(dbPath); err == nil {
		st.DBSizeBytes = info.Size()
	}

	s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM saves`).Scan(&st.TotalSaves)
	s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM saves WHERE deleted_at IS NULL`).Scan(&st.ActiveSaves)
	s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM excerpts`).Scan(&st.TotalExcerpts)
	s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM save_links`).Scan(&st.TotalLinks)
	s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM kv`).Scan(&st.MirrorKeys)

	rows, err := s.db.QueryContext(ctx, `
		SELECT story, COUNT(*) as cnt, COUNT(DISTINCT slot) as slots
		FROM saves WHERE deleted_at IS NULL
		GROUP BY story ORDER BY cnt DESC, story`)
	if err != nil {
		return st, err
	}
	defer rows.Close()

	for rows.Next() {
		var ss StoryStats
		if err := rows.Scan(&ss.Story, &ss.Count, &ss.Slots); err != nil {
			return st, err
		}
		st.Stories = append(st.Stories, ss)
	}
	return st, rows.Err()
}

// Stories lists the stories that have live saves.
func (s *SQLiteStore) Stories(ctx context.Context) ([]StoryStats, error) {
	st, err := s.Stats(ctx, "")
	if err != nil {
		return nil, err
	}
	return st.Stories, nil
}

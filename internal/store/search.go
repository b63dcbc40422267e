package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rcliao/passage/internal/model"
)

// SearchParams holds parameters for searching saves.
type SearchParams struct {
	Story string
	Query string
	Limit int
}

// SearchResult wraps a save with the transcript excerpt that matched, if any.
type SearchResult struct {
	model.Save
	Match *model.Excerpt `json:"match,omitempty"`
}

// Search finds the latest saves whose slot, passage or label contains the
// query, or whose transcript matches it in the full-text index.
func (s *SQLiteStore) Search(ctx context.Context, p SearchParams) ([]SearchResult, error) {
	limit := p.Limit
	if limit <= 0 {
		limit = 20
	}
	if strings.TrimSpace(p.Query) == "" {
		return nil, fmt.Errorf("empty query")
	}

	like := "%" + p.Query + "%"
	phrase := `"` + strings.ReplaceAll(p.Query, `"`, `""`) + `"`

	now := time.Now().UTC().Format(time.RFC3339)
	where := []string{"m.deleted_at IS NULL", "(m.expires_at IS NULL OR m.expires_at > ?)"}
	args := []any{now}
	if p.Story != "" {
		where = append(where, "m.story = ?")
		args = append(args, p.Story)
	}

	query := fmt.Sprintf(`
		SELECT m.id, m.story, m.slot, m.passage, m.turn, m.label, m.tags, m.data, m.transcript,
		       m.version, m.supersedes, m.created_at, m.deleted_at, m.expires_at,
		       e.id, e.seq, e.text, e.start_line, e.end_line
		FROM saves m
		INNER JOIN (
			SELECT story, slot, MAX(version) AS max_ver
			FROM saves WHERE deleted_at IS NULL
			GROUP BY story, slot
		) latest ON m.story = latest.story AND m.slot = latest.slot AND m.version = latest.max_ver
		LEFT JOIN (
			SELECT x.id, x.save_id, x.seq, x.text, x.start_line, x.end_line
			FROM excerpts x JOIN excerpts_fts f ON f.rowid = x.rowid
			WHERE f.text MATCH ?
		) e ON e.save_id = m.id
		WHERE %s AND (e.id IS NOT NULL OR m.slot LIKE ? OR m.passage LIKE ? OR m.label LIKE ?)
		ORDER BY m.created_at DESC, m.id DESC, e.seq`, strings.Join(where, " AND "))
	args = append([]any{phrase}, args...)
	args = append(args, like, like, like)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []SearchResult
	seen := map[string]bool{}
	for rows.Next() {
		var sr saveRow
		var ex excerptRow
		if err := rows.Scan(append(sr.dest(), ex.dest()...)...); err != nil {
			return nil, err
		}
		save := sr.save()
		if seen[save.ID] {
			continue
		}
		seen[save.ID] = true
		results = append(results, SearchResult{Save: save, Match: ex.excerpt(save.ID)})
		if len(results) == limit {
			break
		}
	}
	return results, rows.Err()
}

type excerptRow struct {
	id, text        sql.NullString
	seq, start, end sql.NullInt64
}

func (r *excerptRow) dest() []any {
	return []any{&r.id, &r.seq, &r.text, &r.start, &r.end}
}

func (r *excerptRow) excerpt(saveID string) *model.Excerpt {
	if !r.id.Valid {
		return nil
	}
	return &model.Excerpt{
		ID:        r.id.String,
		SaveID:    saveID,
		Seq:       int(r.seq.Int64),
		Text:      r.text.String,
		StartLine: int(r.start.Int64),
		EndLine:   int(r.end.Int64),
	}
}

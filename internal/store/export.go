package store

import (
	"context"
	"strings"

	"github.com/rcliao/passage/internal/model"
)

// ExportAll returns every live save version, optionally for one story.
func (s *SQLiteStore) ExportAll(ctx context.Context, story string) ([]model.Save, error) {
	where := []string{"deleted_at IS NULL"}
	args := []any{}

	if story != "" {
		where = append(where, "story = ?")
		args = append(args, story)
	}

	query := `SELECT ` + saveColumns + ` FROM saves WHERE ` + strings.Join(where, " AND ") +
		` ORDER BY story, slot, version`
	return s.query(ctx, query, args...)
}

// Import stores saves from an export, oldest version first, so each slot's
// versions are renumbered on top of what is already there.
func (s *SQLiteStore) Import(ctx context.Context, saves []model.Save) (int, error) {
	imported := 0
	for _, m := range saves {
		_, err := s.Put(ctx, PutParams{
			Story:      m.Story,
			Slot:       m.Slot,
			Passage:    m.Passage,
			Turn:       m.Turn,
			Label:      m.Label,
			Tags:       m.Tags,
			Data:       m.Data,
			Transcript: m.Transcript,
		})
		if err != nil {
			return imported, err
		}
		imported++
	}
	return imported, nil
}

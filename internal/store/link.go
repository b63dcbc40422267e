package store

import (
	"context"
	"fmt"
	"time"
)

// Relations a save can have to another save of the same story.
const (
	RelBranches  = "branches"  // saved to a new slot after loading the other
	RelContinues = "continues" // saved over its own slot after loading it
)

// LinkParams holds parameters for creating or removing a link.
type LinkParams struct {
	Story    string
	FromSlot string
	ToSlot   string
	Rel      string
	Remove   bool
}

// Link is a relation between two saves.
type Link struct {
	FromID    string `json:"from_id"`
	ToID      string `json:"to_id"`
	Rel       string `json:"rel"`
	CreatedAt string `json:"created_at"`
}

var validRels = map[string]bool{
	RelBranches:  true,
	RelContinues: true,
}

// Link relates the latest save of FromSlot to the latest save of ToSlot.
func (s *SQLiteStore) Link(ctx context.Context, p LinkParams) (*Link, error) {
	if !validRels[p.Rel] {
		return nil, fmt.Errorf("invalid relation %q (valid: branches, continues)", p.Rel)
	}

	fromID, err := s.latestID(ctx, p.Story, p.FromSlot)
	if err != nil {
		return nil, fmt.Errorf("resolve from: %w", err)
	}
	toID, err := s.latestID(ctx, p.Story, p.ToSlot)
	if err != nil {
		return nil, fmt.Errorf("resolve to: %w", err)
	}
	return s.LinkIDs(ctx, fromID, toID, p.Rel, p.Remove)
}

// LinkIDs relates two saves by id, such as a new save and the save that was
// loaded before it.
func (s *SQLiteStore) LinkIDs(ctx context.Context, fromID, toID, rel string, remove bool) (*Link, error) {
	if !validRels[rel] {
		return nil, fmt.Errorf("invalid relation %q (valid: branches, continues)", rel)
	}
	if fromID == toID {
		return nil, fmt.Errorf("a save can't be linked to itself")
	}

	if remove {
		_, err := s.db.ExecContext(ctx,
			`DELETE FROM save_links WHERE from_id = ? AND to_id = ? AND rel = ?`,
			fromID, toID, rel)
		if err != nil {
			return nil, err
		}
		return &Link{FromID: fromID, ToID: toID, Rel: rel}, nil
	}

	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO save_links (from_id, to_id, rel, created_at) VALUES (?, ?, ?, ?)`,
		fromID, toID, rel, now)
	if err != nil {
		return nil, err
	}
	return &Link{FromID: fromID, ToID: toID, Rel: rel, CreatedAt: now}, nil
}

// GetLinks returns all links to or from a save.
func (s *SQLiteStore) GetLinks(ctx context.Context, saveID string) ([]Link, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT from_id, to_id, rel, created_at FROM save_links
		 WHERE from_id = ? OR to_id = ?
		 ORDER BY created_at`, saveID, saveID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var links []Link
	for rows.Next() {
		var l Link
		if err := rows.Scan(&l.FromID, &l.ToID, &l.Rel, &l.CreatedAt); err != nil {
			return nil, err
		}
		links = append(links, l)
	}
	return links, rows.Err()
}

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"

	"github.com/rcliao/passage/internal/excerpt"
	"github.com/rcliao/passage/internal/model"
)

// ErrSaveNotFound is returned when a slot has no live save.
var ErrSaveNotFound = errors.New("save not found")

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens or creates a SQLite database at the given path.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=foreign_keys(on)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	s := &SQLiteStore{db: db}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

// newID returns a ULID. ulid.Make is safe for concurrent sessions.
func (s *SQLiteStore) newID() string {
	return ulid.Make().String()
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS saves (
		id          TEXT PRIMARY KEY,
		story       TEXT NOT NULL,
		slot        TEXT NOT NULL,
		passage     TEXT NOT NULL,
		turn        INTEGER NOT NULL DEFAULT 0,
		label       TEXT,
		tags        TEXT,
		data        TEXT NOT NULL,
		transcript  TEXT,
		version     INTEGER NOT NULL DEFAULT 1,
		supersedes  TEXT,
		created_at  TEXT NOT NULL,
		deleted_at  TEXT,
		expires_at  TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_saves_story_slot ON saves(story, slot);
	CREATE INDEX IF NOT EXISTS idx_saves_created ON saves(created_at DESC);
	CREATE INDEX IF NOT EXISTS idx_saves_deleted ON saves(deleted_at);
	CREATE INDEX IF NOT EXISTS idx_saves_expires ON saves(expires_at);

	CREATE TABLE IF NOT EXISTS excerpts (
		id          TEXT PRIMARY KEY,
		save_id     TEXT NOT NULL REFERENCES saves(id),
		seq         INTEGER NOT NULL,
		text        TEXT NOT NULL,
		start_line  INTEGER,
		end_line    INTEGER
	);
	CREATE INDEX IF NOT EXISTS idx_excerpts_save ON excerpts(save_id);

	CREATE TABLE IF NOT EXISTS save_links (
		from_id    TEXT NOT NULL REFERENCES saves(id),
		to_id      TEXT NOT NULL REFERENCES saves(id),
		rel        TEXT NOT NULL,
		created_at TEXT NOT NULL,
		PRIMARY KEY (from_id, to_id, rel)
	);
	CREATE INDEX IF NOT EXISTS idx_links_to ON save_links(to_id);

	CREATE TABLE IF NOT EXISTS kv (
		key         TEXT PRIMARY KEY,
		value       TEXT NOT NULL,
		updated_at  TEXT NOT NULL
	);

	CREATE VIRTUAL TABLE IF NOT EXISTS excerpts_fts USING fts5(
		text,
		content=excerpts,
		content_rowid=rowid
	);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return err
	}

	triggers := []string{
		`CREATE TRIGGER IF NOT EXISTS excerpts_ai AFTER INSERT ON excerpts BEGIN
			INSERT INTO excerpts_fts(rowid, text) VALUES (new.rowid, new.text);
		END`,
		`CREATE TRIGGER IF NOT EXISTS excerpts_ad AFTER DELETE ON excerpts BEGIN
			INSERT INTO excerpts_fts(excerpts_fts, rowid, text) VALUES('delete', old.rowid, old.text);
		END`,
	}
	for _, t := range triggers {
		if _, err := s.db.Exec(t); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteStore) Put(ctx context.Context, p PutParams) (*model.Save, error) {
	if p.Story == "" || p.Slot == "" {
		return nil, fmt.Errorf("story and slot are required")
	}
	now := time.Now().UTC()
	id := s.newID()

	var tagsJSON *string
	if len(p.Tags) > 0 {
		b, _ := json.Marshal(p.Tags)
		s := string(b)
		tagsJSON = &s
	}

	var label, transcript *string
	if p.Label != "" {
		label = &p.Label
	}
	if p.Transcript != "" {
		transcript = &p.Transcript
	}

	var expiresAt *string
	if p.TTL != "" {
		d, err := parseTTL(p.TTL)
		if err != nil {
			return nil, fmt.Errorf("invalid ttl: %w", err)
		}
		exp := now.Add(d).Format(time.RFC3339)
		expiresAt = &exp
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var prevID string
	var prevVersion int
	err = tx.QueryRowContext(ctx,
		`SELECT id, version FROM saves
		 WHERE story = ? AND slot = ? AND deleted_at IS NULL
		 ORDER BY version DESC LIMIT 1`, p.Story, p.Slot).Scan(&prevID, &prevVersion)

	version := 1
	var supersedes *string
	if err == nil {
		version = prevVersion + 1
		supersedes = &prevID
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO saves (id, story, slot, passage, turn, label, tags, data, transcript, version, supersedes, created_at, expires_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, p.Story, p.Slot, p.Passage, p.Turn, label, tagsJSON, p.Data, transcript,
		version, supersedes, now.Format(time.RFC3339), expiresAt)
	if err != nil {
		return nil, fmt.Errorf("insert save: %w", err)
	}

	chunks := excerpt.Split(p.Transcript, excerpt.DefaultOptions())
	for i, c := range chunks {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO excerpts (id, save_id, seq, text, start_line, end_line)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			s.newID(), id, i, c.Text, c.StartLine, c.EndLine)
		if err != nil {
			return nil, fmt.Errorf("insert excerpt: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	save := &model.Save{
		ID:           id,
		Story:        p.Story,
		Slot:         p.Slot,
		Passage:      p.Passage,
		Turn:         p.Turn,
		Label:        p.Label,
		Tags:         p.Tags,
		Data:         p.Data,
		Transcript:   p.Transcript,
		Version:      version,
		CreatedAt:    now,
		ExcerptCount: len(chunks),
	}
	if expiresAt != nil {
		t, _ := time.Parse(time.RFC3339, *expiresAt)
		save.ExpiresAt = &t
	}
	if supersedes != nil {
		save.Supersedes = *supersedes
	}

	return save, nil
}

const saveColumns = `id, story, slot, passage, turn, label, tags, data, transcript, version, supersedes,
	created_at, deleted_at, expires_at`

func (s *SQLiteStore) Get(ctx context.Context, p GetParams) ([]model.Save, error) {
	var query string
	var args []any

	now := time.Now().UTC().Format(time.RFC3339)

	switch {
	case p.History:
		// History shows expired versions too.
		query = `SELECT ` + saveColumns + ` FROM saves
				 WHERE story = ? AND slot = ? AND deleted_at IS NULL
				 ORDER BY version DESC`
		args = []any{p.Story, p.Slot}
	case p.Version > 0:
		query = `SELECT ` + saveColumns + ` FROM saves
				 WHERE story = ? AND slot = ? AND version = ? AND deleted_at IS NULL
				   AND (expires_at IS NULL OR expires_at > ?)
				 LIMIT 1`
		args = []any{p.Story, p.Slot, p.Version, now}
	default:
		query = `SELECT ` + saveColumns + ` FROM saves
				 WHERE story = ? AND slot = ? AND deleted_at IS NULL
				   AND (expires_at IS NULL OR expires_at > ?)
				 ORDER BY version DESC LIMIT 1`
		args = []any{p.Story, p.Slot, now}
	}

	saves, err := s.query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	if len(saves) == 0 {
		return nil, fmt.Errorf("%w: %s/%s", ErrSaveNotFound, p.Story, p.Slot)
	}
	return saves, nil
}

func (s *SQLiteStore) List(ctx context.Context, p ListParams) ([]model.Save, error) {
	limit := p.Limit
	if limit <= 0 {
		limit = 20
	}

	now := time.Now().UTC().Format(time.RFC3339)
	where := []string{"m.deleted_at IS NULL", "(m.expires_at IS NULL OR m.expires_at > ?)"}
	args := []any{now}

	if p.Story != "" {
		where = append(where, "m.story = ?")
		args = append(args, p.Story)
	}
	for _, tag := range p.Tags {
		where = append(where, "m.tags LIKE ?")
		args = append(args, "%\""+tag+"\"%")
	}

	query := fmt.Sprintf(`
		SELECT m.id, m.story, m.slot, m.passage, m.turn, m.label, m.tags, m.data, m.transcript,
		       m.version, m.supersedes, m.created_at, m.deleted_at, m.expires_at
		FROM saves m
		INNER JOIN (
			SELECT story, slot, MAX(version) AS max_ver
			FROM saves WHERE deleted_at IS NULL
			GROUP BY story, slot
		) latest ON m.story = latest.story AND m.slot = latest.slot AND m.version = latest.max_ver
		WHERE %s
		ORDER BY m.created_at DESC, m.id DESC
		LIMIT ?`, strings.Join(where, " AND "))
	args = append(args, limit)

	return s.query(ctx, query, args...)
}

func (s *SQLiteStore) Rm(ctx context.Context, p RmParams) error {
	if p.Hard {
		if p.AllVersions {
			ids := `SELECT id FROM saves WHERE story = ? AND slot = ?`
			if err := s.purge(ctx, ids, p.Story, p.Slot); err != nil {
				return err
			}
			_, err := s.db.ExecContext(ctx, `DELETE FROM saves WHERE story = ? AND slot = ?`, p.Story, p.Slot)
			return err
		}
		id, err := s.latestID(ctx, p.Story, p.Slot)
		if err != nil {
			return err
		}
		if err := s.purge(ctx, `SELECT ?`, id); err != nil {
			return err
		}
		_, err = s.db.ExecContext(ctx, `DELETE FROM saves WHERE id = ?`, id)
		return err
	}

	now := time.Now().UTC().Format(time.RFC3339)
	if p.AllVersions {
		res, err := s.db.ExecContext(ctx,
			`UPDATE saves SET deleted_at = ? WHERE story = ? AND slot = ? AND deleted_at IS NULL`,
			now, p.Story, p.Slot)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("%w: %s/%s", ErrSaveNotFound, p.Story, p.Slot)
		}
		return nil
	}

	id, err := s.latestID(ctx, p.Story, p.Slot)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `UPDATE saves SET deleted_at = ? WHERE id = ?`, now, id)
	return err
}

// purge removes the excerpts and links of the saves whose ids the subquery
// selects.
func (s *SQLiteStore) purge(ctx context.Context, ids string, args ...any) error {
	for _, stmt := range []string{
		`DELETE FROM excerpts WHERE save_id IN (` + ids + `)`,
		`DELETE FROM save_links WHERE from_id IN (` + ids + `)`,
		`DELETE FROM save_links WHERE to_id IN (` + ids + `)`,
	} {
		if _, err := s.db.ExecContext(ctx, stmt, args...); err != nil {
			return err
		}
	}
	return nil
}

// latestID finds the newest live version of a slot.
func (s *SQLiteStore) latestID(ctx context.Context, story, slot string) (string, error) {
	var id string
	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM saves WHERE story = ? AND slot = ? AND deleted_at IS NULL
		 ORDER BY version DESC LIMIT 1`, story, slot).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("%w: %s/%s", ErrSaveNotFound, story, slot)
	}
	return id, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) query(ctx context.Context, query string, args ...any) ([]model.Save, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var saves []model.Save
	for rows.Next() {
		m, err := scanSave(rows)
		if err != nil {
			return nil, err
		}
		saves = append(saves, m)
	}
	return saves, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

// saveRow holds a scanned saves row before its nullable columns are
// folded into a model.Save.
type saveRow struct {
	m                                                     model.Save
	label, tags, transcript, supersedes, deleted, expires sql.NullString
	created                                               string
}

func (r *saveRow) dest() []any {
	return []any{
		&r.m.ID, &r.m.Story, &r.m.Slot, &r.m.Passage, &r.m.Turn, &r.label, &r.tags,
		&r.m.Data, &r.transcript, &r.m.Version, &r.supersedes, &r.created, &r.deleted, &r.expires,
	}
}

func (r *saveRow) save() model.Save {
	m := r.m
	m.CreatedAt, _ = time.Parse(time.RFC3339, r.created)
	m.Label = r.label.String
	m.Transcript = r.transcript.String
	m.Supersedes = r.supersedes.String
	if r.deleted.Valid {
		t, _ := time.Parse(time.RFC3339, r.deleted.String)
		m.DeletedAt = &t
	}
	if r.tags.Valid {
		json.Unmarshal([]byte(r.tags.String), &m.Tags)
	}
	if r.expires.Valid {
		t, _ := time.Parse(time.RFC3339, r.expires.String)
		m.ExpiresAt = &t
	}
	return m
}

func scanSave(row scanner) (model.Save, error) {
	var r saveRow
	if err := row.Scan(r.dest()...); err != nil {
		return model.Save{}, err
	}
	return r.save(), nil
}

// parseTTL parses a TTL string like "7d", "24h", "30m" into a time.Duration.
var ttlRegex = regexp.MustCompile(`^(\d+)([dhms])$`)

func parseTTL(s string) (time.Duration, error) {
	m := ttlRegex.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf("invalid format %q (use e.g. 7d, 24h, 30m, 60s)", s)
	}
	n, _ := strconv.Atoi(m[1])
	switch m[2] {
	case "d":
		return time.Duration(n) * 24 * time.Hour, nil
	case "h":
		return time.Duration(n) * time.Hour, nil
	case "m":
		return time.Duration(n) * time.Minute, nil
	case "s":
		return time.Duration(n) * time.Second, nil
	}
	return 0, fmt.Errorf("unknown unit %q", m[2])
}

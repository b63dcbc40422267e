package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dir := t.TempDir()
	s, err := NewSQLiteStore(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPutAndGet(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	save, err := s.Put(ctx, PutParams{
		Story: "cellar", Slot: "one", Passage: "Bottom", Turn: 2,
		Label: "by the door", Data: `["Top","Bottom"]`,
	})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if save.Version != 1 {
		t.Errorf("expected version 1, got %d", save.Version)
	}
	if save.ID == "" {
		t.Error("expected non-empty ID")
	}

	got, err := s.Get(ctx, GetParams{Story: "cellar", Slot: "one"})
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 result, got %d", len(got))
	}
	if got[0].Data != `["Top","Bottom"]` || got[0].Turn != 2 || got[0].Label != "by the door" {
		t.Errorf("unexpected save %+v", got[0])
	}
}

func TestPutRequiresStoryAndSlot(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.Put(context.Background(), PutParams{Story: "cellar", Data: "[]"}); err == nil {
		t.Error("expected an error without a slot")
	}
}

func TestVersioning(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	s.Put(ctx, PutParams{Story: "cellar", Slot: "k", Passage: "Top", Data: "v1"})
	m2, _ := s.Put(ctx, PutParams{Story: "cellar", Slot: "k", Passage: "Bottom", Data: "v2"})

	if m2.Version != 2 {
		t.Errorf("expected version 2, got %d", m2.Version)
	}
	if m2.Supersedes == "" {
		t.Error("expected supersedes to be set")
	}

	got, _ := s.Get(ctx, GetParams{Story: "cellar", Slot: "k"})
	if got[0].Data != "v2" {
		t.Errorf("expected 'v2', got %q", got[0].Data)
	}

	hist, _ := s.Get(ctx, GetParams{Story: "cellar", Slot: "k", History: true})
	if len(hist) != 2 {
		t.Fatalf("expected 2 versions, got %d", len(hist))
	}

	v1, _ := s.Get(ctx, GetParams{Story: "cellar", Slot: "k", Version: 1})
	if v1[0].Data != "v1" {
		t.Errorf("expected 'v1', got %q", v1[0].Data)
	}
}

func TestList(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	s.Put(ctx, PutParams{Story: "cellar", Slot: "a", Passage: "Top", Data: "[]"})
	s.Put(ctx, PutParams{Story: "cellar", Slot: "b", Passage: "Top", Data: "[]"})
	s.Put(ctx, PutParams{Story: "attic", Slot: "a", Passage: "Top", Data: "[]"})

	all, _ := s.List(ctx, ListParams{})
	if len(all) != 3 {
		t.Errorf("expected 3, got %d", len(all))
	}

	cellar, _ := s.List(ctx, ListParams{Story: "cellar"})
	if len(cellar) != 2 {
		t.Errorf("expected 2, got %d", len(cellar))
	}
}

func TestListShowsLatestVersion(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	s.Put(ctx, PutParams{Story: "cellar", Slot: "k", Passage: "Top", Data: "v1"})
	s.Put(ctx, PutParams{Story: "cellar", Slot: "k", Passage: "Bottom", Data: "v2"})

	list, _ := s.List(ctx, ListParams{Story: "cellar"})
	if len(list) != 1 {
		t.Fatalf("expected 1 (latest only), got %d", len(list))
	}
	if list[0].Passage != "Bottom" {
		t.Errorf("expected latest at Bottom, got %q", list[0].Passage)
	}
}

func TestSoftDelete(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	s.Put(ctx, PutParams{Story: "cellar", Slot: "k", Passage: "Top", Data: "[]"})
	if err := s.Rm(ctx, RmParams{Story: "cellar", Slot: "k"}); err != nil {
		t.Fatalf("rm: %v", err)
	}

	_, err := s.Get(ctx, GetParams{Story: "cellar", Slot: "k"})
	if !errors.Is(err, ErrSaveNotFound) {
		t.Errorf("expected ErrSaveNotFound after soft delete, got %v", err)
	}
	if err := s.Rm(ctx, RmParams{Story: "cellar", Slot: "k"}); !errors.Is(err, ErrSaveNotFound) {
		t.Errorf("expected ErrSaveNotFound removing twice, got %v", err)
	}
}

func TestSoftDeleteRevealsPreviousVersion(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	s.Put(ctx, PutParams{Story: "cellar", Slot: "k", Passage: "Top", Data: "v1"})
	s.Put(ctx, PutParams{Story: "cellar", Slot: "k", Passage: "Bottom", Data: "v2"})
	s.Rm(ctx, RmParams{Story: "cellar", Slot: "k"})

	got, err := s.Get(ctx, GetParams{Story: "cellar", Slot: "k"})
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got[0].Data != "v1" {
		t.Errorf("expected 'v1' after deleting the latest, got %q", got[0].Data)
	}
}

func TestHardDelete(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	s.Put(ctx, PutParams{Story: "cellar", Slot: "k", Passage: "Top", Data: "[]", Transcript: "It's dark."})
	if err := s.Rm(ctx, RmParams{Story: "cellar", Slot: "k", Hard: true}); err != nil {
		t.Fatalf("rm hard: %v", err)
	}

	if _, err := s.Get(ctx, GetParams{Story: "cellar", Slot: "k"}); err == nil {
		t.Error("expected error after hard delete")
	}
	st, _ := s.Stats(ctx, "")
	if st.TotalSaves != 0 || st.TotalExcerpts != 0 {
		t.Errorf("expected no rows left, got %d saves and %d excerpts", st.TotalSaves, st.TotalExcerpts)
	}
}

func TestDeleteAllVersions(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	s.Put(ctx, PutParams{Story: "cellar", Slot: "k", Passage: "Top", Data: "v1"})
	s.Put(ctx, PutParams{Story: "cellar", Slot: "k", Passage: "Top", Data: "v2"})

	s.Rm(ctx, RmParams{Story: "cellar", Slot: "k", AllVersions: true})

	if _, err := s.Get(ctx, GetParams{Story: "cellar", Slot: "k", History: true}); err == nil {
		t.Error("expected error after deleting all versions")
	}
}

func TestTags(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	s.Put(ctx, PutParams{Story: "cellar", Slot: "a", Passage: "Top", Data: "[]", Tags: []string{"ending", "good"}})
	s.Put(ctx, PutParams{Story: "cellar", Slot: "b", Passage: "Top", Data: "[]", Tags: []string{"ending"}})
	s.Put(ctx, PutParams{Story: "cellar", Slot: "c", Passage: "Top", Data: "[]"})

	list, _ := s.List(ctx, ListParams{Story: "cellar", Tags: []string{"ending"}})
	if len(list) != 2 {
		t.Errorf("expected 2 with 'ending' tag, got %d", len(list))
	}

	list, _ = s.List(ctx, ListParams{Story: "cellar", Tags: []string{"good"}})
	if len(list) != 1 {
		t.Errorf("expected 1 with 'good' tag, got %d", len(list))
	}
}

func TestTTL(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	save, err := s.Put(ctx, PutParams{Story: "cellar", Slot: "k", Passage: "Top", Data: "[]", TTL: "1h"})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if save.ExpiresAt == nil {
		t.Fatal("expected an expiry")
	}
	if _, err := s.Put(ctx, PutParams{Story: "cellar", Slot: "k", Passage: "Top", Data: "[]", TTL: "soon"}); err == nil {
		t.Error("expected an invalid ttl to fail")
	}

	// Expired saves drop out of Get and List but stay in history.
	s.db.Exec(`UPDATE saves SET expires_at = '2000-01-01T00:00:00Z'`)
	if _, err := s.Get(ctx, GetParams{Story: "cellar", Slot: "k"}); err == nil {
		t.Error("expected an expired save to be hidden")
	}
	if list, _ := s.List(ctx, ListParams{}); len(list) != 0 {
		t.Errorf("expected 0 listed, got %d", len(list))
	}
	if hist, _ := s.Get(ctx, GetParams{Story: "cellar", Slot: "k", History: true}); len(hist) != 1 {
		t.Errorf("expected the expired save in history, got %d", len(hist))
	}
}

func TestParseTTL(t *testing.T) {
	for in, want := range map[string]string{"7d": "168h0m0s", "24h": "24h0m0s", "30m": "30m0s", "60s": "1m0s"} {
		d, err := parseTTL(in)
		if err != nil {
			t.Errorf("%s: %v", in, err)
			continue
		}
		if d.String() != want {
			t.Errorf("%s: expected %s, got %s", in, want, d)
		}
	}
	for _, in := range []string{"", "7", "d", "7w", "-1h"} {
		if _, err := parseTTL(in); err == nil {
			t.Errorf("%q: expected an error", in)
		}
	}
}

func TestDBPathCreation(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "sub", "dir", "test.db")
	s, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	s.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("expected db file to be created")
	}
}

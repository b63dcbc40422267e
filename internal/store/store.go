// Package store provides save-slot storage and the key-value mirror the
// timeline writes to, backed by SQLite.
package store

import (
	"context"

	"github.com/rcliao/passage/internal/model"
)

// PutParams holds parameters for saving a game.
type PutParams struct {
	Story   string
	Slot    string
	Passage string
	Turn    int
	Label   string
	Tags    []string
	Data    string
	TTL     string // e.g. "7d"; empty means the save never expires

	// Transcript is split into excerpts and indexed for search.
	Transcript string
}

// GetParams holds parameters for loading a save.
type GetParams struct {
	Story   string
	Slot    string
	History bool
	Version int // 0 means latest
}

// ListParams holds parameters for listing saves.
type ListParams struct {
	Story string
	Tags  []string
	Limit int
}

// RmParams holds parameters for deleting a save.
type RmParams struct {
	Story       string
	Slot        string
	AllVersions bool
	Hard        bool
}

// Store defines the save storage interface.
type Store interface {
	// Put stores a new version of a slot. Returns the created save.
	Put(ctx context.Context, p PutParams) (*model.Save, error)

	// Get retrieves a slot's latest save, a given version, or every version
	// with History=true.
	Get(ctx context.Context, p GetParams) ([]model.Save, error)

	// List lists the latest save of each slot.
	List(ctx context.Context, p ListParams) ([]model.Save, error)

	// Rm soft-deletes (or hard-deletes) a save.
	Rm(ctx context.Context, p RmParams) error

	Close() error
}

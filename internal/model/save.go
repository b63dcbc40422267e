// Package model defines the saved-game records.
package model

import "time"

// Save is one version of a save slot: a serialized timeline plus enough
// about it to list and search saves without decoding it.
type Save struct {
	ID         string     `json:"id"`
	Story      string     `json:"story"`
	Slot       string     `json:"slot"`
	Passage    string     `json:"passage"`
	Turn       int        `json:"turn"`
	Label      string     `json:"label,omitempty"`
	Tags       []string   `json:"tags,omitempty"`
	Data       string     `json:"data,omitempty"`
	Transcript string     `json:"transcript,omitempty"` // text on screen when saved
	Version    int        `json:"version"`
	Supersedes string     `json:"supersedes,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	DeletedAt  *time.Time `json:"deleted_at,omitempty"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`

	ExcerptCount int `json:"excerpt_count,omitempty"`
}

// AutosaveSlot is the slot the play loop writes after every turn.
const AutosaveSlot = "auto"

// Excerpt is a searchable piece of a save's transcript.
type Excerpt struct {
	ID        string `json:"id"`
	SaveID    string `json:"save_id"`
	Seq       int    `json:"seq"`
	Text      string `json:"text"`
	StartLine int    `json:"start_line"`
	EndLine   int    `json:"end_line"`
}

package store

import (
	"context"
	"slices"
	"unicode/utf8"
)

// RecapParams holds parameters for assembling a recap.
type RecapParams struct {
	Story  string
	Slot   string
	Budget int // max chars of transcript
}

// RecapTurn is one save's transcript within a recap.
type RecapTurn struct {
	Version    int    `json:"version"`
	Passage    string `json:"passage"`
	Turn       int    `json:"turn"`
	Transcript string `json:"transcript"`
	Excerpt    bool   `json:"excerpt,omitempty"`
}

// Recap is the story so far for a slot.
type Recap struct {
	Budget int         `json:"budget"`
	Used   int         `json:"used"`
	Turns  []RecapTurn `json:"turns"`
}

// Recap packs the transcripts of a slot's versions, newest first, into the
// budget and returns them oldest first. A transcript that only partly fits is
// cut from the front and marked as an excerpt.
func (s *SQLiteStore) Recap(ctx context.Context, p RecapParams) (*Recap, error) {
	budget := p.Budget
	if budget <= 0 {
		budget = 4000
	}

	saves, err := s.Get(ctx, GetParams{Story: p.Story, Slot: p.Slot, History: true})
	if err != nil {
		return nil, err
	}

	r := &Recap{Budget: budget, Turns: []RecapTurn{}}
	for _, m := range saves {
		if m.Transcript == "" {
			continue
		}
		t := RecapTurn{Version: m.Version, Passage: m.Passage, Turn: m.Turn, Transcript: m.Transcript}
		if r.Used+len(t.Transcript) > budget {
			remaining := budget - r.Used
			if remaining < 100 {
				break
			}
			cut := len(t.Transcript) - remaining + 3
			for cut < len(t.Transcript) && !utf8.RuneStart(t.Transcript[cut]) {
				cut++
			}
			t.Transcript = "..." + t.Transcript[cut:]
			t.Excerpt = true
		}
		r.Turns = append(r.Turns, t)
		r.Used += len(t.Transcript)
		if t.Excerpt {
			break
		}
	}
	slices.Reverse(r.Turns)
	return r, nil
}

// Package session ties a story runner to save slots, the key-value mirror
// and a log of timeline events. The play command and the HTTP server each
// drive sessions.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rcliao/passage/internal/excerpt"
	"github.com/rcliao/passage/internal/macros"
	"github.com/rcliao/passage/internal/model"
	"github.com/rcliao/passage/internal/state"
	"github.com/rcliao/passage/internal/store"
	"github.com/rcliao/passage/internal/story"
	"github.com/rcliao/passage/internal/value"
)

const defaultMaxEvents = 500

// Event is one timeline hook firing.
type Event struct {
	Seq     int       `json:"seq"`
	Kind    string    `json:"kind"` // set | delete | forward | back | load
	Name    string    `json:"name,omitempty"`
	Value   string    `json:"value,omitempty"`
	Passage string    `json:"passage,omitempty"`
	At      time.Time `json:"at"`
}

// Options configures a Session.
type Options struct {
	// ID names the session. A new uuid is used when empty.
	ID string
	// Store holds save slots and the mirror. Nil disables both.
	Store *store.SQLiteStore
	// Key names the story in save slots.
	Key  string
	Seed string
	// MirrorKey is the kv key the timeline is mirrored under. Empty disables
	// mirroring.
	MirrorKey    string
	MaxRedirects int
	SaveTTL      string
	MaxEvents    int
	Logger       *slog.Logger
}

// Session is one playthrough. It is safe for concurrent use.
type Session struct {
	ID string

	mu         sync.Mutex
	key        string
	store      *store.SQLiteStore
	runner     *story.Runner
	ttl        string
	log        *slog.Logger
	transcript strings.Builder
	last       *story.Output
	origin     *model.Save
	events     []Event
	seq        int
	maxEvents  int
}

// New starts a session at the story's start passage. Nothing is rendered
// until Show.
func New(st *story.Story, opts Options) *Session {
	s := &Session{
		ID:        opts.ID,
		key:       opts.Key,
		store:     opts.Store,
		ttl:       opts.SaveTTL,
		log:       opts.Logger,
		maxEvents: opts.MaxEvents,
	}
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	if s.key == "" {
		s.key = st.Title
	}
	if s.maxEvents <= 0 {
		s.maxEvents = defaultMaxEvents
	}
	s.log = s.log.With("session", s.ID, "story", s.key)

	so := state.Options{
		Story:  st,
		Macros: macros.New(),
		Seed:   opts.Seed,
		Logger: s.log,
		Hooks: state.Hooks{
			OnSet: func(name string, v value.Value) {
				s.event(Event{Kind: "set", Name: name, Value: value.Source(v)})
			},
			OnDelete:  func(name string) { s.event(Event{Kind: "delete", Name: name}) },
			OnForward: func(p string) { s.event(Event{Kind: "forward", Passage: p}) },
			OnBack:    func(p string) { s.event(Event{Kind: "back", Passage: p}) },
			OnLoad:    func(p string) { s.event(Event{Kind: "load", Passage: p}) },
		},
	}
	if opts.Store != nil && opts.MirrorKey != "" {
		so.Persist = opts.Store.KV()
		so.PersistKey = opts.MirrorKey
	}
	s.runner = story.NewRunner(st, state.New(st.Start, so), story.RunnerOptions{
		Logger:       s.log,
		MaxRedirects: opts.MaxRedirects,
	})
	return s
}

// Key returns the name the session's saves are filed under.
func (s *Session) Key() string { return s.key }

// State returns the session's timeline. Callers must not use it while
// another goroutine drives the session.
func (s *Session) State() *state.State { return s.runner.State() }

// Inspect calls fn with the timeline while holding the session lock.
func (s *Session) Inspect(fn func(*state.State)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.runner.State())
}

// Blocked reports whether the session is waiting on a prompt answer.
func (s *Session) Blocked() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runner.Blocked()
}

// Last returns the most recent output, or nil before the first render.
func (s *Session) Last() *story.Output {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// Recover restores the timeline from the mirror and replays the present
// passage. It reports false when nothing was mirrored.
func (s *Session) Recover() (*story.Output, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ok, err := s.runner.State().Recover()
	if err != nil || !ok {
		return nil, ok, err
	}
	out, err := s.record(s.runner.Replay())
	return out, true, err
}

func (s *Session) Show() (*story.Output, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.record(s.runner.Show())
}

func (s *Session) Go(passage string) (*story.Output, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.record(s.runner.Go(passage))
}

func (s *Session) Undo(n int) (*story.Output, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.record(s.runner.Undo(n))
}

func (s *Session) Redo(n int) (*story.Output, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.record(s.runner.Redo(n))
}

func (s *Session) Resume(answer value.Value) (*story.Output, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.record(s.runner.Resume(answer))
}

// Eval evaluates src against the present turn.
func (s *Session) Eval(src string) value.Value {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runner.Eval(src)
}

// Save writes the timeline to a slot, with the text shown since the last
// save as its transcript. A save made after loading another is linked to
// it.
func (s *Session) Save(ctx context.Context, slot, label string, tags []string) (*model.Save, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.store == nil {
		return nil, fmt.Errorf("no save store")
	}
	if s.runner.Blocked() {
		return nil, fmt.Errorf("can't save while a prompt is waiting")
	}
	data, err := s.runner.State().Serialize()
	if err != nil {
		return nil, fmt.Errorf("serialize: %w", err)
	}
	transcript := s.transcript.String()
	if transcript == "" && s.last != nil {
		transcript = entry(s.last)
	}
	st := s.runner.State()
	save, err := s.store.Put(ctx, store.PutParams{
		Story:      s.key,
		Slot:       slot,
		Passage:    st.Passage(),
		Turn:       st.Turns(),
		Label:      label,
		Tags:       tags,
		Data:       string(data),
		Transcript: strings.TrimSpace(transcript),
		TTL:        s.ttl,
	})
	if err != nil {
		return nil, err
	}
	s.transcript.Reset()

	if o := s.origin; o != nil {
		rel := store.RelBranches
		if o.Slot == slot {
			rel = store.RelContinues
		}
		if _, err := s.store.LinkIDs(ctx, save.ID, o.ID, rel, false); err != nil {
			s.log.Warn("link save", "from", save.ID, "to", o.ID, "error", err)
		}
		s.origin = nil
	}
	s.log.Info("saved", "slot", slot, "version", save.Version, "turn", save.Turn)
	return save, nil
}

// Load replaces the timeline with a slot's save (version 0 is the latest)
// and replays the present passage. The timeline is untouched on error.
func (s *Session) Load(ctx context.Context, slot string, version int) (*story.Output, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.store == nil {
		return nil, fmt.Errorf("no save store")
	}
	saves, err := s.store.Get(ctx, store.GetParams{Story: s.key, Slot: slot, Version: version})
	if err != nil {
		return nil, err
	}
	save := saves[0]
	if err := s.runner.State().Deserialize([]byte(save.Data)); err != nil {
		return nil, fmt.Errorf("load %s v%d: %w", slot, save.Version, err)
	}
	s.origin = &save
	s.transcript.Reset()
	return s.record(s.runner.Replay())
}

// Events returns the events after seq, oldest first.
func (s *Session) Events(after int) []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Event
	for _, e := range s.events {
		if e.Seq > after {
			out = append(out, e)
		}
	}
	return out
}

func (s *Session) record(out *story.Output, err error) (*story.Output, error) {
	if err != nil {
		return nil, err
	}
	s.last = out
	if out.Prompt == nil {
		s.transcript.WriteString(entry(out))
	}
	return out, nil
}

// event is called from timeline hooks, which only run while mu is held.
func (s *Session) event(e Event) {
	s.seq++
	e.Seq = s.seq
	e.At = time.Now().UTC()
	s.events = append(s.events, e)
	if over := len(s.events) - s.maxEvents; over > 0 {
		s.events = append(s.events[:0], s.events[over:]...)
	}
}

func entry(out *story.Output) string {
	return excerpt.Header(out.Passage, out.Turn) + "\n" + out.Text + "\n\n"
}

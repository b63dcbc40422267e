// Package state keeps the story timeline: the turns played so far, the
// variables each one changed, and enough of the generator state to replay
// any of them. It also saves and restores the whole timeline as JSON.
package state

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/rcliao/passage/internal/eval"
	"github.com/rcliao/passage/internal/rng"
	"github.com/rcliao/passage/internal/value"
	"github.com/rcliao/passage/internal/varref"
)

var (
	// ErrMalformed means save data could not be decoded.
	ErrMalformed = errors.New("malformed save data")
	// ErrMissingPassage means save data names a passage the story lacks.
	ErrMissingPassage = errors.New("save data refers to a missing passage")
	// ErrUnreconstructable means a saved value or ref could not be rebuilt.
	ErrUnreconstructable = errors.New("saved value can't be rebuilt")
	// ErrUnknownPassage is returned when asked to show a passage that doesn't exist.
	ErrUnknownPassage = errors.New("no such passage")
)

// Story is what the timeline needs from the story: which passages exist,
// and their source text for rebuilding span refs.
type Story interface {
	Has(name string) bool
	Source(name string) (string, bool)
}

// Hooks are called after the corresponding change. Any may be nil.
type Hooks struct {
	OnSet     func(name string, v value.Value)
	OnDelete  func(name string)
	OnForward func(passage string)
	OnBack    func(passage string)
	OnLoad    func(passage string)
}

// Options configures a State.
type Options struct {
	Story  Story
	Macros eval.Dispatcher
	// Seed seeds the generator. A fresh ULID is used when empty.
	Seed string
	// Persist, when set, receives the serialized timeline after every change
	// under PersistKey.
	Persist    PersistentStore
	PersistKey string
	Hooks      Hooks
	Logger     *slog.Logger
}

type visit struct {
	name string
	turn int
}

// State is the story timeline. Moments 0..recent are the past; the present
// sits logically at recent+1. After a rewind the moments beyond the present
// are the future that FastForward returns to.
//
// A State is not safe for concurrent use.
type State struct {
	story    Story
	macros   eval.Dispatcher
	timeline []*Moment
	recent   int
	present  *Moment

	globals *varref.Store
	rng     *rng.Generator

	// history holds the visits of moments 0..recent.
	history []visit
	// encoded caches the JSON of moments 0..len(encoded)-1.
	encoded [][]byte

	persist    PersistentStore
	persistKey string
	hooks      Hooks
	log        *slog.Logger
}

// New starts a timeline at passage start.
func New(start string, opts Options) *State {
	seed := opts.Seed
	if seed == "" {
		seed = ulid.Make().String()
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	s := &State{
		story:      opts.Story,
		macros:     opts.Macros,
		recent:     -1,
		rng:        rng.New(seed),
		persist:    opts.Persist,
		persistKey: opts.PersistKey,
		hooks:      opts.Hooks,
		log:        log,
	}
	s.present = newMoment(start, seed, 0)
	s.globals = varref.NewStore(varref.Global)
	s.globals.OnSet = s.recordSet
	s.globals.OnDelete = s.recordDelete
	s.globals.OnDefineType = s.recordType
	return s
}

// Globals is the live story-variable store. Writes through it are recorded
// in the present moment.
func (s *State) Globals() *varref.Store { return s.globals }

// RNG is the story's generator.
func (s *State) RNG() *rng.Generator { return s.rng }

// Present returns the moment being played. Callers must not modify it.
func (s *State) Present() *Moment { return s.present }

// Passage is the passage being shown.
func (s *State) Passage() string { return s.present.Passage }

// Recent is the index of the last moment in the past, -1 on the first turn.
func (s *State) Recent() int { return s.recent }

// CanRewind reports whether there is a past turn to go back to.
func (s *State) CanRewind() bool { return s.recent >= 0 }

// CanFastForward reports whether a rewound turn can be redone.
func (s *State) CanFastForward() bool { return s.recent+2 < len(s.timeline) }

// Turns counts turns taken, the present one included.
func (s *State) Turns() int {
	return s.turnOf(s.recent+1) + s.present.MockTurns
}

// turnOf is the turn number of the moment at index i, where i == recent+1
// means the present.
func (s *State) turnOf(i int) int {
	t := i + 1
	for j := 0; j < i && j <= s.recent; j++ {
		t += s.timeline[j].Turns + s.timeline[j].MockTurns
	}
	return t + s.momentAt(i).Turns
}

func (s *State) momentAt(i int) *Moment {
	if i == s.recent+1 {
		return s.present
	}
	return s.timeline[i]
}

// Variables returns a copy of the live story variables.
func (s *State) Variables() map[string]value.Value { return s.globals.Snapshot() }

// Play ends the present turn and starts a new one at passage name. Any
// future left by a rewind is discarded.
func (s *State) Play(name string) error {
	if s.story != nil && !s.story.Has(name) {
		return fmt.Errorf("play %q: %w", name, ErrUnknownPassage)
	}
	from := s.present.Passage
	at := s.recent + 1
	s.timeline = append(s.timeline[:at], s.present)
	s.truncateEncoded(at)
	s.recent = at
	s.history = append(s.history, s.visitsOf(at)...)

	seed, iter := s.rng.Snapshot()
	s.present = newMoment(name, seed, iter)
	s.log.Debug("turn played", "from", from, "to", name, "turn", s.Turns())
	if s.hooks.OnForward != nil {
		s.hooks.OnForward(name)
	}
	s.mirror()
	return nil
}

// Redirect changes the present passage without starting a new turn.
func (s *State) Redirect(name string) error {
	if s.story != nil && !s.story.Has(name) {
		return fmt.Errorf("redirect to %q: %w", name, ErrUnknownPassage)
	}
	s.present.Visits = append(s.present.Visits, s.present.Passage)
	s.present.Passage = name
	s.mirror()
	return nil
}

// Rewind goes back n turns, keeping the turns undone as the future. It
// reports false, changing nothing, when fewer than n turns are in the past.
func (s *State) Rewind(n int) bool {
	cur := s.recent + 1
	if n < 1 || cur-n < 0 {
		return false
	}
	s.stash(cur)
	s.restore(cur - n)
	if s.hooks.OnBack != nil {
		s.hooks.OnBack(s.present.Passage)
	}
	s.mirror()
	return true
}

// FastForward redoes n rewound turns.
func (s *State) FastForward(n int) bool {
	cur := s.recent + 1
	if n < 1 || cur+n >= len(s.timeline) {
		return false
	}
	s.stash(cur)
	s.restore(cur + n)
	if s.hooks.OnForward != nil {
		s.hooks.OnForward(s.present.Passage)
	}
	s.mirror()
	return true
}

// stash stores the present into its slot so a later FastForward or Rewind
// can come back to it.
func (s *State) stash(cur int) {
	if cur == len(s.timeline) {
		s.timeline = append(s.timeline, s.present)
	} else {
		s.timeline[cur] = s.present
	}
	s.truncateEncoded(cur)
}

// restore makes a copy of the moment at index i the present.
func (s *State) restore(i int) {
	s.present = s.timeline[i].clone()
	s.recent = i - 1
	s.reload()
	s.log.Debug("timeline moved", "passage", s.present.Passage, "turn", s.Turns())
}

// reload rebuilds the live variables, visit history and generator from the
// timeline and present.
func (s *State) reload() {
	vars, types := fold(s.timeline[:s.recent+1])
	apply(vars, types, s.present)
	s.globals.Load(vars, types)
	s.rebuildHistory()
	s.rng.Restore(s.present.Seed, s.present.SeedIter)
}

// ForgetUndos folds the first n past turns into the turn after them so they
// can no longer be undone. A negative n keeps only the -n most recent past
// turns undoable. The present is never erased. It reports whether any turn
// was folded.
func (s *State) ForgetUndos(n int) bool {
	past := s.recent + 1
	k := n
	if n < 0 {
		k = past + n
	}
	k = min(k, past)
	if k <= 0 {
		return false
	}
	target := s.momentAt(k)
	merged := target.clone()
	vars, types := fold(s.timeline[:k])
	apply(vars, types, target)
	merged.Variables = map[string]value.Value{}
	for name, v := range vars {
		merged.Variables[name] = v
	}
	merged.TypeDefs = types

	merged.Refs = map[string]*value.Ref{}
	for name := range merged.Variables {
		if ref := s.latestRef(name, k); ref != nil && ref.Kind() != value.RefVia {
			merged.Refs[name] = ref
		}
	}

	boundary := s.boundary()
	var folded []string
	for _, v := range s.history {
		if v.turn >= s.turnOf(k) {
			break
		}
		if v.turn >= boundary {
			folded = append(folded, v.name)
		}
	}
	merged.MockVisits = append(folded, target.MockVisits...)
	for j := 0; j < k; j++ {
		m := s.timeline[j]
		merged.Turns += 1 + m.Turns + m.MockTurns
		merged.ForgetVisits = max(merged.ForgetVisits, m.ForgetVisits)
	}

	if k == past {
		s.present = merged
		s.timeline = s.timeline[k:]
	} else {
		s.timeline[k] = merged
		s.timeline = s.timeline[k:]
	}
	s.recent -= k
	s.encoded = nil
	s.rebuildHistory()
	s.log.Debug("undos forgotten", "turns", k)
	s.mirror()
	return true
}

// latestRef finds the ref saved with the value name has at moment k, looking
// back through the moments that produced it.
func (s *State) latestRef(name string, k int) *value.Ref {
	for j := k; j >= 0; j-- {
		m := s.momentAt(j)
		if _, ok := m.Variables[name]; ok {
			return m.Refs[name]
		}
	}
	return nil
}

// ForgetVisits makes history queries ignore turns before a boundary. A
// positive n forgets n more turns; a negative n forgets all but the -n most
// recent. The boundary only ever rises and is undone with the turn.
func (s *State) ForgetVisits(n int) {
	cur := s.turnOf(s.recent + 1)
	old := s.boundary()
	b := min(old+n, cur)
	if n < 0 {
		b = cur + n + 1
	}
	if b <= old {
		return
	}
	s.present.ForgetVisits = b
	s.mirror()
}

// MockTurns adds n pretend turns to the turn count.
func (s *State) MockTurns(n int) {
	s.present.MockTurns += n
	s.mirror()
}

// MockVisits adds pretend visits to the history.
func (s *State) MockVisits(names ...string) {
	s.present.MockVisits = append(s.present.MockVisits, names...)
	s.mirror()
}

// SetAnswers records the prompt answers the present passage's render used.
func (s *State) SetAnswers(vs []value.Value) {
	s.present.Answers = slices.Clone(vs)
}

// Answers returns the prompt answers recorded for the present passage.
func (s *State) Answers() []value.Value {
	return slices.Clone(s.present.Answers)
}

// Reseed restarts the generator from seed.
func (s *State) Reseed(seed string) {
	s.rng.Restore(seed, 0)
}

// Env returns an evaluation environment bound to this timeline for the
// present passage.
func (s *State) Env() *eval.Env {
	return &eval.Env{
		Globals:  s.globals,
		Temps:    varref.NewStore(varref.Temp),
		Macros:   s.macros,
		RNG:      s.rng,
		Timeline: s,
		Passage:  s.present.Passage,
		It:       value.Number(0),
		Clock:    time.Now,
		Started:  time.Now(),
		Logger:   s.log,
	}
}

func (s *State) recordSet(name string, v value.Value, ref *value.Ref) {
	s.present.Variables[name] = v
	switch {
	case ref != nil:
		s.present.Refs[name] = ref
	default:
		delete(s.present.Refs, name)
		if via, ok := s.diff(name, v); ok {
			s.present.Refs[name] = &value.Ref{Via: via}
		}
	}
	if s.hooks.OnSet != nil {
		s.hooks.OnSet(name, v)
	}
}

func (s *State) recordDelete(name string) {
	s.present.Variables[name] = nil
	delete(s.present.Refs, name)
	if s.hooks.OnDelete != nil {
		s.hooks.OnDelete(name)
	}
}

func (s *State) recordType(name string, t value.Datatype) {
	s.present.TypeDefs[name] = t
}

// prior returns name's value at the end of the most recent past turn.
func (s *State) prior(name string) (value.Value, bool) {
	for j := s.recent; j >= 0; j-- {
		if v, ok := s.timeline[j].Variables[name]; ok {
			return v, v != nil
		}
	}
	return nil, false
}

// Mark is a checkpoint of the present turn.
type Mark struct {
	present *Moment
	seed    string
	iter    int
}

// Mark captures the present so a render that blocked on a prompt can be run
// again from the same starting point.
func (s *State) Mark() Mark {
	seed, iter := s.rng.Snapshot()
	return Mark{present: s.present.clone(), seed: seed, iter: iter}
}

// Reset returns the present to a checkpoint taken with Mark during the same
// turn.
func (s *State) Reset(m Mark) {
	s.present = m.present.clone()
	vars, types := fold(s.timeline[:s.recent+1])
	apply(vars, types, s.present)
	s.globals.Load(vars, types)
	s.rng.Restore(m.seed, m.iter)
}

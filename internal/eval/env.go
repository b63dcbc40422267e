package eval

import (
	"log/slog"
	"time"

	"github.com/rcliao/passage/internal/rng"
	"github.com/rcliao/passage/internal/value"
	"github.com/rcliao/passage/internal/varref"
)

// Dispatcher runs macro calls. Names are matched case-, dash- and
// underscore-insensitively by the implementation.
type Dispatcher interface {
	Call(env *Env, name string, args []value.Value) value.Value
	Has(name string) bool
}

// Timeline is the read side of the story state that expressions can query.
type Timeline interface {
	Passage() string
	History() []string
	Visits(name string) int
	Turns() int
}

// Prompt describes what a suspended evaluation is waiting for.
type Prompt struct {
	Message string
	Default value.Value
}

// Frame records a suspension. The runner inspects it after each top-level
// evaluation and re-enters with the host's answer queued in Env.Resolved.
type Frame struct {
	Blocked bool
	Prompt  *Prompt
}

// Env is the engine context threaded through evaluation. Nothing in this
// package keeps state outside it.
type Env struct {
	Globals  *varref.Store
	Temps    *varref.Store
	Macros   Dispatcher
	RNG      *rng.Generator
	Timeline Timeline

	// Passage and Source identify the text the evaluated tokens were lexed
	// from. Value refs can only point at spans of a named passage.
	Passage string
	Source  string

	// It is what the `it` keyword reads.
	It value.Value

	// Resolved holds host answers to blocking prompts, consumed in order.
	Resolved []value.Value
	Frame    Frame

	// Replay suppresses assignments and navigation while a passage is
	// re-rendered after undo or load.
	Replay bool

	Clock   func() time.Time
	Started time.Time
	Logger  *slog.Logger

	tracking []*tracker
}

// NewEnv returns an Env with fresh stores and a generator seeded from seed.
func NewEnv(macros Dispatcher, seed string) *Env {
	return &Env{
		Globals: varref.NewStore(varref.Global),
		Temps:   varref.NewStore(varref.Temp),
		Macros:  macros,
		RNG:     rng.New(seed),
		Clock:   time.Now,
		Started: time.Now(),
		Logger:  slog.Default(),
		It:      value.Number(0),
	}
}

func (e *Env) logger() *slog.Logger {
	if e.Logger == nil {
		return slog.Default()
	}
	return e.Logger
}

// tracker collects what an assignment's source expression depended on.
type tracker struct {
	impure  bool
	globals bool
	temps   map[string]value.Value
	blocked []value.Value
}

func (e *Env) beginTrack() *tracker {
	t := &tracker{temps: map[string]value.Value{}}
	e.tracking = append(e.tracking, t)
	return t
}

func (e *Env) endTrack(t *tracker) {
	for i := len(e.tracking) - 1; i >= 0; i-- {
		if e.tracking[i] == t {
			e.tracking = append(e.tracking[:i], e.tracking[i+1:]...)
			return
		}
	}
	panic(Impossible{Where: "endTrack", What: "tracker was not active"})
}

// MarkImpure records that the value being computed depends on state that
// can't be re-derived later. Macros reading time or history call it.
func (e *Env) MarkImpure() {
	for _, t := range e.tracking {
		t.impure = true
	}
}

func (e *Env) noteRead(store *varref.Store, name string) {
	for _, t := range e.tracking {
		if store == e.Temps {
			if v, ok := store.Lookup(name); ok {
				t.temps[name] = v
			}
			continue
		}
		t.globals = true
	}
}

// Block suspends evaluation on a prompt, or returns the host's queued answer.
// A replay never suspends: it uses the recorded answer, or the default once
// those run out.
func (e *Env) Block(p Prompt) value.Value {
	if len(e.Resolved) > 0 {
		v := e.Resolved[0]
		e.Resolved = e.Resolved[1:]
		for _, t := range e.tracking {
			t.blocked = append(t.blocked, v)
		}
		return v
	}
	if e.Replay {
		return p.Default
	}
	e.logger().Debug("evaluation blocked", "passage", e.Passage, "prompt", p.Message)
	e.Frame = Frame{Blocked: true, Prompt: &p}
	return value.Errorf(value.Blocked, "Waiting for an answer to %q.", p.Message)
}

// WallClock reads the clock.
func (e *Env) WallClock() time.Time {
	e.MarkImpure()
	if e.Clock == nil {
		return time.Now()
	}
	return e.Clock()
}

// Now returns milliseconds since the passage started.
func (e *Env) Now() value.Value {
	return value.Number(e.WallClock().Sub(e.Started).Milliseconds())
}

// History lists passage names visited before this turn, oldest first.
func (e *Env) History() []string {
	e.MarkImpure()
	if e.Timeline == nil {
		return nil
	}
	return e.Timeline.History()
}

// Visits counts visits to name, including the current one.
func (e *Env) Visits(name string) int {
	e.MarkImpure()
	if e.Timeline == nil {
		if name == e.Passage {
			return 1
		}
		return 0
	}
	return e.Timeline.Visits(name)
}

// Turns counts turns taken, the first one included.
func (e *Env) Turns() int {
	e.MarkImpure()
	if e.Timeline == nil {
		return 1
	}
	return e.Timeline.Turns()
}

// Apply calls a lambda with one argument. The parameter is bound as a temp
// variable for the duration of the call, and `it` reads the argument.
func (e *Env) Apply(l *value.Lambda, arg value.Value) value.Value {
	if l.Clause == "each" {
		return arg
	}
	prev, had := e.Temps.Lookup(l.Param)
	prevIt := e.It
	if err := e.Temps.Set(l.Param, arg, nil); err != nil {
		return err
	}
	e.It = arg
	defer func() {
		e.It = prevIt
		if had {
			e.Temps.Set(l.Param, prev, nil)
		} else {
			e.Temps.Delete(l.Param)
		}
	}()

	v := Evaluate(e, l.Body, Mode{}).Value
	if l.Clause == "via" {
		return v
	}
	b, err := value.Truthy(v, "a '"+l.Clause+"' lambda")
	if err != nil {
		return err
	}
	return value.Boolean(b)
}

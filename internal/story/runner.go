package story

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/rcliao/passage/internal/eval"
	"github.com/rcliao/passage/internal/lexer"
	"github.com/rcliao/passage/internal/state"
	"github.com/rcliao/passage/internal/token"
	"github.com/rcliao/passage/internal/value"
)

// ErrNotBlocked is returned by Resume when no prompt is waiting.
var ErrNotBlocked = errors.New("no prompt is waiting for an answer")

// Output is what rendering a turn produced.
type Output struct {
	Passage string `json:"passage"`
	Text    string `json:"text"`
	Turn    int    `json:"turn"`
	// Prompt is set when rendering stopped to wait for an answer.
	Prompt  *eval.Prompt `json:"-"`
	Errors  []string     `json:"errors,omitempty"`
	CanUndo bool         `json:"canUndo"`
	CanRedo bool         `json:"canRedo"`
}

// RunnerOptions configures a Runner.
type RunnerOptions struct {
	Logger *slog.Logger
	// MaxRedirects bounds how many (goto:)s one turn may chain through.
	MaxRedirects int
	Clock        func() time.Time
}

// Runner renders passages and carries out the commands they run.
type Runner struct {
	story        *Story
	state        *state.State
	log          *slog.Logger
	maxRedirects int
	clock        func() time.Time
	pending      *suspension
}

// suspension is a render waiting on a prompt. Resuming rewinds the present
// to mark and renders again with every answer given so far.
type suspension struct {
	mark    state.Mark
	answers []value.Value
	replay  bool
	prefix  string
	errs    []string
}

func NewRunner(st *Story, s *state.State, opts RunnerOptions) *Runner {
	r := &Runner{
		story:        st,
		state:        s,
		log:          opts.Logger,
		maxRedirects: opts.MaxRedirects,
		clock:        opts.Clock,
	}
	if r.log == nil {
		r.log = slog.Default()
	}
	if r.maxRedirects <= 0 {
		r.maxRedirects = 50
	}
	if r.clock == nil {
		r.clock = time.Now
	}
	return r
}

func (r *Runner) State() *state.State { return r.state }
func (r *Runner) Story() *Story       { return r.story }

// Blocked reports whether rendering is waiting on a prompt.
func (r *Runner) Blocked() bool { return r.pending != nil }

// Show renders the present passage and follows any navigation it runs.
func (r *Runner) Show() (*Output, error) {
	return r.run(false, nil, "", nil)
}

// Replay renders the present passage without carrying out assignments or
// navigation, as after loading a save.
func (r *Runner) Replay() (*Output, error) {
	return r.run(true, nil, "", nil)
}

// Go plays passage name as a new turn. A waiting prompt is dropped along
// with the rest of its render.
func (r *Runner) Go(name string) (*Output, error) {
	if err := r.state.Play(name); err != nil {
		return nil, err
	}
	r.pending = nil
	return r.Show()
}

// Undo rewinds n turns and replays the passage returned to.
func (r *Runner) Undo(n int) (*Output, error) {
	if !r.state.Rewind(n) {
		return nil, fmt.Errorf("can't undo %d turn(s) from turn %d", n, r.state.Turns())
	}
	return r.Replay()
}

// Redo fast-forwards n undone turns and replays the passage reached.
func (r *Runner) Redo(n int) (*Output, error) {
	if !r.state.FastForward(n) {
		return nil, fmt.Errorf("can't redo %d turn(s)", n)
	}
	return r.Replay()
}

// Resume answers the waiting prompt and renders the passage again.
func (r *Runner) Resume(answer value.Value) (*Output, error) {
	p := r.pending
	if p == nil {
		return nil, ErrNotBlocked
	}
	r.state.Reset(p.mark)
	answers := append(append([]value.Value(nil), p.answers...), answer)
	return r.run(p.replay, answers, p.prefix, p.errs)
}

// Eval evaluates an expression against the present turn, outside of any
// passage. Assignments it makes are recorded in the present turn.
func (r *Runner) Eval(src string) value.Value {
	env := r.state.Env()
	env.Clock = r.clock
	env.Source = src
	env.Passage = ""
	v := eval.Expression(env, src)
	if env.Frame.Blocked {
		return value.Errorf(value.Blocked, "Prompts can't be answered outside a passage.")
	}
	return v
}

func (r *Runner) run(replay bool, answers []value.Value, prefix string, errs []string) (*Output, error) {
	text := prefix
	for hops := 0; ; hops++ {
		name := r.state.Passage()
		src, ok := r.story.Source(name)
		if !ok {
			return nil, fmt.Errorf("render %q: %w", name, state.ErrUnknownPassage)
		}
		mark := r.state.Mark()
		env := r.state.Env()
		env.Source = src
		env.Replay = replay
		if replay && answers == nil {
			answers = r.state.Answers()
		}
		env.Resolved = answers
		env.Clock = r.clock
		env.Started = r.clock()

		rd := &render{state: r.state, env: env}
		rd.tokens(lexer.Lex(src))
		errs = append(errs, rd.errs...)
		out := &Output{Passage: name, Turn: r.state.Turns(), Errors: errs}

		if env.Frame.Blocked {
			r.pending = &suspension{mark: mark, answers: answers, replay: replay, prefix: text, errs: errs[:len(errs)-len(rd.errs)]}
			out.Text = text + rd.out.String()
			out.Prompt = env.Frame.Prompt
			r.log.Debug("render suspended", "passage", name, "prompt", env.Frame.Prompt.Message)
			return r.finish(out), nil
		}
		r.pending = nil
		text += rd.out.String()
		if !replay {
			r.state.SetAnswers(answers)
		}
		answers = nil

		if replay || rd.nav.kind == navNone {
			out.Text = text
			return r.finish(out), nil
		}
		if hops >= r.maxRedirects {
			msg := fmt.Sprintf("Passages went to each other more than %d times in one turn.", r.maxRedirects)
			out.Text = text + value.Print(value.Errorf(value.OperationError, "%s", msg))
			out.Errors = append(errs, msg)
			return r.finish(out), nil
		}

		var err error
		switch rd.nav.kind {
		case navPlay:
			err = r.state.Play(rd.nav.target)
		case navRedirect:
			err = r.state.Redirect(rd.nav.target)
		case navUndo:
			if !r.state.Rewind(rd.nav.n) {
				err = fmt.Errorf("there are fewer than %d turns to undo", rd.nav.n)
			}
			replay = true
		case navRedo:
			if !r.state.FastForward(rd.nav.n) {
				err = fmt.Errorf("there are fewer than %d turns to redo", rd.nav.n)
			}
			replay = true
		}
		if err != nil {
			out.Text = text + value.Print(value.Errorf(value.OperationError, "%s", err))
			out.Errors = append(errs, err.Error())
			return r.finish(out), nil
		}
		text = ""
	}
}

func (r *Runner) finish(out *Output) *Output {
	out.Turn = r.state.Turns()
	out.Passage = r.state.Passage()
	out.CanUndo = r.state.CanRewind()
	out.CanRedo = r.state.CanFastForward()
	return out
}

type navKind int

const (
	navNone navKind = iota
	navPlay
	navRedirect
	navUndo
	navRedo
)

type navigation struct {
	kind   navKind
	target string
	n      int
}

// render walks one passage's tokens, writing text and collecting the
// navigation that ends it.
type render struct {
	state *state.State
	env   *eval.Env
	out   strings.Builder
	errs  []string
	nav   navigation
	// shown records whether any hook in the current if/else chain was shown.
	shown   bool
	inChain bool
}

// tokens renders toks, returning false once rendering must stop.
func (rd *render) tokens(toks []token.Token) bool {
	for _, t := range toks {
		switch t.Type {
		case token.Text:
			rd.out.WriteString(t.Text)
			continue
		case token.Hook:
			if !rd.tokens(t.Children) {
				return false
			}
			continue
		}
		v := eval.Evaluate(rd.env, []token.Token{t}, eval.Mode{}).Value
		if rd.env.Frame.Blocked {
			return false
		}
		if !rd.value(v, t.Hook) {
			return false
		}
	}
	return true
}

func (rd *render) value(v value.Value, hook *token.Token) bool {
	switch v := v.(type) {
	case *value.Error:
		rd.errs = append(rd.errs, v.Message)
		rd.out.WriteString(value.Print(v))
		return true
	case *value.Command:
		if v.Changer {
			return rd.changer(v, hook)
		}
		if !v.Partial {
			return rd.command(v)
		}
	}
	rd.out.WriteString(value.Print(v))
	if hook != nil {
		return rd.tokens(hook.Children)
	}
	return true
}

func (rd *render) changer(c *value.Command, hook *token.Token) bool {
	if hook == nil {
		rd.value(value.Errorf(value.SyntaxError, "(%s:) needs a hook after it, like (%s: ...)[text].", c.Name, c.Name), nil)
		return true
	}
	var show bool
	switch c.Name {
	case "if", "unless":
		show = c.Args[0] == value.Boolean(c.Name == "if")
		rd.inChain, rd.shown = true, show
	case "else-if", "else":
		if !rd.inChain {
			rd.value(value.Errorf(value.SyntaxError, "There's nothing before this (%s:) to check.", c.Name), nil)
			return true
		}
		show = !rd.shown && (c.Name == "else" || c.Args[0] == value.Boolean(true))
		rd.shown = rd.shown || show
		if c.Name == "else" {
			rd.inChain = false
		}
	}
	if !show {
		return true
	}
	return rd.tokens(hook.Children)
}

func (rd *render) command(c *value.Command) bool {
	count := func() int {
		n, _ := c.Args[0].(value.Number)
		return int(n)
	}
	target := func() string {
		s, _ := c.Args[0].(value.String)
		return string(s)
	}
	replay := rd.env.Replay
	switch c.Name {
	case "goto":
		rd.nav = navigation{kind: navPlay, target: target()}
		return false
	case "redirect":
		rd.nav = navigation{kind: navRedirect, target: target()}
		return false
	case "undo":
		rd.nav = navigation{kind: navUndo, n: count()}
		return false
	case "redo":
		rd.nav = navigation{kind: navRedo, n: count()}
		return false
	case "forget-undos":
		if !replay {
			rd.state.ForgetUndos(count())
		}
	case "forget-visits":
		if !replay {
			rd.state.ForgetVisits(count())
		}
	case "mock-turns":
		if !replay {
			rd.state.MockTurns(count())
		}
	case "mock-visits":
		if !replay {
			names := make([]string, len(c.Args))
			for i, a := range c.Args {
				s, _ := a.(value.String)
				names[i] = string(s)
			}
			rd.state.MockVisits(names...)
		}
	case "seed":
		rd.state.Reseed(target())
	default:
		rd.out.WriteString(value.Print(c))
	}
	return true
}

// Package eval evaluates token trees against an Env.
//
// Evaluation picks the loosest-binding operator in a flat token run, splits
// around it, and recurses. Errors are values: a *value.Error produced
// anywhere poisons every expression that consumes it, and is what Evaluate
// hands back. Assignments (`$a to 1`, `1 into $a`) evaluate to *Assignment
// values which the assignment macros carry out.
package eval

import (
	"fmt"
	"strconv"

	"github.com/rcliao/passage/internal/lexer"
	"github.com/rcliao/passage/internal/token"
	"github.com/rcliao/passage/internal/value"
	"github.com/rcliao/passage/internal/varref"
)

// Mode selects how the outermost expression is returned.
type Mode struct {
	// Reference returns an addressable reference instead of reading it.
	Reference bool
	// Typed permits `num-type $x` style type signatures.
	Typed bool
}

// Result is the outcome of Evaluate. Value is always set; Ref is set in
// reference mode when the expression addresses a place.
type Result struct {
	Value value.Value
	Ref   *varref.Reference
}

// Impossible is panicked when the evaluator reaches a state no input should
// produce. It indicates an engine defect.
type Impossible struct {
	Where string
	What  string
}

func (i Impossible) Error() string {
	return fmt.Sprintf("impossible state in %s: %s", i.Where, i.What)
}

// Evaluate evaluates a token run.
func Evaluate(env *Env, toks []token.Token, mode Mode) Result {
	e := &evaluator{env: env, typed: mode.Typed}
	r := e.eval(toks)
	if r.spread {
		return Result{Value: value.Errorf(value.SyntaxError, "A spread '...' can only be used inside a macro call.")}
	}
	if mode.Reference && r.ref != nil {
		return Result{Value: r.ref.Get(), Ref: r.ref}
	}
	return Result{Value: e.deref(r)}
}

// Expression lexes and evaluates src.
func Expression(env *Env, src string) value.Value {
	return Evaluate(env, lexer.LexExpression(src), Mode{}).Value
}

type evaluator struct {
	env   *Env
	typed bool
}

// comparison remembers a bare comparison so `and`/`or` can reuse it for an
// elided one.
type comparison struct {
	op    token.Type
	ineq  string
	left  value.Value
	right value.Value
}

type result struct {
	val    value.Value
	ref    *varref.Reference
	cmp    *comparison
	spread bool
}

func valueOf(v value.Value) result { return result{val: v} }

func errorf(kind value.ErrorKind, format string, args ...any) result {
	return result{val: value.Errorf(kind, format, args...)}
}

// deref reads a result, marking variable reads for purity tracking.
func (e *evaluator) deref(r result) value.Value {
	if r.val != nil {
		return r.val
	}
	if r.ref == nil {
		panic(Impossible{Where: "deref", What: "result with neither value nor reference"})
	}
	if s := r.ref.Store(); s != nil {
		e.env.noteRead(s, r.ref.Name())
	}
	return r.ref.Get()
}

func (e *evaluator) eval(toks []token.Token) result {
	if len(toks) == 0 {
		return errorf(value.SyntaxError, "There's nothing here to evaluate.")
	}
	for _, t := range toks {
		if t.Type == token.Error {
			return errorf(value.SyntaxError, "%s", t.Name)
		}
	}
	i, ok := split(toks)
	if !ok {
		if len(toks) > 1 {
			return errorf(value.SyntaxError, "I need an operator between %s and %s.", toks[0].Text, toks[1].Text).
				explain("Values next to each other need something like 'and', '+' or ',' between them.")
		}
		return e.atom(toks[0])
	}
	op := toks[i]
	lhs, rhs := toks[:i], toks[i+1:]
	want := shapes[op.Type]
	if want&shapeOf(len(lhs), len(rhs)) == 0 {
		return errorf(value.SyntaxError, "%s", shapeMessage(op, want))
	}
	return e.operator(op, lhs, rhs)
}

func (r result) explain(format string, args ...any) result {
	if err, ok := r.val.(*value.Error); ok {
		err.Explain(format, args...)
	}
	return r
}

func shapeMessage(op token.Token, want shape) string {
	switch {
	case want&both != 0 && want&after != 0:
		return fmt.Sprintf("I need something after '%s'.", op.Text)
	case want&both != 0:
		return fmt.Sprintf("I need values on both sides of '%s'.", op.Text)
	case want&after != 0:
		return fmt.Sprintf("I need something after '%s', and nothing before it.", op.Text)
	case want&before != 0:
		return fmt.Sprintf("I need something before '%s'.", op.Text)
	}
	return fmt.Sprintf("'%s' has to stand alone here.", op.Text)
}

func (e *evaluator) atom(t token.Token) result {
	switch t.Type {
	case token.Number:
		f, err := strconv.ParseFloat(t.Name, 64)
		if err != nil {
			return errorf(value.SyntaxError, "'%s' isn't a valid number.", t.Text)
		}
		return valueOf(value.Number(f))
	case token.String:
		return valueOf(value.String(t.Name))
	case token.Boolean:
		return valueOf(value.Boolean(t.Name == "true"))
	case token.Colour:
		c, ok := lexer.ParseColour(t.Name)
		if !ok {
			return errorf(value.SyntaxError, "'%s' isn't a valid colour.", t.Text)
		}
		return valueOf(c)
	case token.Datatype:
		return valueOf(value.Datatype{Name: t.Name})
	case token.Variable:
		return result{ref: varref.Variable(e.env.Globals, t.Name)}
	case token.TempVariable:
		return result{ref: varref.Variable(e.env.Temps, t.Name)}
	case token.Identifier:
		return e.identifier(t)
	case token.Grouping:
		r := e.eval(t.Children)
		r.cmp = nil
		return r
	case token.Macro:
		return e.macro(t)
	case token.Hook:
		return errorf(value.SyntaxError, "A hook can't be used as a value here.").
			explain("Hooks go after a changer, like (if: $x)[text].")
	case token.Text:
		return errorf(value.SyntaxError, "I don't understand '%s' here.", t.Text)
	case token.Invalid:
		panic(Impossible{Where: "atom", What: "token with no type"})
	}
	return errorf(value.SyntaxError, "'%s' can't be used by itself.", t.Text)
}

func (e *evaluator) identifier(t token.Token) result {
	switch t.Name {
	case "it":
		e.env.MarkImpure()
		if e.env.It == nil {
			return valueOf(value.Number(0))
		}
		return valueOf(e.env.It)
	case "time":
		return valueOf(e.env.Now())
	case "visits":
		return valueOf(value.Number(e.env.Visits(e.env.Passage)))
	case "turns":
		return valueOf(value.Number(e.env.Turns()))
	}
	panic(Impossible{Where: "identifier", What: "unknown identifier " + t.Name})
}

// arguments splits macro argument tokens on top-level commas and expands
// spreads.
func (e *evaluator) arguments(toks []token.Token) ([]value.Value, *value.Error) {
	if len(toks) == 0 {
		return nil, nil
	}
	var groups [][]token.Token
	start := 0
	for i, t := range toks {
		if t.Type == token.Comma {
			groups = append(groups, toks[start:i])
			start = i + 1
		}
	}
	groups = append(groups, toks[start:])

	var args []value.Value
	for _, g := range groups {
		if len(g) == 0 {
			return nil, value.Errorf(value.SyntaxError, "There's an empty argument between commas here.")
		}
		r := e.eval(g)
		v := e.deref(r)
		if err, ok := v.(*value.Error); ok {
			return nil, err
		}
		if r.spread {
			items, ok := value.Sequence(v)
			if !ok {
				return nil, value.Errorf(value.TypeError, "I can't spread out %s, because it isn't a string, array or dataset.", value.Describe(v))
			}
			args = append(args, items...)
			continue
		}
		args = append(args, v)
	}
	return args, nil
}

// Place is a macro argument passed by reference, for macros that remove
// variables rather than read them.
type Place struct {
	Ref *varref.Reference
}

func (*Place) TypeName() string { return "variable" }

// ReferenceTaker is implemented by dispatchers with macros whose arguments
// must be variables rather than values.
type ReferenceTaker interface {
	TakesReferences(name string) bool
}

// places evaluates comma-separated arguments in reference mode.
func (e *evaluator) places(toks []token.Token) ([]value.Value, *value.Error) {
	var args []value.Value
	start := 0
	for i := 0; i <= len(toks); i++ {
		if i < len(toks) && toks[i].Type != token.Comma {
			continue
		}
		g := toks[start:i]
		start = i + 1
		if len(g) == 0 {
			return nil, value.Errorf(value.SyntaxError, "There's an empty argument between commas here.")
		}
		r := e.eval(g)
		if r.ref == nil {
			if err := value.FirstError(r.val); err != nil {
				return nil, err
			}
			return nil, value.Errorf(value.TypeError, "I need a variable here, not %s.", value.Describe(r.val))
		}
		if err := r.ref.Err(); err != nil {
			return nil, err
		}
		args = append(args, &Place{Ref: r.ref})
	}
	return args, nil
}

func (e *evaluator) macro(t token.Token) result {
	name := t.Name
	var bound []value.Value
	if t.Callee != nil {
		callee := e.deref(e.atom(*t.Callee))
		if err, ok := callee.(*value.Error); ok {
			return valueOf(err)
		}
		cmd, ok := callee.(*value.Command)
		if !ok {
			return errorf(value.TypeError, "I can't call %s (%s) like a macro.", t.Callee.Text, value.Describe(callee)).
				explain("Only commands and changers made with (partial:) can be called this way.")
		}
		name, bound = cmd.Name, cmd.Args
	}
	var (
		args []value.Value
		err  *value.Error
	)
	if rt, ok := e.env.Macros.(ReferenceTaker); ok && rt.TakesReferences(name) {
		args, err = e.places(t.Children)
	} else {
		args, err = e.arguments(t.Children)
	}
	if err != nil {
		return valueOf(err)
	}
	if len(bound) > 0 {
		args = append(append([]value.Value{}, bound...), args...)
	}
	if e.env.Macros == nil || !e.env.Macros.Has(name) {
		return errorf(value.SyntaxError, "I can't run the macro '%s' because it doesn't exist.", name)
	}
	v := e.env.Macros.Call(e.env, name, args)
	if v == nil {
		panic(Impossible{Where: "macro", What: "(" + name + ":) produced no result"})
	}
	if t.Hook != nil {
		if cmd, ok := v.(*value.Command); ok {
			v = cmd.WithHook(t.Hook.Name)
		}
	}
	return valueOf(v)
}

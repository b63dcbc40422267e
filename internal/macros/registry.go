// Package macros is the macro library: data constructors, assignment,
// navigation commands, changers, the blocking prompt, and the random and
// history queries whose purity the evaluator tracks.
package macros

import (
	"strings"

	"golang.org/x/text/cases"

	"github.com/rcliao/passage/internal/eval"
	"github.com/rcliao/passage/internal/value"
)

// Func implements a macro.
type Func func(env *eval.Env, args []value.Value) value.Value

type entry struct {
	name string
	fn   Func
	refs bool
}

// Registry maps folded macro names to implementations. It satisfies
// eval.Dispatcher.
type Registry struct {
	macros map[string]entry
}

// Fold normalises a macro name: case-insensitive, ignoring dashes and
// underscores, so (forget-undos:), (forgetUndos:) and (FORGET_UNDOS:) match.
func Fold(name string) string {
	return strings.NewReplacer("-", "", "_", "").Replace(cases.Fold().String(name))
}

// New returns a registry holding the standard library.
func New() *Registry {
	r := &Registry{macros: map[string]entry{}}
	registerData(r)
	registerSequences(r)
	registerText(r)
	registerAssignment(r)
	registerCommands(r)
	return r
}

// Register adds fn under each of the names.
func (r *Registry) Register(fn Func, names ...string) {
	for _, n := range names {
		r.macros[Fold(n)] = entry{name: names[0], fn: fn}
	}
}

// registerRefs adds a macro whose arguments are passed as variables.
func (r *Registry) registerRefs(fn Func, names ...string) {
	for _, n := range names {
		r.macros[Fold(n)] = entry{name: names[0], fn: fn, refs: true}
	}
}

func (r *Registry) Has(name string) bool {
	_, ok := r.macros[Fold(name)]
	return ok
}

// Canonical returns the name a macro was registered under.
func (r *Registry) Canonical(name string) string {
	if e, ok := r.macros[Fold(name)]; ok {
		return e.name
	}
	return name
}

func (r *Registry) TakesReferences(name string) bool {
	return r.macros[Fold(name)].refs
}

// Call runs a macro. Error arguments poison the call before the macro runs.
func (r *Registry) Call(env *eval.Env, name string, args []value.Value) value.Value {
	e, ok := r.macros[Fold(name)]
	if !ok {
		return value.Errorf(value.SyntaxError, "I can't run the macro '%s' because it doesn't exist.", name)
	}
	if err := value.FirstError(args...); err != nil {
		return err
	}
	return e.fn(env, args)
}

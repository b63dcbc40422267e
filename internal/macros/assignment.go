package macros

import (
	"github.com/rcliao/passage/internal/eval"
	"github.com/rcliao/passage/internal/value"
)

func registerAssignment(r *Registry) {
	r.Register(assigner("set", "to", false), "set")
	r.Register(assigner("put", "into", false), "put")
	r.Register(assigner("move", "into", true), "move")
	r.registerRefs(func(env *eval.Env, args []value.Value) value.Value {
		if env.Replay {
			return value.String("")
		}
		for _, a := range args {
			p, ok := a.(*eval.Place)
			if !ok {
				return value.Errorf(value.TypeError, "(unset:) needs variables, not %s.", value.Describe(a))
			}
			if err := p.Ref.Delete(); err != nil {
				return err
			}
		}
		return value.String("")
	}, "unset")
}

// assigner returns a macro that carries out assignments written with op.
// Every argument is checked before any is performed.
func assigner(name, op string, move bool) Func {
	return func(env *eval.Env, args []value.Value) value.Value {
		if err := arity(name, args, 1, -1); err != nil {
			return err
		}
		as := make([]*eval.Assignment, len(args))
		for i, a := range args {
			asg, ok := a.(*eval.Assignment)
			if !ok {
				return value.Errorf(value.TypeError, "(%s:) needs assignments like '%s', not %s.", name, example(op), value.Describe(a))
			}
			if asg.Operator != op {
				return value.Errorf(value.SyntaxError, "Please use '%s' with (%s:), not '%s'.", op, name, asg.Operator).
					Explain("For example, (%s: %s).", name, example(op))
			}
			if move && asg.From == nil {
				return value.Errorf(value.TypeError, "(move:) can only move a value out of a variable.")
			}
			as[i] = asg
		}
		if env.Replay {
			return value.String("")
		}
		for _, asg := range as {
			if err := asg.Execute(); err != nil {
				return err
			}
			if move {
				if err := asg.From.Delete(); err != nil {
					return err
				}
			}
		}
		return value.String("")
	}
}

func example(op string) string {
	if op == "into" {
		return "1 into $x"
	}
	return "$x to 1"
}

package macros

import (
	"github.com/rcliao/passage/internal/eval"
	"github.com/rcliao/passage/internal/value"
)

func registerCommands(r *Registry) {
	r.Register(navigation("goto"), "goto", "go-to")
	r.Register(navigation("redirect"), "redirect")
	r.Register(counted("undo"), "undo")
	r.Register(counted("redo"), "redo")
	r.Register(signedCount("forget-undos"), "forget-undos")
	r.Register(signedCount("forget-visits"), "forget-visits")

	r.Register(func(_ *eval.Env, args []value.Value) value.Value {
		if err := arity("mock-turns", args, 1, 1); err != nil {
			return err
		}
		n, err := integer("mock-turns", args, 0)
		if err != nil {
			return err
		}
		if n < 0 {
			return value.Errorf(value.TypeError, "(mock-turns:) can't take a negative number of turns.")
		}
		return &value.Command{Name: "mock-turns", Args: args}
	}, "mock-turns")

	r.Register(func(_ *eval.Env, args []value.Value) value.Value {
		if err := arity("mock-visits", args, 1, -1); err != nil {
			return err
		}
		for i := range args {
			if _, err := text("mock-visits", args, i); err != nil {
				return err
			}
		}
		return &value.Command{Name: "mock-visits", Args: args}
	}, "mock-visits")

	r.Register(func(_ *eval.Env, args []value.Value) value.Value {
		if err := arity("seed", args, 1, 1); err != nil {
			return err
		}
		if _, err := text("seed", args, 0); err != nil {
			return err
		}
		return &value.Command{Name: "seed", Args: args}
	}, "seed")

	r.Register(func(_ *eval.Env, args []value.Value) value.Value {
		if err := arity("print", args, 1, 1); err != nil {
			return err
		}
		return args[0]
	}, "print")

	r.Register(func(env *eval.Env, args []value.Value) value.Value {
		if err := arity("prompt", args, 1, 2); err != nil {
			return err
		}
		msg, err := text("prompt", args, 0)
		if err != nil {
			return err
		}
		var def value.Value = value.String("")
		if len(args) == 2 {
			def = args[1]
		}
		return env.Block(eval.Prompt{Message: msg, Default: def})
	}, "prompt")

	r.Register(changer("if", false), "if")
	r.Register(changer("unless", false), "unless")
	r.Register(changer("else-if", false), "else-if", "elseif")
	r.Register(changer("else", true), "else")

	r.Register(func(env *eval.Env, args []value.Value) value.Value {
		if err := arity("history", args, 0, 1); err != nil {
			return err
		}
		var where *value.Lambda
		if len(args) == 1 {
			l, err := lambda("history", args, 0, "where")
			if err != nil {
				return err
			}
			where = l
		}
		out := value.Array{}
		for _, name := range env.History() {
			v := value.String(name)
			if where != nil {
				keep := env.Apply(where, v)
				if e := value.FirstError(keep); e != nil {
					return e
				}
				if keep != value.Boolean(true) {
					continue
				}
			}
			out = append(out, v)
		}
		return out
	}, "history")

	r.Register(func(env *eval.Env, args []value.Value) value.Value {
		if err := arity("visited", args, 1, 1); err != nil {
			return err
		}
		name, err := text("visited", args, 0)
		if err != nil {
			return err
		}
		return value.Boolean(env.Visits(name) > 0)
	}, "visited")

	r.Register(func(env *eval.Env, args []value.Value) value.Value {
		if err := arity("current-time", args, 0, 0); err != nil {
			return err
		}
		return value.String(env.WallClock().Format("3:04 PM"))
	}, "current-time")

	r.Register(func(env *eval.Env, args []value.Value) value.Value {
		if err := arity("partial", args, 1, -1); err != nil {
			return err
		}
		name, err := text("partial", args, 0)
		if err != nil {
			return err
		}
		if !r.Has(name) {
			return value.Errorf(value.TypeError, "(partial:) was given the name of a macro that doesn't exist, %q.", name)
		}
		return &value.Command{Name: r.Canonical(name), Args: append([]value.Value(nil), args[1:]...), Partial: true}
	}, "partial")
}

func navigation(name string) Func {
	return func(_ *eval.Env, args []value.Value) value.Value {
		if err := arity(name, args, 1, 1); err != nil {
			return err
		}
		if _, err := text(name, args, 0); err != nil {
			return err
		}
		return &value.Command{Name: name, Args: args}
	}
}

// counted makes a command taking an optional positive count, default 1.
func counted(name string) Func {
	return func(_ *eval.Env, args []value.Value) value.Value {
		if err := arity(name, args, 0, 1); err != nil {
			return err
		}
		n := 1
		if len(args) == 1 {
			var err *value.Error
			if n, err = integer(name, args, 0); err != nil {
				return err
			}
			if n < 1 {
				return value.Errorf(value.TypeError, "(%s:) needs a positive number of turns, not %d.", name, n)
			}
		}
		return &value.Command{Name: name, Args: []value.Value{value.Number(n)}}
	}
}

func signedCount(name string) Func {
	return func(_ *eval.Env, args []value.Value) value.Value {
		if err := arity(name, args, 1, 1); err != nil {
			return err
		}
		n, err := integer(name, args, 0)
		if err != nil {
			return err
		}
		if n == 0 {
			return value.Errorf(value.TypeError, "(%s:) needs a non-zero number.", name)
		}
		return &value.Command{Name: name, Args: args}
	}
}

func changer(name string, bare bool) Func {
	return func(_ *eval.Env, args []value.Value) value.Value {
		if bare {
			if err := arity(name, args, 0, 0); err != nil {
				return err
			}
			return &value.Command{Name: name, Changer: true}
		}
		if err := arity(name, args, 1, 1); err != nil {
			return err
		}
		if _, err := value.Truthy(args[0], "("+name+":)'s value"); err != nil {
			return err
		}
		return &value.Command{Name: name, Args: args, Changer: true}
	}
}

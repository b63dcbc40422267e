package macros

import (
	"slices"

	"github.com/rcliao/passage/internal/eval"
	"github.com/rcliao/passage/internal/value"
)

func registerSequences(r *Registry) {
	r.Register(func(env *eval.Env, args []value.Value) value.Value {
		if err := arity("random", args, 2, 2); err != nil {
			return err
		}
		a, err := integer("random", args, 0)
		if err != nil {
			return err
		}
		b, err := integer("random", args, 1)
		if err != nil {
			return err
		}
		if a > b {
			a, b = b, a
		}
		return value.Number(a + env.RNG.IntN(b-a+1))
	}, "random")

	r.Register(func(env *eval.Env, args []value.Value) value.Value {
		if err := arity("either", args, 1, -1); err != nil {
			return err
		}
		return args[env.RNG.IntN(len(args))]
	}, "either")

	r.Register(func(env *eval.Env, args []value.Value) value.Value {
		out := value.Array(slices.Clone(args))
		for i := len(out) - 1; i > 0; i-- {
			j := env.RNG.IntN(i + 1)
			out[i], out[j] = out[j], out[i]
		}
		return out
	}, "shuffled")

	r.Register(func(_ *eval.Env, args []value.Value) value.Value {
		out := value.Array(slices.Clone(args))
		slices.Reverse(out)
		return out
	}, "reversed")

	r.Register(sorted, "sorted")

	r.Register(func(env *eval.Env, args []value.Value) value.Value {
		if err := arity("find", args, 1, -1); err != nil {
			return err
		}
		l, err := lambda("find", args, 0, "where")
		if err != nil {
			return err
		}
		out := value.Array{}
		for _, v := range args[1:] {
			keep := env.Apply(l, v)
			if e := value.FirstError(keep); e != nil {
				return e
			}
			if keep == value.Boolean(true) {
				out = append(out, v)
			}
		}
		return out
	}, "find")

	r.Register(func(env *eval.Env, args []value.Value) value.Value {
		if err := arity("altered", args, 1, -1); err != nil {
			return err
		}
		l, err := lambda("altered", args, 0, "via")
		if err != nil {
			return err
		}
		out := make(value.Array, 0, len(args)-1)
		for _, v := range args[1:] {
			nv := env.Apply(l, v)
			if e := value.FirstError(nv); e != nil {
				return e
			}
			out = append(out, nv)
		}
		return out
	}, "altered")
}

// sorted orders numbers and strings, optionally by a via lambda's result.
func sorted(env *eval.Env, args []value.Value) value.Value {
	var by *value.Lambda
	if len(args) > 0 {
		if l, ok := args[0].(*value.Lambda); ok {
			if l.Clause != "via" {
				return value.Errorf(value.TypeError, "(sorted:) can only use a 'via' lambda, not a '%s' lambda.", l.Clause)
			}
			by, args = l, args[1:]
		}
	}
	type pair struct{ key, val value.Value }
	pairs := make([]pair, len(args))
	for i, v := range args {
		k := v
		if by != nil {
			k = env.Apply(by, v)
			if e := value.FirstError(k); e != nil {
				return e
			}
		}
		switch k.(type) {
		case value.Number, value.String:
		default:
			return value.Errorf(value.TypeError, "(sorted:) can only sort numbers and strings, not %s.", value.Describe(k))
		}
		pairs[i] = pair{k, v}
	}
	slices.SortStableFunc(pairs, func(a, b pair) int { return compareValues(a.key, b.key) })
	out := make(value.Array, len(pairs))
	for i, p := range pairs {
		out[i] = p.val
	}
	return out
}

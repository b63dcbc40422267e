package macros

import (
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/rcliao/passage/internal/eval"
	"github.com/rcliao/passage/internal/value"
)

// maxRange bounds how many numbers one (range:) call makes.
const maxRange = 100000

func registerData(r *Registry) {
	r.Register(func(_ *eval.Env, args []value.Value) value.Value {
		return value.Array(slices.Clone(args))
	}, "a", "array")

	r.Register(func(_ *eval.Env, args []value.Value) value.Value {
		if len(args)%2 != 0 {
			return value.Errorf(value.TypeError, "(dm:) needs names and values in pairs, but was given %d values.", len(args)).
				Explain("The last name, %s, has no value after it.", value.Source(args[len(args)-1]))
		}
		dm := value.NewDatamap()
		for i := 0; i < len(args); i += 2 {
			if !value.ValidKey(args[i]) {
				return value.Errorf(value.TypeError, "Datamap names must be strings or numbers, not %s.", value.Describe(args[i]))
			}
			if _, dup := dm.Get(args[i]); dup {
				return value.Errorf(value.OperationError, "(dm:) was given the name %s twice.", value.Source(args[i]))
			}
			if !value.Storable(args[i+1]) {
				return value.Errorf(value.TypeError, "%s can't be stored in a datamap.", value.Describe(args[i+1]))
			}
			dm.Set(args[i], args[i+1])
		}
		return dm
	}, "dm", "datamap")

	r.Register(func(_ *eval.Env, args []value.Value) value.Value {
		for _, a := range args {
			if !value.Storable(a) {
				return value.Errorf(value.TypeError, "%s can't be stored in a dataset.", value.Describe(a))
			}
		}
		return value.NewDataset(args...)
	}, "ds", "dataset")

	r.Register(func(_ *eval.Env, args []value.Value) value.Value {
		if err := arity("num", args, 1, 1); err != nil {
			return err
		}
		if n, ok := args[0].(value.Number); ok {
			return n
		}
		s, err := text("num", args, 0)
		if err != nil {
			return err
		}
		f, perr := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if perr != nil {
			return value.Errorf(value.OperationError, "I couldn't convert %s to a number.", value.Source(args[0]))
		}
		return value.Number(f)
	}, "num", "number")

	r.Register(colour(false), "rgb")
	r.Register(colour(true), "rgba")

	r.Register(numeric("round", func(f float64) float64 { return math.Floor(f + 0.5) }), "round")
	r.Register(numeric("abs", math.Abs), "abs")
	r.Register(numeric("floor", math.Floor), "floor")
	r.Register(numeric("ceil", math.Ceil), "ceil")
	r.Register(extreme("min", math.Min), "min")
	r.Register(extreme("max", math.Max), "max")

	r.Register(func(_ *eval.Env, args []value.Value) value.Value {
		if err := arity("dm-names", args, 1, 1); err != nil {
			return err
		}
		dm, ok := args[0].(*value.Datamap)
		if !ok {
			return value.Errorf(value.TypeError, "(dm-names:) needs a datamap, not %s.", value.Describe(args[0]))
		}
		keys := sortedKeys(dm)
		return value.Array(keys)
	}, "dm-names", "data-names")

	r.Register(func(_ *eval.Env, args []value.Value) value.Value {
		if err := arity("dm-values", args, 1, 1); err != nil {
			return err
		}
		dm, ok := args[0].(*value.Datamap)
		if !ok {
			return value.Errorf(value.TypeError, "(dm-values:) needs a datamap, not %s.", value.Describe(args[0]))
		}
		var out value.Array
		for _, k := range sortedKeys(dm) {
			v, _ := dm.Get(k)
			out = append(out, v)
		}
		return out
	}, "dm-values", "data-values")

	r.Register(func(_ *eval.Env, args []value.Value) value.Value {
		if err := arity("range", args, 2, 2); err != nil {
			return err
		}
		a, err := integer("range", args, 0)
		if err != nil {
			return err
		}
		b, err := integer("range", args, 1)
		if err != nil {
			return err
		}
		if a > b {
			a, b = b, a
		}
		if b-a >= maxRange {
			return value.Errorf(value.TypeError, "(range:) can make at most %d numbers, not %d.", maxRange, b-a+1)
		}
		out := make(value.Array, 0, b-a+1)
		for i := a; i <= b; i++ {
			out = append(out, value.Number(i))
		}
		return out
	}, "range")

	r.Register(func(_ *eval.Env, args []value.Value) value.Value {
		if err := arity("count", args, 2, -1); err != nil {
			return err
		}
		total := 0
		for _, needle := range args[1:] {
			switch hay := args[0].(type) {
			case value.String:
				s, ok := needle.(value.String)
				if !ok || s == "" {
					return value.Errorf(value.TypeError, "(count:) can only count non-empty strings inside a string, not %s.", value.Describe(needle))
				}
				total += strings.Count(string(hay), string(s))
			case value.Array:
				for _, x := range hay {
					if value.Equal(x, needle) {
						total++
					}
				}
			default:
				return value.Errorf(value.TypeError, "(count:) needs a string or array to count in, not %s.", value.Describe(args[0]))
			}
		}
		return value.Number(total)
	}, "count")
}

func colour(alpha bool) Func {
	name, n := "rgb", 3
	if alpha {
		name, n = "rgba", 4
	}
	return func(_ *eval.Env, args []value.Value) value.Value {
		if err := arity(name, args, n, n); err != nil {
			return err
		}
		var rgb [3]uint8
		for i := range 3 {
			c, err := integer(name, args, i)
			if err != nil {
				return err
			}
			if c < 0 || c > 255 {
				return value.Errorf(value.TypeError, "(%s:)'s %s value must be between 0 and 255, not %d.", name, ordinal(i), c)
			}
			rgb[i] = uint8(c)
		}
		a := 1.0
		if alpha {
			f, err := number(name, args, 3)
			if err != nil {
				return err
			}
			if f < 0 || f > 1 {
				return value.Errorf(value.TypeError, "(rgba:)'s alpha must be between 0 and 1, not %s.", value.Source(args[3]))
			}
			a = f
		}
		return value.Colour{R: rgb[0], G: rgb[1], B: rgb[2], A: a}
	}
}

func numeric(name string, f func(float64) float64) Func {
	return func(_ *eval.Env, args []value.Value) value.Value {
		if err := arity(name, args, 1, 1); err != nil {
			return err
		}
		n, err := number(name, args, 0)
		if err != nil {
			return err
		}
		return value.Number(f(n))
	}
}

func extreme(name string, pick func(a, b float64) float64) Func {
	return func(_ *eval.Env, args []value.Value) value.Value {
		if err := arity(name, args, 1, -1); err != nil {
			return err
		}
		out, err := number(name, args, 0)
		if err != nil {
			return err
		}
		for i := 1; i < len(args); i++ {
			n, err := number(name, args, i)
			if err != nil {
				return err
			}
			out = pick(out, n)
		}
		return value.Number(out)
	}
}

// sortedKeys orders datamap names numbers first, then strings.
func sortedKeys(dm *value.Datamap) []value.Value {
	keys := dm.Keys()
	slices.SortFunc(keys, compareValues)
	return keys
}

func compareValues(a, b value.Value) int {
	an, aNum := a.(value.Number)
	bn, bNum := b.(value.Number)
	switch {
	case aNum && bNum:
		switch {
		case an < bn:
			return -1
		case an > bn:
			return 1
		}
		return 0
	case aNum:
		return -1
	case bNum:
		return 1
	}
	return strings.Compare(value.Print(a), value.Print(b))
}

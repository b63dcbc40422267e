package macros

import (
	"math"

	"github.com/rcliao/passage/internal/value"
)

func arity(name string, args []value.Value, min, max int) *value.Error {
	if len(args) < min {
		return value.Errorf(value.TypeError, "(%s:) needs at least %d value%s, but was given %d.", name, min, plural(min), len(args))
	}
	if max >= 0 && len(args) > max {
		return value.Errorf(value.TypeError, "(%s:) takes at most %d value%s, but was given %d.", name, max, plural(max), len(args))
	}
	return nil
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}

func number(name string, args []value.Value, i int) (float64, *value.Error) {
	n, ok := args[i].(value.Number)
	if !ok {
		return 0, value.Errorf(value.TypeError, "(%s:)'s %s value should be a number, not %s.", name, ordinal(i), value.Describe(args[i]))
	}
	return float64(n), nil
}

func integer(name string, args []value.Value, i int) (int, *value.Error) {
	f, err := number(name, args, i)
	if err != nil {
		return 0, err
	}
	if f != math.Trunc(f) {
		return 0, value.Errorf(value.TypeError, "(%s:)'s %s value should be a whole number, not %s.", name, ordinal(i), value.Source(args[i]))
	}
	if math.Abs(f) > math.MaxInt32 {
		return 0, value.Errorf(value.TypeError, "(%s:)'s %s value, %s, is too large.", name, ordinal(i), value.Source(args[i]))
	}
	return int(f), nil
}

func text(name string, args []value.Value, i int) (string, *value.Error) {
	s, ok := args[i].(value.String)
	if !ok {
		return "", value.Errorf(value.TypeError, "(%s:)'s %s value should be a string, not %s.", name, ordinal(i), value.Describe(args[i]))
	}
	return string(s), nil
}

func lambda(name string, args []value.Value, i int, clauses ...string) (*value.Lambda, *value.Error) {
	l, ok := args[i].(*value.Lambda)
	if ok {
		for _, c := range clauses {
			if l.Clause == c {
				return l, nil
			}
		}
	}
	want := clauses[0]
	return nil, value.Errorf(value.TypeError, "(%s:)'s %s value should be a '%s' lambda, not %s.", name, ordinal(i), want, value.Describe(args[i]))
}

func ordinal(i int) string {
	switch i {
	case 0:
		return "1st"
	case 1:
		return "2nd"
	case 2:
		return "3rd"
	}
	return value.Print(value.Number(i+1)) + "th"
}

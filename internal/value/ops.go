package value

import (
	"slices"
	"strings"
)

// Add implements +: numbers sum, strings and arrays concatenate, datamaps
// merge (right wins), datasets union.
func Add(a, b Value) Value {
	if e := FirstError(a, b); e != nil {
		return e
	}
	switch a := a.(type) {
	case Number:
		if b, ok := b.(Number); ok {
			return a + b
		}
	case String:
		if b, ok := b.(String); ok {
			return a + b
		}
	case Array:
		if b, ok := b.(Array); ok {
			out := make(Array, 0, len(a)+len(b))
			return append(append(out, a...), b...)
		}
	case *Datamap:
		if b, ok := b.(*Datamap); ok {
			out := a.Clone()
			for _, k := range b.keys {
				v, _ := b.Get(k)
				out.Set(k, v)
			}
			return out
		}
	case *Dataset:
		if b, ok := b.(*Dataset); ok {
			out := a.Clone()
			for _, v := range b.items {
				out.Add(v)
			}
			return out
		}
	}
	return mismatch("+", "add", a, b)
}

// Subtract implements -: numbers subtract, strings and arrays remove every
// occurrence of the right side, datasets take the difference.
func Subtract(a, b Value) Value {
	if e := FirstError(a, b); e != nil {
		return e
	}
	switch a := a.(type) {
	case Number:
		if b, ok := b.(Number); ok {
			return a - b
		}
	case String:
		if b, ok := b.(String); ok {
			return String(strings.ReplaceAll(string(a), string(b), ""))
		}
	case Array:
		if b, ok := b.(Array); ok {
			return slices.DeleteFunc(slices.Clone(a), func(x Value) bool {
				return slices.ContainsFunc(b, func(y Value) bool { return Equal(x, y) })
			})
		}
	case *Dataset:
		if b, ok := b.(*Dataset); ok {
			out := a.Clone()
			for _, v := range b.items {
				out.Remove(v)
			}
			return out
		}
	}
	return mismatch("-", "subtract", a, b)
}

func Multiply(a, b Value) Value {
	if e := FirstError(a, b); e != nil {
		return e
	}
	an, aok := a.(Number)
	bn, bok := b.(Number)
	if !aok || !bok {
		return mismatch("*", "multiply", a, b)
	}
	return an * bn
}

func Divide(a, b Value) Value {
	if e := FirstError(a, b); e != nil {
		return e
	}
	an, aok := a.(Number)
	bn, bok := b.(Number)
	if !aok || !bok {
		return mismatch("/", "divide", a, b)
	}
	if bn == 0 {
		return Errorf(OperationError, "I can't divide %s by zero.", Source(an))
	}
	return an / bn
}

func mismatch(op, verb string, a, b Value) *Error {
	return Errorf(OperationError, "I can't use '%s' to %s %s and %s.", op, verb, Describe(a), Describe(b))
}

// Compare evaluates an inequality between two numbers.
func Compare(op string, a, b Value) (bool, *Error) {
	if e := FirstError(a, b); e != nil {
		return false, e
	}
	an, aok := a.(Number)
	bn, bok := b.(Number)
	if !aok || !bok {
		return false, Errorf(OperationError, "I can only use '%s' to compare numbers, not %s and %s.", op, Describe(a), Describe(b))
	}
	switch op {
	case "<":
		return an < bn, nil
	case ">":
		return an > bn, nil
	case "<=":
		return an <= bn, nil
	case ">=":
		return an >= bn, nil
	}
	return false, Errorf(SyntaxError, "'%s' isn't an inequality.", op)
}

// Contains reports whether container holds item: substrings of strings,
// elements of arrays and datasets, keys of datamaps.
func Contains(container, item Value) (bool, *Error) {
	if e := FirstError(container, item); e != nil {
		return false, e
	}
	switch c := container.(type) {
	case String:
		s, ok := item.(String)
		if !ok {
			return false, Errorf(OperationError, "I can't check if a string contains %s.", Describe(item))
		}
		return strings.Contains(string(c), string(s)), nil
	case Array:
		return slices.ContainsFunc(c, func(x Value) bool { return Equal(x, item) }), nil
	case *Dataset:
		return c.Has(item), nil
	case *Datamap:
		_, ok := c.Get(item)
		return ok, nil
	}
	return false, Errorf(OperationError, "I can't check if %s contains anything.", Describe(container))
}

// Truthy requires a boolean.
func Truthy(v Value, context string) (bool, *Error) {
	if e := FirstError(v); e != nil {
		return false, e
	}
	b, ok := v.(Boolean)
	if !ok {
		return false, Errorf(TypeError, "%s should be a boolean, not %s.", context, Describe(v))
	}
	return bool(b), nil
}

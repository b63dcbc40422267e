package value

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Source prints v as an expression that evaluates back to a structurally
// equal value. Transient values (determiners, errors) have no source and
// print as the empty string.
func Source(v Value) string {
	switch v := v.(type) {
	case Number:
		return numberSource(float64(v))
	case String:
		return quote(string(v))
	case Boolean:
		if v {
			return "true"
		}
		return "false"
	case Colour:
		return fmt.Sprintf("(rgba: %d, %d, %d, %s)", v.R, v.G, v.B, numberSource(v.A))
	case Datatype:
		return v.Name
	case *Lambda:
		return v.Source
	case Array:
		return "(a: " + joinSources(v) + ")"
	case *Datamap:
		parts := make([]string, 0, v.Len()*2)
		for _, k := range v.keys {
			val, _ := v.Get(k)
			parts = append(parts, Source(k), Source(val))
		}
		return "(dm: " + strings.Join(parts, ", ") + ")"
	case *Dataset:
		return "(ds: " + joinSources(v.items) + ")"
	case *Command:
		var s string
		if v.Partial {
			args := append([]Value{String(v.Name)}, v.Args...)
			s = "(partial: " + joinSources(args) + ")"
		} else {
			s = "(" + v.Name + ": " + joinSources(v.Args) + ")"
		}
		if v.HasHook {
			s += "[" + v.Hook + "]"
		}
		return s
	}
	return ""
}

func joinSources(vs []Value) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = Source(v)
	}
	return strings.Join(parts, ", ")
}

func numberSource(f float64) string {
	switch {
	case math.IsNaN(f):
		return `(num: "NaN")`
	case math.IsInf(f, 1):
		return `(num: "Infinity")`
	case math.IsInf(f, -1):
		return `(num: "-Infinity")`
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// quote escapes only backslashes and double quotes, matching how the lexer
// reads string literals.
func quote(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('"')
	for _, r := range s {
		if r == '"' || r == '\\' {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	b.WriteByte('"')
	return b.String()
}

// Print renders v for display in passage text.
func Print(v Value) string {
	switch v := v.(type) {
	case Number:
		return strconv.FormatFloat(float64(v), 'f', -1, 64)
	case String:
		return string(v)
	case Boolean:
		if v {
			return "true"
		}
		return "false"
	case Colour:
		if v.A < 1 {
			return fmt.Sprintf("rgba(%d, %d, %d, %s)", v.R, v.G, v.B, numberSource(v.A))
		}
		return fmt.Sprintf("#%02x%02x%02x", v.R, v.G, v.B)
	case Array:
		parts := make([]string, len(v))
		for i, x := range v {
			parts[i] = Print(x)
		}
		return strings.Join(parts, ",")
	case *Dataset:
		parts := make([]string, v.Len())
		for i, x := range v.items {
			parts[i] = Print(x)
		}
		return strings.Join(parts, ",")
	case *Error:
		return "[error: " + v.Message + "]"
	case Determiner:
		return "[the " + v.Kind + " of " + Describe(v.Seq) + "]"
	case nil:
		return ""
	}
	return Source(v)
}

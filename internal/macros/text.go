package macros

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/rcliao/passage/internal/eval"
	"github.com/rcliao/passage/internal/value"
)

func registerText(r *Registry) {
	r.Register(func(_ *eval.Env, args []value.Value) value.Value {
		var b strings.Builder
		for _, a := range args {
			b.WriteString(value.Print(a))
		}
		return value.String(b.String())
	}, "str", "string", "text")

	r.Register(func(_ *eval.Env, args []value.Value) value.Value {
		if err := arity("joined", args, 1, -1); err != nil {
			return err
		}
		sep, err := text("joined", args, 0)
		if err != nil {
			return err
		}
		parts := make([]string, 0, len(args)-1)
		for i := 1; i < len(args); i++ {
			s, err := text("joined", args, i)
			if err != nil {
				return err
			}
			parts = append(parts, s)
		}
		return value.String(strings.Join(parts, sep))
	}, "joined")

	r.Register(transform("uppercase", func(s string) string { return cases.Upper(language.Und).String(s) }), "uppercase")
	r.Register(transform("lowercase", func(s string) string { return cases.Lower(language.Und).String(s) }), "lowercase")
	r.Register(transform("upperfirst", firstRune(cases.Upper(language.Und).String)), "upperfirst")
	r.Register(transform("lowerfirst", firstRune(cases.Lower(language.Und).String)), "lowerfirst")
}

func transform(name string, f func(string) string) Func {
	return func(_ *eval.Env, args []value.Value) value.Value {
		if err := arity(name, args, 1, 1); err != nil {
			return err
		}
		s, err := text(name, args, 0)
		if err != nil {
			return err
		}
		return value.String(f(s))
	}
}

// firstRune applies f to the first non-space character only.
func firstRune(f func(string) string) func(string) string {
	return func(s string) string {
		trimmed := strings.TrimLeft(s, " \t\n")
		if trimmed == "" {
			return s
		}
		lead := s[:len(s)-len(trimmed)]
		_, size := utf8.DecodeRuneInString(trimmed)
		return lead + f(trimmed[:size]) + trimmed[size:]
	}
}

package lexer

import (
	"testing"

	"github.com/rcliao/passage/internal/token"
)

func types(toks []token.Token) []token.Type {
	out := make([]token.Type, len(toks))
	for i, t := range toks {
		out[i] = t.Type
	}
	return out
}

func sameTypes(t *testing.T, got []token.Token, want ...token.Type) {
	t.Helper()
	g := types(got)
	if len(g) != len(want) {
		t.Fatalf("expected %v, got %v", want, g)
	}
	for i := range want {
		if g[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, g)
		}
	}
}

func TestLexMarkup(t *testing.T) {
	src := `Hi $name's coat. (if: $lamp)[A door.]`
	toks := Lex(src)
	sameTypes(t, toks, token.Text, token.Grouping, token.Text, token.Macro)

	v := toks[1]
	if v.Text != "$name's coat" || len(v.Children) != 2 || v.Children[1].Name != "coat" {
		t.Errorf("expected $name's coat as a variable with one property, got %+v", v)
	}
	m := toks[3]
	if m.Name != "if" || m.Hook == nil || m.Hook.Name != "A door." {
		t.Errorf("expected (if:) with its hook attached, got %+v", m)
	}
	if src[m.Start:m.End] != "(if: $lamp)[A door.]" {
		t.Errorf("expected the macro span to cover its hook, got %q", src[m.Start:m.End])
	}
}

func TestLexExpressionOperators(t *testing.T) {
	toks := LexExpression(`$a is not 3 and it contains "x"`)
	sameTypes(t, toks, token.Variable, token.IsNot, token.Number, token.And, token.Identifier, token.Contains, token.String)

	toks = LexExpression(`$list's 2ndlast is in (a: 1, 2)`)
	sameTypes(t, toks, token.Variable, token.Property, token.IsIn, token.Macro)
	if toks[1].Name != "2ndlast" {
		t.Errorf("expected property 2ndlast, got %q", toks[1].Name)
	}
}

func TestLexSign(t *testing.T) {
	sameTypes(t, LexExpression("1 - -2"), token.Number, token.Subtraction, token.Sign, token.Number)
}

func TestLexStringEscapes(t *testing.T) {
	toks := LexExpression(`"say \"hi\""`)
	sameTypes(t, toks, token.String)
}

func TestLexErrors(t *testing.T) {
	for _, src := range []string{`(set: $a to 1`, `[never closed`} {
		toks := Lex(src)
		if len(toks) == 0 || toks[len(toks)-1].Type != token.Error {
			t.Errorf("%q: expected an error token, got %v", src, types(toks))
		}
	}
	if toks := LexExpression(`"open`); len(toks) != 1 || toks[0].Type != token.Error {
		t.Errorf("expected an unterminated string to be an error, got %v", types(toks))
	}
}

func TestParseColour(t *testing.T) {
	c, ok := ParseColour("f00")
	if !ok || c.R != 255 || c.G != 0 || c.A != 1 {
		t.Errorf("expected opaque red, got %+v", c)
	}
	if _, ok := ParseColour("12"); ok {
		t.Error("expected a two-digit hex colour to fail")
	}
}

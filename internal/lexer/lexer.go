// Package lexer turns passage source into the token trees the evaluator walks.
//
// Lex handles passage markup (text, macro calls, hooks, inline variables);
// LexExpression handles a bare expression such as the source span recorded in
// a value ref. Malformed input never panics: it yields token.Error tokens
// which the evaluator reports as syntax errors.
package lexer

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/rcliao/passage/internal/token"
	"github.com/rcliao/passage/internal/value"
)

type lexer struct {
	src string
	pos int
}

// Lex lexes passage markup.
func Lex(src string) []token.Token {
	l := &lexer{src: src}
	return l.markup(false)
}

// LexExpression lexes a bare expression.
func LexExpression(src string) []token.Token {
	l := &lexer{src: src}
	toks := l.expression(0)
	for l.pos < len(l.src) {
		// a stray closer at top level
		toks = append(toks, l.errorf(l.pos, l.pos+1, "There's an unmatched '%c' here.", l.src[l.pos]))
		l.pos++
		toks = append(toks, l.expression(0)...)
	}
	return toks
}

func (l *lexer) errorf(start, end int, format string, args ...any) token.Token {
	return token.Token{
		Type:  token.Error,
		Text:  l.src[start:min(end, len(l.src))],
		Name:  value.Errorf(value.SyntaxError, format, args...).Message,
		Start: start,
		End:   min(end, len(l.src)),
	}
}

func isWordByte(c byte) bool {
	return c == '_' || ('0' <= c && c <= '9') || ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}

func (l *lexer) peek(off int) byte {
	if l.pos+off < len(l.src) {
		return l.src[l.pos+off]
	}
	return 0
}

func (l *lexer) word() string {
	start := l.pos
	for l.pos < len(l.src) && isWordByte(l.src[l.pos]) {
		l.pos++
	}
	return l.src[start:l.pos]
}

func (l *lexer) skipSpace() {
	for l.pos < len(l.src) {
		r, size := utf8.DecodeRuneInString(l.src[l.pos:])
		if !unicode.IsSpace(r) {
			return
		}
		l.pos += size
	}
}

// macroAhead reports whether a macro call starts at pos: "(name:" or "($var:".
func (l *lexer) macroAhead() bool {
	i := l.pos + 1
	for i < len(l.src) && (l.src[i] == ' ' || l.src[i] == '\t') {
		i++
	}
	if i < len(l.src) && (l.src[i] == '$' || l.src[i] == '_') {
		i++
	} else if i >= len(l.src) || !unicode.IsLetter(rune(l.src[i])) {
		return false
	}
	for i < len(l.src) && (isWordByte(l.src[i]) || l.src[i] == '-') {
		i++
	}
	for i < len(l.src) && (l.src[i] == ' ' || l.src[i] == '\t') {
		i++
	}
	return i < len(l.src) && l.src[i] == ':'
}

func (l *lexer) markup(inHook bool) []token.Token {
	var out []token.Token
	textStart := l.pos
	flush := func() {
		if l.pos > textStart {
			out = append(out, token.Token{Type: token.Text, Text: l.src[textStart:l.pos], Start: textStart, End: l.pos})
		}
	}
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		switch {
		case c == ']' && inHook:
			flush()
			return out
		case c == '(' && l.macroAhead():
			flush()
			out = append(out, l.macro())
			textStart = l.pos
		case c == '[':
			flush()
			out = append(out, l.hook())
			textStart = l.pos
		case (c == '$' || (c == '_' && (l.pos == 0 || !isWordByte(l.src[l.pos-1])))) && isWordByte(l.peek(1)):
			flush()
			out = append(out, l.inlineVariable())
			textStart = l.pos
		default:
			l.pos++
		}
	}
	flush()
	return out
}

// inlineVariable lexes "$name" or "$name's prop's prop" inside passage text.
func (l *lexer) inlineVariable() token.Token {
	start := l.pos
	children := []token.Token{l.variable()}
	for strings.HasPrefix(l.src[l.pos:], "'s ") && l.pos+3 < len(l.src) && isWordByte(l.src[l.pos+3]) {
		pstart := l.pos
		l.pos += 3
		name := l.word()
		children = append(children, token.Token{Type: token.Property, Text: l.src[pstart:l.pos], Name: name, Start: pstart, End: l.pos})
	}
	return token.Token{Type: token.Grouping, Text: l.src[start:l.pos], Start: start, End: l.pos, Children: children}
}

func (l *lexer) variable() token.Token {
	start := l.pos
	typ := token.Variable
	if l.src[l.pos] == '_' {
		typ = token.TempVariable
	}
	l.pos++
	name := l.word()
	return token.Token{Type: typ, Text: l.src[start:l.pos], Name: name, Start: start, End: l.pos}
}

func (l *lexer) hook() token.Token {
	start := l.pos
	l.pos++
	inner := l.pos
	children := l.markup(true)
	if l.pos >= len(l.src) {
		return l.errorf(start, l.pos, "This hook is missing its closing ']'.")
	}
	body := l.src[inner:l.pos]
	l.pos++
	return token.Token{Type: token.Hook, Text: l.src[start:l.pos], Name: body, Start: start, End: l.pos, Children: children}
}

func (l *lexer) macro() token.Token {
	start := l.pos
	l.pos++
	l.skipSpace()
	tok := token.Token{Type: token.Macro, Start: start}
	if c := l.src[l.pos]; c == '$' || c == '_' {
		callee := l.variable()
		tok.Callee = &callee
	} else {
		nstart := l.pos
		for l.pos < len(l.src) && (isWordByte(l.src[l.pos]) || l.src[l.pos] == '-') {
			l.pos++
		}
		tok.Name = l.src[nstart:l.pos]
	}
	l.skipSpace()
	l.pos++ // the colon, guaranteed by macroAhead
	tok.Children = l.expression(')')
	if l.pos >= len(l.src) {
		return l.errorf(start, l.pos, "This macro call is missing its closing ')'.")
	}
	l.pos++
	tok.End = l.pos
	tok.Text = l.src[start:l.pos]
	if l.peek(0) == '[' {
		h := l.hook()
		tok.Hook = &h
		tok.End = l.pos
		tok.Text = l.src[start:l.pos]
	}
	return tok
}

// valueLike reports whether a token ends an operand, which decides whether a
// following + or - is binary and whether 's is a possessive.
func valueLike(t *token.Token) bool {
	if t == nil {
		return false
	}
	switch t.Type {
	case token.Number, token.String, token.Boolean, token.Colour, token.Datatype,
		token.Variable, token.TempVariable, token.Identifier, token.Grouping, token.Macro,
		token.Property, token.ItsProperty, token.Hook:
		return true
	}
	return false
}

func (l *lexer) expression(closer byte) []token.Token {
	var out []token.Token
	last := func() *token.Token {
		if len(out) == 0 {
			return nil
		}
		return &out[len(out)-1]
	}
	for {
		l.skipSpace()
		if l.pos >= len(l.src) {
			return out
		}
		c := l.src[l.pos]
		if closer != 0 && c == closer {
			return out
		}
		start := l.pos
		switch {
		case c == ')':
			if closer == 0 {
				return out
			}
			l.pos++
			out = append(out, l.errorf(start, l.pos, "There's an unmatched ')' here."))
		case c == '(':
			if l.macroAhead() {
				out = append(out, l.macro())
				continue
			}
			l.pos++
			children := l.expression(')')
			if l.pos >= len(l.src) {
				out = append(out, l.errorf(start, l.pos, "This '(' is missing its closing ')'."))
				continue
			}
			l.pos++
			out = append(out, token.Token{Type: token.Grouping, Text: l.src[start:l.pos], Start: start, End: l.pos, Children: children})
		case c == '[':
			out = append(out, l.hook())
		case c == '\'' && strings.HasPrefix(l.src[l.pos:], "'s") && valueLike(last()) &&
			(l.pos+2 >= len(l.src) || !isWordByte(l.src[l.pos+2])):
			out = append(out, l.possessive())
		case c == '"' || c == '\'':
			out = append(out, l.stringLiteral())
		case (c == '$' || c == '_') && isWordByte(l.peek(1)):
			out = append(out, l.variable())
		case c == '#':
			l.pos++
			hex := l.word()
			if _, ok := parseHex(hex); !ok {
				out = append(out, l.errorf(start, l.pos, "'#%s' isn't a valid colour.", hex))
				continue
			}
			out = append(out, token.Token{Type: token.Colour, Text: l.src[start:l.pos], Name: strings.ToLower(hex), Start: start, End: l.pos})
		case strings.HasPrefix(l.src[l.pos:], "..."):
			l.pos += 3
			out = append(out, token.Token{Type: token.Spread, Text: "...", Start: start, End: l.pos})
		case c == '+' || c == '-':
			l.pos++
			typ := token.Addition
			if c == '-' {
				typ = token.Subtraction
			}
			if !valueLike(last()) {
				typ = token.Sign
			}
			out = append(out, token.Token{Type: typ, Text: string(c), Name: string(c), Start: start, End: l.pos})
		case c == '*':
			l.pos++
			out = append(out, token.Token{Type: token.Multiplication, Text: "*", Start: start, End: l.pos})
		case c == '/':
			l.pos++
			out = append(out, token.Token{Type: token.Division, Text: "/", Start: start, End: l.pos})
		case c == '<' || c == '>':
			l.pos++
			if l.peek(0) == '=' {
				l.pos++
			}
			op := l.src[start:l.pos]
			out = append(out, token.Token{Type: token.Inequality, Text: op, Name: op, Start: start, End: l.pos})
		case c == ',':
			l.pos++
			out = append(out, token.Token{Type: token.Comma, Text: ",", Start: start, End: l.pos})
		case c == '=':
			l.pos++
			if l.peek(0) == '=' {
				l.pos++
			}
			out = append(out, l.errorf(start, l.pos, "Please say 'is' or 'to' instead of '%s'.", l.src[start:l.pos]))
		case isWordByte(c):
			out = append(out, l.wordToken())
		default:
			_, size := utf8.DecodeRuneInString(l.src[l.pos:])
			l.pos += size
			out = append(out, l.errorf(start, l.pos, "I don't understand the symbol '%s'.", l.src[start:l.pos]))
		}
	}
}

func (l *lexer) possessive() token.Token {
	start := l.pos
	l.pos += 2
	l.skipSpace()
	if l.peek(0) == '(' {
		return token.Token{Type: token.PossessiveOperator, Text: "'s", Start: start, End: start + 2}
	}
	name := l.word()
	if name == "" {
		return l.errorf(start, l.pos, "I need a property name after 's.")
	}
	return token.Token{Type: token.Property, Text: l.src[start:l.pos], Name: name, Start: start, End: l.pos}
}

func (l *lexer) stringLiteral() token.Token {
	start := l.pos
	q := l.src[l.pos]
	l.pos++
	var b strings.Builder
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		switch {
		case c == '\\' && l.pos+1 < len(l.src):
			_, size := utf8.DecodeRuneInString(l.src[l.pos+1:])
			b.WriteString(l.src[l.pos+1 : l.pos+1+size])
			l.pos += 1 + size
		case c == q:
			l.pos++
			return token.Token{Type: token.String, Text: l.src[start:l.pos], Name: b.String(), Start: start, End: l.pos}
		default:
			b.WriteByte(c)
			l.pos++
		}
	}
	return l.errorf(start, l.pos, "This string is missing its closing %c.", q)
}

// followedBy consumes the given keyword if it is the next word.
func (l *lexer) followedBy(words ...string) bool {
	save := l.pos
	for _, w := range words {
		l.skipSpace()
		if !strings.EqualFold(l.word(), w) {
			l.pos = save
			return false
		}
	}
	return true
}

var keywords = map[string]token.Type{
	"contains": token.Contains,
	"and":      token.And,
	"or":       token.Or,
	"not":      token.Not,
	"to":       token.To,
	"into":     token.Into,
	"where":    token.Where,
	"when":     token.When,
	"via":      token.Via,
	"each":     token.Each,
}

var identifiers = map[string]string{
	"it": "it", "time": "time", "visits": "visits", "visit": "visits", "turns": "turns", "turn": "turns",
}

func (l *lexer) wordToken() token.Token {
	start := l.pos
	w := l.word()
	lower := strings.ToLower(w)
	tok := func(t token.Type, name string) token.Token {
		return token.Token{Type: t, Text: l.src[start:l.pos], Name: name, Start: start, End: l.pos}
	}

	if strings.HasPrefix(l.src[l.pos:], "-type") && !isWordByte(l.peek(5)) {
		l.pos += 5
		if _, ok := value.LookupDatatype(w); !ok {
			return l.errorf(start, l.pos, "'%s' isn't a datatype, so '%s-type' means nothing.", w, w)
		}
		return tok(token.TypeSignature, lower)
	}
	if _, reserved := keywords[lower]; !reserved && lower != "is" && lower != "does" && lower != "of" && lower != "its" {
		save := l.pos
		if l.followedBy("of") {
			return tok(token.BelongingProperty, w)
		}
		l.pos = save
	}

	switch lower {
	case "true", "false":
		return tok(token.Boolean, lower)
	case "is":
		switch {
		case l.followedBy("not", "in"):
			return tok(token.IsNotIn, "")
		case l.followedBy("not", "a"), l.followedBy("not", "an"):
			return tok(token.IsNotA, "")
		case l.followedBy("not"):
			return tok(token.IsNot, "")
		case l.followedBy("in"):
			return tok(token.IsIn, "")
		case l.followedBy("a"), l.followedBy("an"):
			return tok(token.IsA, "")
		}
		return tok(token.Is, "")
	case "does":
		if l.followedBy("not", "contain") {
			return tok(token.DoesNotContain, "")
		}
		return l.errorf(start, l.pos, "I only understand 'does not contain' here.")
	case "of":
		return tok(token.BelongingOperator, "")
	case "its":
		l.skipSpace()
		if l.peek(0) == '(' {
			l.pos = start + 3
			return tok(token.ItsOperator, "")
		}
		name := l.word()
		if name == "" {
			return l.errorf(start, l.pos, "I need a property name after 'its'.")
		}
		return tok(token.ItsProperty, name)
	}
	if t, ok := keywords[lower]; ok {
		return tok(t, lower)
	}
	if id, ok := identifiers[lower]; ok {
		return tok(token.Identifier, id)
	}
	if isNumber(w) {
		// a decimal point continues the literal
		if l.peek(0) == '.' && '0' <= l.peek(1) && l.peek(1) <= '9' {
			l.pos++
			l.word()
		}
		return tok(token.Number, l.src[start:l.pos])
	}
	if dt, ok := value.LookupDatatype(lower); ok {
		return tok(token.Datatype, dt.Name)
	}
	if hex, ok := namedColours[lower]; ok {
		return tok(token.Colour, hex)
	}
	return l.errorf(start, l.pos, "I don't understand the word '%s' here.", w)
}

func isNumber(w string) bool {
	for i := 0; i < len(w); i++ {
		if w[i] < '0' || w[i] > '9' {
			return false
		}
	}
	return w != ""
}

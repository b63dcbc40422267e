// Package token defines the syntax nodes the lexer hands to the evaluator.
package token

// Type tags a token.
type Type int

const (
	Invalid Type = iota

	// passage markup
	Text
	Hook

	// atoms
	Number
	String
	Boolean
	Colour
	Datatype
	Variable
	TempVariable
	Identifier
	Grouping
	Macro

	// property access
	Property           // 's name
	PossessiveOperator // 's (expr)
	ItsProperty        // its name
	ItsOperator        // its (expr)
	BelongingProperty  // name of
	BelongingOperator  // (expr) of

	// operators
	Comma
	Spread
	To
	Into
	TypeSignature
	Where
	When
	Via
	Each
	And
	Or
	Is
	IsNot
	Contains
	DoesNotContain
	IsIn
	IsNotIn
	IsA
	IsNotA
	Inequality
	Addition
	Subtraction
	Multiplication
	Division
	Not
	Sign

	Error
)

var names = map[Type]string{
	Invalid:            "invalid",
	Text:               "text",
	Hook:               "hook",
	Number:             "number",
	String:             "string",
	Boolean:            "boolean",
	Colour:             "colour",
	Datatype:           "datatype",
	Variable:           "variable",
	TempVariable:       "temp variable",
	Identifier:         "identifier",
	Grouping:           "grouping",
	Macro:              "macro call",
	Property:           "'s property",
	PossessiveOperator: "'s",
	ItsProperty:        "its property",
	ItsOperator:        "its",
	BelongingProperty:  "of property",
	BelongingOperator:  "of",
	Comma:              ",",
	Spread:             "...",
	To:                 "to",
	Into:               "into",
	TypeSignature:      "-type",
	Where:              "where",
	When:               "when",
	Via:                "via",
	Each:               "each",
	And:                "and",
	Or:                 "or",
	Is:                 "is",
	IsNot:              "is not",
	Contains:           "contains",
	DoesNotContain:     "does not contain",
	IsIn:               "is in",
	IsNotIn:            "is not in",
	IsA:                "is a",
	IsNotA:             "is not a",
	Inequality:         "inequality",
	Addition:           "+",
	Subtraction:        "-",
	Multiplication:     "*",
	Division:           "/",
	Not:                "not",
	Sign:               "sign",
	Error:              "error",
}

func (t Type) String() string {
	if s, ok := names[t]; ok {
		return s
	}
	return "unknown"
}

// Token is one syntax node. Start and End are byte offsets into the source the
// token was lexed from; Children holds the contents of groupings, macro calls and
// hooks.
type Token struct {
	Type Type
	// Text is the raw source text of the token.
	Text string
	// Name carries the decoded payload: a variable or macro name, a property
	// name, a string literal's contents, or an inequality operator.
	Name     string
	Start    int
	End      int
	Children []Token
	// Hook is the hook attached directly after a macro call, if any.
	Hook *Token
	// Callee holds the variable token of a variable-named macro call like ($m: 1).
	Callee *Token
}

// Span returns the start of the first token and end of the last one.
func Span(tokens []Token) (int, int) {
	if len(tokens) == 0 {
		return 0, 0
	}
	return tokens[0].Start, tokens[len(tokens)-1].End
}

// IsOperator reports whether a token of this type joins operands rather than
// being one. The lexer uses it to decide whether + and - are unary.
func (t Type) IsOperator() bool {
	return t >= Comma && t < Error
}

package eval

import (
	"slices"

	"github.com/rcliao/passage/internal/token"
)

// shape is which neighbours an operator token needs.
type shape int

const (
	none shape = 1 << iota
	before
	after
	both
)

// class is one precedence level. Left-associative classes split at their
// rightmost token so it is applied last; right-associative ones at the
// leftmost.
type class struct {
	types []token.Type
	right bool
}

// precedence runs from loosest to tightest binding.
var precedence = []class{
	{types: []token.Type{token.Comma}},
	{types: []token.Type{token.Spread}, right: true},
	{types: []token.Type{token.To, token.Into}},
	{types: []token.Type{token.TypeSignature}, right: true},
	{types: []token.Type{token.Where, token.When, token.Via}},
	{types: []token.Type{token.Each}, right: true},
	{types: []token.Type{token.And, token.Or}},
	{types: []token.Type{token.Is, token.IsNot}},
	{types: []token.Type{token.Contains, token.DoesNotContain, token.IsIn, token.IsNotIn, token.IsA, token.IsNotA}},
	{types: []token.Type{token.Inequality}},
	{types: []token.Type{token.Addition, token.Subtraction}},
	{types: []token.Type{token.Multiplication, token.Division}},
	{types: []token.Type{token.Not}, right: true},
	{types: []token.Type{token.Sign}, right: true},
	{types: []token.Type{token.BelongingProperty, token.BelongingOperator}, right: true},
	{types: []token.Type{token.Property, token.PossessiveOperator, token.ItsProperty, token.ItsOperator}},
}

var shapes = map[token.Type]shape{
	token.Comma:              both,
	token.Spread:             after,
	token.To:                 both,
	token.Into:               both,
	token.TypeSignature:      after,
	token.Where:              both | after,
	token.When:               both | after,
	token.Via:                both | after,
	token.Each:               after,
	token.And:                both,
	token.Or:                 both,
	token.Is:                 both,
	token.IsNot:              both,
	token.Contains:           both,
	token.DoesNotContain:     both,
	token.IsIn:               both,
	token.IsNotIn:            both,
	token.IsA:                both,
	token.IsNotA:             both,
	token.Inequality:         both,
	token.Addition:           both,
	token.Subtraction:        both,
	token.Multiplication:     both,
	token.Division:           both,
	token.Not:                after,
	token.Sign:               after,
	token.BelongingProperty:  after,
	token.BelongingOperator:  both,
	token.Property:           before,
	token.PossessiveOperator: both,
	token.ItsProperty:        none,
	token.ItsOperator:        after,
}

func shapeOf(nBefore, nAfter int) shape {
	switch {
	case nBefore == 0 && nAfter == 0:
		return none
	case nAfter == 0:
		return before
	case nBefore == 0:
		return after
	}
	return both
}

// split finds the operator token applied last in toks.
func split(toks []token.Token) (int, bool) {
	for _, c := range precedence {
		found := -1
		for i, t := range toks {
			if !slices.Contains(c.types, t.Type) {
				continue
			}
			found = i
			if c.right {
				break
			}
		}
		if found >= 0 {
			return found, true
		}
	}
	return -1, false
}

package eval

import (
	"strings"

	"github.com/rcliao/passage/internal/token"
	"github.com/rcliao/passage/internal/value"
	"github.com/rcliao/passage/internal/varref"
)

func (e *evaluator) operator(op token.Token, lhs, rhs []token.Token) result {
	switch op.Type {
	case token.Comma:
		return errorf(value.SyntaxError, "Commas can only separate the values given to a macro.")
	case token.Spread:
		r := e.eval(rhs)
		v := e.deref(r)
		if err := value.FirstError(v); err != nil {
			return valueOf(err)
		}
		return result{val: v, spread: true}
	case token.To:
		return e.assign(lhs, rhs, "to")
	case token.Into:
		return e.assign(rhs, lhs, "into")
	case token.TypeSignature:
		return e.typeSignature(op, rhs)
	case token.Where, token.When, token.Via:
		return e.lambda(op, lhs, rhs)
	case token.Each:
		return e.lambda(op, nil, rhs)
	case token.And, token.Or:
		return e.logical(op, lhs, rhs)
	case token.Is, token.IsNot, token.Contains, token.DoesNotContain,
		token.IsIn, token.IsNotIn, token.IsA, token.IsNotA, token.Inequality:
		return e.comparison(op, lhs, rhs)
	case token.Addition, token.Subtraction, token.Multiplication, token.Division:
		l, r := e.deref(e.eval(lhs)), e.deref(e.eval(rhs))
		if err := value.FirstError(l, r); err != nil {
			return valueOf(err)
		}
		switch op.Type {
		case token.Addition:
			return valueOf(value.Add(l, r))
		case token.Subtraction:
			return valueOf(value.Subtract(l, r))
		case token.Multiplication:
			return valueOf(value.Multiply(l, r))
		}
		return valueOf(value.Divide(l, r))
	case token.Not:
		v := e.deref(e.eval(rhs))
		b, err := value.Truthy(v, "The value after 'not'")
		if err != nil {
			return valueOf(err)
		}
		return valueOf(value.Boolean(!b))
	case token.Sign:
		v := e.deref(e.eval(rhs))
		if err := value.FirstError(v); err != nil {
			return valueOf(err)
		}
		n, ok := v.(value.Number)
		if !ok {
			return errorf(value.TypeError, "I can't put a '%s' sign before %s.", op.Text, value.Describe(v))
		}
		if op.Name == "-" {
			n = -n
		}
		return valueOf(n)
	case token.BelongingProperty:
		return e.property(e.eval(rhs), value.String(op.Name))
	case token.BelongingOperator:
		key := e.deref(e.eval(lhs))
		return e.property(e.eval(rhs), key)
	case token.Property:
		return e.property(e.eval(lhs), value.String(op.Name))
	case token.PossessiveOperator:
		container := e.eval(lhs)
		key := e.deref(e.eval(rhs))
		return e.property(container, key)
	case token.ItsProperty:
		return e.property(e.it(), value.String(op.Name))
	case token.ItsOperator:
		return e.property(e.it(), e.deref(e.eval(rhs)))
	}
	panic(Impossible{Where: "operator", What: "unhandled operator " + op.Type.String()})
}

func (e *evaluator) it() result {
	e.env.MarkImpure()
	if e.env.It == nil {
		return valueOf(value.Number(0))
	}
	return valueOf(e.env.It)
}

// property extends a reference by one key. Transient containers get a
// read-only reference so later writes report "not stored in a variable".
func (e *evaluator) property(container result, key value.Value) result {
	if err := value.FirstError(key); err != nil {
		return valueOf(err)
	}
	ref := container.ref
	if ref == nil {
		if err := value.FirstError(container.val); err != nil {
			return valueOf(err)
		}
		ref = varref.Transient(container.val)
	}
	return result{ref: ref.Property(key, e.env.RNG)}
}

func (e *evaluator) typeSignature(op token.Token, rhs []token.Token) result {
	if !e.typed {
		return errorf(value.SyntaxError, "A type signature like '%s' can only go before a variable being set.", op.Text)
	}
	dt, ok := value.LookupDatatype(op.Name)
	if !ok {
		return errorf(value.SyntaxError, "'%s' isn't a datatype.", op.Name)
	}
	r := e.eval(rhs)
	if r.ref == nil {
		return errorf(value.SyntaxError, "A type signature must be followed by a variable, not %s.", value.Describe(e.deref(r)))
	}
	restricted, err := r.ref.Restrict(dt)
	if err != nil {
		return valueOf(err)
	}
	return result{ref: restricted}
}

func (e *evaluator) lambda(op token.Token, lhs, rhs []token.Token) result {
	param := "it"
	switch {
	case len(lhs) == 1 && lhs[0].Type == token.TempVariable:
		param = lhs[0].Name
	case len(lhs) == 2 && lhs[0].Type == token.Each && lhs[1].Type == token.TempVariable:
		param = lhs[1].Name
	case len(lhs) > 0:
		return errorf(value.SyntaxError, "A '%s' lambda needs a temp variable before it, like _item %s ...", op.Text, op.Text)
	}
	if op.Type == token.Each {
		if len(rhs) != 1 || rhs[0].Type != token.TempVariable {
			return errorf(value.SyntaxError, "'each' must be followed by a temp variable, like 'each _item'.")
		}
		param = rhs[0].Name
		rhs = nil
	}
	start := op.Start
	if len(lhs) > 0 {
		start = lhs[0].Start
	}
	end := op.End
	if len(rhs) > 0 {
		end = rhs[len(rhs)-1].End
	}
	return valueOf(&value.Lambda{
		Param:  param,
		Clause: strings.ToLower(op.Text),
		Body:   rhs,
		Source: sourceSpan(e.env.Source, start, end, lhs, op, rhs),
	})
}

// sourceSpan recovers the lambda's text, from the passage source if the
// tokens came from it, otherwise by joining token texts.
func sourceSpan(src string, start, end int, lhs []token.Token, op token.Token, rhs []token.Token) string {
	var parts []string
	for _, t := range lhs {
		parts = append(parts, t.Text)
	}
	parts = append(parts, op.Text)
	for _, t := range rhs {
		parts = append(parts, t.Text)
	}
	joined := strings.Join(parts, " ")
	if end <= len(src) && start < end && strings.HasPrefix(src[start:end], lhsText(lhs, op)) {
		return src[start:end]
	}
	return joined
}

func lhsText(lhs []token.Token, op token.Token) string {
	if len(lhs) > 0 {
		return lhs[0].Text
	}
	return op.Text
}

// logical evaluates `and`/`or`, filling in an elided comparison when one
// side is a bare comparison and the other a non-boolean value.
func (e *evaluator) logical(op token.Token, lhs, rhs []token.Token) result {
	left := e.eval(lhs)
	lv := e.deref(left)
	if err := value.FirstError(lv); err != nil {
		return valueOf(err)
	}
	right := e.eval(rhs)
	rv := e.deref(right)
	if err := value.FirstError(rv); err != nil {
		return valueOf(err)
	}

	cmp := left.cmp
	_, lbool := lv.(value.Boolean)
	_, rbool := rv.(value.Boolean)
	switch {
	case !rbool && left.cmp != nil:
		elided := e.elide(left.cmp, rv)
		if err := value.FirstError(elided); err != nil {
			return valueOf(err)
		}
		rv = elided
	case !lbool && right.cmp != nil:
		rev, err := reverse(right.cmp)
		if err != nil {
			return valueOf(err)
		}
		elided := e.elide(rev, lv)
		if err := value.FirstError(elided); err != nil {
			return valueOf(err)
		}
		lv = elided
		cmp = rev
	}
	if cmp == nil {
		cmp = right.cmp
	}

	lb, err := value.Truthy(lv, "The value before '"+op.Text+"'")
	if err != nil {
		return valueOf(err)
	}
	rb, err := value.Truthy(rv, "The value after '"+op.Text+"'")
	if err != nil {
		return valueOf(err)
	}
	out := lb && rb
	if op.Type == token.Or {
		out = lb || rb
	}
	return result{val: value.Boolean(out), cmp: cmp}
}

// elide applies cmp's operator between its left operand and v.
func (e *evaluator) elide(cmp *comparison, v value.Value) value.Value {
	if cmp.op == token.IsNot {
		return value.Errorf(value.SyntaxError, "I can't tell what 'is not' should be compared to on the other side of this 'and'/'or'.").
			Explain("'$a is not 3 or 4' is ambiguous. Write it out in full, like '$a is not 3 and $a is not 4'.")
	}
	return compare(cmp.op, cmp.ineq, cmp.left, v)
}

// reverse swaps a comparison's operands, inverting its operator.
func reverse(cmp *comparison) (*comparison, *value.Error) {
	out := &comparison{op: cmp.op, ineq: cmp.ineq, left: cmp.right, right: cmp.left}
	switch cmp.op {
	case token.Is:
	case token.IsNot:
		return nil, value.Errorf(value.SyntaxError, "I can't tell what 'is not' should be compared to on the other side of this 'and'/'or'.")
	case token.Contains:
		out.op = token.IsIn
	case token.DoesNotContain:
		out.op = token.IsNotIn
	case token.IsIn:
		out.op = token.Contains
	case token.IsNotIn:
		out.op = token.DoesNotContain
	case token.Inequality:
		out.ineq = map[string]string{"<": ">", ">": "<", "<=": ">=", ">=": "<="}[cmp.ineq]
	default:
		return nil, value.Errorf(value.SyntaxError, "I can't infer a comparison from '%s' on the other side of this 'and'/'or'.", cmp.op)
	}
	return out, nil
}

func (e *evaluator) comparison(op token.Token, lhs, rhs []token.Token) result {
	lv := e.deref(e.eval(lhs))
	if err := value.FirstError(lv); err != nil {
		return valueOf(err)
	}
	prevIt := e.env.It
	e.env.It = lv
	rv := e.deref(e.eval(rhs))
	e.env.It = prevIt
	if err := value.FirstError(rv); err != nil {
		return valueOf(err)
	}
	v := compare(op.Type, op.Name, lv, rv)
	return result{val: v, cmp: &comparison{op: op.Type, ineq: op.Name, left: lv, right: rv}}
}

// compare applies a comparison operator, distributing over determiners.
func compare(op token.Type, ineq string, l, r value.Value) value.Value {
	if d, ok := l.(value.Determiner); ok {
		if _, ok := r.(value.Determiner); ok {
			return value.Errorf(value.OperationError, "I can't compare two determiners like '%s' and '%s' to each other.", d.Kind, r.(value.Determiner).Kind)
		}
		return distribute(d, func(x value.Value) value.Value { return compare(op, ineq, x, r) })
	}
	if d, ok := r.(value.Determiner); ok {
		return distribute(d, func(x value.Value) value.Value { return compare(op, ineq, l, x) })
	}

	var (
		b   bool
		err *value.Error
	)
	switch op {
	case token.Is:
		b = value.Equal(l, r)
	case token.IsNot:
		b = !value.Equal(l, r)
	case token.Contains:
		b, err = value.Contains(l, r)
	case token.DoesNotContain:
		b, err = value.Contains(l, r)
		b = !b
	case token.IsIn:
		b, err = value.Contains(r, l)
	case token.IsNotIn:
		b, err = value.Contains(r, l)
		b = !b
	case token.IsA, token.IsNotA:
		dt, ok := r.(value.Datatype)
		if !ok {
			return value.Errorf(value.TypeError, "'is a' needs a datatype after it, not %s.", value.Describe(r))
		}
		b = dt.Check(l)
		if op == token.IsNotA {
			b = !b
		}
	case token.Inequality:
		b, err = value.Compare(ineq, l, r)
	default:
		panic(Impossible{Where: "compare", What: "not a comparison: " + op.String()})
	}
	if err != nil {
		return err
	}
	return value.Boolean(b)
}

func distribute(d value.Determiner, f func(value.Value) value.Value) value.Value {
	items, ok := value.Sequence(d.Seq)
	if !ok {
		return value.Errorf(value.TypeError, "I can't use '%s' of %s.", d.Kind, value.Describe(d.Seq))
	}
	switch d.Kind {
	case "start", "end":
		if len(items) == 0 {
			return value.Errorf(value.PropertyError, "There's no '%s' of %s.", d.Kind, value.Describe(d.Seq))
		}
		if d.Kind == "start" {
			return f(items[0])
		}
		return f(items[len(items)-1])
	case "any", "all":
		all := d.Kind == "all"
		for _, x := range items {
			v := f(x)
			b, err := value.Truthy(v, "The comparison")
			if err != nil {
				return err
			}
			if b != all {
				return value.Boolean(b)
			}
		}
		return value.Boolean(all)
	}
	panic(Impossible{Where: "distribute", What: "unknown determiner " + d.Kind})
}

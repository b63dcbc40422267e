package eval

import (
	"encoding/hex"
	"maps"

	"golang.org/x/crypto/blake2b"

	"github.com/rcliao/passage/internal/token"
	"github.com/rcliao/passage/internal/value"
	"github.com/rcliao/passage/internal/varref"
)

// Assignment is what `$a to 1` and `1 into $a` evaluate to. The assignment
// macros carry it out.
type Assignment struct {
	Dest     *varref.Reference
	Src      value.Value
	Operator string // "to" or "into"
	// Ref, when set, is a compact recipe for Src that the timeline saves
	// instead of the value.
	Ref *value.Ref
	// From is the source place of an `into`, which (move:) empties.
	From *varref.Reference
}

func (*Assignment) TypeName() string { return "assignment" }

// Execute performs the assignment.
func (a *Assignment) Execute() *value.Error {
	return a.Dest.Set(a.Src, a.Ref)
}

// refThreshold is the shortest printed string worth replacing with a ref.
const refThreshold = 64

// SpanHash is the content hash a span ref records and checks.
func SpanHash(src string) string {
	sum := blake2b.Sum256([]byte(src))
	return hex.EncodeToString(sum[:8])
}

func (e *evaluator) assign(destToks, srcToks []token.Token, op string) result {
	// `into` evaluates its source first, as written.
	var (
		srcRes result
		src    value.Value
		t      *tracker
		seed   string
		iter   int
	)
	evalSource := func(it value.Value) {
		t = e.env.beginTrack()
		seed, iter = e.env.RNG.Snapshot()
		prevIt := e.env.It
		if it != nil {
			e.env.It = it
		}
		srcRes = e.eval(srcToks)
		src = e.deref(srcRes)
		e.env.It = prevIt
		e.env.endTrack(t)
	}

	if op == "into" {
		evalSource(nil)
	}
	dest := (&evaluator{env: e.env, typed: true}).eval(destToks)
	if dest.ref == nil {
		if err := value.FirstError(dest.val); err != nil {
			return valueOf(err)
		}
		return errorf(value.AssignmentError, "I can't store a value in %s, because it isn't a variable.", value.Describe(dest.val))
	}
	if err := dest.ref.Err(); err != nil {
		return valueOf(err)
	}
	if op == "to" {
		cur := dest.ref.Get()
		if _, isErr := cur.(*value.Error); isErr {
			cur = nil
		}
		evalSource(cur)
	}
	if err := value.FirstError(src); err != nil {
		return valueOf(err)
	}
	if srcRes.spread {
		return errorf(value.SyntaxError, "A spread '...' can't be assigned to a variable.")
	}
	_, after := e.env.RNG.Snapshot()
	a := &Assignment{Dest: dest.ref, Src: src, Operator: op}
	if op == "into" {
		a.From = srcRes.ref
	}
	a.Ref = e.valueRef(dest.ref, srcToks, src, t, seed, iter, after != iter)
	return valueOf(a)
}

// valueRef builds a compact recipe for an assignment's value, or returns nil
// when the value can't be re-derived from source alone.
func (e *evaluator) valueRef(dest *varref.Reference, srcToks []token.Token, v value.Value, t *tracker, seed string, iter int, drew bool) *value.Ref {
	if !dest.TopLevel() || dest.Store() != e.env.Globals {
		return nil
	}
	if t.impure || t.globals || !worthRef(v) {
		return nil
	}
	from, to := token.Span(srcToks)
	if len(t.temps) == 0 && e.env.Passage != "" && from < to && to <= len(e.env.Source) {
		ref := &value.Ref{At: e.env.Passage, From: from, To: to, Hash: SpanHash(e.env.Source[from:to])}
		if drew {
			ref.Seed, ref.SeedIter, ref.HasSeed = seed, iter, true
		}
		if len(t.blocked) > 0 {
			ref.BlockedValues = append([]value.Value(nil), t.blocked...)
		}
		return ref
	}
	cmd, ok := v.(*value.Command)
	if !ok || drew || len(t.blocked) > 0 || len(srcToks) != 1 {
		return nil
	}
	call := srcToks[0]
	if call.Type != token.Macro || call.Callee != nil {
		return nil
	}
	text := call.Text
	if call.Hook != nil {
		text = text[:call.Hook.Start-call.Start]
	}
	ref := &value.Ref{Changer: text}
	if len(t.temps) > 0 {
		ref.Variables = maps.Clone(t.temps)
	}
	if cmd.HasHook {
		ref.Hook, ref.HasHook = cmd.Hook, true
	}
	return ref
}

// worthRef reports whether a ref would be smaller than the printed value.
func worthRef(v value.Value) bool {
	switch v := v.(type) {
	case value.Number, value.Boolean:
		return false
	case value.String:
		return len(v) > refThreshold
	}
	return true
}

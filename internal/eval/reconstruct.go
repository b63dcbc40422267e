package eval

import (
	"fmt"

	"github.com/rcliao/passage/internal/lexer"
	"github.com/rcliao/passage/internal/rng"
	"github.com/rcliao/passage/internal/value"
	"github.com/rcliao/passage/internal/varref"
)

// SourceLookup returns a passage's current source text.
type SourceLookup func(passage string) (string, bool)

// FindSpan locates the span a ref recorded. If the text at the recorded
// offsets no longer hashes the same, every same-length span is tried.
func FindSpan(src string, from, to int, hash string) (int, int, bool) {
	if from >= 0 && from < to && to <= len(src) && SpanHash(src[from:to]) == hash {
		return from, to, true
	}
	n := to - from
	if n <= 0 {
		return 0, 0, false
	}
	for i := 0; i+n <= len(src); i++ {
		if SpanHash(src[i:i+n]) == hash {
			return i, i + n, true
		}
	}
	return 0, 0, false
}

// Reconstruct rebuilds the value a span or composite ref stands for. Via
// refs depend on earlier turns and are resolved by the timeline.
func Reconstruct(parent *Env, ref *value.Ref, lookup SourceLookup) (value.Value, error) {
	env := &Env{
		Globals: varref.NewStore(varref.Global),
		Temps:   varref.NewStore(varref.Temp),
		Macros:  parent.Macros,
		Clock:   parent.Clock,
		Started: parent.Started,
		Logger:  parent.Logger,
		It:      value.Number(0),
	}
	switch ref.Kind() {
	case value.RefSpan:
		src, ok := lookup(ref.At)
		if !ok {
			return nil, fmt.Errorf("passage %q no longer exists", ref.At)
		}
		from, to, ok := FindSpan(src, ref.From, ref.To, ref.Hash)
		if !ok {
			return nil, fmt.Errorf("no text in passage %q matches hash %s", ref.At, ref.Hash)
		}
		if ref.HasSeed {
			env.RNG = rng.New(ref.Seed)
			env.RNG.Restore(ref.Seed, ref.SeedIter)
		} else {
			env.RNG = parent.RNG.Fork()
		}
		env.Passage = ref.At
		env.Resolved = append([]value.Value(nil), ref.BlockedValues...)
		return settle(env, src[from:to])
	case value.RefComposite:
		env.RNG = parent.RNG.Fork()
		for name, v := range ref.Variables {
			if err := env.Temps.Set(name, v, nil); err != nil {
				return nil, fmt.Errorf("restore _%s: %w", name, err)
			}
		}
		v, err := settle(env, ref.Changer)
		if err != nil {
			return nil, err
		}
		cmd, ok := v.(*value.Command)
		if !ok {
			return nil, fmt.Errorf("%q made %s, not a command", ref.Changer, value.Describe(v))
		}
		if ref.HasHook {
			cmd = cmd.WithHook(ref.Hook)
		}
		return cmd, nil
	}
	return nil, fmt.Errorf("a via ref can't be rebuilt without its previous value")
}

func settle(env *Env, src string) (value.Value, error) {
	env.Source = src
	v := Evaluate(env, lexer.LexExpression(src), Mode{}).Value
	if env.Frame.Blocked {
		return nil, fmt.Errorf("%q waited for an answer that was not recorded", src)
	}
	if err := value.FirstError(v); err != nil {
		return nil, fmt.Errorf("evaluate %q: %w", src, err)
	}
	return v, nil
}

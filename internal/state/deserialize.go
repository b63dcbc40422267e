package state

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/rcliao/passage/internal/eval"
	"github.com/rcliao/passage/internal/rng"
	"github.com/rcliao/passage/internal/value"
	"github.com/rcliao/passage/internal/varref"
)

// Deserialize replaces the timeline with one decoded from data. The last
// moment becomes the present. On any error the state is left unchanged.
func (s *State) Deserialize(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if len(raw) == 0 {
		return fmt.Errorf("%w: no moments", ErrMalformed)
	}

	moments := make([]*Moment, len(raw))
	vars := map[string]value.Value{}
	types := map[string]value.Datatype{}
	seed, iter := s.present.Seed, s.present.SeedIter
	for i, r := range raw {
		m, err := s.decodeMoment(r, seed, iter, vars)
		if err != nil {
			return fmt.Errorf("moment %d: %w", i, err)
		}
		seed, iter = m.Seed, m.SeedIter
		apply(vars, types, m)
		moments[i] = m
	}

	last := len(moments) - 1
	s.timeline = moments[:last]
	s.present = moments[last]
	s.recent = last - 1
	s.encoded = nil
	s.globals.Load(vars, types)
	s.rebuildHistory()
	s.rng.Restore(s.present.Seed, s.present.SeedIter)
	s.log.Info("timeline loaded", "passage", s.present.Passage, "turns", s.Turns())
	if s.hooks.OnLoad != nil {
		s.hooks.OnLoad(s.present.Passage)
	}
	return nil
}

// decodeMoment decodes one element. vars is the fold of the moments before
// it, which via refs are applied to.
func (s *State) decodeMoment(r json.RawMessage, seed string, iter int, vars map[string]value.Value) (*Moment, error) {
	r = bytes.TrimSpace(r)
	if len(r) > 0 && r[0] == '"' {
		var name string
		if err := json.Unmarshal(r, &name); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		if err := s.checkPassage(name); err != nil {
			return nil, err
		}
		return newMoment(name, seed, iter), nil
	}

	var mj momentJSON
	if err := json.Unmarshal(r, &mj); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if err := s.checkPassage(mj.Passage); err != nil {
		return nil, err
	}
	for _, v := range mj.Visits {
		if err := s.checkPassage(v); err != nil {
			return nil, err
		}
	}
	if mj.Seed != nil {
		seed = *mj.Seed
	}
	if mj.SeedIter != nil {
		iter = *mj.SeedIter
	}
	if mj.Turns < 0 || mj.MockTurns < 0 || mj.ForgetVisits < 0 || iter < 0 {
		return nil, fmt.Errorf("%w: negative count", ErrMalformed)
	}
	if iter > rng.MaxDraws {
		return nil, fmt.Errorf("%w: seedIter %d is over %d", ErrMalformed, iter, rng.MaxDraws)
	}
	m := newMoment(mj.Passage, seed, iter)
	m.Visits = mj.Visits
	m.Turns = mj.Turns
	m.MockVisits = mj.MockVisits
	m.MockTurns = mj.MockTurns
	m.ForgetVisits = mj.ForgetVisits
	for _, b := range mj.Answers {
		v, _, err := s.decodeVariable(b, nil)
		if err != nil {
			return nil, err
		}
		if v == nil {
			return nil, fmt.Errorf("%w: null answer in %q", ErrMalformed, mj.Passage)
		}
		m.Answers = append(m.Answers, v)
	}

	for _, name := range sortedNames(mj.Variables) {
		b := mj.Variables[name]
		if name == typesKey {
			if err := decodeTypes(b, m); err != nil {
				return nil, err
			}
			continue
		}
		v, ref, err := s.decodeVariable(b, vars[name])
		if err != nil {
			return nil, fmt.Errorf("$%s: %w", name, err)
		}
		m.Variables[name] = v
		if ref != nil {
			m.Refs[name] = ref
		}
	}
	return m, nil
}

func (s *State) checkPassage(name string) error {
	if name == "" {
		return fmt.Errorf("%w: moment without a passage", ErrMalformed)
	}
	if s.story != nil && !s.story.Has(name) {
		return fmt.Errorf("%w: %q", ErrMissingPassage, name)
	}
	return nil
}

func decodeTypes(b json.RawMessage, m *Moment) error {
	var names map[string]string
	if err := json.Unmarshal(b, &names); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMalformed, typesKey, err)
	}
	for name, tn := range names {
		t, ok := value.LookupDatatype(tn)
		if !ok {
			return fmt.Errorf("%w: unknown datatype %q for $%s", ErrMalformed, tn, name)
		}
		m.TypeDefs[name] = t
	}
	return nil
}

// decodeVariable returns nil for a tombstone. prior is the variable's value
// before this moment.
func (s *State) decodeVariable(b json.RawMessage, prior value.Value) (value.Value, *value.Ref, error) {
	var lit any
	if err := json.Unmarshal(b, &lit); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	switch lit := lit.(type) {
	case nil:
		return nil, nil, nil
	case float64:
		return value.Number(lit), nil, nil
	case string:
		return value.String(lit), nil, nil
	case bool:
		return value.Boolean(lit), nil, nil
	case map[string]any:
	default:
		return nil, nil, fmt.Errorf("%w: unexpected %T", ErrMalformed, lit)
	}

	var w wireValue
	if err := json.Unmarshal(b, &w); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	switch {
	case w.Value != nil:
		v, err := s.evaluate(*w.Value, nil)
		return v, nil, err
	case w.Via != "":
		if prior == nil {
			return nil, nil, fmt.Errorf("%w: via %q has no previous value", ErrUnreconstructable, w.Via)
		}
		v, err := s.evaluate(w.Via, prior)
		return v, &value.Ref{Via: w.Via}, err
	case w.Changer != "":
		ref := &value.Ref{Changer: w.Changer}
		if w.Hook != nil {
			ref.Hook, ref.HasHook = *w.Hook, true
		}
		if len(w.Variables) > 0 {
			ref.Variables = map[string]value.Value{}
			for _, name := range sortedNames(w.Variables) {
				tv, _, err := s.decodeVariable(w.Variables[name], nil)
				if err != nil {
					return nil, nil, err
				}
				ref.Variables[name] = tv
			}
		}
		return s.rebuild(ref)
	case w.At != "":
		if w.SeedIter < 0 || w.SeedIter > rng.MaxDraws {
			return nil, nil, fmt.Errorf("%w: seedIter %d out of range", ErrMalformed, w.SeedIter)
		}
		ref := &value.Ref{At: w.At, From: w.From, To: w.To, Hash: w.Hash, SeedIter: w.SeedIter}
		if w.Seed != nil {
			ref.Seed, ref.HasSeed = *w.Seed, true
		}
		for _, bb := range w.BlockedValues {
			bv, _, err := s.decodeVariable(bb, nil)
			if err != nil {
				return nil, nil, err
			}
			ref.BlockedValues = append(ref.BlockedValues, bv)
		}
		return s.rebuild(ref)
	}
	return nil, nil, fmt.Errorf("%w: object is neither a value nor a ref", ErrMalformed)
}

func (s *State) rebuild(ref *value.Ref) (value.Value, *value.Ref, error) {
	lookup := func(name string) (string, bool) {
		if s.story == nil {
			return "", false
		}
		return s.story.Source(name)
	}
	v, err := eval.Reconstruct(s.Env(), ref, lookup)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrUnreconstructable, err)
	}
	return v, ref, nil
}

// evaluate runs saved source, with `it` reading it when set.
func (s *State) evaluate(src string, it value.Value) (value.Value, error) {
	env := s.Env()
	env.Globals = varref.NewStore(varref.Global)
	env.RNG = s.rng.Fork()
	env.Source = src
	env.Passage = ""
	if it != nil {
		env.It = it
	}
	v := eval.Expression(env, src)
	if env.Frame.Blocked {
		return nil, fmt.Errorf("%w: %q waits for an answer", ErrUnreconstructable, src)
	}
	if err := value.FirstError(v); err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrUnreconstructable, src, err)
	}
	if !value.Storable(v) {
		return nil, fmt.Errorf("%w: %q made %s", ErrUnreconstructable, src, value.Describe(v))
	}
	return v, nil
}

package state

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"

	"github.com/rcliao/passage/internal/value"
)

// typesKey holds type restrictions inside a moment's variables object. It
// can't collide with a variable name.
const typesKey = "@types"

type momentJSON struct {
	Passage      string                     `json:"passage"`
	Variables    map[string]json.RawMessage `json:"variables,omitempty"`
	Visits       []string                   `json:"visits,omitempty"`
	Turns        int                        `json:"turns,omitempty"`
	MockVisits   []string                   `json:"mockVisits,omitempty"`
	MockTurns    int                        `json:"mockTurns,omitempty"`
	ForgetVisits int                        `json:"forgetVisits,omitempty"`
	Seed         *string                    `json:"seed,omitempty"`
	SeedIter     *int                       `json:"seedIter,omitempty"`
	Answers      []json.RawMessage          `json:"answers,omitempty"`
}

// wireValue is the object form of a saved variable: either a printed value
// or one of the ref recipes.
type wireValue struct {
	Value *string `json:"value,omitempty"`

	At            string            `json:"at,omitempty"`
	From          int               `json:"from,omitempty"`
	To            int               `json:"to,omitempty"`
	Hash          string            `json:"hash,omitempty"`
	Seed          *string           `json:"seed,omitempty"`
	SeedIter      int               `json:"seedIter,omitempty"`
	BlockedValues []json.RawMessage `json:"blockedValues,omitempty"`

	Via string `json:"via,omitempty"`

	Changer   string                     `json:"changer,omitempty"`
	Hook      *string                    `json:"hook,omitempty"`
	Variables map[string]json.RawMessage `json:"variables,omitempty"`
}

// Serialize encodes the past and the present as a JSON array, one element
// per moment. The future left by a rewind is not saved. Encodings of past
// moments are cached, so saving every turn costs only the newest moments.
func (s *State) Serialize() ([]byte, error) {
	for i := len(s.encoded); i <= s.recent; i++ {
		b, err := s.encodeMoment(i)
		if err != nil {
			return nil, err
		}
		s.encoded = append(s.encoded, b)
	}
	present, err := s.encodeMoment(s.recent + 1)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	buf.WriteByte('[')
	for _, b := range s.encoded[:s.recent+1] {
		buf.Write(b)
		buf.WriteByte(',')
	}
	buf.Write(present)
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

func (s *State) truncateEncoded(from int) {
	if from < len(s.encoded) {
		s.encoded = s.encoded[:from]
	}
}

func (s *State) encodeMoment(i int) ([]byte, error) {
	m := s.momentAt(i)
	prevSeed, prevIter := "", -1
	if i > 0 {
		prev := s.momentAt(i - 1)
		prevSeed, prevIter = prev.Seed, prev.SeedIter
	}
	seedChanged := m.Seed != prevSeed || m.SeedIter != prevIter
	if m.bare() && !seedChanged {
		return json.Marshal(m.Passage)
	}

	out := momentJSON{
		Passage:      m.Passage,
		Visits:       m.Visits,
		Turns:        m.Turns,
		MockVisits:   m.MockVisits,
		MockTurns:    m.MockTurns,
		ForgetVisits: m.ForgetVisits,
	}
	if seedChanged {
		out.Seed, out.SeedIter = &m.Seed, &m.SeedIter
	}
	for _, a := range m.Answers {
		b, err := encodeValue(a)
		if err != nil {
			return nil, fmt.Errorf("encode answer in %q: %w", m.Passage, err)
		}
		out.Answers = append(out.Answers, b)
	}
	if len(m.Variables) > 0 || len(m.TypeDefs) > 0 {
		out.Variables = make(map[string]json.RawMessage, len(m.Variables)+1)
	}
	for name, v := range m.Variables {
		b, err := encodeVariable(v, m.Refs[name])
		if err != nil {
			return nil, fmt.Errorf("encode $%s in %q: %w", name, m.Passage, err)
		}
		out.Variables[name] = b
	}
	if len(m.TypeDefs) > 0 {
		types := make(map[string]string, len(m.TypeDefs))
		for name, t := range m.TypeDefs {
			types[name] = t.Name
		}
		b, err := json.Marshal(types)
		if err != nil {
			return nil, err
		}
		out.Variables[typesKey] = b
	}
	return json.Marshal(out)
}

func encodeVariable(v value.Value, ref *value.Ref) (json.RawMessage, error) {
	if v == nil {
		return json.RawMessage("null"), nil
	}
	if ref == nil {
		return encodeValue(v)
	}
	w := wireValue{}
	switch ref.Kind() {
	case value.RefVia:
		w.Via = ref.Via
	case value.RefComposite:
		w.Changer = ref.Changer
		if ref.HasHook {
			w.Hook = &ref.Hook
		}
		if len(ref.Variables) > 0 {
			w.Variables = map[string]json.RawMessage{}
			for name, tv := range ref.Variables {
				b, err := encodeValue(tv)
				if err != nil {
					return nil, err
				}
				w.Variables[name] = b
			}
		}
	default:
		w.At, w.From, w.To, w.Hash = ref.At, ref.From, ref.To, ref.Hash
		if ref.HasSeed {
			w.Seed, w.SeedIter = &ref.Seed, ref.SeedIter
		}
		for _, bv := range ref.BlockedValues {
			b, err := encodeValue(bv)
			if err != nil {
				return nil, err
			}
			w.BlockedValues = append(w.BlockedValues, b)
		}
	}
	return json.Marshal(w)
}

// encodeValue writes numbers, strings and booleans as JSON literals and
// everything else as its printed source.
func encodeValue(v value.Value) (json.RawMessage, error) {
	switch v := v.(type) {
	case value.Number:
		if !math.IsInf(float64(v), 0) && !math.IsNaN(float64(v)) {
			return json.Marshal(float64(v))
		}
	case value.String:
		return json.Marshal(string(v))
	case value.Boolean:
		return json.Marshal(bool(v))
	}
	src := value.Source(v)
	if src == "" {
		return nil, fmt.Errorf("%s can't be saved", value.Describe(v))
	}
	return json.Marshal(wireValue{Value: &src})
}

// sortedNames returns the keys of m in order, for stable decoding.
func sortedNames(m map[string]json.RawMessage) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

package state

import (
	"maps"
	"slices"

	"github.com/rcliao/passage/internal/value"
)

// Moment is one turn: the passage shown and what changed during it.
//
// A nil entry in Variables is a tombstone: the variable was deleted this
// turn. A name missing from Variables inherits its value from earlier turns.
type Moment struct {
	Passage   string
	Variables map[string]value.Value
	// Refs holds compact recipes for some of Variables, saved instead of the
	// values themselves.
	Refs     map[string]*value.Ref
	TypeDefs map[string]value.Datatype

	// Visits lists passages left by redirects during this turn, in order.
	Visits []string
	// Turns counts earlier turns folded into this moment by ForgetUndos.
	Turns      int
	MockVisits []string
	MockTurns  int
	// ForgetVisits is the turn number before which history queries ignore
	// visits. Zero forgets nothing.
	ForgetVisits int

	// Seed and SeedIter are the generator state at the start of the turn.
	Seed     string
	SeedIter int

	// Answers are the prompt answers the passage's render used, in order.
	Answers []value.Value
}

func newMoment(passage, seed string, iter int) *Moment {
	return &Moment{
		Passage:   passage,
		Variables: map[string]value.Value{},
		Refs:      map[string]*value.Ref{},
		TypeDefs:  map[string]value.Datatype{},
		Seed:      seed,
		SeedIter:  iter,
	}
}

func (m *Moment) clone() *Moment {
	cp := *m
	cp.Variables = maps.Clone(m.Variables)
	cp.Refs = maps.Clone(m.Refs)
	cp.TypeDefs = maps.Clone(m.TypeDefs)
	cp.Visits = slices.Clone(m.Visits)
	cp.MockVisits = slices.Clone(m.MockVisits)
	cp.Answers = slices.Clone(m.Answers)
	if cp.Variables == nil {
		cp.Variables = map[string]value.Value{}
	}
	if cp.Refs == nil {
		cp.Refs = map[string]*value.Ref{}
	}
	if cp.TypeDefs == nil {
		cp.TypeDefs = map[string]value.Datatype{}
	}
	return &cp
}

// bare reports whether the moment records nothing but its passage.
func (m *Moment) bare() bool {
	return len(m.Variables) == 0 && len(m.TypeDefs) == 0 && len(m.Visits) == 0 &&
		m.Turns == 0 && len(m.MockVisits) == 0 && m.MockTurns == 0 && m.ForgetVisits == 0 &&
		len(m.Answers) == 0
}

// fold applies the deltas of moments in order.
func fold(moments []*Moment) (map[string]value.Value, map[string]value.Datatype) {
	vars := map[string]value.Value{}
	types := map[string]value.Datatype{}
	for _, m := range moments {
		apply(vars, types, m)
	}
	return vars, types
}

func apply(vars map[string]value.Value, types map[string]value.Datatype, m *Moment) {
	for name, v := range m.Variables {
		if v == nil {
			delete(vars, name)
			continue
		}
		vars[name] = v
	}
	maps.Copy(types, m.TypeDefs)
}

// Package varref resolves property chains like `$a's 1st's name` into
// addressable locations and reads, writes, deletes and type-restricts them.
//
// Writes are copy-on-write: every container above the variable is cloned
// before it is changed, so any other holder of the old container keeps seeing
// the old contents.
package varref

import (
	"maps"
	"slices"

	"github.com/rcliao/passage/internal/value"
)

// Kind tags a Store as the story-wide globals or a scope of temp variables.
type Kind int

const (
	Global Kind = iota
	Temp
)

// Store maps variable names to values. Type definitions restrict what a name
// may later be set to.
type Store struct {
	kind  Kind
	vars  map[string]value.Value
	types map[string]value.Datatype

	// OnSet, OnDelete and OnDefineType observe successful mutations. The
	// timeline uses them to record each change into the present turn.
	OnSet        func(name string, v value.Value, ref *value.Ref)
	OnDelete     func(name string)
	OnDefineType func(name string, t value.Datatype)
}

// NewStore returns an empty store of the given kind.
func NewStore(kind Kind) *Store {
	return &Store{kind: kind, vars: map[string]value.Value{}, types: map[string]value.Datatype{}}
}

func (s *Store) Kind() Kind { return s.kind }

func (s *Store) sigil() string {
	if s.kind == Temp {
		return "_"
	}
	return "$"
}

// Get reads a variable. Unset globals read as 0; unset temps are an error.
func (s *Store) Get(name string) value.Value {
	if v, ok := s.vars[name]; ok {
		return v
	}
	if s.kind == Temp {
		return value.Errorf(value.PropertyError, "There isn't a temp variable named _%s in this place.", name).
			Explain("Temp variables only exist inside the passage or hook that set them.")
	}
	return value.Number(0)
}

// Lookup reads a variable without defaulting.
func (s *Store) Lookup(name string) (value.Value, bool) {
	v, ok := s.vars[name]
	return v, ok
}

func (s *Store) Has(name string) bool {
	_, ok := s.vars[name]
	return ok
}

// Set stores v under name after checking storability and any type restriction.
func (s *Store) Set(name string, v value.Value, ref *value.Ref) *value.Error {
	if e := value.FirstError(v); e != nil {
		return e
	}
	if !value.Storable(v) {
		return value.Errorf(value.AssignmentError, "%s can't be stored in %s%s.", value.Describe(v), s.sigil(), name)
	}
	if t, ok := s.types[name]; ok && !t.Check(v) {
		return value.Errorf(value.AssignmentError, "I can't set %s%s to %s because it's restricted to %s-type data.", s.sigil(), name, value.Describe(v), t.Name)
	}
	s.vars[name] = v
	if s.OnSet != nil {
		s.OnSet(name, v, ref)
	}
	return nil
}

// Delete removes a variable; later reads behave as if it was never set.
func (s *Store) Delete(name string) {
	if _, ok := s.vars[name]; !ok {
		return
	}
	delete(s.vars, name)
	if s.OnDelete != nil {
		s.OnDelete(name)
	}
}

func (s *Store) TypeOf(name string) (value.Datatype, bool) {
	t, ok := s.types[name]
	return t, ok
}

// DefineType restricts future assignments to name. An existing restriction
// may only be narrowed, never swapped for an unrelated type.
func (s *Store) DefineType(name string, t value.Datatype) *value.Error {
	if old, ok := s.types[name]; ok {
		if old.Name == t.Name {
			return nil
		}
		if !t.Compatible(old) {
			return value.Errorf(value.AssignmentError, "%s%s is already restricted to %s-type data, so it can't be restricted to %s-type.", s.sigil(), name, old.Name, t.Name)
		}
	}
	if cur, ok := s.vars[name]; ok && !t.Check(cur) {
		return value.Errorf(value.AssignmentError, "%s%s currently holds %s, which isn't %s-type data.", s.sigil(), name, value.Describe(cur), t.Name)
	}
	s.types[name] = t
	if s.OnDefineType != nil {
		s.OnDefineType(name, t)
	}
	return nil
}

// Names lists set variables in sorted order.
func (s *Store) Names() []string {
	return slices.Sorted(maps.Keys(s.vars))
}

// Snapshot copies the variable map.
func (s *Store) Snapshot() map[string]value.Value {
	return maps.Clone(s.vars)
}

// Types copies the type definitions.
func (s *Store) Types() map[string]value.Datatype {
	return maps.Clone(s.types)
}

// Load replaces the whole contents without firing hooks. The timeline uses it
// after rewinding or loading a save.
func (s *Store) Load(vars map[string]value.Value, types map[string]value.Datatype) {
	s.vars = maps.Clone(vars)
	if s.vars == nil {
		s.vars = map[string]value.Value{}
	}
	s.types = maps.Clone(types)
	if s.types == nil {
		s.types = map[string]value.Datatype{}
	}
}

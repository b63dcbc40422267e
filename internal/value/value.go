// Package value defines the values the story language computes with.
//
// The set of variants is closed: Number, String, Boolean, Array, *Datamap,
// *Dataset, Colour, Datatype, *Lambda, *Command, plus the two transient kinds
// Determiner and *Error which can never be stored in a variable. Every
// consumer switches on the concrete type.
package value

import (
	"slices"

	"github.com/rcliao/passage/internal/token"
)

// Value is any story-language value.
type Value interface {
	TypeName() string
}

// Number is the only numeric type.
type Number float64

// String is a UTF-8 string; positions address code points, not bytes.
type String string

// Boolean is true or false.
type Boolean bool

// Array is an ordered sequence. Arrays are never mutated in place once they are
// reachable from a store; mutation clones first.
type Array []Value

// Colour is an RGBA colour.
type Colour struct {
	R, G, B uint8
	A       float64
}

// Lambda is an unevaluated clause such as `_x where _x > 2`.
type Lambda struct {
	Param  string // temp variable name without the underscore
	Clause string // where, when, via or each
	Body   []token.Token
	Source string
}

// Command is a first-class macro invocation: commands like (goto:) that the
// runner executes, changers like (if:) that attach to hooks, and partially
// applied macros made by (partial:).
type Command struct {
	Name    string
	Args    []Value
	Changer bool
	Partial bool
	Hook    string
	HasHook bool
}

// Determiner wraps a sequence so that a comparison applies to any, all, the
// start or the end of it.
type Determiner struct {
	Kind string // any, all, start, end
	Seq  Value
}

func (Number) TypeName() string     { return "number" }
func (String) TypeName() string     { return "string" }
func (Boolean) TypeName() string    { return "boolean" }
func (Array) TypeName() string      { return "array" }
func (Colour) TypeName() string     { return "colour" }
func (*Lambda) TypeName() string    { return "lambda" }
func (Determiner) TypeName() string { return "determiner" }

func (c *Command) TypeName() string {
	if c.Changer {
		return "changer"
	}
	return "command"
}

// WithHook returns a copy of the command with the hook source attached.
func (c *Command) WithHook(src string) *Command {
	cp := *c
	cp.Args = slices.Clone(c.Args)
	cp.Hook = src
	cp.HasHook = true
	return &cp
}

// Datamap is an ordered mapping from string or number keys to values.
type Datamap struct {
	keys []Value
	vals map[any]Value
}

// NewDatamap returns an empty datamap.
func NewDatamap() *Datamap {
	return &Datamap{vals: map[any]Value{}}
}

func (*Datamap) TypeName() string { return "datamap" }

func mapKey(k Value) (any, bool) {
	switch k := k.(type) {
	case String:
		return string(k), true
	case Number:
		return float64(k), true
	}
	return nil, false
}

// ValidKey reports whether k may be used as a datamap key.
func ValidKey(k Value) bool {
	_, ok := mapKey(k)
	return ok
}

func (d *Datamap) Get(k Value) (Value, bool) {
	mk, ok := mapKey(k)
	if !ok {
		return nil, false
	}
	v, ok := d.vals[mk]
	return v, ok
}

// Set inserts or replaces an entry. It mutates d; clone shared maps first.
func (d *Datamap) Set(k, v Value) {
	mk, ok := mapKey(k)
	if !ok {
		return
	}
	if _, exists := d.vals[mk]; !exists {
		d.keys = append(d.keys, k)
	}
	d.vals[mk] = v
}

// Delete removes an entry, reporting whether it existed.
func (d *Datamap) Delete(k Value) bool {
	mk, ok := mapKey(k)
	if !ok {
		return false
	}
	if _, exists := d.vals[mk]; !exists {
		return false
	}
	delete(d.vals, mk)
	d.keys = slices.DeleteFunc(d.keys, func(x Value) bool {
		xk, _ := mapKey(x)
		return xk == mk
	})
	return true
}

func (d *Datamap) Keys() []Value { return slices.Clone(d.keys) }
func (d *Datamap) Len() int      { return len(d.keys) }

func (d *Datamap) Clone() *Datamap {
	c := &Datamap{keys: slices.Clone(d.keys), vals: make(map[any]Value, len(d.vals))}
	for k, v := range d.vals {
		c.vals[k] = v
	}
	return c
}

// Dataset is a collection of structurally unique values.
type Dataset struct {
	items []Value
}

// NewDataset builds a dataset, dropping structural duplicates.
func NewDataset(vs ...Value) *Dataset {
	ds := &Dataset{}
	for _, v := range vs {
		ds.Add(v)
	}
	return ds
}

func (*Dataset) TypeName() string { return "dataset" }

func (d *Dataset) Items() []Value { return slices.Clone(d.items) }
func (d *Dataset) Len() int       { return len(d.items) }

func (d *Dataset) Has(v Value) bool {
	return slices.ContainsFunc(d.items, func(x Value) bool { return Equal(x, v) })
}

// Add mutates d.
func (d *Dataset) Add(v Value) {
	if !d.Has(v) {
		d.items = append(d.items, v)
	}
}

// Remove mutates d.
func (d *Dataset) Remove(v Value) bool {
	n := len(d.items)
	d.items = slices.DeleteFunc(d.items, func(x Value) bool { return Equal(x, v) })
	return len(d.items) != n
}

func (d *Dataset) Clone() *Dataset {
	return &Dataset{items: slices.Clone(d.items)}
}

// Clone returns a shallow copy of a container so it can be mutated without
// affecting other holders. Non-containers are returned unchanged.
func Clone(v Value) Value {
	switch v := v.(type) {
	case Array:
		return slices.Clone(v)
	case *Datamap:
		return v.Clone()
	case *Dataset:
		return v.Clone()
	}
	return v
}

// Storable reports whether v may be held in a variable. Containers are
// storable only if everything they hold is.
func Storable(v Value) bool {
	switch v := v.(type) {
	case Number, String, Boolean, Colour, Datatype, *Lambda:
		return true
	case *Command:
		for _, a := range v.Args {
			if !Storable(a) {
				return false
			}
		}
		return true
	case Array:
		for _, x := range v {
			if !Storable(x) {
				return false
			}
		}
		return true
	case *Datamap:
		for _, x := range v.vals {
			if !Storable(x) {
				return false
			}
		}
		return true
	case *Dataset:
		for _, x := range v.items {
			if !Storable(x) {
				return false
			}
		}
		return true
	}
	return false
}

// Sequence returns the elements of a sequence-like value: the code points of a
// string, the items of an array or dataset.
func Sequence(v Value) ([]Value, bool) {
	switch v := v.(type) {
	case String:
		runes := []rune(string(v))
		out := make([]Value, len(runes))
		for i, r := range runes {
			out[i] = String(string(r))
		}
		return out, true
	case Array:
		return v, true
	case *Dataset:
		return v.Items(), true
	}
	return nil, false
}

// Describe names a value with its article for error messages, e.g. "a number".
func Describe(v Value) string {
	if v == nil {
		return "nothing"
	}
	switch v := v.(type) {
	case String:
		if v == "" {
			return "an empty string"
		}
		return "a string"
	case Array:
		if len(v) == 0 {
			return "an empty array"
		}
		return "an array"
	}
	name := v.TypeName()
	switch name[0] {
	case 'a', 'e', 'i', 'o', 'u':
		return "an " + name
	}
	return "a " + name
}

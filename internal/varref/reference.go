package varref

import (
	"slices"

	"github.com/rcliao/passage/internal/value"
)

// Reference addresses a variable, or a place inside one, or a place inside a
// transient value that is not stored anywhere. Keys are compiled when the
// property is attached, so a "random" key is drawn once and every later
// Get, Set or Delete reaches the same element.
type Reference struct {
	store    *Store
	name     string
	base     value.Value
	keys     []Key
	restrict *value.Datatype
	err      *value.Error
}

// Variable refers to the named variable in store.
func Variable(store *Store, name string) *Reference {
	return &Reference{store: store, name: name}
}

// Transient refers into a value that is not held in any variable. It can be
// read but not written.
func Transient(v value.Value) *Reference {
	return &Reference{base: v}
}

// Store returns the store the reference is rooted in, or nil.
func (r *Reference) Store() *Store { return r.store }

// Name returns the root variable name, empty for transient references.
func (r *Reference) Name() string { return r.name }

// TopLevel reports whether r is a bare variable with no property chain.
func (r *Reference) TopLevel() bool { return r.store != nil && len(r.keys) == 0 && r.err == nil }

// Err returns the error recorded while compiling the chain, if any.
func (r *Reference) Err() *value.Error { return r.err }

// Restrict returns a copy of a bare variable reference that will define the
// datatype before it is assigned.
func (r *Reference) Restrict(t value.Datatype) (*Reference, *value.Error) {
	if !r.TopLevel() {
		return nil, value.Errorf(value.AssignmentError, "Only a variable by itself can be given a type, not a data name of one.")
	}
	cp := *r
	cp.restrict = &t
	return &cp, nil
}

// Restriction returns the datatype a typed reference will define.
func (r *Reference) Restriction() (value.Datatype, bool) {
	if r.restrict == nil {
		return value.Datatype{}, false
	}
	return *r.restrict, true
}

// Property returns a new reference one level deeper. raw is a name from
// `'s name` syntax or a computed value from `'s (expr)`.
func (r *Reference) Property(raw value.Value, rnd Random) *Reference {
	next := &Reference{store: r.store, name: r.name, base: r.base, keys: slices.Clone(r.keys), err: r.err}
	if next.err != nil {
		return next
	}
	container := r.Get()
	if e, ok := container.(*value.Error); ok {
		next.err = e
		return next
	}
	k, err := compileKey(container, raw, rnd)
	if err != nil {
		next.err = err
		return next
	}
	next.keys = append(next.keys, k)
	return next
}

func (r *Reference) root() value.Value {
	if r.store != nil {
		return r.store.Get(r.name)
	}
	return r.base
}

// Get reads the addressed value, or an error value describing why it can't.
func (r *Reference) Get() value.Value {
	if r.err != nil {
		return r.err
	}
	v := r.root()
	for _, k := range r.keys {
		if e, ok := v.(*value.Error); ok {
			return e
		}
		v = getProp(v, k)
	}
	return v
}

// Has reports whether the addressed value exists.
func (r *Reference) Has() bool {
	if r.err != nil {
		return false
	}
	if r.store != nil && !r.store.Has(r.name) {
		return false
	}
	_, isErr := r.Get().(*value.Error)
	return !isErr
}

// Set writes v to the addressed place. A ref is only kept for bare variables,
// where it stands for the whole stored value.
func (r *Reference) Set(v value.Value, ref *value.Ref) *value.Error {
	if r.err != nil {
		return r.err
	}
	if e := value.FirstError(v); e != nil {
		return e
	}
	if r.store == nil {
		return value.Errorf(value.AssignmentError, "I can't modify %s because it isn't stored in a variable.", value.Describe(r.base))
	}
	if len(r.keys) == 0 {
		if r.restrict != nil {
			if !r.restrict.Check(v) {
				return value.Errorf(value.AssignmentError, "I can't set %s%s to %s because it's restricted to %s-type data.", r.store.sigil(), r.name, value.Describe(v), r.restrict.Name)
			}
			if err := r.store.DefineType(r.name, *r.restrict); err != nil {
				return err
			}
		}
		return r.store.Set(r.name, v, ref)
	}
	if !value.Storable(v) {
		return value.Errorf(value.AssignmentError, "%s can't be stored in a data structure.", value.Describe(v))
	}
	containers, err := r.walk()
	if err != nil {
		return err
	}
	nv := v
	for i := len(r.keys) - 1; i >= 0; i-- {
		c, err := setProp(value.Clone(containers[i]), r.keys[i], nv)
		if err != nil {
			return err
		}
		nv = c
	}
	return r.store.Set(r.name, nv, nil)
}

// Delete removes the addressed place. Deleting several sequence positions
// removes each once, highest first, so the others don't shift.
func (r *Reference) Delete() *value.Error {
	if r.err != nil {
		return r.err
	}
	if r.store == nil {
		return value.Errorf(value.AssignmentError, "I can't delete from %s because it isn't stored in a variable.", value.Describe(r.base))
	}
	if len(r.keys) == 0 {
		r.store.Delete(r.name)
		return nil
	}
	containers, err := r.walk()
	if err != nil {
		return err
	}
	last := len(r.keys) - 1
	nv, err := deleteProp(value.Clone(containers[last]), r.keys[last])
	if err != nil {
		return err
	}
	for i := last - 1; i >= 0; i-- {
		c, err := setProp(value.Clone(containers[i]), r.keys[i], nv)
		if err != nil {
			return err
		}
		nv = c
	}
	return r.store.Set(r.name, nv, nil)
}

// DefineType restricts a bare variable.
func (r *Reference) DefineType(t value.Datatype) *value.Error {
	if !r.TopLevel() {
		if r.err != nil {
			return r.err
		}
		return value.Errorf(value.AssignmentError, "Only a variable by itself can be given a type, not a data name of one.")
	}
	return r.store.DefineType(r.name, t)
}

// walk collects the container at each depth of the chain and checks each
// link can be written through.
func (r *Reference) walk() ([]value.Value, *value.Error) {
	containers := make([]value.Value, len(r.keys))
	cur := r.root()
	for i, k := range r.keys {
		if e, ok := cur.(*value.Error); ok {
			return nil, e
		}
		if err := writable(cur, k); err != nil {
			return nil, err
		}
		containers[i] = cur
		if i < len(r.keys)-1 {
			cur = getProp(cur, k)
		}
	}
	return containers, nil
}

func writable(container value.Value, k Key) *value.Error {
	switch container.(type) {
	case value.Array, value.String:
		switch k.kind {
		case keyLength:
			return value.Errorf(value.AssignmentError, "I can't change the length of %s directly.", value.Describe(container))
		case keyDeterminer:
			return value.Errorf(value.AssignmentError, "I can't change the '%s' of %s.", k.det, value.Describe(container))
		}
		return nil
	case *value.Datamap, value.Colour:
		return nil
	case *value.Dataset:
		return value.Errorf(value.AssignmentError, "I can't modify the '%s' of a dataset.", k).
			Explain("Datasets have no positions or names; add to or remove from them with + and -.")
	}
	return value.Errorf(value.AssignmentError, "I can't modify %s because it doesn't have data values.", value.Describe(container))
}

func getProp(container value.Value, k Key) value.Value {
	switch c := container.(type) {
	case *value.Datamap:
		if v, ok := c.Get(k.name); ok {
			return v
		}
		return value.Errorf(value.PropertyError, "I can't find a %s data name in this datamap.", value.Source(k.name)).
			Explain("The datamap has %s.", availableNames(c))
	case *value.Dataset:
		switch k.kind {
		case keyLength:
			return value.Number(c.Len())
		case keyDeterminer:
			return value.Determiner{Kind: k.det, Seq: c}
		}
	case value.Colour:
		switch k.name {
		case value.String("r"):
			return value.Number(c.R)
		case value.String("g"):
			return value.Number(c.G)
		case value.String("b"):
			return value.Number(c.B)
		case value.String("a"):
			return value.Number(c.A)
		}
	case value.Array, value.String:
		return getSequenceProp(c, k)
	}
	return value.Errorf(value.PropertyError, "You can't get the '%s' of %s.", k, value.Describe(container))
}

func getSequenceProp(container value.Value, k Key) value.Value {
	n := seqLen(container)
	switch k.kind {
	case keyLength:
		return value.Number(n)
	case keyDeterminer:
		return value.Determiner{Kind: k.det, Seq: container}
	}
	positions, err := positionsOf(k, n, container)
	if err != nil {
		return err
	}
	switch c := container.(type) {
	case value.String:
		runes := []rune(string(c))
		out := make([]rune, 0, len(positions))
		for _, p := range positions {
			out = append(out, runes[p])
		}
		return value.String(string(out))
	case value.Array:
		if k.kind == keyIndex {
			return c[positions[0]]
		}
		out := make(value.Array, 0, len(positions))
		for _, p := range positions {
			out = append(out, c[p])
		}
		return out
	}
	return value.Errorf(value.PropertyError, "You can't get the '%s' of %s.", k, value.Describe(container))
}

// setProp writes v at k in c, which the caller has already cloned.
func setProp(c value.Value, k Key, v value.Value) (value.Value, *value.Error) {
	switch c := c.(type) {
	case *value.Datamap:
		c.Set(k.name, v)
		return c, nil
	case value.Colour:
		n, ok := v.(value.Number)
		if !ok {
			return nil, value.Errorf(value.AssignmentError, "A colour's '%s' must be a number, not %s.", value.Print(k.name), value.Describe(v))
		}
		if k.name == value.String("a") {
			if n < 0 || n > 1 {
				return nil, value.Errorf(value.AssignmentError, "A colour's 'a' must be between 0 and 1.")
			}
			c.A = float64(n)
			return c, nil
		}
		if n < 0 || n > 255 {
			return nil, value.Errorf(value.AssignmentError, "A colour's '%s' must be between 0 and 255.", value.Print(k.name))
		}
		switch k.name {
		case value.String("r"):
			c.R = uint8(n)
		case value.String("g"):
			c.G = uint8(n)
		case value.String("b"):
			c.B = uint8(n)
		}
		return c, nil
	case value.Array:
		positions, err := positionsOf(k, len(c), c)
		if err != nil {
			return nil, err
		}
		if k.kind == keyIndex {
			c[positions[0]] = v
			return c, nil
		}
		vals, err := zipValues(k, positions, v)
		if err != nil {
			return nil, err
		}
		for i, p := range positions {
			c[p] = vals[i]
		}
		return c, nil
	case value.String:
		return setString(c, k, v)
	}
	return nil, writable(c, k)
}

// zipValues pairs an array of values with several positions.
func zipValues(k Key, positions []int, v value.Value) ([]value.Value, *value.Error) {
	arr, ok := v.(value.Array)
	if !ok {
		return nil, value.Errorf(value.AssignmentError, "I can't set the '%s' positions to %s; it needs an array of %d values.", k, value.Describe(v), len(positions))
	}
	if len(arr) != len(positions) {
		return nil, value.Errorf(value.AssignmentError, "I can't set %d positions to an array of %d values.", len(positions), len(arr))
	}
	return arr, nil
}

func setString(s value.String, k Key, v value.Value) (value.Value, *value.Error) {
	runes := []rune(string(s))
	positions, err := positionsOf(k, len(runes), s)
	if err != nil {
		return nil, err
	}
	var parts []string
	switch {
	case k.kind == keyRange:
		str, ok := v.(value.String)
		if !ok {
			return nil, value.Errorf(value.AssignmentError, "I can't put %s into a string.", value.Describe(v))
		}
		if len(positions) == 0 {
			return s, nil
		}
		lo, hi := positions[0], positions[len(positions)-1]
		out := slices.Concat(runes[:lo], []rune(string(str)), runes[hi+1:])
		return value.String(string(out)), nil
	case k.kind == keyIndex:
		str, ok := v.(value.String)
		if !ok {
			return nil, value.Errorf(value.AssignmentError, "I can't put %s into a string.", value.Describe(v))
		}
		parts = []string{string(str)}
	default:
		vals, err := zipValues(k, positions, v)
		if err != nil {
			return nil, err
		}
		for _, x := range vals {
			str, ok := x.(value.String)
			if !ok {
				return nil, value.Errorf(value.AssignmentError, "I can't put %s into a string.", value.Describe(x))
			}
			parts = append(parts, string(str))
		}
	}
	type splice struct {
		at   int
		with []rune
	}
	splices := make([]splice, len(positions))
	for i, p := range positions {
		splices[i] = splice{p, []rune(parts[i])}
	}
	// Replace from the end so earlier positions stay valid when lengths change.
	slices.SortStableFunc(splices, func(a, b splice) int { return b.at - a.at })
	for _, sp := range splices {
		runes = slices.Concat(runes[:sp.at], sp.with, runes[sp.at+1:])
	}
	return value.String(string(runes)), nil
}

func deleteProp(c value.Value, k Key) (value.Value, *value.Error) {
	switch c := c.(type) {
	case *value.Datamap:
		if !c.Delete(k.name) {
			return nil, value.Errorf(value.PropertyError, "I can't find a %s data name in this datamap.", value.Source(k.name)).
				Explain("The datamap has %s.", availableNames(c))
		}
		return c, nil
	case value.Array:
		positions, err := positionsOf(k, len(c), c)
		if err != nil {
			return nil, err
		}
		drop := dedupeDescending(positions)
		out := c
		for _, p := range drop {
			out = slices.Delete(out, p, p+1)
		}
		return out, nil
	case value.String:
		runes := []rune(string(c))
		positions, err := positionsOf(k, len(runes), c)
		if err != nil {
			return nil, err
		}
		for _, p := range dedupeDescending(positions) {
			runes = slices.Delete(runes, p, p+1)
		}
		return value.String(string(runes)), nil
	case value.Colour:
		return nil, value.Errorf(value.AssignmentError, "I can't delete a colour's '%s'.", k)
	}
	return nil, writable(c, k)
}

func dedupeDescending(ps []int) []int {
	out := slices.Clone(ps)
	slices.Sort(out)
	out = slices.Compact(out)
	slices.Reverse(out)
	return out
}

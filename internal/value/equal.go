package value

// Equal is structural equality. Arrays compare element-wise in order;
// datamaps and datasets compare by contents regardless of insertion order.
func Equal(a, b Value) bool {
	switch a := a.(type) {
	case Number:
		b, ok := b.(Number)
		return ok && a == b
	case String:
		b, ok := b.(String)
		return ok && a == b
	case Boolean:
		b, ok := b.(Boolean)
		return ok && a == b
	case Colour:
		b, ok := b.(Colour)
		return ok && a == b
	case Datatype:
		b, ok := b.(Datatype)
		return ok && a.Name == b.Name
	case Array:
		b, ok := b.(Array)
		if !ok || len(a) != len(b) {
			return false
		}
		for i := range a {
			if !Equal(a[i], b[i]) {
				return false
			}
		}
		return true
	case *Datamap:
		b, ok := b.(*Datamap)
		if !ok || a.Len() != b.Len() {
			return false
		}
		for k, av := range a.vals {
			bv, ok := b.vals[k]
			if !ok || !Equal(av, bv) {
				return false
			}
		}
		return true
	case *Dataset:
		b, ok := b.(*Dataset)
		if !ok || a.Len() != b.Len() {
			return false
		}
		for _, x := range a.items {
			if !b.Has(x) {
				return false
			}
		}
		return true
	case *Lambda:
		b, ok := b.(*Lambda)
		return ok && a.Source == b.Source
	case *Command:
		b, ok := b.(*Command)
		if !ok || a.Name != b.Name || a.Changer != b.Changer || a.Partial != b.Partial ||
			a.HasHook != b.HasHook || a.Hook != b.Hook || len(a.Args) != len(b.Args) {
			return false
		}
		for i := range a.Args {
			if !Equal(a.Args[i], b.Args[i]) {
				return false
			}
		}
		return true
	}
	return false
}

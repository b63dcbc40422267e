package value

// RefKind says which recipe a Ref holds.
type RefKind int

const (
	// RefSpan points at live passage source: At, From, To, Hash.
	RefSpan RefKind = iota
	// RefVia expresses a value as a transform of the previous turn's value.
	RefVia
	// RefComposite rebuilds a command from its macro source, attached hook
	// and the temp variables it captured.
	RefComposite
)

// Ref is a compact recipe that rebuilds a value, used in place of the value
// itself when saving the timeline.
type Ref struct {
	At       string
	From, To int
	Hash     string
	// Seed and SeedIter replay the generator when the source drew randoms.
	Seed     string
	SeedIter int
	HasSeed  bool
	// BlockedValues replays the results of blocking prompts, in order.
	BlockedValues []Value

	Via string

	Changer   string
	Hook      string
	HasHook   bool
	Variables map[string]Value
}

func (r *Ref) Kind() RefKind {
	switch {
	case r.Via != "":
		return RefVia
	case r.Changer != "":
		return RefComposite
	}
	return RefSpan
}

package varref

import (
	"math"
	"testing"

	"github.com/rcliao/passage/internal/value"
)

type fixedRandom int

func (f fixedRandom) IntN(n int) int { return int(f) % n }

func str(s string) value.Value { return value.String(s) }

func TestUnsetGlobalReadsZero(t *testing.T) {
	s := NewStore(Global)
	if got := Variable(s, "x").Get(); !value.Equal(got, value.Number(0)) {
		t.Errorf("expected 0, got %v", got)
	}
	temps := NewStore(Temp)
	if _, ok := Variable(temps, "x").Get().(*value.Error); !ok {
		t.Error("expected error reading unset temp")
	}
}

func TestOrdinalsAndRanges(t *testing.T) {
	s := NewStore(Global)
	s.Set("a", value.Array{value.Number(1), value.Number(2), value.Number(3), value.Number(4)}, nil)
	a := Variable(s, "a")

	tests := []struct {
		key  string
		want value.Value
	}{
		{"1st", value.Number(1)},
		{"last", value.Number(4)},
		{"2ndlast", value.Number(3)},
		{"2ndto3rd", value.Array{value.Number(2), value.Number(3)}},
		{"2ndlasttolast", value.Array{value.Number(3), value.Number(4)}},
		{"length", value.Number(4)},
	}
	for _, tt := range tests {
		got := a.Property(str(tt.key), nil).Get()
		if !value.Equal(got, tt.want) {
			t.Errorf("%s: expected %s, got %s", tt.key, value.Source(tt.want), value.Source(got))
		}
	}

	if _, ok := a.Property(str("0th"), nil).Get().(*value.Error); !ok {
		t.Error("expected error for 0th")
	}
	if _, ok := a.Property(str("9th"), nil).Get().(*value.Error); !ok {
		t.Error("expected error for 9th of 4 items")
	}
	if got := a.Property(value.Number(-1), nil).Get(); !value.Equal(got, value.Number(4)) {
		t.Errorf("expected (-1) to be last, got %v", got)
	}
}

func TestHugePositionsAreOutOfRange(t *testing.T) {
	s := NewStore(Global)
	orig := value.Array{value.Number(1), value.Number(2), value.Number(3)}
	s.Set("a", orig, nil)
	a := Variable(s, "a")

	for _, key := range []value.Value{
		value.Number(99999999999999999999999),
		value.Number(-99999999999999999999999),
		value.Number(math.MaxInt64),
		str("99999999999999999999999th"),
		str("99999999999999999999999thlast"),
	} {
		if _, ok := a.Property(key, nil).Get().(*value.Error); !ok {
			t.Errorf("%s: expected an error reading", value.Source(key))
		}
		if err := a.Property(key, nil).Set(value.Number(4), nil); err == nil {
			t.Errorf("%s: expected an error writing", value.Source(key))
		}
		if err := a.Property(key, nil).Delete(); err == nil {
			t.Errorf("%s: expected an error deleting", value.Source(key))
		}
	}
	if got, _ := s.Lookup("a"); !value.Equal(got, orig) {
		t.Errorf("expected %s untouched, got %s", value.Source(orig), value.Source(got))
	}
}

func TestRandomKeyIsDrawnOnce(t *testing.T) {
	s := NewStore(Global)
	s.Set("a", value.Array{str("x"), str("y"), str("z")}, nil)
	ref := Variable(s, "a").Property(str("random"), fixedRandom(1))
	if err := ref.Set(str("Y"), nil); err != nil {
		t.Fatalf("set: %v", err)
	}
	if got := ref.Get(); !value.Equal(got, str("Y")) {
		t.Errorf("expected Y at the drawn position, got %v", got)
	}
	want := value.Array{str("x"), str("Y"), str("z")}
	if got, _ := s.Lookup("a"); !value.Equal(got, want) {
		t.Errorf("expected %s, got %s", value.Source(want), value.Source(got))
	}
}

func TestSetIsCopyOnWrite(t *testing.T) {
	s := NewStore(Global)
	inner := value.NewDatamap()
	inner.Set(str("hp"), value.Number(10))
	orig := value.Array{inner}
	s.Set("party", orig, nil)

	ref := Variable(s, "party").Property(str("1st"), nil).Property(str("hp"), nil)
	if err := ref.Set(value.Number(5), nil); err != nil {
		t.Fatalf("set: %v", err)
	}
	if got, _ := inner.Get(str("hp")); !value.Equal(got, value.Number(10)) {
		t.Errorf("expected original datamap untouched, got hp=%v", got)
	}
	if got := ref.Get(); !value.Equal(got, value.Number(5)) {
		t.Errorf("expected hp 5, got %v", got)
	}
	if orig[0] != inner {
		t.Error("expected original array to still hold the original datamap")
	}
}

func TestSetStringCharacters(t *testing.T) {
	s := NewStore(Global)
	s.Set("s", str("héllo"), nil)
	if err := Variable(s, "s").Property(str("2nd"), nil).Set(str("E"), nil); err != nil {
		t.Fatalf("set: %v", err)
	}
	if got, _ := s.Lookup("s"); got != str("hEllo") {
		t.Errorf("expected hEllo, got %v", got)
	}
	pos := value.Array{value.Number(1), value.Number(5)}
	if err := Variable(s, "s").Property(pos, nil).Set(value.Array{str("J"), str("y")}, nil); err != nil {
		t.Fatalf("zip set: %v", err)
	}
	if got, _ := s.Lookup("s"); got != str("JElly") {
		t.Errorf("expected JElly, got %v", got)
	}
}

func TestZipLengthMismatch(t *testing.T) {
	s := NewStore(Global)
	s.Set("a", value.Array{value.Number(1), value.Number(2), value.Number(3)}, nil)
	err := Variable(s, "a").Property(str("1stto2nd"), nil).Set(value.Array{value.Number(9)}, nil)
	if err == nil {
		t.Fatal("expected error for mismatched zip")
	}
}

func TestDeleteDedupesPositions(t *testing.T) {
	s := NewStore(Global)
	s.Set("a", value.Array{str("a"), str("b"), str("c"), str("d")}, nil)
	pos := value.Array{value.Number(2), value.Number(-3), value.Number(4)}
	if err := Variable(s, "a").Property(pos, nil).Delete(); err != nil {
		t.Fatalf("delete: %v", err)
	}
	want := value.Array{str("a"), str("c")}
	if got, _ := s.Lookup("a"); !value.Equal(got, want) {
		t.Errorf("expected %s, got %s", value.Source(want), value.Source(got))
	}
}

func TestDeleteDatamapName(t *testing.T) {
	s := NewStore(Global)
	dm := value.NewDatamap()
	dm.Set(str("a"), value.Number(1))
	s.Set("m", dm, nil)
	if err := Variable(s, "m").Property(str("a"), nil).Delete(); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if dm.Len() != 1 {
		t.Error("expected original datamap untouched")
	}
	if err := Variable(s, "m").Property(str("a"), nil).Delete(); err == nil {
		t.Error("expected error deleting missing name")
	}
}

func TestTypeRestriction(t *testing.T) {
	s := NewStore(Global)
	num, _ := value.LookupDatatype("num")
	ref, err := Variable(s, "x").Restrict(num)
	if err != nil {
		t.Fatalf("restrict: %v", err)
	}
	if err := ref.Set(value.Number(3), nil); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := s.Set("x", str("no"), nil); err == nil {
		t.Error("expected error setting a string into a number-typed variable")
	}
	str_, _ := value.LookupDatatype("string")
	if err := s.DefineType("x", str_); err == nil {
		t.Error("expected error re-typing to an incompatible type")
	}
	integer, _ := value.LookupDatatype("integer")
	if err := s.DefineType("x", integer); err != nil {
		t.Errorf("expected narrowing to integer to be allowed, got %v", err)
	}
}

func TestStoreHooksFire(t *testing.T) {
	s := NewStore(Global)
	var sets, deletes []string
	s.OnSet = func(name string, _ value.Value, _ *value.Ref) { sets = append(sets, name) }
	s.OnDelete = func(name string) { deletes = append(deletes, name) }

	s.Set("x", value.Number(1), nil)
	Variable(s, "x").Delete()
	Variable(s, "never").Delete()
	if len(sets) != 1 || sets[0] != "x" {
		t.Errorf("expected one set of x, got %v", sets)
	}
	if len(deletes) != 1 || deletes[0] != "x" {
		t.Errorf("expected one delete of x, got %v", deletes)
	}
}

func TestTransientIsReadOnly(t *testing.T) {
	ref := Transient(value.Array{value.Number(7)}).Property(str("1st"), nil)
	if got := ref.Get(); !value.Equal(got, value.Number(7)) {
		t.Errorf("expected 7, got %v", got)
	}
	if err := ref.Set(value.Number(1), nil); err == nil {
		t.Error("expected error writing into a transient value")
	}
}

func TestUnstorableRejected(t *testing.T) {
	s := NewStore(Global)
	if err := s.Set("d", value.Determiner{Kind: "all", Seq: value.Array{}}, nil); err == nil {
		t.Error("expected error storing a determiner")
	}
}

package value

import (
	"math"
	"testing"
)

func TestEqualIsStructural(t *testing.T) {
	a := NewDatamap()
	a.Set(String("x"), Array{Number(1), String("y")})
	a.Set(Number(2), Boolean(true))
	b := NewDatamap()
	b.Set(Number(2), Boolean(true))
	b.Set(String("x"), Array{Number(1), String("y")})
	if !Equal(a, b) {
		t.Error("expected datamaps with the same entries to be equal regardless of order")
	}
	if Equal(Array{Number(1), Number(2)}, Array{Number(2), Number(1)}) {
		t.Error("expected arrays to compare in order")
	}
	if !Equal(NewDataset(Number(1), String("a")), NewDataset(String("a"), Number(1))) {
		t.Error("expected datasets to compare by contents")
	}
	if Equal(Number(1), String("1")) {
		t.Error("expected a number and a string never to be equal")
	}
}

func TestDatasetUniqueness(t *testing.T) {
	d := NewDataset(Array{Number(1)}, Array{Number(1)}, Number(3))
	if d.Len() != 2 {
		t.Errorf("expected 2 items, got %d", d.Len())
	}
}

func TestSource(t *testing.T) {
	dm := NewDatamap()
	dm.Set(String("name"), String(`say "hi"`))
	tests := []struct {
		v    Value
		want string
	}{
		{Number(1.5), "1.5"},
		{Number(math.Inf(1)), `(num: "Infinity")`},
		{String(`a\b`), `"a\\b"`},
		{Boolean(false), "false"},
		{Array{Number(1), String("x")}, `(a: 1, "x")`},
		{dm, `(dm: "name", "say \"hi\"")`},
		{NewDataset(Number(2)), "(ds: 2)"},
		{Colour{R: 255, G: 0, B: 16, A: 0.5}, "(rgba: 255, 0, 16, 0.5)"},
		{&Command{Name: "goto", Args: []Value{String("Hall")}}, `(goto: "Hall")`},
	}
	for _, tt := range tests {
		if got := Source(tt.v); got != tt.want {
			t.Errorf("Source(%#v): expected %s, got %s", tt.v, tt.want, got)
		}
	}
}

func TestPrint(t *testing.T) {
	if got := Print(Array{Number(1), String("b")}); got != "1,b" {
		t.Errorf("expected 1,b, got %q", got)
	}
	if got := Print(Colour{R: 255, G: 0, B: 16, A: 1}); got != "#ff0010" {
		t.Errorf("expected #ff0010, got %q", got)
	}
	if got := Print(Errorf(TypeError, "bad")); got != "[error: bad]" {
		t.Errorf("expected [error: bad], got %q", got)
	}
}

func TestAddAndSubtract(t *testing.T) {
	if got := Add(String("ab"), String("c")); got != String("abc") {
		t.Errorf("expected abc, got %v", got)
	}
	got := Add(Array{Number(1)}, Array{Number(2)})
	if !Equal(got, Array{Number(1), Number(2)}) {
		t.Errorf("expected (a: 1, 2), got %s", Source(got))
	}
	if _, ok := Add(Number(1), String("x")).(*Error); !ok {
		t.Error("expected adding a number and a string to fail")
	}
	e := Errorf(OperationError, "first")
	if got := Subtract(e, Number(1)); got != e {
		t.Errorf("expected the first error to pass through, got %v", got)
	}
	if got := Subtract(Array{Number(1), Number(2), Number(1)}, Array{Number(1)}); !Equal(got, Array{Number(2)}) {
		t.Errorf("expected (a: 2), got %s", Source(got))
	}
}

func TestStorable(t *testing.T) {
	if Storable(Errorf(TypeError, "x")) {
		t.Error("expected errors to be unstorable")
	}
	if Storable(Array{Number(1), Errorf(TypeError, "x")}) {
		t.Error("expected an array holding an error to be unstorable")
	}
	if !Storable(Array{Number(1), String("x")}) {
		t.Error("expected a plain array to be storable")
	}
}

func TestDescribe(t *testing.T) {
	for v, want := range map[Value]string{
		String(""):    "an empty string",
		Number(3):     "a number",
		Boolean(true): "a boolean",
	} {
		if got := Describe(v); got != want {
			t.Errorf("expected %q, got %q", want, got)
		}
	}
	if got := Describe(NewDatamap()); got != "a datamap" {
		t.Errorf("expected a datamap, got %q", got)
	}
}

package state

import (
	"encoding/json"
	"errors"
	"slices"
	"strings"
	"testing"

	"github.com/rcliao/passage/internal/eval"
	"github.com/rcliao/passage/internal/macros"
	"github.com/rcliao/passage/internal/value"
)

type testStory map[string]string

func (s testStory) Has(name string) bool { _, ok := s[name]; return ok }

func (s testStory) Source(name string) (string, bool) {
	src, ok := s[name]
	return src, ok
}

func newTestState(t *testing.T, story testStory) *State {
	t.Helper()
	if story == nil {
		story = testStory{"A": "", "B": "", "C": "", "D": ""}
	}
	return New("A", Options{Story: story, Macros: macros.New(), Seed: "test-seed"})
}

func set(t *testing.T, s *State, name string, v value.Value) {
	t.Helper()
	if err := s.Globals().Set(name, v, nil); err != nil {
		t.Fatalf("set $%s: %v", name, err)
	}
}

func play(t *testing.T, s *State, name string) {
	t.Helper()
	if err := s.Play(name); err != nil {
		t.Fatalf("play %s: %v", name, err)
	}
}

func TestRewindRestoresPreviousTurn(t *testing.T) {
	s := newTestState(t, nil)
	set(t, s, "x", value.Number(1))
	play(t, s, "B")
	set(t, s, "x", value.Number(2))

	if !s.Rewind(1) {
		t.Fatal("expected rewind to succeed")
	}
	if got := s.Globals().Get("x"); got != value.Number(1) {
		t.Errorf("expected $x 1, got %v", got)
	}
	if s.Passage() != "A" {
		t.Errorf("expected passage A, got %q", s.Passage())
	}
	if s.Turns() != 1 {
		t.Errorf("expected 1 turn, got %d", s.Turns())
	}
	if s.CanRewind() {
		t.Error("expected no earlier turn")
	}
	if !s.CanFastForward() {
		t.Error("expected the undone turn to be redoable")
	}
	if s.Rewind(1) {
		t.Error("expected rewinding past the start to fail")
	}
}

func TestUndoRedoSymmetry(t *testing.T) {
	s := newTestState(t, nil)
	set(t, s, "x", value.Number(1))
	play(t, s, "B")
	set(t, s, "y", value.Array{value.String("a")})
	play(t, s, "C")
	s.Globals().Delete("x")

	before, err := s.Serialize()
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}
	if !s.Rewind(2) {
		t.Fatal("expected rewind(2) to succeed")
	}
	if !s.FastForward(2) {
		t.Fatal("expected fastForward(2) to succeed")
	}
	after, err := s.Serialize()
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}
	if string(before) != string(after) {
		t.Errorf("expected identical timelines\nbefore: %s\nafter:  %s", before, after)
	}
	if s.Globals().Has("x") {
		t.Error("expected $x to stay deleted")
	}
	if s.Passage() != "C" || s.Turns() != 3 {
		t.Errorf("expected C on turn 3, got %s on turn %d", s.Passage(), s.Turns())
	}
	if s.FastForward(1) {
		t.Error("expected nothing left to redo")
	}
}

func TestPlayAfterRewindDropsFuture(t *testing.T) {
	s := newTestState(t, nil)
	play(t, s, "B")
	play(t, s, "C")
	s.Rewind(2)
	play(t, s, "D")
	if s.CanFastForward() {
		t.Error("expected future to be discarded")
	}
	if got := s.History(); !slices.Equal(got, []string{"A"}) {
		t.Errorf("expected history [A], got %v", got)
	}
	if err := s.Play("nowhere"); !errors.Is(err, ErrUnknownPassage) {
		t.Errorf("expected ErrUnknownPassage, got %v", err)
	}
}

func TestRewindReseedsGenerator(t *testing.T) {
	s := newTestState(t, nil)
	play(t, s, "B")
	first := s.RNG().Float64()
	play(t, s, "C")
	s.Rewind(1)
	if got := s.RNG().Float64(); got != first {
		t.Errorf("expected replayed draw %v, got %v", first, got)
	}
}

func TestForgetUndosPreservesQueries(t *testing.T) {
	s := newTestState(t, nil)
	set(t, s, "a", value.Number(1))
	play(t, s, "B")
	set(t, s, "b", value.Number(2))
	s.Globals().Delete("a")
	play(t, s, "C")
	s.MockTurns(2)
	play(t, s, "D")

	vars, turns, history := s.Variables(), s.Turns(), s.History()
	if !s.ForgetUndos(2) {
		t.Fatal("expected forgetUndos to fold turns")
	}
	if s.Turns() != turns {
		t.Errorf("expected %d turns, got %d", turns, s.Turns())
	}
	if got := s.History(); !slices.Equal(got, history) {
		t.Errorf("expected history %v, got %v", history, got)
	}
	got := s.Variables()
	if len(got) != len(vars) || got["b"] != vars["b"] {
		t.Errorf("expected variables %v, got %v", vars, got)
	}
	if !s.Rewind(1) {
		t.Fatal("expected one undo left")
	}
	if s.Passage() != "C" || s.CanRewind() {
		t.Errorf("expected C as the earliest turn, got %s (can rewind: %v)", s.Passage(), s.CanRewind())
	}
	if got := s.Globals().Get("b"); got != value.Number(2) {
		t.Errorf("expected folded $b 2, got %v", got)
	}
}

func TestForgetUndosNegativeKeepsRecent(t *testing.T) {
	s := newTestState(t, nil)
	play(t, s, "B")
	play(t, s, "C")
	play(t, s, "D")
	s.ForgetUndos(-1)
	if !s.Rewind(1) {
		t.Fatal("expected one undo left")
	}
	if s.Rewind(1) {
		t.Error("expected only one undo left")
	}
	if s.Turns() != 3 {
		t.Errorf("expected turn 3, got %d", s.Turns())
	}
}

func TestForgetUndosEverything(t *testing.T) {
	s := newTestState(t, nil)
	set(t, s, "x", value.Number(1))
	play(t, s, "B")
	s.ForgetUndos(10)
	if s.CanRewind() {
		t.Error("expected no undos")
	}
	if s.Passage() != "B" || s.Turns() != 2 {
		t.Errorf("expected B on turn 2, got %s on %d", s.Passage(), s.Turns())
	}
	if got := s.Globals().Get("x"); got != value.Number(1) {
		t.Errorf("expected $x 1, got %v", got)
	}
}

func TestForgetVisits(t *testing.T) {
	s := newTestState(t, nil)
	play(t, s, "B")
	play(t, s, "A")
	play(t, s, "C")
	if n := s.Visits("A"); n != 2 {
		t.Fatalf("expected 2 visits to A, got %d", n)
	}
	s.ForgetVisits(-2)
	if got := s.History(); !slices.Equal(got, []string{"A"}) {
		t.Errorf("expected history [A], got %v", got)
	}
	if n := s.Visits("A"); n != 1 {
		t.Errorf("expected 1 visit to A, got %d", n)
	}
	s.Rewind(1)
	if got := s.History(); !slices.Equal(got, []string{"A", "B"}) {
		t.Errorf("expected forgetting to be undone, got %v", got)
	}
}

func TestRedirectCountsVisits(t *testing.T) {
	s := newTestState(t, nil)
	if err := s.Redirect("B"); err != nil {
		t.Fatalf("redirect: %v", err)
	}
	if s.Passage() != "B" || s.Turns() != 1 {
		t.Errorf("expected B on turn 1, got %s on %d", s.Passage(), s.Turns())
	}
	if s.Visits("A") != 1 || s.Visits("B") != 1 {
		t.Errorf("expected one visit each, got A=%d B=%d", s.Visits("A"), s.Visits("B"))
	}
	play(t, s, "C")
	if got := s.History(); !slices.Equal(got, []string{"A", "B"}) {
		t.Errorf("expected history [A B], got %v", got)
	}
}

func TestWritePathPrefersViaDiff(t *testing.T) {
	s := newTestState(t, nil)
	set(t, s, "list", value.Array{value.Number(1), value.Number(2), value.Number(3)})
	play(t, s, "B")
	set(t, s, "list", value.Array{value.Number(1), value.Number(2), value.Number(3), value.Number(4)})

	ref := s.Present().Refs["list"]
	if ref == nil || ref.Via != "it + (a: 4)" {
		t.Fatalf("expected via 'it + (a: 4)', got %+v", ref)
	}

	set(t, s, "list", value.Array{value.Number(9)})
	if ref := s.Present().Refs["list"]; ref != nil {
		t.Errorf("expected no ref for an unrelated value, got %+v", ref)
	}

	explicit := &value.Ref{At: "B", From: 0, To: 1, Hash: "x"}
	s.Globals().Set("list", value.Array{value.Number(9)}, explicit)
	if s.Present().Refs["list"] != explicit {
		t.Error("expected the assignment's ref to win")
	}
}

func TestSerializeRoundTrip(t *testing.T) {
	story := testStory{"A": "", "B": "", "C": ""}
	s := newTestState(t, story)
	set(t, s, "n", value.Number(3))
	set(t, s, "gone", value.Boolean(true))
	set(t, s, "tags", value.NewDataset(value.String("x")))
	play(t, s, "B")
	play(t, s, "C")
	dm := value.NewDatamap()
	dm.Set(value.String("hp"), value.Number(10))
	set(t, s, "stats", dm)
	set(t, s, "tags", value.NewDataset(value.String("x"), value.String("y")))
	s.Globals().Delete("gone")
	num, _ := value.LookupDatatype("num")
	if err := s.Globals().DefineType("n", num); err != nil {
		t.Fatalf("define type: %v", err)
	}
	s.MockVisits("A")

	data, err := s.Serialize()
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(raw) != 3 || string(raw[1]) != `"B"` {
		t.Errorf("expected the empty turn to collapse to \"B\", got %s", data)
	}
	if !strings.Contains(string(data), `"@types":{"n":"number"}`) {
		t.Errorf("expected a type restriction in %s", data)
	}

	loaded := newTestState(t, story)
	var loadedPassage string
	loaded.hooks.OnLoad = func(p string) { loadedPassage = p }
	if err := loaded.Deserialize(data); err != nil {
		t.Fatalf("deserialize: %v", err)
	}
	if loadedPassage != "C" {
		t.Errorf("expected OnLoad with C, got %q", loadedPassage)
	}
	if loaded.Turns() != 3 || !slices.Equal(loaded.History(), s.History()) {
		t.Errorf("expected turn 3 and history %v, got %d and %v", s.History(), loaded.Turns(), loaded.History())
	}
	want, got := s.Variables(), loaded.Variables()
	if len(got) != len(want) {
		t.Fatalf("expected %d variables, got %v", len(want), got)
	}
	for name, v := range want {
		if !value.Equal(got[name], v) {
			t.Errorf("$%s: expected %s, got %s", name, value.Source(v), value.Source(got[name]))
		}
	}
	if err := loaded.Globals().Set("n", value.String("no"), nil); err == nil {
		t.Error("expected the type restriction to survive loading")
	}
	again, _ := loaded.Serialize()
	if string(again) != string(data) {
		t.Errorf("expected stable re-serialization\nfirst:  %s\nsecond: %s", data, again)
	}
	if !loaded.Rewind(2) || loaded.Globals().Has("stats") {
		t.Error("expected the loaded timeline to be rewindable")
	}
}

func TestDeserializeErrorsLeaveStateAlone(t *testing.T) {
	tests := []struct {
		name string
		data string
		want error
	}{
		{"not json", `{`, ErrMalformed},
		{"empty", `[]`, ErrMalformed},
		{"bad element", `[3]`, ErrMalformed},
		{"missing passage", `["A","Z"]`, ErrMissingPassage},
		{"bad type", `[{"passage":"A","variables":{"@types":{"x":"widget"}}}]`, ErrMalformed},
		{"bad value", `[{"passage":"A","variables":{"x":{"value":"(a: 1"}}}]`, ErrUnreconstructable},
		{"via without prior", `[{"passage":"A","variables":{"x":{"via":"it + 1"}}}]`, ErrUnreconstructable},
		{"bad span", `[{"passage":"A","variables":{"x":{"at":"A","from":0,"to":4,"hash":"00"}}}]`, ErrUnreconstructable},
		{"huge seed iter", `[{"passage":"A","seed":"x","seedIter":100000000000000}]`, ErrMalformed},
		{"huge ref seed iter", `[{"passage":"A","variables":{"x":{"at":"A","from":0,"to":4,"hash":"00","seed":"x","seedIter":100000000000000}}}]`, ErrMalformed},
		{"null answer", `[{"passage":"A","answers":[null]}]`, ErrMalformed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestState(t, nil)
			set(t, s, "keep", value.Number(1))
			err := s.Deserialize([]byte(tt.data))
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			if s.Globals().Get("keep") != value.Number(1) || s.Passage() != "A" {
				t.Error("expected state to be unchanged")
			}
		})
	}
}

func TestSpanRefSurvivesEditedPassage(t *testing.T) {
	long := strings.Repeat("na", 40)
	lit := `"` + long + `"`
	src := `(set: $song to ` + lit + `)`
	from := strings.Index(src, lit)
	ref := &value.Ref{At: "A", From: from, To: from + len(lit), Hash: eval.SpanHash(lit)}

	s := newTestState(t, testStory{"A": src})
	if err := s.Globals().Set("song", value.String(long), ref); err != nil {
		t.Fatalf("set: %v", err)
	}
	data, err := s.Serialize()
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}
	if strings.Contains(string(data), long) {
		t.Errorf("expected the ref instead of the value, got %s", data)
	}

	edited := testStory{"A": "Some new intro text.\n" + src}
	loaded := newTestState(t, edited)
	if err := loaded.Deserialize(data); err != nil {
		t.Fatalf("deserialize: %v", err)
	}
	if got := loaded.Globals().Get("song"); got != value.String(long) {
		t.Errorf("expected the song back, got %v", got)
	}
}

type memoryStore struct {
	data map[string]string
	fail bool
}

func (m *memoryStore) Get(key string) (string, error) {
	v, ok := m.data[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func (m *memoryStore) Set(key, v string) error {
	if m.fail {
		return errors.New("disk full")
	}
	m.data[key] = v
	return nil
}

func TestMirrorAndRecover(t *testing.T) {
	mem := &memoryStore{data: map[string]string{}}
	story := testStory{"A": "", "B": ""}
	opts := Options{Story: story, Macros: macros.New(), Seed: "s", Persist: mem, PersistKey: "slot"}
	s := New("A", opts)
	set(t, s, "x", value.Number(5))
	play(t, s, "B")

	fresh := New("A", opts)
	ok, err := fresh.Recover()
	if err != nil || !ok {
		t.Fatalf("expected recovery, got %v, %v", ok, err)
	}
	if fresh.Passage() != "B" || fresh.Globals().Get("x") != value.Number(5) {
		t.Errorf("expected B with $x 5, got %s with %v", fresh.Passage(), fresh.Globals().Get("x"))
	}

	mem.fail = true
	if err := s.Play("A"); err != nil {
		t.Errorf("expected mirror failures to be swallowed, got %v", err)
	}

	empty := New("A", Options{Story: story, Persist: &memoryStore{data: map[string]string{}}, PersistKey: "none"})
	if ok, err := empty.Recover(); ok || err != nil {
		t.Errorf("expected nothing to recover, got %v, %v", ok, err)
	}
}

func TestHooksFire(t *testing.T) {
	var events []string
	s := New("A", Options{
		Story: testStory{"A": "", "B": ""},
		Hooks: Hooks{
			OnSet:     func(name string, _ value.Value) { events = append(events, "set "+name) },
			OnDelete:  func(name string) { events = append(events, "delete "+name) },
			OnForward: func(p string) { events = append(events, "forward "+p) },
			OnBack:    func(p string) { events = append(events, "back "+p) },
		},
	})
	set(t, s, "x", value.Number(1))
	s.Globals().Delete("x")
	play(t, s, "B")
	s.Rewind(1)
	s.FastForward(1)
	want := []string{"set x", "delete x", "forward B", "back A", "forward B"}
	if !slices.Equal(events, want) {
		t.Errorf("expected %v, got %v", want, events)
	}
}

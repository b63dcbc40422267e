package macros_test

import (
	"testing"

	"github.com/rcliao/passage/internal/eval"
	"github.com/rcliao/passage/internal/macros"
	"github.com/rcliao/passage/internal/value"
)

func run(t *testing.T, env *eval.Env, src string) value.Value {
	t.Helper()
	v := eval.Expression(env, src)
	if err, ok := v.(*value.Error); ok {
		t.Fatalf("%s: unexpected error: %s", src, err.Message)
	}
	return v
}

func TestFold(t *testing.T) {
	for _, name := range []string{"forget-undos", "forgetUndos", "FORGET_UNDOS", "Forget-Undos"} {
		if got := macros.Fold(name); got != "forgetundos" {
			t.Errorf("%s: expected forgetundos, got %q", name, got)
		}
	}
	r := macros.New()
	if !r.Has("DataMap") || r.Canonical("DM") != "dm" {
		t.Errorf("expected dm aliases to resolve, got canonical %q", r.Canonical("DM"))
	}
}

func TestDataConstructors(t *testing.T) {
	env := eval.NewEnv(macros.New(), "seed")
	tests := []struct {
		src  string
		want string
	}{
		{`(a: 1, "two", true)`, `(a: 1, "two", true)`},
		{`(dm: "b", 2, "a", 1)`, `(dm: "b", 2, "a", 1)`},
		{`(ds: 3, 3, 1)`, `(ds: 3, 1)`},
		{`(range: 4, 1)`, `(a: 1, 2, 3, 4)`},
		{`(dm-names: (dm: "b", 2, "a", 1))`, `(a: "a", "b")`},
		{`(num: "12.5")`, `12.5`},
		{`(max: 3, 9, 2)`, `9`},
		{`(round: 2.5)`, `3`},
		{`(count: "banana", "a")`, `3`},
		{`(rgb: 255, 0, 0)`, `(rgba: 255, 0, 0, 1)`},
	}
	for _, tt := range tests {
		if got := value.Source(run(t, env, tt.src)); got != tt.want {
			t.Errorf("%s: expected %s, got %s", tt.src, tt.want, got)
		}
	}
}

func TestDataConstructorErrors(t *testing.T) {
	env := eval.NewEnv(macros.New(), "seed")
	for _, src := range []string{
		`(dm: "a")`,
		`(dm: "a", 1, "a", 2)`,
		`(dm: true, 1)`,
		`(num: "lots")`,
		`(rgb: 300, 0, 0)`,
		`(round: "x")`,
		`(nonexistent: 1)`,
		`(a: 1 + "x", 2)`,
		`(range: 0, 1000000000000)`,
		`(range: -1000000, 1000000)`,
		`(range: 0, 99999999999999999999999)`,
	} {
		if _, ok := eval.Expression(env, src).(*value.Error); !ok {
			t.Errorf("%s: expected an error", src)
		}
	}
}

func TestRandomStaysInRangeAndReplays(t *testing.T) {
	env := eval.NewEnv(macros.New(), "dice")
	var rolls []value.Value
	for range 50 {
		v := run(t, env, "(random: 1, 6)")
		n := v.(value.Number)
		if n < 1 || n > 6 {
			t.Fatalf("expected a roll in 1..6, got %v", n)
		}
		rolls = append(rolls, v)
	}
	again := eval.NewEnv(macros.New(), "dice")
	for i, want := range rolls {
		if got := run(t, again, "(random: 6, 1)"); got != want {
			t.Fatalf("roll %d: expected %v from the same seed, got %v", i, want, got)
		}
	}
}

func TestSequences(t *testing.T) {
	env := eval.NewEnv(macros.New(), "seed")
	tests := []struct {
		src  string
		want string
	}{
		{`(reversed: 1, 2, 3)`, `(a: 3, 2, 1)`},
		{`(sorted: "b", "c", "a")`, `(a: "a", "b", "c")`},
		{`(sorted: via it * -1, 1, 3, 2)`, `(a: 3, 2, 1)`},
		{`(find: _n where _n > 2, 1, 3, 5)`, `(a: 3, 5)`},
		{`(altered: via it * 2, 1, 2)`, `(a: 2, 4)`},
		{`(joined: ", ", "a", "b")`, `"a, b"`},
		{`(uppercase: "héllo")`, `"HÉLLO"`},
		{`(upperfirst: "élan")`, `"Élan"`},
		{`(str: 1, "a", true)`, `"1atrue"`},
	}
	for _, tt := range tests {
		if got := value.Source(run(t, env, tt.src)); got != tt.want {
			t.Errorf("%s: expected %s, got %s", tt.src, tt.want, got)
		}
	}
	shuffled := run(t, env, "(shuffled: 1, 2, 3, 4)").(value.Array)
	if len(shuffled) != 4 {
		t.Errorf("expected 4 shuffled items, got %d", len(shuffled))
	}
	if _, ok := eval.Expression(env, `(sorted: (a: 1), 2)`).(*value.Error); !ok {
		t.Error("expected sorting an array to fail")
	}
}

func TestCommandsAndChangers(t *testing.T) {
	env := eval.NewEnv(macros.New(), "seed")

	cmd, ok := run(t, env, `(go-to: "Cellar")`).(*value.Command)
	if !ok || cmd.Name != "goto" || cmd.Args[0] != value.String("Cellar") {
		t.Fatalf("expected a goto command, got %v", cmd)
	}
	undo := run(t, env, "(undo:)").(*value.Command)
	if undo.Args[0] != value.Number(1) {
		t.Errorf("expected (undo:) to default to 1 turn, got %v", undo.Args[0])
	}
	for _, src := range []string{"(undo: 0)", "(forget-undos: 0)", `(if: "yes")`, "(mock-turns: -1)", `(go-to: 3)`} {
		if _, ok := eval.Expression(env, src).(*value.Error); !ok {
			t.Errorf("%s: expected an error", src)
		}
	}

	ch, ok := run(t, env, "(if: 2 > 1)[shown]").(*value.Command)
	if !ok || !ch.Changer || !ch.HasHook || ch.Hook != "shown" {
		t.Fatalf("expected a changer with its hook, got %v", ch)
	}
	if value.Source(ch) != "(if: true)[shown]" {
		t.Errorf("expected source (if: true)[shown], got %s", value.Source(ch))
	}

	p, ok := run(t, env, `(partial: "a", 1)`).(*value.Command)
	if !ok || !p.Partial || p.Name != "a" {
		t.Fatalf("expected a partial of (a:), got %v", p)
	}
	if _, ok := eval.Expression(env, `(partial: "nope")`).(*value.Error); !ok {
		t.Error("expected partial of an unknown macro to fail")
	}
}

func TestAssignmentMacros(t *testing.T) {
	env := eval.NewEnv(macros.New(), "seed")
	run(t, env, "(set: $a to 1, $b to 2)")
	run(t, env, "(put: $a + $b into $c)")
	if got := env.Globals.Get("c"); got != value.Number(3) {
		t.Errorf("expected $c 3, got %v", got)
	}
	run(t, env, "(move: $c into $d)")
	if env.Globals.Has("c") || env.Globals.Get("d") != value.Number(3) {
		t.Errorf("expected $c moved into $d, got c=%v d=%v", env.Globals.Get("c"), env.Globals.Get("d"))
	}
	run(t, env, "(unset: $a, $d)")
	if env.Globals.Has("a") || env.Globals.Has("d") {
		t.Error("expected $a and $d to be unset")
	}

	if _, ok := eval.Expression(env, "(set: 1 into $x)").(*value.Error); !ok {
		t.Error("expected (set:) with 'into' to fail")
	}
	if _, ok := eval.Expression(env, "(set: $x to 1, 2)").(*value.Error); !ok {
		t.Error("expected (set:) with a non-assignment to fail")
	}
	if env.Globals.Has("x") {
		t.Error("expected no assignment when any argument is invalid")
	}

	env.Replay = true
	run(t, env, "(set: $b to 99)")
	if got := env.Globals.Get("b"); got != value.Number(2) {
		t.Errorf("expected replay to skip assignments, got $b %v", got)
	}
}

func TestQueriesWithoutTimeline(t *testing.T) {
	env := eval.NewEnv(macros.New(), "seed")
	env.Passage = "Start"
	if got := run(t, env, `(visited: "Start")`); got != value.Boolean(true) {
		t.Errorf("expected the current passage to count as visited, got %v", got)
	}
	if got := run(t, env, "(history:)").(value.Array); len(got) != 0 {
		t.Errorf("expected empty history, got %v", got)
	}
	if got := run(t, env, "(current-time:)").(value.String); got == "" {
		t.Error("expected a formatted time")
	}
}

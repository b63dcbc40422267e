package story

import (
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/rcliao/passage/internal/macros"
	"github.com/rcliao/passage/internal/state"
	"github.com/rcliao/passage/internal/value"
)

const cellar = `:: StoryTitle
The Cellar

:: StoryData
{"start": "Top"}

:: Top [intro]
(set: $lamp to false)You stand at the top of the stairs.

:: Bottom [dark dank] {"position":"100,100"}
(if: $lamp)[A door.](else:)[It's dark.]
`

func TestParseTwee(t *testing.T) {
	st, err := ParseTwee(cellar)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if st.Title != "The Cellar" || st.Start != "Top" {
		t.Errorf("expected title and start from the special passages, got %q and %q", st.Title, st.Start)
	}
	if got := st.Names(); !slices.Equal(got, []string{"Top", "Bottom"}) {
		t.Errorf("expected [Top Bottom], got %v", got)
	}
	p, _ := st.Passage("Bottom")
	if !slices.Equal(p.Tags, []string{"dark", "dank"}) {
		t.Errorf("expected tags [dark dank], got %v", p.Tags)
	}
	if p.Source != "(if: $lamp)[A door.](else:)[It's dark.]" {
		t.Errorf("unexpected source %q", p.Source)
	}
	if p.Line != 10 {
		t.Errorf("expected header on line 10, got %d", p.Line)
	}
	if len(st.Tagged("intro")) != 1 {
		t.Error("expected one intro passage")
	}
}

func TestParseTweeErrors(t *testing.T) {
	for name, src := range map[string]string{
		"duplicate":  ":: A\nx\n:: A\ny",
		"empty":      "just text",
		"bad data":   ":: StoryData\n{nope\n:: A\nx",
		"bad start":  ":: StoryData\n{\"start\": \"Z\"}\n:: A\nx",
		"blank name": "::   \nx",
	} {
		if _, err := ParseTwee(src); err == nil {
			t.Errorf("%s: expected an error", name)
		}
	}
}

func TestParseYAML(t *testing.T) {
	st, err := ParseYAML([]byte(`
title: Cellar
passages:
  Start: "Hello."
  Next: "Bye."
`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if st.Start != "Start" || !st.Has("Next") {
		t.Errorf("expected Start as start and a Next passage, got %q %v", st.Start, st.Names())
	}

	st, err = ParseYAML([]byte(`
start: B
passages:
  - name: A
    text: "a"
  - name: B
    tags: [end]
    text: "b"
`))
	if err != nil {
		t.Fatalf("parse list: %v", err)
	}
	if st.Start != "B" || len(st.Tagged("end")) != 1 {
		t.Errorf("expected B as start with one end passage, got %q", st.Start)
	}
}

func TestLoadByExtension(t *testing.T) {
	dir := t.TempDir()
	tw := filepath.Join(dir, "cellar.twee")
	if err := os.WriteFile(tw, []byte(cellar), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(tw); err != nil {
		t.Errorf("load twee: %v", err)
	}
	txt := filepath.Join(dir, "cellar.txt")
	os.WriteFile(txt, []byte(cellar), 0o644)
	if _, err := Load(txt); err == nil {
		t.Error("expected an unknown extension to fail")
	}
}

func newRunner(t *testing.T, passages map[string]string, start string) *Runner {
	t.Helper()
	var ps []*Passage
	for _, name := range slices.Sorted(maps.Keys(passages)) {
		ps = append(ps, &Passage{Name: name, Source: passages[name]})
	}
	st, err := New("test", start, ps...)
	if err != nil {
		t.Fatalf("new story: %v", err)
	}
	s := state.New(st.Start, state.Options{Story: st, Macros: macros.New(), Seed: "runner"})
	return NewRunner(st, s, RunnerOptions{})
}

func TestRunnerRendersTextAndChangers(t *testing.T) {
	r := newRunner(t, map[string]string{
		"Start": `(set: $n to 3)You have $n coins.(if: $n > 5)[ Rich!](else-if: $n > 1)[ Comfortable.](else:)[ Poor.]`,
	}, "Start")
	out, err := r.Show()
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	if out.Text != "You have 3 coins. Comfortable." {
		t.Errorf("unexpected text %q", out.Text)
	}
	if len(out.Errors) != 0 {
		t.Errorf("expected no errors, got %v", out.Errors)
	}
}

func TestRunnerShowsErrorsInPlace(t *testing.T) {
	r := newRunner(t, map[string]string{"Start": `a(print: 1 + "x")b`}, "Start")
	out, _ := r.Show()
	if !strings.HasPrefix(out.Text, "a[error: ") || !strings.HasSuffix(out.Text, "]b") {
		t.Errorf("expected the error between a and b, got %q", out.Text)
	}
	if len(out.Errors) != 1 {
		t.Errorf("expected 1 error, got %v", out.Errors)
	}
}

func TestRunnerNavigationAndUndo(t *testing.T) {
	r := newRunner(t, map[string]string{
		"Start": `(set: $x to 1)Start.`,
		"Hall":  `(set: $x to it + 1)Hall, x is $x.`,
		"Jump":  `Gone(go-to: "Hall")never shown`,
	}, "Start")
	if _, err := r.Show(); err != nil {
		t.Fatal(err)
	}
	out, err := r.Go("Jump")
	if err != nil {
		t.Fatal(err)
	}
	if out.Passage != "Hall" || out.Text != "Hall, x is 2." || out.Turn != 3 {
		t.Errorf("expected Hall on turn 3, got %+v", out)
	}

	out, err = r.Undo(1)
	if err != nil {
		t.Fatal(err)
	}
	if out.Passage != "Jump" || r.State().Globals().Get("x") != value.Number(1) {
		t.Errorf("expected Jump with $x 1 after undo, got %s with %v", out.Passage, r.State().Globals().Get("x"))
	}
	if out.Text != "Gone" {
		t.Errorf("expected replay to stop at the goto without following it, got %q", out.Text)
	}

	out, err = r.Undo(1)
	if err != nil {
		t.Fatal(err)
	}
	if out.Text != "Start." || r.State().Globals().Get("x") != value.Number(1) {
		t.Errorf("expected Start replayed without reassigning, got %q", out.Text)
	}
	if _, err := r.Undo(1); err == nil {
		t.Error("expected undo past the start to fail")
	}
	out, err = r.Redo(2)
	if err != nil {
		t.Fatal(err)
	}
	if out.Passage != "Hall" || r.State().Globals().Get("x") != value.Number(2) {
		t.Errorf("expected Hall with $x 2 after redo, got %s with %v", out.Passage, r.State().Globals().Get("x"))
	}
}

func TestRunnerUndoCommand(t *testing.T) {
	r := newRunner(t, map[string]string{
		"Start": `Start.`,
		"Oops":  `(undo:)`,
	}, "Start")
	r.Show()
	out, err := r.Go("Oops")
	if err != nil {
		t.Fatal(err)
	}
	if out.Passage != "Start" || out.Text != "Start." {
		t.Errorf("expected (undo:) to return to Start, got %+v", out)
	}
}

func TestRunnerRedirectLoopIsBounded(t *testing.T) {
	r := newRunner(t, map[string]string{
		"Start": `(redirect: "Start")`,
	}, "Start")
	out, err := r.Show()
	if err != nil {
		t.Fatal(err)
	}
	if len(out.Errors) != 1 || out.Turn != 1 {
		t.Errorf("expected one loop error on turn 1, got %+v", out)
	}
}

func TestRunnerPromptSuspendsAndResumes(t *testing.T) {
	r := newRunner(t, map[string]string{
		"Start": `(set: $count to 1)(set: $roll to (random: 1, 100))(set: $name to (prompt: "Name?", "Anon"))Hi $name.`,
	}, "Start")
	out, err := r.Show()
	if err != nil {
		t.Fatal(err)
	}
	if out.Prompt == nil || out.Prompt.Message != "Name?" {
		t.Fatalf("expected a prompt, got %+v", out)
	}
	if !r.Blocked() {
		t.Fatal("expected the runner to be blocked")
	}
	roll := r.State().Globals().Get("roll")

	out, err = r.Resume(value.String("Ada"))
	if err != nil {
		t.Fatalf("resume: %v", err)
	}
	if out.Text != "Hi Ada." {
		t.Errorf("expected 'Hi Ada.', got %q", out.Text)
	}
	if got := r.State().Globals().Get("roll"); got != roll {
		t.Errorf("expected the same roll %v after resuming, got %v", roll, got)
	}
	if r.Blocked() {
		t.Error("expected the runner to be unblocked")
	}
	if _, err := r.Resume(value.String("again")); err == nil {
		t.Error("expected resume without a prompt to fail")
	}
}

func TestReplayUsesRecordedAnswers(t *testing.T) {
	r := newRunner(t, map[string]string{
		"Start": `You are (print: (prompt: "Name?", "Anon")).`,
		"Hall":  `Hall.`,
	}, "Start")
	if _, err := r.Show(); err != nil {
		t.Fatal(err)
	}
	out, err := r.Resume(value.String("Ada"))
	if err != nil {
		t.Fatal(err)
	}
	if out.Text != "You are Ada." {
		t.Fatalf("expected 'You are Ada.', got %q", out.Text)
	}
	if _, err := r.Go("Hall"); err != nil {
		t.Fatal(err)
	}

	out, err = r.Undo(1)
	if err != nil {
		t.Fatal(err)
	}
	if out.Prompt != nil || out.Text != "You are Ada." {
		t.Errorf("expected undo to replay the recorded answer, got %+v", out)
	}

	data, err := r.State().Serialize()
	if err != nil {
		t.Fatal(err)
	}
	s := state.New(r.story.Start, state.Options{Story: r.story, Macros: macros.New(), Seed: "other"})
	if err := s.Deserialize(data); err != nil {
		t.Fatalf("deserialize: %v", err)
	}
	loaded := NewRunner(r.story, s, RunnerOptions{})
	out, err = loaded.Replay()
	if err != nil {
		t.Fatal(err)
	}
	if out.Prompt != nil || out.Text != "You are Ada." {
		t.Errorf("expected a loaded game to replay the recorded answer, got %+v", out)
	}
}

func TestRunnerEval(t *testing.T) {
	r := newRunner(t, map[string]string{"Start": ""}, "Start")
	r.Eval("(set: $gold to 10)")
	if got := r.Eval("$gold * 2"); got != value.Number(20) {
		t.Errorf("expected 20, got %v", got)
	}
	if _, ok := r.Eval(`(prompt: "x")`).(*value.Error); !ok {
		t.Error("expected prompts to fail outside a passage")
	}
}

package excerpt

import (
	"strings"
	"testing"
)

func TestSplit_EmptyInput(t *testing.T) {
	if got := Split("  \n", DefaultOptions()); got != nil {
		t.Errorf("expected nil, got %v", got)
	}
}

func TestSplit_ShortTranscript(t *testing.T) {
	text := Header("Cellar", 2) + "\nIt's dark."
	got := Split(text, DefaultOptions())
	if len(got) != 1 {
		t.Fatalf("expected 1 excerpt, got %d", len(got))
	}
	if got[0].Text != text || got[0].StartLine != 1 || got[0].EndLine != 2 {
		t.Errorf("unexpected excerpt %+v", got[0])
	}
}

func TestSplit_BreaksAtTurnHeaders(t *testing.T) {
	para := strings.Repeat("The stairs creak underfoot. ", 8) // ~220 chars
	text := Header("Top", 1) + "\n" + para + "\n" + Header("Bottom", 2) + "\n" + para + "\n" + Header("Door", 3) + "\n" + para

	got := Split(text, DefaultOptions())
	if len(got) != 3 {
		t.Fatalf("expected one excerpt per turn, got %d", len(got))
	}
	if !strings.HasPrefix(got[1].Text, Header("Bottom", 2)) {
		t.Errorf("expected the second excerpt to start at its header, got %q", got[1].Text)
	}
	if got[1].StartLine != 3 || got[1].EndLine != 4 {
		t.Errorf("expected lines 3-4, got %d-%d", got[1].StartLine, got[1].EndLine)
	}
}

func TestSplit_MergesParagraphs(t *testing.T) {
	para := strings.Repeat("Drip. ", 20) // 120 chars
	text := para + "\n\n" + para + "\n\n" + para + "\n\n" + para + "\n\n" + para + "\n\n" + para

	got := Split(text, Options{TargetSize: 300, MaxSize: 500})
	if len(got) != 3 {
		t.Fatalf("expected paragraphs merged in pairs, got %d excerpts", len(got))
	}
	if got[0].StartLine != 1 || got[0].EndLine != 3 {
		t.Errorf("expected the first excerpt on lines 1-3, got %d-%d", got[0].StartLine, got[0].EndLine)
	}
}

func TestSplit_RespectsMaxSize(t *testing.T) {
	var lines []string
	for i := 0; i < 20; i++ {
		lines = append(lines, "This is a line of text that is about fifty characters long.")
	}
	got := Split(strings.Join(lines, "\n"), Options{TargetSize: 200, MaxSize: 300})
	if len(got) < 2 {
		t.Fatalf("expected at least 2 excerpts, got %d", len(got))
	}
	for _, e := range got {
		if len(e.Text) > 300 {
			t.Errorf("excerpt of %d chars exceeds max", len(e.Text))
		}
	}
}

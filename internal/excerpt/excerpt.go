// Package excerpt splits play transcripts into pieces for search indexing.
package excerpt

import (
	"strconv"
	"strings"
)

const (
	DefaultTargetSize = 400
	DefaultMaxSize    = 600
)

// HeaderPrefix starts the line a transcript writes before each turn.
const HeaderPrefix = "=="

// Options configures splitting.
type Options struct {
	TargetSize int
	MaxSize    int
}

func DefaultOptions() Options {
	return Options{TargetSize: DefaultTargetSize, MaxSize: DefaultMaxSize}
}

// Excerpt is a piece of transcript with its 1-based line range.
type Excerpt struct {
	Text      string
	StartLine int
	EndLine   int
}

// Header formats the line that introduces a turn in a transcript.
func Header(passage string, turn int) string {
	return HeaderPrefix + " " + passage + " (turn " + strconv.Itoa(turn) + ") " + HeaderPrefix
}

// Split breaks a transcript into excerpts. A transcript no longer than
// MaxSize is one excerpt. Longer ones break at turn headers and paragraph
// breaks, with small pieces merged up to TargetSize.
func Split(text string, opts Options) []Excerpt {
	if opts.TargetSize == 0 {
		opts = DefaultOptions()
	}

	text = strings.TrimSpace(text)
	if len(text) == 0 {
		return nil
	}
	if len(text) <= opts.MaxSize {
		lines := strings.Count(text, "\n")
		return []Excerpt{{Text: text, StartLine: 1, EndLine: lines + 1}}
	}
	return merge(blocks(text), opts)
}

type block struct {
	text      string
	startLine int
	endLine   int
	header    bool
}

// blocks splits on turn headers and blank lines.
func blocks(text string) []block {
	lines := strings.Split(text, "\n")
	var out []block
	var current []string
	start := 1
	header := false

	flush := func(end int) {
		if t := strings.TrimSpace(strings.Join(current, "\n")); t != "" {
			out = append(out, block{text: t, startLine: start, endLine: end, header: header})
		}
		current = nil
		start = end + 1
		header = false
	}

	for i, line := range lines {
		n := i + 1
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, HeaderPrefix):
			flush(n - 1)
			header = true
		case trimmed == "":
			flush(n - 1)
			continue
		}
		if len(current) == 0 {
			start = n
		}
		current = append(current, line)
	}
	flush(len(lines))
	return out
}

// merge combines small blocks, never across a turn header, and splits
// oversized ones.
func merge(blocks []block, opts Options) []Excerpt {
	var out []Excerpt
	var acc block

	flush := func() {
		t := strings.TrimSpace(acc.text)
		if t == "" {
			return
		}
		if len(t) > opts.MaxSize {
			out = append(out, hardSplit(t, acc.startLine, opts)...)
		} else {
			out = append(out, Excerpt{Text: t, StartLine: acc.startLine, EndLine: acc.endLine})
		}
		acc = block{}
	}

	for _, b := range blocks {
		if acc.text == "" {
			acc = b
			continue
		}
		combined := acc.text + "\n\n" + b.text
		if !b.header && len(combined) <= opts.TargetSize {
			acc.text = combined
			acc.endLine = b.endLine
			continue
		}
		flush()
		acc = b
	}
	flush()
	return out
}

// hardSplit breaks text longer than MaxSize on line boundaries.
func hardSplit(text string, startLine int, opts Options) []Excerpt {
	lines := strings.Split(text, "\n")
	var out []Excerpt
	var current []string
	curStart := startLine
	curLen := 0

	emit := func(end int) {
		if t := strings.TrimSpace(strings.Join(current, "\n")); t != "" {
			out = append(out, Excerpt{Text: t, StartLine: curStart, EndLine: end})
		}
	}
	for i, line := range lines {
		if curLen+len(line) > opts.TargetSize && len(current) > 0 {
			emit(startLine + i - 1)
			current = nil
			curStart = startLine + i
			curLen = 0
		}
		current = append(current, line)
		curLen += len(line) + 1
	}
	emit(startLine + len(lines) - 1)
	return out
}


package varref

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/rcliao/passage/internal/value"
)

type keyKind int

const (
	keyName keyKind = iota
	keyIndex
	keyRange
	keyPositions
	keyLength
	keyDeterminer
)

// Key is a compiled property. Sequence indices are signed: positive counts
// from the start (1-based), negative from the end.
type Key struct {
	kind      keyKind
	name      value.Value
	index     int
	first     int
	last      int
	positions []int
	det       string
}

// Random is the draw the "random" property needs.
type Random interface {
	IntN(n int) int
}

var (
	ordinalRe = regexp.MustCompile(`^(?i)(\d+)(?:st|nd|rd|th)(last)?$`)
	rangeRe   = regexp.MustCompile(`^(?i)(\d+(?:st|nd|rd|th)(?:last)?|last)to(\d+(?:st|nd|rd|th)(?:last)?|last)$`)
)

var determiners = map[string]string{"some": "any", "any": "any", "all": "all", "start": "start", "end": "end"}

func (k Key) String() string {
	switch k.kind {
	case keyIndex:
		return ordinal(k.index)
	case keyRange:
		return ordinal(k.first) + "to" + ordinal(k.last)
	case keyPositions:
		parts := make([]string, len(k.positions))
		for i, p := range k.positions {
			parts[i] = ordinal(p)
		}
		return strings.Join(parts, ", ")
	case keyLength:
		return "length"
	case keyDeterminer:
		return k.det
	}
	return value.Print(k.name)
}

func ordinal(i int) string {
	if i == -1 {
		return "last"
	}
	n := i
	suffix := ""
	if n < 0 {
		n = -n
		suffix = "last"
	}
	th := "th"
	if n%100 < 11 || n%100 > 13 {
		switch n % 10 {
		case 1:
			th = "st"
		case 2:
			th = "nd"
		case 3:
			th = "rd"
		}
	}
	return strconv.Itoa(n) + th + suffix
}

// maxPosition bounds positions so they convert to int without overflow.
const maxPosition = math.MaxInt32

// parseOrdinal reads "3rd", "2ndlast" or "last".
func parseOrdinal(s string) (int, *value.Error) {
	if strings.EqualFold(s, "last") {
		return -1, nil
	}
	m := ordinalRe.FindStringSubmatch(s)
	if m == nil {
		return 0, value.Errorf(value.PropertyError, "'%s' isn't a position.", s)
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n > maxPosition {
		return 0, value.Errorf(value.PropertyError, "'%s' is too far along to be a position.", s)
	}
	if n == 0 {
		return 0, value.Errorf(value.PropertyError, "You can't use '%s' because positions start at 1st.", s)
	}
	if m[2] != "" {
		n = -n
	}
	return n, nil
}

// compileKey turns a raw property (a name from `'s name` or a computed
// value) into a Key for the given container.
func compileKey(container, raw value.Value, rnd Random) (Key, *value.Error) {
	if e := value.FirstError(container, raw); e != nil {
		return Key{}, e
	}
	switch c := container.(type) {
	case *value.Datamap:
		if !value.ValidKey(raw) {
			return Key{}, value.Errorf(value.PropertyError, "Only strings and numbers can be datamap names, not %s.", value.Describe(raw))
		}
		return Key{kind: keyName, name: raw}, nil
	case *value.Dataset:
		if s, ok := raw.(value.String); ok {
			word := strings.ToLower(string(s))
			if word == "length" {
				return Key{kind: keyLength}, nil
			}
			if d, ok := determiners[word]; ok && (d == "any" || d == "all") {
				return Key{kind: keyDeterminer, det: d}, nil
			}
		}
		return Key{}, value.Errorf(value.PropertyError, "You can only get the 'length', 'any' or 'all' of a dataset, not %s.", value.Source(raw)).
			Explain("Datasets have no positions; use (a:) ...$set to get an array of their values.")
	case value.Colour:
		if s, ok := raw.(value.String); ok {
			switch strings.ToLower(string(s)) {
			case "r", "g", "b", "a":
				return Key{kind: keyName, name: value.String(strings.ToLower(string(s)))}, nil
			}
		}
		return Key{}, value.Errorf(value.PropertyError, "Colours only have 'r', 'g', 'b' and 'a' data names, not %s.", value.Source(raw))
	case value.String, value.Array:
		return compileSequenceKey(c, raw, rnd)
	}
	return Key{}, value.Errorf(value.PropertyError, "You can't get data values from %s.", value.Describe(container))
}

func compileSequenceKey(container, raw value.Value, rnd Random) (Key, *value.Error) {
	switch r := raw.(type) {
	case value.Number:
		n := float64(r)
		if n != math.Trunc(n) {
			return Key{}, value.Errorf(value.PropertyError, "%s isn't a whole number, so it can't be a position.", value.Source(r))
		}
		if n == 0 {
			return Key{}, value.Errorf(value.PropertyError, "You can't use position 0 because positions start at 1.").
				Explain("Use 1 (or 1st) for the first item and -1 (or last) for the last.")
		}
		if math.Abs(n) > maxPosition {
			return Key{}, value.Errorf(value.PropertyError, "%s is too far along to be a position.", value.Source(r))
		}
		return Key{kind: keyIndex, index: int(n)}, nil
	case value.Array:
		positions := make([]int, 0, len(r))
		for _, x := range r {
			k, err := compileSequenceKey(container, x, rnd)
			if err != nil {
				return Key{}, err
			}
			if k.kind != keyIndex {
				return Key{}, value.Errorf(value.PropertyError, "An array of positions can only hold positions, not %s.", value.Source(x))
			}
			positions = append(positions, k.index)
		}
		return Key{kind: keyPositions, positions: positions}, nil
	case value.String:
		word := string(r)
		lower := strings.ToLower(word)
		switch lower {
		case "length":
			return Key{kind: keyLength}, nil
		case "random":
			n := seqLen(container)
			if n == 0 {
				return Key{}, value.Errorf(value.PropertyError, "I can't get a random item of %s.", value.Describe(container))
			}
			return Key{kind: keyIndex, index: rnd.IntN(n) + 1}, nil
		}
		if d, ok := determiners[lower]; ok {
			return Key{kind: keyDeterminer, det: d}, nil
		}
		if m := rangeRe.FindStringSubmatch(word); m != nil {
			first, err := parseOrdinal(m[1])
			if err != nil {
				return Key{}, err
			}
			last, err := parseOrdinal(m[2])
			if err != nil {
				return Key{}, err
			}
			return Key{kind: keyRange, first: first, last: last}, nil
		}
		if n, err := parseOrdinal(word); err == nil {
			return Key{kind: keyIndex, index: n}, nil
		} else if ordinalRe.MatchString(word) {
			return Key{}, err
		}
		return Key{}, value.Errorf(value.PropertyError, "You can only use positions ('4th', 'last', '2ndlast', (2), etc.) and 'length' with %s, not '%s'.", value.Describe(container), word)
	}
	return Key{}, value.Errorf(value.PropertyError, "You can't use %s as a position of %s.", value.Describe(raw), value.Describe(container))
}

func seqLen(v value.Value) int {
	switch v := v.(type) {
	case value.String:
		return len([]rune(string(v)))
	case value.Array:
		return len(v)
	}
	return 0
}

// resolveIndex converts a signed 1-based index to a 0-based one.
func resolveIndex(i, n int) (int, bool) {
	if i > 0 && i <= n {
		return i - 1, true
	}
	if i < 0 && i >= -n {
		return n + i, true
	}
	return 0, false
}

// resolveRange converts a deferred range to 0-based inclusive bounds against
// the sequence's current length, clamping to what exists.
func resolveRange(first, last, n int) (int, int) {
	lo := first - 1
	if first < 0 {
		lo = n + first
	}
	hi := last - 1
	if last < 0 {
		hi = n + last
	}
	if lo > hi {
		lo, hi = hi, lo
	}
	return max(lo, 0), min(hi, n-1)
}

// positionsOf lists the 0-based positions a key addresses in a sequence.
func positionsOf(k Key, n int, container value.Value) ([]int, *value.Error) {
	switch k.kind {
	case keyIndex:
		i, ok := resolveIndex(k.index, n)
		if !ok {
			return nil, outOfRange(container, k.index, n)
		}
		return []int{i}, nil
	case keyRange:
		lo, hi := resolveRange(k.first, k.last, n)
		out := []int{}
		for i := lo; i <= hi; i++ {
			out = append(out, i)
		}
		return out, nil
	case keyPositions:
		out := make([]int, 0, len(k.positions))
		for _, p := range k.positions {
			i, ok := resolveIndex(p, n)
			if !ok {
				return nil, outOfRange(container, p, n)
			}
			out = append(out, i)
		}
		return out, nil
	}
	return nil, value.Errorf(value.PropertyError, "'%s' isn't a position.", k)
}

func outOfRange(container value.Value, index, n int) *value.Error {
	return value.Errorf(value.PropertyError, "%s has only %d %s, so it doesn't have a %s.",
		capitalise(value.Describe(container)), n, plural(container, n), ordinal(index)).
		Explain("Available positions are 1st to %s.", ordinalOrNone(n))
}

func plural(container value.Value, n int) string {
	noun := "item"
	if _, ok := container.(value.String); ok {
		noun = "character"
	}
	if n != 1 {
		noun += "s"
	}
	return noun
}

func ordinalOrNone(n int) string {
	if n == 0 {
		return "nothing"
	}
	return ordinal(n)
}

func capitalise(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func availableNames(d *value.Datamap) string {
	keys := d.Keys()
	if len(keys) == 0 {
		return "it has no names"
	}
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = value.Source(k)
	}
	return fmt.Sprintf("available names: %s", strings.Join(parts, ", "))
}

package state

import (
	"strings"

	"github.com/rcliao/passage/internal/value"
)

// diff expresses v as a change to name's value at the end of the last past
// turn, such as `it + (a: 4)`. It only succeeds when that change prints
// shorter than v itself.
func (s *State) diff(name string, v value.Value) (string, bool) {
	old, ok := s.prior(name)
	if !ok {
		return "", false
	}
	var via string
	switch v := v.(type) {
	case value.Array:
		if old, ok := old.(value.Array); ok {
			via = arrayDiff(old, v)
		}
	case *value.Datamap:
		if old, ok := old.(*value.Datamap); ok {
			via = datamapDiff(old, v)
		}
	case *value.Dataset:
		if old, ok := old.(*value.Dataset); ok {
			via = datasetDiff(old, v)
		}
	case value.String:
		if old, ok := old.(value.String); ok {
			via = stringDiff(old, v)
		}
	}
	if via == "" || len(via) >= len(value.Source(v)) {
		return "", false
	}
	return via, true
}

func arrayDiff(old, cur value.Array) string {
	if len(cur) <= len(old) {
		return ""
	}
	if equalRun(old, cur[:len(old)]) {
		return "it + " + value.Source(cur[len(old):])
	}
	if equalRun(old, cur[len(cur)-len(old):]) {
		return value.Source(cur[:len(cur)-len(old)]) + " + it"
	}
	return ""
}

func equalRun(a, b value.Array) bool {
	for i := range a {
		if !value.Equal(a[i], b[i]) {
			return false
		}
	}
	return true
}

// datamapDiff handles added and changed names; removals print in full.
func datamapDiff(old, cur *value.Datamap) string {
	changed := value.NewDatamap()
	for _, k := range old.Keys() {
		if _, ok := cur.Get(k); !ok {
			return ""
		}
	}
	for _, k := range cur.Keys() {
		v, _ := cur.Get(k)
		if was, ok := old.Get(k); ok && value.Equal(was, v) {
			continue
		}
		changed.Set(k, v)
	}
	if changed.Len() == 0 {
		return ""
	}
	return "it + " + value.Source(changed)
}

func datasetDiff(old, cur *value.Dataset) string {
	added, removed := value.NewDataset(), value.NewDataset()
	for _, v := range cur.Items() {
		if !old.Has(v) {
			added.Add(v)
		}
	}
	for _, v := range old.Items() {
		if !cur.Has(v) {
			removed.Add(v)
		}
	}
	var b strings.Builder
	b.WriteString("it")
	if added.Len() > 0 {
		b.WriteString(" + " + value.Source(added))
	}
	if removed.Len() > 0 {
		b.WriteString(" - " + value.Source(removed))
	}
	if b.Len() == 2 {
		return ""
	}
	return b.String()
}

func stringDiff(old, cur value.String) string {
	if len(cur) <= len(old) {
		return ""
	}
	if rest, ok := strings.CutPrefix(string(cur), string(old)); ok {
		return "it + " + value.Source(value.String(rest))
	}
	if rest, ok := strings.CutSuffix(string(cur), string(old)); ok {
		return value.Source(value.String(rest)) + " + it"
	}
	return ""
}

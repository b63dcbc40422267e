// Package story holds a story's passages, loads them from YAML or twee
// files, and runs them against a timeline.
package story

import (
	"fmt"
	"slices"
)

// Passage is one named piece of story source.
type Passage struct {
	Name   string   `yaml:"name" json:"name"`
	Tags   []string `yaml:"tags,omitempty" json:"tags,omitempty"`
	Source string   `yaml:"text" json:"text"`
	// Line is where the passage header sits in its file, 1-based.
	Line int `yaml:"-" json:"line,omitempty"`
}

// Story is a set of passages and the one play begins at.
type Story struct {
	Title    string
	Start    string
	passages map[string]*Passage
	order    []string
}

// New builds a story. When start is empty the passage named "Start" is
// used if there is one, otherwise the first passage.
func New(title, start string, passages ...*Passage) (*Story, error) {
	s := &Story{Title: title, passages: map[string]*Passage{}}
	for _, p := range passages {
		if p.Name == "" {
			return nil, fmt.Errorf("passage at line %d has no name", p.Line)
		}
		if _, dup := s.passages[p.Name]; dup {
			return nil, fmt.Errorf("passage %q is defined twice", p.Name)
		}
		s.passages[p.Name] = p
		s.order = append(s.order, p.Name)
	}
	if len(s.order) == 0 {
		return nil, fmt.Errorf("story %q has no passages", title)
	}
	switch {
	case start != "":
		if _, ok := s.passages[start]; !ok {
			return nil, fmt.Errorf("start passage %q does not exist", start)
		}
		s.Start = start
	case s.Has("Start"):
		s.Start = "Start"
	default:
		s.Start = s.order[0]
	}
	return s, nil
}

func (s *Story) Has(name string) bool {
	_, ok := s.passages[name]
	return ok
}

// Source returns a passage's text.
func (s *Story) Source(name string) (string, bool) {
	p, ok := s.passages[name]
	if !ok {
		return "", false
	}
	return p.Source, true
}

func (s *Story) Passage(name string) (*Passage, bool) {
	p, ok := s.passages[name]
	return p, ok
}

// Names lists passage names in file order.
func (s *Story) Names() []string {
	return slices.Clone(s.order)
}

// Tagged lists the passages carrying tag, in file order.
func (s *Story) Tagged(tag string) []*Passage {
	var out []*Passage
	for _, name := range s.order {
		if p := s.passages[name]; slices.Contains(p.Tags, tag) {
			out = append(out, p)
		}
	}
	return out
}

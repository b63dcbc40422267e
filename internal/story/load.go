package story

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Load reads a story file, choosing the format by extension: .yaml/.yml
// or .tw/.twee.
func Load(path string) (*Story, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read story: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return ParseYAML(data)
	case ".tw", ".twee":
		return ParseTwee(string(data))
	}
	return nil, fmt.Errorf("unknown story format %q", filepath.Ext(path))
}

type yamlStory struct {
	Title string `yaml:"title"`
	Start string `yaml:"start"`
	// Passages is either a name → text mapping or a list of passages.
	Passages yaml.Node `yaml:"passages"`
}

// ParseYAML reads a story like
//
//	title: Cellar
//	start: Top
//	passages:
//	  Top: "(set: $lamp to true)Stairs lead down."
//	  Bottom: "(if: $lamp)[The lamp shows a door.](else:)[It's dark.]"
//
// Passages may also be a list of {name, tags, text} entries.
func ParseYAML(data []byte) (*Story, error) {
	var ys yamlStory
	if err := yaml.Unmarshal(data, &ys); err != nil {
		return nil, fmt.Errorf("parse story yaml: %w", err)
	}
	var passages []*Passage
	switch ys.Passages.Kind {
	case yaml.MappingNode:
		for i := 0; i+1 < len(ys.Passages.Content); i += 2 {
			k, v := ys.Passages.Content[i], ys.Passages.Content[i+1]
			passages = append(passages, &Passage{Name: k.Value, Source: v.Value, Line: k.Line})
		}
	case yaml.SequenceNode:
		for _, n := range ys.Passages.Content {
			var p Passage
			if err := n.Decode(&p); err != nil {
				return nil, fmt.Errorf("passage at line %d: %w", n.Line, err)
			}
			p.Line = n.Line
			passages = append(passages, &p)
		}
	case 0:
		return nil, fmt.Errorf("story yaml has no passages")
	default:
		return nil, fmt.Errorf("story yaml: passages must be a mapping or a list")
	}
	return New(ys.Title, ys.Start, passages...)
}

// ParseTwee reads twee source: each passage starts with a header line
// ":: Name [tag tag] {metadata}". The special passages StoryTitle and
// StoryData set the title and, through StoryData's "start" field, the start
// passage.
func ParseTwee(text string) (*Story, error) {
	var (
		passages []*Passage
		current  *Passage
		body     []string
		title    string
		start    string
	)
	flush := func() error {
		if current == nil {
			return nil
		}
		current.Source = strings.TrimRight(strings.Join(body, "\n"), " \t\r\n")
		body = nil
		switch current.Name {
		case "StoryTitle":
			title = strings.TrimSpace(current.Source)
		case "StoryData":
			var data struct {
				Start string `json:"start"`
			}
			if err := json.Unmarshal([]byte(current.Source), &data); err != nil {
				return fmt.Errorf("StoryData at line %d: %w", current.Line, err)
			}
			start = data.Start
		default:
			passages = append(passages, current)
		}
		current = nil
		return nil
	}

	for i, line := range strings.Split(text, "\n") {
		header, ok := strings.CutPrefix(line, "::")
		if !ok {
			if current != nil {
				body = append(body, line)
			}
			continue
		}
		if err := flush(); err != nil {
			return nil, err
		}
		current = parseHeader(strings.TrimSpace(header))
		current.Line = i + 1
	}
	if err := flush(); err != nil {
		return nil, err
	}
	return New(title, start, passages...)
}

// parseHeader splits "Name [tags] {meta}". Metadata is ignored.
func parseHeader(h string) *Passage {
	if i := strings.LastIndex(h, "{"); i >= 0 && strings.HasSuffix(h, "}") {
		h = strings.TrimSpace(h[:i])
	}
	p := &Passage{}
	if i := strings.LastIndex(h, "["); i >= 0 && strings.HasSuffix(h, "]") {
		p.Tags = strings.Fields(h[i+1 : len(h)-1])
		h = strings.TrimSpace(h[:i])
	}
	p.Name = strings.ReplaceAll(h, `\`, "")
	return p
}

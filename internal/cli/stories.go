package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "stories [story-file]",
		Short: "List stories with saves, or the passages of a story file",
		Args:  cobra.MaximumNArgs(1),
		Run:   runStories,
	}

	RootCmd.AddCommand(cmd)
}

func runStories(cmd *cobra.Command, args []string) {
	if len(args) > 0 {
		st, key, err := loadStory(args)
		if err != nil {
			exitErr("load story", err)
		}
		type passage struct {
			Name string   `json:"name"`
			Tags []string `json:"tags,omitempty"`
			Line int      `json:"line,omitempty"`
		}
		out := struct {
			Key      string    `json:"key"`
			Title    string    `json:"title,omitempty"`
			Start    string    `json:"start"`
			Passages []passage `json:"passages"`
		}{Key: key, Title: st.Title, Start: st.Start}
		for _, name := range st.Names() {
			p, _ := st.Passage(name)
			out.Passages = append(out.Passages, passage{Name: p.Name, Tags: p.Tags, Line: p.Line})
		}
		b, _ := json.MarshalIndent(out, "", "  ")
		fmt.Println(string(b))
		return
	}

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	rows, err := s.Stories(cmd.Context())
	if err != nil {
		exitErr("list stories", err)
	}

	b, _ := json.MarshalIndent(rows, "", "  ")
	fmt.Println(string(b))
}

package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rcliao/passage/internal/macros"
	"github.com/rcliao/passage/internal/state"
	"github.com/rcliao/passage/internal/story"
	"github.com/rcliao/passage/internal/value"
)

func init() {
	cmd := &cobra.Command{
		Use:   "eval [expression]",
		Short: "Evaluate an expression",
		Long: `Evaluate an expression against a fresh timeline. With --story the story's
start passage is rendered first, so its variables are set.`,
		Args: cobra.MinimumNArgs(1),
		Run:  runEval,
	}

	cmd.Flags().StringP("story", "s", "", "Story file to start from")
	cmd.Flags().String("seed", "", "Random seed")

	RootCmd.AddCommand(cmd)
}

func runEval(cmd *cobra.Command, args []string) {
	storyPath, _ := cmd.Flags().GetString("story")
	seed, _ := cmd.Flags().GetString("seed")
	if seed == "" {
		seed = cfg.Seed
	}

	var st *story.Story
	var err error
	if storyPath != "" {
		st, _, err = loadStory([]string{storyPath})
	} else {
		st, err = story.New("eval", "", &story.Passage{Name: "Start"})
	}
	if err != nil {
		exitErr("load story", err)
	}

	tl := state.New(st.Start, state.Options{Story: st, Macros: macros.New(), Seed: seed})
	r := story.NewRunner(st, tl, story.RunnerOptions{MaxRedirects: cfg.MaxRedirects})
	if _, err := r.Show(); err != nil {
		exitErr("render start", err)
	}

	v := r.Eval(strings.Join(args, " "))
	e, isErr := v.(*value.Error)

	if formatFlag == "text" {
		if isErr {
			exitErr("eval", fmt.Errorf("%s", e.Message))
		}
		fmt.Println(value.Print(v))
		return
	}

	out := map[string]any{"source": value.Source(v), "type": value.Describe(v), "print": value.Print(v)}
	if isErr {
		out = map[string]any{"error": e.Message, "kind": e.Kind.String()}
	}
	b, _ := json.MarshalIndent(out, "", "  ")
	fmt.Println(string(b))
	if isErr {
		exitErr("eval", fmt.Errorf("%s", e.Message))
	}
}

package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rcliao/passage/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search saves by keyword",
		Long:  "Search save slots, passages, labels and transcripts for matching text.",
		Args:  cobra.MinimumNArgs(1),
		Run:   runSearch,
	}

	cmd.Flags().StringP("story", "s", "", "Filter by story")
	cmd.Flags().IntP("limit", "l", 20, "Max results")

	savesCmd.AddCommand(cmd)
}

func runSearch(cmd *cobra.Command, args []string) {
	storyKey, _ := cmd.Flags().GetString("story")
	limit, _ := cmd.Flags().GetInt("limit")
	query := strings.Join(args, " ")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	results, err := s.Search(cmd.Context(), store.SearchParams{
		Story: storyKey,
		Query: query,
		Limit: limit,
	})
	if err != nil {
		exitErr("search", err)
	}

	if len(results) == 0 {
		fmt.Println("[]")
		return
	}
	for i := range results {
		results[i].Data = ""
		results[i].Transcript = ""
	}

	b, _ := json.MarshalIndent(results, "", "  ")
	fmt.Println(string(b))
}

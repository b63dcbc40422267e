package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rcliao/passage/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List save slots",
		Run:   runList,
	}

	cmd.Flags().StringP("story", "s", "", "Filter by story")
	cmd.Flags().StringP("tags", "t", "", "Filter by tags (comma-separated)")
	cmd.Flags().IntP("limit", "l", 20, "Max results")
	cmd.Flags().Bool("slots-only", false, "Only output story/slot pairs")

	savesCmd.AddCommand(cmd)
}

func runList(cmd *cobra.Command, args []string) {
	storyKey, _ := cmd.Flags().GetString("story")
	tagsStr, _ := cmd.Flags().GetString("tags")
	limit, _ := cmd.Flags().GetInt("limit")
	slotsOnly, _ := cmd.Flags().GetBool("slots-only")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	saves, err := s.List(cmd.Context(), store.ListParams{
		Story: storyKey,
		Tags:  splitTags(tagsStr),
		Limit: limit,
	})
	if err != nil {
		exitErr("list", err)
	}

	if slotsOnly || formatFlag == "text" {
		for _, m := range saves {
			if slotsOnly {
				fmt.Printf("%s/%s\n", m.Story, m.Slot)
				continue
			}
			fmt.Printf("%s/%s v%d  turn %d at %s  %s\n", m.Story, m.Slot, m.Version, m.Turn, m.Passage, m.Label)
		}
		return
	}

	for i := range saves {
		saves[i].Data = ""
		saves[i].Transcript = ""
	}
	b, _ := json.MarshalIndent(saves, "", "  ")
	fmt.Println(string(b))
}

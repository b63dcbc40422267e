package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rcliao/passage/internal/model"
	"github.com/rcliao/passage/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "recap",
		Short: "Show the story so far for a slot",
		Long:  "Assemble the transcripts saved to a slot, newest first, within a character budget.",
		Run:   runRecap,
	}

	cmd.Flags().StringP("story", "s", "", "Story (required)")
	cmd.Flags().String("slot", model.AutosaveSlot, "Slot")
	cmd.Flags().IntP("budget", "b", 4000, "Max characters")

	cmd.MarkFlagRequired("story")

	savesCmd.AddCommand(cmd)
}

func runRecap(cmd *cobra.Command, args []string) {
	storyKey, _ := cmd.Flags().GetString("story")
	slot, _ := cmd.Flags().GetString("slot")
	budget, _ := cmd.Flags().GetInt("budget")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	recap, err := s.Recap(cmd.Context(), store.RecapParams{Story: storyKey, Slot: slot, Budget: budget})
	if err != nil {
		exitErr("recap", err)
	}

	if formatFlag == "text" {
		for _, t := range recap.Turns {
			fmt.Printf("%s\n\n", t.Transcript)
		}
		return
	}
	b, _ := json.MarshalIndent(recap, "", "  ")
	fmt.Println(string(b))
}

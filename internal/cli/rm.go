package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rcliao/passage/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "rm",
		Short: "Delete a save",
		Run:   runRm,
	}

	cmd.Flags().StringP("story", "s", "", "Story (required)")
	cmd.Flags().String("slot", "", "Slot (required)")
	cmd.Flags().Bool("all-versions", false, "Delete all versions")
	cmd.Flags().Bool("hard", false, "Permanent delete (irreversible)")

	cmd.MarkFlagRequired("story")
	cmd.MarkFlagRequired("slot")

	savesCmd.AddCommand(cmd)
}

func runRm(cmd *cobra.Command, args []string) {
	storyKey, _ := cmd.Flags().GetString("story")
	slot, _ := cmd.Flags().GetString("slot")
	allVersions, _ := cmd.Flags().GetBool("all-versions")
	hard, _ := cmd.Flags().GetBool("hard")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	err = s.Rm(cmd.Context(), store.RmParams{
		Story:       storyKey,
		Slot:        slot,
		AllVersions: allVersions,
		Hard:        hard,
	})
	if err != nil {
		exitErr("rm", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), `{"ok":true,"story":%q,"slot":%q}`+"\n", storyKey, slot)
}

package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rcliao/passage/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "link",
		Short: "Create or remove relations between save slots",
		Run:   runLink,
	}

	cmd.Flags().StringP("story", "s", "", "Story (required)")
	cmd.Flags().String("from", "", "Source slot")
	cmd.Flags().String("to", "", "Target slot")
	cmd.Flags().StringP("rel", "r", store.RelBranches, "Relation: branches, continues")
	cmd.Flags().Bool("rm", false, "Remove the link")

	cmd.MarkFlagRequired("story")
	cmd.MarkFlagRequired("from")
	cmd.MarkFlagRequired("to")

	savesCmd.AddCommand(cmd)
}

func runLink(cmd *cobra.Command, args []string) {
	storyKey, _ := cmd.Flags().GetString("story")
	from, _ := cmd.Flags().GetString("from")
	to, _ := cmd.Flags().GetString("to")
	rel, _ := cmd.Flags().GetString("rel")
	rm, _ := cmd.Flags().GetBool("rm")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	link, err := s.Link(cmd.Context(), store.LinkParams{
		Story:    storyKey,
		FromSlot: from,
		ToSlot:   to,
		Rel:      rel,
		Remove:   rm,
	})
	if err != nil {
		exitErr("link", err)
	}

	b, _ := json.MarshalIndent(link, "", "  ")
	fmt.Println(string(b))
}

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
		Use:   "get",
		Short: "Show a save",
		Run:   runGet,
	}

	cmd.Flags().StringP("story", "s", "", "Story (required)")
	cmd.Flags().String("slot", "", "Slot (required)")
	cmd.Flags().Bool("history", false, "Return all versions (newest first)")
	cmd.Flags().IntP("version", "v", 0, "Specific version number")
	cmd.Flags().Bool("data", false, "Only output the serialized timeline")

	cmd.MarkFlagRequired("story")
	cmd.MarkFlagRequired("slot")

	savesCmd.AddCommand(cmd)
}

func runGet(cmd *cobra.Command, args []string) {
	storyKey, _ := cmd.Flags().GetString("story")
	slot, _ := cmd.Flags().GetString("slot")
	history, _ := cmd.Flags().GetBool("history")
	version, _ := cmd.Flags().GetInt("version")
	dataOnly, _ := cmd.Flags().GetBool("data")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	saves, err := s.Get(cmd.Context(), store.GetParams{
		Story:   storyKey,
		Slot:    slot,
		History: history,
		Version: version,
	})
	if err != nil {
		exitErr("get", err)
	}

	if dataOnly {
		fmt.Println(saves[0].Data)
		return
	}
	if history || len(saves) > 1 {
		b, _ := json.MarshalIndent(saves, "", "  ")
		fmt.Println(string(b))
		return
	}

	links, err := s.GetLinks(cmd.Context(), saves[0].ID)
	if err != nil {
		exitErr("get links", err)
	}
	b, _ := json.MarshalIndent(struct {
		model.Save
		Links []store.Link `json:"links,omitempty"`
	}{saves[0], links}, "", "  ")
	fmt.Println(string(b))
}

package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export saves as JSON",
		Long:  "Export every live save version as JSON. Filter by story with -s.",
		Run:   runExport,
	}

	cmd.Flags().StringP("story", "s", "", "Filter by story")

	savesCmd.AddCommand(cmd)
}

func runExport(cmd *cobra.Command, args []string) {
	storyKey, _ := cmd.Flags().GetString("story")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	saves, err := s.ExportAll(cmd.Context(), storyKey)
	if err != nil {
		exitErr("export", err)
	}

	b, _ := json.MarshalIndent(saves, "", "  ")
	fmt.Println(string(b))
}

package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rcliao/passage/internal/macros"
	"github.com/rcliao/passage/internal/state"
	"github.com/rcliao/passage/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "put [story-file]",
		Short: "Store a serialized timeline in a slot",
		Long:  "Store a serialized timeline, read from stdin, in a slot. The timeline is checked against the story first.",
		Args:  cobra.MaximumNArgs(1),
		Run:   runPut,
	}

	cmd.Flags().String("slot", "", "Slot (required)")
	cmd.Flags().StringP("label", "L", "", "Label")
	cmd.Flags().StringP("tags", "t", "", "Comma-separated tags")
	cmd.Flags().String("ttl", "", "Expire after e.g. 30d, 12h")

	cmd.MarkFlagRequired("slot")

	savesCmd.AddCommand(cmd)
}

func runPut(cmd *cobra.Command, args []string) {
	slot, _ := cmd.Flags().GetString("slot")
	label, _ := cmd.Flags().GetString("label")
	tagsStr, _ := cmd.Flags().GetString("tags")
	ttl, _ := cmd.Flags().GetString("ttl")
	if ttl == "" {
		ttl = cfg.SaveTTL
	}

	st, key, err := loadStory(args)
	if err != nil {
		exitErr("load story", err)
	}

	stat, _ := os.Stdin.Stat()
	if (stat.Mode() & os.ModeCharDevice) != 0 {
		exitErr("put", fmt.Errorf("pipe a serialized timeline on stdin"))
	}
	b, err := io.ReadAll(os.Stdin)
	if err != nil {
		exitErr("read stdin", err)
	}
	data := strings.TrimSpace(string(b))

	tl := state.New(st.Start, state.Options{Story: st, Macros: macros.New(), Seed: cfg.Seed})
	if err := tl.Deserialize([]byte(data)); err != nil {
		exitErr("check timeline", err)
	}

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	save, err := s.Put(cmd.Context(), store.PutParams{
		Story:   key,
		Slot:    slot,
		Passage: tl.Passage(),
		Turn:    tl.Turns(),
		Label:   label,
		Tags:    splitTags(tagsStr),
		Data:    data,
		TTL:     ttl,
	})
	if err != nil {
		exitErr("put", err)
	}

	save.Data = ""
	out, _ := json.Marshal(save)
	fmt.Println(string(out))
}

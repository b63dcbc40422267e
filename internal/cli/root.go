// Package cli implements the passage CLI commands.
package cli

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rcliao/passage/internal/config"
	"github.com/rcliao/passage/internal/store"
	"github.com/rcliao/passage/internal/story"
)

var (
	dbPath     string
	configPath string
	logLevel   string
	formatFlag string

	cfg *config.Config
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "passage",
	Short: "Play and inspect interactive-fiction stories",
	Long:  "A small interactive-fiction runtime. Stories in YAML or twee, saves in SQLite, single binary.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if dbPath != "" {
			c.DBPath = dbPath
		}
		if logLevel != "" {
			c.LogLevel = logLevel
		}
		level, err := config.ParseLevel(c.LogLevel)
		if err != nil {
			return err
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
		cfg = c
		return nil
	},
	SilenceUsage: true,
}

// savesCmd groups the save-slot commands.
var savesCmd = &cobra.Command{
	Use:   "saves",
	Short: "Manage save slots",
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "", "Database path (default: $PASSAGE_DB or ~/.passage/passage.db)")
	RootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default: $PASSAGE_CONFIG or ~/.passage/config.yaml)")
	RootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
	RootCmd.PersistentFlags().StringVarP(&formatFlag, "format", "f", "json", "Output format: json or text")
	RootCmd.AddCommand(savesCmd)
}

func openStore() (*store.SQLiteStore, error) {
	return store.NewSQLiteStore(cfg.DBPath)
}

// loadStory reads the story file given as an argument or configured as the
// default, and returns it with the key its saves are filed under.
func loadStory(args []string) (*story.Story, string, error) {
	path := cfg.Story
	if len(args) > 0 {
		path = args[0]
	}
	if path == "" {
		return nil, "", fmt.Errorf("no story file given and none configured")
	}
	st, err := story.Load(path)
	if err != nil {
		return nil, "", err
	}
	key := st.Title
	if key == "" {
		key = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return st, key, nil
}

func splitTags(s string) []string {
	var tags []string
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}

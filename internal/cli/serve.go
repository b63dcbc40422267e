package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rcliao/passage/internal/server"
)

func init() {
	cmd := &cobra.Command{
		Use:   "serve [story-file]",
		Short: "Serve play sessions over HTTP",
		Args:  cobra.MaximumNArgs(1),
		Run:   runServe,
	}

	cmd.Flags().String("listen", "", "Address to listen on (default: config listen)")
	cmd.Flags().String("seed", "", "Default random seed for new sessions")
	cmd.Flags().Bool("no-mirror", false, "Don't mirror session timelines to the kv store")

	RootCmd.AddCommand(cmd)
}

func runServe(cmd *cobra.Command, args []string) {
	listen, _ := cmd.Flags().GetString("listen")
	seed, _ := cmd.Flags().GetString("seed")
	noMirror, _ := cmd.Flags().GetBool("no-mirror")
	if listen == "" {
		listen = cfg.Listen
	}
	if seed == "" {
		seed = cfg.Seed
	}

	st, key, err := loadStory(args)
	if err != nil {
		exitErr("load story", err)
	}
	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	opts := server.Options{
		Store:        s,
		Seed:         seed,
		MaxRedirects: cfg.MaxRedirects,
		SaveTTL:      cfg.SaveTTL,
	}
	if !noMirror {
		opts.MirrorPrefix = cfg.AutosaveKey
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := server.New(st, key, opts).ListenAndServe(ctx, listen); err != nil {
		exitErr("serve", err)
	}
}

package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/rcliao/passage/internal/model"
	"github.com/rcliao/passage/internal/session"
	"github.com/rcliao/passage/internal/story"
	"github.com/rcliao/passage/internal/value"
)

func init() {
	cmd := &cobra.Command{
		Use:   "play [story-file]",
		Short: "Play a story in the terminal",
		Long: `Play a story in the terminal. Type a passage name to go there, or one of:
  undo [n], redo [n], save <slot> [label], load <slot> [version],
  eval <expression>, passages, history, help, quit`,
		Args: cobra.MaximumNArgs(1),
		Run:  runPlay,
	}

	cmd.Flags().String("seed", "", "Random seed (default: config seed or a fresh one)")
	cmd.Flags().String("load", "", "Start from a save slot")
	cmd.Flags().Bool("resume", false, "Resume the mirrored timeline from the last session")
	cmd.Flags().Bool("no-autosave", false, "Don't write the auto slot after each turn")

	RootCmd.AddCommand(cmd)
}

func runPlay(cmd *cobra.Command, args []string) {
	seed, _ := cmd.Flags().GetString("seed")
	load, _ := cmd.Flags().GetString("load")
	resume, _ := cmd.Flags().GetBool("resume")
	noAutosave, _ := cmd.Flags().GetBool("no-autosave")
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

	ctx := cmd.Context()
	sess := session.New(st, session.Options{
		Store:        s,
		Key:          key,
		Seed:         seed,
		MirrorKey:    cfg.AutosaveKey + ":" + key,
		MaxRedirects: cfg.MaxRedirects,
		SaveTTL:      cfg.SaveTTL,
	})

	p := &player{
		sess:        sess,
		story:       st,
		out:         os.Stdout,
		interactive: term.IsTerminal(int(os.Stdin.Fd())),
		autosave:    !noAutosave,
		width:       80,
	}
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
		p.width = w
	}
	if err := p.start(ctx, load, resume); err != nil {
		exitErr("play", err)
	}
	if err := p.loop(ctx, os.Stdin); err != nil {
		exitErr("play", err)
	}
}

// player is the terminal loop over one session.
type player struct {
	sess        *session.Session
	story       *story.Story
	out         io.Writer
	interactive bool
	autosave    bool
	width       int
}

func (p *player) start(ctx context.Context, slot string, resume bool) error {
	var out *story.Output
	var err error
	switch {
	case slot != "":
		out, err = p.sess.Load(ctx, slot, 0)
	case resume:
		var ok bool
		out, ok, err = p.sess.Recover()
		if err == nil && !ok {
			out, err = p.sess.Show()
		}
	default:
		out, err = p.sess.Show()
	}
	if err != nil {
		return err
	}
	p.show(ctx, out)
	return nil
}

func (p *player) loop(ctx context.Context, in io.Reader) error {
	sc := bufio.NewScanner(in)
	for {
		if p.interactive {
			fmt.Fprint(p.out, "> ")
		}
		if !sc.Scan() {
			return sc.Err()
		}
		if quit := p.handle(ctx, strings.TrimSpace(sc.Text())); quit {
			return nil
		}
	}
}

// handle runs one line of input and reports whether to stop.
func (p *player) handle(ctx context.Context, line string) bool {
	if p.sess.Blocked() {
		var answer value.Value = value.String(line)
		if last := p.sess.Last(); line == "" && last != nil && last.Prompt != nil && last.Prompt.Default != nil {
			answer = last.Prompt.Default
		}
		out, err := p.sess.Resume(answer)
		p.result(ctx, out, err)
		return false
	}

	verb, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)
	switch verb {
	case "":
		if last := p.sess.Last(); last != nil {
			p.print(last.Text)
		}
	case "quit", "exit":
		return true
	case "help":
		fmt.Fprintln(p.out, "undo [n], redo [n], save <slot> [label], load <slot> [version], eval <expr>, passages, history, quit")
	case "undo", "redo":
		n := 1
		if rest != "" {
			var err error
			if n, err = strconv.Atoi(rest); err != nil {
				fmt.Fprintf(p.out, "%s takes a number of turns\n", verb)
				return false
			}
		}
		var out *story.Output
		var err error
		if verb == "undo" {
			out, err = p.sess.Undo(n)
		} else {
			out, err = p.sess.Redo(n)
		}
		p.result(ctx, out, err)
	case "save":
		slot, label, _ := strings.Cut(rest, " ")
		if slot == "" {
			fmt.Fprintln(p.out, "save needs a slot name")
			return false
		}
		save, err := p.sess.Save(ctx, slot, strings.TrimSpace(label), nil)
		if err != nil {
			fmt.Fprintf(p.out, "can't save: %v\n", err)
			return false
		}
		fmt.Fprintf(p.out, "Saved %s (version %d, turn %d).\n", save.Slot, save.Version, save.Turn)
	case "load":
		slot, v, _ := strings.Cut(rest, " ")
		version, _ := strconv.Atoi(strings.TrimSpace(v))
		out, err := p.sess.Load(ctx, slot, version)
		p.result(ctx, out, err)
	case "eval", "?":
		v := p.sess.Eval(rest)
		if e, ok := v.(*value.Error); ok {
			fmt.Fprintf(p.out, "error: %s\n", e.Message)
			return false
		}
		fmt.Fprintf(p.out, "%s (%s)\n", value.Source(v), value.Describe(v))
	case "passages":
		fmt.Fprintln(p.out, strings.Join(p.story.Names(), ", "))
	case "history":
		fmt.Fprintln(p.out, strings.Join(p.sess.State().History(), " > "))
	case "go":
		out, err := p.sess.Go(rest)
		p.result(ctx, out, err)
	default:
		if !p.story.Has(line) {
			fmt.Fprintf(p.out, "There's no passage called %q. Type help for commands.\n", line)
			return false
		}
		out, err := p.sess.Go(line)
		p.result(ctx, out, err)
	}
	return false
}

func (p *player) result(ctx context.Context, out *story.Output, err error) {
	if err != nil {
		fmt.Fprintf(p.out, "%v\n", err)
		return
	}
	p.show(ctx, out)
}

func (p *player) show(ctx context.Context, out *story.Output) {
	p.print(out.Text)
	if out.Prompt != nil {
		msg := out.Prompt.Message
		if out.Prompt.Default != nil {
			msg += " [" + value.Print(out.Prompt.Default) + "]"
		}
		fmt.Fprintln(p.out, msg)
		return
	}
	if p.autosave {
		if _, err := p.sess.Save(ctx, model.AutosaveSlot, "", nil); err != nil {
			fmt.Fprintf(p.out, "autosave failed: %v\n", err)
		}
	}
}

func (p *player) print(text string) {
	for _, para := range strings.Split(text, "\n") {
		fmt.Fprintln(p.out, wrap(para, p.width))
	}
}

// wrap breaks text at spaces so lines fit width.
func wrap(text string, width int) string {
	if width <= 0 || len(text) <= width {
		return text
	}
	var b strings.Builder
	n := 0
	for i, w := range strings.Fields(text) {
		if i > 0 {
			if n+1+len(w) > width {
				b.WriteByte('\n')
				n = 0
			} else {
				b.WriteByte(' ')
				n++
			}
		}
		b.WriteString(w)
		n += len(w)
	}
	return b.String()
}

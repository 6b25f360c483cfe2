package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/park285/cheese-replay/internal/adapter/replaypresenter"
	"github.com/park285/cheese-replay/internal/chessrules"
	"github.com/park285/cheese-replay/internal/render"
	"github.com/park285/cheese-replay/internal/replay"
	"github.com/spf13/cobra"
)

func renderCmd(a *app) *cobra.Command {
	var (
		ply    int
		output string
		flip   bool
		size   int
	)
	cmd := &cobra.Command{
		Use:   "render <file|->",
		Short: "Render one position of a game as PNG",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(output) == "" {
				return fmt.Errorf("--output is required")
			}
			record, err := readRecord(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}
			data, err := renderRecord(cmd.Context(), a, record, ply, flip, size)
			if err != nil {
				return err
			}
			if err := os.WriteFile(output, data, 0o644); err != nil {
				return fmt.Errorf("write image: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d bytes)\n", output, len(data))
			return nil
		},
	}
	cmd.Flags().IntVar(&ply, "ply", -1, "Ply to render; negative means the final position")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output PNG path")
	cmd.Flags().BoolVar(&flip, "flip", false, "Draw the board from black's side")
	cmd.Flags().IntVar(&size, "size", render.DefaultSquareSize, "Square size in pixels")
	return cmd
}

func renderRecord(ctx context.Context, a *app, record string, ply int, flip bool, size int) ([]byte, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	session, err := replay.NewSession(chessrules.NewEngine(), replay.WithLogger(a.logger))
	if err != nil {
		return nil, err
	}
	formatter := replaypresenter.NewFormatter(a.cat)
	white, black := playersFor(record, "", "")
	if err := session.LoadGame(record, white, black); err != nil {
		return nil, errors.New(formatter.Error(err))
	}
	if ply < 0 {
		err = session.JumpToEnd()
	} else {
		err = session.Seek(ply)
	}
	if err != nil {
		return nil, errors.New(formatter.Error(err))
	}
	return render.NewStateRenderer(render.NewBoardRenderer(size), a.cat, flip).Render(ctx, session.State())
}

func classifyCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "classify <token>...",
		Short: "Show the tags and cue of move tokens",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			for _, tok := range args {
				c := replay.Classify(tok)
				cue := replay.SelectCue(c)
				tags := strings.Join(c.Names(), ",")
				if tags == "" {
					tags = "-"
				}
				label := a.cat.Text("cue.sound."+string(cue.Sound), nil)
				if cue.Accent != replay.AccentNone {
					label += " + " + a.cat.Text("cue.accent."+string(cue.Accent), nil)
				}
				fmt.Fprintf(out, "%-10s %-28s %s\n", tok, tags, label)
			}
			return nil
		},
	}
}

func outcomeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "outcome <file|->",
		Short: "Print the declared result of a game record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			record, err := readRecord(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}
			o := replay.ResolveOutcome(record)
			fmt.Fprintln(cmd.OutOrStdout(), replaypresenter.NewFormatter(a.cat).Outcome(o.String(), o.ResultToken()))
			return nil
		},
	}
}

package cli

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/park285/cheese-replay/internal/adapter/replaypresenter"
	"github.com/park285/cheese-replay/internal/replayclient"
	"github.com/park285/cheese-replay/internal/wsstream"
	"github.com/park285/cheese-replay/pkg/replaydto"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const (
	defaultServer = "http://localhost:8080"
	defaultStream = "ws://localhost:8081"
)

func remoteClient(cmd *cobra.Command) *replayclient.Client {
	server, _ := cmd.Flags().GetString("server")
	return replayclient.NewClient(server)
}

func remoteCmd(a *app) *cobra.Command {
	remote := &cobra.Command{
		Use:   "remote",
		Short: "Drive sessions on a replay server",
		Args:  cobra.NoArgs,
	}
	remote.PersistentFlags().String("server", defaultServer, "Replay server base URL")

	remote.AddCommand(remoteNewCmd(a))
	remote.AddCommand(remoteStepCmd(a))
	remote.AddCommand(remoteShowCmd(a))
	remote.AddCommand(remoteBoardCmd())
	remote.AddCommand(remoteRecordsCmd())
	remote.AddCommand(remoteSaveCmd())
	remote.AddCommand(remoteCloseCmd())
	return remote
}

func remoteNewCmd(a *app) *cobra.Command {
	var (
		recordID string
		flip     bool
	)
	cmd := &cobra.Command{
		Use:   "new [file|-]",
		Short: "Create a session from a record file or a stored record",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := replaydto.CreateSessionRequest{Flip: flip}
			switch {
			case len(args) == 1:
				record, err := readRecord(cmd.InOrStdin(), args[0])
				if err != nil {
					return err
				}
				req.PGN = record
			case recordID != "":
				req.RecordID = recordID
			}
			st, err := remoteClient(cmd).CreateSession(cmd.Context(), req)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, st.SessionID)
			fmt.Fprintln(out, replaypresenter.NewFormatter(a.cat).Status(st))
			return nil
		},
	}
	cmd.Flags().StringVar(&recordID, "record", "", "Load a stored record by ID instead of a file")
	cmd.Flags().BoolVar(&flip, "flip", false, "Render the session's board from black's side")
	return cmd
}

func remoteStepCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:       "step <session> <forward|back|reset|end|dismiss|seek> [ply]",
		Short:     "Run one navigation command on a session",
		Args:      cobra.RangeArgs(2, 3),
		ValidArgs: []string{"forward", "back", "reset", "end", "dismiss", "seek"},
		RunE: func(cmd *cobra.Command, args []string) error {
			c := remoteClient(cmd)
			ctx, id := cmd.Context(), args[0]

			var (
				st  *replaydto.SessionState
				err error
			)
			switch strings.ToLower(args[1]) {
			case "forward", "next":
				st, err = c.Forward(ctx, id)
			case "back", "prev":
				st, err = c.Back(ctx, id)
			case "reset":
				st, err = c.Reset(ctx, id)
			case "end":
				st, err = c.End(ctx, id)
			case "dismiss":
				st, err = c.Dismiss(ctx, id)
			case "seek":
				if len(args) < 3 {
					return fmt.Errorf("seek needs a ply")
				}
				ply, convErr := strconv.Atoi(args[2])
				if convErr != nil {
					return fmt.Errorf("invalid ply %q", args[2])
				}
				st, err = c.Seek(ctx, id, ply)
			default:
				return fmt.Errorf("unknown step %q", args[1])
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), replaypresenter.NewFormatter(a.cat).Status(st))
			return nil
		},
	}
}

func remoteShowCmd(a *app) *cobra.Command {
	var flip bool
	cmd := &cobra.Command{
		Use:   "show <session>",
		Short: "Print a session's board and status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := remoteClient(cmd).Session(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			f := replaypresenter.NewFormatter(a.cat)
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, f.Board(st.FEN, flip))
			fmt.Fprintln(out, f.Status(st))
			return nil
		},
	}
	cmd.Flags().BoolVar(&flip, "flip", false, "Show the board from black's side")
	return cmd
}

func remoteBoardCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "board <session>",
		Short: "Download the rendered board of a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(output) == "" {
				return fmt.Errorf("--output is required")
			}
			png, err := remoteClient(cmd).BoardPNG(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if err := os.WriteFile(output, png, 0o644); err != nil {
				return fmt.Errorf("write image: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d bytes)\n", output, len(png))
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output PNG path")
	return cmd
}

func remoteRecordsCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "records",
		Short: "List recently finished games stored on the server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			recs, err := remoteClient(cmd).Records(cmd.Context(), limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, r := range recs {
				fmt.Fprintf(out, "%s  %-7s %s vs %s  %s\n", r.ID, r.Result, r.White.Name, r.Black.Name, r.EndedAt.Format(time.DateOnly))
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of records")
	return cmd
}

func remoteSaveCmd() *cobra.Command {
	var id string
	cmd := &cobra.Command{
		Use:   "save <file|->",
		Short: "Store a finished game on the server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			record, err := readRecord(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}
			saved, err := remoteClient(cmd).SaveRecord(cmd.Context(), replaydto.SaveRecordRequest{ID: id, PGN: record})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), saved)
			return nil
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "Record ID; generated when empty")
	return cmd
}

func remoteCloseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "close <session>",
		Short: "Delete a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return remoteClient(cmd).DeleteSession(cmd.Context(), args[0])
		},
	}
}

func watchCmd(a *app) *cobra.Command {
	var (
		stream    string
		reconnect int
	)
	cmd := &cobra.Command{
		Use:   "watch <session>",
		Short: "Follow a session's cues and states live",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			f := replaypresenter.NewFormatter(a.cat)
			out := cmd.OutOrStdout()

			client := wsstream.NewClient(wsstream.StreamURL(stream, args[0]), reconnect)
			done := make(chan struct{})
			var stopOnce sync.Once
			client.OnFrame(func(fr replaydto.Frame) {
				switch fr.Type {
				case replaydto.FrameCue:
					fmt.Fprintln(out, f.Cue(fr.Cue))
				case replaydto.FrameState:
					fmt.Fprintln(out, f.Status(fr.State))
				}
			})
			client.OnStateChange(func(s wsstream.State) {
				a.logger.Debug("ws_state", zap.String("state", s.String()))
				if s == wsstream.StateFailed {
					stopOnce.Do(func() { close(done) })
				}
			})
			if err := client.Connect(ctx); err != nil {
				return err
			}
			select {
			case <-ctx.Done():
			case <-done:
			}
			closeCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			return client.Close(closeCtx)
		},
	}
	cmd.Flags().StringVar(&stream, "stream", defaultStream, "Replay stream base URL")
	cmd.Flags().IntVar(&reconnect, "reconnect", 5, "Reconnect attempts after the stream drops")
	return cmd
}

package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/park285/cheese-replay/internal/adapter/replaypresenter"
	"github.com/park285/cheese-replay/internal/chessrules"
	"github.com/park285/cheese-replay/internal/domain"
	"github.com/park285/cheese-replay/internal/msgcat"
	"github.com/park285/cheese-replay/internal/replay"
	"github.com/park285/cheese-replay/pkg/replaydto"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func playCmd(a *app) *cobra.Command {
	var (
		white, black string
		flip         bool
		noBoard      bool
	)
	cmd := &cobra.Command{
		Use:   "play <file>",
		Short: "Step through a game interactively",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if args[0] == "-" {
				return fmt.Errorf("play reads commands from stdin; pass the game as a file")
			}
			record, err := readRecord(nil, args[0])
			if err != nil {
				return err
			}
			loop, err := newPlayLoop(cmd.OutOrStdout(), a.cat, a.logger, flip, !noBoard)
			if err != nil {
				return err
			}
			w, b := playersFor(record, white, black)
			if err := loop.load(record, w, b); err != nil {
				return err
			}
			return loop.run(cmd.InOrStdin())
		},
	}
	cmd.Flags().StringVar(&white, "white", "", "Override the white player's name")
	cmd.Flags().StringVar(&black, "black", "", "Override the black player's name")
	cmd.Flags().BoolVar(&flip, "flip", false, "Show the board from black's side")
	cmd.Flags().BoolVar(&noBoard, "no-board", false, "Do not print the board after each command")
	return cmd
}

// playLoop drives one local session from line commands.
type playLoop struct {
	out       io.Writer
	session   *replay.Session
	formatter *replaypresenter.Formatter
	flip      bool
	board     bool
}

func newPlayLoop(out io.Writer, cat *msgcat.Catalog, logger *zap.Logger, flip, board bool) (*playLoop, error) {
	formatter := replaypresenter.NewFormatter(cat)
	presenter := replaypresenter.NewPresenter(formatter, func(msg string) error {
		_, err := fmt.Fprintln(out, msg)
		return err
	}, nil)
	session, err := replay.NewSession(chessrules.NewEngine(),
		replay.WithDispatcher(presenter),
		replay.WithLogger(logger),
		replay.WithPositionCache(true),
	)
	if err != nil {
		return nil, err
	}
	return &playLoop{out: out, session: session, formatter: formatter, flip: flip, board: board}, nil
}

func (p *playLoop) load(record string, white, black domain.Player) error {
	if err := p.session.LoadGame(record, white, black); err != nil {
		return errors.New(p.formatter.Error(err))
	}
	fmt.Fprintln(p.out, p.formatter.Loaded(p.state()))
	p.show()
	return nil
}

func (p *playLoop) run(in io.Reader) error {
	sc := bufio.NewScanner(in)
	for {
		fmt.Fprint(p.out, p.formatter.Prompt())
		if !sc.Scan() {
			fmt.Fprintln(p.out)
			return sc.Err()
		}
		if p.exec(sc.Text()) {
			return nil
		}
	}
}

// exec runs one command line and reports whether the loop should stop.
func (p *playLoop) exec(line string) bool {
	fields := strings.Fields(strings.ToLower(line))
	command := "n"
	if len(fields) > 0 {
		command = fields[0]
	}

	var err error
	switch command {
	case "n", "next":
		err = p.session.StepForward()
	case "p", "prev", "back":
		err = p.session.StepBackward()
	case "r", "reset":
		p.session.Reset()
	case "e", "end":
		err = p.session.JumpToEnd()
	case "d", "dismiss":
		p.session.DismissOutcome()
	case "g", "seek":
		if len(fields) < 2 {
			fmt.Fprintln(p.out, p.formatter.Help())
			return false
		}
		ply, convErr := strconv.Atoi(fields[1])
		if convErr != nil {
			fmt.Fprintln(p.out, p.formatter.Unknown(line))
			return false
		}
		err = p.session.Seek(ply)
	case "h", "help", "?":
		fmt.Fprintln(p.out, p.formatter.Help())
		return false
	case "q", "quit", "exit":
		return true
	default:
		fmt.Fprintln(p.out, p.formatter.Unknown(strings.TrimSpace(line)))
		return false
	}

	if err != nil {
		fmt.Fprintln(p.out, p.formatter.Error(err))
	}
	p.show()
	return false
}

func (p *playLoop) state() *replaydto.SessionState {
	return replaypresenter.ToDTOState("", p.session.State())
}

func (p *playLoop) show() {
	st := p.state()
	if p.board {
		fmt.Fprintln(p.out, p.formatter.Board(st.FEN, p.flip))
	}
	fmt.Fprintln(p.out, p.formatter.Status(st))
}

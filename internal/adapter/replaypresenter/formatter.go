package replaypresenter

import (
	"errors"
	"strings"

	"github.com/park285/cheese-replay/internal/msgcat"
	"github.com/park285/cheese-replay/internal/replay"
	"github.com/park285/cheese-replay/pkg/replaydto"
)

// Formatter renders replay DTOs into terminal-friendly text.
type Formatter struct {
	cat *msgcat.Catalog
}

func NewFormatter(cat *msgcat.Catalog) *Formatter {
	if cat == nil {
		cat = msgcat.Default()
	}
	return &Formatter{cat: cat}
}

// Cue renders one forward step, e.g. "3. Bb5 [move]" or "4. Qh4# [move + checkmate]".
func (f *Formatter) Cue(ev *replaydto.MoveEvent) string {
	if ev == nil {
		return ""
	}
	sound := f.cat.Text("cue.sound."+ev.Sound, nil)
	accent := ""
	if ev.Accent != "" {
		accent = f.cat.Text("cue.accent."+ev.Accent, nil)
	}
	return f.cat.Text("cue.line", map[string]any{
		"Ply":    ev.Ply,
		"Token":  ev.Token,
		"Sound":  sound,
		"Accent": accent,
	})
}

// Status renders the one-line summary plus the outcome banner when it is revealed.
func (f *Formatter) Status(st *replaydto.SessionState) string {
	if st == nil || !st.Loaded {
		return f.cat.Text("state.empty", nil)
	}
	line := f.cat.Text("state.summary", map[string]any{
		"White":  playerLabel(st.White),
		"Black":  playerLabel(st.Black),
		"Cursor": st.Cursor,
		"Total":  st.Total,
		"Last":   st.LastMove,
	})
	if st.Opening != nil {
		line += " | " + f.cat.Text("hud.opening", map[string]any{"Code": st.Opening.Code, "Title": st.Opening.Title})
	}
	if st.Revealed {
		line += "\n" + f.Outcome(st.Outcome, st.ResultToken)
	}
	return line
}

// Outcome renders the result banner for an outcome name such as "white_wins".
func (f *Formatter) Outcome(outcome, token string) string {
	label := f.cat.Text("outcome."+outcome, nil)
	return f.cat.Text("outcome.banner", map[string]any{"Label": label, "Token": token})
}

func (f *Formatter) Loaded(st *replaydto.SessionState) string {
	if st == nil {
		return ""
	}
	return f.cat.Text("cli.loaded", map[string]any{"Plies": st.Total, "Result": st.ResultToken})
}

func (f *Formatter) Help() string   { return strings.TrimRight(f.cat.Text("cli.help", nil), "\n") }
func (f *Formatter) Prompt() string { return f.cat.Text("cli.prompt", nil) }

func (f *Formatter) Unknown(input string) string {
	return f.cat.Text("cli.unknown", map[string]any{"Input": input})
}

// Error turns replay errors into user-facing text.
func (f *Formatter) Error(err error) string {
	if err == nil {
		return ""
	}
	var pe *replay.ParseError
	if errors.As(err, &pe) {
		return f.cat.Text("error.parse", map[string]any{"Reason": pe.Reason})
	}
	var ime *replay.IllegalMoveError
	if errors.As(err, &ime) {
		return f.cat.Text("error.illegal", map[string]any{"Ply": ime.Index + 1, "Token": ime.Token})
	}
	return err.Error()
}

// Board draws the FEN piece placement as an 8x8 text grid with coordinates.
// Empty squares are '.', white pieces upper case.
func (f *Formatter) Board(fen string, flip bool) string {
	placement := strings.Fields(fen)
	if len(placement) == 0 {
		return ""
	}
	rows := strings.Split(placement[0], "/")
	if len(rows) != 8 {
		return ""
	}
	grid := make([][]byte, 8)
	for i, row := range rows {
		line := make([]byte, 0, 8)
		for _, ch := range row {
			if ch >= '1' && ch <= '8' {
				line = append(line, strings.Repeat(".", int(ch-'0'))...)
				continue
			}
			line = append(line, byte(ch))
		}
		if len(line) != 8 {
			return ""
		}
		grid[i] = line
	}

	files := "abcdefgh"
	var sb strings.Builder
	for i := 0; i < 8; i++ {
		r := i
		if flip {
			r = 7 - i
		}
		sb.WriteByte(byte('8' - r))
		sb.WriteByte(' ')
		for j := 0; j < 8; j++ {
			c := j
			if flip {
				c = 7 - j
			}
			sb.WriteByte(' ')
			sb.WriteByte(grid[r][c])
		}
		sb.WriteByte('\n')
	}
	sb.WriteString("  ")
	for j := 0; j < 8; j++ {
		c := j
		if flip {
			c = 7 - j
		}
		sb.WriteByte(' ')
		sb.WriteByte(files[c])
	}
	return sb.String()
}

func playerLabel(p replaydto.Player) string {
	return FromDTOPlayer(&p).Label()
}

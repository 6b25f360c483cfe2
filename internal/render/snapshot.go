package render

import (
	"context"
	"fmt"
	"strings"

	nchess "github.com/corentings/chess/v2"
	"github.com/park285/cheese-replay/internal/chessrules"
	"github.com/park285/cheese-replay/internal/msgcat"
	"github.com/park285/cheese-replay/internal/replay"
)

// StateRenderer draws a replay session state with its HUD texts taken from the catalog.
type StateRenderer struct {
	boards BoardRenderer
	cat    *msgcat.Catalog
	flip   bool
}

func NewStateRenderer(boards BoardRenderer, cat *msgcat.Catalog, flip bool) *StateRenderer {
	if boards == nil {
		boards = NewBoardRenderer(DefaultSquareSize)
	}
	if cat == nil {
		cat = msgcat.Default()
	}
	return &StateRenderer{boards: boards, cat: cat, flip: flip}
}

// Render produces the PNG for st. The board must come from chessrules.
func (r *StateRenderer) Render(ctx context.Context, st replay.State) ([]byte, error) {
	board, opts, err := r.Options(st)
	if err != nil {
		return nil, err
	}
	return r.boards.RenderPNG(ctx, board, opts)
}

// Options derives the board and HUD options for st without drawing.
func (r *StateRenderer) Options(st replay.State) (*nchess.Board, RenderOptions, error) {
	cb, ok := chessrules.AsBoard(st.Board)
	if !ok {
		return nil, RenderOptions{}, fmt.Errorf("render: unsupported board type %T", st.Board)
	}

	opts := RenderOptions{
		Material: cb.Material(),
		Flip:     r.flip,
		HUDHeader: r.cat.Text("hud.players", map[string]any{
			"White": st.White.Label(),
			"Black": st.Black.Label(),
		}),
	}

	turnKey := "hud.turn.white"
	if cb.Turn() == nchess.Black {
		turnKey = "hud.turn.black"
	}
	ply := r.cat.Text("hud.ply", map[string]any{"Cursor": st.Cursor, "Total": st.Len()})
	opts.HUDTurn = ply + " | " + r.cat.Text(turnKey, nil)
	if code, _ := cb.Opening(); code != "" {
		opts.HUDTurn += " | " + code
	}

	if mv := cb.LastMove(); mv != nil {
		opts.Highlight = &MoveHighlight{From: mv.S1(), To: mv.S2()}
	}
	if st.Revealed {
		opts.Banner = OutcomeBanner(r.cat, st.Outcome)
	}
	return cb.Position().Board(), opts, nil
}

// OutcomeBanner returns the localised result banner, e.g. "*** White wins (1-0) ***".
func OutcomeBanner(cat *msgcat.Catalog, o replay.Outcome) string {
	label := cat.Text("outcome."+o.String(), nil)
	return strings.TrimSpace(cat.Text("outcome.banner", map[string]any{"Label": label, "Token": o.ResultToken()}))
}

package render

import (
	"bytes"
	"context"
	"image/png"
	"strings"
	"testing"

	nchess "github.com/corentings/chess/v2"
	"github.com/park285/cheese-replay/internal/chessrules"
	"github.com/park285/cheese-replay/internal/domain"
	"github.com/park285/cheese-replay/internal/msgcat"
	"github.com/park285/cheese-replay/internal/replay"
)

func TestRenderPNG_StartPosition(t *testing.T) {
	r := NewBoardRenderer(32)
	data, err := r.RenderPNG(context.Background(), nchess.StartingPosition().Board(), RenderOptions{HUDHeader: "A vs B"})
	if err != nil {
		t.Fatalf("RenderPNG: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode png: %v", err)
	}
	if img.Bounds().Dx() != 32*8+20*2 {
		t.Fatalf("unexpected width %d", img.Bounds().Dx())
	}
}

func TestRenderPNG_NilBoard(t *testing.T) {
	if _, err := NewBoardRenderer(0).RenderPNG(context.Background(), nil, RenderOptions{}); err == nil {
		t.Fatalf("expected error for nil board")
	}
}

func TestRenderPNG_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewBoardRenderer(24).RenderPNG(ctx, nchess.StartingPosition().Board(), RenderOptions{}); err == nil {
		t.Fatalf("expected context error")
	}
}

func TestRenderPNG_FlipDiffers(t *testing.T) {
	r := NewBoardRenderer(24)
	board := nchess.StartingPosition().Board()
	a, err := r.RenderPNG(context.Background(), board, RenderOptions{})
	if err != nil {
		t.Fatalf("white view: %v", err)
	}
	b, err := r.RenderPNG(context.Background(), board, RenderOptions{Flip: true})
	if err != nil {
		t.Fatalf("black view: %v", err)
	}
	if bytes.Equal(a, b) {
		t.Fatalf("expected different images for flipped viewpoints")
	}
}

func TestPieceAssetsParse(t *testing.T) {
	pieces := []nchess.Piece{
		nchess.WhiteKing, nchess.WhiteQueen, nchess.WhiteRook, nchess.WhiteBishop, nchess.WhiteKnight, nchess.WhitePawn,
		nchess.BlackKing, nchess.BlackQueen, nchess.BlackRook, nchess.BlackBishop, nchess.BlackKnight, nchess.BlackPawn,
	}
	for _, p := range pieces {
		if _, err := pieceImage(p, 20); err != nil {
			t.Fatalf("piece %v: %v", p, err)
		}
	}
	if _, err := pieceAssetName(nchess.NoPiece); err == nil {
		t.Fatalf("expected error for NoPiece")
	}
}

func TestStateRenderer_Options(t *testing.T) {
	s, err := replay.NewSession(chessrules.NewEngine())
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	if err := s.LoadGame("1.e4 e5 2.Nf3 Nc6 3.Bb5 1-0", domain.Player{Name: "Ann", Rating: 1500}, domain.Player{Name: "Bo"}); err != nil {
		t.Fatalf("LoadGame: %v", err)
	}
	sr := NewStateRenderer(NewBoardRenderer(24), msgcat.Default(), false)

	_, opts, err := sr.Options(s.State())
	if err != nil {
		t.Fatalf("Options: %v", err)
	}
	if opts.HUDHeader != "Ann (1500) vs Bo" {
		t.Fatalf("unexpected header: %q", opts.HUDHeader)
	}
	if opts.Highlight != nil || opts.Banner != "" {
		t.Fatalf("start position has no highlight or banner: %+v", opts)
	}

	_ = s.JumpToEnd()
	_, opts, err = sr.Options(s.State())
	if err != nil {
		t.Fatalf("Options at end: %v", err)
	}
	if opts.Highlight == nil || opts.Highlight.To != nchess.B5 {
		t.Fatalf("expected last move highlight on b5: %+v", opts.Highlight)
	}
	if !strings.Contains(opts.Banner, "White wins") || !strings.Contains(opts.Banner, "1-0") {
		t.Fatalf("unexpected banner: %q", opts.Banner)
	}
	if !strings.HasPrefix(opts.HUDTurn, "Ply 5/5 | Black to move") {
		t.Fatalf("unexpected turn line: %q", opts.HUDTurn)
	}

	data, err := sr.Render(context.Background(), s.State())
	if err != nil || len(data) == 0 {
		t.Fatalf("Render: %v", err)
	}
}

type plainBoard struct{}

func (plainBoard) FEN() string { return "" }

func TestStateRenderer_RejectsForeignBoard(t *testing.T) {
	sr := NewStateRenderer(nil, nil, false)
	if _, _, err := sr.Options(replay.State{Board: plainBoard{}}); err == nil {
		t.Fatalf("expected error for foreign board")
	}
}

// Package render draws replay positions as PNG images.
package render

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"strings"

	nchess "github.com/corentings/chess/v2"
	"github.com/park285/cheese-replay/internal/chessrules"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
)

const DefaultSquareSize = 72

type MoveHighlight struct {
	From nchess.Square
	To   nchess.Square
}

type RenderOptions struct {
	Highlight *MoveHighlight
	Material  chessrules.MaterialScore
	HUDHeader string
	HUDTurn   string
	// Banner is drawn across the board when the outcome is revealed.
	Banner string
	// Flip puts black at the bottom.
	Flip bool
}

type BoardRenderer interface {
	RenderPNG(ctx context.Context, board *nchess.Board, opts RenderOptions) ([]byte, error)
}

type svgBoardRenderer struct {
	squareSize int
	face       font.Face
}

// NewBoardRenderer returns a renderer with squareSize pixel squares (DefaultSquareSize when <= 0).
func NewBoardRenderer(squareSize int) BoardRenderer {
	if squareSize <= 0 {
		squareSize = DefaultSquareSize
	}
	return &svgBoardRenderer{squareSize: squareSize, face: basicfont.Face7x13}
}

var (
	lightSquare          = color.RGBA{233, 207, 163, 255}
	darkSquare           = color.RGBA{187, 136, 96, 255}
	whiteMoveHighlight   = color.NRGBA{R: 255, G: 228, B: 120, A: 140}
	blackMoveHighlight   = color.NRGBA{R: 148, G: 207, B: 255, A: 170}
	neutralMoveHighlight = color.NRGBA{R: 182, G: 184, B: 190, A: 140}
	backgroundColor      = color.RGBA{22, 24, 36, 255}
	hudPanelColor        = color.NRGBA{R: 28, G: 31, B: 46, A: 250}
	hudTurnPanelColor    = color.NRGBA{R: 32, G: 35, B: 52, A: 245}
	hudShadowColor       = color.NRGBA{0, 0, 0, 50}
	hudTextPrimary       = color.NRGBA{R: 236, G: 239, B: 255, A: 255}
	hudTurnTextColor     = color.NRGBA{R: 204, G: 210, B: 236, A: 255}
	bannerColor          = color.NRGBA{R: 20, G: 22, B: 34, A: 220}
	bannerTextColor      = color.NRGBA{R: 255, G: 214, B: 102, A: 255}
	coordinateTextColor  = color.NRGBA{R: 8, G: 214, B: 120, A: 255}
	boardShadowColor     = color.NRGBA{0, 0, 0, 60}
)

// layout holds every measured rectangle of one image.
type layout struct {
	square int
	total  image.Rectangle
	board  image.Rectangle
	title  image.Rectangle
	turn   image.Rectangle
	score  image.Rectangle
	flip   bool
}

func (r *svgBoardRenderer) layout(opts RenderOptions) layout {
	const (
		titleHeight     = 26
		secondaryHeight = 22
		gapPanels       = 8
		gapToBoard      = 12
		topPad          = 12
	)
	sq := r.squareSize
	side := max(sq/2, 20)
	top := topPad + titleHeight + gapPanels + secondaryHeight + gapToBoard
	bottom := max(sq/2, 20)

	boardSize := sq * 8
	board := image.Rect(side, top, side+boardSize, top+boardSize)
	l := layout{
		square: sq,
		total:  image.Rect(0, 0, boardSize+side*2, boardSize+top+bottom),
		board:  board,
		flip:   opts.Flip,
	}

	d := font.Drawer{Face: r.face}
	turnBottom := board.Min.Y - gapToBoard
	turnTop := turnBottom - secondaryHeight
	scoreW := max(d.MeasureString(formatMaterialDiff(opts.Material)).Round()+24, 56)
	turnW := min(max(d.MeasureString(opts.HUDTurn).Round()+24, 120), boardSize-scoreW-8)
	titleW := min(max(d.MeasureString(opts.HUDHeader).Round()+32, 200), boardSize)

	l.title = image.Rect(board.Min.X, turnTop-gapPanels-titleHeight, board.Min.X+titleW, turnTop-gapPanels)
	l.turn = image.Rect(board.Min.X, turnTop, board.Min.X+turnW, turnBottom)
	l.score = image.Rect(board.Max.X-scoreW, turnTop, board.Max.X, turnBottom)
	return l
}

// squareRect maps a square to pixels, white at the bottom unless flipped.
func (l layout) squareRect(sq nchess.Square) image.Rectangle {
	col := int(sq.File())
	row := 7 - int(sq.Rank())
	if l.flip {
		col = 7 - col
		row = 7 - row
	}
	x := l.board.Min.X + col*l.square
	y := l.board.Min.Y + row*l.square
	return image.Rect(x, y, x+l.square, y+l.square)
}

func (r *svgBoardRenderer) RenderPNG(ctx context.Context, board *nchess.Board, opts RenderOptions) ([]byte, error) {
	if board == nil {
		return nil, fmt.Errorf("board is nil")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l := r.layout(opts)
	img := image.NewRGBA(l.total)
	fillRect(img, l.total, backgroundColor)
	fillRect(img, l.board.Add(image.Pt(4, 8)), boardShadowColor)

	r.drawHUD(img, l, opts)
	drawSquares(img, l)
	if err := drawPieces(img, board, l); err != nil {
		return nil, err
	}
	drawHighlight(img, board, opts.Highlight, l)
	r.drawCoordinates(img, l)
	if strings.TrimSpace(opts.Banner) != "" {
		r.drawBanner(img, l, opts.Banner)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

func allSquares() []nchess.Square {
	out := make([]nchess.Square, 0, 64)
	for rank := nchess.Rank1; rank <= nchess.Rank8; rank++ {
		for file := nchess.FileA; file <= nchess.FileH; file++ {
			out = append(out, nchess.NewSquare(file, rank))
		}
	}
	return out
}

func drawSquares(img *image.RGBA, l layout) {
	for _, sq := range allSquares() {
		clr := lightSquare
		if (int(sq.File())+int(sq.Rank()))%2 == 0 {
			clr = darkSquare
		}
		fillRect(img, l.squareRect(sq), clr)
	}
}

func drawPieces(img *image.RGBA, board *nchess.Board, l layout) error {
	for sq, piece := range board.SquareMap() {
		if piece == nchess.NoPiece {
			continue
		}
		pimg, err := pieceImage(piece, l.square)
		if err != nil {
			return err
		}
		rect := l.squareRect(sq)
		drawOver(img, rect, pimg)
	}
	return nil
}

// drawHighlight shades both squares for a white move and draws an arrow for a black move.
func drawHighlight(img *image.RGBA, board *nchess.Board, h *MoveHighlight, l layout) {
	if h == nil {
		return
	}
	from, to := l.squareRect(h.From), l.squareRect(h.To)
	switch moverColor(board, h) {
	case nchess.White:
		fillRect(img, from, whiteMoveHighlight)
		fillRect(img, to, whiteMoveHighlight)
	case nchess.Black:
		drawArrow(img, from, to, blackMoveHighlight)
	default:
		drawArrow(img, from, to, neutralMoveHighlight)
	}
}

func moverColor(board *nchess.Board, h *MoveHighlight) nchess.Color {
	if p := board.Piece(h.To); p != nchess.NoPiece {
		return p.Color()
	}
	if p := board.Piece(h.From); p != nchess.NoPiece {
		return p.Color()
	}
	return nchess.NoColor
}

func (r *svgBoardRenderer) drawHUD(img *image.RGBA, l layout, opts RenderOptions) {
	const radius = 8
	d := &font.Drawer{Dst: img, Face: r.face}

	title := strings.TrimSpace(opts.HUDHeader)
	if title == "" {
		title = "? vs ?"
	}
	title = truncateWithEllipsis(r.face, title, l.title.Dx()-24)
	turn := truncateWithEllipsis(r.face, opts.HUDTurn, l.turn.Dx()-16)

	for _, rect := range []image.Rectangle{l.title, l.turn, l.score} {
		drawRoundedPanel(img, rect.Add(image.Pt(0, 4)), radius, hudShadowColor)
	}
	drawRoundedPanel(img, l.title, radius, hudPanelColor)
	drawRoundedPanel(img, l.turn, radius, hudTurnPanelColor)
	drawRoundedPanel(img, l.score, radius, hudPanelColor)

	drawCenteredString(d, l.title, title, hudTextPrimary)
	drawCenteredString(d, l.turn, turn, hudTurnTextColor)
	drawCenteredString(d, l.score, formatMaterialDiff(opts.Material), hudTextPrimary)
}

func (r *svgBoardRenderer) drawBanner(img *image.RGBA, l layout, text string) {
	h := max(l.square, 32)
	cy := l.board.Min.Y + l.board.Dy()/2
	rect := image.Rect(l.board.Min.X+l.square/2, cy-h/2, l.board.Max.X-l.square/2, cy+h/2)
	drawRoundedPanel(img, rect, 10, bannerColor)
	d := &font.Drawer{Dst: img, Face: r.face}
	drawCenteredString(d, rect, truncateWithEllipsis(r.face, text, rect.Dx()-16), bannerTextColor)
}

func (r *svgBoardRenderer) drawCoordinates(img *image.RGBA, l layout) {
	d := &font.Drawer{Dst: img, Face: r.face, Src: image.NewUniform(coordinateTextColor)}
	ascent := r.face.Metrics().Ascent.Ceil()
	margin := l.board.Min.X
	for i := 0; i < 8; i++ {
		rankSq := l.squareRect(nchess.NewSquare(nchess.FileA, nchess.Rank(i)))
		drawCenteredText(d, nchess.Rank(i).String(), margin/2, rankSq.Min.Y+l.square/2+ascent/2)

		fileSq := l.squareRect(nchess.NewSquare(nchess.File(i), nchess.Rank1))
		drawCenteredText(d, nchess.File(i).String(), fileSq.Min.X+l.square/2, l.board.Max.Y+ascent+4)
	}
}

func formatMaterialDiff(m chessrules.MaterialScore) string {
	diff := m.Diff()
	if diff == 0 {
		return "="
	}
	return fmt.Sprintf("%+d", diff)
}

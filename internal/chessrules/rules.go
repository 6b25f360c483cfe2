// Package chessrules adapts corentings/chess to the replay core's Rules capability.
package chessrules

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	nchess "github.com/corentings/chess/v2"
	"github.com/corentings/chess/v2/opening"
	"github.com/park285/cheese-replay/internal/replay"
)

var ErrForeignBoard = errors.New("board was not produced by chessrules")

var (
	ecoOnce sync.Once
	ecoBook *opening.BookECO
)

// Board is an immutable position plus the moves that led to it.
type Board struct {
	pos   *nchess.Position
	moves []*nchess.Move
}

func (b *Board) FEN() string { return b.pos.String() }

func (b *Board) Position() *nchess.Position { return b.pos }

// Ply is the number of moves applied from the start position.
func (b *Board) Ply() int { return len(b.moves) }

// LastMove returns the move that produced this board, nil at the start.
func (b *Board) LastMove() *nchess.Move {
	if len(b.moves) == 0 {
		return nil
	}
	return b.moves[len(b.moves)-1]
}

// Moves returns a copy of the applied move chain.
func (b *Board) Moves() []*nchess.Move {
	return append([]*nchess.Move(nil), b.moves...)
}

func (b *Board) Turn() nchess.Color { return b.pos.Turn() }

// Opening returns the ECO code and title of the deepest known opening for this prefix.
func (b *Board) Opening() (string, string) {
	if len(b.moves) == 0 {
		return "", ""
	}
	ecoOnce.Do(func() { ecoBook = opening.NewBookECO() })
	if ecoBook == nil {
		return "", ""
	}
	if o := ecoBook.Find(b.moves); o != nil {
		return o.Code(), o.Title()
	}
	return "", ""
}

// Rules applies SAN tokens with full legality checks.
type Rules struct{}

func New() *Rules { return &Rules{} }

func (r *Rules) InitialPosition() replay.Board {
	return &Board{pos: nchess.StartingPosition()}
}

func (r *Rules) ApplyMove(cur replay.Board, token string) (replay.Board, error) {
	b, ok := cur.(*Board)
	if !ok || b == nil || b.pos == nil {
		return nil, ErrForeignBoard
	}
	tok := strings.TrimSpace(token)
	mv, err := nchess.AlgebraicNotation{}.Decode(b.pos, tok)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", tok, err)
	}
	next := b.pos.Update(mv)
	if next == nil {
		return nil, fmt.Errorf("apply %s: no resulting position", tok)
	}
	moves := make([]*nchess.Move, len(b.moves), len(b.moves)+1)
	copy(moves, b.moves)
	return &Board{pos: next, moves: append(moves, mv)}, nil
}

// Interface guard.
var _ replay.Rules = (*Rules)(nil)

// NewEngine builds a replay engine on top of these rules.
func NewEngine() *replay.Engine {
	e, _ := replay.NewEngine(New())
	return e
}

// AsBoard unwraps a replay board produced by these rules.
func AsBoard(b replay.Board) (*Board, bool) {
	cb, ok := b.(*Board)
	return cb, ok && cb != nil
}

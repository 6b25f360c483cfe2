package replay

import "fmt"

// Board is an immutable position snapshot produced by a Rules implementation.
type Board interface {
	FEN() string
}

// Rules is the move-application capability the replay core consumes.
// ApplyMove must never mutate cur; it returns a new Board or an error for an illegal token.
type Rules interface {
	InitialPosition() Board
	ApplyMove(cur Board, token string) (Board, error)
}

// Engine derives boards for move-list prefixes. It keeps no state between calls,
// so any prefix can be recomputed from the start at any time.
type Engine struct {
	rules Rules
}

func NewEngine(rules Rules) (*Engine, error) {
	if rules == nil {
		return nil, fmt.Errorf("rules engine is required")
	}
	return &Engine{rules: rules}, nil
}

// Initial returns the canonical start position.
func (e *Engine) Initial() Board {
	return e.rules.InitialPosition()
}

// PositionAt returns the board after applying moves[0:index).
func (e *Engine) PositionAt(moves MoveList, index int) (Board, error) {
	if index < 0 || index > moves.Len() {
		return nil, fmt.Errorf("%w: %d not in [0, %d]", ErrIndexOutOfRange, index, moves.Len())
	}
	board := e.rules.InitialPosition()
	for i := 0; i < index; i++ {
		next, err := e.apply(board, moves, i)
		if err != nil {
			return nil, err
		}
		board = next
	}
	return board, nil
}

// Positions returns every prefix board from 0 through index inclusive.
func (e *Engine) Positions(moves MoveList, index int) ([]Board, error) {
	if index < 0 || index > moves.Len() {
		return nil, fmt.Errorf("%w: %d not in [0, %d]", ErrIndexOutOfRange, index, moves.Len())
	}
	boards := make([]Board, 0, index+1)
	board := e.rules.InitialPosition()
	boards = append(boards, board)
	for i := 0; i < index; i++ {
		next, err := e.apply(board, moves, i)
		if err != nil {
			return nil, err
		}
		board = next
		boards = append(boards, board)
	}
	return boards, nil
}

// Advance applies the single token moves[index] to board.
func (e *Engine) Advance(board Board, moves MoveList, index int) (Board, error) {
	if index < 0 || index >= moves.Len() {
		return nil, fmt.Errorf("%w: %d not in [0, %d)", ErrIndexOutOfRange, index, moves.Len())
	}
	return e.apply(board, moves, index)
}

func (e *Engine) apply(board Board, moves MoveList, i int) (Board, error) {
	tok := moves.At(i)
	next, err := e.rules.ApplyMove(board, tok)
	if err != nil {
		return nil, &IllegalMoveError{Index: i, Token: tok, Err: err}
	}
	if next == nil {
		return nil, &IllegalMoveError{Index: i, Token: tok}
	}
	return next, nil
}

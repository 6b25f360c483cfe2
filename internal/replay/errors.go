package replay

import (
	"errors"
	"fmt"
)

var (
	ErrParse           = errors.New("replay: malformed move-text record")
	ErrIllegalMove     = errors.New("replay: illegal move")
	ErrIndexOutOfRange = errors.New("replay: ply index out of range")
)

// ParseError reports a record that cannot be split into a move list.
// Index is the 0-based ply at which parsing stopped, or -1 when not tied to a move.
type ParseError struct {
	Reason string
	Token  string
	Index  int
}

func (e *ParseError) Error() string {
	if e.Token != "" {
		return fmt.Sprintf("parse move text: %s (token %q at ply %d)", e.Reason, e.Token, e.Index)
	}
	return "parse move text: " + e.Reason
}

func (e *ParseError) Unwrap() error { return ErrParse }

// IllegalMoveError reports a token the rules engine rejected for its position.
type IllegalMoveError struct {
	Index int // 0-based ply of the rejected token
	Token string
	Err   error
}

func (e *IllegalMoveError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("illegal move %q at ply %d: %v", e.Token, e.Index+1, e.Err)
	}
	return fmt.Sprintf("illegal move %q at ply %d", e.Token, e.Index+1)
}

func (e *IllegalMoveError) Is(target error) bool { return target == ErrIllegalMove }

func (e *IllegalMoveError) Unwrap() error { return e.Err }

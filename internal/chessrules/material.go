package chessrules

import nchess "github.com/corentings/chess/v2"

var pieceValues = map[nchess.PieceType]int{
	nchess.Pawn:   1,
	nchess.Knight: 3,
	nchess.Bishop: 3,
	nchess.Rook:   5,
	nchess.Queen:  9,
}

// MaterialScore sums piece values left on the board per side.
type MaterialScore struct {
	White int
	Black int
}

func (m MaterialScore) Diff() int {
	return m.White - m.Black
}

// Material counts the material on the board (kings excluded).
func (b *Board) Material() MaterialScore {
	var score MaterialScore
	if b == nil || b.pos == nil {
		return score
	}
	board := b.pos.Board()
	for file := nchess.FileA; file <= nchess.FileH; file++ {
		for rank := nchess.Rank1; rank <= nchess.Rank8; rank++ {
			piece := board.Piece(nchess.NewSquare(file, rank))
			if piece == nchess.NoPiece {
				continue
			}
			value := pieceValues[piece.Type()]
			if piece.Color() == nchess.White {
				score.White += value
			} else {
				score.Black += value
			}
		}
	}
	return score
}

package replay

import (
	"errors"
	"reflect"
	"testing"
)

func TestParseMoveText_Basic(t *testing.T) {
	l, err := ParseMoveText("1.e4 e5 2.Nf3 Nc6 3.Bb5 1-0")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	want := []string{"e4", "e5", "Nf3", "Nc6", "Bb5"}
	if !reflect.DeepEqual(l.Tokens(), want) {
		t.Fatalf("tokens = %v, want %v", l.Tokens(), want)
	}
}

func TestParseMoveText_FullPGN(t *testing.T) {
	record := `[Event "Casual Game"]
[Site "London \"Simpson's\""]
[White "Anderssen, Adolf"]
[Black "Kieseritzky, Lionel"]
[Result "1-0"]

1. e4 e5 2. f4 exf4 {King's Gambit Accepted} 3. Bc4 Qh4+ (3... d5 4. Bxd5) 4. Kf1 $6 b5?!
5. Bxb5 Nf6 6. Nf3 Qh6 7. d3 Nh5 ; a comment to end of line
8. Nh4 Qg5 9. Nf5 c6 10. g4 Nf6 11. Rg1 cxb5 12. h4 Qg6 13. h5 Qg5 14. Qf3 Ng8
15. Bxf4 Qf6 16. Nc3 Bc5 17. Nd5 Qxb2 18. Bd6 Bxg1 19. e5 Qxa1+ 20. Ke2 Na6
21. Nxg7+ Kd8 22. Qf6+ Nxf6 23. Be7# 1-0`
	l, err := ParseMoveText(record)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if l.Len() != 45 {
		t.Fatalf("expected 45 plies, got %d", l.Len())
	}
	if l.At(5) != "Qh4+" || l.At(6) != "Kf1" || l.At(7) != "b5" || l.At(44) != "Be7#" {
		t.Fatalf("unexpected tokens: %v", l.Tokens())
	}
	if ResolveOutcome(record) != WhiteWins {
		t.Fatalf("expected white win")
	}

	h := ParseHeaders(record)
	if h["White"] != "Anderssen, Adolf" || h["Result"] != "1-0" {
		t.Fatalf("unexpected headers: %v", h)
	}
	if h["Site"] != `London "Simpson's"` {
		t.Fatalf("escaped quote not decoded: %q", h["Site"])
	}
}

func TestHeaderPlayers(t *testing.T) {
	white, black := HeaderPlayers("[White \"Ann\"]\n[WhiteElo \"2105\"]\n[Black \"Bo\"]\n[BlackElo \"-\"]\n\n1. e4 *")
	if white.Name != "Ann" || white.Rating != 2105 {
		t.Fatalf("white = %+v", white)
	}
	if black.Name != "Bo" || black.Rating != 0 {
		t.Fatalf("black = %+v", black)
	}
	white, black = HeaderPlayers("1. e4 *")
	if white.Name != "" || white.Rating != 0 || black.Name != "" {
		t.Fatalf("expected empty players, got %+v %+v", white, black)
	}
}

func TestParseMoveText_BlackMoveNumbersAndZeroCastle(t *testing.T) {
	l, err := ParseMoveText("1. e4 1... c5 2. Nf3 d6 3. Bb5+ Bd7 4. 0-0 *")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	want := []string{"e4", "c5", "Nf3", "d6", "Bb5+", "Bd7", "O-O"}
	if !reflect.DeepEqual(l.Tokens(), want) {
		t.Fatalf("tokens = %v, want %v", l.Tokens(), want)
	}
}

func TestParseMoveText_Errors(t *testing.T) {
	cases := []string{
		"",
		"   \n ",
		"1-0",
		"1. e4 {unterminated",
		"1. e4 (1. d4",
		"1. e4 e5)",
		"[Event \"x\"",
		"1. e4 e5 1-0 2. Nf3",
		"1. e4 hello",
	}
	for _, record := range cases {
		_, err := ParseMoveText(record)
		if !errors.Is(err, ErrParse) {
			t.Fatalf("ParseMoveText(%q): expected ErrParse, got %v", record, err)
		}
		var pe *ParseError
		if !errors.As(err, &pe) {
			t.Fatalf("ParseMoveText(%q): expected *ParseError", record)
		}
	}
}

func TestParseMoveText_ErrorIndex(t *testing.T) {
	_, err := ParseMoveText("1. e4 e5 2. Zz9")
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("expected ParseError, got %v", err)
	}
	if pe.Index != 2 || pe.Token != "Zz9" {
		t.Fatalf("unexpected error position: %+v", pe)
	}
}

func TestMoveList_TokensIsCopy(t *testing.T) {
	l := NewMoveList("e4", "e5")
	toks := l.Tokens()
	toks[0] = "d4"
	if l.At(0) != "e4" {
		t.Fatalf("move list mutated through Tokens()")
	}
}

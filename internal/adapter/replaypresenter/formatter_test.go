package replaypresenter

import (
	"errors"
	"strings"
	"testing"

	"github.com/park285/cheese-replay/internal/chessrules"
	"github.com/park285/cheese-replay/internal/domain"
	"github.com/park285/cheese-replay/internal/replay"
)

func loadedSession(t *testing.T, record string) *replay.Session {
	t.Helper()
	s, err := replay.NewSession(chessrules.NewEngine())
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	if err := s.LoadGame(record, domain.Player{Name: "Ann", Rating: 1810}, domain.Player{Name: "Bo"}); err != nil {
		t.Fatalf("LoadGame: %v", err)
	}
	return s
}

func TestToDTOState(t *testing.T) {
	s := loadedSession(t, "1.e4 e5 2.Nf3 Nc6 3.Bb5 1-0")
	_ = s.JumpToEnd()
	dto := ToDTOState("abc", s.State())
	if dto.SessionID != "abc" || dto.Total != 5 || dto.Cursor != 5 || !dto.AtEnd || dto.AtStart {
		t.Fatalf("unexpected dto: %+v", dto)
	}
	if dto.LastMove != "Bb5" || dto.Outcome != "white_wins" || dto.ResultToken != "1-0" || !dto.Revealed {
		t.Fatalf("unexpected dto result fields: %+v", dto)
	}
	if dto.Material.White != 39 || dto.Material.Black != 39 {
		t.Fatalf("unexpected material: %+v", dto.Material)
	}
	if dto.White.Name != "Ann" || dto.White.Rating != 1810 {
		t.Fatalf("unexpected white: %+v", dto.White)
	}
}

func TestToDTOState_EmptySession(t *testing.T) {
	s, _ := replay.NewSession(chessrules.NewEngine())
	dto := ToDTOState("x", s.State())
	if dto.Loaded || dto.Moves == nil || len(dto.Moves) != 0 || dto.FEN == "" {
		t.Fatalf("unexpected empty dto: %+v", dto)
	}
}

func TestFormatter_Cue(t *testing.T) {
	f := NewFormatter(nil)
	ev := replay.MoveEvent{Ply: 4, Token: "Qh4#", Classification: replay.Classify("Qh4#")}
	ev.Cue = replay.SelectCue(ev.Classification)
	if got := f.Cue(ToDTOEvent(ev)); got != "4. Qh4# [move + checkmate]" {
		t.Fatalf("unexpected cue line: %q", got)
	}
}

func TestFormatter_Status(t *testing.T) {
	f := NewFormatter(nil)
	s := loadedSession(t, "1.e4 e5 2.Nf3 Nc6 3.Bb5 1-0")
	_ = s.Seek(2)
	got := f.Status(ToDTOState("", s.State()))
	if !strings.HasPrefix(got, "Ann (1810) vs Bo | ply 2/5 | last e5") {
		t.Fatalf("unexpected status: %q", got)
	}
	_ = s.JumpToEnd()
	got = f.Status(ToDTOState("", s.State()))
	if !strings.Contains(got, "*** White wins (1-0) ***") {
		t.Fatalf("expected banner in status: %q", got)
	}
	if f.Status(nil) != "No game loaded" {
		t.Fatalf("unexpected empty status")
	}
}

func TestFormatter_Error(t *testing.T) {
	f := NewFormatter(nil)
	_, err := replay.ParseMoveText("1. e4 {x")
	if got := f.Error(err); !strings.Contains(got, "unterminated comment") {
		t.Fatalf("unexpected parse text: %q", got)
	}
	ime := &replay.IllegalMoveError{Index: 2, Token: "Ke3", Err: errors.New("bad")}
	if got := f.Error(ime); got != "Move 3 (Ke3) is not legal in this position" {
		t.Fatalf("unexpected illegal text: %q", got)
	}
}

func TestFormatter_Board(t *testing.T) {
	f := NewFormatter(nil)
	fen := "rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq e3 0 1"
	got := strings.Split(f.Board(fen, false), "\n")
	if got[0] != "8  r n b q k b n r" || got[4] != "4  . . . . P . . ." || got[8] != "   a b c d e f g h" {
		t.Fatalf("unexpected board:\n%s", strings.Join(got, "\n"))
	}
	flipped := strings.Split(f.Board(fen, true), "\n")
	if flipped[0] != "1  R N B K Q B N R" || flipped[8] != "   h g f e d c b a" {
		t.Fatalf("unexpected flipped board:\n%s", strings.Join(flipped, "\n"))
	}
	if f.Board("garbage", false) != "" {
		t.Fatalf("invalid fen should render nothing")
	}
}

func TestPresenter_DispatchesCueLines(t *testing.T) {
	var lines []string
	var images int
	p := NewPresenter(nil, func(m string) error { lines = append(lines, m); return nil }, func([]byte) error { images++; return nil })

	s, _ := replay.NewSession(chessrules.NewEngine(), replay.WithDispatcher(p))
	_ = s.LoadGame("1.e4 d5 2.exd5 *", domain.Player{}, domain.Player{})
	for i := 0; i < 3; i++ {
		_ = s.StepForward()
	}
	if len(lines) != 3 || lines[2] != "3. exd5 [capture]" {
		t.Fatalf("unexpected lines: %v", lines)
	}
	if err := p.Board("  ", []byte{1}); err != nil || images != 1 || len(lines) != 3 {
		t.Fatalf("blank message should be skipped, image sent")
	}
}

package replay_test

import (
	"errors"
	"testing"

	"github.com/park285/cheese-replay/internal/chessrules"
	"github.com/park285/cheese-replay/internal/domain"
	"github.com/park285/cheese-replay/internal/replay"
)

const ruyLopez = "1.e4 e5 2.Nf3 Nc6 3.Bb5 1-0"

func newTestSession(t *testing.T, opts ...replay.Option) (*replay.Session, *[]replay.MoveEvent) {
	t.Helper()
	events := &[]replay.MoveEvent{}
	opts = append([]replay.Option{replay.WithDispatcher(replay.DispatcherFunc(func(ev replay.MoveEvent) {
		*events = append(*events, ev)
	}))}, opts...)
	s, err := replay.NewSession(chessrules.NewEngine(), opts...)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	return s, events
}

func load(t *testing.T, s *replay.Session, record string) {
	t.Helper()
	if err := s.LoadGame(record, domain.Player{Name: "W"}, domain.Player{Name: "B"}); err != nil {
		t.Fatalf("LoadGame: %v", err)
	}
}

func TestNewSession_RequiresEngine(t *testing.T) {
	if _, err := replay.NewSession(nil); err == nil {
		t.Fatalf("expected error for nil engine")
	}
}

func TestSession_EndToEnd(t *testing.T) {
	s, events := newTestSession(t)
	load(t, s, ruyLopez)

	st := s.State()
	if st.Len() != 5 || st.Cursor != 0 || st.Outcome != replay.WhiteWins || st.Revealed {
		t.Fatalf("unexpected loaded state: %+v", st)
	}

	if err := s.JumpToEnd(); err != nil {
		t.Fatalf("JumpToEnd: %v", err)
	}
	st = s.State()
	if st.Cursor != 5 || !st.Revealed {
		t.Fatalf("expected cursor 5 with reveal, got %+v", st)
	}
	if len(*events) != 0 {
		t.Fatalf("JumpToEnd must not dispatch cues, got %d", len(*events))
	}

	s.Reset()
	st = s.State()
	if st.Cursor != 0 || st.Revealed || st.Outcome != replay.WhiteWins {
		t.Fatalf("unexpected state after reset: %+v", st)
	}
	initial := chessrules.New().InitialPosition()
	if st.Board.FEN() != initial.FEN() {
		t.Fatalf("reset board is not the start position: %s", st.Board.FEN())
	}
}

func TestSession_StepForwardDispatchesOncePerMove(t *testing.T) {
	s, events := newTestSession(t)
	load(t, s, "1.e4 d5 2.exd5 Qxd5 3.Nc3 Qa5 4.d4 Nf6 5.Nf3 Bf5 6.Bc4 e6 7.O-O *")

	n := s.State().Len()
	for i := 0; i < n+3; i++ {
		if err := s.StepForward(); err != nil {
			t.Fatalf("StepForward %d: %v", i, err)
		}
	}
	if got := len(*events); got != n {
		t.Fatalf("expected %d cue events, got %d", n, got)
	}
	for i, ev := range *events {
		if ev.Ply != i+1 {
			t.Fatalf("event %d has ply %d", i, ev.Ply)
		}
	}
	if (*events)[2].Cue.Sound != replay.SoundCapture {
		t.Fatalf("exd5 should be a capture cue: %+v", (*events)[2])
	}
	if (*events)[n-1].Cue.Sound != replay.SoundCastle {
		t.Fatalf("O-O should be a castle cue: %+v", (*events)[n-1])
	}
	st := s.State()
	if !st.AtEnd() || st.Revealed {
		t.Fatalf("undecided game should end without reveal: %+v", st)
	}
}

func TestSession_Boundaries(t *testing.T) {
	s, events := newTestSession(t)
	load(t, s, ruyLopez)

	if err := s.StepBackward(); err != nil {
		t.Fatalf("StepBackward at start: %v", err)
	}
	if s.State().Cursor != 0 {
		t.Fatalf("cursor moved below zero")
	}

	_ = s.JumpToEnd()
	before := s.State()
	if err := s.StepForward(); err != nil {
		t.Fatalf("StepForward at end: %v", err)
	}
	after := s.State()
	if after.Cursor != before.Cursor || after.Board.FEN() != before.Board.FEN() {
		t.Fatalf("StepForward at end changed state")
	}
	if len(*events) != 0 {
		t.Fatalf("no cue expected at end, got %d", len(*events))
	}
}

func TestSession_ForwardBackRoundTrip(t *testing.T) {
	for _, cache := range []bool{false, true} {
		s, _ := newTestSession(t, replay.WithPositionCache(cache))
		load(t, s, ruyLopez)
		for c := 0; c < s.State().Len(); c++ {
			_ = s.Seek(c)
			before := s.State().Board.FEN()
			if err := s.StepForward(); err != nil {
				t.Fatalf("forward at %d: %v", c, err)
			}
			if err := s.StepBackward(); err != nil {
				t.Fatalf("back at %d: %v", c, err)
			}
			if got := s.State().Board.FEN(); got != before {
				t.Fatalf("cache=%v round trip at %d: %q != %q", cache, c, got, before)
			}
		}
	}
}

func TestSession_RevealOnlyAtEnd(t *testing.T) {
	s, _ := newTestSession(t)
	load(t, s, ruyLopez)

	for i := 0; i < 4; i++ {
		_ = s.StepForward()
		if s.State().Revealed {
			t.Fatalf("revealed before the end at cursor %d", s.State().Cursor)
		}
	}
	_ = s.StepForward()
	if !s.State().Revealed {
		t.Fatalf("expected reveal on reaching the end")
	}

	s.DismissOutcome()
	st := s.State()
	if st.Revealed || st.Cursor != 5 || st.Outcome != replay.WhiteWins {
		t.Fatalf("dismiss should only hide the reveal: %+v", st)
	}
	_ = s.Seek(5)
	if s.State().Revealed {
		t.Fatalf("seeking in place must not undo a dismiss")
	}
	_ = s.JumpToEnd()
	if !s.State().Revealed {
		t.Fatalf("jumping to the end should reveal again")
	}
}

func TestSession_RevealSurvivesBackAndSeek(t *testing.T) {
	s, _ := newTestSession(t)
	load(t, s, ruyLopez)
	_ = s.JumpToEnd()

	_ = s.StepBackward()
	if st := s.State(); !st.Revealed || st.Cursor != 4 {
		t.Fatalf("stepping back should keep the reveal: cursor=%d revealed=%v", st.Cursor, st.Revealed)
	}
	_ = s.Seek(1)
	if !s.State().Revealed {
		t.Fatalf("seeking should keep the reveal")
	}
	s.Reset()
	if s.State().Revealed {
		t.Fatalf("reset should clear the reveal")
	}
	_ = s.Seek(2)
	if s.State().Revealed {
		t.Fatalf("seeking short of the end must not reveal")
	}
	_ = s.Seek(9)
	if !s.State().Revealed {
		t.Fatalf("seeking onto the end should reveal")
	}
}

func TestSession_SeekClamps(t *testing.T) {
	s, events := newTestSession(t)
	load(t, s, ruyLopez)

	_ = s.Seek(99)
	if s.State().Cursor != 5 {
		t.Fatalf("seek past end should clamp to 5, got %d", s.State().Cursor)
	}
	_ = s.Seek(-4)
	if s.State().Cursor != 0 {
		t.Fatalf("seek before start should clamp to 0, got %d", s.State().Cursor)
	}
	_ = s.Seek(3)
	if got, want := s.State().LastToken(), "Nf3"; got != want {
		t.Fatalf("last token at 3 = %q, want %q", got, want)
	}
	if len(*events) != 0 {
		t.Fatalf("seek must not dispatch cues")
	}
}

func TestSession_PanickingDispatcher(t *testing.T) {
	s, err := replay.NewSession(chessrules.NewEngine(), replay.WithDispatcher(replay.DispatcherFunc(func(replay.MoveEvent) {
		panic("speaker unplugged")
	})))
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	load(t, s, ruyLopez)
	if err := s.StepForward(); err != nil {
		t.Fatalf("StepForward: %v", err)
	}
	if s.State().Cursor != 1 {
		t.Fatalf("navigation should survive a dispatcher panic")
	}
}

func TestSession_PanickingStateListener(t *testing.T) {
	calls := 0
	s, events := newTestSession(t, replay.WithStateListener(func(replay.State) {
		calls++
		panic("renderer crashed")
	}))
	load(t, s, ruyLopez)
	if err := s.StepForward(); err != nil {
		t.Fatalf("StepForward: %v", err)
	}
	if s.State().Cursor != 1 || len(*events) != 1 {
		t.Fatalf("navigation should survive a listener panic: cursor=%d events=%d", s.State().Cursor, len(*events))
	}
	_ = s.JumpToEnd()
	if s.State().Cursor != 5 || calls != 3 {
		t.Fatalf("listener should keep being called: cursor=%d calls=%d", s.State().Cursor, calls)
	}
}

func TestSession_IllegalMoveLeavesState(t *testing.T) {
	s, events := newTestSession(t)
	load(t, s, "1.e4 e5 2.Ke3 Nc6 *")

	_ = s.StepForward()
	_ = s.StepForward()
	before := s.State()

	err := s.StepForward()
	if !errors.Is(err, replay.ErrIllegalMove) {
		t.Fatalf("expected ErrIllegalMove, got %v", err)
	}
	after := s.State()
	if after.Cursor != before.Cursor || after.Board.FEN() != before.Board.FEN() {
		t.Fatalf("illegal move changed state")
	}
	if len(*events) != 2 {
		t.Fatalf("illegal move must not dispatch, got %d events", len(*events))
	}

	if err := s.JumpToEnd(); !errors.Is(err, replay.ErrIllegalMove) {
		t.Fatalf("JumpToEnd across an illegal move should fail, got %v", err)
	}
	if s.State().Cursor != 2 {
		t.Fatalf("failed jump changed cursor to %d", s.State().Cursor)
	}
}

func TestSession_ParseErrorKeepsPreviousGame(t *testing.T) {
	s, _ := newTestSession(t)
	load(t, s, ruyLopez)
	_ = s.Seek(2)

	err := s.LoadGame("1. e4 {oops", domain.Player{}, domain.Player{})
	if !errors.Is(err, replay.ErrParse) {
		t.Fatalf("expected ErrParse, got %v", err)
	}
	st := s.State()
	if st.Len() != 5 || st.Cursor != 2 || st.White.Name != "W" {
		t.Fatalf("previous game should be kept: %+v", st)
	}
}

func TestSession_LoadReplacesGame(t *testing.T) {
	var seen []replay.State
	s, _ := newTestSession(t, replay.WithStateListener(func(st replay.State) { seen = append(seen, st) }))
	load(t, s, ruyLopez)
	_ = s.JumpToEnd()

	if err := s.LoadGame("1.d4 d5 1/2-1/2", domain.Player{Name: "X"}, domain.Player{Name: "Y"}); err != nil {
		t.Fatalf("LoadGame: %v", err)
	}
	st := s.State()
	if st.Len() != 2 || st.Cursor != 0 || st.Revealed || st.Outcome != replay.Draw || st.Black.Name != "Y" {
		t.Fatalf("unexpected state after reload: %+v", st)
	}
	if len(seen) != 3 {
		t.Fatalf("expected 3 committed transitions, got %d", len(seen))
	}
}

func TestSession_CheckmateCue(t *testing.T) {
	s, events := newTestSession(t)
	load(t, s, "1.f3 e5 2.g4 Qh4# 0-1")
	_ = s.JumpToEnd()
	_ = s.StepBackward()
	_ = s.StepForward()

	if len(*events) != 1 {
		t.Fatalf("expected one event, got %d", len(*events))
	}
	ev := (*events)[0]
	if ev.Ply != 4 || ev.Cue.Accent != replay.AccentCheckmate || ev.Cue.Sound != replay.SoundMove {
		t.Fatalf("unexpected mate event: %+v", ev)
	}
	if !s.State().Revealed || s.State().Outcome != replay.BlackWins {
		t.Fatalf("expected black win revealed")
	}
}

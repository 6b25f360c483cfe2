package replay

import (
	"fmt"

	"github.com/park285/cheese-replay/internal/domain"
	"go.uber.org/zap"
)

// State is the whole observable value of a session. Transitions replace it in one assignment.
type State struct {
	Moves    MoveList
	Cursor   int
	Board    Board
	Outcome  Outcome
	Revealed bool
	White    domain.Player
	Black    domain.Player
	Loaded   bool
}

func (s State) Len() int      { return s.Moves.Len() }
func (s State) AtStart() bool { return s.Cursor == 0 }
func (s State) AtEnd() bool   { return s.Cursor == s.Moves.Len() }

// LastToken returns the token that produced the current board, or "" at the start.
func (s State) LastToken() string {
	if s.Cursor == 0 {
		return ""
	}
	return s.Moves.At(s.Cursor - 1)
}

// StateListener observes every committed transition (renderer, stream, logs).
type StateListener func(State)

type Option func(*Session)

func WithDispatcher(d CueDispatcher) Option {
	return func(s *Session) {
		if d != nil {
			s.dispatch = d
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithPositionCache keeps every computed board keyed by ply until the next LoadGame.
func WithPositionCache(enabled bool) Option {
	return func(s *Session) { s.cacheOn = enabled }
}

func WithStateListener(fn StateListener) Option {
	return func(s *Session) { s.listener = fn }
}

// Session owns one loaded game and its cursor. It is not safe for concurrent use;
// callers serialise access (one logical thread per view).
type Session struct {
	engine   *Engine
	dispatch CueDispatcher
	listener StateListener
	logger   *zap.Logger
	cacheOn  bool

	cache map[int]Board
	state State
}

func NewSession(engine *Engine, opts ...Option) (*Session, error) {
	if engine == nil {
		return nil, fmt.Errorf("position engine is required")
	}
	s := &Session{
		engine:   engine,
		dispatch: NopDispatcher(),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	initial := engine.Initial()
	s.state = State{Board: initial}
	s.cache = map[int]Board{0: initial}
	return s, nil
}

// State returns the current value. MoveList is immutable so the copy is safe to keep.
func (s *Session) State() State { return s.state }

// LoadGame replaces the session with a freshly parsed record.
// On a parse error the previous game stays untouched.
func (s *Session) LoadGame(record string, white, black domain.Player) error {
	moves, err := ParseMoveText(record)
	if err != nil {
		s.logger.Info("replay_load_rejected", zap.Error(err))
		return err
	}
	initial := s.engine.Initial()
	next := State{
		Moves:   moves,
		Cursor:  0,
		Board:   initial,
		Outcome: ResolveOutcome(record),
		White:   white,
		Black:   black,
		Loaded:  true,
	}
	s.cache = map[int]Board{0: initial}
	s.commit(next)
	s.logger.Info("replay_load",
		zap.Int("plies", moves.Len()),
		zap.String("outcome", next.Outcome.String()),
		zap.String("white", white.Name),
		zap.String("black", black.Name),
	)
	return nil
}

// StepForward plays moves[c], advances the cursor and dispatches its cue.
// A no-op at the end of the game.
func (s *Session) StepForward() error {
	cur := s.state
	if cur.Cursor >= cur.Moves.Len() {
		return nil
	}
	board, err := s.forwardBoard(cur)
	if err != nil {
		s.logger.Warn("replay_illegal_move", zap.Int("cursor", cur.Cursor), zap.Error(err))
		return err
	}

	next := cur
	next.Cursor = cur.Cursor + 1
	next.Board = board
	if next.AtEnd() && next.Outcome.Decided() {
		next.Revealed = true
	}
	s.commit(next)

	tok := cur.Moves.At(cur.Cursor)
	cls := Classify(tok)
	ev := MoveEvent{Ply: next.Cursor, Token: tok, Classification: cls, Cue: SelectCue(cls)}
	s.logger.Debug("replay_step",
		zap.Int("ply", ev.Ply),
		zap.String("token", tok),
		zap.Strings("tags", cls.Names()),
	)
	safeDispatch(s.dispatch, ev, s.logger)
	return nil
}

// StepBackward moves the cursor back one ply. No cue is dispatched.
func (s *Session) StepBackward() error {
	cur := s.state
	if cur.Cursor <= 0 {
		return nil
	}
	return s.moveTo(cur, cur.Cursor-1, false)
}

// Reset returns to the initial position and clears the outcome reveal.
func (s *Session) Reset() {
	next := s.state
	next.Cursor = 0
	next.Board = s.engine.Initial()
	next.Revealed = false
	s.commit(next)
}

// JumpToEnd goes straight to the final position without replaying cues.
func (s *Session) JumpToEnd() error {
	cur := s.state
	return s.moveTo(cur, cur.Moves.Len(), true)
}

// Seek jumps to ply, clamped to [0, N]. No cues are dispatched.
// Landing on N from elsewhere raises the reveal like JumpToEnd.
func (s *Session) Seek(ply int) error {
	cur := s.state
	if ply < 0 {
		ply = 0
	}
	if ply > cur.Moves.Len() {
		ply = cur.Moves.Len()
	}
	return s.moveTo(cur, ply, ply != cur.Cursor)
}

// DismissOutcome hides the outcome reveal; cursor and outcome are kept.
func (s *Session) DismissOutcome() {
	if !s.state.Revealed {
		return
	}
	next := s.state
	next.Revealed = false
	s.commit(next)
}

// moveTo keeps the reveal flag as is; raise lets arrival at N set it.
func (s *Session) moveTo(cur State, ply int, raise bool) error {
	board, err := s.positionAt(cur.Moves, ply)
	if err != nil {
		s.logger.Warn("replay_illegal_move", zap.Int("target", ply), zap.Error(err))
		return err
	}
	next := cur
	next.Cursor = ply
	next.Board = board
	if raise && next.AtEnd() && next.Outcome.Decided() {
		next.Revealed = true
	}
	s.commit(next)
	return nil
}

func (s *Session) forwardBoard(cur State) (Board, error) {
	ply := cur.Cursor + 1
	if b, ok := s.cached(ply); ok {
		return b, nil
	}
	board, err := s.engine.Advance(cur.Board, cur.Moves, cur.Cursor)
	if err != nil {
		return nil, err
	}
	s.remember(ply, board)
	return board, nil
}

func (s *Session) positionAt(moves MoveList, ply int) (Board, error) {
	if b, ok := s.cached(ply); ok {
		return b, nil
	}
	if !s.cacheOn {
		return s.engine.PositionAt(moves, ply)
	}
	boards, err := s.engine.Positions(moves, ply)
	if err != nil {
		return nil, err
	}
	for i, b := range boards {
		s.cache[i] = b
	}
	return boards[ply], nil
}

func (s *Session) cached(ply int) (Board, bool) {
	if !s.cacheOn {
		return nil, false
	}
	b, ok := s.cache[ply]
	return b, ok
}

func (s *Session) remember(ply int, b Board) {
	if s.cacheOn {
		s.cache[ply] = b
	}
}

func (s *Session) commit(next State) {
	s.state = next
	if s.listener == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			s.logger.Warn("replay_state_listener_panic",
				zap.Int("cursor", next.Cursor),
				zap.Any("panic", r),
			)
		}
	}()
	s.listener(next)
}

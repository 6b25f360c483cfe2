// Package api exposes replay sessions over a fasthttp REST surface.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/park285/cheese-replay/internal/adapter/replaypresenter"
	"github.com/park285/cheese-replay/internal/domain"
	"github.com/park285/cheese-replay/internal/msgcat"
	"github.com/park285/cheese-replay/internal/recordstore"
	"github.com/park285/cheese-replay/internal/render"
	"github.com/park285/cheese-replay/internal/replay"
	"github.com/park285/cheese-replay/pkg/replaydto"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
)

const (
	contentTypeJSON = "application/json; charset=utf-8"
	contentTypePNG  = "image/png"

	defaultRequestTimeout = 10 * time.Second
)

var errBadRequest = errors.New("bad request")

type ServerOptions struct {
	Registry *Registry
	Records  recordstore.Repository
	Boards   render.BoardRenderer
	Catalog  *msgcat.Catalog
	Logger   *zap.Logger
	// RecentLimitMax caps GET /records?limit.
	RecentLimitMax int
	Timeout        time.Duration
}

type Server struct {
	registry   *Registry
	records    recordstore.Repository
	boards     render.BoardRenderer
	cat        *msgcat.Catalog
	logger     *zap.Logger
	recentMax  int
	timeout    time.Duration
	httpServer *fasthttp.Server
}

func NewServer(opts ServerOptions) (*Server, error) {
	if opts.Registry == nil {
		return nil, fmt.Errorf("session registry is required")
	}
	if opts.Records == nil {
		opts.Records = recordstore.NewMemoryRepository()
	}
	if opts.Boards == nil {
		opts.Boards = render.NewBoardRenderer(render.DefaultSquareSize)
	}
	if opts.Catalog == nil {
		opts.Catalog = msgcat.Default()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.RecentLimitMax <= 0 {
		opts.RecentLimitMax = 50
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultRequestTimeout
	}
	s := &Server{
		registry:  opts.Registry,
		records:   opts.Records,
		boards:    opts.Boards,
		cat:       opts.Catalog,
		logger:    opts.Logger,
		recentMax: opts.RecentLimitMax,
		timeout:   opts.Timeout,
	}
	s.httpServer = &fasthttp.Server{
		Handler:      s.Handler,
		Name:         "cheese-replay",
		ReadTimeout:  opts.Timeout,
		WriteTimeout: opts.Timeout,
	}
	return s, nil
}

// ListenAndServe blocks until the server fails or Shutdown is called.
func (s *Server) ListenAndServe(addr string) error {
	s.logger.Info("http_listen", zap.String("addr", addr))
	return s.httpServer.ListenAndServe(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.ShutdownWithContext(ctx)
}

// Handler routes one request. Paths are matched by hand; the surface is small.
func (s *Server) Handler(ctx *fasthttp.RequestCtx) {
	start := time.Now()
	method := string(ctx.Method())
	path := string(ctx.Path())
	defer func() {
		s.logger.Debug("http_request",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", ctx.Response.StatusCode()),
			zap.Duration("elapsed", time.Since(start)),
		)
	}()

	parts := splitPath(path)
	switch {
	case len(parts) == 1 && parts[0] == "healthz":
		s.onlyMethod(ctx, method, fasthttp.MethodGet, s.handleHealth)
	case len(parts) == 1 && parts[0] == "records":
		switch method {
		case fasthttp.MethodGet:
			s.handleRecent(ctx)
		case fasthttp.MethodPost:
			s.handleSaveRecord(ctx)
		default:
			methodNotAllowed(ctx)
		}
	case len(parts) == 1 && parts[0] == "sessions":
		s.onlyMethod(ctx, method, fasthttp.MethodPost, s.handleCreate)
	case len(parts) == 2 && parts[0] == "sessions":
		switch method {
		case fasthttp.MethodGet:
			s.handleGet(ctx, parts[1])
		case fasthttp.MethodDelete:
			s.handleDelete(ctx, parts[1])
		default:
			methodNotAllowed(ctx)
		}
	case len(parts) == 3 && parts[0] == "sessions" && parts[2] == "board.png":
		s.onlyMethod(ctx, method, fasthttp.MethodGet, func(c *fasthttp.RequestCtx) { s.handleBoard(c, parts[1]) })
	case len(parts) == 3 && parts[0] == "sessions":
		s.onlyMethod(ctx, method, fasthttp.MethodPost, func(c *fasthttp.RequestCtx) { s.handleCommand(c, parts[1], parts[2]) })
	default:
		s.writeError(ctx, fasthttp.StatusNotFound, replaydto.CodeNotFound, "no such route", false)
	}
}

func splitPath(path string) []string {
	var out []string
	for _, p := range strings.Split(path, "/") {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (s *Server) onlyMethod(ctx *fasthttp.RequestCtx, got, want string, fn func(*fasthttp.RequestCtx)) {
	if got != want {
		methodNotAllowed(ctx)
		return
	}
	fn(ctx)
}

func methodNotAllowed(ctx *fasthttp.RequestCtx) {
	ctx.SetStatusCode(fasthttp.StatusMethodNotAllowed)
}

func (s *Server) handleHealth(ctx *fasthttp.RequestCtx) {
	s.writeJSON(ctx, fasthttp.StatusOK, map[string]any{"status": "ok", "sessions": s.registry.Len()})
}

func (s *Server) handleCreate(ctx *fasthttp.RequestCtx) {
	var req replaydto.CreateSessionRequest
	if err := decodeBody(ctx, &req); err != nil {
		s.fail(ctx, err)
		return
	}
	load, err := s.resolveLoad(req.LoadRequest)
	if err != nil {
		s.fail(ctx, err)
		return
	}
	entry, err := s.registry.Create(req.Flip)
	if err != nil {
		s.fail(ctx, err)
		return
	}

	var st replay.State
	if load != nil {
		err = entry.Do(time.Now(), func(sess *replay.Session) error {
			if err := sess.LoadGame(load.PGN, load.White, load.Black); err != nil {
				return err
			}
			st = sess.State()
			return nil
		})
		if err != nil {
			s.registry.Delete(entry.ID)
			s.fail(ctx, err)
			return
		}
	} else {
		_ = entry.Do(time.Now(), func(sess *replay.Session) error {
			st = sess.State()
			return nil
		})
	}
	s.writeJSON(ctx, fasthttp.StatusCreated, replaydto.SessionResponse{State: replaypresenter.ToDTOState(entry.ID, st)})
}

func (s *Server) handleGet(ctx *fasthttp.RequestCtx, id string) {
	s.withSession(ctx, id, func(sess *replay.Session) error { return nil })
}

func (s *Server) handleDelete(ctx *fasthttp.RequestCtx, id string) {
	if !s.registry.Delete(id) {
		s.fail(ctx, ErrSessionNotFound)
		return
	}
	ctx.SetStatusCode(fasthttp.StatusNoContent)
}

func (s *Server) handleCommand(ctx *fasthttp.RequestCtx, id, command string) {
	var op func(sess *replay.Session) error
	switch command {
	case "forward":
		op = (*replay.Session).StepForward
	case "back":
		op = (*replay.Session).StepBackward
	case "end":
		op = (*replay.Session).JumpToEnd
	case "reset":
		op = func(sess *replay.Session) error { sess.Reset(); return nil }
	case "dismiss":
		op = func(sess *replay.Session) error { sess.DismissOutcome(); return nil }
	case "seek":
		raw := string(ctx.QueryArgs().Peek("ply"))
		ply, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			s.fail(ctx, fmt.Errorf("%w: ply must be an integer, got %q", errBadRequest, raw))
			return
		}
		op = func(sess *replay.Session) error { return sess.Seek(ply) }
	case "load":
		var req replaydto.LoadRequest
		if err := decodeBody(ctx, &req); err != nil {
			s.fail(ctx, err)
			return
		}
		load, err := s.resolveLoad(req)
		if err != nil {
			s.fail(ctx, err)
			return
		}
		if load == nil {
			s.fail(ctx, fmt.Errorf("%w: pgn or record_id is required", errBadRequest))
			return
		}
		op = func(sess *replay.Session) error { return sess.LoadGame(load.PGN, load.White, load.Black) }
	default:
		s.writeError(ctx, fasthttp.StatusNotFound, replaydto.CodeNotFound, "unknown command "+command, false)
		return
	}
	s.withSession(ctx, id, op)
}

// withSession runs op under the entry lock and replies with the resulting state.
func (s *Server) withSession(ctx *fasthttp.RequestCtx, id string, op func(*replay.Session) error) {
	entry, err := s.registry.Get(id)
	if err != nil {
		s.fail(ctx, err)
		return
	}
	var st replay.State
	err = entry.Do(time.Now(), func(sess *replay.Session) error {
		opErr := op(sess)
		st = sess.State()
		return opErr
	})
	if err != nil {
		s.fail(ctx, err)
		return
	}
	s.writeJSON(ctx, fasthttp.StatusOK, replaydto.SessionResponse{State: replaypresenter.ToDTOState(id, st)})
}

func (s *Server) handleBoard(ctx *fasthttp.RequestCtx, id string) {
	entry, err := s.registry.Get(id)
	if err != nil {
		s.fail(ctx, err)
		return
	}
	var st replay.State
	_ = entry.Do(time.Now(), func(sess *replay.Session) error {
		st = sess.State()
		return nil
	})

	flip := entry.Flip
	if v := ctx.QueryArgs().Peek("flip"); len(v) > 0 {
		flip, _ = strconv.ParseBool(string(v))
	}
	rctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	data, err := render.NewStateRenderer(s.boards, s.cat, flip).Render(rctx, st)
	if err != nil {
		s.logger.Error("render_failed", zap.String("session", id), zap.Error(err))
		s.fail(ctx, err)
		return
	}
	ctx.SetStatusCode(fasthttp.StatusOK)
	ctx.SetContentType(contentTypePNG)
	ctx.SetBody(data)
}

func (s *Server) handleRecent(ctx *fasthttp.RequestCtx) {
	limit := recordstore.DefaultRecentLimit
	if raw := ctx.QueryArgs().Peek("limit"); len(raw) > 0 {
		n, err := strconv.Atoi(string(raw))
		if err != nil || n <= 0 {
			s.fail(ctx, fmt.Errorf("%w: limit must be a positive integer", errBadRequest))
			return
		}
		limit = min(n, s.recentMax)
	}
	rctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	recs, err := s.records.Recent(rctx, limit)
	if err != nil {
		s.fail(ctx, err)
		return
	}
	out := replaydto.RecordsResponse{Records: make([]replaydto.RecordSummary, 0, len(recs))}
	for _, r := range recs {
		out.Records = append(out.Records, replaypresenter.ToDTORecord(r))
	}
	s.writeJSON(ctx, fasthttp.StatusOK, out)
}

func (s *Server) handleSaveRecord(ctx *fasthttp.RequestCtx) {
	var req replaydto.SaveRecordRequest
	if err := decodeBody(ctx, &req); err != nil {
		s.fail(ctx, err)
		return
	}
	rec := &domain.GameRecord{
		ID:      req.ID,
		PGN:     req.PGN,
		White:   replaypresenter.FromDTOPlayer(req.White),
		Black:   replaypresenter.FromDTOPlayer(req.Black),
		EndedAt: req.EndedAt,
	}
	rctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	id, err := s.records.Save(rctx, rec)
	if err != nil {
		s.fail(ctx, err)
		return
	}
	s.writeJSON(ctx, fasthttp.StatusCreated, replaydto.SaveRecordResponse{ID: id})
}

type loadInput struct {
	PGN   string
	White domain.Player
	Black domain.Player
}

// resolveLoad returns nil when the request names no game.
// Players default to the stored record, then to the PGN headers.
func (s *Server) resolveLoad(req replaydto.LoadRequest) (*loadInput, error) {
	pgn := strings.TrimSpace(req.PGN)
	recordID := strings.TrimSpace(req.RecordID)
	if pgn != "" && recordID != "" {
		return nil, fmt.Errorf("%w: pgn and record_id are mutually exclusive", errBadRequest)
	}

	var in loadInput
	switch {
	case recordID != "":
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		rec, err := s.records.Get(ctx, recordID)
		if err != nil {
			return nil, err
		}
		in = loadInput{PGN: rec.PGN, White: rec.White, Black: rec.Black}
	case pgn != "":
		in = loadInput{PGN: pgn}
		in.White, in.Black = replay.HeaderPlayers(pgn)
	default:
		return nil, nil
	}
	if req.White != nil {
		in.White = replaypresenter.FromDTOPlayer(req.White)
	}
	if req.Black != nil {
		in.Black = replaypresenter.FromDTOPlayer(req.Black)
	}
	return &in, nil
}

func decodeBody(ctx *fasthttp.RequestCtx, dst any) error {
	body := ctx.PostBody()
	if len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}

// fail maps a domain error onto the wire error shape.
func (s *Server) fail(ctx *fasthttp.RequestCtx, err error) {
	var (
		parseErr   *replay.ParseError
		illegalErr *replay.IllegalMoveError
	)
	switch {
	case errors.As(err, &parseErr):
		s.writeError(ctx, fasthttp.StatusBadRequest, replaydto.CodeParse,
			s.cat.Text("error.parse", map[string]any{"Reason": parseErr.Error()}), false)
	case errors.As(err, &illegalErr):
		s.writeError(ctx, fasthttp.StatusUnprocessableEntity, replaydto.CodeIllegalMove,
			s.cat.Text("error.illegal", map[string]any{"Ply": illegalErr.Index + 1, "Token": illegalErr.Token}), false)
	case errors.Is(err, ErrSessionNotFound), errors.Is(err, recordstore.ErrNotFound):
		s.writeError(ctx, fasthttp.StatusNotFound, replaydto.CodeNotFound, err.Error(), false)
	case errors.Is(err, ErrCapacity):
		s.writeError(ctx, fasthttp.StatusServiceUnavailable, replaydto.CodeCapacity, err.Error(), true)
	case errors.Is(err, recordstore.ErrDuplicate):
		s.writeError(ctx, fasthttp.StatusConflict, replaydto.CodeConflict, err.Error(), false)
	case errors.Is(err, errBadRequest), errors.Is(err, replay.ErrIndexOutOfRange):
		s.writeError(ctx, fasthttp.StatusBadRequest, replaydto.CodeInvalidRequest, err.Error(), false)
	default:
		s.logger.Error("http_internal_error", zap.String("path", string(ctx.Path())), zap.Error(err))
		s.writeError(ctx, fasthttp.StatusInternalServerError, replaydto.CodeInternal, "internal error", true)
	}
}

func (s *Server) writeError(ctx *fasthttp.RequestCtx, status int, code, message string, retryable bool) {
	s.writeJSON(ctx, status, replaydto.ErrorResponse{Error: replaydto.DomainError{Code: code, Message: message, Retryable: retryable}})
}

func (s *Server) writeJSON(ctx *fasthttp.RequestCtx, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		s.logger.Error("http_encode_failed", zap.Error(err))
		ctx.SetStatusCode(fasthttp.StatusInternalServerError)
		return
	}
	ctx.SetStatusCode(status)
	ctx.SetContentType(contentTypeJSON)
	ctx.SetBody(data)
}

// Package wsstream serves and consumes the live frame stream of a replay session over websockets.
package wsstream

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/park285/cheese-replay/pkg/replaydto"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

const pathPrefix = "/ws/sessions/"

// Subscriber is the part of cuebus.Hub the handler needs.
type Subscriber interface {
	Subscribe(sessionID string) (<-chan replaydto.Frame, func())
}

// SessionLookup reports whether a session exists. Nil accepts every ID.
type SessionLookup func(id string) bool

type Handler struct {
	subs         Subscriber
	exists       SessionLookup
	logger       *zap.Logger
	pingInterval time.Duration
	writeTimeout time.Duration
	origins      []string
}

type Option func(*Handler)

func WithLogger(l *zap.Logger) Option {
	return func(h *Handler) {
		if l != nil {
			h.logger = l
		}
	}
}

func WithSessionLookup(fn SessionLookup) Option {
	return func(h *Handler) { h.exists = fn }
}

func WithPingInterval(d time.Duration) Option {
	return func(h *Handler) {
		if d > 0 {
			h.pingInterval = d
		}
	}
}

// WithOriginPatterns allows cross-origin browser clients matching the patterns.
func WithOriginPatterns(patterns ...string) Option {
	return func(h *Handler) { h.origins = append(h.origins, patterns...) }
}

func NewHandler(subs Subscriber, opts ...Option) *Handler {
	h := &Handler{
		subs:         subs,
		logger:       zap.NewNop(),
		pingInterval: 30 * time.Second,
		writeTimeout: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// ServeHTTP handles GET /ws/sessions/{id}.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id := strings.Trim(strings.TrimPrefix(r.URL.Path, pathPrefix), "/")
	if !strings.HasPrefix(r.URL.Path, pathPrefix) || id == "" || strings.Contains(id, "/") {
		http.NotFound(w, r)
		return
	}
	if h.exists != nil && !h.exists(id) {
		http.Error(w, "replay session not found", http.StatusNotFound)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		CompressionMode: websocket.CompressionNoContextTakeover,
		OriginPatterns:  h.origins,
	})
	if err != nil {
		h.logger.Warn("ws_accept_failed", zap.String("session", id), zap.Error(err))
		return
	}

	frames, unsubscribe := h.subs.Subscribe(id)
	defer unsubscribe()

	// clients never send; CloseRead cancels ctx when they leave
	ctx := conn.CloseRead(r.Context())
	h.logger.Info("ws_stream_open", zap.String("session", id))

	reason := h.pump(ctx, conn, frames)
	h.logger.Info("ws_stream_closed", zap.String("session", id), zap.String("reason", reason))
	_ = conn.Close(websocket.StatusNormalClosure, reason)
}

func (h *Handler) pump(ctx context.Context, conn *websocket.Conn, frames <-chan replaydto.Frame) string {
	ping := time.NewTicker(h.pingInterval)
	defer ping.Stop()
	for {
		select {
		case <-ctx.Done():
			return "client left"
		case f, ok := <-frames:
			if !ok {
				return "session closed"
			}
			wctx, cancel := context.WithTimeout(ctx, h.writeTimeout)
			err := wsjson.Write(wctx, conn, f)
			cancel()
			if err != nil {
				if !errors.Is(err, context.Canceled) {
					h.logger.Debug("ws_write_failed", zap.String("session", f.SessionID), zap.Error(err))
				}
				return "write failed"
			}
		case <-ping.C:
			pctx, cancel := context.WithTimeout(ctx, 3*time.Second)
			err := conn.Ping(pctx)
			cancel()
			if err != nil {
				return "ping failed"
			}
		}
	}
}

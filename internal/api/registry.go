package api

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/park285/cheese-replay/internal/cuebus"
	"github.com/park285/cheese-replay/internal/replay"
	"go.uber.org/zap"
)

var (
	ErrSessionNotFound = errors.New("replay session not found")
	ErrCapacity        = errors.New("replay session capacity reached")
)

// SessionFactory builds the replay session for a new registry entry.
type SessionFactory func(id string) (*replay.Session, error)

// Entry is one registered session. Access to the session is serialised by Do.
type Entry struct {
	ID   string
	Flip bool

	mu       sync.Mutex
	session  *replay.Session
	lastUsed time.Time
}

// Do runs fn with exclusive access to the session and marks the entry as used.
func (e *Entry) Do(now time.Time, fn func(s *replay.Session) error) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.lastUsed = now
	return fn(e.session)
}

func (e *Entry) idleSince() time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastUsed
}

type RegistryOptions struct {
	TTL         time.Duration
	MaxSessions int
	Factory     SessionFactory
	Logger      *zap.Logger
	// OnEvict runs after an entry is removed (deleted or swept).
	OnEvict func(id string)
}

// Registry holds the live sessions of a server process.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*Entry

	ttl     time.Duration
	max     int
	factory SessionFactory
	logger  *zap.Logger
	onEvict func(id string)
	now     func() time.Time
}

func NewRegistry(opts RegistryOptions) (*Registry, error) {
	if opts.Factory == nil {
		return nil, fmt.Errorf("session factory is required")
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.TTL <= 0 {
		opts.TTL = 30 * time.Minute
	}
	return &Registry{
		entries: make(map[string]*Entry),
		ttl:     opts.TTL,
		max:     opts.MaxSessions,
		factory: opts.Factory,
		logger:  opts.Logger,
		onEvict: opts.OnEvict,
		now:     time.Now,
	}, nil
}

// Create fails with ErrCapacity before building a session when the registry is full.
func (r *Registry) Create(flip bool) (*Entry, error) {
	if r.full() {
		return nil, ErrCapacity
	}
	id := uuid.NewString()
	sess, err := r.factory(id)
	if err != nil {
		return nil, err
	}
	e := &Entry{ID: id, Flip: flip, session: sess, lastUsed: r.now()}

	r.mu.Lock()
	// a concurrent Create may have taken the last slot
	if r.max > 0 && len(r.entries) >= r.max {
		r.mu.Unlock()
		return nil, ErrCapacity
	}
	r.entries[id] = e
	n := len(r.entries)
	r.mu.Unlock()

	r.logger.Info("replay_session_created", zap.String("session", id), zap.Int("open", n))
	return e, nil
}

func (r *Registry) full() bool {
	if r.max <= 0 {
		return false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries) >= r.max
}

func (r *Registry) Get(id string) (*Entry, error) {
	r.mu.RLock()
	e, ok := r.entries[id]
	r.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	return e, nil
}

func (r *Registry) Delete(id string) bool {
	r.mu.Lock()
	_, ok := r.entries[id]
	delete(r.entries, id)
	r.mu.Unlock()
	if ok {
		r.evicted(id, "deleted")
	}
	return ok
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Sweep removes entries idle longer than the TTL and returns how many were removed.
func (r *Registry) Sweep() int {
	cutoff := r.now().Add(-r.ttl)
	r.mu.RLock()
	var stale []string
	for id, e := range r.entries {
		if e.idleSince().Before(cutoff) {
			stale = append(stale, id)
		}
	}
	r.mu.RUnlock()

	removed := 0
	for _, id := range stale {
		r.mu.Lock()
		e, ok := r.entries[id]
		// re-check: the entry may have been used since the scan
		if ok && e.idleSince().Before(cutoff) {
			delete(r.entries, id)
		} else {
			ok = false
		}
		r.mu.Unlock()
		if ok {
			removed++
			r.evicted(id, "expired")
		}
	}
	return removed
}

// Run sweeps every interval until ctx is done.
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := r.Sweep(); n > 0 {
				r.logger.Info("replay_session_sweep", zap.Int("removed", n), zap.Int("open", r.Len()))
			}
		}
	}
}

func (r *Registry) evicted(id, reason string) {
	r.logger.Info("replay_session_closed", zap.String("session", id), zap.String("reason", reason))
	if r.onEvict != nil {
		r.onEvict(id)
	}
}

// NewSessionFactory builds sessions that publish their cues and states to sink.
func NewSessionFactory(engine *replay.Engine, sink cuebus.Sink, positionCache bool, logger *zap.Logger) SessionFactory {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(id string) (*replay.Session, error) {
		opts := []replay.Option{
			replay.WithPositionCache(positionCache),
			replay.WithLogger(logger.With(zap.String("session", id))),
		}
		if sink != nil {
			opts = append(opts,
				replay.WithDispatcher(cuebus.Dispatcher(sink, id)),
				replay.WithStateListener(cuebus.StateListener(sink, id)),
			)
		}
		return replay.NewSession(engine, opts...)
	}
}

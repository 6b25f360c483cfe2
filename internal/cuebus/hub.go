// Package cuebus fans replay cue and state frames out to live stream subscribers.
package cuebus

import (
	"sync"
	"time"

	"github.com/park285/cheese-replay/internal/adapter/replaypresenter"
	"github.com/park285/cheese-replay/internal/replay"
	"github.com/park285/cheese-replay/pkg/replaydto"
	"go.uber.org/zap"
)

// Sink accepts frames for delivery. Publish must not block navigation.
type Sink interface {
	Publish(f replaydto.Frame)
}

const defaultBuffer = 32

type subscriber struct {
	id int
	ch chan replaydto.Frame
}

// Hub is the in-process fan-out. Slow subscribers lose frames instead of stalling publishers.
type Hub struct {
	mu     sync.RWMutex
	subs   map[string][]subscriber
	nextID int
	buffer int
	logger *zap.Logger
}

func NewHub(buffer int, logger *zap.Logger) *Hub {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{subs: make(map[string][]subscriber), buffer: buffer, logger: logger}
}

// Subscribe registers a listener for one session. The returned func unsubscribes and closes the channel.
func (h *Hub) Subscribe(sessionID string) (<-chan replaydto.Frame, func()) {
	h.mu.Lock()
	h.nextID++
	sub := subscriber{id: h.nextID, ch: make(chan replaydto.Frame, h.buffer)}
	h.subs[sessionID] = append(h.subs[sessionID], sub)
	h.mu.Unlock()

	var once sync.Once
	return sub.ch, func() {
		once.Do(func() { h.remove(sessionID, sub.id) })
	}
}

func (h *Hub) remove(sessionID string, id int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	list := h.subs[sessionID]
	for i, s := range list {
		if s.id != id {
			continue
		}
		close(s.ch)
		list = append(list[:i:i], list[i+1:]...)
		break
	}
	if len(list) == 0 {
		delete(h.subs, sessionID)
		return
	}
	h.subs[sessionID] = list
}

// CloseSession drops every subscriber of a session, closing their channels.
func (h *Hub) CloseSession(sessionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, s := range h.subs[sessionID] {
		close(s.ch)
	}
	delete(h.subs, sessionID)
}

func (h *Hub) Subscribers(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[sessionID])
}

func (h *Hub) Publish(f replaydto.Frame) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, s := range h.subs[f.SessionID] {
		select {
		case s.ch <- f:
		default:
			h.logger.Debug("cuebus_frame_dropped", zap.String("session", f.SessionID), zap.String("type", f.Type))
		}
	}
}

// Dispatcher turns classified moves of one session into cue frames on sink.
func Dispatcher(sink Sink, sessionID string) replay.CueDispatcher {
	return replay.DispatcherFunc(func(ev replay.MoveEvent) {
		sink.Publish(replaydto.Frame{
			Type:      replaydto.FrameCue,
			SessionID: sessionID,
			Cue:       replaypresenter.ToDTOEvent(ev),
			At:        time.Now(),
		})
	})
}

// StateListener publishes every committed state of one session as a state frame.
func StateListener(sink Sink, sessionID string) replay.StateListener {
	return func(st replay.State) {
		sink.Publish(replaydto.Frame{
			Type:      replaydto.FrameState,
			SessionID: sessionID,
			State:     replaypresenter.ToDTOState(sessionID, st),
			At:        time.Now(),
		})
	}
}

package cuebus

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/park285/cheese-replay/pkg/replaydto"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	channelPrefix  = "replay:frames:"
	publishTimeout = 2 * time.Second
)

// RedisBus relays frames between server instances over Redis pub/sub.
// Publish only queues; one goroutine owns the network writes.
type RedisBus struct {
	rdb    *redis.Client
	logger *zap.Logger
	frames chan replaydto.Frame
	stop   chan struct{}
	once   sync.Once
	wg     sync.WaitGroup
}

// NewRedisBus starts the publishing goroutine. Call Close to stop it.
func NewRedisBus(rdb *redis.Client, buffer int, logger *zap.Logger) *RedisBus {
	if buffer <= 0 {
		buffer = defaultBuffer * 4
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	b := &RedisBus{
		rdb:    rdb,
		logger: logger,
		frames: make(chan replaydto.Frame, buffer),
		stop:   make(chan struct{}),
	}
	b.wg.Add(1)
	go b.drain()
	return b
}

// NewRedisClient parses a redis:// URL and pings the server.
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opt, err := redis.ParseURL(strings.TrimSpace(redisURL))
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opt)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return rdb, nil
}

func channelFor(sessionID string) string { return channelPrefix + sessionID }

// Publish queues f and returns at once. A full queue drops the frame.
func (b *RedisBus) Publish(f replaydto.Frame) {
	select {
	case <-b.stop:
		return
	default:
	}
	select {
	case b.frames <- f:
	default:
		b.logger.Warn("cuebus_publish_dropped", zap.String("session", f.SessionID), zap.String("type", f.Type))
	}
}

func (b *RedisBus) drain() {
	defer b.wg.Done()
	for {
		select {
		case <-b.stop:
			return
		case f := <-b.frames:
			ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
			if err := b.PublishContext(ctx, f); err != nil {
				b.logger.Warn("cuebus_publish_failed", zap.String("session", f.SessionID), zap.Error(err))
			}
			cancel()
		}
	}
}

// Close stops the publishing goroutine. Queued frames are discarded.
func (b *RedisBus) Close() {
	b.once.Do(func() { close(b.stop) })
	b.wg.Wait()
}

func (b *RedisBus) PublishContext(ctx context.Context, f replaydto.Frame) error {
	raw, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("marshal frame: %w", err)
	}
	return b.rdb.Publish(ctx, channelFor(f.SessionID), raw).Err()
}

// Relay forwards every frame published by any instance into the local hub until ctx ends.
func (b *RedisBus) Relay(ctx context.Context, hub *Hub) error {
	ps := b.rdb.PSubscribe(ctx, channelPrefix+"*")
	defer ps.Close()
	if _, err := ps.Receive(ctx); err != nil {
		return fmt.Errorf("psubscribe: %w", err)
	}
	b.logger.Info("cuebus_relay_started")

	ch := ps.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var f replaydto.Frame
			if err := json.Unmarshal([]byte(msg.Payload), &f); err != nil {
				b.logger.Warn("cuebus_bad_frame", zap.String("channel", msg.Channel), zap.Error(err))
				continue
			}
			if f.SessionID == "" {
				f.SessionID = strings.TrimPrefix(msg.Channel, channelPrefix)
			}
			hub.Publish(f)
		}
	}
}

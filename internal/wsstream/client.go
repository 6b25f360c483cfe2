package wsstream

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/park285/cheese-replay/pkg/replaydto"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateReconnecting
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	case StateFailed:
		return "failed"
	default:
		return "disconnected"
	}
}

type FrameCallback func(f replaydto.Frame)

type StateCallback func(s State)

// Client follows the stream of one session and reconnects with backoff when it drops.
type Client struct {
	url string

	conn   *websocket.Conn
	connM  sync.Mutex
	state  State
	stateM sync.RWMutex

	frameCbs []FrameCallback
	stateCbs []StateCallback
	cbM      sync.RWMutex

	maxReconnectAttempts int
	header               http.Header

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	rootCtx    context.Context
	rootCancel context.CancelFunc
}

// StreamURL builds ws://host/ws/sessions/{id} from a base such as "ws://localhost:8081".
func StreamURL(base, sessionID string) string {
	return strings.TrimRight(base, "/") + pathPrefix + sessionID
}

func NewClient(url string, maxReconnectAttempts int) *Client {
	return &Client{
		url:                  url,
		state:                StateDisconnected,
		maxReconnectAttempts: maxReconnectAttempts,
		header:               http.Header{},
		stopCh:               make(chan struct{}),
	}
}

// SetHeader adds a handshake header.
func (c *Client) SetHeader(key, value string) {
	if strings.TrimSpace(key) == "" || strings.TrimSpace(value) == "" {
		return
	}
	c.header.Set(key, value)
}

func (c *Client) OnFrame(cb FrameCallback) {
	c.cbM.Lock()
	defer c.cbM.Unlock()
	c.frameCbs = append(c.frameCbs, cb)
}

func (c *Client) OnStateChange(cb StateCallback) {
	c.cbM.Lock()
	defer c.cbM.Unlock()
	c.stateCbs = append(c.stateCbs, cb)
}

func (c *Client) State() State {
	c.stateM.RLock()
	defer c.stateM.RUnlock()
	return c.state
}

func (c *Client) Connect(ctx context.Context) error {
	if s := c.State(); s == StateConnected || s == StateConnecting {
		return nil
	}
	c.rootCtx, c.rootCancel = context.WithCancel(context.Background())
	c.setState(StateConnecting)

	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	conn, err := c.dial(dialCtx)
	if err != nil {
		c.setState(StateFailed)
		return fmt.Errorf("dial %s: %w", c.url, err)
	}
	c.attach(conn)
	return nil
}

func (c *Client) dial(ctx context.Context) (*websocket.Conn, error) {
	conn, _, err := websocket.Dial(ctx, c.url, &websocket.DialOptions{
		CompressionMode: websocket.CompressionNoContextTakeover,
		HTTPHeader:      c.header.Clone(),
	})
	return conn, err
}

func (c *Client) attach(conn *websocket.Conn) {
	c.connM.Lock()
	c.conn = conn
	c.connM.Unlock()
	c.setState(StateConnected)
	c.wg.Add(1)
	go c.listen(conn)
}

func (c *Client) listen(conn *websocket.Conn) {
	defer c.wg.Done()
	for {
		var f replaydto.Frame
		if err := wsjson.Read(c.rootCtx, conn, &f); err != nil {
			if c.isStopping() {
				return
			}
			c.setState(StateDisconnected)
			_ = c.closeConn(websocket.StatusGoingAway, "reconnect")
			c.scheduleReconnect()
			return
		}

		c.cbM.RLock()
		callbacks := append([]FrameCallback(nil), c.frameCbs...)
		c.cbM.RUnlock()
		for _, cb := range callbacks {
			cb(f)
		}
	}
}

func (c *Client) scheduleReconnect() {
	if c.maxReconnectAttempts <= 0 {
		c.setState(StateFailed)
		return
	}
	c.setState(StateReconnecting)

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		for attempt := 1; attempt <= c.maxReconnectAttempts; attempt++ {
			select {
			case <-c.stopCh:
				return
			case <-time.After(backoffDuration(attempt)):
			}
			dialCtx, cancel := context.WithTimeout(c.rootCtx, 10*time.Second)
			conn, err := c.dial(dialCtx)
			cancel()
			if err != nil {
				continue
			}
			c.attach(conn)
			return
		}
		c.setState(StateFailed)
	}()
}

func (c *Client) setState(s State) {
	c.stateM.Lock()
	c.state = s
	c.stateM.Unlock()

	c.cbM.RLock()
	callbacks := append([]StateCallback(nil), c.stateCbs...)
	c.cbM.RUnlock()
	for _, cb := range callbacks {
		cb(s)
	}
}

func (c *Client) Close(ctx context.Context) error {
	c.stopOnce.Do(func() { close(c.stopCh) })
	_ = c.closeConn(websocket.StatusNormalClosure, "close")
	if c.rootCancel != nil {
		c.rootCancel()
	}

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		c.setState(StateDisconnected)
		return nil
	}
}

func (c *Client) closeConn(code websocket.StatusCode, reason string) error {
	c.connM.Lock()
	conn := c.conn
	c.conn = nil
	c.connM.Unlock()
	if conn == nil {
		return nil
	}
	return conn.Close(code, reason)
}

func (c *Client) isStopping() bool {
	select {
	case <-c.stopCh:
		return true
	default:
		return false
	}
}

func backoffDuration(attempt int) time.Duration {
	const (
		base     = 200 * time.Millisecond
		maxDelay = 5 * time.Second
	)
	d := base << min(attempt-1, 5)
	return min(d, maxDelay)
}

// Package realtime is the websocket transport to the remote realtime model.
package realtime

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const writeTimeout = 5 * time.Second

// ErrClosed is returned by writes after Close.
var ErrClosed = errors.New("realtime: connection closed")

// Dialer opens realtime connections.
type Dialer struct {
	URL              string // e.g. wss://api.openai.com/v1/realtime
	Model            string
	HandshakeTimeout time.Duration
	Logger           *zap.Logger
}

// Dial connects with a bearer token. The connection does not read until the
// first Subscribe, so no event is lost between dial and subscription.
func (d Dialer) Dial(ctx context.Context, token string) (*Conn, error) {
	if token == "" {
		return nil, errors.New("realtime: empty token")
	}
	base := d.URL
	if base == "" {
		base = "wss://api.openai.com/v1/realtime"
	}
	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("realtime url: %w", err)
	}
	if d.Model != "" {
		q := u.Query()
		q.Set("model", d.Model)
		u.RawQuery = q.Encode()
	}
	hs := d.HandshakeTimeout
	if hs == 0 {
		hs = 10 * time.Second
	}
	dialer := websocket.Dialer{HandshakeTimeout: hs}
	headers := http.Header{"Authorization": {"Bearer " + token}}

	log := d.Logger
	if log == nil {
		log = zap.NewNop()
	}
	log.Info("connecting to realtime", zap.String("url", u.Redacted()), zap.String("model", d.Model))
	ws, resp, err := dialer.DialContext(ctx, u.String(), headers)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("realtime dial: status %d: %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("realtime dial: %w", err)
	}
	return &Conn{ws: ws, subs: map[int]func(Event){}, log: log}, nil
}

// Conn is one realtime session connection.
type Conn struct {
	ws      *websocket.Conn
	writeMu sync.Mutex

	mu     sync.Mutex
	subs   map[int]func(Event)
	nextID int
	closed bool

	readOnce sync.Once
	log      *zap.Logger
}

// Subscribe registers fn for every subsequent event and returns its
// unsubscribe func. Events are delivered in wire order from one goroutine.
func (c *Conn) Subscribe(fn func(Event)) func() {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.subs[id] = fn
	c.mu.Unlock()
	c.readOnce.Do(func() { go c.readLoop() })
	return func() {
		c.mu.Lock()
		delete(c.subs, id)
		c.mu.Unlock()
	}
}

// Subscribers returns how many handlers are registered.
func (c *Conn) Subscribers() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.subs)
}

func (c *Conn) readLoop() {
	for {
		_, msg, err := c.ws.ReadMessage()
		if err != nil {
			c.mu.Lock()
			closed := c.closed
			c.mu.Unlock()
			if !closed {
				c.log.Warn("realtime read failed", zap.Error(err))
				c.dispatch(Event{Kind: KindClosed, Type: "closed", Message: err.Error(), Err: err})
			}
			return
		}
		ev, ok := ParseEvent(msg)
		if !ok {
			continue
		}
		c.dispatch(ev)
	}
}

func (c *Conn) dispatch(ev Event) {
	c.mu.Lock()
	ids := make([]int, 0, len(c.subs))
	for id := range c.subs {
		ids = append(ids, id)
	}
	c.mu.Unlock()
	sort.Ints(ids) // registration order
	for _, id := range ids {
		c.mu.Lock()
		fn, ok := c.subs[id]
		c.mu.Unlock()
		if ok {
			fn(ev)
		}
	}
}

func (c *Conn) write(v any) error {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return ErrClosed
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.ws.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.ws.WriteJSON(v)
}

// Configure sends session.update.
func (c *Conn) Configure(_ context.Context, cfg SessionConfig) error {
	return c.write(cfg.message())
}

// AppendAudio streams one chunk of input audio in the session's input format.
func (c *Conn) AppendAudio(chunk []byte) error {
	if len(chunk) == 0 {
		return nil
	}
	return c.write(map[string]any{
		"type":  "input_audio_buffer.append",
		"audio": base64.StdEncoding.EncodeToString(chunk),
	})
}

// SendToolResult returns a tool output for callID.
func (c *Conn) SendToolResult(_ context.Context, callID string, output any) error {
	b, err := json.Marshal(output)
	if err != nil {
		return fmt.Errorf("marshal tool output: %w", err)
	}
	return c.write(map[string]any{
		"type": "conversation.item.create",
		"item": map[string]any{
			"type":    "function_call_output",
			"call_id": callID,
			"output":  string(b),
		},
	})
}

// CreateResponse asks the model to respond, optionally with turn-specific instructions.
func (c *Conn) CreateResponse(_ context.Context, instructions string) error {
	msg := map[string]any{"type": "response.create"}
	if strings.TrimSpace(instructions) != "" {
		msg["response"] = map[string]any{"instructions": instructions}
	}
	return c.write(msg)
}

// Close shuts the connection. It is safe to call more than once and from
// inside a subscriber.
func (c *Conn) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()
	c.writeMu.Lock()
	_ = c.ws.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	c.writeMu.Unlock()
	return c.ws.Close()
}

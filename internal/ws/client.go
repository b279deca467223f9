package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/coder/websocket"
	"go.uber.org/zap"
)

var ErrClosed = errors.New("ws: connection closed")

const callTimeout = 10 * time.Second

// Client is a store.Store backed by a remote websocket server. Subscription
// ids are chosen locally and registered before the subscribe request goes
// out, so an event racing ahead of the ack still finds its callback.
type Client struct {
	conn *websocket.Conn
	log  *zap.Logger

	mu      sync.Mutex
	nextID  int64
	nextSub int64
	pending map[int64]chan response
	subs    map[int64]func(any)
	closed  bool
}

// Dial connects to a store server at url (e.g. "ws://host:8080/ws").
func Dial(ctx context.Context, url string, log *zap.Logger) (*Client, error) {
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial store server: %w", err)
	}
	c := &Client{
		conn:    conn,
		log:     log,
		pending: make(map[int64]chan response),
		subs:    make(map[int64]func(any)),
	}
	go c.readLoop()
	return c, nil
}

func (c *Client) Get(ctx context.Context, path string) (any, error) {
	resp, err := c.call(ctx, request{Op: opGet, Path: path})
	if err != nil {
		return nil, err
	}
	if len(resp.Value) == 0 {
		return nil, nil
	}
	var v any
	if err := json.Unmarshal(resp.Value, &v); err != nil {
		return nil, fmt.Errorf("decode reply: %w", err)
	}
	return v, nil
}

func (c *Client) Set(ctx context.Context, path string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode value: %w", err)
	}
	_, err = c.call(ctx, request{Op: opSet, Path: path, Value: raw})
	return err
}

func (c *Client) Update(ctx context.Context, path string, fields map[string]any) error {
	enc := make(map[string]json.RawMessage, len(fields))
	for k, v := range fields {
		raw, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("encode field %q: %w", k, err)
		}
		enc[k] = raw
	}
	_, err := c.call(ctx, request{Op: opUpdate, Path: path, Fields: enc})
	return err
}

func (c *Client) Remove(ctx context.Context, path string) error {
	_, err := c.call(ctx, request{Op: opRemove, Path: path})
	return err
}

func (c *Client) Subscribe(path string, fn func(any)) (func(), error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrClosed
	}
	sub := c.nextSub
	c.nextSub++
	c.subs[sub] = fn
	c.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	defer cancel()
	if _, err := c.call(ctx, request{Op: opSubscribe, Path: path, Sub: sub}); err != nil {
		c.mu.Lock()
		delete(c.subs, sub)
		c.mu.Unlock()
		return nil, err
	}

	return func() {
		c.mu.Lock()
		delete(c.subs, sub)
		closed := c.closed
		c.mu.Unlock()
		if closed {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
		defer cancel()
		_, _ = c.call(ctx, request{Op: opUnsubscribe, Sub: sub})
	}, nil
}

// Close tears the connection down; in-flight calls fail with ErrClosed.
func (c *Client) Close() error {
	c.fail()
	return c.conn.Close(websocket.StatusNormalClosure, "bye")
}

func (c *Client) call(ctx context.Context, req request) (response, error) {
	ch := make(chan response, 1)
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return response{}, ErrClosed
	}
	c.nextID++
	req.ID = c.nextID
	c.pending[req.ID] = ch
	c.mu.Unlock()

	payload, err := json.Marshal(req)
	if err != nil {
		c.forget(req.ID)
		return response{}, fmt.Errorf("encode request: %w", err)
	}
	if err := c.conn.Write(ctx, websocket.MessageText, payload); err != nil {
		c.forget(req.ID)
		return response{}, fmt.Errorf("send request: %w", err)
	}

	select {
	case <-ctx.Done():
		c.forget(req.ID)
		return response{}, ctx.Err()
	case resp, ok := <-ch:
		if !ok {
			return response{}, ErrClosed
		}
		if resp.Error != "" {
			return response{}, errors.New(resp.Error)
		}
		return resp, nil
	}
}

// forget drops a pending call that will never get a reply.
func (c *Client) forget(id int64) {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
}

func (c *Client) readLoop() {
	defer c.fail()
	for {
		_, data, err := c.conn.Read(context.Background())
		if err != nil {
			return
		}
		var resp response
		if err := json.Unmarshal(data, &resp); err != nil {
			c.log.Warn("bad frame from store server", zap.Error(err))
			continue
		}

		switch resp.Op {
		case opReply:
			c.mu.Lock()
			ch, ok := c.pending[resp.ID]
			delete(c.pending, resp.ID)
			c.mu.Unlock()
			if ok {
				ch <- resp
			}
		case opEvent:
			c.mu.Lock()
			fn, ok := c.subs[resp.Sub]
			c.mu.Unlock()
			if !ok {
				continue
			}
			var v any
			if len(resp.Value) > 0 {
				if err := json.Unmarshal(resp.Value, &v); err != nil {
					c.log.Warn("bad event value", zap.Error(err))
					continue
				}
			}
			fn(v)
		}
	}
}

// fail marks the client dead and releases everyone blocked on a reply.
func (c *Client) fail() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	for id, ch := range c.pending {
		close(ch)
		delete(c.pending, id)
	}
	c.subs = map[int64]func(any){}
}

package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"go.uber.org/zap"

	"github.com/songdle/songdle-backend/internal/store"
)

const (
	outboxSize   = 32
	writeTimeout = 3 * time.Second
)

// Handler serves the store over a websocket. Each connection gets its own
// outbox and writer goroutine; a client that cannot drain its outbox is
// disconnected rather than allowed to stall everyone else's notifications.
func Handler(st store.Store, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			// In dev ONLY, you can loosen origin checks:
			// OriginPatterns: []string{"http://localhost:*", "http://127.0.0.1:*"},
		})
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		c := &serverConn{
			store:  st,
			log:    log,
			outbox: make(chan response, outboxSize),
			subs:   make(map[int64]func()),
			drop:   cancel,
		}
		defer c.cancelSubs()

		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case resp := <-c.outbox:
					payload, _ := json.Marshal(resp)
					wctx, wcancel := context.WithTimeout(ctx, writeTimeout)
					err := conn.Write(wctx, websocket.MessageText, payload)
					wcancel()
					if err != nil {
						cancel()
						return
					}
				}
			}
		}()

		for {
			_, data, err := conn.Read(ctx)
			if err != nil {
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
					return
				}
				return
			}

			var req request
			if err := json.Unmarshal(data, &req); err != nil {
				c.send(response{Op: opReply, Error: "bad json"})
				continue
			}
			c.handle(ctx, req)
		}
	}
}

type serverConn struct {
	store  store.Store
	log    *zap.Logger
	outbox chan response
	subs   map[int64]func()
	drop   func()
}

func (c *serverConn) handle(ctx context.Context, req request) {
	switch req.Op {
	case opGet:
		v, err := c.store.Get(ctx, req.Path)
		c.reply(req.ID, v, err)
	case opSet:
		var v any
		if err := json.Unmarshal(req.Value, &v); err != nil {
			c.reply(req.ID, nil, err)
			return
		}
		c.reply(req.ID, nil, c.store.Set(ctx, req.Path, v))
	case opUpdate:
		fields := make(map[string]any, len(req.Fields))
		for k, raw := range req.Fields {
			var v any
			if err := json.Unmarshal(raw, &v); err != nil {
				c.reply(req.ID, nil, err)
				return
			}
			fields[k] = v
		}
		c.reply(req.ID, nil, c.store.Update(ctx, req.Path, fields))
	case opRemove:
		c.reply(req.ID, nil, c.store.Remove(ctx, req.Path))
	case opSubscribe:
		c.subscribe(req)
	case opUnsubscribe:
		if cancel, ok := c.subs[req.Sub]; ok {
			cancel()
			delete(c.subs, req.Sub)
		}
		c.reply(req.ID, nil, nil)
	default:
		c.send(response{Op: opReply, ID: req.ID, Error: "unknown op"})
	}
}

// subscribe registers under the client-chosen sub id so events can be
// correlated on the far side before the ack even arrives.
func (c *serverConn) subscribe(req request) {
	if _, dup := c.subs[req.Sub]; dup {
		c.send(response{Op: opReply, ID: req.ID, Error: "duplicate sub"})
		return
	}
	sub := req.Sub
	cancel, err := c.store.Subscribe(req.Path, func(v any) {
		raw, err := json.Marshal(v)
		if err != nil {
			c.log.Warn("unencodable store value", zap.String("path", req.Path), zap.Error(err))
			return
		}
		c.send(response{Op: opEvent, Sub: sub, Value: raw})
	})
	if err != nil {
		c.reply(req.ID, nil, err)
		return
	}
	c.subs[sub] = cancel
	c.reply(req.ID, nil, nil)
}

func (c *serverConn) reply(id int64, v any, err error) {
	resp := response{Op: opReply, ID: id}
	if err != nil {
		resp.Error = err.Error()
	} else if v != nil {
		raw, merr := json.Marshal(v)
		if merr != nil {
			resp.Error = merr.Error()
		} else {
			resp.Value = raw
		}
	}
	c.send(resp)
}

func (c *serverConn) send(resp response) {
	select {
	case c.outbox <- resp:
	default:
		// Slow consumer. Cut it loose.
		c.log.Warn("dropping slow websocket client")
		c.drop()
	}
}

func (c *serverConn) cancelSubs() {
	for _, cancel := range c.subs {
		cancel()
	}
	c.subs = map[int64]func(){}
}

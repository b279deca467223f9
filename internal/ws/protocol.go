// Package ws carries store operations over a websocket so browsers and
// remote processes share one state tree. The wire protocol is small: every
// client frame is a request tagged with a caller-chosen id, every server
// frame is either the reply to one request or a subscription event.
package ws

import "encoding/json"

const (
	opGet         = "get"
	opSet         = "set"
	opUpdate      = "update"
	opRemove      = "remove"
	opSubscribe   = "subscribe"
	opUnsubscribe = "unsubscribe"

	opReply = "reply"
	opEvent = "event"
)

type request struct {
	Op     string                     `json:"op"`
	ID     int64                      `json:"id"`
	Path   string                     `json:"path,omitempty"`
	Value  json.RawMessage            `json:"value,omitempty"`
	Fields map[string]json.RawMessage `json:"fields,omitempty"`
	Sub    int64                      `json:"sub,omitempty"`
}

type response struct {
	Op    string          `json:"op"`
	ID    int64           `json:"id,omitempty"`
	Sub   int64           `json:"sub,omitempty"`
	Value json.RawMessage `json:"value,omitempty"`
	Error string          `json:"error,omitempty"`
}

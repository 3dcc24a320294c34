package wsrouter

import (
	"context"
	"encoding/json"
	"fmt"
)

type message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// HandlerFunc handles one message with an already-decoded payload of type T.
type HandlerFunc[T any] func(ctx context.Context, conn *Conn, payload T) error

// Middleware wraps handler dispatch; the payload is the raw, undecoded
// message payload.
type Middleware func(next HandlerFunc[json.RawMessage]) HandlerFunc[json.RawMessage]

// ErrorFunc is called when a handler returns an error.
type ErrorFunc func(ctx context.Context, conn *Conn, err error)

type Router struct {
	routes      map[string]HandlerFunc[json.RawMessage]
	middlewares []Middleware
	onError     ErrorFunc
}

func New() *Router {
	return &Router{routes: make(map[string]HandlerFunc[json.RawMessage])}
}

// Use appends middleware applied to every handler, in registration order.
func (r *Router) Use(mw ...Middleware) {
	r.middlewares = append(r.middlewares, mw...)
}

// OnError registers the handler-error callback.
func (r *Router) OnError(f ErrorFunc) {
	r.onError = f
}

// Handle registers handler for messageType, decoding the payload into T.
// Methods cannot be generic, hence the package-level function.
func Handle[T any](r *Router, messageType string, handler HandlerFunc[T]) {
	r.routes[messageType] = func(ctx context.Context, conn *Conn, raw json.RawMessage) error {
		var payload T
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &payload); err != nil {
				return fmt.Errorf("failed to decode %s payload: %w", messageType, err)
			}
		}

		return handler(ctx, conn, payload)
	}
}

// ServeConn reads messages from conn and dispatches them until the
// connection is closed or a read fails. Dispatch is sequential: a handler
// finishes before the next message is read.
func (r *Router) ServeConn(ctx context.Context, conn *Conn) error {
	defer conn.Close()

	for {
		var msg message
		if err := conn.ReadJSON(&msg); err != nil {
			return err
		}

		handler, exists := r.routes[msg.Type]
		if !exists {
			conn.WriteJSON(map[string]string{"error": "unknown message type"})
			continue
		}

		for i := len(r.middlewares) - 1; i >= 0; i-- {
			handler = r.middlewares[i](handler)
		}

		msgCtx := context.WithValue(ctx, messageTypeKey, msg.Type)
		if err := handler(msgCtx, conn, msg.Payload); err != nil {
			if r.onError != nil {
				r.onError(msgCtx, conn, err)
			}
		}
	}
}

package controller

import (
	"context"
	"errors"
	"fmt"

	"github.com/obslab/server/internal/service/session"
	"github.com/obslab/server/pkg/wsrouter"
)

var ErrValidationError = errors.New("validation error")

type Output struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

type EmptyInput struct{}

func (c *controller) writeToConn(ctx context.Context, conn *wsrouter.Conn, out *Output) error {
	if err := conn.WriteJSON(out); err != nil {
		return fmt.Errorf("failed to write %s: %w", out.Type, err)
	}

	return nil
}

// broadcast fans out to every conn; a failed write only drops that
// recipient, the rest still get the message.
func (c *controller) broadcast(ctx context.Context, conns []*wsrouter.Conn, out *Output) {
	for _, conn := range conns {
		if err := conn.WriteJSON(out); err != nil {
			c.logger.DebugContext(ctx, "failed to write to conn", "type", out.Type, "error", err)
		}
	}
}

func (c *controller) writeError(ctx context.Context, conn *wsrouter.Conn, err error) error {
	return c.writeToConn(ctx, conn, &Output{
		Type: "ERROR",
		Payload: map[string]any{
			"message": err.Error(),
		},
	})
}

func (c *controller) handleWSError(ctx context.Context, conn *wsrouter.Conn, err error) {
	c.logger.DebugContext(ctx, "websocket handler error", "error", err)
	if err := c.writeError(ctx, conn, err); err != nil {
		c.logger.DebugContext(ctx, "failed to write error", "error", err)
	}
}

func (c *controller) handleAlive(ctx context.Context, conn *wsrouter.Conn, _ EmptyInput) error {
	if err := c.sessionService.Alive(ctx, &session.AliveParams{SenderConn: conn}); err != nil {
		return fmt.Errorf("failed to keep session alive: %w", err)
	}

	return nil
}

func (c *controller) handleGetState(ctx context.Context, conn *wsrouter.Conn, _ EmptyInput) error {
	state, err := c.sessionService.GetState(ctx, &session.GetStateParams{SenderConn: conn})
	if err != nil {
		return fmt.Errorf("failed to get session state: %w", err)
	}

	if err := c.writeToConn(ctx, conn, &Output{
		Type: "SESSION_STATE",
		Payload: map[string]any{
			"session_state": state,
		},
	}); err != nil {
		return err
	}

	return nil
}

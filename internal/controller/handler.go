package controller

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/obslab/server/internal/service/session"
	"github.com/obslab/server/pkg/ctxlogger"
	"github.com/obslab/server/pkg/rest"
	"github.com/obslab/server/pkg/wsrouter"
)

// createSession upgrades the request, redeems the connect token issued by
// the validate endpoint and serves websocket messages until the coder
// leaves. Failures after the upgrade are reported over the socket.
func (c *controller) createSession(w http.ResponseWriter, r *http.Request) {
	connectToken, err := c.mustHeader(r, "Connect-Token")
	if err != nil {
		rest.WriteJSON(w, http.StatusUnauthorized, rest.Envelope{"error": err.Error()})
		return
	}

	ws, err := c.upgrader.Upgrade(w, r, nil)
	if err != nil {
		c.logger.WarnContext(r.Context(), "failed to upgrade to websocket", "error", err)
		return
	}
	conn := wsrouter.NewConn(ws)
	defer conn.Close()

	createSessionResp, err := c.sessionService.CreateSession(r.Context(), &session.CreateSessionParams{
		Conn:     conn,
		TicketId: connectToken,
	})
	if err != nil {
		c.logger.DebugContext(r.Context(), "failed to create session", "error", err)
		c.writeError(r.Context(), conn, err)
		return
	}
	defer c.disconnect(conn)

	if err := c.writeToConn(r.Context(), conn, &Output{
		Type: "SESSION_STATE",
		Payload: map[string]any{
			"auth_token":    createSessionResp.AuthToken,
			"coder":         createSessionResp.Coder,
			"session_state": createSessionResp.State,
		},
	}); err != nil {
		c.logger.WarnContext(r.Context(), "failed to write session state", "error", err)
		return
	}

	ctx := ctxlogger.AppendCtx(r.Context(), slog.String("session_id", createSessionResp.SessionId))
	ctx = ctxlogger.AppendCtx(ctx, slog.String("coder_id", createSessionResp.Coder.Id))

	if err := c.wsmux.ServeConn(ctx, conn); err != nil {
		c.logger.DebugContext(ctx, "connection closed", "error", err)
	}
}

func (c *controller) joinSession(w http.ResponseWriter, r *http.Request) {
	connectToken, err := c.mustHeader(r, "Connect-Token")
	if err != nil {
		rest.WriteJSON(w, http.StatusUnauthorized, rest.Envelope{"error": err.Error()})
		return
	}

	// present on reconnect only
	authToken := c.optionalHeader(r, "Auth-Token")

	ws, err := c.upgrader.Upgrade(w, r, nil)
	if err != nil {
		c.logger.WarnContext(r.Context(), "failed to upgrade to websocket", "error", err)
		return
	}
	conn := wsrouter.NewConn(ws)
	defer conn.Close()

	joinSessionResp, err := c.sessionService.JoinSession(r.Context(), &session.JoinSessionParams{
		Conn:      conn,
		TicketId:  connectToken,
		AuthToken: authToken,
	})
	if err != nil {
		c.logger.DebugContext(r.Context(), "failed to join session", "error", err)
		c.writeError(r.Context(), conn, err)
		return
	}
	defer c.disconnect(conn)

	if err := c.writeToConn(r.Context(), conn, &Output{
		Type: "SESSION_STATE",
		Payload: map[string]any{
			"auth_token":    joinSessionResp.AuthToken,
			"coder":         joinSessionResp.JoinedCoder,
			"session_state": joinSessionResp.State,
		},
	}); err != nil {
		c.logger.WarnContext(r.Context(), "failed to write session state", "error", err)
		return
	}

	others := make([]*wsrouter.Conn, 0, len(joinSessionResp.Conns))
	for _, other := range joinSessionResp.Conns {
		if other != conn {
			others = append(others, other)
		}
	}
	c.broadcast(r.Context(), others, &Output{
		Type: "CODER_JOINED",
		Payload: map[string]any{
			"joined_coder": joinSessionResp.JoinedCoder,
			"coders":       joinSessionResp.State.Coders,
		},
	})

	ctx := ctxlogger.AppendCtx(r.Context(), slog.String("session_id", joinSessionResp.SessionId))
	ctx = ctxlogger.AppendCtx(ctx, slog.String("coder_id", joinSessionResp.JoinedCoder.Id))

	if err := c.wsmux.ServeConn(ctx, conn); err != nil {
		c.logger.DebugContext(ctx, "connection closed", "error", err)
	}
}

// disconnect runs as the conn unwinds; the request context is already
// done, so it carries its own.
func (c *controller) disconnect(conn *wsrouter.Conn) {
	ctx := context.Background()

	disconnectResp, err := c.sessionService.DisconnectCoder(ctx, &session.DisconnectCoderParams{Conn: conn})
	if err != nil {
		c.logger.Debug("failed to disconnect coder", "error", err)
		return
	}

	if disconnectResp.SessionClosed {
		return
	}

	payload := map[string]any{
		"disconnected_coder_id": disconnectResp.CoderId,
		"coders":                disconnectResp.Coders,
	}
	if disconnectResp.PromotedLeadId != "" {
		payload["promoted_lead_id"] = disconnectResp.PromotedLeadId
	}

	c.broadcast(ctx, disconnectResp.Conns, &Output{
		Type:    "CODER_LEFT",
		Payload: payload,
	})
}

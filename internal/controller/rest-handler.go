package controller

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/obslab/server/internal/service/session"
	"github.com/obslab/server/pkg/rest"
)

type validateCreateSessionInput struct {
	Username string `json:"username" validate:"required,max=16"`
	Color    string `json:"color" validate:"required,min=4,max=7"`
}

type validateCreateSessionResponse struct {
	ConnectToken string `json:"connect_token"`
}

// validateCreateSession checks the create payload upfront and issues the
// connect token the client presents on the websocket upgrade.
func (c *controller) validateCreateSession(w http.ResponseWriter, r *http.Request) {
	var input validateCreateSessionInput

	if err := rest.ReadJSON(r, &input); err != nil {
		c.logger.DebugContext(r.Context(), "failed to read body", "error", err)
		rest.WriteJSON(w, http.StatusUnprocessableEntity, rest.Envelope{"error": err.Error()})
		return
	}

	if validationErrors, ok := c.validate.Validate(input); !ok {
		c.logger.DebugContext(r.Context(), "validation failed", "errors", validationErrors)
		rest.WriteJSON(w, http.StatusBadRequest, rest.Envelope{"errors": validationErrors})
		return
	}

	connectToken, err := c.sessionService.IssueCreateTicket(r.Context(), &session.IssueCreateTicketParams{
		Username: input.Username,
		Color:    input.Color,
	})
	if err != nil {
		c.logger.ErrorContext(r.Context(), "failed to issue create ticket", "error", err)
		rest.WriteJSON(w, http.StatusInternalServerError, rest.Envelope{"error": err.Error()})
		return
	}

	rest.WriteJSON(w, http.StatusOK, rest.Envelope{"data": validateCreateSessionResponse{
		ConnectToken: connectToken,
	}})
}

type validateJoinSessionInput struct {
	Username string `json:"username" validate:"required,max=16"`
	Color    string `json:"color" validate:"required,min=4,max=7"`
}

type validateJoinSessionResponse struct {
	ConnectToken string `json:"connect_token"`
}

func (c *controller) validateJoinSession(w http.ResponseWriter, r *http.Request) {
	sessionId := chi.URLParam(r, "session-id")
	if sessionId == "" {
		rest.WriteJSON(w, http.StatusNotFound, rest.Envelope{"error": "session not found"})
		return
	}

	var input validateJoinSessionInput

	if err := rest.ReadJSON(r, &input); err != nil {
		c.logger.DebugContext(r.Context(), "failed to read body", "error", err)
		rest.WriteJSON(w, http.StatusUnprocessableEntity, rest.Envelope{"error": err.Error()})
		return
	}

	if validationErrors, ok := c.validate.Validate(input); !ok {
		c.logger.DebugContext(r.Context(), "validation failed", "errors", validationErrors)
		rest.WriteJSON(w, http.StatusBadRequest, rest.Envelope{"errors": validationErrors})
		return
	}

	connectToken, err := c.sessionService.IssueJoinTicket(r.Context(), &session.IssueJoinTicketParams{
		Username:  input.Username,
		Color:     input.Color,
		SessionId: sessionId,
	})
	if err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			rest.WriteJSON(w, http.StatusNotFound, rest.Envelope{"error": "session not found"})
			return
		}

		c.logger.ErrorContext(r.Context(), "failed to issue join ticket", "error", err)
		rest.WriteJSON(w, http.StatusInternalServerError, rest.Envelope{"error": err.Error()})
		return
	}

	rest.WriteJSON(w, http.StatusOK, rest.Envelope{"data": validateJoinSessionResponse{
		ConnectToken: connectToken,
	}})
}

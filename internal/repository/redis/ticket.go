package redis

import (
	"context"
	"time"

	"github.com/obslab/server/internal/repository"
)

// ticketTTL bounds how long a validated create or join intent stays
// claimable before the websocket upgrade must have happened.
const ticketTTL = 10 * time.Minute

func (r repo) getCreateTicketKey(ticketId string) string {
	return "create-ticket:" + ticketId
}

func (r repo) getJoinTicketKey(ticketId string) string {
	return "join-ticket:" + ticketId
}

func (r repo) SetCreateTicket(ctx context.Context, params *repository.SetCreateTicketParams) error {
	r.logger.DebugContext(ctx, "called", "params", params)
	pipe := r.rc.TxPipeline()

	ticket := repository.CreateTicket{
		Username: params.Username,
		Color:    params.Color,
	}
	ticketKey := r.getCreateTicketKey(params.TicketId)
	pipe.HSet(ctx, ticketKey, ticket)
	pipe.Expire(ctx, ticketKey, ticketTTL)

	if err := r.executePipe(ctx, pipe); err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return err
	}

	return nil
}

func (r repo) GetCreateTicket(ctx context.Context, ticketId string) (repository.CreateTicket, error) {
	r.logger.DebugContext(ctx, "called", "ticketId", ticketId)
	var ticket repository.CreateTicket
	if err := r.rc.HGetAll(ctx, r.getCreateTicketKey(ticketId)).Scan(&ticket); err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return repository.CreateTicket{}, err
	}

	if ticket.Username == "" {
		r.logger.DebugContext(ctx, "returned", "error", repository.ErrTicketNotFound)
		return repository.CreateTicket{}, repository.ErrTicketNotFound
	}

	return ticket, nil
}

func (r repo) RemoveCreateTicket(ctx context.Context, ticketId string) error {
	r.logger.DebugContext(ctx, "called", "ticketId", ticketId)
	res, err := r.rc.Del(ctx, r.getCreateTicketKey(ticketId)).Result()
	if err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return err
	}

	if res == 0 {
		r.logger.DebugContext(ctx, "returned", "error", repository.ErrTicketNotFound)
		return repository.ErrTicketNotFound
	}

	return nil
}

func (r repo) SetJoinTicket(ctx context.Context, params *repository.SetJoinTicketParams) error {
	r.logger.DebugContext(ctx, "called", "params", params)
	pipe := r.rc.TxPipeline()

	ticket := repository.JoinTicket{
		Username:  params.Username,
		Color:     params.Color,
		SessionId: params.SessionId,
	}
	ticketKey := r.getJoinTicketKey(params.TicketId)
	pipe.HSet(ctx, ticketKey, ticket)
	pipe.Expire(ctx, ticketKey, ticketTTL)

	if err := r.executePipe(ctx, pipe); err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return err
	}

	return nil
}

func (r repo) GetJoinTicket(ctx context.Context, ticketId string) (repository.JoinTicket, error) {
	r.logger.DebugContext(ctx, "called", "ticketId", ticketId)
	var ticket repository.JoinTicket
	if err := r.rc.HGetAll(ctx, r.getJoinTicketKey(ticketId)).Scan(&ticket); err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return repository.JoinTicket{}, err
	}

	if ticket.Username == "" {
		r.logger.DebugContext(ctx, "returned", "error", repository.ErrTicketNotFound)
		return repository.JoinTicket{}, repository.ErrTicketNotFound
	}

	return ticket, nil
}

func (r repo) RemoveJoinTicket(ctx context.Context, ticketId string) error {
	r.logger.DebugContext(ctx, "called", "ticketId", ticketId)
	res, err := r.rc.Del(ctx, r.getJoinTicketKey(ticketId)).Result()
	if err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return err
	}

	if res == 0 {
		r.logger.DebugContext(ctx, "returned", "error", repository.ErrTicketNotFound)
		return repository.ErrTicketNotFound
	}

	return nil
}

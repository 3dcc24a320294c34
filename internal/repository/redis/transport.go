package redis

import (
	"context"
	"fmt"

	"github.com/obslab/server/internal/repository"
)

func (r repo) getTransportKey(sessionId string) string {
	return "session:" + sessionId + ":transport"
}

func (r repo) SetTransport(ctx context.Context, params *repository.SetTransportParams) error {
	r.logger.DebugContext(ctx, "called", "params", params)
	pipe := r.rc.TxPipeline()

	transport := repository.TransportState{
		MediaPath:  params.MediaPath,
		Duration:   params.Duration,
		State:      params.State,
		Speed:      params.Speed,
		IsStepping: params.IsStepping,
		Volume:     params.Volume,
		Position:   params.Position,
		UpdatedAt:  params.UpdatedAt,
	}
	transportKey := r.getTransportKey(params.SessionId)
	pipe.HSet(ctx, transportKey, transport)
	pipe.Expire(ctx, transportKey, r.sessionTTL)

	if err := r.executePipe(ctx, pipe); err != nil {
		return fmt.Errorf("failed to set transport: %w", err)
	}

	return nil
}

func (r repo) GetTransport(ctx context.Context, sessionId string) (repository.TransportState, error) {
	r.logger.DebugContext(ctx, "called", "sessionId", sessionId)
	transportKey := r.getTransportKey(sessionId)
	var transport repository.TransportState
	if err := r.rc.HGetAll(ctx, transportKey).Scan(&transport); err != nil {
		return repository.TransportState{}, fmt.Errorf("failed to get transport: %w", err)
	}

	if transport.State == "" {
		return repository.TransportState{}, repository.ErrSessionNotFound
	}

	r.rc.Expire(ctx, transportKey, r.sessionTTL)

	return transport, nil
}

func (r repo) UpdateTransport(ctx context.Context, params *repository.UpdateTransportParams) error {
	r.logger.DebugContext(ctx, "called", "params", params)
	transportKey := r.getTransportKey(params.SessionId)
	cmd := r.rc.Exists(ctx, transportKey)
	if err := cmd.Err(); err != nil {
		return fmt.Errorf("failed to update transport: %w", err)
	}

	if cmd.Val() == 0 {
		return repository.ErrSessionNotFound
	}

	transport := repository.TransportState{
		MediaPath:  params.MediaPath,
		Duration:   params.Duration,
		State:      params.State,
		Speed:      params.Speed,
		IsStepping: params.IsStepping,
		Volume:     params.Volume,
		Position:   params.Position,
		UpdatedAt:  params.UpdatedAt,
	}
	if err := r.rc.HSet(ctx, transportKey, transport).Err(); err != nil {
		return fmt.Errorf("failed to update transport: %w", err)
	}

	r.rc.Expire(ctx, transportKey, r.sessionTTL)

	return nil
}

func (r repo) SessionExists(ctx context.Context, sessionId string) (bool, error) {
	r.logger.DebugContext(ctx, "called", "sessionId", sessionId)
	res, err := r.rc.Exists(ctx, r.getTransportKey(sessionId)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check if session exists: %w", err)
	}

	return res > 0, nil
}

// ExpireSession puts a hard deadline on every key under the session
// prefix. Coder keys live outside the prefix and fall out on their own
// TTL once nothing refreshes them.
func (r repo) ExpireSession(ctx context.Context, params *repository.ExpireSessionParams) error {
	r.logger.DebugContext(ctx, "called", "params", params)
	pattern := "session:" + params.SessionId + ":*"
	if err := r.rc.EvalSha(ctx, r.expirePrefixScript, []string{}, pattern, params.ExpireAt.Unix()).Err(); err != nil {
		return fmt.Errorf("failed to expire session: %w", err)
	}

	return nil
}

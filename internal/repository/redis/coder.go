package redis

import (
	"context"

	"github.com/obslab/server/internal/repository"
)

func (r repo) getCoderKey(coderId string) string {
	return "coder:" + coderId
}

func (r repo) getCoderListKey(sessionId string) string {
	return "session:" + sessionId + ":coderlist"
}

func (r repo) SetCoder(ctx context.Context, params *repository.SetCoderParams) error {
	r.logger.DebugContext(ctx, "called", "params", params)
	pipe := r.rc.TxPipeline()

	coder := repository.Coder{
		Username:  params.Username,
		Color:     params.Color,
		IsLead:    params.IsLead,
		IsOnline:  params.IsOnline,
		SessionId: params.SessionId,
	}
	coderKey := r.getCoderKey(params.CoderId)
	pipe.HSet(ctx, coderKey, coder)
	pipe.Expire(ctx, coderKey, r.sessionTTL)

	coderListKey := r.getCoderListKey(params.SessionId)
	r.addWithIncrement(ctx, pipe, coderListKey, params.CoderId)
	pipe.Expire(ctx, coderListKey, r.sessionTTL)

	if err := r.executePipe(ctx, pipe); err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return err
	}

	return nil
}

func (r repo) GetCoder(ctx context.Context, coderId string) (repository.Coder, error) {
	r.logger.DebugContext(ctx, "called", "coderId", coderId)
	coderKey := r.getCoderKey(coderId)
	var coder repository.Coder
	if err := r.rc.HGetAll(ctx, coderKey).Scan(&coder); err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return repository.Coder{}, err
	}

	if coder.Username == "" {
		r.logger.DebugContext(ctx, "returned", "error", repository.ErrCoderNotFound)
		return repository.Coder{}, repository.ErrCoderNotFound
	}

	r.rc.Expire(ctx, coderKey, r.sessionTTL)

	return coder, nil
}

func (r repo) GetCoderSessionId(ctx context.Context, coderId string) (string, error) {
	r.logger.DebugContext(ctx, "called", "coderId", coderId)
	sessionId, err := r.rc.HGet(ctx, r.getCoderKey(coderId), "session_id").Result()
	if err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return "", repository.ErrCoderNotFound
	}

	if sessionId == "" {
		r.logger.DebugContext(ctx, "returned", "error", repository.ErrCoderNotFound)
		return "", repository.ErrCoderNotFound
	}

	return sessionId, nil
}

func (r repo) RemoveCoder(ctx context.Context, params *repository.RemoveCoderParams) error {
	r.logger.DebugContext(ctx, "called", "params", params)
	if err := r.rc.ZRem(ctx, r.getCoderListKey(params.SessionId), params.CoderId).Err(); err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return err
	}

	res, err := r.rc.Del(ctx, r.getCoderKey(params.CoderId)).Result()
	if err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return err
	}

	if res == 0 {
		r.logger.DebugContext(ctx, "returned", "error", repository.ErrCoderNotFound)
		return repository.ErrCoderNotFound
	}

	return nil
}

func (r repo) GetCoderIds(ctx context.Context, sessionId string) ([]string, error) {
	r.logger.DebugContext(ctx, "called", "sessionId", sessionId)
	coderListKey := r.getCoderListKey(sessionId)
	coderIds, err := r.rc.ZRange(ctx, coderListKey, 0, -1).Result()
	if err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return nil, err
	}

	r.rc.Expire(ctx, coderListKey, r.sessionTTL)

	return coderIds, nil
}

func (r repo) updateCoderField(ctx context.Context, coderId, field string, value interface{}) error {
	key := r.getCoderKey(coderId)
	cmd := r.rc.Exists(ctx, key)
	if err := cmd.Err(); err != nil {
		return err
	}

	if cmd.Val() == 0 {
		return repository.ErrCoderNotFound
	}

	if err := r.rc.HSet(ctx, key, field, value).Err(); err != nil {
		return err
	}

	r.rc.Expire(ctx, key, r.sessionTTL)

	return nil
}

func (r repo) UpdateCoderIsOnline(ctx context.Context, coderId string, isOnline bool) error {
	r.logger.DebugContext(ctx, "called", "coderId", coderId, "isOnline", isOnline)
	if err := r.updateCoderField(ctx, coderId, "is_online", isOnline); err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return err
	}

	return nil
}

func (r repo) UpdateCoderIsLead(ctx context.Context, coderId string, isLead bool) error {
	r.logger.DebugContext(ctx, "called", "coderId", coderId, "isLead", isLead)
	if err := r.updateCoderField(ctx, coderId, "is_lead", isLead); err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return err
	}

	return nil
}

package redis

import (
	"context"

	"github.com/obslab/server/internal/repository"
)

func (r repo) getTrackKey(sessionId, trackId string) string {
	return "session:" + sessionId + ":track:" + trackId
}

func (r repo) getTrackListKey(sessionId string) string {
	return "session:" + sessionId + ":tracklist"
}

func (r repo) SetTrack(ctx context.Context, params *repository.SetTrackParams) error {
	r.logger.DebugContext(ctx, "called", "params", params)
	pipe := r.rc.TxPipeline()

	track := repository.Track{
		Name:      params.Name,
		Start:     params.Start,
		End:       params.End,
		Offset:    params.Offset,
		AddedById: params.AddedById,
	}
	trackKey := r.getTrackKey(params.SessionId, params.TrackId)
	pipe.HSet(ctx, trackKey, track)
	pipe.Expire(ctx, trackKey, r.sessionTTL)

	trackListKey := r.getTrackListKey(params.SessionId)
	r.addWithIncrement(ctx, pipe, trackListKey, params.TrackId)
	pipe.Expire(ctx, trackListKey, r.sessionTTL)

	if err := r.executePipe(ctx, pipe); err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return err
	}

	return nil
}

func (r repo) GetTrack(ctx context.Context, params *repository.GetTrackParams) (repository.Track, error) {
	r.logger.DebugContext(ctx, "called", "params", params)
	trackKey := r.getTrackKey(params.SessionId, params.TrackId)
	var track repository.Track
	if err := r.rc.HGetAll(ctx, trackKey).Scan(&track); err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return repository.Track{}, err
	}

	if track.Name == "" {
		r.logger.DebugContext(ctx, "returned", "error", repository.ErrTrackNotFound)
		return repository.Track{}, repository.ErrTrackNotFound
	}

	r.rc.Expire(ctx, trackKey, r.sessionTTL)

	return track, nil
}

func (r repo) GetTrackIds(ctx context.Context, sessionId string) ([]string, error) {
	r.logger.DebugContext(ctx, "called", "sessionId", sessionId)
	trackListKey := r.getTrackListKey(sessionId)
	trackIds, err := r.rc.ZRange(ctx, trackListKey, 0, -1).Result()
	if err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return nil, err
	}

	r.rc.Expire(ctx, trackListKey, r.sessionTTL)

	return trackIds, nil
}

func (r repo) GetTracksLength(ctx context.Context, sessionId string) (int, error) {
	r.logger.DebugContext(ctx, "called", "sessionId", sessionId)
	trackListKey := r.getTrackListKey(sessionId)
	cmd := r.rc.ZCard(ctx, trackListKey)
	if err := cmd.Err(); err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return 0, err
	}

	r.rc.Expire(ctx, trackListKey, r.sessionTTL)

	return int(cmd.Val()), nil
}

func (r repo) RemoveTrack(ctx context.Context, params *repository.RemoveTrackParams) error {
	r.logger.DebugContext(ctx, "called", "params", params)
	res, err := r.rc.ZRem(ctx, r.getTrackListKey(params.SessionId), params.TrackId).Result()
	if err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return err
	}

	if res == 0 {
		r.logger.DebugContext(ctx, "returned", "error", repository.ErrTrackNotFound)
		return repository.ErrTrackNotFound
	}

	if err := r.rc.Del(ctx, r.getTrackKey(params.SessionId, params.TrackId)).Err(); err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return err
	}

	return nil
}

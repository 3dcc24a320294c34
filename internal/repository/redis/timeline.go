package redis

import (
	"context"
	"fmt"

	"github.com/obslab/server/internal/repository"
)

func (r repo) getTimelineKey(sessionId string) string {
	return "session:" + sessionId + ":timeline"
}

func (r repo) SetTimeline(ctx context.Context, params *repository.SetTimelineParams) error {
	r.logger.DebugContext(ctx, "called", "params", params)
	pipe := r.rc.TxPipeline()

	timeline := repository.TimelineState{
		Zoom:        params.Zoom,
		WindowStart: params.WindowStart,
		WindowEnd:   params.WindowEnd,
		MinStart:    params.MinStart,
		MaxEnd:      params.MaxEnd,
		NeedleTime:  params.NeedleTime,
		UpdatedAt:   params.UpdatedAt,
	}
	timelineKey := r.getTimelineKey(params.SessionId)
	pipe.HSet(ctx, timelineKey, timeline)
	pipe.Expire(ctx, timelineKey, r.sessionTTL)

	if err := r.executePipe(ctx, pipe); err != nil {
		return fmt.Errorf("failed to set timeline: %w", err)
	}

	return nil
}

func (r repo) GetTimeline(ctx context.Context, sessionId string) (repository.TimelineState, error) {
	r.logger.DebugContext(ctx, "called", "sessionId", sessionId)
	timelineKey := r.getTimelineKey(sessionId)
	var timeline repository.TimelineState
	if err := r.rc.HGetAll(ctx, timelineKey).Scan(&timeline); err != nil {
		return repository.TimelineState{}, fmt.Errorf("failed to get timeline: %w", err)
	}

	if timeline.Zoom == 0 {
		return repository.TimelineState{}, repository.ErrTimelineNotFound
	}

	r.rc.Expire(ctx, timelineKey, r.sessionTTL)

	return timeline, nil
}

func (r repo) UpdateTimeline(ctx context.Context, params *repository.UpdateTimelineParams) error {
	r.logger.DebugContext(ctx, "called", "params", params)
	timelineKey := r.getTimelineKey(params.SessionId)
	cmd := r.rc.Exists(ctx, timelineKey)
	if err := cmd.Err(); err != nil {
		return fmt.Errorf("failed to update timeline: %w", err)
	}

	if cmd.Val() == 0 {
		return repository.ErrTimelineNotFound
	}

	timeline := repository.TimelineState{
		Zoom:        params.Zoom,
		WindowStart: params.WindowStart,
		WindowEnd:   params.WindowEnd,
		MinStart:    params.MinStart,
		MaxEnd:      params.MaxEnd,
		NeedleTime:  params.NeedleTime,
		UpdatedAt:   params.UpdatedAt,
	}
	if err := r.rc.HSet(ctx, timelineKey, timeline).Err(); err != nil {
		return fmt.Errorf("failed to update timeline: %w", err)
	}

	r.rc.Expire(ctx, timelineKey, r.sessionTTL)

	return nil
}

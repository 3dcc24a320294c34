package controller

import (
	"context"
	"fmt"

	"github.com/obslab/server/internal/service/session"
	"github.com/obslab/server/pkg/wsrouter"
)

func (c *controller) handleZoomIn(ctx context.Context, conn *wsrouter.Conn, _ EmptyInput) error {
	zoomInResp, err := c.sessionService.ZoomIn(ctx, &session.ZoomInParams{SenderConn: conn})
	if err != nil {
		return fmt.Errorf("failed to zoom in: %w", err)
	}

	c.broadcast(ctx, zoomInResp.Conns, &Output{
		Type: "TIMELINE_UPDATED",
		Payload: map[string]any{
			"timeline": zoomInResp.Timeline,
		},
	})

	return nil
}

func (c *controller) handleZoomOut(ctx context.Context, conn *wsrouter.Conn, _ EmptyInput) error {
	zoomOutResp, err := c.sessionService.ZoomOut(ctx, &session.ZoomOutParams{SenderConn: conn})
	if err != nil {
		return fmt.Errorf("failed to zoom out: %w", err)
	}

	c.broadcast(ctx, zoomOutResp.Conns, &Output{
		Type: "TIMELINE_UPDATED",
		Payload: map[string]any{
			"timeline": zoomOutResp.Timeline,
		},
	})

	return nil
}

type SetNeedleInput struct {
	TimeMs int64 `json:"time_ms"`
}

func (c *controller) handleSetNeedle(ctx context.Context, conn *wsrouter.Conn, input SetNeedleInput) error {
	setNeedleResp, err := c.sessionService.SetNeedle(ctx, &session.SetNeedleParams{
		SenderConn: conn,
		TimeMs:     input.TimeMs,
	})
	if err != nil {
		return fmt.Errorf("failed to set needle: %w", err)
	}

	c.broadcast(ctx, setNeedleResp.Conns, &Output{
		Type: "TIMELINE_UPDATED",
		Payload: map[string]any{
			"timeline": setNeedleResp.Timeline,
		},
	})

	return nil
}

type AddTrackInput struct {
	Name   string `json:"name"`
	Start  int64  `json:"start"`
	End    int64  `json:"end"`
	Offset int64  `json:"offset"`
}

func (c *controller) handleAddTrack(ctx context.Context, conn *wsrouter.Conn, input AddTrackInput) error {
	if input.Name == "" {
		return fmt.Errorf("name is empty: %w", ErrValidationError)
	}
	if input.End < input.Start {
		return fmt.Errorf("end before start: %w", ErrValidationError)
	}

	addTrackResp, err := c.sessionService.AddTrack(ctx, &session.AddTrackParams{
		SenderConn: conn,
		Name:       input.Name,
		Start:      input.Start,
		End:        input.End,
		Offset:     input.Offset,
	})
	if err != nil {
		return fmt.Errorf("failed to add track: %w", err)
	}

	c.broadcast(ctx, addTrackResp.Conns, &Output{
		Type: "TRACK_ADDED",
		Payload: map[string]any{
			"added_track": addTrackResp.AddedTrack,
			"timeline":    addTrackResp.Timeline,
		},
	})

	return nil
}

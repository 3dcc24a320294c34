package controller

import (
	"context"
	"fmt"

	"github.com/obslab/server/internal/service/session"
	"github.com/obslab/server/pkg/wsrouter"
)

type OpenMediaInput struct {
	Path string `json:"path"`
}

func (c *controller) handleOpenMedia(ctx context.Context, conn *wsrouter.Conn, input OpenMediaInput) error {
	if input.Path == "" {
		return fmt.Errorf("path is empty: %w", ErrValidationError)
	}

	openMediaResp, err := c.sessionService.OpenMedia(ctx, &session.OpenMediaParams{
		SenderConn: conn,
		Path:       input.Path,
	})
	if err != nil {
		return fmt.Errorf("failed to open media: %w", err)
	}

	c.broadcast(ctx, openMediaResp.Conns, &Output{
		Type: "TRANSPORT_UPDATED",
		Payload: map[string]any{
			"transport": openMediaResp.Transport,
			"timeline":  openMediaResp.Timeline,
		},
	})

	return nil
}

func (c *controller) handlePlay(ctx context.Context, conn *wsrouter.Conn, _ EmptyInput) error {
	playResp, err := c.sessionService.Play(ctx, &session.PlayParams{SenderConn: conn})
	if err != nil {
		return fmt.Errorf("failed to play: %w", err)
	}

	c.broadcast(ctx, playResp.Conns, &Output{
		Type: "TRANSPORT_UPDATED",
		Payload: map[string]any{
			"transport": playResp.Transport,
		},
	})

	return nil
}

func (c *controller) handleStop(ctx context.Context, conn *wsrouter.Conn, _ EmptyInput) error {
	stopResp, err := c.sessionService.Stop(ctx, &session.StopParams{SenderConn: conn})
	if err != nil {
		return fmt.Errorf("failed to stop: %w", err)
	}

	c.broadcast(ctx, stopResp.Conns, &Output{
		Type: "TRANSPORT_UPDATED",
		Payload: map[string]any{
			"transport": stopResp.Transport,
		},
	})

	return nil
}

func (c *controller) handleStep(ctx context.Context, conn *wsrouter.Conn, _ EmptyInput) error {
	stepResp, err := c.sessionService.Step(ctx, &session.StepParams{SenderConn: conn})
	if err != nil {
		return fmt.Errorf("failed to step: %w", err)
	}

	c.broadcast(ctx, stepResp.Conns, &Output{
		Type: "TRANSPORT_UPDATED",
		Payload: map[string]any{
			"transport": stepResp.Transport,
			"timeline":  stepResp.Timeline,
		},
	})

	return nil
}

type SetSpeedInput struct {
	Speed float64 `json:"speed"`
}

func (c *controller) handleSetSpeed(ctx context.Context, conn *wsrouter.Conn, input SetSpeedInput) error {
	setSpeedResp, err := c.sessionService.SetSpeed(ctx, &session.SetSpeedParams{
		SenderConn: conn,
		Speed:      input.Speed,
	})
	if err != nil {
		return fmt.Errorf("failed to set speed: %w", err)
	}

	c.broadcast(ctx, setSpeedResp.Conns, &Output{
		Type: "TRANSPORT_UPDATED",
		Payload: map[string]any{
			"transport": setSpeedResp.Transport,
		},
	})

	return nil
}

type SeekInput struct {
	Position float64 `json:"position"`
}

func (c *controller) handleSeek(ctx context.Context, conn *wsrouter.Conn, input SeekInput) error {
	seekResp, err := c.sessionService.Seek(ctx, &session.SeekParams{
		SenderConn: conn,
		Position:   input.Position,
	})
	if err != nil {
		return fmt.Errorf("failed to seek: %w", err)
	}

	c.broadcast(ctx, seekResp.Conns, &Output{
		Type: "TRANSPORT_UPDATED",
		Payload: map[string]any{
			"transport": seekResp.Transport,
			"timeline":  seekResp.Timeline,
		},
	})

	return nil
}

func (c *controller) handleRewind(ctx context.Context, conn *wsrouter.Conn, _ EmptyInput) error {
	rewindResp, err := c.sessionService.Rewind(ctx, &session.RewindParams{SenderConn: conn})
	if err != nil {
		return fmt.Errorf("failed to rewind: %w", err)
	}

	c.broadcast(ctx, rewindResp.Conns, &Output{
		Type: "TRANSPORT_UPDATED",
		Payload: map[string]any{
			"transport": rewindResp.Transport,
			"timeline":  rewindResp.Timeline,
		},
	})

	return nil
}

func (c *controller) handleResetView(ctx context.Context, conn *wsrouter.Conn, _ EmptyInput) error {
	resetViewResp, err := c.sessionService.ResetView(ctx, &session.ResetViewParams{SenderConn: conn})
	if err != nil {
		return fmt.Errorf("failed to reset view: %w", err)
	}

	c.broadcast(ctx, resetViewResp.Conns, &Output{
		Type: "TRANSPORT_UPDATED",
		Payload: map[string]any{
			"transport": resetViewResp.Transport,
		},
	})

	return nil
}

type SetVolumeInput struct {
	Level float64 `json:"level"`
}

func (c *controller) handleSetVolume(ctx context.Context, conn *wsrouter.Conn, input SetVolumeInput) error {
	setVolumeResp, err := c.sessionService.SetVolume(ctx, &session.SetVolumeParams{
		SenderConn: conn,
		Level:      input.Level,
	})
	if err != nil {
		return fmt.Errorf("failed to set volume: %w", err)
	}

	c.broadcast(ctx, setVolumeResp.Conns, &Output{
		Type: "TRANSPORT_UPDATED",
		Payload: map[string]any{
			"transport": setVolumeResp.Transport,
		},
	})

	return nil
}

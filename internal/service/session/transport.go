package session

import (
	"context"

	"github.com/obslab/server/internal/transport"
	"github.com/obslab/server/pkg/wsrouter"
)

// transportOpResult is the shared tail of every transport mutation:
// fresh snapshots, already persisted, plus the conns to notify.
type transportOpResult struct {
	SessionId string
	Transport Transport
	Timeline  Timeline
	Conns     []*wsrouter.Conn
}

// runLeadTransportOp authorizes the sender as lead, applies op under
// the live session lock, persists the resulting state and collects the
// session's conns. Ops run only while media is open.
func (s *service) runLeadTransportOp(ctx context.Context, conn *wsrouter.Conn, op func(live *liveSession)) (transportOpResult, error) {
	_, coder, err := s.authorizeLead(ctx, conn)
	if err != nil {
		return transportOpResult{}, err
	}
	sessionId := coder.SessionId

	live, err := s.getLive(ctx, sessionId)
	if err != nil {
		return transportOpResult{}, err
	}

	live.mu.Lock()
	if live.controller == nil {
		live.mu.Unlock()
		return transportOpResult{}, ErrNoMediaLoaded
	}
	op(live)
	transportState := s.controllerSnapshot(live.controller)
	timelineState := s.timelineSnapshot(live)
	live.mu.Unlock()

	if err := s.persistTransport(ctx, sessionId, transportState); err != nil {
		return transportOpResult{}, err
	}
	if err := s.persistTimeline(ctx, sessionId, timelineState); err != nil {
		return transportOpResult{}, err
	}

	conns, err := s.getConnsBySessionId(ctx, sessionId)
	if err != nil {
		return transportOpResult{}, err
	}

	return transportOpResult{
		SessionId: sessionId,
		Transport: transportState,
		Timeline:  timelineState,
		Conns:     conns,
	}, nil
}

type OpenMediaParams struct {
	SenderConn *wsrouter.Conn
	Path       string
}

type OpenMediaResponse struct {
	Transport Transport
	Timeline  Timeline
	Conns     []*wsrouter.Conn
}

// OpenMedia resolves a backend for the path, opens it and rebases the
// timeline on the media duration. Rate and volume carry over from the
// previous media, matching how a reopened player keeps its settings.
func (s *service) OpenMedia(ctx context.Context, params *OpenMediaParams) (OpenMediaResponse, error) {
	_, coder, err := s.authorizeLead(ctx, params.SenderConn)
	if err != nil {
		return OpenMediaResponse{}, err
	}
	sessionId := coder.SessionId

	live, err := s.getLive(ctx, sessionId)
	if err != nil {
		return OpenMediaResponse{}, err
	}

	live.mu.Lock()
	controller, err := s.newController(params.Path)
	if err != nil {
		live.mu.Unlock()
		return OpenMediaResponse{}, err
	}

	if err := controller.Open(params.Path, transport.FormatHints{}); err != nil {
		live.mu.Unlock()
		return OpenMediaResponse{}, err
	}

	if live.controller != nil {
		// halt the old backend before the new one is configured;
		// SetSpeed may start delivery on the new stream
		speed := live.controller.Speed()
		volume := live.controller.Volume()
		live.controller.Close()
		controller.SetSpeed(speed)
		controller.SetVolume(volume)
	}
	live.controller = controller

	durationMs := int64(controller.Duration() * 1000)
	if durationMs <= 0 {
		durationMs = defaultExtentMs
	}
	live.timeline.SetExtent(0, durationMs)
	live.timeline.SetCurrentTime(0)

	transportState := s.controllerSnapshot(live.controller)
	timelineState := s.timelineSnapshot(live)
	live.mu.Unlock()

	if err := s.persistTransport(ctx, sessionId, transportState); err != nil {
		return OpenMediaResponse{}, err
	}
	if err := s.persistTimeline(ctx, sessionId, timelineState); err != nil {
		return OpenMediaResponse{}, err
	}

	conns, err := s.getConnsBySessionId(ctx, sessionId)
	if err != nil {
		return OpenMediaResponse{}, err
	}

	s.logger.Info("media opened", "sessionId", sessionId, "path", params.Path)

	return OpenMediaResponse{
		Transport: transportState,
		Timeline:  timelineState,
		Conns:     conns,
	}, nil
}

type PlayParams struct {
	SenderConn *wsrouter.Conn
}

type PlayResponse struct {
	Transport Transport
	Conns     []*wsrouter.Conn
}

func (s *service) Play(ctx context.Context, params *PlayParams) (PlayResponse, error) {
	res, err := s.runLeadTransportOp(ctx, params.SenderConn, func(live *liveSession) {
		live.controller.Play()
	})
	if err != nil {
		return PlayResponse{}, err
	}

	return PlayResponse{Transport: res.Transport, Conns: res.Conns}, nil
}

type StopParams struct {
	SenderConn *wsrouter.Conn
}

type StopResponse struct {
	Transport Transport
	Conns     []*wsrouter.Conn
}

func (s *service) Stop(ctx context.Context, params *StopParams) (StopResponse, error) {
	res, err := s.runLeadTransportOp(ctx, params.SenderConn, func(live *liveSession) {
		live.controller.Stop()
		s.syncNeedle(live)
	})
	if err != nil {
		return StopResponse{}, err
	}

	return StopResponse{Transport: res.Transport, Conns: res.Conns}, nil
}

type StepParams struct {
	SenderConn *wsrouter.Conn
}

type StepResponse struct {
	Transport Transport
	Timeline  Timeline
	Conns     []*wsrouter.Conn
}

func (s *service) Step(ctx context.Context, params *StepParams) (StepResponse, error) {
	res, err := s.runLeadTransportOp(ctx, params.SenderConn, func(live *liveSession) {
		live.controller.Step()
		s.syncNeedle(live)
	})
	if err != nil {
		return StepResponse{}, err
	}

	return StepResponse{Transport: res.Transport, Timeline: res.Timeline, Conns: res.Conns}, nil
}

type SetSpeedParams struct {
	SenderConn *wsrouter.Conn
	Speed      float64
}

type SetSpeedResponse struct {
	Transport Transport
	Conns     []*wsrouter.Conn
}

func (s *service) SetSpeed(ctx context.Context, params *SetSpeedParams) (SetSpeedResponse, error) {
	res, err := s.runLeadTransportOp(ctx, params.SenderConn, func(live *liveSession) {
		live.controller.SetSpeed(params.Speed)
	})
	if err != nil {
		return SetSpeedResponse{}, err
	}

	return SetSpeedResponse{Transport: res.Transport, Conns: res.Conns}, nil
}

type SeekParams struct {
	SenderConn *wsrouter.Conn
	Position   float64
}

type SeekResponse struct {
	Transport Transport
	Timeline  Timeline
	Conns     []*wsrouter.Conn
}

func (s *service) Seek(ctx context.Context, params *SeekParams) (SeekResponse, error) {
	res, err := s.runLeadTransportOp(ctx, params.SenderConn, func(live *liveSession) {
		live.controller.Seek(params.Position)
		s.syncNeedle(live)
	})
	if err != nil {
		return SeekResponse{}, err
	}

	return SeekResponse{Transport: res.Transport, Timeline: res.Timeline, Conns: res.Conns}, nil
}

type RewindParams struct {
	SenderConn *wsrouter.Conn
}

type RewindResponse struct {
	Transport Transport
	Timeline  Timeline
	Conns     []*wsrouter.Conn
}

func (s *service) Rewind(ctx context.Context, params *RewindParams) (RewindResponse, error) {
	res, err := s.runLeadTransportOp(ctx, params.SenderConn, func(live *liveSession) {
		live.controller.Rewind()
		s.syncNeedle(live)
	})
	if err != nil {
		return RewindResponse{}, err
	}

	return RewindResponse{Transport: res.Transport, Timeline: res.Timeline, Conns: res.Conns}, nil
}

type ResetViewParams struct {
	SenderConn *wsrouter.Conn
}

type ResetViewResponse struct {
	Transport Transport
	Conns     []*wsrouter.Conn
}

func (s *service) ResetView(ctx context.Context, params *ResetViewParams) (ResetViewResponse, error) {
	res, err := s.runLeadTransportOp(ctx, params.SenderConn, func(live *liveSession) {
		live.controller.Reset()
	})
	if err != nil {
		return ResetViewResponse{}, err
	}

	return ResetViewResponse{Transport: res.Transport, Conns: res.Conns}, nil
}

type SetVolumeParams struct {
	SenderConn *wsrouter.Conn
	Level      float64
}

type SetVolumeResponse struct {
	Transport Transport
	Conns     []*wsrouter.Conn
}

func (s *service) SetVolume(ctx context.Context, params *SetVolumeParams) (SetVolumeResponse, error) {
	res, err := s.runLeadTransportOp(ctx, params.SenderConn, func(live *liveSession) {
		live.controller.SetVolume(params.Level)
	})
	if err != nil {
		return SetVolumeResponse{}, err
	}

	return SetVolumeResponse{Transport: res.Transport, Conns: res.Conns}, nil
}

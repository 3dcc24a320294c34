package session

import (
	"context"

	"github.com/google/uuid"

	"github.com/obslab/server/internal/repository"
	"github.com/obslab/server/pkg/wsrouter"
)

type timelineOpResult struct {
	SessionId string
	Timeline  Timeline
	Conns     []*wsrouter.Conn
}

// runLeadTimelineOp is the timeline counterpart of runLeadTransportOp.
// Timeline operations work with or without media loaded.
func (s *service) runLeadTimelineOp(ctx context.Context, conn *wsrouter.Conn, op func(live *liveSession)) (timelineOpResult, error) {
	_, coder, err := s.authorizeLead(ctx, conn)
	if err != nil {
		return timelineOpResult{}, err
	}
	sessionId := coder.SessionId

	live, err := s.getLive(ctx, sessionId)
	if err != nil {
		return timelineOpResult{}, err
	}

	live.mu.Lock()
	op(live)
	timelineState := s.timelineSnapshot(live)
	live.mu.Unlock()

	if err := s.persistTimeline(ctx, sessionId, timelineState); err != nil {
		return timelineOpResult{}, err
	}

	conns, err := s.getConnsBySessionId(ctx, sessionId)
	if err != nil {
		return timelineOpResult{}, err
	}

	return timelineOpResult{
		SessionId: sessionId,
		Timeline:  timelineState,
		Conns:     conns,
	}, nil
}

type ZoomInParams struct {
	SenderConn *wsrouter.Conn
}

type ZoomInResponse struct {
	Timeline Timeline
	Conns    []*wsrouter.Conn
}

func (s *service) ZoomIn(ctx context.Context, params *ZoomInParams) (ZoomInResponse, error) {
	res, err := s.runLeadTimelineOp(ctx, params.SenderConn, func(live *liveSession) {
		live.timeline.ZoomIn()
	})
	if err != nil {
		return ZoomInResponse{}, err
	}

	return ZoomInResponse{Timeline: res.Timeline, Conns: res.Conns}, nil
}

type ZoomOutParams struct {
	SenderConn *wsrouter.Conn
}

type ZoomOutResponse struct {
	Timeline Timeline
	Conns    []*wsrouter.Conn
}

func (s *service) ZoomOut(ctx context.Context, params *ZoomOutParams) (ZoomOutResponse, error) {
	res, err := s.runLeadTimelineOp(ctx, params.SenderConn, func(live *liveSession) {
		live.timeline.ZoomOut()
	})
	if err != nil {
		return ZoomOutResponse{}, err
	}

	return ZoomOutResponse{Timeline: res.Timeline, Conns: res.Conns}, nil
}

type SetNeedleParams struct {
	SenderConn *wsrouter.Conn
	TimeMs     int64
}

type SetNeedleResponse struct {
	Timeline Timeline
	Conns    []*wsrouter.Conn
}

func (s *service) SetNeedle(ctx context.Context, params *SetNeedleParams) (SetNeedleResponse, error) {
	res, err := s.runLeadTimelineOp(ctx, params.SenderConn, func(live *liveSession) {
		live.timeline.SetCurrentTime(params.TimeMs)
	})
	if err != nil {
		return SetNeedleResponse{}, err
	}

	return SetNeedleResponse{Timeline: res.Timeline, Conns: res.Conns}, nil
}

type AddTrackParams struct {
	SenderConn *wsrouter.Conn
	Name       string
	Start      int64
	End        int64
	Offset     int64
}

type AddTrackResponse struct {
	AddedTrack Track
	Timeline   Timeline
	Conns      []*wsrouter.Conn
}

func (s *service) AddTrack(ctx context.Context, params *AddTrackParams) (AddTrackResponse, error) {
	coderId, coder, err := s.authorizeLead(ctx, params.SenderConn)
	if err != nil {
		return AddTrackResponse{}, err
	}
	sessionId := coder.SessionId

	tracksLength, err := s.sessionRepo.GetTracksLength(ctx, sessionId)
	if err != nil {
		return AddTrackResponse{}, err
	}
	if tracksLength >= s.tracksLimit {
		return AddTrackResponse{}, ErrTrackLimitReached
	}

	live, err := s.getLive(ctx, sessionId)
	if err != nil {
		return AddTrackResponse{}, err
	}

	trackId := uuid.NewString()

	live.mu.Lock()
	live.timeline.AddTrack(trackId, params.Name, params.Start, params.End, params.Offset)
	timelineState := s.timelineSnapshot(live)
	live.mu.Unlock()

	if err := s.sessionRepo.SetTrack(ctx, &repository.SetTrackParams{
		TrackId:   trackId,
		SessionId: sessionId,
		Name:      params.Name,
		Start:     params.Start,
		End:       params.End,
		Offset:    params.Offset,
		AddedById: coderId,
	}); err != nil {
		return AddTrackResponse{}, err
	}

	if err := s.persistTimeline(ctx, sessionId, timelineState); err != nil {
		return AddTrackResponse{}, err
	}

	conns, err := s.getConnsBySessionId(ctx, sessionId)
	if err != nil {
		return AddTrackResponse{}, err
	}

	return AddTrackResponse{
		AddedTrack: Track{
			Id:     trackId,
			Name:   params.Name,
			Start:  params.Start,
			End:    params.End,
			Offset: params.Offset,
		},
		Timeline: timelineState,
		Conns:    conns,
	}, nil
}

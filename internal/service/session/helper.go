package session

import (
	"context"
	"time"

	"github.com/obslab/server/internal/media"
	"github.com/obslab/server/internal/repository"
	"github.com/obslab/server/internal/timeline"
	"github.com/obslab/server/internal/transport"
	"github.com/obslab/server/pkg/wsrouter"
)

func (s *service) getConnsBySessionId(ctx context.Context, sessionId string) ([]*wsrouter.Conn, error) {
	coderIds, err := s.sessionRepo.GetCoderIds(ctx, sessionId)
	if err != nil {
		return nil, err
	}

	conns := make([]*wsrouter.Conn, 0, len(coderIds))
	for _, coderId := range coderIds {
		conn, err := s.connRepo.GetConn(coderId)
		if err != nil {
			// offline coders have no conn
			continue
		}

		conns = append(conns, conn)
	}

	return conns, nil
}

func (s *service) getCoders(ctx context.Context, sessionId string) ([]Coder, error) {
	coderIds, err := s.sessionRepo.GetCoderIds(ctx, sessionId)
	if err != nil {
		return nil, err
	}

	coders := make([]Coder, 0, len(coderIds))
	for _, coderId := range coderIds {
		coder, err := s.sessionRepo.GetCoder(ctx, coderId)
		if err != nil {
			return nil, err
		}

		coders = append(coders, Coder{
			Id:       coderId,
			Username: coder.Username,
			Color:    coder.Color,
			IsLead:   coder.IsLead,
			IsOnline: coder.IsOnline,
		})
	}

	return coders, nil
}

// authorize resolves the conn to its coder. Every websocket operation
// starts here.
func (s *service) authorize(ctx context.Context, conn *wsrouter.Conn) (string, repository.Coder, error) {
	coderId, err := s.connRepo.GetCoderId(conn)
	if err != nil {
		return "", repository.Coder{}, ErrCoderNotFound
	}

	coder, err := s.sessionRepo.GetCoder(ctx, coderId)
	if err != nil {
		return "", repository.Coder{}, err
	}

	return coderId, coder, nil
}

// authorizeLead additionally requires the sender to hold the lead role,
// which gates every state mutation.
func (s *service) authorizeLead(ctx context.Context, conn *wsrouter.Conn) (string, repository.Coder, error) {
	coderId, coder, err := s.authorize(ctx, conn)
	if err != nil {
		return "", repository.Coder{}, err
	}

	if !coder.IsLead {
		return "", repository.Coder{}, ErrPermissionDenied
	}

	return coderId, coder, nil
}

func (s *service) newController(path string) (*transport.Controller, error) {
	plugin, err := s.registry.Resolve(media.ClassifierVideo, path)
	if err != nil {
		return nil, err
	}

	stream := plugin.New(s.logger)

	return transport.NewController(stream, s.sinkFactory(s.logger), s.logger), nil
}

// getLive returns the in-process state for the session, rebuilding it
// from the repo after a restart.
func (s *service) getLive(ctx context.Context, sessionId string) (*liveSession, error) {
	s.mu.RLock()
	live, ok := s.live[sessionId]
	s.mu.RUnlock()
	if ok {
		return live, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if live, ok := s.live[sessionId]; ok {
		return live, nil
	}

	live, err := s.restoreLive(ctx, sessionId)
	if err != nil {
		return nil, err
	}
	s.live[sessionId] = live

	return live, nil
}

// restoreLive rebuilds the timeline and controller from persisted
// state. Media path, rate, position and volume are restored; delivery
// is not, so a restored session always comes back stopped.
func (s *service) restoreLive(ctx context.Context, sessionId string) (*liveSession, error) {
	timelineState, err := s.sessionRepo.GetTimeline(ctx, sessionId)
	if err != nil {
		return nil, err
	}

	tl := timeline.New(timelineState.MinStart, timelineState.MaxEnd, s.rulerWidth, s.logger)
	for tl.Zoom() < timelineState.Zoom {
		tl.ZoomIn()
	}
	tl.SetCurrentTime(timelineState.NeedleTime)

	trackIds, err := s.sessionRepo.GetTrackIds(ctx, sessionId)
	if err != nil {
		return nil, err
	}
	for _, trackId := range trackIds {
		track, err := s.sessionRepo.GetTrack(ctx, &repository.GetTrackParams{
			TrackId:   trackId,
			SessionId: sessionId,
		})
		if err != nil {
			return nil, err
		}

		tl.AddTrack(trackId, track.Name, track.Start, track.End, track.Offset)
	}

	live := &liveSession{timeline: tl}

	transportState, err := s.sessionRepo.GetTransport(ctx, sessionId)
	if err != nil {
		return nil, err
	}

	if transportState.MediaPath != "" {
		controller, err := s.newController(transportState.MediaPath)
		if err != nil {
			s.logger.Error("unable to restore media backend", "sessionId", sessionId, "error", err)
			return live, nil
		}

		if err := controller.Open(transportState.MediaPath, transport.FormatHints{}); err != nil {
			s.logger.Error("unable to reopen media", "sessionId", sessionId, "error", err)
			return live, nil
		}

		controller.SetSpeed(transportState.Speed)
		controller.Seek(transportState.Position)
		controller.SetVolume(transportState.Volume)
		controller.Stop()
		live.controller = controller

		s.logger.Info("restored session media", "sessionId", sessionId, "path", transportState.MediaPath)
	}

	return live, nil
}

// transportSnapshot reads the authoritative transport state: the live
// controller once media is open, the persisted defaults before that.
func (s *service) transportSnapshot(ctx context.Context, sessionId string, live *liveSession) (Transport, error) {
	if live.controller != nil {
		return s.controllerSnapshot(live.controller), nil
	}

	stored, err := s.sessionRepo.GetTransport(ctx, sessionId)
	if err != nil {
		return Transport{}, err
	}

	return Transport{
		MediaPath:  stored.MediaPath,
		Duration:   stored.Duration,
		State:      stored.State,
		Speed:      stored.Speed,
		IsStepping: stored.IsStepping,
		Volume:     stored.Volume,
		Position:   stored.Position,
		UpdatedAt:  stored.UpdatedAt,
	}, nil
}

func (s *service) controllerSnapshot(c *transport.Controller) Transport {
	return Transport{
		MediaPath:  c.MediaPath(),
		Duration:   c.Duration(),
		State:      c.State().String(),
		Speed:      c.Speed(),
		IsStepping: c.IsStepping(),
		Volume:     c.Volume(),
		Position:   c.Position(),
		UpdatedAt:  time.Now().Unix(),
	}
}

func (s *service) timelineSnapshot(live *liveSession) Timeline {
	tl := live.timeline
	vp := tl.Viewport()

	carriages := tl.Tracks()
	tracks := make([]Track, 0, len(carriages))
	for _, c := range carriages {
		tracks = append(tracks, Track{
			Id:     c.Id(),
			Name:   c.Name(),
			Start:  c.Start(),
			End:    c.End(),
			Offset: c.Offset(),
		})
	}

	return Timeline{
		Zoom:          tl.Zoom(),
		WindowStart:   vp.WindowStart,
		WindowEnd:     vp.WindowEnd,
		MinStart:      tl.MinStart(),
		MaxEnd:        tl.MaxEnd(),
		IntervalTime:  vp.IntervalTime,
		IntervalWidth: vp.IntervalWidth,
		NeedleTime:    tl.Needle().CurrentTime(),
		Tracks:        tracks,
	}
}

// syncNeedle moves the needle to the controller's position. Called by
// every transport operation that repositions the stream.
func (s *service) syncNeedle(live *liveSession) {
	if live.controller == nil {
		return
	}
	live.timeline.SetCurrentTime(int64(live.controller.Position() * 1000))
}

func (s *service) persistTransport(ctx context.Context, sessionId string, t Transport) error {
	return s.sessionRepo.UpdateTransport(ctx, &repository.UpdateTransportParams{
		SessionId:  sessionId,
		MediaPath:  t.MediaPath,
		Duration:   t.Duration,
		State:      t.State,
		Speed:      t.Speed,
		IsStepping: t.IsStepping,
		Volume:     t.Volume,
		Position:   t.Position,
		UpdatedAt:  t.UpdatedAt,
	})
}

func (s *service) persistTimeline(ctx context.Context, sessionId string, t Timeline) error {
	return s.sessionRepo.UpdateTimeline(ctx, &repository.UpdateTimelineParams{
		SessionId:   sessionId,
		Zoom:        t.Zoom,
		WindowStart: t.WindowStart,
		WindowEnd:   t.WindowEnd,
		MinStart:    t.MinStart,
		MaxEnd:      t.MaxEnd,
		NeedleTime:  t.NeedleTime,
		UpdatedAt:   time.Now().Unix(),
	})
}

func (s *service) getSessionState(ctx context.Context, sessionId string, live *liveSession) (SessionState, error) {
	transportState, err := s.transportSnapshot(ctx, sessionId, live)
	if err != nil {
		return SessionState{}, err
	}

	coders, err := s.getCoders(ctx, sessionId)
	if err != nil {
		return SessionState{}, err
	}

	return SessionState{
		SessionId: sessionId,
		Transport: transportState,
		Timeline:  s.timelineSnapshot(live),
		Coders:    coders,
	}, nil
}

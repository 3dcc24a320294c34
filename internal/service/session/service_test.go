package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/obslab/server/internal/media"
	"github.com/obslab/server/internal/media/sim"
	"github.com/obslab/server/internal/repository/inmemory/conn"
	sessionRedis "github.com/obslab/server/internal/repository/redis"
	"github.com/obslab/server/internal/transport"
	"github.com/obslab/server/pkg/wsrouter"
)

func newTestService(t *testing.T, codersLimit, tracksLimit int) *service {
	t.Helper()

	mr := miniredis.RunT(t)
	rc := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		rc.Close()
	})

	registry, err := media.NewRegistry(sim.Plugin())
	require.NoError(t, err)

	sinkFactory := func(logger *slog.Logger) transport.AudioSink {
		return sim.NewSink(logger)
	}

	return NewService(
		sessionRedis.NewRepo(rc, slog.Default(), 10*time.Minute),
		conn.NewRepo(),
		registry,
		sinkFactory,
		slog.Default(),
		"test-secret",
		codersLimit,
		tracksLimit,
		785,
	)
}

func createTestSession(t *testing.T, svc *service) (CreateSessionResponse, *wsrouter.Conn) {
	t.Helper()
	ctx := context.Background()

	ticketId, err := svc.IssueCreateTicket(ctx, &IssueCreateTicketParams{
		Username: "ana",
		Color:    "#7c9a3b",
	})
	require.NoError(t, err)

	leadConn := wsrouter.NewConn(&websocket.Conn{})
	resp, err := svc.CreateSession(ctx, &CreateSessionParams{
		Conn:     leadConn,
		TicketId: ticketId,
	})
	require.NoError(t, err)

	return resp, leadConn
}

func joinTestSession(t *testing.T, svc *service, sessionId, username string) (JoinSessionResponse, *wsrouter.Conn) {
	t.Helper()
	ctx := context.Background()

	ticketId, err := svc.IssueJoinTicket(ctx, &IssueJoinTicketParams{
		Username:  username,
		Color:     "#fff",
		SessionId: sessionId,
	})
	require.NoError(t, err)

	c := wsrouter.NewConn(&websocket.Conn{})
	resp, err := svc.JoinSession(ctx, &JoinSessionParams{
		Conn:     c,
		TicketId: ticketId,
	})
	require.NoError(t, err)

	return resp, c
}

func TestCreateAndJoinSession(t *testing.T) {
	svc := newTestService(t, 9, 25)
	ctx := context.Background()

	created, leadConn := createTestSession(t, svc)
	assert.NotEmpty(t, created.SessionId, "session id is empty")
	assert.NotEmpty(t, created.AuthToken, "auth token is empty")
	assert.NotEmpty(t, created.Coder.Id, "coder id is empty")
	assert.True(t, created.Coder.IsLead, "creator must be lead")
	assert.True(t, created.Coder.IsOnline, "creator must be online")

	assert.Equal(t, "stopped", created.State.Transport.State)
	assert.Equal(t, float64(1), created.State.Transport.Speed)
	assert.Equal(t, float64(1), created.State.Transport.Volume)
	assert.Empty(t, created.State.Transport.MediaPath, "no media loaded yet")

	assert.Equal(t, 1, created.State.Timeline.Zoom)
	assert.Equal(t, int64(0), created.State.Timeline.WindowStart)
	assert.Equal(t, int64(60000), created.State.Timeline.WindowEnd)
	assert.Equal(t, int64(3000), created.State.Timeline.IntervalTime)
	assert.Equal(t, 39, created.State.Timeline.IntervalWidth)
	assert.Equal(t, 1, len(created.State.Coders), "state must contain 1 coder")

	joined, joinedConn := joinTestSession(t, svc, created.SessionId, "ben")
	assert.Equal(t, created.SessionId, joined.SessionId)
	assert.NotEmpty(t, joined.AuthToken, "auth token is empty")
	assert.Equal(t, "ben", joined.JoinedCoder.Username)
	assert.False(t, joined.JoinedCoder.IsLead, "joiner must not be lead")
	assert.Equal(t, 2, len(joined.State.Coders), "state must contain 2 coders")
	assert.Equal(t, 2, len(joined.Conns), "conns must contain 2 conns")

	// mutations are lead-only
	_, err := svc.Play(ctx, &PlayParams{SenderConn: joinedConn})
	assert.ErrorIs(t, err, ErrPermissionDenied)
	_, err = svc.ZoomIn(ctx, &ZoomInParams{SenderConn: joinedConn})
	assert.ErrorIs(t, err, ErrPermissionDenied)

	// the lead can
	zoomed, err := svc.ZoomIn(ctx, &ZoomInParams{SenderConn: leadConn})
	require.NoError(t, err)
	assert.Equal(t, 2, zoomed.Timeline.Zoom)
	assert.Equal(t, 2, len(zoomed.Conns), "mutation must notify both conns")

	// reads are not lead-only
	state, err := svc.GetState(ctx, &GetStateParams{SenderConn: joinedConn})
	require.NoError(t, err)
	assert.Equal(t, created.SessionId, state.SessionId)

	require.NoError(t, svc.Alive(ctx, &AliveParams{SenderConn: joinedConn}))

	_, err = svc.GetState(ctx, &GetStateParams{SenderConn: wsrouter.NewConn(&websocket.Conn{})})
	assert.ErrorIs(t, err, ErrCoderNotFound, "unknown conn must be rejected")
}

func TestJoinLimits(t *testing.T) {
	svc := newTestService(t, 2, 25)
	ctx := context.Background()

	created, _ := createTestSession(t, svc)
	joinTestSession(t, svc, created.SessionId, "ben")

	ticketId, err := svc.IssueJoinTicket(ctx, &IssueJoinTicketParams{
		Username:  "cam",
		Color:     "#fff",
		SessionId: created.SessionId,
	})
	require.NoError(t, err)

	_, err = svc.JoinSession(ctx, &JoinSessionParams{
		Conn:     wsrouter.NewConn(&websocket.Conn{}),
		TicketId: ticketId,
	})
	assert.ErrorIs(t, err, ErrCoderLimitReached)

	_, err = svc.IssueJoinTicket(ctx, &IssueJoinTicketParams{
		Username:  "dee",
		Color:     "#fff",
		SessionId: "no-such-session",
	})
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestTransportOps(t *testing.T) {
	svc := newTestService(t, 9, 25)
	ctx := context.Background()

	_, leadConn := createTestSession(t, svc)

	_, err := svc.Play(ctx, &PlayParams{SenderConn: leadConn})
	assert.ErrorIs(t, err, ErrNoMediaLoaded, "transport ops must require media")

	opened, err := svc.OpenMedia(ctx, &OpenMediaParams{
		SenderConn: leadConn,
		Path:       "/videos/trial-07.mp4",
	})
	require.NoError(t, err)
	assert.Equal(t, "/videos/trial-07.mp4", opened.Transport.MediaPath)
	assert.Equal(t, "stopped", opened.Transport.State)
	assert.Equal(t, float64(60), opened.Transport.Duration)
	assert.Equal(t, int64(0), opened.Timeline.MinStart)
	assert.Equal(t, int64(60000), opened.Timeline.MaxEnd, "extent must match media duration")
	assert.Equal(t, int64(0), opened.Timeline.NeedleTime)

	played, err := svc.Play(ctx, &PlayParams{SenderConn: leadConn})
	require.NoError(t, err)
	assert.Equal(t, "playing", played.Transport.State)

	spedUp, err := svc.SetSpeed(ctx, &SetSpeedParams{SenderConn: leadConn, Speed: 2})
	require.NoError(t, err)
	assert.Equal(t, float64(2), spedUp.Transport.Speed)
	assert.Equal(t, "playing", spedUp.Transport.State, "rate change must not stop delivery")

	zeroed, err := svc.SetSpeed(ctx, &SetSpeedParams{SenderConn: leadConn, Speed: 0})
	require.NoError(t, err)
	assert.Equal(t, "stopped", zeroed.Transport.State, "zero rate must stop delivery")

	stepped, err := svc.Step(ctx, &StepParams{SenderConn: leadConn})
	require.NoError(t, err)
	assert.Equal(t, "stepping", stepped.Transport.State)
	assert.True(t, stepped.Transport.IsStepping)

	stopped, err := svc.Stop(ctx, &StopParams{SenderConn: leadConn})
	require.NoError(t, err)
	assert.Equal(t, "stopped", stopped.Transport.State)
	assert.True(t, stopped.Transport.IsStepping, "stop must not leave stepping mode")

	resumed, err := svc.Play(ctx, &PlayParams{SenderConn: leadConn})
	require.NoError(t, err)
	assert.Equal(t, "playing", resumed.Transport.State)
	assert.False(t, resumed.Transport.IsStepping, "play must leave stepping mode")

	sought, err := svc.Seek(ctx, &SeekParams{SenderConn: leadConn, Position: 30})
	require.NoError(t, err)
	assert.Equal(t, float64(30), sought.Transport.Position)
	assert.Equal(t, int64(30000), sought.Timeline.NeedleTime, "needle must follow a seek")

	rewound, err := svc.Rewind(ctx, &RewindParams{SenderConn: leadConn})
	require.NoError(t, err)
	assert.Equal(t, float64(0), rewound.Transport.Position)
	assert.Equal(t, int64(0), rewound.Timeline.NeedleTime)

	quieter, err := svc.SetVolume(ctx, &SetVolumeParams{SenderConn: leadConn, Level: 0.5})
	require.NoError(t, err)
	assert.Equal(t, 0.5, quieter.Transport.Volume)

	reset, err := svc.ResetView(ctx, &ResetViewParams{SenderConn: leadConn})
	require.NoError(t, err)
	assert.Equal(t, "playing", reset.Transport.State, "reset must restart delivery")

	// mutations persist: a fresh read sees the same transport
	state, err := svc.GetState(ctx, &GetStateParams{SenderConn: leadConn})
	require.NoError(t, err)
	assert.Equal(t, "/videos/trial-07.mp4", state.Transport.MediaPath)
	assert.Equal(t, 0.5, state.Transport.Volume)
}

func TestTimelineOps(t *testing.T) {
	svc := newTestService(t, 9, 25)
	ctx := context.Background()

	_, leadConn := createTestSession(t, svc)

	zoomed, err := svc.ZoomIn(ctx, &ZoomInParams{SenderConn: leadConn})
	require.NoError(t, err)
	assert.Equal(t, 2, zoomed.Timeline.Zoom)
	assert.Equal(t, int64(15000), zoomed.Timeline.WindowStart)
	assert.Equal(t, int64(45000), zoomed.Timeline.WindowEnd)
	assert.Equal(t, int64(1500), zoomed.Timeline.IntervalTime)
	assert.Equal(t, 39, zoomed.Timeline.IntervalWidth)

	zoomed, err = svc.ZoomIn(ctx, &ZoomInParams{SenderConn: leadConn})
	require.NoError(t, err)
	assert.Equal(t, 4, zoomed.Timeline.Zoom)
	assert.Equal(t, int64(22500), zoomed.Timeline.WindowStart)
	assert.Equal(t, int64(37500), zoomed.Timeline.WindowEnd)
	assert.Equal(t, int64(1500), zoomed.Timeline.IntervalTime, "10 intervals over a 15000ms window")
	assert.Equal(t, 78, zoomed.Timeline.IntervalWidth)

	zoomedOut, err := svc.ZoomOut(ctx, &ZoomOutParams{SenderConn: leadConn})
	require.NoError(t, err)
	assert.Equal(t, 2, zoomedOut.Timeline.Zoom)

	needled, err := svc.SetNeedle(ctx, &SetNeedleParams{SenderConn: leadConn, TimeMs: 12345})
	require.NoError(t, err)
	assert.Equal(t, int64(12345), needled.Timeline.NeedleTime)

	needled, err = svc.SetNeedle(ctx, &SetNeedleParams{SenderConn: leadConn, TimeMs: 10_000_000})
	require.NoError(t, err)
	assert.Equal(t, int64(60000), needled.Timeline.NeedleTime, "needle must clamp to the extent")

	added, err := svc.AddTrack(ctx, &AddTrackParams{
		SenderConn: leadConn,
		Name:       "observer-a",
		Start:      0,
		End:        90000,
		Offset:     -5000,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, added.AddedTrack.Id, "track id is empty")
	assert.Equal(t, "observer-a", added.AddedTrack.Name)
	assert.Equal(t, int64(-5000), added.Timeline.MinStart, "track must extend the extent left")
	assert.Equal(t, int64(85000), added.Timeline.MaxEnd, "track must extend the extent right")
	assert.Equal(t, 1, len(added.Timeline.Tracks), "timeline must contain 1 track")
}

func TestTrackLimit(t *testing.T) {
	svc := newTestService(t, 9, 1)
	ctx := context.Background()

	_, leadConn := createTestSession(t, svc)

	_, err := svc.AddTrack(ctx, &AddTrackParams{
		SenderConn: leadConn,
		Name:       "observer-a",
		End:        30000,
	})
	require.NoError(t, err)

	_, err = svc.AddTrack(ctx, &AddTrackParams{
		SenderConn: leadConn,
		Name:       "observer-b",
		End:        30000,
	})
	assert.ErrorIs(t, err, ErrTrackLimitReached)
}

func TestLeadPromotion(t *testing.T) {
	svc := newTestService(t, 9, 25)
	ctx := context.Background()

	created, leadConn := createTestSession(t, svc)
	joined, _ := joinTestSession(t, svc, created.SessionId, "ben")

	left, err := svc.DisconnectCoder(ctx, &DisconnectCoderParams{Conn: leadConn})
	require.NoError(t, err)
	assert.False(t, left.SessionClosed, "session must survive while a coder is online")
	assert.Equal(t, created.Coder.Id, left.CoderId)
	assert.Equal(t, joined.JoinedCoder.Id, left.PromotedLeadId, "lead must pass to the next online coder")

	for _, c := range left.Coders {
		switch c.Id {
		case created.Coder.Id:
			assert.False(t, c.IsLead, "old lead must be demoted")
			assert.False(t, c.IsOnline)
		case joined.JoinedCoder.Id:
			assert.True(t, c.IsLead, "new lead must be promoted")
			assert.True(t, c.IsOnline)
		}
	}
}

func TestReconnectRestoresSession(t *testing.T) {
	svc := newTestService(t, 9, 25)
	ctx := context.Background()

	created, leadConn := createTestSession(t, svc)

	_, err := svc.OpenMedia(ctx, &OpenMediaParams{
		SenderConn: leadConn,
		Path:       "/videos/trial-07.mp4",
	})
	require.NoError(t, err)
	_, err = svc.SetSpeed(ctx, &SetSpeedParams{SenderConn: leadConn, Speed: 2})
	require.NoError(t, err)
	_, err = svc.Seek(ctx, &SeekParams{SenderConn: leadConn, Position: 30})
	require.NoError(t, err)
	_, err = svc.ZoomIn(ctx, &ZoomInParams{SenderConn: leadConn})
	require.NoError(t, err)
	_, err = svc.AddTrack(ctx, &AddTrackParams{SenderConn: leadConn, Name: "observer-a", End: 30000})
	require.NoError(t, err)

	left, err := svc.DisconnectCoder(ctx, &DisconnectCoderParams{Conn: leadConn})
	require.NoError(t, err)
	assert.True(t, left.SessionClosed, "last disconnect must close the session")

	// state is still claimable within the grace period
	ticketId, err := svc.IssueJoinTicket(ctx, &IssueJoinTicketParams{
		Username:  "ana",
		Color:     "#7c9a3b",
		SessionId: created.SessionId,
	})
	require.NoError(t, err)

	rejoinConn := wsrouter.NewConn(&websocket.Conn{})
	rejoined, err := svc.JoinSession(ctx, &JoinSessionParams{
		Conn:      rejoinConn,
		TicketId:  ticketId,
		AuthToken: created.AuthToken,
	})
	require.NoError(t, err)
	assert.Equal(t, created.Coder.Id, rejoined.JoinedCoder.Id, "token must reclaim the old identity")
	assert.True(t, rejoined.JoinedCoder.IsLead, "reclaimed coder keeps the lead role")

	state := rejoined.State
	assert.Equal(t, "/videos/trial-07.mp4", state.Transport.MediaPath)
	assert.Equal(t, "stopped", state.Transport.State, "delivery never survives a restore")
	assert.Equal(t, float64(2), state.Transport.Speed)
	assert.Equal(t, float64(30), state.Transport.Position)
	assert.Equal(t, 2, state.Timeline.Zoom)
	assert.Equal(t, int64(30000), state.Timeline.NeedleTime)
	assert.Equal(t, 1, len(state.Timeline.Tracks), "tracks must be restored")

	// the reclaimed lead can mutate right away
	played, err := svc.Play(ctx, &PlayParams{SenderConn: rejoinConn})
	require.NoError(t, err)
	assert.Equal(t, "playing", played.Transport.State)
}

// tracedStream records Stop and StartAudio calls into a shared trace so
// tests can assert cross-stream call ordering.
type tracedStream struct {
	*sim.Stream
	tag   string
	trace *[]string
}

func (s *tracedStream) Stop() {
	*s.trace = append(*s.trace, s.tag+":stop")
	s.Stream.Stop()
}

func (s *tracedStream) StartAudio() {
	*s.trace = append(*s.trace, s.tag+":start_audio")
	s.Stream.StartAudio()
}

// traceRegistry hands out traced streams tagged in resolve order.
type traceRegistry struct {
	trace []string
	count int
}

func (r *traceRegistry) Resolve(classifier, path string) (media.Plugin, error) {
	r.count++
	tag := fmt.Sprintf("stream-%d", r.count)

	return media.Plugin{
		Id:         uuid.New(),
		Name:       tag,
		Classifier: classifier,
		New: func(logger *slog.Logger) transport.Stream {
			return &tracedStream{Stream: sim.New(logger), tag: tag, trace: &r.trace}
		},
	}, nil
}

func TestOpenMediaHaltsOldBackendFirst(t *testing.T) {
	mr := miniredis.RunT(t)
	rc := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		rc.Close()
	})

	registry := &traceRegistry{}
	svc := NewService(
		sessionRedis.NewRepo(rc, slog.Default(), 10*time.Minute),
		conn.NewRepo(),
		registry,
		func(logger *slog.Logger) transport.AudioSink { return sim.NewSink(logger) },
		slog.Default(),
		"test-secret",
		9,
		25,
		785,
	)
	ctx := context.Background()

	_, leadConn := createTestSession(t, svc)

	_, err := svc.OpenMedia(ctx, &OpenMediaParams{SenderConn: leadConn, Path: "/videos/first.mp4"})
	require.NoError(t, err)

	// only the replacement sequence matters
	registry.trace = nil
	_, err = svc.OpenMedia(ctx, &OpenMediaParams{SenderConn: leadConn, Path: "/videos/second.mp4"})
	require.NoError(t, err)

	oldHalt := slices.Index(registry.trace, "stream-1:stop")
	newAudio := slices.Index(registry.trace, "stream-2:start_audio")
	require.NotEqual(t, -1, oldHalt, "old backend was never stopped")
	require.NotEqual(t, -1, newAudio, "new backend never started audio")
	assert.Less(t, oldHalt, newAudio, "old backend must be halted before the new one delivers")
}

// demotionFailingRepo fails every lead demotion write and delegates
// everything else to the wrapped repo.
type demotionFailingRepo struct {
	iSessionRepo
}

func (r *demotionFailingRepo) UpdateCoderIsLead(ctx context.Context, coderId string, isLead bool) error {
	if !isLead {
		return errors.New("write failed")
	}

	return r.iSessionRepo.UpdateCoderIsLead(ctx, coderId, isLead)
}

func TestLeadHandoffNeverLeavesTwoLeads(t *testing.T) {
	mr := miniredis.RunT(t)
	rc := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		rc.Close()
	})

	sessionRepo := sessionRedis.NewRepo(rc, slog.Default(), 10*time.Minute)

	registry, err := media.NewRegistry(sim.Plugin())
	require.NoError(t, err)

	svc := NewService(
		&demotionFailingRepo{iSessionRepo: sessionRepo},
		conn.NewRepo(),
		registry,
		func(logger *slog.Logger) transport.AudioSink { return sim.NewSink(logger) },
		slog.Default(),
		"test-secret",
		9,
		25,
		785,
	)
	ctx := context.Background()

	created, leadConn := createTestSession(t, svc)
	joined, _ := joinTestSession(t, svc, created.SessionId, "ben")

	_, err = svc.DisconnectCoder(ctx, &DisconnectCoderParams{Conn: leadConn})
	require.Error(t, err, "the failed demotion must surface")

	leads := 0
	for _, coderId := range []string{created.Coder.Id, joined.JoinedCoder.Id} {
		coder, err := sessionRepo.GetCoder(ctx, coderId)
		require.NoError(t, err)
		if coder.IsLead {
			leads++
		}
	}
	assert.LessOrEqual(t, leads, 1, "a partial hand-off must never persist two leads")
}

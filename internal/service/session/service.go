package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/obslab/server/internal/media"
	"github.com/obslab/server/internal/repository"
	"github.com/obslab/server/internal/timeline"
	"github.com/obslab/server/internal/transport"
	"github.com/obslab/server/pkg/wsrouter"
)

var (
	ErrPermissionDenied  = errors.New("permission denied")
	ErrSessionNotFound   = errors.New("session not found")
	ErrCoderNotFound     = errors.New("coder not found")
	ErrCoderLimitReached = errors.New("coder limit reached")
	ErrTrackLimitReached = errors.New("track limit reached")
	ErrNoMediaLoaded     = errors.New("no media loaded")
)

const (
	// defaultExtentMs is the timeline extent a fresh session starts
	// with, before any media or tracks define a real one.
	defaultExtentMs = 60000

	// emptySessionGrace is how long session state stays claimable in
	// the store after the last coder goes offline.
	emptySessionGrace = 10 * time.Minute
)

type iSessionRepo interface {
	// coder
	SetCoder(context.Context, *repository.SetCoderParams) error
	GetCoder(context.Context, string) (repository.Coder, error)
	GetCoderIds(context.Context, string) ([]string, error)
	UpdateCoderIsOnline(ctx context.Context, coderId string, isOnline bool) error
	UpdateCoderIsLead(ctx context.Context, coderId string, isLead bool) error
	// transport
	SetTransport(context.Context, *repository.SetTransportParams) error
	GetTransport(context.Context, string) (repository.TransportState, error)
	UpdateTransport(context.Context, *repository.UpdateTransportParams) error
	SessionExists(context.Context, string) (bool, error)
	ExpireSession(context.Context, *repository.ExpireSessionParams) error
	// timeline
	SetTimeline(context.Context, *repository.SetTimelineParams) error
	GetTimeline(context.Context, string) (repository.TimelineState, error)
	UpdateTimeline(context.Context, *repository.UpdateTimelineParams) error
	// track
	SetTrack(context.Context, *repository.SetTrackParams) error
	GetTrack(context.Context, *repository.GetTrackParams) (repository.Track, error)
	GetTrackIds(context.Context, string) ([]string, error)
	GetTracksLength(context.Context, string) (int, error)
	// ticket
	SetCreateTicket(context.Context, *repository.SetCreateTicketParams) error
	GetCreateTicket(context.Context, string) (repository.CreateTicket, error)
	RemoveCreateTicket(context.Context, string) error
	SetJoinTicket(context.Context, *repository.SetJoinTicketParams) error
	GetJoinTicket(context.Context, string) (repository.JoinTicket, error)
	RemoveJoinTicket(context.Context, string) error
}

type iConnRepo interface {
	Add(*wsrouter.Conn, string) error
	RemoveByConn(*wsrouter.Conn) error
	GetConn(string) (*wsrouter.Conn, error)
	GetCoderId(*wsrouter.Conn) (string, error)
}

type iMediaRegistry interface {
	Resolve(classifier, path string) (media.Plugin, error)
}

// SinkFactory builds the audio sink a session's controller drives.
type SinkFactory func(logger *slog.Logger) transport.AudioSink

// liveSession is the in-process half of a session: the controller
// driving the stream and the timeline views. Persisted state lives in
// the session repo; delivery itself never survives a restart.
//
// The mutex serializes all controller and timeline calls, which keeps
// the single-caller contract both of them require.
type liveSession struct {
	mu         sync.Mutex
	controller *transport.Controller
	timeline   *timeline.Timeline
}

type service struct {
	sessionRepo iSessionRepo
	connRepo    iConnRepo
	registry    iMediaRegistry
	sinkFactory SinkFactory
	logger      *slog.Logger

	secret      string
	codersLimit int
	tracksLimit int
	rulerWidth  int

	mu   sync.RWMutex
	live map[string]*liveSession
}

func NewService(
	sessionRepo iSessionRepo,
	connRepo iConnRepo,
	registry iMediaRegistry,
	sinkFactory SinkFactory,
	logger *slog.Logger,
	secret string,
	codersLimit, tracksLimit, rulerWidth int,
) *service {
	return &service{
		sessionRepo: sessionRepo,
		connRepo:    connRepo,
		registry:    registry,
		sinkFactory: sinkFactory,
		logger:      logger,
		secret:      secret,
		codersLimit: codersLimit,
		tracksLimit: tracksLimit,
		rulerWidth:  rulerWidth,
		live:        make(map[string]*liveSession),
	}
}

package controller

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/obslab/server/internal/service/session"
	"github.com/obslab/server/pkg/validator"
	"github.com/obslab/server/pkg/wsrouter"
)

type iSessionService interface {
	IssueCreateTicket(context.Context, *session.IssueCreateTicketParams) (string, error)
	IssueJoinTicket(context.Context, *session.IssueJoinTicketParams) (string, error)
	CreateSession(context.Context, *session.CreateSessionParams) (session.CreateSessionResponse, error)
	JoinSession(context.Context, *session.JoinSessionParams) (session.JoinSessionResponse, error)
	DisconnectCoder(context.Context, *session.DisconnectCoderParams) (session.DisconnectCoderResponse, error)
	GetState(context.Context, *session.GetStateParams) (session.SessionState, error)
	Alive(context.Context, *session.AliveParams) error
	// transport
	OpenMedia(context.Context, *session.OpenMediaParams) (session.OpenMediaResponse, error)
	Play(context.Context, *session.PlayParams) (session.PlayResponse, error)
	Stop(context.Context, *session.StopParams) (session.StopResponse, error)
	Step(context.Context, *session.StepParams) (session.StepResponse, error)
	SetSpeed(context.Context, *session.SetSpeedParams) (session.SetSpeedResponse, error)
	Seek(context.Context, *session.SeekParams) (session.SeekResponse, error)
	Rewind(context.Context, *session.RewindParams) (session.RewindResponse, error)
	ResetView(context.Context, *session.ResetViewParams) (session.ResetViewResponse, error)
	SetVolume(context.Context, *session.SetVolumeParams) (session.SetVolumeResponse, error)
	// timeline
	ZoomIn(context.Context, *session.ZoomInParams) (session.ZoomInResponse, error)
	ZoomOut(context.Context, *session.ZoomOutParams) (session.ZoomOutResponse, error)
	SetNeedle(context.Context, *session.SetNeedleParams) (session.SetNeedleResponse, error)
	AddTrack(context.Context, *session.AddTrackParams) (session.AddTrackResponse, error)
}

type controller struct {
	sessionService iSessionService
	upgrader       websocket.Upgrader
	validate       *validator.Validator
	logger         *slog.Logger
	wsmux          *wsrouter.Router
}

func NewController(sessionService iSessionService, logger *slog.Logger) *controller {
	c := &controller{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		sessionService: sessionService,
		validate:       validator.NewValidator(),
		logger:         logger,
	}
	c.wsmux = c.getWSRouter()

	return c
}

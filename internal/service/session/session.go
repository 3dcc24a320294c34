package session

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/obslab/server/internal/repository"
	"github.com/obslab/server/internal/timeline"
	"github.com/obslab/server/internal/transport"
	"github.com/obslab/server/pkg/randstr"
	"github.com/obslab/server/pkg/wsrouter"
)

// Session ids are short and lowercase so coders can pass them around by
// hand; coder, track and ticket ids stay uuids.
var sessionIdGenerator = randstr.New([]byte("abcdefghijklmnopqrstuvwxyz0123456789"))

const sessionIdLength = 8

type IssueCreateTicketParams struct {
	Username string
	Color    string
}

// IssueCreateTicket records a validated create intent and returns the
// ticket id the client presents on the websocket upgrade.
func (s *service) IssueCreateTicket(ctx context.Context, params *IssueCreateTicketParams) (string, error) {
	ticketId := uuid.NewString()
	if err := s.sessionRepo.SetCreateTicket(ctx, &repository.SetCreateTicketParams{
		TicketId: ticketId,
		Username: params.Username,
		Color:    params.Color,
	}); err != nil {
		return "", err
	}

	return ticketId, nil
}

type IssueJoinTicketParams struct {
	Username  string
	Color     string
	SessionId string
}

func (s *service) IssueJoinTicket(ctx context.Context, params *IssueJoinTicketParams) (string, error) {
	exists, err := s.sessionRepo.SessionExists(ctx, params.SessionId)
	if err != nil {
		return "", err
	}
	if !exists {
		return "", ErrSessionNotFound
	}

	ticketId := uuid.NewString()
	if err := s.sessionRepo.SetJoinTicket(ctx, &repository.SetJoinTicketParams{
		TicketId:  ticketId,
		Username:  params.Username,
		Color:     params.Color,
		SessionId: params.SessionId,
	}); err != nil {
		return "", err
	}

	return ticketId, nil
}

type CreateSessionParams struct {
	Conn     *wsrouter.Conn
	TicketId string
}

type CreateSessionResponse struct {
	SessionId string
	AuthToken string
	Coder     Coder
	State     SessionState
}

func (s *service) CreateSession(ctx context.Context, params *CreateSessionParams) (CreateSessionResponse, error) {
	ticket, err := s.sessionRepo.GetCreateTicket(ctx, params.TicketId)
	if err != nil {
		return CreateSessionResponse{}, err
	}
	if err := s.sessionRepo.RemoveCreateTicket(ctx, params.TicketId); err != nil {
		return CreateSessionResponse{}, err
	}

	sessionId := sessionIdGenerator.GenerateRandomString(sessionIdLength)
	coderId := uuid.NewString()
	s.logger.Info("creating session", "sessionId", sessionId)

	if err := s.sessionRepo.SetCoder(ctx, &repository.SetCoderParams{
		CoderId:   coderId,
		Username:  ticket.Username,
		Color:     ticket.Color,
		IsLead:    true,
		IsOnline:  true,
		SessionId: sessionId,
	}); err != nil {
		return CreateSessionResponse{}, err
	}

	now := time.Now().Unix()
	if err := s.sessionRepo.SetTransport(ctx, &repository.SetTransportParams{
		SessionId: sessionId,
		State:     transport.StateStopped.String(),
		Speed:     1,
		Volume:    1,
		UpdatedAt: now,
	}); err != nil {
		return CreateSessionResponse{}, err
	}

	if err := s.sessionRepo.SetTimeline(ctx, &repository.SetTimelineParams{
		SessionId:   sessionId,
		Zoom:        timeline.MinZoom,
		WindowStart: 0,
		WindowEnd:   defaultExtentMs,
		MinStart:    0,
		MaxEnd:      defaultExtentMs,
		UpdatedAt:   now,
	}); err != nil {
		return CreateSessionResponse{}, err
	}

	if err := s.connRepo.Add(params.Conn, coderId); err != nil {
		return CreateSessionResponse{}, err
	}

	live := &liveSession{
		timeline: timeline.New(0, defaultExtentMs, s.rulerWidth, s.logger),
	}
	s.mu.Lock()
	s.live[sessionId] = live
	s.mu.Unlock()

	authToken, err := s.generateJWT(coderId, sessionId)
	if err != nil {
		return CreateSessionResponse{}, err
	}

	live.mu.Lock()
	state, err := s.getSessionState(ctx, sessionId, live)
	live.mu.Unlock()
	if err != nil {
		return CreateSessionResponse{}, err
	}

	return CreateSessionResponse{
		SessionId: sessionId,
		AuthToken: authToken,
		Coder: Coder{
			Id:       coderId,
			Username: ticket.Username,
			Color:    ticket.Color,
			IsLead:   true,
			IsOnline: true,
		},
		State: state,
	}, nil
}

type JoinSessionParams struct {
	Conn      *wsrouter.Conn
	TicketId  string
	AuthToken string
}

type JoinSessionResponse struct {
	SessionId   string
	AuthToken   string
	JoinedCoder Coder
	State       SessionState
	Conns       []*wsrouter.Conn
}

func (s *service) JoinSession(ctx context.Context, params *JoinSessionParams) (JoinSessionResponse, error) {
	ticket, err := s.sessionRepo.GetJoinTicket(ctx, params.TicketId)
	if err != nil {
		return JoinSessionResponse{}, err
	}
	sessionId := ticket.SessionId

	exists, err := s.sessionRepo.SessionExists(ctx, sessionId)
	if err != nil {
		return JoinSessionResponse{}, err
	}
	if !exists {
		return JoinSessionResponse{}, ErrSessionNotFound
	}

	if err := s.sessionRepo.RemoveJoinTicket(ctx, params.TicketId); err != nil {
		return JoinSessionResponse{}, err
	}

	var joined Coder
	if params.AuthToken != "" {
		// a valid token for a coder of this session reclaims the old
		// identity instead of minting a new one
		if cl, err := s.parseJWT(params.AuthToken); err == nil && cl.SessionId == sessionId {
			if coder, err := s.sessionRepo.GetCoder(ctx, cl.CoderId); err == nil && coder.SessionId == sessionId {
				if err := s.sessionRepo.UpdateCoderIsOnline(ctx, cl.CoderId, true); err != nil {
					return JoinSessionResponse{}, err
				}
				joined = Coder{
					Id:       cl.CoderId,
					Username: coder.Username,
					Color:    coder.Color,
					IsLead:   coder.IsLead,
					IsOnline: true,
				}
			}
		}
	}

	if joined.Id == "" {
		coderIds, err := s.sessionRepo.GetCoderIds(ctx, sessionId)
		if err != nil {
			return JoinSessionResponse{}, err
		}
		if len(coderIds) >= s.codersLimit {
			return JoinSessionResponse{}, ErrCoderLimitReached
		}

		coderId := uuid.NewString()
		if err := s.sessionRepo.SetCoder(ctx, &repository.SetCoderParams{
			CoderId:   coderId,
			Username:  ticket.Username,
			Color:     ticket.Color,
			IsLead:    false,
			IsOnline:  true,
			SessionId: sessionId,
		}); err != nil {
			return JoinSessionResponse{}, err
		}

		joined = Coder{
			Id:       coderId,
			Username: ticket.Username,
			Color:    ticket.Color,
			IsOnline: true,
		}
	}

	if err := s.connRepo.Add(params.Conn, joined.Id); err != nil {
		return JoinSessionResponse{}, err
	}

	live, err := s.getLive(ctx, sessionId)
	if err != nil {
		return JoinSessionResponse{}, err
	}

	authToken, err := s.generateJWT(joined.Id, sessionId)
	if err != nil {
		return JoinSessionResponse{}, err
	}

	live.mu.Lock()
	state, err := s.getSessionState(ctx, sessionId, live)
	live.mu.Unlock()
	if err != nil {
		return JoinSessionResponse{}, err
	}

	conns, err := s.getConnsBySessionId(ctx, sessionId)
	if err != nil {
		return JoinSessionResponse{}, err
	}

	s.logger.Info("coder joined", "sessionId", sessionId, "coderId", joined.Id)

	return JoinSessionResponse{
		SessionId:   sessionId,
		AuthToken:   authToken,
		JoinedCoder: joined,
		State:       state,
		Conns:       conns,
	}, nil
}

type DisconnectCoderParams struct {
	Conn *wsrouter.Conn
}

type DisconnectCoderResponse struct {
	CoderId        string
	SessionId      string
	PromotedLeadId string
	Coders         []Coder
	Conns          []*wsrouter.Conn
	SessionClosed  bool
}

// DisconnectCoder marks the coder offline and hands the lead role to
// the next online coder. When nobody is left online the live state is
// torn down and the persisted state gets a hard expiry.
func (s *service) DisconnectCoder(ctx context.Context, params *DisconnectCoderParams) (DisconnectCoderResponse, error) {
	coderId, err := s.connRepo.GetCoderId(params.Conn)
	if err != nil {
		return DisconnectCoderResponse{}, ErrCoderNotFound
	}

	coder, err := s.sessionRepo.GetCoder(ctx, coderId)
	if err != nil {
		return DisconnectCoderResponse{}, err
	}
	sessionId := coder.SessionId

	if err := s.connRepo.RemoveByConn(params.Conn); err != nil {
		return DisconnectCoderResponse{}, err
	}

	if err := s.sessionRepo.UpdateCoderIsOnline(ctx, coderId, false); err != nil {
		return DisconnectCoderResponse{}, err
	}

	coders, err := s.getCoders(ctx, sessionId)
	if err != nil {
		return DisconnectCoderResponse{}, err
	}

	var nextLeadId string
	anyOnline := false
	for _, c := range coders {
		if c.IsOnline {
			anyOnline = true
			if nextLeadId == "" {
				nextLeadId = c.Id
			}
		}
	}

	if !anyOnline {
		if err := s.sessionRepo.ExpireSession(ctx, &repository.ExpireSessionParams{
			SessionId: sessionId,
			ExpireAt:  time.Now().Add(emptySessionGrace),
		}); err != nil {
			return DisconnectCoderResponse{}, err
		}

		s.mu.Lock()
		if live, ok := s.live[sessionId]; ok {
			live.mu.Lock()
			if live.controller != nil {
				live.controller.Close()
			}
			live.mu.Unlock()
			delete(s.live, sessionId)
		}
		s.mu.Unlock()

		s.logger.Info("session empty", "sessionId", sessionId)

		return DisconnectCoderResponse{
			CoderId:       coderId,
			SessionId:     sessionId,
			Coders:        coders,
			SessionClosed: true,
		}, nil
	}

	var promotedLeadId string
	if coder.IsLead {
		// demote first: a failure between the two writes must never
		// leave the session with two leads
		if err := s.sessionRepo.UpdateCoderIsLead(ctx, coderId, false); err != nil {
			return DisconnectCoderResponse{}, err
		}
		if err := s.sessionRepo.UpdateCoderIsLead(ctx, nextLeadId, true); err != nil {
			return DisconnectCoderResponse{}, err
		}
		promotedLeadId = nextLeadId

		coders, err = s.getCoders(ctx, sessionId)
		if err != nil {
			return DisconnectCoderResponse{}, err
		}

		s.logger.Info("lead promoted", "sessionId", sessionId, "coderId", promotedLeadId)
	}

	conns, err := s.getConnsBySessionId(ctx, sessionId)
	if err != nil {
		return DisconnectCoderResponse{}, err
	}

	return DisconnectCoderResponse{
		CoderId:        coderId,
		SessionId:      sessionId,
		PromotedLeadId: promotedLeadId,
		Coders:         coders,
		Conns:          conns,
	}, nil
}

type GetStateParams struct {
	SenderConn *wsrouter.Conn
}

func (s *service) GetState(ctx context.Context, params *GetStateParams) (SessionState, error) {
	_, coder, err := s.authorize(ctx, params.SenderConn)
	if err != nil {
		return SessionState{}, err
	}

	live, err := s.getLive(ctx, coder.SessionId)
	if err != nil {
		return SessionState{}, err
	}

	live.mu.Lock()
	defer live.mu.Unlock()

	return s.getSessionState(ctx, coder.SessionId, live)
}

type AliveParams struct {
	SenderConn *wsrouter.Conn
}

// Alive refreshes the TTLs of everything the coder's session keeps in
// the store.
func (s *service) Alive(ctx context.Context, params *AliveParams) error {
	_, coder, err := s.authorize(ctx, params.SenderConn)
	if err != nil {
		return err
	}

	if _, err := s.sessionRepo.GetTransport(ctx, coder.SessionId); err != nil {
		return err
	}
	if _, err := s.sessionRepo.GetTimeline(ctx, coder.SessionId); err != nil {
		return err
	}
	if _, err := s.sessionRepo.GetCoderIds(ctx, coder.SessionId); err != nil {
		return err
	}

	return nil
}

package repository

import "time"

type SetCoderParams struct {
	CoderId   string
	Username  string
	Color     string
	IsLead    bool
	IsOnline  bool
	SessionId string
}

type RemoveCoderParams struct {
	CoderId   string
	SessionId string
}

type SetTransportParams struct {
	SessionId  string
	MediaPath  string
	Duration   float64
	State      string
	Speed      float64
	IsStepping bool
	Volume     float64
	Position   float64
	UpdatedAt  int64
}

type UpdateTransportParams struct {
	SessionId  string
	MediaPath  string
	Duration   float64
	State      string
	Speed      float64
	IsStepping bool
	Volume     float64
	Position   float64
	UpdatedAt  int64
}

type SetTimelineParams struct {
	SessionId   string
	Zoom        int
	WindowStart int64
	WindowEnd   int64
	MinStart    int64
	MaxEnd      int64
	NeedleTime  int64
	UpdatedAt   int64
}

type UpdateTimelineParams struct {
	SessionId   string
	Zoom        int
	WindowStart int64
	WindowEnd   int64
	MinStart    int64
	MaxEnd      int64
	NeedleTime  int64
	UpdatedAt   int64
}

type SetTrackParams struct {
	TrackId   string
	SessionId string
	Name      string
	Start     int64
	End       int64
	Offset    int64
	AddedById string
}

type GetTrackParams struct {
	TrackId   string
	SessionId string
}

type RemoveTrackParams struct {
	TrackId   string
	SessionId string
}

type SetCreateTicketParams struct {
	TicketId string
	Username string
	Color    string
}

type SetJoinTicketParams struct {
	TicketId  string
	Username  string
	Color     string
	SessionId string
}

type ExpireSessionParams struct {
	SessionId string
	ExpireAt  time.Time
}

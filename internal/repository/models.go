package repository

type Coder struct {
	Username  string `redis:"username"`
	Color     string `redis:"color"`
	IsLead    bool   `redis:"is_lead"`
	IsOnline  bool   `redis:"is_online"`
	SessionId string `redis:"session_id"`
}

type TransportState struct {
	MediaPath  string  `redis:"media_path"`
	Duration   float64 `redis:"duration"`
	State      string  `redis:"state"`
	Speed      float64 `redis:"speed"`
	IsStepping bool    `redis:"is_stepping"`
	Volume     float64 `redis:"volume"`
	Position   float64 `redis:"position"`
	UpdatedAt  int64   `redis:"updated_at"`
}

type TimelineState struct {
	Zoom        int   `redis:"zoom"`
	WindowStart int64 `redis:"window_start"`
	WindowEnd   int64 `redis:"window_end"`
	MinStart    int64 `redis:"min_start"`
	MaxEnd      int64 `redis:"max_end"`
	NeedleTime  int64 `redis:"needle_time"`
	UpdatedAt   int64 `redis:"updated_at"`
}

type Track struct {
	Name      string `redis:"name"`
	Start     int64  `redis:"start"`
	End       int64  `redis:"end"`
	Offset    int64  `redis:"offset"`
	AddedById string `redis:"added_by"`
}

type CreateTicket struct {
	Username string `redis:"username"`
	Color    string `redis:"color"`
}

type JoinTicket struct {
	Username  string `redis:"username"`
	Color     string `redis:"color"`
	SessionId string `redis:"session_id"`
}

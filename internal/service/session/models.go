package session

type Coder struct {
	Id       string `json:"id"`
	Username string `json:"username"`
	Color    string `json:"color"`
	IsLead   bool   `json:"is_lead"`
	IsOnline bool   `json:"is_online"`
}

type Transport struct {
	MediaPath  string  `json:"media_path"`
	Duration   float64 `json:"duration"`
	State      string  `json:"state"`
	Speed      float64 `json:"speed"`
	IsStepping bool    `json:"is_stepping"`
	Volume     float64 `json:"volume"`
	Position   float64 `json:"position"`
	UpdatedAt  int64   `json:"updated_at"`
}

type Track struct {
	Id     string `json:"id"`
	Name   string `json:"name"`
	Start  int64  `json:"start"`
	End    int64  `json:"end"`
	Offset int64  `json:"offset"`
}

type Timeline struct {
	Zoom          int     `json:"zoom"`
	WindowStart   int64   `json:"window_start"`
	WindowEnd     int64   `json:"window_end"`
	MinStart      int64   `json:"min_start"`
	MaxEnd        int64   `json:"max_end"`
	IntervalTime  int64   `json:"interval_time"`
	IntervalWidth int     `json:"interval_width"`
	NeedleTime    int64   `json:"needle_time"`
	Tracks        []Track `json:"tracks"`
}

type SessionState struct {
	SessionId string    `json:"session_id"`
	Transport Transport `json:"transport"`
	Timeline  Timeline  `json:"timeline"`
	Coders    []Coder   `json:"coders"`
}

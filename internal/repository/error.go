package repository

import "errors"

var (
	ErrCoderNotFound    = errors.New("coder not found")
	ErrSessionNotFound  = errors.New("session not found")
	ErrTimelineNotFound = errors.New("timeline not found")
	ErrTrackNotFound    = errors.New("track not found")
	ErrTicketNotFound   = errors.New("ticket not found")
)

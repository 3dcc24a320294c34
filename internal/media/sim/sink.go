package sim

import (
	"log/slog"

	"github.com/obslab/server/pkg/clamp"
)

// Sink is an audio sink that remembers the level it was last set to.
type Sink struct {
	logger *slog.Logger
	level  float64
}

func NewSink(logger *slog.Logger) *Sink {
	return &Sink{
		logger: logger,
		level:  1,
	}
}

func (s *Sink) SetVolume(level float64) {
	s.level = clamp.Clamp(level, 0, 1)
	s.logger.Debug("volume set", "level", s.level)
}

func (s *Sink) Volume() float64 {
	return s.level
}

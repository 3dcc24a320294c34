package sim

import (
	"log/slog"

	"github.com/google/uuid"

	"github.com/obslab/server/internal/media"
	"github.com/obslab/server/internal/transport"
)

// pluginId is the stable id the simulated backend registers under.
var pluginId = uuid.MustParse("4e1b0f6e-8ac3-4d2e-9b0a-2f5d1c7e6a91")

// Plugin describes the simulated backend for registration.
func Plugin() media.Plugin {
	return media.Plugin{
		Id:         pluginId,
		Name:       "simulated",
		Classifier: media.ClassifierVideo,
		Extensions: []string{".mp4", ".mov", ".avi", ".mkv", ".webm"},
		New: func(logger *slog.Logger) transport.Stream {
			return New(logger)
		},
	}
}

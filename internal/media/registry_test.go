package media

import (
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/obslab/server/internal/transport"
)

type nopStream struct {
	transport.Stream
}

func testPlugin(name, classifier string, exts ...string) Plugin {
	return Plugin{
		Id:         uuid.New(),
		Name:       name,
		Classifier: classifier,
		Extensions: exts,
		New: func(logger *slog.Logger) transport.Stream {
			return nopStream{}
		},
	}
}

func TestRegistryResolve(t *testing.T) {
	video := testPlugin("video", ClassifierVideo, ".mp4", ".mov")
	audio := testPlugin("audio", "obslab.audio", ".wav")
	r, err := NewRegistry(video, audio)
	require.NoError(t, err)

	t.Run("matches classifier and extension", func(t *testing.T) {
		p, err := r.Resolve(ClassifierVideo, "/media/session.mp4")
		require.NoError(t, err)
		assert.Equal(t, "video", p.Name)
	})

	t.Run("extension match is case-insensitive", func(t *testing.T) {
		p, err := r.Resolve(ClassifierVideo, "/media/SESSION.MOV")
		require.NoError(t, err)
		assert.Equal(t, "video", p.Name)
	})

	t.Run("unknown extension", func(t *testing.T) {
		_, err := r.Resolve(ClassifierVideo, "/media/session.xyz")
		assert.ErrorIs(t, err, ErrNoCompatiblePlugin)
	})

	t.Run("extension under another classifier does not match", func(t *testing.T) {
		_, err := r.Resolve(ClassifierVideo, "/media/session.wav")
		assert.ErrorIs(t, err, ErrNoCompatiblePlugin)
	})
}

func TestRegistryLookup(t *testing.T) {
	video := testPlugin("video", ClassifierVideo, ".mp4")
	r, err := NewRegistry(video)
	require.NoError(t, err)

	p, err := r.ByName("video")
	require.NoError(t, err)
	assert.Equal(t, video.Id, p.Id)

	p, err = r.ById(video.Id)
	require.NoError(t, err)
	assert.Equal(t, "video", p.Name)

	_, err = r.ByName("missing")
	assert.ErrorIs(t, err, ErrPluginNotFound)

	_, err = r.ById(uuid.New())
	assert.ErrorIs(t, err, ErrPluginNotFound)
}

func TestRegistryRejectsInvalidPlugins(t *testing.T) {
	valid := testPlugin("video", ClassifierVideo, ".mp4")

	tests := []struct {
		name    string
		plugins []Plugin
	}{
		{"empty name", []Plugin{{Id: uuid.New(), New: valid.New}}},
		{"nil id", []Plugin{{Name: "x", New: valid.New}}},
		{"nil factory", []Plugin{{Id: uuid.New(), Name: "x"}}},
		{"duplicate name", []Plugin{valid, testPlugin("video", ClassifierVideo, ".mov")}},
		{"duplicate id", []Plugin{valid, {Id: valid.Id, Name: "other", New: valid.New}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRegistry(tt.plugins...)
			assert.Error(t, err)
		})
	}
}

func TestRegistryPluginsSortedByName(t *testing.T) {
	r, err := NewRegistry(
		testPlugin("zulu", ClassifierVideo, ".mp4"),
		testPlugin("alpha", ClassifierVideo, ".mov"),
	)
	require.NoError(t, err)

	plugins := r.Plugins()
	require.Len(t, plugins, 2)
	assert.Equal(t, "alpha", plugins[0].Name)
	assert.Equal(t, "zulu", plugins[1].Name)
}

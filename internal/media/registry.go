// Package media resolves opened sources to the stream backend that can
// decode them. Backends register explicitly; there is no discovery.
package media

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/obslab/server/internal/transport"
)

// ClassifierVideo is the classifier built-in video backends register
// under.
const ClassifierVideo = "obslab.video"

var (
	ErrNoCompatiblePlugin = errors.New("no compatible plugin")
	ErrPluginNotFound     = errors.New("plugin not found")
)

// Factory builds a fresh stream instance. Every open session gets its
// own stream, so factories must not share mutable state between calls.
type Factory func(logger *slog.Logger) transport.Stream

// Plugin describes one registered backend: a stable id, the classifier
// it serves and the file extensions it accepts.
type Plugin struct {
	Id         uuid.UUID
	Name       string
	Classifier string
	Extensions []string
	New        Factory
}

type Registry struct {
	plugins []Plugin
	byName  map[string]Plugin
	byId    map[uuid.UUID]Plugin
}

func NewRegistry(plugins ...Plugin) (*Registry, error) {
	r := &Registry{
		byName: make(map[string]Plugin, len(plugins)),
		byId:   make(map[uuid.UUID]Plugin, len(plugins)),
	}

	for _, p := range plugins {
		if err := r.register(p); err != nil {
			return nil, fmt.Errorf("failed to register plugin: %w", err)
		}
	}

	sort.Slice(r.plugins, func(i, j int) bool {
		return r.plugins[i].Name < r.plugins[j].Name
	})

	return r, nil
}

func (r *Registry) register(p Plugin) error {
	if p.Name == "" {
		return errors.New("plugin has no name")
	}
	if p.Id == uuid.Nil {
		return fmt.Errorf("plugin %q has no id", p.Name)
	}
	if p.New == nil {
		return fmt.Errorf("plugin %q has no factory", p.Name)
	}
	if _, ok := r.byName[p.Name]; ok {
		return fmt.Errorf("plugin %q is already registered", p.Name)
	}
	if _, ok := r.byId[p.Id]; ok {
		return fmt.Errorf("plugin id %q is already registered", p.Id)
	}

	r.plugins = append(r.plugins, p)
	r.byName[p.Name] = p
	r.byId[p.Id] = p

	return nil
}

// Resolve picks the first plugin under the classifier that accepts the
// path's extension. Extension matching is case-insensitive.
func (r *Registry) Resolve(classifier, path string) (Plugin, error) {
	ext := strings.ToLower(filepath.Ext(path))
	for _, p := range r.plugins {
		if p.Classifier != classifier {
			continue
		}
		for _, e := range p.Extensions {
			if e == ext {
				return p, nil
			}
		}
	}

	return Plugin{}, ErrNoCompatiblePlugin
}

func (r *Registry) ByName(name string) (Plugin, error) {
	p, ok := r.byName[name]
	if !ok {
		return Plugin{}, ErrPluginNotFound
	}
	return p, nil
}

func (r *Registry) ById(id uuid.UUID) (Plugin, error) {
	p, ok := r.byId[id]
	if !ok {
		return Plugin{}, ErrPluginNotFound
	}
	return p, nil
}

// Plugins lists all registered plugins ordered by name.
func (r *Registry) Plugins() []Plugin {
	return r.plugins
}

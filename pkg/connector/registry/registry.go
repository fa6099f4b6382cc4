// Package registry manages adapter registration and instantiation. Adapter
// packages register factories from init(), so importing a package for side
// effects makes its connector available by type name.
package registry

import (
	"sync"

	"go.uber.org/zap"

	"github.com/strata-etl/strata/pkg/config"
	"github.com/strata-etl/strata/pkg/connector/core"
	"github.com/strata-etl/strata/pkg/errors"
	"github.com/strata-etl/strata/pkg/logger"
)

// SourceFactory creates a source adapter from its configuration.
type SourceFactory func(cfg config.AdapterConfig) (core.Source, error)

// SinkFactory creates a sink adapter from its configuration.
type SinkFactory func(cfg config.AdapterConfig) (core.Sink, error)

// Registry maps connector type names to factories.
type Registry struct {
	sources map[string]SourceFactory
	sinks   map[string]SinkFactory
	mu      sync.RWMutex
	logger  *zap.Logger
}

var globalRegistry = NewRegistry()

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		sources: make(map[string]SourceFactory),
		sinks:   make(map[string]SinkFactory),
		logger:  logger.Get().With(zap.String("component", "connector_registry")),
	}
}

// RegisterSource registers a source factory under a type name.
func (r *Registry) RegisterSource(name string, factory SourceFactory) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sources[name]; exists {
		return errors.New(errors.ErrorTypeConfig, "source connector already registered").
			WithDetail("name", name)
	}

	r.sources[name] = factory
	r.logger.Debug("source connector registered", zap.String("name", name))
	return nil
}

// RegisterSink registers a sink factory under a type name.
func (r *Registry) RegisterSink(name string, factory SinkFactory) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sinks[name]; exists {
		return errors.New(errors.ErrorTypeConfig, "sink connector already registered").
			WithDetail("name", name)
	}

	r.sinks[name] = factory
	r.logger.Debug("sink connector registered", zap.String("name", name))
	return nil
}

// CreateSource instantiates a source adapter by type name.
func (r *Registry) CreateSource(cfg config.AdapterConfig) (core.Source, error) {
	r.mu.RLock()
	factory, exists := r.sources[cfg.Type]
	r.mu.RUnlock()

	if !exists {
		return nil, errors.New(errors.ErrorTypeConfig, "source connector not found").
			WithDetail("type", cfg.Type)
	}

	source, err := factory(cfg)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to create source connector").
			WithDetail("type", cfg.Type)
	}
	return source, nil
}

// CreateSink instantiates a sink adapter by type name.
func (r *Registry) CreateSink(cfg config.AdapterConfig) (core.Sink, error) {
	r.mu.RLock()
	factory, exists := r.sinks[cfg.Type]
	r.mu.RUnlock()

	if !exists {
		return nil, errors.New(errors.ErrorTypeConfig, "sink connector not found").
			WithDetail("type", cfg.Type)
	}

	sink, err := factory(cfg)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to create sink connector").
			WithDetail("type", cfg.Type)
	}
	return sink, nil
}

// ListSources returns the registered source type names.
func (r *Registry) ListSources() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.sources))
	for name := range r.sources {
		names = append(names, name)
	}
	return names
}

// ListSinks returns the registered sink type names.
func (r *Registry) ListSinks() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.sinks))
	for name := range r.sinks {
		names = append(names, name)
	}
	return names
}

// Clear removes all registered connectors (mainly for testing).
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sources = make(map[string]SourceFactory)
	r.sinks = make(map[string]SinkFactory)
}

// Global registry functions

// RegisterSource registers a source factory in the global registry.
func RegisterSource(name string, factory SourceFactory) error {
	return globalRegistry.RegisterSource(name, factory)
}

// RegisterSink registers a sink factory in the global registry.
func RegisterSink(name string, factory SinkFactory) error {
	return globalRegistry.RegisterSink(name, factory)
}

// CreateSource creates a source adapter from the global registry.
func CreateSource(cfg config.AdapterConfig) (core.Source, error) {
	return globalRegistry.CreateSource(cfg)
}

// CreateSink creates a sink adapter from the global registry.
func CreateSink(cfg config.AdapterConfig) (core.Sink, error) {
	return globalRegistry.CreateSink(cfg)
}

// ListSources returns registered sources from the global registry.
func ListSources() []string {
	return globalRegistry.ListSources()
}

// ListSinks returns registered sinks from the global registry.
func ListSinks() []string {
	return globalRegistry.ListSinks()
}

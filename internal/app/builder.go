// Package app wires validated configuration into a runnable project:
// data source registry, cache backend and gateway, merge strategy.
package app

import (
	"fmt"
	"log/slog"

	"github.com/apixy/apixy/internal/cache"
	"github.com/apixy/apixy/internal/config"
	"github.com/apixy/apixy/internal/datasource"
	"github.com/apixy/apixy/internal/merge"
	"github.com/apixy/apixy/internal/project"
)

// CleanupFunc releases resources held by a built project.
type CleanupFunc func() error

func noopCleanup() error { return nil }

// Builder assembles projects from configuration. The registries are built
// once and shared across builds.
type Builder struct {
	sources    *datasource.Registry
	strategies *merge.Registry
}

// NewBuilder creates a builder with the built-in source variants and merge
// strategies.
func NewBuilder() *Builder {
	return &Builder{
		sources:    datasource.NewRegistry(),
		strategies: merge.NewRegistry(),
	}
}

// BuildProject turns a validated configuration into a project ready to
// fetch. The returned cleanup releases the cache backend and must be called
// when the project is no longer needed.
func (b *Builder) BuildProject(cfg *config.Config) (*project.Project, CleanupFunc, error) {
	sources, err := b.buildSources(&cfg.Project)
	if err != nil {
		return nil, nil, err
	}

	strategy, err := b.strategies.Get(cfg.Project.MergeStrategy)
	if err != nil {
		return nil, nil, fmt.Errorf("project %q: %w", cfg.Project.Name, err)
	}

	backend, cleanup, err := buildBackend(&cfg.Cache)
	if err != nil {
		return nil, nil, err
	}

	proj, err := project.New(cfg.Project.Name, sources, strategy, cache.NewGateway(backend))
	if err != nil {
		_ = cleanup()
		return nil, nil, err
	}

	slog.Debug("Built project",
		"project", cfg.Project.Name,
		"sources", len(sources),
		"mergeStrategy", strategy.Name(),
		"cacheBackend", cfg.Cache.Backend)

	return proj, cleanup, nil
}

// buildSources decodes every source spec through the registry.
func (b *Builder) buildSources(cfg *config.ProjectConfig) ([]datasource.DataSource, error) {
	sources := make([]datasource.DataSource, 0, len(cfg.Sources))
	for i, spec := range cfg.Sources {
		raw, err := spec.JSON()
		if err != nil {
			return nil, fmt.Errorf("source[%d]: %w", i, err)
		}

		source, err := b.sources.Decode(raw)
		if err != nil {
			return nil, fmt.Errorf("source[%d] (%s): %w", i, spec.Name(), err)
		}
		sources = append(sources, source)
	}
	return sources, nil
}

// buildBackend constructs the configured cache backend.
func buildBackend(cfg *config.CacheConfig) (cache.Backend, CleanupFunc, error) {
	switch cfg.Backend {
	case config.CacheBackendRedis:
		backend, err := cache.NewRedisBackend(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return nil, nil, err
		}
		return backend, backend.Close, nil
	default:
		return cache.NewMemoryBackend(), noopCleanup, nil
	}
}

// Package project aggregates multiple data sources behind one fetch: each
// source is fetched concurrently through the cache gateway, failures are
// collected per source, and the successful results are combined with the
// project's merge strategy.
package project

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/apixy/apixy/internal/cache"
	"github.com/apixy/apixy/internal/datasource"
	"github.com/apixy/apixy/internal/merge"
)

// SourceError records a single source's fetch failure.
type SourceError struct {
	// Source is the name of the failed data source.
	Source string

	// SourceType is the variant tag of the failed data source.
	SourceType string

	// Err is the fetch failure.
	Err error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("source %q (%s): %v", e.Source, e.SourceType, e.Err)
}

func (e *SourceError) Unwrap() error {
	return e.Err
}

// Result is the outcome of fetching a whole project.
type Result struct {
	// Data is the merged document built from the successful fetches.
	Data any

	// Errors lists the sources that failed, in configuration order.
	// Callers decide whether a partial result is acceptable.
	Errors []*SourceError
}

// Project is a named set of data sources with a merge strategy.
type Project struct {
	name     string
	sources  []datasource.DataSource
	strategy merge.Strategy
	gateway  *cache.Gateway
}

// New creates a project. The gateway and strategy are collaborators the
// project does not construct itself.
func New(name string, sources []datasource.DataSource, strategy merge.Strategy, gateway *cache.Gateway) (*Project, error) {
	if name == "" {
		return nil, fmt.Errorf("project name cannot be empty")
	}
	if len(sources) == 0 {
		return nil, fmt.Errorf("project %q: at least one data source is required", name)
	}
	if strategy == nil {
		return nil, fmt.Errorf("project %q: merge strategy is required", name)
	}
	if gateway == nil {
		return nil, fmt.Errorf("project %q: cache gateway is required", name)
	}

	return &Project{
		name:     name,
		sources:  sources,
		strategy: strategy,
		gateway:  gateway,
	}, nil
}

// Name returns the project name.
func (p *Project) Name() string {
	return p.name
}

// FetchData fetches every source concurrently, each independently timed and
// cached, and merges the successes in configuration order. Per-source
// failures do not abort the others; they are reported in the result.
func (p *Project) FetchData(ctx context.Context) (*Result, error) {
	values := make([]any, len(p.sources))
	failures := make([]error, len(p.sources))

	var group errgroup.Group
	for i, source := range p.sources {
		group.Go(func() error {
			value, err := p.gateway.GetOrCompute(ctx, source.Fingerprint(), source.CacheTTL(), source.Fetch)
			if err != nil {
				failures[i] = err
				return nil
			}
			values[i] = value
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	successes := make([]any, 0, len(p.sources))
	var sourceErrors []*SourceError
	for i, source := range p.sources {
		if err := failures[i]; err != nil {
			slog.Warn("Skipping failed data source",
				"project", p.name,
				"source", source.Name(),
				"type", source.Type(),
				"error", err)
			sourceErrors = append(sourceErrors, &SourceError{
				Source:     source.Name(),
				SourceType: source.Type(),
				Err:        err,
			})
			continue
		}
		successes = append(successes, values[i])
	}

	return &Result{
		Data:   p.strategy.Apply(successes),
		Errors: sourceErrors,
	}, nil
}

// Package merge combines the results of multiple data source fetches into
// one document via named, pluggable strategies.
package merge

import (
	"fmt"
	"sort"
	"strconv"
)

// StrategyNameConcatenation is the name of the built-in strategy.
const StrategyNameConcatenation = "concatenation"

// Strategy combines an ordered sequence of per-source results into one
// value. Strategies are stateless; Apply is a pure function of its input.
type Strategy interface {
	// Name returns the registered identity of the strategy.
	Name() string

	// Apply combines the results. Input order is significant and callers
	// pass only successful results.
	Apply(results []any) any
}

// ConcatenationStrategy keys each result by its stringified position.
type ConcatenationStrategy struct{}

var _ Strategy = (*ConcatenationStrategy)(nil)

// Name returns "concatenation".
func (*ConcatenationStrategy) Name() string {
	return StrategyNameConcatenation
}

// Apply maps "0", "1", ... to the corresponding results in input order.
// An empty input yields an empty mapping.
func (*ConcatenationStrategy) Apply(results []any) any {
	combined := make(map[string]any, len(results))
	for index, result := range results {
		combined[strconv.Itoa(index)] = result
	}
	return combined
}

// Registry maps strategy names to instances. It is constructed once and
// read-only afterwards.
type Registry struct {
	strategies map[string]Strategy
}

// NewRegistry builds the registry with the built-in strategies.
func NewRegistry() *Registry {
	return &Registry{
		strategies: map[string]Strategy{
			StrategyNameConcatenation: &ConcatenationStrategy{},
		},
	}
}

// Get returns the strategy registered under name.
func (r *Registry) Get(name string) (Strategy, error) {
	strategy, ok := r.strategies[name]
	if !ok {
		return nil, fmt.Errorf("unknown merge strategy %q", name)
	}
	return strategy, nil
}

// Names returns the registered strategy names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.strategies))
	for name := range r.strategies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"
)

// ComputeFunc produces the value for a cache miss.
type ComputeFunc func(ctx context.Context) (any, error)

// Gateway fronts a compute operation with a keyed, expiring cache.
// Concurrent lookups for the same key share one in-flight computation, so
// a cache-miss race never reaches the origin more than once.
type Gateway struct {
	backend Backend
	group   singleflight.Group
}

// NewGateway creates a gateway over the given backend.
func NewGateway(backend Backend) *Gateway {
	return &Gateway{backend: backend}
}

// GetOrCompute returns the cached value for key when present, and otherwise
// invokes compute, stores the result with the given ttl and returns it.
// A zero ttl stores the entry without expiry. Backend failures degrade to
// a miss rather than failing the fetch; compute failures are returned
// unchanged and nothing is stored.
func (g *Gateway) GetOrCompute(ctx context.Context, key string, ttl time.Duration, compute ComputeFunc) (any, error) {
	if value, ok := g.lookup(ctx, key); ok {
		return value, nil
	}

	value, err, shared := g.group.Do(key, func() (any, error) {
		// A concurrent flight may have filled the entry between the
		// lookup above and acquiring the flight.
		if value, ok := g.lookup(ctx, key); ok {
			return value, nil
		}

		value, err := compute(ctx)
		if err != nil {
			return nil, err
		}

		data, err := json.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("encoding cache entry %s: %w", key, err)
		}
		if err := g.backend.Set(ctx, key, data, ttl); err != nil {
			slog.Warn("Failed to store cache entry", "key", key, "error", err)
		}

		// Decode from the stored bytes so hits and misses observe the
		// exact same value shape.
		return decode(data)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		slog.Debug("Coalesced concurrent fetch", "key", key)
	}

	return value, nil
}

// lookup reads the backend, treating errors as misses.
func (g *Gateway) lookup(ctx context.Context, key string) (any, bool) {
	data, ok, err := g.backend.Get(ctx, key)
	if err != nil {
		slog.Warn("Cache lookup failed, falling through to origin", "key", key, "error", err)
		return nil, false
	}
	if !ok {
		return nil, false
	}

	value, err := decode(data)
	if err != nil {
		slog.Warn("Discarding undecodable cache entry", "key", key, "error", err)
		return nil, false
	}
	return value, true
}

func decode(data []byte) (any, error) {
	var value any
	if err := json.Unmarshal(data, &value); err != nil {
		return nil, fmt.Errorf("decoding cache entry: %w", err)
	}
	return value, nil
}

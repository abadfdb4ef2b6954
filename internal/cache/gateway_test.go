package cache_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apixy/apixy/internal/cache"
)

// countingCompute returns a compute func that counts invocations.
func countingCompute(value any) (cache.ComputeFunc, *atomic.Int64) {
	var calls atomic.Int64
	return func(context.Context) (any, error) {
		calls.Add(1)
		return value, nil
	}, &calls
}

func TestGateway_GetOrCompute_Idempotence(t *testing.T) {
	t.Parallel()

	gateway := cache.NewGateway(cache.NewMemoryBackend())
	compute, calls := countingCompute(map[string]any{"answer": float64(42)})

	first, err := gateway.GetOrCompute(context.Background(), "key", time.Minute, compute)
	require.NoError(t, err)

	second, err := gateway.GetOrCompute(context.Background(), "key", time.Minute, compute)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int64(1), calls.Load(), "second call must be served from cache")
}

func TestGateway_GetOrCompute_KeySensitivity(t *testing.T) {
	t.Parallel()

	gateway := cache.NewGateway(cache.NewMemoryBackend())

	computeA, callsA := countingCompute("a")
	computeB, callsB := countingCompute("b")

	resultA, err := gateway.GetOrCompute(context.Background(), "key-a", 0, computeA)
	require.NoError(t, err)
	resultB, err := gateway.GetOrCompute(context.Background(), "key-b", 0, computeB)
	require.NoError(t, err)

	assert.Equal(t, "a", resultA)
	assert.Equal(t, "b", resultB)
	assert.Equal(t, int64(1), callsA.Load())
	assert.Equal(t, int64(1), callsB.Load())
}

func TestGateway_GetOrCompute_Expiry(t *testing.T) {
	t.Parallel()

	gateway := cache.NewGateway(cache.NewMemoryBackend())
	compute, calls := countingCompute("value")

	_, err := gateway.GetOrCompute(context.Background(), "key", 30*time.Millisecond, compute)
	require.NoError(t, err)

	time.Sleep(60 * time.Millisecond)

	_, err = gateway.GetOrCompute(context.Background(), "key", 30*time.Millisecond, compute)
	require.NoError(t, err)

	assert.Equal(t, int64(2), calls.Load(), "expired entry must be recomputed")
}

func TestGateway_GetOrCompute_ZeroTTLNeverExpires(t *testing.T) {
	t.Parallel()

	gateway := cache.NewGateway(cache.NewMemoryBackend())
	compute, calls := countingCompute("value")

	_, err := gateway.GetOrCompute(context.Background(), "key", 0, compute)
	require.NoError(t, err)

	time.Sleep(30 * time.Millisecond)

	_, err = gateway.GetOrCompute(context.Background(), "key", 0, compute)
	require.NoError(t, err)

	assert.Equal(t, int64(1), calls.Load())
}

func TestGateway_GetOrCompute_ErrorNotCached(t *testing.T) {
	t.Parallel()

	gateway := cache.NewGateway(cache.NewMemoryBackend())

	var calls atomic.Int64
	failing := errors.New("origin down")
	compute := func(context.Context) (any, error) {
		if calls.Add(1) == 1 {
			return nil, failing
		}
		return "recovered", nil
	}

	_, err := gateway.GetOrCompute(context.Background(), "key", time.Minute, compute)
	assert.ErrorIs(t, err, failing)

	result, err := gateway.GetOrCompute(context.Background(), "key", time.Minute, compute)
	require.NoError(t, err)
	assert.Equal(t, "recovered", result)
	assert.Equal(t, int64(2), calls.Load())
}

func TestGateway_GetOrCompute_SingleFlight(t *testing.T) {
	t.Parallel()

	gateway := cache.NewGateway(cache.NewMemoryBackend())

	var calls atomic.Int64
	release := make(chan struct{})
	compute := func(context.Context) (any, error) {
		calls.Add(1)
		<-release
		return "shared", nil
	}

	const concurrency = 8
	results := make([]any, concurrency)

	var started, done sync.WaitGroup
	for i := range concurrency {
		started.Add(1)
		done.Add(1)
		go func() {
			defer done.Done()
			started.Done()
			value, err := gateway.GetOrCompute(context.Background(), "key", 0, compute)
			assert.NoError(t, err)
			results[i] = value
		}()
	}

	started.Wait()
	// Give the goroutines a moment to pile up on the same key.
	time.Sleep(20 * time.Millisecond)
	close(release)
	done.Wait()

	assert.Equal(t, int64(1), calls.Load(), "concurrent identical requests must share one origin call")
	for _, result := range results {
		assert.Equal(t, "shared", result)
	}
}

func TestGateway_BackendFailureFallsThrough(t *testing.T) {
	t.Parallel()

	gateway := cache.NewGateway(&failingBackend{})
	compute, calls := countingCompute("value")

	result, err := gateway.GetOrCompute(context.Background(), "key", time.Minute, compute)
	require.NoError(t, err)
	assert.Equal(t, "value", result)
	assert.Equal(t, int64(1), calls.Load())
}

type failingBackend struct{}

func (*failingBackend) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, errors.New("backend unavailable")
}

func (*failingBackend) Set(context.Context, string, []byte, time.Duration) error {
	return errors.New("backend unavailable")
}

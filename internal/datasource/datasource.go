package datasource

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/apixy/apixy/internal/projection"
)

const (
	// SourceTypeHTTP is the type for data fetched from HTTP APIs
	SourceTypeHTTP = "http"

	// SourceTypeMongo is the type for data fetched from MongoDB collections
	SourceTypeMongo = "mongo"

	// SourceTypeSQL is the type for data fetched from SQL databases
	SourceTypeSQL = "sql"
)

// DefaultTimeout is applied when a configuration does not set one.
const DefaultTimeout = 60 * time.Second

// DataSource is an interface for fetching projected data from one remote
// origin. Implementations are immutable value objects validated at
// construction time.
type DataSource interface {
	// Type returns the variant discriminant tag (http, mongo, sql).
	Type() string

	// Name returns the display/cache-labeling name of the source.
	Name() string

	// Fingerprint returns a deterministic digest of the full configuration,
	// suitable as a cache key. Two configurations differing in any field
	// produce different fingerprints; identical configurations share one.
	Fingerprint() string

	// CacheTTL returns how long a cached fetch result stays valid.
	// Zero means the entry never expires.
	CacheTTL() time.Duration

	// Fetch retrieves data from the origin and returns the result of
	// applying the configured projection. It fails with a *FetchError on
	// transport or protocol problems and with context.DeadlineExceeded
	// when the configured timeout elapses.
	Fetch(ctx context.Context) (any, error)
}

// Common holds the configuration fields shared by every variant.
type Common struct {
	// ID is the persistence identity assigned by an external collaborator.
	// Absent for transient/input instances.
	ID *int64 `json:"id,omitempty" yaml:"id,omitempty"`

	// Type is the variant discriminant tag. May be left empty when the
	// variant is already known from context; when set it must match.
	Type string `json:"type,omitempty" yaml:"type,omitempty"`

	// Name labels the source for display and cache purposes.
	Name string `json:"name" yaml:"name"`

	// URL is the connection URI. Scheme semantics depend on the variant.
	URL string `json:"url" yaml:"url"`

	// JSONPath is a JMESPath query applied to the raw fetched data.
	JSONPath string `json:"jsonpath" yaml:"jsonpath"`

	// Timeout bounds the whole fetch, in seconds. Defaults to 60.
	Timeout float64 `json:"timeout,omitempty" yaml:"timeout,omitempty"`

	// CacheExpire is the cache entry lifetime in seconds. Zero or absent
	// means the entry never expires.
	CacheExpire *int `json:"cache_expire,omitempty" yaml:"cache_expire,omitempty"`
}

// base carries the validated common state embedded by every variant.
type base struct {
	common    Common
	timeout   time.Duration
	projector *projection.Projector
}

func (b *base) Name() string {
	return b.common.Name
}

func (b *base) CacheTTL() time.Duration {
	if b.common.CacheExpire == nil {
		return 0
	}
	return time.Duration(*b.common.CacheExpire) * time.Second
}

// newBase validates the shared fields and compiles the projection.
// It normalizes the Type field to the variant's tag.
func newBase(c *Common, sourceType string) (base, error) {
	if c.Type != "" && c.Type != sourceType {
		return base{}, newValidationError("type", "expected %q, got %q", sourceType, c.Type)
	}
	c.Type = sourceType

	if c.Name == "" {
		return base{}, newValidationError("name", "cannot be empty")
	}

	if c.URL == "" {
		return base{}, newValidationError("url", "cannot be empty")
	}

	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout.Seconds()
	}
	if c.Timeout <= 0 {
		return base{}, newValidationError("timeout", "must be greater than zero, got %v", c.Timeout)
	}

	if c.CacheExpire != nil && *c.CacheExpire < 0 {
		return base{}, newValidationError("cache_expire", "must not be negative, got %d", *c.CacheExpire)
	}

	projector, err := projection.Compile(c.JSONPath)
	if err != nil {
		return base{}, newValidationError("jsonpath", "%v", err)
	}

	return base{
		common:    *c,
		timeout:   time.Duration(c.Timeout * float64(time.Second)),
		projector: projector,
	}, nil
}

// classify maps a fetch-time failure to the contract's error taxonomy.
// Deadline expiry passes through so callers can match it with errors.Is;
// everything else becomes a *FetchError with the cause chained.
func (b *base) classify(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("fetching %s source %q: %w", b.common.Type, b.common.Name, context.DeadlineExceeded)
	}

	slog.Error("Data source fetch failed",
		"source", b.common.Name,
		"type", b.common.Type,
		"error", err)

	return &FetchError{
		Source:     b.common.Name,
		SourceType: b.common.Type,
		Err:        err,
	}
}

// project normalizes raw data to plain JSON values and applies the
// compiled projection.
func (b *base) project(raw any) (any, error) {
	normalized, err := normalize(raw)
	if err != nil {
		return nil, &FetchError{Source: b.common.Name, SourceType: b.common.Type, Err: err}
	}

	result, err := b.projector.Apply(normalized)
	if err != nil {
		return nil, &FetchError{Source: b.common.Name, SourceType: b.common.Type, Err: err}
	}
	return result, nil
}

// fingerprint digests the variant's full configuration, minus the
// persistence identity: a persisted source and a transient copy with the
// same settings must share one cache entry.
func fingerprint(cfg any) string {
	// Struct fields marshal in declaration order and map keys are sorted,
	// so the encoding is deterministic for a given configuration.
	data, err := json.Marshal(cfg)
	if err != nil {
		// Configurations are built from JSON/YAML payloads; they always
		// marshal back.
		panic(fmt.Sprintf("fingerprint: %v", err))
	}
	return fmt.Sprintf("%x", sha256.Sum256(data))
}

// normalize round-trips a value through JSON so that driver-specific types
// (bson documents, byte slices, numeric variants) become the plain
// maps/slices/scalars the projector operates on.
func normalize(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("normalizing fetched data: %w", err)
	}

	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("normalizing fetched data: %w", err)
	}
	return out, nil
}

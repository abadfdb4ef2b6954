// Package config provides configuration loading and validation for the
// apixy CLI.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix for environment variables (e.g. APIXY_LOG_LEVEL).
const EnvPrefix = "APIXY"

const (
	// CacheBackendMemory keeps cache entries in process memory.
	CacheBackendMemory = "memory"

	// CacheBackendRedis shares cache entries through a Redis server.
	CacheBackendRedis = "redis"
)

// DefaultMergeStrategy is used when the project does not select one.
const DefaultMergeStrategy = "concatenation"

// Option defines the interface for configuration options
type Option func(*loaderConfig) error

// loaderConfig defines the configuration for loading a configuration
type loaderConfig struct {
	path string
}

// WithConfigPath loads configuration from a YAML file
func WithConfigPath(path string) Option {
	return func(cfg *loaderConfig) error {
		if path == "" {
			return fmt.Errorf("path is required")
		}

		// Resolve symlinks to prevent symlink attacks.
		// Note that this calls filepath.Clean internally.
		realPath, err := filepath.EvalSymlinks(path)
		if err != nil {
			return fmt.Errorf("failed to evaluate symlinks: %w", err)
		}

		cfg.path = realPath
		return nil
	}
}

// Config represents the root configuration structure
type Config struct {
	Cache   CacheConfig   `yaml:"cache"`
	Project ProjectConfig `yaml:"project"`
}

// CacheConfig selects and configures the cache backend
type CacheConfig struct {
	// Backend is "memory" or "redis". Defaults to "memory".
	Backend string `yaml:"backend,omitempty"`

	// Redis holds the connection settings when Backend is "redis".
	Redis *RedisConfig `yaml:"redis,omitempty"`
}

// RedisConfig defines Redis connection settings
type RedisConfig struct {
	// Addr is the host:port of the Redis server
	Addr string `yaml:"addr"`

	// Password is the optional server password
	Password string `yaml:"password,omitempty"`

	// DB is the logical database number
	DB int `yaml:"db,omitempty"`
}

// ProjectConfig defines one project: its data sources and how their
// results are combined
type ProjectConfig struct {
	// Name is the identifier for this project
	Name string `yaml:"name"`

	// MergeStrategy selects the registered merge strategy by name.
	// Defaults to "concatenation".
	MergeStrategy string `yaml:"mergeStrategy,omitempty"`

	// Sources is the ordered list of data source configurations. Each
	// entry carries a "type" discriminant tag; full validation is
	// delegated to the data source registry.
	Sources []SourceSpec `yaml:"sources"`
}

// SourceSpec is a polymorphic data source payload kept as a raw mapping
// until the registry decodes it into a concrete variant.
type SourceSpec map[string]any

// Type returns the discriminant tag of the spec, or "" when absent.
func (s SourceSpec) Type() string {
	tag, _ := s["type"].(string)
	return tag
}

// Name returns the display name of the spec, or "" when absent.
func (s SourceSpec) Name() string {
	name, _ := s["name"].(string)
	return name
}

// JSON re-encodes the spec for the data source registry.
func (s SourceSpec) JSON() (json.RawMessage, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encoding source %q: %w", s.Name(), err)
	}
	return data, nil
}

// LoadConfig loads and parses configuration from a YAML file
func LoadConfig(opts ...Option) (*Config, error) {
	loaderCfg := &loaderConfig{}
	for _, opt := range opts {
		if err := opt(loaderCfg); err != nil {
			return nil, err
		}
	}

	if loaderCfg.path == "" {
		return nil, fmt.Errorf("path is required")
	}

	data, err := os.ReadFile(loaderCfg.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}

	config.applyDefaults()

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

func (c *Config) applyDefaults() {
	if c.Cache.Backend == "" {
		c.Cache.Backend = CacheBackendMemory
	}
	if c.Project.MergeStrategy == "" {
		c.Project.MergeStrategy = DefaultMergeStrategy
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	if err := validateCacheConfig(&c.Cache); err != nil {
		return err
	}
	return validateProjectConfig(&c.Project)
}

// validateCacheConfig validates the cache backend selection
func validateCacheConfig(cache *CacheConfig) error {
	switch cache.Backend {
	case CacheBackendMemory:
		return nil
	case CacheBackendRedis:
		if cache.Redis == nil {
			return fmt.Errorf("cache.redis configuration is required for the redis backend")
		}
		if cache.Redis.Addr == "" {
			return fmt.Errorf("cache.redis.addr is required")
		}
		return nil
	default:
		return fmt.Errorf("cache.backend must be %s or %s, got %q",
			CacheBackendMemory, CacheBackendRedis, cache.Backend)
	}
}

// validateProjectConfig validates a project configuration
func validateProjectConfig(project *ProjectConfig) error {
	if project.Name == "" {
		return fmt.Errorf("project.name is required")
	}

	if len(project.Sources) == 0 {
		return fmt.Errorf("project %q: at least one source must be configured", project.Name)
	}

	sourceNames := make(map[string]bool)
	for i, source := range project.Sources {
		prefix := fmt.Sprintf("project %q: source[%d]", project.Name, i)

		if source.Type() == "" {
			return fmt.Errorf("%s: type is required", prefix)
		}
		if source.Name() == "" {
			return fmt.Errorf("%s: name is required", prefix)
		}
		if sourceNames[source.Name()] {
			return fmt.Errorf("%s: duplicate source name %q", prefix, source.Name())
		}
		sourceNames[source.Name()] = true
	}

	return nil
}

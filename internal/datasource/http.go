package datasource

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

const (
	// maxResponseSize is the maximum allowed response body size (100MB)
	maxResponseSize = 100 * 1024 * 1024

	// userAgent is the user agent string for outgoing requests
	userAgent = "apixy/1.0"
)

var allowedMethods = map[string]bool{
	http.MethodGet:    true,
	http.MethodPost:   true,
	http.MethodPut:    true,
	http.MethodDelete: true,
}

// HTTPConfig is the configuration of an HTTP data source.
type HTTPConfig struct {
	Common `yaml:",inline"`

	// Method is the request method. One of GET, POST, PUT, DELETE.
	Method string `json:"method" yaml:"method"`

	// Body is an optional JSON request body. When set it must be non-empty.
	Body map[string]any `json:"body,omitempty" yaml:"body,omitempty"`

	// Headers are optional extra request headers. When set they must be
	// non-empty.
	Headers map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
}

// HTTPDataSource fetches data from an external JSON API.
type HTTPDataSource struct {
	base
	cfg    HTTPConfig
	fp     string
	client *http.Client
}

var _ DataSource = (*HTTPDataSource)(nil)

// NewHTTP validates the configuration and returns an HTTP data source.
func NewHTTP(cfg HTTPConfig) (*HTTPDataSource, error) {
	b, err := newBase(&cfg.Common, SourceTypeHTTP)
	if err != nil {
		return nil, err
	}

	parsed, err := url.Parse(cfg.URL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return nil, newValidationError("url", "must be an http(s) URL, got %q", cfg.URL)
	}

	if !allowedMethods[cfg.Method] {
		return nil, newValidationError("method", "must be one of GET, POST, PUT, DELETE, got %q", cfg.Method)
	}

	// An empty mapping is rejected rather than treated as absent.
	if cfg.Body != nil && len(cfg.Body) == 0 {
		return nil, newValidationError("body", "must not be empty when set")
	}
	if cfg.Headers != nil && len(cfg.Headers) == 0 {
		return nil, newValidationError("headers", "must not be empty when set")
	}

	fpCfg := cfg
	fpCfg.ID = nil

	return &HTTPDataSource{
		base:   b,
		cfg:    cfg,
		fp:     fingerprint(fpCfg),
		client: http.DefaultClient,
	}, nil
}

// Type returns the variant tag.
func (*HTTPDataSource) Type() string {
	return SourceTypeHTTP
}

// Fingerprint returns the cache key digest of this configuration.
func (s *HTTPDataSource) Fingerprint() string {
	return s.fp
}

// Fetch issues the configured request, parses the JSON response body and
// returns the projected result. The timeout covers the entire request and
// parse.
func (s *HTTPDataSource) Fetch(ctx context.Context) (any, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var body io.Reader
	if s.cfg.Body != nil {
		payload, err := json.Marshal(s.cfg.Body)
		if err != nil {
			return nil, s.classify(ctx, fmt.Errorf("encoding request body: %w", err))
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, s.cfg.Method, s.cfg.URL, body)
	if err != nil {
		return nil, s.classify(ctx, fmt.Errorf("creating request: %w", err))
	}

	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for key, value := range s.cfg.Headers {
		req.Header.Set(key, value)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, s.classify(ctx, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, s.classify(ctx, fmt.Errorf("unexpected status %s", resp.Status))
	}

	var data any
	limited := io.LimitReader(resp.Body, maxResponseSize)
	if err := json.NewDecoder(limited).Decode(&data); err != nil {
		return nil, s.classify(ctx, fmt.Errorf("decoding response body: %w", err))
	}

	return s.project(data)
}

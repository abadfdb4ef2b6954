package app_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apixy/apixy/internal/app"
	"github.com/apixy/apixy/internal/config"
)

func demoConfig(url string) *config.Config {
	return &config.Config{
		Cache: config.CacheConfig{Backend: config.CacheBackendMemory},
		Project: config.ProjectConfig{
			Name:          "demo",
			MergeStrategy: "concatenation",
			Sources: []config.SourceSpec{
				{
					"type":     "http",
					"name":     "items-api",
					"url":      url,
					"jsonpath": "items[*].id",
					"method":   "GET",
				},
			},
		},
	}
}

func TestBuilder_BuildProject(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"items": [{"id": 1}, {"id": 2}]}`))
	}))
	t.Cleanup(server.Close)

	proj, cleanup, err := app.NewBuilder().BuildProject(demoConfig(server.URL))
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, cleanup())
	})

	assert.Equal(t, "demo", proj.Name())

	result, err := proj.FetchData(context.Background())
	require.NoError(t, err)
	assert.Empty(t, result.Errors)
	assert.Equal(t, map[string]any{"0": []any{float64(1), float64(2)}}, result.Data)
}

func TestBuilder_BuildProject_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		mutate        func(*config.Config)
		errorContains string
	}{
		{
			name: "invalid source config",
			mutate: func(cfg *config.Config) {
				cfg.Project.Sources[0]["jsonpath"] = "items["
			},
			errorContains: "jsonpath",
		},
		{
			name: "unknown source type",
			mutate: func(cfg *config.Config) {
				cfg.Project.Sources[0]["type"] = "graphql"
			},
			errorContains: "unknown source type",
		},
		{
			name: "unknown merge strategy",
			mutate: func(cfg *config.Config) {
				cfg.Project.MergeStrategy = "zip"
			},
			errorContains: "unknown merge strategy",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := demoConfig("https://example.com/items")
			tt.mutate(cfg)

			_, _, err := app.NewBuilder().BuildProject(cfg)
			require.Error(t, err)
			assert.ErrorContains(t, err, tt.errorContains)
		})
	}
}

package datasource_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apixy/apixy/internal/datasource"
)

func TestRegistry_Types(t *testing.T) {
	t.Parallel()

	registry := datasource.NewRegistry()
	assert.Equal(t, []string{"http", "mongo", "sql"}, registry.Types())
}

func TestRegistry_Decode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		payload       string
		expectedType  string
		expectError   bool
		errorContains string
	}{
		{
			name: "http variant",
			payload: `{
				"type": "http",
				"name": "api",
				"url": "https://example.com/items",
				"jsonpath": "items[*].id",
				"method": "GET"
			}`,
			expectedType: datasource.SourceTypeHTTP,
		},
		{
			name: "mongo variant",
			payload: `{
				"type": "mongo",
				"name": "users",
				"url": "mongodb://localhost:27017",
				"jsonpath": "[*].name",
				"database": "appdb",
				"collection": "users",
				"query": {"active": true}
			}`,
			expectedType: datasource.SourceTypeMongo,
		},
		{
			name: "sql variant",
			payload: `{
				"type": "sql",
				"name": "orders",
				"url": "postgres://localhost:5432/appdb",
				"jsonpath": "[*].total",
				"query": "SELECT total FROM orders"
			}`,
			expectedType: datasource.SourceTypeSQL,
		},
		{
			name:          "unknown type tag",
			payload:       `{"type": "graphql", "name": "x", "url": "https://example.com", "jsonpath": "@"}`,
			expectError:   true,
			errorContains: `unknown source type "graphql"`,
		},
		{
			name:          "missing type tag",
			payload:       `{"name": "x", "url": "https://example.com", "jsonpath": "@"}`,
			expectError:   true,
			errorContains: "unknown source type",
		},
		{
			name:          "not an object",
			payload:       `[1, 2, 3]`,
			expectError:   true,
			errorContains: "payload",
		},
		{
			name: "extra fields rejected",
			payload: `{
				"type": "http",
				"name": "api",
				"url": "https://example.com/items",
				"jsonpath": "@",
				"method": "GET",
				"surprise": true
			}`,
			expectError:   true,
			errorContains: "payload",
		},
		{
			name: "variant field validation delegated",
			payload: `{
				"type": "http",
				"name": "api",
				"url": "https://example.com/items",
				"jsonpath": "@",
				"method": "PATCH"
			}`,
			expectError:   true,
			errorContains: "method",
		},
	}

	registry := datasource.NewRegistry()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			source, err := registry.Decode(json.RawMessage(tt.payload))
			if tt.expectError {
				require.Error(t, err)
				var validationErr *datasource.ValidationError
				assert.ErrorAs(t, err, &validationErr)
				assert.ErrorContains(t, err, tt.errorContains)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.expectedType, source.Type())
		})
	}
}

func TestRegistry_DecodeInput(t *testing.T) {
	t.Parallel()

	registry := datasource.NewRegistry()

	withID := json.RawMessage(`{
		"id": 7,
		"type": "http",
		"name": "api",
		"url": "https://example.com/items",
		"jsonpath": "@",
		"method": "GET"
	}`)

	_, err := registry.DecodeInput(withID)
	require.Error(t, err)
	assert.ErrorContains(t, err, "id")

	withoutID := json.RawMessage(`{
		"type": "http",
		"name": "api",
		"url": "https://example.com/items",
		"jsonpath": "@",
		"method": "GET"
	}`)

	source, err := registry.DecodeInput(withoutID)
	require.NoError(t, err)
	assert.Equal(t, datasource.SourceTypeHTTP, source.Type())

	// Decode, by contrast, accepts persisted payloads carrying an id.
	source, err = registry.Decode(withID)
	require.NoError(t, err)
	assert.Equal(t, "api", source.Name())
}

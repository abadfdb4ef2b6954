package projection_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apixy/apixy/internal/projection"
)

func TestCompile(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		expr        string
		expectError bool
	}{
		{name: "identity", expr: "@"},
		{name: "simple field", expr: "items"},
		{name: "nested field", expr: "data.items"},
		{name: "wildcard projection", expr: "items[*].id"},
		{name: "slice", expr: "items[0:2]"},
		{name: "multiselect hash", expr: "{ids: items[*].id, total: length(items)}"},
		{name: "unterminated bracket", expr: "items[", expectError: true},
		{name: "dangling dot", expr: "items.", expectError: true},
		{name: "unbalanced brace", expr: "{a: b", expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			p, err := projection.Compile(tt.expr)
			if tt.expectError {
				assert.Error(t, err)
				assert.Nil(t, p)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expr, p.Expression())
		})
	}
}

func TestProjector_Apply(t *testing.T) {
	t.Parallel()

	var doc any
	require.NoError(t, json.Unmarshal([]byte(`{"items": [{"id": 1}, {"id": 2}]}`), &doc))

	tests := []struct {
		name     string
		expr     string
		expected any
	}{
		{name: "wildcard ids", expr: "items[*].id", expected: []any{float64(1), float64(2)}},
		{name: "identity", expr: "@", expected: doc},
		{name: "missing field yields nil", expr: "nothing.here", expected: nil},
		{name: "first element", expr: "items[0].id", expected: float64(1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			p, err := projection.Compile(tt.expr)
			require.NoError(t, err)

			result, err := p.Apply(doc)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestProjector_ApplyOnSlice(t *testing.T) {
	t.Parallel()

	p, err := projection.Compile("[*].name")
	require.NoError(t, err)

	rows := []any{
		map[string]any{"name": "a"},
		map[string]any{"name": "b"},
	}

	result, err := p.Apply(rows)
	require.NoError(t, err)
	assert.Equal(t, []any{"a", "b"}, result)
}

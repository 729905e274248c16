package typeutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// =============================================================================
// MAP[STRING]ANY TESTS
// =============================================================================

func TestSafeMapStringAny(t *testing.T) {
	tests := []struct {
		name     string
		input    any
		wantMap  map[string]any
		wantBool bool
	}{
		{
			name:     "valid map",
			input:    map[string]any{"key": "value"},
			wantMap:  map[string]any{"key": "value"},
			wantBool: true,
		},
		{
			name:     "nil value",
			input:    nil,
			wantMap:  nil,
			wantBool: false,
		},
		{
			name:     "wrong type string",
			input:    "not a map",
			wantMap:  nil,
			wantBool: false,
		},
		{
			name:     "wrong type int",
			input:    42,
			wantMap:  nil,
			wantBool: false,
		},
		{
			name:     "empty map",
			input:    map[string]any{},
			wantMap:  map[string]any{},
			wantBool: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := SafeMapStringAny(tt.input)
			assert.Equal(t, tt.wantBool, ok)
			assert.Equal(t, tt.wantMap, got)
		})
	}
}

// =============================================================================
// NESTED VALUE TESTS
// =============================================================================

func TestGetNestedValue(t *testing.T) {
	data := map[string]any{
		"user": map[string]any{
			"profile": map[string]any{
				"name": "John",
				"age":  30,
			},
		},
		"simple": "value",
	}

	tests := []struct {
		name      string
		path      string
		wantValue any
		wantBool  bool
	}{
		{
			name:      "simple path",
			path:      "simple",
			wantValue: "value",
			wantBool:  true,
		},
		{
			name:      "nested path",
			path:      "user.profile.name",
			wantValue: "John",
			wantBool:  true,
		},
		{
			name:      "nested int",
			path:      "user.profile.age",
			wantValue: 30,
			wantBool:  true,
		},
		{
			name:      "missing key",
			path:      "user.missing",
			wantValue: nil,
			wantBool:  false,
		},
		{
			name:      "empty path",
			path:      "",
			wantValue: nil,
			wantBool:  false,
		},
		{
			name:      "path through non-map",
			path:      "simple.nested",
			wantValue: nil,
			wantBool:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := GetNestedValue(data, tt.path)
			assert.Equal(t, tt.wantBool, ok)
			assert.Equal(t, tt.wantValue, got)
		})
	}
}

func TestGetNestedValue_NilMap(t *testing.T) {
	_, ok := GetNestedValue(nil, "any.path")
	assert.False(t, ok)
}

// =============================================================================
// SPLIT PATH TESTS
// =============================================================================

func TestSplitPath(t *testing.T) {
	tests := []struct {
		path string
		want []string
	}{
		{"", nil},
		{"simple", []string{"simple"}},
		{"a.b.c", []string{"a", "b", "c"}},
		{"user.profile.name", []string{"user", "profile", "name"}},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got := splitPath(tt.path)
			assert.Equal(t, tt.want, got)
		})
	}
}

package milvus

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arcanum-labs/grimoire/internal/core/domain"
)

// Connection and collection behaviour need a live Milvus instance, so
// these tests cover configuration validation and the pure helpers.

// ==================== NewStore Tests ====================

func TestNewStore_RequiresAddress(t *testing.T) {
	_, err := NewStore(context.Background(), Config{Dimensions: 768})

	require.Error(t, err)
	assert.Equal(t, domain.CodeInvalidInput, domain.CodeOf(err))
	assert.Contains(t, err.Error(), "address")
}

func TestNewStore_RequiresPositiveDimensions(t *testing.T) {
	_, err := NewStore(context.Background(), Config{Address: "localhost:19530"})

	require.Error(t, err)
	assert.Equal(t, domain.CodeInvalidInput, domain.CodeOf(err))
	assert.Contains(t, err.Error(), "dimensions")
}

// ==================== Helper Tests ====================

func TestQuoteExpr(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "plain ID",
			input:    "doc-123",
			expected: `"doc-123"`,
		},
		{
			name:     "embedded quote",
			input:    `doc-"a"`,
			expected: `"doc-\"a\""`,
		},
		{
			name:     "embedded backslash",
			input:    `doc\a`,
			expected: `"doc\\a"`,
		},
		{
			name:     "empty",
			input:    "",
			expected: `""`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, quoteExpr(tt.input))
		})
	}
}

func TestClampScore(t *testing.T) {
	tests := []struct {
		name     string
		score    float32
		expected float64
	}{
		{
			name:     "negative clamps to zero",
			score:    -0.5,
			expected: 0,
		},
		{
			name:     "zero stays zero",
			score:    0,
			expected: 0,
		},
		{
			name:     "in-range passes through",
			score:    0.73,
			expected: 0.73,
		},
		{
			name:     "above one clamps to one",
			score:    1.2,
			expected: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, clampScore(tt.score), 0.0001)
		})
	}
}

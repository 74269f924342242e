package processor

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunk_SlidingWindows(t *testing.T) {
	chunks, err := Chunk("abcdefghij", 4, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"abcd", "cdef", "efgh", "ghij"}, chunks)
}

func TestChunk_ShortTextIsSingleChunk(t *testing.T) {
	chunks, err := Chunk("  net profit rose  ", 1000, 200)
	require.NoError(t, err)
	assert.Equal(t, []string{"net profit rose"}, chunks)
}

func TestChunk_EmptyInput(t *testing.T) {
	for _, in := range []string{"", "   \n\t "} {
		chunks, err := Chunk(in, 10, 2)
		require.NoError(t, err)
		assert.Empty(t, chunks)
	}
}

func TestChunk_InvalidWindow(t *testing.T) {
	tests := []struct {
		name     string
		maxChars int
		overlap  int
	}{
		{"zero overlap", 10, 0},
		{"negative overlap", 10, -1},
		{"overlap equals size", 10, 10},
		{"overlap exceeds size", 10, 11},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Chunk("some text", tt.maxChars, tt.overlap)
			assert.ErrorIs(t, err, ErrInvalidWindow)
		})
	}
}

func TestChunk_CountsCodePoints(t *testing.T) {
	chunks, err := Chunk("ééééé", 3, 1)
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	for _, c := range chunks {
		assert.Equal(t, 3, utf8.RuneCountInString(c))
	}
}

func TestChunk_BoundedAndCovering(t *testing.T) {
	text := strings.Repeat("The company reported strong growth in revenue. ", 60)
	maxChars, overlap := 120, 30

	chunks, err := Chunk(text, maxChars, overlap)
	require.NoError(t, err)
	require.NotEmpty(t, chunks)

	for _, c := range chunks {
		assert.LessOrEqual(t, utf8.RuneCountInString(c), maxChars)
		assert.NotEmpty(t, c)
		assert.Equal(t, strings.TrimSpace(c), c)
	}

	trimmed := strings.TrimSpace(text)
	assert.True(t, strings.HasPrefix(trimmed, chunks[0]))
	assert.True(t, strings.HasSuffix(trimmed, chunks[len(chunks)-1]))
}

func TestChunk_Deterministic(t *testing.T) {
	text := strings.Repeat("balance sheet ", 100)
	a, err := Chunk(text, 50, 10)
	require.NoError(t, err)
	b, err := Chunk(text, 50, 10)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

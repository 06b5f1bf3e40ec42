package document

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFixedChunkerSplitsLongText(t *testing.T) {
	text := strings.TrimSpace(strings.Repeat("The vendor must provide support. ", 20))

	chunks, err := NewFixedChunker(100, 20).Chunk(context.Background(), text)
	require.NoError(t, err)
	require.Greater(t, len(chunks), 1)

	for i, c := range chunks {
		require.Equal(t, i, c.Index)
		require.Empty(t, c.Level)
		require.NotEmpty(t, strings.TrimSpace(c.Text))
		require.LessOrEqual(t, len(c.Text), 100)
	}
}

func TestFixedChunkerKeepsShortTextWhole(t *testing.T) {
	chunks, err := NewFixedChunker(1000, 100).Chunk(context.Background(), "short requirement")
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	require.Equal(t, "short requirement", chunks[0].Text)
}

func TestFixedChunkerDropsBlankInput(t *testing.T) {
	chunks, err := NewFixedChunker(100, 0).Chunk(context.Background(), "   \n\n  ")
	require.NoError(t, err)
	require.Empty(t, chunks)
}

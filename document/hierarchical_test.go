package document

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHierarchicalChunkerEmitsParentsThenChildren(t *testing.T) {
	scope := strings.TrimSpace(strings.Repeat("Network modernization across all sites is required. ", 6))
	doc := "intro line\n\n# Scope\n" + scope + "\n\n# Pricing\nOne short paragraph."

	chunks, err := NewHierarchicalChunker(50, 0).Chunk(context.Background(), doc)
	require.NoError(t, err)

	for i, c := range chunks {
		require.Equal(t, i, c.Index)
	}

	// Preamble becomes a headingless parent with no duplicate child.
	require.Equal(t, LevelParent, chunks[0].Level)
	require.Empty(t, chunks[0].Section)
	require.Equal(t, "intro line", chunks[0].Text)

	// The long section gets a capped parent followed by its children.
	require.Equal(t, LevelParent, chunks[1].Level)
	require.Equal(t, "Scope", chunks[1].Section)
	require.LessOrEqual(t, len(chunks[1].Text), 200)

	i := 2
	scopeChildren := 0
	for ; i < len(chunks) && chunks[i].Level == LevelChild; i++ {
		require.Equal(t, "Scope", chunks[i].Section)
		require.LessOrEqual(t, len(chunks[i].Text), 50)
		scopeChildren++
	}
	require.GreaterOrEqual(t, scopeChildren, 2)

	// A section that fits one child keeps only the parent.
	require.Equal(t, len(chunks)-1, i)
	require.Equal(t, LevelParent, chunks[i].Level)
	require.Equal(t, "Pricing", chunks[i].Section)
}

func TestHierarchicalChunkerEmptyInput(t *testing.T) {
	chunks, err := NewHierarchicalChunker(100, 0).Chunk(context.Background(), "   \n  ")
	require.NoError(t, err)
	require.Empty(t, chunks)
}

func TestParseSectionsSkipsFencedHeadings(t *testing.T) {
	doc := "# Alpha\nbefore\n\n```\n# not a heading\n```\n\nafter"

	sections := parseSections(doc)
	require.Len(t, sections, 1)
	require.Equal(t, "Alpha", sections[0].heading)
	require.Contains(t, sections[0].content, "# not a heading")
}

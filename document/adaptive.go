package document

import (
	"context"
	"strings"
)

// AdaptiveChunker elects a strategy from the document's shape: hierarchical
// when there is real heading structure, semantic for long unstructured text
// when an embedder is available, fixed otherwise.
type AdaptiveChunker struct {
	fixed        *FixedChunker
	hierarchical *HierarchicalChunker
	semantic     *SemanticChunker
	chunkSize    int
}

// NewAdaptiveChunker builds all three candidates up front. embedder may be
// nil, which removes semantic from the election.
func NewAdaptiveChunker(size, overlap int, embedder Embedder) *AdaptiveChunker {
	if size <= 0 {
		size = 1000
	}
	a := &AdaptiveChunker{
		fixed:        NewFixedChunker(size, overlap),
		hierarchical: NewHierarchicalChunker(size, overlap),
		chunkSize:    size,
	}
	if embedder != nil {
		a.semantic = NewSemanticChunker(embedder, size)
	}
	return a
}

func (a *AdaptiveChunker) Chunk(ctx context.Context, text string) ([]Chunk, error) {
	switch {
	case countHeadings(text) >= 3:
		return a.hierarchical.Chunk(ctx, text)
	case a.semantic != nil && len(text) > a.chunkSize*8:
		return a.semantic.Chunk(ctx, text)
	default:
		return a.fixed.Chunk(ctx, text)
	}
}

func countHeadings(text string) int {
	count := 0
	inFence := false
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") || strings.HasPrefix(trimmed, "~~~") {
			inFence = !inFence
		}
		if !inFence && strings.HasPrefix(trimmed, "#") {
			count++
		}
	}
	return count
}

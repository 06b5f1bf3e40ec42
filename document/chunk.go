// Package document turns raw RFP uploads into clean text and indexable
// chunks.
package document

import (
	"context"
	"fmt"

	"github.com/indrajit-intglobal/novaintel-latest-sub000/common/config"
)

// Chunk levels for hierarchical output.
const (
	LevelParent = "parent"
	LevelChild  = "child"
)

// Chunk is one indexable slice of a document. Hierarchical strategies emit
// children directly after their parent, so consumers can link them by
// walking the slice in order.
type Chunk struct {
	Text    string
	Index   int
	Level   string // LevelParent, LevelChild, or "" for flat chunks
	Section string
}

// Embedder is the slice of the embedding service the semantic strategy
// needs.
type Embedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// Chunker splits extracted text into chunks.
type Chunker interface {
	Chunk(ctx context.Context, text string) ([]Chunk, error)
}

// NewChunker builds the configured strategy. The embedder may be nil for
// strategies that do not use one; adaptive then never elects semantic.
func NewChunker(cfg config.RetrievalConfig, embedder Embedder) (Chunker, error) {
	switch cfg.ChunkStrategy {
	case "fixed":
		return NewFixedChunker(cfg.ChunkSize, cfg.ChunkOverlap), nil
	case "semantic":
		if embedder == nil {
			return nil, fmt.Errorf("semantic chunking requires an embedder")
		}
		return NewSemanticChunker(embedder, cfg.ChunkSize), nil
	case "hierarchical":
		return NewHierarchicalChunker(cfg.ChunkSize, cfg.ChunkOverlap), nil
	case "adaptive":
		return NewAdaptiveChunker(cfg.ChunkSize, cfg.ChunkOverlap, embedder), nil
	default:
		return nil, fmt.Errorf("unknown chunk strategy: %s", cfg.ChunkStrategy)
	}
}

package document

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/textsplitter"
)

// FixedChunker splits on recursive character boundaries with overlap.
type FixedChunker struct {
	splitter textsplitter.RecursiveCharacter
}

// NewFixedChunker builds the splitter with the given size and overlap in
// characters.
func NewFixedChunker(size, overlap int) *FixedChunker {
	return &FixedChunker{
		splitter: textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(size),
			textsplitter.WithChunkOverlap(overlap),
		),
	}
}

func (c *FixedChunker) Chunk(ctx context.Context, text string) ([]Chunk, error) {
	pieces, err := c.splitter.SplitText(text)
	if err != nil {
		return nil, fmt.Errorf("fixed split failed: %w", err)
	}

	chunks := make([]Chunk, 0, len(pieces))
	for _, piece := range pieces {
		if strings.TrimSpace(piece) == "" {
			continue
		}
		chunks = append(chunks, Chunk{Text: piece, Index: len(chunks)})
	}
	return chunks, nil
}

package document

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/indrajit-intglobal/novaintel-latest-sub000/vectorstore"
)

// SemanticChunker groups adjacent paragraphs while their embeddings stay
// similar and breaks where similarity drops. The breakpoint threshold is one
// standard deviation below the mean of adjacent similarities, so it adapts
// to how uniform the document is.
type SemanticChunker struct {
	embedder  Embedder
	chunkSize int
}

// NewSemanticChunker builds the chunker. chunkSize caps a group in
// characters regardless of similarity.
func NewSemanticChunker(embedder Embedder, chunkSize int) *SemanticChunker {
	return &SemanticChunker{embedder: embedder, chunkSize: chunkSize}
}

func (c *SemanticChunker) Chunk(ctx context.Context, text string) ([]Chunk, error) {
	paras := splitParagraphs(text)
	if len(paras) == 0 {
		return nil, nil
	}
	if len(paras) == 1 {
		return []Chunk{{Text: paras[0], Index: 0}}, nil
	}

	vectors, err := c.embedder.EmbedTexts(ctx, paras)
	if err != nil {
		return nil, fmt.Errorf("semantic chunking failed to embed paragraphs: %w", err)
	}

	sims := make([]float64, len(paras)-1)
	for i := range sims {
		sims[i] = vectorstore.CosineSimilarity(vectors[i], vectors[i+1])
	}
	threshold := breakpointThreshold(sims)

	budget := c.chunkSize
	if budget <= 0 {
		budget = 1000
	}

	var chunks []Chunk
	current := paras[0]
	for i := 1; i < len(paras); i++ {
		drop := sims[i-1] < threshold
		over := len(current)+len(paras[i])+2 > budget

		if drop || over {
			chunks = append(chunks, Chunk{Text: current, Index: len(chunks)})
			current = paras[i]
			continue
		}
		current += "\n\n" + paras[i]
	}
	chunks = append(chunks, Chunk{Text: current, Index: len(chunks)})

	return chunks, nil
}

// breakpointThreshold is mean - stddev of adjacent similarities.
func breakpointThreshold(sims []float64) float64 {
	var sum float64
	for _, s := range sims {
		sum += s
	}
	mean := sum / float64(len(sims))

	var variance float64
	for _, s := range sims {
		variance += (s - mean) * (s - mean)
	}
	variance /= float64(len(sims))

	return mean - math.Sqrt(variance)
}

// splitParagraphs splits on blank lines, keeping fenced code blocks intact.
func splitParagraphs(text string) []string {
	var paras []string
	var current strings.Builder
	inFence := false

	flush := func() {
		if p := strings.TrimSpace(current.String()); p != "" {
			paras = append(paras, p)
		}
		current.Reset()
	}

	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") || strings.HasPrefix(trimmed, "~~~") {
			inFence = !inFence
		}

		if !inFence && trimmed == "" {
			flush()
			continue
		}
		if current.Len() > 0 {
			current.WriteString("\n")
		}
		current.WriteString(line)
	}
	flush()

	return paras
}

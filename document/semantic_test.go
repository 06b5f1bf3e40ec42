package document

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// stubEmbedder maps each text through fn and counts batch calls.
type stubEmbedder struct {
	fn    func(text string) []float32
	err   error
	calls int
}

func (s *stubEmbedder) EmbedTexts(_ context.Context, texts []string) ([][]float32, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = s.fn(t)
	}
	return out, nil
}

// topicVector keys a paragraph by its leading word.
func topicVector(text string) []float32 {
	if strings.HasPrefix(text, "cloud") {
		return []float32{1, 0}
	}
	return []float32{0, 1}
}

func TestSemanticChunkerBreaksOnTopicShift(t *testing.T) {
	doc := strings.Join([]string{
		"cloud estate spans two regions.",
		"cloud workloads move in phases.",
		"cloud cutover happens last.",
		"pricing follows a fixed fee model.",
	}, "\n\n")

	embedder := &stubEmbedder{fn: topicVector}
	chunks, err := NewSemanticChunker(embedder, 1000).Chunk(context.Background(), doc)
	require.NoError(t, err)
	require.Equal(t, 1, embedder.calls)

	require.Len(t, chunks, 2)
	require.Equal(t, 0, chunks[0].Index)
	require.Contains(t, chunks[0].Text, "cloud estate")
	require.Contains(t, chunks[0].Text, "cloud cutover")
	require.Equal(t, "pricing follows a fixed fee model.", chunks[1].Text)
}

func TestSemanticChunkerRespectsBudget(t *testing.T) {
	doc := "cloud estate spans two regions.\n\ncloud workloads move in phases."

	embedder := &stubEmbedder{fn: topicVector}
	chunks, err := NewSemanticChunker(embedder, 10).Chunk(context.Background(), doc)
	require.NoError(t, err)

	// Identical topics still split once the character budget is exceeded.
	require.Len(t, chunks, 2)
}

func TestSemanticChunkerSingleParagraphSkipsEmbedding(t *testing.T) {
	embedder := &stubEmbedder{fn: topicVector}
	chunks, err := NewSemanticChunker(embedder, 1000).Chunk(context.Background(), "only one paragraph here")
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	require.Zero(t, embedder.calls)
}

func TestSemanticChunkerEmptyInput(t *testing.T) {
	embedder := &stubEmbedder{fn: topicVector}
	chunks, err := NewSemanticChunker(embedder, 1000).Chunk(context.Background(), " \n\n ")
	require.NoError(t, err)
	require.Empty(t, chunks)
	require.Zero(t, embedder.calls)
}

func TestSemanticChunkerPropagatesEmbedderError(t *testing.T) {
	embedder := &stubEmbedder{err: errors.New("embedder offline")}
	_, err := NewSemanticChunker(embedder, 1000).Chunk(context.Background(), "one.\n\ntwo.")
	require.Error(t, err)
}

func TestSplitParagraphsKeepsFencesTogether(t *testing.T) {
	doc := "first paragraph\n\n```\nline one\n\nline two\n```\n\nlast paragraph"

	paras := splitParagraphs(doc)
	require.Len(t, paras, 3)
	require.Equal(t, "first paragraph", paras[0])
	require.Contains(t, paras[1], "line one\n\nline two")
	require.Equal(t, "last paragraph", paras[2])
}

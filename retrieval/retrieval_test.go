package retrieval

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/indrajit-intglobal/novaintel-latest-sub000/common/logger"
	"github.com/indrajit-intglobal/novaintel-latest-sub000/common/models"
	"github.com/indrajit-intglobal/novaintel-latest-sub000/llm"
	"github.com/indrajit-intglobal/novaintel-latest-sub000/vectorstore"
)

// Test vectors are term counts over a tiny vocabulary, so cosine similarity
// between a query and a document behaves the way a reader would expect.
var vocab = []string{"cloud", "pricing", "security", "timeline"}

func bagVector(text string) []float32 {
	vec := make([]float32, len(vocab))
	lower := strings.ToLower(text)
	for i, term := range vocab {
		vec[i] = float32(strings.Count(lower, term))
	}
	return vec
}

// countingEmbedder embeds with bagVector and counts provider calls.
type countingEmbedder struct {
	mu         sync.Mutex
	queryCalls int
	textCalls  int
	err        error
}

func (e *countingEmbedder) EmbedTexts(_ context.Context, texts []string) ([][]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.err != nil {
		return nil, e.err
	}
	e.textCalls++
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = bagVector(t)
	}
	return out, nil
}

func (e *countingEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.err != nil {
		return nil, e.err
	}
	e.queryCalls++
	return bagVector(text), nil
}

func (e *countingEmbedder) Dimension(context.Context) (int, error) {
	return len(vocab), nil
}

func (e *countingEmbedder) queries() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.queryCalls
}

// staticGateway answers every completion with the same content.
type staticGateway struct {
	content string
	err     error
	calls   int
}

func (g *staticGateway) Complete(_ context.Context, _ llm.Request) (*llm.Response, error) {
	g.calls++
	if g.err != nil {
		return nil, g.err
	}
	return &llm.Response{Content: g.content, Provider: "test", Model: "test"}, nil
}

// stubCorpus lists a fixed case-study corpus, optionally failing once.
type stubCorpus struct {
	studies []models.CaseStudy
	errOnce error
	calls   int
}

func (c *stubCorpus) ListCaseStudies(context.Context) ([]models.CaseStudy, error) {
	c.calls++
	if c.errOnce != nil {
		err := c.errOnce
		c.errOnce = nil
		return nil, err
	}
	return c.studies, nil
}

func testLogger() *logger.Logger {
	return logger.New("error", "json")
}

// seedChunks stores one point per text under the project, vectorized with
// bagVector and identified by position.
func seedChunks(t *testing.T, store vectorstore.Store, projectID string, texts ...string) {
	t.Helper()
	points := make([]vectorstore.Point, len(texts))
	for i, txt := range texts {
		points[i] = vectorstore.Point{
			ID:     projectID + "-" + strconv.Itoa(i),
			Vector: bagVector(txt),
			Text:   txt,
			Metadata: map[string]any{
				"project_id":  projectID,
				"chunk_index": strconv.Itoa(i),
			},
		}
	}
	require.NoError(t, store.Upsert(context.Background(), points))
}

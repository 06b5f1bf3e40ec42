package retrieval

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/indrajit-intglobal/novaintel-latest-sub000/common/cache"
	"github.com/indrajit-intglobal/novaintel-latest-sub000/common/config"
	"github.com/indrajit-intglobal/novaintel-latest-sub000/vectorstore"
)

func plainRetriever(cfg config.RetrievalConfig, store vectorstore.Store, embedder Embedder) *Retriever {
	return NewRetriever(cfg, embedder, store, nil, nil, nil, time.Hour, testLogger(), nil)
}

func TestRetrieveRanksBySimilarity(t *testing.T) {
	store := vectorstore.NewMemory()
	seedChunks(t, store, "p1",
		"cloud architecture summary",
		"cloud pricing appendix",
		"pricing appendix",
	)

	r := plainRetriever(config.RetrievalConfig{TopK: 5}, store, &countingEmbedder{})

	results, err := r.Retrieve(context.Background(), "p1", "cloud", 2)
	require.NoError(t, err)
	require.Len(t, results, 2)

	require.Equal(t, "cloud architecture summary", results[0].Text)
	require.Equal(t, "cloud pricing appendix", results[1].Text)
	require.Greater(t, results[0].Score, results[1].Score)

	require.Equal(t, "p1", results[0].Metadata["project_id"])
	require.Equal(t, "0", results[0].Metadata["chunk_index"])
}

func TestRetrieveScopesByProject(t *testing.T) {
	store := vectorstore.NewMemory()
	seedChunks(t, store, "p1", "cloud alpha")
	seedChunks(t, store, "p2", "cloud beta")

	r := plainRetriever(config.RetrievalConfig{TopK: 5}, store, &countingEmbedder{})

	results, err := r.Retrieve(context.Background(), "p1", "cloud", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, "cloud alpha", results[0].Text)
	require.Equal(t, "p1", results[0].Metadata["project_id"])
}

func TestRetrieveTopKDefaults(t *testing.T) {
	store := vectorstore.NewMemory()
	seedChunks(t, store, "p1",
		"cloud",
		"cloud pricing",
		"cloud pricing security",
		"cloud pricing security timeline",
		"pricing",
		"security",
	)

	t.Run("config top-k", func(t *testing.T) {
		r := plainRetriever(config.RetrievalConfig{TopK: 1}, store, &countingEmbedder{})
		results, err := r.Retrieve(context.Background(), "p1", "cloud", 0)
		require.NoError(t, err)
		require.Len(t, results, 1)
		require.Equal(t, "cloud", results[0].Text)
	})

	t.Run("built-in fallback", func(t *testing.T) {
		r := plainRetriever(config.RetrievalConfig{}, store, &countingEmbedder{})
		results, err := r.Retrieve(context.Background(), "p1", "cloud", 0)
		require.NoError(t, err)
		require.Len(t, results, 5)
	})
}

func TestRetrieveEmptyIndexReturnsNil(t *testing.T) {
	r := plainRetriever(config.RetrievalConfig{TopK: 5}, vectorstore.NewMemory(), &countingEmbedder{})

	results, err := r.Retrieve(context.Background(), "p1", "anything", 3)
	require.NoError(t, err)
	require.Nil(t, results)
}

func TestRetrieveEmbedderErrorPropagates(t *testing.T) {
	store := vectorstore.NewMemory()
	seedChunks(t, store, "p1", "cloud alpha")

	embedder := &countingEmbedder{err: errors.New("provider down")}
	r := plainRetriever(config.RetrievalConfig{TopK: 5}, store, embedder)

	_, err := r.Retrieve(context.Background(), "p1", "cloud", 3)
	require.Error(t, err)
	require.Contains(t, err.Error(), "failed to embed query")
}

func TestRetrieveCachesPlainQueries(t *testing.T) {
	store := vectorstore.NewMemory()
	seedChunks(t, store, "p1", "cloud architecture summary", "pricing appendix")

	embedder := &countingEmbedder{}
	queryCache := cache.NewMemoryCache(time.Hour, testLogger())
	r := NewRetriever(config.RetrievalConfig{TopK: 5}, embedder, store, nil, nil, queryCache, time.Hour, testLogger(), nil)

	first, err := r.Retrieve(context.Background(), "p1", "cloud", 2)
	require.NoError(t, err)
	require.Equal(t, 1, embedder.queries())

	second, err := r.Retrieve(context.Background(), "p1", "cloud", 2)
	require.NoError(t, err)
	require.Equal(t, 1, embedder.queries(), "identical query should be served from cache")
	require.Equal(t, first, second)

	// A different top-k is a different cache entry.
	_, err = r.Retrieve(context.Background(), "p1", "cloud", 1)
	require.NoError(t, err)
	require.Equal(t, 2, embedder.queries())
}

func TestRetrieveOptionalStagesBypassCache(t *testing.T) {
	store := vectorstore.NewMemory()
	seedChunks(t, store, "p1", "cloud architecture summary")

	embedder := &countingEmbedder{}
	queryCache := cache.NewMemoryCache(time.Hour, testLogger())
	cfg := config.RetrievalConfig{TopK: 5, EnableHybrid: true}
	r := NewRetriever(cfg, embedder, store, nil, nil, queryCache, time.Hour, testLogger(), nil)

	for i := 0; i < 2; i++ {
		_, err := r.Retrieve(context.Background(), "p1", "cloud", 2)
		require.NoError(t, err)
	}
	require.Equal(t, 2, embedder.queries())
}

func TestRetrieveExpandsQuery(t *testing.T) {
	store := vectorstore.NewMemory()
	seedChunks(t, store, "p1",
		"cloud architecture",
		"pricing forecast detail",
	)

	embedder := &countingEmbedder{}
	gateway := &staticGateway{content: `["pricing forecast", "cloud spend outlook"]`}
	cfg := config.RetrievalConfig{TopK: 5, EnableExpansion: true, ExpansionVariants: 3}
	r := NewRetriever(cfg, embedder, store, gateway, nil, nil, time.Hour, testLogger(), nil)

	results, err := r.Retrieve(context.Background(), "p1", "cloud", 5)
	require.NoError(t, err)
	require.Equal(t, 1, gateway.calls)
	require.Equal(t, 3, embedder.queries(), "original plus two variants")

	// The pricing chunk scores zero against the original query but is
	// rescued by the variant; dedup keeps the best score per chunk.
	require.Len(t, results, 2)
	require.Equal(t, "cloud architecture", results[0].Text)
	require.Equal(t, "pricing forecast detail", results[1].Text)
	require.InDelta(t, 1.0, results[0].Score, 1e-6)
	require.InDelta(t, 1.0, results[1].Score, 1e-6)
}

func TestRetrieveExpansionFailureFallsBack(t *testing.T) {
	store := vectorstore.NewMemory()
	seedChunks(t, store, "p1", "cloud architecture")

	embedder := &countingEmbedder{}
	gateway := &staticGateway{err: errors.New("gateway down")}
	cfg := config.RetrievalConfig{TopK: 5, EnableExpansion: true}
	r := NewRetriever(cfg, embedder, store, gateway, nil, nil, time.Hour, testLogger(), nil)

	results, err := r.Retrieve(context.Background(), "p1", "cloud", 3)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, 1, embedder.queries(), "only the original query runs when expansion fails")
}

func TestRetrieveHybridPrefersLexicalAgreement(t *testing.T) {
	store := vectorstore.NewMemory()
	seedChunks(t, store, "p1",
		"cloud overview for executives",
		"cloud pricing kubernetes kubernetes migration",
		"kubernetes timeline appendix",
		"pricing appendix",
	)
	query := "cloud kubernetes kubernetes"

	vector := plainRetriever(config.RetrievalConfig{TopK: 4}, store, &countingEmbedder{})
	results, err := vector.Retrieve(context.Background(), "p1", query, 4)
	require.NoError(t, err)
	require.Equal(t, "cloud overview for executives", results[0].Text)
	require.Equal(t, "cloud pricing kubernetes kubernetes migration", results[1].Text)

	hybrid := plainRetriever(config.RetrievalConfig{TopK: 4, EnableHybrid: true}, store, &countingEmbedder{})
	results, err = hybrid.Retrieve(context.Background(), "p1", query, 4)
	require.NoError(t, err)

	// BM25 puts the kubernetes-heavy chunk first, which flips the fused
	// order against pure vector ranking.
	require.Equal(t, "cloud pricing kubernetes kubernetes migration", results[0].Text)
	require.Equal(t, "cloud overview for executives", results[1].Text)
}

func TestRetrieveRerankOverridesVectorOrder(t *testing.T) {
	store := vectorstore.NewMemory()
	seedChunks(t, store, "p1",
		"cloud architecture summary",
		"cloud pricing appendix",
	)

	var got rerankRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"results": [
			{"index": 0, "relevance_score": 0.2},
			{"index": 1, "relevance_score": 0.95}
		]}`))
	}))
	defer server.Close()

	reranker := NewRerankClient(server.URL, "", testLogger())
	cfg := config.RetrievalConfig{TopK: 5, EnableRerank: true}
	r := NewRetriever(cfg, &countingEmbedder{}, store, nil, reranker, nil, time.Hour, testLogger(), nil)

	results, err := r.Retrieve(context.Background(), "p1", "cloud", 2)
	require.NoError(t, err)

	require.Equal(t, "cloud", got.Query)
	require.Equal(t, []string{"cloud architecture summary", "cloud pricing appendix"}, got.Documents)

	require.Equal(t, "cloud pricing appendix", results[0].Text)
	require.InDelta(t, 0.95, results[0].Score, 1e-6)
	require.Equal(t, "cloud architecture summary", results[1].Text)
	require.InDelta(t, 0.2, results[1].Score, 1e-6)
}

func TestRetrieveRerankFailureKeepsVectorOrder(t *testing.T) {
	store := vectorstore.NewMemory()
	seedChunks(t, store, "p1",
		"cloud architecture summary",
		"cloud pricing appendix",
	)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "reranker offline", http.StatusInternalServerError)
	}))
	defer server.Close()

	reranker := NewRerankClient(server.URL, "", testLogger())
	cfg := config.RetrievalConfig{TopK: 5, EnableRerank: true}
	r := NewRetriever(cfg, &countingEmbedder{}, store, nil, reranker, nil, time.Hour, testLogger(), nil)

	results, err := r.Retrieve(context.Background(), "p1", "cloud", 2)
	require.NoError(t, err)
	require.Equal(t, "cloud architecture summary", results[0].Text)
	require.Equal(t, "cloud pricing appendix", results[1].Text)
}

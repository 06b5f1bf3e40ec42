package retrieval

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/indrajit-intglobal/novaintel-latest-sub000/common/cache"
	"github.com/indrajit-intglobal/novaintel-latest-sub000/common/config"
	"github.com/indrajit-intglobal/novaintel-latest-sub000/common/logger"
	"github.com/indrajit-intglobal/novaintel-latest-sub000/common/metrics"
	"github.com/indrajit-intglobal/novaintel-latest-sub000/llm"
	"github.com/indrajit-intglobal/novaintel-latest-sub000/vectorstore"
)

const expansionPrompt = `Rephrase the following search query %d different ways to improve recall over an RFP document. Return a JSON array of strings with no other text.

Query: %s`

// Result is a ranked chunk returned to callers.
type Result struct {
	Text     string         `json:"text"`
	Score    float64        `json:"score"`
	Metadata map[string]any `json:"metadata"`
}

// Completer is the slice of the LLM gateway used for query expansion.
type Completer interface {
	Complete(ctx context.Context, req llm.Request) (*llm.Response, error)
}

// Retriever runs the query pipeline: optional LLM expansion, per-variant
// vector search, union dedup, optional cross-encoder rerank, optional
// BM25+RRF hybrid fusion, truncate to top-k. Plain queries are cached; any
// optional stage bypasses the cache.
type Retriever struct {
	cfg      config.RetrievalConfig
	embedder Embedder
	store    vectorstore.Store
	gateway  Completer
	reranker *RerankClient
	cache    cache.Cache
	queryTTL time.Duration
	log      *logger.Logger
	metrics  *metrics.Metrics
}

// NewRetriever wires the query path. gateway and reranker may be nil; the
// matching stages then stay off regardless of config.
func NewRetriever(
	cfg config.RetrievalConfig,
	embedder Embedder,
	store vectorstore.Store,
	gateway Completer,
	reranker *RerankClient,
	queryCache cache.Cache,
	queryTTL time.Duration,
	log *logger.Logger,
	m *metrics.Metrics,
) *Retriever {
	if queryCache == nil {
		queryCache = cache.NoopCache{}
	}
	return &Retriever{
		cfg:      cfg,
		embedder: embedder,
		store:    store,
		gateway:  gateway,
		reranker: reranker,
		cache:    queryCache,
		queryTTL: queryTTL,
		log:      log,
		metrics:  m,
	}
}

// Retrieve returns the top-k chunks for the query within one project.
func (r *Retriever) Retrieve(ctx context.Context, projectID, query string, topK int) ([]Result, error) {
	if topK <= 0 {
		topK = r.cfg.TopK
	}
	if topK <= 0 {
		topK = 5
	}

	expansion := r.cfg.EnableExpansion && r.gateway != nil
	rerank := r.cfg.EnableRerank && r.reranker != nil
	optional := expansion || rerank || r.cfg.EnableHybrid

	var key string
	if !optional {
		key = queryCacheKey(projectID, query, topK)
		if raw, ok, err := r.cache.Get(ctx, key); err == nil && ok {
			var cached []Result
			if json.Unmarshal(raw, &cached) == nil {
				r.observeCache(true)
				return cached, nil
			}
		}
		r.observeCache(false)
	}

	variants := []string{query}
	if expansion {
		variants = append(variants, r.expandQuery(ctx, query)...)
	}

	filter := vectorstore.Filter{"project_id": projectID}
	var candidates []vectorstore.Match
	seen := map[string]int{}

	for _, variant := range variants {
		vec, err := r.embedder.EmbedQuery(ctx, variant)
		if err != nil {
			return nil, fmt.Errorf("failed to embed query: %w", err)
		}
		matches, err := r.store.Query(ctx, vec, topK*2, filter)
		if err != nil {
			return nil, err
		}
		for _, m := range matches {
			k := m.ID
			if k == "" {
				k = fingerprint(m.Text)
			}
			if i, dup := seen[k]; dup {
				if m.Score > candidates[i].Score {
					candidates[i].Score = m.Score
				}
				continue
			}
			seen[k] = len(candidates)
			candidates = append(candidates, m)
		}
	}

	if r.metrics != nil {
		r.metrics.QueriesServed.Inc()
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	scores := make([]float64, len(candidates))
	for i, m := range candidates {
		scores[i] = m.Score
	}

	if rerank {
		texts := textsOf(candidates)
		reranked, err := r.reranker.Rerank(ctx, query, texts)
		if err != nil {
			// A dead reranker should degrade the ranking, not the query.
			r.log.Warn("rerank failed, keeping vector order", "error", err)
		} else {
			for i := range scores {
				scores[i] = reranked[i]
			}
		}
	}

	if r.cfg.EnableHybrid {
		lexical := bm25Scores(query, textsOf(candidates))
		scores = rrfFuse(scores, lexical)
	}

	results := make([]Result, len(candidates))
	for i, m := range candidates {
		results[i] = Result{Text: m.Text, Score: scores[i], Metadata: m.Metadata}
	}
	sort.SliceStable(results, func(a, b int) bool { return results[a].Score > results[b].Score })
	if len(results) > topK {
		results = results[:topK]
	}

	if key != "" {
		if raw, err := json.Marshal(results); err == nil {
			if setErr := r.cache.Set(ctx, key, raw, r.queryTTL); setErr != nil {
				r.log.Warn("failed to cache query results", "error", setErr)
			}
		}
	}
	return results, nil
}

// expandQuery asks the gateway for alternate phrasings. Failures fall back
// to the original query alone.
func (r *Retriever) expandQuery(ctx context.Context, query string) []string {
	n := r.cfg.ExpansionVariants
	if n <= 0 {
		n = 3
	}

	resp, err := r.gateway.Complete(ctx, llm.Request{
		TaskType: llm.TaskFastGeneration,
		Messages: []llm.Message{{Role: llm.RoleUser, Content: fmt.Sprintf(expansionPrompt, n, query)}},
	})
	if err != nil {
		r.log.Warn("query expansion failed", "error", err)
		return nil
	}

	var raw []string
	if err := llm.ExtractAndUnmarshal(resp.Content, &raw); err != nil {
		r.log.Warn("query expansion returned malformed JSON", "error", err)
		return nil
	}

	variants := make([]string, 0, n)
	for _, v := range raw {
		v = strings.TrimSpace(v)
		if v == "" || strings.EqualFold(v, query) {
			continue
		}
		variants = append(variants, v)
		if len(variants) == n {
			break
		}
	}
	return variants
}

func (r *Retriever) observeCache(hit bool) {
	if r.metrics == nil {
		return
	}
	if hit {
		r.metrics.CacheHits.WithLabelValues("query").Inc()
	} else {
		r.metrics.CacheMisses.WithLabelValues("query").Inc()
	}
}

func textsOf(matches []vectorstore.Match) []string {
	texts := make([]string, len(matches))
	for i, m := range matches {
		texts[i] = m.Text
	}
	return texts
}

// fingerprint is the dedup key for chunks without ids.
func fingerprint(text string) string {
	runes := []rune(text)
	if len(runes) > 100 {
		runes = runes[:100]
	}
	return string(runes)
}

func queryCacheKey(projectID, query string, topK int) string {
	sum := sha256.Sum256([]byte(query))
	return fmt.Sprintf("query:%s:%d:%x", projectID, topK, sum)
}

package embedding

import (
	"context"
	"crypto/sha256"
	"fmt"
	"sync"
	"time"

	"github.com/tmc/langchaingo/embeddings"
	hfembed "github.com/tmc/langchaingo/embeddings/huggingface"
	"github.com/tmc/langchaingo/llms/huggingface"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/indrajit-intglobal/novaintel-latest-sub000/common/cache"
	"github.com/indrajit-intglobal/novaintel-latest-sub000/common/config"
	"github.com/indrajit-intglobal/novaintel-latest-sub000/common/logger"
	"github.com/indrajit-intglobal/novaintel-latest-sub000/common/metrics"
)

const defaultBatchSize = 64

// Service wraps a provider embedder with a content-addressed cache. Keys are
// derived from the text hash plus provider and model, so switching models
// never serves stale vectors.
type Service struct {
	client   embeddings.Embedder
	provider string
	model    string

	cache   cache.Cache
	ttl     time.Duration
	log     *logger.Logger
	metrics *metrics.Metrics

	mu  sync.Mutex
	dim int
}

// New builds the embedder for the configured provider.
func New(cfg config.EmbeddingConfig, ttl time.Duration, store cache.Cache, log *logger.Logger, m *metrics.Metrics) (*Service, error) {
	batch := cfg.BatchSize
	if batch <= 0 {
		batch = defaultBatchSize
	}

	var (
		client embeddings.Embedder
		model  string
		err    error
	)

	switch cfg.Provider {
	case "openai":
		var opts []openai.Option
		if cfg.OpenAIKey != "" {
			opts = append(opts, openai.WithToken(cfg.OpenAIKey))
		}
		opts = append(opts, openai.WithEmbeddingModel(cfg.Model))

		llm, newErr := openai.New(opts...)
		if newErr != nil {
			return nil, fmt.Errorf("failed to create openai embedding client: %w", newErr)
		}
		client, err = embeddings.NewEmbedder(llm, embeddings.WithBatchSize(batch))
		model = cfg.Model

	case "huggingface":
		var hfOpts []huggingface.Option
		if cfg.HuggingFaceToken != "" {
			hfOpts = append(hfOpts, huggingface.WithToken(cfg.HuggingFaceToken))
		}
		llm, newErr := huggingface.New(hfOpts...)
		if newErr != nil {
			return nil, fmt.Errorf("failed to create huggingface client: %w", newErr)
		}
		client, err = hfembed.NewHuggingface(
			hfembed.WithClient(*llm),
			hfembed.WithModel(cfg.HuggingFaceModel),
			hfembed.WithBatchSize(batch),
		)
		model = cfg.HuggingFaceModel

	default:
		return nil, fmt.Errorf("unknown embedding provider: %s", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}

	return NewFromClient(client, cfg.Provider, model, ttl, store, log, m), nil
}

// NewFromClient wires the service around an existing embedder.
func NewFromClient(client embeddings.Embedder, provider, model string, ttl time.Duration, store cache.Cache, log *logger.Logger, m *metrics.Metrics) *Service {
	if store == nil {
		store = cache.NoopCache{}
	}
	return &Service{
		client:   client,
		provider: provider,
		model:    model,
		cache:    store,
		ttl:      ttl,
		log:      log,
		metrics:  m,
	}
}

// Provider returns the configured provider name.
func (s *Service) Provider() string { return s.provider }

// Model returns the configured model name.
func (s *Service) Model() string { return s.model }

// EmbedTexts embeds a batch of texts, serving cached vectors where possible
// and embedding only the misses. Results keep input order.
func (s *Service) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	result := make([][]float32, len(texts))
	var missIdx []int
	var missTexts []string

	for i, text := range texts {
		key := s.cacheKey(text)
		raw, ok, err := s.cache.Get(ctx, key)
		if err == nil && ok {
			if vec, decErr := decodeVector(raw); decErr == nil {
				result[i] = vec
				s.observeCache(true)
				continue
			}
		}
		s.observeCache(false)
		missIdx = append(missIdx, i)
		missTexts = append(missTexts, text)
	}

	if len(missTexts) == 0 {
		return result, nil
	}

	vectors, err := s.client.EmbedDocuments(ctx, missTexts)
	if err != nil {
		return nil, fmt.Errorf("embedding failed: %w", err)
	}
	if len(vectors) != len(missTexts) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d texts", len(vectors), len(missTexts))
	}

	for j, vec := range vectors {
		result[missIdx[j]] = vec
		if setErr := s.cache.Set(ctx, s.cacheKey(missTexts[j]), encodeVector(vec), s.ttl); setErr != nil {
			s.log.Warn("failed to cache embedding", "error", setErr)
		}
	}

	return result, nil
}

// EmbedQuery embeds a single text.
func (s *Service) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := s.EmbedTexts(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// Dimension reports the vector width of the configured model, probing once
// and memoizing the answer.
func (s *Service) Dimension(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.dim > 0 {
		return s.dim, nil
	}

	vec, err := s.client.EmbedQuery(ctx, "dimension probe")
	if err != nil {
		return 0, fmt.Errorf("failed to probe embedding dimension: %w", err)
	}
	if len(vec) == 0 {
		return 0, fmt.Errorf("embedder returned empty vector")
	}

	s.dim = len(vec)
	return s.dim, nil
}

func (s *Service) cacheKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return fmt.Sprintf("emb:%s:%s:%x", s.provider, s.model, sum)
}

func (s *Service) observeCache(hit bool) {
	if s.metrics == nil {
		return
	}
	if hit {
		s.metrics.CacheHits.WithLabelValues("embedding").Inc()
	} else {
		s.metrics.CacheMisses.WithLabelValues("embedding").Inc()
	}
}

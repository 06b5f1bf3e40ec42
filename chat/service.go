// Package chat answers free-form questions about an indexed RFP, pinned to
// retrieved context.
package chat

import (
	"context"
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/indrajit-intglobal/novaintel-latest-sub000/common/cache"
	"github.com/indrajit-intglobal/novaintel-latest-sub000/common/logger"
	"github.com/indrajit-intglobal/novaintel-latest-sub000/common/metrics"
	"github.com/indrajit-intglobal/novaintel-latest-sub000/llm"
	"github.com/indrajit-intglobal/novaintel-latest-sub000/retrieval"
)

// RefusalMessage is the exact answer when the context cannot support one.
// Clients match on it, so the wording is a contract.
const RefusalMessage = "The provided RFP context does not contain this information."

const systemPrompt = `You are an assistant answering questions about a specific RFP document. Answer using ONLY the provided context. Do not use outside knowledge. If the answer cannot be derived from the context, reply with exactly this sentence and nothing else: ` + RefusalMessage + `

Context:
%s`

// Turn is one prior exchange in the conversation.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Response carries the answer with its supporting chunks.
type Response struct {
	Answer      string             `json:"answer"`
	Sources     []retrieval.Result `json:"sources"`
	ContextUsed int                `json:"context_used"`
}

// Retriever is the slice of the retrieval pipeline chat needs.
type Retriever interface {
	Retrieve(ctx context.Context, projectID, query string, topK int) ([]retrieval.Result, error)
}

// Completer is the slice of the LLM gateway chat needs.
type Completer interface {
	Complete(ctx context.Context, req llm.Request) (*llm.Response, error)
}

// Service wires retrieval and the gateway behind a conversation-aware cache.
type Service struct {
	retriever Retriever
	gateway   Completer
	cache     cache.Cache
	ttl       time.Duration
	log       *logger.Logger
	metrics   *metrics.Metrics
}

// NewService builds the chat service. ttl bounds how long answers are
// served from cache.
func NewService(retriever Retriever, gateway Completer, store cache.Cache, ttl time.Duration, log *logger.Logger, m *metrics.Metrics) *Service {
	if store == nil {
		store = cache.NoopCache{}
	}
	return &Service{
		retriever: retriever,
		gateway:   gateway,
		cache:     store,
		ttl:       ttl,
		log:       log,
		metrics:   m,
	}
}

// Ask answers a question about the project's RFP. history carries prior
// turns oldest-first; only the last three feed the cache key.
func (s *Service) Ask(ctx context.Context, projectID, query string, history []Turn, topK int) (*Response, error) {
	key := cacheKey(projectID, query, history)
	if raw, ok, err := s.cache.Get(ctx, key); err == nil && ok {
		var cached Response
		if json.Unmarshal(raw, &cached) == nil {
			s.observeCache(true)
			return &cached, nil
		}
	}
	s.observeCache(false)

	results, err := s.retriever.Retrieve(ctx, projectID, query, topK)
	if err != nil {
		return nil, err
	}
	// With no context at all the only valid answer is the refusal; skip the
	// model call. Not cached: the index may appear moments later.
	if len(results) == 0 {
		return &Response{Answer: RefusalMessage, Sources: []retrieval.Result{}}, nil
	}

	messages := make([]llm.Message, 0, len(history)+2)
	messages = append(messages, llm.Message{
		Role:    llm.RoleSystem,
		Content: fmt.Sprintf(systemPrompt, contextBlock(results)),
	})
	for _, turn := range history {
		role := llm.RoleUser
		if strings.EqualFold(turn.Role, "assistant") {
			role = llm.RoleAssistant
		}
		messages = append(messages, llm.Message{Role: role, Content: turn.Content})
	}
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: query})

	resp, err := s.gateway.Complete(ctx, llm.Request{
		TaskType: llm.TaskAnalysis,
		Messages: messages,
	})
	if err != nil {
		return nil, err
	}

	out := &Response{
		Answer:      strings.TrimSpace(resp.Content),
		Sources:     results,
		ContextUsed: len(results),
	}

	if raw, err := json.Marshal(out); err == nil {
		if setErr := s.cache.Set(ctx, key, raw, s.ttl); setErr != nil {
			s.log.Warn("failed to cache chat response", "error", setErr)
		}
	}
	return out, nil
}

func (s *Service) observeCache(hit bool) {
	if s.metrics == nil {
		return
	}
	if hit {
		s.metrics.CacheHits.WithLabelValues("chat").Inc()
	} else {
		s.metrics.CacheMisses.WithLabelValues("chat").Inc()
	}
}

func contextBlock(results []retrieval.Result) string {
	var b strings.Builder
	for i, r := range results {
		fmt.Fprintf(&b, "[%d] %s\n\n", i+1, strings.TrimSpace(r.Text))
	}
	return strings.TrimSpace(b.String())
}

func cacheKey(projectID, query string, history []Turn) string {
	sum := sha256.Sum256([]byte(query))
	return fmt.Sprintf("chat:%s:%x:%s", projectID, sum, conversationHash(history))
}

// conversationHash is the MD5 of the last three turns.
func conversationHash(history []Turn) string {
	start := len(history) - 3
	if start < 0 {
		start = 0
	}

	h := md5.New()
	for _, turn := range history[start:] {
		h.Write([]byte(turn.Role))
		h.Write([]byte{0})
		h.Write([]byte(turn.Content))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

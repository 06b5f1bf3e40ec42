package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"
	"github.com/tmc/langchaingo/llms"
	"golang.org/x/sync/semaphore"

	"github.com/indrajit-intglobal/novaintel-latest-sub000/common/config"
	"github.com/indrajit-intglobal/novaintel-latest-sub000/common/logger"
	"github.com/indrajit-intglobal/novaintel-latest-sub000/common/metrics"
)

// fatalOutcome smuggles a fatal error through the breaker as a success so
// permanent failures never trip it.
type fatalOutcome struct {
	err error
}

// Gateway is the single entry point for model calls. Call path per attempt:
// per-call timeout, then the provider breaker, then the provider client.
// Transient failures retry with backoff; fatal ones return immediately.
type Gateway struct {
	providers map[string]*Provider
	router    *Router
	breakers  map[string]*gobreaker.CircuitBreaker
	sems      map[string]*semaphore.Weighted

	retry       RetryConfig
	callTimeout time.Duration

	log     *logger.Logger
	metrics *metrics.Metrics
}

// NewGateway assembles the gateway from configured providers.
func NewGateway(cfg config.LLMConfig, providers map[string]*Provider, log *logger.Logger, m *metrics.Metrics) *Gateway {
	retry := DefaultRetryConfig()
	if cfg.MaxRetries > 0 {
		retry.MaxAttempts = cfg.MaxRetries
	}
	if cfg.RetryBackoffBase > 0 {
		retry.BackoffBase = cfg.RetryBackoffBase
	}

	callTimeout := cfg.CallTimeout
	if callTimeout <= 0 {
		callTimeout = 30 * time.Second
	}

	threshold := cfg.BreakerThreshold
	if threshold <= 0 {
		threshold = 5
	}
	recovery := cfg.BreakerRecovery
	if recovery <= 0 {
		recovery = 60 * time.Second
	}

	maxConcurrent := int64(cfg.MaxConcurrentPerProvider)
	if maxConcurrent <= 0 {
		maxConcurrent = 8
	}

	g := &Gateway{
		providers:   providers,
		router:      NewRouter(cfg.DefaultProvider, providers),
		breakers:    make(map[string]*gobreaker.CircuitBreaker, len(providers)),
		sems:        make(map[string]*semaphore.Weighted, len(providers)),
		retry:       retry,
		callTimeout: callTimeout,
		log:         log,
		metrics:     m,
	}

	for name := range providers {
		name := name
		g.sems[name] = semaphore.NewWeighted(maxConcurrent)
		g.breakers[name] = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        name,
			MaxRequests: 1, // single half-open probe
			Timeout:     recovery,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= uint32(threshold)
			},
			OnStateChange: func(_ string, from, to gobreaker.State) {
				log.Warn("llm breaker state change", "provider", name,
					"from", from.String(), "to", to.String())
				if m != nil {
					open := 0.0
					if to == gobreaker.StateOpen {
						open = 1.0
					}
					m.BreakerOpen.WithLabelValues(name).Set(open)
				}
			},
		})
	}

	return g
}

// Complete runs a text completion routed by task type.
func (g *Gateway) Complete(ctx context.Context, req Request) (*Response, error) {
	return g.complete(ctx, req, nil)
}

// CompleteWithImages runs a multimodal completion. Images attach to the
// final user message.
func (g *Gateway) CompleteWithImages(ctx context.Context, req Request, images []Image) (*Response, error) {
	return g.complete(ctx, req, images)
}

func (g *Gateway) complete(ctx context.Context, req Request, images []Image) (*Response, error) {
	if len(req.Messages) == 0 {
		return nil, Fatal(fmt.Errorf("request has no messages"))
	}

	route := g.router.Resolve(req.TaskType)
	provider, ok := g.providers[route.Provider]
	if !ok {
		return nil, Fatal(fmt.Errorf("provider %s not configured", route.Provider))
	}

	sem := g.sems[route.Provider]
	if err := sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer sem.Release(1)

	start := time.Now()
	messages := toMessageContents(req.Messages, images)

	var lastErr error
	for attempt := 0; attempt < g.retry.MaxAttempts; attempt++ {
		if attempt > 0 {
			if g.metrics != nil {
				g.metrics.LLMRetries.WithLabelValues(route.Provider).Inc()
			}
			// Cancellation wins over the backoff timer.
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoffDelay(g.retry, attempt-1)):
			}
		}

		resp, err := g.attempt(ctx, provider, route, req, messages)
		if err == nil {
			g.observe(route.Provider, req.TaskType, "success", start)
			return resp, nil
		}
		lastErr = err

		switch {
		case IsCircuitOpen(err):
			g.observe(route.Provider, req.TaskType, "circuit_open", start)
			return nil, err
		case IsFatal(err):
			g.observe(route.Provider, req.TaskType, "fatal_error", start)
			return nil, err
		case errors.Is(err, context.Canceled):
			return nil, err
		}

		g.log.Warn("llm call failed, will retry",
			"provider", route.Provider, "task_type", req.TaskType,
			"attempt", attempt+1, "error", err)
	}

	g.observe(route.Provider, req.TaskType, "transient_error", start)
	return nil, fmt.Errorf("llm call failed after %d attempts: %w", g.retry.MaxAttempts, lastErr)
}

// attempt performs one guarded provider call.
func (g *Gateway) attempt(ctx context.Context, provider *Provider, route Route, req Request, messages []llms.MessageContent) (*Response, error) {
	cctx, cancel := context.WithTimeout(ctx, g.callTimeout)
	defer cancel()

	opts := []llms.CallOption{
		llms.WithModel(route.Model),
		llms.WithTemperature(req.Temperature),
	}
	if req.MaxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(req.MaxTokens))
	}

	result, err := g.breakers[route.Provider].Execute(func() (interface{}, error) {
		out, callErr := provider.Client.GenerateContent(cctx, messages, opts...)
		if callErr != nil {
			classified := g.classify(route, callErr)
			if IsFatal(classified) {
				return fatalOutcome{err: classified}, nil
			}
			return nil, classified
		}
		return out, nil
	})

	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, &CircuitOpenError{Provider: route.Provider}
		}
		return nil, err
	}

	if fo, ok := result.(fatalOutcome); ok {
		return nil, fo.err
	}

	out, ok := result.(*llms.ContentResponse)
	if !ok || len(out.Choices) == 0 {
		return nil, Transient(fmt.Errorf("provider %s returned an empty response", route.Provider))
	}

	return &Response{
		Content:  out.Choices[0].Content,
		Provider: route.Provider,
		Model:    route.Model,
	}, nil
}

// classify wraps raw provider errors, special-casing model rejections so the
// message names the fallback model operators should configure.
func (g *Gateway) classify(route Route, err error) error {
	if isInvalidModelError(err) {
		fallback := g.router.Fallback()
		return Fatal(fmt.Errorf("model %q rejected by provider %s (fallback model is %q on %s): %w",
			route.Model, route.Provider, fallback.Model, fallback.Provider, err))
	}
	return classifyProviderError(err)
}

func (g *Gateway) observe(provider string, task TaskType, outcome string, start time.Time) {
	if g.metrics == nil {
		return
	}
	g.metrics.ObserveLLMCall(provider, string(task), outcome, start)
}

package llm

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"

	"github.com/indrajit-intglobal/novaintel-latest-sub000/common/config"
	"github.com/indrajit-intglobal/novaintel-latest-sub000/common/logger"
)

// fakeClient plays back scripted turns in call order, repeating the last one
// once the script runs out. It also records the messages of the most recent
// call so tests can inspect what reached the provider.
type fakeClient struct {
	mu     sync.Mutex
	calls  int
	last   []llms.MessageContent
	script []fakeTurn
}

type fakeTurn struct {
	content string
	empty   bool
	err     error
}

func reply(content string) fakeTurn { return fakeTurn{content: content} }
func fail(msg string) fakeTurn      { return fakeTurn{err: errors.New(msg)} }
func emptyReply() fakeTurn          { return fakeTurn{empty: true} }

func (f *fakeClient) GenerateContent(_ context.Context, messages []llms.MessageContent, _ ...llms.CallOption) (*llms.ContentResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	turn := f.script[len(f.script)-1]
	if f.calls < len(f.script) {
		turn = f.script[f.calls]
	}
	f.calls++
	f.last = messages

	switch {
	case turn.err != nil:
		return nil, turn.err
	case turn.empty:
		return &llms.ContentResponse{}, nil
	default:
		return &llms.ContentResponse{
			Choices: []*llms.ContentChoice{{Content: turn.content}},
		}, nil
	}
}

func (f *fakeClient) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeClient) lastMessages() []llms.MessageContent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.last
}

func testLogger() *logger.Logger {
	return logger.New("error", "json")
}

// testLLMConfig keeps backoff in the low milliseconds so failure paths stay
// fast.
func testLLMConfig() config.LLMConfig {
	return config.LLMConfig{
		DefaultProvider:  ProviderOpenAI,
		CallTimeout:      time.Second,
		MaxRetries:       3,
		RetryBackoffBase: time.Millisecond,
		BreakerThreshold: 5,
		BreakerRecovery:  time.Minute,
	}
}

func newTestGateway(client Completer, cfg config.LLMConfig) *Gateway {
	providers := map[string]*Provider{
		ProviderOpenAI: {Name: ProviderOpenAI, Model: "gpt-test", Client: client},
	}
	return NewGateway(cfg, providers, testLogger(), nil)
}

func textRequest(prompt string) Request {
	return Request{
		TaskType: TaskAnalysis,
		Messages: []Message{{Role: RoleUser, Content: prompt}},
	}
}

func TestGatewayReturnsFirstChoice(t *testing.T) {
	client := &fakeClient{script: []fakeTurn{reply("summary ready")}}
	gw := newTestGateway(client, testLLMConfig())

	resp, err := gw.Complete(context.Background(), textRequest("analyze this"))
	require.NoError(t, err)
	require.Equal(t, "summary ready", resp.Content)
	require.Equal(t, ProviderOpenAI, resp.Provider)
	require.Equal(t, "gpt-test", resp.Model)
	require.Equal(t, 1, client.callCount())
}

func TestGatewayRetriesTransientFailures(t *testing.T) {
	client := &fakeClient{script: []fakeTurn{
		fail("503 service unavailable"),
		fail("connection reset by peer"),
		reply("recovered"),
	}}
	gw := newTestGateway(client, testLLMConfig())

	resp, err := gw.Complete(context.Background(), textRequest("analyze this"))
	require.NoError(t, err)
	require.Equal(t, "recovered", resp.Content)
	require.Equal(t, 3, client.callCount())
}

func TestGatewayGivesUpAfterMaxAttempts(t *testing.T) {
	client := &fakeClient{script: []fakeTurn{fail("502 bad gateway")}}
	gw := newTestGateway(client, testLLMConfig())

	_, err := gw.Complete(context.Background(), textRequest("analyze this"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "after 3 attempts")
	require.True(t, IsTransient(err))
	require.Equal(t, 3, client.callCount())
}

func TestGatewayRetriesEmptyResponses(t *testing.T) {
	client := &fakeClient{script: []fakeTurn{emptyReply(), reply("recovered")}}
	gw := newTestGateway(client, testLLMConfig())

	resp, err := gw.Complete(context.Background(), textRequest("analyze this"))
	require.NoError(t, err)
	require.Equal(t, "recovered", resp.Content)
	require.Equal(t, 2, client.callCount())
}

func TestGatewayFatalErrorReturnsImmediately(t *testing.T) {
	client := &fakeClient{script: []fakeTurn{fail("401 invalid api key")}}
	gw := newTestGateway(client, testLLMConfig())

	_, err := gw.Complete(context.Background(), textRequest("analyze this"))
	require.Error(t, err)
	require.True(t, IsFatal(err))
	require.Equal(t, 1, client.callCount())
}

func TestGatewayFatalErrorsNeverTripBreaker(t *testing.T) {
	cfg := testLLMConfig()
	cfg.BreakerThreshold = 2

	client := &fakeClient{script: []fakeTurn{
		fail("401 invalid api key"),
		fail("403 forbidden"),
		fail("authentication failed"),
		reply("still here"),
	}}
	gw := newTestGateway(client, cfg)

	for i := 0; i < 3; i++ {
		_, err := gw.Complete(context.Background(), textRequest("analyze this"))
		require.True(t, IsFatal(err))
	}

	// Three fatal failures exceed the threshold, yet the breaker stayed
	// closed and the fourth call still reaches the client.
	resp, err := gw.Complete(context.Background(), textRequest("analyze this"))
	require.NoError(t, err)
	require.Equal(t, "still here", resp.Content)
	require.Equal(t, 4, client.callCount())
}

func TestGatewayOpensBreakerMidRetryLoop(t *testing.T) {
	cfg := testLLMConfig()
	cfg.BreakerThreshold = 2

	client := &fakeClient{script: []fakeTurn{fail("500 internal server error")}}
	gw := newTestGateway(client, cfg)

	_, err := gw.Complete(context.Background(), textRequest("analyze this"))
	require.Error(t, err)
	require.True(t, IsCircuitOpen(err))
	require.Contains(t, err.Error(), "circuit open")
	// Two failures trip the breaker; the third attempt never reaches the
	// client.
	require.Equal(t, 2, client.callCount())
}

func TestGatewayShortCircuitsWhileBreakerIsOpen(t *testing.T) {
	cfg := testLLMConfig()
	cfg.MaxRetries = 1
	cfg.BreakerThreshold = 2

	client := &fakeClient{script: []fakeTurn{fail("504 gateway timeout")}}
	gw := newTestGateway(client, cfg)

	for i := 0; i < 2; i++ {
		_, err := gw.Complete(context.Background(), textRequest("analyze this"))
		require.True(t, IsTransient(err))
	}

	_, err := gw.Complete(context.Background(), textRequest("analyze this"))
	require.Error(t, err)

	var coe *CircuitOpenError
	require.ErrorAs(t, err, &coe)
	require.Equal(t, ProviderOpenAI, coe.Provider)
	require.Equal(t, 2, client.callCount())
}

func TestGatewayBreakerRecoversAfterTimeout(t *testing.T) {
	cfg := testLLMConfig()
	cfg.MaxRetries = 1
	cfg.BreakerThreshold = 1
	cfg.BreakerRecovery = 20 * time.Millisecond

	client := &fakeClient{script: []fakeTurn{
		fail("503 service unavailable"),
		reply("back online"),
	}}
	gw := newTestGateway(client, cfg)

	_, err := gw.Complete(context.Background(), textRequest("analyze this"))
	require.True(t, IsTransient(err))

	_, err = gw.Complete(context.Background(), textRequest("analyze this"))
	require.True(t, IsCircuitOpen(err))

	time.Sleep(50 * time.Millisecond)

	// Past the recovery window the breaker lets one probe through.
	resp, err := gw.Complete(context.Background(), textRequest("analyze this"))
	require.NoError(t, err)
	require.Equal(t, "back online", resp.Content)
	require.Equal(t, 2, client.callCount())
}

func TestGatewayRejectsRequestWithoutMessages(t *testing.T) {
	client := &fakeClient{script: []fakeTurn{reply("unused")}}
	gw := newTestGateway(client, testLLMConfig())

	_, err := gw.Complete(context.Background(), Request{TaskType: TaskAnalysis})
	require.Error(t, err)
	require.True(t, IsFatal(err))
	require.Contains(t, err.Error(), "no messages")
	require.Equal(t, 0, client.callCount())
}

func TestGatewayRejectsUnconfiguredProvider(t *testing.T) {
	gw := NewGateway(testLLMConfig(), map[string]*Provider{}, testLogger(), nil)

	_, err := gw.Complete(context.Background(), textRequest("analyze this"))
	require.Error(t, err)
	require.True(t, IsFatal(err))
	require.Contains(t, err.Error(), "not configured")
}

func TestGatewayNamesFallbackWhenModelRejected(t *testing.T) {
	client := &fakeClient{script: []fakeTurn{fail("400 model `gpt-test` does not exist")}}
	gw := newTestGateway(client, testLLMConfig())

	_, err := gw.Complete(context.Background(), textRequest("analyze this"))
	require.Error(t, err)
	require.True(t, IsFatal(err))
	require.Contains(t, err.Error(), "rejected by provider openai")
	require.Contains(t, err.Error(), "fallback")
	require.Equal(t, 1, client.callCount())
}

// cancellingClient cancels the run context as soon as the first call lands,
// so the retry loop must bail out instead of sleeping through the backoff.
type cancellingClient struct {
	cancel context.CancelFunc
	mu     sync.Mutex
	calls  int
}

func (c *cancellingClient) GenerateContent(context.Context, []llms.MessageContent, ...llms.CallOption) (*llms.ContentResponse, error) {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()
	c.cancel()
	return nil, errors.New("connection refused")
}

func TestGatewayCancellationWinsOverBackoff(t *testing.T) {
	cfg := testLLMConfig()
	cfg.RetryBackoffBase = 10 * time.Second

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client := &cancellingClient{cancel: cancel}
	gw := NewGateway(cfg, map[string]*Provider{
		ProviderOpenAI: {Name: ProviderOpenAI, Model: "gpt-test", Client: client},
	}, testLogger(), nil)

	start := time.Now()
	_, err := gw.Complete(ctx, textRequest("analyze this"))
	require.ErrorIs(t, err, context.Canceled)
	require.Less(t, time.Since(start), 2*time.Second)

	client.mu.Lock()
	defer client.mu.Unlock()
	require.Equal(t, 1, client.calls)
}

func TestGatewayRoutesByTaskType(t *testing.T) {
	openaiClient := &fakeClient{script: []fakeTurn{reply("from openai")}}
	anthropicClient := &fakeClient{script: []fakeTurn{reply("from anthropic")}}

	gw := NewGateway(testLLMConfig(), map[string]*Provider{
		ProviderOpenAI:    {Name: ProviderOpenAI, Model: "gpt-test", Client: openaiClient},
		ProviderAnthropic: {Name: ProviderAnthropic, Model: "claude-test", Client: anthropicClient},
	}, testLogger(), nil)

	req := textRequest("think hard about this")
	req.TaskType = TaskComplexReasoning

	resp, err := gw.Complete(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, ProviderAnthropic, resp.Provider)
	require.Equal(t, "claude-test", resp.Model)
	require.Equal(t, "from anthropic", resp.Content)
	require.Equal(t, 0, openaiClient.callCount())
}

func TestGatewayAttachesImagesToLastUserMessage(t *testing.T) {
	client := &fakeClient{script: []fakeTurn{reply("described")}}
	gw := newTestGateway(client, testLLMConfig())

	req := Request{
		TaskType: TaskAnalysis,
		Messages: []Message{
			{Role: RoleSystem, Content: "describe images"},
			{Role: RoleUser, Content: "what is in this scan?"},
		},
	}
	img := Image{MIMEType: "image/png", Data: []byte{0x89, 0x50}}

	_, err := gw.CompleteWithImages(context.Background(), req, []Image{img})
	require.NoError(t, err)

	msgs := client.lastMessages()
	require.Len(t, msgs, 2)
	require.Len(t, msgs[0].Parts, 1)
	require.Len(t, msgs[1].Parts, 2)

	bin, ok := msgs[1].Parts[1].(llms.BinaryContent)
	require.True(t, ok)
	require.Equal(t, "image/png", bin.MIMEType)
	require.Equal(t, img.Data, bin.Data)
}

package chat

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/indrajit-intglobal/novaintel-latest-sub000/common/cache"
	"github.com/indrajit-intglobal/novaintel-latest-sub000/common/logger"
	"github.com/indrajit-intglobal/novaintel-latest-sub000/llm"
	"github.com/indrajit-intglobal/novaintel-latest-sub000/retrieval"
)

func testLogger() *logger.Logger {
	return logger.New("error", "json")
}

type stubRetriever struct {
	results []retrieval.Result
	err     error

	calls       int
	lastProject string
	lastQuery   string
	lastTopK    int
}

func (r *stubRetriever) Retrieve(_ context.Context, projectID, query string, topK int) ([]retrieval.Result, error) {
	r.calls++
	r.lastProject = projectID
	r.lastQuery = query
	r.lastTopK = topK
	return r.results, r.err
}

type recordingGateway struct {
	content string
	err     error

	calls int
	last  llm.Request
}

func (g *recordingGateway) Complete(_ context.Context, req llm.Request) (*llm.Response, error) {
	g.calls++
	g.last = req
	if g.err != nil {
		return nil, g.err
	}
	return &llm.Response{Content: g.content, Provider: "openai", Model: "gpt-test"}, nil
}

func budgetChunks() []retrieval.Result {
	return []retrieval.Result{
		{Text: "The total budget is $2M across two years.", Score: 0.91},
		{Text: "Phase one covers discovery and architecture.", Score: 0.55},
	}
}

func TestAskAnswersFromContext(t *testing.T) {
	retriever := &stubRetriever{results: budgetChunks()}
	gateway := &recordingGateway{content: " The budget is $2M. \n"}
	svc := NewService(retriever, gateway, nil, time.Hour, testLogger(), nil)

	resp, err := svc.Ask(context.Background(), "p1", "What is the budget?", nil, 4)
	require.NoError(t, err)

	require.Equal(t, "The budget is $2M.", resp.Answer)
	require.Equal(t, budgetChunks(), resp.Sources)
	require.Equal(t, 2, resp.ContextUsed)

	require.Equal(t, "p1", retriever.lastProject)
	require.Equal(t, "What is the budget?", retriever.lastQuery)
	require.Equal(t, 4, retriever.lastTopK)

	require.Equal(t, llm.TaskAnalysis, gateway.last.TaskType)
	msgs := gateway.last.Messages
	require.Len(t, msgs, 2)

	require.Equal(t, llm.RoleSystem, msgs[0].Role)
	require.Contains(t, msgs[0].Content, "[1] The total budget is $2M across two years.")
	require.Contains(t, msgs[0].Content, "[2] Phase one covers discovery and architecture.")
	require.Contains(t, msgs[0].Content, RefusalMessage)

	require.Equal(t, llm.RoleUser, msgs[1].Role)
	require.Equal(t, "What is the budget?", msgs[1].Content)
}

func TestAskRefusesWithoutContext(t *testing.T) {
	retriever := &stubRetriever{}
	gateway := &recordingGateway{content: "should never be called"}
	store := cache.NewMemoryCache(time.Hour, testLogger())
	svc := NewService(retriever, gateway, store, time.Hour, testLogger(), nil)

	resp, err := svc.Ask(context.Background(), "p1", "What is the budget?", nil, 4)
	require.NoError(t, err)
	require.Equal(t, RefusalMessage, resp.Answer)
	require.NotNil(t, resp.Sources)
	require.Empty(t, resp.Sources)
	require.Zero(t, resp.ContextUsed)
	require.Zero(t, gateway.calls)

	// Refusals are not cached; once the index fills the same question must
	// reach retrieval again.
	_, err = svc.Ask(context.Background(), "p1", "What is the budget?", nil, 4)
	require.NoError(t, err)
	require.Equal(t, 2, retriever.calls)
}

func TestAskCachesAnswers(t *testing.T) {
	retriever := &stubRetriever{results: budgetChunks()}
	gateway := &recordingGateway{content: "The budget is $2M."}
	store := cache.NewMemoryCache(time.Hour, testLogger())
	svc := NewService(retriever, gateway, store, time.Hour, testLogger(), nil)

	first, err := svc.Ask(context.Background(), "p1", "What is the budget?", nil, 4)
	require.NoError(t, err)
	require.Equal(t, 1, gateway.calls)

	second, err := svc.Ask(context.Background(), "p1", "What is the budget?", nil, 4)
	require.NoError(t, err)
	require.Equal(t, 1, gateway.calls, "identical question should hit the cache")
	require.Equal(t, 1, retriever.calls)
	require.Equal(t, first, second)

	// Another project never shares cache entries.
	_, err = svc.Ask(context.Background(), "p2", "What is the budget?", nil, 4)
	require.NoError(t, err)
	require.Equal(t, 2, gateway.calls)
}

func TestAskCacheKeyUsesLastThreeTurns(t *testing.T) {
	turn := func(role, content string) Turn { return Turn{Role: role, Content: content} }
	tail := []Turn{
		turn("assistant", "The deadline is in June."),
		turn("user", "And the budget?"),
		turn("assistant", "The budget is $2M."),
	}

	retriever := &stubRetriever{results: budgetChunks()}
	gateway := &recordingGateway{content: "Yes, $2M total."}
	store := cache.NewMemoryCache(time.Hour, testLogger())
	svc := NewService(retriever, gateway, store, time.Hour, testLogger(), nil)

	historyA := append([]Turn{turn("user", "When is the deadline?")}, tail...)
	_, err := svc.Ask(context.Background(), "p1", "Is that confirmed?", historyA, 4)
	require.NoError(t, err)
	require.Equal(t, 1, gateway.calls)

	// A different opening turn falls outside the hashed window.
	historyB := append([]Turn{turn("user", "Who is the client?")}, tail...)
	_, err = svc.Ask(context.Background(), "p1", "Is that confirmed?", historyB, 4)
	require.NoError(t, err)
	require.Equal(t, 1, gateway.calls, "only the last three turns feed the cache key")

	// Changing a turn inside the window is a different conversation.
	historyC := append([]Turn{}, historyA...)
	historyC[len(historyC)-1] = turn("assistant", "The budget is $3M.")
	_, err = svc.Ask(context.Background(), "p1", "Is that confirmed?", historyC, 4)
	require.NoError(t, err)
	require.Equal(t, 2, gateway.calls)
}

func TestAskMapsHistoryRoles(t *testing.T) {
	retriever := &stubRetriever{results: budgetChunks()}
	gateway := &recordingGateway{content: "Answer."}
	svc := NewService(retriever, gateway, nil, time.Hour, testLogger(), nil)

	history := []Turn{
		{Role: "user", Content: "First question"},
		{Role: "Assistant", Content: "First answer"},
		{Role: "tool", Content: "Stray turn"},
	}
	_, err := svc.Ask(context.Background(), "p1", "Follow-up?", history, 4)
	require.NoError(t, err)

	msgs := gateway.last.Messages
	require.Len(t, msgs, 5)
	require.Equal(t, llm.RoleSystem, msgs[0].Role)
	require.Equal(t, llm.RoleUser, msgs[1].Role)
	require.Equal(t, llm.RoleAssistant, msgs[2].Role, "assistant matching is case-insensitive")
	require.Equal(t, llm.RoleUser, msgs[3].Role, "unknown roles fall back to user")
	require.Equal(t, llm.RoleUser, msgs[4].Role)
	require.Equal(t, "Follow-up?", msgs[4].Content)
}

func TestAskPropagatesRetrieverError(t *testing.T) {
	retriever := &stubRetriever{err: errors.New("store offline")}
	gateway := &recordingGateway{content: "unused"}
	svc := NewService(retriever, gateway, nil, time.Hour, testLogger(), nil)

	_, err := svc.Ask(context.Background(), "p1", "What is the budget?", nil, 4)
	require.Error(t, err)
	require.Contains(t, err.Error(), "store offline")
	require.Zero(t, gateway.calls)
}

func TestAskPropagatesGatewayError(t *testing.T) {
	retriever := &stubRetriever{results: budgetChunks()}
	gateway := &recordingGateway{err: errors.New("circuit open")}
	store := cache.NewMemoryCache(time.Hour, testLogger())
	svc := NewService(retriever, gateway, store, time.Hour, testLogger(), nil)

	_, err := svc.Ask(context.Background(), "p1", "What is the budget?", nil, 4)
	require.Error(t, err)

	// Failures are never cached.
	gateway.err = nil
	gateway.content = "Recovered."
	resp, err := svc.Ask(context.Background(), "p1", "What is the budget?", nil, 4)
	require.NoError(t, err)
	require.Equal(t, "Recovered.", resp.Answer)
	require.Equal(t, 2, gateway.calls)
}

func TestContextBlockNumbersChunks(t *testing.T) {
	block := contextBlock([]retrieval.Result{
		{Text: "  first chunk  "},
		{Text: "second chunk"},
	})
	require.Equal(t, "[1] first chunk\n\n[2] second chunk", block)
	require.False(t, strings.HasSuffix(block, "\n"))
}

package llm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func twoProviders() map[string]*Provider {
	return map[string]*Provider{
		ProviderOpenAI:    {Name: ProviderOpenAI, Model: "gpt-test"},
		ProviderAnthropic: {Name: ProviderAnthropic, Model: "claude-test"},
	}
}

func TestRouterHonorsTaskPreferences(t *testing.T) {
	r := NewRouter(ProviderOpenAI, twoProviders())

	tests := []struct {
		task     TaskType
		provider string
		model    string
	}{
		{TaskFastGeneration, ProviderOpenAI, "gpt-test"},
		{TaskStructuredOutput, ProviderOpenAI, "gpt-test"},
		{TaskComplexReasoning, ProviderAnthropic, "claude-test"},
		{TaskHighQuality, ProviderAnthropic, "claude-test"},
		{TaskCreative, ProviderAnthropic, "claude-test"},
		{TaskRefinement, ProviderAnthropic, "claude-test"},
		{TaskAnalysis, ProviderOpenAI, "gpt-test"},
		{TaskDrafting, ProviderOpenAI, "gpt-test"},
	}

	for _, tt := range tests {
		t.Run(string(tt.task), func(t *testing.T) {
			route := r.Resolve(tt.task)
			require.Equal(t, tt.provider, route.Provider)
			require.Equal(t, tt.model, route.Model)
		})
	}
}

func TestRouterUnknownTaskUsesDefault(t *testing.T) {
	r := NewRouter(ProviderAnthropic, twoProviders())

	route := r.Resolve(TaskType("translation"))
	require.Equal(t, ProviderAnthropic, route.Provider)
	require.Equal(t, "claude-test", route.Model)
}

func TestRouterFallsBackWhenPreferredProviderMissing(t *testing.T) {
	providers := map[string]*Provider{
		ProviderOpenAI: {Name: ProviderOpenAI, Model: "gpt-test"},
	}
	r := NewRouter(ProviderOpenAI, providers)

	// Reasoning prefers anthropic, but a single-key deployment still routes.
	route := r.Resolve(TaskComplexReasoning)
	require.Equal(t, ProviderOpenAI, route.Provider)
	require.Equal(t, "gpt-test", route.Model)
}

func TestRouterResolvesMissingDefaultDeterministically(t *testing.T) {
	providers := map[string]*Provider{
		ProviderAnthropic: {Name: ProviderAnthropic, Model: "claude-test"},
		ProviderOllama:    {Name: ProviderOllama, Model: "llama-test"},
	}
	r := NewRouter("missing", providers)

	// openai is absent, so the scan settles on anthropic before ollama.
	require.Equal(t, ProviderAnthropic, r.Fallback().Provider)
	require.Equal(t, "claude-test", r.Fallback().Model)
	require.Equal(t, ProviderAnthropic, r.Resolve(TaskAnalysis).Provider)
}

func TestRouterFallbackMatchesDefaultRoute(t *testing.T) {
	r := NewRouter(ProviderOpenAI, twoProviders())

	require.Equal(t, r.Resolve(TaskAnalysis), r.Fallback())
}

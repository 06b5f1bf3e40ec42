package llm

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/indrajit-intglobal/novaintel-latest-sub000/common/config"
)

// Provider names.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderOllama    = "ollama"
)

// Completer is the slice of the langchaingo model surface the gateway
// needs. Tests substitute fakes.
type Completer interface {
	GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error)
}

// Provider pairs a client with its default model.
type Provider struct {
	Name   string
	Model  string
	Client Completer
}

// BuildProviders constructs a client per configured provider. Providers
// without credentials are skipped, not failed: the router works with what
// exists.
func BuildProviders(cfg config.LLMConfig) (map[string]*Provider, error) {
	providers := make(map[string]*Provider)

	if cfg.OpenAIKey != "" {
		client, err := openai.New(
			openai.WithToken(cfg.OpenAIKey),
			openai.WithModel(cfg.OpenAIModel),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to build openai client: %w", err)
		}
		providers[ProviderOpenAI] = &Provider{Name: ProviderOpenAI, Model: cfg.OpenAIModel, Client: client}
	}

	if cfg.AnthropicKey != "" {
		client, err := anthropic.New(
			anthropic.WithToken(cfg.AnthropicKey),
			anthropic.WithModel(cfg.AnthropicModel),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to build anthropic client: %w", err)
		}
		providers[ProviderAnthropic] = &Provider{Name: ProviderAnthropic, Model: cfg.AnthropicModel, Client: client}
	}

	if cfg.OllamaURL != "" {
		client, err := ollama.New(
			ollama.WithServerURL(cfg.OllamaURL),
			ollama.WithModel(cfg.OllamaModel),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to build ollama client: %w", err)
		}
		providers[ProviderOllama] = &Provider{Name: ProviderOllama, Model: cfg.OllamaModel, Client: client}
	}

	if len(providers) == 0 {
		return nil, fmt.Errorf("no llm provider configured: set OPENAI_API_KEY, ANTHROPIC_API_KEY or OLLAMA_URL")
	}

	return providers, nil
}

// toMessageContents converts gateway messages to the provider wire shape.
// Images attach to the final user message.
func toMessageContents(messages []Message, images []Image) []llms.MessageContent {
	out := make([]llms.MessageContent, 0, len(messages))

	lastUser := -1
	for i, m := range messages {
		if m.Role == RoleUser {
			lastUser = i
		}
	}

	for i, m := range messages {
		var role llms.ChatMessageType
		switch m.Role {
		case RoleSystem:
			role = llms.ChatMessageTypeSystem
		case RoleAssistant:
			role = llms.ChatMessageTypeAI
		default:
			role = llms.ChatMessageTypeHuman
		}

		mc := llms.MessageContent{
			Role:  role,
			Parts: []llms.ContentPart{llms.TextPart(m.Content)},
		}

		if i == lastUser {
			for _, img := range images {
				mc.Parts = append(mc.Parts, llms.BinaryPart(img.MIMEType, img.Data))
			}
		}

		out = append(out, mc)
	}

	return out
}

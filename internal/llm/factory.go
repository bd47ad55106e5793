package llm

import (
	"context"
	"sync"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/openai/openai-go/v2"
	"google.golang.org/genai"

	errx "github.com/zenai/agentcore/internal/core/error"
)

// ProviderSettings holds credentials shared by every client a Factory builds.
type ProviderSettings struct {
	GeminiAPIKey   string
	GeminiBaseURL  string
	OpenAIAPIKey   string
	OpenAIBaseURL  string
	ThinkingBudget int32
	Timeout        time.Duration
}

// Factory builds per-agent clients over shared provider connections.
type Factory struct {
	settings ProviderSettings

	mu     sync.Mutex
	genai  *genai.Client
	openai *openai.Client
}

func NewFactory(settings ProviderSettings) *Factory {
	return &Factory{settings: settings}
}

// GenAI returns the shared Gemini client, creating it on first use.
func (f *Factory) GenAI(ctx context.Context) (*genai.Client, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.genai != nil {
		return f.genai, nil
	}
	if f.settings.GeminiAPIKey == "" {
		return nil, errx.Configuration("GEMINI_API_KEY is required for the gemini provider")
	}
	c, err := NewGenAIClient(ctx, f.settings.GeminiAPIKey, f.settings.GeminiBaseURL)
	if err != nil {
		return nil, errx.Configuration("gemini client: %v", err)
	}
	f.genai = c
	return c, nil
}

// OpenAI returns the shared OpenAI client, creating it on first use.
func (f *Factory) OpenAI() (openai.Client, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.openai != nil {
		return *f.openai, nil
	}
	if f.settings.OpenAIAPIKey == "" {
		return openai.Client{}, errx.Configuration("OPENAI_API_KEY is required for the openai provider")
	}
	c := NewOpenAIClient(f.settings.OpenAIAPIKey, f.settings.OpenAIBaseURL)
	f.openai = &c
	return c, nil
}

// NewClient validates cfg and builds a client for its provider.
func (f *Factory) NewClient(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.Timeout == 0 {
		cfg.Timeout = f.settings.Timeout
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	var (
		chat model.BaseChatModel
		err  error
	)
	switch cfg.Provider {
	case Gemini:
		var client *genai.Client
		if client, err = f.GenAI(ctx); err != nil {
			return nil, err
		}
		if chat, err = newGeminiChatModel(ctx, client, cfg, f.settings.ThinkingBudget); err != nil {
			return nil, errx.Configuration("%v", err)
		}
	case OpenAI:
		var client openai.Client
		if client, err = f.OpenAI(); err != nil {
			return nil, err
		}
		chat = newOpenAIChatModel(client, cfg)
	}
	return NewClient(chat, cfg)
}

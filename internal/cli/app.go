package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/zenai/agentcore/internal/agent/agents"
	"github.com/zenai/agentcore/internal/agent/model"
	"github.com/zenai/agentcore/internal/agent/prompts"
	"github.com/zenai/agentcore/internal/agent/tools"
	"github.com/zenai/agentcore/internal/cache"
	"github.com/zenai/agentcore/internal/config"
	"github.com/zenai/agentcore/internal/contextbuilder"
	"github.com/zenai/agentcore/internal/engine"
	"github.com/zenai/agentcore/internal/llm"
	"github.com/zenai/agentcore/internal/mcpserver"
	"github.com/zenai/agentcore/internal/memory"
	"github.com/zenai/agentcore/internal/orchestrator"
	"github.com/zenai/agentcore/internal/transcription"
	"github.com/zenai/agentcore/internal/vectorstore"
	logx "github.com/zenai/agentcore/pkg/logger"
)

// Engine is what commands need from the engine service.
type Engine interface {
	mcpserver.Service
	IndexDocuments(ctx context.Context, docs []model.DocumentInput) ([]string, error)
	Ready(ctx context.Context) error
}

// Performer runs a single structured agent operation.
type Performer interface {
	Perform(ctx context.Context, op agents.Operation) (any, error)
}

// App is the wired process: every command runs against one.
type App struct {
	Config *config.AppConfig
	Engine Engine
	Agents Performer

	closers []func() error
}

// Close releases connections in reverse order of creation.
func (a *App) Close() error {
	var first error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	a.closers = nil
	return first
}

// NewApp is the composition root. It builds every collaborator from cfg.
func NewApp(ctx context.Context, cfg *config.AppConfig) (app *App, err error) {
	app = &App{Config: cfg}
	defer func() {
		if err != nil {
			_ = app.Close()
			app = nil
		}
	}()

	factory := llm.NewFactory(llm.ProviderSettings{
		GeminiAPIKey:   cfg.GeminiAPIKey,
		GeminiBaseURL:  cfg.GeminiBaseURL,
		OpenAIAPIKey:   cfg.OpenAIAPIKey,
		OpenAIBaseURL:  cfg.OpenAIBaseURL,
		ThinkingBudget: cfg.ThinkingBudget,
		Timeout:        cfg.LLM.Timeout,
	})
	renderer, err := prompts.NewRenderer()
	if err != nil {
		return nil, err
	}
	agentConfigs, err := config.LoadAgentConfigs(cfg.AgentsFile, cfg.LLM.Provider, cfg.LLM.Model)
	if err != nil {
		return nil, err
	}

	checks := map[string]engine.Pinger{}

	var conversations cache.Cache
	switch strings.ToLower(cfg.CacheBackend) {
	case "memory":
		conversations = cache.NewMemoryCache()
	default:
		rdb, err := cfg.Redis.New(ctx)
		if err != nil {
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		app.closers = append(app.closers, rdb.Close)
		conversations = cache.NewRedisCache(rdb)
	}
	checks["cache"] = conversations
	mem := memory.New(conversations, memory.Config{
		MaxMessages: cfg.Conversation.MaxMessages,
		TTL:         cfg.Conversation.TTL,
	})

	var docs vectorstore.Store
	switch {
	case cfg.Vector.Path == "":
		logx.Info().Msg("document retrieval disabled: VECTOR_DB_PATH is empty")
	case cfg.GeminiAPIKey == "":
		logx.Warn().Msg("document retrieval disabled: embeddings need GEMINI_API_KEY")
	default:
		client, err := factory.GenAI(ctx)
		if err != nil {
			return nil, err
		}
		store, err := vectorstore.OpenSQLite(ctx, cfg.Vector.Path, vectorstore.NewGenAIEmbedder(client, cfg.Vector.EmbeddingModel))
		if err != nil {
			return nil, err
		}
		app.closers = append(app.closers, store.Close)
		checks["documents"] = store
		docs = store
	}

	var transcriber transcription.Transcriber
	if cfg.OpenAIAPIKey != "" {
		client, err := factory.OpenAI()
		if err != nil {
			return nil, err
		}
		transcriber = transcription.NewWhisper(client, transcription.Config{
			Model:    cfg.Whisper.Model,
			Language: cfg.Whisper.Language,
			Timeout:  cfg.Whisper.Timeout,
		})
	} else if changed := config.WithoutTool(agentConfigs, tools.TranscribeAudio); len(changed) > 0 {
		logx.Warn().Interface("agents", changed).Msg("transcription disabled: OPENAI_API_KEY is empty")
	}

	if err := config.ValidateAgents(agentConfigs, renderer); err != nil {
		return nil, err
	}
	newModel := func(ctx context.Context, ac model.AgentConfig) (llm.Completer, error) {
		provider, err := llm.ParseProvider(ac.ModelType)
		if err != nil {
			return nil, err
		}
		return factory.NewClient(ctx, llm.Config{
			Name:        ac.Name,
			Provider:    provider,
			Model:       ac.ModelName,
			Temperature: ac.Temperature,
			MaxTokens:   ac.MaxTokens,
		})
	}

	registry, err := agents.NewRegistry(ctx, agents.Deps{
		Prompts:     renderer,
		Tools:       tools.NewRegistry(nil, transcriber),
		Transcriber: transcriber,
		Model:       newModel,
	}, agentConfigs)
	if err != nil {
		return nil, err
	}
	orchConfig := agentConfigs[model.Orchestrator]
	orchModel, err := newModel(ctx, orchConfig)
	if err != nil {
		return nil, err
	}
	orch, err := orchestrator.New(ctx, orchestrator.Config{
		Agent:   orchConfig,
		Model:   orchModel,
		Prompts: renderer,
		Agents:  registry,
	})
	if err != nil {
		return nil, err
	}

	builder := contextbuilder.New(mem, docs, contextbuilder.Config{
		MaxContextChars: cfg.Context.MaxChars,
		DefaultTopK:     cfg.Context.TopK,
	})
	svc, err := engine.New(engine.Config{
		Builder:   builder,
		Executor:  orch,
		Documents: docs,
		Retry:     engine.RetryPolicy{Attempts: cfg.Retry.Attempts, Delay: cfg.Retry.Delay},
		Checks:    checks,
	})
	if err != nil {
		return nil, err
	}

	app.Engine = svc
	app.Agents = registry
	logx.Info().Stringer("config", cfg).Msg("agent core ready")
	return app, nil
}

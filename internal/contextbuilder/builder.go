// Package contextbuilder assembles the per-request context handed to the orchestrator
// and records finished exchanges.
package contextbuilder

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/zenai/agentcore/internal/agent/model"
	errx "github.com/zenai/agentcore/internal/core/error"
	"github.com/zenai/agentcore/internal/memory"
	"github.com/zenai/agentcore/internal/metrics"
	"github.com/zenai/agentcore/internal/tokens"
	"github.com/zenai/agentcore/internal/vectorstore"
	logx "github.com/zenai/agentcore/pkg/logger"
)

const (
	DefaultMaxContextChars = 4000
	DefaultTopK            = 3

	// IndexForRetrievalKey in SaveInteraction metadata asks for the exchange to be indexed.
	IndexForRetrievalKey = "indexForRetrieval"

	interactionIDKey = "interactionId"
)

type Config struct {
	MaxContextChars int
	DefaultTopK     int
}

// Options select what Build includes. TopK <= 0 uses the configured default.
type Options struct {
	IncludeHistory    bool
	IncludeDocuments  bool
	TopK              int
	Filter            map[string]any
	AdditionalContext map[string]any
}

// DefaultOptions includes history and documents.
func DefaultOptions() Options {
	return Options{IncludeHistory: true, IncludeDocuments: true}
}

// Builder reads memory and the document store. It never writes during Build.
type Builder struct {
	mem    *memory.Memory
	docs   vectorstore.Store
	cfg    Config
	tokens *tokens.Counter
}

// New wires a builder. docs may be nil when documents are never requested.
func New(mem *memory.Memory, docs vectorstore.Store, cfg Config) *Builder {
	if cfg.MaxContextChars <= 0 {
		cfg.MaxContextChars = DefaultMaxContextChars
	}
	if cfg.DefaultTopK <= 0 {
		cfg.DefaultTopK = DefaultTopK
	}
	return &Builder{mem: mem, docs: docs, cfg: cfg}
}

// WithTokenCounter replaces the shared tiktoken counter used by Summarize.
func (b *Builder) WithTokenCounter(c *tokens.Counter) *Builder {
	b.tokens = c
	return b
}

func (b *Builder) Config() Config { return b.cfg }

// Build returns a bundle for query. History and document reads run concurrently.
func (b *Builder) Build(ctx context.Context, key model.ConversationKey, query string, opts Options) (*model.ContextBundle, error) {
	if opts.IncludeDocuments && b.docs == nil {
		return nil, errx.Configuration("documents requested but no document store is configured")
	}
	topK := opts.TopK
	if topK <= 0 {
		topK = b.cfg.DefaultTopK
	}

	bundle := &model.ContextBundle{
		Query:               query,
		ConversationHistory: []model.Message{},
		RelevantDocuments:   []model.Document{},
		Metadata:            map[string]any{},
	}
	for k, v := range opts.AdditionalContext {
		bundle.Metadata[k] = v
	}

	g, gctx := errgroup.WithContext(ctx)
	if opts.IncludeHistory {
		g.Go(func() error {
			msgs, err := b.mem.TruncateByBudget(gctx, key, b.cfg.MaxContextChars)
			if err != nil {
				return fmt.Errorf("load history: %w", err)
			}
			bundle.ConversationHistory = msgs
			return nil
		})
	}
	if opts.IncludeDocuments {
		g.Go(func() error {
			docs, err := b.docs.SimilaritySearch(gctx, query, topK, opts.Filter)
			if err != nil {
				return fmt.Errorf("search documents: %w", err)
			}
			bundle.RelevantDocuments = docs
			metrics.ObserveRetrievedDocs(len(docs))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		logx.Ctx(ctx).Error().Err(err).Str("conversation", key.String()).Msg("failed to build context")
		return nil, err
	}

	logx.Ctx(ctx).Debug().
		Int("history", len(bundle.ConversationHistory)).
		Int("documents", len(bundle.RelevantDocuments)).
		Msg("context built")
	return bundle, nil
}

// SaveInteraction records one finished exchange. When metadata[IndexForRetrievalKey]
// is true the exchange is indexed first; the conversation only grows once every
// requested write succeeded, and an index entry whose append failed is removed again.
func (b *Builder) SaveInteraction(ctx context.Context, key model.ConversationKey, userMessage, assistantMessage string, metadata map[string]any) error {
	if err := key.Validate(); err != nil {
		return errx.Configuration("%v", err)
	}
	index, _ := metadata[IndexForRetrievalKey].(bool)
	if index && b.docs == nil {
		return errx.Configuration("indexing requested but no document store is configured")
	}

	var indexed map[string]any
	if index {
		var err error
		if indexed, err = b.index(ctx, key, userMessage, assistantMessage, metadata); err != nil {
			return fmt.Errorf("index interaction: %w", err)
		}
	}

	if _, err := b.mem.AppendBatch(ctx, key,
		memory.NewMessage{Role: model.RoleUser, Content: userMessage, Metadata: metadata},
		memory.NewMessage{Role: model.RoleAssistant, Content: assistantMessage, Metadata: metadata},
	); err != nil {
		if indexed != nil {
			if derr := b.docs.Delete(ctx, indexed); derr != nil {
				logx.Ctx(ctx).Error().Err(derr).Interface("filter", indexed).Msg("failed to remove index entry of unsaved interaction")
			}
		}
		return fmt.Errorf("save interaction: %w", err)
	}
	return nil
}

// index stores the exchange and returns the filter that selects exactly that entry.
func (b *Builder) index(ctx context.Context, key model.ConversationKey, userMessage, assistantMessage string, metadata map[string]any) (map[string]any, error) {
	interactionID := uuid.NewString()
	meta := map[string]any{
		"type":           "conversation",
		"userId":         key.UserID,
		"conversationId": key.ConversationID,
		"indexedAt":      time.Now().UTC().Format(time.RFC3339),
	}
	for k, v := range metadata {
		meta[k] = v
	}
	meta[interactionIDKey] = interactionID
	_, err := b.docs.AddDocuments(ctx, []model.DocumentInput{{
		Content:  fmt.Sprintf("User: %s\nAssistant: %s", userMessage, assistantMessage),
		Metadata: meta,
	}})
	if err != nil {
		return nil, err
	}
	return map[string]any{interactionIDKey: interactionID}, nil
}

// Summarize describes the conversation, counting tokens with the tokenizer when available.
func (b *Builder) Summarize(ctx context.Context, key model.ConversationKey) (*model.ConversationSummary, error) {
	s, err := b.mem.Summarize(ctx, key)
	if err != nil {
		return nil, err
	}
	msgs, err := b.mem.History(ctx, key)
	if err != nil {
		return nil, err
	}
	counter := b.tokens
	if counter == nil {
		counter = tokens.Default()
	}
	s.TokenEstimate = counter.CountMessages(msgs)
	return s, nil
}

// History returns the stored conversation without truncation.
func (b *Builder) History(ctx context.Context, key model.ConversationKey) ([]model.Message, error) {
	return b.mem.History(ctx, key)
}

func (b *Builder) Clear(ctx context.Context, key model.ConversationKey) error {
	return b.mem.Clear(ctx, key)
}

// FormatForPrompt renders bundle as prompt text.
func FormatForPrompt(bundle *model.ContextBundle) string {
	return bundle.Format()
}

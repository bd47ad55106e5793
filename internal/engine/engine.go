// Package engine is the entry point callers use: it builds context, runs the
// orchestrator and persists the exchange.
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"

	"github.com/zenai/agentcore/internal/agent/model"
	"github.com/zenai/agentcore/internal/contextbuilder"
	errx "github.com/zenai/agentcore/internal/core/error"
	"github.com/zenai/agentcore/internal/orchestrator"
	"github.com/zenai/agentcore/internal/vectorstore"
	logx "github.com/zenai/agentcore/pkg/logger"
)

// Executor runs requests against the agents.
type Executor interface {
	Execute(ctx context.Context, request string, bundle *model.ContextBundle, opts ...orchestrator.ExecuteOption) (*orchestrator.Result, error)
	HandleComplexWorkflow(ctx context.Context, request string, bundle *model.ContextBundle) (*orchestrator.WorkflowResult, error)
}

// Pinger is a dependency checked by Ready.
type Pinger interface {
	Ping(ctx context.Context) error
}

// RetryPolicy retries whole executions that failed with a timeout or provider
// error. Attempts <= 1 disables retrying.
type RetryPolicy struct {
	Attempts uint
	Delay    time.Duration
}

type Config struct {
	Builder  *contextbuilder.Builder
	Executor Executor
	// Documents is optional; without it document retrieval and indexing are off.
	Documents vectorstore.Store
	Retry     RetryPolicy
	// Checks are pinged by Ready, keyed by a display name.
	Checks map[string]Pinger
}

type Service struct {
	builder  *contextbuilder.Builder
	executor Executor
	docs     vectorstore.Store
	retry    RetryPolicy
	checks   map[string]Pinger
	now      func() time.Time
}

func New(cfg Config) (*Service, error) {
	if cfg.Builder == nil {
		return nil, errx.Configuration("engine needs a context builder")
	}
	if cfg.Executor == nil {
		return nil, errx.Configuration("engine needs an executor")
	}
	if cfg.Retry.Attempts == 0 {
		cfg.Retry.Attempts = 1
	}
	return &Service{
		builder:  cfg.Builder,
		executor: cfg.Executor,
		docs:     cfg.Documents,
		retry:    cfg.Retry,
		checks:   cfg.Checks,
		now:      time.Now,
	}, nil
}

// Request is one user turn.
type Request struct {
	UserID         string
	ConversationID string
	Query          string
	// SkipHistory leaves the conversation history out of the context.
	SkipHistory bool
	// IncludeDocuments searches the document store; it needs a configured store.
	IncludeDocuments bool
	TopK             int
	Filter           map[string]any
	// Context is merged into the bundle metadata.
	Context map[string]any
	// IndexForRetrieval also stores the exchange in the document store.
	IndexForRetrieval bool
	// OnChunk streams the synthesized answer.
	OnChunk func(string)
}

func (r Request) key() model.ConversationKey {
	return model.ConversationKey{UserID: r.UserID, ConversationID: r.ConversationID}
}

type ResponseMetadata struct {
	RequestID      string    `json:"requestId"`
	Timestamp      time.Time `json:"timestamp"`
	UserID         string    `json:"userId"`
	ConversationID string    `json:"conversationId"`
}

type Response struct {
	Response     string                `json:"response"`
	Routing      model.RoutingDecision `json:"routing"`
	AgentResults model.AgentResults    `json:"agentResults"`
	Skipped      []string              `json:"skipped,omitempty"`
	Timings      orchestrator.Timings  `json:"timings"`
	Metadata     ResponseMetadata      `json:"metadata"`
}

// Process builds context, executes the request and saves the exchange. The
// exchange is saved exactly once and only when execution succeeded.
func (s *Service) Process(ctx context.Context, req Request) (*Response, error) {
	key := req.key()
	if err := key.Validate(); err != nil {
		return nil, err
	}
	requestID := uuid.NewString()
	ctx = logx.WithFields(ctx, logx.Fields{RequestID: requestID, UserID: req.UserID, ConversationID: req.ConversationID})

	bundle, err := s.builder.Build(ctx, key, req.Query, contextbuilder.Options{
		IncludeHistory:    !req.SkipHistory,
		IncludeDocuments:  req.IncludeDocuments,
		TopK:              req.TopK,
		Filter:            req.Filter,
		AdditionalContext: req.Context,
	})
	if err != nil {
		return nil, err
	}

	var opts []orchestrator.ExecuteOption
	if req.OnChunk != nil {
		opts = append(opts, orchestrator.WithSynthesisStream(req.OnChunk))
	}
	var result *orchestrator.Result
	err = s.withRetry(ctx, func() error {
		var execErr error
		result, execErr = s.executor.Execute(ctx, req.Query, bundle, opts...)
		return execErr
	})
	if err != nil {
		logx.Ctx(ctx).Error().Err(err).Msg("request failed")
		return nil, err
	}

	meta := map[string]any{
		"requestId": requestID,
		"routing":   result.Decision,
	}
	if req.IndexForRetrieval {
		meta[contextbuilder.IndexForRetrievalKey] = true
	}
	if err := s.builder.SaveInteraction(ctx, key, req.Query, result.Synthesis, meta); err != nil {
		return nil, err
	}

	logx.Ctx(ctx).Info().
		Interface("agents", result.Decision.Agents).
		Dur("elapsed", result.Timings.Total).
		Msg("request processed")
	return &Response{
		Response:     result.Synthesis,
		Routing:      result.Decision,
		AgentResults: result.Results,
		Skipped:      result.Skipped,
		Timings:      result.Timings,
		Metadata: ResponseMetadata{
			RequestID:      requestID,
			Timestamp:      s.now().UTC(),
			UserID:         req.UserID,
			ConversationID: req.ConversationID,
		},
	}, nil
}

// ProcessComplexWorkflow builds context and runs a multi-step workflow. Workflow
// runs are not saved to the conversation.
func (s *Service) ProcessComplexWorkflow(ctx context.Context, req Request) (*orchestrator.WorkflowResult, error) {
	key := req.key()
	if err := key.Validate(); err != nil {
		return nil, err
	}
	ctx = logx.WithFields(ctx, logx.Fields{RequestID: uuid.NewString(), UserID: req.UserID, ConversationID: req.ConversationID})

	opts := contextbuilder.Options{IncludeHistory: !req.SkipHistory, AdditionalContext: req.Context}
	bundle, err := s.builder.Build(ctx, key, req.Query, opts)
	if err != nil {
		return nil, err
	}
	return s.executor.HandleComplexWorkflow(ctx, req.Query, bundle)
}

func (s *Service) withRetry(ctx context.Context, fn func() error) error {
	if s.retry.Attempts <= 1 {
		return fn()
	}
	return retry.Do(fn,
		retry.Context(ctx),
		retry.Attempts(s.retry.Attempts),
		retry.Delay(s.retry.Delay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(retryable),
		retry.OnRetry(func(n uint, err error) {
			logx.Ctx(ctx).Warn().Err(err).Uint("attempt", n+1).Msg("retrying request")
		}),
	)
}

func retryable(err error) bool {
	return errx.IsKind(err, errx.KindTimeout) || errx.IsKind(err, errx.KindProvider)
}

// History returns the stored conversation.
func (s *Service) History(ctx context.Context, userID, conversationID string) (*model.ConversationSummary, []model.Message, error) {
	key := model.ConversationKey{UserID: userID, ConversationID: conversationID}
	if err := key.Validate(); err != nil {
		return nil, nil, err
	}
	summary, err := s.builder.Summarize(ctx, key)
	if err != nil {
		return nil, nil, err
	}
	msgs, err := s.builder.History(ctx, key)
	if err != nil {
		return nil, nil, err
	}
	return summary, msgs, nil
}

func (s *Service) ClearContext(ctx context.Context, userID, conversationID string) error {
	key := model.ConversationKey{UserID: userID, ConversationID: conversationID}
	if err := key.Validate(); err != nil {
		return err
	}
	return s.builder.Clear(ctx, key)
}

// IndexDocuments adds documents to the store used for retrieval.
func (s *Service) IndexDocuments(ctx context.Context, docs []model.DocumentInput) ([]string, error) {
	if s.docs == nil {
		return nil, errx.Configuration("no document store is configured")
	}
	return s.docs.AddDocuments(ctx, docs)
}

// Ready pings every configured dependency and reports all failures.
func (s *Service) Ready(ctx context.Context) error {
	var result *multierror.Error
	for name, p := range s.checks {
		if p == nil {
			continue
		}
		if err := p.Ping(ctx); err != nil {
			result = multierror.Append(result, fmt.Errorf("%s: %w", name, err))
		}
	}
	return result.ErrorOrNil()
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

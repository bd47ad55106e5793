package llm

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/zenai/agentcore/internal/agent/observers"
	errx "github.com/zenai/agentcore/internal/core/error"
	"github.com/zenai/agentcore/internal/metrics"
	logx "github.com/zenai/agentcore/pkg/logger"
)

// Provider names a model backend.
type Provider string

const (
	Gemini Provider = "gemini"
	OpenAI Provider = "openai"
)

// ParseProvider rejects anything but the supported providers.
func ParseProvider(s string) (Provider, error) {
	switch Provider(strings.ToLower(strings.TrimSpace(s))) {
	case Gemini:
		return Gemini, nil
	case OpenAI:
		return OpenAI, nil
	}
	return "", errx.Configuration("unknown model provider %q", s)
}

// Options tune a single Complete call. Zero values fall back to the client config.
type Options struct {
	Temperature *float32
	MaxTokens   int
	Streaming   bool
	// OnChunk receives streamed fragments in order before Complete returns.
	OnChunk func(string)
	Timeout time.Duration
}

// Temperature is a helper for Options.Temperature.
func Temperature(t float32) *float32 { return &t }

// Completer is the model call surface used by agents and the orchestrator.
type Completer interface {
	Complete(ctx context.Context, msgs []*schema.Message, opts Options) (string, error)
}

// Config binds a client to one provider model and its sampling defaults.
type Config struct {
	Name        string
	Provider    Provider
	Model       string
	Temperature float32
	MaxTokens   int
	Timeout     time.Duration
}

func (c Config) validate() error {
	if _, err := ParseProvider(string(c.Provider)); err != nil {
		return err
	}
	if c.Model == "" {
		return errx.Configuration("model name is required for provider %s", c.Provider)
	}
	return validateSampling(c.Temperature, c.MaxTokens)
}

func validateSampling(temperature float32, maxTokens int) error {
	if temperature < 0 || temperature > 2 {
		return errx.Configuration("temperature %.2f outside [0, 2]", temperature)
	}
	if maxTokens <= 0 {
		return errx.Configuration("max tokens must be positive, got %d", maxTokens)
	}
	return nil
}

// Client issues chat completions against one provider model. It never retries.
type Client struct {
	chat     model.BaseChatModel
	cfg      Config
	handlers []callbacks.Handler
}

// NewClient wraps an eino chat model. Logging observers are attached to every call.
func NewClient(chat model.BaseChatModel, cfg Config) (*Client, error) {
	if chat == nil {
		return nil, errx.Configuration("chat model is nil")
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.Name == "" {
		cfg.Name = cfg.Model
	}
	return &Client{
		chat:     chat,
		cfg:      cfg,
		handlers: []callbacks.Handler{observers.NewAllCallbacks()},
	}, nil
}

// Config returns the client configuration.
func (c *Client) Config() Config { return c.cfg }

// Complete sends msgs and returns the full response text.
func (c *Client) Complete(ctx context.Context, msgs []*schema.Message, opts Options) (string, error) {
	if len(msgs) == 0 {
		return "", errx.Configuration("no messages to send")
	}
	temperature := c.cfg.Temperature
	if opts.Temperature != nil {
		temperature = *opts.Temperature
	}
	maxTokens := c.cfg.MaxTokens
	if opts.MaxTokens > 0 {
		maxTokens = opts.MaxTokens
	}
	if err := validateSampling(temperature, maxTokens); err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", classify(ctx, ctx, c.cfg.Provider, err)
	}

	timeout := c.cfg.Timeout
	if opts.Timeout > 0 {
		timeout = opts.Timeout
	}
	callCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	callCtx = callbacks.InitCallbacks(callCtx, &callbacks.RunInfo{
		Name:      c.cfg.Name,
		Type:      string(c.cfg.Provider),
		Component: components.ComponentOfChatModel,
	}, c.handlers...)

	modelOpts := []model.Option{
		model.WithTemperature(temperature),
		model.WithMaxTokens(maxTokens),
	}

	start := time.Now()
	var (
		text  string
		usage *schema.TokenUsage
		err   error
	)
	if opts.Streaming {
		text, usage, err = c.stream(callCtx, msgs, modelOpts, opts.OnChunk)
	} else {
		text, usage, err = c.generate(callCtx, msgs, modelOpts)
	}
	metrics.ObserveModelCall(string(c.cfg.Provider), c.cfg.Model, start, err)
	if err != nil {
		err = classify(ctx, callCtx, c.cfg.Provider, err)
		logx.Ctx(ctx).Warn().Err(err).
			Str("provider", string(c.cfg.Provider)).
			Str("model", c.cfg.Model).
			Str("name", c.cfg.Name).
			Dur("elapsed", time.Since(start)).
			Msg("model call failed")
		return "", err
	}
	c.recordUsage(ctx, usage)
	return text, nil
}

type generateResult struct {
	msg *schema.Message
	err error
}

// generate enforces the deadline even when the provider ignores ctx.
func (c *Client) generate(ctx context.Context, msgs []*schema.Message, opts []model.Option) (string, *schema.TokenUsage, error) {
	done := make(chan generateResult, 1)
	go func() {
		m, err := c.chat.Generate(ctx, msgs, opts...)
		done <- generateResult{msg: m, err: err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			return "", nil, r.err
		}
		if r.msg == nil {
			return "", nil, errors.New("provider returned no message")
		}
		return r.msg.Content, usageOf(r.msg), nil
	case <-ctx.Done():
		return "", nil, ctx.Err()
	}
}

type streamEvent struct {
	chunk *schema.Message
	err   error
}

// stream receives on its own goroutine so the deadline holds even when the
// provider's reader ignores ctx. Chunks reach onChunk on the caller's goroutine, in order.
func (c *Client) stream(ctx context.Context, msgs []*schema.Message, opts []model.Option, onChunk func(string)) (string, *schema.TokenUsage, error) {
	events := make(chan streamEvent)
	quit := make(chan struct{})
	defer close(quit)

	go func() {
		defer close(events)
		send := func(e streamEvent) bool {
			select {
			case events <- e:
				return true
			case <-quit:
				return false
			}
		}
		sr, err := c.chat.Stream(ctx, msgs, opts...)
		if err != nil {
			send(streamEvent{err: err})
			return
		}
		// the reader is closed on the deadline so a blocked Recv can return
		stopClose := context.AfterFunc(ctx, sr.Close)
		defer func() {
			if stopClose() {
				sr.Close()
			}
		}()
		for {
			chunk, err := sr.Recv()
			if errors.Is(err, io.EOF) {
				return
			}
			if !send(streamEvent{chunk: chunk, err: err}) || err != nil {
				return
			}
		}
	}()

	var (
		sb    strings.Builder
		usage *schema.TokenUsage
	)
	for {
		select {
		case <-ctx.Done():
			return "", nil, ctx.Err()
		case e, ok := <-events:
			if !ok {
				return sb.String(), usage, nil
			}
			if e.err != nil {
				return "", nil, e.err
			}
			if e.chunk == nil {
				continue
			}
			if u := usageOf(e.chunk); u != nil {
				usage = u
			}
			if e.chunk.Content == "" {
				continue
			}
			sb.WriteString(e.chunk.Content)
			if onChunk != nil {
				onChunk(e.chunk.Content)
			}
		}
	}
}

func usageOf(m *schema.Message) *schema.TokenUsage {
	if m == nil || m.ResponseMeta == nil {
		return nil
	}
	return m.ResponseMeta.Usage
}

func (c *Client) recordUsage(ctx context.Context, usage *schema.TokenUsage) {
	if usage == nil {
		return
	}
	inC, outC, totalC := ComputeCost(usage, ResolvePricing(c.cfg.Model))
	metrics.AddModelUsage(string(c.cfg.Provider), c.cfg.Model, usage.PromptTokens, usage.CompletionTokens, totalC)
	logx.Ctx(ctx).Info().
		Str("name", c.cfg.Name).
		Str("model", c.cfg.Model).
		Int("prompt_tokens", usage.PromptTokens).
		Int("completion_tokens", usage.CompletionTokens).
		Int("total_tokens", usage.TotalTokens).
		Float64("input_cost_usd", inC).
		Float64("output_cost_usd", outC).
		Float64("total_cost_usd", totalC).
		Msg("LLM usage")
}

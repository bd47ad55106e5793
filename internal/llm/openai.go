package llm

import (
	"context"
	"errors"

	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
)

// NewOpenAIClient builds the OpenAI API client shared by chat models and transcription.
func NewOpenAIClient(apiKey, baseURL string) openai.Client {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return openai.NewClient(opts...)
}

// openAIChatModel adapts the OpenAI chat completions API to eino's BaseChatModel.
type openAIChatModel struct {
	client      openai.Client
	model       string
	temperature float32
	maxTokens   int
}

func newOpenAIChatModel(client openai.Client, cfg Config) *openAIChatModel {
	return &openAIChatModel{
		client:      client,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
	}
}

func (m *openAIChatModel) options(opts []model.Option) *model.Options {
	temperature := m.temperature
	maxTokens := m.maxTokens
	name := m.model
	return model.GetCommonOptions(&model.Options{
		Temperature: &temperature,
		MaxTokens:   &maxTokens,
		Model:       &name,
	}, opts...)
}

func (m *openAIChatModel) params(input []*schema.Message, o *model.Options) openai.ChatCompletionNewParams {
	msgs := make([]openai.ChatCompletionMessageParamUnion, 0, len(input))
	for _, in := range input {
		if in == nil {
			continue
		}
		switch in.Role {
		case schema.System:
			msgs = append(msgs, openai.SystemMessage(in.Content))
		case schema.Assistant:
			msgs = append(msgs, openai.AssistantMessage(in.Content))
		default:
			msgs = append(msgs, openai.UserMessage(in.Content))
		}
	}
	p := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(*o.Model),
		Messages: msgs,
	}
	if o.Temperature != nil {
		p.Temperature = openai.Float(float64(*o.Temperature))
	}
	if o.MaxTokens != nil && *o.MaxTokens > 0 {
		p.MaxCompletionTokens = openai.Int(int64(*o.MaxTokens))
	}
	return p
}

func (m *openAIChatModel) callbackInput(input []*schema.Message, o *model.Options) *model.CallbackInput {
	cfg := &model.Config{Model: *o.Model}
	if o.Temperature != nil {
		cfg.Temperature = *o.Temperature
	}
	if o.MaxTokens != nil {
		cfg.MaxTokens = *o.MaxTokens
	}
	return &model.CallbackInput{Messages: input, Config: cfg}
}

func (m *openAIChatModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	o := m.options(opts)
	ctx = callbacks.OnStart(ctx, m.callbackInput(input, o))

	resp, err := m.client.Chat.Completions.New(ctx, m.params(input, o))
	if err != nil {
		callbacks.OnError(ctx, err)
		return nil, err
	}
	if len(resp.Choices) == 0 {
		err := errors.New("openai returned no choices")
		callbacks.OnError(ctx, err)
		return nil, err
	}

	usage := &schema.TokenUsage{
		PromptTokens:     int(resp.Usage.PromptTokens),
		CompletionTokens: int(resp.Usage.CompletionTokens),
		TotalTokens:      int(resp.Usage.TotalTokens),
	}
	out := &schema.Message{
		Role:    schema.Assistant,
		Content: resp.Choices[0].Message.Content,
		ResponseMeta: &schema.ResponseMeta{
			FinishReason: string(resp.Choices[0].FinishReason),
			Usage:        usage,
		},
	}
	callbacks.OnEnd(ctx, &model.CallbackOutput{
		Message: out,
		TokenUsage: &model.TokenUsage{
			PromptTokens:     usage.PromptTokens,
			CompletionTokens: usage.CompletionTokens,
			TotalTokens:      usage.TotalTokens,
		},
	})
	return out, nil
}

func (m *openAIChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	o := m.options(opts)
	cbInput := m.callbackInput(input, o)
	ctx = callbacks.OnStart(ctx, cbInput)

	p := m.params(input, o)
	p.StreamOptions = openai.ChatCompletionStreamOptionsParam{IncludeUsage: openai.Bool(true)}
	stream := m.client.Chat.Completions.NewStreaming(ctx, p)

	sr, sw := schema.Pipe[*model.CallbackOutput](8)
	go func() {
		defer sw.Close()
		defer stream.Close()
		for stream.Next() {
			chunk := stream.Current()
			msg := &schema.Message{Role: schema.Assistant}
			if len(chunk.Choices) > 0 {
				msg.Content = chunk.Choices[0].Delta.Content
			}
			out := &model.CallbackOutput{Message: msg, Config: cbInput.Config}
			if chunk.Usage.TotalTokens > 0 {
				usage := &schema.TokenUsage{
					PromptTokens:     int(chunk.Usage.PromptTokens),
					CompletionTokens: int(chunk.Usage.CompletionTokens),
					TotalTokens:      int(chunk.Usage.TotalTokens),
				}
				msg.ResponseMeta = &schema.ResponseMeta{Usage: usage}
				out.TokenUsage = &model.TokenUsage{
					PromptTokens:     usage.PromptTokens,
					CompletionTokens: usage.CompletionTokens,
					TotalTokens:      usage.TotalTokens,
				}
			}
			if closed := sw.Send(out, nil); closed {
				return
			}
		}
		if err := stream.Err(); err != nil {
			callbacks.OnError(ctx, err)
			sw.Send(nil, err)
		}
	}()

	_, observed := callbacks.OnEndWithStreamOutput(ctx, sr)
	return schema.StreamReaderWithConvert(observed, func(out *model.CallbackOutput) (*schema.Message, error) {
		if out == nil || out.Message == nil {
			return nil, schema.ErrNoValue
		}
		return out.Message, nil
	}), nil
}

func (m *openAIChatModel) IsCallbacksEnabled() bool { return true }

func (m *openAIChatModel) GetType() string { return "OpenAI" }

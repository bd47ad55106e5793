// Package llmtest provides scripted eino chat models for tests.
package llmtest

import (
	"context"
	"strings"
	"sync"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// ChatModel is a scripted model.BaseChatModel. Respond decides each reply; when it
// is nil the model echoes Text. Chunks, when set, are what Stream emits.
type ChatModel struct {
	Respond func(ctx context.Context, msgs []*schema.Message) (string, error)
	Text    string
	Chunks  []string
	Usage   *schema.TokenUsage

	mu    sync.Mutex
	calls [][]*schema.Message
}

// Reply returns a model that always answers text.
func Reply(text string) *ChatModel {
	return &ChatModel{Text: text}
}

// Func returns a model that answers with fn.
func Func(fn func(ctx context.Context, msgs []*schema.Message) (string, error)) *ChatModel {
	return &ChatModel{Respond: fn}
}

func (m *ChatModel) record(msgs []*schema.Message) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]*schema.Message, len(msgs))
	copy(cp, msgs)
	m.calls = append(m.calls, cp)
}

func (m *ChatModel) reply(ctx context.Context, msgs []*schema.Message) (string, error) {
	if m.Respond != nil {
		return m.Respond(ctx, msgs)
	}
	return m.Text, nil
}

func (m *ChatModel) Generate(ctx context.Context, msgs []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	m.record(msgs)
	text, err := m.reply(ctx, msgs)
	if err != nil {
		return nil, err
	}
	out := schema.AssistantMessage(text, nil)
	if m.Usage != nil {
		out.ResponseMeta = &schema.ResponseMeta{Usage: m.Usage}
	}
	return out, nil
}

func (m *ChatModel) Stream(ctx context.Context, msgs []*schema.Message, _ ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	m.record(msgs)
	chunks := m.Chunks
	if chunks == nil {
		text, err := m.reply(ctx, msgs)
		if err != nil {
			return nil, err
		}
		chunks = []string{text}
	}
	out := make([]*schema.Message, 0, len(chunks))
	for _, c := range chunks {
		out = append(out, schema.AssistantMessage(c, nil))
	}
	return schema.StreamReaderFromArray(out), nil
}

// Calls returns the message lists received so far.
func (m *ChatModel) Calls() [][]*schema.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]*schema.Message, len(m.calls))
	copy(out, m.calls)
	return out
}

// CallCount returns how many calls were made.
func (m *ChatModel) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// Prompt joins the contents of msgs for assertions.
func Prompt(msgs []*schema.Message) string {
	parts := make([]string, 0, len(msgs))
	for _, m := range msgs {
		parts = append(parts, m.Content)
	}
	return strings.Join(parts, "\n")
}

// System returns the first system message content.
func System(msgs []*schema.Message) string {
	for _, m := range msgs {
		if m.Role == schema.System {
			return m.Content
		}
	}
	return ""
}

// LastUser returns the last user message content.
func LastUser(msgs []*schema.Message) string {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == schema.User {
			return msgs[i].Content
		}
	}
	return ""
}

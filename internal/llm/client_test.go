package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errx "github.com/zenai/agentcore/internal/core/error"
	"github.com/zenai/agentcore/internal/llm/llmtest"
)

func testConfig() Config {
	return Config{Name: "test", Provider: Gemini, Model: "gemini-2.5-flash", Temperature: 0.3, MaxTokens: 256}
}

func userMsgs(s string) []*schema.Message {
	return []*schema.Message{schema.SystemMessage("sys"), schema.UserMessage(s)}
}

func TestNewClient_Validation(t *testing.T) {
	chat := llmtest.Reply("ok")

	cfg := testConfig()
	cfg.Provider = "anthropic"
	_, err := NewClient(chat, cfg)
	assert.Equal(t, errx.KindConfiguration, errx.KindOf(err))

	cfg = testConfig()
	cfg.Temperature = 2.5
	_, err = NewClient(chat, cfg)
	assert.Equal(t, errx.KindConfiguration, errx.KindOf(err))

	cfg = testConfig()
	cfg.MaxTokens = 0
	_, err = NewClient(chat, cfg)
	assert.Equal(t, errx.KindConfiguration, errx.KindOf(err))

	_, err = NewClient(nil, testConfig())
	assert.Equal(t, errx.KindConfiguration, errx.KindOf(err))
}

func TestComplete_ReturnsText(t *testing.T) {
	chat := llmtest.Reply("hello")
	chat.Usage = &schema.TokenUsage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15}
	c, err := NewClient(chat, testConfig())
	require.NoError(t, err)

	out, err := c.Complete(context.Background(), userMsgs("hi"), Options{})
	require.NoError(t, err)
	assert.Equal(t, "hello", out)
	assert.Equal(t, 1, chat.CallCount())
}

func TestComplete_RejectsBadOptions(t *testing.T) {
	c, err := NewClient(llmtest.Reply("x"), testConfig())
	require.NoError(t, err)

	_, err = c.Complete(context.Background(), userMsgs("hi"), Options{Temperature: Temperature(-1)})
	assert.Equal(t, errx.KindConfiguration, errx.KindOf(err))

	_, err = c.Complete(context.Background(), nil, Options{})
	assert.Equal(t, errx.KindConfiguration, errx.KindOf(err))
}

func TestComplete_StreamingDeliversChunksInOrder(t *testing.T) {
	chat := &llmtest.ChatModel{Chunks: []string{"Hel", "", "lo", " world"}}
	c, err := NewClient(chat, testConfig())
	require.NoError(t, err)

	var got []string
	out, err := c.Complete(context.Background(), userMsgs("hi"), Options{
		Streaming: true,
		OnChunk:   func(s string) { got = append(got, s) },
	})
	require.NoError(t, err)
	assert.Equal(t, "Hello world", out)
	assert.Equal(t, []string{"Hel", "lo", " world"}, got)
}

func TestComplete_TimeoutIsDistinctFromProviderError(t *testing.T) {
	slow := llmtest.Func(func(ctx context.Context, _ []*schema.Message) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})
	c, err := NewClient(slow, testConfig())
	require.NoError(t, err)

	_, err = c.Complete(context.Background(), userMsgs("hi"), Options{Timeout: 20 * time.Millisecond})
	require.Error(t, err)
	assert.Equal(t, errx.KindTimeout, errx.KindOf(err))

	failing := llmtest.Func(func(context.Context, []*schema.Message) (string, error) {
		return "", errors.New("503 upstream unavailable")
	})
	c, err = NewClient(failing, testConfig())
	require.NoError(t, err)

	_, err = c.Complete(context.Background(), userMsgs("hi"), Options{})
	assert.Equal(t, errx.KindProvider, errx.KindOf(err))
	assert.Contains(t, err.Error(), "503")
}

func TestComplete_TimeoutWhenProviderIgnoresContext(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	stuck := llmtest.Func(func(context.Context, []*schema.Message) (string, error) {
		<-release
		return "late", nil
	})
	c, err := NewClient(stuck, testConfig())
	require.NoError(t, err)

	_, err = c.Complete(context.Background(), userMsgs("hi"), Options{Timeout: 20 * time.Millisecond})
	assert.Equal(t, errx.KindTimeout, errx.KindOf(err))
}

// stalledStream hands out a reader that never delivers and ignores ctx.
type stalledStream struct {
	*llmtest.ChatModel
	reader *schema.StreamReader[*schema.Message]
}

func (m *stalledStream) Stream(context.Context, []*schema.Message, ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return m.reader, nil
}

func TestComplete_StreamTimeoutWhenProviderIgnoresContext(t *testing.T) {
	sr, sw := schema.Pipe[*schema.Message](0)
	t.Cleanup(sw.Close)
	stuck := &stalledStream{ChatModel: llmtest.Reply("unused"), reader: sr}
	c, err := NewClient(stuck, testConfig())
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := c.Complete(context.Background(), userMsgs("hi"), Options{Streaming: true, Timeout: 50 * time.Millisecond})
		done <- err
	}()
	select {
	case err := <-done:
		assert.Equal(t, errx.KindTimeout, errx.KindOf(err))
	case <-time.After(2 * time.Second):
		t.Fatal("streaming call outlived its timeout")
	}
}

func TestComplete_CallerCancellation(t *testing.T) {
	c, err := NewClient(llmtest.Reply("x"), testConfig())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = c.Complete(ctx, userMsgs("hi"), Options{})
	assert.Equal(t, errx.KindCanceled, errx.KindOf(err))
}

func TestComputeCost(t *testing.T) {
	in, out, total := ComputeCost(&schema.TokenUsage{PromptTokens: 1_000_000, CompletionTokens: 1_000_000}, ResolvePricing("gemini-2.5-flash"))
	assert.InDelta(t, 0.30, in, 1e-9)
	assert.InDelta(t, 2.50, out, 1e-9)
	assert.InDelta(t, 2.80, total, 1e-9)

	_, _, total = ComputeCost(nil, Pricing{})
	assert.Zero(t, total)
}

func TestParseProvider(t *testing.T) {
	p, err := ParseProvider(" OpenAI ")
	require.NoError(t, err)
	assert.Equal(t, OpenAI, p)

	_, err = ParseProvider("bedrock")
	assert.Equal(t, errx.KindConfiguration, errx.KindOf(err))
}

func TestFactory_RequiresCredentials(t *testing.T) {
	f := NewFactory(ProviderSettings{})
	_, err := f.NewClient(context.Background(), Config{Provider: OpenAI, Model: "gpt-4o", Temperature: 0.3, MaxTokens: 100})
	assert.Equal(t, errx.KindConfiguration, errx.KindOf(err))

	_, err = f.NewClient(context.Background(), Config{Provider: Gemini, Model: "gemini-2.5-flash", Temperature: 0.3, MaxTokens: 100})
	assert.Equal(t, errx.KindConfiguration, errx.KindOf(err))
}

func TestFactory_BuildsOpenAIClientWithoutNetwork(t *testing.T) {
	f := NewFactory(ProviderSettings{OpenAIAPIKey: "sk-test", Timeout: time.Second})
	c, err := f.NewClient(context.Background(), Config{Provider: OpenAI, Model: "gpt-4o-mini", Temperature: 0.7, MaxTokens: 100})
	require.NoError(t, err)
	assert.Equal(t, time.Second, c.Config().Timeout)
}

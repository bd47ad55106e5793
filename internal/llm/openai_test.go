package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	callbackHelper "github.com/cloudwego/eino/utils/callbacks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sseServer(t *testing.T, deltas ...string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		for _, d := range deltas {
			fmt.Fprintf(w, "data: {\"id\":\"c1\",\"object\":\"chat.completion.chunk\",\"created\":1,\"model\":\"m\",\"choices\":[{\"index\":0,\"delta\":{\"content\":%q}}]}\n\n", d)
		}
		fmt.Fprint(w, "data: {\"id\":\"c1\",\"object\":\"chat.completion.chunk\",\"created\":1,\"model\":\"m\",\"choices\":[],\"usage\":{\"prompt_tokens\":3,\"completion_tokens\":2,\"total_tokens\":5}}\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	t.Cleanup(srv.Close)
	return srv
}

type streamEnd struct {
	text   string
	tokens int
}

func TestOpenAIStream_ReportsEndToObservers(t *testing.T) {
	srv := sseServer(t, "Hel", "lo")
	m := newOpenAIChatModel(NewOpenAIClient("test-key", srv.URL), Config{Model: "m", Temperature: 0.3, MaxTokens: 100})

	ended := make(chan streamEnd, 1)
	handler := callbackHelper.NewHandlerHelper().ChatModel(&callbackHelper.ModelCallbackHandler{
		OnEndWithStreamOutput: func(ctx context.Context, _ *callbacks.RunInfo, out *schema.StreamReader[*model.CallbackOutput]) context.Context {
			go func() {
				defer out.Close()
				var e streamEnd
				for {
					chunk, err := out.Recv()
					if errors.Is(err, io.EOF) {
						break
					}
					if err != nil {
						return
					}
					if chunk.Message != nil {
						e.text += chunk.Message.Content
					}
					if chunk.TokenUsage != nil {
						e.tokens = chunk.TokenUsage.TotalTokens
					}
				}
				ended <- e
			}()
			return ctx
		},
	}).Handler()
	ctx := callbacks.InitCallbacks(context.Background(), &callbacks.RunInfo{
		Name:      "test",
		Type:      string(OpenAI),
		Component: components.ComponentOfChatModel,
	}, handler)

	sr, err := m.Stream(ctx, []*schema.Message{schema.UserMessage("hi")})
	require.NoError(t, err)
	var sb strings.Builder
	for {
		msg, err := sr.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		sb.WriteString(msg.Content)
	}
	sr.Close()
	assert.Equal(t, "Hello", sb.String())

	select {
	case e := <-ended:
		assert.Equal(t, "Hello", e.text)
		assert.Equal(t, 5, e.tokens)
	case <-time.After(2 * time.Second):
		t.Fatal("stream end was never reported to observers")
	}
}

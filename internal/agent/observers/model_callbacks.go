package observers

import (
	"context"
	"errors"
	"io"
	"strings"

	einocb "github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	callbackHelper "github.com/cloudwego/eino/utils/callbacks"

	logx "github.com/zenai/agentcore/pkg/logger"
)

const maxLoggedContent = 500

// newModelHandler logs the last user message and the assistant reply around model calls.
func newModelHandler() *callbackHelper.ModelCallbackHandler {
	return &callbackHelper.ModelCallbackHandler{
		OnStart: func(ctx context.Context, info *einocb.RunInfo, input *model.CallbackInput) context.Context {
			ev := logx.Ctx(ctx).Debug().Str("component", string(info.Component)).Str("name", info.Name)
			if input != nil {
				ev = ev.Int("messages", len(input.Messages))
				if um := lastUserContent(input.Messages); um != "" {
					ev = ev.Str("user", clip(um))
				}
			}
			ev.Msg("model call start")
			return ctx
		},
		OnEnd: func(ctx context.Context, info *einocb.RunInfo, output *model.CallbackOutput) context.Context {
			ev := logx.Ctx(ctx).Debug().Str("component", string(info.Component)).Str("name", info.Name)
			if output != nil && output.Message != nil {
				ev = ev.Str("assistant", clip(output.Message.Content))
			}
			if output != nil && output.TokenUsage != nil {
				ev = ev.Int("total_tokens", output.TokenUsage.TotalTokens)
			}
			ev.Msg("model call end")
			return ctx
		},
		OnEndWithStreamOutput: func(ctx context.Context, info *einocb.RunInfo, output *schema.StreamReader[*model.CallbackOutput]) context.Context {
			go logStreamEnd(ctx, info, output)
			return ctx
		},
		OnError: func(ctx context.Context, info *einocb.RunInfo, err error) context.Context {
			logx.Ctx(ctx).Warn().Err(err).Str("component", string(info.Component)).Str("name", info.Name).Msg("model call failed")
			return ctx
		},
	}
}

// logStreamEnd drains the observer's copy of a streamed reply and logs it once complete.
func logStreamEnd(ctx context.Context, info *einocb.RunInfo, output *schema.StreamReader[*model.CallbackOutput]) {
	defer output.Close()
	var (
		sb     strings.Builder
		tokens int
		chunks int
	)
	for {
		out, err := output.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return
		}
		if out == nil {
			continue
		}
		chunks++
		if out.Message != nil {
			sb.WriteString(out.Message.Content)
		}
		if out.TokenUsage != nil {
			tokens = out.TokenUsage.TotalTokens
		}
	}
	logx.Ctx(ctx).Debug().
		Str("component", string(info.Component)).
		Str("name", info.Name).
		Int("chunks", chunks).
		Int("total_tokens", tokens).
		Str("assistant", clip(sb.String())).
		Msg("model stream end")
}

func lastUserContent(msgs []*schema.Message) string {
	for i := len(msgs) - 1; i >= 0; i-- {
		m := msgs[i]
		if m == nil {
			continue
		}
		if m.Role == schema.User {
			return strings.TrimSpace(m.Content)
		}
	}
	return ""
}

func clip(s string) string {
	s = strings.TrimSpace(s)
	r := []rune(s)
	if len(r) <= maxLoggedContent {
		return s
	}
	return string(r[:maxLoggedContent]) + "..."
}

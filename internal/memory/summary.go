package memory

import (
	"context"
	"unicode/utf8"

	"github.com/zenai/agentcore/internal/agent/model"
)

const snippetRunes = 100

// Summarize describes the stored conversation. TokenEstimate is chars/4; callers
// with a tokenizer may replace it.
func (m *Memory) Summarize(ctx context.Context, key model.ConversationKey) (*model.ConversationSummary, error) {
	msgs, err := m.History(ctx, key)
	if err != nil {
		return nil, err
	}
	s := &model.ConversationSummary{Key: key, MessageCount: len(msgs)}
	for _, msg := range msgs {
		switch msg.Role {
		case model.RoleUser:
			s.UserCount++
		case model.RoleAssistant:
			s.AssistantCount++
		case model.RoleSystem:
			s.SystemCount++
		}
		s.TotalChars += utf8.RuneCountInString(msg.Content)
	}
	if len(msgs) > 0 {
		s.FirstMessage = snippet(msgs[0].Content)
		s.LastMessage = snippet(msgs[len(msgs)-1].Content)
		s.StartedAt = msgs[0].Timestamp
		s.LastActiveAt = msgs[len(msgs)-1].Timestamp
	}
	s.TokenEstimate = (s.TotalChars + 3) / 4
	return s, nil
}

func snippet(s string) string {
	r := []rune(s)
	if len(r) <= snippetRunes {
		return s
	}
	return string(r[:snippetRunes]) + "..."
}

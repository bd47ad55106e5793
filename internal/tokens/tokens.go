// Package tokens estimates token counts with tiktoken, falling back to chars/4.
package tokens

import (
	"sync"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"

	"github.com/zenai/agentcore/internal/agent/model"
	logx "github.com/zenai/agentcore/pkg/logger"
)

const (
	defaultEncoding = "cl100k_base"
	// per-message framing overhead and reply priming used by chat formats
	perMessageTokens = 4
	replyPriming     = 2
)

// Counter counts tokens for prompts and stored conversations.
type Counter struct {
	enc *tiktoken.Tiktoken
}

var (
	defaultOnce    sync.Once
	defaultCounter *Counter
)

// Default returns a shared cl100k_base counter. When the encoding cannot be
// loaded (offline without a cached BPE file) it estimates chars/4.
func Default() *Counter {
	defaultOnce.Do(func() {
		defaultCounter = New(defaultEncoding)
	})
	return defaultCounter
}

// New loads the named encoding; failures degrade to the character estimate.
func New(encoding string) *Counter {
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		logx.Warn().Err(err).Str("encoding", encoding).Msg("tiktoken encoding unavailable, estimating tokens from characters")
		return &Counter{}
	}
	return &Counter{enc: enc}
}

// Exact reports whether counts come from a real tokenizer.
func (c *Counter) Exact() bool {
	return c != nil && c.enc != nil
}

// Count returns the token count of text.
func (c *Counter) Count(text string) int {
	if text == "" {
		return 0
	}
	if !c.Exact() {
		return Estimate(text)
	}
	return len(c.enc.Encode(text, nil, nil))
}

// CountMessages counts a chat history including per-message framing.
func (c *Counter) CountMessages(msgs []model.Message) int {
	if len(msgs) == 0 {
		return 0
	}
	total := replyPriming
	for _, m := range msgs {
		total += perMessageTokens + c.Count(string(m.Role)) + c.Count(m.Content)
	}
	return total
}

// Truncate cuts text to at most maxTokens tokens.
func (c *Counter) Truncate(text string, maxTokens int) string {
	if maxTokens <= 0 {
		return ""
	}
	if !c.Exact() {
		r := []rune(text)
		if len(r) <= maxTokens*4 {
			return text
		}
		return string(r[:maxTokens*4])
	}
	ids := c.enc.Encode(text, nil, nil)
	if len(ids) <= maxTokens {
		return text
	}
	return c.enc.Decode(ids[:maxTokens])
}

// Estimate is the character based fallback: one token per four runes, rounded up.
func Estimate(text string) int {
	return (utf8.RuneCountInString(text) + 3) / 4
}

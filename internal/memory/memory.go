// Package memory keeps bounded, expiring conversation histories in a cache.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/zenai/agentcore/internal/agent/model"
	"github.com/zenai/agentcore/internal/cache"
	errx "github.com/zenai/agentcore/internal/core/error"
	"github.com/zenai/agentcore/internal/metrics"
	logx "github.com/zenai/agentcore/pkg/logger"
)

const (
	DefaultMaxMessages = 20
	DefaultTTL         = 24 * time.Hour
)

type Config struct {
	MaxMessages int
	TTL         time.Duration
}

// NewMessage is the input to Append.
type NewMessage struct {
	Role     model.Role
	Content  string
	Metadata map[string]any
}

// Memory stores each conversation as one JSON array. Writes to the same key are
// serialized in process; the TTL slides forward on every write.
type Memory struct {
	cache cache.Cache
	cfg   Config
	locks *keyedMutex
	now   func() time.Time
}

func New(c cache.Cache, cfg Config) *Memory {
	if cfg.MaxMessages <= 0 {
		cfg.MaxMessages = DefaultMaxMessages
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	return &Memory{cache: c, cfg: cfg, locks: newKeyedMutex(), now: time.Now}
}

func (m *Memory) Config() Config { return m.cfg }

// Append adds one message and evicts the oldest beyond MaxMessages.
func (m *Memory) Append(ctx context.Context, key model.ConversationKey, role model.Role, content string, metadata map[string]any) (model.Message, error) {
	msgs, err := m.AppendBatch(ctx, key, NewMessage{Role: role, Content: content, Metadata: metadata})
	if err != nil {
		return model.Message{}, err
	}
	return msgs[0], nil
}

// AppendBatch adds messages in order under a single lock and write.
func (m *Memory) AppendBatch(ctx context.Context, key model.ConversationKey, in ...NewMessage) (out []model.Message, err error) {
	defer func() { metrics.IncMemoryOp("append", err) }()

	if err := key.Validate(); err != nil {
		return nil, errx.Configuration("%v", err)
	}
	if len(in) == 0 {
		return nil, nil
	}
	now := m.now().UTC()
	out = make([]model.Message, 0, len(in))
	for _, n := range in {
		if !model.ValidRole(n.Role) {
			return nil, errx.Configuration("invalid message role %q", n.Role)
		}
		out = append(out, model.Message{
			Role:      n.Role,
			Content:   n.Content,
			Timestamp: now,
			Metadata:  copyMeta(n.Metadata),
		})
	}

	unlock := m.locks.Lock(key.String())
	defer unlock()

	history, err := m.load(ctx, key)
	if err != nil {
		return nil, err
	}
	history = append(history, out...)
	if over := len(history) - m.cfg.MaxMessages; over > 0 {
		history = history[over:]
	}
	if err := m.store(ctx, key, history); err != nil {
		return nil, err
	}
	return out, nil
}

// History returns the stored messages oldest first. A missing key is an empty history.
func (m *Memory) History(ctx context.Context, key model.ConversationKey) (msgs []model.Message, err error) {
	defer func() { metrics.IncMemoryOp("history", err) }()
	if err := key.Validate(); err != nil {
		return nil, errx.Configuration("%v", err)
	}
	return m.load(ctx, key)
}

// Clear drops the conversation.
func (m *Memory) Clear(ctx context.Context, key model.ConversationKey) (err error) {
	defer func() { metrics.IncMemoryOp("clear", err) }()
	if err := key.Validate(); err != nil {
		return errx.Configuration("%v", err)
	}
	unlock := m.locks.Lock(key.String())
	defer unlock()
	return m.cache.Del(ctx, key.String())
}

// TruncateByBudget returns the newest messages whose total content fits maxChars.
func (m *Memory) TruncateByBudget(ctx context.Context, key model.ConversationKey, maxChars int) ([]model.Message, error) {
	msgs, err := m.History(ctx, key)
	if err != nil {
		return nil, err
	}
	return TruncateByBudget(msgs, maxChars), nil
}

// TruncateByBudget keeps the longest suffix of msgs whose content length in runes
// fits maxChars, oldest first. When even the newest message is over budget it is
// returned alone, cut to maxChars and marked truncated. maxChars <= 0 keeps nothing.
func TruncateByBudget(msgs []model.Message, maxChars int) []model.Message {
	if maxChars <= 0 || len(msgs) == 0 {
		return []model.Message{}
	}
	total := 0
	start := len(msgs)
	for i := len(msgs) - 1; i >= 0; i-- {
		n := utf8.RuneCountInString(msgs[i].Content)
		if total+n > maxChars {
			break
		}
		total += n
		start = i
	}
	if start == len(msgs) {
		newest := msgs[len(msgs)-1]
		meta := copyMeta(newest.Metadata)
		if meta == nil {
			meta = map[string]any{}
		}
		meta["truncated"] = true
		newest.Content = string([]rune(newest.Content)[:maxChars])
		newest.Metadata = meta
		return []model.Message{newest}
	}
	out := make([]model.Message, len(msgs)-start)
	copy(out, msgs[start:])
	return out
}

func (m *Memory) load(ctx context.Context, key model.ConversationKey) ([]model.Message, error) {
	b, ok, err := m.cache.Get(ctx, key.String())
	if err != nil {
		return nil, err
	}
	if !ok || len(b) == 0 {
		return []model.Message{}, nil
	}
	var msgs []model.Message
	if err := json.Unmarshal(b, &msgs); err != nil {
		logx.Ctx(ctx).Error().Err(err).Str("key", key.String()).Msg("failed to decode conversation")
		return nil, fmt.Errorf("decode conversation %s: %w", key, err)
	}
	return msgs, nil
}

func (m *Memory) store(ctx context.Context, key model.ConversationKey, msgs []model.Message) error {
	b, err := json.Marshal(msgs)
	if err != nil {
		return fmt.Errorf("encode conversation %s: %w", key, err)
	}
	return m.cache.Set(ctx, key.String(), b, m.cfg.TTL)
}

func copyMeta(in map[string]any) map[string]any {
	if in == nil {
		return nil
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

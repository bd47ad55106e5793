package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zenai/agentcore/internal/agent/model"
	"github.com/zenai/agentcore/internal/cache"
	errx "github.com/zenai/agentcore/internal/core/error"
)

var key = model.ConversationKey{UserID: "u1", ConversationID: "c1"}

func TestAppend_BoundedFIFO(t *testing.T) {
	ctx := context.Background()
	for _, n := range []int{0, 1, 5, 20, 21, 57} {
		t.Run(fmt.Sprintf("n=%d", n), func(t *testing.T) {
			m := New(cache.NewMemoryCache(), Config{MaxMessages: 20})
			for i := 0; i < n; i++ {
				_, err := m.Append(ctx, key, model.RoleUser, fmt.Sprintf("m%d", i), nil)
				require.NoError(t, err)
			}
			got, err := m.History(ctx, key)
			require.NoError(t, err)

			want := n
			if want > 20 {
				want = 20
			}
			require.Len(t, got, want)
			for i, msg := range got {
				assert.Equal(t, fmt.Sprintf("m%d", n-want+i), msg.Content)
			}
		})
	}
}

func TestAppend_RejectsBadInput(t *testing.T) {
	m := New(cache.NewMemoryCache(), Config{})
	_, err := m.Append(context.Background(), key, "tool", "x", nil)
	assert.Equal(t, errx.KindConfiguration, errx.KindOf(err))

	_, err = m.Append(context.Background(), model.ConversationKey{UserID: "u"}, model.RoleUser, "x", nil)
	assert.Equal(t, errx.KindConfiguration, errx.KindOf(err))
}

func TestAppend_ConcurrentSameKey(t *testing.T) {
	ctx := context.Background()
	m := New(cache.NewMemoryCache(), Config{MaxMessages: 100})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := m.Append(ctx, key, model.RoleUser, fmt.Sprintf("m%d", i), nil)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	got, err := m.History(ctx, key)
	require.NoError(t, err)
	assert.Len(t, got, 50)
	assert.Zero(t, m.locks.size())
}

func TestAppend_ConcurrentSameKeyEvicts(t *testing.T) {
	const writers, max = 50, 10
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	for name, c := range map[string]cache.Cache{
		"memory": cache.NewMemoryCache(),
		"redis":  cache.NewRedisCache(rdb),
	} {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			m := New(c, Config{MaxMessages: max})

			written := make(map[string]bool, writers)
			for i := 0; i < writers; i++ {
				written[fmt.Sprintf("m%d", i)] = true
			}

			var wg sync.WaitGroup
			for i := 0; i < writers; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					_, err := m.Append(ctx, key, model.RoleUser, fmt.Sprintf("m%d", i), nil)
					assert.NoError(t, err)
				}(i)
			}
			wg.Wait()

			got, err := m.History(ctx, key)
			require.NoError(t, err)
			require.Len(t, got, max)
			seen := make(map[string]bool, max)
			for _, msg := range got {
				assert.True(t, written[msg.Content], msg.Content)
				assert.False(t, seen[msg.Content], "duplicate %s", msg.Content)
				seen[msg.Content] = true
			}
			assert.Zero(t, m.locks.size())
		})
	}
}

func TestHistory_MissIsEmpty(t *testing.T) {
	m := New(cache.NewMemoryCache(), Config{})
	got, err := m.History(context.Background(), key)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestRedisBacked_SlidingTTLAndClear(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()
	m := New(cache.NewRedisCache(rdb), Config{MaxMessages: 20, TTL: time.Hour})

	_, err := m.Append(ctx, key, model.RoleUser, "hello", map[string]any{"source": "test"})
	require.NoError(t, err)
	assert.Equal(t, time.Hour, mr.TTL("conversation:u1:c1"))

	mr.FastForward(50 * time.Minute)
	_, err = m.Append(ctx, key, model.RoleAssistant, "hi", nil)
	require.NoError(t, err)
	assert.Equal(t, time.Hour, mr.TTL("conversation:u1:c1"))

	got, err := m.History(ctx, key)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "test", got[0].Metadata["source"])

	mr.FastForward(2 * time.Hour)
	got, err = m.History(ctx, key)
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = m.Append(ctx, key, model.RoleUser, "again", nil)
	require.NoError(t, err)
	require.NoError(t, m.Clear(ctx, key))
	got, err = m.History(ctx, key)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func msgs(contents ...string) []model.Message {
	out := make([]model.Message, len(contents))
	for i, c := range contents {
		out[i] = model.Message{Role: model.RoleUser, Content: c}
	}
	return out
}

func TestTruncateByBudget(t *testing.T) {
	in := msgs("aaaa", "bbb", "cc", "d")

	assert.Equal(t, msgs("bbb", "cc", "d"), TruncateByBudget(in, 6))
	assert.Equal(t, msgs("cc", "d"), TruncateByBudget(in, 5))
	assert.Equal(t, in, TruncateByBudget(in, 100))
	assert.Empty(t, TruncateByBudget(in, 0))
	assert.Empty(t, TruncateByBudget(nil, 10))
}

func TestTruncateByBudget_OversizedNewest(t *testing.T) {
	in := msgs("short", strings.Repeat("é", 10))
	got := TruncateByBudget(in, 4)
	require.Len(t, got, 1)
	assert.Equal(t, "éééé", got[0].Content)
	assert.Equal(t, true, got[0].Metadata["truncated"])
	assert.Nil(t, in[1].Metadata)
}

func TestTruncateByBudget_Property(t *testing.T) {
	in := msgs("one", "three", "fifteen chars!!", "x", "yy", "zzz", "a longer message here")
	for budget := 1; budget <= 60; budget++ {
		got := TruncateByBudget(in, budget)
		total := 0
		for _, m := range got {
			total += len([]rune(m.Content))
		}
		assert.LessOrEqual(t, total, budget)
		if len(got) > 0 && got[len(got)-1].Metadata == nil {
			assert.Equal(t, in[len(in)-len(got):], got, "budget=%d must keep a suffix", budget)
		}
	}
}

func TestSummarize(t *testing.T) {
	ctx := context.Background()
	m := New(cache.NewMemoryCache(), Config{})
	_, err := m.AppendBatch(ctx, key,
		NewMessage{Role: model.RoleUser, Content: "create a task"},
		NewMessage{Role: model.RoleAssistant, Content: "done"},
	)
	require.NoError(t, err)

	s, err := m.Summarize(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, 2, s.MessageCount)
	assert.Equal(t, 1, s.UserCount)
	assert.Equal(t, 1, s.AssistantCount)
	assert.Equal(t, "create a task", s.FirstMessage)
	assert.Equal(t, "done", s.LastMessage)
	assert.Equal(t, 17, s.TotalChars)
	assert.Equal(t, 5, s.TokenEstimate)
}

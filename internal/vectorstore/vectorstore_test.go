package vectorstore

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zenai/agentcore/internal/agent/model"
	errx "github.com/zenai/agentcore/internal/core/error"
)

// keywordEmbedder maps texts onto fixed axes so distances are predictable.
type keywordEmbedder struct{ calls int }

var axes = []string{"redis", "deploy", "invoice"}

func (e *keywordEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	e.calls++
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v := make([]float32, len(axes))
		lower := strings.ToLower(t)
		for j, a := range axes {
			if strings.Contains(lower, a) {
				v[j] = 1
			}
		}
		out[i] = v
	}
	return out, nil
}

func TestBand(t *testing.T) {
	assert.Equal(t, model.RelevanceHigh, Band(0))
	assert.Equal(t, model.RelevanceHigh, Band(0.2499))
	assert.Equal(t, model.RelevanceMedium, Band(0.25))
	assert.Equal(t, model.RelevanceMedium, Band(0.49))
	assert.Equal(t, model.RelevanceLow, Band(0.5))
	assert.Equal(t, model.RelevanceLow, Band(2))
}

func TestCosineDistance(t *testing.T) {
	assert.InDelta(t, 0, CosineDistance([]float32{1, 0}, []float32{2, 0}), 1e-9)
	assert.InDelta(t, 1, CosineDistance([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.InDelta(t, 2, CosineDistance([]float32{1, 0}, []float32{-1, 0}), 1e-9)
	assert.Equal(t, 2.0, CosineDistance([]float32{1}, []float32{1, 0}))
	assert.Equal(t, 2.0, CosineDistance([]float32{0, 0}, []float32{1, 0}))
}

func TestMatchFilter(t *testing.T) {
	meta := map[string]any{"user": "u1", "n": 3, "tags": []any{"a"}}
	assert.True(t, MatchFilter(meta, nil))
	assert.True(t, MatchFilter(meta, map[string]any{"user": "u1"}))
	assert.True(t, MatchFilter(meta, map[string]any{"n": 3.0}))
	assert.True(t, MatchFilter(meta, map[string]any{"tags": []string{"a"}}))
	assert.False(t, MatchFilter(meta, map[string]any{"user": "u2"}))
	assert.False(t, MatchFilter(meta, map[string]any{"missing": "x"}))
}

func TestVectorRoundTrip(t *testing.T) {
	v := []float32{0.5, -1.25, 3}
	assert.Equal(t, v, decodeVector(encodeVector(v)))
}

func stores(t *testing.T) map[string]Store {
	t.Helper()
	ctx := context.Background()
	sq, err := OpenSQLite(ctx, filepath.Join(t.TempDir(), "vectors.db"), &keywordEmbedder{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = sq.Close() })
	return map[string]Store{
		"sqlite": sq,
		"memory": NewMemoryStore(&keywordEmbedder{}),
	}
}

func TestStore_SearchRanksByDistance(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			ids, err := s.AddDocuments(ctx, []model.DocumentInput{
				{Content: "Invoice totals for March", Metadata: map[string]any{"user": "u1"}},
				{Content: "Redis failover runbook", Metadata: map[string]any{"user": "u1"}},
				{Content: "Redis deploy checklist", Metadata: map[string]any{"user": "u2"}},
			})
			require.NoError(t, err)
			require.Len(t, ids, 3)
			assert.NotEqual(t, ids[0], ids[1])

			docs, err := s.SimilaritySearch(ctx, "redis", 2, nil)
			require.NoError(t, err)
			require.Len(t, docs, 2)
			assert.Equal(t, "Redis failover runbook", docs[0].Content)
			assert.Equal(t, model.RelevanceHigh, docs[0].Relevance)
			assert.InDelta(t, 0, docs[0].Score, 1e-6)
			assert.Equal(t, "Redis deploy checklist", docs[1].Content)
			assert.Equal(t, model.RelevanceMedium, docs[1].Relevance)
			assert.LessOrEqual(t, docs[0].Score, docs[1].Score)

			filtered, err := s.SimilaritySearch(ctx, "redis", 5, map[string]any{"user": "u2"})
			require.NoError(t, err)
			require.Len(t, filtered, 1)
			assert.Equal(t, ids[2], filtered[0].ID)
			assert.Equal(t, "u2", filtered[0].Metadata["user"])
		})
	}
}

func TestStore_Delete(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			_, err := s.AddDocuments(ctx, []model.DocumentInput{
				{Content: "redis a", Metadata: map[string]any{"conversation": "c1"}},
				{Content: "redis b", Metadata: map[string]any{"conversation": "c2"}},
			})
			require.NoError(t, err)

			err = s.Delete(ctx, nil)
			require.Error(t, err)
			assert.True(t, errx.IsKind(err, errx.KindConfiguration))

			require.NoError(t, s.Delete(ctx, map[string]any{"conversation": "c1"}))
			docs, err := s.SimilaritySearch(ctx, "redis", 10, nil)
			require.NoError(t, err)
			require.Len(t, docs, 1)
			assert.Equal(t, "redis b", docs[0].Content)
		})
	}
}

func TestStore_EmptyInputs(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ids, err := s.AddDocuments(context.Background(), nil)
			require.NoError(t, err)
			assert.Empty(t, ids)

			docs, err := s.SimilaritySearch(context.Background(), "anything", 3, nil)
			require.NoError(t, err)
			assert.Empty(t, docs)
		})
	}
}

func TestOpenSQLite_RequiresEmbedder(t *testing.T) {
	_, err := OpenSQLite(context.Background(), ":memory:", nil)
	require.Error(t, err)
	assert.True(t, errx.IsKind(err, errx.KindConfiguration))
}

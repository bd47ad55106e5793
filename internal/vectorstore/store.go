// Package vectorstore indexes passages by embedding and ranks them by cosine distance.
package vectorstore

import (
	"context"
	"encoding/json"
	"math"
	"sort"

	"github.com/zenai/agentcore/internal/agent/model"
)

// Relevance band edges over cosine distance.
const (
	HighRelevanceBelow   = 0.25
	MediumRelevanceBelow = 0.5
)

// Store is the document collaborator used by the context builder.
type Store interface {
	SimilaritySearch(ctx context.Context, query string, k int, filter map[string]any) ([]model.Document, error)
	AddDocuments(ctx context.Context, docs []model.DocumentInput) ([]string, error)
	Delete(ctx context.Context, filter map[string]any) error
	Ping(ctx context.Context) error
}

// Embedder turns texts into vectors of a fixed dimension.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Band buckets a cosine distance: 0 is identical, 2 is opposite.
func Band(distance float64) model.Relevance {
	switch {
	case distance < HighRelevanceBelow:
		return model.RelevanceHigh
	case distance < MediumRelevanceBelow:
		return model.RelevanceMedium
	}
	return model.RelevanceLow
}

// CosineDistance returns 1 - cos(a, b). Mismatched or zero vectors are maximally distant.
func CosineDistance(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 2
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 2
	}
	d := 1 - dot/(math.Sqrt(na)*math.Sqrt(nb))
	if d < 0 {
		return 0
	}
	return d
}

// MatchFilter reports whether every filter key is present in meta with an equal value.
// Values compare by their JSON encoding so 3 and 3.0 match.
func MatchFilter(meta, filter map[string]any) bool {
	for k, want := range filter {
		got, ok := meta[k]
		if !ok || !jsonEqual(got, want) {
			return false
		}
	}
	return true
}

func jsonEqual(a, b any) bool {
	ab, err1 := json.Marshal(a)
	bb, err2 := json.Marshal(b)
	if err1 != nil || err2 != nil {
		return false
	}
	var an, bn any
	if json.Unmarshal(ab, &an) != nil || json.Unmarshal(bb, &bn) != nil {
		return false
	}
	na, _ := json.Marshal(an)
	nb, _ := json.Marshal(bn)
	return string(na) == string(nb)
}

type candidate struct {
	id       string
	content  string
	metadata map[string]any
	vector   []float32
}

// rank scores candidates against query and keeps the k closest.
func rank(query []float32, cands []candidate, k int) []model.Document {
	docs := make([]model.Document, 0, len(cands))
	for _, c := range cands {
		d := CosineDistance(query, c.vector)
		docs = append(docs, model.Document{
			ID:        c.id,
			Content:   c.content,
			Metadata:  c.metadata,
			Score:     d,
			Relevance: Band(d),
		})
	}
	sort.SliceStable(docs, func(i, j int) bool { return docs[i].Score < docs[j].Score })
	if k > 0 && len(docs) > k {
		docs = docs[:k]
	}
	return docs
}

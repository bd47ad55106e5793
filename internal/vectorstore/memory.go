package vectorstore

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/zenai/agentcore/internal/agent/model"
	errx "github.com/zenai/agentcore/internal/core/error"
)

// MemoryStore is an in-process Store for local runs and tests.
type MemoryStore struct {
	mu       sync.RWMutex
	embedder Embedder
	docs     []candidate
}

func NewMemoryStore(embedder Embedder) *MemoryStore {
	return &MemoryStore{embedder: embedder}
}

func (s *MemoryStore) Ping(context.Context) error { return nil }

func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}

func (s *MemoryStore) AddDocuments(ctx context.Context, docs []model.DocumentInput) ([]string, error) {
	if len(docs) == 0 {
		return nil, nil
	}
	texts := make([]string, len(docs))
	for i, d := range docs {
		texts[i] = d.Content
	}
	vecs, err := s.embedder.Embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed documents: %w", err)
	}
	if len(vecs) != len(docs) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d documents", len(vecs), len(docs))
	}

	ids := make([]string, len(docs))
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, d := range docs {
		ids[i] = uuid.NewString()
		meta := make(map[string]any, len(d.Metadata))
		for k, v := range d.Metadata {
			meta[k] = v
		}
		s.docs = append(s.docs, candidate{id: ids[i], content: d.Content, metadata: meta, vector: vecs[i]})
	}
	return ids, nil
}

func (s *MemoryStore) SimilaritySearch(ctx context.Context, query string, k int, filter map[string]any) ([]model.Document, error) {
	vecs, err := s.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vecs) != 1 {
		return nil, fmt.Errorf("embedder returned %d vectors for one query", len(vecs))
	}

	s.mu.RLock()
	cands := make([]candidate, 0, len(s.docs))
	for _, c := range s.docs {
		if MatchFilter(c.metadata, filter) {
			cands = append(cands, c)
		}
	}
	s.mu.RUnlock()
	return rank(vecs[0], cands, k), nil
}

func (s *MemoryStore) Delete(_ context.Context, filter map[string]any) error {
	if len(filter) == 0 {
		return errx.Configuration("refusing to delete documents without a filter")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.docs[:0]
	for _, c := range s.docs {
		if !MatchFilter(c.metadata, filter) {
			kept = append(kept, c)
		}
	}
	s.docs = kept
	return nil
}

var _ Store = (*MemoryStore)(nil)

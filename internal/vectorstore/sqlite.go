package vectorstore

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/zenai/agentcore/internal/agent/model"
	errx "github.com/zenai/agentcore/internal/core/error"
	logx "github.com/zenai/agentcore/pkg/logger"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS documents (
	id         TEXT PRIMARY KEY,
	content    TEXT NOT NULL,
	metadata   TEXT NOT NULL DEFAULT '{}',
	embedding  BLOB NOT NULL,
	created_at TEXT NOT NULL
);`

// SQLiteStore keeps passages and their embeddings in SQLite and ranks in process.
// Every search is a full scan: each row matching the filter is decoded and scored, O(n) in stored documents.
type SQLiteStore struct {
	db       *sql.DB
	embedder Embedder
}

// OpenSQLite opens (or creates) the database at path. Use ":memory:" for tests.
func OpenSQLite(ctx context.Context, path string, embedder Embedder) (*SQLiteStore, error) {
	if embedder == nil {
		return nil, errx.Configuration("vector store needs an embedder")
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open vector db %s: %w", path, err)
	}
	// a single connection keeps ":memory:" databases shared and serializes writes
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate vector db: %w", err)
	}
	return &SQLiteStore{db: db, embedder: embedder}, nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

func (s *SQLiteStore) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

// AddDocuments embeds and stores docs, returning their new ids in input order.
func (s *SQLiteStore) AddDocuments(ctx context.Context, docs []model.DocumentInput) ([]string, error) {
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

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO documents (id, content, metadata, embedding, created_at) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return nil, err
	}
	defer stmt.Close()

	now := time.Now().UTC().Format(time.RFC3339Nano)
	ids := make([]string, len(docs))
	for i, d := range docs {
		meta, err := json.Marshal(nonNil(d.Metadata))
		if err != nil {
			return nil, fmt.Errorf("encode metadata: %w", err)
		}
		ids[i] = uuid.NewString()
		if _, err := stmt.ExecContext(ctx, ids[i], d.Content, string(meta), encodeVector(vecs[i]), now); err != nil {
			return nil, fmt.Errorf("insert document: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	logx.Ctx(ctx).Debug().Int("documents", len(ids)).Msg("indexed documents")
	return ids, nil
}

// SimilaritySearch returns up to k documents matching filter, closest first. It scans every stored row.
func (s *SQLiteStore) SimilaritySearch(ctx context.Context, query string, k int, filter map[string]any) ([]model.Document, error) {
	vecs, err := s.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vecs) != 1 {
		return nil, fmt.Errorf("embedder returned %d vectors for one query", len(vecs))
	}
	cands, err := s.scan(ctx, filter)
	if err != nil {
		return nil, err
	}
	return rank(vecs[0], cands, k), nil
}

// Delete removes documents matching filter. An empty filter is rejected.
func (s *SQLiteStore) Delete(ctx context.Context, filter map[string]any) error {
	if len(filter) == 0 {
		return errx.Configuration("refusing to delete documents without a filter")
	}
	cands, err := s.scan(ctx, filter)
	if err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	for _, c := range cands {
		if _, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, c.id); err != nil {
			return fmt.Errorf("delete document %s: %w", c.id, err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) scan(ctx context.Context, filter map[string]any) ([]candidate, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, content, metadata, embedding FROM documents ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}
	defer rows.Close()

	var out []candidate
	for rows.Next() {
		var (
			c        candidate
			metaJSON string
			blob     []byte
		)
		if err := rows.Scan(&c.id, &c.content, &metaJSON, &blob); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(metaJSON), &c.metadata); err != nil {
			return nil, fmt.Errorf("decode metadata of %s: %w", c.id, err)
		}
		if !MatchFilter(c.metadata, filter) {
			continue
		}
		c.vector = decodeVector(blob)
		out = append(out, c)
	}
	return out, rows.Err()
}

func encodeVector(v []float32) []byte {
	b := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(b[i*4:], math.Float32bits(f))
	}
	return b
}

func decodeVector(b []byte) []float32 {
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v
}

func nonNil(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}

var _ Store = (*SQLiteStore)(nil)

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package index

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/pdiddy/recog-engine/pkg/types"
)

const defaultSQLitePath = "data/modules.db"

// SQLiteIndex keeps the module catalog and its embeddings in a local
// SQLite file and ranks by cosine distance over every row. It suits
// catalogs of a few thousand modules.
type SQLiteIndex struct {
	db   *sql.DB
	enc  encoder
	opts options
}

// NewSQLite opens or creates the database at cfg.SQLitePath and creates
// the schema if it does not exist.
func NewSQLite(cfg types.IndexConfig, embedder Embedder, opts ...Option) (*SQLiteIndex, error) {
	path := cfg.SQLitePath
	if path == "" {
		path = defaultSQLitePath
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating index directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &SQLiteIndex{db: db, enc: newEncoder(embedder, cfg.Embedding), opts: newOptions(opts)}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *SQLiteIndex) Close() error {
	return s.db.Close()
}

func (s *SQLiteIndex) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS modules (
			id TEXT PRIMARY KEY,
			content TEXT NOT NULL,
			metadata TEXT NOT NULL DEFAULT '{}',
			embedding BLOB NOT NULL
		)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Upsert embeds the entries and inserts or replaces them in one
// transaction.
func (s *SQLiteIndex) Upsert(ctx context.Context, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}
	docs := make([]string, len(entries))
	for i, e := range entries {
		docs[i] = e.Content
	}
	vecs, err := s.enc.passages(ctx, docs)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO modules (id, content, metadata, embedding) VALUES (?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			content=excluded.content, metadata=excluded.metadata, embedding=excluded.embedding`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for i, e := range entries {
		md := e.Metadata
		if md == nil {
			md = map[string]any{}
		}
		mdJSON, err := json.Marshal(md)
		if err != nil {
			return fmt.Errorf("encoding metadata of %s: %w", e.ID, err)
		}
		if _, err := stmt.ExecContext(ctx, e.ID, e.Content, string(mdJSON), encodeVector(vecs[i])); err != nil {
			return fmt.Errorf("inserting module %s: %w", e.ID, err)
		}
	}
	return tx.Commit()
}

// Get returns the entry with the given id, or ErrNotFound.
func (s *SQLiteIndex) Get(ctx context.Context, id string) (Entry, error) {
	var e Entry
	var mdJSON string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, content, metadata FROM modules WHERE id = ?`, id,
	).Scan(&e.ID, &e.Content, &mdJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, fmt.Errorf("module %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return Entry{}, fmt.Errorf("querying module %s: %w", id, err)
	}
	if err := json.Unmarshal([]byte(mdJSON), &e.Metadata); err != nil {
		return Entry{}, fmt.Errorf("decoding metadata of %s: %w", id, err)
	}
	return e, nil
}

// Count returns the number of stored modules.
func (s *SQLiteIndex) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM modules`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting modules: %w", err)
	}
	return n, nil
}

// Entries returns every stored module ordered by id.
func (s *SQLiteIndex) Entries(ctx context.Context) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, content, metadata FROM modules ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("querying modules: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var mdJSON string
		if err := rows.Scan(&e.ID, &e.Content, &mdJSON); err != nil {
			return nil, fmt.Errorf("scanning module: %w", err)
		}
		if err := json.Unmarshal([]byte(mdJSON), &e.Metadata); err != nil {
			return nil, fmt.Errorf("decoding metadata of %s: %w", e.ID, err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// SimilaritySearchWithScore implements Index. Ties keep rowid order.
func (s *SQLiteIndex) SimilaritySearchWithScore(ctx context.Context, query string, k int) ([]ScoredEntry, error) {
	entries, err := s.search(ctx, query, k)
	s.opts.metrics.IndexQuery(err)
	if err != nil {
		return nil, err
	}
	s.opts.logger.Debug("index query",
		zap.String("backend", "sqlite"), zap.Int("k", k), zap.Int("returned", len(entries)))
	return entries, nil
}

func (s *SQLiteIndex) search(ctx context.Context, query string, k int) ([]ScoredEntry, error) {
	if k <= 0 {
		return []ScoredEntry{}, nil
	}
	vec, err := s.enc.query(ctx, query)
	if err != nil {
		return nil, err
	}

	if vecEnabled {
		return s.searchVec(ctx, vec, k)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT id, content, metadata, embedding FROM modules ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("querying modules: %w", err)
	}
	defer rows.Close()

	scored := []ScoredEntry{}
	for rows.Next() {
		var e ScoredEntry
		var mdJSON string
		var blob []byte
		if err := rows.Scan(&e.ID, &e.Content, &mdJSON, &blob); err != nil {
			return nil, fmt.Errorf("scanning module: %w", err)
		}
		if err := json.Unmarshal([]byte(mdJSON), &e.Metadata); err != nil {
			s.opts.logger.Warn("skipping module with bad metadata", zap.String("id", e.ID), zap.Error(err))
			continue
		}
		e.Score = cosineDistance(vec, decodeVector(blob))
		scored = append(scored, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating modules: %w", err)
	}

	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score < scored[j].Score })
	if len(scored) > k {
		scored = scored[:k]
	}
	return scored, nil
}

// searchVec pushes ranking into SQLite when the sqlite-vec extension is
// compiled in. Stored blobs already use its float32 layout.
func (s *SQLiteIndex) searchVec(ctx context.Context, vec []float32, k int) ([]ScoredEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, content, metadata, vec_distance_cosine(embedding, ?) AS distance
		FROM modules
		ORDER BY distance ASC, rowid ASC
		LIMIT ?`, encodeVector(vec), k)
	if err != nil {
		return nil, fmt.Errorf("querying modules: %w", err)
	}
	defer rows.Close()

	scored := []ScoredEntry{}
	for rows.Next() {
		var e ScoredEntry
		var mdJSON string
		if err := rows.Scan(&e.ID, &e.Content, &mdJSON, &e.Score); err != nil {
			return nil, fmt.Errorf("scanning module: %w", err)
		}
		if err := json.Unmarshal([]byte(mdJSON), &e.Metadata); err != nil {
			s.opts.logger.Warn("skipping module with bad metadata", zap.String("id", e.ID), zap.Error(err))
			continue
		}
		scored = append(scored, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating modules: %w", err)
	}
	return scored, nil
}

// encodeVector stores a vector as little-endian float32s.
func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(b []byte) []float32 {
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[4*i:]))
	}
	return v
}

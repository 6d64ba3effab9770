package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/internmatch/internal/corpus"
	"github.com/hyperjump/internmatch/internal/keyword"
	"github.com/hyperjump/internmatch/internal/models"
	"github.com/hyperjump/internmatch/internal/vector"
)

const (
	metaBuildID        = "build_id"
	metaCreatedAt      = "created_at"
	metaEmbeddingModel = "embedding_model"
	metaDimensions     = "dimensions"
	metaVectorizer     = "vectorizer"
	metaWeights        = "weights"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// NewSQLiteStore opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStore{db: db, path: dbPath}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS listings (
		position INTEGER PRIMARY KEY,
		id TEXT NOT NULL,
		title TEXT NOT NULL,
		description TEXT NOT NULL,
		required_skills TEXT NOT NULL,
		extra TEXT,
		lexical_indices BLOB,
		lexical_values BLOB,
		embedding BLOB NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_listings_title ON listings(title);

	CREATE TABLE IF NOT EXISTS meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`
	_, err := db.Exec(schema)
	return err
}

// SaveCorpus replaces the stored corpus in one transaction. Stored weights are
// kept unless c carries its own.
func (s *SQLiteStore) SaveCorpus(ctx context.Context, c *corpus.Corpus) error {
	if err := c.Validate(); err != nil {
		return err
	}
	specJSON, err := json.Marshal(c.Vectorizer.Spec())
	if err != nil {
		return fmt.Errorf("failed to marshal vectorizer: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM listings`); err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO listings (position, id, title, description, required_skills, extra,
			lexical_indices, lexical_values, embedding)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, rec := range c.Records {
		var extra sql.NullString
		if len(rec.Extra) > 0 {
			b, err := json.Marshal(rec.Extra)
			if err != nil {
				return fmt.Errorf("failed to marshal extra for %s: %w", rec.ID, err)
			}
			extra = sql.NullString{String: string(b), Valid: true}
		}
		lex := c.Lexical[i]
		if _, err := stmt.ExecContext(ctx, i, rec.ID, rec.Title, rec.Description, rec.RequiredSkills, extra,
			encodeIndices(lex.Indices), encodeValues(lex.Values), vector.Float32sToBytes(c.Embeddings[i]),
		); err != nil {
			return fmt.Errorf("failed to insert listing %s: %w", rec.ID, err)
		}
	}

	createdAt := c.Meta.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	meta := map[string]string{
		metaBuildID:        c.Meta.BuildID,
		metaCreatedAt:      createdAt.UTC().Format(time.RFC3339Nano),
		metaEmbeddingModel: c.Meta.EmbeddingModel,
		metaDimensions:     strconv.Itoa(c.Dimensions()),
		metaVectorizer:     string(specJSON),
	}
	if c.Weights != nil {
		b, err := corpus.MarshalWeights(*c.Weights)
		if err != nil {
			return err
		}
		meta[metaWeights] = string(b)
	}
	for k, v := range meta {
		if err := putMeta(ctx, tx, k, v); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// LoadCorpus reads the stored corpus back in position order.
func (s *SQLiteStore) LoadCorpus(ctx context.Context) (*corpus.Corpus, error) {
	meta, err := s.meta(ctx)
	if err != nil {
		return nil, err
	}
	specJSON, ok := meta[metaVectorizer]
	if !ok {
		return nil, ErrNoCorpus
	}
	var spec keyword.VectorizerSpec
	if err := json.Unmarshal([]byte(specJSON), &spec); err != nil {
		return nil, fmt.Errorf("%w: %v", keyword.ErrInvalidVectorizer, err)
	}
	v, err := keyword.NewVectorizer(spec)
	if err != nil {
		return nil, err
	}

	c := &corpus.Corpus{Vectorizer: v, Meta: metaFrom(meta)}
	if w, ok := meta[metaWeights]; ok {
		fw, err := corpus.ParseWeights([]byte(w))
		if err != nil {
			return nil, err
		}
		c.Weights = &fw
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, description, required_skills, extra, lexical_indices, lexical_values, embedding
		 FROM listings ORDER BY position`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var rec models.CorpusRecord
		var extra sql.NullString
		var indices, values, emb []byte
		if err := rows.Scan(&rec.ID, &rec.Title, &rec.Description, &rec.RequiredSkills, &extra,
			&indices, &values, &emb); err != nil {
			return nil, err
		}
		if extra.Valid && extra.String != "" {
			if err := json.Unmarshal([]byte(extra.String), &rec.Extra); err != nil {
				return nil, fmt.Errorf("failed to unmarshal extra for %s: %w", rec.ID, err)
			}
		}
		lex, err := decodeSparse(indices, values)
		if err != nil {
			return nil, fmt.Errorf("listing %s: %w", rec.ID, err)
		}
		c.Records = append(c.Records, rec)
		c.Lexical = append(c.Lexical, lex)
		c.Embeddings = append(c.Embeddings, vector.BytesToFloat32s(emb))
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// SaveWeights stores tuned fusion weights alongside the corpus.
func (s *SQLiteStore) SaveWeights(ctx context.Context, w models.FusionWeights) error {
	b, err := corpus.MarshalWeights(w)
	if err != nil {
		return err
	}
	return putMeta(ctx, s.db, metaWeights, string(b))
}

// Weights returns the stored tuned weights, or nil if none were saved.
func (s *SQLiteStore) Weights(ctx context.Context) (*models.FusionWeights, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = ?`, metaWeights).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	w, err := corpus.ParseWeights([]byte(raw))
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// Stats returns listing counts and build metadata.
func (s *SQLiteStore) Stats(ctx context.Context) (*Stats, error) {
	var st Stats
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM listings`).Scan(&st.Listings); err != nil {
		return nil, err
	}
	meta, err := s.meta(ctx)
	if err != nil {
		return nil, err
	}
	m := metaFrom(meta)
	st.BuildID = m.BuildID
	st.EmbeddingModel = m.EmbeddingModel
	st.Dimensions = m.Dimensions
	st.CreatedAt = m.CreatedAt
	if specJSON, ok := meta[metaVectorizer]; ok {
		var spec keyword.VectorizerSpec
		if err := json.Unmarshal([]byte(specJSON), &spec); err == nil {
			st.Vocabulary = len(spec.Vocabulary)
		}
	}
	if w, ok := meta[metaWeights]; ok {
		if fw, err := corpus.ParseWeights([]byte(w)); err == nil {
			st.Weights = &fw
		}
	}
	return &st, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func putMeta(ctx context.Context, db execer, key, value string) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO meta (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	return err
}

func (s *SQLiteStore) meta(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM meta`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	meta := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		meta[k] = v
	}
	return meta, rows.Err()
}

func metaFrom(meta map[string]string) corpus.Meta {
	m := corpus.Meta{
		BuildID:        meta[metaBuildID],
		EmbeddingModel: meta[metaEmbeddingModel],
	}
	m.Dimensions, _ = strconv.Atoi(meta[metaDimensions])
	m.CreatedAt, _ = time.Parse(time.RFC3339Nano, meta[metaCreatedAt])
	return m
}

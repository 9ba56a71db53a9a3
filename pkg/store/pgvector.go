package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/vasdom/knowledge/internal/models"
	"github.com/vasdom/knowledge/pkg/llm"
)

const defaultSearchLimit = 10

type StoreConfig struct {
	ConnString  string
	SearchLimit int
}

// Store is the Postgres persistence layer over documents, chunks and
// staged uploads, with pgvector cosine search over chunk embeddings.
type Store struct {
	config StoreConfig
	pool   *pgxpool.Pool
}

func NewWithConfig(ctx context.Context, config StoreConfig) (*Store, error) {
	if config.SearchLimit == 0 {
		config.SearchLimit = defaultSearchLimit
	}

	pool, err := pgxpool.New(ctx, config.ConnString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %v", err)
	}

	s := &Store{
		config: config,
		pool:   pool,
	}

	if err := s.initialize(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return s, nil
}

// initialize creates the schema if it does not exist yet. Migrations
// may already have run; every statement is idempotent.
func (s *Store) initialize(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return fmt.Errorf("failed to create vector extension: %v", err)
	}

	statements := []string{
		`
		CREATE TABLE IF NOT EXISTS ai_documents (
			id TEXT PRIMARY KEY,
			filename TEXT NOT NULL,
			mime TEXT,
			size_bytes BIGINT,
			summary TEXT,
			pages INTEGER,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS ai_chunks (
			id TEXT PRIMARY KEY,
			document_id TEXT NOT NULL REFERENCES ai_documents(id) ON DELETE CASCADE,
			chunk_index INTEGER NOT NULL,
			content TEXT NOT NULL,
			embedding vector(%d),
			UNIQUE (document_id, chunk_index)
		)`, llm.EmbeddingDim),
		`CREATE INDEX IF NOT EXISTS ai_chunks_document_id_idx ON ai_chunks (document_id)`,
		`
		CREATE TABLE IF NOT EXISTS ai_uploads_temp (
			upload_id TEXT PRIMARY KEY,
			meta JSONB NOT NULL,
			expires_at TIMESTAMPTZ NOT NULL
		)`,
	}

	for _, stmt := range statements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create schema: %v", err)
		}
	}

	// ANN index creation depends on the installed pgvector build; a
	// failure leaves search on a sequential scan.
	annIndex := `
		CREATE INDEX IF NOT EXISTS ai_chunks_embedding_idx
		ON ai_chunks
		USING ivfflat (embedding vector_cosine_ops)
		WITH (lists = 100)`
	if _, err := s.pool.Exec(ctx, annIndex); err != nil {
		log.Printf("failed to create ANN index, falling back to exact search: %v", err)
	}

	return nil
}

func (s *Store) InsertStage(ctx context.Context, uploadID string, meta models.StageMeta, expiresAt time.Time) error {
	payload, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("failed to encode stage meta: %v", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO ai_uploads_temp (upload_id, meta, expires_at)
		VALUES ($1, $2::jsonb, $3)`,
		uploadID, string(payload), expiresAt)
	if err != nil {
		return fmt.Errorf("failed to insert stage: %v", err)
	}
	return nil
}

// LoadStage returns the stage meta for uploadID. Missing and expired
// stages both report models.ErrNotFound.
func (s *Store) LoadStage(ctx context.Context, uploadID string) (*models.StageMeta, error) {
	var payload []byte
	err := s.pool.QueryRow(ctx, `
		SELECT meta FROM ai_uploads_temp
		WHERE upload_id = $1 AND expires_at > now()`,
		uploadID).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load stage: %v", err)
	}

	var meta models.StageMeta
	if err := json.Unmarshal(payload, &meta); err != nil {
		return nil, fmt.Errorf("failed to decode stage meta: %v", err)
	}
	return &meta, nil
}

// DeleteStage removes a stage row. Deleting a missing stage is not an
// error.
func (s *Store) DeleteStage(ctx context.Context, uploadID string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM ai_uploads_temp WHERE upload_id = $1`, uploadID)
	if err != nil {
		return fmt.Errorf("failed to delete stage: %v", err)
	}
	return nil
}

// PurgeExpiredStages removes stages past their expires_at and returns
// how many rows were deleted.
func (s *Store) PurgeExpiredStages(ctx context.Context) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM ai_uploads_temp WHERE expires_at <= now()`)
	if err != nil {
		return 0, fmt.Errorf("failed to purge expired stages: %v", err)
	}
	return tag.RowsAffected(), nil
}

// SaveDocument inserts the document and all its chunks and deletes the
// originating stage, all inside one transaction. On any failure the
// transaction rolls back and the stage remains consumable.
func (s *Store) SaveDocument(ctx context.Context, doc models.Document, chunks []models.Chunk, uploadID string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %v", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO ai_documents (id, filename, mime, size_bytes, summary, pages, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		doc.ID, doc.Filename, doc.MIME, doc.SizeBytes, doc.Summary, doc.Pages, doc.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert document: %v", err)
	}

	for _, chunk := range chunks {
		_, err = tx.Exec(ctx, `
			INSERT INTO ai_chunks (id, document_id, chunk_index, content, embedding)
			VALUES ($1, $2, $3, $4, $5)`,
			chunk.ID, chunk.DocumentID, chunk.ChunkIndex, chunk.Content,
			pgvector.NewVector(chunk.Embedding))
		if err != nil {
			return fmt.Errorf("failed to insert chunk %d: %v", chunk.ChunkIndex, err)
		}
	}

	if _, err := tx.Exec(ctx, `DELETE FROM ai_uploads_temp WHERE upload_id = $1`, uploadID); err != nil {
		return fmt.Errorf("failed to consume stage: %v", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %v", err)
	}
	return nil
}

// DeleteDocument removes a document; its chunks go with it via the
// foreign key cascade.
func (s *Store) DeleteDocument(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM ai_documents WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete document: %v", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// ListDocuments returns up to limit documents, most recent first, each
// carrying its chunk count.
func (s *Store) ListDocuments(ctx context.Context, limit int) ([]models.Document, error) {
	if limit <= 0 {
		limit = 200
	}

	rows, err := s.pool.Query(ctx, `
		SELECT d.id, d.filename, d.mime, d.size_bytes, d.summary, d.pages, d.created_at,
			(SELECT count(*) FROM ai_chunks c WHERE c.document_id = d.id) AS chunks_count
		FROM ai_documents d
		ORDER BY d.created_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %v", err)
	}
	defer rows.Close()

	docs := make([]models.Document, 0, limit)
	for rows.Next() {
		var doc models.Document
		err := rows.Scan(
			&doc.ID,
			&doc.Filename,
			&doc.MIME,
			&doc.SizeBytes,
			&doc.Summary,
			&doc.Pages,
			&doc.CreatedAt,
			&doc.ChunkCount,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan document row: %v", err)
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// SearchChunks returns the k chunks nearest to embedding by cosine
// distance, ties broken by chunk id so repeated queries return the
// same order. Score is 1 - cosine distance.
func (s *Store) SearchChunks(ctx context.Context, embedding []float32, k int) ([]models.SearchResult, error) {
	if k <= 0 {
		k = s.config.SearchLimit
	}

	vector := pgvector.NewVector(embedding)
	rows, err := s.pool.Query(ctx, `
		SELECT c.document_id, c.chunk_index, c.content,
			1 - (c.embedding <=> $1) AS score,
			d.filename
		FROM ai_chunks c
		JOIN ai_documents d ON d.id = c.document_id
		ORDER BY c.embedding <=> $1, c.id
		LIMIT $2`, vector, k)
	if err != nil {
		return nil, fmt.Errorf("failed to query chunks: %v", err)
	}
	defer rows.Close()

	results := make([]models.SearchResult, 0, k)
	for rows.Next() {
		var r models.SearchResult
		if err := rows.Scan(&r.DocumentID, &r.ChunkIndex, &r.Content, &r.Score, &r.Filename); err != nil {
			return nil, fmt.Errorf("failed to scan result row: %v", err)
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

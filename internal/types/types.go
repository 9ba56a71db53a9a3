package types

import (
	"context"
	"time"

	"github.com/vasdom/knowledge/internal/models"
)

// Core interfaces

// Extractor converts a source file's bytes plus its lowercased
// extension into plain text and a page count. A non-nil error means
// the source contributes nothing; it never aborts an ingestion.
type Extractor interface {
	Extract(data []byte, ext string) (models.Extraction, error)
}

// Chunker splits text into overlapping token windows. The output is
// deterministic for a fixed input and parameters.
type Chunker interface {
	Chunk(text string, targetTokens, overlap int) []string
}

// Embedder produces fixed-dimension dense vectors. Implementations
// never fail: positions the provider could not embed hold zero
// vectors.
type Embedder interface {
	EmbedTexts(ctx context.Context, texts []string) [][]float32
	EmbedQuery(ctx context.Context, text string) []float32
}

// Summarizer produces a short abstract of a text, falling back to
// truncation when no LLM is configured or the call fails.
type Summarizer interface {
	Summarize(ctx context.Context, text string) string
}

// Store is the persistence layer over documents, chunks and staged
// uploads.
type Store interface {
	InsertStage(ctx context.Context, uploadID string, meta models.StageMeta, expiresAt time.Time) error
	LoadStage(ctx context.Context, uploadID string) (*models.StageMeta, error)
	DeleteStage(ctx context.Context, uploadID string) error
	PurgeExpiredStages(ctx context.Context) (int64, error)

	// SaveDocument inserts the document and its chunks and deletes the
	// originating stage inside one transaction.
	SaveDocument(ctx context.Context, doc models.Document, chunks []models.Chunk, uploadID string) error
	DeleteDocument(ctx context.Context, id string) error
	ListDocuments(ctx context.Context, limit int) ([]models.Document, error)
	SearchChunks(ctx context.Context, embedding []float32, k int) ([]models.SearchResult, error)

	Close()
}

// KnowledgeService is the ingestion/retrieval surface the HTTP layer
// and the operator CLI drive.
type KnowledgeService interface {
	Upload(ctx context.Context, files []models.IncomingFile, chunkTokens, overlap int) (*models.UploadResult, error)
	Commit(ctx context.Context, uploadID, filename string) (string, error)
	Search(ctx context.Context, query string, topK int) ([]models.SearchResult, error)
	ListDocuments(ctx context.Context) ([]models.Document, error)
	DeleteDocument(ctx context.Context, id string) error
}

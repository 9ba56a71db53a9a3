// Package ingest composes extraction, chunking, summarization,
// embedding and persistence into the upload / commit / search
// operations of the knowledge core.
package ingest

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vasdom/knowledge/internal/models"
	"github.com/vasdom/knowledge/internal/types"
	"github.com/vasdom/knowledge/pkg/llm"
)

// NoTextPreview is returned as the upload preview when no source
// produced extractable text.
const NoTextPreview = "Не удалось извлечь текст из загруженных файлов"

// documentMIME is the content type of the promoted text projection.
const documentMIME = "text/plain"

// DefaultFilename names a committed document when the caller supplies
// none.
const DefaultFilename = "document.txt"

type ServiceConfig struct {
	ChunkTokens   int
	ChunkOverlap  int
	MaxFileBytes  int64
	MaxTotalBytes int64
	StageTTL      time.Duration
	ListLimit     int
}

type Service struct {
	config     ServiceConfig
	extractor  types.Extractor
	chunker    types.Chunker
	embedder   types.Embedder
	summarizer types.Summarizer
	store      types.Store
}

func NewService(
	config ServiceConfig,
	extractor types.Extractor,
	chunker types.Chunker,
	embedder types.Embedder,
	summarizer types.Summarizer,
	store types.Store,
) *Service {
	if config.ChunkTokens <= 0 {
		config.ChunkTokens = 1200
	}
	if config.ChunkOverlap < 0 || config.ChunkOverlap >= config.ChunkTokens {
		config.ChunkOverlap = 200
	}
	if config.MaxFileBytes <= 0 {
		config.MaxFileBytes = 50 * 1024 * 1024
	}
	if config.MaxTotalBytes <= 0 {
		config.MaxTotalBytes = 200 * 1024 * 1024
	}
	if config.StageTTL <= 0 {
		config.StageTTL = 6 * time.Hour
	}
	if config.ListLimit <= 0 {
		config.ListLimit = 200
	}

	return &Service{
		config:     config,
		extractor:  extractor,
		chunker:    chunker,
		embedder:   embedder,
		summarizer: summarizer,
		store:      store,
	}
}

// Upload runs the ingestion pipeline: extract every file, chunk and
// summarize the aggregate, stage the result. Nothing is committed yet.
// The aggregate joins the extracted texts with a blank line in input
// order; a source that failed extraction contributes nothing, not an
// empty segment, so its neighbors stay adjacent.
func (s *Service) Upload(ctx context.Context, files []models.IncomingFile, chunkTokens, overlap int) (*models.UploadResult, error) {
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: at least one file is required", models.ErrInvalidRequest)
	}

	var totalSize int64
	for _, f := range files {
		size := int64(len(f.Data))
		if size > s.config.MaxFileBytes {
			return nil, fmt.Errorf("%w: file %q exceeds %d bytes", models.ErrPayloadTooLarge, f.Name, s.config.MaxFileBytes)
		}
		totalSize += size
	}
	if totalSize > s.config.MaxTotalBytes {
		return nil, fmt.Errorf("%w: upload exceeds %d bytes total", models.ErrPayloadTooLarge, s.config.MaxTotalBytes)
	}

	if chunkTokens <= 0 {
		chunkTokens = s.config.ChunkTokens
	}
	if overlap < 0 || overlap >= chunkTokens {
		overlap = s.config.ChunkOverlap
		if overlap >= chunkTokens {
			overlap = chunkTokens / 4
		}
	}

	filenames := make([]string, 0, len(files))
	stats := make([]models.FileStat, 0, len(files))
	texts := make([]string, 0, len(files))
	totalPages := 0

	for _, f := range files {
		ext := strings.ToLower(filepath.Ext(f.Name))
		extraction, err := s.extractor.Extract(f.Data, ext)
		if err != nil {
			// A broken or unsupported source contributes empty text.
			extraction = models.Extraction{}
		}

		filenames = append(filenames, f.Name)
		if len(extraction.Sources) > 0 {
			// Container formats report the entries they processed.
			stats = append(stats, extraction.Sources...)
		} else {
			stats = append(stats, models.FileStat{
				Name:      f.Name,
				Ext:       ext,
				SizeBytes: int64(len(f.Data)),
				Pages:     extraction.Pages,
				TextChars: len([]rune(extraction.Text)),
			})
		}
		if extraction.PagesKnown {
			totalPages += extraction.Pages
		}
		if extraction.Text != "" {
			texts = append(texts, extraction.Text)
		}
	}

	text := strings.Join(texts, "\n\n")

	var chunks []string
	preview := NoTextPreview
	summary := ""
	if text != "" {
		chunks = s.chunker.Chunk(text, chunkTokens, overlap)
		summary = llm.Truncate(s.summarizer.Summarize(ctx, text), llm.MaxSummaryChars)
		preview = summary
	}

	uploadID, err := newUploadID()
	if err != nil {
		return nil, err
	}

	meta := models.StageMeta{
		Filenames:      filenames,
		Summary:        summary,
		Chunks:         chunks,
		ChunksCount:    len(chunks),
		TotalSizeBytes: totalSize,
		TotalPages:     totalPages,
		FileStats:      stats,
		ChunkTokens:    chunkTokens,
		Overlap:        overlap,
	}

	expiresAt := time.Now().UTC().Add(s.config.StageTTL)
	if err := s.store.InsertStage(ctx, uploadID, meta, expiresAt); err != nil {
		return nil, err
	}

	return &models.UploadResult{
		UploadID:    uploadID,
		Preview:     preview,
		ChunksCount: len(chunks),
		Stats: models.UploadStats{
			TotalSizeBytes: totalSize,
			TotalPages:     totalPages,
			FileStats:      stats,
		},
	}, nil
}

// Commit promotes a staged upload into permanent storage with
// embeddings. The stage row is consumed in the same transaction, so a
// second commit with the same upload_id reports not found.
func (s *Service) Commit(ctx context.Context, uploadID, filename string) (string, error) {
	if strings.TrimSpace(uploadID) == "" {
		return "", fmt.Errorf("%w: upload_id is required", models.ErrInvalidRequest)
	}
	if filename == "" {
		filename = DefaultFilename
	}

	meta, err := s.store.LoadStage(ctx, uploadID)
	if err != nil {
		return "", err
	}

	vectors := s.embedder.EmbedTexts(ctx, meta.Chunks)

	zeroed := 0
	for _, v := range vectors {
		if llm.IsZeroVector(v) {
			zeroed++
		}
	}
	if zeroed > 0 {
		log.Printf("commit %s: %d of %d chunks persisted with zero vectors", uploadID, zeroed, len(vectors))
	}

	docID, err := newDocumentID()
	if err != nil {
		return "", err
	}

	summary := meta.Summary
	sizeBytes := meta.TotalSizeBytes
	pages := meta.TotalPages
	doc := models.Document{
		ID:        docID,
		Filename:  filename,
		MIME:      documentMIME,
		SizeBytes: &sizeBytes,
		Summary:   &summary,
		Pages:     &pages,
		CreatedAt: time.Now().UTC(),
	}

	chunks := make([]models.Chunk, len(meta.Chunks))
	for i, content := range meta.Chunks {
		chunks[i] = models.Chunk{
			ID:         uuid.New().String(),
			DocumentID: docID,
			ChunkIndex: i,
			Content:    content,
			Embedding:  vectors[i],
		}
	}

	if err := s.store.SaveDocument(ctx, doc, chunks, uploadID); err != nil {
		return "", err
	}
	return docID, nil
}

// Search embeds the query and returns the topK nearest chunks with
// provenance, best first.
func (s *Service) Search(ctx context.Context, query string, topK int) ([]models.SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: query must not be empty", models.ErrInvalidRequest)
	}
	if topK <= 0 {
		topK = 10
	}

	vector := s.embedder.EmbedQuery(ctx, query)
	return s.store.SearchChunks(ctx, vector, topK)
}

func (s *Service) ListDocuments(ctx context.Context) ([]models.Document, error) {
	return s.store.ListDocuments(ctx, s.config.ListLimit)
}

func (s *Service) DeleteDocument(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%w: document id is required", models.ErrInvalidRequest)
	}
	return s.store.DeleteDocument(ctx, id)
}

// newUploadID returns 8 random bytes hex-encoded.
func newUploadID() (string, error) {
	return randomHex(8)
}

// newDocumentID returns 16 random bytes hex-encoded.
func newDocumentID() (string, error) {
	return randomHex(16)
}

func randomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate identifier: %v", err)
	}
	return hex.EncodeToString(buf), nil
}

package models

import "time"

// Document is a committed knowledge artifact aggregating one or more
// source files. MIME always describes the promoted text projection,
// not the original upload.
type Document struct {
	ID         string    `json:"id"`
	Filename   string    `json:"filename"`
	MIME       string    `json:"mime"`
	SizeBytes  *int64    `json:"size_bytes"`
	Summary    *string   `json:"summary"`
	Pages      *int      `json:"pages"`
	CreatedAt  time.Time `json:"created_at"`
	ChunkCount int       `json:"chunks_count"`
}

// Chunk is one retrievable text window of a Document.
type Chunk struct {
	ID         string
	DocumentID string
	ChunkIndex int
	Content    string
	Embedding  []float32
}

// IncomingFile is one uploaded source file before extraction.
type IncomingFile struct {
	Name string
	Data []byte
}

// Extraction is the outcome of text extraction for a single source.
// PagesKnown is false for formats without a page notion (.txt, .docx).
// For container formats Sources holds per-entry statistics; it is nil
// for plain files.
type Extraction struct {
	Text       string
	Pages      int
	PagesKnown bool
	Sources    []FileStat
}

// FileStat records per-source ingestion statistics.
type FileStat struct {
	Name      string `json:"name"`
	Ext       string `json:"ext"`
	SizeBytes int64  `json:"size_bytes"`
	Pages     int    `json:"pages"`
	TextChars int    `json:"text_chars"`
}

// StageMeta is the structured payload of a staged upload, written to the
// staging table at ingestion and consumed by the commit step.
type StageMeta struct {
	Filenames      []string   `json:"filenames"`
	Summary        string     `json:"summary"`
	Chunks         []string   `json:"chunks"`
	ChunksCount    int        `json:"chunks_count"`
	TotalSizeBytes int64      `json:"total_size_bytes"`
	TotalPages     int        `json:"total_pages"`
	FileStats      []FileStat `json:"file_stats"`
	ChunkTokens    int        `json:"chunk_tokens"`
	Overlap        int        `json:"overlap"`
}

// UploadStats is the aggregate section of an upload response.
type UploadStats struct {
	TotalSizeBytes int64      `json:"total_size_bytes"`
	TotalPages     int        `json:"total_pages"`
	FileStats      []FileStat `json:"file_stats"`
}

// UploadResult is returned by the ingestion pipeline. Nothing is
// committed yet; the stage identified by UploadID holds the payload.
type UploadResult struct {
	UploadID    string      `json:"upload_id"`
	Preview     string      `json:"preview"`
	ChunksCount int         `json:"chunks"`
	Stats       UploadStats `json:"stats"`
}

// SearchResult is one similarity hit. Score is 1 - cosine distance,
// higher is more similar.
type SearchResult struct {
	DocumentID string  `json:"document_id"`
	ChunkIndex int     `json:"chunk_index"`
	Content    string  `json:"content"`
	Score      float64 `json:"score"`
	Filename   string  `json:"filename"`
}

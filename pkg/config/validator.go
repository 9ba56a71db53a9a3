package config

import (
	"fmt"
	"net/url"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	if c.Database.URL == "" {
		errors = append(errors, ValidationError{
			Field:   "database.url",
			Message: "database URL is required (set DATABASE_URL)",
		})
	} else if _, err := url.Parse(c.Database.URL); err != nil {
		errors = append(errors, ValidationError{
			Field:   "database.url",
			Message: "invalid database URL",
		})
	}

	if c.Database.ListLimit < 1 {
		errors = append(errors, ValidationError{
			Field:   "database.list_limit",
			Message: "list_limit must be positive",
		})
	}

	if c.Embedding.RequestsPerSecond <= 0 {
		errors = append(errors, ValidationError{
			Field:   "embedding.requests_per_second",
			Message: "requests_per_second must be positive",
		})
	}

	if c.LLM.MaxTokens < 1 || c.LLM.MaxTokens > 4096 {
		errors = append(errors, ValidationError{
			Field:   "llm.max_tokens",
			Message: "max_tokens must be between 1 and 4096",
		})
	}

	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		errors = append(errors, ValidationError{
			Field:   "llm.temperature",
			Message: "temperature must be between 0 and 2",
		})
	}

	if c.Ingest.ChunkTokens < 1 {
		errors = append(errors, ValidationError{
			Field:   "ingest.chunk_tokens",
			Message: "chunk_tokens must be positive",
		})
	}

	if c.Ingest.ChunkOverlap < 0 || c.Ingest.ChunkOverlap >= c.Ingest.ChunkTokens {
		errors = append(errors, ValidationError{
			Field:   "ingest.chunk_overlap",
			Message: "chunk_overlap must be non-negative and less than chunk_tokens",
		})
	}

	if c.Ingest.MaxFileMB < 1 {
		errors = append(errors, ValidationError{
			Field:   "ingest.max_file_mb",
			Message: "max_file_mb must be positive",
		})
	}

	if c.Ingest.MaxTotalMB < c.Ingest.MaxFileMB {
		errors = append(errors, ValidationError{
			Field:   "ingest.max_total_mb",
			Message: "max_total_mb must be at least max_file_mb",
		})
	}

	if c.Ingest.StageTTL <= 0 {
		errors = append(errors, ValidationError{
			Field:   "ingest.stage_ttl",
			Message: "stage_ttl must be positive",
		})
	}

	return errors
}

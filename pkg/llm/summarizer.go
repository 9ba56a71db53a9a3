package llm

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// maxSummaryInputChars caps the text sent to the LLM.
const maxSummaryInputChars = 6000

// MaxSummaryChars caps the summary (and the truncation fallback).
const MaxSummaryChars = 500

const summarySystemPrompt = "Ты ассистент клининговой компании. Составь краткое содержание документа в 2-4 предложениях на языке оригинала."

// SummarizerConfig represents the configuration for the summarizer.
type SummarizerConfig struct {
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration
}

// Summarizer produces short abstracts of ingested text. Without an
// API key, or when the LLM call fails, it falls back to truncating the
// input.
type Summarizer struct {
	config SummarizerConfig
	llm    llms.Model
}

// NewSummarizerWithConfig creates a summarizer. A missing API key or a
// failed client construction yields a truncation-only summarizer,
// never an error.
func NewSummarizerWithConfig(config SummarizerConfig) *Summarizer {
	if config.Model == "" {
		config.Model = "gpt-4o-mini"
	}
	if config.MaxTokens <= 0 {
		config.MaxTokens = 400
	}
	if config.Temperature <= 0 {
		config.Temperature = 0.3
	}
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}

	s := &Summarizer{config: config}

	if config.APIKey == "" {
		log.Printf("LLM summarizer not configured, falling back to truncation")
		return s
	}

	client, err := openai.New(
		openai.WithToken(config.APIKey),
		openai.WithModel(config.Model),
	)
	if err != nil {
		log.Printf("failed to initialize summarizer client: %v", err)
		return s
	}

	s.llm = client
	return s
}

// Summarize returns a short abstract of text. Summaries are advisory:
// any failure degrades to the first MaxSummaryChars characters of the
// input.
func (s *Summarizer) Summarize(ctx context.Context, text string) string {
	input := Truncate(text, maxSummaryInputChars)

	if s.llm == nil {
		return Truncate(input, MaxSummaryChars)
	}

	callCtx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()

	content := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, summarySystemPrompt),
		llms.TextParts(llms.ChatMessageTypeHuman, input),
	}

	response, err := s.llm.GenerateContent(callCtx, content,
		llms.WithMaxTokens(s.config.MaxTokens),
		llms.WithTemperature(s.config.Temperature),
	)
	if err != nil {
		log.Printf("summarizer call failed, falling back to truncation: %v", err)
		return Truncate(input, MaxSummaryChars)
	}
	if len(response.Choices) == 0 || strings.TrimSpace(response.Choices[0].Content) == "" {
		return Truncate(input, MaxSummaryChars)
	}

	return strings.TrimSpace(response.Choices[0].Content)
}

// Truncate returns the first n characters of s, counting runes.
func Truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

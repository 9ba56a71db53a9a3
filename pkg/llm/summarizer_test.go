package llm_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vasdom/knowledge/pkg/llm"
)

func TestSummarizer_FallbackShortText(t *testing.T) {
	s := llm.NewSummarizerWithConfig(llm.SummarizerConfig{})

	text := "Hello world. This is a test document."
	assert.Equal(t, text, s.Summarize(context.Background(), text))
}

func TestSummarizer_FallbackTruncatesLongText(t *testing.T) {
	s := llm.NewSummarizerWithConfig(llm.SummarizerConfig{})

	text := strings.Repeat("ы", 7000)
	summary := s.Summarize(context.Background(), text)
	assert.Equal(t, llm.MaxSummaryChars, len([]rune(summary)))
	assert.Equal(t, strings.Repeat("ы", llm.MaxSummaryChars), summary)
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		name  string
		input string
		n     int
		want  string
	}{
		{"shorter than limit", "abc", 10, "abc"},
		{"exact limit", "abcde", 5, "abcde"},
		{"over limit", "abcdef", 3, "abc"},
		{"cyrillic runes", "привет", 4, "прив"},
		{"empty", "", 5, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, llm.Truncate(tt.input, tt.n))
		})
	}
}

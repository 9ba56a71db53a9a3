package llm

import (
	"context"
	"log"
	"time"

	"github.com/tmc/langchaingo/llms/openai"
	"golang.org/x/time/rate"
)

// EmbeddingDim is the dimensionality of every vector this package
// produces, matching the vector column in the store.
const EmbeddingDim = 3072

// EmbedderConfig represents the configuration for the embedding client.
type EmbedderConfig struct {
	APIKey            string
	Model             string
	Timeout           time.Duration
	RequestsPerSecond float64
}

// Embedder produces fixed-dimension vectors via the embedding provider.
// Without an API key it degrades to zero vectors so ingestion and
// commit stay available.
type Embedder struct {
	config  EmbedderConfig
	client  *openai.LLM
	limiter *rate.Limiter
}

// NewEmbedderWithConfig creates an embedder. A missing API key or a
// failed client construction yields a disabled embedder, never an
// error.
func NewEmbedderWithConfig(config EmbedderConfig) *Embedder {
	if config.Model == "" {
		config.Model = "text-embedding-3-large"
	}
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}
	if config.RequestsPerSecond <= 0 {
		config.RequestsPerSecond = 5
	}

	e := &Embedder{
		config:  config,
		limiter: rate.NewLimiter(rate.Limit(config.RequestsPerSecond), 1),
	}

	if config.APIKey == "" {
		return e
	}

	client, err := openai.New(
		openai.WithToken(config.APIKey),
		openai.WithEmbeddingModel(config.Model),
	)
	if err != nil {
		log.Printf("failed to initialize embedding client: %v", err)
		return e
	}

	e.client = client
	return e
}

// Enabled reports whether a provider client is configured.
func (e *Embedder) Enabled() bool {
	return e.client != nil
}

// EmbedTexts returns one vector per input, in order. Provider failures
// for a particular input leave a zero vector at that position; the
// call itself never fails.
func (e *Embedder) EmbedTexts(ctx context.Context, texts []string) [][]float32 {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vectors[i] = e.embedOne(ctx, text)
	}
	return vectors
}

// EmbedQuery embeds a single text, returning a zero vector on failure.
func (e *Embedder) EmbedQuery(ctx context.Context, text string) []float32 {
	return e.embedOne(ctx, text)
}

func (e *Embedder) embedOne(ctx context.Context, text string) []float32 {
	if e.client == nil {
		return ZeroVector()
	}

	if err := e.limiter.Wait(ctx); err != nil {
		return ZeroVector()
	}

	callCtx, cancel := context.WithTimeout(ctx, e.config.Timeout)
	defer cancel()

	embeddings, err := e.client.CreateEmbedding(callCtx, []string{text})
	if err != nil {
		log.Printf("embedding call failed, substituting zero vector: %v", err)
		return ZeroVector()
	}
	if len(embeddings) != 1 || len(embeddings[0]) != EmbeddingDim {
		log.Printf("embedding provider returned unexpected shape, substituting zero vector")
		return ZeroVector()
	}
	return embeddings[0]
}

// ZeroVector returns a fresh all-zero vector of EmbeddingDim floats.
func ZeroVector() []float32 {
	return make([]float32, EmbeddingDim)
}

// IsZeroVector reports whether every component of v is zero.
func IsZeroVector(v []float32) bool {
	for _, c := range v {
		if c != 0 {
			return false
		}
	}
	return true
}

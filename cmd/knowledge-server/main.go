package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/vasdom/knowledge/pkg/chunker"
	"github.com/vasdom/knowledge/pkg/config"
	"github.com/vasdom/knowledge/pkg/extract"
	"github.com/vasdom/knowledge/pkg/ingest"
	"github.com/vasdom/knowledge/pkg/llm"
	"github.com/vasdom/knowledge/pkg/store"
	"github.com/vasdom/knowledge/server"
)

func main() {
	_ = godotenv.Load()

	var configPath string
	flag.StringVar(&configPath, "config", "", "Path to config file")
	flag.Parse()

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if errs := cfg.Validate(); len(errs) > 0 {
		for _, e := range errs {
			log.Printf("config error: %v", e)
		}
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Println("connecting to database...")
	st, err := store.NewWithConfig(ctx, store.StoreConfig{ConnString: cfg.Database.URL})
	if err != nil {
		log.Fatalf("failed to initialize store: %v", err)
	}
	defer st.Close()

	ch, err := chunker.New()
	if err != nil {
		log.Fatalf("failed to initialize chunker: %v", err)
	}

	embedder := llm.NewEmbedderWithConfig(llm.EmbedderConfig{
		APIKey:            cfg.Embedding.APIKey,
		Model:             cfg.Embedding.Model,
		Timeout:           cfg.Embedding.Timeout,
		RequestsPerSecond: cfg.Embedding.RequestsPerSecond,
	})
	if !embedder.Enabled() {
		log.Println("embedding provider not configured, documents will be stored with zero vectors")
	}

	summarizer := llm.NewSummarizerWithConfig(llm.SummarizerConfig{
		APIKey:      cfg.LLM.APIKey,
		Model:       cfg.LLM.Model,
		MaxTokens:   cfg.LLM.MaxTokens,
		Temperature: cfg.LLM.Temperature,
		Timeout:     cfg.LLM.Timeout,
	})

	svc := ingest.NewService(ingest.ServiceConfig{
		ChunkTokens:   cfg.Ingest.ChunkTokens,
		ChunkOverlap:  cfg.Ingest.ChunkOverlap,
		MaxFileBytes:  cfg.MaxFileBytes(),
		MaxTotalBytes: cfg.MaxTotalBytes(),
		StageTTL:      cfg.Ingest.StageTTL,
		ListLimit:     cfg.Database.ListLimit,
	}, extract.New(), ch, embedder, summarizer, st)

	go runJanitor(ctx, st, cfg.Ingest.JanitorInterval)

	srv := server.New(server.Config{
		Port:            cfg.Server.Port,
		MaxFileBytes:    cfg.MaxFileBytes(),
		MaxTotalBytes:   cfg.MaxTotalBytes(),
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	}, svc)

	if err := srv.Run(ctx); err != nil {
		log.Fatalf("server failed: %v", err)
	}
	log.Println("server exited")
}

// runJanitor periodically deletes expired staged uploads.
func runJanitor(ctx context.Context, st *store.Store, interval time.Duration) {
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			purged, err := st.PurgeExpiredStages(ctx)
			if err != nil {
				log.Printf("stage janitor failed: %v", err)
				continue
			}
			if purged > 0 {
				log.Printf("stage janitor removed %d expired uploads", purged)
			}
		}
	}
}

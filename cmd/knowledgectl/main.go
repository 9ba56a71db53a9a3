package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/schollz/progressbar/v3"

	"github.com/vasdom/knowledge/internal/models"
	"github.com/vasdom/knowledge/pkg/chunker"
	"github.com/vasdom/knowledge/pkg/config"
	"github.com/vasdom/knowledge/pkg/extract"
	"github.com/vasdom/knowledge/pkg/ingest"
	"github.com/vasdom/knowledge/pkg/llm"
	"github.com/vasdom/knowledge/pkg/store"
)

type options struct {
	configPath  string
	name        string
	chunkTokens int
	overlap     int
	stageOnly   bool
	query       string
	topK        int
	list        bool
	deleteID    string
}

func main() {
	_ = godotenv.Load()

	opts := parseFlags()
	if err := run(opts, flag.Args()); err != nil {
		log.Fatal(err)
	}
}

func parseFlags() options {
	var opts options

	flag.StringVar(&opts.configPath, "config", "", "Path to config file")
	flag.StringVar(&opts.name, "name", "", "Display name for the committed document")
	flag.IntVar(&opts.chunkTokens, "chunk-tokens", 0, "Tokens per chunk (0 = default)")
	flag.IntVar(&opts.overlap, "overlap", -1, "Token overlap between chunks (-1 = default)")
	flag.BoolVar(&opts.stageOnly, "stage-only", false, "Stage the upload without committing")
	flag.StringVar(&opts.query, "query", "", "Similarity query to run")
	flag.IntVar(&opts.topK, "topk", 10, "Number of search results")
	flag.BoolVar(&opts.list, "list", false, "List stored documents")
	flag.StringVar(&opts.deleteID, "delete", "", "Delete the document with this id")
	flag.Parse()

	return opts
}

func getProgressBar(total int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetDescription(color.BlueString(description)),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetRenderBlankState(true),
	)
}

func run(opts options, files []string) error {
	ctx := context.Background()

	cfg, err := config.LoadConfig(opts.configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %v", err)
	}
	if errs := cfg.Validate(); len(errs) > 0 {
		for _, e := range errs {
			color.Red("config error: %v", e)
		}
		return fmt.Errorf("invalid configuration")
	}

	st, err := store.NewWithConfig(ctx, store.StoreConfig{ConnString: cfg.Database.URL})
	if err != nil {
		return fmt.Errorf("failed to initialize store: %v", err)
	}
	defer st.Close()

	ch, err := chunker.New()
	if err != nil {
		return fmt.Errorf("failed to initialize chunker: %v", err)
	}

	embedder := llm.NewEmbedderWithConfig(llm.EmbedderConfig{
		APIKey:            cfg.Embedding.APIKey,
		Model:             cfg.Embedding.Model,
		Timeout:           cfg.Embedding.Timeout,
		RequestsPerSecond: cfg.Embedding.RequestsPerSecond,
	})
	if !embedder.Enabled() {
		color.Yellow("embedding provider not configured, documents will be stored with zero vectors")
	}

	svc := ingest.NewService(ingest.ServiceConfig{
		ChunkTokens:   cfg.Ingest.ChunkTokens,
		ChunkOverlap:  cfg.Ingest.ChunkOverlap,
		MaxFileBytes:  cfg.MaxFileBytes(),
		MaxTotalBytes: cfg.MaxTotalBytes(),
		StageTTL:      cfg.Ingest.StageTTL,
		ListLimit:     cfg.Database.ListLimit,
	}, extract.New(), ch,
		embedder,
		llm.NewSummarizerWithConfig(llm.SummarizerConfig{
			APIKey:      cfg.LLM.APIKey,
			Model:       cfg.LLM.Model,
			MaxTokens:   cfg.LLM.MaxTokens,
			Temperature: cfg.LLM.Temperature,
			Timeout:     cfg.LLM.Timeout,
		}), st)

	switch {
	case opts.deleteID != "":
		return deleteDocument(ctx, svc, opts.deleteID)
	case opts.list:
		return listDocuments(ctx, svc)
	case opts.query != "":
		return search(ctx, svc, opts.query, opts.topK)
	case len(files) > 0:
		return ingestFiles(ctx, svc, opts, files)
	default:
		flag.Usage()
		return fmt.Errorf("nothing to do: pass files to ingest, -query, -list or -delete")
	}
}

func ingestFiles(ctx context.Context, svc *ingest.Service, opts options, paths []string) error {
	bar := getProgressBar(len(paths), "Reading files...")

	incoming := make([]models.IncomingFile, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return fmt.Errorf("failed to read %s: %v", p, err)
		}
		incoming = append(incoming, models.IncomingFile{Name: filepath.Base(p), Data: data})
		bar.Add(1)
	}
	bar.Finish()

	result, err := svc.Upload(ctx, incoming, opts.chunkTokens, opts.overlap)
	if err != nil {
		return err
	}

	color.Green("✓ Staged upload %s: %d chunks, %d bytes, %d pages",
		result.UploadID, result.ChunksCount, result.Stats.TotalSizeBytes, result.Stats.TotalPages)
	fmt.Printf("Preview: %s\n", result.Preview)

	if opts.stageOnly {
		color.Cyan("Stage kept; commit later with /save or rerun without -stage-only")
		return nil
	}

	name := opts.name
	if name == "" && len(paths) == 1 {
		name = filepath.Base(paths[0])
	}

	docID, err := svc.Commit(ctx, result.UploadID, name)
	if err != nil {
		return err
	}
	color.Green("✓ Committed document %s", docID)
	return nil
}

func search(ctx context.Context, svc *ingest.Service, query string, topK int) error {
	results, err := svc.Search(ctx, query, topK)
	if err != nil {
		return err
	}

	if len(results) == 0 {
		color.Yellow("no results")
		return nil
	}

	for i, r := range results {
		color.Cyan("%d. %s (chunk %d, score %.4f)", i+1, r.Filename, r.ChunkIndex, r.Score)
		fmt.Println(llm.Truncate(r.Content, 200))
	}
	return nil
}

func listDocuments(ctx context.Context, svc *ingest.Service) error {
	docs, err := svc.ListDocuments(ctx)
	if err != nil {
		return err
	}

	for _, d := range docs {
		size := int64(0)
		if d.SizeBytes != nil {
			size = *d.SizeBytes
		}
		fmt.Printf("%s  %-40s  %d chunks  %d bytes  %s\n",
			d.ID, d.Filename, d.ChunkCount, size, d.CreatedAt.Format("2006-01-02 15:04"))
	}
	color.Green("✓ %d documents", len(docs))
	return nil
}

func deleteDocument(ctx context.Context, svc *ingest.Service, id string) error {
	if err := svc.DeleteDocument(ctx, id); err != nil {
		return err
	}
	color.Green("✓ Deleted document %s", id)
	return nil
}

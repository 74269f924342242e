package main

import (
	"context"
	"fmt"
	"net/http"

	"balance-sheet-rag/internal/charts"
	"balance-sheet-rag/internal/chat"
	"balance-sheet-rag/internal/config"
	"balance-sheet-rag/internal/database"
	"balance-sheet-rag/internal/embedding"
	"balance-sheet-rag/internal/ingest"
	"balance-sheet-rag/internal/llm"
	"balance-sheet-rag/internal/processor"
	"balance-sheet-rag/internal/retrieval"
)

// app holds the connections shared by every command.
type app struct {
	cfg      *config.Config
	db       *database.DB
	llm      *llm.OllamaLLM
	embedder *embedding.OllamaEmbedder
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	db, err := database.NewDB(ctx, cfg.Database.URL)
	if err != nil {
		return nil, err
	}
	if err := db.Initialize(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	httpClient := &http.Client{Timeout: cfg.Ollama.Timeout}

	llmClient, err := llm.NewOllamaLLM(cfg.Ollama.Host, cfg.Ollama.Model, httpClient)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}

	embedder, err := embedding.NewOllamaEmbedder(cfg.Ollama.Host, cfg.Ollama.EmbeddingModel, httpClient)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}
	embedder.BatchSize = cfg.Ingest.EmbedBatchSize
	embedder.Timeout = cfg.Ollama.Timeout

	return &app{cfg: cfg, db: db, llm: llmClient, embedder: embedder}, nil
}

func (a *app) Close() {
	a.db.Close()
}

func (a *app) chatService() *chat.Service {
	ranker := retrieval.NewRanker(a.db, a.embedder, retrieval.DefaultConfig())
	opts := chat.DefaultOptions()
	opts.TopK = a.cfg.Retrieval.TopK
	opts.MetricYears = a.cfg.Metrics.Years
	return chat.NewService(a.db, ranker, a.llm, charts.NewPlanner(a.llm), charts.NewBuilder(), opts)
}

func (a *app) pipeline() *ingest.Pipeline {
	var extractor ingest.Extractor
	if a.cfg.Ingest.ExtractMetrics {
		extractor = processor.NewStatementExtractor(a.llm)
	}
	chunker := processor.NewPDFProcessor(a.cfg.Ingest.ChunkSize, a.cfg.Ingest.ChunkOverlap)
	return ingest.NewPipeline(a.db, chunker, a.embedder, extractor)
}

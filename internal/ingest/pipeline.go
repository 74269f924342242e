// Package ingest turns an uploaded report into stored chunks and metrics.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"balance-sheet-rag/internal/embedding"
	"balance-sheet-rag/internal/models"
	"balance-sheet-rag/internal/processor"

	"github.com/rs/zerolog/log"
)

// Store persists documents, chunks and metrics.
type Store interface {
	UpsertCompany(ctx context.Context, code, name string) (int64, error)
	CreateDocument(ctx context.Context, filename, storagePath string, companyID int64) (int64, error)
	UpdateDocumentMeta(ctx context.Context, documentID int64, companyName, fiscalYear string) error
	ReplaceChunks(ctx context.Context, documentID int64, chunks []models.Chunk) error
	InsertMetrics(ctx context.Context, documentID, companyID int64, metrics []models.Metric) error
}

// Embedder embeds chunk texts in batches.
type Embedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([]embedding.Embedded, error)
}

// Extractor reads metadata and statement metrics from report pages.
type Extractor interface {
	ExtractMeta(ctx context.Context, pages processor.PageSource) (processor.Meta, bool)
	ExtractMetrics(ctx context.Context, pages processor.PageSource) []models.Metric
}

// Request describes one report to ingest.
type Request struct {
	Path string
	// CompanyCode optionally files the report under a company as well.
	CompanyCode string
	// DocumentID re-ingests an existing document when set; its chunks are replaced.
	DocumentID int64
}

// Result summarises an ingestion run.
type Result struct {
	DocumentID  int64
	CompanyID   int64
	Pages       int
	Chunks      int
	Embedded    int
	Metrics     int
	CompanyName string
	FiscalYear  string
	Elapsed     time.Duration
}

// Pipeline runs extraction, chunking, embedding and storage for a document.
type Pipeline struct {
	store     Store
	chunker   *processor.PDFProcessor
	embedder  Embedder
	extractor Extractor
}

// NewPipeline creates a pipeline. extractor may be nil to skip metric extraction.
func NewPipeline(store Store, chunker *processor.PDFProcessor, embedder Embedder, extractor Extractor) *Pipeline {
	return &Pipeline{
		store:     store,
		chunker:   chunker,
		embedder:  embedder,
		extractor: extractor,
	}
}

// IngestFile opens the PDF at req.Path and ingests it.
func (p *Pipeline) IngestFile(ctx context.Context, req Request) (*Result, error) {
	reader, err := processor.OpenPDF(req.Path)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	return p.Ingest(ctx, req, processor.ReadPages(reader))
}

// Ingest stores the pages of one report. Embedding failures never abort
// ingestion: chunks without a vector are stored and skipped at query time.
func (p *Pipeline) Ingest(ctx context.Context, req Request, pages processor.PageSource) (*Result, error) {
	start := time.Now()
	res := &Result{DocumentID: req.DocumentID, Pages: pages.NumPages()}

	if req.CompanyCode != "" {
		id, err := p.store.UpsertCompany(ctx, req.CompanyCode, "")
		if err != nil {
			return nil, err
		}
		res.CompanyID = id
	}

	if res.DocumentID == 0 {
		path := req.Path
		if abs, err := filepath.Abs(path); err == nil {
			path = abs
		}
		id, err := p.store.CreateDocument(ctx, filepath.Base(req.Path), path, res.CompanyID)
		if err != nil {
			return nil, err
		}
		res.DocumentID = id
	}

	logger := log.With().Int64("document_id", res.DocumentID).Logger()
	logger.Info().Int("pages", res.Pages).Msg("ingesting document")

	chunks, err := p.chunker.ChunkPages(res.DocumentID, pages)
	if err != nil {
		return nil, fmt.Errorf("failed to chunk document %d: %w", res.DocumentID, err)
	}
	res.Chunks = len(chunks)

	if len(chunks) > 0 {
		texts := make([]string, len(chunks))
		for i, c := range chunks {
			texts[i] = c.Text
		}

		embedded, err := p.embedder.EmbedTexts(ctx, texts)
		switch {
		case errors.Is(err, embedding.ErrNoEmbeddings):
			logger.Warn().Err(err).Msg("no embeddings produced, storing chunks without vectors")
		case err != nil:
			return nil, fmt.Errorf("failed to embed document %d: %w", res.DocumentID, err)
		}
		res.Embedded = AttachEmbeddings(chunks, embedded)
	}

	if err := p.store.ReplaceChunks(ctx, res.DocumentID, chunks); err != nil {
		return nil, err
	}
	logger.Info().Int("chunks", res.Chunks).Int("embedded", res.Embedded).Msg("chunks stored")

	if p.extractor != nil {
		p.extractMetrics(ctx, res, pages)
	}

	res.Elapsed = time.Since(start)
	return res, nil
}

// extractMetrics is best-effort: failures are logged and leave the chunks in place.
func (p *Pipeline) extractMetrics(ctx context.Context, res *Result, pages processor.PageSource) {
	logger := log.With().Int64("document_id", res.DocumentID).Logger()

	if meta, ok := p.extractor.ExtractMeta(ctx, pages); ok {
		res.CompanyName = meta.CompanyName
		res.FiscalYear = meta.FinancialYear
		if err := p.store.UpdateDocumentMeta(ctx, res.DocumentID, meta.CompanyName, meta.FinancialYear); err != nil {
			logger.Error().Err(err).Msg("failed to store document metadata")
		}
	}

	metrics := p.extractor.ExtractMetrics(ctx, pages)
	if err := p.store.InsertMetrics(ctx, res.DocumentID, res.CompanyID, metrics); err != nil {
		logger.Error().Err(err).Msg("failed to store metrics")
		return
	}
	res.Metrics = len(metrics)
	logger.Info().Int("metrics", res.Metrics).Msg("metrics stored")
}

// AttachEmbeddings copies each vector onto the chunk at its carried index and
// returns how many chunks received one. Out-of-range indexes are ignored.
func AttachEmbeddings(chunks []models.Chunk, embedded []embedding.Embedded) int {
	n := 0
	for _, e := range embedded {
		if e.Index < 0 || e.Index >= len(chunks) || len(e.Vector) == 0 {
			continue
		}
		chunks[e.Index].Embedding = e.Vector
		n++
	}
	return n
}

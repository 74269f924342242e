package main

import (
	"fmt"
	"os"
	"time"

	"balance-sheet-rag/internal/ingest"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	ingestPDF        string
	ingestCompany    string
	ingestDocumentID int64
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Ingest a financial report PDF",
	Long: `Extracts page text from a PDF, chunks and embeds it, and stores the chunks
together with the revenue, net profit, total assets and total liabilities found
in its statements. Passing --document re-ingests an existing report and
replaces its chunks.`,
	Args: cobra.NoArgs,
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().StringVar(&ingestPDF, "pdf", "", "path to the PDF file (required)")
	ingestCmd.Flags().StringVar(&ingestCompany, "company", "", "company code to file the report under")
	ingestCmd.Flags().Int64Var(&ingestDocumentID, "document", 0, "existing document id to re-ingest")
	_ = ingestCmd.MarkFlagRequired("pdf")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	if _, err := os.Stat(ingestPDF); err != nil {
		return fmt.Errorf("PDF file does not exist: %s", ingestPDF)
	}

	ctx := cmd.Context()
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	embedStart := time.Now()
	a.embedder.Progress = func(processed, total int) {
		elapsed := time.Since(embedStart)
		remaining := elapsed*time.Duration(total)/time.Duration(processed) - elapsed
		log.Info().
			Int("processed", processed).
			Int("total", total).
			Dur("remaining", remaining.Round(time.Second)).
			Msg("embedding progress")
	}

	log.Info().Str("pdf", ingestPDF).Str("model", cfg.Ollama.EmbeddingModel).Msg("processing PDF")

	res, err := a.pipeline().IngestFile(ctx, ingest.Request{
		Path:        ingestPDF,
		CompanyCode: ingestCompany,
		DocumentID:  ingestDocumentID,
	})
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}

	cmd.Printf("Document %d ingested in %v\n", res.DocumentID, res.Elapsed.Round(time.Millisecond))
	cmd.Printf("  Pages:    %d\n", res.Pages)
	cmd.Printf("  Chunks:   %d (%d embedded)\n", res.Chunks, res.Embedded)
	cmd.Printf("  Metrics:  %d\n", res.Metrics)
	if res.CompanyName != "" {
		cmd.Printf("  Company:  %s\n", res.CompanyName)
	}
	if res.FiscalYear != "" {
		cmd.Printf("  Period:   %s\n", res.FiscalYear)
	}
	return nil
}

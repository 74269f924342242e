package embedding

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"balance-sheet-rag/internal/llm"

	"github.com/ollama/ollama/api"
	"github.com/rs/zerolog/log"
)

// DefaultBatchSize bounds the number of texts sent in one embed request.
const DefaultBatchSize = 100

// ErrNoEmbeddings is returned when not a single vector could be produced.
var ErrNoEmbeddings = errors.New("embedding service produced no vectors")

// EmbedClient is the part of the Ollama client used for embeddings.
type EmbedClient interface {
	Embed(ctx context.Context, req *api.EmbedRequest) (*api.EmbedResponse, error)
	Heartbeat(ctx context.Context) error
}

// Embedded pairs a vector with the index of the text it was computed from.
type Embedded struct {
	Index  int
	Vector []float32
}

// OllamaEmbedder generates embeddings using Ollama API
type OllamaEmbedder struct {
	Client     EmbedClient
	Model      string
	BatchSize  int
	MaxRetries int
	Timeout    time.Duration

	// Progress, when set, is called after each batch with the number of texts handled so far.
	Progress func(processed, total int)
}

// NewOllamaEmbedder creates a new Ollama embedder
func NewOllamaEmbedder(host string, model string, httpClient *http.Client) (*OllamaEmbedder, error) {
	hostURL, err := llm.ResolveHost(host)
	if err != nil {
		return nil, err
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &OllamaEmbedder{
		Client:     api.NewClient(hostURL, httpClient),
		Model:      model,
		BatchSize:  DefaultBatchSize,
		MaxRetries: 2,
		Timeout:    time.Second * 60,
	}, nil
}

// EmbedTexts embeds texts in fixed-size batches. A failing batch is logged and
// skipped, so the result may be shorter than texts; each result carries the
// index of its source text. ErrNoEmbeddings is returned only when every batch failed.
func (e *OllamaEmbedder) EmbedTexts(ctx context.Context, texts []string) ([]Embedded, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	size := e.BatchSize
	if size <= 0 {
		size = DefaultBatchSize
	}

	out := make([]Embedded, 0, len(texts))
	failed := 0

	for start := 0; start < len(texts); start += size {
		end := min(start+size, len(texts))

		vectors, err := e.embedBatch(ctx, texts[start:end])
		if err != nil {
			failed += end - start
			log.Warn().Err(err).
				Int("batch_start", start).
				Int("batch_size", end-start).
				Msg("embedding batch failed, continuing")
		} else {
			for i, v := range vectors {
				out = append(out, Embedded{Index: start + i, Vector: v})
			}
		}

		if e.Progress != nil {
			e.Progress(end, len(texts))
		}
	}

	if len(out) == 0 {
		return nil, fmt.Errorf("%w: %d texts requested", ErrNoEmbeddings, len(texts))
	}
	if failed > 0 {
		log.Warn().Int("requested", len(texts)).Int("embedded", len(out)).Msg("partial embedding result")
	}

	return out, nil
}

// EmbedQuery embeds a single text.
func (e *OllamaEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	res, err := e.EmbedTexts(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return res[0].Vector, nil
}

// embedBatch sends one request, retrying transient failures
func (e *OllamaEmbedder) embedBatch(ctx context.Context, batch []string) ([][]float32, error) {
	var err error

	for retries := 0; retries <= e.MaxRetries; retries++ {
		if retries > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(retries) * time.Second):
			}
		}

		var vectors [][]float32
		vectors, err = e.createEmbeddings(ctx, batch)
		if err == nil {
			return vectors, nil
		}
	}

	return nil, fmt.Errorf("failed to create embeddings after %d retries: %w", e.MaxRetries, err)
}

func (e *OllamaEmbedder) createEmbeddings(ctx context.Context, batch []string) ([][]float32, error) {
	req := api.EmbedRequest{
		Model: e.Model,
		Input: batch,
	}

	if e.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.Timeout)
		defer cancel()
	}

	resp, err := e.Client.Embed(ctx, &req)
	if err != nil {
		return nil, fmt.Errorf("failed to create embeddings: %w", err)
	}
	if len(resp.Embeddings) != len(batch) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(batch), len(resp.Embeddings))
	}

	return resp.Embeddings, nil
}

// Ping checks that the Ollama server is reachable.
func (e *OllamaEmbedder) Ping(ctx context.Context) error {
	if err := e.Client.Heartbeat(ctx); err != nil {
		return fmt.Errorf("ollama heartbeat failed: %w", err)
	}
	return nil
}

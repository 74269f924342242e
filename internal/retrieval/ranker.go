// Package retrieval ranks a document's stored chunks against a question.
package retrieval

import (
	"context"
	"sort"
	"strings"

	"balance-sheet-rag/internal/models"

	"github.com/rs/zerolog/log"
)

// ChunkSource lists the stored chunks of a document.
type ChunkSource interface {
	ListChunks(ctx context.Context, documentID int64) ([]models.Chunk, error)
}

// QueryEmbedder turns a question into a vector.
type QueryEmbedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Scored is a chunk with its final relevance score.
type Scored struct {
	Chunk models.Chunk
	Score float64
}

// Ranker scores chunks by cosine similarity plus keyword boosts
type Ranker struct {
	chunks   ChunkSource
	embedder QueryEmbedder
	cfg      Config
}

// NewRanker creates a ranker with the given keyword configuration.
func NewRanker(chunks ChunkSource, embedder QueryEmbedder, cfg Config) *Ranker {
	if cfg.SnippetLen <= 0 {
		cfg.SnippetLen = 100
	}
	return &Ranker{chunks: chunks, embedder: embedder, cfg: cfg}
}

// Retrieve returns up to topK chunk texts of the document ordered by
// descending relevance. Retrieval is best effort: every failure is logged
// and yields an empty result.
func (r *Ranker) Retrieve(ctx context.Context, documentID int64, question string, topK int) []string {
	if strings.TrimSpace(question) == "" || topK <= 0 {
		return nil
	}

	profile := r.cfg.ProfileQuestion(question)

	qVec, err := r.embedder.EmbedQuery(ctx, r.cfg.Expand(question))
	if err != nil || len(qVec) == 0 {
		log.Warn().Err(err).Int64("document_id", documentID).Msg("failed to embed question")
		return nil
	}

	chunks, err := r.chunks.ListChunks(ctx, documentID)
	if err != nil {
		log.Error().Err(err).Int64("document_id", documentID).Msg("failed to load chunks")
		return nil
	}
	if len(chunks) == 0 {
		log.Info().Int64("document_id", documentID).Msg("no chunks found for document")
		return nil
	}

	scored := r.Score(profile, qVec, chunks)
	if len(scored) == 0 {
		log.Info().Int64("document_id", documentID).Msg("no chunks with usable embeddings")
		return nil
	}

	texts := r.selectTop(scored, topK)

	log.Info().
		Int64("document_id", documentID).
		Int("retrieved", len(texts)).
		Float64("top_score", scored[0].Score).
		Stringer("question_type", profile.Type()).
		Msg("retrieved chunks")

	return texts
}

// Score computes final scores for every chunk whose embedding matches the
// query dimension, sorted descending. Ties keep the input order.
func (r *Ranker) Score(profile Profile, qVec []float32, chunks []models.Chunk) []Scored {
	scored := make([]Scored, 0, len(chunks))
	for _, ch := range chunks {
		if !ch.HasEmbedding() || len(ch.Embedding) != len(qVec) {
			continue
		}
		score := Cosine(qVec, ch.Embedding) + r.cfg.Boost(profile, ch.Text)
		scored = append(scored, Scored{Chunk: ch, Score: score})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	return scored
}

// selectTop walks the ranking, skipping chunks whose leading snippet was already emitted.
func (r *Ranker) selectTop(scored []Scored, topK int) []string {
	texts := make([]string, 0, min(topK, len(scored)))
	seen := make(map[string]struct{}, topK)

	for _, s := range scored {
		key := snippet(s.Chunk.Text, r.cfg.SnippetLen)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		texts = append(texts, s.Chunk.Text)
		if len(texts) >= topK {
			break
		}
	}
	return texts
}

func snippet(text string, n int) string {
	runes := []rune(text)
	if len(runes) > n {
		runes = runes[:n]
	}
	return strings.TrimSpace(strings.ToLower(string(runes)))
}

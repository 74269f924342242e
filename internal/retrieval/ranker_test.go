package retrieval

import (
	"context"
	"errors"
	"strings"
	"testing"

	"balance-sheet-rag/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeChunkSource struct {
	chunks []models.Chunk
	err    error
	calls  int
}

func (f *fakeChunkSource) ListChunks(ctx context.Context, documentID int64) ([]models.Chunk, error) {
	f.calls++
	return f.chunks, f.err
}

type fakeQueryEmbedder struct {
	vector  []float32
	err     error
	queries []string
}

func (f *fakeQueryEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	f.queries = append(f.queries, text)
	return f.vector, f.err
}

func rankingChunks() []models.Chunk {
	return []models.Chunk{
		{ID: 1, Text: "Auditor's report of the independent auditor", Embedding: []float32{1, 0}},
		{ID: 2, Text: "Management discussion: growth outlook", Embedding: []float32{0.8, 0.6}},
		{ID: 3, Text: "Revenue from operations", Embedding: []float32{0, 1}},
		{ID: 4, Text: "Chunk whose embedding failed"},
		{ID: 5, Text: "Chunk from another model", Embedding: []float32{1, 0, 0}},
		{ID: 6, Text: "  MANAGEMENT discussion: growth outlook", Embedding: []float32{0.8, 0.6}},
	}
}

func TestRetrieve_RanksWithBoostsAndDedup(t *testing.T) {
	store := &fakeChunkSource{chunks: rankingChunks()}
	embedder := &fakeQueryEmbedder{vector: []float32{1, 0}}
	r := NewRanker(store, embedder, DefaultConfig())

	texts := r.Retrieve(context.Background(), 1, "Why did margins change?", 10)

	assert.Equal(t, []string{
		"Management discussion: growth outlook",
		"Auditor's report of the independent auditor",
		"Revenue from operations",
	}, texts)

	require.Len(t, embedder.queries, 1)
	assert.Contains(t, embedder.queries[0], "Why did margins change?")
	assert.Contains(t, embedder.queries[0], "MD&A")
}

func TestRetrieve_TopK(t *testing.T) {
	r := NewRanker(&fakeChunkSource{chunks: rankingChunks()}, &fakeQueryEmbedder{vector: []float32{1, 0}}, DefaultConfig())

	texts := r.Retrieve(context.Background(), 1, "Why did margins change?", 2)
	assert.Equal(t, []string{
		"Management discussion: growth outlook",
		"Auditor's report of the independent auditor",
	}, texts)
}

func TestScore_ExactBoost(t *testing.T) {
	r := NewRanker(nil, nil, DefaultConfig())
	chunks := []models.Chunk{
		{Text: "management discussion", Embedding: []float32{1, 0}},
		{Text: "plain text", Embedding: []float32{1, 0}},
	}

	scored := r.Score(Profile{Management: true}, []float32{1, 0}, chunks)
	require.Len(t, scored, 2)
	assert.InDelta(t, 1.15, scored[0].Score, 1e-9)
	assert.InDelta(t, 1.0, scored[1].Score, 1e-9)
	assert.InDelta(t, 0.15, scored[0].Score-scored[1].Score, 1e-9)
}

func TestScore_StableOnTies(t *testing.T) {
	r := NewRanker(nil, nil, DefaultConfig())
	chunks := []models.Chunk{
		{ID: 1, Text: "alpha", Embedding: []float32{1, 0}},
		{ID: 2, Text: "beta", Embedding: []float32{2, 0}},
		{ID: 3, Text: "gamma", Embedding: []float32{3, 0}},
	}

	scored := r.Score(Profile{}, []float32{1, 0}, chunks)
	require.Len(t, scored, 3)
	for i, s := range scored {
		assert.Equal(t, int64(i+1), s.Chunk.ID)
	}
}

func TestRetrieve_DedupUsesLeadingSnippet(t *testing.T) {
	prefix := strings.Repeat("x", 100)
	chunks := []models.Chunk{
		{Text: prefix + " first tail", Embedding: []float32{1, 0}},
		{Text: prefix + " second tail", Embedding: []float32{0.9, 0.1}},
		{Text: "different", Embedding: []float32{0.5, 0.5}},
	}
	r := NewRanker(&fakeChunkSource{chunks: chunks}, &fakeQueryEmbedder{vector: []float32{1, 0}}, DefaultConfig())

	texts := r.Retrieve(context.Background(), 1, "anything", 10)
	assert.Equal(t, []string{prefix + " first tail", "different"}, texts)
}

func TestRetrieve_FailSoft(t *testing.T) {
	ctx := context.Background()

	t.Run("blank question", func(t *testing.T) {
		embedder := &fakeQueryEmbedder{vector: []float32{1, 0}}
		r := NewRanker(&fakeChunkSource{chunks: rankingChunks()}, embedder, DefaultConfig())
		assert.Empty(t, r.Retrieve(ctx, 1, "   ", 5))
		assert.Empty(t, embedder.queries)
	})

	t.Run("embedding failure", func(t *testing.T) {
		store := &fakeChunkSource{chunks: rankingChunks()}
		r := NewRanker(store, &fakeQueryEmbedder{err: errors.New("ollama down")}, DefaultConfig())
		assert.Empty(t, r.Retrieve(ctx, 1, "revenue", 5))
		assert.Zero(t, store.calls)
	})

	t.Run("empty vector", func(t *testing.T) {
		r := NewRanker(&fakeChunkSource{chunks: rankingChunks()}, &fakeQueryEmbedder{}, DefaultConfig())
		assert.Empty(t, r.Retrieve(ctx, 1, "revenue", 5))
	})

	t.Run("store failure", func(t *testing.T) {
		r := NewRanker(&fakeChunkSource{err: errors.New("connection reset")}, &fakeQueryEmbedder{vector: []float32{1, 0}}, DefaultConfig())
		assert.Empty(t, r.Retrieve(ctx, 1, "revenue", 5))
	})

	t.Run("no usable embeddings", func(t *testing.T) {
		chunks := []models.Chunk{{Text: "no vector"}, {Text: "wrong dim", Embedding: []float32{1}}}
		r := NewRanker(&fakeChunkSource{chunks: chunks}, &fakeQueryEmbedder{vector: []float32{1, 0}}, DefaultConfig())
		assert.Empty(t, r.Retrieve(ctx, 1, "revenue", 5))
	})
}

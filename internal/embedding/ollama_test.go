package embedding

import (
	"context"
	"errors"
	"strconv"
	"testing"

	"github.com/ollama/ollama/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeEmbedClient returns a one-dimensional vector holding each text's
// numeric value, and fails any batch whose first text is listed in failOn.
type fakeEmbedClient struct {
	failOn   map[string]bool
	short    map[string]bool
	requests [][]string
}

func (f *fakeEmbedClient) Embed(ctx context.Context, req *api.EmbedRequest) (*api.EmbedResponse, error) {
	input, ok := req.Input.([]string)
	if !ok {
		return nil, errors.New("unexpected input type")
	}
	f.requests = append(f.requests, input)

	if f.failOn[input[0]] {
		return nil, errors.New("model overloaded")
	}

	resp := &api.EmbedResponse{}
	for _, text := range input {
		v, _ := strconv.Atoi(text)
		resp.Embeddings = append(resp.Embeddings, []float32{float32(v)})
	}
	if f.short[input[0]] {
		resp.Embeddings = resp.Embeddings[:len(resp.Embeddings)-1]
	}
	return resp, nil
}

func (f *fakeEmbedClient) Heartbeat(ctx context.Context) error { return nil }

func texts(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = strconv.Itoa(i)
	}
	return out
}

func newTestEmbedder(client EmbedClient, batchSize int) *OllamaEmbedder {
	return &OllamaEmbedder{Client: client, Model: "nomic-embed-text", BatchSize: batchSize}
}

func TestEmbedTexts_Batches(t *testing.T) {
	client := &fakeEmbedClient{}
	e := newTestEmbedder(client, 100)

	var progress [][2]int
	e.Progress = func(processed, total int) {
		progress = append(progress, [2]int{processed, total})
	}

	res, err := e.EmbedTexts(context.Background(), texts(250))
	require.NoError(t, err)
	require.Len(t, res, 250)

	require.Len(t, client.requests, 3)
	assert.Len(t, client.requests[0], 100)
	assert.Len(t, client.requests[1], 100)
	assert.Len(t, client.requests[2], 50)

	for i, r := range res {
		assert.Equal(t, i, r.Index)
		assert.Equal(t, []float32{float32(i)}, r.Vector)
	}
	assert.Equal(t, [][2]int{{100, 250}, {200, 250}, {250, 250}}, progress)
}

func TestEmbedTexts_SkipsFailedBatch(t *testing.T) {
	client := &fakeEmbedClient{failOn: map[string]bool{"100": true}}
	e := newTestEmbedder(client, 100)

	res, err := e.EmbedTexts(context.Background(), texts(250))
	require.NoError(t, err)
	require.Len(t, res, 150)

	for _, r := range res {
		assert.False(t, r.Index >= 100 && r.Index < 200, "index %d should be missing", r.Index)
		assert.Equal(t, []float32{float32(r.Index)}, r.Vector)
	}
	assert.Equal(t, 200, res[100].Index)
}

func TestEmbedTexts_CountMismatchFailsBatch(t *testing.T) {
	client := &fakeEmbedClient{short: map[string]bool{"0": true}}
	e := newTestEmbedder(client, 2)

	res, err := e.EmbedTexts(context.Background(), texts(4))
	require.NoError(t, err)
	require.Len(t, res, 2)
	assert.Equal(t, 2, res[0].Index)
	assert.Equal(t, 3, res[1].Index)
}

func TestEmbedTexts_AllBatchesFail(t *testing.T) {
	client := &fakeEmbedClient{failOn: map[string]bool{"0": true, "2": true}}
	e := newTestEmbedder(client, 2)

	res, err := e.EmbedTexts(context.Background(), texts(4))
	assert.ErrorIs(t, err, ErrNoEmbeddings)
	assert.Nil(t, res)
}

func TestEmbedTexts_EmptyInput(t *testing.T) {
	client := &fakeEmbedClient{}
	res, err := newTestEmbedder(client, 100).EmbedTexts(context.Background(), nil)
	assert.NoError(t, err)
	assert.Empty(t, res)
	assert.Empty(t, client.requests)
}

func TestEmbedQuery(t *testing.T) {
	e := newTestEmbedder(&fakeEmbedClient{}, 100)

	v, err := e.EmbedQuery(context.Background(), "7")
	require.NoError(t, err)
	assert.Equal(t, []float32{7}, v)

	e = newTestEmbedder(&fakeEmbedClient{failOn: map[string]bool{"7": true}}, 100)
	_, err = e.EmbedQuery(context.Background(), "7")
	assert.ErrorIs(t, err, ErrNoEmbeddings)
}

func TestEmbedBatch_StopsRetryingOnCancel(t *testing.T) {
	client := &fakeEmbedClient{failOn: map[string]bool{"0": true}}
	e := newTestEmbedder(client, 10)
	e.MaxRetries = 3

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.embedBatch(ctx, []string{"0"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, client.requests, 1)
}

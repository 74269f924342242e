package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/ollama/ollama/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGenerateClient struct {
	chunks       []string
	err          error
	heartbeatErr error
	lastRequest  *api.GenerateRequest
}

func (f *fakeGenerateClient) Generate(ctx context.Context, req *api.GenerateRequest, fn api.GenerateResponseFunc) error {
	f.lastRequest = req
	if f.err != nil {
		return f.err
	}
	for _, c := range f.chunks {
		if err := fn(api.GenerateResponse{Response: c}); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeGenerateClient) Heartbeat(ctx context.Context) error {
	return f.heartbeatErr
}

func TestGenerateResponse_AggregatesStream(t *testing.T) {
	client := &fakeGenerateClient{chunks: []string{"Revenue ", "grew ", "50%."}}
	o := &OllamaLLM{Client: client, Model: "llama3.1", Temperature: 0.1, MaxTokens: 256}

	text, err := o.GenerateResponse(context.Background(), "system", "user")
	require.NoError(t, err)
	assert.Equal(t, "Revenue grew 50%.", text)

	require.NotNil(t, client.lastRequest)
	assert.Equal(t, "llama3.1", client.lastRequest.Model)
	assert.Equal(t, "system", client.lastRequest.System)
	assert.Equal(t, "user", client.lastRequest.Prompt)
	assert.Equal(t, 0.1, client.lastRequest.Options["temperature"])
	assert.Equal(t, 256, client.lastRequest.Options["num_predict"])
}

func TestGenerate_ReportsErrorsInBand(t *testing.T) {
	o := &OllamaLLM{Client: &fakeGenerateClient{err: errors.New("connection refused")}, Model: "m"}

	text := o.Generate(context.Background(), "system", "user")
	assert.Contains(t, text, "Error calling language model:")
	assert.Contains(t, text, "connection refused")
}

func TestPing(t *testing.T) {
	o := &OllamaLLM{Client: &fakeGenerateClient{}}
	assert.NoError(t, o.Ping(context.Background()))

	o = &OllamaLLM{Client: &fakeGenerateClient{heartbeatErr: errors.New("down")}}
	assert.Error(t, o.Ping(context.Background()))
}

func TestResolveHost(t *testing.T) {
	u, err := ResolveHost("http://ollama.internal:11434")
	require.NoError(t, err)
	assert.Equal(t, "ollama.internal:11434", u.Host)

	t.Setenv("OLLAMA_HOST", "http://10.0.0.5:11434")
	u, err = ResolveHost("")
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.5:11434", u.Host)
}

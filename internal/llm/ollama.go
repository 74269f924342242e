package llm

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/ollama/ollama/api"
	"github.com/ollama/ollama/envconfig"
	"github.com/rs/zerolog/log"
)

// GenerateClient is the part of the Ollama client used for text generation.
type GenerateClient interface {
	Generate(ctx context.Context, req *api.GenerateRequest, fn api.GenerateResponseFunc) error
	Heartbeat(ctx context.Context) error
}

// OllamaLLM handles interactions with the Ollama LLM API
type OllamaLLM struct {
	Client      GenerateClient
	Model       string
	Temperature float64
	MaxTokens   int
}

// NewOllamaLLM creates a new Ollama LLM client. An empty host falls back to OLLAMA_HOST.
func NewOllamaLLM(host string, model string, httpClient *http.Client) (*OllamaLLM, error) {
	hostURL, err := ResolveHost(host)
	if err != nil {
		return nil, err
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &OllamaLLM{
		Client:      api.NewClient(hostURL, httpClient),
		Model:       model,
		Temperature: 0.1,
		MaxTokens:   1024,
	}, nil
}

// ResolveHost parses an explicit Ollama host or falls back to the environment.
func ResolveHost(host string) (*url.URL, error) {
	if host == "" {
		return envconfig.Host(), nil
	}
	u, err := url.Parse(host)
	if err != nil {
		return nil, fmt.Errorf("invalid ollama host %q: %w", host, err)
	}
	return u, nil
}

// GenerateResponse runs one completion with a system instruction.
func (o *OllamaLLM) GenerateResponse(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	req := api.GenerateRequest{
		Model:  o.Model,
		System: systemPrompt,
		Prompt: userPrompt,
		Options: map[string]any{
			"temperature": o.Temperature,
			"num_predict": o.MaxTokens,
		},
	}

	var responseBuilder strings.Builder

	err := o.Client.Generate(ctx, &req, func(resp api.GenerateResponse) error {
		_, err := responseBuilder.WriteString(resp.Response)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate response: %w", err)
	}

	return responseBuilder.String(), nil
}

// Generate is GenerateResponse with provider errors reported in-band, so
// callers always get text back.
func (o *OllamaLLM) Generate(ctx context.Context, systemPrompt, userPrompt string) string {
	text, err := o.GenerateResponse(ctx, systemPrompt, userPrompt)
	if err != nil {
		log.Error().Err(err).Str("model", o.Model).Msg("generation call failed")
		return fmt.Sprintf("Error calling language model: %v", err)
	}
	return text
}

// Ping checks that the Ollama server is reachable.
func (o *OllamaLLM) Ping(ctx context.Context) error {
	if err := o.Client.Heartbeat(ctx); err != nil {
		return fmt.Errorf("ollama heartbeat failed: %w", err)
	}
	return nil
}

// internal/clients/genai/ollama.go
package genai

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/ollama/ollama/api"
)

// OllamaGenerator calls a local Ollama server without streaming.
type OllamaGenerator struct {
	client *api.Client
	opts   Options
}

func NewOllamaGenerator(opts Options) (*OllamaGenerator, error) {
	base, err := url.Parse(opts.BaseURL)
	if err != nil {
		return nil, unavailable("ollama base url: %v", err)
	}
	return &OllamaGenerator{
		client: api.NewClient(base, &http.Client{Timeout: opts.Timeout}),
		opts:   opts,
	}, nil
}

func (g *OllamaGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	stream := false
	req := &api.GenerateRequest{
		Model:  g.opts.Model,
		Prompt: prompt,
		Stream: &stream,
		Options: map[string]interface{}{
			"temperature": g.opts.Temperature,
		},
	}
	if g.opts.MaxTokens > 0 {
		req.Options["num_predict"] = g.opts.MaxTokens
	}

	var sb strings.Builder
	err := g.client.Generate(ctx, req, func(resp api.GenerateResponse) error {
		sb.WriteString(resp.Response)
		return nil
	})
	if err != nil {
		return "", unavailable("ollama: %v", err)
	}
	return sb.String(), nil
}

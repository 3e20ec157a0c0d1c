// internal/clients/genai/gemini.go
package genai

import (
	"context"

	googlegenai "google.golang.org/genai"
)

// GeminiGenerator uses the Gemini API through the official SDK.
type GeminiGenerator struct {
	client *googlegenai.Client
	opts   Options
}

func NewGeminiGenerator(ctx context.Context, opts Options) (*GeminiGenerator, error) {
	cc := &googlegenai.ClientConfig{
		APIKey:  opts.APIKey,
		Backend: googlegenai.BackendGeminiAPI,
	}
	if opts.BaseURL != "" {
		cc.HTTPOptions = googlegenai.HTTPOptions{BaseURL: opts.BaseURL}
	}
	client, err := googlegenai.NewClient(ctx, cc)
	if err != nil {
		return nil, unavailable("gemini client: %v", err)
	}
	return &GeminiGenerator{client: client, opts: opts}, nil
}

func (g *GeminiGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	if g.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.opts.Timeout)
		defer cancel()
	}

	cfg := &googlegenai.GenerateContentConfig{
		Temperature: googlegenai.Ptr(float32(g.opts.Temperature)),
	}
	if g.opts.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(g.opts.MaxTokens)
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.opts.Model, googlegenai.Text(prompt), cfg)
	if err != nil {
		return "", unavailable("gemini: %v", err)
	}
	return resp.Text(), nil
}

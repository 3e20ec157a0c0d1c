// internal/clients/genai/http.go
package genai

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"

	commonhttp "github.com/ai-asa/chat-websearch/internal/common/http"
)

// HTTPGenerator calls a GenAI gateway at {BaseURL}/api/ai/generate.
type HTTPGenerator struct {
	opts   Options
	client *commonhttp.Client
}

func NewHTTPGenerator(opts Options) *HTTPGenerator {
	return &HTTPGenerator{
		opts:   opts,
		client: commonhttp.NewClient(opts.Timeout, commonhttp.WithRetries(opts.MaxRetries)),
	}
}

type generateRequest struct {
	Prompt      string  `json:"prompt"`
	Model       string  `json:"model,omitempty"`
	MaxTokens   int     `json:"max_tokens"`
	Temperature float64 `json:"temperature"`
}

type generateResponse struct {
	Text       string   `json:"text"`
	Confidence float64  `json:"confidence"`
	Sources    []string `json:"sources"`
}

func (g *HTTPGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	var out generateResponse
	err := postJSON(ctx, g.client, g.opts.BaseURL+"/api/ai/generate", g.opts.APIKey, generateRequest{
		Prompt:      prompt,
		Model:       g.opts.Model,
		MaxTokens:   g.opts.MaxTokens,
		Temperature: g.opts.Temperature,
	}, &out)
	if err != nil {
		return "", err
	}
	return out.Text, nil
}

// OpenAIGenerator speaks the chat completions API, so it also fits compatible servers.
type OpenAIGenerator struct {
	opts   Options
	client *commonhttp.Client
}

func NewOpenAIGenerator(opts Options) *OpenAIGenerator {
	return &OpenAIGenerator{
		opts:   opts,
		client: commonhttp.NewClient(opts.Timeout, commonhttp.WithRetries(opts.MaxRetries)),
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func (g *OpenAIGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	var out chatResponse
	err := postJSON(ctx, g.client, g.opts.BaseURL+"/v1/chat/completions", g.opts.APIKey, chatRequest{
		Model:       g.opts.Model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		MaxTokens:   g.opts.MaxTokens,
		Temperature: g.opts.Temperature,
	}, &out)
	if err != nil {
		return "", err
	}
	if len(out.Choices) == 0 {
		return "", unavailable("no choices in response")
	}
	return out.Choices[0].Message.Content, nil
}

func postJSON(ctx context.Context, client *commonhttp.Client, url, apiKey string, in, out interface{}) error {
	body, err := json.Marshal(in)
	if err != nil {
		return unavailable("encode request: %v", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return unavailable("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+strings.TrimSpace(apiKey))
	}

	resp, err := client.DoWithRetry(ctx, req)
	if err != nil {
		return unavailable("%v", err)
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return unavailable("decode response: %v", err)
	}
	return nil
}

// Package genai provides the text generation backends: a GenAI gateway, OpenAI-compatible
// chat completions, Gemini and Ollama.
package genai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ai-asa/chat-websearch/internal/common/config"
	apperrors "github.com/ai-asa/chat-websearch/internal/common/errors"
	"github.com/ai-asa/chat-websearch/internal/common/logger"
	"github.com/ai-asa/chat-websearch/internal/research/prompts"
)

var ErrGenerationUnavailable = apperrors.ErrGenerationUnavailable

// Generator turns a prompt into text. Every failure wraps ErrGenerationUnavailable.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(ctx context.Context, prompt string) (string, error)

func (f GeneratorFunc) Generate(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// Options are the provider-independent generation settings.
type Options struct {
	BaseURL     string
	APIKey      string
	Model       string
	Timeout     time.Duration
	MaxTokens   int
	Temperature float64
	MaxRetries  int
}

func optionsFromConfig(cfg config.GenAIConfig) Options {
	return Options{
		BaseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		APIKey:      cfg.APIKey,
		Model:       cfg.Model,
		Timeout:     config.GetDuration(cfg.Timeout),
		MaxTokens:   cfg.MaxTokens,
		Temperature: cfg.Temperature,
		MaxRetries:  cfg.MaxRetries,
	}
}

// New builds the generator named by cfg.Provider.
func New(ctx context.Context, cfg config.GenAIConfig, log logger.Logger) (Generator, error) {
	opts := optionsFromConfig(cfg)
	var (
		gen Generator
		err error
	)
	switch cfg.Provider {
	case "", "genai":
		gen = NewHTTPGenerator(opts)
	case "openai":
		gen = NewOpenAIGenerator(opts)
	case "gemini":
		gen, err = NewGeminiGenerator(ctx, opts)
	case "ollama":
		gen, err = NewOllamaGenerator(opts)
	default:
		return nil, fmt.Errorf("unknown genai provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}
	return WithLogging(gen, cfg.Provider, log), nil
}

// WithLogging logs each call's latency and failures.
func WithLogging(gen Generator, provider string, log logger.Logger) Generator {
	if log == nil {
		return gen
	}
	log = log.With(map[string]interface{}{"provider": provider})
	return GeneratorFunc(func(ctx context.Context, prompt string) (string, error) {
		start := time.Now()
		text, err := gen.Generate(ctx, prompt)
		fields := map[string]interface{}{
			"promptChars": len(prompt),
			"durationMs":  time.Since(start).Milliseconds(),
		}
		if err != nil {
			fields["error"] = err.Error()
			log.Warn("generation failed", fields)
			return "", err
		}
		fields["replyChars"] = len(text)
		log.Debug("generation completed", fields)
		return text, nil
	})
}

func unavailable(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrGenerationUnavailable, fmt.Sprintf(format, args...))
}

// Summarizer adapts a Generator to the chunk summarizer with the summarize prompt.
type Summarizer struct {
	Generator Generator
}

func (s Summarizer) Summarize(ctx context.Context, text string) (string, error) {
	prompt, err := prompts.Summarize(text)
	if err != nil {
		return "", err
	}
	return s.Generator.Generate(ctx, prompt)
}

// internal/clients/websearch/searcher.go
// Package websearch turns a query into a ranked list of result URLs.
package websearch

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ai-asa/chat-websearch/internal/common/config"
	apperrors "github.com/ai-asa/chat-websearch/internal/common/errors"
	"github.com/ai-asa/chat-websearch/internal/common/ratelimit"
)

var (
	ErrWebSearchTimeout  = apperrors.ErrWebSearchTimeout
	ErrSearchQueryFailed = apperrors.ErrSearchQueryFailed
)

// Result is one search hit in rank order.
type Result struct {
	URL     string `json:"url"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
	Mime    string `json:"mime,omitempty"`
}

// Searcher runs a web search.
type Searcher interface {
	Search(ctx context.Context, query string, maxResults int) ([]Result, error)
	Name() string
}

// New builds the searcher named by cfg.Provider. The elasticsearch provider is not a
// Searcher; it is handled by the retrieval package.
func New(cfg config.WebSearchConfig, limiter ratelimit.Limiter) (Searcher, error) {
	if limiter == nil {
		limiter = ratelimit.Unlimited{}
	}
	timeout := config.GetDuration(cfg.Timeout)
	switch cfg.Provider {
	case "", "google":
		return NewGoogleCSE(cfg.BaseURL, cfg.APIKey, cfg.EngineID, timeout, limiter), nil
	case "duckduckgo":
		return NewDuckDuckGo(cfg.BaseURL, timeout, limiter), nil
	}
	return nil, fmt.Errorf("unknown web search provider %q", cfg.Provider)
}

// classify maps transport failures onto the search error taxonomy.
func classify(ctx context.Context, err error) error {
	if ctx.Err() == context.DeadlineExceeded {
		return fmt.Errorf("%w: %v", ErrWebSearchTimeout, err)
	}
	msg := err.Error()
	if strings.Contains(msg, "timeout") || strings.Contains(msg, "deadline") || strings.Contains(msg, "Client.Timeout") {
		return fmt.Errorf("%w: %v", ErrWebSearchTimeout, err)
	}
	return fmt.Errorf("%w: %v", ErrSearchQueryFailed, err)
}

// dedupe keeps the first occurrence of each URL, drops non-HTML results and caps at max.
func dedupe(results []Result, max int) []Result {
	seen := make(map[string]bool, len(results))
	out := make([]Result, 0, len(results))
	for _, r := range results {
		if r.URL == "" || seen[r.URL] {
			continue
		}
		if r.Mime != "" && !strings.Contains(r.Mime, "html") {
			continue
		}
		seen[r.URL] = true
		out = append(out, r)
		if max > 0 && len(out) >= max {
			break
		}
	}
	return out
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

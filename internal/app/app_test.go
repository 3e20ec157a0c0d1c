// internal/app/app_test.go
package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/sdk/metric"

	"github.com/ai-asa/chat-websearch/internal/clients/genai"
	"github.com/ai-asa/chat-websearch/internal/clients/retrieval"
	"github.com/ai-asa/chat-websearch/internal/common/config"
	"github.com/ai-asa/chat-websearch/internal/common/logger"
	"github.com/ai-asa/chat-websearch/internal/common/observability"
	"github.com/ai-asa/chat-websearch/internal/common/ratelimit"
)

func createTestConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Name: "chat-websearch-test"},
		APIs: config.APIsConfig{
			GenAI:     config.GenAIConfig{Provider: "genai", BaseURL: "http://127.0.0.1:1", Timeout: 1000},
			WebSearch: config.WebSearchConfig{Provider: "duckduckgo", Timeout: 1000},
		},
		Scraper:  config.ScraperConfig{Timeout: 1000, ExcludeLinks: true, MaxDepth: 20, Concurrency: 2},
		Research: config.ResearchConfig{TokenBudget: 30000, MaxResults: 5, Concurrency: 1, TokenEncoding: "estimate"},
	}
}

func testObs() *observability.Observability {
	return observability.New("app-test", observability.WithReader(metric.NewManualReader()))
}

var staticModel = genai.GeneratorFunc(func(ctx context.Context, prompt string) (string, error) {
	return "<decision>0</decision>", nil
})

func TestNew_WiresPipeline(t *testing.T) {
	a, err := New(context.Background(), createTestConfig(), logger.NewTestLogger(t), Options{Generator: staticModel, Obs: testObs()})
	require.NoError(t, err)
	defer a.Close()

	assert.IsType(t, &retrieval.WebRetriever{}, a.Retriever)
	require.NotNil(t, a.Orchestrator)
	require.NotNil(t, a.Briefer)

	turn, err := a.Orchestrator.RunTurn(context.Background(), "hello")
	require.NoError(t, err)
	assert.False(t, turn.UsedResearch)
	assert.Equal(t, "<decision>0</decision>", turn.Assistant)
	assert.Equal(t, 1, a.Orchestrator.History().Len())
}

func TestNewLimiter(t *testing.T) {
	mr := miniredis.RunT(t)

	tests := []struct {
		name   string
		rl     config.RateLimitConfig
		redis  string
		expect interface{}
	}{
		{"redis window", config.RateLimitConfig{Enabled: true, Requests: 1, Window: 1000}, mr.Addr(), &ratelimit.RedisLimiter{}},
		{"local spacing", config.RateLimitConfig{Requests: 2, Window: 1000}, "", &ratelimit.LocalLimiter{}},
		{"unlimited", config.RateLimitConfig{}, "", ratelimit.Unlimited{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := createTestConfig()
			cfg.Research.RateLimit = tt.rl
			cfg.Database.Redis.Address = tt.redis

			a := &App{Config: cfg, Logger: logger.NewTestLogger(t)}
			defer a.Close()
			limiter, err := a.newLimiter(context.Background())
			require.NoError(t, err)
			assert.IsType(t, tt.expect, limiter)
		})
	}
}

func TestNewLimiter_LocalInterval(t *testing.T) {
	cfg := createTestConfig()
	cfg.Research.RateLimit = config.RateLimitConfig{Requests: 4, Window: 1000}
	a := &App{Config: cfg, Logger: logger.NewNoOpLogger()}

	limiter, err := a.newLimiter(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 250*time.Millisecond, limiter.(*ratelimit.LocalLimiter).Interval)
}

func TestNew_ElasticsearchProvider(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	cfg := createTestConfig()
	cfg.APIs.WebSearch.Provider = "elasticsearch"
	cfg.Database.Elasticsearch.URL = server.URL

	a, err := New(context.Background(), cfg, logger.NewTestLogger(t), Options{Generator: staticModel, Obs: testObs()})
	require.NoError(t, err)
	defer a.Close()
	assert.IsType(t, &retrieval.ElasticsearchRetriever{}, a.Retriever)
}

// internal/common/config/loader_test.go
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadFromFile_AppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
apis:
  genai:
    base_url: http://gateway.local
workers:
  research-turn:
    enabled: true
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "chat-websearch", cfg.App.Name)
	assert.Equal(t, "genai", cfg.APIs.GenAI.Provider)
	assert.Equal(t, "gpt-4o", cfg.APIs.GenAI.Model)
	assert.Equal(t, "google", cfg.APIs.WebSearch.Provider)
	assert.Equal(t, "https://www.googleapis.com/customsearch/v1", cfg.APIs.WebSearch.BaseURL)
	assert.True(t, cfg.Scraper.ExcludeLinks)
	assert.Equal(t, 20, cfg.Scraper.MaxDepth)
	assert.Equal(t, 1, cfg.Scraper.Concurrency)
	assert.Equal(t, 30000, cfg.Research.TokenBudget)
	assert.Equal(t, 5, cfg.Research.MaxResults)
	assert.Equal(t, 1, cfg.Research.Concurrency)
	assert.Equal(t, "o200k_base", cfg.Research.TokenEncoding)
	assert.Equal(t, ":8080", cfg.Server.Address)

	worker := GetWorkerConfig(cfg, "research-turn")
	assert.True(t, worker.Enabled)
	assert.Equal(t, 5, worker.MaxJobsActive)
	assert.Equal(t, 300000, worker.Timeout)
	assert.Equal(t, 3, worker.MaxRetries)
}

func TestLoadFromFile_ExplicitValuesWin(t *testing.T) {
	path := writeConfig(t, `
apis:
  genai:
    provider: ollama
  web_search:
    provider: duckduckgo
scraper:
  exclude_links: false
research:
  token_budget: 8000
  token_encoding: estimate
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:11434", cfg.APIs.GenAI.BaseURL)
	assert.Equal(t, "llama3.1", cfg.APIs.GenAI.Model)
	assert.Equal(t, "https://lite.duckduckgo.com/lite/", cfg.APIs.WebSearch.BaseURL)
	assert.False(t, cfg.Scraper.ExcludeLinks)
	assert.Equal(t, 8000, cfg.Research.TokenBudget)
	assert.Equal(t, "estimate", cfg.Research.TokenEncoding)
}

func TestLoadFromFile_EnvironmentOverrides(t *testing.T) {
	t.Setenv("RESEARCH_TOKEN_BUDGET", "1200")
	t.Setenv("TEST_GATEWAY_KEY", "secret-key")
	path := writeConfig(t, `
apis:
  genai:
    base_url: http://gateway.local
    api_key: ${TEST_GATEWAY_KEY}
research:
  token_budget: 30000
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, 1200, cfg.Research.TokenBudget)
	assert.Equal(t, "secret-key", cfg.APIs.GenAI.APIKey)
}

func TestLoadFromFile_Invalid(t *testing.T) {
	t.Setenv("REDIS_ADDRESS", "")
	t.Setenv("ELASTICSEARCH_URL", "")

	tests := []struct {
		name string
		body string
	}{
		{"unknown genai provider", "apis:\n  genai:\n    provider: bard\n    base_url: http://x\n"},
		{"unknown search provider", "apis:\n  genai:\n    base_url: http://x\n  web_search:\n    provider: bing\n"},
		{"missing gateway url", "apis:\n  genai:\n    provider: genai\n"},
		{"elasticsearch without endpoint", "apis:\n  genai:\n    base_url: http://x\n  web_search:\n    provider: elasticsearch\n"},
		{"rate limit without redis", "apis:\n  genai:\n    base_url: http://x\nresearch:\n  rate_limit:\n    enabled: true\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFromFile(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}
}

func TestLoadFromFile_MissingFile(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestGetWorkerConfig_Fallback(t *testing.T) {
	cfg := &Config{}
	worker := GetWorkerConfig(cfg, "icebreak-briefing")
	assert.True(t, worker.Enabled)
	assert.Equal(t, 5, worker.MaxJobsActive)
	assert.True(t, IsWorkerEnabled(cfg, "icebreak-briefing"))

	cfg.Workers = map[string]WorkerConfig{"icebreak-briefing": {Enabled: false}}
	assert.False(t, IsWorkerEnabled(cfg, "icebreak-briefing"))
}

func TestGetDuration(t *testing.T) {
	assert.Equal(t, 1500*time.Millisecond, GetDuration(1500))
	assert.Equal(t, time.Duration(0), GetDuration(0))
}

// internal/common/config/loader.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

var knownProviders = map[string][]string{
	"genai":      {"genai", "openai", "gemini", "ollama"},
	"web_search": {"google", "duckduckgo", "elasticsearch"},
}

// Load reads configs/config.yaml, merges config.<APP_ENVIRONMENT>.yaml and applies env overrides.
func Load() (*Config, error) {
	loadEnvFile()

	v := newViper()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath("../../configs")
	v.AddConfigPath(".")

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	v.SetConfigName(fmt.Sprintf("config.%s", env))
	_ = v.MergeInConfig() // optional

	return finish(v)
}

// LoadFromFile loads configuration from a specific file path
func LoadFromFile(path string) (*Config, error) {
	loadEnvFile()

	v := newViper()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	return finish(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	bindKeys(v)
	return v
}

// bindKeys registers every leaf key so AutomaticEnv can fill values that no file mentions.
func bindKeys(v *viper.Viper) {
	for _, key := range []string{
		"app.name", "app.version", "app.environment",
		"logging.level", "logging.format", "logging.output",
		"camunda.broker_address",
		"database.redis.address", "database.redis.password", "database.redis.db",
		"database.elasticsearch.url", "database.elasticsearch.index",
		"database.elasticsearch.username", "database.elasticsearch.password",
		"apis.genai.provider", "apis.genai.base_url", "apis.genai.api_key", "apis.genai.model",
		"apis.genai.timeout", "apis.genai.max_tokens", "apis.genai.temperature", "apis.genai.max_retries",
		"apis.web_search.provider", "apis.web_search.base_url", "apis.web_search.api_key",
		"apis.web_search.engine_id", "apis.web_search.timeout",
		"scraper.timeout", "scraper.max_body_bytes", "scraper.user_agent",
		"scraper.exclude_links", "scraper.max_depth", "scraper.concurrency",
		"research.token_budget", "research.max_results", "research.concurrency", "research.token_encoding",
		"research.rate_limit.enabled", "research.rate_limit.requests", "research.rate_limit.window",
		"server.address", "server.metrics_address",
	} {
		_ = v.BindEnv(key)
	}
}

func finish(v *viper.Viper) (*Config, error) {
	expandEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// exclude_links defaults to true, which a zero-value bool cannot express
	if !v.IsSet("scraper.exclude_links") {
		cfg.Scraper.ExcludeLinks = true
	}

	applyDefaults(&cfg)
	overrideEmptyConfig(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func loadEnvFile() {
	possiblePaths := []string{
		".env",
		"../.env",
		"../../.env",
		"../../../.env",
	}
	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}

func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		strVal, ok := v.Get(key).(string)
		if !ok {
			continue
		}
		if strings.Contains(strVal, "${") || (strings.HasPrefix(strVal, "$") && len(strVal) > 1) {
			if expanded := os.ExpandEnv(strVal); expanded != strVal && expanded != "" {
				v.Set(key, expanded)
			}
		}
	}
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if val := os.Getenv(k); val != "" {
			return val
		}
	}
	return ""
}

// overrideEmptyConfig fills secrets from the conventional variable names when the file left them blank.
func overrideEmptyConfig(cfg *Config) {
	if cfg.APIs.GenAI.APIKey == "" {
		switch cfg.APIs.GenAI.Provider {
		case "openai":
			cfg.APIs.GenAI.APIKey = firstEnv("OPENAI_API_KEY", "GENAI_API_KEY")
		case "gemini":
			cfg.APIs.GenAI.APIKey = firstEnv("GEMINI_API_KEY", "GOOGLE_API_KEY", "GENAI_API_KEY")
		default:
			cfg.APIs.GenAI.APIKey = firstEnv("GENAI_API_KEY")
		}
	}

	if cfg.APIs.WebSearch.APIKey == "" {
		cfg.APIs.WebSearch.APIKey = firstEnv("WEB_SEARCH_API_KEY", "GOOGLE_API_KEY")
	}
	if cfg.APIs.WebSearch.EngineID == "" {
		cfg.APIs.WebSearch.EngineID = firstEnv("WEB_SEARCH_ENGINE_ID", "GOOGLE_CSE_ID")
	}

	if cfg.Database.Redis.Address == "" {
		cfg.Database.Redis.Address = firstEnv("REDIS_ADDRESS")
	}
	if cfg.Database.Elasticsearch.URL == "" && len(cfg.Database.Elasticsearch.Addresses) == 0 {
		if val := firstEnv("ELASTICSEARCH_URL"); val != "" {
			cfg.Database.Elasticsearch.URL = val
		}
	}
	if cfg.Database.Elasticsearch.URL == "" && len(cfg.Database.Elasticsearch.Addresses) > 0 {
		cfg.Database.Elasticsearch.URL = cfg.Database.Elasticsearch.Addresses[0]
	}
	if len(cfg.Database.Elasticsearch.Addresses) == 0 && cfg.Database.Elasticsearch.URL != "" {
		cfg.Database.Elasticsearch.Addresses = []string{cfg.Database.Elasticsearch.URL}
	}
}

// applyDefaults sets default values for optional configuration fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "chat-websearch"
	}

	if cfg.Camunda.MaxJobsActive == 0 {
		cfg.Camunda.MaxJobsActive = 10
	}
	if cfg.Camunda.Timeout == 0 {
		cfg.Camunda.Timeout = 30000
	}
	if cfg.Camunda.RequestTimeout == 0 {
		cfg.Camunda.RequestTimeout = 30000
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}

	for key, worker := range cfg.Workers {
		if worker.MaxJobsActive == 0 {
			worker.MaxJobsActive = 5
		}
		if worker.Timeout == 0 {
			worker.Timeout = 300000
		}
		if worker.MaxRetries == 0 {
			worker.MaxRetries = 3
		}
		cfg.Workers[key] = worker
	}

	g := &cfg.APIs.GenAI
	if g.Provider == "" {
		g.Provider = "genai"
	}
	if g.Timeout == 0 {
		g.Timeout = 60000
	}
	if g.MaxTokens == 0 {
		g.MaxTokens = 4096
	}
	if g.Temperature == 0 {
		g.Temperature = 0.7
	}
	if g.MaxRetries == 0 {
		g.MaxRetries = 2
	}
	if g.Model == "" {
		switch g.Provider {
		case "gemini":
			g.Model = "gemini-2.5-flash"
		case "ollama":
			g.Model = "llama3.1"
		default:
			g.Model = "gpt-4o"
		}
	}
	if g.BaseURL == "" {
		switch g.Provider {
		case "openai":
			g.BaseURL = "https://api.openai.com"
		case "ollama":
			g.BaseURL = "http://localhost:11434"
		}
	}

	w := &cfg.APIs.WebSearch
	if w.Provider == "" {
		w.Provider = "google"
	}
	if w.Timeout == 0 {
		w.Timeout = 10000
	}
	if w.BaseURL == "" {
		switch w.Provider {
		case "google":
			w.BaseURL = "https://www.googleapis.com/customsearch/v1"
		case "duckduckgo":
			w.BaseURL = "https://lite.duckduckgo.com/lite/"
		}
	}

	s := &cfg.Scraper
	if s.Timeout == 0 {
		s.Timeout = 15000
	}
	if s.MaxBodyBytes == 0 {
		s.MaxBodyBytes = 2 << 20
	}
	if s.UserAgent == "" {
		s.UserAgent = "Mozilla/5.0 (compatible; chat-websearch/1.0)"
	}
	if s.MaxDepth == 0 {
		s.MaxDepth = 20
	}
	if s.Concurrency == 0 {
		s.Concurrency = 1
	}

	r := &cfg.Research
	if r.TokenBudget == 0 {
		r.TokenBudget = 30000
	}
	if r.MaxResults == 0 {
		r.MaxResults = 5
	}
	if r.Concurrency == 0 {
		r.Concurrency = 1
	}
	if r.TokenEncoding == "" {
		r.TokenEncoding = "o200k_base"
	}
	if r.RateLimit.Requests == 0 {
		r.RateLimit.Requests = 1
	}
	if r.RateLimit.Window == 0 {
		r.RateLimit.Window = 1000
	}

	if cfg.Database.Elasticsearch.Index == "" {
		cfg.Database.Elasticsearch.Index = "web-pages"
	}

	if cfg.Server.Address == "" {
		cfg.Server.Address = ":8080"
	}
	if cfg.Server.MetricsAddress == "" {
		cfg.Server.MetricsAddress = ":9090"
	}
}

func oneOf(val string, allowed []string) bool {
	for _, a := range allowed {
		if a == val {
			return true
		}
	}
	return false
}

// validateConfig validates critical configuration fields
func validateConfig(cfg *Config) error {
	if !oneOf(cfg.APIs.GenAI.Provider, knownProviders["genai"]) {
		return fmt.Errorf("apis.genai.provider %q is not one of %v", cfg.APIs.GenAI.Provider, knownProviders["genai"])
	}
	if !oneOf(cfg.APIs.WebSearch.Provider, knownProviders["web_search"]) {
		return fmt.Errorf("apis.web_search.provider %q is not one of %v", cfg.APIs.WebSearch.Provider, knownProviders["web_search"])
	}
	if cfg.APIs.GenAI.Provider != "gemini" && cfg.APIs.GenAI.BaseURL == "" {
		return fmt.Errorf("apis.genai.base_url is required for provider %s", cfg.APIs.GenAI.Provider)
	}
	if cfg.APIs.WebSearch.Provider == "elasticsearch" && !cfg.Database.Elasticsearch.Enabled() {
		return fmt.Errorf("database.elasticsearch.addresses or url is required for the elasticsearch search provider")
	}
	if cfg.Research.TokenBudget < 0 {
		return fmt.Errorf("research.token_budget must be positive")
	}
	if cfg.Research.RateLimit.Enabled && cfg.Database.Redis.Address == "" {
		return fmt.Errorf("database.redis.address is required when research.rate_limit.enabled")
	}
	return nil
}

// GetDuration converts milliseconds from config to time.Duration
func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}

// GetWorkerConfig retrieves worker-specific configuration with fallback to defaults
func GetWorkerConfig(cfg *Config, workerName string) WorkerConfig {
	if worker, exists := cfg.Workers[workerName]; exists {
		return worker
	}
	return WorkerConfig{
		Enabled:       true,
		MaxJobsActive: 5,
		Timeout:       300000,
		MaxRetries:    3,
	}
}

// IsWorkerEnabled checks if a specific worker is enabled
func IsWorkerEnabled(cfg *Config, workerName string) bool {
	if worker, exists := cfg.Workers[workerName]; exists {
		return worker.Enabled
	}
	return true
}

// internal/workers/research/research-aggregate/config.go
package researchaggregate

import (
	"time"

	"github.com/ai-asa/chat-websearch/internal/common/config"
)

type Config struct {
	Enabled       bool
	MaxJobsActive int
	Timeout       time.Duration
	// MaxQueries caps one job's fan-out; extra queries are dropped with a warning.
	MaxQueries int
}

func LoadConfig(wcfg config.WorkerConfig) *Config {
	cfg := &Config{
		Enabled:       wcfg.Enabled,
		MaxJobsActive: wcfg.MaxJobsActive,
		Timeout:       config.GetDuration(wcfg.Timeout),
		MaxQueries:    10,
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Minute
	}
	if cfg.MaxJobsActive <= 0 {
		cfg.MaxJobsActive = 5
	}
	return cfg
}

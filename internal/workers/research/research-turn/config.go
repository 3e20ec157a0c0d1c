// internal/workers/research/research-turn/config.go
package researchturn

import (
	"time"

	"github.com/ai-asa/chat-websearch/internal/common/config"
)

type Config struct {
	Enabled       bool
	MaxJobsActive int
	Timeout       time.Duration
}

// LoadConfig reads the worker section; the turn timeout covers judging, research and the reply.
func LoadConfig(wcfg config.WorkerConfig) *Config {
	cfg := &Config{
		Enabled:       wcfg.Enabled,
		MaxJobsActive: wcfg.MaxJobsActive,
		Timeout:       config.GetDuration(wcfg.Timeout),
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Minute
	}
	if cfg.MaxJobsActive <= 0 {
		cfg.MaxJobsActive = 5
	}
	return cfg
}

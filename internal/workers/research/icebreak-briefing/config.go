// internal/workers/research/icebreak-briefing/config.go
package icebreakbriefing

import (
	"time"

	"github.com/ai-asa/chat-websearch/internal/common/config"
)

type Config struct {
	Enabled       bool
	MaxJobsActive int
	Timeout       time.Duration
}

func LoadConfig(wcfg config.WorkerConfig) *Config {
	cfg := &Config{
		Enabled:       wcfg.Enabled,
		MaxJobsActive: wcfg.MaxJobsActive,
		Timeout:       config.GetDuration(wcfg.Timeout),
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Minute
	}
	if cfg.MaxJobsActive <= 0 {
		cfg.MaxJobsActive = 2
	}
	return cfg
}

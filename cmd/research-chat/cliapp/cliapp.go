// Package cliapp builds the pipeline for a CLI command from the root flags.
package cliapp

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ai-asa/chat-websearch/internal/app"
	"github.com/ai-asa/chat-websearch/internal/common/config"
	"github.com/ai-asa/chat-websearch/internal/common/logger"
)

const (
	FlagConfig   = "config"
	FlagLogLevel = "log-level"
)

// RegisterFlags adds the flags every subcommand understands.
func RegisterFlags(root *cobra.Command) {
	root.PersistentFlags().StringP(FlagConfig, "c", "", "Path to a config YAML (default: configs/config.yaml or ./config.yaml)")
	root.PersistentFlags().String(FlagLogLevel, "warn", "Log level for stderr output (debug, info, warn, error)")
}

// LoadConfig reads the file named by --config, or searches the default locations.
func LoadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString(FlagConfig)
	if path != "" {
		return config.LoadFromFile(path)
	}
	return config.Load()
}

// Logger writes console logs to stderr so they do not interleave with replies.
func Logger(cmd *cobra.Command) logger.Logger {
	level, _ := cmd.Flags().GetString(FlagLogLevel)
	return logger.NewZapAdapter(logger.NewWithOutput(level, "console", "stderr"))
}

// New loads config and wires the pipeline. The caller must Close the app.
func New(cmd *cobra.Command, opts app.Options) (*app.App, error) {
	cfg, err := LoadConfig(cmd)
	if err != nil {
		return nil, fmt.Errorf("could not load config: %w", err)
	}
	a, err := app.New(cmd.Context(), cfg, Logger(cmd), opts)
	if err != nil {
		return nil, fmt.Errorf("could not start pipeline: %w", err)
	}
	return a, nil
}

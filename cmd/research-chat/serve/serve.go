package servecmder

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ai-asa/chat-websearch/cmd/research-chat/cliapp"
	"github.com/ai-asa/chat-websearch/internal/app"
	"github.com/ai-asa/chat-websearch/internal/server"
	"github.com/ai-asa/chat-websearch/pkg/registry"
)

const serveLongDesc string = `Serve the research pipeline over HTTP.

Endpoints:
  GET  /health
  GET  /metrics
  GET  /api/v1/activities
  POST /api/v1/turns      {"utterance": "...", "history": [...]}
  POST /api/v1/plan       {"utterance": "...", "history": [...]}
  POST /api/v1/research   {"queries": ["..."]}
  POST /api/v1/icebreak   {"customerInput": "..."}

The server keeps no session state; callers send the history with each turn.

Examples:
  research-chat serve
  research-chat serve --addr :9000 --registry configs/activity-registry.json`

const serveShortDesc string = "Run the HTTP API"

type serveCommander struct {
	addr         string
	registryPath string
}

func NewServeCmd() *cobra.Command {
	cmder := &serveCommander{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run(cmd)
		},
	}

	cmd.Flags().StringVar(&cmder.addr, "addr", "", "Listen address (default: server.address from config)")
	cmd.Flags().StringVar(&cmder.registryPath, "registry", "", "Activity registry JSON used to validate requests (default: embedded)")

	return cmd
}

func (c *serveCommander) run(cmd *cobra.Command) error {
	reg, err := registry.Load(c.registryPath)
	if err != nil {
		return fmt.Errorf("could not load registry: %w", err)
	}

	a, err := cliapp.New(cmd, app.Options{})
	if err != nil {
		return err
	}
	defer a.Close()

	srv := server.New(server.Deps{
		Orchestrator: a.Orchestrator,
		Planner:      a.Planner,
		Researcher:   a.Aggregator,
		Briefer:      a.Briefer,
		Registry:     reg,
		Logger:       a.Logger,
	})

	addr := c.addr
	if addr == "" {
		addr = a.Config.Server.Address
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Listen(addr)
	}()

	select {
	case err := <-errCh:
		return err
	case <-cmd.Context().Done():
		a.Logger.Info("Shutting down HTTP server", nil)
		return srv.Shutdown()
	}
}

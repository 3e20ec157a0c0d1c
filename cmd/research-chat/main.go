// cmd/research-chat/main.go
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	askcmder "github.com/ai-asa/chat-websearch/cmd/research-chat/ask"
	chatcmder "github.com/ai-asa/chat-websearch/cmd/research-chat/chat"
	"github.com/ai-asa/chat-websearch/cmd/research-chat/cliapp"
	icebreakcmder "github.com/ai-asa/chat-websearch/cmd/research-chat/icebreak"
	registrycmder "github.com/ai-asa/chat-websearch/cmd/research-chat/registry"
	servecmder "github.com/ai-asa/chat-websearch/cmd/research-chat/serve"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "research-chat",
		Short:         "Conversational assistant with token-bounded web research",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	cliapp.RegisterFlags(cmd)

	cmd.AddCommand(
		chatcmder.NewChatCmd(),
		askcmder.NewAskCmd(),
		icebreakcmder.NewIcebreakCmd(),
		servecmder.NewServeCmd(),
		registrycmder.NewRegistryCmd(),
	)
	return cmd
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

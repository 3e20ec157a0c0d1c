package askcmder

import (
	"encoding/json"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ai-asa/chat-websearch/cmd/research-chat/cliapp"
	"github.com/ai-asa/chat-websearch/internal/app"
	"github.com/ai-asa/chat-websearch/internal/display"
)

const askLongDesc string = `Run a single turn and print the reply.

With --json the full turn (reply, research results, timing) is written as
JSON instead of rendered markdown, which suits scripts.

Examples:
  research-chat ask "what changed in the latest Go release?"
  research-chat ask --json "weather in Osaka tomorrow"`

const askShortDesc string = "Ask one question"

type askCommander struct {
	asJSON bool
	width  int
}

func NewAskCmd() *cobra.Command {
	cmder := &askCommander{}

	cmd := &cobra.Command{
		Use:   "ask <utterance>",
		Short: askShortDesc,
		Long:  askLongDesc,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run(cmd, strings.Join(args, " "))
		},
	}

	cmd.Flags().BoolVar(&cmder.asJSON, "json", false, "Print the turn as JSON")
	cmd.Flags().IntVar(&cmder.width, "width", 100, "Word wrap width for the reply")

	return cmd
}

func (c *askCommander) run(cmd *cobra.Command, utterance string) error {
	var disp display.Display = display.Nop{}
	if !c.asJSON {
		term, err := display.NewTerminal(cmd.OutOrStdout(), display.WithWidth(c.width), display.WithTimings(false))
		if err != nil {
			return err
		}
		disp = term
	}

	a, err := cliapp.New(cmd, app.Options{Display: disp})
	if err != nil {
		return err
	}
	defer a.Close()

	turn, err := a.Orchestrator.RunTurn(cmd.Context(), utterance)
	if err != nil {
		return err
	}
	if c.asJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(turn)
	}
	return nil
}

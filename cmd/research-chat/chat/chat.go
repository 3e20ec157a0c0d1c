package chatcmder

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/ai-asa/chat-websearch/cmd/research-chat/cliapp"
	"github.com/ai-asa/chat-websearch/internal/app"
	"github.com/ai-asa/chat-websearch/internal/display"
	"github.com/ai-asa/chat-websearch/internal/research/orchestrator"
)

const chatLongDesc string = `Start an interactive conversation.

Each utterance is first judged: when fresh information is needed the assistant
plans search queries, fetches and summarizes the results within the token
budget, then answers from them. Stage timings and the judge's reasoning are
shown as the turn runs. Type 'quit' to exit.

Examples:
  research-chat chat
  research-chat chat --config configs/config.yaml --style dark`

const chatShortDesc string = "Chat with web research"

// QuitCommand ends the loop, matched case-insensitively.
const QuitCommand = "quit"

var promptStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))

type chatCommander struct {
	width     int
	style     string
	noTimings bool
}

func NewChatCmd() *cobra.Command {
	cmder := &chatCommander{}

	cmd := &cobra.Command{
		Use:   "chat",
		Short: chatShortDesc,
		Long:  chatLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run(cmd)
		},
	}

	cmd.Flags().IntVar(&cmder.width, "width", 100, "Word wrap width for replies")
	cmd.Flags().StringVar(&cmder.style, "style", "", "Markdown style (dark, light, notty); auto-detected when empty")
	cmd.Flags().BoolVar(&cmder.noTimings, "no-timings", false, "Hide per-stage timings")

	return cmd
}

func (c *chatCommander) run(cmd *cobra.Command) error {
	out := cmd.OutOrStdout()
	term, err := display.NewTerminal(out,
		display.WithWidth(c.width),
		display.WithStyle(c.style),
		display.WithTimings(!c.noTimings),
	)
	if err != nil {
		return err
	}

	a, err := cliapp.New(cmd, app.Options{Display: term})
	if err != nil {
		return err
	}
	defer a.Close()

	return Loop(cmd.Context(), cmd.InOrStdin(), out, a.Orchestrator)
}

// Loop runs one turn per non-empty input line until "quit", EOF or cancellation.
func Loop(ctx context.Context, in io.Reader, out io.Writer, o *orchestrator.Orchestrator) error {
	fmt.Fprintf(out, "Chat started. Type '%s' to exit.\n", QuitCommand)

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for {
		fmt.Fprint(out, "\n"+promptStyle.Render("you>")+" ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.EqualFold(line, QuitCommand) {
			fmt.Fprintln(out, "Bye.")
			return nil
		}

		if _, err := o.RunTurn(ctx, line); err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
	}
	fmt.Fprintln(out)
	return scanner.Err()
}

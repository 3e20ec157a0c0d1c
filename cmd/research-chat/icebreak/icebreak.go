package icebreakcmder

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ai-asa/chat-websearch/cmd/research-chat/cliapp"
	"github.com/ai-asa/chat-websearch/internal/app"
	"github.com/ai-asa/chat-websearch/internal/display"
	"github.com/ai-asa/chat-websearch/internal/research/icebreak"
)

const icebreakLongDesc string = `Prepare conversation openers for a first customer meeting.

Describe the customer in one line (age, gender, family, occupation, where they
live). The details are organized, local weather, news and seasonal topics are
researched, and opening lines with a bridge to the sales topic are suggested.
Type 'quit' to exit.

Examples:
  research-chat icebreak
  echo "45, male, married, engineer in Sendai" | research-chat icebreak`

const icebreakShortDesc string = "Build an icebreak briefing"

const intro = `Enter the customer's details on one line, for example:
  age, gender, family status, occupation and industry, prefecture or city`

type icebreakCommander struct {
	width int
}

func NewIcebreakCmd() *cobra.Command {
	cmder := &icebreakCommander{}

	cmd := &cobra.Command{
		Use:   "icebreak",
		Short: icebreakShortDesc,
		Long:  icebreakLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run(cmd)
		},
	}

	cmd.Flags().IntVar(&cmder.width, "width", 100, "Word wrap width")

	return cmd
}

func (c *icebreakCommander) run(cmd *cobra.Command) error {
	term, err := display.NewTerminal(cmd.OutOrStdout(), display.WithWidth(c.width))
	if err != nil {
		return err
	}

	a, err := cliapp.New(cmd, app.Options{Display: term})
	if err != nil {
		return err
	}
	defer a.Close()

	return Loop(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout(), a.Briefer, term)
}

// Loop briefs one customer per input line until "quit", EOF or cancellation.
// A failed briefing has already been reported as a notice, so the loop asks again.
func Loop(ctx context.Context, in io.Reader, out io.Writer, b *icebreak.Briefer, disp display.Display) error {
	fmt.Fprintln(out, intro)

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "\ncustomer> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.EqualFold(line, "quit") {
			fmt.Fprintln(out, "Bye.")
			return nil
		}

		briefing, err := b.Brief(ctx, line)
		if err != nil {
			var stageErr *icebreak.StageError
			if errors.As(err, &stageErr) && ctx.Err() == nil {
				fmt.Fprintln(out, "Please try describing the customer again.")
				continue
			}
			return err
		}
		disp.ShowReply(briefing.Markdown())
		if err := ctx.Err(); err != nil {
			return err
		}
	}
	fmt.Fprintln(out)
	return scanner.Err()
}

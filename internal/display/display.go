// Package display renders turn output for a human: notices, judge reasoning, the reply and stage timings.
package display

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
)

// Display receives user-visible turn output.
type Display interface {
	ShowNotice(msg string)
	ShowReasoning(reasoning string)
	ShowReply(reply string)
	ShowTiming(stage string, d time.Duration)
}

var (
	noticeStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#e5c07b")).Bold(true)
	reasoningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#9ca3d8")).Italic(true)
	labelStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#01cdfe")).Bold(true)
	timingStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#6b7280"))
)

// Terminal writes styled output to w. Replies are rendered as markdown.
type Terminal struct {
	mu         sync.Mutex
	w          io.Writer
	renderer   *glamour.TermRenderer
	showTiming bool
}

type TerminalOption func(*terminalOptions)

type terminalOptions struct {
	width      int
	style      string
	showTiming bool
}

// WithWidth sets the markdown word-wrap width.
func WithWidth(width int) TerminalOption {
	return func(o *terminalOptions) { o.width = width }
}

// WithStyle picks a glamour standard style ("dark", "light", "notty"); empty means auto.
func WithStyle(style string) TerminalOption {
	return func(o *terminalOptions) { o.style = style }
}

// WithTimings toggles stage timing lines.
func WithTimings(show bool) TerminalOption {
	return func(o *terminalOptions) { o.showTiming = show }
}

func NewTerminal(w io.Writer, opts ...TerminalOption) (*Terminal, error) {
	o := terminalOptions{width: 100, showTiming: true}
	for _, opt := range opts {
		opt(&o)
	}

	rOpts := []glamour.TermRendererOption{glamour.WithWordWrap(o.width)}
	if o.style == "" {
		rOpts = append(rOpts, glamour.WithAutoStyle())
	} else {
		rOpts = append(rOpts, glamour.WithStandardStyle(o.style))
	}
	renderer, err := glamour.NewTermRenderer(rOpts...)
	if err != nil {
		return nil, fmt.Errorf("create markdown renderer: %w", err)
	}
	return &Terminal{w: w, renderer: renderer, showTiming: o.showTiming}, nil
}

func (t *Terminal) ShowNotice(msg string) {
	t.println(noticeStyle.Render("! " + msg))
}

func (t *Terminal) ShowReasoning(reasoning string) {
	t.println(labelStyle.Render("reasoning") + " " + reasoningStyle.Render(reasoning))
}

func (t *Terminal) ShowReply(reply string) {
	out, err := t.renderer.Render(reply)
	if err != nil {
		out = reply + "\n"
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprint(t.w, labelStyle.Render("assistant")+"\n"+out)
}

func (t *Terminal) ShowTiming(stage string, d time.Duration) {
	if !t.showTiming {
		return
	}
	t.println(timingStyle.Render(fmt.Sprintf("%s: %.2fs", stage, d.Seconds())))
}

func (t *Terminal) println(s string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintln(t.w, s)
}

// Nop discards everything.
type Nop struct{}

func (Nop) ShowNotice(string) {}
func (Nop) ShowReasoning(string) {}
func (Nop) ShowReply(string) {}
func (Nop) ShowTiming(string, time.Duration) {}

// Event is one call recorded by Recorder.
type Event struct {
	Kind string
	Text string
}

// Recorder keeps every call in order. The HTTP API uses it to return notices with the turn.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) add(kind, text string) {
	r.mu.Lock()
	r.events = append(r.events, Event{Kind: kind, Text: text})
	r.mu.Unlock()
}

func (r *Recorder) ShowNotice(msg string) { r.add("notice", msg) }
func (r *Recorder) ShowReasoning(reasoning string) { r.add("reasoning", reasoning) }
func (r *Recorder) ShowReply(reply string) { r.add("reply", reply) }
func (r *Recorder) ShowTiming(stage string, d time.Duration) {
	r.add("timing", fmt.Sprintf("%s=%s", stage, d))
}

func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Texts returns the text of every event of kind, in order.
func (r *Recorder) Texts(kind string) []string {
	var out []string
	for _, e := range r.Events() {
		if e.Kind == kind {
			out = append(out, e.Text)
		}
	}
	return out
}

// Count returns how many events of kind were recorded.
func (r *Recorder) Count(kind string) int {
	return len(r.Texts(kind))
}

// String joins recorded text, mainly for test failure output.
func (r *Recorder) String() string {
	var sb strings.Builder
	for _, e := range r.Events() {
		fmt.Fprintf(&sb, "%s: %s\n", e.Kind, e.Text)
	}
	return sb.String()
}

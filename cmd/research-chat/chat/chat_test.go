package chatcmder_test

import (
	"bytes"
	"context"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	chatcmder "github.com/ai-asa/chat-websearch/cmd/research-chat/chat"
	"github.com/ai-asa/chat-websearch/internal/clients/genai"
	"github.com/ai-asa/chat-websearch/internal/display"
	"github.com/ai-asa/chat-websearch/internal/models"
	"github.com/ai-asa/chat-websearch/internal/research/orchestrator"
	"github.com/ai-asa/chat-websearch/internal/research/planner"
)

type noResearch struct{}

func (noResearch) Run(ctx context.Context, queries []string) []models.ResearchResult {
	return nil
}

var _ = Describe("Chat Loop", func() {
	var (
		history *models.History
		rec     *display.Recorder
		o       *orchestrator.Orchestrator
		out     *bytes.Buffer
	)

	BeforeEach(func() {
		model := genai.GeneratorFunc(func(ctx context.Context, prompt string) (string, error) {
			if strings.Contains(prompt, "<decision>") {
				return "<decision>0</decision>", nil
			}
			return "reply", nil
		})
		history = models.NewHistory()
		rec = &display.Recorder{}
		o = orchestrator.New(orchestrator.Deps{
			Planner:    planner.New(model, nil),
			Researcher: noResearch{},
			Generator:  model,
			History:    history,
			Display:    rec,
		})
		out = &bytes.Buffer{}
	})

	It("runs one turn per line and stops at quit", func() {
		in := strings.NewReader("hello\n\n  \nhow are you\nQUIT\nignored\n")
		Expect(chatcmder.Loop(context.Background(), in, out, o)).To(Succeed())

		Expect(history.Len()).To(Equal(2))
		turns := history.Turns()
		Expect(turns[0].User).To(Equal("hello"))
		Expect(turns[1].User).To(Equal("how are you"))
		Expect(rec.Count("reply")).To(Equal(2))
		Expect(out.String()).To(ContainSubstring("Bye."))
	})

	It("ends cleanly at EOF", func() {
		Expect(chatcmder.Loop(context.Background(), strings.NewReader("one turn"), out, o)).To(Succeed())
		Expect(history.Len()).To(Equal(1))
	})

	It("stops when the context is cancelled", func() {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := chatcmder.Loop(ctx, strings.NewReader("first\nsecond\n"), out, o)
		Expect(err).To(MatchError(context.Canceled))
		Expect(history.Len()).To(Equal(1))
	})
})

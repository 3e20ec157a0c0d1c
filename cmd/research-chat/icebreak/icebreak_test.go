package icebreakcmder_test

import (
	"bytes"
	"context"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	icebreakcmder "github.com/ai-asa/chat-websearch/cmd/research-chat/icebreak"
	"github.com/ai-asa/chat-websearch/internal/clients/genai"
	"github.com/ai-asa/chat-websearch/internal/display"
	"github.com/ai-asa/chat-websearch/internal/models"
	"github.com/ai-asa/chat-websearch/internal/research/icebreak"
)

type echoResearcher struct{}

func (echoResearcher) Run(ctx context.Context, queries []string) []models.ResearchResult {
	out := make([]models.ResearchResult, len(queries))
	for i, q := range queries {
		out[i] = models.ResearchResult{Query: q, Summary: "about " + q}
	}
	return out
}

var model = genai.GeneratorFunc(func(ctx context.Context, prompt string) (string, error) {
	switch {
	case strings.Contains(prompt, "<customer_info>"):
		if strings.Contains(prompt, "garbage") {
			return "<customer_info>{not json</customer_info>", nil
		}
		return `<customer_info>{"location": "Kobe"}</customer_info>`, nil
	case strings.Contains(prompt, "<search_keywords>"):
		return `<search_keywords>{"weather": "Kobe weather"}</search_keywords>`, nil
	case strings.Contains(prompt, "<icebreak_suggestions>"):
		return `<icebreak_suggestions>{"topics": {"weather": {"starter": "Windy by the harbor today?"}}, "best_approach": "smile"}</icebreak_suggestions>`, nil
	}
	return "", genai.ErrGenerationUnavailable
})

var _ = Describe("Icebreak Loop", func() {
	var (
		rec *display.Recorder
		out *bytes.Buffer
		b   *icebreak.Briefer
	)

	BeforeEach(func() {
		rec = &display.Recorder{}
		out = &bytes.Buffer{}
		b = icebreak.New(model, echoResearcher{}, rec, nil)
	})

	It("renders one briefing per customer", func() {
		in := strings.NewReader("30s, Kobe\nquit\n")
		Expect(icebreakcmder.Loop(context.Background(), in, out, b, rec)).To(Succeed())

		replies := rec.Texts("reply")
		Expect(replies).To(HaveLen(1))
		Expect(replies[0]).To(ContainSubstring("Windy by the harbor today?"))
		Expect(replies[0]).To(ContainSubstring("- **Location**: Kobe"))
	})

	It("asks again after a failed stage", func() {
		in := strings.NewReader("garbage\n30s, Kobe\n")
		Expect(icebreakcmder.Loop(context.Background(), in, out, b, rec)).To(Succeed())

		Expect(out.String()).To(ContainSubstring("Please try describing the customer again."))
		Expect(rec.Count("notice")).To(Equal(1))
		Expect(rec.Count("reply")).To(Equal(1))
	})
})

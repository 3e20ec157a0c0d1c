package server_test

import (
	"context"
	"strings"

	"github.com/ai-asa/chat-websearch/internal/clients/genai"
	"github.com/ai-asa/chat-websearch/internal/models"
	"github.com/ai-asa/chat-websearch/internal/research/icebreak"
	"github.com/ai-asa/chat-websearch/internal/research/orchestrator"
	"github.com/ai-asa/chat-websearch/internal/research/planner"
	"github.com/ai-asa/chat-websearch/internal/server"
)

// fakeModel answers by prompt kind. Judge decisions are "1" only for utterances mentioning "latest".
var fakeModel = genai.GeneratorFunc(func(ctx context.Context, prompt string) (string, error) {
	switch {
	case strings.Contains(prompt, "<decision>"):
		if strings.Contains(prompt, "latest") {
			return "<reasoning>needs current data</reasoning><decision>1</decision>", nil
		}
		return "<reasoning>small talk</reasoning><decision>0</decision>", nil
	case strings.Contains(prompt, "JSON array of strings"):
		return `["latest go release"]`, nil
	case strings.Contains(prompt, "<customer_info>"):
		return `<customer_info>{"age": 35, "location": "Osaka"}</customer_info>`, nil
	case strings.Contains(prompt, "<search_keywords>"):
		return `<search_keywords>{"weather": "Osaka weather"}</search_keywords>`, nil
	case strings.Contains(prompt, "<icebreak_suggestions>"):
		return `<icebreak_suggestions>{"topics": {"weather": {"starter": "Sunny today!"}}, "best_approach": "keep it light"}</icebreak_suggestions>`, nil
	case strings.Contains(prompt, "Web research results:"):
		return "Go 1.25 is the latest release.", nil
	}
	return "Hello!", nil
})

type echoResearcher struct{}

func (echoResearcher) Run(ctx context.Context, queries []string) []models.ResearchResult {
	out := make([]models.ResearchResult, len(queries))
	for i, q := range queries {
		out[i] = models.ResearchResult{Query: q, Summary: "summary of " + q, Status: models.StatusOK}
	}
	return out
}

func newTestServer() *server.Server {
	p := planner.New(fakeModel, nil)
	o := orchestrator.New(orchestrator.Deps{
		Planner:    p,
		Researcher: echoResearcher{},
		Generator:  fakeModel,
		History:    models.NewHistory(),
	})
	return server.New(server.Deps{
		Orchestrator: o,
		Planner:      p,
		Researcher:   echoResearcher{},
		Briefer:      icebreak.New(fakeModel, echoResearcher{}, nil, nil),
	})
}

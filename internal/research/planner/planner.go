// Package planner decides whether a turn needs web research and, if so, which queries to run.
package planner

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/ai-asa/chat-websearch/internal/clients/genai"
	"github.com/ai-asa/chat-websearch/internal/common/logger"
	"github.com/ai-asa/chat-websearch/internal/common/metrics"
	"github.com/ai-asa/chat-websearch/internal/common/validation"
	"github.com/ai-asa/chat-websearch/internal/models"
	"github.com/ai-asa/chat-websearch/internal/research/prompts"
	"github.com/ai-asa/chat-websearch/internal/research/tagparse"
)

// User-facing notices. None of them stop the turn.
const (
	NoticeJudgeUnavailable    = "could not reach the model to decide on web research; answering without it"
	NoticeDecisionUnparsed    = "could not parse the web research decision; answering without it"
	NoticeKeywordsUnavailable = "could not generate search keywords; answering without web research"
	NoticeKeywordsMalformed   = "could not parse the search keywords; answering without web research"
)

var keywordSchema = validation.MustSchema(map[string]interface{}{
	"type":  "array",
	"items": map[string]interface{}{"type": "string"},
})

// Plan is the outcome of judging and query planning for one utterance.
type Plan struct {
	Decision models.Decision `json:"decision"`
	Queries  []string        `json:"queries"`
	Notice   string          `json:"notice,omitempty"`
}

type Planner struct {
	gen genai.Generator
	log logger.Logger
}

func New(gen genai.Generator, log logger.Logger) *Planner {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Planner{gen: gen, log: log}
}

// Judge asks the model whether utterance needs web research. Only a decision of exactly
// "1" means yes; a missing decision or failed call means no. notice is non-empty when the
// user should be told the decision fell back.
func (p *Planner) Judge(ctx context.Context, utterance string, history []models.ConversationTurn) (decision models.Decision, notice string) {
	prompt, err := prompts.Judge(utterance, history)
	if err != nil {
		p.log.Error("Failed to render judge prompt", map[string]interface{}{"error": err.Error()})
		return models.Decision{}, NoticeJudgeUnavailable
	}

	response, err := p.gen.Generate(ctx, prompt)
	if err != nil {
		p.log.Warn("Judge generation failed", map[string]interface{}{"error": err.Error()})
		return models.Decision{}, NoticeJudgeUnavailable
	}

	if reasoning, err := tagparse.Extract(response, "reasoning"); err == nil {
		decision.Reasoning = strings.TrimSpace(reasoning)
		decision.HasReasoning = true
	}

	raw, err := tagparse.Extract(response, "decision")
	if err != nil {
		p.log.Warn("Judge decision not found", map[string]interface{}{"error": err.Error()})
		return decision, NoticeDecisionUnparsed
	}
	decision.Found = true
	decision.NeedsResearch = strings.TrimSpace(raw) == "1"
	return decision, ""
}

// Queries asks the model for search keywords: a JSON array of strings between the first
// "[" and the first "]". Queries are returned as given, without deduplication.
func (p *Planner) Queries(ctx context.Context, utterance string, history []models.ConversationTurn) ([]string, error) {
	prompt, err := prompts.Keywords(utterance, history)
	if err != nil {
		return nil, err
	}
	response, err := p.gen.Generate(ctx, prompt)
	if err != nil {
		return nil, err
	}

	raw, err := tagparse.Span(response, "[", "]")
	if err != nil {
		return nil, err
	}
	var queries []string
	if err := tagparse.DecodeValidated(raw, keywordSchema, &queries); err != nil {
		return nil, err
	}
	return queries, nil
}

// Plan runs Judge and, when research is needed, Queries. Keyword failures leave
// NeedsResearch set with no queries and a notice.
func (p *Planner) Plan(ctx context.Context, utterance string, history []models.ConversationTurn) Plan {
	start := time.Now()
	decision, notice := p.Judge(ctx, utterance, history)
	metrics.StageDuration.WithLabelValues("judge").Observe(time.Since(start).Seconds())
	p.log.Info("Judged utterance", map[string]interface{}{
		"needsResearch": decision.NeedsResearch,
		"durationMs":    time.Since(start).Milliseconds(),
	})

	plan := Plan{Decision: decision, Notice: notice}
	if !decision.NeedsResearch {
		return plan
	}

	start = time.Now()
	queries, err := p.Queries(ctx, utterance, history)
	metrics.StageDuration.WithLabelValues("plan").Observe(time.Since(start).Seconds())
	if err != nil {
		plan.Notice = KeywordNotice(err)
		p.log.Warn("Keyword planning failed", map[string]interface{}{
			"error":      err.Error(),
			"durationMs": time.Since(start).Milliseconds(),
		})
		return plan
	}
	plan.Queries = queries
	p.log.Info("Planned queries", map[string]interface{}{
		"queries":    queries,
		"durationMs": time.Since(start).Milliseconds(),
	})
	return plan
}

// KeywordNotice picks the user notice for a Queries error.
func KeywordNotice(err error) string {
	if errors.Is(err, tagparse.ErrFieldNotFound) || errors.Is(err, tagparse.ErrMalformedPayload) {
		return NoticeKeywordsMalformed
	}
	return NoticeKeywordsUnavailable
}

// Package icebreak prepares conversation openers for a first customer meeting: it structures
// free-text customer details, researches local and seasonal small-talk material, and asks the
// model for topic suggestions grounded in that research.
package icebreak

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/ai-asa/chat-websearch/internal/clients/genai"
	"github.com/ai-asa/chat-websearch/internal/common/logger"
	"github.com/ai-asa/chat-websearch/internal/common/metrics"
	"github.com/ai-asa/chat-websearch/internal/common/validation"
	"github.com/ai-asa/chat-websearch/internal/display"
	"github.com/ai-asa/chat-websearch/internal/models"
	"github.com/ai-asa/chat-websearch/internal/research/prompts"
	"github.com/ai-asa/chat-websearch/internal/research/tagparse"
)

// MaxResults is the search depth per category.
const MaxResults = 4

// Stages, in run order.
const (
	StageCustomerInfo = "customer_info"
	StageKeywords     = "search_keywords"
	StageResearch     = "research"
	StageSuggestions  = "icebreak_suggestions"
)

// Categories are researched in this order; any extra category follows alphabetically.
var Categories = []string{"weather", "local", "news", "seasonal"}

type Occupation struct {
	Type     string `json:"type"`
	Industry string `json:"industry"`
}

type CustomerInfo struct {
	Age          *int       `json:"age"`
	Gender       string     `json:"gender"`
	FamilyStatus string     `json:"family_status"`
	Occupation   Occupation `json:"occupation"`
	Location     string     `json:"location"`
}

type Topic struct {
	Starter string `json:"starter"`
	Source  string `json:"source"`
	Bridge  string `json:"bridge"`
}

type Suggestions struct {
	Topics       map[string]Topic `json:"topics"`
	BestApproach string           `json:"best_approach"`
}

// Briefing is the full output of one run.
type Briefing struct {
	ID            uuid.UUID                        `json:"id"`
	CustomerInput string                           `json:"customerInput"`
	CustomerInfo  CustomerInfo                     `json:"customerInfo"`
	Keywords      map[string]string                `json:"keywords"`
	Research      map[string]models.ResearchResult `json:"research"`
	Suggestions   Suggestions                      `json:"suggestions"`
	CreatedAt     time.Time                        `json:"createdAt"`
}

// StageError reports which stage stopped the briefing.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string { return fmt.Sprintf("icebreak %s: %v", e.Stage, e.Err) }
func (e *StageError) Unwrap() error { return e.Err }

var (
	customerInfoSchema = validation.MustSchema(`{
		"type": "object",
		"properties": {
			"age": {"type": ["integer", "null"]},
			"gender": {"type": ["string", "null"]},
			"family_status": {"type": ["string", "null"]},
			"occupation": {
				"type": ["object", "null"],
				"properties": {
					"type": {"type": ["string", "null"]},
					"industry": {"type": ["string", "null"]}
				}
			},
			"location": {"type": ["string", "null"]}
		}
	}`)

	keywordsSchema = validation.MustSchema(`{
		"type": "object",
		"minProperties": 1,
		"additionalProperties": {"type": "string", "minLength": 1}
	}`)

	suggestionsSchema = validation.MustSchema(`{
		"type": "object",
		"required": ["topics", "best_approach"],
		"properties": {
			"topics": {
				"type": "object",
				"additionalProperties": {
					"type": "object",
					"required": ["starter"],
					"properties": {
						"starter": {"type": "string"},
						"source": {"type": "string"},
						"bridge": {"type": "string"}
					}
				}
			},
			"best_approach": {"type": "string"}
		}
	}`)
)

// Researcher turns queries into one result per query, in order.
type Researcher interface {
	Run(ctx context.Context, queries []string) []models.ResearchResult
}

type Briefer struct {
	gen        genai.Generator
	researcher Researcher
	display    display.Display
	log        logger.Logger
}

// New wires a briefer. researcher should be configured with MaxResults.
func New(gen genai.Generator, researcher Researcher, disp display.Display, log logger.Logger) *Briefer {
	if disp == nil {
		disp = display.Nop{}
	}
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Briefer{gen: gen, researcher: researcher, display: disp, log: log}
}

// Brief runs every stage. A stage failure shows a notice and returns a *StageError;
// failed research for a category is kept as the failure sentinel instead.
func (b *Briefer) Brief(ctx context.Context, customerInput string) (*Briefing, error) {
	briefing := &Briefing{ID: uuid.New(), CustomerInput: customerInput, CreatedAt: time.Now().UTC()}
	log := b.log.With(map[string]interface{}{"briefingId": briefing.ID.String()})

	err := b.stage(StageCustomerInfo, func() error {
		prompt, err := prompts.CustomerInfo(customerInput)
		if err != nil {
			return err
		}
		return b.extract(ctx, prompt, "customer_info", customerInfoSchema, &briefing.CustomerInfo)
	})
	if err != nil {
		return nil, b.fail(log, StageCustomerInfo, err)
	}

	infoJSON, _ := json.Marshal(briefing.CustomerInfo)
	err = b.stage(StageKeywords, func() error {
		prompt, err := prompts.IcebreakKeywords(string(infoJSON))
		if err != nil {
			return err
		}
		return b.extract(ctx, prompt, "search_keywords", keywordsSchema, &briefing.Keywords)
	})
	if err != nil {
		return nil, b.fail(log, StageKeywords, err)
	}

	_ = b.stage(StageResearch, func() error {
		categories := orderedCategories(briefing.Keywords)
		queries := make([]string, len(categories))
		for i, c := range categories {
			queries[i] = briefing.Keywords[c]
		}
		results := b.researcher.Run(ctx, queries)
		briefing.Research = make(map[string]models.ResearchResult, len(categories))
		for i, c := range categories {
			briefing.Research[c] = results[i]
		}
		return nil
	})

	contextJSON, err := json.Marshal(map[string]interface{}{
		"customer_info":  briefing.CustomerInfo,
		"search_results": briefing.Research,
	})
	if err != nil {
		return nil, b.fail(log, StageSuggestions, err)
	}
	err = b.stage(StageSuggestions, func() error {
		prompt, err := prompts.IcebreakSuggestions(string(contextJSON))
		if err != nil {
			return err
		}
		return b.extract(ctx, prompt, "icebreak_suggestions", suggestionsSchema, &briefing.Suggestions)
	})
	if err != nil {
		return nil, b.fail(log, StageSuggestions, err)
	}

	log.Info("Briefing completed", map[string]interface{}{
		"categories": len(briefing.Research),
		"topics":     len(briefing.Suggestions.Topics),
	})
	return briefing, nil
}

func (b *Briefer) extract(ctx context.Context, prompt, tag string, schema *validation.Schema, v interface{}) error {
	response, err := b.gen.Generate(ctx, prompt)
	if err != nil {
		return err
	}
	return tagparse.ExtractJSON(response, tag, schema, v)
}

func (b *Briefer) stage(name string, fn func() error) error {
	start := time.Now()
	err := fn()
	d := time.Since(start)
	metrics.StageDuration.WithLabelValues("icebreak_" + name).Observe(d.Seconds())
	b.display.ShowTiming(name, d)
	return err
}

func (b *Briefer) fail(log logger.Logger, stage string, err error) error {
	b.display.ShowNotice(fmt.Sprintf("could not prepare the briefing (%s)", stage))
	log.Warn("Briefing stage failed", map[string]interface{}{"stage": stage, "error": err.Error()})
	return &StageError{Stage: stage, Err: err}
}

func orderedCategories(keywords map[string]string) []string {
	out := make([]string, 0, len(keywords))
	known := make(map[string]bool, len(Categories))
	for _, c := range Categories {
		known[c] = true
		if _, ok := keywords[c]; ok {
			out = append(out, c)
		}
	}
	var extra []string
	for c := range keywords {
		if !known[c] {
			extra = append(extra, c)
		}
	}
	sort.Strings(extra)
	return append(out, extra...)
}

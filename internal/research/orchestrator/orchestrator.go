// Package orchestrator drives one conversation turn from utterance to reply.
package orchestrator

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/ai-asa/chat-websearch/internal/clients/genai"
	"github.com/ai-asa/chat-websearch/internal/common/logger"
	"github.com/ai-asa/chat-websearch/internal/common/metrics"
	"github.com/ai-asa/chat-websearch/internal/common/observability"
	"github.com/ai-asa/chat-websearch/internal/display"
	"github.com/ai-asa/chat-websearch/internal/models"
	"github.com/ai-asa/chat-websearch/internal/research/planner"
	"github.com/ai-asa/chat-websearch/internal/research/prompts"
)

// State is a step of the turn state machine.
type State string

const (
	StateIdle       State = "idle"
	StateJudging    State = "judging"
	StatePlanning   State = "planning"
	StateSkipped    State = "skipped"
	StateSearching  State = "searching"
	StateComposing  State = "composing"
	StateResponding State = "responding"
	StateDone       State = "done"
)

// Turn paths, used as metric labels.
const (
	PathResearched = "researched"
	PathSkipped    = "skipped"
	PathNoQueries  = "no_queries"
)

// NoticeNoResponse is shown when the reply could not be generated.
const NoticeNoResponse = "could not generate a response"

var ErrNoHistory = errors.New("orchestrator has no history")

// Researcher turns queries into one result per query, in order.
type Researcher interface {
	Run(ctx context.Context, queries []string) []models.ResearchResult
}

// Deps are the collaborators of a turn. History and Display may be swapped per caller with Fork.
type Deps struct {
	Planner    *planner.Planner
	Researcher Researcher
	Generator  genai.Generator
	History    *models.History
	Display    display.Display
	Obs        *observability.Observability
	Logger     logger.Logger
	// OnTransition observes every state change, after logging and span annotation.
	OnTransition func(from, to State)
}

type Orchestrator struct {
	deps Deps
}

func New(deps Deps) *Orchestrator {
	if deps.Display == nil {
		deps.Display = display.Nop{}
	}
	if deps.Logger == nil {
		deps.Logger = logger.NewNoOpLogger()
	}
	return &Orchestrator{deps: deps}
}

// Fork returns an orchestrator sharing every collaborator except history and display.
func (o *Orchestrator) Fork(history *models.History, disp display.Display) *Orchestrator {
	deps := o.deps
	deps.History = history
	if disp != nil {
		deps.Display = disp
	}
	return New(deps)
}

// History is the log this orchestrator appends to.
func (o *Orchestrator) History() *models.History {
	return o.deps.History
}

type turnRun struct {
	o     *Orchestrator
	ctx   context.Context
	state State
	log   logger.Logger
}

func (r *turnRun) to(next State) {
	prev := r.state
	r.state = next
	r.log.Debug("Turn state changed", map[string]interface{}{"from": string(prev), "to": string(next)})
	observability.AddEvent(r.ctx, "state", attribute.String("from", string(prev)), attribute.String("to", string(next)))
	if r.o.deps.OnTransition != nil {
		r.o.deps.OnTransition(prev, next)
	}
}

// stage runs fn inside a span and reports its duration to the display and metrics.
func (r *turnRun) stage(name string, fn func(ctx context.Context) error) {
	start := time.Now()
	ctx, end := r.o.deps.Obs.StartSpan(r.ctx, "turn."+name)
	err := fn(ctx)
	end(err)
	d := time.Since(start)
	metrics.StageDuration.WithLabelValues(name).Observe(d.Seconds())
	r.o.deps.Display.ShowTiming(name, d)
	r.log.Info("Stage finished", map[string]interface{}{"stage": name, "durationMs": d.Milliseconds()})
}

// RunTurn takes one utterance through judging, optional research and response generation.
// Every pipeline failure degrades to a notice and a fallback, so the only error is a
// missing history. Exactly one turn is appended and one reply displayed.
func (o *Orchestrator) RunTurn(ctx context.Context, utterance string) (models.ConversationTurn, error) {
	if o.deps.History == nil {
		return models.ConversationTurn{}, ErrNoHistory
	}
	startedAt := time.Now()
	ctx, endTurn := o.deps.Obs.StartSpan(ctx, "research.turn", attribute.Int("history", o.deps.History.Len()))

	run := &turnRun{o: o, ctx: ctx, state: StateIdle, log: o.deps.Logger.With(map[string]interface{}{"utterance": utterance})}
	history := o.deps.History.Turns()
	disp := o.deps.Display

	var decision models.Decision
	run.to(StateJudging)
	run.stage("judge", func(ctx context.Context) error {
		var notice string
		decision, notice = o.deps.Planner.Judge(ctx, utterance, history)
		if notice != "" {
			disp.ShowNotice(notice)
		}
		return nil
	})
	if decision.Found && decision.HasReasoning {
		disp.ShowReasoning(decision.Reasoning)
	}

	var results []models.ResearchResult
	path := PathSkipped
	if decision.NeedsResearch {
		run.to(StatePlanning)
		var queries []string
		run.stage("plan", func(ctx context.Context) error {
			var err error
			queries, err = o.deps.Planner.Queries(ctx, utterance, history)
			if err != nil {
				disp.ShowNotice(planner.KeywordNotice(err))
				run.log.Warn("Keyword planning failed", map[string]interface{}{"error": err.Error()})
			}
			return err
		})

		path = PathNoQueries
		if len(queries) > 0 {
			path = PathResearched
			run.to(StateSearching)
			run.stage("search", func(ctx context.Context) error {
				results = o.deps.Researcher.Run(ctx, queries)
				return nil
			})
		}
	} else {
		run.to(StateSkipped)
	}

	run.to(StateComposing)
	prompt, err := compose(utterance, history, results)
	if err != nil {
		run.log.Error("Failed to render response prompt", map[string]interface{}{"error": err.Error()})
	}

	run.to(StateResponding)
	reply, replied := models.NoResponse, false
	if err == nil {
		run.stage("respond", func(ctx context.Context) error {
			text, genErr := o.deps.Generator.Generate(ctx, prompt)
			if genErr != nil {
				run.log.Warn("Response generation failed", map[string]interface{}{"error": genErr.Error()})
				return genErr
			}
			if strings.TrimSpace(text) != "" {
				reply, replied = text, true
			}
			return nil
		})
	}
	if !replied {
		disp.ShowNotice(NoticeNoResponse)
	}

	run.to(StateDone)
	turn := models.NewTurn(utterance, reply, decision.NeedsResearch, results, startedAt)
	o.deps.History.Append(turn)
	disp.ShowReply(reply)
	disp.ShowTiming("total", turn.Duration)

	metrics.ResearchTurns.WithLabelValues(path).Inc()
	o.deps.Obs.RecordTurn(ctx, path, turn.Duration)
	run.log.Info("Turn completed", map[string]interface{}{
		"path":       path,
		"results":    len(results),
		"durationMs": turn.Duration.Milliseconds(),
	})
	endTurn(nil)
	return turn, nil
}

func compose(utterance string, history []models.ConversationTurn, results []models.ResearchResult) (string, error) {
	if len(results) > 0 {
		return prompts.ResearchSystem(utterance, history, results)
	}
	return prompts.System(utterance, history)
}

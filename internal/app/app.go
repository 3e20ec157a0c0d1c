// Package app assembles the research pipeline from configuration.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/ai-asa/chat-websearch/internal/clients/genai"
	"github.com/ai-asa/chat-websearch/internal/clients/retrieval"
	"github.com/ai-asa/chat-websearch/internal/clients/scraper"
	"github.com/ai-asa/chat-websearch/internal/clients/websearch"
	"github.com/ai-asa/chat-websearch/internal/common/config"
	"github.com/ai-asa/chat-websearch/internal/common/database"
	"github.com/ai-asa/chat-websearch/internal/common/logger"
	"github.com/ai-asa/chat-websearch/internal/common/observability"
	"github.com/ai-asa/chat-websearch/internal/common/ratelimit"
	"github.com/ai-asa/chat-websearch/internal/display"
	"github.com/ai-asa/chat-websearch/internal/models"
	"github.com/ai-asa/chat-websearch/internal/research/aggregator"
	"github.com/ai-asa/chat-websearch/internal/research/chunker"
	"github.com/ai-asa/chat-websearch/internal/research/icebreak"
	"github.com/ai-asa/chat-websearch/internal/research/orchestrator"
	"github.com/ai-asa/chat-websearch/internal/research/planner"
	"github.com/ai-asa/chat-websearch/internal/research/tokens"
)

// App holds the wired pipeline. Close releases its connections.
type App struct {
	Config       *config.Config
	Logger       logger.Logger
	Obs          *observability.Observability
	Generator    genai.Generator
	Retriever    retrieval.Retriever
	Aggregator   *aggregator.Aggregator
	Planner      *planner.Planner
	Orchestrator *orchestrator.Orchestrator
	Briefer      *icebreak.Briefer

	closers []func() error
}

// Options override pieces of the wiring, mainly for tests and the CLI.
type Options struct {
	Display   display.Display
	History   *models.History
	Generator genai.Generator
	Retriever retrieval.Retriever
	Obs       *observability.Observability
}

func New(ctx context.Context, cfg *config.Config, log logger.Logger, opts Options) (*App, error) {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	a := &App{Config: cfg, Logger: log, Obs: opts.Obs}
	if a.Obs == nil {
		a.Obs = observability.New(cfg.App.Name)
		a.closers = append(a.closers, func() error { a.Obs.Shutdown(); return nil })
	}

	a.Generator = opts.Generator
	if a.Generator == nil {
		gen, err := genai.New(ctx, cfg.APIs.GenAI, log)
		if err != nil {
			return nil, fmt.Errorf("genai: %w", err)
		}
		a.Generator = gen
	}

	a.Retriever = opts.Retriever
	if a.Retriever == nil {
		r, err := a.newRetriever(ctx)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.Retriever = r
	}

	counter := tokens.New(cfg.Research.TokenEncoding, log)
	c := chunker.New(cfg.Research.TokenBudget, counter, genai.Summarizer{Generator: a.Generator}, logger.Named(log, "chunker"))
	retrievalOpts := retrieval.Options{ExcludeLinks: cfg.Scraper.ExcludeLinks, MaxDepth: cfg.Scraper.MaxDepth}

	a.Aggregator = aggregator.New(a.Retriever, c, aggregator.Config{
		MaxResults:  cfg.Research.MaxResults,
		Concurrency: cfg.Research.Concurrency,
		Options:     retrievalOpts,
	}, logger.Named(log, "aggregator"))
	a.Planner = planner.New(a.Generator, logger.Named(log, "planner"))

	history := opts.History
	if history == nil {
		history = models.NewHistory()
	}
	a.Orchestrator = orchestrator.New(orchestrator.Deps{
		Planner:    a.Planner,
		Researcher: a.Aggregator,
		Generator:  a.Generator,
		History:    history,
		Display:    opts.Display,
		Obs:        a.Obs,
		Logger:     log,
	})

	icebreakResearch := aggregator.New(a.Retriever, c, aggregator.Config{
		MaxResults:  icebreak.MaxResults,
		Concurrency: cfg.Research.Concurrency,
		Options:     retrievalOpts,
	}, logger.Named(log, "icebreak"))
	a.Briefer = icebreak.New(a.Generator, icebreakResearch, opts.Display, logger.Named(log, "icebreak"))

	log.Info("Pipeline ready", map[string]interface{}{
		"genai":       cfg.APIs.GenAI.Provider,
		"webSearch":   cfg.APIs.WebSearch.Provider,
		"tokenBudget": cfg.Research.TokenBudget,
		"concurrency": cfg.Research.Concurrency,
	})
	return a, nil
}

func (a *App) newRetriever(ctx context.Context) (retrieval.Retriever, error) {
	cfg := a.Config
	if cfg.APIs.WebSearch.Provider == "elasticsearch" {
		es, err := database.NewElasticsearch(cfg.Database.Elasticsearch)
		if err != nil {
			return nil, err
		}
		if err := es.Ping(ctx); err != nil {
			a.Logger.Warn("Elasticsearch not reachable yet", map[string]interface{}{"error": err.Error()})
		}
		return retrieval.NewElasticsearchRetriever(es, cfg.Database.Elasticsearch.Index, a.Logger), nil
	}

	limiter, err := a.newLimiter(ctx)
	if err != nil {
		return nil, err
	}
	searcher, err := websearch.New(cfg.APIs.WebSearch, limiter)
	if err != nil {
		return nil, err
	}
	return retrieval.NewWebRetriever(searcher, scraper.New(cfg.Scraper), cfg.Scraper.Concurrency, a.Logger), nil
}

// newLimiter shares the search budget through Redis when enabled; otherwise requests are
// spaced in-process.
func (a *App) newLimiter(ctx context.Context) (ratelimit.Limiter, error) {
	rl := a.Config.Research.RateLimit
	window := config.GetDuration(rl.Window)
	if rl.Enabled {
		client, err := database.NewRedis(a.Config.Database.Redis)
		if err != nil {
			return nil, fmt.Errorf("rate limit redis: %w", err)
		}
		a.closers = append(a.closers, client.Close)
		if err := client.Ping(ctx); err != nil {
			a.Logger.Warn("Redis not reachable; rate limiting fails open", map[string]interface{}{"error": err.Error()})
		}
		return ratelimit.NewRedis(client, rl.Requests, window, a.Logger), nil
	}
	if rl.Requests > 0 && window > 0 {
		return ratelimit.NewLocal(window / time.Duration(rl.Requests)), nil
	}
	return ratelimit.Unlimited{}, nil
}

func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.Logger.Warn("Close failed", map[string]interface{}{"error": err.Error()})
		}
	}
	a.closers = nil
}

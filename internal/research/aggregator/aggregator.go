// Package aggregator runs each planned query through retrieval and chunked summarization.
package aggregator

import (
	"context"
	"time"

	"github.com/sourcegraph/conc/pool"

	"github.com/ai-asa/chat-websearch/internal/clients/retrieval"
	"github.com/ai-asa/chat-websearch/internal/common/logger"
	"github.com/ai-asa/chat-websearch/internal/common/metrics"
	"github.com/ai-asa/chat-websearch/internal/models"
	"github.com/ai-asa/chat-websearch/internal/research/chunker"
)

// DefaultMaxResults is the number of search results fetched per query.
const DefaultMaxResults = 5

type Config struct {
	MaxResults int
	// Concurrency bounds how many queries run at once; 1 runs them strictly in order.
	Concurrency int
	Options     retrieval.Options
}

type Aggregator struct {
	retriever retrieval.Retriever
	chunker   *chunker.Chunker
	cfg       Config
	log       logger.Logger
}

func New(retriever retrieval.Retriever, c *chunker.Chunker, cfg Config, log logger.Logger) *Aggregator {
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = DefaultMaxResults
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Aggregator{retriever: retriever, chunker: c, cfg: cfg, log: log}
}

// Run returns exactly one result per query, in query order. A failing query yields the
// failure sentinel and never affects the others.
func (a *Aggregator) Run(ctx context.Context, queries []string) []models.ResearchResult {
	results := make([]models.ResearchResult, len(queries))
	if a.cfg.Concurrency == 1 {
		for i, q := range queries {
			results[i] = a.runQuery(ctx, q)
		}
		return results
	}

	p := pool.New().WithMaxGoroutines(a.cfg.Concurrency)
	for i, q := range queries {
		i, q := i, q
		p.Go(func() {
			results[i] = a.runQuery(ctx, q)
		})
	}
	p.Wait()
	return results
}

func (a *Aggregator) runQuery(ctx context.Context, query string) models.ResearchResult {
	start := time.Now()
	log := a.log.With(map[string]interface{}{"query": query})

	sources, err := a.retriever.SearchAndFetch(ctx, query, a.cfg.MaxResults, a.cfg.Options)
	metrics.StageDuration.WithLabelValues("retrieve").Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.QueryFailures.WithLabelValues(string(models.StatusRetrievalFailed)).Inc()
		log.Warn("Retrieval failed", map[string]interface{}{
			"error":      err.Error(),
			"durationMs": time.Since(start).Milliseconds(),
		})
		return models.Failed(query, models.StatusRetrievalFailed)
	}

	summarizeStart := time.Now()
	outcome, err := a.chunker.Summarize(ctx, query, sources)
	metrics.StageDuration.WithLabelValues("summarize").Observe(time.Since(summarizeStart).Seconds())
	if err != nil {
		metrics.QueryFailures.WithLabelValues(string(outcome.Status)).Inc()
		log.Warn("Summarization failed", map[string]interface{}{
			"error":      err.Error(),
			"calls":      outcome.Calls,
			"durationMs": time.Since(start).Milliseconds(),
		})
		return models.Failed(query, models.StatusSummarizationFailed)
	}
	if outcome.Status != models.StatusOK {
		metrics.QueryFailures.WithLabelValues(string(outcome.Status)).Inc()
	}

	log.Info("Query researched", map[string]interface{}{
		"sources":    len(sources),
		"calls":      outcome.Calls,
		"status":     string(outcome.Status),
		"durationMs": time.Since(start).Milliseconds(),
	})
	return models.ResearchResult{Query: query, Summary: outcome.Summary, Status: outcome.Status}
}

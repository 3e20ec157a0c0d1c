// Package chunker digests the pages retrieved for one query into a single summary
// without ever handing the summarizer more than a fixed token budget at once.
package chunker

import (
	"context"
	"fmt"
	"strings"

	apperrors "github.com/ai-asa/chat-websearch/internal/common/errors"
	"github.com/ai-asa/chat-websearch/internal/common/logger"
	"github.com/ai-asa/chat-websearch/internal/common/metrics"
	"github.com/ai-asa/chat-websearch/internal/models"
	"github.com/ai-asa/chat-websearch/internal/research/tokens"
)

// DefaultBudget is the per-call input limit in tokens.
const DefaultBudget = 30000

// PartialSeparator joins partial summaries.
const PartialSeparator = "\n\n"

var ErrSummarizationFailed = apperrors.ErrSummarizationFailed

// Summarizer condenses one buffer of page text.
type Summarizer interface {
	Summarize(ctx context.Context, text string) (string, error)
}

// SummarizerFunc adapts a function to Summarizer.
type SummarizerFunc func(ctx context.Context, text string) (string, error)

func (f SummarizerFunc) Summarize(ctx context.Context, text string) (string, error) {
	return f(ctx, text)
}

// Outcome describes one Summarize run.
type Outcome struct {
	Summary  string
	Status   models.ResultStatus
	Calls    int
	Partials []string
	// Tokens holds the token count of each flushed buffer, in call order.
	Tokens []int
}

type Chunker struct {
	Budget     int
	Counter    tokens.Counter
	Summarizer Summarizer
	Logger     logger.Logger
}

func New(budget int, counter tokens.Counter, summarizer Summarizer, log logger.Logger) *Chunker {
	if budget <= 0 {
		budget = DefaultBudget
	}
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Chunker{Budget: budget, Counter: counter, Summarizer: summarizer, Logger: log}
}

// Header opens the first buffer for query.
func Header(query string) string {
	return fmt.Sprintf("Search query: %s\n\n", query)
}

// Entry renders one page as a delimited block.
func Entry(url, body string) string {
	return fmt.Sprintf("\n---\nURL: %s\n%s\n", url, body)
}

// Summarize buffers sources in order and flushes a buffer to the summarizer whenever
// the next entry would push it past the budget. The entry that triggers a flush seeds
// the next buffer and is never split, so a single oversized page is summarized whole.
// The check applies to the first entry too: when header plus first page exceed the
// budget, the header is flushed on its own before the page.
//
// With no usable source the outcome is FailureSummary and the summarizer is not called.
// A summarizer error aborts the run and is returned wrapped in ErrSummarizationFailed.
func (c *Chunker) Summarize(ctx context.Context, query string, sources []models.FetchedSource) (Outcome, error) {
	var (
		out     Outcome
		buf     strings.Builder
		entries int
	)
	buf.WriteString(Header(query))

	flush := func() error {
		text := buf.String()
		n := c.Counter.Count(text)
		partial, err := c.Summarizer.Summarize(ctx, text)
		out.Calls++
		metrics.SummarizeCalls.Inc()
		metrics.ChunkTokens.Observe(float64(n))
		if err != nil {
			return fmt.Errorf("%w: query %q buffer %d: %v", ErrSummarizationFailed, query, out.Calls, err)
		}
		out.Partials = append(out.Partials, partial)
		out.Tokens = append(out.Tokens, n)
		c.Logger.Debug("chunk summarized", map[string]interface{}{
			"query":   query,
			"call":    out.Calls,
			"tokens":  n,
			"entries": entries,
		})
		return nil
	}

	for _, src := range sources {
		if !src.Usable() {
			continue
		}
		entry := Entry(src.URL, src.Document.Body)

		if c.Counter.Count(buf.String()+entry) > c.Budget {
			if err := flush(); err != nil {
				out.Summary = models.FailureSummary
				out.Status = models.StatusSummarizationFailed
				return out, err
			}
			buf.Reset()
			entries = 0
		}
		buf.WriteString(entry)
		entries++
	}

	if entries == 0 && out.Calls == 0 {
		out.Summary = models.FailureSummary
		out.Status = models.StatusRetrievalFailed
		return out, nil
	}

	if entries > 0 {
		if err := flush(); err != nil {
			out.Summary = models.FailureSummary
			out.Status = models.StatusSummarizationFailed
			return out, err
		}
	}

	out.Summary = strings.Join(out.Partials, PartialSeparator)
	out.Status = models.StatusOK
	if strings.TrimSpace(out.Summary) == "" {
		// an all-blank digest would break the never-empty invariant
		out.Summary = models.FailureSummary
		out.Status = models.StatusSummarizationFailed
		return out, fmt.Errorf("%w: query %q: summarizer returned no text", ErrSummarizationFailed, query)
	}
	return out, nil
}

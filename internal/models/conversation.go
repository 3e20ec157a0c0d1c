// internal/models/conversation.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// FailureSummary replaces a query's summary when retrieval or summarization fails.
const FailureSummary = "information retrieval failed"

// NoResponse is the assistant reply when final generation fails.
const NoResponse = "no response"

// ResultStatus is diagnostic only; callers read Summary.
type ResultStatus string

const (
	StatusOK                  ResultStatus = "ok"
	StatusRetrievalFailed     ResultStatus = "retrieval_failed"
	StatusSummarizationFailed ResultStatus = "summarization_failed"
)

// ResearchResult is the digest of one search query. Summary is never empty.
type ResearchResult struct {
	Query   string       `json:"query"`
	Summary string       `json:"summary"`
	Status  ResultStatus `json:"status"`
}

// Failed returns the sentinel result for query.
func Failed(query string, status ResultStatus) ResearchResult {
	return ResearchResult{Query: query, Summary: FailureSummary, Status: status}
}

// ScrapedDocument is the page content for one fetched URL.
type ScrapedDocument struct {
	URL  string `json:"url"`
	Body string `json:"body"`
}

// FetchedSource is one entry of a retrieval result, in search-rank order.
// A nil Document means the page could not be fetched.
type FetchedSource struct {
	URL      string           `json:"url"`
	Document *ScrapedDocument `json:"document,omitempty"`
}

// Usable reports whether the source carries non-blank content.
func (s FetchedSource) Usable() bool {
	if s.Document == nil {
		return false
	}
	for _, r := range s.Document.Body {
		if r != ' ' && r != '\n' && r != '\t' && r != '\r' {
			return true
		}
	}
	return false
}

// Decision is the judge's verdict on whether a turn needs web research.
type Decision struct {
	NeedsResearch bool   `json:"needsResearch"`
	// Found is false when the reply carried no decision tag.
	Found         bool   `json:"found"`
	Reasoning     string `json:"reasoning,omitempty"`
	HasReasoning  bool   `json:"hasReasoning"`
}

// ConversationTurn is one utterance and its reply. Turns are immutable once appended.
type ConversationTurn struct {
	ID              uuid.UUID        `json:"id"`
	User            string           `json:"user"`
	Assistant       string           `json:"assistant"`
	UsedResearch    bool             `json:"usedResearch"`
	ResearchResults []ResearchResult `json:"researchResults,omitempty"`
	StartedAt       time.Time        `json:"startedAt"`
	Duration        time.Duration    `json:"duration"`
}

// NewTurn stamps a fresh ID. usedResearch records the judge's decision, which may be
// true even when planning produced no results.
func NewTurn(user, assistant string, usedResearch bool, results []ResearchResult, startedAt time.Time) ConversationTurn {
	return ConversationTurn{
		ID:              uuid.New(),
		User:            user,
		Assistant:       assistant,
		UsedResearch:    usedResearch,
		ResearchResults: results,
		StartedAt:       startedAt,
		Duration:        time.Since(startedAt),
	}
}

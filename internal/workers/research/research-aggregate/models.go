// internal/workers/research/research-aggregate/models.go
package researchaggregate

import "github.com/ai-asa/chat-websearch/internal/models"

type Input struct {
	Queries []string `json:"queries"`
}

type Output struct {
	ResearchResults []models.ResearchResult `json:"researchResults"`
	FailedQueries   int                     `json:"failedQueries"`
}

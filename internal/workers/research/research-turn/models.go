// internal/workers/research/research-turn/models.go
package researchturn

import "github.com/ai-asa/chat-websearch/internal/models"

type Input struct {
	Utterance string                    `json:"utterance"`
	History   []models.ConversationTurn `json:"history"`
}

type Output struct {
	Turn      models.ConversationTurn `json:"turn"`
	Notices   []string                `json:"notices,omitempty"`
	Reasoning string                  `json:"reasoning,omitempty"`
	// History is the input history with this turn appended, ready for the next job.
	History []models.ConversationTurn `json:"history"`
}

// internal/workers/research/icebreak-briefing/models.go
package icebreakbriefing

import "github.com/ai-asa/chat-websearch/internal/research/icebreak"

type Input struct {
	CustomerInput string `json:"customerInput"`
}

type Output struct {
	Briefing *icebreak.Briefing `json:"briefing"`
}

// internal/research/planner/planner_test.go
package planner

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ai-asa/chat-websearch/internal/clients/genai"
	"github.com/ai-asa/chat-websearch/internal/common/logger"
	"github.com/ai-asa/chat-websearch/internal/models"
	"github.com/ai-asa/chat-websearch/internal/research/tagparse"
)

// scripted answers judge prompts with judge and keyword prompts with keywords.
func scripted(judge, keywords string, judgeErr, keywordsErr error) genai.Generator {
	return genai.GeneratorFunc(func(ctx context.Context, prompt string) (string, error) {
		if strings.Contains(prompt, "<decision>") {
			return judge, judgeErr
		}
		return keywords, keywordsErr
	})
}

func TestPlanner_Judge(t *testing.T) {
	tests := []struct {
		name          string
		response      string
		err           error
		wantResearch  bool
		wantReasoning string
		wantNotice    string
		wantFound     bool
	}{
		{"yes", "<reasoning>needs prices</reasoning><decision>1</decision>", nil, true, "needs prices", "", true},
		{"yes with whitespace", "<decision>\n 1 \n</decision>", nil, true, "", "", true},
		{"no", "<reasoning>chit-chat</reasoning><decision>0</decision>", nil, false, "chit-chat", "", true},
		{"unexpected value", "<decision>yes</decision>", nil, false, "", "", true},
		{"missing decision", "<reasoning>hmm</reasoning>", nil, false, "hmm", NoticeDecisionUnparsed, false},
		{"generation failure", "", genai.ErrGenerationUnavailable, false, "", NoticeJudgeUnavailable, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := New(scripted(tt.response, "", tt.err, nil), logger.NewTestLogger(t))
			decision, notice := p.Judge(context.Background(), "what's new in Go?", nil)
			assert.Equal(t, tt.wantResearch, decision.NeedsResearch)
			assert.Equal(t, tt.wantReasoning, decision.Reasoning)
			assert.Equal(t, tt.wantReasoning != "", decision.HasReasoning)
			assert.Equal(t, tt.wantNotice, notice)
			assert.Equal(t, tt.wantFound, decision.Found)
		})
	}
}

func TestPlanner_JudgeSeesHistory(t *testing.T) {
	var seen string
	gen := genai.GeneratorFunc(func(ctx context.Context, prompt string) (string, error) {
		seen = prompt
		return "<decision>0</decision>", nil
	})
	history := []models.ConversationTurn{
		{User: "hi", Assistant: "hello"},
		{User: "go 1.23?", Assistant: "released", UsedResearch: true},
	}

	New(gen, nil).Judge(context.Background(), "thanks", history)
	assert.Contains(t, seen, "Web research used: no")
	assert.Contains(t, seen, "Web research used: yes")
	assert.Contains(t, seen, "thanks")
}

func TestPlanner_Queries(t *testing.T) {
	tests := []struct {
		name    string
		resp    string
		want    []string
		wantErr error
	}{
		{"plain array", `["go 1.23 release notes", "go iterators"]`, []string{"go 1.23 release notes", "go iterators"}, nil},
		{"wrapped in prose", "Sure:\n```json\n[\"a\", \"a\"]\n```", []string{"a", "a"}, nil},
		{"empty array", `[]`, []string{}, nil},
		{"no brackets", `go release notes`, nil, tagparse.ErrFieldNotFound},
		{"not strings", `[1, 2]`, nil, tagparse.ErrMalformedPayload},
		{"broken json", `["a", ]`, nil, tagparse.ErrMalformedPayload},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := New(scripted("", tt.resp, nil, nil), nil)
			got, err := p.Queries(context.Background(), "q", nil)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPlanner_Plan(t *testing.T) {
	tests := []struct {
		name         string
		gen          genai.Generator
		wantResearch bool
		wantQueries  []string
		wantNotice   string
	}{
		{
			name:         "researched",
			gen:          scripted("<decision>1</decision>", `["go 1.23"]`, nil, nil),
			wantResearch: true,
			wantQueries:  []string{"go 1.23"},
		},
		{
			name: "skipped",
			gen:  scripted("<decision>0</decision>", `["never asked"]`, nil, nil),
		},
		{
			name:         "malformed keywords keep the decision",
			gen:          scripted("<decision>1</decision>", `I cannot produce a list`, nil, nil),
			wantResearch: true,
			wantNotice:   NoticeKeywordsMalformed,
		},
		{
			name:         "keyword generation down",
			gen:          scripted("<decision>1</decision>", "", nil, genai.ErrGenerationUnavailable),
			wantResearch: true,
			wantNotice:   NoticeKeywordsUnavailable,
		},
		{
			name:       "judge down",
			gen:        scripted("", "", genai.ErrGenerationUnavailable, nil),
			wantNotice: NoticeJudgeUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan := New(tt.gen, logger.NewTestLogger(t)).Plan(context.Background(), "utterance", nil)
			assert.Equal(t, tt.wantResearch, plan.Decision.NeedsResearch)
			assert.Equal(t, tt.wantQueries, plan.Queries)
			assert.Equal(t, tt.wantNotice, plan.Notice)
		})
	}
}

func TestPlanner_SkippedNeverPlans(t *testing.T) {
	calls := 0
	gen := genai.GeneratorFunc(func(ctx context.Context, prompt string) (string, error) {
		calls++
		return "<decision>0</decision>", nil
	})
	New(gen, nil).Plan(context.Background(), "hello", nil)
	assert.Equal(t, 1, calls)
}

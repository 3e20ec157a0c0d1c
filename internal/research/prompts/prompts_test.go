// internal/research/prompts/prompts_test.go
package prompts

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ai-asa/chat-websearch/internal/models"
)

var history = []models.ConversationTurn{
	{User: "what is go?", Assistant: "A language.", UsedResearch: false},
	{User: "latest release?", Assistant: "Go 1.23.", UsedResearch: true},
}

func TestJudge_IncludesHistoryAndResearchFlag(t *testing.T) {
	p, err := Judge("and 1.24?", history)
	require.NoError(t, err)

	assert.Contains(t, p, "User input: and 1.24?")
	assert.Contains(t, p, "User: what is go?\nAssistant: A language.\nWeb research used: no")
	assert.Contains(t, p, "User: latest release?\nAssistant: Go 1.23.\nWeb research used: yes")
	assert.Contains(t, p, "<decision>")
}

func TestKeywords_AsksForJSONArray(t *testing.T) {
	p, err := Keywords("compare redis and valkey", nil)
	require.NoError(t, err)
	assert.Contains(t, p, "JSON array")
	assert.Contains(t, p, "User question: compare redis and valkey")
	assert.NotContains(t, p, "Web research used")
}

func TestResearchSystem_ListsResultsInOrder(t *testing.T) {
	p, err := ResearchSystem("summarize", history, []models.ResearchResult{
		{Query: "first", Summary: "alpha facts"},
		{Query: "second", Summary: models.FailureSummary},
	})
	require.NoError(t, err)

	first := strings.Index(p, "### first")
	second := strings.Index(p, "### second")
	assert.True(t, first >= 0 && second > first)
	assert.Contains(t, p, "alpha facts")
	assert.True(t, strings.HasSuffix(p, "User: summarize"))
}

func TestSystem_EndsWithUtterance(t *testing.T) {
	p, err := System("hello", nil)
	require.NoError(t, err)
	assert.Contains(t, p, "User: hello")
	assert.NotContains(t, p, "Web research results")
}

func TestSummarize_AppendsText(t *testing.T) {
	p, err := Summarize("Search query: q\n\nbody")
	require.NoError(t, err)
	assert.Contains(t, p, "Search query: q\n\nbody")
}

func TestIcebreakPrompts_NameTheirTags(t *testing.T) {
	p, err := CustomerInfo("42, male, Osaka")
	require.NoError(t, err)
	assert.Contains(t, p, "<customer_info>")

	p, err = IcebreakKeywords(`{"location":"Osaka"}`)
	require.NoError(t, err)
	assert.Contains(t, p, "<search_keywords>")

	p, err = IcebreakSuggestions(`{}`)
	require.NoError(t, err)
	assert.Contains(t, p, "<icebreak_suggestions>")
}

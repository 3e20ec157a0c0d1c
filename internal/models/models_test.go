// internal/models/models_test.go
package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchedSource_Usable(t *testing.T) {
	assert.False(t, FetchedSource{URL: "u"}.Usable())
	assert.False(t, FetchedSource{URL: "u", Document: &ScrapedDocument{Body: " \n\t"}}.Usable())
	assert.True(t, FetchedSource{URL: "u", Document: &ScrapedDocument{Body: "text"}}.Usable())
}

func TestNewTurn(t *testing.T) {
	start := time.Now().Add(-time.Second)
	turn := NewTurn("hi", "hello", false, nil, start)
	assert.False(t, turn.UsedResearch)
	assert.NotEqual(t, [16]byte{}, [16]byte(turn.ID))
	assert.GreaterOrEqual(t, turn.Duration, time.Second)

	turn = NewTurn("q", "a", true, []ResearchResult{Failed("q", StatusRetrievalFailed)}, start)
	assert.True(t, turn.UsedResearch)
	assert.Equal(t, FailureSummary, turn.ResearchResults[0].Summary)

	turn = NewTurn("q", "a", true, nil, start)
	assert.True(t, turn.UsedResearch, "decision is recorded even without results")
}

func TestHistory_AppendOnlyCopy(t *testing.T) {
	h := NewHistory()
	_, ok := h.Last()
	assert.False(t, ok)

	h.Append(ConversationTurn{User: "one"})
	h.Append(ConversationTurn{User: "two"})
	require.Equal(t, 2, h.Len())

	turns := h.Turns()
	turns[0].User = "mutated"
	assert.Equal(t, "one", h.Turns()[0].User)

	last, ok := h.Last()
	require.True(t, ok)
	assert.Equal(t, "two", last.User)
}

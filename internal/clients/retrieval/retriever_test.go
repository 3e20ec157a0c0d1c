// internal/clients/retrieval/retriever_test.go
package retrieval

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ai-asa/chat-websearch/internal/clients/scraper"
	"github.com/ai-asa/chat-websearch/internal/clients/websearch"
	"github.com/ai-asa/chat-websearch/internal/common/config"
	"github.com/ai-asa/chat-websearch/internal/common/database"
	"github.com/ai-asa/chat-websearch/internal/common/logger"
	"github.com/ai-asa/chat-websearch/internal/models"
)

type stubSearcher struct {
	results []websearch.Result
	err     error
}

func (s stubSearcher) Name() string { return "stub" }

func (s stubSearcher) Search(ctx context.Context, query string, maxResults int) ([]websearch.Result, error) {
	return s.results, s.err
}

type mockFetcher struct {
	mock.Mock
}

func (m *mockFetcher) Fetch(ctx context.Context, url string, opts scraper.Options) (*models.ScrapedDocument, error) {
	args := m.Called(ctx, url, opts)
	doc, _ := args.Get(0).(*models.ScrapedDocument)
	return doc, args.Error(1)
}

func TestWebRetriever_PreservesRankOrder(t *testing.T) {
	searcher := stubSearcher{results: []websearch.Result{
		{URL: "https://a.example"}, {URL: "https://b.example"}, {URL: "https://c.example"},
	}}
	opts := scraper.Options{ExcludeLinks: true, MaxDepth: 20}

	fetcher := &mockFetcher{}
	fetcher.On("Fetch", mock.Anything, "https://a.example", opts).
		Return(&models.ScrapedDocument{URL: "https://a.example", Body: "alpha"}, nil)
	fetcher.On("Fetch", mock.Anything, "https://b.example", opts).
		Return(nil, scraper.ErrUnsupportedContent)
	fetcher.On("Fetch", mock.Anything, "https://c.example", opts).
		Return(&models.ScrapedDocument{URL: "https://c.example", Body: "gamma"}, nil)

	r := NewWebRetriever(searcher, fetcher, 3, logger.NewTestLogger(t))
	sources, err := r.SearchAndFetch(context.Background(), "q", 5, DefaultOptions())
	require.NoError(t, err)
	require.Len(t, sources, 3)

	assert.Equal(t, "https://a.example", sources[0].URL)
	assert.Equal(t, "alpha", sources[0].Document.Body)
	assert.Equal(t, "https://b.example", sources[1].URL)
	assert.Nil(t, sources[1].Document)
	assert.Equal(t, "gamma", sources[2].Document.Body)
	fetcher.AssertExpectations(t)
}

func TestWebRetriever_SearchError(t *testing.T) {
	fetcher := &mockFetcher{}
	r := NewWebRetriever(stubSearcher{err: websearch.ErrWebSearchTimeout}, fetcher, 1, nil)

	_, err := r.SearchAndFetch(context.Background(), "q", 5, DefaultOptions())
	assert.ErrorIs(t, err, websearch.ErrWebSearchTimeout)
	fetcher.AssertNotCalled(t, "Fetch", mock.Anything, mock.Anything, mock.Anything)
}

func TestWebRetriever_NoResults(t *testing.T) {
	r := NewWebRetriever(stubSearcher{}, &mockFetcher{}, 1, nil)
	sources, err := r.SearchAndFetch(context.Background(), "q", 5, DefaultOptions())
	require.NoError(t, err)
	assert.Empty(t, sources)
}

func newESRetriever(t *testing.T, handler http.HandlerFunc) *ElasticsearchRetriever {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		handler(w, r)
	}))
	t.Cleanup(server.Close)

	client, err := database.NewElasticsearch(config.ElasticsearchConfig{URL: server.URL})
	require.NoError(t, err)
	return NewElasticsearchRetriever(client, "pages", logger.NewTestLogger(t))
}

func TestElasticsearchRetriever_SearchAndFetch(t *testing.T) {
	r := newESRetriever(t, func(w http.ResponseWriter, req *http.Request) {
		assert.Equal(t, "/pages/_search", req.URL.Path)
		body, _ := io.ReadAll(req.Body)
		var q map[string]interface{}
		require.NoError(t, json.Unmarshal(body, &q))
		filter := q["query"].(map[string]interface{})["bool"].(map[string]interface{})["filter"]
		assert.NotNil(t, filter)

		_, _ = w.Write([]byte(`{"hits":{"hits":[
			{"_id":"1","_score":3,"_source":{"url":"https://go.dev/a","title":"A","content":"alpha"}},
			{"_id":"2","_score":2,"_source":{"url":"https://go.dev/b","content":""}},
			{"_id":"3","_score":1,"_source":{"content":"no url"}}
		]}}`))
	})

	opts := DefaultOptions()
	opts.SiteRestrict = "go.dev"
	sources, err := r.SearchAndFetch(context.Background(), "generics", 5, opts)
	require.NoError(t, err)
	require.Len(t, sources, 2)
	assert.Equal(t, "# A\n\nalpha", sources[0].Document.Body)
	assert.False(t, sources[1].Usable())
}

func TestElasticsearchRetriever_IndexMissing(t *testing.T) {
	r := newESRetriever(t, func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"status":404}`))
	})

	_, err := r.SearchAndFetch(context.Background(), "generics", 5, DefaultOptions())
	assert.ErrorIs(t, err, websearch.ErrSearchQueryFailed)
}

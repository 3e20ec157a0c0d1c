// Package retrieval maps a search query to the ordered pages that answer it.
package retrieval

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sourcegraph/conc/pool"

	"github.com/ai-asa/chat-websearch/internal/clients/scraper"
	"github.com/ai-asa/chat-websearch/internal/clients/websearch"
	"github.com/ai-asa/chat-websearch/internal/common/database"
	apperrors "github.com/ai-asa/chat-websearch/internal/common/errors"
	"github.com/ai-asa/chat-websearch/internal/common/logger"
	"github.com/ai-asa/chat-websearch/internal/models"
)

var ErrRetrievalGap = apperrors.ErrRetrievalGap

// Options mirror the scrape options of a search-and-fetch request.
type Options struct {
	ExcludeLinks bool
	MaxDepth     int
	// SiteRestrict limits an indexed search to one host. Web searches are restricted by the engine id instead.
	SiteRestrict string
}

// DefaultOptions is what a turn uses unless configured otherwise.
func DefaultOptions() Options {
	return Options{ExcludeLinks: true, MaxDepth: scraper.DefaultMaxDepth}
}

// Retriever returns one entry per result URL, in search-rank order. A nil Document means
// the page could not be fetched and is skipped by the caller.
type Retriever interface {
	SearchAndFetch(ctx context.Context, query string, maxResults int, opts Options) ([]models.FetchedSource, error)
}

// Fetcher loads one page.
type Fetcher interface {
	Fetch(ctx context.Context, url string, opts scraper.Options) (*models.ScrapedDocument, error)
}

// WebRetriever searches the web then scrapes each hit.
type WebRetriever struct {
	searcher    websearch.Searcher
	fetcher     Fetcher
	concurrency int
	log         logger.Logger
}

func NewWebRetriever(searcher websearch.Searcher, fetcher Fetcher, concurrency int, log logger.Logger) *WebRetriever {
	if concurrency <= 0 {
		concurrency = 1
	}
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &WebRetriever{searcher: searcher, fetcher: fetcher, concurrency: concurrency, log: log}
}

func (r *WebRetriever) SearchAndFetch(ctx context.Context, query string, maxResults int, opts Options) ([]models.FetchedSource, error) {
	results, err := r.searcher.Search(ctx, query, maxResults)
	if err != nil {
		return nil, err
	}

	sources := make([]models.FetchedSource, len(results))
	p := pool.New().WithMaxGoroutines(r.concurrency)
	for i, res := range results {
		i, res := i, res
		sources[i].URL = res.URL
		p.Go(func() {
			doc, err := r.fetcher.Fetch(ctx, res.URL, scraper.Options{ExcludeLinks: opts.ExcludeLinks, MaxDepth: opts.MaxDepth})
			if err != nil {
				r.log.Warn("Page fetch failed", map[string]interface{}{
					"query": query,
					"url":   res.URL,
					"error": fmt.Errorf("%w: %v", ErrRetrievalGap, err).Error(),
				})
				return
			}
			sources[i].Document = doc
		})
	}
	p.Wait()

	r.log.Debug("Retrieved pages", map[string]interface{}{
		"query":   query,
		"results": len(results),
		"engine":  r.searcher.Name(),
	})
	return sources, nil
}

// ElasticsearchRetriever serves queries from a pre-crawled page index. Hits already carry
// their content so there is no separate fetch step.
type ElasticsearchRetriever struct {
	client *database.ElasticsearchClient
	index  string
	log    logger.Logger
}

func NewElasticsearchRetriever(client *database.ElasticsearchClient, index string, log logger.Logger) *ElasticsearchRetriever {
	if index == "" {
		index = "web-pages"
	}
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &ElasticsearchRetriever{client: client, index: index, log: log}
}

type pageSource struct {
	URL     string `json:"url"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

func (r *ElasticsearchRetriever) SearchAndFetch(ctx context.Context, query string, maxResults int, opts Options) ([]models.FetchedSource, error) {
	must := []interface{}{
		map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":  query,
				"fields": []string{"title^2", "content"},
			},
		},
	}
	q := map[string]interface{}{
		"_source": []string{"url", "title", "content"},
		"query": map[string]interface{}{
			"bool": map[string]interface{}{"must": must},
		},
	}
	if opts.SiteRestrict != "" {
		q["query"].(map[string]interface{})["bool"].(map[string]interface{})["filter"] = []interface{}{
			map[string]interface{}{"term": map[string]interface{}{"site": opts.SiteRestrict}},
		}
	}

	hits, err := r.client.Search(ctx, r.index, q, maxResults)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrSearchQueryFailed, err)
	}

	sources := make([]models.FetchedSource, 0, len(hits))
	for _, hit := range hits {
		var page pageSource
		if err := json.Unmarshal(hit.Source, &page); err != nil || page.URL == "" {
			r.log.Warn("Skipping undecodable hit", map[string]interface{}{"id": hit.ID})
			continue
		}
		src := models.FetchedSource{URL: page.URL}
		if page.Content != "" {
			body := page.Content
			if page.Title != "" {
				body = "# " + page.Title + "\n\n" + body
			}
			src.Document = &models.ScrapedDocument{URL: page.URL, Body: body}
		}
		sources = append(sources, src)
	}
	return sources, nil
}

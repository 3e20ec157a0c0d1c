// internal/clients/websearch/google.go
package websearch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/ai-asa/chat-websearch/internal/common/ratelimit"
)

// cseMaxNum is the largest page size the Custom Search JSON API accepts.
const cseMaxNum = 10

// GoogleCSE queries the Custom Search JSON API. EngineID restricts which sites are searched.
type GoogleCSE struct {
	baseURL  string
	apiKey   string
	engineID string
	client   *http.Client
	limiter  ratelimit.Limiter
}

func NewGoogleCSE(baseURL, apiKey, engineID string, timeout time.Duration, limiter ratelimit.Limiter) *GoogleCSE {
	if baseURL == "" {
		baseURL = "https://www.googleapis.com/customsearch/v1"
	}
	return &GoogleCSE{
		baseURL:  baseURL,
		apiKey:   apiKey,
		engineID: engineID,
		client:   &http.Client{Timeout: timeout},
		limiter:  limiter,
	}
}

func (g *GoogleCSE) Name() string { return "google" }

func (g *GoogleCSE) buildSearchURL(query string, num int) (string, error) {
	u, err := url.Parse(g.baseURL)
	if err != nil {
		return "", err
	}
	params := url.Values{}
	params.Add("key", g.apiKey)
	params.Add("cx", g.engineID)
	params.Add("q", query)
	params.Add("num", strconv.Itoa(num))
	u.RawQuery = params.Encode()
	return u.String(), nil
}

func (g *GoogleCSE) Search(ctx context.Context, query string, maxResults int) ([]Result, error) {
	if err := g.limiter.Wait(ctx, g.Name()); err != nil {
		return nil, classify(ctx, err)
	}

	num := maxResults
	if num <= 0 || num > cseMaxNum {
		num = cseMaxNum
	}
	searchURL, err := g.buildSearchURL(query, num)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSearchQueryFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSearchQueryFailed, err)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, classify(ctx, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: search API returned %d", ErrSearchQueryFailed, resp.StatusCode)
	}

	var apiResponse struct {
		Items []struct {
			Link    string `json:"link"`
			Title   string `json:"title"`
			Snippet string `json:"snippet"`
			Mime    string `json:"mime"`
		} `json:"items"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResponse); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrSearchQueryFailed, err)
	}

	results := make([]Result, 0, len(apiResponse.Items))
	for _, item := range apiResponse.Items {
		results = append(results, Result{URL: item.Link, Title: item.Title, Snippet: item.Snippet, Mime: item.Mime})
	}
	return dedupe(results, maxResults), nil
}

// internal/clients/websearch/duckduckgo.go
package websearch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/ai-asa/chat-websearch/internal/common/ratelimit"
)

const (
	ddgEndpoint  = "https://lite.duckduckgo.com/lite/"
	ddgUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	ddgMaxDelay  = 30 * time.Second
)

// DuckDuckGo scrapes the lite HTML endpoint. Requests go through the limiter under the
// "duckduckgo" key; pass a 1 QPS limiter to stay polite.
type DuckDuckGo struct {
	endpoint     string
	client       *http.Client
	limiter      ratelimit.Limiter
	initialDelay time.Duration
}

func NewDuckDuckGo(endpoint string, timeout time.Duration, limiter ratelimit.Limiter) *DuckDuckGo {
	if endpoint == "" {
		endpoint = ddgEndpoint
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &DuckDuckGo{
		endpoint:     endpoint,
		client:       &http.Client{Timeout: timeout},
		limiter:      limiter,
		initialDelay: time.Second,
	}
}

func (d *DuckDuckGo) Name() string { return "duckduckgo" }

func (d *DuckDuckGo) Search(ctx context.Context, query string, maxResults int) ([]Result, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: query is empty", ErrSearchQueryFailed)
	}
	if err := d.limiter.Wait(ctx, d.Name()); err != nil {
		return nil, classify(ctx, err)
	}

	form := url.Values{}
	form.Set("q", query)

	var resp *http.Response
	delay := d.initialDelay
	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.endpoint, strings.NewReader(form.Encode()))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrSearchQueryFailed, err)
		}
		req.Header.Set("User-Agent", ddgUserAgent)
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		resp, err = d.client.Do(req)
		if err != nil {
			return nil, classify(ctx, err)
		}
		if resp.StatusCode != http.StatusTooManyRequests {
			break
		}
		resp.Body.Close()

		// 429: back off, doubling up to ddgMaxDelay
		if err := sleepCtx(ctx, delay); err != nil {
			return nil, classify(ctx, err)
		}
		if delay < ddgMaxDelay {
			delay *= 2
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: duckduckgo http %d", ErrSearchQueryFailed, resp.StatusCode)
	}

	results, err := parseLite(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSearchQueryFailed, err)
	}
	return dedupe(results, maxResults), nil
}

// parseLite walks the lite page: each hit is an <a class="result-link"> and its
// snippet is the next <td class="result-snippet">.
func parseLite(r io.Reader) ([]Result, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, err
	}

	var results []Result
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch {
			case n.Data == "a" && hasClass(n, "result-link"):
				href := resolveDDGLink(attr(n, "href"))
				title := strings.TrimSpace(textOf(n))
				if href != "" && title != "" {
					results = append(results, Result{URL: href, Title: title})
				}
			case n.Data == "td" && hasClass(n, "result-snippet"):
				if len(results) > 0 && results[len(results)-1].Snippet == "" {
					results[len(results)-1].Snippet = strings.Join(strings.Fields(textOf(n)), " ")
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return results, nil
}

// resolveDDGLink unwraps //duckduckgo.com/l/?uddg=<target> redirect links.
func resolveDDGLink(href string) string {
	href = strings.TrimSpace(href)
	if strings.HasPrefix(href, "//") {
		href = "https:" + href
	}
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if strings.HasSuffix(u.Host, "duckduckgo.com") {
		if target := u.Query().Get("uddg"); target != "" {
			return target
		}
		return ""
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}
	return u.String()
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(attr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

func textOf(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

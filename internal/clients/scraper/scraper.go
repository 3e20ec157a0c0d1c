// Package scraper fetches a page and renders its readable content as lightweight markdown.
package scraper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/ai-asa/chat-websearch/internal/common/config"
	apperrors "github.com/ai-asa/chat-websearch/internal/common/errors"
	commonhttp "github.com/ai-asa/chat-websearch/internal/common/http"
	"github.com/ai-asa/chat-websearch/internal/models"
)

const (
	DefaultMaxDepth     = 20
	DefaultMaxBodyBytes = 2 << 20
	defaultUserAgent    = "Mozilla/5.0 (compatible; chat-websearch/1.0)"
)

var (
	ErrScrapeFailed       = apperrors.ErrScrapeFailed
	ErrUnsupportedContent = errors.New("UNSUPPORTED_CONTENT")
)

// Options control rendering of one page.
type Options struct {
	ExcludeLinks bool
	MaxDepth     int
}

type Scraper struct {
	client       *commonhttp.Client
	maxBodyBytes int64
}

func New(cfg config.ScraperConfig) *Scraper {
	ua := cfg.UserAgent
	if ua == "" {
		ua = defaultUserAgent
	}
	timeout := config.GetDuration(cfg.Timeout)
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	maxBody := cfg.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = DefaultMaxBodyBytes
	}
	return &Scraper{
		client:       commonhttp.NewClient(timeout, commonhttp.WithUserAgent(ua)),
		maxBodyBytes: maxBody,
	}
}

// Fetch downloads url and returns its rendered body. Non-HTML responses yield ErrUnsupportedContent.
func (s *Scraper) Fetch(ctx context.Context, url string, opts Options) (*models.ScrapedDocument, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrScrapeFailed, err)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrScrapeFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: %s returned %d", ErrScrapeFailed, url, resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "" {
		mediaType, _, _ := mime.ParseMediaType(ct)
		if mediaType != "text/html" && mediaType != "application/xhtml+xml" {
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedContent, mediaType)
		}
	}

	body, err := Render(io.LimitReader(resp.Body, s.maxBodyBytes), opts)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrScrapeFailed, err)
	}
	return &models.ScrapedDocument{URL: url, Body: body}, nil
}

var skipped = map[atom.Atom]bool{
	atom.Script:   true,
	atom.Style:    true,
	atom.Nav:      true,
	atom.Footer:   true,
	atom.Noscript: true,
	atom.Svg:      true,
	atom.Head:     true,
	atom.Iframe:   true,
	atom.Form:     true,
}

var headings = map[atom.Atom]int{
	atom.H1: 1, atom.H2: 2, atom.H3: 3, atom.H4: 4, atom.H5: 5, atom.H6: 6,
}

var blocks = map[atom.Atom]bool{
	atom.P: true, atom.Div: true, atom.Section: true, atom.Article: true, atom.Main: true,
	atom.Table: true, atom.Tr: true, atom.Blockquote: true, atom.Pre: true, atom.Ul: true,
	atom.Ol: true, atom.Header: true, atom.Br: true, atom.Hr: true,
}

// Render converts an HTML document to markdown-ish text.
func Render(r io.Reader, opts Options) (string, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return "", err
	}
	maxDepth := opts.MaxDepth
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}

	w := &writer{}
	var walk func(n *html.Node, depth int)
	walk = func(n *html.Node, depth int) {
		if n.Type == html.ElementNode && depth > maxDepth {
			return
		}
		switch n.Type {
		case html.TextNode:
			w.text(n.Data)
			return
		case html.ElementNode:
			if skipped[n.DataAtom] {
				return
			}
			if level, ok := headings[n.DataAtom]; ok {
				w.block()
				w.raw(strings.Repeat("#", level) + " ")
				walkChildren(n, depth, walk)
				w.block()
				return
			}
			switch {
			case n.DataAtom == atom.Li:
				w.line()
				w.raw("- ")
				walkChildren(n, depth, walk)
				w.line()
				return
			case n.DataAtom == atom.A && !opts.ExcludeLinks:
				href := attr(n, "href")
				w.raw("[")
				walkChildren(n, depth, walk)
				w.raw("](" + href + ")")
				return
			case blocks[n.DataAtom]:
				w.block()
				walkChildren(n, depth, walk)
				w.block()
				return
			}
		}
		walkChildren(n, depth, walk)
	}
	walk(doc, 0)
	return w.String(), nil
}

func walkChildren(n *html.Node, depth int, walk func(*html.Node, int)) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, depth+1)
	}
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// writer collapses whitespace. pending holds the strongest separator requested since
// the last write and is dropped at the start of the document.
type writer struct {
	sb      strings.Builder
	pending string
}

func (w *writer) text(s string) {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		if s != "" {
			w.space()
		}
		return
	}
	if s[0] == ' ' || s[0] == '\t' || s[0] == '\n' || s[0] == '\r' {
		w.space()
	}
	w.raw(strings.Join(fields, " "))
	if strings.TrimRight(s, " \t\r\n") != s {
		w.space()
	}
}

func (w *writer) raw(s string) {
	if w.sb.Len() > 0 && w.pending != "" {
		if !(w.pending == " " && strings.HasSuffix(w.sb.String(), " ")) {
			w.sb.WriteString(w.pending)
		}
	}
	w.pending = ""
	w.sb.WriteString(s)
}

func (w *writer) space() {
	if w.pending == "" {
		w.pending = " "
	}
}

func (w *writer) line() {
	if w.pending != "\n\n" {
		w.pending = "\n"
	}
}

func (w *writer) block() {
	w.pending = "\n\n"
}

func (w *writer) String() string {
	return strings.TrimSpace(w.sb.String())
}

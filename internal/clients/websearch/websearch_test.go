// internal/clients/websearch/websearch_test.go
package websearch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ai-asa/chat-websearch/internal/common/config"
	"github.com/ai-asa/chat-websearch/internal/common/ratelimit"
)

func TestGoogleCSE_Search(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))
		assert.Equal(t, "engine-1", r.URL.Query().Get("cx"))
		assert.Equal(t, "go generics", r.URL.Query().Get("q"))
		assert.Equal(t, "3", r.URL.Query().Get("num"))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"items":[
			{"link":"https://go.dev/doc/tutorial/generics","title":"Tutorial","snippet":"Generics"},
			{"link":"https://example.com/spec.pdf","title":"PDF","mime":"application/pdf"},
			{"link":"https://go.dev/doc/tutorial/generics","title":"Duplicate"},
			{"link":"https://go.dev/blog/intro-generics","title":"Intro","mime":"text/html"}
		]}`)
	}))
	defer server.Close()

	g := NewGoogleCSE(server.URL, "test-key", "engine-1", time.Second, ratelimit.Unlimited{})
	results, err := g.Search(context.Background(), "go generics", 3)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "https://go.dev/doc/tutorial/generics", results[0].URL)
	assert.Equal(t, "https://go.dev/blog/intro-generics", results[1].URL)
}

func TestGoogleCSE_Errors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		timeout time.Duration
		wantErr error
	}{
		{
			name:    "server error",
			handler: func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusInternalServerError) },
			timeout: time.Second,
			wantErr: ErrSearchQueryFailed,
		},
		{
			name:    "bad json",
			handler: func(w http.ResponseWriter, r *http.Request) { fmt.Fprint(w, `{"items":`) },
			timeout: time.Second,
			wantErr: ErrSearchQueryFailed,
		},
		{
			name: "slow upstream",
			handler: func(w http.ResponseWriter, r *http.Request) {
				time.Sleep(200 * time.Millisecond)
				fmt.Fprint(w, `{}`)
			},
			timeout: 20 * time.Millisecond,
			wantErr: ErrWebSearchTimeout,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			g := NewGoogleCSE(server.URL, "k", "cx", tt.timeout, ratelimit.Unlimited{})
			_, err := g.Search(context.Background(), "q", 5)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

const litePage = `<html><body><table>
<tr><td><a class="result-link" href="//duckduckgo.com/l/?uddg=https%3A%2F%2Fgo.dev%2Fdoc%2F&rut=x">Go <b>Docs</b></a></td></tr>
<tr><td class="result-snippet">  The Go   programming language.  </td></tr>
<tr><td><a class="result-link" href="https://pkg.go.dev/">Packages</a></td></tr>
<tr><td class="result-snippet">Package index</td></tr>
<tr><td><a class="result-link" href="javascript:void(0)">Bad</a></td></tr>
<tr><td><a class="other" href="https://ignored.example/">Ignored</a></td></tr>
</table></body></html>`

func TestDuckDuckGo_ParsesLitePage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "golang", r.PostForm.Get("q"))
		assert.Contains(t, r.UserAgent(), "Mozilla")
		io.WriteString(w, litePage)
	}))
	defer server.Close()

	d := NewDuckDuckGo(server.URL, time.Second, ratelimit.Unlimited{})
	results, err := d.Search(context.Background(), "golang", 4)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, Result{URL: "https://go.dev/doc/", Title: "Go Docs", Snippet: "The Go programming language."}, results[0])
	assert.Equal(t, "https://pkg.go.dev/", results[1].URL)
}

func TestDuckDuckGo_BacksOffOn429(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		io.WriteString(w, litePage)
	}))
	defer server.Close()

	d := NewDuckDuckGo(server.URL, time.Second, ratelimit.Unlimited{})
	d.initialDelay = 5 * time.Millisecond

	results, err := d.Search(context.Background(), "golang", 1)
	require.NoError(t, err)
	assert.Len(t, results, 1)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestDuckDuckGo_CancelledDuringBackoff(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	d := NewDuckDuckGo(server.URL, time.Second, ratelimit.Unlimited{})
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := d.Search(ctx, "golang", 1)
	assert.ErrorIs(t, err, ErrWebSearchTimeout)
}

func TestDuckDuckGo_EmptyQuery(t *testing.T) {
	d := NewDuckDuckGo("http://unused.invalid", time.Second, ratelimit.Unlimited{})
	_, err := d.Search(context.Background(), "  ", 1)
	assert.ErrorIs(t, err, ErrSearchQueryFailed)
}

func TestNew_SelectsProvider(t *testing.T) {
	s, err := New(config.WebSearchConfig{Provider: "google", Timeout: 1000}, nil)
	require.NoError(t, err)
	assert.Equal(t, "google", s.Name())

	s, err = New(config.WebSearchConfig{Provider: "duckduckgo"}, ratelimit.NewLocal(time.Second))
	require.NoError(t, err)
	assert.Equal(t, "duckduckgo", s.Name())

	_, err = New(config.WebSearchConfig{Provider: "bing"}, nil)
	assert.Error(t, err)
}

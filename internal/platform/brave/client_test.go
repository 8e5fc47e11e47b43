package brave

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/yungbote/neurobridge-assistant/internal/pkg/httpx"
	"github.com/yungbote/neurobridge-assistant/internal/pkg/logger"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return newClient(logger.Nop(), Config{APIKey: "bsk-test", BaseURL: srv.URL + "/"}, srv.Client())
}

func TestSearchSendsQueryParams(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != searchPath {
			t.Fatalf("path: want=%s got=%s", searchPath, r.URL.Path)
		}
		if got := r.Header.Get("X-Subscription-Token"); got != "bsk-test" {
			t.Fatalf("token header: got=%q", got)
		}
		q := r.URL.Query()
		for k, want := range map[string]string{
			"q":             "go generics",
			"count":         "10",
			"safesearch":    "moderate",
			"freshness":     "pw",
			"result_filter": "web,news",
		} {
			if got := q.Get(k); got != want {
				t.Fatalf("%s: want=%q got=%q", k, want, got)
			}
		}
		_, _ = io.WriteString(w, `{
			"web":{"results":[{"title":"Generics","url":"https://go.dev/doc/tutorial/generics","description":"intro","page_age":"2024-03-01T10:00:00"}]},
			"news":{"results":[{"title":"Go 1.22","url":"https://go.dev/blog/go1.22","description":"release"}]}
		}`)
	})
	resp, err := c.Search(context.Background(), SearchParams{
		Query:        "go generics",
		Count:        10,
		SafeSearch:   "moderate",
		Freshness:    "pw",
		ResultFilter: []string{"web", "news"},
	})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(resp.WebResults()) != 1 || len(resp.NewsResults()) != 1 {
		t.Fatalf("results: web=%d news=%d", len(resp.WebResults()), len(resp.NewsResults()))
	}
	ts, ok := resp.WebResults()[0].PublishedAt()
	if !ok || !ts.Equal(time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)) {
		t.Fatalf("page_age: got=%v ok=%v", ts, ok)
	}
	if _, ok := resp.NewsResults()[0].PublishedAt(); ok {
		t.Fatalf("expected no date for news result")
	}
}

func TestSearchHTTPErrorIsClassifiable(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = io.WriteString(w, `{"error":"rate limited"}`)
	})
	_, err := c.Search(context.Background(), SearchParams{Query: "x"})
	var he *braveHTTPError
	if !errors.As(err, &he) || he.HTTPStatusCode() != http.StatusTooManyRequests {
		t.Fatalf("want braveHTTPError 429, got %v", err)
	}
	if !httpx.IsRetryableError(err) {
		t.Fatalf("429 should be retryable")
	}
}

func TestSearchRejectsEmptyQuery(t *testing.T) {
	c := newClient(logger.Nop(), Config{APIKey: "k"}, http.DefaultClient)
	if _, err := c.Search(context.Background(), SearchParams{Query: "  "}); err == nil {
		t.Fatalf("expected error for empty query")
	}
}

package websearch

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/neurobridge-assistant/internal/domain"
	"github.com/yungbote/neurobridge-assistant/internal/pkg/logger"
	"github.com/yungbote/neurobridge-assistant/internal/pkg/retry"
	"github.com/yungbote/neurobridge-assistant/internal/platform/brave"
)

var fixedNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

type fakeBrave struct {
	calls []brave.SearchParams
	resp  *brave.SearchResponse
	errs  []error
}

func (f *fakeBrave) Search(_ context.Context, p brave.SearchParams) (*brave.SearchResponse, error) {
	f.calls = append(f.calls, p)
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		if err != nil {
			return nil, err
		}
	}
	return f.resp, nil
}

type statusErr int

func (e statusErr) Error() string       { return http.StatusText(int(e)) }
func (e statusErr) HTTPStatusCode() int { return int(e) }

func sampleResponse() *brave.SearchResponse {
	var r brave.SearchResponse
	r.Web.Results = []brave.Result{
		{Title: "Random blog", URL: "https://example.com/post", Description: "thoughts"},
		{Title: "Goroutines explained", URL: "https://go.dev/doc/goroutines", Description: "goroutines and channels", PageAge: "2025-05-01T00:00:00"},
		{Title: "Goroutines on SO", URL: "https://www.stackoverflow.com/q/1", Description: "old answer", PageAge: "2019-01-01"},
		{Title: "Spam goroutines", URL: "https://spam.example.org/x", Description: "goroutines"},
	}
	r.News.Results = []brave.Result{
		{Title: "Go 1.24 released", URL: "https://news.example.net/go124", Description: "release notes"},
	}
	return &r
}

func newAugmenter(api brave.Client, opts ...Option) *Augmenter {
	base := []Option{
		WithClock(func() time.Time { return fixedNow }),
		WithRetryPolicy(retry.Policy{Name: "test", Delays: []time.Duration{time.Millisecond}, MaxRetries: 2}),
	}
	return NewAugmenter(logger.Nop(), api, append(base, opts...)...)
}

func TestEnhanceQuery(t *testing.T) {
	assert.Equal(t, "how do goroutines work in golang", EnhanceQuery("how do goroutines work in golang"))
	assert.Equal(t, "best way to learn "+softwareDisambiguator, EnhanceQuery("best way to learn"))
}

func TestNeedsNews(t *testing.T) {
	assert.True(t, NeedsNews("react 19 changelog"))
	assert.True(t, NeedsNews("is componentWillMount deprecated"))
	assert.False(t, NeedsNews("explain closures"))
}

func TestRelevanceScoring(t *testing.T) {
	r := domain.WebResult{Title: "Goroutines explained", Description: "goroutines and channels"}
	assert.InDelta(t, 0.9, Relevance(r, []string{"goroutines"}), 1e-9)

	r.IsTechnical = true
	r.IsRecent = true
	assert.Equal(t, 1.0, Relevance(r, []string{"goroutines", "channels"}))

	assert.Equal(t, 0.5, Relevance(domain.WebResult{Title: "x"}, []string{"nothing"}))
}

func TestSearchWebScoresFiltersAndSorts(t *testing.T) {
	api := &fakeBrave{resp: sampleResponse()}
	a := newAugmenter(api)

	resp, err := a.SearchWeb(context.Background(), "goroutines in go", Options{ExcludeDomains: []string{"example.org"}})
	require.NoError(t, err)

	require.Len(t, api.calls, 1)
	assert.Equal(t, []string{"web", "news"}, api.calls[0].ResultFilter)
	assert.Equal(t, DefaultCount, api.calls[0].Count)
	assert.Equal(t, "goroutines in go", api.calls[0].Query)

	// no news term in the query, so the news result is dropped
	require.Len(t, resp.Results, 3)
	for i := 1; i < len(resp.Results); i++ {
		assert.GreaterOrEqual(t, resp.Results[i-1].RelevanceScore, resp.Results[i].RelevanceScore)
	}
	for _, r := range resp.Results {
		assert.NotEqual(t, "spam.example.org", r.Source)
		assert.GreaterOrEqual(t, r.RelevanceScore, 0.0)
		assert.LessOrEqual(t, r.RelevanceScore, 1.0)
	}

	top := resp.Results[0]
	assert.Equal(t, "go.dev", top.Source)
	assert.True(t, top.IsTechnical)
	assert.True(t, top.IsRecent)

	so := resp.Results[1]
	assert.Equal(t, "stackoverflow.com", so.Source)
	assert.False(t, so.IsRecent)

	assert.Equal(t, 3, resp.Analytics.TotalResults)
	assert.Equal(t, 2, resp.Analytics.TechnicalResults)
	assert.Equal(t, 1, resp.Analytics.RecentResults)
	assert.False(t, resp.Analytics.NewsIncluded)
}

func TestSearchKeepsNewsForReleaseQueries(t *testing.T) {
	api := &fakeBrave{resp: sampleResponse()}
	resp, err := newAugmenter(api).SearchWeb(context.Background(), "go 1.24 release", Options{})
	require.NoError(t, err)
	assert.True(t, resp.Analytics.NewsIncluded)

	var news int
	for _, r := range resp.Results {
		if r.Type == domain.WebResultNews {
			news++
		}
	}
	assert.Equal(t, 1, news)
}

func TestSearchSoftwareEngineeringAllowList(t *testing.T) {
	api := &fakeBrave{resp: sampleResponse()}
	resp, err := newAugmenter(api).SearchSoftwareEngineering(context.Background(), "goroutines", Options{})
	require.NoError(t, err)
	require.NotEmpty(t, resp.Results)
	for _, r := range resp.Results {
		assert.True(t, domainMatches(r.Source, EngineeringDomains), r.Source)
	}
}

func TestSearchRecentTechForcesFreshness(t *testing.T) {
	api := &fakeBrave{resp: sampleResponse()}
	_, err := newAugmenter(api).SearchRecentTech(context.Background(), "frontend trends", Options{Freshness: "py"})
	require.NoError(t, err)
	require.Len(t, api.calls, 1)
	assert.Equal(t, RecentFreshness, api.calls[0].Freshness)
}

func TestSearchRetriesTransientThenWrapsFailure(t *testing.T) {
	api := &fakeBrave{resp: sampleResponse(), errs: []error{statusErr(503)}}
	_, err := newAugmenter(api).SearchWeb(context.Background(), "golang", Options{})
	require.NoError(t, err)
	assert.Len(t, api.calls, 2)

	api = &fakeBrave{errs: []error{statusErr(401)}}
	_, err = newAugmenter(api).SearchWeb(context.Background(), "golang", Options{})
	require.Error(t, err)
	assert.Equal(t, domain.KindSearchService, domain.KindOf(err))
	assert.Len(t, api.calls, 1, "client errors are not retried")

	api = &fakeBrave{errs: []error{errors.New("boom")}}
	_, err = newAugmenter(api).SearchWeb(context.Background(), "", Options{})
	assert.Equal(t, domain.KindInput, domain.KindOf(err))
	assert.Empty(t, api.calls)
}

func TestSearchUsesCache(t *testing.T) {
	api := &fakeBrave{resp: sampleResponse()}
	a := newAugmenter(api, WithCache(NewLRUCache(8, time.Minute)))

	first, err := a.SearchWeb(context.Background(), "goroutines", Options{})
	require.NoError(t, err)
	assert.False(t, first.Analytics.Cached)

	second, err := a.SearchWeb(context.Background(), "Goroutines", Options{})
	require.NoError(t, err)
	assert.True(t, second.Analytics.Cached)
	assert.Equal(t, first.Results, second.Results)
	assert.Len(t, api.calls, 1)

	_, err = a.SearchRecentTech(context.Background(), "goroutines", Options{})
	require.NoError(t, err)
	assert.Len(t, api.calls, 2, "different search types do not share entries")
}

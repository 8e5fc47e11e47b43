// Package websearch augments answers with live web results.
package websearch

import (
	"context"
	"math"
	"sort"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/yungbote/neurobridge-assistant/internal/domain"
	"github.com/yungbote/neurobridge-assistant/internal/observability"
	"github.com/yungbote/neurobridge-assistant/internal/pkg/httpx"
	"github.com/yungbote/neurobridge-assistant/internal/pkg/logger"
	"github.com/yungbote/neurobridge-assistant/internal/pkg/retry"
	"github.com/yungbote/neurobridge-assistant/internal/platform/brave"
)

type SearchType string

const (
	TypeGeneral  SearchType = "general"
	TypeSoftware SearchType = "software"
	TypeRecent   SearchType = "recent"
)

const (
	DefaultCount      = 10
	DefaultSafeSearch = "moderate"
	RecentFreshness   = "pw"

	baseRelevance   = 0.5
	titleMatchBonus = 0.3
	descMatchBonus  = 0.1
	technicalBonus  = 0.2
	recentBonus     = 0.1
	recentWindow    = 6 * 30 * 24 * time.Hour
)

type Options struct {
	Count      int
	Freshness  string
	SafeSearch string
	// IncludeDomains, when set, keeps only results from these domains.
	IncludeDomains []string
	ExcludeDomains []string
}

type Analytics struct {
	TotalResults     int     `json:"total_results"`
	TechnicalResults int     `json:"technical_results"`
	RecentResults    int     `json:"recent_results"`
	AverageRelevance float64 `json:"average_relevance"`
	NewsIncluded     bool    `json:"news_included"`
	EnhancedQuery    string  `json:"enhanced_query"`
	SearchTimeMs     int64   `json:"search_time_ms"`
	Cached           bool    `json:"cached"`
}

type SearchResponse struct {
	Results   []domain.WebResult `json:"results"`
	Analytics Analytics          `json:"analytics"`
}

type Augmenter struct {
	log    *logger.Logger
	api    brave.Client
	cache  Cache
	policy retry.Policy
	now    func() time.Time
}

type Option func(*Augmenter)

func WithCache(c Cache) Option {
	return func(a *Augmenter) { a.cache = c }
}

func WithRetryPolicy(p retry.Policy) Option {
	return func(a *Augmenter) { a.policy = p }
}

func WithClock(now func() time.Time) Option {
	return func(a *Augmenter) { a.now = now }
}

func NewAugmenter(log *logger.Logger, api brave.Client, opts ...Option) *Augmenter {
	policy := retry.Interactive
	policy.Retryable = httpx.IsRetryableError
	a := &Augmenter{
		log:    log.With("service", "WebSearchAugmenter"),
		api:    api,
		policy: policy,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Augmenter) SearchWeb(ctx context.Context, query string, opts Options) (*SearchResponse, error) {
	return a.search(ctx, TypeGeneral, query, opts)
}

// SearchSoftwareEngineering restricts results to engineering domains unless
// the caller supplied its own allow list.
func (a *Augmenter) SearchSoftwareEngineering(ctx context.Context, query string, opts Options) (*SearchResponse, error) {
	if len(opts.IncludeDomains) == 0 {
		opts.IncludeDomains = EngineeringDomains
	}
	return a.search(ctx, TypeSoftware, query, opts)
}

func (a *Augmenter) SearchRecentTech(ctx context.Context, query string, opts Options) (*SearchResponse, error) {
	opts.Freshness = RecentFreshness
	return a.search(ctx, TypeRecent, query, opts)
}

// Search dispatches on kind.
func (a *Augmenter) Search(ctx context.Context, kind SearchType, query string, opts Options) (*SearchResponse, error) {
	switch kind {
	case TypeSoftware:
		return a.SearchSoftwareEngineering(ctx, query, opts)
	case TypeRecent:
		return a.SearchRecentTech(ctx, query, opts)
	default:
		return a.SearchWeb(ctx, query, opts)
	}
}

func (a *Augmenter) search(ctx context.Context, kind SearchType, query string, opts Options) (resp *SearchResponse, err error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, domain.InputError("search query is empty")
	}
	if opts.Count <= 0 {
		opts.Count = DefaultCount
	}
	if opts.SafeSearch == "" {
		opts.SafeSearch = DefaultSafeSearch
	}

	start := a.now()
	enhanced := EnhanceQuery(query)
	includeNews := NeedsNews(enhanced)

	ctx, span := observability.StartSpan(ctx, "websearch.search",
		attribute.String("websearch.type", string(kind)),
		attribute.Bool("websearch.news", includeNews),
	)
	status := "ok"
	defer func() {
		if err != nil {
			status = "error"
		}
		observability.Current().ObserveWebSearch(string(kind), status, a.now().Sub(start))
		observability.EndSpan(span, err)
	}()

	key := cacheKey(string(kind), enhanced, opts)
	if a.cache != nil {
		if cached, ok := a.cache.Get(ctx, key); ok {
			status = "cached"
			cached.Analytics.Cached = true
			return cached, nil
		}
	}

	raw, err := retry.DoValue(ctx, a.policy, func(ctx context.Context) (*brave.SearchResponse, error) {
		return a.api.Search(ctx, brave.SearchParams{
			Query:        enhanced,
			Count:        opts.Count,
			SafeSearch:   opts.SafeSearch,
			Freshness:    opts.Freshness,
			ResultFilter: []string{"web", "news"},
		})
	})
	if err != nil {
		a.log.Warn("web search failed", "type", kind, "error", err)
		return nil, domain.SearchServiceError("brave.search", err)
	}

	terms := scoringTerms(query)
	now := a.now()
	results := make([]domain.WebResult, 0, len(raw.WebResults())+len(raw.NewsResults()))
	for _, r := range raw.WebResults() {
		results = append(results, a.toWebResult(r, domain.WebResultWeb, terms, now))
	}
	if includeNews {
		for _, r := range raw.NewsResults() {
			results = append(results, a.toWebResult(r, domain.WebResultNews, terms, now))
		}
	}
	results = filterDomains(results, opts.IncludeDomains, opts.ExcludeDomains)
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].RelevanceScore > results[j].RelevanceScore
	})

	resp = &SearchResponse{
		Results:   results,
		Analytics: analyticsFor(results, enhanced, includeNews, a.now().Sub(start)),
	}
	if a.cache != nil {
		a.cache.Set(ctx, key, resp)
	}
	a.log.Debug("web search done",
		"type", kind,
		"results", len(results),
		"news", includeNews,
		"duration_ms", resp.Analytics.SearchTimeMs,
	)
	return resp, nil
}

func (a *Augmenter) toWebResult(r brave.Result, typ domain.WebResultType, terms []string, now time.Time) domain.WebResult {
	host := hostOf(r.URL)
	out := domain.WebResult{
		Title:       strings.TrimSpace(r.Title),
		URL:         strings.TrimSpace(r.URL),
		Description: strings.TrimSpace(r.Description),
		Source:      host,
		Type:        typ,
		IsTechnical: domainMatches(host, TechnicalDomains),
	}
	if len(r.ExtraSnippets) > 0 {
		out.Snippet = strings.TrimSpace(r.ExtraSnippets[0])
	}
	if ts, ok := r.PublishedAt(); ok {
		out.Date = &ts
		out.IsRecent = now.Sub(ts) <= recentWindow
	}
	out.RelevanceScore = Relevance(out, terms)
	return out
}

// Relevance scores a result against query terms: 0.5 base, +0.3 per term in
// the title, +0.1 per term in the description, +0.2 for a technical domain,
// +0.1 when recent; clamped to [0,1].
func Relevance(r domain.WebResult, terms []string) float64 {
	title := strings.ToLower(r.Title)
	desc := strings.ToLower(r.Description)
	score := baseRelevance
	for _, t := range terms {
		if strings.Contains(title, t) {
			score += titleMatchBonus
		}
		if strings.Contains(desc, t) {
			score += descMatchBonus
		}
	}
	if r.IsTechnical {
		score += technicalBonus
	}
	if r.IsRecent {
		score += recentBonus
	}
	return math.Max(0, math.Min(1, score))
}

func filterDomains(in []domain.WebResult, include, exclude []string) []domain.WebResult {
	out := in[:0]
	for _, r := range in {
		if domainMatches(r.Source, exclude) {
			continue
		}
		if len(include) > 0 && !domainMatches(r.Source, include) {
			continue
		}
		out = append(out, r)
	}
	return out
}

func analyticsFor(results []domain.WebResult, enhanced string, news bool, took time.Duration) Analytics {
	a := Analytics{
		TotalResults:  len(results),
		NewsIncluded:  news,
		EnhancedQuery: enhanced,
		SearchTimeMs:  took.Milliseconds(),
	}
	var sum float64
	for _, r := range results {
		if r.IsTechnical {
			a.TechnicalResults++
		}
		if r.IsRecent {
			a.RecentResults++
		}
		sum += r.RelevanceScore
	}
	if len(results) > 0 {
		a.AverageRelevance = math.Round(sum/float64(len(results))*100) / 100
	}
	return a
}

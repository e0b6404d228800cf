package news

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"time"

	"github.com/innov8academy/newsletter-auto/internal/cache"
	"github.com/innov8academy/newsletter-auto/internal/llm"
	"github.com/innov8academy/newsletter-auto/internal/metrics"
	"github.com/innov8academy/newsletter-auto/internal/ratelimit"
	"github.com/innov8academy/newsletter-auto/internal/rss"
)

// ErrAPIKeyRequired is returned by Curate when no LLM API key is available.
var ErrAPIKeyRequired = errors.New("API key required")

type Stage string

const (
	StageFetching   Stage = "fetching"
	StageExtracting Stage = "extracting"
	StageScoring    Stage = "scoring"
	StageDone       Stage = "done"
)

type Progress struct {
	Stage   Stage  `json:"stage"`
	Current int    `json:"current"`
	Total   int    `json:"total"`
	Message string `json:"message"`
}

type ProgressFunc func(Progress)

// Fetcher is implemented by *rss.Reader.
type Fetcher interface {
	FetchAll(ctx context.Context, feeds []rss.FeedSource) []rss.NewsItem
}

// ContentResolver is implemented by *scraper.Resolver.
type ContentResolver interface {
	Resolve(ctx context.Context, item rss.NewsItem) string
}

// ClientFactory builds an LLM client for the API key of a run.
type ClientFactory func(apiKey string) (llm.Client, error)

type Options struct {
	// Feeds are always curated; callers may add more per run.
	Feeds []rss.FeedSource

	// APIKey is used when the caller passes none.
	APIKey string
	Model  string

	// MaxAgeDays drops older items before sampling. Zero disables it.
	MaxAgeDays     int
	PerSourceQuota int
	MaxCandidates  int
	MinScore       int

	MaxContentChars int

	// LLMCallDelay spaces extraction calls. MaxLLMRequests caps calls per
	// run, zero means unlimited.
	LLMCallDelay   time.Duration
	MaxLLMRequests int

	// Pacer replaces the default token bucket built from LLMCallDelay.
	Pacer ratelimit.Pacer

	Cache   *cache.Cache[[]RawStory]
	Logger  *slog.Logger
	Metrics *metrics.Metrics
	Now     func() time.Time
}

// Curator runs the fetch, sample, extract, merge and score pipeline.
type Curator struct {
	fetcher   Fetcher
	resolver  ContentResolver
	newClient ClientFactory
	opts      Options
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

func NewCurator(fetcher Fetcher, resolver ContentResolver, newClient ClientFactory, opts Options) *Curator {
	if opts.PerSourceQuota <= 0 {
		opts.PerSourceQuota = DefaultPerSourceQuota
	}
	if opts.MaxCandidates <= 0 {
		opts.MaxCandidates = DefaultMaxCandidates
	}
	if opts.MinScore <= 0 {
		opts.MinScore = DefaultMinScore
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	m := opts.Metrics
	if m == nil {
		m = metrics.Global
	}

	return &Curator{
		fetcher:   fetcher,
		resolver:  resolver,
		newClient: newClient,
		opts:      opts,
		logger:    logger,
		metrics:   m,
	}
}

// Feeds returns the configured feeds followed by the usable custom ones.
func (c *Curator) Feeds(custom []rss.FeedSource) []rss.FeedSource {
	feeds := make([]rss.FeedSource, 0, len(c.opts.Feeds)+len(custom))
	feeds = append(feeds, c.opts.Feeds...)
	for _, f := range custom {
		if f.URL == "" {
			continue
		}
		if f.Name == "" {
			f.Name = f.URL
		}
		feeds = append(feeds, f)
	}
	return feeds
}

// Curate runs one curation. An empty apiKey falls back to the configured
// key; without either it fails with ErrAPIKeyRequired before any fetch.
// Feed and extraction failures never fail the run. progress may be nil.
func (c *Curator) Curate(ctx context.Context, apiKey string, customFeeds []rss.FeedSource, progress ProgressFunc) (*Result, error) {
	if apiKey == "" {
		apiKey = c.opts.APIKey
	}
	if apiKey == "" {
		return nil, ErrAPIKeyRequired
	}

	client, err := c.newClient(apiKey)
	if err != nil {
		return nil, fmt.Errorf("create llm client: %w", err)
	}
	if closer, ok := client.(io.Closer); ok {
		defer closer.Close()
	}

	report := func(p Progress) {
		if progress != nil {
			progress(p)
		}
	}

	start := c.opts.Now()
	feeds := c.Feeds(customFeeds)

	breakdown := make([]SourceStats, 0, len(feeds))
	bySource := make(map[string]int, len(feeds))
	for _, f := range feeds {
		if _, ok := bySource[f.Name]; ok {
			continue
		}
		bySource[f.Name] = len(breakdown)
		breakdown = append(breakdown, SourceStats{SourceName: f.Name})
	}

	// Stage 1: fetch
	report(Progress{Stage: StageFetching, Current: 0, Total: 1, Message: fmt.Sprintf("Fetching news from %d sources...", len(feeds))})

	items := c.fetcher.FetchAll(ctx, feeds)
	for _, item := range items {
		if i, ok := bySource[item.SourceName]; ok {
			breakdown[i].Found++
		}
	}

	fresh := items
	if c.opts.MaxAgeDays > 0 {
		fresh = rss.FilterByDate(items, c.opts.MaxAgeDays, start)
	}
	candidates := SelectCandidates(fresh, c.opts.PerSourceQuota, c.opts.MaxCandidates)

	c.logger.Info("candidates selected",
		"fetched", len(items),
		"fresh", len(fresh),
		"candidates", len(candidates))

	// Stage 2: extract and merge, one item at a time
	limiter := c.limiter()
	extractor := NewExtractor(client, ExtractorConfig{
		Model:           c.opts.Model,
		MaxContentChars: c.opts.MaxContentChars,
		Limiter:         limiter,
		Cache:           c.opts.Cache,
		Logger:          c.logger,
		Metrics:         c.metrics,
	})

	ws := NewWorkingSet()
	extracted, merged := 0, 0
	for i, item := range candidates {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("curation cancelled: %w", err)
		}

		if n, ok := bySource[item.SourceName]; ok {
			breakdown[n].Kept++
		}

		report(Progress{
			Stage:   StageExtracting,
			Current: i + 1,
			Total:   len(candidates),
			Message: fmt.Sprintf("Analyzing [%s] %s...", item.SourceName, truncateRunes(item.Title, 30)),
		})

		content := c.resolver.Resolve(ctx, item)
		for _, raw := range extractor.Extract(ctx, item, content) {
			extracted++
			if _, ok := ws.MergeOrInsert(raw, item.SourceName, item.PublishedAt); ok {
				merged++
			}
		}
	}

	// Stage 3: score
	report(Progress{Stage: StageScoring, Current: 0, Total: 1, Message: "Calculating final scores..."})

	all := ws.Stories()
	ScoreAll(all, c.opts.Now())
	stories := RankAndFilter(all, c.opts.MinScore)

	report(Progress{Stage: StageDone, Current: 1, Total: 1, Message: fmt.Sprintf("Found %d curated stories", len(stories))})

	sort.SliceStable(breakdown, func(i, j int) bool {
		return breakdown[i].Kept > breakdown[j].Kept
	})

	c.metrics.RecordRun(len(items), len(candidates), extracted, merged, len(stories))
	c.metrics.RecordProcessingTime(c.opts.Now().Sub(start))

	budget := limiter.Stats()
	c.logger.Info("curation finished",
		"sources", len(feeds),
		"articles", len(items),
		"processed", len(candidates),
		"extracted", extracted,
		"merged", merged,
		"distinct", ws.Len(),
		"published", len(stories),
		"llm_calls", budget.Calls,
		"llm_denied", budget.Denied)

	return &Result{
		Stories: stories,
		Stats: Stats{
			SourcesAnalyzed:    len(feeds),
			TotalArticlesFound: len(items),
			ArticlesProcessed:  len(candidates),
			Breakdown:          breakdown,
		},
	}, nil
}

// limiter returns a fresh budget for one run sharing the configured pacer.
func (c *Curator) limiter() *ratelimit.Limiter {
	if c.opts.Pacer != nil {
		return ratelimit.NewWithPacer(c.opts.Pacer, c.opts.MaxLLMRequests)
	}
	return ratelimit.New(c.opts.LLMCallDelay, c.opts.MaxLLMRequests)
}


// Package app wires configuration, the curation pipeline, persistence and
// delivery together.
package app

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"time"

	"github.com/innov8academy/newsletter-auto/internal/cache"
	"github.com/innov8academy/newsletter-auto/internal/config"
	"github.com/innov8academy/newsletter-auto/internal/gemini"
	"github.com/innov8academy/newsletter-auto/internal/llm"
	"github.com/innov8academy/newsletter-auto/internal/metrics"
	"github.com/innov8academy/newsletter-auto/internal/news"
	"github.com/innov8academy/newsletter-auto/internal/rss"
	"github.com/innov8academy/newsletter-auto/internal/scraper"
	"github.com/innov8academy/newsletter-auto/internal/storage"
	"github.com/innov8academy/newsletter-auto/internal/telegram"
)

// sentWindow is how long a delivered story is kept out of later digests.
const sentWindow = 48 * time.Hour

// Curator is implemented by *news.Curator.
type Curator interface {
	Curate(ctx context.Context, apiKey string, customFeeds []rss.FeedSource, progress news.ProgressFunc) (*news.Result, error)
}

// Notifier is implemented by *telegram.Notifier.
type Notifier interface {
	SendMessage(ctx context.Context, text string) error
}

type App struct {
	cfg     *config.Config
	logger  *slog.Logger
	metrics *metrics.Metrics
	now     func() time.Time

	feeds    []rss.FeedSource
	fetcher  news.Fetcher
	curator  Curator
	cache    *cache.Cache[[]news.RawStory]
	store    storage.Store
	notifier Notifier
}

func New(cfg *config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	feeds, err := loadFeeds(cfg.FeedsConfigPath, logger)
	if err != nil {
		return nil, err
	}

	store, err := storage.Open(cfg.StorageDriver, cfg.StoragePath, sentWindow)
	if err != nil {
		return nil, err
	}

	extractions := cache.New[[]news.RawStory](time.Duration(cfg.CacheTTLHours)*time.Hour, time.Hour)
	reader := rss.NewReader(cfg.RequestTimeout, logger)
	resolver := scraper.NewResolver(cfg.ScrapeTimeout, scraper.DefaultMaxChars, logger)

	curator := news.NewCurator(reader, resolver, NewClientFactory(cfg.LLMProvider, cfg.LLMModel), news.Options{
		Feeds:           feeds,
		APIKey:          cfg.LLMAPIKey,
		Model:           cfg.LLMModel,
		MaxAgeDays:      cfg.NewsMaxAgeDays,
		PerSourceQuota:  cfg.PerSourceQuota,
		MaxCandidates:   cfg.MaxCandidates,
		MinScore:        cfg.MinScore,
		MaxContentChars: scraper.DefaultMaxChars,
		LLMCallDelay:    cfg.LLMCallDelay,
		MaxLLMRequests:  cfg.MaxLLMRequests,
		Cache:           extractions,
		Logger:          logger,
		Metrics:         metrics.Global,
	})

	a := &App{
		cfg:     cfg,
		logger:  logger,
		metrics: metrics.Global,
		now:     time.Now,
		feeds:   feeds,
		fetcher: reader,
		curator: curator,
		cache:   extractions,
		store:   store,
	}
	if cfg.TelegramEnabled() {
		a.notifier = telegram.NewNotifier(cfg.TelegramToken, cfg.TelegramChatID, logger)
	}

	logger.Info("app initialised",
		"feeds", len(feeds),
		"provider", cfg.LLMProvider,
		"model", cfg.LLMModel,
		"storage", cfg.StorageDriver,
		"telegram", a.notifier != nil)
	return a, nil
}

// NewClientFactory returns a factory building clients for provider.
func NewClientFactory(provider, model string) news.ClientFactory {
	if provider == llm.ProviderGemini {
		return func(apiKey string) (llm.Client, error) {
			c, err := gemini.NewClient(context.Background(), apiKey, model)
			if err != nil {
				return nil, err
			}
			return c, nil
		}
	}
	return func(apiKey string) (llm.Client, error) {
		return llm.NewOpenRouterClient(apiKey, model, ""), nil
	}
}

// loadFeeds reads the feed list, falling back to the built-in catalogue when
// the file is missing or lists no feeds.
func loadFeeds(path string, logger *slog.Logger) ([]rss.FeedSource, error) {
	if path == "" {
		return rss.DefaultFeeds(), nil
	}

	feeds, err := rss.LoadFeeds(path)
	if errors.Is(err, fs.ErrNotExist) {
		logger.Info("feeds config not found, using built-in feeds", "path", path)
		return rss.DefaultFeeds(), nil
	}
	if err != nil {
		return nil, err
	}
	if len(feeds) == 0 {
		logger.Warn("feeds config is empty, using built-in feeds", "path", path)
		return rss.DefaultFeeds(), nil
	}
	return feeds, nil
}

// Curate runs one curation and persists the result. Persistence failures are
// logged, not returned. A missing key or an abandoned request does not mark
// the service unhealthy.
func (a *App) Curate(ctx context.Context, apiKey string, customFeeds []rss.FeedSource, progress news.ProgressFunc) (*news.Result, error) {
	res, err := a.curator.Curate(ctx, apiKey, customFeeds, progress)
	if errors.Is(err, news.ErrAPIKeyRequired) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil, err
	}
	if err != nil {
		a.metrics.SetError(err.Error())
		return nil, err
	}
	a.metrics.SetLastRun()

	if _, err := a.saveReport(ctx, res); err != nil {
		a.logger.Error("failed to save report", "error", err)
	}
	return res, nil
}

// News returns the fetched items of the configured feeds from the last days
// days, without any LLM analysis.
func (a *App) News(ctx context.Context, days int) []rss.NewsItem {
	items := a.fetcher.FetchAll(ctx, a.feeds)
	if days > 0 {
		items = rss.FilterByDate(items, days, a.now())
	}
	return items
}

func (a *App) LatestReport(ctx context.Context) (*storage.Report, error) {
	if a.store == nil {
		return nil, storage.ErrNotFound
	}
	return a.store.LatestReport(ctx)
}

func (a *App) Close() error {
	if a.cache != nil {
		a.cache.Stop()
	}
	if a.store != nil {
		return a.store.Close()
	}
	return nil
}

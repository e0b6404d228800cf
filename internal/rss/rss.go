package rss

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"html"
	"log/slog"
	"net/http"
	"os"
	"sort"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
	"github.com/mmcdole/gofeed"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"
)

const (
	// UserAgent is sent with every feed request.
	UserAgent = "InnovateAI-Newsletter/1.0"

	maxItemsPerFeed = 10
	maxSummaryRunes = 300
)

// FeedSource is a named RSS/Atom URL with catalogue metadata.
type FeedSource struct {
	Name     string `yaml:"name" json:"name"`
	URL      string `yaml:"url" json:"url"`
	Category string `yaml:"category" json:"category"`
	Tier     int    `yaml:"tier,omitempty" json:"tier,omitempty"`
}

// FeedsConfig is YAML config structure
// feeds:
//   - name: TechCrunch AI
//     url: https://...
//     category: news
//     tier: 2
type FeedsConfig struct {
	Feeds []FeedSource `yaml:"feeds"`
}

// LoadFeeds reads RSS feeds list from YAML file
func LoadFeeds(path string) ([]FeedSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg FeedsConfig
	dec := yaml.NewDecoder(f)
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode feeds %s: %w", path, err)
	}

	feeds := make([]FeedSource, 0, len(cfg.Feeds))
	for _, fs := range cfg.Feeds {
		fs.URL = strings.TrimSpace(fs.URL)
		if fs.URL == "" {
			continue
		}
		if fs.Name == "" {
			fs.Name = fs.URL
		}
		feeds = append(feeds, fs)
	}
	return feeds, nil
}

// NewsItem is a single feed entry. It lives for one fetch cycle only.
type NewsItem struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	URL         string    `json:"url"`
	SourceURL   string    `json:"sourceUrl"`
	SourceName  string    `json:"sourceName"`
	PublishedAt time.Time `json:"publishedAt"`
	Summary     string    `json:"summary,omitempty"`
	Content     string    `json:"content,omitempty"`
	ImageURL    string    `json:"imageUrl,omitempty"`
	Author      string    `json:"author,omitempty"`
}

// ItemID derives the intra-run identity of an item from its title and url.
func ItemID(title, url string) string {
	sum := sha256.Sum256([]byte(title + "-" + url))
	return hex.EncodeToString(sum[:])[:16]
}

// Reader downloads and parses feeds.
type Reader struct {
	client  *http.Client
	timeout time.Duration
	logger  *slog.Logger
	now     func() time.Time
}

// NewReader creates a Reader. timeout bounds each individual feed request.
func NewReader(timeout time.Duration, logger *slog.Logger) *Reader {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Reader{
		client:  &http.Client{Timeout: timeout},
		timeout: timeout,
		logger:  logger,
		now:     time.Now,
	}
}

// FetchAll downloads every feed concurrently and returns one list sorted
// newest first, deduplicated by normalized title. A failing feed contributes
// zero items and never fails the call.
func (r *Reader) FetchAll(ctx context.Context, feeds []FeedSource) []NewsItem {
	results := make([][]NewsItem, len(feeds))

	var g errgroup.Group
	for i, feed := range feeds {
		i, feed := i, feed
		g.Go(func() error {
			items, err := r.fetchFeed(ctx, feed)
			if err != nil {
				r.logger.Warn("feed fetch failed", "feed", feed.Name, "url", feed.URL, "error", err)
				return nil
			}
			r.logger.Debug("feed loaded", "feed", feed.Name, "items", len(items))
			results[i] = items
			return nil
		})
	}
	_ = g.Wait()

	var all []NewsItem
	ok := 0
	for _, items := range results {
		if items != nil {
			ok++
		}
		all = append(all, items...)
	}

	sort.SliceStable(all, func(i, j int) bool {
		return all[i].PublishedAt.After(all[j].PublishedAt)
	})

	seen := make(map[string]struct{}, len(all))
	deduped := all[:0]
	for _, item := range all {
		key := NormalizeTitle(item.Title)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		deduped = append(deduped, item)
	}

	r.logger.Info("feeds processed", "ok", ok, "total", len(feeds), "items", len(deduped))
	return deduped
}

func (r *Reader) fetchFeed(ctx context.Context, feed FeedSource) ([]NewsItem, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	parser := gofeed.NewParser()
	parser.UserAgent = UserAgent
	parser.Client = r.client

	parsed, err := parser.ParseURLWithContext(feed.URL, ctx)
	if err != nil {
		return nil, err
	}

	now := r.now()
	items := make([]NewsItem, 0, len(parsed.Items))
	for _, entry := range parsed.Items {
		if entry == nil {
			continue
		}
		items = append(items, toNewsItem(entry, feed, now))
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].PublishedAt.After(items[j].PublishedAt)
	})
	if len(items) > maxItemsPerFeed {
		items = items[:maxItemsPerFeed]
	}
	return items, nil
}

func toNewsItem(entry *gofeed.Item, feed FeedSource, now time.Time) NewsItem {
	title := CleanText(entry.Title)
	if title == "" {
		title = "Untitled"
	}

	link := strings.TrimSpace(entry.Link)
	if link == "" && len(entry.Links) > 0 {
		link = strings.TrimSpace(entry.Links[0])
	}

	published := now
	if entry.PublishedParsed != nil {
		published = *entry.PublishedParsed
	} else if entry.UpdatedParsed != nil {
		published = *entry.UpdatedParsed
	}

	content := CleanText(entry.Content)
	summary := CleanText(entry.Description)
	if summary == "" {
		summary = content
	}

	return NewsItem{
		ID:          ItemID(title, link),
		Title:       title,
		URL:         link,
		SourceURL:   feed.URL,
		SourceName:  feed.Name,
		PublishedAt: published,
		Summary:     truncateRunes(summary, maxSummaryRunes),
		Content:     content,
		ImageURL:    imageURL(entry),
		Author:      author(entry),
	}
}

func imageURL(entry *gofeed.Item) string {
	if media, ok := entry.Extensions["media"]; ok {
		for _, key := range []string{"content", "thumbnail"} {
			for _, ext := range media[key] {
				if u := ext.Attrs["url"]; u != "" {
					return u
				}
			}
		}
	}
	for _, enc := range entry.Enclosures {
		if enc != nil && enc.URL != "" {
			return enc.URL
		}
	}
	if entry.Image != nil {
		return entry.Image.URL
	}
	return ""
}

func author(entry *gofeed.Item) string {
	if entry.Author != nil && entry.Author.Name != "" {
		return entry.Author.Name
	}
	for _, a := range entry.Authors {
		if a != nil && a.Name != "" {
			return a.Name
		}
	}
	if entry.DublinCoreExt != nil && len(entry.DublinCoreExt.Creator) > 0 {
		return entry.DublinCoreExt.Creator[0]
	}
	return ""
}

// FilterByDate keeps items published within the last days*24h.
func FilterByDate(items []NewsItem, days int, now time.Time) []NewsItem {
	cutoff := now.Add(-time.Duration(days) * 24 * time.Hour)
	out := make([]NewsItem, 0, len(items))
	for _, item := range items {
		if !item.PublishedAt.Before(cutoff) {
			out = append(out, item)
		}
	}
	return out
}

var stripPolicy = bluemonday.StrictPolicy()

// CleanText strips HTML tags, decodes entities and collapses whitespace.
func CleanText(s string) string {
	if s == "" {
		return ""
	}
	s = stripPolicy.Sanitize(s)
	// feeds frequently double-encode entities (&amp;#8217;)
	s = html.UnescapeString(html.UnescapeString(s))
	return strings.Join(strings.Fields(s), " ")
}

// NormalizeTitle lowercases s, keeps only ASCII letters, digits and spaces and
// collapses whitespace. Accented letters are dropped, not folded.
func NormalizeTitle(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

func truncateRunes(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max])
}

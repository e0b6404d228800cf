package scraper

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"github.com/innov8academy/newsletter-auto/internal/rss"
)

const (
	// BrowserUserAgent reduces 403s from sites that block bot agents.
	BrowserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

	// MinInlineLength is the inline text length that makes a page fetch unnecessary.
	MinInlineLength = 500

	// DefaultMaxChars bounds the text handed to the LLM.
	DefaultMaxChars = 12000

	maxBodyBytes = 5 << 20
)

// Resolver turns a news item into analyzable plain text, fetching the linked
// page when the feed only carried a teaser.
type Resolver struct {
	client   *http.Client
	maxChars int
	logger   *slog.Logger
}

// NewResolver creates a Resolver. maxChars <= 0 selects DefaultMaxChars.
func NewResolver(timeout time.Duration, maxChars int, logger *slog.Logger) *Resolver {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		client:   &http.Client{Timeout: timeout},
		maxChars: maxChars,
		logger:   logger,
	}
}

// Resolve returns the best text available for item. It never fails: on any
// fetch or parse error the inline text (possibly empty) is returned.
func (r *Resolver) Resolve(ctx context.Context, item rss.NewsItem) string {
	if utf8.RuneCountInString(item.Content) >= MinInlineLength {
		return item.Content
	}
	if utf8.RuneCountInString(item.Summary) >= MinInlineLength {
		return item.Summary
	}

	inline := item.Content
	if inline == "" {
		inline = item.Summary
	}
	if item.URL == "" {
		return inline
	}

	text, err := r.fetchText(ctx, item.URL)
	if err != nil {
		r.logger.Warn("article fetch failed", "url", item.URL, "error", err)
		return inline
	}
	if text == "" {
		r.logger.Debug("article page has no text", "url", item.URL)
		return inline
	}
	r.logger.Debug("article text extracted", "url", item.URL, "chars", utf8.RuneCountInString(text))
	return text
}

func (r *Resolver) fetchText(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("User-Agent", BrowserUserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")

	resp, err := r.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("error loading page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("HTTP error: %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", fmt.Errorf("error parsing HTML: %w", err)
	}

	return truncate(ExtractText(doc), r.maxChars), nil
}

// articleSelectors are tried in order; the first one yielding enough
// paragraph text wins over the whole-page text.
var articleSelectors = []string{
	"article p",
	".article-body p",
	".post-content p",
	".entry-content p",
	"main p",
	"#content p",
}

// ExtractText drops script/style content and returns the whitespace-collapsed
// text of the article body, or of the whole page when no article container
// carries enough text.
func ExtractText(doc *goquery.Document) string {
	doc.Find("script, style, noscript, template, svg").Remove()

	for _, selector := range articleSelectors {
		var paragraphs []string
		doc.Find(selector).Each(func(i int, s *goquery.Selection) {
			if text := collapse(s.Text()); len(text) > 20 {
				paragraphs = append(paragraphs, text)
			}
		})
		joined := strings.Join(paragraphs, " ")
		if utf8.RuneCountInString(joined) >= MinInlineLength {
			return joined
		}
	}

	root := doc.Find("body")
	if root.Length() == 0 {
		root = doc.Selection
	}
	return collapse(root.Text())
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max])
}

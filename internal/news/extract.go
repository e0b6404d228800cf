package news

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/innov8academy/newsletter-auto/internal/cache"
	"github.com/innov8academy/newsletter-auto/internal/llm"
	"github.com/innov8academy/newsletter-auto/internal/metrics"
	"github.com/innov8academy/newsletter-auto/internal/rss"
	"github.com/innov8academy/newsletter-auto/internal/scraper"
)

const (
	// MinContentLength is the shortest content worth an LLM call.
	MinContentLength = 100

	MaxStoriesPerItem = 6
	DefaultBaseScore  = 5

	extractionTemperature = 0.2
	extractionMaxTokens   = 3000
)

const curationPrompt = `You are an expert AI news curator for the "Innov8 AI" newsletter.
Target Audience: Normal people interested in AI (not just researchers). They want to know "what happened" and "why it matters".

TASK: Analyze this content and extract individual news stories.

For EACH distinct news story, provide:
1. headline: Clear, engaging headline (max 12 words) - specific and punchy
2. summary: A 3-4 sentence explanation covering: WHAT happened? and WHY it matters to a normal person? Avoid jargon.
3. category: One of [model_release, tool_launch, acquisition, research, funding, regulation, tutorial, industry, company_news]
4. baseScore: Score 1-10 based on importance to the general public:
   - 9-10: Mainstream news (GPT-5, deepfakes law, major job market shifts)
   - 7-8: Big tools normal people use (ChatGPT updates, heavy hitters), major breakthroughs
   - 5-6: Interesting new apps, useful tutorials, industry trends
   - 3-4: Niche developer tools, minor updates, enterprise-only news
   - 1-2: Spam, irrelevant, promotional only
5. entities: List of companies/products mentioned
6. originalUrl: Source URL if mentioned

RULES:
- Extract SEPARATE stories, not the whole newsletter
- Focus on the "Normal Person" angle in the summary
- Skip: job posts, sponsor sections, "also check out" links
- Max 6 stories per source

Return ONLY valid JSON array. No other text.`

var errNoJSONArray = errors.New("no JSON array in response")

// Limiter gates LLM calls. *ratelimit.Limiter satisfies it.
type Limiter interface {
	Acquire(ctx context.Context) error
}

type ExtractorConfig struct {
	Model string

	// MaxContentChars caps the content sent to the model.
	MaxContentChars int

	// Limiter and Cache are optional.
	Limiter Limiter
	Cache   *cache.Cache[[]RawStory]

	Logger  *slog.Logger
	Metrics *metrics.Metrics
}

// Extractor asks the LLM for the individual stories inside a feed item.
// It never fails: any problem yields a single story built from the item.
type Extractor struct {
	client  llm.Client
	cfg     ExtractorConfig
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func NewExtractor(client llm.Client, cfg ExtractorConfig) *Extractor {
	if cfg.MaxContentChars <= 0 {
		cfg.MaxContentChars = scraper.DefaultMaxChars
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	m := cfg.Metrics
	if m == nil {
		m = metrics.Global
	}
	return &Extractor{client: client, cfg: cfg, logger: logger, metrics: m}
}

// Extract returns between one and MaxStoriesPerItem stories for item.
func (e *Extractor) Extract(ctx context.Context, item rss.NewsItem, content string) []RawStory {
	if utf8.RuneCountInString(content) < MinContentLength {
		return e.fallback(item)
	}

	content = truncateRunes(content, e.cfg.MaxContentChars)

	key := cache.Key(item.SourceName, item.Title, content)
	if e.cfg.Cache != nil {
		if stories, ok := e.cfg.Cache.Get(key); ok {
			e.metrics.IncrementExtractionCacheHits()
			e.logger.Debug("extraction cache hit", "source", item.SourceName, "title", item.Title)
			return cloneRawStories(stories)
		}
	}

	if e.cfg.Limiter != nil {
		if err := e.cfg.Limiter.Acquire(ctx); err != nil {
			e.logger.Warn("llm call not allowed, using fallback", "source", item.SourceName, "error", err)
			return e.fallback(item)
		}
	}

	e.metrics.IncrementLLMCalls()
	resp, err := e.client.Complete(ctx, llm.Request{
		Model:       e.cfg.Model,
		Prompt:      buildPrompt(item, content),
		Temperature: extractionTemperature,
		MaxTokens:   extractionMaxTokens,
	})
	if err != nil {
		e.logger.Warn("story extraction failed, using fallback", "source", item.SourceName, "title", item.Title, "error", err)
		return e.fallback(item)
	}

	stories, err := ParseStories(resp)
	if err != nil {
		e.logger.Warn("unparseable extraction response, using fallback", "source", item.SourceName, "title", item.Title, "error", err)
		return e.fallback(item)
	}
	if len(stories) == 0 {
		e.logger.Warn("no stories extracted, using fallback", "source", item.SourceName, "title", item.Title)
		return e.fallback(item)
	}

	if e.cfg.Cache != nil {
		e.cfg.Cache.Set(key, cloneRawStories(stories))
	}
	return stories
}

func (e *Extractor) fallback(item rss.NewsItem) []RawStory {
	e.metrics.IncrementFallbackExtractions()
	return []RawStory{FallbackStory(item)}
}

// FallbackStory represents item itself as a story of default importance.
func FallbackStory(item rss.NewsItem) RawStory {
	summary := item.Summary
	if summary == "" {
		summary = item.Title
	}
	return RawStory{
		Headline:    item.Title,
		Summary:     summary,
		Category:    CategoryOther,
		BaseScore:   DefaultBaseScore,
		Entities:    []string{},
		OriginalURL: item.URL,
	}
}

func buildPrompt(item rss.NewsItem, content string) string {
	var b strings.Builder
	b.WriteString(curationPrompt)
	fmt.Fprintf(&b, "\n\nSOURCE: %s\nTITLE: %s\nDATE: %s\n\nCONTENT:\n%s\n\nReturn JSON array only.",
		item.SourceName, item.Title, item.PublishedAt.Format(time.RFC3339), content)
	return b.String()
}

type llmStory struct {
	Headline    string      `json:"headline"`
	Summary     string      `json:"summary"`
	Category    string      `json:"category"`
	BaseScore   flexNumber  `json:"baseScore"`
	Importance  flexNumber  `json:"importance"`
	Entities    flexStrings `json:"entities"`
	OriginalURL string      `json:"originalUrl"`
}

// ParseStories decodes a model response into validated stories. Markdown
// fences and prose around the JSON array are tolerated. Categories outside
// the enumeration become CategoryOther, scores are clamped to 1..10 (missing
// means DefaultBaseScore) and stories without a headline are dropped.
func ParseStories(text string) ([]RawStory, error) {
	text = strings.NewReplacer("```json", "", "```JSON", "", "```", "").Replace(text)

	start := strings.Index(text, "[")
	end := strings.LastIndex(text, "]")
	if start < 0 || end < start {
		return nil, errNoJSONArray
	}

	var raw []llmStory
	if err := json.Unmarshal([]byte(text[start:end+1]), &raw); err != nil {
		return nil, fmt.Errorf("decode stories: %w", err)
	}

	stories := make([]RawStory, 0, len(raw))
	for _, r := range raw {
		headline := strings.TrimSpace(r.Headline)
		if headline == "" {
			continue
		}

		score := r.BaseScore
		if score == 0 {
			score = r.Importance
		}

		stories = append(stories, RawStory{
			Headline:    headline,
			Summary:     strings.TrimSpace(r.Summary),
			Category:    ParseCategory(r.Category),
			BaseScore:   normalizeScore(float64(score)),
			Entities:    cleanEntities(r.Entities),
			OriginalURL: strings.TrimSpace(r.OriginalURL),
		})
		if len(stories) == MaxStoriesPerItem {
			break
		}
	}
	return stories, nil
}

func normalizeScore(v float64) int {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return DefaultBaseScore
	}
	n := int(math.Round(v))
	switch {
	case n == 0:
		return DefaultBaseScore
	case n < 1:
		return 1
	case n > MaxScore:
		return MaxScore
	}
	return n
}

func cleanEntities(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, e := range in {
		e = strings.TrimSpace(e)
		if e == "" || seen[strings.ToLower(e)] {
			continue
		}
		seen[strings.ToLower(e)] = true
		out = append(out, e)
	}
	return out
}

// flexNumber accepts 8, 8.0, "8" and null. Anything else decodes as zero.
type flexNumber float64

func (f *flexNumber) UnmarshalJSON(b []byte) error {
	s := strings.Trim(strings.TrimSpace(string(b)), `"`)
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		*f = 0
		return nil
	}
	*f = flexNumber(v)
	return nil
}

// flexStrings accepts a string array, a single string or a comma separated
// list. Non-string array members are skipped.
type flexStrings []string

func (f *flexStrings) UnmarshalJSON(b []byte) error {
	var list []json.RawMessage
	if err := json.Unmarshal(b, &list); err == nil {
		out := make([]string, 0, len(list))
		for _, raw := range list {
			var s string
			if json.Unmarshal(raw, &s) == nil {
				out = append(out, s)
			}
		}
		*f = out
		return nil
	}

	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*f = strings.Split(s, ",")
		return nil
	}

	*f = nil
	return nil
}

func cloneRawStories(in []RawStory) []RawStory {
	out := make([]RawStory, len(in))
	for i, s := range in {
		s.Entities = append([]string{}, s.Entities...)
		out[i] = s
	}
	return out
}

func truncateRunes(s string, max int) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	r := []rune(s)
	return string(r[:max])
}

package news

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/innov8academy/newsletter-auto/internal/llm"
	"github.com/innov8academy/newsletter-auto/internal/rss"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeClient struct {
	mu      sync.Mutex
	prompts []string
	respond func(prompt string) (string, error)
}

func (f *fakeClient) Complete(ctx context.Context, req llm.Request) (string, error) {
	f.mu.Lock()
	f.prompts = append(f.prompts, req.Prompt)
	f.mu.Unlock()
	return f.respond(req.Prompt)
}

func (f *fakeClient) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.prompts)
}

type countingPacer struct {
	mu    sync.Mutex
	waits int
}

func (p *countingPacer) Wait(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.waits++
	return nil
}

func newsItem(source, title string, age time.Duration) rss.NewsItem {
	url := "https://example.com/" + strings.ReplaceAll(strings.ToLower(title), " ", "-")
	return rss.NewsItem{
		ID:          rss.ItemID(title, url),
		Title:       title,
		URL:         url,
		SourceName:  source,
		PublishedAt: testNow.Add(-age),
		Summary:     "Summary of " + title,
	}
}

func longText() string {
	return strings.Repeat("lorem ipsum dolor sit amet ", 10)
}

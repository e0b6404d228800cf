package rss

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func rssFeed(items ...string) string {
	return `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel><title>Test</title>` + strings.Join(items, "") + `</channel></rss>`
}

func rssItem(title, link string, pub time.Time, desc string) string {
	return fmt.Sprintf(`<item><title>%s</title><link>%s</link><pubDate>%s</pubDate><description><![CDATA[%s]]></description></item>`,
		title, link, pub.Format(time.RFC1123Z), desc)
}

const atomFeed = `<?xml version="1.0" encoding="utf-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <title>Atom Test</title>
  <entry>
    <title>openai ships gpt5</title>
    <link href="https://atom.example.com/gpt5"/>
    <updated>2026-01-10T08:00:00Z</updated>
    <summary>Atom summary &amp; more</summary>
    <author><name>Jane</name></author>
  </entry>
  <entry>
    <title>Anthropic publishes research</title>
    <link href="https://atom.example.com/research"/>
    <updated>2026-01-10T06:00:00Z</updated>
    <summary>Research summary</summary>
  </entry>
</feed>`

func newFeedServer(t *testing.T) *httptest.Server {
	t.Helper()
	base := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)

	mux := http.NewServeMux()
	mux.HandleFunc("/rss", func(w http.ResponseWriter, r *http.Request) {
		if ua := r.Header.Get("User-Agent"); ua != UserAgent {
			t.Errorf("unexpected user agent %q", ua)
		}
		w.Header().Set("Content-Type", "application/rss+xml")
		io.WriteString(w, rssFeed(
			rssItem("OpenAI ships GPT-5!", "https://rss.example.com/gpt5", base.Add(-1*time.Hour), "<p>Big <b>release</b></p>"),
			rssItem("Funding round closes", "https://rss.example.com/funding", base.Add(-3*time.Hour), "Money"),
		))
	})
	mux.HandleFunc("/atom", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/atom+xml")
		io.WriteString(w, atomFeed)
	})
	mux.HandleFunc("/broken", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "this is not a feed")
	})
	mux.HandleFunc("/down", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	})
	mux.HandleFunc("/many", func(w http.ResponseWriter, r *http.Request) {
		var items []string
		for i := 0; i < 15; i++ {
			items = append(items, rssItem(fmt.Sprintf("Story number %d", i), fmt.Sprintf("https://many.example.com/%d", i), base.Add(-time.Duration(i)*time.Minute), "x"))
		}
		io.WriteString(w, rssFeed(items...))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestFetchAllMergesSortsAndDedups(t *testing.T) {
	srv := newFeedServer(t)
	r := NewReader(5*time.Second, quietLogger())

	items := r.FetchAll(context.Background(), []FeedSource{
		{Name: "RSS", URL: srv.URL + "/rss"},
		{Name: "Atom", URL: srv.URL + "/atom"},
		{Name: "Broken", URL: srv.URL + "/broken"},
		{Name: "Down", URL: srv.URL + "/down"},
	})

	if len(items) != 3 {
		for _, it := range items {
			t.Logf("%s | %s | %s", it.SourceName, it.Title, it.PublishedAt)
		}
		t.Fatalf("expected 3 items after title dedup, got %d", len(items))
	}

	for i := 1; i < len(items); i++ {
		if items[i].PublishedAt.After(items[i-1].PublishedAt) {
			t.Fatalf("items not sorted newest first at %d", i)
		}
	}

	first := items[0]
	if first.SourceName != "RSS" || first.Title != "OpenAI ships GPT-5!" {
		t.Errorf("newest duplicate should survive, got %+v", first)
	}
	if first.Summary != "Big release" {
		t.Errorf("summary not cleaned: %q", first.Summary)
	}
	if first.SourceURL != srv.URL+"/rss" {
		t.Errorf("unexpected source url %q", first.SourceURL)
	}
	if first.ID != ItemID(first.Title, first.URL) {
		t.Errorf("id is not derived from title and url")
	}

	var research *NewsItem
	for i := range items {
		if items[i].URL == "https://atom.example.com/research" {
			research = &items[i]
		}
	}
	if research == nil {
		t.Fatalf("atom entry missing")
	}
	if research.SourceName != "Atom" {
		t.Errorf("unexpected source name %q", research.SourceName)
	}
}

func TestFetchAllCapsItemsPerFeed(t *testing.T) {
	srv := newFeedServer(t)
	r := NewReader(5*time.Second, quietLogger())

	items := r.FetchAll(context.Background(), []FeedSource{{Name: "Many", URL: srv.URL + "/many"}})
	if len(items) != maxItemsPerFeed {
		t.Fatalf("expected %d items, got %d", maxItemsPerFeed, len(items))
	}
	if items[0].Title != "Story number 0" {
		t.Errorf("expected newest entry first, got %q", items[0].Title)
	}
}

func TestFetchAllAllFeedsFailing(t *testing.T) {
	srv := newFeedServer(t)
	r := NewReader(5*time.Second, quietLogger())

	items := r.FetchAll(context.Background(), []FeedSource{
		{Name: "Down", URL: srv.URL + "/down"},
		{Name: "Nowhere", URL: "http://127.0.0.1:1/feed"},
	})
	if len(items) != 0 {
		t.Fatalf("expected no items, got %d", len(items))
	}
}

func TestFilterByDate(t *testing.T) {
	now := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	items := []NewsItem{
		{Title: "fresh", PublishedAt: now.Add(-time.Hour)},
		{Title: "edge", PublishedAt: now.Add(-72 * time.Hour)},
		{Title: "old", PublishedAt: now.Add(-73 * time.Hour)},
	}

	got := FilterByDate(items, 3, now)
	if len(got) != 2 {
		t.Fatalf("expected 2 items, got %d", len(got))
	}
	if got[0].Title != "fresh" || got[1].Title != "edge" {
		t.Errorf("unexpected items %+v", got)
	}
	if len(items) != 3 {
		t.Errorf("input mutated")
	}
}

func TestCleanText(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"<p>Hello <b>world</b></p>", "Hello world"},
		{"AT&amp;T &#8217;s deal &#8211; done &#8212; ok", "AT&T ’s deal – done — ok"},
		{"&#8220;quoted&#8221;", "“quoted”"},
		{"<script>alert(1)</script>Visible", "Visible"},
		{"  lots\n\n of\t space&nbsp;here ", "lots of space here"},
		{"Q&A", "Q&A"},
	}
	for _, tt := range tests {
		if got := CleanText(tt.in); got != tt.want {
			t.Errorf("CleanText(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeTitle(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"OpenAI releases GPT-5", "openai releases gpt5"},
		{"  Hello,   World!! ", "hello world"},
		{"Ünïcode Straße", "ncode strae"},
		{"Über die KI", "ber die ki"},
		{"AI\u00a0news\tdaily", "ai news daily"},
	}
	for _, tt := range tests {
		if got := NormalizeTitle(tt.in); got != tt.want {
			t.Errorf("NormalizeTitle(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestLoadFeeds(t *testing.T) {
	path := filepath.Join(t.TempDir(), "feeds.yaml")
	data := `feeds:
  - name: "TLDR AI"
    url: "https://tldr.tech/ai/rss"
    category: newsletter
    tier: 1
  - url: "https://example.com/feed"
  - name: "empty"
    url: "   "
`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	feeds, err := LoadFeeds(path)
	if err != nil {
		t.Fatalf("LoadFeeds: %v", err)
	}
	if len(feeds) != 2 {
		t.Fatalf("expected 2 feeds, got %d", len(feeds))
	}
	if feeds[0].Name != "TLDR AI" || feeds[0].Tier != 1 || feeds[0].Category != "newsletter" {
		t.Errorf("unexpected first feed %+v", feeds[0])
	}
	if feeds[1].Name != "https://example.com/feed" {
		t.Errorf("name should default to url, got %q", feeds[1].Name)
	}

	if _, err := LoadFeeds(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Errorf("expected error for missing file")
	}
}

func TestDefaultFeedsAreComplete(t *testing.T) {
	seen := map[string]bool{}
	for _, f := range DefaultFeeds() {
		if f.Name == "" || f.URL == "" || f.Tier < 1 || f.Tier > 4 {
			t.Errorf("bad default feed %+v", f)
		}
		if seen[f.Name] {
			t.Errorf("duplicate feed name %q", f.Name)
		}
		seen[f.Name] = true
	}
}

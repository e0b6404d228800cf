package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/innov8academy/newsletter-auto/internal/news"
)

var base = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func report(id string, offset time.Duration) Report {
	return Report{
		ID:        id,
		CreatedAt: base.Add(offset),
		Stories: []news.CuratedStory{{
			ID:               "story-" + id,
			Headline:         "Headline " + id,
			Category:         news.CategoryModelRelease,
			BaseScore:        8,
			FinalScore:       9,
			Entities:         []string{"OpenAI"},
			Sources:          []string{"Feed A"},
			CrossSourceCount: 1,
			PublishedAt:      base,
			Boosts:           []string{"+1 (model_release)"},
		}},
		Stats: news.Stats{
			SourcesAnalyzed:    2,
			TotalArticlesFound: 10,
			ArticlesProcessed:  4,
			Breakdown:          []news.SourceStats{{SourceName: "Feed A", Found: 10, Kept: 4}},
		},
	}
}

// exerciseStore runs the behaviour shared by every Store implementation.
func exerciseStore(t *testing.T, s Store, setNow func(time.Time)) {
	t.Helper()
	ctx := context.Background()

	if _, err := s.LatestReport(ctx); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on empty store, got %v", err)
	}

	for _, r := range []Report{report("b", time.Hour), report("a", 0), report("c", 2*time.Hour)} {
		if err := s.SaveReport(ctx, r); err != nil {
			t.Fatalf("SaveReport(%s): %v", r.ID, err)
		}
	}

	latest, err := s.LatestReport(ctx)
	if err != nil {
		t.Fatalf("LatestReport: %v", err)
	}
	if latest.ID != "c" || !latest.CreatedAt.Equal(base.Add(2*time.Hour)) {
		t.Errorf("unexpected latest report %s at %v", latest.ID, latest.CreatedAt)
	}
	if len(latest.Stories) != 1 || latest.Stories[0].Headline != "Headline c" || latest.Stories[0].Category != news.CategoryModelRelease {
		t.Errorf("stories not round-tripped: %+v", latest.Stories)
	}
	if latest.Stats.Breakdown[0].Kept != 4 {
		t.Errorf("stats not round-tripped: %+v", latest.Stats)
	}

	list, err := s.ListReports(ctx, 2)
	if err != nil {
		t.Fatalf("ListReports: %v", err)
	}
	if len(list) != 2 || list[0].ID != "c" || list[1].ID != "b" {
		t.Errorf("unexpected report order %+v", list)
	}

	key := StoryKey("OpenAI releases GPT-5", "https://openai.com/blog/gpt-5")
	setNow(base)
	if sent, _ := s.IsAlreadySent(ctx, key); sent {
		t.Fatal("story reported as sent before MarkAsSent")
	}
	if err := s.MarkAsSent(ctx, key, "OpenAI releases GPT-5", "https://openai.com/blog/gpt-5"); err != nil {
		t.Fatalf("MarkAsSent: %v", err)
	}
	if sent, err := s.IsAlreadySent(ctx, key); err != nil || !sent {
		t.Errorf("expected story to be sent (err=%v)", err)
	}

	setNow(base.Add(25 * time.Hour))
	if sent, _ := s.IsAlreadySent(ctx, key); sent {
		t.Error("expected sent marker to expire after the ttl")
	}
	if err := s.Cleanup(ctx); err != nil {
		t.Fatalf("Cleanup: %v", err)
	}
}

func TestFileStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reports.json")
	fs := NewFileStore(path, 24*time.Hour)
	if err := fs.Load(); err != nil {
		t.Fatalf("Load on missing file: %v", err)
	}

	exerciseStore(t, fs, func(now time.Time) { fs.now = func() time.Time { return now } })

	reopened := NewFileStore(path, 24*time.Hour)
	if err := reopened.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	latest, err := reopened.LatestReport(context.Background())
	if err != nil || latest.ID != "c" {
		t.Errorf("expected reports to survive reopen, got %v (err=%v)", latest, err)
	}
	if len(reopened.sent) != 0 {
		t.Errorf("expected expired sent markers to be dropped, got %d", len(reopened.sent))
	}
}

func TestFileStoreKeepsNewestReports(t *testing.T) {
	fs := NewFileStore(filepath.Join(t.TempDir(), "reports.json"), time.Hour)
	fs.maxReports = 2

	for i, id := range []string{"1", "2", "3"} {
		if err := fs.SaveReport(context.Background(), report(id, time.Duration(i)*time.Hour)); err != nil {
			t.Fatal(err)
		}
	}

	list, _ := fs.ListReports(context.Background(), 0)
	if len(list) != 2 || list[0].ID != "3" || list[1].ID != "2" {
		t.Errorf("unexpected retained reports %+v", list)
	}
}

func TestSQLiteStore(t *testing.T) {
	s, err := OpenSQLite(":memory:", 24*time.Hour)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	defer s.Close()

	exerciseStore(t, s, func(now time.Time) { s.now = func() time.Time { return now } })
}

func TestSQLiteStoreReplacesReport(t *testing.T) {
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "reports.db"), time.Hour)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	defer s.Close()

	ctx := context.Background()
	r := report("same", 0)
	if err := s.SaveReport(ctx, r); err != nil {
		t.Fatal(err)
	}
	r.Stories = nil
	if err := s.SaveReport(ctx, r); err != nil {
		t.Fatal(err)
	}

	list, err := s.ListReports(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 || len(list[0].Stories) != 0 {
		t.Errorf("expected report to be replaced, got %+v", list)
	}
}

func TestOpen(t *testing.T) {
	s, err := Open(DriverNone, "", time.Hour)
	if err != nil || s != nil {
		t.Errorf("expected no store for driver none, got %v, %v", s, err)
	}

	if _, err := Open("postgres", "", time.Hour); err == nil {
		t.Error("expected unknown driver error")
	}

	fs, err := Open(DriverFile, filepath.Join(t.TempDir(), "r.json"), time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := fs.(*FileStore); !ok {
		t.Errorf("expected *FileStore, got %T", fs)
	}
}

func TestStoryKey(t *testing.T) {
	a := StoryKey("OpenAI releases GPT-5!", "https://www.openai.com/blog/a")
	b := StoryKey("openai releases  gpt5", "http://openai.com/other")
	if a != b {
		t.Error("expected normalized headline and domain to match")
	}
	if a == StoryKey("OpenAI releases GPT-5", "https://example.com/") {
		t.Error("expected different domains to differ")
	}
	if len(a) != 16 {
		t.Errorf("expected 16 char key, got %q", a)
	}
}

package news

import (
	"math/rand"
	"reflect"
	"strings"
	"testing"
	"testing/quick"
)

func TestSimilarity(t *testing.T) {
	tests := []struct {
		a, b string
		want float64
	}{
		{"OpenAI releases GPT-5", "OpenAI releases GPT-5", 1},
		{"OpenAI releases GPT-5", "openai RELEASES gpt5!", 1},
		{"OpenAI releases GPT-5", "GPT-5 launched by OpenAI today", 2.0 / 5.0},
		{"Big AI win", "New AI app", 0},
		{"", "OpenAI releases GPT-5", 0},
		{"Google acquires robotics startup", "Microsoft funds chip maker", 0},
	}

	for _, tt := range tests {
		if got := Similarity(tt.a, tt.b); got != tt.want {
			t.Errorf("Similarity(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

type headline string

var vocabulary = []string{
	"OpenAI", "openai", "GPT-5", "model", "launch", "launches", "the", "new",
	"Google", "Gemini", "release", "AI", "chips", "Nvidia", "funding", "robot",
}

func (headline) Generate(r *rand.Rand, size int) reflect.Value {
	words := make([]string, r.Intn(8))
	for i := range words {
		words[i] = vocabulary[r.Intn(len(vocabulary))]
	}
	return reflect.ValueOf(headline(strings.Join(words, " ")))
}

func TestSimilaritySymmetric(t *testing.T) {
	f := func(a, b headline) bool {
		return Similarity(string(a), string(b)) == Similarity(string(b), string(a))
	}
	if err := quick.Check(f, &quick.Config{MaxCount: 2000}); err != nil {
		t.Error(err)
	}
}

func TestSimilarityBounded(t *testing.T) {
	f := func(a, b headline) bool {
		s := Similarity(string(a), string(b))
		return s >= 0 && s <= 1
	}
	if err := quick.Check(f, nil); err != nil {
		t.Error(err)
	}
}

func TestMergeSameSourceIsIdempotent(t *testing.T) {
	ws := NewWorkingSet()
	raw := RawStory{Headline: "Anthropic launches Claude model", Summary: "s", Category: CategoryModelRelease, BaseScore: 7}

	first, merged := ws.MergeOrInsert(raw, "Feed A", testNow)
	if merged {
		t.Fatal("first insert reported as merge")
	}
	second, merged := ws.MergeOrInsert(raw, "Feed A", testNow)
	if !merged || second != first {
		t.Fatal("expected identical headline to merge into the existing story")
	}

	if ws.Len() != 1 {
		t.Fatalf("expected 1 story, got %d", ws.Len())
	}
	if first.CrossSourceCount != 1 || len(first.Sources) != 1 {
		t.Errorf("same source must not be counted twice: %+v", first)
	}

	ws.MergeOrInsert(raw, "Feed B", testNow)
	if first.CrossSourceCount != 2 || !reflect.DeepEqual(first.Sources, []string{"Feed A", "Feed B"}) {
		t.Errorf("expected second source to be recorded: %+v", first)
	}
	if first.CrossSourceCount != len(first.Sources) {
		t.Errorf("crossSourceCount out of sync with sources")
	}
}

func TestMergeHigherScoreReplacesHeadline(t *testing.T) {
	ws := NewWorkingSet()
	x := RawStory{
		Headline:    "Anthropic launches Claude four model",
		Summary:     "X summary",
		Category:    CategoryModelRelease,
		BaseScore:   6,
		Entities:    []string{"Anthropic"},
		OriginalURL: "https://x.example",
	}
	y := RawStory{
		Headline:    "Anthropic launches Claude four model today",
		Summary:     "Y summary",
		Category:    CategoryModelRelease,
		BaseScore:   8,
		Entities:    []string{"Claude"},
		OriginalURL: "https://y.example",
	}

	story, _ := ws.MergeOrInsert(x, "Feed X", testNow)
	id := story.ID
	if _, merged := ws.MergeOrInsert(y, "Feed Y", testNow); !merged {
		t.Fatal("expected merge")
	}

	if story.ID != id {
		t.Error("story id changed on merge")
	}
	if story.Headline != y.Headline || story.Summary != y.Summary || story.BaseScore != 8 {
		t.Errorf("expected higher scored variant to win: %+v", story)
	}
	if !reflect.DeepEqual(story.Sources, []string{"Feed X", "Feed Y"}) || story.CrossSourceCount != 2 {
		t.Errorf("unexpected sources %+v", story)
	}
	if !reflect.DeepEqual(story.Entities, []string{"Anthropic"}) || story.OriginalURL != "https://x.example" {
		t.Errorf("entities and url must stay with the first report: %+v", story)
	}
}

func TestMergeLowerScoreKeepsHeadline(t *testing.T) {
	ws := NewWorkingSet()
	story, _ := ws.MergeOrInsert(RawStory{Headline: "Nvidia unveils Blackwell chips", Summary: "first", BaseScore: 8}, "A", testNow)
	ws.MergeOrInsert(RawStory{Headline: "Nvidia unveils Blackwell chips", Summary: "second", BaseScore: 8}, "B", testNow)

	if story.Summary != "first" {
		t.Errorf("equal score must not replace summary, got %q", story.Summary)
	}
}

func TestMergeDistinctHeadlinesStaySeparate(t *testing.T) {
	ws := NewWorkingSet()
	ws.MergeOrInsert(RawStory{Headline: "OpenAI releases GPT-5", BaseScore: 9, Category: CategoryModelRelease}, "Feed A", testNow)
	ws.MergeOrInsert(RawStory{Headline: "GPT-5 launched by OpenAI today", BaseScore: 8, Category: CategoryModelRelease}, "Feed B", testNow)

	if ws.Len() != 2 {
		t.Fatalf("expected 2 distinct stories, got %d", ws.Len())
	}
	for _, s := range ws.Stories() {
		if s.CrossSourceCount != 1 {
			t.Errorf("unexpected cross source count for %q", s.Headline)
		}
	}
}

func TestMergeTieGoesToFirstInserted(t *testing.T) {
	ws := NewWorkingSet()
	first, _ := ws.MergeOrInsert(RawStory{Headline: "alpha bravo charlie delta", BaseScore: 5}, "A", testNow)
	second, _ := ws.MergeOrInsert(RawStory{Headline: "alpha bravo echo foxtrot", BaseScore: 5}, "B", testNow)
	if ws.Len() != 2 {
		t.Fatalf("setup stories merged unexpectedly")
	}

	got, merged := ws.MergeOrInsert(RawStory{Headline: "alpha bravo charlie echo", BaseScore: 5}, "C", testNow)
	if !merged || got != first {
		t.Errorf("expected tie to resolve to the first story")
	}
	if second.CrossSourceCount != 1 {
		t.Errorf("second story must be untouched")
	}
}

func TestMergePicksMostSimilar(t *testing.T) {
	ws := NewWorkingSet()
	ws.MergeOrInsert(RawStory{Headline: "alpha bravo charlie delta", BaseScore: 5}, "A", testNow)
	best, _ := ws.MergeOrInsert(RawStory{Headline: "alpha bravo charlie echo foxtrot", BaseScore: 5}, "B", testNow)
	if ws.Len() != 2 {
		t.Fatalf("setup stories merged unexpectedly")
	}

	// 4/6 against the second story, 3/6 against the first.
	got, _ := ws.MergeOrInsert(RawStory{Headline: "alpha bravo charlie echo golf", BaseScore: 5}, "C", testNow)
	if got != best {
		t.Errorf("expected merge into the most similar story, got %q", got.Headline)
	}
}

func TestInsertDefaults(t *testing.T) {
	ws := NewWorkingSet()
	s, _ := ws.MergeOrInsert(RawStory{Headline: "Something happened somewhere"}, "A", testNow)

	if s.ID == "" || s.BaseScore != DefaultBaseScore || s.Category != CategoryOther {
		t.Errorf("unexpected defaults %+v", s)
	}
	if s.Boosts == nil || s.Entities == nil || s.FinalScore != 0 {
		t.Errorf("expected empty boosts/entities and no final score: %+v", s)
	}
	if !s.PublishedAt.Equal(testNow) {
		t.Errorf("unexpected publishedAt %v", s.PublishedAt)
	}

	other, _ := ws.MergeOrInsert(RawStory{Headline: "Completely unrelated headline"}, "A", testNow)
	if other.ID == s.ID {
		t.Error("expected distinct ids")
	}
}

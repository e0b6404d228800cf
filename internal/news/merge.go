package news

import (
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/innov8academy/newsletter-auto/internal/rss"
)

const (
	// SimilarityThreshold is the Jaccard score a headline pair must exceed
	// to be treated as the same story.
	SimilarityThreshold = 0.5

	// Only words longer than this take part in similarity.
	MinWordLength = 3
)

type wordSet map[string]struct{}

func significantWords(headline string) wordSet {
	words := make(wordSet)
	for _, w := range strings.Fields(rss.NormalizeTitle(headline)) {
		if utf8.RuneCountInString(w) > MinWordLength {
			words[w] = struct{}{}
		}
	}
	return words
}

func jaccard(a, b wordSet) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	if len(a) > len(b) {
		a, b = b, a
	}

	shared := 0
	for w := range a {
		if _, ok := b[w]; ok {
			shared++
		}
	}
	return float64(shared) / float64(len(a)+len(b)-shared)
}

// Similarity returns the Jaccard similarity of the significant words of two
// headlines. Headlines without significant words are never similar.
func Similarity(a, b string) float64 {
	return jaccard(significantWords(a), significantWords(b))
}

type entry struct {
	story *CuratedStory
	words wordSet
}

// WorkingSet holds the distinct stories of one curation run in insertion
// order. It is not safe for concurrent use.
type WorkingSet struct {
	entries []*entry
	newID   func() string
}

func NewWorkingSet() *WorkingSet {
	return &WorkingSet{newID: uuid.NewString}
}

func (ws *WorkingSet) Len() int {
	return len(ws.entries)
}

// Stories returns the stories in insertion order. The pointers are live.
func (ws *WorkingSet) Stories() []*CuratedStory {
	out := make([]*CuratedStory, len(ws.entries))
	for i, e := range ws.entries {
		out[i] = e.story
	}
	return out
}

// MergeOrInsert folds candidate into the most similar existing story, or
// adds it as a new story when nothing exceeds SimilarityThreshold. Equal
// similarities resolve to the earliest inserted story. It reports whether a
// merge happened.
func (ws *WorkingSet) MergeOrInsert(candidate RawStory, sourceName string, publishedAt time.Time) (*CuratedStory, bool) {
	words := significantWords(candidate.Headline)

	var target *entry
	best := SimilarityThreshold
	for _, e := range ws.entries {
		if sim := jaccard(words, e.words); sim > best {
			best = sim
			target = e
		}
	}

	if target != nil {
		s := target.story
		if !slices.Contains(s.Sources, sourceName) {
			s.Sources = append(s.Sources, sourceName)
			s.CrossSourceCount++
		}

		// Entities and OriginalURL stay with the first report.
		if candidate.BaseScore > s.BaseScore {
			s.BaseScore = candidate.BaseScore
			s.Headline = candidate.Headline
			s.Summary = candidate.Summary
			target.words = words
		}
		return s, true
	}

	category := candidate.Category
	if !category.Valid() {
		category = CategoryOther
	}
	score := candidate.BaseScore
	if score == 0 {
		score = DefaultBaseScore
	}

	s := &CuratedStory{
		ID:               ws.newID(),
		Headline:         candidate.Headline,
		Summary:          candidate.Summary,
		Category:         category,
		BaseScore:        score,
		Entities:         append([]string{}, candidate.Entities...),
		OriginalURL:      candidate.OriginalURL,
		Sources:          []string{sourceName},
		CrossSourceCount: 1,
		PublishedAt:      publishedAt,
		Boosts:           []string{},
	}
	ws.entries = append(ws.entries, &entry{story: s, words: words})
	return s, false
}

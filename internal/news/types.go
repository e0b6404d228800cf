// Package news turns fetched feed items into a ranked list of curated
// stories: candidate sampling, LLM story extraction, cross-source
// deduplication and scoring.
package news

import (
	"strings"
	"time"
)

// Category is the closed set of story categories. Anything the model returns
// outside of it becomes CategoryOther.
type Category string

const (
	CategoryModelRelease Category = "model_release"
	CategoryToolLaunch   Category = "tool_launch"
	CategoryAcquisition  Category = "acquisition"
	CategoryResearch     Category = "research"
	CategoryFunding      Category = "funding"
	CategoryRegulation   Category = "regulation"
	CategoryTutorial     Category = "tutorial"
	CategoryIndustry     Category = "industry"
	CategoryCompanyNews  Category = "company_news"
	CategoryOther        Category = "other"
)

var knownCategories = map[Category]struct{}{
	CategoryModelRelease: {},
	CategoryToolLaunch:   {},
	CategoryAcquisition:  {},
	CategoryResearch:     {},
	CategoryFunding:      {},
	CategoryRegulation:   {},
	CategoryTutorial:     {},
	CategoryIndustry:     {},
	CategoryCompanyNews:  {},
	CategoryOther:        {},
}

// ParseCategory maps free text ("Model Release", "tool-launch") onto the
// enumeration, defaulting to CategoryOther.
func ParseCategory(s string) Category {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.NewReplacer(" ", "_", "-", "_").Replace(s)

	c := Category(s)
	if _, ok := knownCategories[c]; ok {
		return c
	}
	return CategoryOther
}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	_, ok := knownCategories[c]
	return ok
}

// RawStory is a story proposed by the extractor before deduplication.
type RawStory struct {
	Headline    string   `json:"headline"`
	Summary     string   `json:"summary"`
	Category    Category `json:"category"`
	BaseScore   int      `json:"baseScore"`
	Entities    []string `json:"entities"`
	OriginalURL string   `json:"originalUrl,omitempty"`
}

// CuratedStory is one distinct story after merging, possibly reported by
// several sources. FinalScore and Boosts are only set by ScoreAll.
type CuratedStory struct {
	ID               string    `json:"id"`
	Headline         string    `json:"headline"`
	Summary          string    `json:"summary"`
	Category         Category  `json:"category"`
	BaseScore        int       `json:"baseScore"`
	FinalScore       int       `json:"finalScore"`
	Entities         []string  `json:"entities"`
	OriginalURL      string    `json:"originalUrl,omitempty"`
	Sources          []string  `json:"sources"`
	CrossSourceCount int       `json:"crossSourceCount"`
	PublishedAt      time.Time `json:"publishedAt"`
	Boosts           []string  `json:"boosts"`
}

func (s *CuratedStory) clone() CuratedStory {
	out := *s
	out.Entities = append([]string(nil), s.Entities...)
	out.Sources = append([]string(nil), s.Sources...)
	out.Boosts = append([]string{}, s.Boosts...)
	return out
}

// SourceStats counts the items one feed delivered and how many were analysed.
type SourceStats struct {
	SourceName string `json:"sourceName"`
	Found      int    `json:"found"`
	Kept       int    `json:"kept"`
}

// Stats summarises one run for display.
type Stats struct {
	SourcesAnalyzed    int           `json:"sourcesAnalyzed"`
	TotalArticlesFound int           `json:"totalArticlesFound"`
	ArticlesProcessed  int           `json:"articlesProcessed"`
	Breakdown          []SourceStats `json:"breakdown"`
}

// Result is the output of one curation run.
type Result struct {
	Stories []CuratedStory `json:"stories"`
	Stats   Stats          `json:"stats"`
}

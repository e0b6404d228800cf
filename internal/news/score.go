package news

import (
	"fmt"
	"sort"
	"time"
)

const (
	MaxScore        = 10
	DefaultMinScore = 6
	RecencyWindow   = 12 * time.Hour
)

// major_update carries a weight but is never produced by ParseCategory.
const categoryMajorUpdate Category = "major_update"

var categoryBoosts = map[Category]int{
	CategoryModelRelease: 1,
	CategoryAcquisition:  1,
	categoryMajorUpdate:  1,
}

// Score computes FinalScore and Boosts for s. Boosts are applied in a fixed
// order (cross-source, category, recency) and the total is capped at
// MaxScore.
func Score(s *CuratedStory, now time.Time) {
	final := s.BaseScore
	boosts := []string{}

	switch {
	case s.CrossSourceCount >= 3:
		final += 2
		boosts = append(boosts, "+2 (3+ sources)")
	case s.CrossSourceCount == 2:
		final++
		boosts = append(boosts, "+1 (2 sources)")
	}

	if b := categoryBoosts[s.Category]; b > 0 {
		final += b
		boosts = append(boosts, fmt.Sprintf("+%d (%s)", b, s.Category))
	}

	if now.Sub(s.PublishedAt) < RecencyWindow {
		final++
		boosts = append(boosts, "+1 (recent)")
	}

	s.FinalScore = min(final, MaxScore)
	s.Boosts = boosts
}

func ScoreAll(stories []*CuratedStory, now time.Time) {
	for _, s := range stories {
		Score(s, now)
	}
}

// RankAndFilter returns copies of the stories scoring at least minScore,
// highest first. Equal scores keep their input order.
func RankAndFilter(stories []*CuratedStory, minScore int) []CuratedStory {
	out := make([]CuratedStory, 0, len(stories))
	for _, s := range stories {
		if s.FinalScore >= minScore {
			out = append(out, s.clone())
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].FinalScore > out[j].FinalScore
	})
	return out
}

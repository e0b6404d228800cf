package news

import (
	"sort"

	"github.com/innov8academy/newsletter-auto/internal/rss"
)

const (
	DefaultPerSourceQuota = 2
	DefaultMaxCandidates  = 20
)

// SelectCandidates picks the items worth sending to the LLM. Sources take
// turns: every source contributes its newest item before any source
// contributes a second one, up to perSourceQuota each. Remaining slots up to
// totalCap go to the newest items overall. The result is newest first.
//
// Non-positive arguments fall back to the defaults.
func SelectCandidates(items []rss.NewsItem, perSourceQuota, totalCap int) []rss.NewsItem {
	if perSourceQuota <= 0 {
		perSourceQuota = DefaultPerSourceQuota
	}
	if totalCap <= 0 {
		totalCap = DefaultMaxCandidates
	}

	var order []string
	groups := make(map[string][]int)
	for i, item := range items {
		if _, ok := groups[item.SourceName]; !ok {
			order = append(order, item.SourceName)
		}
		groups[item.SourceName] = append(groups[item.SourceName], i)
	}
	for _, idx := range groups {
		sortNewestFirst(items, idx)
	}

	picked := make([]int, 0, totalCap)
	selected := make(map[int]bool)
	seenURLs := make(map[string]bool)

	take := func(i int) bool {
		if selected[i] {
			return false
		}
		if u := items[i].URL; u != "" {
			if seenURLs[u] {
				return false
			}
			seenURLs[u] = true
		}
		selected[i] = true
		picked = append(picked, i)
		return true
	}

	// Breadth pass. Each round is ordered by recency so that when the cap
	// cuts a round short, the newest sources win the remaining slots.
	for round := 0; round < perSourceQuota && len(picked) < totalCap; round++ {
		var tier []int
		for _, src := range order {
			if idx := groups[src]; round < len(idx) {
				tier = append(tier, idx[round])
			}
		}
		sortNewestFirst(items, tier)
		for _, i := range tier {
			if len(picked) == totalCap {
				break
			}
			take(i)
		}
	}

	// Fill pass.
	if len(picked) < totalCap {
		rest := make([]int, 0, len(items))
		for i := range items {
			if !selected[i] {
				rest = append(rest, i)
			}
		}
		sortNewestFirst(items, rest)
		for _, i := range rest {
			if len(picked) == totalCap {
				break
			}
			take(i)
		}
	}

	sortNewestFirst(items, picked)

	out := make([]rss.NewsItem, len(picked))
	for n, i := range picked {
		out[n] = items[i]
	}
	return out
}

func sortNewestFirst(items []rss.NewsItem, idx []int) {
	sort.SliceStable(idx, func(a, b int) bool {
		return items[idx[a]].PublishedAt.After(items[idx[b]].PublishedAt)
	})
}

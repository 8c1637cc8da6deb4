package units

import (
	"sort"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

// maxSuggestDistance bounds the edit distance of a fallback suggestion.
const maxSuggestDistance = 2

// Suggest returns the registered symbol closest to symbol, or "" when nothing
// is close enough.
func (g *Glossary) Suggest(symbol string) string {
	if symbol == "" {
		return ""
	}
	candidates := g.Symbols()
	if len(candidates) == 0 {
		return ""
	}

	// symbol typed as an abbreviation of a longer registered symbol
	ranks := fuzzy.RankFindFold(symbol, candidates)
	if len(ranks) > 0 {
		sort.Sort(ranks)
		return ranks[0].Target
	}

	// otherwise, the nearest typo
	best, bestDist := "", maxSuggestDistance+1
	for _, c := range candidates {
		if d := fuzzy.LevenshteinDistance(symbol, c); d < bestDist {
			best, bestDist = c, d
		}
	}
	return best
}

package ui

import (
	"sort"
	"strings"

	"github.com/junegunn/fzf/src/algo"
	"github.com/junegunn/fzf/src/util"
)

func init() {
	// Configure the bonus scoring tables; fzf does this from its own
	// option parsing, which we bypass.
	algo.Init("default")
}

// FuzzyResult is one fuzzy match: score plus the rune positions that
// matched, for per-rune highlighting.
type FuzzyResult struct {
	Score     int
	Positions []int
}

// FuzzyMatch runs fzf's V2 matcher case-insensitively. A zero score
// means no match. slab may be nil; passing one amortizes allocations
// across calls.
func FuzzyMatch(text string, pattern []rune, slab *util.Slab) FuzzyResult {
	if len(pattern) == 0 {
		return FuzzyResult{}
	}
	lowered := strings.ToLower(text)
	loweredPattern := []rune(strings.ToLower(string(pattern)))

	chars := util.ToChars([]byte(lowered))
	result, positions := algo.FuzzyMatchV2(false, true, true, &chars, loweredPattern, true, slab)
	if result.Score <= 0 {
		return FuzzyResult{}
	}
	out := FuzzyResult{Score: result.Score}
	if positions != nil {
		out.Positions = *positions
	}
	return out
}

// SearchHit is one ring line matching a search query.
type SearchHit struct {
	Index     int // index into the ring at search time
	Line      Line
	Score     int
	Positions []int // rune positions within SearchText(Line)
}

// SearchText is the string the search matches and highlights against.
func SearchText(l Line) string {
	if l.Kind == LineChat {
		return l.Author + ": " + l.Text
	}
	return l.Text
}

// SearchRing fuzzy-matches query against every line of the ring and
// returns hits best-first. An empty query matches nothing.
func SearchRing(r *Ring, query string, slab *util.Slab) []SearchHit {
	pattern := []rune(strings.TrimSpace(query))
	if len(pattern) == 0 {
		return nil
	}
	var hits []SearchHit
	for i, l := range r.Lines() {
		res := FuzzyMatch(SearchText(l), pattern, slab)
		if res.Score <= 0 {
			continue
		}
		hits = append(hits, SearchHit{Index: i, Line: l, Score: res.Score, Positions: res.Positions})
	}
	sort.SliceStable(hits, func(a, b int) bool { return hits[a].Score > hits[b].Score })
	return hits
}

package search

import (
	"sort"
	"strings"
)

// Keyword match weights per query term.
const (
	titleWeight   = 10
	urlWeight     = 5
	snippetWeight = 3
)

// Fixed authority bonuses for recognized high-quality domains.
const (
	authorityBonus = 15
	techBonus      = 10
)

// minTermLength filters noise words out of scoring. Terms shorter than
// this never contribute to a score.
const minTermLength = 3

// authorityDomains are encyclopedic and institutional sources.
var authorityDomains = []string{
	"wikipedia.org",
	"britannica.com",
	"nature.com",
	"sciencedirect.com",
}

// techDomains are code-hosting and Q&A sources.
var techDomains = []string{
	"github.com",
	"stackoverflow.com",
	"stackexchange.com",
	"developer.mozilla.org",
}

// Rank sorts results descending by relevance to the query terms. The
// sort is stable, so ties preserve the providers' original relative
// order. Rank is deterministic and side-effect-free: the input slice
// is not modified.
func Rank(results []Result, queryTerms []string) []Result {
	if len(results) < 2 {
		return results
	}

	terms := make([]string, 0, len(queryTerms))
	for _, t := range queryTerms {
		t = strings.ToLower(strings.TrimSpace(t))
		if len([]rune(t)) >= minTermLength {
			terms = append(terms, t)
		}
	}

	type scored struct {
		result Result
		score  int
	}
	entries := make([]scored, len(results))
	for i, r := range results {
		entries[i] = scored{result: r, score: score(r, terms)}
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].score > entries[j].score
	})

	ranked := make([]Result, len(entries))
	for i, e := range entries {
		ranked[i] = e.result
	}
	return ranked
}

// score computes the relevance score for one result.
func score(r Result, terms []string) int {
	title := strings.ToLower(r.Title)
	url := strings.ToLower(r.URL)
	snippet := strings.ToLower(r.Snippet)

	var s int
	for _, t := range terms {
		if strings.Contains(title, t) {
			s += titleWeight
		}
		if strings.Contains(url, t) {
			s += urlWeight
		}
		if strings.Contains(snippet, t) {
			s += snippetWeight
		}
	}

	for _, d := range authorityDomains {
		if strings.Contains(url, d) {
			s += authorityBonus
			break
		}
	}
	for _, d := range techDomains {
		if strings.Contains(url, d) {
			s += techBonus
			break
		}
	}
	return s
}

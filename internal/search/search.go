// Package search implements the web search retrieval orchestrator.
//
// A free-text query flows through the [Orchestrator]: language
// detection, cache lookup, optional LLM query optimization, dispatch
// through the provider fallback [Chain] (a quota-limited commercial
// API, then a pool of self-hosted instances), domain post-filtering,
// deterministic re-ranking, and optional page content enrichment.
//
// Providers implement the [Provider] interface and are assembled into
// an explicit ordered chain at construction — the chain tries each in
// strict priority order and returns the first non-empty result set.
// Total provider exhaustion is a valid "no results" outcome, never an
// error to the caller.
package search

import (
	"context"
	"strconv"
	"strings"
)

// Result is a single search result. URL is the natural identity for
// deduplication. When content enrichment is enabled, Snippet is
// replaced by the fetched page text.
type Result struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet,omitempty"`
}

// TimeRange restricts results to a recency window.
type TimeRange string

// Supported time-range filters.
const (
	TimeRangeNone  TimeRange = ""
	TimeRangeDay   TimeRange = "day"
	TimeRangeWeek  TimeRange = "week"
	TimeRangeMonth TimeRange = "month"
	TimeRangeYear  TimeRange = "year"
)

// Options are per-search parameters. The zero value is usable; the
// orchestrator fills defaults.
type Options struct {
	// MaxResults is the maximum number of results to return (default 7).
	MaxResults int `json:"max_results,omitempty"`

	// IncludeDomains keeps only results whose URL contains one of
	// these domains. Self-hosted instances frequently ignore domain
	// query syntax, so this is always enforced locally.
	IncludeDomains []string `json:"include_domains,omitempty"`

	// ExcludeDomains drops results whose URL contains one of these
	// domains.
	ExcludeDomains []string `json:"exclude_domains,omitempty"`

	// TimeRange restricts result recency.
	TimeRange TimeRange `json:"time_range,omitempty"`

	// OptimizeQuery rewrites the query into compact keywords via the
	// LLM before dispatch.
	OptimizeQuery bool `json:"optimize_query,omitempty"`

	// FetchFullContent replaces snippets with extracted page text.
	FetchFullContent bool `json:"fetch_full_content,omitempty"`

	// MultiQuery dispatches the optimized and the original query
	// concurrently and merges by first-seen URL.
	MultiQuery bool `json:"multi_query,omitempty"`

	// ReRank sorts results by local relevance score.
	ReRank bool `json:"re_rank,omitempty"`

	// MaxContentLength is the per-page character budget for content
	// enrichment (default 1000).
	MaxContentLength int `json:"max_content_length,omitempty"`

	// ExpertContext is a free-text domain hint appended to the
	// optimization prompt.
	ExpertContext string `json:"expert_context,omitempty"`

	// Language is the two-letter result language. Empty means detect
	// from the query.
	Language string `json:"language,omitempty"`
}

// Query is the immutable per-call query value: the raw user text, the
// detected language, and the derived optimized text (which may equal
// the raw text).
type Query struct {
	Raw       string
	Language  string
	Optimized string
}

// Provider is the interface search backends implement.
type Provider interface {
	// Name returns the provider identifier (e.g. "brave", "searxng").
	Name() string

	// Search executes a query and returns results. An error means
	// this provider could not serve the call; the chain advances to
	// the next one.
	Search(ctx context.Context, query string, opts Options) ([]Result, error)
}

// filterDomains applies include/exclude domain lists to results.
// Matching is a case-insensitive substring test against the URL, which
// also covers subdomains.
func filterDomains(results []Result, include, exclude []string) []Result {
	if len(include) == 0 && len(exclude) == 0 {
		return results
	}

	out := make([]Result, 0, len(results))
	for _, r := range results {
		u := strings.ToLower(r.URL)
		if len(include) > 0 && !containsAnyDomain(u, include) {
			continue
		}
		if len(exclude) > 0 && containsAnyDomain(u, exclude) {
			continue
		}
		out = append(out, r)
	}
	return out
}

func containsAnyDomain(u string, domains []string) bool {
	for _, d := range domains {
		if d == "" {
			continue
		}
		if strings.Contains(u, strings.ToLower(d)) {
			return true
		}
	}
	return false
}

// dedupeByURL merges result lists keeping the first-encountered entry
// per URL.
func dedupeByURL(lists ...[]Result) []Result {
	seen := make(map[string]bool)
	var out []Result
	for _, list := range lists {
		for _, r := range list {
			if r.URL == "" || seen[r.URL] {
				continue
			}
			seen[r.URL] = true
			out = append(out, r)
		}
	}
	return out
}

// FormatResults builds a human-readable result listing for the CLI.
func FormatResults(results []Result) string {
	if len(results) == 0 {
		return "No results found."
	}

	var b strings.Builder
	for i, r := range results {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(strconv.Itoa(i + 1))
		b.WriteString(". ")
		b.WriteString(r.Title)
		b.WriteString("\n   ")
		b.WriteString(r.URL)
		if r.Snippet != "" {
			b.WriteString("\n   ")
			b.WriteString(r.Snippet)
		}
	}
	return b.String()
}

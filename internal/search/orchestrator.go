package search

import (
	"context"
	"fmt"
	"hash/fnv"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nugget/searchhub/internal/cache"
	"github.com/nugget/searchhub/internal/fetch"
)

// Cache tiers. Search result lists are keyed by normalized query plus
// an option digest; page content is keyed by URL and cached inside the
// fetcher.
const (
	resultCacheSize = 100
	resultCacheTTL  = 15 * time.Minute

	contentCacheSize = 50
	contentCacheTTL  = 30 * time.Minute
)

// Fan-out defaults: a small fixed worker pool with a bounded per-task
// timeout. A task that misses its deadline is abandoned and its
// results are simply not merged.
const (
	defaultWorkers      = 3
	defaultQueryTimeout = 15 * time.Second
)

// OrchestratorConfig controls orchestrator behavior. The zero value
// gets sensible defaults.
type OrchestratorConfig struct {
	// DefaultLanguage wins language-detection ties ("de" or "en").
	DefaultLanguage string

	// Workers is the fan-out pool size for multi-query dispatch.
	Workers int

	// QueryTimeout bounds each dispatched query.
	QueryTimeout time.Duration
}

func (c *OrchestratorConfig) applyDefaults() {
	if c.DefaultLanguage == "" {
		c.DefaultLanguage = "de"
	}
	if c.Workers <= 0 {
		c.Workers = defaultWorkers
	}
	if c.QueryTimeout <= 0 {
		c.QueryTimeout = defaultQueryTimeout
	}
}

// Orchestrator is the top-level search coordinator. It owns the
// dual-tier cache and wires the optimizer, the provider chain, and the
// content fetcher together. Safe for concurrent use.
type Orchestrator struct {
	chain     *Chain
	optimizer *Optimizer
	fetcher   *fetch.Fetcher

	resultCache  *cache.Cache[string, []Result]
	contentCache *cache.Cache[string, string]

	logger *slog.Logger
	config OrchestratorConfig
}

// NewOrchestrator creates an orchestrator around a provider chain and
// an optimizer. The optimizer may be nil when no LLM is configured.
func NewOrchestrator(chain *Chain, optimizer *Optimizer, logger *slog.Logger, cfg OrchestratorConfig) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	cfg.applyDefaults()

	logger = logger.With("component", "orchestrator")
	contentCache := cache.New[string, string](contentCacheSize, contentCacheTTL)

	return &Orchestrator{
		chain:        chain,
		optimizer:    optimizer,
		fetcher:      fetch.NewFetcher(contentCache, logger),
		resultCache:  cache.New[string, []Result](resultCacheSize, resultCacheTTL),
		contentCache: contentCache,
		logger:       logger,
		config:       cfg,
	}
}

// Search runs the full retrieval pipeline and returns a ranked,
// possibly empty, result list. Provider-level failures never surface
// to the caller.
func (o *Orchestrator) Search(ctx context.Context, rawQuery string, opts Options) []Result {
	rawQuery = strings.TrimSpace(rawQuery)
	if rawQuery == "" {
		return nil
	}
	if opts.MaxResults <= 0 {
		opts.MaxResults = 7
	}
	if opts.MaxContentLength <= 0 {
		opts.MaxContentLength = 1000
	}

	requestID := uuid.NewString()
	logger := o.logger.With("request_id", requestID)

	q := Query{
		Raw:       rawQuery,
		Language:  opts.Language,
		Optimized: rawQuery,
	}
	if q.Language == "" {
		q.Language = DetectLanguage(rawQuery, o.config.DefaultLanguage)
	}
	opts.Language = q.Language

	if opts.OptimizeQuery && o.optimizer != nil {
		if o.optimizer.Available(ctx) {
			q.Optimized = o.optimizer.Optimize(ctx, q.Raw, q.Language, opts.ExpertContext)
		} else if opts.ExpertContext != "" {
			q.Optimized = q.Raw + " " + opts.ExpertContext
		}
	}

	key := cacheKey(q.Optimized, opts)
	if cached, ok := o.resultCache.Get(key); ok {
		logger.Debug("cache hit", "query", q.Optimized)
		out := make([]Result, len(cached))
		copy(out, cached)
		return out
	}

	logger.Info("searching",
		"query", q.Raw,
		"optimized", q.Optimized,
		"language", q.Language,
		"multi_query", opts.MultiQuery,
	)

	var results []Result
	if opts.MultiQuery && q.Optimized != q.Raw {
		results = o.fanOut(ctx, []string{q.Optimized, q.Raw}, opts)
	} else {
		qctx, cancel := context.WithTimeout(ctx, o.config.QueryTimeout)
		results = o.chain.Execute(qctx, q.Optimized, opts)
		cancel()
	}

	// The self-hosted tier filters include-domains per instance, but
	// the commercial tier and the merged multi-query set still need a
	// local pass, and exclude-domains are only enforced here.
	results = filterDomains(results, opts.IncludeDomains, opts.ExcludeDomains)
	if len(results) > opts.MaxResults {
		results = results[:opts.MaxResults]
	}

	if opts.ReRank && len(results) > 1 {
		results = Rank(results, strings.Fields(q.Optimized))
	}

	if opts.FetchFullContent {
		o.enrich(ctx, results, opts.MaxContentLength)
	}

	if len(results) > 0 {
		// Cache a copy so callers mutating the returned slice cannot
		// corrupt the cached entry.
		stored := make([]Result, len(results))
		copy(stored, results)
		o.resultCache.Put(key, stored)
	}

	logger.Info("search complete", "results", len(results))
	return results
}

// fanOut dispatches each query through the chain from a bounded worker
// pool and merges the result lists by first-seen URL. Each task has
// its own timeout; a task that overruns contributes nothing.
func (o *Orchestrator) fanOut(ctx context.Context, queries []string, opts Options) []Result {
	workers := o.config.Workers
	if workers > len(queries) {
		workers = len(queries)
	}

	jobs := make(chan string)
	lists := make(chan []Result, len(queries))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for query := range jobs {
				qctx, cancel := context.WithTimeout(ctx, o.config.QueryTimeout)
				lists <- o.chain.Execute(qctx, query, opts)
				cancel()
			}
		}()
	}

	for _, query := range queries {
		jobs <- query
	}
	close(jobs)
	wg.Wait()
	close(lists)

	collected := make([][]Result, 0, len(queries))
	for list := range lists {
		collected = append(collected, list)
	}
	merged := dedupeByURL(collected...)
	if len(merged) > opts.MaxResults {
		merged = merged[:opts.MaxResults]
	}
	return merged
}

// enrich replaces each result's snippet with fetched page content.
// Fetches run in parallel; a failed fetch keeps the original snippet
// and never drops the result.
func (o *Orchestrator) enrich(ctx context.Context, results []Result, maxLength int) {
	var wg sync.WaitGroup
	for i := range results {
		wg.Add(1)
		go func(r *Result) {
			defer wg.Done()
			if text, ok := o.fetcher.Fetch(ctx, r.URL, maxLength); ok && text != "" {
				r.Snippet = text
			}
		}(&results[i])
	}
	wg.Wait()
}

// ClearCaches empties both cache tiers.
func (o *Orchestrator) ClearCaches() {
	o.resultCache.Clear()
	o.contentCache.Clear()
	o.logger.Info("caches cleared")
}

// CacheStats returns current entry counts per tier.
func (o *Orchestrator) CacheStats() map[string]int {
	return map[string]int{
		"results": o.resultCache.Len(),
		"content": o.contentCache.Len(),
	}
}

// cacheKey derives the result-cache key from the normalized query and
// a digest of the options that change what a provider returns, so
// differently-configured searches for the same text do not collide.
func cacheKey(query string, opts Options) string {
	h := fnv.New32a()
	fmt.Fprintf(h, "%d|%s", opts.MaxResults, opts.TimeRange)
	return strings.ToLower(strings.TrimSpace(query)) + "#" + strconv.FormatUint(uint64(h.Sum32()), 16)
}

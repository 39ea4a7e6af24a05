// Package fetch provides web page fetching and content extraction for
// search result enrichment. It downloads a URL's HTML, extracts
// readable text (stripping navigation, ads, and other boilerplate),
// and caches the untruncated text so a later call with a larger length
// budget can reuse it.
package fetch

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/nugget/searchhub/internal/buildinfo"
	"github.com/nugget/searchhub/internal/cache"
	"github.com/nugget/searchhub/internal/httpkit"
)

// DefaultTimeout is the HTTP request timeout for fetching pages.
// Enrichment failures are local to one result, so pages that take
// longer than this are simply skipped.
const DefaultTimeout = 10 * time.Second

// DefaultMaxBytes is the maximum response body size (5 MB).
const DefaultMaxBytes int64 = 5 * 1024 * 1024

// Ellipsis marks truncated content.
const Ellipsis = "..."

// Fetcher downloads and extracts readable content from web pages,
// backed by a TTL cache keyed by URL.
type Fetcher struct {
	client   *http.Client
	cache    *cache.Cache[string, string]
	logger   *slog.Logger
	maxBytes int64
}

// NewFetcher creates a Fetcher. The cache holds untruncated extracted
// text; pass the orchestrator's content-tier cache. A nil cache
// disables caching.
func NewFetcher(contentCache *cache.Cache[string, string], logger *slog.Logger) *Fetcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Fetcher{
		client: httpkit.NewClient(
			httpkit.WithTimeout(DefaultTimeout),
			httpkit.WithUserAgent(buildinfo.BrowserUserAgent),
		),
		cache:    contentCache,
		logger:   logger.With("component", "fetch"),
		maxBytes: DefaultMaxBytes,
	}
}

// Fetch returns the page's extracted text truncated to maxLength
// characters, and whether usable content was found. Failures (timeout,
// non-200, parse error, empty extraction) return ("", false) and are
// logged at debug level — they never fail the surrounding search.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string, maxLength int) (string, bool) {
	if rawURL == "" {
		return "", false
	}

	if f.cache != nil {
		if text, ok := f.cache.Get(rawURL); ok {
			return truncate(text, maxLength), true
		}
	}

	text, ok := f.download(ctx, rawURL)
	if !ok {
		return "", false
	}

	if f.cache != nil {
		// Cache the full text, not the truncated view, so a later
		// call with a larger budget gets a hit.
		f.cache.Put(rawURL, text)
	}
	return truncate(text, maxLength), true
}

func (f *Fetcher) download(ctx context.Context, rawURL string) (string, bool) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		f.logger.Debug("invalid url", "url", rawURL, "error", err)
		return "", false
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,text/plain;q=0.8,*/*;q=0.7")
	req.Header.Set("Accept-Language", "de-DE,de;q=0.9,en;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		f.logger.Debug("fetch failed", "url", rawURL, "error", err)
		return "", false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		f.logger.Debug("fetch non-200", "url", rawURL, "status", resp.StatusCode)
		httpkit.DrainAndClose(resp.Body, 1024)
		return "", false
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes))
	if err != nil {
		f.logger.Debug("fetch read failed", "url", rawURL, "error", err)
		return "", false
	}

	text := extractHTML(string(body))
	if strings.TrimSpace(text) == "" {
		f.logger.Debug("fetch produced no text", "url", rawURL)
		return "", false
	}
	return text, true
}

// truncate limits s to maxLength characters, appending an ellipsis
// marker when content was cut. maxLength <= 0 means no limit. The cut
// point never splits a multi-byte character.
func truncate(s string, maxLength int) string {
	if maxLength <= 0 || len(s) <= maxLength {
		return s
	}

	count := 0
	for i := range s {
		if count >= maxLength {
			return s[:i] + Ellipsis
		}
		count++
	}
	return s
}

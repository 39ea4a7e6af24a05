package search

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/nugget/searchhub/internal/buildinfo"
	"github.com/nugget/searchhub/internal/httpkit"
	"github.com/nugget/searchhub/internal/quota"
)

// DefaultSearXNGInstances is the built-in public instance list, tried
// in order when no custom instances are configured. Public instances
// rate-limit aggressively, which is why there are several.
var DefaultSearXNGInstances = []string{
	"https://searx.be",
	"https://search.brave4u.com",
	"https://priv.au",
	"https://search.inetol.net",
	"https://opnxng.com",
}

// SearXNG implements the Provider interface over an ordered pool of
// self-hosted instances. Each instance is tried in turn; rate limits,
// malformed responses (an HTML error page where JSON was expected),
// and result sets emptied by domain filtering all advance to the next
// instance.
type SearXNG struct {
	instances  []string
	ledger     *quota.Ledger
	httpClient *http.Client
	logger     *slog.Logger
}

// NewSearXNG creates a SearXNG pool provider. An empty instance list
// uses [DefaultSearXNGInstances].
func NewSearXNG(instances []string, ledger *quota.Ledger, logger *slog.Logger) *SearXNG {
	if len(instances) == 0 {
		instances = DefaultSearXNGInstances
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SearXNG{
		instances: instances,
		ledger:    ledger,
		logger:    logger.With("provider", "searxng"),
		httpClient: httpkit.NewClient(
			httpkit.WithTimeout(10*time.Second),
			// Public instances answer obvious API clients with an
			// HTML rate-limit page.
			httpkit.WithUserAgent(buildinfo.BrowserUserAgent),
		),
	}
}

func (s *SearXNG) Name() string { return "searxng" }

// searxngResponse is the JSON response from an instance's /search
// endpoint.
type searxngResponse struct {
	Results []searxngResult `json:"results"`
}

type searxngResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Content string `json:"content"`
}

func (s *SearXNG) Search(ctx context.Context, query string, opts Options) ([]Result, error) {
	var lastErr error
	for _, instance := range s.instances {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		results, err := s.searchInstance(ctx, instance, query, opts)
		if err != nil {
			s.logger.Debug("instance unavailable", "instance", instance, "error", err)
			lastErr = err
			continue
		}

		// Self-hosted instances frequently ignore domain-restriction
		// query syntax, so include-domains are always enforced here.
		// When filtering removes everything the instance had, the
		// next instance may still produce usable results.
		filtered := filterDomains(results, opts.IncludeDomains, nil)
		if len(filtered) == 0 {
			if len(results) > 0 {
				s.logger.Debug("domain filter removed all results, trying next instance",
					"instance", instance, "unfiltered", len(results))
			}
			continue
		}

		if s.ledger != nil {
			s.ledger.RecordUse(s.Name())
		}
		return filtered, nil
	}

	if lastErr != nil {
		return nil, fmt.Errorf("searxng: all instances failed: %w", lastErr)
	}
	return nil, fmt.Errorf("searxng: no instance returned results")
}

func (s *SearXNG) searchInstance(ctx context.Context, instance, query string, opts Options) ([]Result, error) {
	params := url.Values{
		"q":      {query},
		"format": {"json"},
	}
	lang := opts.Language
	if lang == "" {
		lang = "de"
	}
	params.Set("language", lang)
	if opts.TimeRange != TimeRangeNone {
		params.Set("time_range", string(opts.TimeRange))
	}

	reqURL := strings.TrimRight(instance, "/") + "/search?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		httpkit.DrainAndClose(resp.Body, 1024)
		return nil, fmt.Errorf("rate limited")
	}
	if resp.StatusCode != http.StatusOK {
		body := httpkit.ReadErrorBody(resp.Body, 256)
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, body)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 2*1024*1024))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if softFailure(body) {
		return nil, fmt.Errorf("instance returned an error page instead of JSON")
	}

	var sr searxngResponse
	if err := json.Unmarshal(body, &sr); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	count := opts.MaxResults
	if count <= 0 {
		count = 7
	}
	results := make([]Result, 0, count)
	for i, r := range sr.Results {
		if i >= count {
			break
		}
		results = append(results, Result{
			Title:   r.Title,
			URL:     r.URL,
			Snippet: r.Content,
		})
	}
	return results, nil
}

// softFailure detects instances that answer with an HTML error page or
// a short rate-limit message where JSON was expected. The rate-limit
// text check only applies to short bodies so a legitimate result set
// that merely mentions rate limiting is not misclassified.
func softFailure(body []byte) bool {
	trimmed := strings.TrimSpace(string(body))
	if strings.HasPrefix(trimmed, "<!DOCTYPE") || strings.HasPrefix(trimmed, "<html") {
		return true
	}
	if len(trimmed) < 512 {
		lower := strings.ToLower(trimmed)
		return strings.Contains(lower, "too many requests") || strings.Contains(lower, "rate limit")
	}
	return false
}

package search

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/nugget/searchhub/internal/httpkit"
	"github.com/nugget/searchhub/internal/quota"
)

const braveAPIURL = "https://api.search.brave.com/res/v1/web/search"

// braveFreshness maps time ranges onto Brave's freshness parameter.
var braveFreshness = map[TimeRange]string{
	TimeRangeDay:   "pd",
	TimeRangeWeek:  "pw",
	TimeRangeMonth: "pm",
	TimeRangeYear:  "py",
}

// Brave implements the Provider interface for the Brave Search API.
// Calls are accounted against a monthly quota via the ledger; when the
// key is missing or the quota is spent, Search declines immediately so
// the chain moves on to the self-hosted pool.
type Brave struct {
	apiKey       string
	monthlyLimit int
	ledger       *quota.Ledger
	httpClient   *http.Client
	logger       *slog.Logger
	baseURL      string
}

// NewBrave creates a Brave Search provider.
func NewBrave(apiKey string, monthlyLimit int, ledger *quota.Ledger, logger *slog.Logger) *Brave {
	if logger == nil {
		logger = slog.Default()
	}
	return &Brave{
		apiKey:       apiKey,
		monthlyLimit: monthlyLimit,
		ledger:       ledger,
		logger:       logger.With("provider", "brave"),
		httpClient: httpkit.NewClient(
			httpkit.WithTimeout(15 * time.Second),
		),
		baseURL: braveAPIURL,
	}
}

func (b *Brave) Name() string { return "brave" }

// braveResponse is the JSON response from Brave's web search API.
type braveResponse struct {
	Web struct {
		Results []braveResult `json:"results"`
	} `json:"web"`
}

type braveResult struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Description string `json:"description"`
}

func (b *Brave) Search(ctx context.Context, query string, opts Options) ([]Result, error) {
	if b.apiKey == "" {
		return nil, fmt.Errorf("brave: no API key configured")
	}
	if b.ledger != nil && b.ledger.Remaining(b.Name(), b.monthlyLimit) == 0 {
		b.logger.Debug("monthly quota spent, skipping",
			"limit", b.monthlyLimit,
			"month", b.ledger.Month(),
		)
		return nil, fmt.Errorf("brave: monthly quota of %d calls spent", b.monthlyLimit)
	}

	count := opts.MaxResults
	if count <= 0 {
		count = 7
	}

	params := url.Values{
		"q":     {query},
		"count": {strconv.Itoa(count)},
	}
	lang := opts.Language
	if lang == "" {
		lang = "de"
	}
	params.Set("search_lang", lang)
	if lang == "de" {
		params.Set("country", "de")
	} else {
		params.Set("country", "us")
	}
	if f, ok := braveFreshness[opts.TimeRange]; ok {
		params.Set("freshness", f)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("brave: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Subscription-Token", b.apiKey)

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("brave: request failed: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized:
		// Bad key. Not retryable within this process — the operator
		// has to fix the configuration.
		b.logger.Error("API key rejected, check brave.api_key")
		httpkit.DrainAndClose(resp.Body, 1024)
		return nil, fmt.Errorf("brave: unauthorized (invalid API key)")
	case http.StatusTooManyRequests:
		b.logger.Warn("rate limited by API, skipping for this search")
		httpkit.DrainAndClose(resp.Body, 1024)
		return nil, fmt.Errorf("brave: rate limited")
	default:
		body := httpkit.ReadErrorBody(resp.Body, 512)
		return nil, fmt.Errorf("brave: HTTP %d: %s", resp.StatusCode, body)
	}

	var br braveResponse
	if err := json.NewDecoder(resp.Body).Decode(&br); err != nil {
		return nil, fmt.Errorf("brave: decode response: %w", err)
	}

	// The call succeeded and counts against the monthly quota.
	if b.ledger != nil {
		b.ledger.RecordUse(b.Name())
	}

	results := make([]Result, 0, len(br.Web.Results))
	for i, r := range br.Web.Results {
		if i >= count {
			break
		}
		results = append(results, Result{
			Title:   r.Title,
			URL:     r.URL,
			Snippet: r.Description,
		})
	}
	return results, nil
}

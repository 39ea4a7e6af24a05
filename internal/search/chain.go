package search

import (
	"context"
	"log/slog"
)

// Chain tries providers in a fixed priority order and returns the
// first non-empty result set. Providers are never raced in parallel —
// speculative calls would burn commercial quota — and a provider is
// called at most once per Execute.
type Chain struct {
	providers []Provider
	logger    *slog.Logger
}

// NewChain assembles a fallback chain. Order is priority order.
func NewChain(logger *slog.Logger, providers ...Provider) *Chain {
	if logger == nil {
		logger = slog.Default()
	}
	return &Chain{
		providers: providers,
		logger:    logger.With("component", "chain"),
	}
}

// Execute dispatches the query through the chain. Provider failures
// are recovered locally by advancing to the next provider; exhausting
// every provider yields an empty list, which is a valid "no results"
// outcome rather than an error.
func (c *Chain) Execute(ctx context.Context, query string, opts Options) []Result {
	for _, p := range c.providers {
		if ctx.Err() != nil {
			c.logger.Debug("chain abandoned", "query", query, "error", ctx.Err())
			return nil
		}

		results, err := p.Search(ctx, query, opts)
		if err != nil {
			c.logger.Debug("provider failed, trying next",
				"provider", p.Name(), "error", err)
			continue
		}
		if len(results) == 0 {
			c.logger.Debug("provider returned no results, trying next",
				"provider", p.Name())
			continue
		}

		c.logger.Debug("provider succeeded",
			"provider", p.Name(), "results", len(results))
		return results
	}

	c.logger.Debug("all providers exhausted", "query", query)
	return nil
}

// Providers returns the chain's provider names in priority order.
func (c *Chain) Providers() []string {
	names := make([]string, 0, len(c.providers))
	for _, p := range c.providers {
		names = append(names, p.Name())
	}
	return names
}

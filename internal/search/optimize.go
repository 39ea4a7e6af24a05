package search

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/nugget/searchhub/internal/llm"
)

// maxOptimizedLength guards against a model that ignores instructions
// and returns prose instead of keywords. Anything longer than this is
// discarded in favor of the original query.
const maxOptimizedLength = 200

// optimizeTimeout bounds the LLM call. Query rewriting is optional
// polish; a slow model must not dominate search latency.
const optimizeTimeout = 20 * time.Second

const optimizeSystemPrompt = `You turn verbose questions into compact web search queries.
Extract the core keywords, drop filler words, and add one or two synonym alternatives where they improve recall.
Answer in the same language as the question.
Return ONLY the search query, at most 10 words, with no explanation and no punctuation beyond the query itself.`

// Optimizer rewrites a verbose natural-language query into a compact
// keyword query via an LLM. It is an availability-degrading component:
// when no model is configured or the model misbehaves, the original
// query passes through unchanged.
type Optimizer struct {
	client llm.Client
	model  string
	logger *slog.Logger
}

// NewOptimizer creates an optimizer. A nil client or empty model
// disables optimization (Optimize becomes the identity, plus expert
// context).
func NewOptimizer(client llm.Client, model string, logger *slog.Logger) *Optimizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Optimizer{
		client: client,
		model:  model,
		logger: logger.With("component", "optimizer"),
	}
}

// Optimize returns the rewritten query, or a plain-text fallback (the
// original query with expertContext appended) when no model is
// available or the model's answer is unusable. It never fails.
func (o *Optimizer) Optimize(ctx context.Context, query, language, expertContext string) string {
	fallback := query
	if expertContext != "" {
		fallback = query + " " + expertContext
	}

	if o.client == nil || o.model == "" {
		return fallback
	}

	prompt := query
	if expertContext != "" {
		prompt += "\n\nDomain context to inform the keywords: " + expertContext
	}
	if language == "de" {
		prompt += "\n\nDie Suchanfrage ist auf Deutsch."
	}

	ctx, cancel := context.WithTimeout(ctx, optimizeTimeout)
	defer cancel()

	resp, err := o.client.Chat(ctx, o.model, []llm.Message{
		{Role: "system", Content: optimizeSystemPrompt},
		{Role: "user", Content: prompt},
	})
	if err != nil {
		o.logger.Debug("optimization failed, using original query", "error", err)
		return fallback
	}

	optimized := strings.TrimSpace(resp.Message.Content)
	// Some models wrap the answer in quotes.
	optimized = strings.Trim(optimized, "\"'")

	if optimized == "" {
		o.logger.Debug("model returned empty query, using original")
		return fallback
	}
	if len(optimized) > maxOptimizedLength {
		o.logger.Debug("model returned prose instead of keywords, using original",
			"length", len(optimized))
		return fallback
	}

	o.logger.Debug("query optimized", "original", query, "optimized", optimized)
	return optimized
}

// Available reports whether an LLM is configured and reachable. The
// orchestrator checks this once per search so an offline model host
// costs one fast ping, not one slow chat timeout.
func (o *Optimizer) Available(ctx context.Context) bool {
	if o.client == nil || o.model == "" {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := o.client.Ping(ctx); err != nil {
		o.logger.Debug("model host unreachable", "error", err)
		return false
	}
	return true
}

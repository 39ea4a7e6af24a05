package search

import (
	"context"
	"errors"
	"testing"
)

// mockProvider records calls and returns canned results.
type mockProvider struct {
	name    string
	results []Result
	err     error
	calls   int
}

func (m *mockProvider) Name() string { return m.name }
func (m *mockProvider) Search(_ context.Context, _ string, _ Options) ([]Result, error) {
	m.calls++
	return m.results, m.err
}

func TestChainFirstProviderWins(t *testing.T) {
	primary := &mockProvider{name: "primary", results: []Result{{Title: "P", URL: "https://p.com"}}}
	fallback := &mockProvider{name: "fallback", results: []Result{{Title: "F", URL: "https://f.com"}}}
	c := NewChain(nil, primary, fallback)

	got := c.Execute(context.Background(), "query", Options{})
	if len(got) != 1 || got[0].Title != "P" {
		t.Fatalf("expected primary's results, got %+v", got)
	}
	if fallback.calls != 0 {
		t.Error("fallback should not be called when primary succeeds")
	}
}

func TestChainAdvancesOnError(t *testing.T) {
	failing := &mockProvider{name: "brave", err: errors.New("brave: rate limited")}
	fallback := &mockProvider{name: "searxng", results: []Result{{Title: "F", URL: "https://f.com"}}}
	c := NewChain(nil, failing, fallback)

	got := c.Execute(context.Background(), "query", Options{})
	if len(got) != 1 || got[0].Title != "F" {
		t.Fatalf("expected fallback results, got %+v", got)
	}
	// Strict priority order: the failing provider is called exactly
	// once and never retried within the same search.
	if failing.calls != 1 {
		t.Errorf("expected exactly 1 call to failing provider, got %d", failing.calls)
	}
	if fallback.calls != 1 {
		t.Errorf("expected exactly 1 call to fallback, got %d", fallback.calls)
	}
}

func TestChainAdvancesOnEmpty(t *testing.T) {
	empty := &mockProvider{name: "empty"}
	fallback := &mockProvider{name: "full", results: []Result{{Title: "F", URL: "https://f.com"}}}
	c := NewChain(nil, empty, fallback)

	got := c.Execute(context.Background(), "query", Options{})
	if len(got) != 1 {
		t.Fatalf("expected fallback to serve after empty result, got %+v", got)
	}
}

func TestChainTotalExhaustion(t *testing.T) {
	a := &mockProvider{name: "a", err: errors.New("down")}
	b := &mockProvider{name: "b", err: errors.New("down")}
	c := NewChain(nil, a, b)

	// Total exhaustion is a valid no-results outcome, not an error.
	got := c.Execute(context.Background(), "query", Options{})
	if got != nil {
		t.Errorf("expected nil result list, got %+v", got)
	}
}

func TestChainStopsOnCancelledContext(t *testing.T) {
	a := &mockProvider{name: "a", results: []Result{{Title: "A", URL: "https://a.com"}}}
	c := NewChain(nil, a)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if got := c.Execute(ctx, "query", Options{}); got != nil {
		t.Errorf("expected nil for cancelled context, got %+v", got)
	}
	if a.calls != 0 {
		t.Error("provider should not be called after cancellation")
	}
}

func TestChainProviders(t *testing.T) {
	c := NewChain(nil, &mockProvider{name: "brave"}, &mockProvider{name: "searxng"})
	names := c.Providers()
	if len(names) != 2 || names[0] != "brave" || names[1] != "searxng" {
		t.Errorf("unexpected provider order: %v", names)
	}
}

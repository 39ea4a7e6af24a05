package search

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/nugget/searchhub/internal/llm"
)

// mockChat is an llm.Client returning a canned reply.
type mockChat struct {
	reply   string
	chatErr error
	pingErr error
}

func (m *mockChat) Chat(_ context.Context, _ string, _ []llm.Message) (*llm.ChatResponse, error) {
	if m.chatErr != nil {
		return nil, m.chatErr
	}
	return &llm.ChatResponse{
		Message: llm.Message{Role: "assistant", Content: m.reply},
		Done:    true,
	}, nil
}

func (m *mockChat) Ping(_ context.Context) error { return m.pingErr }

func TestOptimize(t *testing.T) {
	o := NewOptimizer(&mockChat{reply: "wetter berlin vorhersage"}, "qwen3:4b", nil)
	got := o.Optimize(context.Background(), "Wie wird das Wetter morgen in Berlin?", "de", "")
	if got != "wetter berlin vorhersage" {
		t.Errorf("expected optimized query, got %q", got)
	}
}

func TestOptimizeStripsQuotes(t *testing.T) {
	o := NewOptimizer(&mockChat{reply: `"wetter berlin"`}, "m", nil)
	got := o.Optimize(context.Background(), "query", "de", "")
	if got != "wetter berlin" {
		t.Errorf("expected quotes stripped, got %q", got)
	}
}

func TestOptimizeNoModel(t *testing.T) {
	o := NewOptimizer(nil, "", nil)
	got := o.Optimize(context.Background(), "original query", "en", "")
	if got != "original query" {
		t.Errorf("expected original query, got %q", got)
	}
}

func TestOptimizeNoModelWithExpertContext(t *testing.T) {
	o := NewOptimizer(nil, "", nil)
	got := o.Optimize(context.Background(), "original query", "en", "medical terminology")
	if got != "original query medical terminology" {
		t.Errorf("expected expert context appended, got %q", got)
	}
}

func TestOptimizeChatError(t *testing.T) {
	o := NewOptimizer(&mockChat{chatErr: errors.New("model crashed")}, "m", nil)
	got := o.Optimize(context.Background(), "original", "en", "hint")
	if got != "original hint" {
		t.Errorf("expected fallback with expert context, got %q", got)
	}
}

func TestOptimizeEmptyReply(t *testing.T) {
	o := NewOptimizer(&mockChat{reply: "   "}, "m", nil)
	got := o.Optimize(context.Background(), "original", "en", "")
	if got != "original" {
		t.Errorf("expected fallback for empty reply, got %q", got)
	}
}

func TestOptimizeProseReply(t *testing.T) {
	// A reply over 200 characters means the model ignored the
	// instructions and returned prose.
	prose := strings.Repeat("this is a long explanation ", 10)
	o := NewOptimizer(&mockChat{reply: prose}, "m", nil)
	got := o.Optimize(context.Background(), "original", "en", "")
	if got != "original" {
		t.Errorf("expected fallback for prose reply, got %q", got)
	}
}

func TestAvailable(t *testing.T) {
	if NewOptimizer(nil, "", nil).Available(context.Background()) {
		t.Error("optimizer without client must not be available")
	}
	if NewOptimizer(&mockChat{}, "", nil).Available(context.Background()) {
		t.Error("optimizer without model must not be available")
	}
	if NewOptimizer(&mockChat{pingErr: errors.New("down")}, "m", nil).Available(context.Background()) {
		t.Error("optimizer with unreachable host must not be available")
	}
	if !NewOptimizer(&mockChat{}, "m", nil).Available(context.Background()) {
		t.Error("optimizer with reachable host should be available")
	}
}

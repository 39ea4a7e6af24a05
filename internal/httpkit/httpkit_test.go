package httpkit

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestNewClientDefaults(t *testing.T) {
	c := NewClient()
	if c.Timeout != 30*time.Second {
		t.Errorf("expected default 30s timeout, got %v", c.Timeout)
	}
	if _, ok := c.Transport.(*userAgentTransport); !ok {
		t.Error("expected userAgentTransport to be installed by default")
	}
}

func TestWithTimeout(t *testing.T) {
	c := NewClient(WithTimeout(5 * time.Second))
	if c.Timeout != 5*time.Second {
		t.Errorf("expected 5s timeout, got %v", c.Timeout)
	}
}

func TestUserAgentInjected(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
	}))
	defer srv.Close()

	c := NewClient(WithUserAgent("test-agent/1.0"))
	resp, err := c.Get(srv.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	DrainAndClose(resp.Body, 1024)

	if gotUA != "test-agent/1.0" {
		t.Errorf("expected User-Agent test-agent/1.0, got %q", gotUA)
	}
}

func TestUserAgentNotOverwritten(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
	}))
	defer srv.Close()

	c := NewClient(WithUserAgent("default-agent"))
	req, _ := http.NewRequest(http.MethodGet, srv.URL, nil)
	req.Header.Set("User-Agent", "explicit-agent")
	resp, err := c.Do(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	DrainAndClose(resp.Body, 1024)

	if gotUA != "explicit-agent" {
		t.Errorf("explicit User-Agent should win, got %q", gotUA)
	}
}

func TestReadErrorBody(t *testing.T) {
	body := io.NopCloser(strings.NewReader("rate limit exceeded"))
	got := ReadErrorBody(body, 512)
	if got != "rate limit exceeded" {
		t.Errorf("expected body text, got %q", got)
	}
}

func TestReadErrorBodyNil(t *testing.T) {
	if got := ReadErrorBody(nil, 512); got != "" {
		t.Errorf("expected empty string for nil body, got %q", got)
	}
}

func TestReadErrorBodyLimit(t *testing.T) {
	body := io.NopCloser(strings.NewReader(strings.Repeat("x", 2048)))
	got := ReadErrorBody(body, 16)
	if len(got) != 16 {
		t.Errorf("expected 16 bytes, got %d", len(got))
	}
}

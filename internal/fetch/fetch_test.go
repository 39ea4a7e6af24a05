package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/nugget/searchhub/internal/cache"
)

const testPage = `<!DOCTYPE html>
<html>
<head><title>Test Page</title><script>var x = 1;</script></head>
<body>
<nav>Home | About | Contact</nav>
<header>Site Header</header>
<div class="advert-box">Buy now!</div>
<article>
<h1>Article Heading</h1>
<p>First paragraph of real content.</p>
<p>Second paragraph with more detail.</p>
</article>
<footer>Copyright 2026</footer>
</body>
</html>`

func TestFetchExtractsContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(testPage))
	}))
	defer srv.Close()

	f := NewFetcher(nil, nil)
	text, ok := f.Fetch(context.Background(), srv.URL, 0)
	if !ok {
		t.Fatal("expected content")
	}

	for _, want := range []string{"Article Heading", "First paragraph", "Second paragraph"} {
		if !strings.Contains(text, want) {
			t.Errorf("expected %q in extracted text: %q", want, text)
		}
	}
	for _, unwanted := range []string{"var x", "Home | About", "Site Header", "Buy now", "Copyright"} {
		if strings.Contains(text, unwanted) {
			t.Errorf("boilerplate %q should be stripped: %q", unwanted, text)
		}
	}
}

func TestFetchTruncates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html><body><p>" + strings.Repeat("word ", 500) + "</p></body></html>"))
	}))
	defer srv.Close()

	f := NewFetcher(nil, nil)
	text, ok := f.Fetch(context.Background(), srv.URL, 100)
	if !ok {
		t.Fatal("expected content")
	}
	if len(text) != 100+len(Ellipsis) {
		t.Errorf("expected 100 chars plus ellipsis, got %d", len(text))
	}
	if !strings.HasSuffix(text, Ellipsis) {
		t.Errorf("expected trailing ellipsis marker, got %q", text[len(text)-10:])
	}
}

func TestFetchCachesUntruncated(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Write([]byte("<html><body><p>" + strings.Repeat("word ", 100) + "</p></body></html>"))
	}))
	defer srv.Close()

	c := cache.New[string, string](50, 30*time.Minute)
	f := NewFetcher(c, nil)

	short, ok := f.Fetch(context.Background(), srv.URL, 50)
	if !ok {
		t.Fatal("expected content")
	}

	// A second call with a larger budget must come from the cache and
	// still get more text than the first call returned.
	long, ok := f.Fetch(context.Background(), srv.URL, 400)
	if !ok {
		t.Fatal("expected cached content")
	}
	if hits != 1 {
		t.Errorf("expected 1 HTTP request, got %d", hits)
	}
	if len(long) <= len(short) {
		t.Errorf("larger budget should yield more text: short=%d long=%d", len(short), len(long))
	}
}

func TestFetchNon200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	f := NewFetcher(nil, nil)
	if _, ok := f.Fetch(context.Background(), srv.URL, 100); ok {
		t.Error("expected not-found for HTTP 404")
	}
}

func TestFetchUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	f := NewFetcher(nil, nil)
	if _, ok := f.Fetch(context.Background(), srv.URL, 100); ok {
		t.Error("expected not-found for unreachable host")
	}
}

func TestFetchEmptyURL(t *testing.T) {
	f := NewFetcher(nil, nil)
	if _, ok := f.Fetch(context.Background(), "", 100); ok {
		t.Error("expected not-found for empty URL")
	}
}

func TestTruncateNoCut(t *testing.T) {
	if got := truncate("short", 100); got != "short" {
		t.Errorf("expected unmodified string, got %q", got)
	}
	if got := truncate("short", 0); got != "short" {
		t.Errorf("zero budget means unlimited, got %q", got)
	}
}

func TestTruncateMultibyte(t *testing.T) {
	s := strings.Repeat("ü", 50)
	got := truncate(s, 10)
	if !strings.HasSuffix(got, Ellipsis) {
		t.Fatalf("expected ellipsis, got %q", got)
	}
	trimmed := strings.TrimSuffix(got, Ellipsis)
	for _, r := range trimmed {
		if r != 'ü' {
			t.Fatalf("multi-byte character split: %q", trimmed)
		}
	}
}

func TestExtractHTMLMalformed(t *testing.T) {
	text := extractHTML("<p>unclosed paragraph <b>bold text")
	if !strings.Contains(text, "unclosed paragraph") {
		t.Errorf("expected text from malformed HTML, got %q", text)
	}
}

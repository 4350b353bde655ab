package preview

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestFetch_HTML(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") == "" {
			t.Error("expected a user agent")
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(`<!DOCTYPE html>
<html><head><title>Bot Framework Docs</title></head>
<body><article><h1>Bot Framework Docs</h1><p>This is a test article about bots and how link unfurling works in chat clients.</p></article></body>
</html>`))
	}))
	defer server.Close()

	page, err := New(time.Second).Fetch(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if page.Title != "Bot Framework Docs" {
		t.Errorf("title = %q", page.Title)
	}
	if page.WordCount == 0 {
		t.Error("expected a word count")
	}
	if !strings.Contains(page.Excerpt, "link unfurling") {
		t.Errorf("excerpt = %q", page.Excerpt)
	}
}

func TestFetch_PlainText(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("first line\nsecond line"))
	}))
	defer server.Close()

	page, err := New(0).Fetch(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if page.Title != "" {
		t.Errorf("plain text should have no title, got %q", page.Title)
	}
	if page.Excerpt != "first line" {
		t.Errorf("excerpt = %q", page.Excerpt)
	}
	if page.WordCount != 4 {
		t.Errorf("word count = %d", page.WordCount)
	}
}

func TestFetch_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	if _, err := New(0).Fetch(context.Background(), server.URL); err == nil {
		t.Fatal("expected error for 404")
	}
}

func TestFetch_RejectsNonHTTP(t *testing.T) {
	for _, u := range []string{"file:///etc/passwd", "ftp://example.com/x", "://bad"} {
		if _, err := New(0).Fetch(context.Background(), u); err == nil {
			t.Errorf("expected error for %q", u)
		}
	}
}

func TestExcerpt(t *testing.T) {
	if got := excerpt("  a \n\t b  "); got != "a b" {
		t.Errorf("got %q", got)
	}
	long := strings.Repeat("word ", 200)
	got := excerpt(long)
	if !strings.HasSuffix(got, "…") {
		t.Errorf("long excerpt should be truncated: %q", got)
	}
	if n := len([]rune(got)); n > maxExcerptLen+1 {
		t.Errorf("excerpt too long: %d runes", n)
	}
}

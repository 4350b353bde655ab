// Package preview fetches a web page and extracts what a link card can show about it.
package preview

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	readability "codeberg.org/readeck/go-readability/v2"
)

const (
	maxBodySize    = 2 << 20 // 2MB of HTML
	maxExcerptLen  = 280
	defaultTimeout = 5 * time.Second
)

// Page is the extracted summary of a fetched URL.
type Page struct {
	URL       string
	Title     string
	Excerpt   string
	WordCount int
}

// Fetcher downloads pages for link previews.
type Fetcher struct {
	Client    *http.Client
	UserAgent string
}

// New creates a fetcher with the given timeout (5s when zero).
func New(timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Fetcher{
		Client:    &http.Client{Timeout: timeout},
		UserAgent: "botsamples-unfurl/1.0",
	}
}

// Fetch downloads rawURL and extracts its title and a short excerpt.
// Only http and https URLs are fetched.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Page, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("preview: invalid URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("preview: unsupported scheme %q", parsed.Scheme)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("preview: %w", err)
	}
	req.Header.Set("User-Agent", f.UserAgent)
	req.Header.Set("Accept", "text/html,text/plain;q=0.9")

	client := f.Client
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("preview: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("preview: HTTP %d", resp.StatusCode)
	}

	body := io.LimitReader(resp.Body, maxBodySize)
	page := &Page{URL: rawURL}

	// Non-HTML content has no title; the first line stands in as excerpt.
	if !strings.Contains(resp.Header.Get("Content-Type"), "text/html") {
		raw, err := io.ReadAll(body)
		if err != nil {
			return nil, fmt.Errorf("preview: read: %w", err)
		}
		text := strings.TrimSpace(string(raw))
		page.WordCount = len(strings.Fields(text))
		page.Excerpt = excerpt(firstLine(text))
		return page, nil
	}

	article, err := readability.FromReader(body, parsed)
	if err != nil {
		return nil, fmt.Errorf("preview: parse: %w", err)
	}

	var textBuf bytes.Buffer
	if err := article.RenderText(&textBuf); err != nil {
		return nil, fmt.Errorf("preview: render: %w", err)
	}
	text := strings.TrimSpace(textBuf.String())

	page.Title = strings.TrimSpace(article.Title())
	page.WordCount = len(strings.Fields(text))
	page.Excerpt = excerpt(text)
	return page, nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

// excerpt collapses whitespace and cuts s to maxExcerptLen runes.
func excerpt(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= maxExcerptLen {
		return s
	}
	return strings.TrimSpace(string(r[:maxExcerptLen])) + "…"
}

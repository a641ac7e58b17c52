// Package extract fetches web pages and pulls out their readable text. It
// walks the HTML tree, skipping script, style, and other non-content
// subtrees, and reports the document title and a word count alongside the
// text.
package extract

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/semhist/semhist/pipeline"
)

// maxBodyBytes bounds how much of a response is read before parsing.
const maxBodyBytes = 4 << 20

// skipElements never contain text a reader sees.
var skipElements = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"template": true,
	"iframe":   true,
	"svg":      true,
}

// Extractor fetches pages over HTTP. Implements pipeline.ContentExtractor.
type Extractor struct {
	client    *http.Client
	userAgent string
}

// New returns an Extractor. client may be nil for a default with a 20s
// timeout.
func New(client *http.Client) *Extractor {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	return &Extractor{client: client, userAgent: "semhist/1.0"}
}

// Extract downloads url and returns its title, visible text, and word count.
// Non-HTML responses and non-2xx statuses are errors.
func (e *Extractor) Extract(ctx context.Context, url string) (pipeline.PageContent, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return pipeline.PageContent{}, fmt.Errorf("extract: build request: %w", err)
	}
	req.Header.Set("User-Agent", e.userAgent)
	req.Header.Set("Accept", "text/html")

	resp, err := e.client.Do(req)
	if err != nil {
		return pipeline.PageContent{}, fmt.Errorf("extract: fetch %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return pipeline.PageContent{}, fmt.Errorf("extract: fetch %s: status %d", url, resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "" && !strings.Contains(ct, "html") {
		return pipeline.PageContent{}, fmt.Errorf("extract: %s: unsupported content type %s", url, ct)
	}

	return Parse(io.LimitReader(resp.Body, maxBodyBytes))
}

// Parse extracts title and visible text from an HTML document.
func Parse(r io.Reader) (pipeline.PageContent, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return pipeline.PageContent{}, fmt.Errorf("extract: parse: %w", err)
	}

	var title string
	var b strings.Builder
	var walk func(n *html.Node, inBody bool)
	walk = func(n *html.Node, inBody bool) {
		switch n.Type {
		case html.ElementNode:
			if skipElements[n.Data] {
				return
			}
			if n.Data == "title" && title == "" {
				title = nodeText(n)
				return
			}
			if n.Data == "body" {
				inBody = true
			}
		case html.TextNode:
			if inBody {
				if text := strings.TrimSpace(n.Data); text != "" {
					b.WriteString(text)
					b.WriteByte(' ')
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c, inBody)
		}
	}
	walk(doc, false)

	text := strings.TrimSpace(b.String())
	return pipeline.PageContent{
		Title:     strings.TrimSpace(title),
		Text:      text,
		WordCount: len(strings.Fields(text)),
	}, nil
}

func nodeText(n *html.Node) string {
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
		}
	}
	return b.String()
}

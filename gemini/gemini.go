// Package gemini is a client for the Google Generative Language API. It
// provides page summarization via generateContent and text embeddings via
// embedContent, with task types split between documents being indexed and
// the queries searching them.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	// DefaultBaseURL is the production API endpoint.
	DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	// DefaultEmbedModel produces the embeddings stored alongside pages.
	DefaultEmbedModel = "text-embedding-004"
	// DefaultTextModel writes page summaries.
	DefaultTextModel = "gemini-1.5-flash"

	// minSummarizableLength is the shortest text worth a summarization call.
	minSummarizableLength = 100

	summaryTemperature = 0.2
	summaryMaxTokens   = 200

	taskDocument = "RETRIEVAL_DOCUMENT"
	taskQuery    = "RETRIEVAL_QUERY"
)

// ErrMissingAPIKey is returned by NewClient when no key is configured.
var ErrMissingAPIKey = errors.New("gemini: missing API key")

// ServiceError reports a non-2xx API response.
type ServiceError struct {
	Op     string
	Status int
	Body   string
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("gemini: %s: status %d: %s", e.Op, e.Status, e.Body)
}

// Config configures a Client. Zero values fall back to the defaults above.
type Config struct {
	BaseURL    string
	EmbedModel string
	TextModel  string
	APIKey     string
	// KeyInHeader sends the key as x-goog-api-key instead of a query
	// parameter, keeping it out of access logs.
	KeyInHeader bool
	Timeout     time.Duration
	HTTPClient  *http.Client
}

// Client calls the Generative Language API. Safe for concurrent use.
type Client struct {
	cfg  Config
	http *http.Client
}

// NewClient validates cfg and returns a ready client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.EmbedModel == "" {
		cfg.EmbedModel = DefaultEmbedModel
	}
	if cfg.TextModel == "" {
		cfg.TextModel = DefaultTextModel
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{cfg: cfg, http: httpClient}, nil
}

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

type embedRequest struct {
	Content  content `json:"content"`
	TaskType string  `json:"taskType"`
}

type embedResponse struct {
	Embedding struct {
		Values []float32 `json:"values"`
	} `json:"embedding"`
}

// Summarize produces a short summary of text. Text shorter than 100
// characters is not worth an API call and yields ("", nil).
func (c *Client) Summarize(ctx context.Context, text string) (string, error) {
	if len(text) < minSummarizableLength {
		return "", nil
	}
	req := generateRequest{
		Contents: []content{{Parts: []part{{
			Text: "Summarize the following web page content in 2-3 sentences, " +
				"focusing on the main topic and key points:\n\n" + text,
		}}}},
		GenerationConfig: generationConfig{
			Temperature:     summaryTemperature,
			MaxOutputTokens: summaryMaxTokens,
		},
	}
	var resp generateResponse
	if err := c.post(ctx, "summarize", c.cfg.TextModel+":generateContent", req, &resp); err != nil {
		return "", err
	}
	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("gemini: summarize: empty response")
	}
	return strings.TrimSpace(resp.Candidates[0].Content.Parts[0].Text), nil
}

// EmbedDocument embeds text for storage, using the document retrieval task
// type.
func (c *Client) EmbedDocument(ctx context.Context, text string) ([]float32, error) {
	return c.embed(ctx, text, taskDocument)
}

// EmbedQuery embeds a search query. Queries and documents use different task
// types so the model places them in comparable regions of the space.
func (c *Client) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return c.embed(ctx, text, taskQuery)
}

func (c *Client) embed(ctx context.Context, text, taskType string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("gemini: embed: empty text")
	}
	req := embedRequest{
		Content:  content{Parts: []part{{Text: text}}},
		TaskType: taskType,
	}
	var resp embedResponse
	if err := c.post(ctx, "embed", c.cfg.EmbedModel+":embedContent", req, &resp); err != nil {
		return nil, err
	}
	if len(resp.Embedding.Values) == 0 {
		return nil, fmt.Errorf("gemini: embed: empty embedding in response")
	}
	return resp.Embedding.Values, nil
}

func (c *Client) post(ctx context.Context, op, endpoint string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("gemini: %s: encode request: %w", op, err)
	}

	url := c.cfg.BaseURL + "/models/" + endpoint
	if !c.cfg.KeyInHeader {
		url += "?key=" + c.cfg.APIKey
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("gemini: %s: build request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.KeyInHeader {
		req.Header.Set("x-goog-api-key", c.cfg.APIKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("gemini: %s: %w", op, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("gemini: %s: read response: %w", op, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &ServiceError{Op: op, Status: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("gemini: %s: decode response: %w", op, err)
	}
	return nil
}

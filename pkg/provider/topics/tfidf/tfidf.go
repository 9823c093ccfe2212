// Package tfidf provides a topics provider backed by a TF-IDF sidecar
// service.
//
// The sidecar is a small HTTP wrapper around a scikit-learn TF-IDF
// vectorizer, exposing a POST /keywords endpoint that accepts and returns
// JSON.
package tfidf

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/meetplot/meetplot/pkg/provider/topics"
)

// DefaultTimeout is the default per-request HTTP timeout. Vectorizing a full
// meeting's worth of text is cheap but the corpus fit is not instant.
const DefaultTimeout = 30 * time.Second

// Ensure Provider implements the topics.Provider interface.
var _ topics.Provider = (*Provider)(nil)

// Provider implements topics.Provider against a TF-IDF sidecar.
type Provider struct {
	baseURL string
	client  *http.Client
}

// Option is a functional option for Provider.
type Option func(*Provider)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Provider) {
		if c != nil {
			p.client = c
		}
	}
}

// WithTimeout sets a per-request HTTP timeout on the default client.
func WithTimeout(d time.Duration) Option {
	return func(p *Provider) {
		if d > 0 {
			p.client.Timeout = d
		}
	}
}

// New constructs a Provider talking to the sidecar at baseURL
// (e.g., "http://localhost:5003").
func New(baseURL string, opts ...Option) (*Provider, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("tfidf: baseURL must not be empty")
	}
	p := &Provider{
		baseURL: baseURL,
		client:  &http.Client{Timeout: DefaultTimeout},
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

type keywordsRequest struct {
	Texts    map[string]string `json:"texts"`
	TopTerms int               `json:"top_terms"`
}

type keywordsResponse struct {
	Keywords map[string][]topics.Keyword `json:"keywords"`
}

// Keywords implements topics.Provider.
func (p *Provider) Keywords(ctx context.Context, speakerTexts map[string]string, topTerms int) (map[string][]topics.Keyword, error) {
	if topTerms <= 0 {
		topTerms = topics.DefaultTopTerms
	}

	body, err := json.Marshal(keywordsRequest{Texts: speakerTexts, TopTerms: topTerms})
	if err != nil {
		return nil, fmt.Errorf("tfidf: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/keywords", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("tfidf: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tfidf: keywords: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("tfidf: sidecar returned %s: %s", resp.Status, bytes.TrimSpace(msg))
	}

	var out keywordsResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("tfidf: decode response: %w", err)
	}
	return out.Keywords, nil
}

// Name implements topics.Provider.
func (p *Provider) Name() string { return "tfidf" }

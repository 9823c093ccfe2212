// Package spacy provides a NER provider backed by a spaCy sidecar service.
//
// The sidecar is a small HTTP wrapper around a spaCy pipeline, exposing a
// POST /entities endpoint that accepts and returns JSON.
package spacy

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/meetplot/meetplot/pkg/provider/ner"
)

// DefaultTimeout is the default per-request HTTP timeout. NER over a full
// transcript is heavier than sentiment scoring, so the window is wider.
const DefaultTimeout = 60 * time.Second

// Ensure Provider implements the ner.Provider interface.
var _ ner.Provider = (*Provider)(nil)

// Provider implements ner.Provider against a spaCy sidecar.
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
// (e.g., "http://localhost:5006").
func New(baseURL string, opts ...Option) (*Provider, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("spacy: baseURL must not be empty")
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

type extractRequest struct {
	Text   string   `json:"text"`
	Labels []string `json:"labels"`
}

type extractResponse struct {
	Entities map[string][]string `json:"entities"`
}

// Extract implements ner.Provider.
func (p *Provider) Extract(ctx context.Context, text string, labels []string) (map[string][]string, error) {
	if len(labels) == 0 {
		labels = ner.DefaultLabels
	}

	body, err := json.Marshal(extractRequest{Text: text, Labels: labels})
	if err != nil {
		return nil, fmt.Errorf("spacy: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/entities", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("spacy: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("spacy: extract: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("spacy: sidecar returned %s: %s", resp.Status, bytes.TrimSpace(msg))
	}

	var out extractResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("spacy: decode response: %w", err)
	}
	return out.Entities, nil
}

// Name implements ner.Provider.
func (p *Provider) Name() string { return "spacy" }

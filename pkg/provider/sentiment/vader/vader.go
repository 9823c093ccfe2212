// Package vader provides a sentiment provider backed by a VADER sidecar
// service.
//
// The sidecar is a small HTTP wrapper around the VADER lexicon model,
// exposing POST /score and POST /score/batch endpoints that accept and
// return JSON.
package vader

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/meetplot/meetplot/pkg/provider/sentiment"
)

// DefaultTimeout is the default per-request HTTP timeout.
const DefaultTimeout = 15 * time.Second

// Ensure Provider implements the sentiment.Provider interface.
var _ sentiment.Provider = (*Provider)(nil)

// Provider implements sentiment.Provider against a VADER sidecar.
type Provider struct {
	baseURL string
	client  *http.Client
}

// Option is a functional option for Provider.
type Option func(*Provider)

// WithHTTPClient replaces the default HTTP client, e.g. to add custom
// transport middleware in tests.
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
// (e.g., "http://localhost:5005").
func New(baseURL string, opts ...Option) (*Provider, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("vader: baseURL must not be empty")
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

type scoreRequest struct {
	Text string `json:"text"`
}

type batchRequest struct {
	Texts []string `json:"texts"`
}

type batchResponse struct {
	Scores []sentiment.Scores `json:"scores"`
}

// Score implements sentiment.Provider.
func (p *Provider) Score(ctx context.Context, text string) (sentiment.Scores, error) {
	var out sentiment.Scores
	if err := p.post(ctx, "/score", scoreRequest{Text: text}, &out); err != nil {
		return sentiment.Scores{}, fmt.Errorf("vader: score: %w", err)
	}
	return out, nil
}

// ScoreBatch implements sentiment.Provider.
func (p *Provider) ScoreBatch(ctx context.Context, texts []string) ([]sentiment.Scores, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	var out batchResponse
	if err := p.post(ctx, "/score/batch", batchRequest{Texts: texts}, &out); err != nil {
		return nil, fmt.Errorf("vader: score batch: %w", err)
	}
	if len(out.Scores) != len(texts) {
		return nil, fmt.Errorf("vader: expected %d scores, got %d", len(texts), len(out.Scores))
	}
	return out.Scores, nil
}

// Name implements sentiment.Provider.
func (p *Provider) Name() string { return "vader" }

// post sends a JSON request to path and decodes the JSON response into out.
func (p *Provider) post(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Keep a slice of the body for the error; sidecar errors are short.
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("sidecar returned %s: %s", resp.Status, bytes.TrimSpace(msg))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Package llm provides a sentiment provider backed by a chat-completion LLM
// via github.com/mozilla-ai/any-llm-go, a unified multi-provider interface
// that supports OpenAI, Anthropic, Gemini, Ollama, DeepSeek, Mistral, Groq,
// and more.
//
// It is intended as a fallback when the VADER sidecar is unavailable: slower
// and costlier per call, but reachable without local infrastructure.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	anyllmlib "github.com/mozilla-ai/any-llm-go"
	"github.com/mozilla-ai/any-llm-go/providers/anthropic"
	"github.com/mozilla-ai/any-llm-go/providers/deepseek"
	"github.com/mozilla-ai/any-llm-go/providers/gemini"
	"github.com/mozilla-ai/any-llm-go/providers/groq"
	"github.com/mozilla-ai/any-llm-go/providers/llamacpp"
	"github.com/mozilla-ai/any-llm-go/providers/llamafile"
	"github.com/mozilla-ai/any-llm-go/providers/mistral"
	"github.com/mozilla-ai/any-llm-go/providers/ollama"
	anyllmoai "github.com/mozilla-ai/any-llm-go/providers/openai"

	"github.com/meetplot/meetplot/pkg/provider/sentiment"
)

// systemPrompt instructs the model to behave like a VADER-style scorer.
const systemPrompt = `You are a sentiment scoring function. For the given text, respond with exactly one JSON object and nothing else:
{"neg": <0..1>, "neu": <0..1>, "pos": <0..1>, "compound": <-1..1>}
neg, neu and pos are proportions that sum to 1. compound is the overall polarity.`

// Ensure Provider implements the sentiment.Provider interface.
var _ sentiment.Provider = (*Provider)(nil)

// Provider implements sentiment.Provider by asking a chat LLM for
// VADER-shaped scores.
type Provider struct {
	backend anyllmlib.Provider
	model   string
}

// New creates a new Provider backed by the given LLM provider name.
//
// providerName is one of: "openai", "anthropic", "gemini", "ollama",
// "deepseek", "mistral", "groq", "llamacpp", "llamafile".
//
// model is the specific model to use (e.g., "gpt-4o-mini").
//
// opts are any-llm-go configuration options (e.g., anyllmlib.WithAPIKey,
// anyllmlib.WithBaseURL). If no API key option is provided, the provider
// falls back to the relevant environment variable (e.g., OPENAI_API_KEY).
func New(providerName, model string, opts ...anyllmlib.Option) (*Provider, error) {
	if providerName == "" {
		return nil, fmt.Errorf("sentiment llm: providerName must not be empty")
	}
	if model == "" {
		return nil, fmt.Errorf("sentiment llm: model must not be empty")
	}

	backend, err := createBackend(providerName, opts...)
	if err != nil {
		return nil, fmt.Errorf("sentiment llm: create %q backend: %w", providerName, err)
	}
	return &Provider{backend: backend, model: model}, nil
}

// createBackend creates the underlying any-llm-go provider for the given provider name.
func createBackend(providerName string, opts ...anyllmlib.Option) (anyllmlib.Provider, error) {
	switch strings.ToLower(providerName) {
	case "openai":
		return anyllmoai.New(opts...)
	case "anthropic":
		return anthropic.New(opts...)
	case "gemini":
		return gemini.New(opts...)
	case "ollama":
		return ollama.New(opts...)
	case "deepseek":
		return deepseek.New(opts...)
	case "mistral":
		return mistral.New(opts...)
	case "groq":
		return groq.New(opts...)
	case "llamacpp":
		return llamacpp.New(opts...)
	case "llamafile":
		return llamafile.New(opts...)
	default:
		return nil, fmt.Errorf("unsupported provider %q; supported: openai, anthropic, gemini, ollama, deepseek, mistral, groq, llamacpp, llamafile", providerName)
	}
}

// Score implements sentiment.Provider.
func (p *Provider) Score(ctx context.Context, text string) (sentiment.Scores, error) {
	temperature := 0.0
	params := anyllmlib.CompletionParams{
		Model: p.model,
		Messages: []anyllmlib.Message{
			{Role: anyllmlib.RoleSystem, Content: systemPrompt},
			{Role: anyllmlib.RoleUser, Content: text},
		},
		Temperature: &temperature,
	}

	resp, err := p.backend.Completion(ctx, params)
	if err != nil {
		return sentiment.Scores{}, fmt.Errorf("sentiment llm: completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return sentiment.Scores{}, fmt.Errorf("sentiment llm: empty choices in response")
	}

	return parseScores(resp.Choices[0].Message.ContentString())
}

// ScoreBatch implements sentiment.Provider. Texts are scored sequentially;
// batching over a chat-completion API buys nothing, and the fallback path is
// already the slow path.
func (p *Provider) ScoreBatch(ctx context.Context, texts []string) ([]sentiment.Scores, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	out := make([]sentiment.Scores, len(texts))
	for i, text := range texts {
		s, err := p.Score(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("text %d: %w", i, err)
		}
		out[i] = s
	}
	return out, nil
}

// Name implements sentiment.Provider.
func (p *Provider) Name() string { return "llm" }

// parseScores extracts the JSON score object from the model output. Models
// occasionally wrap the object in a code fence despite instructions, so the
// parser tolerates surrounding text.
func parseScores(content string) (sentiment.Scores, error) {
	start := strings.IndexByte(content, '{')
	end := strings.LastIndexByte(content, '}')
	if start < 0 || end <= start {
		return sentiment.Scores{}, fmt.Errorf("sentiment llm: no JSON object in response %q", content)
	}

	var s sentiment.Scores
	if err := json.Unmarshal([]byte(content[start:end+1]), &s); err != nil {
		return sentiment.Scores{}, fmt.Errorf("sentiment llm: decode scores: %w", err)
	}
	if s.Compound < -1 || s.Compound > 1 {
		return sentiment.Scores{}, fmt.Errorf("sentiment llm: compound %v out of range [-1, 1]", s.Compound)
	}
	return s, nil
}

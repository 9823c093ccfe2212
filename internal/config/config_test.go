package config_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/meetplot/meetplot/internal/config"
	"github.com/meetplot/meetplot/pkg/provider/embeddings"
	"github.com/meetplot/meetplot/pkg/provider/ner"
	"github.com/meetplot/meetplot/pkg/provider/sentiment"
)

const sampleYAML = `
server:
  listen_addr: ":8080"
  log_level: info

parser:
  gap_tolerance_seconds: 1.5
  speaker_folding:
    enabled: true
    phonetic_threshold: 0.85
    fuzzy_threshold: 0.93

analytics:
  back_and_forth_threshold: 2

report:
  entity_labels: [PERSON, ORG]

providers:
  sentiment:
    name: vader
    base_url: "http://localhost:5005"
  sentiment_fallback:
    name: llm
    api_key: sk-test
    model: gpt-4o-mini
  ner:
    name: spacy
    base_url: "http://localhost:5006"
  topics:
    name: tfidf
    base_url: "http://localhost:5007"
  embeddings:
    name: openai
    api_key: sk-test
    model: text-embedding-3-small

storage:
  postgres_dsn: "postgres://localhost:5432/meetplot"
  embedding_dimensions: 1536
`

func TestLoadFromReader_FullConfig(t *testing.T) {
	t.Parallel()

	cfg, err := config.LoadFromReader(strings.NewReader(sampleYAML))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}

	if cfg.Server.ListenAddr != ":8080" {
		t.Errorf("server.listen_addr = %q, want :8080", cfg.Server.ListenAddr)
	}
	if cfg.Server.LogLevel != config.LogInfo {
		t.Errorf("server.log_level = %q, want info", cfg.Server.LogLevel)
	}
	if cfg.Parser.GapToleranceSeconds != 1.5 {
		t.Errorf("parser.gap_tolerance_seconds = %v, want 1.5", cfg.Parser.GapToleranceSeconds)
	}
	if !cfg.Parser.SpeakerFolding.Enabled {
		t.Error("parser.speaker_folding.enabled = false, want true")
	}
	if cfg.Analytics.BackAndForthThreshold != 2 {
		t.Errorf("analytics.back_and_forth_threshold = %d, want 2", cfg.Analytics.BackAndForthThreshold)
	}
	if len(cfg.Report.EntityLabels) != 2 {
		t.Errorf("report.entity_labels = %v, want 2 labels", cfg.Report.EntityLabels)
	}
	if cfg.Providers.Sentiment.Name != "vader" || cfg.Providers.Sentiment.BaseURL == "" {
		t.Errorf("providers.sentiment = %+v, want vader with base_url", cfg.Providers.Sentiment)
	}
	if cfg.Providers.Topics.Name != "tfidf" || cfg.Providers.Topics.BaseURL == "" {
		t.Errorf("providers.topics = %+v, want tfidf with base_url", cfg.Providers.Topics)
	}
	if cfg.Storage.EmbeddingDimensions != 1536 {
		t.Errorf("storage.embedding_dimensions = %d, want 1536", cfg.Storage.EmbeddingDimensions)
	}
}

func TestLoadFromReader_UnknownFieldRejected(t *testing.T) {
	t.Parallel()

	yaml := `
server:
  listen_addr: ":8080"
  log_levle: info
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for a misspelled field, got nil")
	}
}

func TestLogLevel_IsValid(t *testing.T) {
	t.Parallel()

	for _, l := range []config.LogLevel{config.LogDebug, config.LogInfo, config.LogWarn, config.LogError} {
		if !l.IsValid() {
			t.Errorf("%q.IsValid() = false, want true", l)
		}
	}
	if config.LogLevel("verbose").IsValid() {
		t.Error(`"verbose".IsValid() = true, want false`)
	}
}

// ── registry ─────────────────────────────────────────────────────────────────

type stubSentiment struct{}

func (stubSentiment) Score(context.Context, string) (sentiment.Scores, error) {
	return sentiment.Scores{}, nil
}

func (stubSentiment) ScoreBatch(ctx context.Context, texts []string) ([]sentiment.Scores, error) {
	return make([]sentiment.Scores, len(texts)), nil
}

func (stubSentiment) Name() string { return "stub" }

func TestRegistry_CreateSentiment(t *testing.T) {
	t.Parallel()

	r := config.NewRegistry()
	r.RegisterSentiment("stub", func(entry config.ProviderEntry) (sentiment.Provider, error) {
		return stubSentiment{}, nil
	})

	p, err := r.CreateSentiment(config.ProviderEntry{Name: "stub"})
	if err != nil {
		t.Fatalf("CreateSentiment: %v", err)
	}
	if p.Name() != "stub" {
		t.Errorf("provider name = %q, want stub", p.Name())
	}
}

func TestRegistry_NotRegistered(t *testing.T) {
	t.Parallel()

	r := config.NewRegistry()

	if _, err := r.CreateSentiment(config.ProviderEntry{Name: "nope"}); !errors.Is(err, config.ErrProviderNotRegistered) {
		t.Errorf("CreateSentiment(nope) error = %v, want ErrProviderNotRegistered", err)
	}
	if _, err := r.CreateNER(config.ProviderEntry{Name: "nope"}); !errors.Is(err, config.ErrProviderNotRegistered) {
		t.Errorf("CreateNER(nope) error = %v, want ErrProviderNotRegistered", err)
	}
	if _, err := r.CreateTopics(config.ProviderEntry{Name: "nope"}); !errors.Is(err, config.ErrProviderNotRegistered) {
		t.Errorf("CreateTopics(nope) error = %v, want ErrProviderNotRegistered", err)
	}
	if _, err := r.CreateEmbeddings(config.ProviderEntry{Name: "nope"}); !errors.Is(err, config.ErrProviderNotRegistered) {
		t.Errorf("CreateEmbeddings(nope) error = %v, want ErrProviderNotRegistered", err)
	}
}

type stubNER struct{}

func (stubNER) Extract(context.Context, string, []string) (map[string][]string, error) {
	return nil, nil
}

func (stubNER) Name() string { return "stub" }

type stubEmbeddings struct{}

func (stubEmbeddings) Embed(context.Context, string) ([]float32, error) { return nil, nil }

func (stubEmbeddings) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return make([][]float32, len(texts)), nil
}

func (stubEmbeddings) Dimensions() int { return 4 }

func (stubEmbeddings) ModelID() string { return "stub" }

func TestRegistry_CreateNERAndEmbeddings(t *testing.T) {
	t.Parallel()

	r := config.NewRegistry()
	r.RegisterNER("stub", func(config.ProviderEntry) (ner.Provider, error) {
		return stubNER{}, nil
	})
	r.RegisterEmbeddings("stub", func(config.ProviderEntry) (embeddings.Provider, error) {
		return stubEmbeddings{}, nil
	})

	n, err := r.CreateNER(config.ProviderEntry{Name: "stub"})
	if err != nil {
		t.Fatalf("CreateNER: %v", err)
	}
	if n.Name() != "stub" {
		t.Errorf("ner provider name = %q, want stub", n.Name())
	}

	e, err := r.CreateEmbeddings(config.ProviderEntry{Name: "stub"})
	if err != nil {
		t.Fatalf("CreateEmbeddings: %v", err)
	}
	if e.Dimensions() != 4 {
		t.Errorf("embeddings dimensions = %d, want 4", e.Dimensions())
	}
}

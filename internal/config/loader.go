package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// ValidProviderNames lists known provider names per provider kind.
// Used by [Validate] to warn about unrecognised provider names.
var ValidProviderNames = map[string][]string{
	"sentiment":          {"vader", "llm", "mock"},
	"sentiment_fallback": {"vader", "llm", "mock"},
	"ner":                {"spacy", "mock"},
	"topics":             {"tfidf", "mock"},
	"embeddings":         {"openai", "ollama", "mock"},
}

// Load reads the YAML configuration file at path and returns a validated [Config].
// It is a convenience wrapper around [LoadFromReader] and [Validate].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r and validates the result.
// Useful in tests where configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}
	if cfg.Server.TLS != nil {
		if cfg.Server.TLS.CertFile == "" || cfg.Server.TLS.KeyFile == "" {
			errs = append(errs, errors.New("server.tls requires both cert_file and key_file"))
		}
	}

	// Parser
	if cfg.Parser.GapToleranceSeconds < 0 {
		errs = append(errs, fmt.Errorf("parser.gap_tolerance_seconds %.2f must not be negative", cfg.Parser.GapToleranceSeconds))
	}
	if t := cfg.Parser.SpeakerFolding.PhoneticThreshold; t != 0 && (t <= 0 || t > 1) {
		errs = append(errs, fmt.Errorf("parser.speaker_folding.phonetic_threshold %.2f is out of range (0, 1]", t))
	}
	if t := cfg.Parser.SpeakerFolding.FuzzyThreshold; t != 0 && (t <= 0 || t > 1) {
		errs = append(errs, fmt.Errorf("parser.speaker_folding.fuzzy_threshold %.2f is out of range (0, 1]", t))
	}

	// Analytics
	if cfg.Analytics.BackAndForthThreshold < 0 {
		errs = append(errs, fmt.Errorf("analytics.back_and_forth_threshold %d must not be negative", cfg.Analytics.BackAndForthThreshold))
	}

	// Provider name validation — warn for unknown provider names.
	validateProviderName("sentiment", cfg.Providers.Sentiment.Name)
	validateProviderName("sentiment_fallback", cfg.Providers.SentimentFallback.Name)
	validateProviderName("ner", cfg.Providers.NER.Name)
	validateProviderName("topics", cfg.Providers.Topics.Name)
	validateProviderName("embeddings", cfg.Providers.Embeddings.Name)

	// Sidecar providers need an endpoint.
	if cfg.Providers.Sentiment.Name == "vader" && cfg.Providers.Sentiment.BaseURL == "" {
		errs = append(errs, errors.New("providers.sentiment: the vader provider requires base_url"))
	}
	if cfg.Providers.NER.Name == "spacy" && cfg.Providers.NER.BaseURL == "" {
		errs = append(errs, errors.New("providers.ner: the spacy provider requires base_url"))
	}
	if cfg.Providers.Topics.Name == "tfidf" && cfg.Providers.Topics.BaseURL == "" {
		errs = append(errs, errors.New("providers.topics: the tfidf provider requires base_url"))
	}

	// A fallback without a primary is almost certainly a mistake.
	if cfg.Providers.SentimentFallback.Name != "" && cfg.Providers.Sentiment.Name == "" {
		errs = append(errs, errors.New("providers.sentiment_fallback is set but providers.sentiment is not"))
	}

	// Embeddings ↔ storage dimensions
	if cfg.Providers.Embeddings.Name != "" && cfg.Storage.EmbeddingDimensions <= 0 {
		slog.Warn("providers.embeddings is configured but storage.embedding_dimensions is not set; the model's native dimension will be used")
	}
	if cfg.Providers.Embeddings.Name != "" && cfg.Storage.PostgresDSN == "" {
		slog.Warn("providers.embeddings is configured but storage.postgres_dsn is empty; the semantic index will not be available")
	}

	return errors.Join(errs...)
}

// validateProviderName logs a warning if name is non-empty and not found in
// the [ValidProviderNames] list for the given kind.
func validateProviderName(kind, name string) {
	if name == "" {
		return
	}
	known, ok := ValidProviderNames[kind]
	if !ok {
		return
	}
	if slices.Contains(known, name) {
		return
	}
	slog.Warn("unknown provider name — may be a typo or third-party provider",
		"kind", kind,
		"name", name,
		"known", known,
	)
}

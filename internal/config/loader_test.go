package config_test

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/meetplot/meetplot/internal/config"
)

func TestValidate_InvalidLogLevel(t *testing.T) {
	t.Parallel()
	yaml := `
server:
  log_level: bananas
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for invalid log level, got nil")
	}
	if !strings.Contains(err.Error(), "log_level") {
		t.Errorf("error should mention log_level, got: %v", err)
	}
}

func TestValidate_NegativeGapTolerance(t *testing.T) {
	t.Parallel()
	yaml := `
parser:
  gap_tolerance_seconds: -1
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for negative gap tolerance, got nil")
	}
	if !strings.Contains(err.Error(), "gap_tolerance_seconds") {
		t.Errorf("error should mention gap_tolerance_seconds, got: %v", err)
	}
}

func TestValidate_ThresholdOutOfRange(t *testing.T) {
	t.Parallel()
	yaml := `
parser:
  speaker_folding:
    enabled: true
    phonetic_threshold: 1.5
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for threshold > 1, got nil")
	}
	if !strings.Contains(err.Error(), "phonetic_threshold") {
		t.Errorf("error should mention phonetic_threshold, got: %v", err)
	}
}

func TestValidate_VaderRequiresBaseURL(t *testing.T) {
	t.Parallel()
	yaml := `
providers:
  sentiment:
    name: vader
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for vader without base_url, got nil")
	}
	if !strings.Contains(err.Error(), "base_url") {
		t.Errorf("error should mention base_url, got: %v", err)
	}
}

func TestValidate_TfidfRequiresBaseURL(t *testing.T) {
	t.Parallel()
	yaml := `
providers:
  topics:
    name: tfidf
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for tfidf without base_url, got nil")
	}
	if !strings.Contains(err.Error(), "base_url") {
		t.Errorf("error should mention base_url, got: %v", err)
	}
}

func TestValidate_MissingDimensionsWarnsNativeFallback(t *testing.T) {
	// Mutates the default logger; must not run in parallel.
	var buf bytes.Buffer
	orig := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(orig) })

	cfg := &config.Config{}
	cfg.Providers.Embeddings.Name = "openai"
	if err := config.Validate(cfg); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "the model's native dimension will be used") {
		t.Errorf("warning should name the native-dimension fallback, got: %q", out)
	}
	if strings.Contains(out, "1536") {
		t.Errorf("warning should not claim a fixed dimension, got: %q", out)
	}
}

func TestValidate_FallbackWithoutPrimary(t *testing.T) {
	t.Parallel()
	yaml := `
providers:
  sentiment_fallback:
    name: llm
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for fallback without primary sentiment, got nil")
	}
	if !strings.Contains(err.Error(), "sentiment_fallback") {
		t.Errorf("error should mention sentiment_fallback, got: %v", err)
	}
}

func TestValidate_TLSRequiresBothFiles(t *testing.T) {
	t.Parallel()
	yaml := `
server:
  tls:
    cert_file: /etc/meetplot/cert.pem
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for TLS without key_file, got nil")
	}
	if !strings.Contains(err.Error(), "key_file") {
		t.Errorf("error should mention key_file, got: %v", err)
	}
}

func TestValidate_MultipleErrorsJoined(t *testing.T) {
	t.Parallel()
	yaml := `
server:
  log_level: bananas
parser:
  gap_tolerance_seconds: -1
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected joined validation errors, got nil")
	}
	msg := err.Error()
	if !strings.Contains(msg, "log_level") || !strings.Contains(msg, "gap_tolerance_seconds") {
		t.Errorf("joined error should report both failures, got: %v", err)
	}
}

func TestValidate_EmptyConfigIsValid(t *testing.T) {
	t.Parallel()

	// An all-defaults config is legal: the CLI path needs no providers,
	// storage, or server at all.
	if err := config.Validate(&config.Config{}); err != nil {
		t.Errorf("Validate(zero config) = %v, want nil", err)
	}
}

// Command meetplot is the meeting transcript analysis server.
//
// In its default mode it serves the HTTP API described in the server
// package. With -file it runs a one-shot analysis of a transcript file and
// prints the report as JSON to stdout.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	anyllmlib "github.com/mozilla-ai/any-llm-go"

	"github.com/meetplot/meetplot/internal/analytics"
	"github.com/meetplot/meetplot/internal/config"
	"github.com/meetplot/meetplot/internal/health"
	"github.com/meetplot/meetplot/internal/observe"
	"github.com/meetplot/meetplot/internal/report"
	"github.com/meetplot/meetplot/internal/resilience"
	"github.com/meetplot/meetplot/internal/server"
	"github.com/meetplot/meetplot/internal/store/postgres"
	"github.com/meetplot/meetplot/internal/transcript"
	"github.com/meetplot/meetplot/internal/transcript/speakerid"
	"github.com/meetplot/meetplot/pkg/provider/embeddings"
	ollamaembed "github.com/meetplot/meetplot/pkg/provider/embeddings/ollama"
	oaembed "github.com/meetplot/meetplot/pkg/provider/embeddings/openai"
	"github.com/meetplot/meetplot/pkg/provider/ner"
	"github.com/meetplot/meetplot/pkg/provider/ner/spacy"
	"github.com/meetplot/meetplot/pkg/provider/sentiment"
	llmsent "github.com/meetplot/meetplot/pkg/provider/sentiment/llm"
	"github.com/meetplot/meetplot/pkg/provider/sentiment/vader"
	"github.com/meetplot/meetplot/pkg/provider/topics"
	"github.com/meetplot/meetplot/pkg/provider/topics/tfidf"
)

// version is stamped at build time via -ldflags "-X main.version=…".
var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	filePath := flag.String("file", "", "analyse a single transcript file and print the report as JSON instead of serving")
	title := flag.String("title", "", "analysis title used with -file")
	flag.Parse()

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "meetplot: config file %q not found — copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "meetplot: %v\n", err)
		}
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	// The level lives in a LevelVar so the config watcher can change it at
	// runtime without replacing the handler.
	levelVar := new(slog.LevelVar)
	levelVar.Set(slogLevel(cfg.Server.LogLevel))
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: levelVar}))
	slog.SetDefault(logger)

	// ── Provider registry ─────────────────────────────────────────────────────
	reg := config.NewRegistry()
	registerBuiltinProviders(reg)

	// ── Instantiate providers ─────────────────────────────────────────────────
	providers, err := buildProviders(cfg, reg)
	if err != nil {
		slog.Error("failed to build providers", "err", err)
		return 1
	}

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── One-shot file mode ────────────────────────────────────────────────────
	if *filePath != "" {
		return analyzeFile(ctx, cfg, providers, *filePath, *title)
	}

	slog.Info("meetplot starting",
		"version", version,
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
	)

	// ── Telemetry ─────────────────────────────────────────────────────────────
	otelShutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceVersion: version,
	})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := otelShutdown(shutdownCtx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()

	// ── Storage ───────────────────────────────────────────────────────────────
	var checkers []health.Checker
	serverOpts := []server.Option{
		server.WithComposer(newComposer(cfg, providers)),
		server.WithParseOptions(parseOptions(cfg)...),
		server.WithLogger(logger),
	}

	if cfg.Storage.PostgresDSN != "" {
		dims := cfg.Storage.EmbeddingDimensions
		if dims == 0 && providers.Embeddings != nil {
			dims = providers.Embeddings.Dimensions()
		}

		st, err := postgres.NewStore(ctx, cfg.Storage.PostgresDSN, dims)
		if err != nil {
			slog.Error("failed to connect to postgres", "err", err)
			return 1
		}
		defer st.Close()

		checkers = append(checkers, health.Checker{Name: "postgres", Check: st.Ping})
		serverOpts = append(serverOpts,
			server.WithStore(st),
			server.WithSemanticIndex(st.Semantic()),
		)
		slog.Info("postgres store connected", "embedding_dimensions", dims)
	}

	if providers.Embeddings != nil {
		serverOpts = append(serverOpts, server.WithEmbedder(providers.Embeddings))
	}
	serverOpts = append(serverOpts, server.WithHealth(health.New(checkers...)))

	if cfg.Server.TLS != nil {
		serverOpts = append(serverOpts, server.WithTLS(cfg.Server.TLS.CertFile, cfg.Server.TLS.KeyFile))
	}

	srv := server.New(cfg.Server.ListenAddr, serverOpts...)

	// ── Config hot reload ─────────────────────────────────────────────────────
	watcher, err := config.NewWatcher(*configPath, func(old, new *config.Config) {
		d := config.Diff(old, new)
		if !d.Any() {
			return
		}
		if d.LogLevelChanged {
			levelVar.Set(slogLevel(d.NewLogLevel))
			slog.Info("log level changed", "level", d.NewLogLevel)
		}
		if d.ParserChanged {
			srv.SetParseOptions(parseOptions(new)...)
		}
		if d.AnalyticsChanged || d.EntityLabelsChanged {
			srv.SetComposer(newComposer(new, providers))
		}
		slog.Info("configuration reloaded",
			"parser", d.ParserChanged,
			"analytics", d.AnalyticsChanged,
			"entity_labels", d.EntityLabelsChanged,
		)
	})
	if err != nil {
		slog.Error("failed to start config watcher", "err", err)
		return 1
	}
	defer watcher.Stop()

	// ── Startup summary ───────────────────────────────────────────────────────
	printStartupSummary(cfg)

	slog.Info("server ready — press Ctrl+C to shut down")

	if err := srv.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// analyzeFile parses and analyses one transcript file and prints the report
// as indented JSON on stdout.
func analyzeFile(ctx context.Context, cfg *config.Config, providers *pipelineProviders, path, title string) int {
	raw, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "meetplot: %v\n", err)
		return 1
	}

	tl, warnings := transcript.Parse(string(raw), parseOptions(cfg)...)
	rep := newComposer(cfg, providers).Compose(ctx, tl, warnings)

	if title != "" {
		slog.Debug("analysed transcript", "title", title, "segments", len(tl.Segments))
	}

	out, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "meetplot: encode report: %v\n", err)
		return 1
	}
	fmt.Println(string(out))
	return 0
}

// ── Provider wiring ───────────────────────────────────────────────────────────

// builtinProviders maps provider category names to the implementations that
// ship with meetplot. Used for startup logging.
var builtinProviders = map[string][]string{
	"sentiment":  {"vader", "llm"},
	"ner":        {"spacy"},
	"topics":     {"tfidf"},
	"embeddings": {"openai", "ollama"},
}

// registerBuiltinProviders wires all built-in provider factories into reg.
// Each factory receives a config.ProviderEntry and constructs the appropriate
// provider from the real implementation packages.
func registerBuiltinProviders(reg *config.Registry) {
	// ── Sentiment ─────────────────────────────────────────────────────────────

	reg.RegisterSentiment("vader", func(entry config.ProviderEntry) (sentiment.Provider, error) {
		var opts []vader.Option
		if d := optDuration(entry.Options, "timeout"); d > 0 {
			opts = append(opts, vader.WithTimeout(d))
		}
		return vader.New(entry.BaseURL, opts...)
	})

	// "llm" scores sentiment through any any-llm backend. The backend is
	// selected via options.provider (default "openai").
	reg.RegisterSentiment("llm", func(entry config.ProviderEntry) (sentiment.Provider, error) {
		backend := optString(entry.Options, "provider")
		if backend == "" {
			backend = "openai"
		}
		var opts []anyllmlib.Option
		if entry.APIKey != "" {
			opts = append(opts, anyllmlib.WithAPIKey(entry.APIKey))
		}
		if entry.BaseURL != "" {
			opts = append(opts, anyllmlib.WithBaseURL(entry.BaseURL))
		}
		return llmsent.New(backend, entry.Model, opts...)
	})

	// ── NER ───────────────────────────────────────────────────────────────────

	reg.RegisterNER("spacy", func(entry config.ProviderEntry) (ner.Provider, error) {
		var opts []spacy.Option
		if d := optDuration(entry.Options, "timeout"); d > 0 {
			opts = append(opts, spacy.WithTimeout(d))
		}
		return spacy.New(entry.BaseURL, opts...)
	})

	// ── Topics ────────────────────────────────────────────────────────────────

	reg.RegisterTopics("tfidf", func(entry config.ProviderEntry) (topics.Provider, error) {
		var opts []tfidf.Option
		if d := optDuration(entry.Options, "timeout"); d > 0 {
			opts = append(opts, tfidf.WithTimeout(d))
		}
		return tfidf.New(entry.BaseURL, opts...)
	})

	// ── Embeddings ────────────────────────────────────────────────────────────

	reg.RegisterEmbeddings("openai", func(entry config.ProviderEntry) (embeddings.Provider, error) {
		var opts []oaembed.Option
		if entry.BaseURL != "" {
			opts = append(opts, oaembed.WithBaseURL(entry.BaseURL))
		}
		return oaembed.New(entry.APIKey, entry.Model, opts...)
	})

	reg.RegisterEmbeddings("ollama", func(entry config.ProviderEntry) (embeddings.Provider, error) {
		return ollamaembed.New(entry.BaseURL, entry.Model)
	})

	// Debug log of all registered providers.
	for kind, names := range builtinProviders {
		for _, name := range names {
			slog.Debug("registered provider", "kind", kind, "name", name)
		}
	}
}

// pipelineProviders holds the instantiated enrichment providers. Any field
// may be nil; the report composer degrades the corresponding section.
type pipelineProviders struct {
	Sentiment  sentiment.Provider
	NER        ner.Provider
	Topics     topics.Provider
	Embeddings embeddings.Provider
}

// buildProviders instantiates all providers named in cfg using the registry.
// When a sentiment fallback is configured, the primary is wrapped in a
// circuit-breaking failover group.
func buildProviders(cfg *config.Config, reg *config.Registry) (*pipelineProviders, error) {
	ps := &pipelineProviders{}

	if name := cfg.Providers.Sentiment.Name; name != "" {
		p, err := reg.CreateSentiment(cfg.Providers.Sentiment)
		if errors.Is(err, config.ErrProviderNotRegistered) {
			slog.Debug("provider not yet implemented — skipping", "kind", "sentiment", "name", name)
		} else if err != nil {
			return nil, fmt.Errorf("create sentiment provider %q: %w", name, err)
		} else {
			ps.Sentiment = p
			slog.Info("provider created", "kind", "sentiment", "name", name)
		}
	}

	if name := cfg.Providers.SentimentFallback.Name; name != "" && ps.Sentiment != nil {
		fb, err := reg.CreateSentiment(cfg.Providers.SentimentFallback)
		if errors.Is(err, config.ErrProviderNotRegistered) {
			slog.Debug("provider not yet implemented — skipping", "kind", "sentiment_fallback", "name", name)
		} else if err != nil {
			return nil, fmt.Errorf("create sentiment fallback %q: %w", name, err)
		} else {
			group := resilience.NewSentimentFallback(ps.Sentiment, cfg.Providers.Sentiment.Name, resilience.FallbackConfig{})
			group.AddFallback(name, fb)
			ps.Sentiment = group
			slog.Info("provider created", "kind", "sentiment_fallback", "name", name)
		}
	}

	if name := cfg.Providers.NER.Name; name != "" {
		p, err := reg.CreateNER(cfg.Providers.NER)
		if errors.Is(err, config.ErrProviderNotRegistered) {
			slog.Debug("provider not yet implemented — skipping", "kind", "ner", "name", name)
		} else if err != nil {
			return nil, fmt.Errorf("create ner provider %q: %w", name, err)
		} else {
			ps.NER = p
			slog.Info("provider created", "kind", "ner", "name", name)
		}
	}

	if name := cfg.Providers.Topics.Name; name != "" {
		p, err := reg.CreateTopics(cfg.Providers.Topics)
		if errors.Is(err, config.ErrProviderNotRegistered) {
			slog.Debug("provider not yet implemented — skipping", "kind", "topics", "name", name)
		} else if err != nil {
			return nil, fmt.Errorf("create topics provider %q: %w", name, err)
		} else {
			ps.Topics = p
			slog.Info("provider created", "kind", "topics", "name", name)
		}
	}

	if name := cfg.Providers.Embeddings.Name; name != "" {
		p, err := reg.CreateEmbeddings(cfg.Providers.Embeddings)
		if errors.Is(err, config.ErrProviderNotRegistered) {
			slog.Debug("provider not yet implemented — skipping", "kind", "embeddings", "name", name)
		} else if err != nil {
			return nil, fmt.Errorf("create embeddings provider %q: %w", name, err)
		} else {
			ps.Embeddings = p
			slog.Info("provider created", "kind", "embeddings", "name", name)
		}
	}

	return ps, nil
}

// parseOptions translates the parser section of cfg into transcript options.
func parseOptions(cfg *config.Config) []transcript.Option {
	var opts []transcript.Option

	if cfg.Parser.GapToleranceSeconds > 0 {
		opts = append(opts, transcript.WithGapTolerance(
			time.Duration(cfg.Parser.GapToleranceSeconds*float64(time.Second)),
		))
	}

	if folding := cfg.Parser.SpeakerFolding; folding.Enabled {
		var sidOpts []speakerid.Option
		if folding.PhoneticThreshold > 0 {
			sidOpts = append(sidOpts, speakerid.WithPhoneticThreshold(folding.PhoneticThreshold))
		}
		if folding.FuzzyThreshold > 0 {
			sidOpts = append(sidOpts, speakerid.WithFuzzyThreshold(folding.FuzzyThreshold))
		}
		opts = append(opts, transcript.WithSpeakerResolver(speakerid.New(sidOpts...)))
	}

	return opts
}

// newComposer builds a report composer from cfg and the instantiated
// providers.
func newComposer(cfg *config.Config, providers *pipelineProviders) *report.Composer {
	var opts []report.Option

	if providers.Sentiment != nil {
		opts = append(opts, report.WithSentiment(providers.Sentiment))
	}
	if providers.NER != nil {
		opts = append(opts, report.WithNER(providers.NER))
	}
	if providers.Topics != nil {
		opts = append(opts, report.WithTopics(providers.Topics))
	}
	if len(cfg.Report.EntityLabels) > 0 {
		opts = append(opts, report.WithEntityLabels(cfg.Report.EntityLabels))
	}
	if n := cfg.Analytics.BackAndForthThreshold; n > 0 {
		opts = append(opts, report.WithGraphOptions(analytics.WithBackAndForthThreshold(n)))
	}

	return report.NewComposer(opts...)
}

// ── Startup summary ───────────────────────────────────────────────────────────

func printStartupSummary(cfg *config.Config) {
	fmt.Println("╔═══════════════════════════════════════╗")
	fmt.Println("║         meetplot — startup summary    ║")
	fmt.Println("╠═══════════════════════════════════════╣")
	printProvider("Sentiment", cfg.Providers.Sentiment.Name, cfg.Providers.Sentiment.Model)
	printProvider("Fallback", cfg.Providers.SentimentFallback.Name, cfg.Providers.SentimentFallback.Model)
	printProvider("NER", cfg.Providers.NER.Name, cfg.Providers.NER.Model)
	printProvider("Topics", cfg.Providers.Topics.Name, cfg.Providers.Topics.Model)
	printProvider("Embeddings", cfg.Providers.Embeddings.Name, cfg.Providers.Embeddings.Model)
	if cfg.Storage.PostgresDSN != "" {
		fmt.Printf("║  Storage         : %-19s ║\n", "postgres")
	} else {
		fmt.Printf("║  Storage         : %-19s ║\n", "(memory only)")
	}
	if cfg.Server.ListenAddr != "" {
		fmt.Printf("║  Listen addr     : %-19s ║\n", cfg.Server.ListenAddr)
	}
	fmt.Println("╚═══════════════════════════════════════╝")
}

func printProvider(kind, name, model string) {
	value := name
	if value == "" {
		value = "(not configured)"
	} else if model != "" {
		value = name + " / " + model
	}
	if len(value) > 19 {
		value = value[:16] + "…"
	}
	fmt.Printf("║  %-12s    : %-19s ║\n", kind, value)
}

// ── Helpers ───────────────────────────────────────────────────────────────────

func slogLevel(level config.LogLevel) slog.Level {
	switch level {
	case config.LogDebug:
		return slog.LevelDebug
	case config.LogWarn:
		return slog.LevelWarn
	case config.LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// optString extracts a string value from a provider Options map.
// Returns "" if the map is nil, the key is absent, or the value is not a string.
func optString(opts map[string]any, key string) string {
	if opts == nil {
		return ""
	}
	s, ok := opts[key].(string)
	if !ok {
		return ""
	}
	return s
}

// optDuration extracts a duration value (given as a string like "5s") from a
// provider Options map. Returns 0 if absent or malformed.
func optDuration(opts map[string]any, key string) time.Duration {
	if opts == nil {
		return 0
	}
	s, ok := opts[key].(string)
	if !ok {
		return 0
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0
	}
	return d
}

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/jonathan/codemap/internal/cache"
	"github.com/jonathan/codemap/internal/config"
	"github.com/jonathan/codemap/internal/corpus"
	"github.com/jonathan/codemap/internal/db"
	"github.com/jonathan/codemap/internal/embedding"
	"github.com/jonathan/codemap/internal/enrichment"
	"github.com/jonathan/codemap/internal/llm"
	"github.com/jonathan/codemap/internal/logging"
	"github.com/jonathan/codemap/internal/matching"
	"github.com/jonathan/codemap/internal/observability"
	"github.com/jonathan/codemap/internal/profile"
	"go.uber.org/zap"
)

const defaultEmbeddingsFile = "job_embeddings.json"

// app holds the wired collaborators for one command invocation.
type app struct {
	cfg     *config.Config
	logger  *zap.Logger
	store   db.Store
	corpus  *corpus.Cache
	svc     *matching.Service
	printer *observability.Printer
	// enrichCache is nil when enrichment is disabled.
	enrichCache *cache.Redis

	closers []func()
}

type appOptions struct {
	regenerate bool
}

func newApp(ctx context.Context, cfg *config.Config, out io.Writer, opts appOptions) (*app, error) {
	logger, err := logging.New(cfg.JSON, cfg.Debug)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	a := &app{cfg: cfg, logger: logger, printer: observability.NewPrinter(out)}
	a.closers = append(a.closers, func() { _ = logger.Sync() })

	if err := a.openStore(ctx); err != nil {
		a.close()
		return nil, err
	}

	llmConfig := llm.DefaultConfig()
	if cfg.LLM.Model != "" {
		llmConfig = llmConfig.WithModel(llm.TierStandard, cfg.LLM.Model)
	}
	client, err := llm.NewClient(ctx, llmConfig, cfg.LLM.APIKey, logger)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}
	a.closers = append(a.closers, func() { _ = client.Close() })

	cacheFile := cfg.EmbeddingsFile
	if cacheFile == "" {
		cacheFile = filepath.Join(cfg.DataDir, defaultEmbeddingsFile)
	}
	embedder := embedding.NewLazy(cfg.Embedding.Model, embedding.GeminiOpener(cfg.LLM.APIKey, cfg.Embedding.Model, logger))
	a.closers = append(a.closers, func() { _ = embedder.Close() })
	a.corpus = corpus.New(corpus.Options{
		DataDir:    cfg.DataDir,
		CacheFile:  cacheFile,
		Workers:    cfg.Embedding.Workers,
		BatchSize:  cfg.Embedding.BatchSize,
		Regenerate: opts.regenerate,
	}, embedder, logger)

	var enricher enrichment.Enricher = enrichment.Disabled{}
	if cfg.LLM.Enrich {
		redis := cache.NewRedis(ctx, cache.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			TTL:      cfg.Redis.TTL,
		}, logger)
		a.enrichCache = redis
		a.closers = append(a.closers, func() { _ = redis.Close() })
		enricher = enrichment.NewCachedEnricher(
			enrichment.NewLLMEnricher(client, cfg.LLM.Timeout, logger),
			redis, cfg.Redis.TTL, logger)
	}

	builder := profile.NewBuilder(a.store, client, embedder, logger)
	a.svc = matching.New(matching.Deps{
		Corpus:   a.corpus,
		Profiles: builder,
		Analyzer: profile.NewAnalyzer(builder),
		Enricher: enricher,
		Store:    a.store,
		TopK:     cfg.TopK,
		Logger:   logger,
	})
	return a, nil
}

func (a *app) openStore(ctx context.Context) error {
	switch a.cfg.Store {
	case config.StoreMemory:
		mem := db.NewMemory()
		if a.cfg.Fixtures != "" {
			if err := mem.LoadFixtures(ctx, a.cfg.Fixtures); err != nil {
				return err
			}
			a.logger.Info("loaded fixtures", zap.String("path", a.cfg.Fixtures))
		}
		a.store = mem
	default:
		database, err := db.Connect(ctx, a.cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		a.closers = append(a.closers, database.Close)
		if err := database.Migrate(ctx); err != nil {
			return fmt.Errorf("failed to migrate database: %w", err)
		}
		a.store = database
	}
	return nil
}

// loadCorpus loads the corpus synchronously, for one-shot commands.
func (a *app) loadCorpus(ctx context.Context) error {
	if err := a.corpus.Load(ctx); err != nil {
		return fmt.Errorf("failed to load job corpus: %w", err)
	}
	return nil
}

// close releases resources in reverse order of acquisition.
func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// setup loads config and wires the app for a command.
func setup(ctx context.Context, out io.Writer, opts appOptions) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return newApp(ctx, cfg, out, opts)
}

// emit writes v as indented JSON when --output json, otherwise calls text.
func emit(out io.Writer, v any, text func()) error {
	switch outputFormat {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "text", "":
		text()
		return nil
	default:
		return fmt.Errorf("unknown output format %q (want text or json)", outputFormat)
	}
}

func parseUserTestID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid user test id %q: must be a positive integer", arg)
	}
	return id, nil
}

// parseVector reads a comma-separated list of floats.
func parseVector(raw string) ([]float32, error) {
	fields := strings.Split(raw, ",")
	v := make([]float32, 0, len(fields))
	for _, f := range fields {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		x, err := strconv.ParseFloat(f, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid vector component %q: %w", f, err)
		}
		v = append(v, float32(x))
	}
	if len(v) == 0 {
		return nil, fmt.Errorf("vector is empty")
	}
	return v, nil
}

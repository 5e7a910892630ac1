// docqa-index builds (or verifies) the persisted vector store ahead of time,
// so the API server can start without calling the embedding provider.
//
// Usage:
//
//	docqa-index -env prod -rebuild
//	docqa-index -dry-run
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/docqa/internal/config"
	"github.com/kailas-cloud/docqa/internal/domain/chunk"
	logpkg "github.com/kailas-cloud/docqa/internal/logger"
	"github.com/kailas-cloud/docqa/internal/metrics"
	"github.com/kailas-cloud/docqa/internal/repository/corpus"
	"github.com/kailas-cloud/docqa/internal/repository/vectorstore"
	openaiTransport "github.com/kailas-cloud/docqa/internal/transport/openai"
	embeddinguc "github.com/kailas-cloud/docqa/internal/usecase/embedding"
	"github.com/kailas-cloud/docqa/internal/usecase/startup"
)

type options struct {
	env     string
	rebuild bool
	dryRun  bool
}

func parseFlags() options {
	opts := options{}
	flag.StringVar(&opts.env, "env", config.GetEnv(), "config environment (config/<env>.yaml)")
	flag.BoolVar(&opts.rebuild, "rebuild", false, "delete the existing vector store and build it from scratch")
	flag.BoolVar(&opts.dryRun, "dry-run", false, "load and split the corpus without embedding anything")
	flag.Parse()
	return opts
}

func main() {
	_ = godotenv.Load()
	opts := parseFlags()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	if err := run(ctx, opts); err != nil {
		cancel()
		fmt.Fprintln(os.Stderr, "docqa-index:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options) error {
	start := time.Now()

	cfg, err := config.Load(opts.env)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := logpkg.NewLogger(opts.env, cfg.Logging.Level)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	if opts.dryRun {
		return dryRun(cfg, logger)
	}

	if opts.rebuild && vectorstore.Exists(cfg.VectorStore.Dir) {
		logger.Info("Removing existing vector store", zap.String("dir", cfg.VectorStore.Dir))
		if err := vectorstore.Remove(cfg.VectorStore.Dir); err != nil {
			return err //nolint:wrapcheck // already carries the path
		}
	}

	// Private registry: the collectors are updated but never served.
	metrics.Register(prometheus.NewRegistry())

	base := openaiTransport.NewEmbedder(&openaiTransport.Config{
		APIKey:   cfg.OpenAI.APIKey,
		BaseURL:  cfg.OpenAI.BaseURL,
		Model:    cfg.OpenAI.EmbeddingModel,
		Timeout:  time.Duration(cfg.OpenAI.TimeoutSec) * time.Second,
		Provider: "openai",
		Logger:   logger,
	})
	embedder := embeddinguc.NewInstrumentedEmbedder(base, "openai", cfg.OpenAI.EmbeddingModel, logger)

	index, err := startup.Initialize(ctx, cfg, embedder, logger)
	if err != nil {
		return fmt.Errorf("initialize: %w", err)
	}

	logger.Info("Index build finished",
		zap.String("dir", cfg.VectorStore.Dir),
		zap.String("mode", index.Mode()),
		zap.Int("documents", index.Documents()),
		zap.Int("chunks", index.Chunks()),
		zap.Int("entries", index.Len()),
		zap.Int64("embedding_calls", embedder.Calls()),
		zap.Int64("embedding_tokens", embedder.Tokens()),
		zap.Duration("elapsed", time.Since(start)),
	)
	return nil
}

// dryRun reports what a build would embed.
func dryRun(cfg config.Config, logger *zap.Logger) error {
	docs, err := corpus.NewLoader(cfg.Corpus.DataDir, cfg.Corpus.Extension, logger).Load()
	if err != nil {
		return fmt.Errorf("load corpus: %w", err)
	}

	splitter, err := chunk.NewMarkdownSplitter(cfg.Chunking.ChunkSize, cfg.ChunkOverlap())
	if err != nil {
		return fmt.Errorf("create splitter: %w", err)
	}
	chunks := splitter.SplitDocuments(docs)

	logger.Info("Dry run",
		zap.Int("documents", len(docs)),
		zap.Int("chunks", len(chunks)),
		zap.String("corpus_checksum", corpus.Checksum(docs)),
		zap.Bool("store_exists", vectorstore.Exists(cfg.VectorStore.Dir)),
	)
	return nil
}

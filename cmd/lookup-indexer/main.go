package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/dbpedia/lookup/internal/config"
	bleveidx "github.com/dbpedia/lookup/internal/db/bleve"
	"github.com/dbpedia/lookup/internal/domain/job"
	logpkg "github.com/dbpedia/lookup/internal/logger"
	parquetsrc "github.com/dbpedia/lookup/internal/source/parquet"
	sparqlsrc "github.com/dbpedia/lookup/internal/source/sparql"
	indexuc "github.com/dbpedia/lookup/internal/usecase/index"
	"github.com/dbpedia/lookup/internal/version"
)

func main() {
	configPath := flag.String("config", "", "server config file (default: config/<ENV>.yaml)")
	jobPath := flag.String("job", "", "index job file (required)")
	values := flag.String("values", "", "comma separated document keys restricting the job")
	clean := flag.Bool("clean", false, "rebuild the index from scratch, overriding the job's cleanIndex")
	flag.Parse()

	if *jobPath == "" {
		fmt.Fprintln(os.Stderr, "usage: lookup-indexer -job <file> [-config <file>] [-values k1,k2] [-clean]")
		os.Exit(2)
	}

	env := config.GetEnv()
	var (
		cfg config.Config
		err error
	)
	if *configPath != "" {
		cfg, err = config.LoadFile(*configPath)
	} else {
		cfg, err = config.Load(env)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load config:", err)
		os.Exit(1)
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to create logger:", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, *jobPath, *values, *clean, logger); err != nil {
		logger.Error("Index job failed", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
}

func run(cfg config.Config, jobPath, values string, clean bool, logger *zap.Logger) error {
	j, err := config.LoadJob(jobPath)
	if err != nil {
		return err
	}
	if clean {
		j.CleanIndex = true
	}
	if values != "" {
		j = j.WithKeys(strings.Split(values, ","))
	}

	registry, err := cfg.Registry()
	if err != nil {
		return err
	}

	logger.Info("Starting lookup indexer",
		zap.String("version", version.String()),
		zap.String("job", jobPath),
		zap.String("mode", string(j.Mode)),
		zap.Bool("clean", j.CleanIndex),
		zap.Int("keys", len(j.Keys())),
		zap.String("index_path", cfg.Index.Path),
	)

	// A running server may still read retired generations.
	store, err := bleveidx.Open(bleveidx.Config{
		Path:   cfg.Index.Path,
		Types:  registry.Types(),
		Logger: logpkg.Component(logger, "index"),
	})
	if err != nil {
		return fmt.Errorf("open index: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("Failed to close index", zap.Error(err))
		}
	}()

	controller := indexuc.NewController(store, registry, indexuc.Metrics{}, logpkg.Component(logger, "controller"))
	runner := indexuc.NewRunner(controller, map[job.Mode]indexuc.TripleSource{
		job.ModeSPARQL: sparqlsrc.New(sparqlsrc.Config{
			Timeout:     time.Duration(cfg.Indexer.SPARQLTimeoutSec) * time.Second,
			Parallelism: cfg.Indexer.SPARQLParallelism,
		}, logpkg.Component(logger, "sparql")),
		job.ModeParquet: parquetsrc.New(logpkg.Component(logger, "parquet")),
	}, indexuc.RunnerConfig{
		LogInterval:     cfg.Indexer.LogInterval,
		MaxBufferedDocs: cfg.Indexer.MaxBufferedDocs,
	}, logpkg.Component(logger, "indexer"))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stats, err := runner.Run(ctx, j)
	if err != nil {
		return err
	}
	logger.Info("Index job finished",
		zap.Int("bindings", stats.Bindings),
		zap.Int("written", stats.Written),
		zap.Int("duplicates", stats.Duplicates),
		zap.Int("nulls", stats.Nulls),
		zap.Int("skipped", stats.Skipped),
		zap.Int("failed", stats.Failed),
		zap.Int("commits", stats.Commits),
		zap.Duration("duration", stats.Duration),
	)
	return nil
}

package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/dbpedia/lookup/internal/boost"
	"github.com/dbpedia/lookup/internal/config"
	bleveidx "github.com/dbpedia/lookup/internal/db/bleve"
	dbRedis "github.com/dbpedia/lookup/internal/db/redis"
	"github.com/dbpedia/lookup/internal/domain/job"
	logpkg "github.com/dbpedia/lookup/internal/logger"
	"github.com/dbpedia/lookup/internal/metrics"
	"github.com/dbpedia/lookup/internal/repository/searchcache"
	parquetsrc "github.com/dbpedia/lookup/internal/source/parquet"
	sparqlsrc "github.com/dbpedia/lookup/internal/source/sparql"
	chiTransport "github.com/dbpedia/lookup/internal/transport/chi"
	healthuc "github.com/dbpedia/lookup/internal/usecase/health"
	indexuc "github.com/dbpedia/lookup/internal/usecase/index"
	searchuc "github.com/dbpedia/lookup/internal/usecase/search"
	"github.com/dbpedia/lookup/internal/version"
)

func main() {
	configPath := flag.String("config", "", "config file (default: config/<ENV>.yaml)")
	flag.Parse()

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
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting lookup server",
		zap.String("version", version.String()),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("index_path", cfg.Index.Path),
		zap.Bool("cache", cfg.Cache.Enabled),
	)

	registry, err := cfg.Registry()
	if err != nil {
		logger.Fatal("Invalid field configuration", zap.Error(err))
	}

	metrics.RegisterIndexingMetrics()
	metrics.RegisterSearchMetrics()

	store, err := bleveidx.Open(bleveidx.Config{
		Path:          cfg.Index.Path,
		Types:         registry.Types(),
		RemoveRetired: true,
		Logger:        logpkg.Component(logger, "index"),
	})
	if err != nil {
		logger.Fatal("Failed to open index", zap.Error(err))
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("Failed to close index", zap.Error(err))
		}
	}()

	controller := indexuc.NewController(store, registry, indexuc.Metrics{
		Bindings:       metrics.IndexBindingsTotal,
		Commits:        metrics.IndexCommitsTotal,
		CommitDuration: metrics.IndexCommitDuration,
		Promotions:     metrics.IndexPromotionsTotal,
		Jobs:           metrics.IndexJobsTotal,
		OnPublish:      metrics.SetGeneration,
	}, logpkg.Component(logger, "controller"))

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

	var adjuster searchuc.ScoreAdjuster
	if cfg.Search.BoostFormula != "" {
		formula, err := boost.Compile(cfg.Search.BoostFormula)
		if err != nil {
			logger.Fatal("Invalid boost formula", zap.Error(err))
		}
		adjuster = formula
		logger.Info("Boost formula enabled", zap.String("formula", formula.String()))
	}

	searchSvc := searchuc.New(
		store,
		registry,
		searchuc.NewBuilder(store),
		searchuc.NewRanker(adjuster, searchuc.RankerConfig{
			JoinBound:       cfg.Index.JoinBound,
			BoostCandidates: cfg.Index.BoostCandidates,
		}),
		cfg.Search.Defaults(),
		searchuc.Metrics{
			Requests: metrics.SearchRequestsTotal,
			Hits:     metrics.SearchHits,
		},
	)

	var (
		searcher chiTransport.Searcher = searchSvc
		cache    healthuc.CachePinger
	)
	if cfg.Cache.Enabled {
		kv, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:     cfg.Cache.Addrs,
			Password:  cfg.Cache.Password,
			DB:        cfg.Cache.DB,
			Namespace: cfg.Cache.Namespace,
		})
		if err != nil {
			logger.Fatal("Failed to create cache store", zap.Error(err))
		}
		defer kv.Close()

		ctx := context.Background()
		if err := kv.WaitForReady(ctx, time.Duration(cfg.Cache.ReadinessTimeout)*time.Second); err != nil {
			logger.Fatal("Cache not ready", zap.Error(err))
		}
		logger.Info("Connected to cache", zap.Strings("addrs", cfg.Cache.Addrs))

		searcher = searchcache.New(searchSvc, controller, kv,
			time.Duration(cfg.Cache.TTLSec)*time.Second,
			metrics.SearchCacheTotal, logpkg.Component(logger, "searchcache"))
		cache = kv
	}

	healthSvc := healthuc.New(store, cache)
	metrics.SetGeneration(searchSvc.Generation())

	server := chiTransport.NewServer(searcher, registry, runner, controller, healthSvc, chiTransport.Options{
		FormatTemplate: cfg.Search.FormatTemplate,
		APIKeys:        cfg.Auth.APIKeys,
		MaxUploadBytes: int64(cfg.HTTP.MaxUploadMB) << 20,
	}, logpkg.Component(logger, "http"))

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(metrics.Middleware())
	server.Routes(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.String("path", r.URL.Path),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{
						"code":    "internal_error",
						"message": "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			requestID := chiMiddleware.GetReqID(r.Context())
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}

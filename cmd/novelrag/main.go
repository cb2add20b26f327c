package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/panjf2000/ants/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/lorekeep/novelrag/internal/chunker"
	"github.com/lorekeep/novelrag/internal/config"
	dbRedis "github.com/lorekeep/novelrag/internal/db/redis"
	"github.com/lorekeep/novelrag/internal/domain"
	logpkg "github.com/lorekeep/novelrag/internal/logger"
	"github.com/lorekeep/novelrag/internal/metrics"
	"github.com/lorekeep/novelrag/internal/repository/chunkstore"
	"github.com/lorekeep/novelrag/internal/transport/chihttp"
	"github.com/lorekeep/novelrag/internal/transport/ollama"
	openaiEmb "github.com/lorekeep/novelrag/internal/transport/openai"
	answeruc "github.com/lorekeep/novelrag/internal/usecase/answer"
	healthuc "github.com/lorekeep/novelrag/internal/usecase/health"
	ingestuc "github.com/lorekeep/novelrag/internal/usecase/ingest"
	retrieveuc "github.com/lorekeep/novelrag/internal/usecase/retrieve"
	"github.com/lorekeep/novelrag/internal/version"
)

func main() {
	// Local development keeps secrets in a .env file
	_ = godotenv.Load()

	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.New(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting novelrag API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("db_addrs", cfg.Database.Addrs),
		zap.String("llm_provider", cfg.LLM.Provider),
	)

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Username: cfg.Database.Username,
		Password: cfg.Database.Password,
		DB:       cfg.Database.DB,
	})
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database")

	// Register LLM metrics explicitly (no init())
	metrics.RegisterLLMMetrics()

	ollamaClient := ollama.New(&ollama.Config{
		BaseURL:     cfg.LLM.Ollama.BaseURL,
		EmbedModel:  cfg.LLM.Ollama.EmbedModel,
		ChatModel:   cfg.LLM.Ollama.ChatModel,
		Timeout:     time.Duration(cfg.LLM.Ollama.TimeoutSec) * time.Second,
		MaxAttempts: cfg.LLM.Ollama.MaxAttempts,
		RetryDelay:  time.Duration(cfg.LLM.Ollama.RetryDelayMS) * time.Millisecond,
		Logger:      logger,
	})

	embedder, llmHealth := buildEmbedder(cfg, ollamaClient, logger)

	repo := chunkstore.New(store, cfg.Ingest.VectorDim)
	if err := repo.EnsureSchema(ctx); err != nil {
		logger.Fatal("Failed to ensure vector schema", zap.Error(err))
	}
	logger.Info("Vector schema ready", zap.Int("dim", cfg.Ingest.VectorDim))

	pool, err := ants.NewPool(cfg.Ingest.PoolSize)
	if err != nil {
		logger.Fatal("Failed to create worker pool", zap.Error(err))
	}
	defer pool.Release()

	tracker := ingestuc.NewTracker()
	ingestSvc := ingestuc.New(repo, embedder, chunker.Splitter{}, tracker, pool, logger).
		WithBatchSize(cfg.Ingest.BatchSize)
	retrieveSvc := retrieveuc.New(repo, embedder, logger).WithTopK(cfg.Retrieve.TopK)
	answerSvc := answeruc.New(retrieveSvc, ollamaClient, logger)
	healthSvc := healthuc.New(store, llmHealth, logger)

	server := chihttp.NewServer(ingestSvc, tracker, answerSvc, repo, healthSvc, logger)

	r := chi.NewRouter()
	r.Use(chihttp.JSONRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(chihttp.WideEvent(logger))
	r.Use(metrics.Middleware())
	server.Register(r)
	r.Handle("/metrics", promhttp.Handler())

	addr := ":" + strconv.Itoa(cfg.HTTP.Port)
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

// buildEmbedder picks the embedding backend. Ollama embeds and generates
// with one client; an OpenAI-compatible provider covers embedding only.
func buildEmbedder(
	cfg config.Config, ollamaClient *ollama.Client, logger *zap.Logger,
) (domain.Embedder, healthuc.LLMChecker) {
	if cfg.LLM.Provider == "openai" {
		emb := openaiEmb.NewEmbedder(&openaiEmb.Config{
			APIKey:     cfg.LLM.OpenAI.APIKey,
			BaseURL:    cfg.LLM.OpenAI.BaseURL,
			Model:      cfg.LLM.OpenAI.Model,
			Dimensions: cfg.LLM.OpenAI.Dimensions,
			Provider:   "openai",
			Logger:     logger,
		})
		logger.Info("Embedder created",
			zap.String("provider", "openai"),
			zap.String("model", cfg.LLM.OpenAI.Model),
			zap.Int("dimensions", cfg.LLM.OpenAI.Dimensions),
		)
		return emb, emb
	}

	logger.Info("Embedder created",
		zap.String("provider", "ollama"),
		zap.String("model", cfg.LLM.Ollama.EmbedModel),
	)
	return ollamaClient, ollamaClient
}

package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/certiq/certiq-backend/internal/cache"
	"github.com/certiq/certiq-backend/internal/coderunner"
	"github.com/certiq/certiq-backend/internal/config"
	"github.com/certiq/certiq-backend/internal/database"
	"github.com/certiq/certiq-backend/internal/handler"
	"github.com/certiq/certiq-backend/internal/logger"
	"github.com/certiq/certiq-backend/internal/repository"
	"github.com/certiq/certiq-backend/internal/router"
	"github.com/certiq/certiq-backend/internal/service"
	"github.com/certiq/certiq-backend/internal/validator"
	"github.com/certiq/certiq-backend/internal/worker"
	"github.com/rs/zerolog"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("log_level", cfg.LogLevel).
		Msg("Starting Certiq Backend")

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	// ─── Connect to Redis ──────────────────────────────────────────────
	rdb, err := database.NewRedisClient(ctx, cfg.RedisURL, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	// ─── Initialize Repositories ───────────────────────────────────────
	accountRepo := repository.NewAccountRepository(pool)
	candidateRepo := repository.NewCandidateRepository(pool)
	examRepo := repository.NewExamRepository(pool)
	questionRepo := repository.NewQuestionRepository(pool)
	mcqSubRepo := repository.NewMcqSubmissionRepository(pool)
	writtenSubRepo := repository.NewWrittenSubmissionRepository(pool)
	problemSubRepo := repository.NewProblemSubmissionRepository(pool)

	// ─── Initialize Infrastructure ─────────────────────────────────────
	sessionCache := cache.NewSessionCache(rdb)
	scoreQueue := worker.NewQueue(rdb)
	runner := coderunner.NewHTTPRunner(cfg, log)
	clock := service.SystemClock{}

	// ─── Initialize Services ──────────────────────────────────────────
	authService := service.NewAuthService(cfg, accountRepo, candidateRepo, log)
	sessionService := service.NewSessionService(
		candidateRepo, examRepo, questionRepo,
		mcqSubRepo, writtenSubRepo, problemSubRepo,
		sessionCache, scoreQueue, clock, log,
	)
	mcqService := service.NewMcqService(candidateRepo, examRepo, questionRepo, mcqSubRepo, clock, log)
	writtenService := service.NewWrittenService(candidateRepo, examRepo, questionRepo, writtenSubRepo, clock, log)
	problemService := service.NewProblemService(
		candidateRepo, examRepo, questionRepo, problemSubRepo,
		runner, cfg.CodeRunnerConcurrency, clock, log,
	)

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Auth:       handler.NewAuthHandler(authService),
		Session:    handler.NewSessionHandler(sessionService),
		Submission: handler.NewSubmissionHandler(mcqService, writtenService, problemService),
		WS:         handler.NewWSHandler(sessionService, log, cfg.AllowedOrigins),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())

	scoreWorker := worker.NewScoreWorker(pool, rdb, log)
	go scoreWorker.Start(workerCtx)

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(authService, handlers, cfg)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: r,
	}

	// ─── Start Server in Goroutine ─────────────────────────────────────
	go func() {
		log.Info().Str("addr", ":"+cfg.ServerPort).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// ─── Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")

	// 1. Stop accepting new HTTP requests (5s timeout).
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// 2. Stop the score worker and wait for the queue to drain.
	workerCancel()
	time.Sleep(2 * time.Second) // Allow the worker to drain.

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}

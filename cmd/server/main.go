package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cierrez/internal/config"
	"cierrez/internal/infra"
	"cierrez/internal/repository"
	"cierrez/internal/router"
	"cierrez/internal/worker"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	// Structured logger — dev: pretty, prod: JSON
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	tz, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		log.Warn().Str("timezone", cfg.Timezone).Msg("unknown timezone, falling back to UTC")
		tz = time.UTC
	}

	db, err := infra.NewDatabase(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}

	rdb, err := infra.NewRedis(cfg.RedisURL, 5*time.Second)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}

	// One circuit breaker guards every call to the POS backend — previews,
	// submissions and background email delivery share its state.
	backend := infra.NewBackendClient(cfg.BackendURL, time.Duration(cfg.BackendTimeoutSec)*time.Second)
	cb := infra.NewCircuitBreaker(infra.DefaultCBConfig())
	mailer := infra.NewMailer(cfg)

	// Start goroutine worker pool for async tasks (reporte Z PDF + email).
	// Worker handlers are wired here (composition root) so that the pool
	// has full access to all infrastructure dependencies.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dispatcher := worker.NewDispatcher(rdb)
	cierreRepo := repository.NewCierreRepository(db)

	emailWorker := worker.NewEmailWorker(backend, mailer, cierreRepo, rdb, cb, cfg.BackendServiceToken, cfg.Recipients())
	handlers := worker.Handlers{
		Impresion: worker.NewImpresionWorker(cierreRepo, cfg.PDFStoragePath),
		Email:     emailWorker,
	}
	worker.StartWorkerPool(ctx, rdb, handlers, cfg.WorkerPoolSize)

	// Re-attempt pending reporte Z emails in the background
	worker.StartRetryCron(ctx, worker.RetryCronConfig{
		Repo:  cierreRepo,
		Email: emailWorker,
		CB:    cb,
	})

	r := router.New(cfg, db, rdb, backend, cb, dispatcher, tz)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown on SIGINT / SIGTERM
	go func() {
		log.Info().Msgf("cierrez listening on :%d", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server…")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("forced shutdown")
	}
	log.Info().Msg("server exited")
}

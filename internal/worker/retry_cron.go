package worker

// retry_cron.go
// Background goroutine that periodically re-attempts reporte Z emails
// stuck in email_estado='pendiente' with a next_retry_at in the past.
// Uses the Circuit Breaker to avoid hammering a downed backend.

import (
	"context"
	"time"

	"cierrez/internal/infra"
	"cierrez/internal/repository"

	"github.com/rs/zerolog/log"
)

const (
	retryTickInterval = 60 * time.Second
	retryBatchSize    = 10

	// MaxEmailRetries bounds delivery attempts before the row lands in the DLQ.
	MaxEmailRetries = 3
)

// computeRetryBackoff doubles per attempt: 1m, 2m, 4m … capped at 30m.
func computeRetryBackoff(retryCount int) time.Duration {
	if retryCount < 1 {
		retryCount = 1
	}
	backoff := time.Minute * time.Duration(1<<uint(retryCount-1))
	if backoff > 30*time.Minute {
		backoff = 30 * time.Minute
	}
	return backoff
}

// RetryCronConfig holds all dependencies for the retry goroutine.
type RetryCronConfig struct {
	Repo  repository.CierreRepository
	Email *EmailWorker
	CB    *infra.CircuitBreaker
}

// StartRetryCron launches a background goroutine that ticks every minute,
// queries pending email rows, and re-attempts delivery through the CB.
// It respects the context for graceful shutdown.
func StartRetryCron(ctx context.Context, cfg RetryCronConfig) {
	go func() {
		ticker := time.NewTicker(retryTickInterval)
		defer ticker.Stop()

		log.Info().Msg("retry_cron: started")

		for {
			select {
			case <-ctx.Done():
				log.Info().Msg("retry_cron: shutting down")
				return
			case <-ticker.C:
				processRetries(ctx, cfg)
			}
		}
	}()
}

func processRetries(ctx context.Context, cfg RetryCronConfig) {
	// If CB is open, skip entirely — don't hammer a downed backend
	if cfg.CB != nil && cfg.CB.State() == infra.CBOpen {
		log.Debug().Msg("retry_cron: circuit breaker is open, skipping tick")
		return
	}

	now := time.Now()
	pendientes, err := cfg.Repo.ListPendingEmailRetries(ctx, now, retryBatchSize)
	if err != nil {
		log.Error().Err(err).Msg("retry_cron: failed to query pending retries")
		return
	}

	if len(pendientes) == 0 {
		return
	}

	log.Info().Int("count", len(pendientes)).Msg("retry_cron: processing pending reporte Z emails")

	for i := range pendientes {
		// Check CB state before each send — it may have tripped mid-batch
		if cfg.CB != nil && cfg.CB.State() == infra.CBOpen {
			log.Debug().Msg("retry_cron: circuit breaker opened mid-batch, stopping")
			return
		}
		cfg.Email.Despachar(ctx, &pendientes[i])
	}
}

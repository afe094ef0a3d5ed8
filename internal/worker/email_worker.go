package worker

// email_worker.go
// Processes reporte Z email jobs from QueueEmail. The backend's own email
// endpoint is the preferred channel (it knows the closure and can attach
// its copy of the report); direct SMTP is the fallback when no machine
// token is configured or the backend call fails.

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cierrez/internal/infra"
	"cierrez/internal/model"
	"cierrez/internal/repository"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// EmailJobPayload is the job envelope sent to QueueEmail.
type EmailJobPayload struct {
	CierreID  string `json:"cierre_id"`
	Documento int64  `json:"documento"`
}

// EmailWorker delivers reporte Z emails and keeps the audit row's retry
// bookkeeping. The retry cron reuses it for scheduled re-attempts.
type EmailWorker struct {
	backend       *infra.BackendClient
	mailer        *infra.Mailer
	repo          repository.CierreRepository
	rdb           *redis.Client
	cb            *infra.CircuitBreaker
	serviceToken  string
	destinatarios []string
}

func NewEmailWorker(
	backend *infra.BackendClient,
	mailer *infra.Mailer,
	repo repository.CierreRepository,
	rdb *redis.Client,
	cb *infra.CircuitBreaker,
	serviceToken string,
	destinatarios []string,
) *EmailWorker {
	return &EmailWorker{
		backend:       backend,
		mailer:        mailer,
		repo:          repo,
		rdb:           rdb,
		cb:            cb,
		serviceToken:  serviceToken,
		destinatarios: destinatarios,
	}
}

// Process handles one queued email job end to end.
func (w *EmailWorker) Process(ctx context.Context, raw json.RawMessage) {
	var payload EmailJobPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		log.Error().Err(err).Msg("email_worker: invalid payload")
		return
	}
	if payload.CierreID == "" {
		log.Warn().Msg("email_worker: empty cierre_id — skipping")
		return
	}

	aud, err := w.repo.FindByCierreID(ctx, payload.CierreID)
	if err != nil {
		log.Error().Err(err).Str("cierre_id", payload.CierreID).Msg("email_worker: audit row not found")
		return
	}
	w.Despachar(ctx, aud)
}

// Despachar attempts delivery for one audit row and records the outcome:
// "enviado" on success, scheduled retry on failure, "error" plus a DLQ
// entry once MaxEmailRetries is exhausted.
func (w *EmailWorker) Despachar(ctx context.Context, aud *model.CierreAuditoria) {
	err := w.enviar(ctx, aud)
	if err == nil {
		aud.EmailEstado = "enviado"
		aud.NextRetryAt = nil
		aud.LastError = nil
		if uerr := w.repo.Update(ctx, aud); uerr != nil {
			log.Warn().Err(uerr).Str("cierre_id", aud.CierreID).Msg("email_worker: failed to mark as sent")
		}
		log.Info().Str("cierre_id", aud.CierreID).Int64("documento", aud.Documento).Msg("email_worker: reporte Z sent")
		return
	}

	aud.RetryCount++
	errMsg := err.Error()
	aud.LastError = &errMsg
	nextRetry := time.Now().Add(computeRetryBackoff(aud.RetryCount))
	aud.NextRetryAt = &nextRetry

	if aud.RetryCount >= MaxEmailRetries {
		aud.EmailEstado = "error"
		aud.NextRetryAt = nil
		log.Error().
			Str("cierre_id", aud.CierreID).
			Int("retries", aud.RetryCount).
			Msg("email_worker: max retries exceeded, moving to error/DLQ")

		if w.rdb != nil {
			payload := fmt.Sprintf(`{"cierre_id":%q,"documento":%d}`, aud.CierreID, aud.Documento)
			SendToDLQ(ctx, w.rdb, QueueEmail, "email", []byte(payload),
				fmt.Sprintf("max retries (%d) exceeded: %s", MaxEmailRetries, errMsg),
				aud.RetryCount)
		}
	} else {
		log.Warn().
			Str("cierre_id", aud.CierreID).
			Int("retry_count", aud.RetryCount).
			Time("next_retry_at", nextRetry).
			Msg("email_worker: delivery failed, scheduled next attempt")
	}

	if uerr := w.repo.Update(ctx, aud); uerr != nil {
		log.Warn().Err(uerr).Str("cierre_id", aud.CierreID).Msg("email_worker: failed to record retry state")
	}
}

// enviar tries the backend channel first, then SMTP.
func (w *EmailWorker) enviar(ctx context.Context, aud *model.CierreAuditoria) error {
	var backendErr error
	if w.backend != nil && w.serviceToken != "" {
		backendErr = w.ejecutar(func() error {
			return w.backend.EnviarEmailCierre(ctx, w.serviceToken, aud.CierreID, infra.EmailCierreRequest{
				AttachPDF:     true,
				Destinatarios: w.destinatarios,
			})
		})
		if backendErr == nil {
			return nil
		}
		log.Warn().Err(backendErr).Str("cierre_id", aud.CierreID).Msg("email_worker: backend channel failed, trying SMTP")
	}

	if w.mailer != nil && w.mailer.Configured() && len(w.destinatarios) > 0 {
		pdfPath := ""
		if aud.PDFPath != nil {
			pdfPath = *aud.PDFPath
		}
		subject := fmt.Sprintf("Reporte Z #%d — %s", aud.Documento, aud.PosName)
		body := fmt.Sprintf(
			"Cierre de caja #%d (%s)\nTotal bruto: $%s\nMonto neto: $%s\nEfectivo contado: $%s\nDiferencia: $%s\n",
			aud.Documento, aud.PosName,
			aud.TotalBruto.StringFixed(2), aud.MontoNeto.StringFixed(2),
			aud.EfectivoContado.StringFixed(2), aud.Diferencia.StringFixed(2),
		)
		return w.mailer.SendReporteZ(w.destinatarios, subject, body, pdfPath)
	}

	if backendErr != nil {
		return backendErr
	}
	return fmt.Errorf("email_worker: no delivery channel configured")
}

func (w *EmailWorker) ejecutar(fn func() error) error {
	if w.cb == nil {
		return fn()
	}
	return w.cb.Execute(fn)
}

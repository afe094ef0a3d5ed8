package worker

// impresion_worker.go
// Processes reporte Z print jobs from QueueImpresion: renders the thermal
// ticket PDF and records its path on the audit row.

import (
	"context"
	"encoding/json"

	"cierrez/internal/dto"
	"cierrez/internal/infra"
	"cierrez/internal/model"
	"cierrez/internal/repository"

	"github.com/rs/zerolog/log"
)

// ImpresionJobPayload is the job envelope sent to QueueImpresion. It carries
// the full closure plus the breakdown so the render needs no backend call.
type ImpresionJobPayload struct {
	Cierre  model.Cierre              `json:"cierre"`
	Resumen dto.ResumenCierreResponse `json:"resumen"`
}

// ImpresionWorker renders reporte Z tickets from QueueImpresion.
type ImpresionWorker struct {
	repo        repository.CierreRepository
	storagePath string
}

func NewImpresionWorker(repo repository.CierreRepository, storagePath string) *ImpresionWorker {
	return &ImpresionWorker{repo: repo, storagePath: storagePath}
}

// Process renders the PDF and stamps its path on the audit row.
func (w *ImpresionWorker) Process(ctx context.Context, raw json.RawMessage) {
	var payload ImpresionJobPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		log.Error().Err(err).Msg("impresion_worker: invalid payload")
		return
	}
	if payload.Cierre.ID == "" {
		log.Warn().Msg("impresion_worker: empty cierre id — skipping")
		return
	}

	pdfPath, err := infra.GenerateReporteZPDF(&payload.Cierre, payload.Resumen, w.storagePath)
	if err != nil {
		log.Error().Err(err).Str("cierre_id", payload.Cierre.ID).Msg("impresion_worker: PDF generation failed")
		return
	}
	log.Info().Str("pdf", pdfPath).Str("cierre_id", payload.Cierre.ID).Msg("impresion_worker: reporte Z generated")

	if w.repo == nil {
		return
	}
	aud, err := w.repo.FindByCierreID(ctx, payload.Cierre.ID)
	if err != nil {
		log.Warn().Err(err).Str("cierre_id", payload.Cierre.ID).Msg("impresion_worker: audit row not found")
		return
	}
	aud.PDFPath = &pdfPath
	if err := w.repo.Update(ctx, aud); err != nil {
		log.Warn().Err(err).Str("cierre_id", payload.Cierre.ID).Msg("impresion_worker: failed to record pdf path")
	}
}

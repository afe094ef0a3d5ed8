package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"cierrez/internal/dto"
	"cierrez/internal/infra"
	"cierrez/internal/model"
	"cierrez/internal/repository"
)

// ErrSinMovimientos rejects a cierre whose every bucket is zero. Callers
// get it before any network submission happens.
var ErrSinMovimientos = errors.New("No hay movimientos pendientes por cerrar")

// Backend is the slice of the POS API the cierre flow needs.
type Backend interface {
	FetchVentas(ctx context.Context, token string) ([]model.Venta, error)
	FetchDevoluciones(ctx context.Context, token string) ([]model.Devolucion, error)
	FetchCambios(ctx context.Context, token string) ([]model.Cambio, error)
	FetchSeparados(ctx context.Context, token string) ([]model.PedidoSeparado, error)
	CrearCierre(ctx context.Context, token string, payload infra.CierrePayload) (*model.Cierre, error)
}

// Encolador dispatches post-closure side-effect jobs (ticket print, email).
type Encolador interface {
	EncolarImpresion(ctx context.Context, cierre *model.Cierre, resumen dto.ResumenCierreResponse) error
	EncolarEmail(ctx context.Context, cierreID string, documento int64) error
}

// CierreService runs the reporte Z flow: aggregate the open records,
// submit the closure to the backend, keep the local audit trail and fire
// the side-effect jobs.
type CierreService interface {
	Previsualizar(ctx context.Context, token string, alcance Alcance) (*ResumenCierre, error)
	// EnviarCierre submits an already-aggregated resumen. Validation of the
	// "nothing to close" case happens here, before touching the backend.
	EnviarCierre(ctx context.Context, token string, resumen *ResumenCierre, req dto.CerrarCajaRequest, usuario string) (*dto.CierreResponse, error)
	Cerrar(ctx context.Context, token string, req dto.CerrarCajaRequest, usuario string) (*dto.CierreResponse, error)
	Historial(ctx context.Context, page, limit int) ([]dto.HistorialItem, int64, error)
}

type cierreService struct {
	backend       Backend
	catalogo      CatalogoService
	repo          repository.CierreRepository
	encolador     Encolador
	cb            *infra.CircuitBreaker
	tz            *time.Location
	destinatarios []string
}

func NewCierreService(
	backend Backend,
	catalogo CatalogoService,
	repo repository.CierreRepository,
	encolador Encolador,
	cb *infra.CircuitBreaker,
	tz *time.Location,
	destinatarios []string,
) CierreService {
	if tz == nil {
		tz = time.UTC
	}
	return &cierreService{
		backend:       backend,
		catalogo:      catalogo,
		repo:          repo,
		encolador:     encolador,
		cb:            cb,
		tz:            tz,
		destinatarios: destinatarios,
	}
}

// Previsualizar fetches the four open record sets plus the method catalog
// concurrently and runs one aggregation pass over them.
func (s *cierreService) Previsualizar(ctx context.Context, token string, alcance Alcance) (*ResumenCierre, error) {
	if token == "" {
		return nil, infra.ErrSinToken
	}

	var (
		ventas       []model.Venta
		devoluciones []model.Devolucion
		cambios      []model.Cambio
		separados    []model.PedidoSeparado
		metodos      []model.MetodoPago
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.ejecutar(func() (err error) {
			ventas, err = s.backend.FetchVentas(gctx, token)
			return
		})
	})
	g.Go(func() error {
		return s.ejecutar(func() (err error) {
			devoluciones, err = s.backend.FetchDevoluciones(gctx, token)
			return
		})
	})
	g.Go(func() error {
		return s.ejecutar(func() (err error) {
			cambios, err = s.backend.FetchCambios(gctx, token)
			return
		})
	})
	g.Go(func() error {
		return s.ejecutar(func() (err error) {
			separados, err = s.backend.FetchSeparados(gctx, token)
			return
		})
	})
	g.Go(func() (err error) {
		metodos, err = s.catalogo.Metodos(gctx, token)
		return
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return Agregar(ventas, devoluciones, cambios, separados, alcance, metodos, s.tz), nil
}

func (s *cierreService) Cerrar(ctx context.Context, token string, req dto.CerrarCajaRequest, usuario string) (*dto.CierreResponse, error) {
	alcance := Alcance{EstacionID: req.EstacionID, Etiqueta: req.EstacionLabel, Web: req.Web}
	resumen, err := s.Previsualizar(ctx, token, alcance)
	if err != nil {
		return nil, err
	}
	return s.EnviarCierre(ctx, token, resumen, req, usuario)
}

func (s *cierreService) EnviarCierre(ctx context.Context, token string, resumen *ResumenCierre, req dto.CerrarCajaRequest, usuario string) (*dto.CierreResponse, error) {
	if resumen.SinMovimientos() {
		return nil, ErrSinMovimientos
	}

	resp := resumen.ToResponse()
	contado := req.EfectivoContado.Round(2)
	diferencia := contado.Sub(resp.Efectivo.Neto)
	posName := nombrePOS(req)

	payload := infra.CierrePayload{
		PosName:        posName,
		TotalBruto:     resp.TotalBruto,
		TotalEfectivo:  resp.Efectivo.Neto,
		TotalTarjeta:   resp.Tarjeta.Neto,
		TotalQR:        resp.QR.Neto,
		TotalNequi:     resp.Nequi.Neto,
		TotalDaviplata: resp.Daviplata.Neto,
		TotalCredito:   resp.Credito.Neto,

		TotalDevoluciones: resp.TotalDevoluciones,
		MontoNeto:         resp.MontoNeto,

		CambiosExtra:     resp.CambiosExtra,
		CambiosReembolso: resp.CambiosReembolso,
		CantidadCambios:  resp.CantidadCambios,

		EfectivoContado: contado,
		Diferencia:      diferencia,
		Notas:           req.Notas,
	}
	if req.EstacionID != "" {
		id := req.EstacionID
		payload.EstacionID = &id
	}
	for _, e := range resp.Extras {
		payload.MetodosExtra = append(payload.MetodosExtra, infra.MetodoExtraPayload{
			Slug:     e.Slug,
			Etiqueta: e.Etiqueta,
			Bruto:    e.Bruto,
			Neto:     e.Neto,
		})
	}

	var cierre *model.Cierre
	err := s.ejecutar(func() (err error) {
		cierre, err = s.backend.CrearCierre(ctx, token, payload)
		return
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("cierre_id", cierre.ID).
		Int64("documento", cierre.Documento).
		Str("pos", posName).
		Str("usuario", usuario).
		Str("monto_neto", resp.MontoNeto.String()).
		Msg("Cierre de caja registrado")

	out := &dto.CierreResponse{
		ID:              cierre.ID,
		Documento:       cierre.Documento,
		PosName:         posName,
		EfectivoContado: contado,
		Diferencia:      diferencia,
		CerradoEn:       cierre.CerradoEn.In(s.tz).Format(time.RFC3339),
		Resumen:         resp,
	}

	s.registrarAuditoria(ctx, cierre, resp, req, usuario, contado, diferencia, posName, out)
	s.encolarEfectos(ctx, cierre, resp, out)

	return out, nil
}

// registrarAuditoria writes the local audit row. Failures never block the
// closure — the backend already owns the artifact — they become warnings.
func (s *cierreService) registrarAuditoria(
	ctx context.Context,
	cierre *model.Cierre,
	resp dto.ResumenCierreResponse,
	req dto.CerrarCajaRequest,
	usuario string,
	contado, diferencia decimal.Decimal,
	posName string,
	out *dto.CierreResponse,
) {
	if s.repo == nil {
		return
	}

	resumenJSON, _ := json.Marshal(resp)
	estadoEmail := "omitido"
	if len(s.destinatarios) > 0 {
		estadoEmail = "pendiente"
	}
	aud := &model.CierreAuditoria{
		CierreID:  cierre.ID,
		Documento: cierre.Documento,
		PosName:   posName,
		Usuario:   usuario,

		TotalBruto:        resp.TotalBruto,
		TotalDevoluciones: resp.TotalDevoluciones,
		MontoNeto:         resp.MontoNeto,
		EfectivoContado:   contado,
		Diferencia:        diferencia,

		ResumenJSON: string(resumenJSON),
		Notas:       req.Notas,
		EmailEstado: estadoEmail,
	}
	if req.EstacionID != "" {
		id := req.EstacionID
		aud.EstacionID = &id
	}

	if err := s.repo.Create(ctx, aud); err != nil {
		log.Error().Err(err).Str("cierre_id", cierre.ID).Msg("No se pudo registrar la auditoria del cierre")
		out.Advertencias = append(out.Advertencias, "El cierre fue registrado pero la auditoria local fallo")
	}
}

// encolarEfectos queues the print and email jobs. Same policy: warn, never fail.
func (s *cierreService) encolarEfectos(ctx context.Context, cierre *model.Cierre, resp dto.ResumenCierreResponse, out *dto.CierreResponse) {
	if s.encolador == nil {
		return
	}

	if err := s.encolador.EncolarImpresion(ctx, cierre, resp); err != nil {
		log.Error().Err(err).Str("cierre_id", cierre.ID).Msg("No se pudo encolar la impresion del reporte Z")
		out.Advertencias = append(out.Advertencias, "No se pudo encolar la impresion del reporte Z")
	}
	if len(s.destinatarios) > 0 {
		if err := s.encolador.EncolarEmail(ctx, cierre.ID, cierre.Documento); err != nil {
			log.Error().Err(err).Str("cierre_id", cierre.ID).Msg("No se pudo encolar el correo del reporte Z")
			out.Advertencias = append(out.Advertencias, "No se pudo encolar el correo del reporte Z")
		}
	}
}

func (s *cierreService) Historial(ctx context.Context, page, limit int) ([]dto.HistorialItem, int64, error) {
	rows, total, err := s.repo.List(ctx, page, limit)
	if err != nil {
		return nil, 0, err
	}
	items := make([]dto.HistorialItem, 0, len(rows))
	for i := range rows {
		r := &rows[i]
		items = append(items, dto.HistorialItem{
			CierreID:        r.CierreID,
			Documento:       r.Documento,
			PosName:         r.PosName,
			Usuario:         r.Usuario,
			TotalBruto:      r.TotalBruto,
			MontoNeto:       r.MontoNeto,
			EfectivoContado: r.EfectivoContado,
			Diferencia:      r.Diferencia,
			EmailEstado:     r.EmailEstado,
			CreatedAt:       r.CreatedAt.In(s.tz).Format(time.RFC3339),
		})
	}
	return items, total, nil
}

// ejecutar routes a backend call through the circuit breaker when one is
// configured.
func (s *cierreService) ejecutar(fn func() error) error {
	if s.cb == nil {
		return fn()
	}
	return s.cb.Execute(fn)
}

// nombrePOS resolves the display name posted with the cierre.
func nombrePOS(req dto.CerrarCajaRequest) string {
	switch {
	case req.Web:
		return "POS Web"
	case req.EstacionLabel != "":
		return req.EstacionLabel
	default:
		return "Todas las cajas"
	}
}

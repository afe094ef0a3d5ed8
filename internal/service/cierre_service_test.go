package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"cierrez/internal/dto"
	"cierrez/internal/infra"
	"cierrez/internal/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ── Fakes ────────────────────────────────────────────────────────────────────

type fakeBackend struct {
	ventas       []model.Venta
	devoluciones []model.Devolucion
	cambios      []model.Cambio
	separados    []model.PedidoSeparado

	errVentas error

	crearLlamadas int
	ultimoPayload infra.CierrePayload
	cierre        *model.Cierre
	errCrear      error
}

func (f *fakeBackend) FetchVentas(_ context.Context, _ string) ([]model.Venta, error) {
	return f.ventas, f.errVentas
}
func (f *fakeBackend) FetchDevoluciones(_ context.Context, _ string) ([]model.Devolucion, error) {
	return f.devoluciones, nil
}
func (f *fakeBackend) FetchCambios(_ context.Context, _ string) ([]model.Cambio, error) {
	return f.cambios, nil
}
func (f *fakeBackend) FetchSeparados(_ context.Context, _ string) ([]model.PedidoSeparado, error) {
	return f.separados, nil
}
func (f *fakeBackend) CrearCierre(_ context.Context, _ string, payload infra.CierrePayload) (*model.Cierre, error) {
	f.crearLlamadas++
	f.ultimoPayload = payload
	if f.errCrear != nil {
		return nil, f.errCrear
	}
	return f.cierre, nil
}

type stubCatalogo struct{ metodos []model.MetodoPago }

func (s *stubCatalogo) Metodos(_ context.Context, _ string) ([]model.MetodoPago, error) {
	return s.metodos, nil
}
func (s *stubCatalogo) Invalidar(_ context.Context) {}

type stubRepo struct {
	rows []model.CierreAuditoria
}

func (r *stubRepo) Create(_ context.Context, c *model.CierreAuditoria) error {
	c.CreatedAt = time.Now()
	r.rows = append(r.rows, *c)
	return nil
}
func (r *stubRepo) FindByCierreID(_ context.Context, cierreID string) (*model.CierreAuditoria, error) {
	for i := range r.rows {
		if r.rows[i].CierreID == cierreID {
			return &r.rows[i], nil
		}
	}
	return nil, errors.New("record not found")
}
func (r *stubRepo) Update(_ context.Context, c *model.CierreAuditoria) error {
	for i := range r.rows {
		if r.rows[i].CierreID == c.CierreID {
			r.rows[i] = *c
			return nil
		}
	}
	return errors.New("record not found")
}
func (r *stubRepo) List(_ context.Context, _, _ int) ([]model.CierreAuditoria, int64, error) {
	return r.rows, int64(len(r.rows)), nil
}
func (r *stubRepo) ListPendingEmailRetries(_ context.Context, _ time.Time, _ int) ([]model.CierreAuditoria, error) {
	return nil, nil
}

type stubEncolador struct {
	impresiones int
	emails      int
	errEncolar  error
}

func (e *stubEncolador) EncolarImpresion(_ context.Context, _ *model.Cierre, _ dto.ResumenCierreResponse) error {
	e.impresiones++
	return e.errEncolar
}
func (e *stubEncolador) EncolarEmail(_ context.Context, _ string, _ int64) error {
	e.emails++
	return e.errEncolar
}

func nuevoServicio(backend *fakeBackend, repo *stubRepo, enc *stubEncolador, destinatarios []string) CierreService {
	return NewCierreService(backend, &stubCatalogo{}, repo, enc, nil, time.UTC, destinatarios)
}

// ── Tests ────────────────────────────────────────────────────────────────────

func TestPrevisualizar_SinToken(t *testing.T) {
	svc := nuevoServicio(&fakeBackend{}, &stubRepo{}, &stubEncolador{}, nil)

	_, err := svc.Previsualizar(context.Background(), "", Alcance{})
	assert.ErrorIs(t, err, infra.ErrSinToken)
}

func TestEnviarCierre_SinMovimientosNoLlamaBackend(t *testing.T) {
	backend := &fakeBackend{}
	svc := nuevoServicio(backend, &stubRepo{}, &stubEncolador{}, nil)

	resumen := Agregar(nil, nil, nil, nil, Alcance{}, nil, nil)
	req := dto.CerrarCajaRequest{EfectivoContado: decimal.Zero}

	_, err := svc.EnviarCierre(context.Background(), "tok", resumen, req, "laura")
	assert.ErrorIs(t, err, ErrSinMovimientos)
	assert.Equal(t, 0, backend.crearLlamadas, "un cierre vacio nunca debe llegar al backend")
}

func TestCerrar_FlujoCompleto(t *testing.T) {
	cerradoEn := time.Date(2026, 8, 29, 21, 15, 0, 0, time.UTC)
	backend := &fakeBackend{
		ventas: []model.Venta{
			{ID: "v1", EstacionID: ptr("est-1"), Total: decimal.NewFromInt(50000), MetodoPago: "Efectivo", Vendedor: "Laura"},
		},
		cierre: &model.Cierre{ID: "z-77", Documento: 77, CerradoEn: cerradoEn},
	}
	repo := &stubRepo{}
	enc := &stubEncolador{}
	svc := nuevoServicio(backend, repo, enc, []string{"admin@tienda.co"})

	req := dto.CerrarCajaRequest{
		EstacionID:      "est-1",
		EstacionLabel:   "Caja Principal",
		EfectivoContado: decimal.NewFromInt(48500),
	}
	resp, err := svc.Cerrar(context.Background(), "tok", req, "laura")
	require.NoError(t, err)

	assert.Equal(t, "z-77", resp.ID)
	assert.Equal(t, int64(77), resp.Documento)
	assert.Equal(t, "Caja Principal", resp.PosName)
	// Diferencia = contado − efectivo esperado (48.500 − 50.000)
	assert.True(t, resp.Diferencia.Equal(decimal.NewFromInt(-1500)), "diferencia %s", resp.Diferencia)
	assert.Empty(t, resp.Advertencias)

	// Payload enviado al backend
	require.Equal(t, 1, backend.crearLlamadas)
	p := backend.ultimoPayload
	assert.True(t, p.TotalBruto.Equal(decimal.NewFromInt(50000)))
	assert.True(t, p.TotalEfectivo.Equal(decimal.NewFromInt(50000)))
	assert.True(t, p.EfectivoContado.Equal(decimal.NewFromInt(48500)))
	require.NotNil(t, p.EstacionID)
	assert.Equal(t, "est-1", *p.EstacionID)

	// Auditoria local + jobs asincrónicos
	require.Len(t, repo.rows, 1)
	assert.Equal(t, "z-77", repo.rows[0].CierreID)
	assert.Equal(t, "laura", repo.rows[0].Usuario)
	assert.Equal(t, "pendiente", repo.rows[0].EmailEstado)
	assert.Equal(t, 1, enc.impresiones)
	assert.Equal(t, 1, enc.emails)
}

func TestCerrar_SinDestinatariosOmiteEmail(t *testing.T) {
	backend := &fakeBackend{
		ventas: []model.Venta{{ID: "v1", Total: decimal.NewFromInt(1000), MetodoPago: "Efectivo"}},
		cierre: &model.Cierre{ID: "z-1", Documento: 1, CerradoEn: time.Now()},
	}
	repo := &stubRepo{}
	enc := &stubEncolador{}
	svc := nuevoServicio(backend, repo, enc, nil)

	_, err := svc.Cerrar(context.Background(), "tok", dto.CerrarCajaRequest{EfectivoContado: decimal.NewFromInt(1000)}, "laura")
	require.NoError(t, err)

	assert.Equal(t, 0, enc.emails)
	require.Len(t, repo.rows, 1)
	assert.Equal(t, "omitido", repo.rows[0].EmailEstado)
}

func TestCerrar_FallaDeFetchAborta(t *testing.T) {
	backend := &fakeBackend{errVentas: errors.New("backend caido")}
	svc := nuevoServicio(backend, &stubRepo{}, &stubEncolador{}, nil)

	_, err := svc.Cerrar(context.Background(), "tok", dto.CerrarCajaRequest{}, "laura")
	require.Error(t, err)
	assert.Equal(t, 0, backend.crearLlamadas)
}

func TestCerrar_FallaDeEncoladoEsAdvertencia(t *testing.T) {
	backend := &fakeBackend{
		ventas: []model.Venta{{ID: "v1", Total: decimal.NewFromInt(1000), MetodoPago: "Efectivo"}},
		cierre: &model.Cierre{ID: "z-2", Documento: 2, CerradoEn: time.Now()},
	}
	enc := &stubEncolador{errEncolar: errors.New("redis caido")}
	svc := nuevoServicio(backend, &stubRepo{}, enc, []string{"admin@tienda.co"})

	resp, err := svc.Cerrar(context.Background(), "tok", dto.CerrarCajaRequest{EfectivoContado: decimal.NewFromInt(1000)}, "laura")
	require.NoError(t, err, "el cierre ya existe en el backend; los efectos fallidos no lo deshacen")
	assert.Len(t, resp.Advertencias, 2)
}

func TestCerrar_ErrorDelBackendSePropaga(t *testing.T) {
	backend := &fakeBackend{
		ventas:   []model.Venta{{ID: "v1", Total: decimal.NewFromInt(1000), MetodoPago: "Efectivo"}},
		errCrear: &infra.BackendError{Status: 409, Detail: "Ya existe un cierre para esta estacion"},
	}
	svc := nuevoServicio(backend, &stubRepo{}, &stubEncolador{}, nil)

	_, err := svc.Cerrar(context.Background(), "tok", dto.CerrarCajaRequest{EfectivoContado: decimal.NewFromInt(1000)}, "laura")
	var be *infra.BackendError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, 409, be.Status)
	assert.Equal(t, "Ya existe un cierre para esta estacion", be.Detail)
}

package worker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"cierrez/internal/dto"
	"cierrez/internal/model"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ── In-memory CierreRepository stub ──────────────────────────────────────────

type stubCierreRepo struct {
	rows map[string]*model.CierreAuditoria
}

func newStubCierreRepo() *stubCierreRepo {
	return &stubCierreRepo{rows: make(map[string]*model.CierreAuditoria)}
}

func (r *stubCierreRepo) Create(_ context.Context, c *model.CierreAuditoria) error {
	cloned := *c
	r.rows[c.CierreID] = &cloned
	return nil
}
func (r *stubCierreRepo) FindByCierreID(_ context.Context, cierreID string) (*model.CierreAuditoria, error) {
	c, ok := r.rows[cierreID]
	if !ok {
		return nil, errors.New("record not found")
	}
	return c, nil
}
func (r *stubCierreRepo) Update(_ context.Context, c *model.CierreAuditoria) error {
	cloned := *c
	r.rows[c.CierreID] = &cloned
	return nil
}
func (r *stubCierreRepo) List(_ context.Context, _, _ int) ([]model.CierreAuditoria, int64, error) {
	return nil, 0, nil
}
func (r *stubCierreRepo) ListPendingEmailRetries(_ context.Context, now time.Time, _ int) ([]model.CierreAuditoria, error) {
	var out []model.CierreAuditoria
	for _, c := range r.rows {
		if c.EmailEstado == "pendiente" && c.NextRetryAt != nil && c.NextRetryAt.Before(now) {
			out = append(out, *c)
		}
	}
	return out, nil
}

// ── Tests ────────────────────────────────────────────────────────────────────

func TestDispatcher_EncolaJobsConEnvelope(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	d := NewDispatcher(rdb)

	ctx := context.Background()
	cierre := &model.Cierre{ID: "z-5", Documento: 5, TotalBruto: decimal.NewFromInt(1000)}
	require.NoError(t, d.EncolarImpresion(ctx, cierre, dto.ResumenCierreResponse{}))
	require.NoError(t, d.EncolarEmail(ctx, "z-5", 5))

	raw, err := rdb.RPop(ctx, QueueImpresion).Result()
	require.NoError(t, err)
	var job Job
	require.NoError(t, json.Unmarshal([]byte(raw), &job))
	assert.Equal(t, "impresion", job.Type)

	var impresion ImpresionJobPayload
	require.NoError(t, json.Unmarshal(job.Payload, &impresion))
	assert.Equal(t, "z-5", impresion.Cierre.ID)

	raw, err = rdb.RPop(ctx, QueueEmail).Result()
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(raw), &job))
	assert.Equal(t, "email", job.Type)

	var email EmailJobPayload
	require.NoError(t, json.Unmarshal(job.Payload, &email))
	assert.Equal(t, "z-5", email.CierreID)
	assert.Equal(t, int64(5), email.Documento)
}

func TestComputeRetryBackoff(t *testing.T) {
	assert.Equal(t, time.Minute, computeRetryBackoff(1))
	assert.Equal(t, 2*time.Minute, computeRetryBackoff(2))
	assert.Equal(t, 4*time.Minute, computeRetryBackoff(3))
	assert.Equal(t, 30*time.Minute, computeRetryBackoff(10))
}

func TestEmailWorker_FallaProgramaReintento(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	repo := newStubCierreRepo()

	aud := &model.CierreAuditoria{CierreID: "z-3", Documento: 3, EmailEstado: "pendiente"}
	require.NoError(t, repo.Create(context.Background(), aud))

	// Sin backend ni SMTP configurados: todo intento falla
	w := NewEmailWorker(nil, nil, repo, rdb, nil, "", nil)
	w.Despachar(context.Background(), aud)

	guardado, err := repo.FindByCierreID(context.Background(), "z-3")
	require.NoError(t, err)
	assert.Equal(t, "pendiente", guardado.EmailEstado)
	assert.Equal(t, 1, guardado.RetryCount)
	require.NotNil(t, guardado.NextRetryAt)
	require.NotNil(t, guardado.LastError)
}

func TestEmailWorker_AgotaReintentosYVaAlDLQ(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	repo := newStubCierreRepo()

	aud := &model.CierreAuditoria{CierreID: "z-4", Documento: 4, EmailEstado: "pendiente", RetryCount: MaxEmailRetries - 1}
	require.NoError(t, repo.Create(context.Background(), aud))

	w := NewEmailWorker(nil, nil, repo, rdb, nil, "", nil)
	w.Despachar(context.Background(), aud)

	guardado, err := repo.FindByCierreID(context.Background(), "z-4")
	require.NoError(t, err)
	assert.Equal(t, "error", guardado.EmailEstado)
	assert.Nil(t, guardado.NextRetryAt)

	n, err := DLQLength(context.Background(), rdb, QueueEmail)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

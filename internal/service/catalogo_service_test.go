package service

import (
	"context"
	"testing"
	"time"

	"cierrez/internal/model"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type contadorMetodos struct {
	llamadas int
	metodos  []model.MetodoPago
}

func (c *contadorMetodos) FetchMetodosPago(_ context.Context, _ string) ([]model.MetodoPago, error) {
	c.llamadas++
	return c.metodos, nil
}

func TestCatalogo_CacheaEnRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	backend := &contadorMetodos{metodos: []model.MetodoPago{
		{ID: "1", Nombre: "Efectivo", Slug: "cash", Activo: true},
	}}
	svc := NewCatalogoService(backend, rdb, 5*time.Minute)

	ctx := context.Background()
	metodos, err := svc.Metodos(ctx, "tok")
	require.NoError(t, err)
	require.Len(t, metodos, 1)
	assert.Equal(t, 1, backend.llamadas)

	// Segunda lectura: servida desde cache
	_, err = svc.Metodos(ctx, "tok")
	require.NoError(t, err)
	assert.Equal(t, 1, backend.llamadas)

	// Invalidacion fuerza re-fetch
	svc.Invalidar(ctx)
	_, err = svc.Metodos(ctx, "tok")
	require.NoError(t, err)
	assert.Equal(t, 2, backend.llamadas)
}

func TestCatalogo_ExpiraPorTTL(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	backend := &contadorMetodos{}
	svc := NewCatalogoService(backend, rdb, time.Minute)

	ctx := context.Background()
	_, err := svc.Metodos(ctx, "tok")
	require.NoError(t, err)

	mr.FastForward(2 * time.Minute)

	_, err = svc.Metodos(ctx, "tok")
	require.NoError(t, err)
	assert.Equal(t, 2, backend.llamadas)
}

func TestCatalogo_SinRedisVaDirecto(t *testing.T) {
	backend := &contadorMetodos{}
	svc := NewCatalogoService(backend, nil, time.Minute)

	for i := 0; i < 3; i++ {
		_, err := svc.Metodos(context.Background(), "tok")
		require.NoError(t, err)
	}
	assert.Equal(t, 3, backend.llamadas)
}

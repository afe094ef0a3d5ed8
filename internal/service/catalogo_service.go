package service

import (
	"context"
	"encoding/json"
	"time"

	"cierrez/internal/model"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const cacheKeyMetodos = "cache:metodos_pago"

// FetcherMetodos is the slice of the backend client the catalog needs.
type FetcherMetodos interface {
	FetchMetodosPago(ctx context.Context, token string) ([]model.MetodoPago, error)
}

// CatalogoService serves the payment-method catalog. The backend owns it;
// we keep a short-lived Redis snapshot so every preview doesn't re-fetch.
type CatalogoService interface {
	Metodos(ctx context.Context, token string) ([]model.MetodoPago, error)
	Invalidar(ctx context.Context)
}

type catalogoService struct {
	backend FetcherMetodos
	rdb     *redis.Client
	ttl     time.Duration
}

func NewCatalogoService(backend FetcherMetodos, rdb *redis.Client, ttl time.Duration) CatalogoService {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &catalogoService{backend: backend, rdb: rdb, ttl: ttl}
}

func (s *catalogoService) Metodos(ctx context.Context, token string) ([]model.MetodoPago, error) {
	if s.rdb != nil {
		if raw, err := s.rdb.Get(ctx, cacheKeyMetodos).Bytes(); err == nil {
			var metodos []model.MetodoPago
			if json.Unmarshal(raw, &metodos) == nil {
				return metodos, nil
			}
			// Corrupt cache entry — drop it and fall through to the backend
			s.rdb.Del(ctx, cacheKeyMetodos)
		}
	}

	metodos, err := s.backend.FetchMetodosPago(ctx, token)
	if err != nil {
		return nil, err
	}

	if s.rdb != nil {
		if raw, err := json.Marshal(metodos); err == nil {
			if err := s.rdb.Set(ctx, cacheKeyMetodos, raw, s.ttl).Err(); err != nil {
				log.Warn().Err(err).Msg("catalogo: cache write failed")
			}
		}
	}
	return metodos, nil
}

func (s *catalogoService) Invalidar(ctx context.Context) {
	if s.rdb != nil {
		s.rdb.Del(ctx, cacheKeyMetodos)
	}
}

package repository

import (
	"context"
	"time"

	"cierrez/internal/model"

	"gorm.io/gorm"
)

type CierreRepository interface {
	Create(ctx context.Context, c *model.CierreAuditoria) error
	FindByCierreID(ctx context.Context, cierreID string) (*model.CierreAuditoria, error)
	Update(ctx context.Context, c *model.CierreAuditoria) error
	List(ctx context.Context, page, limit int) ([]model.CierreAuditoria, int64, error)
	// ListPendingEmailRetries returns audit rows whose closure email is
	// still pending with next_retry_at in the past, oldest first.
	ListPendingEmailRetries(ctx context.Context, now time.Time, batch int) ([]model.CierreAuditoria, error)
}

type cierreRepo struct{ db *gorm.DB }

func NewCierreRepository(db *gorm.DB) CierreRepository { return &cierreRepo{db: db} }

func (r *cierreRepo) Create(ctx context.Context, c *model.CierreAuditoria) error {
	return r.db.WithContext(ctx).Create(c).Error
}

func (r *cierreRepo) FindByCierreID(ctx context.Context, cierreID string) (*model.CierreAuditoria, error) {
	var c model.CierreAuditoria
	err := r.db.WithContext(ctx).Where("cierre_id = ?", cierreID).First(&c).Error
	return &c, err
}

func (r *cierreRepo) Update(ctx context.Context, c *model.CierreAuditoria) error {
	return r.db.WithContext(ctx).Save(c).Error
}

func (r *cierreRepo) List(ctx context.Context, page, limit int) ([]model.CierreAuditoria, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&model.CierreAuditoria{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var rows []model.CierreAuditoria
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&rows).Error
	return rows, total, err
}

func (r *cierreRepo) ListPendingEmailRetries(ctx context.Context, now time.Time, batch int) ([]model.CierreAuditoria, error) {
	var rows []model.CierreAuditoria
	err := r.db.WithContext(ctx).
		Where("email_estado = 'pendiente' AND next_retry_at IS NOT NULL AND next_retry_at <= ?", now).
		Order("next_retry_at ASC").
		Limit(batch).
		Find(&rows).Error
	return rows, err
}

package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CierreAuditoria is the local write-once record of a submitted cierre.
// The backend owns the closure artifact itself; this row exists for the
// historial endpoint and to drive email retry bookkeeping.
//
// EmailEstado: "pendiente" | "enviado" | "error" | "omitido"
type CierreAuditoria struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CierreID  string    `gorm:"type:varchar(64);uniqueIndex;not null"`
	Documento int64     `gorm:"not null"`

	EstacionID *string `gorm:"type:varchar(64);index"`
	PosName    string  `gorm:"type:varchar(120);not null"`
	Usuario    string  `gorm:"type:varchar(120);not null"`

	TotalBruto        decimal.Decimal `gorm:"type:decimal(14,2);not null"`
	TotalDevoluciones decimal.Decimal `gorm:"type:decimal(14,2);not null"`
	MontoNeto         decimal.Decimal `gorm:"type:decimal(14,2);not null"`
	EfectivoContado   decimal.Decimal `gorm:"type:decimal(14,2);not null"`
	Diferencia        decimal.Decimal `gorm:"type:decimal(14,2);not null"`

	// ResumenJSON snapshots the full per-method breakdown as sent.
	ResumenJSON string  `gorm:"type:jsonb;not null"`
	Notas       *string

	// Email retry fields — used by retry_cron to re-attempt failed sends
	EmailEstado string     `gorm:"type:varchar(20);not null;default:'pendiente'"`
	RetryCount  int        `gorm:"not null;default:0"`
	NextRetryAt *time.Time `gorm:"column:next_retry_at"`
	LastError   *string

	PDFPath   *string `gorm:"column:pdf_path"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName pins the table name used by GORM.
func (CierreAuditoria) TableName() string { return "cierres_auditoria" }

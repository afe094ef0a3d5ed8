package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Cambio is an item exchange with a price difference: the customer either
// pays extra (new item costs more) or is owed a refund (costs less).
// Only Estado == "confirmed" records without a cierre reference are pending.
type Cambio struct {
	ID         string    `json:"id"`
	CreatedAt  time.Time `json:"created_at"`
	CierreID   *string   `json:"closure_id"`
	VentaID    *string   `json:"sale_id"`
	EstacionID *string   `json:"station_id"`
	Origen     string    `json:"pos_name"`
	Estado     string    `json:"status"`

	// PagoExtra is the additional amount collected; ReembolsoDebido the
	// amount returned to the customer. Either may be zero.
	PagoExtra       decimal.Decimal `json:"extra_payment"`
	ReembolsoDebido decimal.Decimal `json:"refund_due"`
	// Pagos optionally breaks PagoExtra down per method; defaults to cash.
	Pagos []Pago `json:"payments"`
}

// Confirmado reports whether the exchange may enter an aggregation pass.
func (c *Cambio) Confirmado() bool { return c.Estado == "confirmed" }

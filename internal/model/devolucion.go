package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Devolucion is a confirmed refund against a sale.
// Only Estado == "confirmed" counts toward reconciliation.
type Devolucion struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	CierreID  *string   `json:"closure_id"`
	// VentaID links back to the originating sale; used to inherit scope
	// and to fall back on the sale's payment splits when Pagos is empty.
	VentaID    *string `json:"sale_id"`
	EstacionID *string `json:"station_id"`
	Estado     string  `json:"status"`

	Total decimal.Decimal `json:"total"`
	// Pagos is the explicit per-method refund breakdown. Optional: when
	// absent the refund is distributed across the sale's splits.
	Pagos []Pago `json:"payments"`
}

// Confirmada reports whether the return may enter an aggregation pass.
func (d *Devolucion) Confirmada() bool { return d.Estado == "confirmed" }

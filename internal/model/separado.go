package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Abono is one installment payment on a PedidoSeparado. Abonos are scoped
// individually: each carries its own (optional) station and cierre stamp.
type Abono struct {
	ID         string          `json:"id"`
	Metodo     string          `json:"method"`
	Monto      decimal.Decimal `json:"amount"`
	PagadoEn   time.Time       `json:"paid_at"`
	EstacionID *string         `json:"station_id"`
	CierreID   *string         `json:"closure_id"`
	Estado     string          `json:"status"`
}

// Anulado reports whether the installment was voided.
func (a *Abono) Anulado() bool {
	return a.Estado == "cancelled" || a.Estado == "anulada"
}

// PedidoSeparado wraps a layaway sale: the sale itself collected only an
// initial payment, and the outstanding balance is settled through Abonos.
type PedidoSeparado struct {
	ID      string `json:"id"`
	VentaID string `json:"sale_id"`
	// Reservado is the total value set aside; Saldo what remains unpaid.
	Reservado decimal.Decimal `json:"total"`
	Saldo     decimal.Decimal `json:"balance"`
	Abonos    []Abono         `json:"payments"`
}

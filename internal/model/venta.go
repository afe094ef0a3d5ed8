package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Pago is one split of a sale's payment (method label + amount).
// The label is free text as typed/configured on the register; the
// clasificador is responsible for mapping it to a canonical bucket.
type Pago struct {
	Metodo string          `json:"method"`
	Monto  decimal.Decimal `json:"amount"`
}

// Venta is an immutable sale record as served by the POS backend.
// Once created it only changes by closure stamping (CierreID) or by
// refund processing (MontoDevuelto / SaldoDevuelto).
//
// Estado: "completed" | "cancelled"
type Venta struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	// CierreID is nil until the sale is reconciled into a cierre.
	// A stamped sale is permanently excluded from future aggregations.
	CierreID   *string `json:"closure_id"`
	EstacionID *string `json:"station_id"`
	// Origen is the free-text register label ("POS Caja Principal", "POS Web", …),
	// used for scope matching when EstacionID is absent.
	Origen string `json:"pos_name"`
	Estado string `json:"status"`

	Total      decimal.Decimal `json:"total"`
	MetodoPago string          `json:"payment_method"`
	// Pagos is the split-payment breakdown; may be empty, in which case
	// MetodoPago carries the whole Total.
	Pagos []Pago `json:"payments"`

	MontoDevuelto decimal.Decimal  `json:"refunded_total"`
	SaldoDevuelto *decimal.Decimal `json:"refunded_balance"`

	Vendedor string `json:"vendor_name"`

	// Separado (layaway) sales: only the initial payment is collected at
	// sale time; the rest arrives as Abonos on a PedidoSeparado.
	EsSeparado        bool             `json:"is_separated"`
	MetodoPagoInicial string           `json:"initial_payment_method"`
	MontoInicial      *decimal.Decimal `json:"initial_payment_amount"`
	SaldoPendiente    decimal.Decimal  `json:"remaining_balance"`
}

// PagosSplit returns the effective split list: explicit Pagos when present,
// otherwise a single synthetic split covering the full total.
func (v *Venta) PagosSplit() []Pago {
	if len(v.Pagos) > 0 {
		return v.Pagos
	}
	return []Pago{{Metodo: v.MetodoPago, Monto: v.Total}}
}

// Anulada reports whether the sale was voided and must never aggregate.
func (v *Venta) Anulada() bool {
	return v.Estado == "cancelled" || v.Estado == "anulada"
}

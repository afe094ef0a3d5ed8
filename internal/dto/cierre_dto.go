package dto

import "github.com/shopspring/decimal"

// ─── Request DTOs ────────────────────────────────────────────────────────────

// AlcanceQuery selects which register the aggregation covers. Leaving every
// field empty means "all stations". station_label is required alongside
// station_id so label-only records can be matched to the register.
type AlcanceQuery struct {
	EstacionID    string `form:"station_id"`
	EstacionLabel string `form:"station_label"`
	Web           bool   `form:"web"`
}

type CerrarCajaRequest struct {
	EstacionID      string          `json:"station_id"      validate:"omitempty,max=64"`
	EstacionLabel   string          `json:"station_label"   validate:"omitempty,max=120"`
	Web             bool            `json:"web"`
	EfectivoContado decimal.Decimal `json:"counted_cash"    validate:"min=0"`
	Notas           *string         `json:"notes"           validate:"omitempty,max=500"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

// MontosPorMetodo carries the three views of one canonical bucket.
type MontosPorMetodo struct {
	Bruto        decimal.Decimal `json:"gross"`
	Devoluciones decimal.Decimal `json:"refunds"`
	Neto         decimal.Decimal `json:"net"`
}

// MetodoExtraResponse is a catalog-defined custom method's bucket.
type MetodoExtraResponse struct {
	Slug         string          `json:"slug"`
	Etiqueta     string          `json:"label"`
	Bruto        decimal.Decimal `json:"gross"`
	Devoluciones decimal.Decimal `json:"refunds"`
	Neto         decimal.Decimal `json:"net"`
}

// ResumenSeparados summarizes layaway activity covered by the pass.
type ResumenSeparados struct {
	Tickets        int             `json:"tickets"`
	TotalReservado decimal.Decimal `json:"reserved_total"`
	TotalPendiente decimal.Decimal `json:"pending_total"`
	TotalAbonos    decimal.Decimal `json:"payments_total"`
}

// VendedorTotal is one salesperson's net contribution.
type VendedorTotal struct {
	Nombre string          `json:"name"`
	Total  decimal.Decimal `json:"total"`
}

// ResumenCierreResponse is the full preview of a pending cierre: everything
// the operator sees before counting the drawer.
type ResumenCierreResponse struct {
	Efectivo  MontosPorMetodo `json:"cash"`
	Tarjeta   MontosPorMetodo `json:"card"`
	QR        MontosPorMetodo `json:"qr"`
	Nequi     MontosPorMetodo `json:"nequi"`
	Daviplata MontosPorMetodo `json:"daviplata"`
	Credito   MontosPorMetodo `json:"credit"`

	Extras []MetodoExtraResponse `json:"extra_methods"`

	TotalBruto        decimal.Decimal `json:"total_amount"`
	TotalDevoluciones decimal.Decimal `json:"total_refunds"`
	MontoNeto         decimal.Decimal `json:"net_amount"`

	CambiosExtra     decimal.Decimal `json:"change_extra_total"`
	CambiosReembolso decimal.Decimal `json:"change_refund_total"`
	CantidadCambios  int             `json:"change_count"`

	Separados  ResumenSeparados `json:"separated"`
	Vendedores []VendedorTotal  `json:"vendors"`

	// Covers period FechaDesde..FechaHasta (business-timezone calendar days).
	FechaDesde string `json:"date_from"`
	FechaHasta string `json:"date_to"`
}

// CierreResponse is returned after a successful submission.
type CierreResponse struct {
	ID              string          `json:"id"`
	Documento       int64           `json:"document_number"`
	PosName         string          `json:"pos_name"`
	EfectivoContado decimal.Decimal `json:"counted_cash"`
	Diferencia      decimal.Decimal `json:"difference"`
	CerradoEn       string          `json:"closed_at"`

	Resumen ResumenCierreResponse `json:"summary"`

	// Advertencias lists non-blocking side-effect problems (print/email).
	Advertencias []string `json:"warnings,omitempty"`
}

// HistorialItem is one row of the local audit trail.
type HistorialItem struct {
	CierreID        string          `json:"closure_id"`
	Documento       int64           `json:"document_number"`
	PosName         string          `json:"pos_name"`
	Usuario         string          `json:"user"`
	TotalBruto      decimal.Decimal `json:"total_amount"`
	MontoNeto       decimal.Decimal `json:"net_amount"`
	EfectivoContado decimal.Decimal `json:"counted_cash"`
	Diferencia      decimal.Decimal `json:"difference"`
	EmailEstado     string          `json:"email_status"`
	CreatedAt       string          `json:"created_at"`
}

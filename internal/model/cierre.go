package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Cierre is the reconciliation artifact as returned by the POS backend
// after POST /pos/closures. The backend owns it; once it exists, every
// record it covered carries its id and is excluded from future passes.
type Cierre struct {
	ID        string `json:"id"`
	Documento int64  `json:"document_number"`
	PosName   string `json:"pos_name"`

	TotalBruto        decimal.Decimal `json:"total_amount"`
	TotalEfectivo     decimal.Decimal `json:"total_cash"`
	TotalTarjeta      decimal.Decimal `json:"total_card"`
	TotalQR           decimal.Decimal `json:"total_qr"`
	TotalNequi        decimal.Decimal `json:"total_nequi"`
	TotalDaviplata    decimal.Decimal `json:"total_daviplata"`
	TotalCredito      decimal.Decimal `json:"total_credit"`
	TotalDevoluciones decimal.Decimal `json:"total_refunds"`
	MontoNeto         decimal.Decimal `json:"net_amount"`

	CambiosExtra     decimal.Decimal `json:"change_extra_total"`
	CambiosReembolso decimal.Decimal `json:"change_refund_total"`
	CantidadCambios  int             `json:"change_count"`

	EfectivoContado decimal.Decimal `json:"counted_cash"`
	Diferencia      decimal.Decimal `json:"difference"`

	Notas      *string   `json:"notes"`
	EstacionID *string   `json:"station_id"`
	AbiertoEn  time.Time `json:"opened_at"`
	CerradoEn  time.Time `json:"closed_at"`
}

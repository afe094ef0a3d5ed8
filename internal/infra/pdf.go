package infra

// pdf.go — Reporte Z ticket generation using go-pdf/fpdf.
// Renders an A7-size thermal-style closure ticket with:
//   - Document number and covered period
//   - Per-method net totals (canonical buckets + custom methods)
//   - Gross / refunds / net summary
//   - Exchange adjustments and separado summary
//   - Counted cash vs expected, with the difference highlighted
//
// The output file is saved to storagePath/reporte_z_{documento}.pdf and is
// picked up from there by the print agent.

import (
	"fmt"
	"os"
	"path/filepath"

	"cierrez/internal/dto"
	"cierrez/internal/model"

	"github.com/go-pdf/fpdf"
	"github.com/shopspring/decimal"
)

// GenerateReporteZPDF renders the closure ticket for a submitted cierre.
// Returns the absolute path to the generated file.
func GenerateReporteZPDF(cierre *model.Cierre, resumen dto.ResumenCierreResponse, storagePath string) (string, error) {
	if err := os.MkdirAll(storagePath, 0755); err != nil {
		return "", fmt.Errorf("pdf: create storage dir: %w", err)
	}

	fileName := fmt.Sprintf("reporte_z_%d.pdf", cierre.Documento)
	filePath := filepath.Join(storagePath, fileName)

	// A7 ≈ 74mm × 105mm — close to thermal receipt paper
	pdf := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "mm",
		Size:           fpdf.SizeType{Wd: 74, Ht: 140},
	})
	pdf.SetMargins(4, 4, 4)
	pdf.AddPage()

	pageW, _ := pdf.GetPageSize()
	contentW := pageW - 8 // total margins = 8mm

	linea := func() {
		pdf.Ln(1)
		pdf.Line(4, pdf.GetY(), pageW-4, pdf.GetY())
		pdf.Ln(1)
	}

	col1 := contentW * 0.62
	col2 := contentW * 0.38

	fila := func(etiqueta string, monto decimal.Decimal, negrita bool) {
		estilo := ""
		if negrita {
			estilo = "B"
		}
		pdf.SetFont("Helvetica", estilo, 7)
		pdf.CellFormat(col1, 4, etiqueta, "", 0, "L", false, 0, "")
		pdf.CellFormat(col2, 4, "$"+monto.StringFixed(2), "", 1, "R", false, 0, "")
	}

	// ── Header ───────────────────────────────────────────────────────────────
	pdf.SetFont("Helvetica", "B", 13)
	pdf.CellFormat(contentW, 7, cierre.PosName, "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 8)
	pdf.CellFormat(contentW, 5, "Reporte Z - Cierre de Caja", "", 1, "C", false, 0, "")
	pdf.Ln(1)

	pdf.SetFont("Helvetica", "B", 8)
	pdf.CellFormat(contentW, 5, fmt.Sprintf("Cierre N° %d", cierre.Documento), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 7)
	pdf.CellFormat(contentW, 4, cierre.CerradoEn.Format("02/01/2006  15:04"), "", 1, "L", false, 0, "")
	if resumen.FechaDesde != "" {
		pdf.CellFormat(contentW, 4, fmt.Sprintf("Periodo: %s a %s", resumen.FechaDesde, resumen.FechaHasta), "", 1, "L", false, 0, "")
	}
	linea()

	// ── Per-method nets ──────────────────────────────────────────────────────
	fila("Efectivo", resumen.Efectivo.Neto, false)
	fila("Tarjeta", resumen.Tarjeta.Neto, false)
	fila("QR / Transferencia", resumen.QR.Neto, false)
	fila("Nequi", resumen.Nequi.Neto, false)
	fila("Daviplata", resumen.Daviplata.Neto, false)
	fila("Crédito / Separado", resumen.Credito.Neto, false)
	for _, e := range resumen.Extras {
		fila(e.Etiqueta, e.Neto, false)
	}
	linea()

	// ── Totals ───────────────────────────────────────────────────────────────
	fila("Total recaudado", resumen.TotalBruto, false)
	fila("Devoluciones", resumen.TotalDevoluciones.Neg(), false)
	fila("TOTAL NETO", resumen.MontoNeto, true)

	if resumen.CantidadCambios > 0 {
		pdf.Ln(1)
		fila(fmt.Sprintf("Cambios (%d)", resumen.CantidadCambios), resumen.CambiosExtra, false)
		fila("Reembolso por cambios", resumen.CambiosReembolso.Neg(), false)
	}

	if resumen.Separados.Tickets > 0 {
		linea()
		pdf.SetFont("Helvetica", "B", 7)
		pdf.CellFormat(contentW, 4, fmt.Sprintf("Separados (%d tickets)", resumen.Separados.Tickets), "", 1, "L", false, 0, "")
		fila("Abonos recibidos", resumen.Separados.TotalAbonos, false)
		fila("Saldo pendiente", resumen.Separados.TotalPendiente, false)
	}

	// ── Drawer count ─────────────────────────────────────────────────────────
	linea()
	fila("Efectivo esperado", resumen.Efectivo.Neto, false)
	fila("Efectivo contado", cierre.EfectivoContado, false)
	fila("Diferencia", cierre.Diferencia, true)

	if len(resumen.Vendedores) > 0 {
		linea()
		pdf.SetFont("Helvetica", "B", 7)
		pdf.CellFormat(contentW, 4, "Ventas por vendedor", "", 1, "L", false, 0, "")
		for _, v := range resumen.Vendedores {
			fila(v.Nombre, v.Total, false)
		}
	}

	// ── Footer ───────────────────────────────────────────────────────────────
	pdf.Ln(2)
	pdf.SetFont("Helvetica", "I", 7)
	pdf.CellFormat(contentW, 4, "Documento de control interno", "", 1, "C", false, 0, "")

	if err := pdf.OutputFileAndClose(filePath); err != nil {
		return "", fmt.Errorf("pdf: write file: %w", err)
	}

	return filePath, nil
}

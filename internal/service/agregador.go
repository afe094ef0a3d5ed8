package service

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"cierrez/internal/dto"
	"cierrez/internal/model"
)

// MontoMetodo is one canonical bucket's resolved totals.
type MontoMetodo struct {
	Bruto        decimal.Decimal
	Devoluciones decimal.Decimal
	Neto         decimal.Decimal
}

// ExtraTotal is one custom method's resolved totals.
type ExtraTotal struct {
	MetodoExtra
	Bruto        decimal.Decimal
	Devoluciones decimal.Decimal
	Neto         decimal.Decimal
}

// ResumenSeparados summarizes layaway activity in a pass.
type ResumenSeparados struct {
	Tickets        int
	TotalReservado decimal.Decimal
	TotalPendiente decimal.Decimal
	TotalAbonos    decimal.Decimal
}

// VendedorTotal is one salesperson's net contribution.
type VendedorTotal struct {
	Nombre string
	Total  decimal.Decimal
}

// ResumenCierre is the result of one aggregation pass. Amounts are exact
// (unrounded) decimals; rounding to 2 places happens in ToResponse.
type ResumenCierre struct {
	Metodos map[string]MontoMetodo // keyed by the canonical Metodo* constants
	Extras  []ExtraTotal           // ordered by catalog order, then slug

	TotalBruto        decimal.Decimal
	TotalDevoluciones decimal.Decimal
	MontoNeto         decimal.Decimal

	CambiosExtra     decimal.Decimal
	CambiosReembolso decimal.Decimal
	CantidadCambios  int

	Separados  ResumenSeparados
	Vendedores []VendedorTotal

	FechaDesde time.Time // zero when nothing contributed
	FechaHasta time.Time
}

// EfectivoEsperado is the expected cash in the drawer: the resolved net of
// the cash bucket. The counted-vs-expected difference is informational.
func (r *ResumenCierre) EfectivoEsperado() decimal.Decimal {
	return r.Metodos[MetodoCash].Neto
}

// SinMovimientos reports whether there is nothing to close: every bucket,
// canonical and extra, and both change-adjustment totals are zero.
func (r *ResumenCierre) SinMovimientos() bool {
	for _, m := range MetodosCanonicos {
		t := r.Metodos[m]
		if !t.Bruto.IsZero() || !t.Devoluciones.IsZero() {
			return false
		}
	}
	for _, e := range r.Extras {
		if !e.Bruto.IsZero() || !e.Devoluciones.IsZero() {
			return false
		}
	}
	return r.CambiosExtra.IsZero() && r.CambiosReembolso.IsZero()
}

// ToResponse externalizes the resumen, rounding every amount to 2 decimals.
func (r *ResumenCierre) ToResponse() dto.ResumenCierreResponse {
	montos := func(m string) dto.MontosPorMetodo {
		t := r.Metodos[m]
		return dto.MontosPorMetodo{
			Bruto:        t.Bruto.Round(2),
			Devoluciones: t.Devoluciones.Round(2),
			Neto:         t.Neto.Round(2),
		}
	}

	extras := make([]dto.MetodoExtraResponse, 0, len(r.Extras))
	for _, e := range r.Extras {
		extras = append(extras, dto.MetodoExtraResponse{
			Slug:         e.Slug,
			Etiqueta:     e.Etiqueta,
			Bruto:        e.Bruto.Round(2),
			Devoluciones: e.Devoluciones.Round(2),
			Neto:         e.Neto.Round(2),
		})
	}

	vendedores := make([]dto.VendedorTotal, 0, len(r.Vendedores))
	for _, v := range r.Vendedores {
		vendedores = append(vendedores, dto.VendedorTotal{Nombre: v.Nombre, Total: v.Total.Round(2)})
	}

	resp := dto.ResumenCierreResponse{
		Efectivo:  montos(MetodoCash),
		Tarjeta:   montos(MetodoCard),
		QR:        montos(MetodoQR),
		Nequi:     montos(MetodoNequi),
		Daviplata: montos(MetodoDaviplata),
		Credito:   montos(MetodoCredito),

		Extras: extras,

		TotalBruto:        r.TotalBruto.Round(2),
		TotalDevoluciones: r.TotalDevoluciones.Round(2),
		MontoNeto:         r.MontoNeto.Round(2),

		CambiosExtra:     r.CambiosExtra.Round(2),
		CambiosReembolso: r.CambiosReembolso.Round(2),
		CantidadCambios:  r.CantidadCambios,

		Separados: dto.ResumenSeparados{
			Tickets:        r.Separados.Tickets,
			TotalReservado: r.Separados.TotalReservado.Round(2),
			TotalPendiente: r.Separados.TotalPendiente.Round(2),
			TotalAbonos:    r.Separados.TotalAbonos.Round(2),
		},
		Vendedores: vendedores,
	}
	if !r.FechaDesde.IsZero() {
		resp.FechaDesde = r.FechaDesde.Format("2006-01-02")
		resp.FechaHasta = r.FechaHasta.Format("2006-01-02")
	}
	return resp
}

// distribuirProporcional splits monto across the raw split amounts,
// preserving each split's share of the raw total. When the raw total is
// zero or negative the amount is divided evenly. The last share absorbs
// the division remainder so the pieces always sum exactly to monto.
//
// Distribution by RAW amounts (not by net) is deliberate: it mirrors the
// register's historical behavior. See DESIGN.md.
func distribuirProporcional(monto decimal.Decimal, pagos []model.Pago) []decimal.Decimal {
	partes := make([]decimal.Decimal, len(pagos))
	if len(pagos) == 0 {
		return partes
	}

	totalPagos := decimal.Zero
	for _, p := range pagos {
		totalPagos = totalPagos.Add(p.Monto)
	}

	asignado := decimal.Zero
	for i := range pagos {
		if i == len(pagos)-1 {
			partes[i] = monto.Sub(asignado)
			break
		}
		var parte decimal.Decimal
		if totalPagos.IsPositive() {
			parte = monto.Mul(pagos[i].Monto).Div(totalPagos)
		} else {
			parte = monto.Div(decimal.NewFromInt(int64(len(pagos))))
		}
		partes[i] = parte
		asignado = asignado.Add(parte)
	}
	return partes
}

// ─── Agregador ───────────────────────────────────────────────────────────────

// extraAcum accumulates one custom method across both refund sources.
type extraAcum struct {
	meta      MetodoExtra
	bruto     decimal.Decimal
	devolRet  decimal.Decimal // returns/changes-sourced refunds
	devolFall decimal.Decimal // sales-pass proportional fallback
}

// agregador walks the four scoped record sets and accumulates totals.
// It is single-use: build, run the passes, emit the resumen.
type agregador struct {
	clasif  *Clasificador
	alcance Alcance
	tz      *time.Location

	bruto     map[string]decimal.Decimal
	devolRet  map[string]decimal.Decimal
	devolFall map[string]decimal.Decimal
	extras    map[string]*extraAcum

	totalBruto     decimal.Decimal
	totalDevolRet  decimal.Decimal
	totalDevolFall decimal.Decimal
	// hayDevoluciones flips when any Return (or Change refund) contributes;
	// it selects which refund source is authoritative for the final numbers.
	hayDevoluciones bool

	cambiosExtra     decimal.Decimal
	cambiosReembolso decimal.Decimal
	cantidadCambios  int

	separados  ResumenSeparados
	vendedores map[string]decimal.Decimal

	fechaMin time.Time
	fechaMax time.Time
}

// Agregar runs one full aggregation pass over the four record sets for the
// given scope. It is a pure function of its inputs: no I/O, no shared state.
func Agregar(
	ventas []model.Venta,
	devoluciones []model.Devolucion,
	cambios []model.Cambio,
	separados []model.PedidoSeparado,
	alcance Alcance,
	catalogo []model.MetodoPago,
	tz *time.Location,
) *ResumenCierre {
	if tz == nil {
		tz = time.UTC
	}
	ag := &agregador{
		clasif:     NewClasificador(catalogo),
		alcance:    alcance,
		tz:         tz,
		bruto:      make(map[string]decimal.Decimal),
		devolRet:   make(map[string]decimal.Decimal),
		devolFall:  make(map[string]decimal.Decimal),
		extras:     make(map[string]*extraAcum),
		vendedores: make(map[string]decimal.Decimal),
	}

	// Every venta is indexed, in or out of scope: returns, changes and
	// abonos inherit scope and vendor from their originating sale.
	indice := make(map[string]*model.Venta, len(ventas))
	for i := range ventas {
		indice[ventas[i].ID] = &ventas[i]
	}

	ag.pasarVentas(ventas)
	ag.pasarAbonos(separados, indice)
	ag.pasarDevoluciones(devoluciones, indice)
	ag.pasarCambios(cambios, indice)

	return ag.resumen()
}

// pasarVentas implements the sales pass: installment sales contribute only
// their initial payment; regular sales distribute their net across the
// payment splits, with sale-level refunds kept as the fallback source.
func (ag *agregador) pasarVentas(ventas []model.Venta) {
	for i := range ventas {
		v := &ventas[i]
		if v.CierreID != nil || v.Anulada() || !ag.alcance.MatchVenta(v) {
			continue
		}

		if v.EsSeparado {
			inicial := decimal.Zero
			if v.MontoInicial != nil {
				inicial = *v.MontoInicial
			}
			if inicial.IsPositive() {
				ag.sumarBruto(v.MetodoPagoInicial, inicial)
				ag.totalBruto = ag.totalBruto.Add(inicial)
				ag.sumarVendedor(v.Vendedor, inicial)
			}
			ag.separados.Tickets++
			ag.separados.TotalReservado = ag.separados.TotalReservado.Add(v.Total)
			ag.separados.TotalPendiente = ag.separados.TotalPendiente.Add(v.SaldoPendiente)
			ag.marcarFecha(v.CreatedAt)
			continue
		}

		devol := maxCero(v.MontoDevuelto)
		neto := v.Total.Sub(devol)
		if v.SaldoDevuelto != nil {
			neto = *v.SaldoDevuelto
		}
		neto = maxCero(neto)

		splits := v.PagosSplit()
		for j, parte := range distribuirProporcional(neto, splits) {
			ag.sumarBruto(splits[j].Metodo, parte)
		}
		ag.totalBruto = ag.totalBruto.Add(neto)

		if devol.IsPositive() {
			for j, parte := range distribuirProporcional(devol, splits) {
				ag.sumarDevolucion(splits[j].Metodo, parte, true)
			}
			ag.totalDevolFall = ag.totalDevolFall.Add(devol)
		}

		ag.sumarVendedor(v.Vendedor, neto)
		ag.marcarFecha(v.CreatedAt)
	}
}

// pasarAbonos implements the separated-order payments pass.
func (ag *agregador) pasarAbonos(separados []model.PedidoSeparado, indice map[string]*model.Venta) {
	for i := range separados {
		sep := &separados[i]
		venta := indice[sep.VentaID]
		for j := range sep.Abonos {
			ab := &sep.Abonos[j]
			if ab.CierreID != nil || ab.Anulado() || !ag.alcance.MatchAbono(ab, venta) {
				continue
			}
			if ab.Monto.IsZero() {
				continue
			}
			ag.sumarBruto(ab.Metodo, ab.Monto)
			ag.totalBruto = ag.totalBruto.Add(ab.Monto)
			ag.separados.TotalAbonos = ag.separados.TotalAbonos.Add(ab.Monto)
			if venta != nil {
				ag.sumarVendedor(venta.Vendedor, ab.Monto)
			}
			ag.marcarFecha(ab.PagadoEn)
		}
	}
}

// pasarDevoluciones implements the returns pass: explicit per-method
// breakdowns win; otherwise the refund is distributed across the
// originating sale's splits. Any contribution makes the returns source
// authoritative over the sales-pass fallback.
func (ag *agregador) pasarDevoluciones(devoluciones []model.Devolucion, indice map[string]*model.Venta) {
	for i := range devoluciones {
		d := &devoluciones[i]
		if d.CierreID != nil || !d.Confirmada() || !ag.alcance.MatchDevolucion(d, indice) {
			continue
		}
		if d.Total.IsZero() && len(d.Pagos) == 0 {
			continue
		}

		switch {
		case len(d.Pagos) > 0:
			for _, p := range d.Pagos {
				ag.sumarDevolucion(p.Metodo, p.Monto, false)
			}
		default:
			var splits []model.Pago
			if d.VentaID != nil {
				if v, ok := indice[*d.VentaID]; ok {
					splits = v.PagosSplit()
				}
			}
			if len(splits) == 0 {
				// No originating sale on record: the refund left the drawer.
				splits = []model.Pago{{Metodo: MetodoCash, Monto: d.Total}}
			}
			for j, parte := range distribuirProporcional(d.Total, splits) {
				ag.sumarDevolucion(splits[j].Metodo, parte, false)
			}
		}

		ag.totalDevolRet = ag.totalDevolRet.Add(d.Total)
		ag.hayDevoluciones = true
		ag.marcarFecha(d.CreatedAt)
	}
}

// pasarCambios implements the exchanges pass: extra payments join the
// gross side (per breakdown, cash by default); refunds due always leave
// as cash. Both are tracked apart from sale/return totals.
func (ag *agregador) pasarCambios(cambios []model.Cambio, indice map[string]*model.Venta) {
	for i := range cambios {
		c := &cambios[i]
		if c.CierreID != nil || !c.Confirmado() || !ag.alcance.MatchCambio(c, indice) {
			continue
		}

		extra := maxCero(c.PagoExtra)
		reembolso := maxCero(c.ReembolsoDebido)
		if extra.IsZero() && reembolso.IsZero() {
			continue
		}

		if extra.IsPositive() {
			if len(c.Pagos) > 0 {
				for _, p := range c.Pagos {
					ag.sumarBruto(p.Metodo, p.Monto)
				}
			} else {
				ag.sumarBruto(MetodoCash, extra)
			}
			ag.cambiosExtra = ag.cambiosExtra.Add(extra)
		}

		if reembolso.IsPositive() {
			ag.sumarDevolucion(MetodoCash, reembolso, false)
			ag.cambiosReembolso = ag.cambiosReembolso.Add(reembolso)
			ag.hayDevoluciones = true
		}

		ag.cantidadCambios++
		ag.marcarFecha(c.CreatedAt)
	}
}

// resumen resolves the refund source and emits the final totals.
func (ag *agregador) resumen() *ResumenCierre {
	devol := ag.devolFall
	devolExtra := func(e *extraAcum) decimal.Decimal { return e.devolFall }
	totalDevol := ag.totalDevolFall
	if ag.hayDevoluciones {
		devol = ag.devolRet
		devolExtra = func(e *extraAcum) decimal.Decimal { return e.devolRet }
		totalDevol = ag.totalDevolRet
	}

	metodos := make(map[string]MontoMetodo, len(MetodosCanonicos))
	for _, m := range MetodosCanonicos {
		b := ag.bruto[m]
		d := devol[m]
		metodos[m] = MontoMetodo{Bruto: b, Devoluciones: d, Neto: b.Sub(d)}
	}

	extras := make([]ExtraTotal, 0, len(ag.extras))
	for _, e := range ag.extras {
		d := devolExtra(e)
		extras = append(extras, ExtraTotal{
			MetodoExtra:  e.meta,
			Bruto:        e.bruto,
			Devoluciones: d,
			Neto:         e.bruto.Sub(d),
		})
	}
	sort.Slice(extras, func(i, j int) bool {
		if extras[i].Orden != extras[j].Orden {
			return extras[i].Orden < extras[j].Orden
		}
		return extras[i].Slug < extras[j].Slug
	})

	vendedores := make([]VendedorTotal, 0, len(ag.vendedores))
	for nombre, total := range ag.vendedores {
		vendedores = append(vendedores, VendedorTotal{Nombre: nombre, Total: total})
	}
	sort.Slice(vendedores, func(i, j int) bool { return vendedores[i].Nombre < vendedores[j].Nombre })

	return &ResumenCierre{
		Metodos: metodos,
		Extras:  extras,

		TotalBruto:        ag.totalBruto,
		TotalDevoluciones: totalDevol,
		MontoNeto:         ag.totalBruto.Sub(totalDevol),

		CambiosExtra:     ag.cambiosExtra,
		CambiosReembolso: ag.cambiosReembolso,
		CantidadCambios:  ag.cantidadCambios,

		Separados:  ag.separados,
		Vendedores: vendedores,

		FechaDesde: ag.fechaMin,
		FechaHasta: ag.fechaMax,
	}
}

// ─── Accumulation helpers ────────────────────────────────────────────────────

// sumarBruto classifies the label and adds monto to its gross side.
// Zero amounts are no-ops so nothing is ever attributed twice or dropped.
func (ag *agregador) sumarBruto(etiqueta string, monto decimal.Decimal) {
	if monto.IsZero() {
		return
	}
	cl := ag.clasif.Clasificar(etiqueta)
	if cl.Extra != nil {
		e := ag.extra(cl.Extra)
		e.bruto = e.bruto.Add(monto)
		return
	}
	ag.bruto[cl.Canonico] = ag.bruto[cl.Canonico].Add(monto)
}

// sumarDevolucion adds monto to the refund side; fallback selects the
// sales-pass map instead of the authoritative returns map.
func (ag *agregador) sumarDevolucion(etiqueta string, monto decimal.Decimal, fallback bool) {
	if monto.IsZero() {
		return
	}
	cl := ag.clasif.Clasificar(etiqueta)
	if cl.Extra != nil {
		e := ag.extra(cl.Extra)
		if fallback {
			e.devolFall = e.devolFall.Add(monto)
		} else {
			e.devolRet = e.devolRet.Add(monto)
		}
		return
	}
	if fallback {
		ag.devolFall[cl.Canonico] = ag.devolFall[cl.Canonico].Add(monto)
	} else {
		ag.devolRet[cl.Canonico] = ag.devolRet[cl.Canonico].Add(monto)
	}
}

func (ag *agregador) extra(meta *MetodoExtra) *extraAcum {
	if e, ok := ag.extras[meta.Slug]; ok {
		return e
	}
	e := &extraAcum{meta: *meta}
	ag.extras[meta.Slug] = e
	return e
}

func (ag *agregador) sumarVendedor(nombre string, monto decimal.Decimal) {
	if nombre == "" || monto.IsZero() {
		return
	}
	ag.vendedores[nombre] = ag.vendedores[nombre].Add(monto)
}

// marcarFecha widens the covered calendar-day range (business timezone).
func (ag *agregador) marcarFecha(t time.Time) {
	if t.IsZero() {
		return
	}
	local := t.In(ag.tz)
	dia := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, ag.tz)
	if ag.fechaMin.IsZero() || dia.Before(ag.fechaMin) {
		ag.fechaMin = dia
	}
	if ag.fechaMax.IsZero() || dia.After(ag.fechaMax) {
		ag.fechaMax = dia
	}
}

func maxCero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

package service

import (
	"testing"
	"time"

	"cierrez/internal/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func igual(t *testing.T, esperado int64, got decimal.Decimal, msg string) {
	t.Helper()
	assert.True(t, got.Equal(d(esperado)), "%s: esperado %d, obtenido %s", msg, esperado, got)
}

func TestAgregar_VentaSimpleEfectivo(t *testing.T) {
	ventas := []model.Venta{
		{ID: "v1", Total: d(50000), MetodoPago: "Efectivo", Vendedor: "Laura", CreatedAt: time.Now()},
	}

	r := Agregar(ventas, nil, nil, nil, Alcance{}, nil, nil)

	igual(t, 50000, r.Metodos[MetodoCash].Bruto, "bruto cash")
	igual(t, 50000, r.Metodos[MetodoCash].Neto, "neto cash")
	igual(t, 50000, r.TotalBruto, "total bruto")
	igual(t, 50000, r.MontoNeto, "monto neto")
	igual(t, 50000, r.EfectivoEsperado(), "efectivo esperado")
	assert.False(t, r.SinMovimientos())

	require.Len(t, r.Vendedores, 1)
	assert.Equal(t, "Laura", r.Vendedores[0].Nombre)
	igual(t, 50000, r.Vendedores[0].Total, "total vendedor")
}

func TestAgregar_DistribucionProporcionalDelNeto(t *testing.T) {
	// Venta de 100.000 pagada 60/40 entre efectivo y tarjeta, con 20.000
	// ya reembolsados a nivel de venta (sin registro de devolucion).
	ventas := []model.Venta{
		{
			ID:            "v1",
			Total:         d(100000),
			MontoDevuelto: d(20000),
			Pagos: []model.Pago{
				{Metodo: "Efectivo", Monto: d(60000)},
				{Metodo: "Tarjeta", Monto: d(40000)},
			},
		},
	}

	r := Agregar(ventas, nil, nil, nil, Alcance{}, nil, nil)

	// El neto (80.000) se reparte 60/40: 48.000 y 32.000
	igual(t, 48000, r.Metodos[MetodoCash].Bruto, "bruto cash")
	igual(t, 32000, r.Metodos[MetodoCard].Bruto, "bruto card")
	// El reembolso fallback tambien se reparte: 12.000 y 8.000
	igual(t, 12000, r.Metodos[MetodoCash].Devoluciones, "devol cash")
	igual(t, 8000, r.Metodos[MetodoCard].Devoluciones, "devol card")
	igual(t, 36000, r.Metodos[MetodoCash].Neto, "neto cash")
	igual(t, 24000, r.Metodos[MetodoCard].Neto, "neto card")

	igual(t, 80000, r.TotalBruto, "total bruto")
	igual(t, 20000, r.TotalDevoluciones, "total devoluciones")
	igual(t, 60000, r.MontoNeto, "monto neto")

	// Conservacion: la suma de netos por metodo iguala el monto neto
	suma := decimal.Zero
	for _, m := range MetodosCanonicos {
		suma = suma.Add(r.Metodos[m].Neto)
	}
	assert.True(t, suma.Equal(r.MontoNeto), "suma de netos %s != monto neto %s", suma, r.MontoNeto)
}

func TestAgregar_DevolucionesConfirmadasTienenPrecedencia(t *testing.T) {
	ventas := []model.Venta{
		{ID: "v1", Total: d(100000), MetodoPago: "Efectivo"},
		// Esta venta trae un reembolso a nivel de venta que queda como fallback
		{ID: "v2", Total: d(30000), MontoDevuelto: d(5000), MetodoPago: "Tarjeta"},
	}
	devoluciones := []model.Devolucion{
		{ID: "d1", VentaID: ptr("v1"), Estado: "confirmed", Total: d(20000),
			Pagos: []model.Pago{{Metodo: "Efectivo", Monto: d(20000)}}},
		// Pendiente: nunca cuenta
		{ID: "d2", VentaID: ptr("v1"), Estado: "pending", Total: d(99999)},
	}

	r := Agregar(ventas, devoluciones, nil, nil, Alcance{}, nil, nil)

	// Con devoluciones confirmadas presentes, el fallback de v2 se descarta
	// del lado de reembolsos (su neto sigue siendo 25.000)
	igual(t, 20000, r.TotalDevoluciones, "total devoluciones")
	igual(t, 20000, r.Metodos[MetodoCash].Devoluciones, "devol cash")
	igual(t, 0, r.Metodos[MetodoCard].Devoluciones, "devol card")

	igual(t, 100000, r.Metodos[MetodoCash].Bruto, "bruto cash")
	igual(t, 25000, r.Metodos[MetodoCard].Bruto, "bruto card (neto de venta)")
}

func TestAgregar_DevolucionSinDesgloseUsaSplitsDeVenta(t *testing.T) {
	ventas := []model.Venta{
		{
			ID:    "v1",
			Total: d(100000),
			Pagos: []model.Pago{
				{Metodo: "Efectivo", Monto: d(75000)},
				{Metodo: "Nequi", Monto: d(25000)},
			},
		},
	}
	devoluciones := []model.Devolucion{
		{ID: "d1", VentaID: ptr("v1"), Estado: "confirmed", Total: d(8000)},
		// Huerfana sin venta de origen: sale del cajon como efectivo
		{ID: "d2", Estado: "confirmed", Total: d(3000)},
	}

	r := Agregar(ventas, devoluciones, nil, nil, Alcance{}, nil, nil)

	// 8.000 repartidos 75/25 = 6.000 y 2.000; mas 3.000 huerfanos en cash
	igual(t, 9000, r.Metodos[MetodoCash].Devoluciones, "devol cash")
	igual(t, 2000, r.Metodos[MetodoNequi].Devoluciones, "devol nequi")
	igual(t, 11000, r.TotalDevoluciones, "total devoluciones")
}

func TestAgregar_Cambios(t *testing.T) {
	cambios := []model.Cambio{
		// Paga 10.000 de diferencia, sin desglose → cash
		{ID: "c1", Estado: "confirmed", PagoExtra: d(10000)},
		// Se le deben 4.000 → siempre salen como cash
		{ID: "c2", Estado: "confirmed", ReembolsoDebido: d(4000)},
		// Pendiente: no cuenta
		{ID: "c3", Estado: "pending", PagoExtra: d(99999)},
	}

	r := Agregar(nil, nil, cambios, nil, Alcance{}, nil, nil)

	igual(t, 10000, r.Metodos[MetodoCash].Bruto, "bruto cash")
	igual(t, 4000, r.Metodos[MetodoCash].Devoluciones, "devol cash")
	igual(t, 6000, r.Metodos[MetodoCash].Neto, "neto cash")
	igual(t, 10000, r.CambiosExtra, "cambios extra")
	igual(t, 4000, r.CambiosReembolso, "cambios reembolso")
	assert.Equal(t, 2, r.CantidadCambios)

	// Los montos de cambios viven aparte de los totales de ventas/devoluciones
	igual(t, 0, r.TotalBruto, "total bruto")
	igual(t, 0, r.TotalDevoluciones, "total devoluciones")
	assert.False(t, r.SinMovimientos())
}

func TestAgregar_SeparadoSoloCuentaAbonoInicial(t *testing.T) {
	inicial := d(50000)
	ventas := []model.Venta{
		{
			ID:                "v1",
			Total:             d(300000),
			EsSeparado:        true,
			MetodoPagoInicial: "Nequi",
			MontoInicial:      &inicial,
			SaldoPendiente:    d(250000),
		},
	}
	cierrePrevio := "z-9"
	separados := []model.PedidoSeparado{
		{
			ID: "s1", VentaID: "v1", Reservado: d(300000), Saldo: d(250000),
			Abonos: []model.Abono{
				{ID: "a1", Metodo: "Efectivo", Monto: d(30000)},
				{ID: "a2", Metodo: "Efectivo", Monto: d(20000), Estado: "cancelled"},
				{ID: "a3", Metodo: "Efectivo", Monto: d(10000), CierreID: &cierrePrevio},
			},
		},
	}

	r := Agregar(ventas, nil, nil, separados, Alcance{}, nil, nil)

	// La venta separada aporta solo el abono inicial, nunca su total
	igual(t, 50000, r.Metodos[MetodoNequi].Bruto, "bruto nequi")
	igual(t, 30000, r.Metodos[MetodoCash].Bruto, "bruto cash")
	igual(t, 80000, r.TotalBruto, "total bruto")

	assert.Equal(t, 1, r.Separados.Tickets)
	igual(t, 300000, r.Separados.TotalReservado, "reservado")
	igual(t, 250000, r.Separados.TotalPendiente, "pendiente")
	igual(t, 30000, r.Separados.TotalAbonos, "abonos")
}

func TestAgregar_ExcluyeCerradasYAnuladas(t *testing.T) {
	cierrePrevio := "z-1"
	ventas := []model.Venta{
		{ID: "v1", Total: d(10000), MetodoPago: "Efectivo", CierreID: &cierrePrevio},
		{ID: "v2", Total: d(20000), MetodoPago: "Efectivo", Estado: "cancelled"},
	}

	r := Agregar(ventas, nil, nil, nil, Alcance{}, nil, nil)

	assert.True(t, r.SinMovimientos())
	igual(t, 0, r.TotalBruto, "total bruto")
}

func TestAgregar_AlcanceFiltraVentas(t *testing.T) {
	ventas := []model.Venta{
		{ID: "v1", Total: d(10000), MetodoPago: "Efectivo", EstacionID: ptr("est-1")},
		{ID: "v2", Total: d(99000), MetodoPago: "Efectivo", EstacionID: ptr("est-2")},
		{ID: "v3", Total: d(5000), MetodoPago: "Efectivo", Origen: "POS Caja Principal"},
	}

	r := Agregar(ventas, nil, nil, nil, Alcance{EstacionID: "est-1", Etiqueta: "Caja Principal"}, nil, nil)

	// v2 pertenece a otra estacion; v3 matchea por etiqueta
	igual(t, 15000, r.Metodos[MetodoCash].Bruto, "bruto cash")
}

func TestAgregar_MetodoExtraDelCatalogo(t *testing.T) {
	catalogo := []model.MetodoPago{
		{ID: "1", Nombre: "Addi", Slug: "addi", Activo: true, Orden: 7},
	}
	ventas := []model.Venta{
		{ID: "v1", Total: d(45000), MetodoPago: "Addi"},
		{ID: "v2", Total: d(12000), MetodoPago: "Bono Regalo"},
	}

	r := Agregar(ventas, nil, nil, nil, Alcance{}, catalogo, nil)

	require.Len(t, r.Extras, 2)
	// Catalogo primero (orden 7), sintetizado al final
	assert.Equal(t, "addi", r.Extras[0].Slug)
	igual(t, 45000, r.Extras[0].Bruto, "bruto addi")
	assert.Equal(t, "bono-regalo", r.Extras[1].Slug)
	igual(t, 12000, r.Extras[1].Bruto, "bruto bono")

	// Los extras cuentan en el total bruto global
	igual(t, 57000, r.TotalBruto, "total bruto")
	// Pero no tocan los buckets canonicos
	igual(t, 0, r.Metodos[MetodoCash].Bruto, "bruto cash")
}

func TestAgregar_RangoDeFechas(t *testing.T) {
	tz, err := time.LoadLocation("America/Bogota")
	require.NoError(t, err)

	// 03:00 UTC del 2 de marzo = 22:00 del 1 de marzo en Bogota
	ventas := []model.Venta{
		{ID: "v1", Total: d(1000), MetodoPago: "Efectivo",
			CreatedAt: time.Date(2026, 3, 2, 3, 0, 0, 0, time.UTC)},
		{ID: "v2", Total: d(1000), MetodoPago: "Efectivo",
			CreatedAt: time.Date(2026, 3, 4, 15, 0, 0, 0, time.UTC)},
	}

	r := Agregar(ventas, nil, nil, nil, Alcance{}, nil, tz)
	resp := r.ToResponse()

	assert.Equal(t, "2026-03-01", resp.FechaDesde)
	assert.Equal(t, "2026-03-04", resp.FechaHasta)
}

func TestAgregar_EscenarioCompletoVentaYDevolucion(t *testing.T) {
	// 1 venta de 50.000 en efectivo y 1 devolucion confirmada de 20.000
	ventas := []model.Venta{
		{ID: "v1", Total: d(50000), MetodoPago: "Efectivo"},
	}
	devoluciones := []model.Devolucion{
		{ID: "d1", VentaID: ptr("v1"), Estado: "confirmed", Total: d(20000),
			Pagos: []model.Pago{{Metodo: "Efectivo", Monto: d(20000)}}},
	}

	r := Agregar(ventas, devoluciones, nil, nil, Alcance{}, nil, nil)

	igual(t, 50000, r.TotalBruto, "total bruto")
	igual(t, 20000, r.TotalDevoluciones, "total devoluciones")
	igual(t, 30000, r.Metodos[MetodoCash].Neto, "neto cash")
	igual(t, 30000, r.MontoNeto, "monto neto")
	for _, m := range []string{MetodoCard, MetodoQR, MetodoNequi, MetodoDaviplata, MetodoCredito} {
		igual(t, 0, r.Metodos[m].Neto, "neto "+m)
	}
}

func TestAgregar_EstamparCierreExcluyeExactamenteSuAporte(t *testing.T) {
	ventas := []model.Venta{
		{ID: "v1", Total: d(30000), MetodoPago: "Efectivo"},
		{ID: "v2", Total: d(20000), MetodoPago: "Efectivo"},
	}

	antes := Agregar(ventas, nil, nil, nil, Alcance{}, nil, nil)

	// El backend estampa v2 tras un cierre: su aporte desaparece completo
	cierre := "z-1"
	ventas[1].CierreID = &cierre
	despues := Agregar(ventas, nil, nil, nil, Alcance{}, nil, nil)

	diff := antes.TotalBruto.Sub(despues.TotalBruto)
	assert.True(t, diff.Equal(d(20000)), "el total debe caer exactamente el aporte estampado: %s", diff)
	igual(t, 30000, despues.Metodos[MetodoCash].Bruto, "bruto cash restante")
}

func TestAgregar_ConservacionConCambios(t *testing.T) {
	// Mezcla de ventas, devolucion y cambio: la suma de netos por bucket
	// debe igualar bruto − devoluciones + extra de cambios − reembolso.
	ventas := []model.Venta{
		{ID: "v1", Total: d(100000), Pagos: []model.Pago{
			{Metodo: "Efectivo", Monto: d(70000)},
			{Metodo: "Nequi", Monto: d(30000)},
		}},
		{ID: "v2", Total: d(40000), MetodoPago: "Tarjeta"},
	}
	devoluciones := []model.Devolucion{
		{ID: "d1", VentaID: ptr("v1"), Estado: "confirmed", Total: d(10000)},
	}
	cambios := []model.Cambio{
		{ID: "c1", Estado: "confirmed", PagoExtra: d(5000), ReembolsoDebido: d(2000)},
	}

	r := Agregar(ventas, devoluciones, cambios, nil, Alcance{}, nil, nil)

	suma := decimal.Zero
	for _, m := range MetodosCanonicos {
		suma = suma.Add(r.Metodos[m].Neto)
	}
	for _, e := range r.Extras {
		suma = suma.Add(e.Neto)
	}
	esperado := r.TotalBruto.Sub(r.TotalDevoluciones).Add(r.CambiosExtra).Sub(r.CambiosReembolso)
	assert.True(t, suma.Equal(esperado), "conservacion: %s != %s", suma, esperado)
}

func TestDistribuirProporcional(t *testing.T) {
	pagos := []model.Pago{
		{Metodo: "Efectivo", Monto: d(60000)},
		{Metodo: "Tarjeta", Monto: d(40000)},
	}
	partes := distribuirProporcional(d(80000), pagos)
	require.Len(t, partes, 2)
	igual(t, 48000, partes[0], "parte cash")
	igual(t, 32000, partes[1], "parte card")

	// La suma siempre cierra exacto, aun con divisiones periodicas
	pagos = []model.Pago{
		{Metodo: "a", Monto: d(1)},
		{Metodo: "b", Monto: d(1)},
		{Metodo: "c", Monto: d(1)},
	}
	partes = distribuirProporcional(d(100), pagos)
	suma := decimal.Zero
	for _, p := range partes {
		suma = suma.Add(p)
	}
	assert.True(t, suma.Equal(d(100)), "la suma de partes debe ser exacta: %s", suma)

	// Montos crudos en cero: reparto parejo
	pagos = []model.Pago{
		{Metodo: "a", Monto: decimal.Zero},
		{Metodo: "b", Monto: decimal.Zero},
	}
	partes = distribuirProporcional(d(10), pagos)
	igual(t, 5, partes[0], "parte pareja a")
	igual(t, 5, partes[1], "parte pareja b")
}

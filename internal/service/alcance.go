package service

import (
	"strings"

	"cierrez/internal/model"
)

// Alcance is the station scope of an aggregation pass: a specific register
// (id + display label), the "pos web" channel, or everything.
type Alcance struct {
	EstacionID string
	Etiqueta   string
	Web        bool
}

// Todas reports the unrestricted scope: no station selected, not web mode.
func (a Alcance) Todas() bool { return !a.Web && a.EstacionID == "" && a.Etiqueta == "" }

// MatchVenta decides whether a sale belongs to this scope. A sale matches
// a specific register by explicit station id, or, when the id is absent,
// by its origin label normalizing to the register's display label with any
// repeated "pos " prefixes stripped. Web mode matches any origin label
// containing "pos web".
func (a Alcance) MatchVenta(v *model.Venta) bool {
	if a.Todas() {
		return true
	}
	if a.Web {
		return strings.Contains(normalizar(v.Origen), "pos web")
	}
	if v.EstacionID != nil && *v.EstacionID != "" {
		return *v.EstacionID == a.EstacionID
	}
	return sinPrefijoPOS(normalizar(v.Origen)) == normalizar(a.Etiqueta)
}

// MatchDevolucion scopes a return: its own station id wins; otherwise the
// originating sale decides.
func (a Alcance) MatchDevolucion(d *model.Devolucion, ventas map[string]*model.Venta) bool {
	if a.Todas() {
		return true
	}
	if !a.Web && d.EstacionID != nil && *d.EstacionID != "" {
		return *d.EstacionID == a.EstacionID
	}
	if d.VentaID != nil {
		if v, ok := ventas[*d.VentaID]; ok {
			return a.MatchVenta(v)
		}
	}
	return false
}

// MatchCambio scopes an exchange: own station id, then its own origin
// label, then the originating sale.
func (a Alcance) MatchCambio(c *model.Cambio, ventas map[string]*model.Venta) bool {
	if a.Todas() {
		return true
	}
	if a.Web {
		if strings.Contains(normalizar(c.Origen), "pos web") {
			return true
		}
	} else if c.EstacionID != nil && *c.EstacionID != "" {
		return *c.EstacionID == a.EstacionID
	} else if c.Origen != "" {
		return sinPrefijoPOS(normalizar(c.Origen)) == normalizar(a.Etiqueta)
	}
	if c.VentaID != nil {
		if v, ok := ventas[*c.VentaID]; ok {
			return a.MatchVenta(v)
		}
	}
	return false
}

// MatchAbono scopes one installment payment: its own station id first,
// else the parent sale's station/label.
func (a Alcance) MatchAbono(ab *model.Abono, venta *model.Venta) bool {
	if a.Todas() {
		return true
	}
	if !a.Web && ab.EstacionID != nil && *ab.EstacionID != "" {
		return *ab.EstacionID == a.EstacionID
	}
	if venta != nil {
		return a.MatchVenta(venta)
	}
	return false
}

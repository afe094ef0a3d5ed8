package service

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"cierrez/internal/model"
)

// Canonical payment buckets. Every collected peso lands in exactly one of
// these or in a catalog-defined extra method — never in more than one.
const (
	MetodoCash      = "cash"
	MetodoCard      = "card"
	MetodoQR        = "qr"
	MetodoNequi     = "nequi"
	MetodoDaviplata = "daviplata"
	MetodoCredito   = "credit"
)

// MetodosCanonicos fixes iteration order for reports and responses.
var MetodosCanonicos = []string{
	MetodoCash, MetodoCard, MetodoQR, MetodoNequi, MetodoDaviplata, MetodoCredito,
}

// slugsReservados maps the reserved catalog slugs onto canonical buckets.
// Any active catalog method outside this set is a custom/extra method.
var slugsReservados = map[string]string{
	"cash":      MetodoCash,
	"card":      MetodoCard,
	"qr":        MetodoQR,
	"nequi":     MetodoNequi,
	"daviplata": MetodoDaviplata,
	"credit":    MetodoCredito,
	"credito":   MetodoCredito,
	"separado":  MetodoCredito,
}

// ordenUltimo sorts synthesized extras after every catalog-defined method.
const ordenUltimo = 1 << 30

var quitaDiacriticos = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// normalizar strips diacritics, lowercases and trims a free-text label.
func normalizar(s string) string {
	out, _, err := transform.String(quitaDiacriticos, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(strings.TrimSpace(out))
}

// slugificar turns a label into a catalog-style slug: normalized, with
// non-alphanumeric runs collapsed to single hyphens.
func slugificar(s string) string {
	n := normalizar(s)
	var b strings.Builder
	sep := false
	for _, r := range n {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			if sep && b.Len() > 0 {
				b.WriteByte('-')
			}
			sep = false
			b.WriteRune(r)
		default:
			sep = true
		}
	}
	return b.String()
}

// sinPrefijoPOS strips repeated "pos " prefixes from a normalized label,
// so "pos pos caja principal" matches the register "Caja Principal".
func sinPrefijoPOS(s string) string {
	for strings.HasPrefix(s, "pos ") {
		s = strings.TrimSpace(strings.TrimPrefix(s, "pos "))
	}
	return s
}

// MetodoExtra describes a custom method bucket: either a catalog entry
// outside the reserved slugs, or a descriptor synthesized from an unknown
// label.
type MetodoExtra struct {
	Slug     string
	Etiqueta string
	Orden    int
}

// Clasificacion is a tagged union: exactly one of Canonico/Extra is set.
type Clasificacion struct {
	Canonico string // one of the Metodo* constants; "" when Extra is set
	Extra    *MetodoExtra
}

// Clasificador maps free-text payment-method labels to buckets against a
// fixed catalog snapshot. It is stateless after construction and safe for
// concurrent use.
type Clasificador struct {
	porSlug   map[string]*model.MetodoPago
	porNombre map[string]*model.MetodoPago
}

// NewClasificador indexes the active catalog methods by slug and by
// normalized name. Inactive methods never match.
func NewClasificador(catalogo []model.MetodoPago) *Clasificador {
	c := &Clasificador{
		porSlug:   make(map[string]*model.MetodoPago, len(catalogo)),
		porNombre: make(map[string]*model.MetodoPago, len(catalogo)),
	}
	for i := range catalogo {
		m := &catalogo[i]
		if !m.Activo {
			continue
		}
		if m.Slug != "" {
			c.porSlug[normalizar(m.Slug)] = m
		}
		if m.Nombre != "" {
			c.porNombre[normalizar(m.Nombre)] = m
		}
	}
	return c
}

// Clasificar resolves a label to its bucket:
//  1. catalog lookup by slug (normalized label, then slugified form), then by name;
//  2. a catalog hit outside the reserved slugs routes to that method's extra bucket;
//  3. otherwise substring heuristics pick one of the six canonical buckets;
//  4. a label nothing recognizes becomes a synthesized extra, sorted last.
func (c *Clasificador) Clasificar(etiqueta string) Clasificacion {
	n := normalizar(etiqueta)
	slug := slugificar(etiqueta)

	if m := c.buscar(n, slug); m != nil {
		if bucket, ok := slugsReservados[normalizar(m.Slug)]; ok {
			return Clasificacion{Canonico: bucket}
		}
		key := m.Slug
		if key == "" {
			key = n
		}
		return Clasificacion{Extra: &MetodoExtra{Slug: key, Etiqueta: m.Nombre, Orden: m.Orden}}
	}

	switch {
	case strings.Contains(n, "cash"), strings.Contains(n, "efectivo"):
		return Clasificacion{Canonico: MetodoCash}
	case strings.Contains(n, "card"), strings.Contains(n, "tarjeta"),
		strings.Contains(n, "datafono"), strings.Contains(n, "dataphone"):
		return Clasificacion{Canonico: MetodoCard}
	case strings.Contains(n, "qr"), strings.Contains(n, "transfer"),
		strings.Contains(n, "bancolombia"), strings.Contains(n, "consignacion"):
		return Clasificacion{Canonico: MetodoQR}
	case strings.Contains(n, "nequi"):
		return Clasificacion{Canonico: MetodoNequi}
	case strings.Contains(n, "davi"):
		return Clasificacion{Canonico: MetodoDaviplata}
	case strings.Contains(n, "credito"), strings.Contains(n, "separado"):
		return Clasificacion{Canonico: MetodoCredito}
	}

	key := slug
	if key == "" {
		key = n
	}
	return Clasificacion{Extra: &MetodoExtra{
		Slug:     key,
		Etiqueta: strings.TrimSpace(etiqueta),
		Orden:    ordenUltimo,
	}}
}

func (c *Clasificador) buscar(normalizado, slug string) *model.MetodoPago {
	if m, ok := c.porSlug[normalizado]; ok {
		return m
	}
	if m, ok := c.porSlug[slug]; ok {
		return m
	}
	if m, ok := c.porNombre[normalizado]; ok {
		return m
	}
	return nil
}

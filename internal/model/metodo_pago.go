package model

// MetodoPago is a catalog entry from the backend's payment-method admin.
// A handful of slugs are reserved for the canonical buckets (see
// service.MetodosCanonicos);
// any other active method is a custom method tracked by slug and name.
type MetodoPago struct {
	ID            string `json:"id"`
	Nombre        string `json:"name"`
	Slug          string `json:"slug"`
	Activo        bool   `json:"active"`
	PermiteVuelto bool   `json:"allow_change"`
	Orden         int    `json:"display_order"`
}

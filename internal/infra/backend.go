package infra

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"cierrez/internal/model"

	"github.com/shopspring/decimal"
)

// ErrSinToken short-circuits every backend call issued without a bearer
// token. It means "not ready", not "failed": the UI simply has no session.
var ErrSinToken = errors.New("backend: sin token de autenticacion")

// pageSize is the skip/limit window used to drain list endpoints.
const pageSize = 200

// CierrePayload is the body of POST /pos/closures. Field names follow the
// backend contract; extra_methods carries the catalog-defined buckets.
type CierrePayload struct {
	PosName        string          `json:"pos_name"`
	TotalBruto     decimal.Decimal `json:"total_amount"`
	TotalEfectivo  decimal.Decimal `json:"total_cash"`
	TotalTarjeta   decimal.Decimal `json:"total_card"`
	TotalQR        decimal.Decimal `json:"total_qr"`
	TotalNequi     decimal.Decimal `json:"total_nequi"`
	TotalDaviplata decimal.Decimal `json:"total_daviplata"`
	TotalCredito   decimal.Decimal `json:"total_credit"`

	TotalDevoluciones decimal.Decimal `json:"total_refunds"`
	MontoNeto         decimal.Decimal `json:"net_amount"`

	CambiosExtra     decimal.Decimal `json:"change_extra_total"`
	CambiosReembolso decimal.Decimal `json:"change_refund_total"`
	CantidadCambios  int             `json:"change_count"`

	EfectivoContado decimal.Decimal `json:"counted_cash"`
	Diferencia      decimal.Decimal `json:"difference"`

	Notas      *string `json:"notes,omitempty"`
	EstacionID *string `json:"station_id,omitempty"`

	MetodosExtra []MetodoExtraPayload `json:"extra_methods,omitempty"`
}

// MetodoExtraPayload is one custom method line inside CierrePayload.
type MetodoExtraPayload struct {
	Slug     string          `json:"slug"`
	Etiqueta string          `json:"label"`
	Bruto    decimal.Decimal `json:"gross"`
	Neto     decimal.Decimal `json:"net"`
}

// EmailCierreRequest is the body of POST /pos/closures/{id}/email.
type EmailCierreRequest struct {
	AttachPDF     bool     `json:"attach_pdf"`
	Destinatarios []string `json:"recipients,omitempty"`
	Asunto        *string  `json:"subject,omitempty"`
	Mensaje       *string  `json:"message,omitempty"`
}

// BackendError carries the backend's own detail message for non-2xx
// responses so handlers can surface it verbatim.
type BackendError struct {
	Status int
	Detail string
}

func (e *BackendError) Error() string {
	if e.Detail != "" {
		return e.Detail
	}
	return fmt.Sprintf("Error %d", e.Status)
}

// BackendClient talks to the POS backend that owns sales, returns, changes,
// separated orders and closures. Every call forwards the caller's bearer
// token; the client itself holds no credentials.
type BackendClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewBackendClient(baseURL string, timeout time.Duration) *BackendClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &BackendClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// ── Fetchers ─────────────────────────────────────────────────────────────────

func (c *BackendClient) FetchVentas(ctx context.Context, token string) ([]model.Venta, error) {
	return drenar[model.Venta](ctx, c, token, "/pos/sales")
}

func (c *BackendClient) FetchDevoluciones(ctx context.Context, token string) ([]model.Devolucion, error) {
	return drenar[model.Devolucion](ctx, c, token, "/pos/returns")
}

func (c *BackendClient) FetchCambios(ctx context.Context, token string) ([]model.Cambio, error) {
	return drenar[model.Cambio](ctx, c, token, "/pos/changes")
}

func (c *BackendClient) FetchSeparados(ctx context.Context, token string) ([]model.PedidoSeparado, error) {
	return drenar[model.PedidoSeparado](ctx, c, token, "/pos/separated-orders")
}

func (c *BackendClient) FetchMetodosPago(ctx context.Context, token string) ([]model.MetodoPago, error) {
	return drenar[model.MetodoPago](ctx, c, token, "/pos/payment-methods")
}

// drenar pages through a list endpoint until a short page arrives.
func drenar[T any](ctx context.Context, c *BackendClient, token, path string) ([]T, error) {
	if token == "" {
		return nil, ErrSinToken
	}

	var todos []T
	for skip := 0; ; skip += pageSize {
		q := url.Values{}
		q.Set("skip", fmt.Sprint(skip))
		q.Set("limit", fmt.Sprint(pageSize))

		var pagina []T
		if err := c.get(ctx, token, path+"?"+q.Encode(), &pagina); err != nil {
			return nil, err
		}
		todos = append(todos, pagina...)
		if len(pagina) < pageSize {
			return todos, nil
		}
	}
}

// ── Submitters ───────────────────────────────────────────────────────────────

// CrearCierre posts the aggregate as a new closure resource. The returned
// record's id is the idempotency boundary: the backend stamps every covered
// record with it, excluding them from future passes.
func (c *BackendClient) CrearCierre(ctx context.Context, token string, payload CierrePayload) (*model.Cierre, error) {
	if token == "" {
		return nil, ErrSinToken
	}
	var cierre model.Cierre
	if err := c.post(ctx, token, "/pos/closures", payload, &cierre); err != nil {
		return nil, err
	}
	return &cierre, nil
}

// EnviarEmailCierre fires the backend-side closure email. Fire-and-forget
// from the closure's point of view; callers treat failures as warnings.
func (c *BackendClient) EnviarEmailCierre(ctx context.Context, token, cierreID string, req EmailCierreRequest) error {
	if token == "" {
		return ErrSinToken
	}
	return c.post(ctx, token, "/pos/closures/"+url.PathEscape(cierreID)+"/email", req, nil)
}

// ── HTTP plumbing ────────────────────────────────────────────────────────────

func (c *BackendClient) get(ctx context.Context, token, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("backend: create request: %w", err)
	}
	return c.do(req, token, out)
}

func (c *BackendClient) post(ctx context.Context, token, path string, body, out interface{}) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("backend: marshal body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("backend: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, token, out)
}

func (c *BackendClient) do(req *http.Request, token string, out interface{}) error {
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("backend: unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var envelope struct {
			Detail string `json:"detail"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&envelope)
		return &BackendError{Status: resp.StatusCode, Detail: envelope.Detail}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("backend: decode response: %w", err)
	}
	return nil
}

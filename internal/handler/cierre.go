package handler

import (
	"net/http"
	"strconv"

	"cierrez/internal/apierror"
	"cierrez/internal/dto"
	"cierrez/internal/middleware"
	"cierrez/internal/service"

	"github.com/gin-gonic/gin"
)

type CierreHandler struct{ svc service.CierreService }

func NewCierreHandler(svc service.CierreService) *CierreHandler { return &CierreHandler{svc: svc} }

// Preview godoc
// @Summary Previsualiza el cierre de caja pendiente
// @Description Agrega ventas, devoluciones, cambios y abonos abiertos del alcance indicado
// @Tags cierres
// @Produce json
// @Security BearerAuth
// @Param station_id query string false "ID de la estacion"
// @Param station_label query string false "Etiqueta visible de la estacion"
// @Param web query bool false "Canal POS Web"
// @Success 200 {object} dto.ResumenCierreResponse
// @Failure 401 {object} apierror.APIError
// @Failure 502 {object} apierror.APIError
// @Router /v1/cierres/preview [get]
func (h *CierreHandler) Preview(c *gin.Context) {
	var q dto.AlcanceQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("Parametros invalidos: "+err.Error()))
		return
	}

	alcance := service.Alcance{EstacionID: q.EstacionID, Etiqueta: q.EstacionLabel, Web: q.Web}
	resumen, err := h.svc.Previsualizar(c.Request.Context(), middleware.GetToken(c), alcance)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resumen.ToResponse())
}

// Cerrar godoc
// @Summary Registra el cierre de caja (reporte Z)
// @Description Re-agrega el alcance, valida que existan movimientos y envia el cierre al backend
// @Tags cierres
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.CerrarCajaRequest true "Datos del cierre"
// @Success 201 {object} dto.CierreResponse
// @Failure 401 {object} apierror.APIError
// @Failure 422 {object} apierror.APIError
// @Failure 502 {object} apierror.APIError
// @Router /v1/cierres [post]
func (h *CierreHandler) Cerrar(c *gin.Context) {
	var req dto.CerrarCajaRequest
	if !bindAndValidate(c, &req) {
		return
	}

	claims := middleware.GetClaims(c)
	usuario := ""
	if claims != nil {
		usuario = claims.Username
	}

	resp, err := h.svc.Cerrar(c.Request.Context(), middleware.GetToken(c), req, usuario)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// Historial godoc
// @Summary Lista los cierres registrados por este servicio
// @Tags cierres
// @Produce json
// @Security BearerAuth
// @Param page query int false "Pagina (desde 1)"
// @Param limit query int false "Filas por pagina (max 100)"
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} apierror.APIError
// @Router /v1/cierres/historial [get]
func (h *CierreHandler) Historial(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	items, total, err := h.svc.Historial(c.Request.Context(), page, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, apierror.New("No se pudo consultar el historial"))
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"items": items,
		"total": total,
		"page":  page,
		"limit": limit,
	})
}

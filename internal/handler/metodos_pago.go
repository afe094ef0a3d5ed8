package handler

import (
	"net/http"

	"cierrez/internal/middleware"
	"cierrez/internal/service"

	"github.com/gin-gonic/gin"
)

type MetodosPagoHandler struct{ catalogo service.CatalogoService }

func NewMetodosPagoHandler(catalogo service.CatalogoService) *MetodosPagoHandler {
	return &MetodosPagoHandler{catalogo: catalogo}
}

// Listar godoc
// @Summary Lista los metodos de pago activos del catalogo
// @Tags metodos-pago
// @Produce json
// @Security BearerAuth
// @Success 200 {array} model.MetodoPago
// @Failure 401 {object} apierror.APIError
// @Failure 502 {object} apierror.APIError
// @Router /v1/metodos-pago [get]
func (h *MetodosPagoHandler) Listar(c *gin.Context) {
	metodos, err := h.catalogo.Metodos(c.Request.Context(), middleware.GetToken(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, metodos)
}

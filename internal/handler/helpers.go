package handler

import (
	"errors"
	"net/http"
	"reflect"

	"cierrez/internal/apierror"
	"cierrez/internal/infra"
	"cierrez/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

var validate = validator.New()

func init() {
	// Register decimal.Decimal as a numeric type so that validator tags like
	// min=0, gt=0, required work without panicking ("Bad field type decimal.Decimal").
	validate.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if v, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := v.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
}

// bindAndValidate binds JSON body and runs go-playground/validator tags.
// Returns false and writes the error response if validation fails —
// the caller should return immediately without writing another response.
func bindAndValidate(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("JSON invalido: "+err.Error()))
		return false
	}
	if err := validate.Struct(req); err != nil {
		fields := make(map[string]string)
		for _, fe := range err.(validator.ValidationErrors) {
			fields[fe.Field()] = fe.Tag()
		}
		c.JSON(http.StatusUnprocessableEntity, apierror.NewValidation(fields))
		return false
	}
	return true
}

// respondError maps pipeline errors onto HTTP statuses. Backend detail
// messages pass through verbatim; everything else gets a safe message.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, infra.ErrSinToken):
		c.JSON(http.StatusUnauthorized, apierror.New("Autenticacion requerida"))
	case errors.Is(err, service.ErrSinMovimientos):
		c.JSON(http.StatusUnprocessableEntity, apierror.New(err.Error()))
	case errors.Is(err, infra.ErrCircuitOpen):
		c.JSON(http.StatusServiceUnavailable, apierror.New("El backend no esta disponible. Intente en unos segundos."))
	default:
		var be *infra.BackendError
		if errors.As(err, &be) {
			c.JSON(http.StatusBadGateway, apierror.New(be.Error()))
			return
		}
		log.Error().Err(err).Str("path", c.FullPath()).Msg("backend pipeline error")
		c.JSON(http.StatusBadGateway, apierror.New("No se pudo consultar el backend"))
	}
}

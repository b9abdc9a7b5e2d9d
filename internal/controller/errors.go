package controller

import (
	"errors"
	"net/http"

	"petshop-order-service/internal/service"

	"github.com/gin-gonic/gin"
)

// responderError traduce los errores de negocio a status HTTP. Los errores
// inesperados solo muestran el detalle fuera de producción.
func responderError(c *gin.Context, err error) {
	var stockErr *service.InsufficientStockError
	if errors.As(err, &stockErr) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":      stockErr.Error(),
			"producto":   stockErr.Producto,
			"disponible": stockErr.Disponible,
		})
		return
	}

	status := statusDeError(err)
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
		body := gin.H{"error": "error interno del servidor"}
		if gin.Mode() != gin.ReleaseMode {
			body["detalle"] = err.Error()
		}
		c.JSON(status, body)
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func statusDeError(err error) int {
	switch {
	case errors.Is(err, service.ErrValidation),
		errors.Is(err, service.ErrInsufficientStock),
		errors.Is(err, service.ErrInvalidTransition),
		errors.Is(err, service.ErrInvalidState):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrNotFound), errors.Is(err, service.ErrProductNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden
	}
	return http.StatusInternalServerError
}

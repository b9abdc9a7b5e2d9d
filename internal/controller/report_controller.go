package controller

import (
	"bytes"
	"fmt"
	"net/http"

	"petshop-order-service/internal/dto"
	"petshop-order-service/internal/service"

	"github.com/gin-gonic/gin"
)

type ReportController struct {
	Service *service.ReportService
}

func NewReportController(s *service.ReportService) *ReportController {
	return &ReportController{Service: s}
}

// GET /reportes/ventas?periodo=dia|semana|mes|anio
func (ctl *ReportController) Ventas(c *gin.Context) {
	var q dto.PeriodoQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	rep, err := ctl.Service.Ventas(c.Request.Context(), q)
	if err != nil {
		responderError(c, err)
		return
	}
	c.JSON(http.StatusOK, rep)
}

// GET /reportes/exportar devuelve un CSV con los pedidos del periodo
func (ctl *ReportController) Exportar(c *gin.Context) {
	var q dto.PeriodoQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// se arma en memoria para poder responder JSON si falla a mitad
	var buf bytes.Buffer
	if err := ctl.Service.ExportarCSV(c.Request.Context(), q, &buf); err != nil {
		responderError(c, err)
		return
	}

	nombre := "ventas.csv"
	if q.Periodo != "" {
		nombre = fmt.Sprintf("ventas-%s.csv", q.Periodo)
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", nombre))
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

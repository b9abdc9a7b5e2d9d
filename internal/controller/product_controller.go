package controller

import (
	"net/http"
	"strconv"

	"petshop-order-service/internal/dto"
	"petshop-order-service/internal/model"
	"petshop-order-service/internal/service"

	"github.com/gin-gonic/gin"
)

type ProductController struct {
	Service *service.CatalogService
}

func NewProductController(s *service.CatalogService) *ProductController {
	return &ProductController{Service: s}
}

// GET /productos
func (ctl *ProductController) Listar(c *gin.Context) {
	pagina, limite := paginaYLimite(c)
	filtro := model.FiltroProductos{
		Categoria:   model.Categoria(c.Query("categoria")),
		TipoMascota: model.TipoMascota(c.Query("tipoMascota")),
		Destacado:   boolQuery(c, "destacado"),
		EnOferta:    boolQuery(c, "enOferta"),
		Busqueda:    c.Query("busqueda"),
		Pagina:      pagina,
		Limite:      limite,
	}
	res, err := ctl.Service.Listar(c.Request.Context(), filtro)
	if err != nil {
		responderError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// GET /productos/:id
func (ctl *ProductController) Obtener(c *gin.Context) {
	p, err := ctl.Service.Obtener(c.Request.Context(), c.Param("id"))
	if err != nil {
		responderError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// POST /productos (admin)
func (ctl *ProductController) Crear(c *gin.Context) {
	var req dto.ProductoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	p, err := ctl.Service.Crear(c.Request.Context(), req)
	if err != nil {
		responderError(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

// PUT /productos/:id (admin)
func (ctl *ProductController) Actualizar(c *gin.Context) {
	var req dto.ProductoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	p, err := ctl.Service.Actualizar(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		responderError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// DELETE /productos/:id (admin)
func (ctl *ProductController) Eliminar(c *gin.Context) {
	if err := ctl.Service.Eliminar(c.Request.Context(), c.Param("id")); err != nil {
		responderError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// PATCH /productos/:id/stock (admin)
func (ctl *ProductController) AjustarStock(c *gin.Context) {
	var req dto.AjusteStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	p, err := ctl.Service.AjustarStock(c.Request.Context(), c.Param("id"), req.Delta)
	if err != nil {
		responderError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// boolQuery devuelve nil si el parámetro no viene o no es un booleano.
func boolQuery(c *gin.Context, key string) *bool {
	v, ok := c.GetQuery(key)
	if !ok {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return nil
	}
	return &b
}

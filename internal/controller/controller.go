package controller

import (
	"net/http"
	"strconv"

	"petshop-order-service/internal/dto"
	"petshop-order-service/internal/middleware"
	"petshop-order-service/internal/model"
	"petshop-order-service/internal/service"

	"github.com/gin-gonic/gin"
)

type OrderController struct {
	Service *service.OrderService
}

func NewOrderController(s *service.OrderService) *OrderController {
	return &OrderController{Service: s}
}

// POST /pedidos
func (ctl *OrderController) Crear(c *gin.Context) {
	var req dto.CrearPedidoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	pedido, err := ctl.Service.CrearPedido(c.Request.Context(), middleware.ActorFrom(c), req)
	if err != nil {
		responderError(c, err)
		return
	}
	c.JSON(http.StatusCreated, pedido)
}

// GET /pedidos (pedidos del usuario autenticado)
func (ctl *OrderController) MisPedidos(c *gin.Context) {
	pedidos, err := ctl.Service.ListarMisPedidos(c.Request.Context(), middleware.ActorFrom(c))
	if err != nil {
		responderError(c, err)
		return
	}
	c.JSON(http.StatusOK, pedidos)
}

// GET /pedidos/:id
func (ctl *OrderController) Obtener(c *gin.Context) {
	pedido, err := ctl.Service.ObtenerPedido(c.Request.Context(), middleware.ActorFrom(c), c.Param("id"))
	if err != nil {
		responderError(c, err)
		return
	}
	c.JSON(http.StatusOK, pedido)
}

// GET /admin/pedidos (empleados y admin)
func (ctl *OrderController) Listar(c *gin.Context) {
	pagina, limite := paginaYLimite(c)
	filtro := model.FiltroPedidos{
		Usuario: c.Query("usuario"),
		Estado:  model.EstadoPedido(c.Query("estado")),
		Pagina:  pagina,
		Limite:  limite,
	}
	res, err := ctl.Service.ListarPedidos(c.Request.Context(), filtro)
	if err != nil {
		responderError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// PUT /pedidos/:id/estado
func (ctl *OrderController) ActualizarEstado(c *gin.Context) {
	var req dto.ActualizarEstadoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	pedido, err := ctl.Service.ActualizarEstado(c.Request.Context(), middleware.ActorFrom(c), c.Param("id"), req)
	if err != nil {
		responderError(c, err)
		return
	}
	c.JSON(http.StatusOK, pedido)
}

// PUT /pedidos/:id/cancelar
func (ctl *OrderController) Cancelar(c *gin.Context) {
	pedido, err := ctl.Service.CancelarPedido(c.Request.Context(), middleware.ActorFrom(c), c.Param("id"))
	if err != nil {
		responderError(c, err)
		return
	}
	c.JSON(http.StatusOK, pedido)
}

// PUT /pedidos/:id/asignar
func (ctl *OrderController) Asignar(c *gin.Context) {
	pedido, err := ctl.Service.AsignarPedido(c.Request.Context(), middleware.ActorFrom(c), c.Param("id"))
	if err != nil {
		responderError(c, err)
		return
	}
	c.JSON(http.StatusOK, pedido)
}

// PUT /pedidos/:id/seguimiento
func (ctl *OrderController) ActualizarSeguimiento(c *gin.Context) {
	var req dto.SeguimientoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	pedido, err := ctl.Service.ActualizarSeguimiento(c.Request.Context(), middleware.ActorFrom(c), c.Param("id"), req)
	if err != nil {
		responderError(c, err)
		return
	}
	c.JSON(http.StatusOK, pedido)
}

// POST /pedidos/:id/seguimiento/evento
func (ctl *OrderController) AgregarEvento(c *gin.Context) {
	var req dto.EventoSeguimientoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	pedido, err := ctl.Service.AgregarEventoSeguimiento(c.Request.Context(), middleware.ActorFrom(c), c.Param("id"), req.Estado)
	if err != nil {
		responderError(c, err)
		return
	}
	c.JSON(http.StatusOK, pedido.Seguimiento)
}

// GET /pedidos/:id/seguimiento
func (ctl *OrderController) ObtenerSeguimiento(c *gin.Context) {
	res, err := ctl.Service.ObtenerSeguimiento(c.Request.Context(), middleware.ActorFrom(c), c.Param("id"))
	if err != nil {
		responderError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func paginaYLimite(c *gin.Context) (int, int) {
	pagina, err := strconv.Atoi(c.DefaultQuery("pagina", "1"))
	if err != nil || pagina < 1 {
		pagina = 1
	}
	limite, err := strconv.Atoi(c.DefaultQuery("limite", "20"))
	if err != nil || limite < 1 {
		limite = 20
	}
	if limite > 100 {
		limite = 100
	}
	return pagina, limite
}

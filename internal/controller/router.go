package controller

import (
	"net/http"

	"petshop-order-service/internal/middleware"
	"petshop-order-service/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type RouterDeps struct {
	Auth    *service.AuthService
	Orders  *service.OrderService
	Catalog *service.CatalogService
	Reports *service.ReportService
	Logger  *zap.Logger
}

// NewRouter arma todas las rutas de la API.
func NewRouter(deps RouterDeps) *gin.Engine {
	r := gin.New()
	r.Use(middleware.RequestLogger(deps.Logger), gin.Recovery())

	orders := NewOrderController(deps.Orders)
	productos := NewProductController(deps.Catalog)
	reportes := NewReportController(deps.Reports)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Catálogo público
	r.GET("/productos", productos.Listar)
	r.GET("/productos/:id", productos.Obtener)

	// Rutas protegidas (requieren token)
	auth := r.Group("/")
	auth.Use(middleware.AuthMiddleware(deps.Auth))

	auth.POST("/pedidos", orders.Crear)
	auth.GET("/pedidos", orders.MisPedidos)
	auth.GET("/pedidos/:id", orders.Obtener)
	auth.PUT("/pedidos/:id/cancelar", orders.Cancelar)
	auth.GET("/pedidos/:id/seguimiento", orders.ObtenerSeguimiento)

	// Empleados y admin
	staff := auth.Group("/")
	staff.Use(middleware.StaffOnly())
	staff.PUT("/pedidos/:id/estado", orders.ActualizarEstado)
	staff.PUT("/pedidos/:id/asignar", orders.Asignar)
	staff.PUT("/pedidos/:id/seguimiento", orders.ActualizarSeguimiento)
	staff.POST("/pedidos/:id/seguimiento/evento", orders.AgregarEvento)
	staff.GET("/admin/pedidos", orders.Listar)

	// Rutas admin
	admin := auth.Group("/")
	admin.Use(middleware.AdminOnly())
	admin.POST("/productos", productos.Crear)
	admin.PUT("/productos/:id", productos.Actualizar)
	admin.DELETE("/productos/:id", productos.Eliminar)
	admin.PATCH("/productos/:id/stock", productos.AjustarStock)
	admin.GET("/reportes/ventas", reportes.Ventas)
	admin.GET("/reportes/exportar", reportes.Exportar)

	return r
}

// dto.go
package dto

import (
	"time"

	"petshop-order-service/internal/model"
)

// CrearPedidoRequest es el cuerpo de POST /pedidos
type CrearPedidoRequest struct {
	Productos       []LineaPedidoRequest `json:"productos" binding:"required,min=1,dive"`
	DireccionEnvio  DireccionDTO         `json:"direccionEnvio"`
	MetodoPago      string               `json:"metodoPago" binding:"required"`
	ComprobantePago string               `json:"comprobantePago"`
}

type LineaPedidoRequest struct {
	Producto string `json:"producto" binding:"required"`
	Cantidad int    `json:"cantidad" binding:"required,min=1"`
}

// DireccionDTO para la dirección de despacho
type DireccionDTO struct {
	Calle        string `json:"calle"`
	Numero       string `json:"numero"`
	Comuna       string `json:"comuna"`
	Ciudad       string `json:"ciudad"`
	Region       string `json:"region"`
	CodigoPostal string `json:"codigoPostal"`
	Telefono     string `json:"telefono"`
	Referencia   string `json:"referencia"`
}

// ActualizarEstadoRequest: al menos uno de los campos debe venir.
type ActualizarEstadoRequest struct {
	EstadoPedido  string  `json:"estadoPedido"`
	EstadoPago    string  `json:"estadoPago"`
	NotasInternas *string `json:"notasInternas"`
}

type SeguimientoRequest struct {
	NumeroSeguimiento string     `json:"numeroSeguimiento"`
	Empresa           string     `json:"empresa"`
	URLSeguimiento    string     `json:"urlSeguimiento"`
	FechaEnvio        *time.Time `json:"fechaEnvio"`
	EstimatedDelivery *time.Time `json:"estimatedDelivery"`
	EstadoPedido      string     `json:"estadoPedido"`
}

type EventoSeguimientoRequest struct {
	Estado string `json:"estado" binding:"required"`
}

type SeguimientoResponse struct {
	PedidoID     string             `json:"pedidoId"`
	NumeroPedido string             `json:"numeroPedido"`
	EstadoPedido model.EstadoPedido `json:"estadoPedido"`
	Seguimiento  *model.Seguimiento `json:"seguimiento"`
}

type PaginaPedidos struct {
	Pedidos []*model.Pedido `json:"pedidos"`
	Total   int64           `json:"total"`
	Pagina  int             `json:"pagina"`
	Limite  int             `json:"limite"`
}

// ProductoRequest para alta y edición de productos (admin)
type ProductoRequest struct {
	Nombre      string `json:"nombre" binding:"required"`
	Descripcion string `json:"descripcion"`
	Precio      int64  `json:"precio" binding:"min=0"`
	Categoria   string `json:"categoria" binding:"required"`
	TipoMascota string `json:"tipoMascota" binding:"required"`
	Stock       int    `json:"stock" binding:"min=0"`
	Destacado   bool   `json:"destacado"`
	EnOferta    bool   `json:"enOferta"`
	Descuento   int    `json:"descuento" binding:"min=0,max=100"`
	Imagen      string `json:"imagen"`
}

type AjusteStockRequest struct {
	Delta int `json:"delta" binding:"required"`
}

type PaginaProductos struct {
	Productos []*model.Producto `json:"productos"`
	Total     int64             `json:"total"`
	Pagina    int               `json:"pagina"`
	Limite    int               `json:"limite"`
}

// PeriodoQuery son los query params de /reportes/*
type PeriodoQuery struct {
	Periodo string `form:"periodo"`
	Mes     int    `form:"mes"`
	Anio    int    `form:"anio"`
	Desde   string `form:"desde"`
	Hasta   string `form:"hasta"`
}

type ReporteVentas struct {
	Desde               time.Time         `json:"desde"`
	Hasta               time.Time         `json:"hasta"`
	Granularidad        string            `json:"granularidad"`
	TotalVentas         int64             `json:"totalVentas"`
	CantidadPedidos     int               `json:"cantidadPedidos"`
	TicketPromedio      int64             `json:"ticketPromedio"`
	VentasPorPeriodo    []PuntoVentas     `json:"ventasPorPeriodo"`
	ProductosTop        []ProductoVendido `json:"productosTop"`
	VentasPorMetodoPago map[string]int64  `json:"ventasPorMetodoPago"`
	PedidosPorEstado    map[string]int    `json:"pedidosPorEstado"`
}

type PuntoVentas struct {
	Etiqueta string `json:"etiqueta"`
	Total    int64  `json:"total"`
	Pedidos  int    `json:"pedidos"`
}

type ProductoVendido struct {
	Producto string `json:"producto"`
	Nombre   string `json:"nombre"`
	Cantidad int    `json:"cantidad"`
	Total    int64  `json:"total"`
}

// PedidoEventMessage es el envelope publicado en RabbitMQ.
type PedidoEventMessage struct {
	CorrelationID string `json:"correlation_id"`
	Exchange      string `json:"exchange"`
	RoutingKey    string `json:"routing_key"`
	Message       any    `json:"message"`
}

type SeguimientoEvent struct {
	PedidoID     string             `json:"pedidoId"`
	NumeroPedido string             `json:"numeroPedido"`
	Usuario      string             `json:"usuario"`
	EstadoPedido model.EstadoPedido `json:"estadoPedido"`
	Seguimiento  *model.Seguimiento `json:"seguimiento"`
	Fecha        time.Time          `json:"fecha"`
}

type PedidoCreadoEvent struct {
	PedidoID     string    `json:"pedidoId"`
	NumeroPedido string    `json:"numeroPedido"`
	Usuario      string    `json:"usuario"`
	Total        int64     `json:"total"`
	Fecha        time.Time `json:"fecha"`
}

// models.go
package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type EstadoPedido string

const (
	EstadoPendiente  EstadoPedido = "pendiente"
	EstadoProcesando EstadoPedido = "procesando"
	EstadoEnviado    EstadoPedido = "enviado"
	EstadoEntregado  EstadoPedido = "entregado"
	EstadoCancelado  EstadoPedido = "cancelado"
)

func (e EstadoPedido) Valido() bool {
	switch e {
	case EstadoPendiente, EstadoProcesando, EstadoEnviado, EstadoEntregado, EstadoCancelado:
		return true
	}
	return false
}

// Final indica si desde este estado ya no hay transiciones.
func (e EstadoPedido) Final() bool {
	return e == EstadoEntregado || e == EstadoCancelado
}

// Cancelable: solo antes de despachar.
func (e EstadoPedido) Cancelable() bool {
	return e == EstadoPendiente || e == EstadoProcesando
}

type EstadoPago string

const (
	PagoPendiente EstadoPago = "pendiente"
	PagoPagado    EstadoPago = "pagado"
	PagoRechazado EstadoPago = "rechazado"
)

func (e EstadoPago) Valido() bool {
	return e == PagoPendiente || e == PagoPagado || e == PagoRechazado
}

type MetodoPago string

const (
	MetodoWebpay        MetodoPago = "webpay"
	MetodoTransferencia MetodoPago = "transferencia"
	MetodoEfectivo      MetodoPago = "efectivo"
)

func (m MetodoPago) Valido() bool {
	return m == MetodoWebpay || m == MetodoTransferencia || m == MetodoEfectivo
}

type Rol string

const (
	RolCliente  Rol = "cliente"
	RolEmpleado Rol = "empleado"
	RolAdmin    Rol = "admin"
)

// Actor es el usuario autenticado que ejecuta la operación.
type Actor struct {
	ID  string
	Rol Rol
}

func (a Actor) EsStaff() bool {
	return a.Rol == RolEmpleado || a.Rol == RolAdmin
}

// Pedido: las líneas y montos quedan fijos al crearse; solo cambian
// estados, seguimiento y notas.
type Pedido struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	NumeroPedido    string             `bson:"numeroPedido" json:"numeroPedido"`
	Usuario         string             `bson:"usuario" json:"usuario"`
	Productos       []LineaPedido      `bson:"productos" json:"productos"`
	DireccionEnvio  DireccionEnvio     `bson:"direccionEnvio" json:"direccionEnvio"`
	Subtotal        int64              `bson:"subtotal" json:"subtotal"`
	CostoEnvio      int64              `bson:"costoEnvio" json:"costoEnvio"`
	Total           int64              `bson:"total" json:"total"`
	EstadoPedido    EstadoPedido       `bson:"estadoPedido" json:"estadoPedido"`
	EstadoPago      EstadoPago         `bson:"estadoPago" json:"estadoPago"`
	MetodoPago      MetodoPago         `bson:"metodoPago" json:"metodoPago"`
	ComprobantePago string             `bson:"comprobantePago,omitempty" json:"comprobantePago,omitempty"`
	ProcesadoPor    string             `bson:"procesadoPor,omitempty" json:"procesadoPor,omitempty"`
	NotasInternas   string             `bson:"notasInternas,omitempty" json:"notasInternas,omitempty"`
	Seguimiento     *Seguimiento       `bson:"seguimiento,omitempty" json:"seguimiento,omitempty"`
	CreatedAt       time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt       time.Time          `bson:"updatedAt" json:"updatedAt"`
}

type LineaPedido struct {
	Producto       primitive.ObjectID `bson:"producto" json:"producto"`
	Nombre         string             `bson:"nombre" json:"nombre"`
	Cantidad       int                `bson:"cantidad" json:"cantidad"`
	PrecioUnitario int64              `bson:"precioUnitario" json:"precioUnitario"`
	Subtotal       int64              `bson:"subtotal" json:"subtotal"`
}

// DireccionEnvio se copia al pedido, no se referencia.
type DireccionEnvio struct {
	Calle        string `bson:"calle" json:"calle"`
	Numero       string `bson:"numero" json:"numero"`
	Comuna       string `bson:"comuna" json:"comuna"`
	Ciudad       string `bson:"ciudad" json:"ciudad"`
	Region       string `bson:"region" json:"region"`
	CodigoPostal string `bson:"codigoPostal,omitempty" json:"codigoPostal,omitempty"`
	Telefono     string `bson:"telefono,omitempty" json:"telefono,omitempty"`
	Referencia   string `bson:"referencia,omitempty" json:"referencia,omitempty"`
}

type Seguimiento struct {
	NumeroSeguimiento string              `bson:"numeroSeguimiento" json:"numeroSeguimiento"`
	Empresa           string              `bson:"empresa" json:"empresa"`
	FechaEnvio        time.Time           `bson:"fechaEnvio" json:"fechaEnvio"`
	URLSeguimiento    string              `bson:"urlSeguimiento,omitempty" json:"urlSeguimiento,omitempty"`
	EstimatedDelivery time.Time           `bson:"estimatedDelivery" json:"estimatedDelivery"`
	Historia          []EventoSeguimiento `bson:"historia" json:"historia"`
}

type EventoSeguimiento struct {
	Fecha  time.Time `bson:"fecha" json:"fecha"`
	Estado string    `bson:"estado" json:"estado"`
}

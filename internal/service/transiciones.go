package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"petshop-order-service/internal/dto"
	"petshop-order-service/internal/model"

	"go.uber.org/zap"
)

const (
	EmpresaPorDefecto  = "Chilexpress"
	urlSeguimientoBase = "https://www.chilexpress.cl/seguimiento?numero="
	plazoEntrega       = 48 * time.Hour
)

// Orden de avance del flujo normal. cancelado queda fuera.
var ordenEstados = map[model.EstadoPedido]int{
	model.EstadoPendiente:  0,
	model.EstadoProcesando: 1,
	model.EstadoEnviado:    2,
	model.EstadoEntregado:  3,
}

type permisos struct {
	gestionaPedidos bool
	cambiaPago      bool
	pasosMaximos    int
}

// Tabla de autorización por rol. Es la única fuente de verdad para
// cualquier cambio de estado posterior a la creación.
var permisosPorRol = map[model.Rol]permisos{
	model.RolCliente:  {},
	model.RolEmpleado: {gestionaPedidos: true, cambiaPago: false, pasosMaximos: 1},
	model.RolAdmin:    {gestionaPedidos: true, cambiaPago: true, pasosMaximos: len(ordenEstados) - 1},
}

// autorizarTransicion decide si rol puede llevar el pedido de actual a destino
// (y cambiar el pago si cambiaPago).
func autorizarTransicion(rol model.Rol, actual, destino model.EstadoPedido, cambiaPago bool) error {
	p := permisosPorRol[rol]
	if !p.gestionaPedidos {
		return fmt.Errorf("%w: el rol %q no puede modificar pedidos", ErrForbidden, rol)
	}
	if cambiaPago && !p.cambiaPago {
		return fmt.Errorf("%w: el rol %q no puede modificar el estado de pago", ErrForbidden, rol)
	}
	if actual == destino {
		return nil
	}
	if actual.Final() {
		return fmt.Errorf("%w: el pedido ya está %s", ErrInvalidTransition, actual)
	}
	if destino == model.EstadoCancelado {
		if !actual.Cancelable() {
			return fmt.Errorf("%w: no se puede cancelar un pedido %s", ErrInvalidTransition, actual)
		}
		return nil
	}

	pasos := ordenEstados[destino] - ordenEstados[actual]
	if pasos <= 0 {
		return fmt.Errorf("%w: de %s a %s", ErrInvalidTransition, actual, destino)
	}
	if pasos > p.pasosMaximos {
		return fmt.Errorf("%w: de %s a %s requiere pasar por los estados intermedios", ErrInvalidTransition, actual, destino)
	}
	return nil
}

func descripcionEstado(e model.EstadoPedido) string {
	switch e {
	case model.EstadoPendiente:
		return "Pedido pendiente"
	case model.EstadoProcesando:
		return "Pedido en preparación"
	case model.EstadoEnviado:
		return "Pedido enviado"
	case model.EstadoEntregado:
		return "Pedido entregado"
	case model.EstadoCancelado:
		return "Pedido cancelado"
	}
	return string(e)
}

// cambiosPorEstado arma los efectos secundarios de mover p a destino:
// procesadoPor la primera vez que pasa a procesando, seguimiento automático
// la primera vez que pasa a enviado y un evento en el historial si ya existe.
func (s *OrderService) cambiosPorEstado(p *model.Pedido, actor model.Actor, destino model.EstadoPedido, now time.Time) model.CambiosPedido {
	var c model.CambiosPedido
	if destino == p.EstadoPedido {
		return c
	}
	c.EstadoPedido = &destino

	if destino == model.EstadoProcesando && p.EstadoPedido == model.EstadoPendiente && p.ProcesadoPor == "" {
		id := actor.ID
		c.ProcesadoPor = &id
	}

	evento := model.EventoSeguimiento{Fecha: now, Estado: descripcionEstado(destino)}
	switch {
	case destino == model.EstadoEnviado && p.Seguimiento == nil:
		numero := s.numeroSeguimiento()
		c.Seguimiento = &model.Seguimiento{
			NumeroSeguimiento: numero,
			Empresa:           EmpresaPorDefecto,
			FechaEnvio:        now,
			URLSeguimiento:    urlSeguimientoBase + numero,
			EstimatedDelivery: now.Add(plazoEntrega),
			Historia:          []model.EventoSeguimiento{evento},
		}
	case p.Seguimiento != nil:
		c.Evento = &evento
	}
	return c
}

// ActualizarEstado es la actualización genérica de estadoPedido/estadoPago.
func (s *OrderService) ActualizarEstado(ctx context.Context, actor model.Actor, id string, req dto.ActualizarEstadoRequest) (*model.Pedido, error) {
	if req.EstadoPedido == "" && req.EstadoPago == "" && req.NotasInternas == nil {
		return nil, fmt.Errorf("%w: nada que actualizar", ErrValidation)
	}

	p, err := s.buscar(ctx, id)
	if err != nil {
		return nil, err
	}

	destino := p.EstadoPedido
	if req.EstadoPedido != "" {
		destino = model.EstadoPedido(req.EstadoPedido)
		if !destino.Valido() {
			return nil, fmt.Errorf("%w: estado de pedido %q desconocido", ErrValidation, req.EstadoPedido)
		}
	}

	var pago *model.EstadoPago
	if req.EstadoPago != "" {
		v := model.EstadoPago(req.EstadoPago)
		if !v.Valido() {
			return nil, fmt.Errorf("%w: estado de pago %q desconocido", ErrValidation, req.EstadoPago)
		}
		if v != p.EstadoPago {
			pago = &v
		}
	}

	if err := autorizarTransicion(actor.Rol, p.EstadoPedido, destino, pago != nil); err != nil {
		return nil, err
	}

	anterior := p.EstadoPedido
	c := s.cambiosPorEstado(p, actor, destino, s.now())
	c.EstadoPago = pago
	if req.NotasInternas != nil {
		notas := strings.TrimSpace(*req.NotasInternas)
		c.NotasInternas = &notas
	}

	if destino == model.EstadoCancelado && anterior != model.EstadoCancelado {
		err = s.cancelar(ctx, p, c)
	} else {
		err = s.actualizar(ctx, p, c)
	}
	if err != nil {
		return nil, err
	}

	s.logger.Info("estado de pedido actualizado",
		zap.String("pedidoId", id),
		zap.String("actor", actor.ID),
		zap.String("rol", string(actor.Rol)),
		zap.String("desde", string(anterior)),
		zap.String("hacia", string(p.EstadoPedido)),
		zap.String("estadoPago", string(p.EstadoPago)),
	)
	if c.Seguimiento != nil || c.Evento != nil {
		s.publicarSeguimiento(ctx, p)
	}
	return p, nil
}

// CancelarPedido: solo el dueño o un admin, y solo antes del despacho.
func (s *OrderService) CancelarPedido(ctx context.Context, actor model.Actor, id string) (*model.Pedido, error) {
	p, err := s.buscar(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Usuario != actor.ID && actor.Rol != model.RolAdmin {
		return nil, fmt.Errorf("%w: solo el dueño del pedido o un administrador puede cancelarlo", ErrUnauthorized)
	}
	if !p.EstadoPedido.Cancelable() {
		return nil, fmt.Errorf("%w: no se puede cancelar un pedido %s", ErrInvalidTransition, p.EstadoPedido)
	}

	c := s.cambiosPorEstado(p, actor, model.EstadoCancelado, s.now())
	if err := s.cancelar(ctx, p, c); err != nil {
		return nil, err
	}

	s.logger.Info("pedido cancelado",
		zap.String("pedidoId", id),
		zap.String("actor", actor.ID),
	)
	if c.Evento != nil {
		s.publicarSeguimiento(ctx, p)
	}
	return p, nil
}

// cancelar marca el pedido como cancelado y devuelve el stock. La escritura
// del estado es condicional, así dos cancelaciones simultáneas no reponen
// el stock dos veces.
func (s *OrderService) cancelar(ctx context.Context, p *model.Pedido, c model.CambiosPedido) error {
	return s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.actualizar(ctx, p, c); err != nil {
			return err
		}
		return s.reponerStock(ctx, p.Productos)
	})
}

// AsignarPedido toma el pedido para el empleado/admin que lo pide.
func (s *OrderService) AsignarPedido(ctx context.Context, actor model.Actor, id string) (*model.Pedido, error) {
	if !actor.EsStaff() {
		return nil, ErrForbidden
	}
	p, err := s.buscar(ctx, id)
	if err != nil {
		return nil, err
	}
	switch p.EstadoPedido {
	case model.EstadoEnviado, model.EstadoEntregado, model.EstadoCancelado:
		return nil, fmt.Errorf("%w: no se puede asignar un pedido %s", ErrInvalidTransition, p.EstadoPedido)
	}

	var c model.CambiosPedido
	if p.EstadoPedido == model.EstadoPendiente {
		c = s.cambiosPorEstado(p, actor, model.EstadoProcesando, s.now())
	}
	actorID := actor.ID
	c.ProcesadoPor = &actorID

	if err := s.actualizar(ctx, p, c); err != nil {
		return nil, err
	}
	s.logger.Info("pedido asignado", zap.String("pedidoId", id), zap.String("procesadoPor", actor.ID))
	if c.Evento != nil {
		s.publicarSeguimiento(ctx, p)
	}
	return p, nil
}

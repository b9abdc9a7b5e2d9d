package service

import (
	"context"
	"fmt"
	"strings"

	"petshop-order-service/internal/dto"
	"petshop-order-service/internal/model"

	"go.uber.org/zap"
)

var estadosSeguimiento = map[model.EstadoPedido]bool{
	model.EstadoProcesando: true,
	model.EstadoEnviado:    true,
	model.EstadoEntregado:  true,
}

// TopicSeguimiento es el topic donde se publican los cambios de seguimiento
// de un pedido.
func TopicSeguimiento(pedidoID string) string {
	return "pedido." + pedidoID + ".seguimiento"
}

// ActualizarSeguimiento reemplaza los datos del transportista. El historial
// previo se conserva y siempre se agrega un evento.
func (s *OrderService) ActualizarSeguimiento(ctx context.Context, actor model.Actor, id string, req dto.SeguimientoRequest) (*model.Pedido, error) {
	if !actor.EsStaff() {
		return nil, ErrForbidden
	}
	numero := strings.TrimSpace(req.NumeroSeguimiento)
	empresa := strings.TrimSpace(req.Empresa)
	if numero == "" || empresa == "" {
		return nil, fmt.Errorf("%w: numeroSeguimiento y empresa son obligatorios", ErrValidation)
	}

	p, err := s.buscar(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.EstadoPedido == model.EstadoCancelado {
		return nil, fmt.Errorf("%w: el pedido está cancelado", ErrInvalidState)
	}

	destino := p.EstadoPedido
	if req.EstadoPedido != "" {
		destino = model.EstadoPedido(req.EstadoPedido)
		if !estadosSeguimiento[destino] {
			return nil, fmt.Errorf("%w: estadoPedido debe ser procesando, enviado o entregado", ErrValidation)
		}
	}
	if err := autorizarTransicion(actor.Rol, p.EstadoPedido, destino, false); err != nil {
		return nil, err
	}

	now := s.now()
	seg := model.Seguimiento{
		NumeroSeguimiento: numero,
		Empresa:           empresa,
		FechaEnvio:        now,
		URLSeguimiento:    strings.TrimSpace(req.URLSeguimiento),
		EstimatedDelivery: now.Add(plazoEntrega),
	}
	if p.Seguimiento != nil {
		seg.FechaEnvio = p.Seguimiento.FechaEnvio
		seg.EstimatedDelivery = p.Seguimiento.EstimatedDelivery
		seg.Historia = p.Seguimiento.Historia
	}
	if req.FechaEnvio != nil {
		seg.FechaEnvio = req.FechaEnvio.UTC()
	}
	if req.EstimatedDelivery != nil {
		seg.EstimatedDelivery = req.EstimatedDelivery.UTC()
	}

	estado := fmt.Sprintf("Seguimiento actualizado: %s %s", empresa, numero)
	var c model.CambiosPedido
	if destino != p.EstadoPedido {
		c.EstadoPedido = &destino
		if destino == model.EstadoProcesando && p.EstadoPedido == model.EstadoPendiente && p.ProcesadoPor == "" {
			actorID := actor.ID
			c.ProcesadoPor = &actorID
		}
		estado = descripcionEstado(destino)
	}
	c.Seguimiento = &seg
	c.Evento = &model.EventoSeguimiento{Fecha: now, Estado: estado}

	if err := s.actualizar(ctx, p, c); err != nil {
		return nil, err
	}
	s.logger.Info("seguimiento actualizado",
		zap.String("pedidoId", id),
		zap.String("empresa", empresa),
		zap.String("numeroSeguimiento", numero),
	)
	s.publicarSeguimiento(ctx, p)
	return p, nil
}

// AgregarEventoSeguimiento agrega un evento sin tocar el resto del seguimiento.
func (s *OrderService) AgregarEventoSeguimiento(ctx context.Context, actor model.Actor, id string, estado string) (*model.Pedido, error) {
	if !actor.EsStaff() {
		return nil, ErrForbidden
	}
	estado = strings.TrimSpace(estado)
	if estado == "" {
		return nil, fmt.Errorf("%w: estado requerido", ErrValidation)
	}

	p, err := s.buscar(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Seguimiento == nil {
		return nil, fmt.Errorf("%w: el pedido no tiene seguimiento", ErrInvalidState)
	}

	c := model.CambiosPedido{Evento: &model.EventoSeguimiento{Fecha: s.now(), Estado: estado}}
	if err := s.actualizar(ctx, p, c); err != nil {
		return nil, err
	}
	s.publicarSeguimiento(ctx, p)
	return p, nil
}

func (s *OrderService) ObtenerSeguimiento(ctx context.Context, actor model.Actor, id string) (*dto.SeguimientoResponse, error) {
	p, err := s.ObtenerPedido(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	return &dto.SeguimientoResponse{
		PedidoID:     p.ID.Hex(),
		NumeroPedido: p.NumeroPedido,
		EstadoPedido: p.EstadoPedido,
		Seguimiento:  p.Seguimiento,
	}, nil
}

func (s *OrderService) publicarSeguimiento(ctx context.Context, p *model.Pedido) {
	s.publicar(ctx, TopicSeguimiento(p.ID.Hex()), dto.SeguimientoEvent{
		PedidoID:     p.ID.Hex(),
		NumeroPedido: p.NumeroPedido,
		Usuario:      p.Usuario,
		EstadoPedido: p.EstadoPedido,
		Seguimiento:  p.Seguimiento,
		Fecha:        s.now(),
	})
}

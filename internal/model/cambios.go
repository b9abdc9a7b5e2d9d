package model

import "time"

// CambiosPedido describe una actualización parcial de un pedido.
// Los campos nil no se tocan.
type CambiosPedido struct {
	EstadoPedido  *EstadoPedido
	EstadoPago    *EstadoPago
	ProcesadoPor  *string
	NotasInternas *string
	Seguimiento   *Seguimiento
	Evento        *EventoSeguimiento
}

// Vacio indica que no hay nada que escribir.
func (c CambiosPedido) Vacio() bool {
	return c.EstadoPedido == nil && c.EstadoPago == nil && c.ProcesadoPor == nil &&
		c.NotasInternas == nil && c.Seguimiento == nil && c.Evento == nil
}

// Aplicar refleja en memoria lo mismo que el repositorio escribe.
func (p *Pedido) Aplicar(c CambiosPedido, now time.Time) {
	if c.EstadoPedido != nil {
		p.EstadoPedido = *c.EstadoPedido
	}
	if c.EstadoPago != nil {
		p.EstadoPago = *c.EstadoPago
	}
	if c.ProcesadoPor != nil {
		p.ProcesadoPor = *c.ProcesadoPor
	}
	if c.NotasInternas != nil {
		p.NotasInternas = *c.NotasInternas
	}
	if c.Seguimiento != nil {
		seg := *c.Seguimiento
		seg.Historia = append([]EventoSeguimiento{}, c.Seguimiento.Historia...)
		p.Seguimiento = &seg
	}
	if c.Evento != nil && p.Seguimiento != nil {
		p.Seguimiento.Historia = append(p.Seguimiento.Historia, *c.Evento)
	}
	p.UpdatedAt = now
}

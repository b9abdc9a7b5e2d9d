package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"petshop-order-service/internal/dto"
	"petshop-order-service/internal/model"
	"petshop-order-service/internal/repository"

	"go.uber.org/zap"
)

const (
	UmbralEnvioGratis int64 = 30000
	TarifaEnvio       int64 = 3990

	maxIntentosNumero = 5
)

// CostoEnvio es gratis solo si el subtotal supera el umbral.
func CostoEnvio(subtotal int64) int64 {
	if subtotal > UmbralEnvioGratis {
		return 0
	}
	return TarifaEnvio
}

// EstadoPagoInicial: la transferencia queda pendiente de comprobante.
func EstadoPagoInicial(m model.MetodoPago) model.EstadoPago {
	if m == model.MetodoTransferencia {
		return model.PagoPendiente
	}
	return model.PagoPagado
}

func dtoToModelDireccion(in dto.DireccionDTO) model.DireccionEnvio {
	return model.DireccionEnvio{
		Calle:        strings.TrimSpace(in.Calle),
		Numero:       strings.TrimSpace(in.Numero),
		Comuna:       strings.TrimSpace(in.Comuna),
		Ciudad:       strings.TrimSpace(in.Ciudad),
		Region:       strings.TrimSpace(in.Region),
		CodigoPostal: strings.TrimSpace(in.CodigoPostal),
		Telefono:     strings.TrimSpace(in.Telefono),
		Referencia:   strings.TrimSpace(in.Referencia),
	}
}

func validarCrearPedido(req dto.CrearPedidoRequest) error {
	if len(req.Productos) == 0 {
		return fmt.Errorf("%w: el pedido debe tener al menos un producto", ErrValidation)
	}
	for _, l := range req.Productos {
		if strings.TrimSpace(l.Producto) == "" {
			return fmt.Errorf("%w: producto requerido en cada línea", ErrValidation)
		}
		if l.Cantidad < 1 {
			return fmt.Errorf("%w: la cantidad debe ser al menos 1", ErrValidation)
		}
	}
	if !model.MetodoPago(req.MetodoPago).Valido() {
		return fmt.Errorf("%w: método de pago %q no válido", ErrValidation, req.MetodoPago)
	}
	d := req.DireccionEnvio
	if strings.TrimSpace(d.Calle) == "" || (strings.TrimSpace(d.Comuna) == "" && strings.TrimSpace(d.Ciudad) == "") {
		return fmt.Errorf("%w: dirección de envío incompleta", ErrValidation)
	}
	return nil
}

// CrearPedido valida todas las líneas antes de tocar stock; si alguna falla
// no hay efectos. El descuento de stock es condicional por producto y se
// compensa si una línea posterior o el insert fallan.
func (s *OrderService) CrearPedido(ctx context.Context, actor model.Actor, req dto.CrearPedidoRequest) (*model.Pedido, error) {
	if err := validarCrearPedido(req); err != nil {
		return nil, err
	}

	lineas := make([]model.LineaPedido, 0, len(req.Productos))
	solicitado := map[string]int{}
	var subtotal int64

	for _, item := range req.Productos {
		prod, err := s.productos.FindByID(ctx, item.Producto)
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrProductNotFound
		}
		if err != nil {
			return nil, err
		}

		// la misma referencia puede venir en varias líneas
		solicitado[item.Producto] += item.Cantidad
		if prod.Stock < solicitado[item.Producto] {
			return nil, &InsufficientStockError{
				ProductoID: prod.ID.Hex(),
				Producto:   prod.Nombre,
				Disponible: prod.Stock,
				Solicitado: solicitado[item.Producto],
			}
		}

		precio := prod.PrecioFinal()
		linea := model.LineaPedido{
			Producto:       prod.ID,
			Nombre:         prod.Nombre,
			Cantidad:       item.Cantidad,
			PrecioUnitario: precio,
			Subtotal:       precio * int64(item.Cantidad),
		}
		subtotal += linea.Subtotal
		lineas = append(lineas, linea)
	}

	costoEnvio := CostoEnvio(subtotal)
	metodo := model.MetodoPago(req.MetodoPago)
	now := s.now()

	pedido := &model.Pedido{
		Usuario:         actor.ID,
		Productos:       lineas,
		DireccionEnvio:  dtoToModelDireccion(req.DireccionEnvio),
		Subtotal:        subtotal,
		CostoEnvio:      costoEnvio,
		Total:           subtotal + costoEnvio,
		EstadoPedido:    model.EstadoPendiente,
		EstadoPago:      EstadoPagoInicial(metodo),
		MetodoPago:      metodo,
		ComprobantePago: strings.TrimSpace(req.ComprobantePago),
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	var err error
	for intento := 1; intento <= maxIntentosNumero; intento++ {
		if pedido.NumeroPedido == "" || intento > 1 {
			pedido.NumeroPedido = s.numeroPedido(now.In(s.loc))
		}
		err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
			return s.persistirPedido(ctx, pedido)
		})
		if !errors.Is(err, repository.ErrNumeroDuplicado) {
			break
		}
		s.logger.Warn("numero de pedido duplicado, reintentando",
			zap.String("numeroPedido", pedido.NumeroPedido),
			zap.Int("intento", intento),
		)
	}
	if err != nil {
		return nil, err
	}

	s.logger.Info("pedido creado",
		zap.String("pedidoId", pedido.ID.Hex()),
		zap.String("numeroPedido", pedido.NumeroPedido),
		zap.String("usuario", pedido.Usuario),
		zap.Int64("total", pedido.Total),
	)
	s.publicar(ctx, "pedido.creado", dto.PedidoCreadoEvent{
		PedidoID:     pedido.ID.Hex(),
		NumeroPedido: pedido.NumeroPedido,
		Usuario:      pedido.Usuario,
		Total:        pedido.Total,
		Fecha:        now,
	})
	return pedido, nil
}

// persistirPedido descuenta stock y guarda el pedido. Ante cualquier error
// deja el stock como estaba.
func (s *OrderService) persistirPedido(ctx context.Context, pedido *model.Pedido) error {
	aplicadas, err := s.reservarStock(ctx, pedido.Productos)
	if err != nil {
		return err
	}
	if err := s.pedidos.Insert(ctx, pedido); err != nil {
		s.compensar(ctx, aplicadas)
		return err
	}
	return nil
}

func (s *OrderService) reservarStock(ctx context.Context, lineas []model.LineaPedido) ([]model.LineaPedido, error) {
	aplicadas := make([]model.LineaPedido, 0, len(lineas))
	for _, l := range lineas {
		err := s.productos.DecrementStock(ctx, l.Producto.Hex(), l.Cantidad)
		if err == nil {
			aplicadas = append(aplicadas, l)
			continue
		}

		s.compensar(ctx, aplicadas)
		switch {
		case errors.Is(err, repository.ErrStockInsuficiente):
			disponible := 0
			if prod, ferr := s.productos.FindByID(ctx, l.Producto.Hex()); ferr == nil {
				disponible = prod.Stock
			}
			return nil, &InsufficientStockError{
				ProductoID: l.Producto.Hex(),
				Producto:   l.Nombre,
				Disponible: disponible,
				Solicitado: l.Cantidad,
			}
		case errors.Is(err, repository.ErrNotFound):
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	return aplicadas, nil
}

// compensar deshace descuentos ya aplicados. Dentro de una transacción no
// hace nada: el error de quien llama aborta y Mongo revierte los descuentos.
func (s *OrderService) compensar(ctx context.Context, aplicadas []model.LineaPedido) {
	if repository.EnTransaccion(ctx) {
		return
	}
	_ = s.reponerStock(ctx, aplicadas)
}

// reponerStock devuelve al catálogo las cantidades de las líneas. Un
// producto eliminado del catálogo no tiene stock que reponer.
func (s *OrderService) reponerStock(ctx context.Context, lineas []model.LineaPedido) error {
	var errs []error
	for _, l := range lineas {
		err := s.productos.IncrementStock(ctx, l.Producto.Hex(), l.Cantidad)
		if errors.Is(err, repository.ErrNotFound) {
			s.logger.Warn("producto eliminado, no se repone stock",
				zap.String("producto", l.Producto.Hex()),
				zap.Int("cantidad", l.Cantidad),
			)
			continue
		}
		if err != nil {
			s.logger.Error("no se pudo reponer stock",
				zap.String("producto", l.Producto.Hex()),
				zap.Int("cantidad", l.Cantidad),
				zap.Error(err),
			)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *OrderService) publicar(ctx context.Context, topic string, event any) {
	if err := s.publisher.Publish(ctx, topic, event); err != nil {
		s.logger.Warn("no se pudo publicar evento", zap.String("topic", topic), zap.Error(err))
	}
}

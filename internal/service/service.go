package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"petshop-order-service/internal/dto"
	"petshop-order-service/internal/model"
	"petshop-order-service/internal/repository"

	"go.uber.org/zap"
)

// Interfaces que debe implementar repository
type OrderRepository interface {
	Insert(ctx context.Context, p *model.Pedido) error
	FindByID(ctx context.Context, id string) (*model.Pedido, error)
	FindByUsuario(ctx context.Context, usuario string) ([]*model.Pedido, error)
	Find(ctx context.Context, f model.FiltroPedidos) ([]*model.Pedido, int64, error)
	FindByRangoFechas(ctx context.Context, desde, hasta time.Time) ([]*model.Pedido, error)
	Actualizar(ctx context.Context, id string, esperado model.EstadoPedido, c model.CambiosPedido) error
}

type ProductRepository interface {
	FindByID(ctx context.Context, id string) (*model.Producto, error)
	Find(ctx context.Context, f model.FiltroProductos) ([]*model.Producto, int64, error)
	Create(ctx context.Context, p *model.Producto) error
	Update(ctx context.Context, p *model.Producto) error
	Delete(ctx context.Context, id string) error
	DecrementStock(ctx context.Context, id string, cantidad int) error
	IncrementStock(ctx context.Context, id string, cantidad int) error
}

type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// EventPublisher notifica a los suscriptores (sockets, colas) de cambios en un pedido.
type EventPublisher interface {
	Publish(ctx context.Context, topic string, event any) error
}

type noopPublisher struct{}

func (noopPublisher) Publish(context.Context, string, any) error { return nil }

// NoopPublisher se usa cuando no hay broker disponible.
var NoopPublisher EventPublisher = noopPublisher{}

type sinTransaccion struct{}

func (sinTransaccion) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// Errores de negocio exportados (los usa el controller)
var (
	ErrValidation        = errors.New("datos inválidos")
	ErrNotFound          = errors.New("pedido no encontrado")
	ErrProductNotFound   = errors.New("Producto no encontrado")
	ErrInsufficientStock = errors.New("stock insuficiente")
	ErrUnauthorized      = errors.New("no autorizado")
	ErrForbidden         = errors.New("forbidden")
	ErrInvalidTransition = errors.New("transición de estado inválida")
	ErrInvalidState      = errors.New("el pedido no está en un estado válido para la operación")
)

// InsufficientStockError nombra el producto y lo que queda disponible.
type InsufficientStockError struct {
	ProductoID string
	Producto   string
	Disponible int
	Solicitado int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("Stock insuficiente para %s. Disponible: %d", e.Producto, e.Disponible)
}

func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}

type OrderServiceDeps struct {
	Pedidos           OrderRepository
	Productos         ProductRepository
	Tx                Transactor
	Publisher         EventPublisher
	Logger            *zap.Logger
	Clock             func() time.Time
	NumeroPedido      func(time.Time) string
	NumeroSeguimiento func() string
	// Location es la zona horaria de la tienda; fija la fecha del número de pedido.
	Location          *time.Location
}

type OrderService struct {
	pedidos           OrderRepository
	productos         ProductRepository
	tx                Transactor
	publisher         EventPublisher
	logger            *zap.Logger
	clock             func() time.Time
	numeroPedido      func(time.Time) string
	numeroSeguimiento func() string
	loc               *time.Location
}

func NewOrderService(deps OrderServiceDeps) *OrderService {
	s := &OrderService{
		pedidos:           deps.Pedidos,
		productos:         deps.Productos,
		tx:                deps.Tx,
		publisher:         deps.Publisher,
		logger:            deps.Logger,
		clock:             deps.Clock,
		numeroPedido:      deps.NumeroPedido,
		numeroSeguimiento: deps.NumeroSeguimiento,
		loc:               deps.Location,
	}
	if s.tx == nil {
		s.tx = sinTransaccion{}
	}
	if s.publisher == nil {
		s.publisher = NoopPublisher
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.clock == nil {
		s.clock = time.Now
	}
	if s.numeroPedido == nil {
		s.numeroPedido = GenerarNumeroPedido
	}
	if s.numeroSeguimiento == nil {
		s.numeroSeguimiento = GenerarNumeroSeguimiento
	}
	if s.loc == nil {
		s.loc = time.UTC
	}
	return s
}

func (s *OrderService) now() time.Time {
	return s.clock().UTC()
}

// Getters

// ObtenerPedido: el dueño o el personal de la tienda.
func (s *OrderService) ObtenerPedido(ctx context.Context, actor model.Actor, id string) (*model.Pedido, error) {
	p, err := s.buscar(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Usuario != actor.ID && !actor.EsStaff() {
		return nil, ErrUnauthorized
	}
	return p, nil
}

func (s *OrderService) ListarMisPedidos(ctx context.Context, actor model.Actor) ([]*model.Pedido, error) {
	return s.pedidos.FindByUsuario(ctx, actor.ID)
}

func (s *OrderService) ListarPedidos(ctx context.Context, f model.FiltroPedidos) (*dto.PaginaPedidos, error) {
	if f.Estado != "" && !f.Estado.Valido() {
		return nil, fmt.Errorf("%w: estado %q desconocido", ErrValidation, f.Estado)
	}
	pedidos, total, err := s.pedidos.Find(ctx, f)
	if err != nil {
		return nil, err
	}
	return &dto.PaginaPedidos{Pedidos: pedidos, Total: total, Pagina: f.Pagina, Limite: f.Limite}, nil
}

func (s *OrderService) buscar(ctx context.Context, id string) (*model.Pedido, error) {
	p, err := s.pedidos.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	return p, err
}

// actualizar escribe los cambios y los refleja en p.
func (s *OrderService) actualizar(ctx context.Context, p *model.Pedido, c model.CambiosPedido) error {
	if c.Vacio() {
		return nil
	}
	if err := s.pedidos.Actualizar(ctx, p.ID.Hex(), p.EstadoPedido, c); err != nil {
		return mapRepoError(err)
	}
	p.Aplicar(c, s.now())
	return nil
}

func mapRepoError(err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, repository.ErrEstadoCambiado):
		return fmt.Errorf("%w: %v", ErrInvalidTransition, err)
	}
	return err
}

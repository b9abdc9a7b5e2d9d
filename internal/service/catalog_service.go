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

// CatalogService es el CRUD del catálogo de productos.
type CatalogService struct {
	repo   ProductRepository
	logger *zap.Logger
}

func NewCatalogService(r ProductRepository, logger *zap.Logger) *CatalogService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CatalogService{repo: r, logger: logger}
}

func (s *CatalogService) Listar(ctx context.Context, f model.FiltroProductos) (*dto.PaginaProductos, error) {
	if f.Categoria != "" && !f.Categoria.Valida() {
		return nil, fmt.Errorf("%w: categoría %q desconocida", ErrValidation, f.Categoria)
	}
	if f.TipoMascota != "" && !f.TipoMascota.Valida() {
		return nil, fmt.Errorf("%w: tipo de mascota %q desconocido", ErrValidation, f.TipoMascota)
	}
	productos, total, err := s.repo.Find(ctx, f)
	if err != nil {
		return nil, err
	}
	return &dto.PaginaProductos{Productos: productos, Total: total, Pagina: f.Pagina, Limite: f.Limite}, nil
}

func (s *CatalogService) Obtener(ctx context.Context, id string) (*model.Producto, error) {
	p, err := s.repo.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrProductNotFound
	}
	return p, err
}

func (s *CatalogService) Crear(ctx context.Context, req dto.ProductoRequest) (*model.Producto, error) {
	p := &model.Producto{}
	if err := aplicarProducto(p, req); err != nil {
		return nil, err
	}
	p.Stock = req.Stock
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}
	s.logger.Info("producto creado", zap.String("productoId", p.ID.Hex()), zap.String("nombre", p.Nombre))
	return p, nil
}

// Actualizar no toca precios ya capturados en pedidos: esos son copias.
// El stock solo cambia por AjustarStock y por los pedidos; el del request
// se ignora.
func (s *CatalogService) Actualizar(ctx context.Context, id string, req dto.ProductoRequest) (*model.Producto, error) {
	p, err := s.Obtener(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := aplicarProducto(p, req); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, p); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	return p, nil
}

func (s *CatalogService) Eliminar(ctx context.Context, id string) error {
	err := s.repo.Delete(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrProductNotFound
	}
	if err == nil {
		s.logger.Info("producto eliminado", zap.String("productoId", id))
	}
	return err
}

// AjustarStock suma o resta unidades; nunca deja stock negativo.
func (s *CatalogService) AjustarStock(ctx context.Context, id string, delta int) (*model.Producto, error) {
	if delta == 0 {
		return nil, fmt.Errorf("%w: delta no puede ser 0", ErrValidation)
	}

	var err error
	if delta > 0 {
		err = s.repo.IncrementStock(ctx, id, delta)
	} else {
		err = s.repo.DecrementStock(ctx, id, -delta)
	}

	switch {
	case errors.Is(err, repository.ErrNotFound):
		return nil, ErrProductNotFound
	case errors.Is(err, repository.ErrStockInsuficiente):
		p, ferr := s.Obtener(ctx, id)
		if ferr != nil {
			return nil, ferr
		}
		return nil, &InsufficientStockError{ProductoID: id, Producto: p.Nombre, Disponible: p.Stock, Solicitado: -delta}
	case err != nil:
		return nil, err
	}

	s.logger.Info("stock ajustado", zap.String("productoId", id), zap.Int("delta", delta))
	return s.Obtener(ctx, id)
}

func aplicarProducto(p *model.Producto, req dto.ProductoRequest) error {
	nombre := strings.TrimSpace(req.Nombre)
	if nombre == "" {
		return fmt.Errorf("%w: nombre requerido", ErrValidation)
	}
	categoria := model.Categoria(req.Categoria)
	if !categoria.Valida() {
		return fmt.Errorf("%w: categoría %q desconocida", ErrValidation, req.Categoria)
	}
	tipo := model.TipoMascota(req.TipoMascota)
	if !tipo.Valida() {
		return fmt.Errorf("%w: tipo de mascota %q desconocido", ErrValidation, req.TipoMascota)
	}
	if req.Precio < 0 || req.Stock < 0 {
		return fmt.Errorf("%w: precio y stock no pueden ser negativos", ErrValidation)
	}
	if req.Descuento < 0 || req.Descuento > 100 {
		return fmt.Errorf("%w: descuento debe estar entre 0 y 100", ErrValidation)
	}

	p.Nombre = nombre
	p.Descripcion = strings.TrimSpace(req.Descripcion)
	p.Precio = req.Precio
	p.Categoria = categoria
	p.TipoMascota = tipo
	p.Destacado = req.Destacado
	p.EnOferta = req.EnOferta
	p.Descuento = req.Descuento
	p.Imagen = strings.TrimSpace(req.Imagen)
	return nil
}

// Package servicetest tiene repositorios en memoria para los tests de
// service y controller. Respetan las mismas reglas que los de Mongo:
// descuento condicional de stock, número de pedido único y escritura
// condicionada al estado esperado.
package servicetest

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"petshop-order-service/internal/model"
	"petshop-order-service/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ProductRepo struct {
	mu        sync.Mutex
	productos map[string]*model.Producto

	// AntesDeDescontar corre antes de cada descuento; sirve para simular
	// otra compra que llega entre la validación y el commit.
	AntesDeDescontar func(id string)
	Decrementos      int
	Incrementos      int
}

func NewProductRepo(productos ...*model.Producto) *ProductRepo {
	r := &ProductRepo{productos: map[string]*model.Producto{}}
	for _, p := range productos {
		if p.ID.IsZero() {
			p.ID = primitive.NewObjectID()
		}
		cp := *p
		r.productos[p.ID.Hex()] = &cp
	}
	return r
}

// Stock devuelve el stock actual, -1 si el producto no existe.
func (r *ProductRepo) Stock(id string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.productos[id]
	if !ok {
		return -1
	}
	return p.Stock
}

// SetStock pisa el stock sin pasar por las reglas del repositorio.
func (r *ProductRepo) SetStock(id string, stock int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.productos[id]; ok {
		p.Stock = stock
	}
}

func (r *ProductRepo) FindByID(_ context.Context, id string) (*model.Producto, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.productos[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *ProductRepo) Find(_ context.Context, f model.FiltroProductos) ([]*model.Producto, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*model.Producto{}
	for _, p := range r.productos {
		if f.Categoria != "" && p.Categoria != f.Categoria {
			continue
		}
		if f.TipoMascota != "" && p.TipoMascota != f.TipoMascota {
			continue
		}
		if f.Destacado != nil && p.Destacado != *f.Destacado {
			continue
		}
		if f.EnOferta != nil && p.EnOferta != *f.EnOferta {
			continue
		}
		if f.Busqueda != "" && !strings.Contains(strings.ToLower(p.Nombre), strings.ToLower(f.Busqueda)) {
			continue
		}
		cp := *p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Nombre < out[j].Nombre })
	return out, int64(len(out)), nil
}

func (r *ProductRepo) Create(_ context.Context, p *model.Producto) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	cp := *p
	r.productos[p.ID.Hex()] = &cp
	return nil
}

func (r *ProductRepo) Update(_ context.Context, p *model.Producto) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	actual, ok := r.productos[p.ID.Hex()]
	if !ok {
		return repository.ErrNotFound
	}
	cp := *p
	cp.Stock = actual.Stock
	r.productos[p.ID.Hex()] = &cp
	return nil
}

func (r *ProductRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.productos[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.productos, id)
	return nil
}

func (r *ProductRepo) DecrementStock(_ context.Context, id string, cantidad int) error {
	if r.AntesDeDescontar != nil {
		r.AntesDeDescontar(id)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.productos[id]
	if !ok {
		return repository.ErrNotFound
	}
	if p.Stock < cantidad {
		return repository.ErrStockInsuficiente
	}
	p.Stock -= cantidad
	r.Decrementos++
	return nil
}

func (r *ProductRepo) IncrementStock(_ context.Context, id string, cantidad int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.productos[id]
	if !ok {
		return repository.ErrNotFound
	}
	p.Stock += cantidad
	r.Incrementos++
	return nil
}

func (r *ProductRepo) stocks() map[string]int {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]int, len(r.productos))
	for id, p := range r.productos {
		out[id] = p.Stock
	}
	return out
}

func (r *ProductRepo) restaurarStocks(stocks map[string]int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, stock := range stocks {
		if p, ok := r.productos[id]; ok {
			p.Stock = stock
		}
	}
}

type OrderRepo struct {
	mu      sync.Mutex
	pedidos map[string]*model.Pedido
	numeros map[string]bool

	// ErroresInsert se consumen uno por llamada a Insert.
	ErroresInsert []error
}

func NewOrderRepo(pedidos ...*model.Pedido) *OrderRepo {
	r := &OrderRepo{pedidos: map[string]*model.Pedido{}, numeros: map[string]bool{}}
	for _, p := range pedidos {
		if p.ID.IsZero() {
			p.ID = primitive.NewObjectID()
		}
		r.pedidos[p.ID.Hex()] = clonar(p)
		r.numeros[p.NumeroPedido] = true
	}
	return r
}

func (r *OrderRepo) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pedidos)
}

func (r *OrderRepo) Insert(_ context.Context, p *model.Pedido) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.ErroresInsert) > 0 {
		err := r.ErroresInsert[0]
		r.ErroresInsert = r.ErroresInsert[1:]
		if err != nil {
			return err
		}
	}
	if r.numeros[p.NumeroPedido] {
		return repository.ErrNumeroDuplicado
	}
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
		p.UpdatedAt = p.CreatedAt
	}
	r.pedidos[p.ID.Hex()] = clonar(p)
	r.numeros[p.NumeroPedido] = true
	return nil
}

func (r *OrderRepo) FindByID(_ context.Context, id string) (*model.Pedido, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.pedidos[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return clonar(p), nil
}

func (r *OrderRepo) FindByUsuario(_ context.Context, usuario string) ([]*model.Pedido, error) {
	return r.filtrar(func(p *model.Pedido) bool { return p.Usuario == usuario }), nil
}

func (r *OrderRepo) Find(_ context.Context, f model.FiltroPedidos) ([]*model.Pedido, int64, error) {
	todos := r.filtrar(func(p *model.Pedido) bool {
		return (f.Usuario == "" || p.Usuario == f.Usuario) && (f.Estado == "" || p.EstadoPedido == f.Estado)
	})
	pagina, limite := f.Pagina, f.Limite
	if pagina < 1 {
		pagina = 1
	}
	if limite < 1 {
		limite = 20
	}
	desde := (pagina - 1) * limite
	if desde > len(todos) {
		desde = len(todos)
	}
	hasta := desde + limite
	if hasta > len(todos) {
		hasta = len(todos)
	}
	return todos[desde:hasta], int64(len(todos)), nil
}

func (r *OrderRepo) FindByRangoFechas(_ context.Context, desde, hasta time.Time) ([]*model.Pedido, error) {
	return r.filtrar(func(p *model.Pedido) bool {
		return !p.CreatedAt.Before(desde) && p.CreatedAt.Before(hasta)
	}), nil
}

func (r *OrderRepo) Actualizar(_ context.Context, id string, esperado model.EstadoPedido, c model.CambiosPedido) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.pedidos[id]
	if !ok {
		return repository.ErrNotFound
	}
	if p.EstadoPedido != esperado {
		return repository.ErrEstadoCambiado
	}
	if c.Evento != nil && c.Seguimiento == nil && p.Seguimiento == nil {
		return repository.ErrEstadoCambiado
	}
	p.Aplicar(c, time.Now().UTC())
	return nil
}

// filtrar devuelve copias ordenadas por fecha de creación descendente.
func (r *OrderRepo) filtrar(ok func(*model.Pedido) bool) []*model.Pedido {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*model.Pedido{}
	for _, p := range r.pedidos {
		if ok(p) {
			out = append(out, clonar(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (r *OrderRepo) copia() (map[string]*model.Pedido, map[string]bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	pedidos := make(map[string]*model.Pedido, len(r.pedidos))
	for id, p := range r.pedidos {
		pedidos[id] = clonar(p)
	}
	numeros := make(map[string]bool, len(r.numeros))
	for n := range r.numeros {
		numeros[n] = true
	}
	return pedidos, numeros
}

func (r *OrderRepo) restaurar(pedidos map[string]*model.Pedido, numeros map[string]bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pedidos = pedidos
	r.numeros = numeros
}

// Transactor imita una transacción de Mongo: marca el contexto y, si fn
// falla, deja stock y pedidos como estaban al empezar.
type Transactor struct {
	Productos *ProductRepo
	Pedidos   *OrderRepo
	Abortadas int
}

func (t *Transactor) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	stocks := t.Productos.stocks()
	pedidos, numeros := t.Pedidos.copia()
	if err := fn(repository.ConTransaccion(ctx)); err != nil {
		t.Productos.restaurarStocks(stocks)
		t.Pedidos.restaurar(pedidos, numeros)
		t.Abortadas++
		return err
	}
	return nil
}

func clonar(p *model.Pedido) *model.Pedido {
	cp := *p
	cp.Productos = append([]model.LineaPedido(nil), p.Productos...)
	if p.Seguimiento != nil {
		seg := *p.Seguimiento
		seg.Historia = append([]model.EventoSeguimiento(nil), p.Seguimiento.Historia...)
		cp.Seguimiento = &seg
	}
	return &cp
}

// Evento publicado por Publisher.
type Evento struct {
	Topic string
	Event any
}

// Publisher guarda lo publicado; Err hace fallar cada publicación.
type Publisher struct {
	mu      sync.Mutex
	eventos []Evento
	Err     error
}

func (p *Publisher) Publish(_ context.Context, topic string, event any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Err != nil {
		return p.Err
	}
	p.eventos = append(p.eventos, Evento{Topic: topic, Event: event})
	return nil
}

func (p *Publisher) Eventos() []Evento {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Evento(nil), p.eventos...)
}

// Topics lista los topics en orden de publicación.
func (p *Publisher) Topics() []string {
	var out []string
	for _, e := range p.Eventos() {
		out = append(out, e.Topic)
	}
	return out
}

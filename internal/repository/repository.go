package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"petshop-order-service/internal/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	ErrNotFound          = errors.New("documento no encontrado")
	ErrNumeroDuplicado   = errors.New("numero de pedido duplicado")
	ErrEstadoCambiado    = errors.New("el pedido cambió de estado durante la operación")
	ErrStockInsuficiente = errors.New("stock insuficiente")
)

const limiteMaximo = 100

// Mongo implementation
type MongoOrderRepository struct {
	col *mongo.Collection
}

func NewMongoOrderRepository(db *mongo.Database) *MongoOrderRepository {
	return &MongoOrderRepository{col: db.Collection("pedidos")}
}

// EnsureIndexes crea el índice único de numeroPedido y los de consulta.
func (m *MongoOrderRepository) EnsureIndexes(ctx context.Context) error {
	_, err := m.col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "numeroPedido", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "usuario", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "createdAt", Value: 1}}},
		{Keys: bson.D{{Key: "estadoPedido", Value: 1}}},
	})
	return err
}

func (m *MongoOrderRepository) Insert(ctx context.Context, p *model.Pedido) error {
	now := time.Now().UTC()
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = p.CreatedAt
	}

	_, err := m.col.InsertOne(ctx, p)
	if mongo.IsDuplicateKeyError(err) {
		return ErrNumeroDuplicado
	}
	if err != nil {
		return fmt.Errorf("insertar pedido: %w", err)
	}
	return nil
}

func (m *MongoOrderRepository) FindByID(ctx context.Context, id string) (*model.Pedido, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}
	var res model.Pedido
	err = m.col.FindOne(ctx, bson.M{"_id": oid}).Decode(&res)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func (m *MongoOrderRepository) FindByUsuario(ctx context.Context, usuario string) ([]*model.Pedido, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cur, err := m.col.Find(ctx, bson.M{"usuario": usuario}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []*model.Pedido{}
	for cur.Next(ctx) {
		var v model.Pedido
		if err := cur.Decode(&v); err != nil {
			return nil, err
		}
		out = append(out, &v)
	}
	return out, cur.Err()
}

// Find lista pedidos paginados para el panel de empleados.
func (m *MongoOrderRepository) Find(ctx context.Context, f model.FiltroPedidos) ([]*model.Pedido, int64, error) {
	filter := bson.M{}
	if f.Usuario != "" {
		filter["usuario"] = f.Usuario
	}
	if f.Estado != "" {
		filter["estadoPedido"] = f.Estado
	}

	total, err := m.col.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	pagina, limite := paginacion(f.Pagina, f.Limite)
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip(int64((pagina - 1) * limite)).
		SetLimit(int64(limite))

	cur, err := m.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	out := []*model.Pedido{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// FindByRangoFechas devuelve los pedidos con createdAt en [desde, hasta).
func (m *MongoOrderRepository) FindByRangoFechas(ctx context.Context, desde, hasta time.Time) ([]*model.Pedido, error) {
	filter := bson.M{"createdAt": bson.M{"$gte": desde, "$lt": hasta}}
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}})
	cur, err := m.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	out := []*model.Pedido{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Actualizar aplica los cambios solo si el pedido sigue en el estado esperado.
func (m *MongoOrderRepository) Actualizar(ctx context.Context, id string, esperado model.EstadoPedido, c model.CambiosPedido) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}

	set := bson.M{"updatedAt": time.Now().UTC()}
	if c.EstadoPedido != nil {
		set["estadoPedido"] = *c.EstadoPedido
	}
	if c.EstadoPago != nil {
		set["estadoPago"] = *c.EstadoPago
	}
	if c.ProcesadoPor != nil {
		set["procesadoPor"] = *c.ProcesadoPor
	}
	if c.NotasInternas != nil {
		set["notasInternas"] = *c.NotasInternas
	}

	update := bson.M{}
	switch {
	case c.Seguimiento != nil:
		// $set y $push sobre el mismo subdocumento chocan en Mongo
		seg := *c.Seguimiento
		if c.Evento != nil {
			seg.Historia = append(append([]model.EventoSeguimiento{}, seg.Historia...), *c.Evento)
		}
		set["seguimiento"] = seg
	case c.Evento != nil:
		update["$push"] = bson.M{"seguimiento.historia": *c.Evento}
	}
	update["$set"] = set

	filter := bson.M{"_id": oid, "estadoPedido": esperado}
	if c.Evento != nil && c.Seguimiento == nil {
		filter["seguimiento"] = bson.M{"$ne": nil}
	}

	res, err := m.col.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("actualizar pedido %s: %w", id, err)
	}
	if res.MatchedCount == 0 {
		n, err := m.col.CountDocuments(ctx, bson.M{"_id": oid})
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrNotFound
		}
		return ErrEstadoCambiado
	}
	return nil
}

func paginacion(pagina, limite int) (int, int) {
	if pagina < 1 {
		pagina = 1
	}
	if limite < 1 {
		limite = 20
	}
	if limite > limiteMaximo {
		limite = limiteMaximo
	}
	return pagina, limite
}

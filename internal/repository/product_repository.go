package repository

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"petshop-order-service/internal/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MongoProductRepository struct {
	col *mongo.Collection
}

func NewMongoProductRepository(db *mongo.Database) *MongoProductRepository {
	return &MongoProductRepository{col: db.Collection("productos")}
}

func (m *MongoProductRepository) EnsureIndexes(ctx context.Context) error {
	_, err := m.col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "categoria", Value: 1}, {Key: "tipoMascota", Value: 1}}},
		{Keys: bson.D{{Key: "destacado", Value: 1}}},
	})
	return err
}

func (m *MongoProductRepository) FindByID(ctx context.Context, id string) (*model.Producto, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}
	var res model.Producto
	err = m.col.FindOne(ctx, bson.M{"_id": oid}).Decode(&res)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func (m *MongoProductRepository) Find(ctx context.Context, f model.FiltroProductos) ([]*model.Producto, int64, error) {
	filter := bson.M{}
	if f.Categoria != "" {
		filter["categoria"] = f.Categoria
	}
	if f.TipoMascota != "" {
		filter["tipoMascota"] = f.TipoMascota
	}
	if f.Destacado != nil {
		filter["destacado"] = *f.Destacado
	}
	if f.EnOferta != nil {
		filter["enOferta"] = *f.EnOferta
	}
	if b := strings.TrimSpace(f.Busqueda); b != "" {
		filter["nombre"] = primitive.Regex{Pattern: regexp.QuoteMeta(b), Options: "i"}
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
	out := []*model.Producto{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (m *MongoProductRepository) Create(ctx context.Context, p *model.Producto) error {
	now := time.Now().UTC()
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	p.CreatedAt = now
	p.UpdatedAt = now
	if _, err := m.col.InsertOne(ctx, p); err != nil {
		return fmt.Errorf("insertar producto: %w", err)
	}
	return nil
}

// Update reescribe los datos de catálogo. No toca stock: lo cambian solo los
// $inc condicionales, y pisarlo con una lectura previa perdería descuentos.
func (m *MongoProductRepository) Update(ctx context.Context, p *model.Producto) error {
	p.UpdatedAt = time.Now().UTC()
	update := bson.M{"$set": bson.M{
		"nombre":      p.Nombre,
		"descripcion": p.Descripcion,
		"precio":      p.Precio,
		"categoria":   p.Categoria,
		"tipoMascota": p.TipoMascota,
		"destacado":   p.Destacado,
		"enOferta":    p.EnOferta,
		"descuento":   p.Descuento,
		"imagen":      p.Imagen,
		"updatedAt":   p.UpdatedAt,
	}}
	res, err := m.col.UpdateOne(ctx, bson.M{"_id": p.ID}, update)
	if err != nil {
		return fmt.Errorf("actualizar producto: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (m *MongoProductRepository) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}
	res, err := m.col.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// DecrementStock descuenta en una sola operación atómica y solo si alcanza
// el stock; nunca deja stock negativo.
func (m *MongoProductRepository) DecrementStock(ctx context.Context, id string, cantidad int) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}
	filter := bson.M{"_id": oid, "stock": bson.M{"$gte": cantidad}}
	update := bson.M{
		"$inc": bson.M{"stock": -cantidad},
		"$set": bson.M{"updatedAt": time.Now().UTC()},
	}
	res, err := m.col.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("descontar stock %s: %w", id, err)
	}
	if res.MatchedCount == 0 {
		n, err := m.col.CountDocuments(ctx, bson.M{"_id": oid})
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrNotFound
		}
		return ErrStockInsuficiente
	}
	return nil
}

func (m *MongoProductRepository) IncrementStock(ctx context.Context, id string, cantidad int) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}
	update := bson.M{
		"$inc": bson.M{"stock": cantidad},
		"$set": bson.M{"updatedAt": time.Now().UTC()},
	}
	res, err := m.col.UpdateOne(ctx, bson.M{"_id": oid}, update)
	if err != nil {
		return fmt.Errorf("reponer stock %s: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

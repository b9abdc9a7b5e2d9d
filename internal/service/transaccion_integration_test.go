//go:build integration

package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"petshop-order-service/internal/model"
	"petshop-order-service/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

// productosConHook intercepta el descuento para simular otra compra que
// llega dentro de la ventana de confirmación.
type productosConHook struct {
	*repository.MongoProductRepository
	antes func(ctx context.Context, id string)
}

func (p *productosConHook) DecrementStock(ctx context.Context, id string, cantidad int) error {
	if p.antes != nil {
		p.antes(ctx, id)
	}
	return p.MongoProductRepository.DecrementStock(ctx, id, cantidad)
}

type entornoMongo struct {
	db        *mongo.Database
	svc       *OrderService
	pedidos   *repository.MongoOrderRepository
	productos *productosConHook
	logs      *observer.ObservedLogs
	a, b      *model.Producto
}

// setupReplicaSet levanta Mongo como replica set de un nodo: sin eso no hay
// transacciones multi-documento.
func setupReplicaSet(t *testing.T) *entornoMongo {
	t.Helper()
	ctx := context.Background()

	container, err := mongodb.Run(ctx, "mongo:7", mongodb.WithReplicaSet("rs0"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = testcontainers.TerminateContainer(container) })

	uri, err := container.ConnectionString(ctx)
	require.NoError(t, err)
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri).SetDirect(true))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Disconnect(ctx) })

	db := client.Database("petshop_tx_test")
	pedidos := repository.NewMongoOrderRepository(db)
	productosRepo := repository.NewMongoProductRepository(db)
	require.NoError(t, pedidos.EnsureIndexes(ctx))
	require.NoError(t, productosRepo.EnsureIndexes(ctx))

	a := &model.Producto{Nombre: "Alimento perro 3kg", Precio: 10000, Categoria: model.CategoriaAlimentos, TipoMascota: model.MascotaPerro, Stock: 5}
	b := &model.Producto{Nombre: "Cama gato", Precio: 25000, Categoria: model.CategoriaCamas, TipoMascota: model.MascotaGato, Stock: 3}
	require.NoError(t, productosRepo.Create(ctx, a))
	require.NoError(t, productosRepo.Create(ctx, b))

	core, logs := observer.New(zap.DebugLevel)
	e := &entornoMongo{
		db:        db,
		pedidos:   pedidos,
		productos: &productosConHook{MongoProductRepository: productosRepo},
		logs:      logs,
		a:         a,
		b:         b,
	}
	seq := 0
	e.svc = NewOrderService(OrderServiceDeps{
		Pedidos:   pedidos,
		Productos: e.productos,
		Tx:        repository.NewMongoTransactor(client, true),
		Logger:    zap.New(core),
		NumeroPedido: func(t time.Time) string {
			seq++
			return fmt.Sprintf("PM-%s-%05d", t.Format("060102"), seq)
		},
	})
	return e
}

func (e *entornoMongo) stock(t *testing.T, p *model.Producto) int {
	t.Helper()
	got, err := e.productos.FindByID(context.Background(), p.ID.Hex())
	require.NoError(t, err)
	return got.Stock
}

func numeroDeHoy(n int) string {
	return fmt.Sprintf("PM-%s-%05d", time.Now().UTC().Format("060102"), n)
}

func (e *entornoMongo) reposicionesFallidas() int {
	return e.logs.FilterMessage("no se pudo reponer stock").Len()
}

func TestTransaccion_CrearYCancelar(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	e := setupReplicaSet(t)
	ctx := context.Background()
	req := pedidoReq("webpay", linea(e.a, 2), linea(e.b, 1))

	t.Run("numero duplicado dentro de la sesion se reintenta", func(t *testing.T) {
		ocupado := &model.Pedido{
			NumeroPedido: numeroDeHoy(1),
			Usuario:      "otro",
			EstadoPedido: model.EstadoPendiente,
			CreatedAt:    time.Now().UTC(),
		}
		require.NoError(t, e.pedidos.Insert(ctx, ocupado))

		p, err := e.svc.CrearPedido(ctx, cliente, req)
		require.NoError(t, err)
		assert.Equal(t, numeroDeHoy(2), p.NumeroPedido)
		assert.Equal(t, 3, e.stock(t, e.a))
		assert.Equal(t, 2, e.stock(t, e.b))
		assert.Zero(t, e.reposicionesFallidas())
	})

	t.Run("falta de stock al confirmar revierte los descuentos previos", func(t *testing.T) {
		disparado := false
		e.productos.antes = func(_ context.Context, id string) {
			if id != e.a.ID.Hex() || disparado {
				return
			}
			disparado = true
			// otra compra, fuera de la transacción y antes de su primera
			// escritura, se lleva lo que queda de B
			_, err := e.db.Collection("productos").UpdateOne(context.Background(),
				bson.M{"_id": e.b.ID}, bson.M{"$set": bson.M{"stock": 0}})
			require.NoError(t, err)
		}
		t.Cleanup(func() { e.productos.antes = nil })

		_, err := e.svc.CrearPedido(ctx, cliente, req)
		require.ErrorIs(t, err, ErrInsufficientStock)
		assert.Equal(t, 3, e.stock(t, e.a))
		assert.Equal(t, 0, e.stock(t, e.b))
		assert.Zero(t, e.reposicionesFallidas())
	})

	t.Run("cancelar repone stock dentro de la transaccion", func(t *testing.T) {
		_, err := e.db.Collection("productos").UpdateOne(ctx, bson.M{"_id": e.b.ID}, bson.M{"$set": bson.M{"stock": 3}})
		require.NoError(t, err)
		p, err := e.svc.CrearPedido(ctx, cliente, req)
		require.NoError(t, err)
		require.Equal(t, 1, e.stock(t, e.a))

		p, err = e.svc.CancelarPedido(ctx, cliente, p.ID.Hex())
		require.NoError(t, err)
		assert.Equal(t, model.EstadoCancelado, p.EstadoPedido)
		assert.Equal(t, 3, e.stock(t, e.a))
		assert.Equal(t, 3, e.stock(t, e.b))

		_, err = e.svc.CancelarPedido(ctx, cliente, p.ID.Hex())
		require.ErrorIs(t, err, ErrInvalidTransition)
		assert.Equal(t, 3, e.stock(t, e.a))
	})

	t.Run("cancelar con un producto eliminado", func(t *testing.T) {
		p, err := e.svc.CrearPedido(ctx, cliente, pedidoReq("webpay", linea(e.a, 1), linea(e.b, 1)))
		require.NoError(t, err)
		require.NoError(t, e.productos.Delete(ctx, e.b.ID.Hex()))

		p, err = e.svc.CancelarPedido(ctx, cliente, p.ID.Hex())
		require.NoError(t, err)
		assert.Equal(t, model.EstadoCancelado, p.EstadoPedido)
		assert.Equal(t, 3, e.stock(t, e.a))

		guardado, err := e.pedidos.FindByID(ctx, p.ID.Hex())
		require.NoError(t, err)
		assert.Equal(t, model.EstadoCancelado, guardado.EstadoPedido)
	})
}

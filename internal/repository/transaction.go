package repository

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo"
)

type transaccionKey struct{}

// ConTransaccion marca ctx como parte de una transacción en curso.
func ConTransaccion(ctx context.Context) context.Context {
	return context.WithValue(ctx, transaccionKey{}, true)
}

// EnTransaccion indica si ctx corre dentro de una transacción: un error
// aborta todo y no hay nada que compensar a mano.
func EnTransaccion(ctx context.Context) bool {
	v, _ := ctx.Value(transaccionKey{}).(bool)
	return v
}

// MongoTransactor ejecuta fn dentro de una transacción multi-documento.
// Las transacciones requieren replica set; con enabled=false fn corre sin
// transacción y la consistencia depende de las compensaciones del servicio.
type MongoTransactor struct {
	client  *mongo.Client
	enabled bool
}

func NewMongoTransactor(client *mongo.Client, enabled bool) *MongoTransactor {
	return &MongoTransactor{client: client, enabled: enabled}
}

func (t *MongoTransactor) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if !t.enabled || t.client == nil {
		return fn(ctx)
	}

	sess, err := t.client.StartSession()
	if err != nil {
		return err
	}
	defer sess.EndSession(ctx)

	// la sesión viaja en el contexto; WithValue la conserva
	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(ConTransaccion(sc))
	})
	return err
}

// setup.go
package rabbit

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"petshop-order-service/internal/dto"

	"github.com/google/uuid"
	"github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Channel es la parte de *amqp091.Channel que usa el publisher.
type Channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp091.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
	Close() error
}

// Publisher publica eventos de pedidos en un exchange topic. La routing key es
// el topic del evento (pedido.creado, pedido.<id>.seguimiento).
type Publisher struct {
	mu       sync.Mutex // un canal AMQP no es seguro para uso concurrente
	ch       Channel
	exchange string
	logger   *zap.Logger
}

// SetupPublisher declara el exchange y devuelve el publisher listo.
func SetupPublisher(ch Channel, exchange string, logger *zap.Logger) (*Publisher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	err := ch.ExchangeDeclare(
		exchange,
		amqp091.ExchangeTopic,
		true,  // durable
		false, // autoDelete
		false,
		false,
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("declarando exchange %s: %w", exchange, err)
	}

	logger.Info("exchange de pedidos listo", zap.String("exchange", exchange), zap.String("tipo", amqp091.ExchangeTopic))
	return &Publisher{ch: ch, exchange: exchange, logger: logger}, nil
}

func (p *Publisher) Publish(ctx context.Context, topic string, event any) error {
	correlationID := uuid.NewString()
	body, err := json.Marshal(dto.PedidoEventMessage{
		CorrelationID: correlationID,
		Exchange:      p.exchange,
		RoutingKey:    topic,
		Message:       event,
	})
	if err != nil {
		return fmt.Errorf("serializando evento %s: %w", topic, err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	p.mu.Lock()
	defer p.mu.Unlock()
	err = p.ch.PublishWithContext(ctx, p.exchange, topic, false, false, amqp091.Publishing{
		ContentType:   "application/json",
		DeliveryMode:  amqp091.Persistent,
		CorrelationId: correlationID,
		Timestamp:     time.Now().UTC(),
		Body:          body,
	})
	if err != nil {
		return fmt.Errorf("publicando %s: %w", topic, err)
	}

	p.logger.Debug("evento publicado", zap.String("topic", topic), zap.String("correlation_id", correlationID))
	return nil
}

func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ch.Close()
}

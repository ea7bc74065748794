package ports

import (
	"context"

	"github.com/rabbitmq/amqp091-go"

	"transfer-manager-api/internal/domain/outbox"
)

// RabbitMQ publishes outbox payloads to the processing exchange. The
// routing key is the entry's event type; queue bindings decide which
// worker picks it up.
type RabbitMQ interface {
	Connect(ctx context.Context, dsn string) error
	Init() error
	Publish(ctx context.Context, e *outbox.Entry) error
	GetConn() *amqp091.Connection
}

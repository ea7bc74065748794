package ports

import "context"

// RMQConsumer drains the download pickup queue and hands each fact to
// the download service for one processing attempt.
type RMQConsumer interface {
	Connect(dsn string) error
	Init() error
	DeliveryWorker(ctx context.Context)
}

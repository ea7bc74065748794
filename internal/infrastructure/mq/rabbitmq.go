package mq

import (
	"context"
	"net"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"transfer-manager-api/config"
	"transfer-manager-api/internal/domain/outbox"
)

type RabbitMQ struct {
	cfg   config.MQ
	log   *zap.Logger
	conn  *amqp091.Connection
	pubCh *amqp091.Channel
}

func New(cfg config.MQ, logger *zap.Logger) *RabbitMQ {
	return &RabbitMQ{
		cfg: cfg,
		log: logger,
	}
}

func (r *RabbitMQ) Connect(ctx context.Context, dsn string) error {
	dialer := &net.Dialer{Timeout: 10 * time.Second}

	amqpCfg := amqp091.Config{
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
		Properties: amqp091.Table{
			"connection_name": "transfermanagerapi",
		},
		Dial: func(network, addr string) (net.Conn, error) {
			return dialer.DialContext(ctx, network, addr)
		},
		TLSClientConfig: nil,
	}

	var err error
	r.conn, err = amqp091.DialConfig(dsn, amqpCfg)
	if err != nil {
		return err
	}
	r.pubCh, err = r.conn.Channel()
	if err != nil {
		_ = r.conn.Close()
		return err
	}

	r.log.Info("rabbitmq connected successfully")

	return err
}

// Init declares the transfer exchange and binds one queue per routing
// key: downstream processors consume file-ready facts, the in-process
// consumer picks up registered downloads.
func (r *RabbitMQ) Init() error {
	var err error
	if err = r.pubCh.ExchangeDeclare(
		r.cfg.Exchange,
		r.cfg.ExchangeType,
		true,
		false,
		false,
		false,
		nil,
	); err != nil {
		_ = r.pubCh.Close()
		return err
	}

	bindings := map[string]string{
		r.cfg.ProcessingQueue: string(outbox.EventTypeFileReady),
		r.cfg.DownloadQueue:   string(outbox.EventTypeDownloadRegistered),
	}
	for queue, rk := range bindings {
		q, err := r.pubCh.QueueDeclare(
			queue,
			true,
			false,
			false,
			false,
			nil,
		)
		if err != nil {
			return err
		}
		if err = r.pubCh.QueueBind(q.Name, rk, r.cfg.Exchange, false, nil); err != nil {
			return err
		}
	}

	return nil
}

// Publish routes an outbox entry by its event type. The payload goes
// out exactly as recorded at commit time; MessageId carries the entry
// id so consumers can deduplicate redeliveries.
func (r *RabbitMQ) Publish(ctx context.Context, e *outbox.Entry) error {
	pub := amqp091.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp091.Persistent,
		MessageId:    e.ID.String(),
		Timestamp:    e.CreatedAt,
		Type:         string(e.EventType),
		Body:         e.Payload,
	}
	if err := r.pubCh.PublishWithContext(
		ctx,
		r.cfg.Exchange,
		string(e.EventType),
		true,
		false,
		pub,
	); err != nil {
		return err
	}

	return nil
}

func (r *RabbitMQ) Close() {
	if r.pubCh != nil {
		_ = r.pubCh.Close()
	}
}

func (r *RabbitMQ) GetConn() *amqp091.Connection { return r.conn }

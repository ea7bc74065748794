package rmqconsumer

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"transfer-manager-api/config"
	"transfer-manager-api/internal/domain/download"
)

// can scale depends on a parallel worker count
const preFetchCount = 1

// Processor runs one download attempt for a consumed pickup fact.
type Processor interface {
	Process(ctx context.Context, id uuid.UUID) error
}

type Consumer struct {
	cfg        config.MQ
	log        *zap.Logger
	processor  Processor
	conn       *amqp091.Connection
	chConsume  *amqp091.Channel
	chDelivery <-chan amqp091.Delivery
}

func New(cfg config.MQ, logger *zap.Logger, processor Processor) *Consumer {
	return &Consumer{
		cfg:       cfg,
		log:       logger,
		processor: processor,
	}
}

var err error

func (c *Consumer) Connect(dsn string) error {
	c.conn, err = amqp091.Dial(dsn)
	if err != nil {
		return fmt.Errorf("amqp dial: %w", err)
	}
	c.chConsume, err = c.conn.Channel()
	if err != nil {
		_ = c.conn.Close()
		return fmt.Errorf("amqp channel: %w", err)
	}

	c.log.Info("rabbitmq consumer connected successfully")

	return err
}

func (c *Consumer) Init() error {
	if err = c.chConsume.ExchangeDeclare(
		c.cfg.Exchange,
		c.cfg.ExchangeType,
		true,
		false,
		false,
		false,
		nil,
	); err != nil {
		return fmt.Errorf("exchange declare: %w", err)
	}
	if _, err = c.chConsume.QueueDeclare(
		c.cfg.DownloadQueue,
		true,
		false,
		false,
		false,
		nil,
	); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	if err = c.chConsume.QueueBind(
		c.cfg.DownloadQueue,
		"download.registered",
		c.cfg.Exchange,
		false,
		nil,
	); err != nil {
		return fmt.Errorf("queue bind: %w", err)
	}

	if err = c.chConsume.Qos(preFetchCount, 0, false); err != nil {
		return fmt.Errorf("qos: %w", err)
	}

	var cerr error
	c.chDelivery, cerr = c.chConsume.Consume(
		c.cfg.DownloadQueue,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if cerr != nil {
		return fmt.Errorf("consume: %w", cerr)
	}

	return nil
}

func (c *Consumer) DeliveryWorker(ctx context.Context) {
	c.log.Info("starting delivery worker")

	defer func() {
		c.log.Info("delivery worker gracefully stopped")
	}()

	for {
		select {
		case msg := <-c.chDelivery:
			// we can also use "fan-out" chan here with "worker-pool"
			// in case of heavy logic processing of messages
			if err = c.delivery(ctx, msg); err != nil {
				// alert
				c.log.Error("mq read message error", zap.Error(err))
			}
		case <-ctx.Done():
			c.chConsume.Close()
			return
		}
	}
}

// delivery parses one pickup fact and runs the attempt. A message that
// cannot be parsed or processed is dropped without requeue: redelivery
// in a loop would burn the retry ceiling on the same transient fault,
// the retry sweep re-emits abandoned downloads instead.
func (c *Consumer) delivery(ctx context.Context, msg amqp091.Delivery) error {
	var fact download.RegisteredFact
	if err := json.Unmarshal(msg.Body, &fact); err != nil {
		_ = msg.Nack(false, false)
		return fmt.Errorf("unmarshal pickup fact: %w", err)
	}

	if err := c.processor.Process(ctx, fact.DownloadID); err != nil {
		_ = msg.Nack(false, false)
		return fmt.Errorf("process download %s: %w", fact.DownloadID, err)
	}

	return msg.Ack(false)
}

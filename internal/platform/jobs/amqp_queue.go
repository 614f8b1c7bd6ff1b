package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/NeerajSreeMailee/Genius-Technology-2-sub000/internal/domain"
)

// AMQPConfig names the topic exchange, queue and routing key used for notifications.
type AMQPConfig struct {
	URL        string
	Exchange   string
	Queue      string
	RoutingKey string
}

type amqpPublisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// AMQPQueue publishes notifications to a RabbitMQ topic exchange.
type AMQPQueue struct {
	channel    amqpPublisher
	exchange   string
	routingKey string
	now        func() time.Time
}

// NewAMQPQueue wraps an open channel. The exchange must already be declared.
func NewAMQPQueue(channel amqpPublisher, exchange, routingKey string) (*AMQPQueue, error) {
	if channel == nil || exchange == "" || routingKey == "" {
		return nil, errors.New("amqp queue: channel, exchange and routing key are required")
	}
	return &AMQPQueue{channel: channel, exchange: exchange, routingKey: routingKey, now: time.Now}, nil
}

// Enqueue publishes n as a persistent JSON message.
func (q *AMQPQueue) Enqueue(ctx context.Context, n domain.Notification) error {
	data, err := EncodeNotification(n)
	if err != nil {
		return err
	}
	headers := amqp.Table{}
	for k, v := range attributes(n) {
		headers[k] = v
	}
	err = q.channel.PublishWithContext(ctx, q.exchange, q.routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    q.now(),
		MessageId:    n.ID,
		Headers:      headers,
		Body:         data,
	})
	if err != nil {
		return fmt.Errorf("publish notification to %s/%s: %w", q.exchange, q.routingKey, err)
	}
	return nil
}

// AMQPConnection owns a RabbitMQ connection with the notification topology declared.
type AMQPConnection struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	cfg     AMQPConfig
}

// DialAMQP connects with a short retry loop and declares the exchange, queue and binding.
func DialAMQP(ctx context.Context, cfg AMQPConfig, logger *zap.Logger) (*AMQPConnection, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	var (
		conn *amqp.Connection
		err  error
	)
	for attempt := 0; attempt < 5; attempt++ {
		conn, err = amqp.Dial(cfg.URL)
		if err == nil {
			break
		}
		wait := time.Duration(attempt*attempt)*time.Second + time.Second
		logger.Warn("amqp dial failed; retrying", zap.Duration("wait", wait), zap.Error(err))
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}
	}
	if err != nil {
		return nil, fmt.Errorf("connect to rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open amqp channel: %w", err)
	}
	if err := declareTopology(ch, cfg); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}
	return &AMQPConnection{conn: conn, channel: ch, cfg: cfg}, nil
}

func declareTopology(ch *amqp.Channel, cfg AMQPConfig) error {
	if err := ch.ExchangeDeclare(cfg.Exchange, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange %s: %w", cfg.Exchange, err)
	}
	q, err := ch.QueueDeclare(cfg.Queue, true, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("declare queue %s: %w", cfg.Queue, err)
	}
	if err := ch.QueueBind(q.Name, cfg.RoutingKey, cfg.Exchange, false, nil); err != nil {
		return fmt.Errorf("bind queue %s: %w", cfg.Queue, err)
	}
	return nil
}

// Queue returns a publisher on this connection.
func (c *AMQPConnection) Queue() (*AMQPQueue, error) {
	return NewAMQPQueue(c.channel, c.cfg.Exchange, c.cfg.RoutingKey)
}

// Deliveries starts consuming the notification queue with manual acks and prefetch 1.
func (c *AMQPConnection) Deliveries(consumer string) (<-chan amqp.Delivery, error) {
	if err := c.channel.Qos(1, 0, false); err != nil {
		return nil, fmt.Errorf("set qos: %w", err)
	}
	deliveries, err := c.channel.Consume(c.cfg.Queue, consumer, false, false, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("consume %s: %w", c.cfg.Queue, err)
	}
	return deliveries, nil
}

// Close closes the channel and connection.
func (c *AMQPConnection) Close() error {
	if err := c.channel.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
		return err
	}
	return c.conn.Close()
}

// Consume runs handler for each delivery until ctx ends or the channel closes.
// Handled messages are acked. Failures are dropped rather than requeued since delivery is never retried.
func Consume(ctx context.Context, deliveries <-chan amqp.Delivery, handler Handler, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return errors.New("amqp: delivery channel closed")
			}
			n, err := DecodeNotification(d.Body)
			if err == nil {
				err = handler(ctx, n)
			}
			if err != nil {
				logger.Error("notification delivery failed", zap.String("message_id", d.MessageId), zap.Error(err))
				_ = d.Nack(false, false)
				continue
			}
			_ = d.Ack(false)
		}
	}
}

package broker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const reconnectDelay = 5 * time.Second

// RabbitMQQueue publishes to a durable fanout exchange. Each subscriber gets
// its own exclusive, auto-deleted queue bound to it.
type RabbitMQQueue struct {
	url      string
	exchange string
	logger   *slog.Logger

	mu      sync.RWMutex
	conn    *amqp.Connection
	channel *amqp.Channel
	closed  chan struct{}
	once    sync.Once
}

func NewRabbitMQQueue(url, exchange string, lg *slog.Logger) (*RabbitMQQueue, error) {
	q := &RabbitMQQueue{
		url:      url,
		exchange: exchange,
		logger:   lg,
		closed:   make(chan struct{}),
	}
	if err := q.connect(); err != nil {
		return nil, err
	}

	go q.monitorConnection()

	lg.Info("connected to rabbitmq", "exchange", exchange)
	return q, nil
}

func (q *RabbitMQQueue) Name() string { return "rabbitmq" }

func (q *RabbitMQQueue) connect() error {
	conn, err := amqp.Dial(q.url)
	if err != nil {
		return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to open RabbitMQ channel: %w", err)
	}
	if err := ch.ExchangeDeclare(q.exchange, "fanout", true, false, false, false, nil); err != nil {
		conn.Close()
		return fmt.Errorf("rabbitmq: declare exchange: %w", err)
	}

	q.mu.Lock()
	q.conn = conn
	q.channel = ch
	q.mu.Unlock()
	return nil
}

func (q *RabbitMQQueue) Publish(ctx context.Context, data []byte) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.channel == nil {
		return fmt.Errorf("rabbitmq: channel not available")
	}

	err := q.channel.PublishWithContext(ctx, q.exchange, "", false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         data,
	})
	if err != nil {
		return fmt.Errorf("rabbitmq: publish: %w", err)
	}
	return nil
}

// Subscribe consumes until ctx is cancelled or the delivery channel closes.
func (q *RabbitMQQueue) Subscribe(ctx context.Context, handler func(data []byte) error) error {
	q.mu.RLock()
	ch := q.channel
	q.mu.RUnlock()

	if ch == nil {
		return fmt.Errorf("rabbitmq: channel not available")
	}

	queue, err := ch.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		return fmt.Errorf("rabbitmq: declare queue: %w", err)
	}
	if err := ch.QueueBind(queue.Name, "", q.exchange, false, nil); err != nil {
		return fmt.Errorf("rabbitmq: bind queue: %w", err)
	}
	msgs, err := ch.ConsumeWithContext(ctx, queue.Name, "", false, true, false, false, nil)
	if err != nil {
		return fmt.Errorf("rabbitmq: consume: %w", err)
	}

	q.logger.Info("subscribed to rabbitmq exchange", "exchange", q.exchange, "queue", queue.Name)

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return fmt.Errorf("rabbitmq: delivery channel closed")
			}
			if err := handler(msg.Body); err != nil {
				q.logger.Error("error processing rabbitmq message", "exchange", q.exchange, "error", err)
				_ = msg.Nack(false, false)
				continue
			}
			_ = msg.Ack(false)
		}
	}
}

func (q *RabbitMQQueue) Close() error {
	q.once.Do(func() { close(q.closed) })

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.channel != nil {
		q.channel.Close()
	}
	if q.conn != nil {
		return q.conn.Close()
	}
	return nil
}

func (q *RabbitMQQueue) monitorConnection() {
	for {
		q.mu.RLock()
		conn := q.conn
		q.mu.RUnlock()

		reason, ok := <-conn.NotifyClose(make(chan *amqp.Error, 1))
		if !ok || reason == nil {
			return
		}
		q.logger.Warn("rabbitmq connection lost, reconnecting", "reason", reason.Reason)

		for {
			select {
			case <-q.closed:
				return
			case <-time.After(reconnectDelay):
			}
			if err := q.connect(); err != nil {
				q.logger.Error("failed to reconnect to rabbitmq", "error", err)
				continue
			}
			q.logger.Info("reconnected to rabbitmq")
			break
		}
	}
}

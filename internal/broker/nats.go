package broker

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"
)

type NATSQueue struct {
	conn    *nats.Conn
	subject string
	logger  *slog.Logger
}

func NewNATSQueue(url, subject string, lg *slog.Logger) (*NATSQueue, error) {
	nc, err := nats.Connect(url,
		nats.Name("work-permit"),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				lg.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			lg.Info("nats reconnected", "url", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	lg.Info("connected to nats", "subject", subject)
	return &NATSQueue{conn: nc, subject: subject, logger: lg}, nil
}

func (q *NATSQueue) Name() string { return "nats" }

func (q *NATSQueue) Publish(_ context.Context, data []byte) error {
	if err := q.conn.Publish(q.subject, data); err != nil {
		return fmt.Errorf("nats: publish: %w", err)
	}
	return nil
}

// Subscribe blocks until ctx is cancelled.
func (q *NATSQueue) Subscribe(ctx context.Context, handler func(data []byte) error) error {
	sub, err := q.conn.Subscribe(q.subject, func(msg *nats.Msg) {
		if err := handler(msg.Data); err != nil {
			q.logger.Error("error processing nats message", "subject", q.subject, "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("nats: subscribe: %w", err)
	}
	defer sub.Unsubscribe()

	q.logger.Info("subscribed to nats subject", "subject", q.subject)
	<-ctx.Done()
	return nil
}

func (q *NATSQueue) Close() error {
	return q.conn.Drain()
}

// Package broker forwards permit lifecycle events from the in-process bus to
// an external message broker and reads them back for the events worker.
package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/frahmantamala/work-permit/internal"
	"github.com/frahmantamala/work-permit/internal/core/events"
)

// MessageQueue is a single destination: a RabbitMQ fanout exchange or a NATS
// subject.
type MessageQueue interface {
	Name() string
	Publish(ctx context.Context, data []byte) error
	Subscribe(ctx context.Context, handler func(data []byte) error) error
	Close() error
}

// Envelope is the wire format of a forwarded event.
type Envelope struct {
	ID         string      `json:"id"`
	Type       string      `json:"type"`
	OccurredAt time.Time   `json:"occurredAt"`
	Data       interface{} `json:"data"`
}

func Encode(e events.Event) ([]byte, error) {
	return json.Marshal(Envelope{
		ID:         e.EventID(),
		Type:       e.EventType(),
		OccurredAt: e.OccurredAt(),
		Data:       e.Payload(),
	})
}

func Decode(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, fmt.Errorf("decode envelope: %w", err)
	}
	if env.Type == "" {
		return Envelope{}, fmt.Errorf("decode envelope: missing type")
	}
	return env, nil
}

// Open connects to the configured broker. It returns nil when no broker is
// configured.
func Open(cfg internal.BrokerConfig, lg *slog.Logger) (MessageQueue, error) {
	switch cfg.Kind {
	case "", internal.BrokerNone:
		return nil, nil
	case internal.BrokerRabbitMQ:
		q, err := NewRabbitMQQueue(cfg.RabbitMQURL, cfg.Exchange, lg)
		if err != nil {
			return nil, err
		}
		return q, nil
	case internal.BrokerNATS:
		q, err := NewNATSQueue(cfg.NATSURL, cfg.Subject, lg)
		if err != nil {
			return nil, err
		}
		return q, nil
	default:
		return nil, fmt.Errorf("unsupported broker kind %q", cfg.Kind)
	}
}

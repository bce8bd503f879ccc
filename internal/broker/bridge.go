package broker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/frahmantamala/work-permit/internal/core/events"
	"github.com/frahmantamala/work-permit/internal/observability/metrics"
)

// Bridge forwards every bus event to a MessageQueue.
type Bridge struct {
	queue  MessageQueue
	logger *slog.Logger
}

func NewBridge(queue MessageQueue, lg *slog.Logger) *Bridge {
	return &Bridge{queue: queue, logger: lg}
}

func (b *Bridge) Register(bus *events.EventBus) {
	bus.Subscribe(events.AllEvents, b.Forward)
}

func (b *Bridge) Forward(ctx context.Context, e events.Event) error {
	data, err := Encode(e)
	if err != nil {
		metrics.BrokerPublishTotal.WithLabelValues(b.queue.Name(), "encode_error").Inc()
		return fmt.Errorf("encode %s: %w", e.EventType(), err)
	}

	if err := b.queue.Publish(ctx, data); err != nil {
		outcome := "error"
		if errors.Is(err, ErrBrokerUnavailable) {
			outcome = "rejected"
		}
		metrics.BrokerPublishTotal.WithLabelValues(b.queue.Name(), outcome).Inc()
		b.logger.Warn("event not forwarded to broker",
			"broker", b.queue.Name(), "event_type", e.EventType(), "event_id", e.EventID(), "error", err)
		return err
	}

	metrics.BrokerPublishTotal.WithLabelValues(b.queue.Name(), "ok").Inc()
	b.logger.Debug("event forwarded to broker",
		"broker", b.queue.Name(), "event_type", e.EventType(), "event_id", e.EventID())
	return nil
}

// Consume decodes messages from the queue and hands them to handle until ctx
// ends. Undecodable messages are logged and dropped.
func Consume(ctx context.Context, queue MessageQueue, lg *slog.Logger, handle func(context.Context, Envelope) error) error {
	return queue.Subscribe(ctx, func(data []byte) error {
		env, err := Decode(data)
		if err != nil {
			lg.Warn("dropping malformed broker message", "broker", queue.Name(), "error", err)
			return nil
		}
		return handle(ctx, env)
	})
}

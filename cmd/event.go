package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/frahmantamala/work-permit/internal/broker"
	"github.com/frahmantamala/work-permit/internal/core/events"
	"github.com/frahmantamala/work-permit/pkg/logger"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var eventCmd = &cobra.Command{
	Use:   "event",
	Short: "Event management commands",
	Long:  `Publish permit events by hand to check bus handlers and broker wiring.`,
}

var publishEventCmd = &cobra.Command{
	Use:   "publish [event-type]",
	Short: "Publish a test event",
	Long:  `Publish a test event to the in-process bus and, when configured, the broker.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		return publishTestEvent(ctx, args[0])
	},
}

var (
	eventPermitID string
	eventActorID  string
	eventData     string
)

// buildTestEvent maps a permit event type onto its constructor. Unknown types
// become a plain BaseEvent carrying the message.
func buildTestEvent(eventType, permitID, actorID, message string) events.Event {
	if permitID == "" {
		permitID = uuid.NewString()
	}
	if actorID == "" {
		actorID = uuid.NewString()
	}
	switch eventType {
	case events.EventTypePermitSubmitted:
		return events.NewPermitSubmittedEvent(permitID, actorID, "WP-TEST")
	case events.EventTypePermitStatusChanged:
		return events.NewPermitStatusChangedEvent(permitID, actorID, actorID, "pending", "approved")
	case events.EventTypePermitDeleted:
		return events.NewPermitDeletedEvent(permitID, actorID)
	}
	return events.BaseEvent{
		ID:        fmt.Sprintf("test-%d", time.Now().Unix()),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Data: map[string]interface{}{
			"message": message,
			"source":  "cli-command",
		},
	}
}

func publishTestEvent(ctx context.Context, eventType string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	lg := logger.LoggerWrapper()

	bus := events.NewEventBus(lg)
	bus.Subscribe(events.AllEvents, func(ctx context.Context, event events.Event) error {
		lg.Info("bus handler received event",
			"event_id", event.EventID(),
			"event_type", event.EventType(),
			"payload", event.Payload())
		return nil
	})

	queue, err := broker.Open(cfg.Broker, lg)
	if err != nil {
		return fmt.Errorf("failed to open broker: %w", err)
	}
	if queue != nil {
		defer queue.Close()
		broker.NewBridge(queue, lg).Register(bus)
	}

	event := buildTestEvent(eventType, eventPermitID, eventActorID, eventData)
	lg.Info("publishing test event", "event_type", event.EventType(), "event_id", event.EventID())
	if err := bus.Publish(ctx, event); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	return drainBus(ctx, bus, lg)
}

func drainBus(ctx context.Context, bus *events.EventBus, lg *slog.Logger) error {
	drainCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := bus.Drain(drainCtx); err != nil {
		return fmt.Errorf("event handlers did not finish: %w", err)
	}
	lg.Info("test event published successfully")
	return nil
}

func init() {
	publishEventCmd.Flags().StringVar(&eventData, "data", "test message", "message for non-permit event types")
	publishEventCmd.Flags().StringVar(&eventPermitID, "permit-id", "", "permit id carried by permit events")
	publishEventCmd.Flags().StringVar(&eventActorID, "actor-id", "", "actor id carried by permit events")

	eventCmd.AddCommand(publishEventCmd)
}

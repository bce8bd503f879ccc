package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/frahmantamala/work-permit/internal/broker"
	"github.com/frahmantamala/work-permit/pkg/logger"
	"github.com/spf13/cobra"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Start background consumers",
	Long:  `Start consumers that read permit lifecycle events from the configured broker.`,
}

var eventWorkerCmd = &cobra.Command{
	Use:   "events",
	Short: "Consume permit events from the broker",
	Long:  `Subscribe to the configured RabbitMQ exchange or NATS subject and log every permit event received.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return startEventWorker(cmd.Context())
	},
}

var workerTypes []string

func startEventWorker(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	cfg, err := loadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	lg := logger.LoggerWrapper().With("component", "event-worker")

	queue, err := broker.Open(cfg.Broker, lg)
	if err != nil {
		return fmt.Errorf("failed to open broker: %w", err)
	}
	if queue == nil {
		return errors.New("no broker configured; set broker.kind to rabbitmq or nats")
	}
	defer queue.Close()

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	lg.Info("event worker running, press Ctrl+C to stop", "broker", queue.Name(), "types", workerTypes)
	err = broker.Consume(ctx, queue, lg, logEnvelope(lg, workerTypes))
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	lg.Info("event worker stopped")
	return nil
}

// logEnvelope logs envelopes whose type is in types, or all of them when
// types is empty.
func logEnvelope(lg *slog.Logger, types []string) func(context.Context, broker.Envelope) error {
	wanted := make(map[string]struct{}, len(types))
	for _, t := range types {
		wanted[t] = struct{}{}
	}
	return func(_ context.Context, env broker.Envelope) error {
		if len(wanted) > 0 {
			if _, ok := wanted[env.Type]; !ok {
				return nil
			}
		}
		lg.Info("received event",
			"event_id", env.ID,
			"event_type", env.Type,
			"occurred_at", env.OccurredAt,
			"payload", env.Data)
		return nil
	}
}

func init() {
	eventWorkerCmd.Flags().StringSliceVar(&workerTypes, "types", nil, "only log these event types")
	workerCmd.AddCommand(eventWorkerCmd)
}

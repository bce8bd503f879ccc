package broker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"
)

// ErrBrokerUnavailable is returned while the breaker is open.
var ErrBrokerUnavailable = errors.New("broker temporarily unavailable")

type BreakerSettings struct {
	MaxRequests uint32
	Interval    time.Duration
	Timeout     time.Duration
	// MinRequests and FailureRatio decide when the breaker trips.
	MinRequests  uint32
	FailureRatio float64
}

func DefaultBreakerSettings() BreakerSettings {
	return BreakerSettings{
		MaxRequests:  3,
		Interval:     time.Minute,
		Timeout:      30 * time.Second,
		MinRequests:  3,
		FailureRatio: 0.6,
	}
}

// BreakerQueue guards Publish with a circuit breaker so a dead broker does
// not stall the bus handlers. Subscribe passes straight through.
type BreakerQueue struct {
	MessageQueue
	cb *gobreaker.CircuitBreaker
}

func NewBreakerQueue(inner MessageQueue, s BreakerSettings, lg *slog.Logger) *BreakerQueue {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        inner.Name(),
		MaxRequests: s.MaxRequests,
		Interval:    s.Interval,
		Timeout:     s.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < s.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= s.FailureRatio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			lg.Warn("broker circuit breaker state changed",
				"broker", name, "from", from.String(), "to", to.String())
		},
	})
	return &BreakerQueue{MessageQueue: inner, cb: cb}
}

func (b *BreakerQueue) Publish(ctx context.Context, data []byte) error {
	_, err := b.cb.Execute(func() (interface{}, error) {
		return nil, b.MessageQueue.Publish(ctx, data)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return ErrBrokerUnavailable
	}
	return err
}

func (b *BreakerQueue) State() gobreaker.State {
	return b.cb.State()
}

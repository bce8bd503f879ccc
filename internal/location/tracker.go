package location

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/frahmantamala/work-permit/pkg/logger"
	"github.com/google/uuid"
)

// DefaultMinInterval matches the browser geolocation maximumAge the web
// client used.
const DefaultMinInterval = 30 * time.Second

type Position struct {
	Latitude  float64
	Longitude float64
	Address   string
	At        time.Time
}

// Label is the address, or the coordinates when no address was resolved.
func (p Position) Label() string {
	if p.Address != "" {
		return p.Address
	}
	return fmt.Sprintf("%.6f, %.6f", p.Latitude, p.Longitude)
}

type Reporter interface {
	Report(ctx context.Context, pos Position) error
}

type WatchStats struct {
	Reported int64
	Skipped  int64
	Failed   int64
}

// Watch is the handle returned by Tracker.Start. It must be handed back to
// Tracker.Stop to end the subscription.
type Watch struct {
	id     string
	cancel context.CancelFunc
	done   chan struct{}

	reported atomic.Int64
	skipped  atomic.Int64
	failed   atomic.Int64
}

func (w *Watch) ID() string { return w.id }

// Done is closed once the watch goroutine has exited.
func (w *Watch) Done() <-chan struct{} { return w.done }

func (w *Watch) Stats() WatchStats {
	return WatchStats{
		Reported: w.reported.Load(),
		Skipped:  w.skipped.Load(),
		Failed:   w.failed.Load(),
	}
}

type Tracker struct {
	reporter    Reporter
	minInterval time.Duration
	logger      *slog.Logger

	mu      sync.Mutex
	watches map[string]*Watch
}

func NewTracker(reporter Reporter, minInterval time.Duration, lg *slog.Logger) *Tracker {
	if lg == nil {
		lg = logger.LoggerWrapper()
	}
	if minInterval < 0 {
		minInterval = 0
	}
	return &Tracker{
		reporter:    reporter,
		minInterval: minInterval,
		logger:      lg,
		watches:     make(map[string]*Watch),
	}
}

// Start reports positions until ctx is cancelled, positions is closed or the
// watch is stopped. Positions arriving within minInterval of the last
// successful report are skipped.
func (t *Tracker) Start(ctx context.Context, positions <-chan Position) *Watch {
	ctx, cancel := context.WithCancel(ctx)
	w := &Watch{
		id:     uuid.NewString(),
		cancel: cancel,
		done:   make(chan struct{}),
	}

	t.mu.Lock()
	t.watches[w.id] = w
	t.mu.Unlock()

	t.logger.Info("location watch started", "watch_id", w.id, "min_interval", t.minInterval)

	go func() {
		defer close(w.done)
		defer t.forget(w)
		t.run(ctx, w, positions)
	}()

	return w
}

func (t *Tracker) run(ctx context.Context, w *Watch, positions <-chan Position) {
	var last time.Time
	for {
		select {
		case <-ctx.Done():
			return
		case pos, ok := <-positions:
			if !ok {
				t.logger.Info("location source closed", "watch_id", w.id)
				return
			}
			if pos.At.IsZero() {
				pos.At = time.Now().UTC()
			}
			if !last.IsZero() && pos.At.Sub(last) < t.minInterval {
				w.skipped.Add(1)
				continue
			}
			pos.Address = pos.Label()

			if err := t.reporter.Report(ctx, pos); err != nil {
				if ctx.Err() != nil {
					return
				}
				w.failed.Add(1)
				t.logger.Warn("location report failed", "watch_id", w.id, "error", err)
				continue
			}
			last = pos.At
			w.reported.Add(1)
			t.logger.Debug("location reported", "watch_id", w.id,
				"latitude", pos.Latitude, "longitude", pos.Longitude)
		}
	}
}

// Stop cancels the watch and waits for it to exit. Stopping an already
// finished watch is a no-op.
func (t *Tracker) Stop(w *Watch) {
	if w == nil {
		return
	}
	w.cancel()
	<-w.done
	t.logger.Info("location watch stopped", "watch_id", w.id,
		"reported", w.reported.Load(), "skipped", w.skipped.Load(), "failed", w.failed.Load())
}

func (t *Tracker) StopAll() {
	t.mu.Lock()
	active := make([]*Watch, 0, len(t.watches))
	for _, w := range t.watches {
		active = append(active, w)
	}
	t.mu.Unlock()

	for _, w := range active {
		t.Stop(w)
	}
}

func (t *Tracker) Active() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.watches)
}

func (t *Tracker) forget(w *Watch) {
	t.mu.Lock()
	delete(t.watches, w.id)
	t.mu.Unlock()
}

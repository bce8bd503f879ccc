package location_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/frahmantamala/work-permit/internal/location"
	"github.com/frahmantamala/work-permit/pkg/logger"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type recordingReporter struct {
	mu       sync.Mutex
	reports  []location.Position
	failNext int
}

func (r *recordingReporter) Report(_ context.Context, pos location.Position) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failNext > 0 {
		r.failNext--
		return errors.New("server unavailable")
	}
	r.reports = append(r.reports, pos)
	return nil
}

func (r *recordingReporter) snapshot() []location.Position {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]location.Position(nil), r.reports...)
}

var _ = Describe("Tracker", func() {
	var (
		reporter *recordingReporter
		tracker  *location.Tracker
		base     time.Time
	)

	BeforeEach(func() {
		reporter = &recordingReporter{}
		tracker = location.NewTracker(reporter, 30*time.Second, logger.Discard())
		base = time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	})

	It("throttles positions inside the minimum interval", func() {
		positions := make(chan location.Position, 4)
		positions <- location.Position{Latitude: 1, Longitude: 1, At: base}
		positions <- location.Position{Latitude: 2, Longitude: 2, At: base.Add(10 * time.Second)}
		positions <- location.Position{Latitude: 3, Longitude: 3, At: base.Add(31 * time.Second)}
		close(positions)

		w := tracker.Start(context.Background(), positions)
		Eventually(w.Done()).Should(BeClosed())

		reports := reporter.snapshot()
		Expect(reports).To(HaveLen(2))
		Expect(reports[1].Latitude).To(Equal(3.0))
		Expect(w.Stats()).To(Equal(location.WatchStats{Reported: 2, Skipped: 1}))
		Expect(tracker.Active()).To(Equal(0))
	})

	It("fills a missing address with the coordinates", func() {
		positions := make(chan location.Position, 1)
		positions <- location.Position{Latitude: -6.2, Longitude: 106.816666, At: base}
		close(positions)

		w := tracker.Start(context.Background(), positions)
		Eventually(w.Done()).Should(BeClosed())
		Expect(reporter.snapshot()[0].Address).To(Equal("-6.200000, 106.816666"))
	})

	It("does not advance the throttle window after a failed report", func() {
		reporter.failNext = 1
		positions := make(chan location.Position, 2)
		positions <- location.Position{Latitude: 1, Longitude: 1, At: base}
		positions <- location.Position{Latitude: 1, Longitude: 1, At: base.Add(time.Second)}
		close(positions)

		w := tracker.Start(context.Background(), positions)
		Eventually(w.Done()).Should(BeClosed())
		Expect(w.Stats()).To(Equal(location.WatchStats{Reported: 1, Failed: 1}))
	})

	It("stops only the watch it is given", func() {
		first := tracker.Start(context.Background(), make(chan location.Position))
		second := tracker.Start(context.Background(), make(chan location.Position))
		Expect(tracker.Active()).To(Equal(2))

		tracker.Stop(first)
		Expect(first.Done()).To(BeClosed())
		Consistently(second.Done()).ShouldNot(BeClosed())
		Eventually(tracker.Active).Should(Equal(1))

		tracker.Stop(first)
		tracker.StopAll()
		Expect(second.Done()).To(BeClosed())
		Eventually(tracker.Active).Should(Equal(0))
	})

	It("ends when the parent context is cancelled", func() {
		ctx, cancel := context.WithCancel(context.Background())
		w := tracker.Start(ctx, make(chan location.Position))
		cancel()
		Eventually(w.Done()).Should(BeClosed())
	})
})

var _ = Describe("Position sources", func() {
	It("parses lines with and without addresses", func() {
		input := strings.NewReader("# header\n-6.2,106.8\n\nnot,a,number\n1.5, 2.5, Plant 3, Bay 2\n")
		var got []location.Position
		for p := range location.LineSource(context.Background(), input, logger.Discard()) {
			got = append(got, p)
		}
		Expect(got).To(HaveLen(2))
		Expect(got[0].Latitude).To(Equal(-6.2))
		Expect(got[0].Address).To(BeEmpty())
		Expect(got[1].Address).To(Equal("Plant 3, Bay 2"))
		Expect(got[1].At).NotTo(BeZero())
	})

	It("rejects out of range coordinates", func() {
		_, err := location.ParsePosition("95,0")
		Expect(err).To(HaveOccurred())
		_, err = location.ParsePosition("12")
		Expect(err).To(HaveOccurred())
	})

	It("repeats a fixed position until cancelled", func() {
		ctx, cancel := context.WithCancel(context.Background())
		src := location.FixedSource(ctx, location.Position{Latitude: 1, Longitude: 2}, 5*time.Millisecond)
		Eventually(src).Should(Receive())
		Eventually(src).Should(Receive())
		cancel()
		Eventually(src).Should(BeClosed())
	})
})

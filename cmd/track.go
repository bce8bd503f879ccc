package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/frahmantamala/work-permit/internal/location"
	"github.com/frahmantamala/work-permit/pkg/logger"
	"github.com/spf13/cobra"
)

const trackTokenEnv = "WORK_PERMIT_TOKEN"

var trackOpts struct {
	apiURL      string
	token       string
	lat         float64
	lon         float64
	address     string
	interval    time.Duration
	minInterval time.Duration
	stdin       bool
	share       bool
}

var trackCmd = &cobra.Command{
	Use:   "track",
	Short: "Report this device's position to the API",
	Long: `Continuously report a position for the logged-in worker.
Positions come from --lat/--lon repeated every --interval, or from stdin
lines of "lat,lon[,address]" with --stdin. Reports closer together than
--min-interval are skipped.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		return runTracker(ctx)
	},
}

func runTracker(parent context.Context) error {
	logger.Init(os.Getenv("APP_ENV"))
	lg := logger.LoggerWrapper().With("component", "tracker")

	token := trackOpts.token
	if token == "" {
		token = os.Getenv(trackTokenEnv)
	}
	if token == "" {
		return fmt.Errorf("an access token is required: pass --token or set %s", trackTokenEnv)
	}

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := location.NewClient(location.ClientConfig{
		BaseURL: trackOpts.apiURL,
		Token:   token,
		Timeout: 10 * time.Second,
	}, lg)

	if trackOpts.share {
		enabled, err := client.SetSharing(ctx, true)
		if err != nil {
			return fmt.Errorf("enable location sharing: %w", err)
		}
		lg.Info("location sharing updated", "enabled", enabled)
	}

	var positions <-chan location.Position
	if trackOpts.stdin {
		positions = location.LineSource(ctx, os.Stdin, lg)
	} else {
		if trackOpts.interval <= 0 {
			return errors.New("--interval must be positive")
		}
		if trackOpts.lat < -90 || trackOpts.lat > 90 || trackOpts.lon < -180 || trackOpts.lon > 180 {
			return fmt.Errorf("coordinates out of range: %g, %g", trackOpts.lat, trackOpts.lon)
		}
		positions = location.FixedSource(ctx, location.Position{
			Latitude:  trackOpts.lat,
			Longitude: trackOpts.lon,
			Address:   trackOpts.address,
		}, trackOpts.interval)
	}

	tracker := location.NewTracker(client, trackOpts.minInterval, lg)
	watch := tracker.Start(ctx, positions)
	lg.Info("tracking started", "watch_id", watch.ID(), "api_url", trackOpts.apiURL)

	select {
	case <-ctx.Done():
	case <-watch.Done():
	}
	tracker.Stop(watch)

	stats := watch.Stats()
	lg.Info("tracking stopped", "reported", stats.Reported, "skipped", stats.Skipped, "failed", stats.Failed)
	if stats.Reported == 0 && stats.Failed > 0 {
		return errors.New("no position could be reported")
	}
	return nil
}

func init() {
	f := trackCmd.Flags()
	f.StringVar(&trackOpts.apiURL, "api-url", "http://localhost:8080/api/v1", "API base URL")
	f.StringVar(&trackOpts.token, "token", "", "access token (defaults to $"+trackTokenEnv+")")
	f.Float64Var(&trackOpts.lat, "lat", 0, "latitude for fixed reporting")
	f.Float64Var(&trackOpts.lon, "lon", 0, "longitude for fixed reporting")
	f.StringVar(&trackOpts.address, "address", "", "address for fixed reporting")
	f.DurationVar(&trackOpts.interval, "interval", time.Minute, "how often the fixed position is emitted")
	f.DurationVar(&trackOpts.minInterval, "min-interval", location.DefaultMinInterval, "minimum time between reports")
	f.BoolVar(&trackOpts.stdin, "stdin", false, "read positions from stdin")
	f.BoolVar(&trackOpts.share, "share", false, "enable location sharing before tracking")
}

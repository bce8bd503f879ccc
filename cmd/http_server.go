package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/frahmantamala/work-permit/internal"
	"github.com/frahmantamala/work-permit/internal/admin"
	"github.com/frahmantamala/work-permit/internal/auth"
	"github.com/frahmantamala/work-permit/internal/broker"
	"github.com/frahmantamala/work-permit/internal/core/events"
	"github.com/frahmantamala/work-permit/internal/location"
	"github.com/frahmantamala/work-permit/internal/permit"
	"github.com/frahmantamala/work-permit/internal/transport/rest"
	"github.com/frahmantamala/work-permit/internal/user"
	"github.com/frahmantamala/work-permit/pkg/logger"
	"github.com/go-chi/chi"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 30 * time.Second

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle API requests`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return startHTTPServer(cmd.Context())
	},
}

type Dependencies struct {
	Config  *internal.Config
	Storage *storage
	Redis   *redis.Client
	Bus     *events.EventBus
	Queue   broker.MessageQueue
	Router  *chi.Mux
	Logger  *slog.Logger
}

func startHTTPServer(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	deps, err := initializeDependencies(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize dependencies: %w", err)
	}
	lg := deps.Logger

	addr := fmt.Sprintf(":%d", deps.Config.Server.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           deps.Router,
		ReadHeaderTimeout: deps.Config.Server.ReadHeaderTimeout,
		ReadTimeout:       deps.Config.Server.ReadTimeout,
		WriteTimeout:      deps.Config.Server.WriteTimeout,
		IdleTimeout:       deps.Config.Server.IdleTimeout,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	serverErrChan := make(chan error, 1)
	go func() {
		lg.Info("starting HTTP server", "address", addr, "driver", deps.Config.Database.Driver)
		serverErrChan <- server.ListenAndServe()
	}()

	var runErr error
	select {
	case sig := <-sigChan:
		lg.Info("received signal, shutting down", "signal", sig.String())
	case err := <-serverErrChan:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			runErr = fmt.Errorf("server failed: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		lg.Error("server shutdown error", "error", err)
	}
	deps.close(shutdownCtx)

	lg.Info("server stopped")
	return runErr
}

func initializeDependencies(ctx context.Context) (*Dependencies, error) {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	lg := logger.LoggerWrapper()

	store, err := openStorage(ctx, cfg.Database, lg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	deps := &Dependencies{Config: cfg, Storage: store, Logger: lg}
	checks := append([]rest.HealthCheck{}, store.Checks...)

	if cfg.Redis.Enabled {
		deps.Redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		rdb := deps.Redis
		checks = append(checks, rest.HealthCheck{
			Name: "redis",
			Ping: func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
		})
	}

	deps.Bus = events.NewEventBus(lg)
	queue, err := broker.Open(cfg.Broker, lg)
	if err != nil {
		// The API stays up without a broker; events remain in-process.
		lg.Warn("broker unavailable, events stay in-process", "kind", cfg.Broker.Kind, "error", err)
	} else if queue != nil {
		deps.Queue = broker.NewBreakerQueue(queue, broker.DefaultBreakerSettings(), lg)
		broker.NewBridge(deps.Queue, lg).Register(deps.Bus)
	}

	hasher := auth.NewBcryptHasher(cfg.Security.BCryptCost)
	tokens := auth.NewJWTTokenGenerator(
		cfg.Security.JWTAccessSecret,
		cfg.Security.JWTRefreshSecret,
		cfg.Security.AccessTokenDuration,
		cfg.Security.RefreshTokenDuration,
	)
	defaultAddress := cfg.Location.AddressOrDefault()

	handlers := rest.Handlers{
		Auth:     auth.NewHandler(auth.NewService(store.Users, tokens, hasher, lg), lg),
		Gate:     auth.NewRoleGate(lg),
		User:     user.NewHandler(user.NewService(store.Users, lg), lg),
		Permit:   permit.NewHandler(permit.NewService(store.Permits, store.Users, deps.Bus, defaultAddress, lg), lg),
		Admin:    admin.NewHandler(admin.NewService(store.Users, hasher, lg), lg),
		Location: location.NewHandler(location.NewService(store.Users, defaultAddress, lg), lg),
	}

	opts := rest.Options{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		OpenAPIPath:    cfg.Server.OpenAPIPath,
		MetricsEnabled: cfg.Observability.Metrics.Enabled,
		MetricsPath:    cfg.Observability.Metrics.Path,
		RateLimit:      cfg.RateLimit,
	}
	if deps.Redis != nil {
		opts.Redis = deps.Redis
	}

	deps.Router = chi.NewRouter()
	rest.RegisterAllRoutes(deps.Router, handlers, checks, opts, lg)
	return deps, nil
}

// close releases everything in reverse order of acquisition.
func (d *Dependencies) close(ctx context.Context) {
	if err := d.Bus.Drain(ctx); err != nil {
		d.Logger.Warn("event bus drain incomplete", "error", err)
	}
	if d.Queue != nil {
		if err := d.Queue.Close(); err != nil {
			d.Logger.Error("broker close error", "error", err)
		}
	}
	if d.Redis != nil {
		if err := d.Redis.Close(); err != nil {
			d.Logger.Error("redis close error", "error", err)
		}
	}
	if err := d.Storage.Close(ctx); err != nil {
		d.Logger.Error("database close error", "error", err)
	}
}

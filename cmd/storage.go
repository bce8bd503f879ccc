package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/frahmantamala/work-permit/internal"
	"github.com/frahmantamala/work-permit/internal/permit"
	permitMongo "github.com/frahmantamala/work-permit/internal/permit/mongo"
	permitPostgres "github.com/frahmantamala/work-permit/internal/permit/postgres"
	"github.com/frahmantamala/work-permit/internal/transport/rest"
	"github.com/frahmantamala/work-permit/internal/user"
	userMongo "github.com/frahmantamala/work-permit/internal/user/mongo"
	userPostgres "github.com/frahmantamala/work-permit/internal/user/postgres"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	mgo "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// storage bundles the repositories for whichever driver is configured.
type storage struct {
	Users   user.RepositoryAPI
	Permits permit.RepositoryAPI
	Checks  []rest.HealthCheck
	close   func(ctx context.Context) error
}

func (s *storage) Close(ctx context.Context) error {
	if s.close == nil {
		return nil
	}
	return s.close(ctx)
}

func openStorage(ctx context.Context, cfg internal.DatabaseConfig, lg *slog.Logger) (*storage, error) {
	switch cfg.Driver {
	case internal.DriverMongo:
		return openMongo(ctx, cfg, lg)
	default:
		return openPostgres(cfg, lg)
	}
}

// initDB opens the pgx pool through sqlx so gorm and goose share one driver.
func initDB(cfg internal.DatabaseConfig) (*sqlx.DB, error) {
	const driver = "pgx"

	dbConn, err := sqlx.Connect(driver, cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	dbConn.SetMaxIdleConns(cfg.MaxIdleConns)
	dbConn.SetMaxOpenConns(cfg.MaxOpenConns)
	dbConn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	dbConn.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := dbConn.Ping(); err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return dbConn, nil
}

func openPostgres(cfg internal.DatabaseConfig, lg *slog.Logger) (*storage, error) {
	sqlxDB, err := initDB(cfg)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlxDB.DB}), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Warn),
		TranslateError: true,
	})
	if err != nil {
		_ = sqlxDB.Close()
		return nil, fmt.Errorf("failed to open gorm: %w", err)
	}

	lg.Info("connected to postgres", "max_open_conns", cfg.MaxOpenConns)
	return &storage{
		Users:   userPostgres.NewUserRepository(db),
		Permits: permitPostgres.NewPermitRepository(db),
		Checks: []rest.HealthCheck{{
			Name: "database",
			Ping: sqlxDB.PingContext,
		}},
		close: func(context.Context) error { return sqlxDB.Close() },
	}, nil
}

func openMongo(ctx context.Context, cfg internal.DatabaseConfig, lg *slog.Logger) (*storage, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	opts := options.Client().ApplyURI(cfg.MongoURI)
	if cfg.MaxOpenConns > 0 {
		opts.SetMaxPoolSize(uint64(cfg.MaxOpenConns))
	}
	client, err := mgo.Connect(connectCtx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}

	db := client.Database(cfg.MongoDatabase)
	users := userMongo.NewUserRepository(db)
	permits := permitMongo.NewPermitRepository(db)
	if err := users.EnsureIndexes(connectCtx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to create user indexes: %w", err)
	}
	if err := permits.EnsureIndexes(connectCtx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to create permit indexes: %w", err)
	}

	lg.Info("connected to mongo", "database", cfg.MongoDatabase)
	return &storage{
		Users:   users,
		Permits: permits,
		Checks: []rest.HealthCheck{{
			Name: "database",
			Ping: func(ctx context.Context) error { return client.Ping(ctx, nil) },
		}},
		close: client.Disconnect,
	}, nil
}

package internal

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"

	BrokerNone     = "none"
	BrokerRabbitMQ = "rabbitmq"
	BrokerNATS     = "nats"

	DefaultAddressPlaceholder = "Unknown location"
)

type Config struct {
	Server        ServerConfig        `mapstructure:"http_server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Security      SecurityConfig      `mapstructure:"security"`
	Redis         RedisConfig         `mapstructure:"redis"`
	RateLimit     RateLimitConfig     `mapstructure:"rate_limit"`
	Broker        BrokerConfig        `mapstructure:"broker"`
	Observability ObservabilityConfig `mapstructure:"observability"`
	Location      LocationConfig      `mapstructure:"location"`
}

type ServerConfig struct {
	Env               string        `mapstructure:"env"`
	Port              int           `mapstructure:"port"`
	BaseURL           string        `mapstructure:"base_url"`
	AllowedOrigins    string        `mapstructure:"allowed_origins"`
	OpenAPIPath       string        `mapstructure:"openapi_path"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout"`
}

type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`
	Source          string        `mapstructure:"source"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	MongoURI        string        `mapstructure:"mongo_uri"`
	MongoDatabase   string        `mapstructure:"mongo_database"`
}

type SecurityConfig struct {
	JWTAccessSecret      string        `mapstructure:"jwt_access_secret"`
	JWTRefreshSecret     string        `mapstructure:"jwt_refresh_secret"`
	AccessTokenDuration  time.Duration `mapstructure:"access_token_duration"`
	RefreshTokenDuration time.Duration `mapstructure:"refresh_token_duration"`
	BCryptCost           int           `mapstructure:"bcrypt_cost"`
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type RateLimitConfig struct {
	Enabled  bool    `mapstructure:"enabled"`
	Rate     float64 `mapstructure:"rate"`
	Capacity int     `mapstructure:"capacity"`
}

type BrokerConfig struct {
	Kind        string `mapstructure:"kind"`
	RabbitMQURL string `mapstructure:"rabbitmq_url"`
	Exchange    string `mapstructure:"exchange"`
	NATSURL     string `mapstructure:"nats_url"`
	Subject     string `mapstructure:"subject"`
}

type ObservabilityConfig struct {
	Metrics MetricsConfig `mapstructure:"metrics"`
	Logging LoggingConfig `mapstructure:"logging"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type LocationConfig struct {
	DefaultAddress string `mapstructure:"default_address"`
}

// LoadConfigFromEnv builds the config for container deployments, where no
// config.yml is mounted.
func LoadConfigFromEnv() *Config {
	return &Config{
		Server: ServerConfig{
			Env:               getEnv("APP_ENV", "production"),
			Port:              getEnvAsInt("PORT", 8080),
			BaseURL:           getEnv("BASE_URL", ""),
			AllowedOrigins:    getEnv("ALLOWED_ORIGINS", "*"),
			OpenAPIPath:       getEnv("OPENAPI_PATH", "./api/openapi.yml"),
			ReadHeaderTimeout: getEnvAsDuration("READ_HEADER_TIMEOUT", 5*time.Second),
			ReadTimeout:       getEnvAsDuration("READ_TIMEOUT", 15*time.Second),
			IdleTimeout:       getEnvAsDuration("IDLE_TIMEOUT", 60*time.Second),
			WriteTimeout:      getEnvAsDuration("WRITE_TIMEOUT", 15*time.Second),
		},
		Database: DatabaseConfig{
			Driver:          getEnv("DB_DRIVER", DriverPostgres),
			Source:          getEnv("DATABASE_URL", ""),
			MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
			ConnMaxIdleTime: getEnvAsDuration("DB_CONN_MAX_IDLE_TIME", 5*time.Minute),
			MongoURI:        getEnv("MONGO_URI", ""),
			MongoDatabase:   getEnv("MONGO_DATABASE", "work_permit"),
		},
		Security: SecurityConfig{
			JWTAccessSecret:      getEnv("JWT_ACCESS_SECRET", ""),
			JWTRefreshSecret:     getEnv("JWT_REFRESH_SECRET", ""),
			AccessTokenDuration:  getEnvAsDuration("ACCESS_TOKEN_DURATION", 15*time.Minute),
			RefreshTokenDuration: getEnvAsDuration("REFRESH_TOKEN_DURATION", 7*24*time.Hour),
			BCryptCost:           getEnvAsInt("BCRYPT_COST", 10),
		},
		Redis: RedisConfig{
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		RateLimit: RateLimitConfig{
			Enabled:  getEnvAsBool("RATE_LIMIT_ENABLED", false),
			Rate:     getEnvAsFloat("RATE_LIMIT_RATE", 1),
			Capacity: getEnvAsInt("RATE_LIMIT_CAPACITY", 10),
		},
		Broker: BrokerConfig{
			Kind:        getEnv("BROKER_KIND", BrokerNone),
			RabbitMQURL: getEnv("RABBITMQ_URL", ""),
			Exchange:    getEnv("BROKER_EXCHANGE", "permit.events"),
			NATSURL:     getEnv("NATS_URL", ""),
			Subject:     getEnv("BROKER_SUBJECT", "permit.events"),
		},
		Observability: ObservabilityConfig{
			Metrics: MetricsConfig{
				Enabled: getEnvAsBool("METRICS_ENABLED", true),
				Path:    getEnv("METRICS_PATH", "/metrics"),
			},
			Logging: LoggingConfig{
				Level:  getEnv("LOG_LEVEL", "info"),
				Format: getEnv("LOG_FORMAT", "json"),
			},
		},
		Location: LocationConfig{
			DefaultAddress: getEnv("LOCATION_DEFAULT_ADDRESS", DefaultAddressPlaceholder),
		},
	}
}

// ----------------- HELPERS -----------------

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsFloat(key string, defaultVal float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvAsBool(key string, defaultVal bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultVal
}

// ----------------- VALIDATION -----------------

func (c *Config) Validate() error {
	var errs []string

	if err := c.Server.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("server config: %v", err))
	}

	if err := c.Database.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("database config: %v", err))
	}

	if err := c.Security.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("security config: %v", err))
	}

	if err := c.Broker.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("broker config: %v", err))
	}

	if c.RateLimit.Enabled && (c.RateLimit.Rate <= 0 || c.RateLimit.Capacity <= 0) {
		errs = append(errs, "rate_limit config: rate and capacity must be positive")
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}

	return nil
}

func (c *ServerConfig) Validate() error {
	if c.AllowedOrigins != "" {
		origins := strings.Split(c.AllowedOrigins, ",")
		for _, origin := range origins {
			origin = strings.TrimSpace(origin)
			if origin == "*" {
				continue
			}
			if _, err := url.Parse(origin); err != nil {
				return fmt.Errorf("invalid allowed origin %s: %w", origin, err)
			}
		}
	}
	if c.ReadTimeout < c.ReadHeaderTimeout {
		return errors.New("read_timeout must be >= read_header_timeout")
	}
	return nil
}

func (c *DatabaseConfig) Validate() error {
	switch c.Driver {
	case DriverPostgres:
		if c.Source == "" {
			return errors.New("source is required for the postgres driver")
		}
		if c.MaxIdleConns > c.MaxOpenConns {
			return errors.New("max_idle_conns cannot be greater than max_open_conns")
		}
	case DriverMongo:
		if c.MongoURI == "" {
			return errors.New("mongo_uri is required for the mongo driver")
		}
		if c.MongoDatabase == "" {
			return errors.New("mongo_database is required for the mongo driver")
		}
	default:
		return fmt.Errorf("unsupported driver %q", c.Driver)
	}
	return nil
}

func (c *DatabaseConfig) GetDSN() string {
	return c.Source
}

func (c *SecurityConfig) Validate() error {
	if len(c.JWTAccessSecret) < 16 {
		return errors.New("jwt_access_secret must be at least 16 characters")
	}
	if len(c.JWTRefreshSecret) < 16 {
		return errors.New("jwt_refresh_secret must be at least 16 characters")
	}
	if c.JWTAccessSecret == c.JWTRefreshSecret {
		return errors.New("access and refresh secrets must differ")
	}
	if c.AccessTokenDuration <= 0 || c.RefreshTokenDuration <= 0 {
		return errors.New("token durations must be positive")
	}
	if c.BCryptCost < 4 || c.BCryptCost > 31 {
		return errors.New("bcrypt_cost must be between 4 and 31")
	}
	return nil
}

func (c *BrokerConfig) Validate() error {
	switch c.Kind {
	case "", BrokerNone:
		return nil
	case BrokerRabbitMQ:
		if c.RabbitMQURL == "" || c.Exchange == "" {
			return errors.New("rabbitmq_url and exchange are required for rabbitmq")
		}
	case BrokerNATS:
		if c.NATSURL == "" || c.Subject == "" {
			return errors.New("nats_url and subject are required for nats")
		}
	default:
		return fmt.Errorf("unsupported broker kind %q", c.Kind)
	}
	return nil
}

func (c *LocationConfig) AddressOrDefault() string {
	if strings.TrimSpace(c.DefaultAddress) == "" {
		return DefaultAddressPlaceholder
	}
	return c.DefaultAddress
}

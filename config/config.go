package config

import (
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App               AppConfig
	HTTP              ServerConfig
	GRPC              ServerConfig
	MySQL             MySQLConfig
	Redis             RedisConfig
	Log               LogConfig
	InternalEndpoints InternalEndpointsConfig
	Clover            CloverConfig
	Jobs              JobsConfig
}

type AppConfig struct {
	ServiceName   string
	PublicBaseURL string
}

type ServerConfig struct {
	Host string
	Port string
}

type MySQLConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	URL string
}

type LogConfig struct {
	Level  string
	Format string
}

type InternalEndpointsConfig struct {
	AuthGRPCAddr string
}

type CloverConfig struct {
	SandboxAPIURL     string
	ProductionAPIURL  string
	SandboxAuthURL    string
	ProductionAuthURL string
	DefaultTimeout    time.Duration
	PaymentTimeout    time.Duration
	TokenLifetime     time.Duration
	DeviceLockTTL     time.Duration
}

type JobsConfig struct {
	PendingTimeout        time.Duration
	BatchSize             int32
	ExpirePendingInterval time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	mysqlDSN := os.Getenv("MYSQL_DSN")
	if mysqlDSN == "" {
		return nil, errors.New("MYSQL_DSN environment variable is required")
	}

	return &Config{
		App: AppConfig{
			ServiceName:   getEnv("APP_SERVICE_NAME", "clover-pos-service"),
			PublicBaseURL: getEnv("APP_PUBLIC_BASE_URL", "http://localhost:8080"),
		},
		HTTP: ServerConfig{
			Host: getEnv("HTTP_HOST", "0.0.0.0"),
			Port: getEnv("HTTP_PORT", "8080"),
		},
		GRPC: ServerConfig{
			Host: getEnv("GRPC_HOST", "0.0.0.0"),
			Port: getEnv("GRPC_PORT", "9090"),
		},
		MySQL: MySQLConfig{
			DSN:             mysqlDSN,
			MaxOpenConns:    getIntEnv("MYSQL_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    getIntEnv("MYSQL_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getMinutesEnv("MYSQL_CONN_MAX_LIFETIME_MINUTES", 30*time.Minute),
		},
		Redis: RedisConfig{
			URL: getEnv("REDIS_URL", "redis://localhost:6379/0"),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		InternalEndpoints: InternalEndpointsConfig{
			AuthGRPCAddr: getEnv("AUTH_SERVICE_GRPC_ADDR", "localhost:9090"),
		},
		Clover: CloverConfig{
			SandboxAPIURL:     getEnv("CLOVER_SANDBOX_API_URL", "https://sandbox.dev.clover.com"),
			ProductionAPIURL:  getEnv("CLOVER_PRODUCTION_API_URL", "https://api.clover.com"),
			SandboxAuthURL:    getEnv("CLOVER_SANDBOX_AUTH_URL", "https://sandbox.dev.clover.com"),
			ProductionAuthURL: getEnv("CLOVER_PRODUCTION_AUTH_URL", "https://www.clover.com"),
			DefaultTimeout:    getSecondsEnv("CLOVER_DEFAULT_TIMEOUT_SECONDS", 30*time.Second),
			PaymentTimeout:    getSecondsEnv("CLOVER_PAYMENT_TIMEOUT_SECONDS", 120*time.Second),
			TokenLifetime:     getDaysEnv("CLOVER_TOKEN_LIFETIME_DAYS", 365*24*time.Hour),
			DeviceLockTTL:     getSecondsEnv("CLOVER_DEVICE_LOCK_SECONDS", 150*time.Second),
		},
		Jobs: JobsConfig{
			PendingTimeout:        getMinutesEnv("CLOVER_PENDING_TIMEOUT_MINUTES", 10*time.Minute),
			BatchSize:             int32(getIntEnv("CLOVER_JOB_BATCH_SIZE", 100)),
			ExpirePendingInterval: getMinutesEnv("CLOVER_EXPIRE_PENDING_INTERVAL_MINUTES", 5*time.Minute),
		},
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getMinutesEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if minutes, err := strconv.Atoi(value); err == nil {
			return time.Duration(minutes) * time.Minute
		}
	}
	return defaultValue
}

func getSecondsEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if seconds, err := strconv.Atoi(value); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return defaultValue
}

func getDaysEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if days, err := strconv.Atoi(value); err == nil {
			return time.Duration(days) * 24 * time.Hour
		}
	}
	return defaultValue
}

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Backends de almacenamiento soportados para las filas de tareas.
const (
	BackendREST     = "rest"
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
	BackendMongo    = "mongo"
	BackendFile     = "file"
)

type Config struct {
	StoreBackend  string
	StoreURL      string
	StoreAPIKey   string
	RemoteTimeout time.Duration

	DatabaseURL string
	SQLitePath  string
	MongoURI    string
	MongoDB     string
	TasksFile   string

	RedisAddr string
	CacheTTL  time.Duration

	UseKafka     bool
	KafkaBrokers []string
	KafkaTopic   string

	ClickHouseAddr string
	ClickHouseDB   string

	JWTSecret string
	JWTIssuer string
	HTTPPort  string
	LogLevel  string
}

func LoadConfig() (*Config, error) {
	cfg := &Config{
		StoreBackend:  strings.ToLower(getEnv("STORE_BACKEND", BackendSQLite)),
		StoreURL:      strings.TrimRight(getEnv("STORE_URL", ""), "/"),
		StoreAPIKey:   getEnv("STORE_API_KEY", ""),
		RemoteTimeout: getEnvAsDuration("REMOTE_TIMEOUT", 10*time.Second),

		DatabaseURL: getEnv("DATABASE_URL", ""),
		SQLitePath:  getEnv("SQLITE_PATH", "./hexatodo.db"),
		MongoURI:    getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:     getEnv("MONGO_DB", "hexatodo"),
		TasksFile:   getEnv("TASKS_FILE", "./tasks.json"),

		RedisAddr: getEnv("REDIS_ADDR", ""),
		CacheTTL:  getEnvAsDuration("CACHE_TTL", 5*time.Minute),

		UseKafka:     getEnvAsBool("USE_KAFKA", false),
		KafkaBrokers: splitList(getEnv("KAFKA_BROKERS", "localhost:9092")),
		KafkaTopic:   getEnv("KAFKA_TOPIC", "task-events"),

		ClickHouseAddr: getEnv("CLICKHOUSE_ADDR", ""),
		ClickHouseDB:   getEnv("CLICKHOUSE_DB", "default"),

		JWTSecret: getEnv("JWT_SECRET", ""),
		JWTIssuer: getEnv("JWT_ISSUER", ""),
		HTTPPort:  getEnv("HTTP_PORT", "8080"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.StoreBackend {
	case BackendREST:
		if c.StoreURL == "" || c.StoreAPIKey == "" {
			return fmt.Errorf("config: STORE_URL and STORE_API_KEY are required for the %q backend", BackendREST)
		}
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("config: DATABASE_URL is required for the %q backend", BackendPostgres)
		}
	case BackendSQLite, BackendMongo, BackendFile:
	default:
		return fmt.Errorf("config: unknown STORE_BACKEND %q", c.StoreBackend)
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("config: JWT_SECRET is required")
	}
	if c.UseKafka && len(c.KafkaBrokers) == 0 {
		return fmt.Errorf("config: KAFKA_BROKERS is required when USE_KAFKA is set")
	}
	if c.RemoteTimeout <= 0 {
		return fmt.Errorf("config: REMOTE_TIMEOUT must be positive")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	v, err := strconv.ParseBool(getEnv(key, ""))
	if err != nil {
		return fallback
	}
	return v
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	v, err := time.ParseDuration(getEnv(key, ""))
	if err != nil {
		return fallback
	}
	return v
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds environment-driven configuration.
type Config struct {
	Addr        string
	Storage     string
	DatabaseURL string
	DBTimeout   time.Duration
	LogLevel    string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	CartTTL        time.Duration
	IdempotencyTTL time.Duration
	CheckoutLease  time.Duration

	ProductServiceURL string
	ProductTimeout    time.Duration
	WalletServiceURL  string
	WalletTimeout     time.Duration
	JWTSecret         string

	KafkaBrokers     []string
	OrderEventsTopic string
}

const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

// Load reads configuration from environment variables. Callers load .env
// beforehand when they want file-based overrides.
func Load() Config {
	return Config{
		Addr:        getEnv("PET_SHOP_ADDR", ":8080"),
		Storage:     strings.ToLower(getEnv("STORAGE", StoragePostgres)),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		DBTimeout:   getDuration("DB_TIMEOUT", 3*time.Second),
		LogLevel:    getEnv("LOG_LEVEL", "info"),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       getInt("REDIS_DB", 0),

		CartTTL:        getDuration("CART_TTL", 24*time.Hour),
		IdempotencyTTL: getDuration("CHECKOUT_IDEMPOTENCY_TTL", 24*time.Hour),
		CheckoutLease:  getDuration("CHECKOUT_LEASE", 30*time.Second),

		ProductServiceURL: strings.TrimRight(os.Getenv("PRODUCT_SERVICE_URL"), "/"),
		ProductTimeout:    getDuration("PRODUCT_TIMEOUT", 2*time.Second),
		WalletServiceURL:  strings.TrimRight(os.Getenv("WALLET_SERVICE_URL"), "/"),
		WalletTimeout:     getDuration("WALLET_TIMEOUT", 3*time.Second),
		JWTSecret:         os.Getenv("JWT_SECRET"),

		KafkaBrokers:     splitList(os.Getenv("KAFKA_BROKERS")),
		OrderEventsTopic: getEnv("ORDER_EVENTS_TOPIC", "order-status"),
	}
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v, err := strconv.Atoi(strings.TrimSpace(os.Getenv(key)))
	if err != nil {
		return fallback
	}
	return v
}

func getDuration(key string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(strings.TrimSpace(os.Getenv(key)))
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

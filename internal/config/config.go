package config

import (
	"context"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env   string
	Port  int
	DBURL string

	// Redis backs the record/list cache and the membership filter.
	// CacheBackend "memory" runs everything in-process (dev/tests).
	CacheBackend  string
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	RecordCacheTTL time.Duration
	ListCacheTTL   time.Duration

	FilterCapacity  int64
	FilterErrorRate float64

	JWTSecret           string
	JWTAccessTTLMinutes int
	JWTRefreshTTLDays   int

	AdminEmail    string
	AdminUsername string
	AdminPassword string
	AdminName     string

	AllowedOrigins []string

	RateLimit       int
	RateLimitWindow time.Duration

	OTELEndpoint string
	MaxBodyBytes int64
}

func Load() Config {
	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()

	return Config{
		Env:   getEnv("APP_ENV", "dev"),
		Port:  getEnvInt("PORT", 8080),
		DBURL: buildDBURL(),

		CacheBackend:  getEnv("CACHE_BACKEND", "redis"),
		RedisAddr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		RecordCacheTTL: time.Duration(getEnvInt("RECORD_CACHE_TTL_SECONDS", 3600)) * time.Second,
		ListCacheTTL:   time.Duration(getEnvInt("LIST_CACHE_TTL_SECONDS", 300)) * time.Second,

		FilterCapacity:  int64(getEnvInt("FILTER_CAPACITY", 10000)),
		FilterErrorRate: getEnvFloat("FILTER_ERROR_RATE", 0.01),

		JWTSecret:           getEnv("JWT_SECRET", ""),
		JWTAccessTTLMinutes: getEnvInt("JWT_ACCESS_TTL_MINUTES", 15),
		JWTRefreshTTLDays:   getEnvInt("JWT_REFRESH_TTL_DAYS", 7),

		AdminEmail:    getEnv("ADMIN_EMAIL", ""),
		AdminUsername: getEnv("ADMIN_USERNAME", "admin"),
		AdminPassword: getEnv("ADMIN_PASSWORD", ""),
		AdminName:     getEnv("ADMIN_NAME", "Administrator"),

		AllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000")),

		RateLimit:       getEnvInt("RATE_LIMIT", 60),
		RateLimitWindow: time.Duration(getEnvInt("RATE_LIMIT_WINDOW_SECONDS", 60)) * time.Second,

		OTELEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		MaxBodyBytes: int64(getEnvInt("MAX_BODY_BYTES", 1<<20)),
	}
}

func buildDBURL() string {
	if url := os.Getenv("DATABASE_URL"); url != "" {
		return url
	}

	host := getEnv("DB_HOST", "127.0.0.1")
	port := getEnv("DB_PORT", "5432")
	user := getEnv("DB_USER", "userhub")
	pass := getEnv("DB_PASSWORD", "userhub")
	name := getEnv("DB_NAME", "userhub")
	ssl := getEnv("DB_SSLMODE", "disable")

	return "postgres://" + user + ":" + pass + "@" + host + ":" + port + "/" + name + "?sslmode=" + ssl
}

func WithTimeout(duration time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), duration)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		num, err := strconv.Atoi(v)

		if err != nil {
			return fallback
		}

		return num
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		num, err := strconv.ParseFloat(v, 64)

		if err != nil {
			return fallback
		}

		return num
	}
	return fallback
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))

	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}

	return out
}

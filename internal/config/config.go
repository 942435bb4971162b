package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	APIBaseURL         string
	StatusContract     string // "id" | "name"
	StatusFallback     bool
	HTTPTimeout        time.Duration
	HTTPRetries        int
	HTTPAddr           string // cmd/mockapi listen address
	RedisAddr          string
	SessionBackend     string // "redis" | "memory"
	KafkaBrokers       []string
	ServiceName        string
	CourierAdminRoleID int
	LogLevel           string
}

func Load() Config {
	return Config{
		APIBaseURL:         strings.TrimRight(getenv("API_BASE_URL", "http://localhost:8080/api"), "/"),
		StatusContract:     strings.ToLower(getenv("STATUS_CONTRACT", "id")),
		StatusFallback:     getbool("STATUS_FALLBACK", true),
		HTTPTimeout:        getduration("HTTP_TIMEOUT", 10*time.Second),
		HTTPRetries:        getint("HTTP_RETRIES", 3),
		HTTPAddr:           getenv("HTTP_ADDR", ":8080"),
		RedisAddr:          getenv("REDIS_ADDR", "localhost:6379"),
		SessionBackend:     strings.ToLower(getenv("SESSION_BACKEND", "redis")),
		KafkaBrokers:       splitCSV(getenv("KAFKA_BROKERS", "")),
		ServiceName:        getenv("SERVICE_NAME", "storefront"),
		CourierAdminRoleID: getint("COURIER_ADMIN_ROLE_ID", 2),
		LogLevel:           getenv("LOG_LEVEL", "info"),
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getint(k string, def int) int {
	i, err := strconv.Atoi(os.Getenv(k))
	if err != nil {
		return def
	}
	return i
}

func getbool(k string, def bool) bool {
	b, err := strconv.ParseBool(os.Getenv(k))
	if err != nil {
		return def
	}
	return b
}

func getduration(k string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(os.Getenv(k))
	if err != nil || d <= 0 {
		return def
	}
	return d
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}

package config

import (
	"os"
	"strconv"
	"time"
)

// Config captures process level configuration. Everything comes from the
// environment so main stays lean and deployments stay twelve-factor.
type Config struct {
	Addr        string
	DatabaseURL string
	RedisURL    string

	JWTSecret       string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	JWTIssuer       string

	LoginMaxAttempts int
	LoginWindow      time.Duration
	LoginBlock       time.Duration
}

// FromEnv builds a Config from environment variables with development defaults.
func FromEnv() Config {
	return Config{
		Addr:        getenv("AQUICULTURA_ADDR", ":8000"),
		DatabaseURL: getenv("DATABASE_URL", "postgres://localhost:5432/aquicultura?sslmode=disable"),
		RedisURL:    os.Getenv("REDIS_URL"),

		JWTSecret:       getenv("JWT_SECRET", "dev-secret-change-in-production"),
		AccessTokenTTL:  getenvDuration("JWT_ACCESS_TOKEN_TTL", 30*time.Minute),
		RefreshTokenTTL: getenvDuration("JWT_REFRESH_TOKEN_TTL", 7*24*time.Hour),
		JWTIssuer:       getenv("JWT_ISSUER", "aquicultura"),

		LoginMaxAttempts: getenvInt("RATE_LIMIT_LOGIN_ATTEMPTS", 5),
		LoginWindow:      getenvDuration("RATE_LIMIT_LOGIN_WINDOW", 5*time.Minute),
		LoginBlock:       getenvDuration("RATE_LIMIT_LOGIN_BLOCK", 15*time.Minute),
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

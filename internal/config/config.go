// Package config loads application configuration from environment variables.
package config

import (
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"time"
)

const secretKeySize = 32

// Config holds the application configuration loaded from environment variables.
type Config struct {
	SecretKey       []byte
	JWTSecret       []byte
	JWTIssuer       string
	JWTAudience     string
	ListenAddr      string
	DBPath          string
	ExchangeBaseURL string
	ExchangeTimeout time.Duration
	LogLevel        slog.Level
	CORSOrigin      string
}

// Load reads configuration from environment variables and returns a validated Config.
// Required: MEXCBRIDGE_SECRET_KEY (64 hex chars, the AES-256 master key) and
// MEXCBRIDGE_JWT_SECRET. Optional variables with defaults:
// MEXCBRIDGE_LISTEN_ADDR (127.0.0.1:8080), MEXCBRIDGE_DB_PATH (mexcbridge.db),
// MEXCBRIDGE_EXCHANGE_BASE_URL (https://api.mexc.com),
// MEXCBRIDGE_EXCHANGE_TIMEOUT (10s), MEXCBRIDGE_LOG_LEVEL (info),
// MEXCBRIDGE_CORS_ORIGIN (*), MEXCBRIDGE_JWT_ISSUER and MEXCBRIDGE_JWT_AUDIENCE
// (unchecked when empty).
func Load() (*Config, error) {
	secretKey, err := parseSecretKey(os.Getenv("MEXCBRIDGE_SECRET_KEY"))
	if err != nil {
		return nil, err
	}

	jwtSecret := os.Getenv("MEXCBRIDGE_JWT_SECRET")
	if jwtSecret == "" {
		return nil, fmt.Errorf("MEXCBRIDGE_JWT_SECRET is required")
	}

	exchangeTimeout := 10 * time.Second
	if v, ok := os.LookupEnv("MEXCBRIDGE_EXCHANGE_TIMEOUT"); ok {
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("MEXCBRIDGE_EXCHANGE_TIMEOUT has invalid duration %q: %w", v, err)
		}
		if parsed <= 0 {
			return nil, fmt.Errorf("MEXCBRIDGE_EXCHANGE_TIMEOUT must be positive, got %s", parsed)
		}
		exchangeTimeout = parsed
	}

	exchangeBaseURL := "https://api.mexc.com"
	if v, ok := os.LookupEnv("MEXCBRIDGE_EXCHANGE_BASE_URL"); ok && v != "" {
		u, err := url.Parse(v)
		if err != nil || (u.Scheme != "https" && u.Scheme != "http") || u.Host == "" {
			return nil, fmt.Errorf("MEXCBRIDGE_EXCHANGE_BASE_URL must be an absolute http(s) URL, got %q", v)
		}
		exchangeBaseURL = strings.TrimRight(v, "/")
	}

	logLevel := slog.LevelInfo
	if v, ok := os.LookupEnv("MEXCBRIDGE_LOG_LEVEL"); ok && v != "" {
		if err := logLevel.UnmarshalText([]byte(v)); err != nil {
			return nil, fmt.Errorf("MEXCBRIDGE_LOG_LEVEL has invalid level %q: %w", v, err)
		}
	}

	listenAddr := "127.0.0.1:8080"
	if v, ok := os.LookupEnv("MEXCBRIDGE_LISTEN_ADDR"); ok {
		listenAddr = v
	}

	dbPath := "mexcbridge.db"
	if v, ok := os.LookupEnv("MEXCBRIDGE_DB_PATH"); ok {
		dbPath = v
	}

	corsOrigin := "*"
	if v, ok := os.LookupEnv("MEXCBRIDGE_CORS_ORIGIN"); ok && v != "" {
		corsOrigin = v
	}

	return &Config{
		SecretKey:       secretKey,
		JWTSecret:       []byte(jwtSecret),
		JWTIssuer:       os.Getenv("MEXCBRIDGE_JWT_ISSUER"),
		JWTAudience:     os.Getenv("MEXCBRIDGE_JWT_AUDIENCE"),
		ListenAddr:      listenAddr,
		DBPath:          dbPath,
		ExchangeBaseURL: exchangeBaseURL,
		ExchangeTimeout: exchangeTimeout,
		LogLevel:        logLevel,
		CORSOrigin:      corsOrigin,
	}, nil
}

func parseSecretKey(v string) ([]byte, error) {
	if v == "" {
		return nil, fmt.Errorf("MEXCBRIDGE_SECRET_KEY is required")
	}
	key, err := hex.DecodeString(strings.TrimSpace(v))
	if err != nil {
		return nil, fmt.Errorf("MEXCBRIDGE_SECRET_KEY must be hex-encoded: %w", err)
	}
	if len(key) != secretKeySize {
		return nil, fmt.Errorf("MEXCBRIDGE_SECRET_KEY must decode to %d bytes, got %d", secretKeySize, len(key))
	}
	return key, nil
}

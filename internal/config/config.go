// Package config handles application configuration from environment variables
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Server settings
	Port      string
	Env       string // "development", "staging", "production"
	LogLevel  string
	LogFormat string // "text" or "json"

	// Database
	DatabaseURL string // PostgreSQL connection string (optional, uses in-memory if not set)

	// Blockchain settings
	RPCURL         string
	ChainID        int64
	OperatorKey    string // Hex-encoded operator private key, with or without 0x prefix
	EscrowContract string // JobEscrow contract address

	// Observability
	OTLPEndpoint string // OTLP gRPC endpoint for traces (empty = disabled)

	// Security
	AllowedOrigins []string
	RateLimitRPM   int
	AdminSecret    string
}

// Sepolia defaults
const (
	DefaultRPCURL   = "https://rpc.sepolia.org"
	DefaultChainID  = 11155111 // Sepolia
	DefaultPort     = "8080"
	DefaultEnv      = "development"
	DefaultLogLevel = "info"
	DefaultRPM      = 120
)

// Load reads configuration from environment variables
// It loads .env file if present (for local development)
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not present)
	_ = godotenv.Load()

	cfg := &Config{
		Port:           getEnv("PORT", DefaultPort),
		Env:            getEnv("ENV", DefaultEnv),
		LogLevel:       getEnv("LOG_LEVEL", DefaultLogLevel),
		LogFormat:      getEnv("LOG_FORMAT", "text"),
		DatabaseURL:    os.Getenv("DATABASE_URL"), // Optional, uses in-memory if not set
		RPCURL:         getEnv("RPC_URL", DefaultRPCURL),
		ChainID:        getEnvInt64("CHAIN_ID", DefaultChainID),
		OperatorKey:    os.Getenv("OPERATOR_KEY"),
		EscrowContract: os.Getenv("ESCROW_CONTRACT"),
		OTLPEndpoint:   os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		AllowedOrigins: splitList(os.Getenv("ALLOWED_ORIGINS")),
		RateLimitRPM:   int(getEnvInt64("RATE_LIMIT_RPM", int64(DefaultRPM))),
		AdminSecret:    os.Getenv("ADMIN_SECRET"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that all required configuration is present.
// In development mode the chain settings may be omitted; the server then
// runs against a simulated escrow contract.
func (c *Config) Validate() error {
	if c.IsDevelopment() && c.OperatorKey == "" && c.EscrowContract == "" {
		return nil
	}

	if c.OperatorKey == "" {
		return fmt.Errorf("OPERATOR_KEY is required outside development mode")
	}

	// Allow both with and without 0x prefix
	key := strings.TrimPrefix(c.OperatorKey, "0x")
	if len(key) != 64 {
		return fmt.Errorf("OPERATOR_KEY must be 64 hex characters (with or without 0x prefix)")
	}

	if c.EscrowContract == "" {
		return fmt.Errorf("ESCROW_CONTRACT is required outside development mode")
	}

	if c.RPCURL == "" {
		return fmt.Errorf("RPC_URL is required")
	}

	return nil
}

// ChainEnabled reports whether on-chain escrow settlement is configured.
func (c *Config) ChainEnabled() bool {
	return c.OperatorKey != "" && c.EscrowContract != ""
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.ParseInt(value, 10, 64); err == nil {
			return i
		}
	}
	return defaultValue
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

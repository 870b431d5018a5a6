package observability

import (
	"os"
	"strings"
)

// Config controls logging output for the service.
type Config struct {
	ServiceName string
	Environment string
	Version     string
	LogLevel    string
	LogFormat   string
}

func LoadConfig() Config {
	return Config{
		ServiceName: envOr("APP_SERVICE", "verify"),
		Environment: envOr("ENVIRONMENT", "development"),
		Version:     envOr("APP_VERSION", "0.1.0"),
		LogLevel:    envOr("LOG_LEVEL", "info"),
		LogFormat:   envOr("LOG_FORMAT", "json"),
	}
}

func (c Config) Debug() bool {
	return strings.EqualFold(c.Environment, "development")
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

// Package twelvedata provides a client for the Twelve Data quote API (equities and FX).
package twelvedata

import (
	"os"
	"time"

	"quote_backend/internal/platform/config"
)

const defaultBaseURL = "https://api.twelvedata.com"

// Config holds configuration for the Twelve Data API client.
type Config struct {
	TwelveDataAPIKey string        // API key for authentication
	BaseURL          string        // Base URL for the API
	Timeout          time.Duration // HTTP request timeout (PROVIDER_TIMEOUT)
}

// LoadConfig loads Twelve Data configuration from environment variables.
// A missing API key is not fatal; requests then fail per symbol.
func LoadConfig() Config {
	return Config{
		TwelveDataAPIKey: os.Getenv("TWELVE_DATA_API_KEY"),
		BaseURL:          config.String("TWELVE_DATA_BASE_URL", defaultBaseURL),
		Timeout:          config.Duration("PROVIDER_TIMEOUT", 10*time.Second),
	}
}

// Package coingecko provides a client for the CoinGecko simple price API (crypto).
package coingecko

import (
	"os"
	"time"

	"quote_backend/internal/platform/config"
)

const defaultBaseURL = "https://api.coingecko.com/api/v3"

// Config holds configuration for the CoinGecko client.
type Config struct {
	APIKey  string // demo API key; sent as x-cg-demo-api-key when set
	BaseURL string
	Timeout time.Duration
}

// LoadConfig loads CoinGecko configuration from environment variables.
func LoadConfig() Config {
	return Config{
		APIKey:  os.Getenv("COINGECKO_API_KEY"),
		BaseURL: config.String("COINGECKO_BASE_URL", defaultBaseURL),
		Timeout: config.Duration("PROVIDER_TIMEOUT", 10*time.Second),
	}
}

package coingecko

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quote_backend/internal/shared/failure"
)

func newTestClient(t *testing.T, key string, h http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(h)
	t.Cleanup(server.Close)
	return NewClient(Config{APIKey: key, BaseURL: server.URL}, server.Client())
}

func TestClient_SimplePrice_Success(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, "demo", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/simple/price", r.URL.Path)
		assert.Equal(t, "bitcoin", r.URL.Query().Get("ids"))
		assert.Equal(t, "usd", r.URL.Query().Get("vs_currencies"))
		assert.Equal(t, "demo", r.Header.Get(apiKeyHeader))
		_, _ = w.Write([]byte(`{"bitcoin":{"usd":67012.345678901234}}`))
	})

	p, err := c.SimplePrice(context.Background(), "Bitcoin", "USD")

	require.NoError(t, err)
	// float64 を経由すると桁が落ちる
	assert.Equal(t, "67012.345678901234", p.String())
}

func TestClient_SimplePrice_NoKeyHeader(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, "", func(w http.ResponseWriter, r *http.Request) {
		_, present := r.Header[http.CanonicalHeaderKey(apiKeyHeader)]
		assert.False(t, present)
		_, _ = w.Write([]byte(`{"ethereum":{"brl":17500.5}}`))
	})

	p, err := c.SimplePrice(context.Background(), "ethereum", "brl")

	require.NoError(t, err)
	assert.Equal(t, "17500.5", p.String())
}

func TestClient_SimplePrice_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		status int
		body   string
		is     error
		reason failure.Reason
	}{
		{"unknown id", http.StatusOK, `{}`, failure.ErrUpstreamData, failure.ReasonUnknownSymbol},
		{"missing currency", http.StatusOK, `{"bitcoin":{"eur":1}}`, failure.ErrUpstreamData, failure.ReasonEmpty},
		{"invalid json", http.StatusOK, `<html>`, failure.ErrUpstreamData, failure.ReasonMalformed},
		{"rate limited", http.StatusTooManyRequests, `{"status":{"error_code":429}}`, failure.ErrUpstreamData, failure.ReasonRateLimited},
		{"server error", http.StatusBadGateway, ``, failure.ErrUpstreamData, failure.ReasonUpstreamStatus},
		{"gateway timeout", http.StatusGatewayTimeout, ``, failure.ErrNetwork, failure.ReasonTimeout},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c := newTestClient(t, "", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := c.SimplePrice(context.Background(), "bitcoin", "usd")

			require.Error(t, err)
			assert.ErrorIs(t, err, tt.is)
			assert.Equal(t, tt.reason, failure.ReasonOf(err))
		})
	}
}

func TestClient_SimplePrice_Timeout(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, "", func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	})
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := c.SimplePrice(ctx, "bitcoin", "usd")

	assert.ErrorIs(t, err, failure.ErrNetwork)
	assert.Equal(t, failure.ReasonTimeout, failure.ReasonOf(err))
}

func TestLoadConfig(t *testing.T) {
	t.Setenv("COINGECKO_API_KEY", "")
	t.Setenv("COINGECKO_BASE_URL", "http://localhost:9999")
	t.Setenv("PROVIDER_TIMEOUT", "3s")

	cfg := LoadConfig()

	assert.Empty(t, cfg.APIKey)
	assert.Equal(t, "http://localhost:9999", cfg.BaseURL)
	assert.Equal(t, 3*time.Second, cfg.Timeout)
}

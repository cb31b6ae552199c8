package coingecko

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"

	"quote_backend/internal/feature/market/usecase"
	"quote_backend/internal/platform/externalapi"
	"quote_backend/internal/shared/failure"
)

const (
	providerName = "coingecko"
	apiKeyHeader = "x-cg-demo-api-key"
)

// Client は CoinGecko の /simple/price を呼び出す CryptoSource 実装です。
type Client struct {
	cfg    Config
	client *http.Client
}

var _ usecase.CryptoSource = (*Client)(nil)

// NewClient は Client を生成します。
func NewClient(cfg Config, client *http.Client) *Client {
	return &Client{cfg: cfg, client: client}
}

// Name はプロバイダ名を返します。
func (c *Client) Name() string { return providerName }

// SimplePrice はコインIDと通貨で現在価格を取得します。
// レスポンスは {"bitcoin":{"usd":67000.12}} の形で、ID が無ければ unknown_symbol です。
func (c *Client) SimplePrice(ctx context.Context, id, vsCurrency string) (decimal.Decimal, error) {
	id = strings.ToLower(strings.TrimSpace(id))
	vsCurrency = strings.ToLower(strings.TrimSpace(vsCurrency))

	q := url.Values{}
	q.Set("ids", id)
	q.Set("vs_currencies", vsCurrency)
	u := fmt.Sprintf("%s/simple/price?%s", strings.TrimRight(c.cfg.BaseURL, "/"), q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return decimal.Zero, failure.UpstreamData(failure.ReasonMalformed, "coingecko: build request", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set(apiKeyHeader, c.cfg.APIKey)
	}

	res, err := c.client.Do(req)
	if err != nil {
		return decimal.Zero, externalapi.TransportError(providerName, err)
	}
	defer func() {
		if err := res.Body.Close(); err != nil {
			slog.Warn("failed to close response body", "error", err)
		}
	}()

	if err := externalapi.StatusError(providerName, res.StatusCode); err != nil {
		return decimal.Zero, err
	}

	// 浮動小数点を経由しないよう json.Number で受ける
	var body map[string]map[string]json.Number
	dec := json.NewDecoder(res.Body)
	dec.UseNumber()
	if err := dec.Decode(&body); err != nil {
		return decimal.Zero, externalapi.DecodeError(providerName, err)
	}

	prices, ok := body[id]
	if !ok {
		return decimal.Zero, failure.UpstreamData(failure.ReasonUnknownSymbol, "coingecko: id "+id+" not found", nil)
	}
	raw, ok := prices[vsCurrency]
	if !ok || raw == "" {
		return decimal.Zero, failure.UpstreamData(failure.ReasonEmpty,
			fmt.Sprintf("coingecko: no %s price for %s", vsCurrency, id), nil)
	}

	p, err := decimal.NewFromString(raw.String())
	if err != nil {
		return decimal.Zero, failure.UpstreamData(failure.ReasonMalformed,
			fmt.Sprintf("coingecko: parse price %q", raw), err)
	}
	return p, nil
}


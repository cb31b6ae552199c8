package twelvedata

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
	symbolentity "quote_backend/internal/feature/symbols/domain/entity"
	"quote_backend/internal/platform/externalapi"
	"quote_backend/internal/platform/externalapi/twelvedata/dto"
	"quote_backend/internal/shared/failure"
)

const providerName = "twelvedata"

// micCodes は Yahoo 形式のサフィックスを Twelve Data の mic_code に対応付けます。
var micCodes = map[string]string{
	".SA": "BVMF",
	".T":  "XJPX",
	".L":  "XLON",
	".TO": "XTSE",
}

// Client はTwelve Data外部APIから株式・為替の価格を取得する QuoteSource 実装です。
type Client struct {
	cfg    Config
	client *http.Client
}

// ClientがQuoteSourceを実装していることをコンパイル時に検証します。
var _ usecase.QuoteSource = (*Client)(nil)

// NewClient は指定された設定とHTTPクライアントでClientを生成します。
func NewClient(cfg Config, client *http.Client) *Client {
	return &Client{cfg: cfg, client: client}
}

// Name はプロバイダ名を返します。
func (c *Client) Name() string { return providerName }

// LastPrice は /price から最終取引価格を取得します。
func (c *Client) LastPrice(ctx context.Context, s symbolentity.Symbol) (decimal.Decimal, error) {
	var body dto.PriceResponse
	if err := c.get(ctx, "/price", symbolParams(s), &body); err != nil {
		return decimal.Zero, err
	}
	if err := apiError(body.ErrorFields); err != nil {
		return decimal.Zero, err
	}
	if body.Price == nil || strings.TrimSpace(*body.Price) == "" {
		return decimal.Zero, failure.UpstreamData(failure.ReasonEmpty, "twelvedata: price field missing", nil)
	}
	return parseDecimal("price", *body.Price)
}

// LatestBarClose は /time_series の直近1分足の終値を取得します。
func (c *Client) LatestBarClose(ctx context.Context, s symbolentity.Symbol) (decimal.Decimal, error) {
	q := symbolParams(s)
	q.Set("interval", "1min")
	q.Set("outputsize", "1")

	var body dto.TimeSeriesResponse
	if err := c.get(ctx, "/time_series", q, &body); err != nil {
		return decimal.Zero, err
	}
	if err := apiError(body.ErrorFields); err != nil {
		return decimal.Zero, err
	}
	if len(body.Values) == 0 {
		return decimal.Zero, failure.UpstreamData(failure.ReasonEmpty, "twelvedata: no bars", nil)
	}
	// values は新しい順
	return parseDecimal("close", body.Values[0].Close)
}

func (c *Client) get(ctx context.Context, path string, q url.Values, out any) error {
	q.Set("apikey", c.cfg.TwelveDataAPIKey)
	u := fmt.Sprintf("%s%s?%s", strings.TrimRight(c.cfg.BaseURL, "/"), path, q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return failure.UpstreamData(failure.ReasonMalformed, "twelvedata: build request", err)
	}

	res, err := c.client.Do(req)
	if err != nil {
		return externalapi.TransportError(providerName, err)
	}
	defer func() {
		if err := res.Body.Close(); err != nil {
			slog.Warn("failed to close response body", "error", err)
		}
	}()

	if err := externalapi.StatusError(providerName, res.StatusCode); err != nil {
		return err
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return externalapi.DecodeError(providerName, err)
	}
	return nil
}

// apiError は HTTP 200 で返される status=error を失敗に変換します。
func apiError(e dto.ErrorFields) error {
	if e.Status != "error" {
		return nil
	}
	msg := "twelvedata: " + e.Message
	switch {
	case e.Code == http.StatusTooManyRequests:
		return failure.UpstreamData(failure.ReasonRateLimited, msg, nil)
	case e.Code == http.StatusNotFound, strings.Contains(strings.ToLower(e.Message), "not found"):
		return failure.UpstreamData(failure.ReasonUnknownSymbol, msg, nil)
	default:
		return failure.UpstreamData(failure.ReasonUpstreamStatus, msg, nil)
	}
}

func parseDecimal(field, raw string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, failure.UpstreamData(failure.ReasonMalformed,
			fmt.Sprintf("twelvedata: parse %s %q", field, raw), err)
	}
	return d, nil
}

// symbolParams は銘柄を Twelve Data のクエリに変換します。
// 為替は USDBRL を USD/BRL に、PETR4.SA は symbol=PETR4&mic_code=BVMF にします。
func symbolParams(s symbolentity.Symbol) url.Values {
	q := url.Values{}
	code := s.Code
	switch s.Category {
	case symbolentity.CategoryFX:
		code = strings.TrimSuffix(code, "=X")
		if len(code) == 6 && !strings.Contains(code, "/") {
			code = code[:3] + "/" + code[3:]
		}
	case symbolentity.CategoryEquity:
		if i := strings.LastIndex(code, "."); i > 0 {
			if mic, ok := micCodes[code[i:]]; ok {
				code = code[:i]
				q.Set("mic_code", mic)
			}
		}
	}
	q.Set("symbol", code)
	return q
}

// Package usecase はカテゴリごとの取得処理と振り分けを提供します。
package usecase

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"quote_backend/internal/feature/market/domain/entity"
	symbolentity "quote_backend/internal/feature/symbols/domain/entity"
	"quote_backend/internal/shared/failure"
)

//go:generate mockgen -source=fetcher.go -destination=mock_fetcher_test.go -package=usecase

// Fetcher は1銘柄の価格を取得します。返すエラーは常に *failure.Error です。
type Fetcher interface {
	Fetch(ctx context.Context, s symbolentity.Symbol) (entity.PriceResult, error)
}

// QuoteSource は株式・為替の相場プロバイダです。
// Following Go convention: interfaces are defined by the consumer (usecase), not the provider (adapters).
type QuoteSource interface {
	Name() string
	// LastPrice は最終取引価格を返します。値が無い・数値でない場合は UpstreamData 失敗です。
	LastPrice(ctx context.Context, s symbolentity.Symbol) (decimal.Decimal, error)
	// LatestBarClose は直近1分足の終値を返します。
	LatestBarClose(ctx context.Context, s symbolentity.Symbol) (decimal.Decimal, error)
}

// CryptoSource は暗号資産の価格プロバイダです。
type CryptoSource interface {
	Name() string
	SimplePrice(ctx context.Context, id, vsCurrency string) (decimal.Decimal, error)
}

// tickerFetcher は速報値を優先し、使えない場合に1分足の終値へフォールバックします。
type tickerFetcher struct {
	src QuoteSource
}

var _ Fetcher = (*tickerFetcher)(nil)

// NewTickerFetcher は株式・為替用の Fetcher を生成します。
func NewTickerFetcher(src QuoteSource) Fetcher {
	return &tickerFetcher{src: src}
}

func (f *tickerFetcher) Fetch(ctx context.Context, s symbolentity.Symbol) (entity.PriceResult, error) {
	res := entity.PriceResult{Symbol: s.Code, Currency: s.QuoteCurrency, Provider: f.src.Name()}

	price, err := f.src.LastPrice(ctx, s)
	if err == nil {
		// 0 や負の値は欠損と同じ扱い
		err = checkPositive(price)
	}
	if err == nil {
		res.Price = price
		res.Source = entity.SourceLastPrice
		return res, nil
	}
	if !shouldFallback(err) {
		return entity.PriceResult{}, classify(err)
	}

	bar, barErr := f.src.LatestBarClose(ctx, s)
	if barErr == nil {
		barErr = checkPositive(bar)
	}
	if barErr != nil {
		return entity.PriceResult{}, classify(barErr)
	}
	res.Price = bar
	res.Source = entity.SourceMinuteBar
	return res, nil
}

// shouldFallback は速報値の失敗が「値が使えない」種類かどうかを判定します。
// 通信失敗とレート制限はフォールバックしません。
func shouldFallback(err error) bool {
	fe, ok := failure.As(err)
	if !ok {
		return false
	}
	return fe.Kind == failure.KindUpstreamData && fe.Reason != failure.ReasonRateLimited
}

// cryptoFetcher は暗号資産をコインIDと通貨ペアで取得します。
type cryptoFetcher struct {
	src CryptoSource
}

var _ Fetcher = (*cryptoFetcher)(nil)

// NewCryptoFetcher は暗号資産用の Fetcher を生成します。
func NewCryptoFetcher(src CryptoSource) Fetcher {
	return &cryptoFetcher{src: src}
}

func (f *cryptoFetcher) Fetch(ctx context.Context, s symbolentity.Symbol) (entity.PriceResult, error) {
	vs := s.QuoteCurrency
	if vs == "" {
		vs = "usd"
	}
	price, err := f.src.SimplePrice(ctx, s.Code, vs)
	if err == nil {
		err = checkPositive(price)
	}
	if err != nil {
		return entity.PriceResult{}, classify(err)
	}
	return entity.PriceResult{
		Symbol:   s.Code,
		Price:    price,
		Currency: vs,
		Provider: f.src.Name(),
		Source:   entity.SourceCrypto,
	}, nil
}

func checkPositive(p decimal.Decimal) error {
	if !p.IsPositive() {
		return failure.UpstreamData(failure.ReasonEmpty, "non-positive price "+p.String(), nil)
	}
	return nil
}

// classify は未分類のエラーを分類済みの失敗に変換します。
func classify(err error) error {
	if _, ok := failure.As(err); ok {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return failure.Network(failure.ReasonTimeout, "", err)
	}
	if errors.Is(err, context.Canceled) {
		return failure.Network(failure.ReasonNetwork, "canceled", err)
	}
	return failure.UpstreamData(failure.ReasonMalformed, "", err)
}

// Package di provides dependency injection factories for creating application components.
package di

import (
	marketusecase "quote_backend/internal/feature/market/usecase"
	"quote_backend/internal/platform/externalapi/coingecko"
	"quote_backend/internal/platform/externalapi/twelvedata"
	infrahttp "quote_backend/internal/platform/http"
)

// NewMarket creates the provider router with a configured HTTP client per provider.
// 株式と為替は Twelve Data、暗号資産は CoinGecko から取得します。
func NewMarket() *marketusecase.Router {
	tdCfg := twelvedata.LoadConfig()
	td := twelvedata.NewClient(tdCfg, infrahttp.NewHTTPClient(tdCfg.Timeout))

	cgCfg := coingecko.LoadConfig()
	cg := coingecko.NewClient(cgCfg, infrahttp.NewHTTPClient(cgCfg.Timeout))

	ticker := marketusecase.NewTickerFetcher(td)
	return marketusecase.NewRouter(ticker, ticker, marketusecase.NewCryptoFetcher(cg))
}

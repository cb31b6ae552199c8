package usecase

import (
	"context"
	"fmt"

	"quote_backend/internal/feature/market/domain/entity"
	symbolentity "quote_backend/internal/feature/symbols/domain/entity"
	"quote_backend/internal/shared/failure"
)

// Router はカテゴリに応じて Fetcher を選びます。状態を持たないため並行に呼び出せます。
type Router struct {
	equity Fetcher
	fx     Fetcher
	crypto Fetcher
}

var _ Fetcher = (*Router)(nil)

// NewRouter は Router を生成します。nil の Fetcher を持つカテゴリは unsupported_category になります。
func NewRouter(equity, fx, crypto Fetcher) *Router {
	return &Router{equity: equity, fx: fx, crypto: crypto}
}

// Fetch は銘柄のカテゴリで振り分けて価格を取得します。
func (r *Router) Fetch(ctx context.Context, s symbolentity.Symbol) (entity.PriceResult, error) {
	var f Fetcher
	switch s.Category {
	case symbolentity.CategoryEquity:
		f = r.equity
	case symbolentity.CategoryFX:
		f = r.fx
	case symbolentity.CategoryCrypto:
		f = r.crypto
	}
	if f == nil {
		return entity.PriceResult{}, failure.UpstreamData(failure.ReasonUnsupportedCategory,
			fmt.Sprintf("no provider for category %q", s.Category), nil)
	}

	res, err := f.Fetch(ctx, s)
	if err != nil {
		return entity.PriceResult{}, classify(err)
	}
	return res, nil
}

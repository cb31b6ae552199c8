// Package entity defines the domain models for the quotes feature.
package entity

import (
	"time"

	"github.com/shopspring/decimal"

	symbolentity "quote_backend/internal/feature/symbols/domain/entity"
)

// PriceSample は1銘柄の1時点の価格です。追記のみで更新はしません。
type PriceSample struct {
	ID         uint
	SymbolID   uint
	Price      decimal.Decimal
	CapturedAt time.Time
}

// AppendResult は Append の結果です。
// 同じバケットに既に行がある場合 Inserted は false で、Sample は既存の行です。
type AppendResult struct {
	Sample   PriceSample
	Previous *PriceSample
	Inserted bool
}

// ChangePct は直前のサンプルからの変化率（%）を返します。直前が無いか0なら ok=false です。
func (r AppendResult) ChangePct() (decimal.Decimal, bool) {
	if r.Previous == nil || r.Previous.Price.IsZero() {
		return decimal.Zero, false
	}
	return r.Sample.Price.Sub(r.Previous.Price).Div(r.Previous.Price).Mul(decimal.NewFromInt(100)), true
}

// Quote はダッシュボード向けの銘柄と最新価格の組です。Latest は未取得なら nil です。
type Quote struct {
	Symbol symbolentity.Symbol
	Latest *PriceSample
}

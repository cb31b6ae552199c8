// Package entity defines the domain models for the market feature.
package entity

import "github.com/shopspring/decimal"

// Source はどの取得経路で価格を得たかを表します。
type Source string

const (
	SourceLastPrice Source = "last_price" // 最終取引価格（速報値）
	SourceMinuteBar Source = "minute_bar" // 直近1分足の終値（フォールバック）
	SourceCrypto    Source = "crypto"     // 暗号資産プロバイダ
)

// PriceResult はプロバイダから取得した正規化済みの価格です。
type PriceResult struct {
	Symbol   string
	Price    decimal.Decimal
	Currency string
	Provider string
	Source   Source
}

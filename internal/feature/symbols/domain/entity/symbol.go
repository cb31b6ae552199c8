// Package entity defines the domain models for the symbols feature.
package entity

import (
	"strings"
	"time"
)

// Category は銘柄の種別です。プロバイダの振り分けに使われます。
type Category string

const (
	CategoryEquity Category = "equity"
	CategoryFX     Category = "fx"
	CategoryCrypto Category = "crypto"
)

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	switch c {
	case CategoryEquity, CategoryFX, CategoryCrypto:
		return true
	}
	return false
}

// ParseCategory は大文字小文字を無視してカテゴリを解釈します。
func ParseCategory(s string) (Category, bool) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	return c, c.Valid()
}

// OtherExchange はダッシュボードで取引所未設定の銘柄をまとめるグループ名です。
const OtherExchange = "OTHER"

// Symbol は追跡対象の銘柄です。
// 作成後に変わるのは IsActive のみで、削除はせず無効化します。
type Symbol struct {
	ID            uint      `gorm:"primaryKey"`
	Code          string    `gorm:"size:32;not null;uniqueIndex"`
	Name          string    `gorm:"size:255;not null"`
	Category      Category  `gorm:"size:16;not null;index"`
	Exchange      string    `gorm:"size:32;not null;default:''"`
	QuoteCurrency string    `gorm:"size:8;not null;default:''"`
	IsActive      bool      `gorm:"not null;default:true"`
	CreatedAt     time.Time `gorm:"autoCreateTime"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime"`
}

// Group はダッシュボードの表示グループ（取引所）を返します。
func (s Symbol) Group() string {
	if s.Exchange == "" {
		return OtherExchange
	}
	return s.Exchange
}

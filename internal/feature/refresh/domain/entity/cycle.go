// Package entity defines the refresh cycle record.
package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Trigger はサイクルの起動元です。
type Trigger string

const (
	TriggerTick   Trigger = "tick"
	TriggerManual Trigger = "manual"
	TriggerCLI    Trigger = "cli"
)

// SymbolResult は1銘柄の処理結果です。Failure が空なら成功です。
type SymbolResult struct {
	Symbol   string
	Price    *decimal.Decimal
	Source   string
	Provider string
	// Inserted は新しいサンプルが保存され通知されたかどうかです。
	Inserted bool
	Alert    bool

	FailureKind   string
	FailureReason string
	Error         string
}

// OK reports whether the symbol was fetched and stored.
func (r SymbolResult) OK() bool { return r.Error == "" }

// Cycle は1回のリフレッシュの記録です。保存はせずログとステータスにのみ使います。
type Cycle struct {
	ID         string
	Trigger    Trigger
	StartedAt  time.Time
	FinishedAt time.Time
	Results    []SymbolResult
	// Canceled はシャットダウンにより途中で打ち切られたことを表します。
	Canceled bool
}

// Counts は成功数と失敗数を返します。
func (c Cycle) Counts() (ok, failed int) {
	for _, r := range c.Results {
		if r.OK() {
			ok++
		} else {
			failed++
		}
	}
	return ok, failed
}

// Duration returns the wall time of the cycle.
func (c Cycle) Duration() time.Duration {
	if c.FinishedAt.IsZero() {
		return 0
	}
	return c.FinishedAt.Sub(c.StartedAt)
}

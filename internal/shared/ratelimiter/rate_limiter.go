package ratelimiter

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Limiter は上流APIへの呼び出し頻度を制限するインターフェースです。
type Limiter interface {
	Wait(ctx context.Context) error
}

// Pacer は連続する呼び出しの間に最低 gap の間隔を空けます。
// 複数のワーカーで共有しても合計の呼び出し間隔は保たれます。
type Pacer struct {
	lim *rate.Limiter
}

var _ Limiter = (*Pacer)(nil)

// NewPacer は新しい Pacer を生成します。gap が0以下の場合は待機しません。
func NewPacer(gap time.Duration) *Pacer {
	if gap <= 0 {
		return &Pacer{lim: rate.NewLimiter(rate.Inf, 1)}
	}
	// バースト1: 最初の呼び出しは即時、以降は gap ごとに1回
	return &Pacer{lim: rate.NewLimiter(rate.Every(gap), 1)}
}

// Wait は次の呼び出し枠まで待機します。
// 待機中に ctx がキャンセルされた場合はエラーを返し、予約した枠は返却されます。
func (p *Pacer) Wait(ctx context.Context) error {
	return p.lim.Wait(ctx)
}

// Package usecase はリフレッシュサイクルとスケジューラを実装します。
package usecase

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	marketusecase "quote_backend/internal/feature/market/usecase"
	quoteentity "quote_backend/internal/feature/quotes/domain/entity"
	"quote_backend/internal/feature/refresh/domain/entity"
	symbolentity "quote_backend/internal/feature/symbols/domain/entity"
	"quote_backend/internal/platform/pubsub"
	"quote_backend/internal/shared/failure"
	"quote_backend/internal/shared/ratelimiter"
)

// SymbolSource は毎サイクル読み直される有効銘柄の一覧です。
// Following Go convention: interfaces are defined by the consumer (usecase), not the provider.
type SymbolSource interface {
	ActiveSymbols(ctx context.Context) ([]symbolentity.Symbol, error)
}

// QuoteRecorder は価格を保存します。戻った時点でコミット済みです。
type QuoteRecorder interface {
	Record(ctx context.Context, s symbolentity.Symbol, price decimal.Decimal) (quoteentity.AppendResult, error)
}

// Options configures a CycleUsecase.
type Options struct {
	// Workers > 1 で銘柄を並列に処理します。
	Workers int
	// AlertThresholdPct は変化率アラートの閾値（%）です。0以下で無効です。
	AlertThresholdPct float64
	// Pacer は銘柄ごとの取得の前に呼ばれます。nil なら待機しません。
	Pacer ratelimiter.Limiter
}

// CycleUsecase runs one refresh cycle: fetch, store, then publish, per active symbol.
// 1銘柄の失敗はサイクルを止めません。
type CycleUsecase struct {
	symbols SymbolSource
	fetcher marketusecase.Fetcher
	store   QuoteRecorder
	bus     pubsub.Publisher
	pacer   ratelimiter.Limiter
	workers int
	alert   decimal.Decimal

	locks *keyedMutex
	now   func() time.Time
	newID func() string
}

// NewCycleUsecase creates a CycleUsecase.
func NewCycleUsecase(symbols SymbolSource, fetcher marketusecase.Fetcher, store QuoteRecorder, bus pubsub.Publisher, opts Options) *CycleUsecase {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	return &CycleUsecase{
		symbols: symbols,
		fetcher: fetcher,
		store:   store,
		bus:     bus,
		pacer:   opts.Pacer,
		workers: opts.Workers,
		alert:   decimal.NewFromFloat(opts.AlertThresholdPct),
		locks:   newKeyedMutex(),
		now:     time.Now,
		newID:   uuid.NewString,
	}
}

// RunCycle processes every active symbol once.
// ctx のキャンセルは銘柄の間でのみ確認し、処理中の銘柄は最後まで実行します。
// 返すエラーは銘柄一覧を読めなかった場合のみです。
func (u *CycleUsecase) RunCycle(ctx context.Context, trigger entity.Trigger) (entity.Cycle, error) {
	cycle := entity.Cycle{ID: u.newID(), Trigger: trigger, StartedAt: u.now().UTC()}
	log := slog.With("cycle_id", cycle.ID, "trigger", trigger)

	symbols, err := u.symbols.ActiveSymbols(ctx)
	if err != nil {
		cycle.FinishedAt = u.now().UTC()
		log.Error("failed to load active symbols", "error", err)
		if _, ok := failure.As(err); !ok {
			err = failure.Storage(failure.ReasonWrite, "load active symbols", err)
		}
		return cycle, err
	}
	log.Info("refresh cycle started", "symbols", len(symbols), "workers", u.workers)

	results := make([]entity.SymbolResult, len(symbols))
	done := make([]bool, len(symbols))
	if u.workers == 1 {
		for i, s := range symbols {
			if !u.wait(ctx) {
				break
			}
			results[i] = u.processSymbol(context.WithoutCancel(ctx), log, s)
			done[i] = true
		}
	} else {
		var g errgroup.Group
		g.SetLimit(u.workers)
		for i, s := range symbols {
			if ctx.Err() != nil {
				break
			}
			i, s := i, s
			g.Go(func() error {
				if !u.wait(ctx) {
					return nil
				}
				results[i] = u.processSymbol(context.WithoutCancel(ctx), log, s)
				done[i] = true
				return nil
			})
		}
		_ = g.Wait()
	}

	for i, ok := range done {
		if ok {
			cycle.Results = append(cycle.Results, results[i])
		} else {
			cycle.Canceled = true
		}
	}
	cycle.FinishedAt = u.now().UTC()

	okCount, failed := cycle.Counts()
	log.Info("refresh cycle finished",
		"ok", okCount, "failed", failed, "canceled", cycle.Canceled,
		"duration", cycle.Duration())
	return cycle, nil
}

// wait paces the next fetch and reports whether the cycle may continue.
func (u *CycleUsecase) wait(ctx context.Context) bool {
	if ctx.Err() != nil {
		return false
	}
	if u.pacer == nil {
		return true
	}
	return u.pacer.Wait(ctx) == nil
}

// processSymbol は取得、保存、通知を行います。失敗は結果に記録して返します。
func (u *CycleUsecase) processSymbol(ctx context.Context, log *slog.Logger, s symbolentity.Symbol) entity.SymbolResult {
	res := entity.SymbolResult{Symbol: s.Code}

	price, err := u.fetcher.Fetch(ctx, s)
	if err != nil {
		return u.fail(log, res, "fetch failed", err)
	}
	res.Price = &price.Price
	res.Source = string(price.Source)
	res.Provider = price.Provider

	// 同じ銘柄の保存と通知の順序を揃える
	unlock := u.locks.Lock(s.Code)
	defer unlock()

	ar, err := u.store.Record(ctx, s, price.Price)
	if err != nil {
		if _, ok := failure.As(err); !ok {
			err = failure.Storage(failure.ReasonWrite, "record sample", err)
		}
		return u.fail(log, res, "store failed", err)
	}
	if !ar.Inserted {
		log.Debug("sample already stored for this bucket", "symbol", s.Code, "captured_at", ar.Sample.CapturedAt)
		return res
	}
	res.Inserted = true

	u.publish(ctx, log, pubsub.Event{
		Topic:     pubsub.TopicPriceUpdate,
		Symbol:    s.Code,
		Price:     ar.Sample.Price,
		Timestamp: ar.Sample.CapturedAt,
	})

	if pct, ok := ar.ChangePct(); ok && u.alert.IsPositive() && pct.Abs().GreaterThanOrEqual(u.alert) {
		res.Alert = true
		pct = pct.Round(4)
		log.Warn("price alert",
			"symbol", s.Code,
			"previous", ar.Previous.Price.String(),
			"price", ar.Sample.Price.String(),
			"change_pct", pct.String())
		prev := ar.Previous.Price
		u.publish(ctx, log, pubsub.Event{
			Topic:     pubsub.TopicPriceAlert,
			Symbol:    s.Code,
			Price:     ar.Sample.Price,
			Timestamp: ar.Sample.CapturedAt,
			Previous:  &prev,
			ChangePct: &pct,
		})
	}

	log.Debug("symbol refreshed", "symbol", s.Code, "price", ar.Sample.Price.String(), "source", res.Source)
	return res
}

func (u *CycleUsecase) publish(ctx context.Context, log *slog.Logger, ev pubsub.Event) {
	if u.bus == nil {
		return
	}
	if err := u.bus.Publish(ctx, ev); err != nil {
		log.Warn("failed to publish event", "symbol", ev.Symbol, "topic", ev.Topic, "error", err)
	}
}

func (u *CycleUsecase) fail(log *slog.Logger, res entity.SymbolResult, msg string, err error) entity.SymbolResult {
	res.Error = err.Error()
	kind := "unknown"
	if fe, ok := failure.As(err); ok {
		kind = fe.Kind.String()
	}
	reason := string(failure.ReasonOf(err))
	res.FailureKind, res.FailureReason = kind, reason
	log.Warn(msg, "symbol", res.Symbol, "kind", kind, "reason", reason, "error", err)
	return res
}

// keyedMutex serializes work per symbol code.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	mu   sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*keyLock)}
}

// Lock locks key and returns its unlock function.
func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &keyLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}

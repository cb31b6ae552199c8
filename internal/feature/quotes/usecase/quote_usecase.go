// Package usecase は価格サンプルの保存と参照を実装します。
package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"quote_backend/internal/feature/quotes/domain/entity"
	symbolentity "quote_backend/internal/feature/symbols/domain/entity"
	symbolusecase "quote_backend/internal/feature/symbols/usecase"
)

const (
	// DefaultHistoryWindow は from/to 未指定時の履歴の範囲です。
	DefaultHistoryWindow = 24 * time.Hour
	// MaxHistoryWindow は1回で取得できる履歴の最大範囲です。
	MaxHistoryWindow = 31 * 24 * time.Hour
)

// SampleRepository abstracts the append-only price sample store.
// Interfaces are defined by the consumer (usecase), not the provider (adapters).
type SampleRepository interface {
	// Append はトランザクション内で銘柄の存在確認、直前サンプルの取得、順序検証、挿入を行います。
	Append(ctx context.Context, symbolID uint, price decimal.Decimal, capturedAt time.Time) (entity.AppendResult, error)
	Latest(ctx context.Context, symbolID uint) (entity.PriceSample, bool, error)
	// LatestAll はサンプルを持つ銘柄のみ結果に含めます。
	LatestAll(ctx context.Context, symbolIDs []uint) (map[uint]entity.PriceSample, error)
	History(ctx context.Context, symbolID uint, from, to time.Time) ([]entity.PriceSample, error)
}

// SymbolReader は銘柄レジストリの読み取り側です。
type SymbolReader interface {
	ActiveSymbols(ctx context.Context) ([]symbolentity.Symbol, error)
	Get(ctx context.Context, code string) (symbolentity.Symbol, error)
}

// QuoteUsecase は価格の記録と参照を提供します。
type QuoteUsecase struct {
	repo    SampleRepository
	symbols SymbolReader
	bucket  time.Duration
	now     func() time.Time
}

// NewQuoteUsecase creates a QuoteUsecase. bucket <= 0 defaults to one second.
func NewQuoteUsecase(repo SampleRepository, symbols SymbolReader, bucket time.Duration) *QuoteUsecase {
	if bucket <= 0 {
		bucket = time.Second
	}
	return &QuoteUsecase{repo: repo, symbols: symbols, bucket: bucket, now: time.Now}
}

// Record は取得時刻をエンジンの時計で決め、バケットに丸めて追記します。
// 同じバケットへの2回目の追記は何もせず Inserted=false を返します。
func (u *QuoteUsecase) Record(ctx context.Context, s symbolentity.Symbol, price decimal.Decimal) (entity.AppendResult, error) {
	capturedAt := u.now().UTC().Truncate(u.bucket)
	return u.repo.Append(ctx, s.ID, price, capturedAt)
}

// Latest はコードで指定した銘柄の最新価格を返します。
func (u *QuoteUsecase) Latest(ctx context.Context, code string) (entity.Quote, error) {
	s, err := u.lookup(ctx, code)
	if err != nil {
		return entity.Quote{}, err
	}
	q := entity.Quote{Symbol: s}
	sample, ok, err := u.repo.Latest(ctx, s.ID)
	if err != nil {
		return entity.Quote{}, err
	}
	if ok {
		q.Latest = &sample
	}
	return q, nil
}

// LatestAll は有効な全銘柄の最新価格を返します。未取得の銘柄は Latest が nil です。
func (u *QuoteUsecase) LatestAll(ctx context.Context) ([]entity.Quote, error) {
	symbols, err := u.symbols.ActiveSymbols(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]uint, 0, len(symbols))
	for _, s := range symbols {
		ids = append(ids, s.ID)
	}
	latest, err := u.repo.LatestAll(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]entity.Quote, 0, len(symbols))
	for _, s := range symbols {
		q := entity.Quote{Symbol: s}
		if sample, ok := latest[s.ID]; ok {
			q.Latest = &sample
		}
		out = append(out, q)
	}
	return out, nil
}

// History は [from, to] の履歴を古い順に返します。
// ゼロ値の to は現在時刻、ゼロ値の from は to の24時間前として扱います。
func (u *QuoteUsecase) History(ctx context.Context, code string, from, to time.Time) ([]entity.PriceSample, error) {
	if to.IsZero() {
		to = u.now().UTC()
	}
	if from.IsZero() {
		from = to.Add(-DefaultHistoryWindow)
	}
	if from.After(to) {
		return nil, ErrInvalidRange
	}
	if to.Sub(from) > MaxHistoryWindow {
		return nil, fmt.Errorf("%w (%s)", ErrRangeTooLarge, MaxHistoryWindow)
	}

	s, err := u.lookup(ctx, code)
	if err != nil {
		return nil, err
	}
	return u.repo.History(ctx, s.ID, from, to)
}

func (u *QuoteUsecase) lookup(ctx context.Context, code string) (symbolentity.Symbol, error) {
	s, err := u.symbols.Get(ctx, code)
	if errors.Is(err, symbolusecase.ErrSymbolNotFound) {
		return symbolentity.Symbol{}, ErrSymbolNotFound
	}
	return s, err
}

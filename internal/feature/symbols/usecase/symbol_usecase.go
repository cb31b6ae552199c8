package usecase

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"quote_backend/internal/feature/symbols/domain/entity"
)

// SymbolRepository abstracts the persistence layer for tracked symbols.
// Interfaces are defined by the consumer (usecase), not the provider (adapters).
type SymbolRepository interface {
	// ListActive は取引所、コードの順に並べた有効な銘柄を返します。
	ListActive(ctx context.Context) ([]entity.Symbol, error)
	ListAll(ctx context.Context) ([]entity.Symbol, error)
	FindByCode(ctx context.Context, code string) (entity.Symbol, error)
	Create(ctx context.Context, s *entity.Symbol) error
	// CreateIfAbsent は同じコードが無い場合のみ作成し、作成したかどうかを返します。
	CreateIfAbsent(ctx context.Context, s *entity.Symbol) (bool, error)
	SetActive(ctx context.Context, code string, active bool) (entity.Symbol, error)
}

// SymbolUsecase は銘柄レジストリです。
// ActiveSymbols はサイクルごとに呼ばれ、cacheTTL が0なら毎回リポジトリを読みます。
// このユースケース経由の変更はキャッシュを即座に無効化します。
type SymbolUsecase struct {
	repo     SymbolRepository
	cacheTTL time.Duration
	now      func() time.Time

	mu       sync.Mutex
	cached   []entity.Symbol
	cachedAt time.Time
	gen      uint64
}

// NewSymbolUsecase creates a SymbolUsecase. cacheTTL <= 0 disables caching.
func NewSymbolUsecase(r SymbolRepository, cacheTTL time.Duration) *SymbolUsecase {
	return &SymbolUsecase{repo: r, cacheTTL: cacheTTL, now: time.Now}
}

// ActiveSymbols は有効な銘柄を取引所、コードの順で返します。
func (u *SymbolUsecase) ActiveSymbols(ctx context.Context) ([]entity.Symbol, error) {
	if u.cacheTTL <= 0 {
		return u.repo.ListActive(ctx)
	}

	u.mu.Lock()
	if u.cached != nil && u.now().Sub(u.cachedAt) < u.cacheTTL {
		out := append([]entity.Symbol(nil), u.cached...)
		u.mu.Unlock()
		return out, nil
	}
	gen := u.gen
	u.mu.Unlock()

	symbols, err := u.repo.ListActive(ctx)
	if err != nil {
		return nil, err
	}

	u.mu.Lock()
	// 読み込み中に変更があった場合はキャッシュしない
	if gen == u.gen {
		u.cached = append([]entity.Symbol(nil), symbols...)
		u.cachedAt = u.now()
	}
	u.mu.Unlock()
	return symbols, nil
}

// ListActiveSymbols is the handler-facing alias of ActiveSymbols.
func (u *SymbolUsecase) ListActiveSymbols(ctx context.Context) ([]entity.Symbol, error) {
	return u.ActiveSymbols(ctx)
}

// ListAll は無効化済みも含むすべての銘柄を返します。
func (u *SymbolUsecase) ListAll(ctx context.Context) ([]entity.Symbol, error) {
	return u.repo.ListAll(ctx)
}

// Get はコードで銘柄を取得します。
func (u *SymbolUsecase) Get(ctx context.Context, code string) (entity.Symbol, error) {
	return u.repo.FindByCode(ctx, code)
}

// Register は新しい銘柄を登録します。
func (u *SymbolUsecase) Register(ctx context.Context, s entity.Symbol) (entity.Symbol, error) {
	n, err := Normalize(s)
	if err != nil {
		return entity.Symbol{}, err
	}
	if err := u.repo.Create(ctx, &n); err != nil {
		return entity.Symbol{}, err
	}
	u.invalidate()
	slog.Info("symbol registered", "symbol", n.Code, "category", n.Category, "exchange", n.Exchange)
	return n, nil
}

// Deactivate は銘柄を無効化します。履歴は保持され、次のサイクルから対象外になります。
func (u *SymbolUsecase) Deactivate(ctx context.Context, code string) (entity.Symbol, error) {
	return u.setActive(ctx, code, false)
}

// Activate は無効化された銘柄を再度有効にします。
func (u *SymbolUsecase) Activate(ctx context.Context, code string) (entity.Symbol, error) {
	return u.setActive(ctx, code, true)
}

func (u *SymbolUsecase) setActive(ctx context.Context, code string, active bool) (entity.Symbol, error) {
	s, err := u.repo.SetActive(ctx, code, active)
	if err != nil {
		return entity.Symbol{}, err
	}
	u.invalidate()
	slog.Info("symbol active flag changed", "symbol", s.Code, "active", active)
	return s, nil
}

// Seed は銘柄をまとめて登録します。既存のコードはそのまま残るため何度呼んでも安全です。
// 作成した件数を返します。
func (u *SymbolUsecase) Seed(ctx context.Context, symbols []entity.Symbol) (int, error) {
	created := 0
	var errs []error
	for _, s := range symbols {
		n, err := Normalize(s)
		if err != nil {
			slog.Warn("skip invalid seed symbol", "symbol", s.Code, "error", err)
			continue
		}
		ok, err := u.repo.CreateIfAbsent(ctx, &n)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if ok {
			created++
		}
	}
	if created > 0 {
		u.invalidate()
	}
	slog.Info("symbols seeded", "requested", len(symbols), "created", created)
	return created, errors.Join(errs...)
}

func (u *SymbolUsecase) invalidate() {
	u.mu.Lock()
	u.cached = nil
	u.gen++
	u.mu.Unlock()
}

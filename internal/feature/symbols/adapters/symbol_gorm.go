// Package adapters はsymbolsフィーチャーのリポジトリ実装を提供します。
package adapters

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"quote_backend/internal/feature/symbols/domain/entity"
	"quote_backend/internal/feature/symbols/usecase"
	"quote_backend/internal/platform/db"
)

// symbolGorm はSymbolRepositoryインターフェースのgorm実装です（sqlite / postgres）。
type symbolGorm struct {
	db *gorm.DB
}

var _ usecase.SymbolRepository = (*symbolGorm)(nil)

// NewSymbolRepository は指定されたDB接続でリポジトリを生成します。
func NewSymbolRepository(db *gorm.DB) *symbolGorm {
	return &symbolGorm{db: db}
}

// ListActive は取引所、コードの順にすべての有効な銘柄を返します。
func (r *symbolGorm) ListActive(ctx context.Context) ([]entity.Symbol, error) {
	var symbols []entity.Symbol
	if err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("exchange ASC").
		Order("code ASC").
		Find(&symbols).Error; err != nil {
		return nil, err
	}
	return symbols, nil
}

// ListAll は無効化済みを含むすべての銘柄を返します。
func (r *symbolGorm) ListAll(ctx context.Context) ([]entity.Symbol, error) {
	var symbols []entity.Symbol
	if err := r.db.WithContext(ctx).
		Order("exchange ASC").
		Order("code ASC").
		Find(&symbols).Error; err != nil {
		return nil, err
	}
	return symbols, nil
}

// FindByCode はコードで銘柄を1件取得します。
func (r *symbolGorm) FindByCode(ctx context.Context, code string) (entity.Symbol, error) {
	var s entity.Symbol
	err := r.db.WithContext(ctx).Where("code = ?", code).Take(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return entity.Symbol{}, usecase.ErrSymbolNotFound
	}
	if err != nil {
		return entity.Symbol{}, err
	}
	return s, nil
}

// Create は銘柄を作成します。コードが重複する場合は ErrSymbolAlreadyExists を返します。
func (r *symbolGorm) Create(ctx context.Context, s *entity.Symbol) error {
	if err := r.db.WithContext(ctx).Create(s).Error; err != nil {
		if db.IsUniqueViolation(err) {
			return usecase.ErrSymbolAlreadyExists
		}
		return err
	}
	return nil
}

// CreateIfAbsent は同じコードが無い場合のみ作成します。既存の行は変更しません。
func (r *symbolGorm) CreateIfAbsent(ctx context.Context, s *entity.Symbol) (bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "code"}}, DoNothing: true}).
		Create(s)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// SetActive は is_active を更新し、更新後の銘柄を返します。
func (r *symbolGorm) SetActive(ctx context.Context, code string, active bool) (entity.Symbol, error) {
	res := r.db.WithContext(ctx).
		Model(&entity.Symbol{}).
		Where("code = ?", code).
		Update("is_active", active)
	if res.Error != nil {
		return entity.Symbol{}, res.Error
	}
	if res.RowsAffected == 0 {
		return entity.Symbol{}, usecase.ErrSymbolNotFound
	}
	return r.FindByCode(ctx, code)
}

package adapters

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"quote_backend/internal/feature/symbols/domain/entity"
	"quote_backend/internal/feature/symbols/usecase"
)

// setupTestDB はテスト用のインメモリSQLiteデータベースを準備します。
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err, "failed to initialize test database")

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&entity.Symbol{}), "failed to migrate table")
	return db
}

// seedSymbol はテスト用の銘柄データをデータベースに作成します。
func seedSymbol(t *testing.T, db *gorm.DB, code, exchange string, cat entity.Category, isActive bool) *entity.Symbol {
	t.Helper()

	s := &entity.Symbol{Code: code, Name: code, Category: cat, Exchange: exchange, IsActive: true}
	require.NoError(t, db.Create(s).Error, "failed to seed symbol")

	// default:true のため false は作成後に更新する
	if !isActive {
		require.NoError(t, db.Model(s).Update("is_active", false).Error)
	}
	return s
}

func codesOf(symbols []entity.Symbol) []string {
	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		out = append(out, s.Code)
	}
	return out
}

// TestSymbolGorm_ListActive は有効な銘柄のみが取引所、コードの順で返ることを検証します。
func TestSymbolGorm_ListActive(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		setupFunc func(t *testing.T, db *gorm.DB)
		wantCodes []string
	}{
		{
			name: "ordered by exchange then code",
			setupFunc: func(t *testing.T, db *gorm.DB) {
				seedSymbol(t, db, "VALE3.SA", "B3", entity.CategoryEquity, true)
				seedSymbol(t, db, "MSFT", "US", entity.CategoryEquity, true)
				seedSymbol(t, db, "bitcoin", "CRYPTO", entity.CategoryCrypto, true)
				seedSymbol(t, db, "PETR4.SA", "B3", entity.CategoryEquity, true)
				seedSymbol(t, db, "AAPL", "US", entity.CategoryEquity, true)
			},
			wantCodes: []string{"PETR4.SA", "VALE3.SA", "bitcoin", "AAPL", "MSFT"},
		},
		{
			name: "inactive symbols excluded",
			setupFunc: func(t *testing.T, db *gorm.DB) {
				seedSymbol(t, db, "AAPL", "US", entity.CategoryEquity, true)
				seedSymbol(t, db, "GOOGL", "US", entity.CategoryEquity, false)
			},
			wantCodes: []string{"AAPL"},
		},
		{
			name:      "empty table",
			setupFunc: func(t *testing.T, db *gorm.DB) {},
			wantCodes: []string{},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			db := setupTestDB(t)
			tt.setupFunc(t, db)
			repo := NewSymbolRepository(db)

			got, err := repo.ListActive(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.wantCodes, codesOf(got))
		})
	}
}

func TestSymbolGorm_ListAll(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	seedSymbol(t, db, "AAPL", "US", entity.CategoryEquity, true)
	seedSymbol(t, db, "GOOGL", "US", entity.CategoryEquity, false)
	repo := NewSymbolRepository(db)

	got, err := repo.ListAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"AAPL", "GOOGL"}, codesOf(got))
	assert.False(t, got[1].IsActive)
}

func TestSymbolGorm_FindByCode(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	seedSymbol(t, db, "bitcoin", "CRYPTO", entity.CategoryCrypto, true)
	repo := NewSymbolRepository(db)

	s, err := repo.FindByCode(context.Background(), "bitcoin")
	require.NoError(t, err)
	assert.Equal(t, entity.CategoryCrypto, s.Category)

	_, err = repo.FindByCode(context.Background(), "dogecoin")
	assert.ErrorIs(t, err, usecase.ErrSymbolNotFound)
}

// TestSymbolGorm_Create_Duplicate はコード重複時に ErrSymbolAlreadyExists を返すことを検証します。
func TestSymbolGorm_Create_Duplicate(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	repo := NewSymbolRepository(db)
	ctx := context.Background()

	s := &entity.Symbol{Code: "AAPL", Name: "Apple", Category: entity.CategoryEquity, Exchange: "US", IsActive: true}
	require.NoError(t, repo.Create(ctx, s))
	assert.NotZero(t, s.ID)

	err := repo.Create(ctx, &entity.Symbol{Code: "AAPL", Name: "Apple again", Category: entity.CategoryEquity, IsActive: true})
	assert.ErrorIs(t, err, usecase.ErrSymbolAlreadyExists)
}

// TestSymbolGorm_CreateIfAbsent は既存コードを変更せずに作成をスキップすることを検証します。
func TestSymbolGorm_CreateIfAbsent(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	repo := NewSymbolRepository(db)
	ctx := context.Background()

	created, err := repo.CreateIfAbsent(ctx, &entity.Symbol{Code: "AAPL", Name: "Apple", Category: entity.CategoryEquity, IsActive: true})
	require.NoError(t, err)
	assert.True(t, created)

	created, err = repo.CreateIfAbsent(ctx, &entity.Symbol{Code: "AAPL", Name: "Renamed", Category: entity.CategoryEquity, IsActive: true})
	require.NoError(t, err)
	assert.False(t, created)

	s, err := repo.FindByCode(ctx, "AAPL")
	require.NoError(t, err)
	assert.Equal(t, "Apple", s.Name)
}

func TestSymbolGorm_SetActive(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	seedSymbol(t, db, "AAPL", "US", entity.CategoryEquity, true)
	repo := NewSymbolRepository(db)
	ctx := context.Background()

	s, err := repo.SetActive(ctx, "AAPL", false)
	require.NoError(t, err)
	assert.False(t, s.IsActive)

	active, err := repo.ListActive(ctx)
	require.NoError(t, err)
	assert.Empty(t, active)

	s, err = repo.SetActive(ctx, "AAPL", true)
	require.NoError(t, err)
	assert.True(t, s.IsActive)

	_, err = repo.SetActive(ctx, "NOPE", false)
	assert.ErrorIs(t, err, usecase.ErrSymbolNotFound)
}

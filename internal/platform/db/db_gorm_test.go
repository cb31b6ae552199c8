package db

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"quote_backend/internal/shared/failure"
)

// TestParseURL はDATABASE_URLからドライバとDSNが正しく導出されることを検証します。
func TestParseURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		raw        string
		wantDriver string
		wantDSN    string
		wantErr    bool
	}{
		{"sqlite file", "sqlite://quotes.db", DriverSQLite, "quotes.db?_busy_timeout=5000", false},
		{"sqlite keeps explicit params", "sqlite://data/q.db?_journal_mode=WAL", DriverSQLite, "data/q.db?_journal_mode=WAL", false},
		{"sqlite memory", "sqlite://:memory:", DriverSQLite, ":memory:", false},
		{"postgres", "postgres://u:p@localhost:5432/quotes", DriverPostgres, "postgres://u:p@localhost:5432/quotes", false},
		{"postgresql alias", "postgresql://u@db/quotes", DriverPostgres, "postgresql://u@db/quotes", false},
		{"mysql is rejected", "mysql://u:p@tcp(localhost)/q", "", "", true},
		{"empty sqlite path", "sqlite://", "", "", true},
		{"no scheme", "quotes.db", "", "", true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg, err := ParseURL(tt.raw)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, failure.ErrConfiguration))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantDriver, cfg.Driver)
			assert.Equal(t, tt.wantDSN, cfg.DSN)
		})
	}
}

// TestConnectWithRetry_SuccessOnFirstTry は初回接続成功時にリトライせずDBを返すことを検証します。
func TestConnectWithRetry_SuccessOnFirstTry(t *testing.T) {
	t.Parallel()

	mockDB := &gorm.DB{}
	opener := func(dsn string) (*gorm.DB, error) {
		return mockDB, nil
	}

	db, err := ConnectWithRetry("test-dsn", 5*time.Second, opener)

	require.NoError(t, err)
	assert.Same(t, mockDB, db)
}

// TestConnectWithRetry_RetriesOnFailure は接続失敗時にリトライして最終的に成功することを検証します。
func TestConnectWithRetry_RetriesOnFailure(t *testing.T) {
	// リトライ間隔(3秒)分待つため並列にしない

	mockDB := &gorm.DB{}
	attemptCount := 0

	opener := func(dsn string) (*gorm.DB, error) {
		attemptCount++
		if attemptCount < 3 {
			return nil, errors.New("connection refused")
		}
		return mockDB, nil
	}

	db, err := ConnectWithRetry("test-dsn", 10*time.Second, opener)

	require.NoError(t, err)
	assert.Same(t, mockDB, db)
	assert.Equal(t, 3, attemptCount)
}

// TestConnectWithRetry_TimeoutAfterRetries はタイムアウト後にエラーが返されることを検証します。
func TestConnectWithRetry_TimeoutAfterRetries(t *testing.T) {
	t.Parallel()

	attemptCount := 0
	opener := func(dsn string) (*gorm.DB, error) {
		attemptCount++
		return nil, errors.New("connection refused")
	}

	_, err := ConnectWithRetry("test-dsn", 100*time.Millisecond, opener)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
	assert.Equal(t, 1, attemptCount)
}

type testModel struct {
	ID   uint   `gorm:"primaryKey"`
	Code string `gorm:"uniqueIndex"`
}

// TestOpenDB_SQLiteMemory はインメモリSQLiteに接続しマイグレーションできることを検証します。
func TestOpenDB_SQLiteMemory(t *testing.T) {
	t.Parallel()

	db, err := OpenDB(Config{Driver: DriverSQLite, DSN: ":memory:", RunMigrations: true}, &testModel{})
	require.NoError(t, err)

	require.NoError(t, db.Create(&testModel{Code: "AAPL"}).Error)
	err = db.Create(&testModel{Code: "AAPL"}).Error
	require.Error(t, err)
	assert.True(t, IsUniqueViolation(err))
}

func TestLoadConfigFromEnv(t *testing.T) {
	// 環境変数を変更するため並列実行しない
	t.Setenv("DATABASE_URL", "postgres://quotes@db:5432/quotes")
	t.Setenv("RUN_MIGRATIONS", "false")

	cfg, err := LoadConfigFromEnv()
	require.NoError(t, err)
	assert.Equal(t, DriverPostgres, cfg.Driver)
	assert.False(t, cfg.RunMigrations)

	t.Setenv("DATABASE_URL", "")
	t.Setenv("RUN_MIGRATIONS", "")
	cfg, err = LoadConfigFromEnv()
	require.NoError(t, err)
	assert.Equal(t, DriverSQLite, cfg.Driver)
	assert.True(t, cfg.RunMigrations)

	t.Setenv("DATABASE_URL", "mongodb://localhost")
	_, err = LoadConfigFromEnv()
	assert.ErrorIs(t, err, failure.ErrConfiguration)
}

func TestIsUniqueViolation(t *testing.T) {
	t.Parallel()

	assert.False(t, IsUniqueViolation(nil))
	assert.False(t, IsUniqueViolation(errors.New("boom")))
	assert.True(t, IsUniqueViolation(gorm.ErrDuplicatedKey))
	assert.True(t, IsUniqueViolation(fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"})))
	assert.False(t, IsUniqueViolation(&pgconn.PgError{Code: "23503"}))
}

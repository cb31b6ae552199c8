// Package cache provides caching implementations for repository interfaces.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"

	"quote_backend/internal/feature/quotes/domain/entity"
	"quote_backend/internal/feature/quotes/usecase"
)

// CachingSampleRepository decorates a SampleRepository with a Redis cache for Latest.
// Append で行が増えた銘柄は新しいサンプルでキーを上書きし、ミス時の補充は SETNX で行います。
// 補充が古い行を読んでいても、先に書かれた新しい値を上書きしません。
// Redis の失敗は無視してDBの結果を返します。
type CachingSampleRepository struct {
	inner     usecase.SampleRepository
	rdb       *redis.Client
	ttl       time.Duration
	namespace string
	group     singleflight.Group
}

var _ usecase.SampleRepository = (*CachingSampleRepository)(nil)

// NewCachingSampleRepository decorates a SampleRepository with Redis caching.
// If ttl is 0, it defaults to 5 minutes. If namespace is empty, it uses "quotes".
// A nil rdb bypasses the cache entirely.
func NewCachingSampleRepository(rdb *redis.Client, ttl time.Duration, inner usecase.SampleRepository, namespace string) *CachingSampleRepository {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if namespace == "" {
		namespace = "quotes"
	}
	return &CachingSampleRepository{
		inner:     inner,
		rdb:       rdb,
		ttl:       ttl,
		namespace: namespace,
	}
}

// cachedSample is the JSON stored under the latest key.
type cachedSample struct {
	ID         uint            `json:"id"`
	SymbolID   uint            `json:"symbol_id"`
	Price      decimal.Decimal `json:"price"`
	CapturedAt time.Time       `json:"captured_at"`
}

// Append writes through to the inner repository and then to the latest key on insert.
func (c *CachingSampleRepository) Append(ctx context.Context, symbolID uint, price decimal.Decimal, capturedAt time.Time) (entity.AppendResult, error) {
	res, err := c.inner.Append(ctx, symbolID, price, capturedAt)
	if err != nil {
		return res, err
	}
	if c.rdb == nil || !res.Inserted {
		return res, nil
	}
	key := c.latestKey(symbolID)
	b, err := json.Marshal(cachedSample(res.Sample))
	if err == nil {
		err = c.rdb.Set(ctx, key, b, c.ttl).Err()
	}
	if err != nil {
		// 上書きできなければ削除して次の読み込みで補充させる。失敗してもTTLで自然に消える
		slog.Warn("failed to write latest quote cache", "symbol_id", symbolID, "error", err)
		if err := c.rdb.Del(ctx, key).Err(); err != nil {
			slog.Warn("failed to invalidate latest quote cache", "symbol_id", symbolID, "error", err)
		}
	}
	return res, nil
}

// Latest checks Redis first and falls back to the inner repository.
// 同じ銘柄への同時のキャッシュミスは1回の読み込みにまとめます。
func (c *CachingSampleRepository) Latest(ctx context.Context, symbolID uint) (entity.PriceSample, bool, error) {
	if c.rdb == nil {
		return c.inner.Latest(ctx, symbolID)
	}

	key := c.latestKey(symbolID)

	// 1) Check cache
	if b, err := c.rdb.Get(ctx, key).Bytes(); err == nil && len(b) > 0 {
		var cs cachedSample
		if err := json.Unmarshal(b, &cs); err == nil {
			return entity.PriceSample(cs), true, nil
		}
		// Delete corrupted cache entry
		_ = c.rdb.Del(ctx, key).Err()
	}

	// 2) Fallback to database
	type result struct {
		sample entity.PriceSample
		ok     bool
	}
	v, err, _ := c.group.Do(key, func() (any, error) {
		s, ok, err := c.inner.Latest(ctx, symbolID)
		if err != nil {
			return nil, err
		}
		// 3) Store in cache (best effort). 未取得は保存しない
		// SETNX: 読み込み中に Append が書いた新しい値があればそちらを残す
		if ok {
			if b, err := json.Marshal(cachedSample(s)); err == nil {
				_ = c.rdb.SetNX(ctx, key, b, c.ttl).Err()
			}
		}
		return result{sample: s, ok: ok}, nil
	})
	if err != nil {
		return entity.PriceSample{}, false, err
	}
	r := v.(result)
	return r.sample, r.ok, nil
}

// LatestAll is not cached; the dashboard list reads it in a single query.
func (c *CachingSampleRepository) LatestAll(ctx context.Context, symbolIDs []uint) (map[uint]entity.PriceSample, error) {
	return c.inner.LatestAll(ctx, symbolIDs)
}

// History is not cached.
func (c *CachingSampleRepository) History(ctx context.Context, symbolID uint, from, to time.Time) ([]entity.PriceSample, error) {
	return c.inner.History(ctx, symbolID, from, to)
}

func (c *CachingSampleRepository) latestKey(symbolID uint) string {
	return fmt.Sprintf("%s:latest:%d", c.namespace, symbolID)
}

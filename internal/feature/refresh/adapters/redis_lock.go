// Package adapters contains the Redis-backed cycle lock.
package adapters

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"quote_backend/internal/feature/refresh/usecase"
)

// DefaultLockKey is the Redis key guarding refresh cycles across replicas.
const DefaultLockKey = "quotes:refresh:lock"

// releaseScript は自分のトークンの場合のみキーを削除します。
const releaseScript = `if redis.call("get", KEYS[1]) == ARGV[1] then return redis.call("del", KEYS[1]) else return 0 end`

// redisLock implements usecase.CycleLock with SET NX PX.
// ttl はサイクルが異常終了した場合にロックが残り続けないための上限です。
type redisLock struct {
	rdb      *redis.Client
	key      string
	ttl      time.Duration
	newToken func() string
}

var _ usecase.CycleLock = (*redisLock)(nil)

// NewRedisLock creates a cycle lock. A ttl <= 0 defaults to 5 minutes.
func NewRedisLock(rdb *redis.Client, key string, ttl time.Duration) *redisLock {
	if key == "" {
		key = DefaultLockKey
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &redisLock{rdb: rdb, key: key, ttl: ttl, newToken: uuid.NewString}
}

// Acquire tries to take the lock once without waiting.
func (l *redisLock) Acquire(ctx context.Context) (func(), bool, error) {
	token := l.newToken()
	ok, err := l.rdb.SetNX(ctx, l.key, token, l.ttl).Result()
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}
	release := func() {
		// 呼び出し元の ctx がキャンセル済みでも解放する
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 3*time.Second)
		defer cancel()
		if err := l.rdb.Eval(rctx, releaseScript, []string{l.key}, token).Err(); err != nil {
			slog.Warn("failed to release cycle lock", "key", l.key, "error", err)
		}
	}
	return release, true, nil
}

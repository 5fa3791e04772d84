package cursor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// トークンが一致する場合のみロックを解放する。
var releaseLockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker はRedisのSET NX PXによる分散ロック。
// 複数インスタンスで同一ユーザーのカーソル更新を直列化する。
type RedisLocker struct {
	rdb      redis.UniversalClient
	prefix   string
	ttl      time.Duration
	spinWait time.Duration
}

// NewRedisLocker は新しいRedisLockerを生成する。
// ttlはロックの最大保持時間で、保持者が異常終了した場合もttl経過後に解放される。
func NewRedisLocker(rdb redis.UniversalClient, ttl time.Duration) *RedisLocker {
	if ttl <= 0 {
		ttl = 5 * time.Second
	}
	return &RedisLocker{
		rdb:      rdb,
		prefix:   "snapshare:feed:lock:",
		ttl:      ttl,
		spinWait: 20 * time.Millisecond,
	}
}

// Lock はkeyのロックを取得するまでリトライする。
func (l *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	lockKey := l.prefix + key
	token := uuid.NewString()

	for {
		ok, err := l.rdb.SetNX(ctx, lockKey, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to acquire lock %s: %w", lockKey, err)
		}
		if ok {
			break
		}

		timer := time.NewTimer(l.spinWait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	return func() {
		// 呼び出し元のctxがキャンセル済みでも解放できるよう独立したctxを使う。
		releaseCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		err := releaseLockScript.Run(releaseCtx, l.rdb, []string{lockKey}, token).Err()
		if err != nil && !errors.Is(err, redis.Nil) {
			// 解放に失敗してもTTLで失効する
			slog.Warn("failed to release cursor lock",
				slog.String("key", lockKey),
				slog.String("error", err.Error()),
			)
		}
	}, nil
}

var _ Locker = (*RedisLocker)(nil)

package repository

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/hitoshi/snapshare/internal/model"
	"github.com/redis/go-redis/v9"
)

// setupTestRedis はテスト用Redisに接続する。接続できない場合はスキップする。
func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()

	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr, DB: 15})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		t.Skipf("テスト用Redisに接続できません（スキップ）: %v", err)
	}
	t.Cleanup(func() {
		rdb.FlushDB(context.Background())
		rdb.Close()
	})
	return rdb
}

func TestRedisCursorStore_ImplementsInterface(t *testing.T) {
	var _ CursorStore = (*RedisCursorStore)(nil)
}

func TestRedisCursorStore_Key(t *testing.T) {
	s := NewRedisCursorStore(nil, time.Hour)
	if got := s.key("u1"); got != "snapshare:feed:cursor:u1" {
		t.Errorf("key = %q", got)
	}
}

func TestRedisCursorStore_GetMissing(t *testing.T) {
	rdb := setupTestRedis(t)
	s := NewRedisCursorStore(rdb, time.Minute)

	c, err := s.Get(context.Background(), "missing-user")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c != nil {
		t.Errorf("expected nil cursor, got %+v", c)
	}
}

func TestRedisCursorStore_SetOverwritesWholeRecord(t *testing.T) {
	rdb := setupTestRedis(t)
	s := NewRedisCursorStore(rdb, time.Minute)
	ctx := context.Background()

	seen := time.Date(2024, 4, 1, 9, 0, 0, 0, time.UTC)
	first := &model.FeedCursor{
		UserID:           "u1",
		LastSeenAt:       &seen,
		PreviousOffset:   10,
		LastBatchPostIDs: []string{"p1", "p2"},
	}
	if err := s.Set(ctx, first); err != nil {
		t.Fatalf("Set: %v", err)
	}

	second := &model.FeedCursor{
		UserID:                "u1",
		UnseenSupplyExhausted: true,
		PreviousOffset:        0,
		LastBatchPostIDs:      []string{},
	}
	if err := s.Set(ctx, second); err != nil {
		t.Fatalf("Set: %v", err)
	}

	got, err := s.Get(ctx, "u1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.LastSeenAt != nil {
		t.Error("LastSeenAt should be cleared by a full overwrite")
	}
	if !got.UnseenSupplyExhausted || got.PreviousOffset != 0 || len(got.LastBatchPostIDs) != 0 {
		t.Errorf("unexpected cursor: %+v", got)
	}

	ttl := rdb.TTL(ctx, s.key("u1")).Val()
	if ttl <= 0 || ttl > time.Minute {
		t.Errorf("TTL = %v, want (0, 1m]", ttl)
	}
}

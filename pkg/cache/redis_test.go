package cache

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"worksync-backend/pkg/config"
)

func TestJSONRoundTripAndMiss(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	rc := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rc.Close() })
	ctx := context.Background()

	var out map[string]int
	ok, err := GetJSON(ctx, rc, "missing", &out)
	if err != nil || ok {
		t.Fatalf("expected clean miss, got ok=%v err=%v", ok, err)
	}

	if err := SetJSON(ctx, rc, "k", map[string]int{"a": 1}, time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	ok, err = GetJSON(ctx, rc, "k", &out)
	if err != nil || !ok || out["a"] != 1 {
		t.Fatalf("unexpected ok=%v err=%v out=%v", ok, err, out)
	}

	mr.FastForward(2 * time.Minute)
	ok, _ = GetJSON(ctx, rc, "k", &out)
	if ok {
		t.Fatal("expected key to expire")
	}
}

func TestNewRedisClient(t *testing.T) {
	if _, err := NewRedisClient(context.Background(), &config.Config{}); err == nil {
		t.Fatal("expected error without address")
	}

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	rc, err := NewRedisClient(context.Background(), &config.Config{RedisAddr: mr.Addr()})
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	_ = rc.Close()
}

package preference

import (
	"context"
	"strings"
	"testing"
	"time"

	"worksync-backend/pkg/apperror"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func stores(t *testing.T) map[string]Store {
	mr := miniredis.RunT(t)
	rc := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rc.Close() })
	return map[string]Store{"redis": NewRedisStore(rc), "memory": NewMemoryStore()}
}

func TestSetMergesAndDeletes(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			if err := s.Set(ctx, "u1", map[string]string{"theme": "dark", "sound": "on"}); err != nil {
				t.Fatal(err)
			}
			if err := s.Set(ctx, "u1", map[string]string{"sound": "", "focus": "true"}); err != nil {
				t.Fatal(err)
			}
			got, err := s.Get(ctx, "u1")
			if err != nil {
				t.Fatal(err)
			}
			if len(got) != 2 || got["theme"] != "dark" || got["focus"] != "true" {
				t.Fatalf("unexpected preferences %v", got)
			}
			other, _ := s.Get(ctx, "u2")
			if len(other) != 0 {
				t.Fatalf("preferences leaked across users: %v", other)
			}
		})
	}
}

func TestLastNotified(t *testing.T) {
	ctx := context.Background()
	at := time.Date(2026, 3, 4, 9, 30, 0, 0, time.UTC)
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			zero, err := s.LastNotified(ctx, "u1")
			if err != nil || !zero.IsZero() {
				t.Fatalf("expected zero time, got %v %v", zero, err)
			}
			if err := s.MarkNotified(ctx, "u1", at); err != nil {
				t.Fatal(err)
			}
			got, err := s.LastNotified(ctx, "u1")
			if err != nil || !got.Equal(at) {
				t.Fatalf("expected %v, got %v %v", at, got, err)
			}
		})
	}
}

func TestValidateRejectsBadKeys(t *testing.T) {
	cases := []map[string]string{
		{"": "x"},
		{strings.Repeat("k", 65): "x"},
		{"k": strings.Repeat("v", 4097)},
	}
	for _, values := range cases {
		if err := NewMemoryStore().Set(context.Background(), "u1", values); apperror.KindOf(err) != apperror.KindInvalid {
			t.Fatalf("expected invalid, got %v", err)
		}
	}
}

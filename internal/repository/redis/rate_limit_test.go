package redis

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	red "github.com/redis/go-redis/v9"
)

func newTestRedis(t *testing.T) (*red.Client, *miniredis.Miniredis) {
	t.Helper()

	server, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}

	client := red.NewClient(&red.Options{Addr: server.Addr()})

	t.Cleanup(func() {
		_ = client.Close()
		server.Close()
	})

	return client, server
}

func TestRateLimitRepository_RecordCountTrim(t *testing.T) {
	client, server := newTestRedis(t)
	repo := NewRateLimitRepository(client, SlidingWindowConfig{KeyPrefix: "videotube:rl", TTL: 2 * time.Minute})

	ctx := context.Background()
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	window := time.Minute

	for _, offset := range []time.Duration{0, 0, 30 * time.Second, 90 * time.Second} {
		if err := repo.RecordAttempt(ctx, "login:1.2.3.4", base.Add(offset)); err != nil {
			t.Fatalf("RecordAttempt returned error: %v", err)
		}
	}

	if ttl := server.TTL("videotube:rl:login:1.2.3.4"); ttl != 2*time.Minute {
		t.Fatalf("expected ttl to be applied, got %s", ttl)
	}

	reference := base.Add(90 * time.Second)
	count, err := repo.CountAttempts(ctx, "login:1.2.3.4", window, reference)
	if err != nil {
		t.Fatalf("CountAttempts returned error: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 attempts in window, got %d", count)
	}

	if err := repo.TrimWindow(ctx, "login:1.2.3.4", window, reference); err != nil {
		t.Fatalf("TrimWindow returned error: %v", err)
	}
	members, err := client.ZCard(ctx, "videotube:rl:login:1.2.3.4").Result()
	if err != nil {
		t.Fatalf("ZCard returned error: %v", err)
	}
	if members != 2 {
		t.Fatalf("expected trim to leave 2 members, got %d", members)
	}

	oldest, ok, err := repo.OldestAttempt(ctx, "login:1.2.3.4", window, reference)
	if err != nil {
		t.Fatalf("OldestAttempt returned error: %v", err)
	}
	if !ok || !oldest.Equal(base.Add(30*time.Second)) {
		t.Fatalf("unexpected oldest attempt %s (found=%v)", oldest, ok)
	}
}

func TestRateLimitRepository_RejectsNonPositiveWindow(t *testing.T) {
	client, _ := newTestRedis(t)
	repo := NewRateLimitRepository(client, SlidingWindowConfig{})

	if _, err := repo.CountAttempts(context.Background(), "k", 0, time.Now()); err == nil {
		t.Fatal("expected error for zero window")
	}
	if _, _, err := repo.OldestAttempt(context.Background(), "k", -time.Second, time.Now()); err == nil {
		t.Fatal("expected error for negative window")
	}
}

func TestRateLimitRepository_UnavailableServer(t *testing.T) {
	client, server := newTestRedis(t)
	repo := NewRateLimitRepository(client, SlidingWindowConfig{})
	server.Close()

	if err := repo.RecordAttempt(context.Background(), "k", time.Now()); err == nil {
		t.Fatal("expected error when redis is down")
	}
}

package blacklist

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestContains(t *testing.T) {
	b := New("10.0.0.1:1080", " 10.0.0.2:8080 ", "")

	if !b.Contains("10.0.0.1:1080") {
		t.Fatal("listed endpoint should be contained")
	}
	if !b.Contains("10.0.0.2:8080") {
		t.Fatal("entries must be trimmed before insertion")
	}
	if b.Contains("10.0.0.3:1080") {
		t.Fatal("unlisted endpoint should not be contained")
	}
	if b.Len() != 2 {
		t.Fatalf("blacklist has %d entries, want 2", b.Len())
	}
}

func TestNilBlacklistContainsNothing(t *testing.T) {
	var b *Blacklist
	if b.Contains("10.0.0.1:1080") {
		t.Fatal("nil blacklist must contain nothing")
	}
}

func TestLoadFromRedis(t *testing.T) {
	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	if _, err := server.SAdd("skua:blacklist", "10.0.0.9:1080", "10.0.0.10:1080"); err != nil {
		t.Fatalf("seed redis set: %v", err)
	}

	b := New("10.0.0.1:1080")
	if err := b.LoadFromRedis(context.Background(), client, "skua:blacklist"); err != nil {
		t.Fatalf("load from redis: %v", err)
	}

	if b.Len() != 3 {
		t.Fatalf("blacklist has %d entries after merge, want 3", b.Len())
	}
	if !b.Contains("10.0.0.9:1080") {
		t.Fatal("redis member missing from blacklist")
	}
}

func TestLoadFromRedis_MissingKeyIsEmpty(t *testing.T) {
	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	b := New()
	if err := b.LoadFromRedis(context.Background(), client, "skua:blacklist"); err != nil {
		t.Fatalf("missing key must not be an error, got %v", err)
	}
	if b.Len() != 0 {
		t.Fatalf("blacklist has %d entries, want 0", b.Len())
	}
}

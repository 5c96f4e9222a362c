package blacklist

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/redis/go-redis/v9"
)

const redisOpTimeout = 5 * time.Second

// Blacklist is a set of "host:port" endpoints that are never admitted into
// the pool, regardless of what the sources publish.
type Blacklist struct {
	mu      sync.RWMutex
	entries map[string]struct{}
}

func New(addrs ...string) *Blacklist {
	b := &Blacklist{entries: make(map[string]struct{})}
	b.Add(addrs...)
	return b
}

func (b *Blacklist) Add(addrs ...string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, addr := range addrs {
		addr = strings.TrimSpace(addr)
		if addr == "" {
			continue
		}
		b.entries[addr] = struct{}{}
	}
}

// Contains reports whether the endpoint is blacklisted. A nil Blacklist
// contains nothing.
func (b *Blacklist) Contains(addr string) bool {
	if b == nil {
		return false
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	_, found := b.entries[addr]
	return found
}

func (b *Blacklist) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.entries)
}

// LoadFromRedis merges the members of a shared Redis set into the
// blacklist, so several collector instances can pool their bad-endpoint
// knowledge. A missing key is not an error.
func (b *Blacklist) LoadFromRedis(ctx context.Context, client *redis.Client, key string) error {
	opCtx, cancel := context.WithTimeout(ctx, redisOpTimeout)
	defer cancel()

	members, err := client.SMembers(opCtx, key).Result()
	if err != nil {
		return err
	}

	b.Add(members...)
	log.Info("blacklist loaded from redis", "key", key, "entries", len(members))
	return nil
}

package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/charmbracelet/log"
	"github.com/redis/go-redis/v9"
)

const redisOpTimeout = 5 * time.Second

// RedisStore keeps the snapshot JSON under a single key, for deployments
// where several collector instances share one pool of statistics.
type RedisStore struct {
	client *redis.Client
	key    string
}

func NewRedisStore(client *redis.Client, key string) *RedisStore {
	return &RedisStore{client: client, key: key}
}

func (rs *RedisStore) Load(ctx context.Context) *Snapshot {
	opCtx, cancel := context.WithTimeout(ctx, redisOpTimeout)
	defer cancel()

	data, err := rs.client.Get(opCtx, rs.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			log.Info("no proxy cache in redis, starting fresh", "key", rs.key)
		} else {
			log.Warn("redis proxy cache unreadable, starting fresh", "key", rs.key, "error", err)
		}
		return NewSnapshot()
	}

	snapshot := &Snapshot{}
	if err := json.Unmarshal(data, snapshot); err != nil {
		log.Warn("redis proxy cache corrupt, starting fresh", "key", rs.key, "error", err)
		return NewSnapshot()
	}

	log.Info("loaded proxy cache from redis", "key", rs.key, "proxies", len(snapshot.Proxies))
	return snapshot
}

func (rs *RedisStore) Save(ctx context.Context, snapshot *Snapshot) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}

	opCtx, cancel := context.WithTimeout(ctx, redisOpTimeout)
	defer cancel()

	if err := rs.client.Set(opCtx, rs.key, data, 0).Err(); err != nil {
		return err
	}

	log.Info("saved proxy cache to redis", "key", rs.key, "proxies", len(snapshot.Proxies))
	return nil
}

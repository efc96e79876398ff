package cache

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis 共享缓存：每个 key 一个 hash {v, stale}
type Redis struct {
	RDB       *redis.Client
	Namespace string
	// TTL 仅作为淘汰上限，失效由 MarkStale 负责；0 表示不过期
	TTL time.Duration
}

func NewRedis(addr, pass string, db int) *Redis {
	return &Redis{
		RDB:       redis.NewClient(&redis.Options{Addr: addr, Password: pass, DB: db}),
		Namespace: "dogcat:",
		TTL:       24 * time.Hour,
	}
}

// 只更新仍存在的 key，避免和过期竞争时留下没有 v 的空壳
var markStale = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 1 then
  return redis.call("HSET", KEYS[1], "stale", "1")
end
return 0`)

func (s *Redis) key(k string) string { return s.Namespace + k }

func (s *Redis) Get(ctx context.Context, key string) (Entry, bool, error) {
	vals, err := s.RDB.HMGet(ctx, s.key(key), "v", "stale").Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Entry{}, false, nil
		}
		return Entry{}, false, err
	}
	v, ok := vals[0].(string)
	if !ok {
		return Entry{}, false, nil
	}
	stale, _ := vals[1].(string)
	return Entry{Value: []byte(v), Stale: stale == "1"}, true, nil
}

func (s *Redis) Set(ctx context.Context, key string, value []byte) error {
	k := s.key(key)
	_, err := s.RDB.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HSet(ctx, k, "v", value, "stale", "0")
		if s.TTL > 0 {
			p.Expire(ctx, k, s.TTL)
		}
		return nil
	})
	return err
}

// MarkStale 用 SCAN 找到前缀下的 key，逐个置 stale（不删除，保留旧值兜底）
func (s *Redis) MarkStale(ctx context.Context, prefixes ...string) error {
	for _, p := range prefixes {
		iter := s.RDB.Scan(ctx, 0, escapeGlob(s.key(p))+"*", 100).Iterator()
		for iter.Next(ctx) {
			if err := markStale.Run(ctx, s.RDB, []string{iter.Val()}).Err(); err != nil && !errors.Is(err, redis.Nil) {
				return err
			}
		}
		if err := iter.Err(); err != nil {
			return err
		}
	}
	return nil
}

func (s *Redis) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	ks := make([]string, len(keys))
	for i, k := range keys {
		ks[i] = s.key(k)
	}
	return s.RDB.Del(ctx, ks...).Err()
}

func (s *Redis) Close() error { return s.RDB.Close() }

func escapeGlob(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`, `[`, `\[`, `]`, `\]`)
	return r.Replace(s)
}

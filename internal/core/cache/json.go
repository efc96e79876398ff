package cache

import (
	"context"
	"encoding/json"
	"errors"
)

// GetOrLoadJSON 是 GetOrLoad 的类型化版本。遇到 ErrStale 时同时返回旧值和错误。
func GetOrLoadJSON[T any](
	c *Cache,
	ctx context.Context,
	key string,
	load func(ctx context.Context) (T, error),
) (T, error) {
	var out T
	b, err := c.GetOrLoad(ctx, key, func(ctx context.Context) ([]byte, error) {
		v, e := load(ctx)
		if e != nil {
			return nil, e
		}
		return json.Marshal(v)
	})
	if err != nil && !errors.Is(err, ErrStale) {
		return out, err
	}
	if e := json.Unmarshal(b, &out); e != nil {
		return out, errors.Join(err, e)
	}
	return out, err
}

// Package cache 定义带过期时间的键值缓存，供消息去重和 access_token 共享使用。
//
// 所有实现都必须能被多个请求并发访问。Add 是唯一要求原子性的操作。
package cache

import (
	"context"
	"errors"
	"time"
)

// ErrUnavailable 表示缓存后端暂时不可用
var ErrUnavailable = errors.New("cache unavailable")

// Cache 是带 TTL 的键值存储
type Cache interface {
	// Get 返回 key 对应的值，不存在或已过期时 ok 为 false
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	// Set 写入 key，覆盖已有值并重置过期时间
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	// Add 仅在 key 不存在时写入，返回是否写入成功
	Add(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
}

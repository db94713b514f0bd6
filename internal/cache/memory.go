package cache

import (
	"context"
	"sync"
	"time"
)

// sweepInterval 是触发一次过期清理的写操作次数
const sweepInterval = 256

type entry struct {
	value    string
	expireAt time.Time
}

// Memory 是进程内缓存
type Memory struct {
	mu     sync.Mutex
	items  map[string]entry
	now    func() time.Time
	writes int
}

// MemoryOption 配置 Memory
type MemoryOption func(*Memory)

// WithClock 替换时钟，测试中用来模拟过期
func WithClock(now func() time.Time) MemoryOption {
	return func(m *Memory) { m.now = now }
}

// NewMemory 创建进程内缓存
func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{
		items: make(map[string]entry),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Memory) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.lookup(key)
	if !ok {
		return "", false, nil
	}
	return e.value, true, nil
}

func (m *Memory) Set(_ context.Context, key, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.store(key, value, ttl)
	return nil
}

func (m *Memory) Add(_ context.Context, key, value string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.lookup(key); ok {
		return false, nil
	}
	m.store(key, value, ttl)
	return true, nil
}

// Len 返回未过期条目数
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sweep()
	return len(m.items)
}

// 调用方持有锁
func (m *Memory) lookup(key string) (entry, bool) {
	e, ok := m.items[key]
	if !ok {
		return entry{}, false
	}
	if !e.expireAt.IsZero() && !m.now().Before(e.expireAt) {
		delete(m.items, key)
		return entry{}, false
	}
	return e, true
}

// 调用方持有锁
func (m *Memory) store(key, value string, ttl time.Duration) {
	e := entry{value: value}
	if ttl > 0 {
		e.expireAt = m.now().Add(ttl)
	}
	m.items[key] = e

	m.writes++
	if m.writes%sweepInterval == 0 {
		m.sweep()
	}
}

func (m *Memory) sweep() {
	now := m.now()
	for k, e := range m.items {
		if !e.expireAt.IsZero() && !now.Before(e.expireAt) {
			delete(m.items, k)
		}
	}
}

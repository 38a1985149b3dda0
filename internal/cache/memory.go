package cache

import (
	"context"
	"sync"
	"time"
)

// Memory 进程内缓存，没配 Redis 时的默认实现。
// 不做主动淘汰，超过保留期的条目在下次读到时顺手清掉。
type Memory struct {
	mu      sync.RWMutex
	entries map[string]*Entry
}

func NewMemory() *Memory {
	return &Memory{entries: make(map[string]*Entry)}
}

func (m *Memory) Get(_ context.Context, key string) (*Entry, bool) {
	m.mu.RLock()
	e, ok := m.entries[key]
	m.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if time.Now().After(e.CreatedAt.Add(Retention)) {
		m.mu.Lock()
		delete(m.entries, key)
		m.mu.Unlock()
		return nil, false
	}
	return e, true
}

func (m *Memory) Put(_ context.Context, e *Entry) error {
	m.mu.Lock()
	m.entries[e.Key] = e
	m.mu.Unlock()
	return nil
}

package session

import (
	"context"
	"sync"
	"time"
)

type entry[T any] struct {
	value     T
	expiresAt time.Time
}

// MemoryStore 内存会话存储。ttl <= 0 表示永不过期。
type MemoryStore[T any] struct {
	mu  sync.RWMutex
	m   map[string]entry[T]
	ttl time.Duration
	now func() time.Time
}

func NewMemoryStore[T any](ttl time.Duration) *MemoryStore[T] {
	return &MemoryStore[T]{m: map[string]entry[T]{}, ttl: ttl, now: time.Now}
}

// WithClock 替换时钟（测试用）
func (s *MemoryStore[T]) WithClock(now func() time.Time) *MemoryStore[T] {
	s.now = now
	return s
}

func (s *MemoryStore[T]) Get(_ context.Context, id string) (T, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var zero T
	e, ok := s.m[id]
	if !ok || s.expired(e) {
		return zero, false, nil
	}
	return e.value, true, nil
}

// Put 写入并刷新过期时间
func (s *MemoryStore[T]) Put(_ context.Context, id string, v T) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := entry[T]{value: v}
	if s.ttl > 0 {
		e.expiresAt = s.now().Add(s.ttl)
	}
	s.m[id] = e
	return nil
}

func (s *MemoryStore[T]) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, id)
	return nil
}

// Sweep 清理过期会话，返回清理数量
func (s *MemoryStore[T]) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, e := range s.m {
		if s.expired(e) {
			delete(s.m, id)
			n++
		}
	}
	return n
}

// Len 当前保存的会话数（含未清理的过期会话）
func (s *MemoryStore[T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.m)
}

// Run 定期清理，直到 ctx 结束
func (s *MemoryStore[T]) Run(ctx context.Context, interval time.Duration, onSweep func(n int)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Sweep(); n > 0 && onSweep != nil {
				onSweep(n)
			}
		}
	}
}

func (s *MemoryStore[T]) expired(e entry[T]) bool {
	return !e.expiresAt.IsZero() && !s.now().Before(e.expiresAt)
}

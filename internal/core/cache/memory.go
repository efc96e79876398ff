package cache

import (
	"context"
	"strings"
	"sync"
)

// Memory 进程内缓存，默认后端
type Memory struct {
	mu sync.RWMutex
	m  map[string]Entry
}

func NewMemory() *Memory { return &Memory{m: make(map[string]Entry)} }

func (s *Memory) Get(_ context.Context, key string) (Entry, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.m[key]
	return e, ok, nil
}

func (s *Memory) Set(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[key] = Entry{Value: value}
	return nil
}

func (s *Memory) MarkStale(_ context.Context, prefixes ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, e := range s.m {
		for _, p := range prefixes {
			if strings.HasPrefix(k, p) {
				e.Stale = true
				s.m[k] = e
				break
			}
		}
	}
	return nil
}

func (s *Memory) Delete(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range keys {
		delete(s.m, k)
	}
	return nil
}

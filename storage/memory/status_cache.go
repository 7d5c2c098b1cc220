package memorystore

import (
	"context"
	"sync"
	"time"

	"github.com/PaulFidika/nekokit/entitlements"
)

// StatusCache is an in-memory entitlement status cache with TTL.
type StatusCache struct {
	mu     sync.Mutex
	ttl    time.Duration
	data   map[string]item
	closed chan struct{}
	once   sync.Once
}

type item struct {
	v   entitlements.Status
	exp time.Time
}

// NewStatusCache creates a cache whose entries live for ttl (default 60s, the
// client refresh interval). A background goroutine evicts expired entries.
func NewStatusCache(ttl time.Duration) *StatusCache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	c := &StatusCache{ttl: ttl, data: make(map[string]item), closed: make(chan struct{})}
	go c.cleanupLoop()
	return c
}

func (s *StatusCache) Put(_ context.Context, userID string, v entitlements.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[userID] = item{v: v, exp: time.Now().Add(s.ttl)}
	return nil
}

func (s *StatusCache) Get(_ context.Context, userID string) (entitlements.Status, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.data[userID]
	if !ok {
		return entitlements.Status{}, false, nil
	}
	if time.Now().After(it.exp) {
		delete(s.data, userID)
		return entitlements.Status{}, false, nil
	}
	return it.v, true, nil
}

func (s *StatusCache) Del(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, userID)
	return nil
}

func (s *StatusCache) cleanupLoop() {
	ticker := time.NewTicker(s.ttl)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.cleanup()
		case <-s.closed:
			return
		}
	}
}

func (s *StatusCache) cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for k, v := range s.data {
		if now.After(v.exp) {
			delete(s.data, k)
		}
	}
}

// Close stops the background cleanup goroutine.
func (s *StatusCache) Close() error {
	s.once.Do(func() { close(s.closed) })
	return nil
}

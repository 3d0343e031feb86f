package cache

import (
	"context"
	"sync"
	"time"

	"github.com/arqcashflow/backend/internal/domain/bulk"
	"github.com/arqcashflow/backend/internal/domain/shared"
	"github.com/google/uuid"
)

type progressEntry struct {
	progress  bulk.ImportProgress
	expiresAt time.Time
}

type progressKey struct {
	tenantID  uuid.UUID
	sessionID string
}

// InMemoryProgressStore implements ProgressStore with a map and a TTL.
// Snapshots are only visible to the process that wrote them.
type InMemoryProgressStore struct {
	mu        sync.RWMutex
	entries   map[progressKey]progressEntry
	ttl       time.Duration
	now       func() time.Time
	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewInMemoryProgressStore creates a store and starts its cleanup goroutine
func NewInMemoryProgressStore(ttl time.Duration) *InMemoryProgressStore {
	store := &InMemoryProgressStore{
		entries:  make(map[progressKey]progressEntry),
		ttl:      ttl,
		now:      time.Now,
		stopChan: make(chan struct{}),
	}

	store.wg.Add(1)
	go store.cleanupLoop(cleanupInterval(ttl))

	return store
}

func cleanupInterval(ttl time.Duration) time.Duration {
	interval := ttl / 2
	if interval < time.Second {
		interval = time.Second
	}
	if interval > 5*time.Minute {
		interval = 5 * time.Minute
	}
	return interval
}

// Save stores the snapshot and resets its TTL
func (s *InMemoryProgressStore) Save(ctx context.Context, tenantID uuid.UUID, progress bulk.ImportProgress) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[progressKey{tenantID, progress.SessionID}] = progressEntry{
		progress:  progress,
		expiresAt: s.now().Add(s.ttl),
	}
	return nil
}

// Get returns a copy of the snapshot, or shared.ErrNotFound
func (s *InMemoryProgressStore) Get(ctx context.Context, tenantID uuid.UUID, sessionID string) (*bulk.ImportProgress, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, exists := s.entries[progressKey{tenantID, sessionID}]
	if !exists || s.now().After(e.expiresAt) {
		return nil, shared.ErrNotFound
	}
	progress := e.progress
	return &progress, nil
}

// Close stops the cleanup goroutine. Safe to call multiple times.
func (s *InMemoryProgressStore) Close() error {
	s.closeOnce.Do(func() {
		close(s.stopChan)
		s.wg.Wait()
	})
	return nil
}

func (s *InMemoryProgressStore) cleanupLoop(interval time.Duration) {
	defer s.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.cleanup()
		}
	}
}

func (s *InMemoryProgressStore) cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for key, e := range s.entries {
		if now.After(e.expiresAt) {
			delete(s.entries, key)
		}
	}
}

// Size returns the number of entries in the store (for testing/monitoring)
func (s *InMemoryProgressStore) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

var _ bulk.ProgressStore = (*InMemoryProgressStore)(nil)

package jobstore

import (
	"context"
	"strings"
	"sync"
	"time"
)

type memoryEntry struct {
	job       *Job
	expiresAt time.Time
}

// MemoryStore 进程内任务存储，适用于单实例部署
type MemoryStore struct {
	mu        sync.RWMutex
	items     map[string]memoryEntry
	ttl       time.Duration
	lastSweep time.Time
	now       func() time.Time
}

// NewMemoryStore 创建进程内存储，ttl<=0 表示永不过期
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		items: make(map[string]memoryEntry),
		ttl:   ttl,
		now:   time.Now,
	}
}

// Save 写入或覆盖任务
func (s *MemoryStore) Save(_ context.Context, job *Job) error {
	if job == nil || strings.TrimSpace(job.ID) == "" {
		return ErrNotFound
	}
	now := s.now()
	entry := memoryEntry{job: cloneJob(job)}
	if s.ttl > 0 {
		entry.expiresAt = now.Add(s.ttl)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[job.ID] = entry
	if s.ttl > 0 && now.Sub(s.lastSweep) >= s.ttl {
		s.sweepLocked(now)
	}
	return nil
}

// Get 读取任务
func (s *MemoryStore) Get(_ context.Context, id string) (*Job, error) {
	s.mu.RLock()
	entry, ok := s.items[id]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	if !entry.expiresAt.IsZero() && !s.now().Before(entry.expiresAt) {
		s.mu.Lock()
		delete(s.items, id)
		s.mu.Unlock()
		return nil, ErrNotFound
	}
	return cloneJob(entry.job), nil
}

// Update 在写锁内完成读取-修改-写回
func (s *MemoryStore) Update(_ context.Context, id string, fn func(job *Job) error) (*Job, error) {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	if !entry.expiresAt.IsZero() && !now.Before(entry.expiresAt) {
		delete(s.items, id)
		return nil, ErrNotFound
	}
	job := cloneJob(entry.job)
	if err := fn(job); err != nil {
		return nil, err
	}
	entry.job = cloneJob(job)
	if s.ttl > 0 {
		entry.expiresAt = now.Add(s.ttl)
	}
	s.items[id] = entry
	return job, nil
}

// Delete 删除任务
func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	delete(s.items, id)
	s.mu.Unlock()
	return nil
}

// Len 当前任务数（含未清理的过期任务）
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

func (s *MemoryStore) sweepLocked(now time.Time) {
	for id, entry := range s.items {
		if !entry.expiresAt.IsZero() && !now.Before(entry.expiresAt) {
			delete(s.items, id)
		}
	}
	s.lastSweep = now
}

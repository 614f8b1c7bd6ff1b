package cache

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"
	"time"
)

type memoryEntry struct {
	value   []byte
	token   string
	expires time.Time
}

// Memory is an in-process Store and Locker for single-instance deployments and tests.
type Memory struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	locks   map[string]memoryEntry
	now     func() time.Time
	seq     int
}

// NewMemory builds an empty in-process cache. now defaults to time.Now.
func NewMemory(now func() time.Time) *Memory {
	if now == nil {
		now = time.Now
	}
	return &Memory{
		entries: map[string]memoryEntry{},
		locks:   map[string]memoryEntry{},
		now:     now,
	}
}

func (m *Memory) GetJSON(_ context.Context, key string, dest any) (bool, error) {
	m.mu.Lock()
	entry, ok := m.entries[key]
	if ok && !entry.expires.IsZero() && !m.now().Before(entry.expires) {
		delete(m.entries, key)
		ok = false
	}
	m.mu.Unlock()
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(entry.value, dest)
}

func (m *Memory) SetJSON(_ context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	entry := memoryEntry{value: data}
	if ttl > 0 {
		entry.expires = m.now().Add(ttl)
	}
	m.mu.Lock()
	m.entries[key] = entry
	m.mu.Unlock()
	return nil
}

func (m *Memory) Acquire(_ context.Context, key string, ttl time.Duration) (Lease, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	if held, ok := m.locks[key]; ok && now.Before(held.expires) {
		return nil, ErrLockHeld
	}
	m.seq++
	token := strconv.Itoa(m.seq)
	m.locks[key] = memoryEntry{token: token, expires: now.Add(ttl)}
	return &memoryLease{owner: m, key: key, token: token}, nil
}

type memoryLease struct {
	owner *Memory
	key   string
	token string
}

func (l *memoryLease) Release(context.Context) error {
	l.owner.mu.Lock()
	defer l.owner.mu.Unlock()
	held, ok := l.owner.locks[l.key]
	if !ok || held.token != l.token || !l.owner.now().Before(held.expires) {
		return ErrLockLost
	}
	delete(l.owner.locks, l.key)
	return nil
}

package cache

import (
	"context"
	"sync"
	"time"
)

// MockKV is an in-memory KV for testing. Now drives expiry.
type MockKV struct {
	mu     sync.Mutex
	values map[string]mockEntry
	sets   map[string]map[string]struct{}
	Now    func() time.Time
	SetErr error
	GetErr error
	Pinged int
}

type mockEntry struct {
	value   []byte
	expires time.Time
}

// NewMockKV creates an empty MockKV
func NewMockKV() *MockKV {
	return &MockKV{
		values: make(map[string]mockEntry),
		sets:   make(map[string]map[string]struct{}),
		Now:    time.Now,
	}
}

func (m *MockKV) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SetErr != nil {
		return m.SetErr
	}
	entry := mockEntry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		entry.expires = m.Now().Add(ttl)
	}
	m.values[key] = entry
	return nil
}

func (m *MockKV) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	entry, ok := m.values[key]
	if !ok {
		return nil, ErrCacheMiss
	}
	if !entry.expires.IsZero() && !m.Now().Before(entry.expires) {
		delete(m.values, key)
		return nil, ErrCacheMiss
	}
	return entry.value, nil
}

func (m *MockKV) Delete(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.values, key)
		delete(m.sets, key)
	}
	return nil
}

func (m *MockKV) SetAdd(ctx context.Context, key string, members ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SetErr != nil {
		return m.SetErr
	}
	set, ok := m.sets[key]
	if !ok {
		set = make(map[string]struct{})
		m.sets[key] = set
	}
	for _, member := range members {
		set[member] = struct{}{}
	}
	return nil
}

func (m *MockKV) SetMembers(ctx context.Context, key string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	members := make([]string, 0, len(m.sets[key]))
	for member := range m.sets[key] {
		members = append(members, member)
	}
	return members, nil
}

func (m *MockKV) SetRemove(ctx context.Context, key string, members ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, member := range members {
		delete(m.sets[key], member)
	}
	return nil
}

func (m *MockKV) Ping(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Pinged++
	return nil
}

func (m *MockKV) Close() error {
	return nil
}

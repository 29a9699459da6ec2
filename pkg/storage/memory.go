package storage

import (
	"context"
	"sync"
)

// Memory is an in-process adapter with an optional per-key size limit.
// A zero Limit means unbounded.
type Memory struct {
	Limit int

	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemory(limit int) *Memory {
	return &Memory{Limit: limit, data: make(map[string][]byte)}
}

func (m *Memory) Save(_ context.Context, key string, data []byte) error {
	if m.Limit > 0 && len(data) > m.Limit {
		return &OverflowError{Size: len(data), Limit: m.Limit}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data == nil {
		m.data = make(map[string][]byte)
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	m.data[key] = buf
	return nil
}

func (m *Memory) Load(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	return buf, nil
}

func (m *Memory) Clear(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

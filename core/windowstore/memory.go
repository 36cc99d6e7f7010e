package windowstore

import (
	"context"
	"sync"
	"time"
)

// Memory keeps windows in process memory.
type Memory struct {
	mu      sync.RWMutex
	windows map[string]time.Time
}

func NewMemory() *Memory {
	return &Memory{windows: make(map[string]time.Time)}
}

func (m *Memory) Load(_ context.Context, mapping string) (time.Time, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.windows[mapping], nil
}

func (m *Memory) Save(_ context.Context, mapping string, end time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.windows[mapping] = end
	return nil
}

func (m *Memory) Reset(_ context.Context, mapping string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.windows, mapping)
	return nil
}

func (m *Memory) List(context.Context) (map[string]time.Time, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]time.Time, len(m.windows))
	for k, v := range m.windows {
		out[k] = v
	}
	return out, nil
}

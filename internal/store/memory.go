package store

import (
	"context"
	"sync"
)

// MemoryBackend keeps rows in process memory. It is the default backend and
// the one used by most tests.
type MemoryBackend struct {
	mu          sync.Mutex
	collections map[string]map[string]Row
}

// NewMemoryBackend creates an empty MemoryBackend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{collections: make(map[string]map[string]Row)}
}

func (m *MemoryBackend) Load(_ context.Context, collection string) ([]Row, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rows := make([]Row, 0, len(m.collections[collection]))
	for _, row := range m.collections[collection] {
		rows = append(rows, cloneRow(row))
	}
	return rows, nil
}

func (m *MemoryBackend) Put(_ context.Context, collection string, row Row) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rows, ok := m.collections[collection]
	if !ok {
		rows = make(map[string]Row)
		m.collections[collection] = rows
	}
	rows[row.ID] = cloneRow(row)
	return nil
}

func (m *MemoryBackend) Delete(_ context.Context, collection, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.collections[collection], id)
	return nil
}

func cloneRow(row Row) Row {
	row.Data = append([]byte(nil), row.Data...)
	return row
}

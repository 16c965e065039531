package store

import (
	"context"
	"sync"

	"webreplay/backend/internal/models"
)

// Memory is a map-backed Store for tests and database-less runs.
type Memory struct {
	notifier
	mu      sync.Mutex
	records Snapshot
}

func NewMemory() *Memory {
	return &Memory{records: Snapshot{}}
}

func (m *Memory) Load(ctx context.Context) (Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.records.Clone(), nil
}

func (m *Memory) Save(ctx context.Context, rec models.AutomationRecord) error {
	m.mu.Lock()
	old := m.records.Clone()
	m.records[rec.UID] = rec
	cur := m.records.Clone()
	m.mu.Unlock()
	m.emit(old, cur)
	return nil
}

func (m *Memory) Delete(ctx context.Context, uid string) error {
	m.mu.Lock()
	old := m.records.Clone()
	delete(m.records, uid)
	cur := m.records.Clone()
	m.mu.Unlock()
	m.emit(old, cur)
	return nil
}

func (m *Memory) Subscribe(fn func(Change)) func() {
	return m.subscribe(fn)
}

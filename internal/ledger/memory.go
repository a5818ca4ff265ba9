package ledger

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Memory is the in-process ledger backend. It is the default and is also
// what local development runs against.
type Memory struct {
	mu      sync.Mutex
	records map[string]AppointmentRecord
	now     func() time.Time
}

// NewMemory creates an empty in-memory ledger.
func NewMemory() *Memory {
	return &Memory{
		records: make(map[string]AppointmentRecord),
		now:     time.Now,
	}
}

func (m *Memory) Name() string { return "memory" }

func (m *Memory) Record(ctx context.Context, rec AppointmentRecord) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.Status == "" {
		rec.Status = StatusBooked
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = m.now()
	}
	m.records[rec.ID] = rec
	return rec.ID, nil
}

func (m *Memory) UpdateStatus(ctx context.Context, id, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[id]
	if !ok {
		return ErrRecordNotFound
	}
	rec.Status = status
	m.records[id] = rec
	return nil
}

// Get returns a stored record. Used by tests and the health summary.
func (m *Memory) Get(id string) (AppointmentRecord, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[id]
	return rec, ok
}

// Len reports the number of stored records.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

func (m *Memory) Close() error { return nil }

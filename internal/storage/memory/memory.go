// Package memory is an in-process storage.Storage. Nothing survives the
// process; it exists so the record store and the handlers can be tested
// without a database file.
package memory

import (
	"context"
	"sync"

	"github.com/aanand-mishra/student-records/internal/storage"
)

// Memory is a map-backed slot store. The zero value is not usable; call New.
type Memory struct {
	mu    sync.Mutex
	slots map[string][]byte

	// FailWrites, when non-nil, is returned by every Write. Tests use it to
	// simulate a backend that has gone away.
	FailWrites error

	// Writes counts successful Write calls.
	Writes int

	// Closed is set by Close.
	Closed bool
}

// New returns an empty Memory.
func New() *Memory {
	return &Memory{slots: map[string][]byte{}}
}

// Seed stores blob under key without counting it as a Write.
func (m *Memory) Seed(key string, blob []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.slots[key] = append([]byte(nil), blob...)
}

func (m *Memory) Read(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	blob, ok := m.slots[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return append([]byte(nil), blob...), nil
}

func (m *Memory) Write(_ context.Context, key string, blob []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailWrites != nil {
		return m.FailWrites
	}
	m.slots[key] = append([]byte(nil), blob...)
	m.Writes++
	return nil
}

func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Closed = true
	return nil
}

// Package history keeps a bounded linear undo/redo stack of whole document snapshots.
package history

import (
	"sync"

	"github.com/adgenesis/adgenesis/engine-go/internal/document"
)

// DefaultCapacity is the maximum number of snapshots retained.
const DefaultCapacity = 50

// Option configures a Manager.
type Option func(*Manager)

// WithCapacity lowers the snapshot limit. Values below 1 are ignored and values above
// DefaultCapacity are clamped to it.
func WithCapacity(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.capacity = min(n, DefaultCapacity)
		}
	}
}

// Manager holds snapshots[0..len-1] and a pointer to the current one. Committing after
// an undo discards the redo tail; exceeding the capacity drops the oldest snapshot.
type Manager struct {
	mu        sync.RWMutex
	snapshots []*document.Document
	index     int
	capacity  int
}

// New returns a manager whose only snapshot is initial.
func New(initial *document.Document, opts ...Option) *Manager {
	m := &Manager{capacity: DefaultCapacity}
	for _, opt := range opts {
		opt(m)
	}
	m.snapshots = []*document.Document{initial}
	return m
}

// Current returns the snapshot at the history pointer.
func (m *Manager) Current() *document.Document {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshots[m.index]
}

// Commit records doc as the newest snapshot and makes it current. Committing the
// snapshot that is already current records nothing.
func (m *Manager) Commit(doc *document.Document) {
	if doc == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.snapshots[m.index] == doc {
		return
	}
	m.snapshots = append(m.snapshots[:m.index+1:m.index+1], doc)
	if over := len(m.snapshots) - m.capacity; over > 0 {
		m.snapshots = append([]*document.Document(nil), m.snapshots[over:]...)
	}
	m.index = len(m.snapshots) - 1
}

// Undo steps back one snapshot and returns it. At the oldest snapshot it returns the
// current one unchanged.
func (m *Manager) Undo() *document.Document {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.index > 0 {
		m.index--
	}
	return m.snapshots[m.index]
}

// Redo steps forward one snapshot and returns it. At the newest snapshot it returns the
// current one unchanged.
func (m *Manager) Redo() *document.Document {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.index < len(m.snapshots)-1 {
		m.index++
	}
	return m.snapshots[m.index]
}

func (m *Manager) CanUndo() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.index > 0
}

func (m *Manager) CanRedo() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.index < len(m.snapshots)-1
}

// Len returns the number of retained snapshots.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.snapshots)
}

// Index returns the position of the current snapshot.
func (m *Manager) Index() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.index
}

// Capacity returns the snapshot limit.
func (m *Manager) Capacity() int {
	return m.capacity
}

// Reset discards all snapshots and starts over from doc.
func (m *Manager) Reset(doc *document.Document) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshots = []*document.Document{doc}
	m.index = 0
}

// Package feedback journals user corrections to extracted receipts. Entries
// are only recorded with the user's explicit consent and are kept for later
// review of the extraction heuristics.
package feedback

import (
	"sort"
	"sync"
	"time"
)

// Entry is one recorded correction for a previously extracted receipt.
type Entry struct {
	ID          string         `json:"id"`
	ReceiptID   string         `json:"receipt_id"`
	Corrections map[string]any `json:"corrections"`
	Consent     bool           `json:"consent"`
	CreatedAt   time.Time      `json:"created_at"`
}

// Store defines the interface for feedback persistence
type Store interface {
	// Save records a feedback entry
	Save(entry Entry) error

	// List returns all recorded entries
	List() ([]Entry, error)

	// Close closes the store
	Close() error
}

// MemoryStore implements the Store interface in memory. It is the default
// store when no journal path is configured.
type MemoryStore struct {
	mu      sync.Mutex
	entries []Entry
}

// NewMemoryStore creates a new MemoryStore instance
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Save records a feedback entry
func (m *MemoryStore) Save(entry Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, entry)
	return nil
}

// List returns all recorded entries
func (m *MemoryStore) List() ([]Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entries := make([]Entry, len(m.entries))
	copy(entries, m.entries)
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].CreatedAt.Before(entries[j].CreatedAt)
	})
	return entries, nil
}

// Close closes the store
func (m *MemoryStore) Close() error {
	return nil
}

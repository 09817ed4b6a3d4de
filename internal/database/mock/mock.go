// Package mock provides mock implementations of database interfaces for testing.
package mock

import (
	"context"
	"sync"

	"github.com/kozaktomas/facescan/internal/database"
	"github.com/kozaktomas/facescan/internal/facematch"
	"github.com/kozaktomas/facescan/internal/identity"
	"github.com/kozaktomas/facescan/internal/web/middleware"
)

// MockGalleryRepository is a mock implementation of database.GalleryRepository
type MockGalleryRepository struct {
	mu      sync.RWMutex
	entries []facematch.GalleryEntry

	// Error injection
	LoadError   error
	InsertError error
	DeleteError error
	CountError  error

	InsertCalls int
}

var _ database.GalleryRepository = (*MockGalleryRepository)(nil)

// NewMockGalleryRepository creates a mock gallery holding entries in order
func NewMockGalleryRepository(entries ...facematch.GalleryEntry) *MockGalleryRepository {
	return &MockGalleryRepository{entries: append([]facematch.GalleryEntry(nil), entries...)}
}

// LoadGallery returns a copy of the stored entries
func (m *MockGalleryRepository) LoadGallery(ctx context.Context) ([]facematch.GalleryEntry, error) {
	if m.LoadError != nil {
		return nil, m.LoadError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]facematch.GalleryEntry(nil), m.entries...), nil
}

// InsertEntries upserts entries, keeping the position of known identities
func (m *MockGalleryRepository) InsertEntries(ctx context.Context, entries []facematch.GalleryEntry) error {
	if m.InsertError != nil {
		return m.InsertError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.InsertCalls++
	for _, e := range entries {
		replaced := false
		for i := range m.entries {
			if m.entries[i].IdentityID == e.IdentityID {
				m.entries[i] = e
				replaced = true
				break
			}
		}
		if !replaced {
			m.entries = append(m.entries, e)
		}
	}
	return nil
}

// Delete removes an entry by identity id
func (m *MockGalleryRepository) Delete(ctx context.Context, identityID string) (bool, error) {
	if m.DeleteError != nil {
		return false, m.DeleteError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.entries {
		if m.entries[i].IdentityID == identityID {
			m.entries = append(m.entries[:i], m.entries[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

// Count returns the number of stored entries
func (m *MockGalleryRepository) Count(ctx context.Context) (int, error) {
	if m.CountError != nil {
		return 0, m.CountError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries), nil
}

// MockIdentityStore wraps identity.MemoryStore with error injection
type MockIdentityStore struct {
	*identity.MemoryStore

	AppendScanError  error
	ListScansError   error
	DeleteScansError error
}

var _ identity.Store = (*MockIdentityStore)(nil)

// NewMockIdentityStore creates an empty mock identity store
func NewMockIdentityStore() *MockIdentityStore {
	return &MockIdentityStore{MemoryStore: identity.NewMemoryStore()}
}

// AppendScan records a scan unless an error is injected
func (m *MockIdentityStore) AppendScan(ctx context.Context, accountID string, record *facematch.ScanRecord) error {
	if m.AppendScanError != nil {
		return m.AppendScanError
	}
	return m.MemoryStore.AppendScan(ctx, accountID, record)
}

// ListScans lists scans unless an error is injected
func (m *MockIdentityStore) ListScans(ctx context.Context, accountID string) ([]facematch.ScanRecord, error) {
	if m.ListScansError != nil {
		return nil, m.ListScansError
	}
	return m.MemoryStore.ListScans(ctx, accountID)
}

// DeleteScans clears history unless an error is injected
func (m *MockIdentityStore) DeleteScans(ctx context.Context, accountID string) (int, error) {
	if m.DeleteScansError != nil {
		return 0, m.DeleteScansError
	}
	return m.MemoryStore.DeleteScans(ctx, accountID)
}

// MockSessionRepository is a mock implementation of middleware.SessionRepository
type MockSessionRepository struct {
	mu       sync.RWMutex
	sessions map[string]middleware.StoredSession

	SaveError error
	GetError  error
}

var _ middleware.SessionRepository = (*MockSessionRepository)(nil)

// NewMockSessionRepository creates an empty mock session repository
func NewMockSessionRepository() *MockSessionRepository {
	return &MockSessionRepository{sessions: make(map[string]middleware.StoredSession)}
}

// Save stores a session
func (m *MockSessionRepository) Save(ctx context.Context, s middleware.StoredSession) error {
	if m.SaveError != nil {
		return m.SaveError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = s
	return nil
}

// Get returns a stored session or nil
func (m *MockSessionRepository) Get(ctx context.Context, sessionID string) (*middleware.StoredSession, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

// Delete removes a session
func (m *MockSessionRepository) Delete(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, sessionID)
	return nil
}

// Len returns the number of stored sessions
func (m *MockSessionRepository) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

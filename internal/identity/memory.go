package identity

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kozaktomas/facescan/internal/facematch"
)

type memoryAccount struct {
	Account
	passwordHash string
	scans        []facematch.ScanRecord
}

// MemoryStore is an in-process Store. It is used when no database is
// configured and in tests.
type MemoryStore struct {
	mu      sync.RWMutex
	byID    map[string]*memoryAccount
	byEmail map[string]*memoryAccount
	now     func() time.Time
}

// NewMemoryStore creates an empty in-memory identity store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:    make(map[string]*memoryAccount),
		byEmail: make(map[string]*memoryAccount),
		now:     time.Now,
	}
}

// CreateAccount registers a new account.
func (s *MemoryStore) CreateAccount(ctx context.Context, email, password string) (*Account, error) {
	email = NormalizeEmail(email)
	if err := ValidateRegistration(email, password); err != nil {
		return nil, err
	}
	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byEmail[email]; ok {
		return nil, ErrAccountExists
	}

	acc := &memoryAccount{
		Account: Account{
			ID:        uuid.NewString(),
			Email:     email,
			CreatedAt: s.now().UTC(),
		},
		passwordHash: hash,
	}
	s.byID[acc.ID] = acc
	s.byEmail[email] = acc

	out := acc.Account
	return &out, nil
}

// VerifyCredential returns the account when the password matches.
func (s *MemoryStore) VerifyCredential(ctx context.Context, email, password string) (*Account, error) {
	s.mu.RLock()
	acc, ok := s.byEmail[NormalizeEmail(email)]
	s.mu.RUnlock()

	if !ok || !CheckPassword(acc.passwordHash, password) {
		return nil, ErrInvalidCredentials
	}
	out := acc.Account
	return &out, nil
}

// GetAccount returns an account by id.
func (s *MemoryStore) GetAccount(ctx context.Context, id string) (*Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	acc, ok := s.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := acc.Account
	return &out, nil
}

// AppendScan adds a scan record to the account's history.
func (s *MemoryStore) AppendScan(ctx context.Context, accountID string, record *facematch.ScanRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.byID[accountID]
	if !ok {
		return ErrNotFound
	}
	rec := *record
	rec.Matches = append([]facematch.Match(nil), record.Matches...)
	acc.scans = append(acc.scans, rec)
	return nil
}

// ListScans returns the account's scans, oldest first.
func (s *MemoryStore) ListScans(ctx context.Context, accountID string) ([]facematch.ScanRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	acc, ok := s.byID[accountID]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]facematch.ScanRecord{}, acc.scans...), nil
}

// GetScan returns a single scan of the account.
func (s *MemoryStore) GetScan(ctx context.Context, accountID, scanID string) (*facematch.ScanRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	acc, ok := s.byID[accountID]
	if !ok {
		return nil, ErrNotFound
	}
	for i := range acc.scans {
		if acc.scans[i].ScanID == scanID {
			rec := acc.scans[i]
			return &rec, nil
		}
	}
	return nil, ErrNotFound
}

// DeleteScans removes the account's whole scan history.
func (s *MemoryStore) DeleteScans(ctx context.Context, accountID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.byID[accountID]
	if !ok {
		return 0, ErrNotFound
	}
	n := len(acc.scans)
	acc.scans = nil
	return n, nil
}

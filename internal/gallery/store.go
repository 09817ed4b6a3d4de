package gallery

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/kozaktomas/facescan/internal/facematch"
)

// ErrNotFound is returned when an identity is not in the gallery.
var ErrNotFound = errors.New("gallery entry not found")

// Store is a live gallery. Readers get immutable snapshots; writers build a
// new snapshot and swap it in, so a scan never sees a half-applied change.
type Store struct {
	current atomic.Pointer[Index]
	mu      sync.Mutex // serializes writers
}

// NewStore creates a store holding entries.
func NewStore(entries []facematch.GalleryEntry) *Store {
	s := &Store{}
	s.current.Store(New(entries))
	return s
}

// Snapshot returns the current immutable index.
func (s *Store) Snapshot() *Index {
	return s.current.Load()
}

// All implements facematch.Gallery with the current snapshot.
func (s *Store) All() []facematch.GalleryEntry {
	return s.Snapshot().All()
}

// Add appends entries. Each must match the gallery's descriptor length, and
// identity ids must be new.
func (s *Store) Add(entries ...facematch.GalleryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.current.Load()
	next := make([]facematch.GalleryEntry, 0, cur.Len()+len(entries))
	next = append(next, cur.All()...)

	for _, e := range entries {
		if e.IdentityID == "" {
			return errors.New("gallery entry requires an identity id")
		}
		if _, ok := cur.Get(e.IdentityID); ok {
			return fmt.Errorf("gallery entry %q already exists", e.IdentityID)
		}
		next = append(next, e)
	}
	if err := Validate(next); err != nil {
		return err
	}

	s.current.Store(New(next))
	return nil
}

// Remove deletes the entry with the given identity id.
func (s *Store) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.current.Load()
	if _, ok := cur.Get(id); !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	next := make([]facematch.GalleryEntry, 0, cur.Len()-1)
	for _, e := range cur.All() {
		if e.IdentityID != id {
			next = append(next, e)
		}
	}
	s.current.Store(New(next))
	return nil
}

// Replace swaps the whole gallery, for example after a reload.
func (s *Store) Replace(entries []facematch.GalleryEntry) error {
	if err := Validate(entries); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current.Store(New(entries))
	return nil
}

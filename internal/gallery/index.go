// Package gallery holds the reference identities a scan is compared against.
package gallery

import (
	"github.com/kozaktomas/facescan/internal/facematch"
)

// Index is an immutable set of gallery entries.
type Index struct {
	entries []facematch.GalleryEntry
	byID    map[string]int
}

// New builds an index from a copy of entries. Later entries with a
// duplicate identity id replace earlier ones in Get but both stay in All.
func New(entries []facematch.GalleryEntry) *Index {
	idx := &Index{
		entries: make([]facematch.GalleryEntry, len(entries)),
		byID:    make(map[string]int, len(entries)),
	}
	for i, e := range entries {
		e.Descriptor = append(facematch.Descriptor(nil), e.Descriptor...)
		idx.entries[i] = e
		idx.byID[e.IdentityID] = i
	}
	return idx
}

// All returns the entries in gallery order. The slice is shared and must
// not be modified.
func (idx *Index) All() []facematch.GalleryEntry {
	return idx.entries
}

// Len returns the number of entries.
func (idx *Index) Len() int {
	return len(idx.entries)
}

// Get returns the entry with the given identity id.
func (idx *Index) Get(id string) (facematch.GalleryEntry, bool) {
	i, ok := idx.byID[id]
	if !ok {
		return facematch.GalleryEntry{}, false
	}
	return idx.entries[i], true
}

// Dim returns the descriptor length of the first entry, or 0 when empty.
func (idx *Index) Dim() int {
	if len(idx.entries) == 0 {
		return 0
	}
	return len(idx.entries[0].Descriptor)
}

// FindByName returns entries whose display name matches name, ignoring
// case and diacritics.
func (idx *Index) FindByName(name string) []facematch.GalleryEntry {
	want := facematch.NormalizeName(name)
	var out []facematch.GalleryEntry
	for _, e := range idx.entries {
		if facematch.NormalizeName(e.DisplayName) == want {
			out = append(out, e)
		}
	}
	return out
}

// Validate checks that every entry has a descriptor of the same length.
// It returns a *facematch.DimensionError naming the first offending entry.
func Validate(entries []facematch.GalleryEntry) error {
	if len(entries) == 0 {
		return nil
	}
	want := len(entries[0].Descriptor)
	for _, e := range entries[1:] {
		if len(e.Descriptor) != want {
			return &facematch.DimensionError{Want: want, Got: len(e.Descriptor), IdentityID: e.IdentityID}
		}
	}
	return nil
}

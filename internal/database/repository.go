// Package database declares the storage interfaces implemented by the
// postgres, mariadb and mock backends.
package database

import (
	"context"

	"github.com/kozaktomas/facescan/internal/facematch"
)

// GalleryReader loads the reference gallery in its stable order.
type GalleryReader interface {
	LoadGallery(ctx context.Context) ([]facematch.GalleryEntry, error)
}

// GalleryWriter persists reference identities.
type GalleryWriter interface {
	// InsertEntries upserts entries; existing identities keep their position.
	InsertEntries(ctx context.Context, entries []facematch.GalleryEntry) error
	// Delete removes an entry and reports whether it existed.
	Delete(ctx context.Context, identityID string) (bool, error)
	Count(ctx context.Context) (int, error)
}

// GalleryRepository is a gallery backend that can both read and write.
type GalleryRepository interface {
	GalleryReader
	GalleryWriter
}

package gallery

import (
	"context"
	"time"

	"github.com/kozaktomas/facescan/internal/facematch"
)

// Loader produces the initial gallery entries.
type Loader interface {
	LoadGallery(ctx context.Context) ([]facematch.GalleryEntry, error)
}

// YAMLLoader loads entries from a seed file.
type YAMLLoader struct {
	Path string
}

// LoadGallery implements Loader.
func (l YAMLLoader) LoadGallery(_ context.Context) ([]facematch.GalleryEntry, error) {
	return LoadYAML(l.Path)
}

// DemoLoader generates a demonstration gallery.
type DemoLoader struct {
	Size int
	Dim  int
	Seed uint64
	Now  time.Time
}

// LoadGallery implements Loader.
func (l DemoLoader) LoadGallery(_ context.Context) ([]facematch.GalleryEntry, error) {
	now := l.Now
	if now.IsZero() {
		now = time.Now()
	}
	return Generate(l.Size, l.Dim, l.Seed, now), nil
}

// Load runs a loader and wraps the result in a Store.
func Load(ctx context.Context, l Loader) (*Store, error) {
	entries, err := l.LoadGallery(ctx)
	if err != nil {
		return nil, err
	}
	if err := Validate(entries); err != nil {
		return nil, err
	}
	return NewStore(entries), nil
}

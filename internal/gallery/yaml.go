package gallery

import (
	"fmt"
	"io"
	"os"

	"github.com/kozaktomas/facescan/internal/facematch"
	"gopkg.in/yaml.v3"
)

// seedFile is the on-disk layout of a gallery seed file.
type seedFile struct {
	Entries []facematch.GalleryEntry `yaml:"entries"`
}

// ParseYAML decodes a gallery seed document and validates descriptor lengths.
func ParseYAML(data []byte) ([]facematch.GalleryEntry, error) {
	var f seedFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse gallery yaml: %w", err)
	}
	for i, e := range f.Entries {
		if e.IdentityID == "" {
			return nil, fmt.Errorf("gallery entry %d has no id", i)
		}
	}
	if err := Validate(f.Entries); err != nil {
		return nil, err
	}
	return f.Entries, nil
}

// LoadYAML reads a gallery seed file from disk.
func LoadYAML(path string) ([]facematch.GalleryEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read gallery file: %w", err)
	}
	return ParseYAML(data)
}

// WriteYAML encodes entries as a gallery seed document.
func WriteYAML(w io.Writer, entries []facematch.GalleryEntry) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(seedFile{Entries: entries}); err != nil {
		return fmt.Errorf("encode gallery yaml: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("close yaml encoder: %w", err)
	}
	return nil
}

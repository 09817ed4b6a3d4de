package mariadb

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/kozaktomas/facescan/internal/database"
	"github.com/kozaktomas/facescan/internal/facematch"
)

// GalleryReader loads reference identities from the reference_faces table.
// Descriptors are stored as JSON, either a flat list [e1, e2, ...] or a
// single-element list of lists [[e1, e2, ...]]. The DSN needs parseTime=true.
type GalleryReader struct {
	pool *Pool
}

// NewGalleryReader creates a gallery reader over pool.
func NewGalleryReader(pool *Pool) *GalleryReader {
	return &GalleryReader{pool: pool}
}

var _ database.GalleryReader = (*GalleryReader)(nil)

// LoadGallery returns every reference identity ordered by its row id.
func (r *GalleryReader) LoadGallery(ctx context.Context) ([]facematch.GalleryEntry, error) {
	query := `
		SELECT identity_id, display_name, location, source_tag, captured_at, descriptor_json,
		       age_estimate, gender_label, ethnicity_label
		FROM reference_faces
		ORDER BY id
	`

	rows, err := r.pool.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query reference faces: %w", err)
	}
	defer rows.Close()

	var entries []facematch.GalleryEntry
	for rows.Next() {
		var (
			e          facematch.GalleryEntry
			capturedAt sql.NullTime
			data       []byte
		)
		err := rows.Scan(&e.IdentityID, &e.DisplayName, &e.Location, &e.SourceTag, &capturedAt, &data,
			&e.Demographics.AgeEstimate, &e.Demographics.GenderLabel, &e.Demographics.EthnicityLabel)
		if err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		if capturedAt.Valid {
			e.CapturedAt = capturedAt.Time.UTC()
		}
		e.Descriptor, err = DecodeDescriptor(data)
		if err != nil {
			return nil, fmt.Errorf("identity %s: %w", e.IdentityID, err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return entries, nil
}

// DecodeDescriptor parses a JSON descriptor in either stored shape.
func DecodeDescriptor(data []byte) (facematch.Descriptor, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, errors.New("empty descriptor")
	}

	if bytes.HasPrefix(data, []byte("[[")) {
		var wrapped [][]float32
		if err := json.Unmarshal(data, &wrapped); err != nil {
			return nil, fmt.Errorf("unmarshal descriptor: %w", err)
		}
		if len(wrapped) != 1 {
			return nil, fmt.Errorf("expected one descriptor, got %d", len(wrapped))
		}
		return wrapped[0], nil
	}

	var flat []float32
	if err := json.Unmarshal(data, &flat); err != nil {
		return nil, fmt.Errorf("unmarshal descriptor: %w", err)
	}
	return flat, nil
}

// EncodeDescriptor renders a descriptor in the flat JSON shape.
func EncodeDescriptor(d facematch.Descriptor) ([]byte, error) {
	data, err := json.Marshal([]float32(d))
	if err != nil {
		return nil, fmt.Errorf("marshal descriptor: %w", err)
	}
	return data, nil
}

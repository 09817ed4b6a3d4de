package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/kozaktomas/facescan/internal/database"
	"github.com/kozaktomas/facescan/internal/facematch"
	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
)

// GalleryRepository stores reference identities in PostgreSQL. Entries are
// returned in insertion order so ranking tie-breaks stay stable across loads.
type GalleryRepository struct {
	pool *Pool
}

// NewGalleryRepository creates a new PostgreSQL gallery repository.
func NewGalleryRepository(pool *Pool) *GalleryRepository {
	return &GalleryRepository{pool: pool}
}

const galleryColumns = `identity_id, display_name, location, source_tag, captured_at, descriptor,
		       age_estimate, gender_label, ethnicity_label`

var _ database.GalleryRepository = (*GalleryRepository)(nil)

// LoadGallery returns every stored entry in insertion order.
func (r *GalleryRepository) LoadGallery(ctx context.Context) ([]facematch.GalleryEntry, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+galleryColumns+` FROM gallery_entries ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("query gallery: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

// GetByIDs returns the entries with the given identity ids in insertion order.
func (r *GalleryRepository) GetByIDs(ctx context.Context, ids []string) ([]facematch.GalleryEntry, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := r.pool.Query(ctx,
		`SELECT `+galleryColumns+` FROM gallery_entries WHERE identity_id = ANY($1) ORDER BY position`,
		pq.Array(ids),
	)
	if err != nil {
		return nil, fmt.Errorf("query gallery by ids: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

// InsertEntries upserts entries in one transaction. An existing identity keeps
// its original position.
func (r *GalleryRepository) InsertEntries(ctx context.Context, entries []facematch.GalleryEntry) error {
	tx, err := r.pool.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO gallery_entries (identity_id, display_name, location, source_tag, captured_at, descriptor,
		                             age_estimate, gender_label, ethnicity_label)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (identity_id) DO UPDATE SET
			display_name = EXCLUDED.display_name,
			location = EXCLUDED.location,
			source_tag = EXCLUDED.source_tag,
			captured_at = EXCLUDED.captured_at,
			descriptor = EXCLUDED.descriptor,
			age_estimate = EXCLUDED.age_estimate,
			gender_label = EXCLUDED.gender_label,
			ethnicity_label = EXCLUDED.ethnicity_label
	`)
	if err != nil {
		return fmt.Errorf("prepare gallery insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range entries {
		_, err := stmt.ExecContext(ctx,
			e.IdentityID, e.DisplayName, e.Location, e.SourceTag, e.CapturedAt.UTC(),
			pgvector.NewVector(e.Descriptor),
			e.Demographics.AgeEstimate, e.Demographics.GenderLabel, e.Demographics.EthnicityLabel,
		)
		if err != nil {
			return fmt.Errorf("insert gallery entry %s: %w", e.IdentityID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit gallery insert: %w", err)
	}
	return nil
}

// Count returns the number of stored entries.
func (r *GalleryRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM gallery_entries").Scan(&count); err != nil {
		return 0, fmt.Errorf("count gallery entries: %w", err)
	}
	return count, nil
}

// Delete removes one entry and reports whether it existed.
func (r *GalleryRepository) Delete(ctx context.Context, identityID string) (bool, error) {
	result, err := r.pool.Exec(ctx, "DELETE FROM gallery_entries WHERE identity_id = $1", identityID)
	if err != nil {
		return false, fmt.Errorf("delete gallery entry: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("getting rows affected: %w", err)
	}
	return n > 0, nil
}

func scanEntries(rows *sql.Rows) ([]facematch.GalleryEntry, error) {
	var entries []facematch.GalleryEntry
	for rows.Next() {
		var (
			e   facematch.GalleryEntry
			vec pgvector.Vector
		)
		err := rows.Scan(
			&e.IdentityID, &e.DisplayName, &e.Location, &e.SourceTag, &e.CapturedAt, &vec,
			&e.Demographics.AgeEstimate, &e.Demographics.GenderLabel, &e.Demographics.EthnicityLabel,
		)
		if err != nil {
			return nil, fmt.Errorf("scan gallery entry: %w", err)
		}
		e.Descriptor = vec.Slice()
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate gallery entries: %w", err)
	}
	return entries, nil
}

package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kozaktomas/facescan/internal/facematch"
	"github.com/kozaktomas/facescan/internal/identity"
	"github.com/lib/pq"
)

const uniqueViolation = "23505"

// AccountRepository is the PostgreSQL identity store. Scan matches are kept
// as JSONB next to the scan row.
type AccountRepository struct {
	pool *Pool
	now  func() time.Time
}

// NewAccountRepository creates a new PostgreSQL account repository.
func NewAccountRepository(pool *Pool) *AccountRepository {
	return &AccountRepository{pool: pool, now: time.Now}
}

var _ identity.Store = (*AccountRepository)(nil)

// CreateAccount registers a new account.
func (r *AccountRepository) CreateAccount(ctx context.Context, email, password string) (*identity.Account, error) {
	email = identity.NormalizeEmail(email)
	if err := identity.ValidateRegistration(email, password); err != nil {
		return nil, err
	}
	hash, err := identity.HashPassword(password)
	if err != nil {
		return nil, err
	}

	acc := &identity.Account{ID: uuid.NewString(), Email: email, CreatedAt: r.now().UTC()}
	_, err = r.pool.Exec(ctx,
		"INSERT INTO accounts (id, email, password_hash, created_at) VALUES ($1, $2, $3, $4)",
		acc.ID, acc.Email, hash, acc.CreatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return nil, identity.ErrAccountExists
		}
		return nil, fmt.Errorf("insert account: %w", err)
	}
	return acc, nil
}

// VerifyCredential returns the account when the password matches.
func (r *AccountRepository) VerifyCredential(ctx context.Context, email, password string) (*identity.Account, error) {
	var (
		acc  identity.Account
		hash string
	)
	err := r.pool.QueryRow(ctx,
		"SELECT id, email, password_hash, created_at FROM accounts WHERE email = $1",
		identity.NormalizeEmail(email),
	).Scan(&acc.ID, &acc.Email, &hash, &acc.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, identity.ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("query account: %w", err)
	}
	if !identity.CheckPassword(hash, password) {
		return nil, identity.ErrInvalidCredentials
	}
	return &acc, nil
}

// GetAccount returns an account by id.
func (r *AccountRepository) GetAccount(ctx context.Context, id string) (*identity.Account, error) {
	var acc identity.Account
	err := r.pool.QueryRow(ctx, "SELECT id, email, created_at FROM accounts WHERE id = $1", id).
		Scan(&acc.ID, &acc.Email, &acc.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, identity.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query account: %w", err)
	}
	return &acc, nil
}

// AppendScan stores a scan record in the account's history.
func (r *AccountRepository) AppendScan(ctx context.Context, accountID string, record *facematch.ScanRecord) error {
	matches := record.Matches
	if matches == nil {
		matches = []facematch.Match{}
	}
	data, err := json.Marshal(matches)
	if err != nil {
		return fmt.Errorf("marshal matches: %w", err)
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO scans (scan_id, account_id, requested_at, source_image_ref, match_count, matches, degraded, degraded_reason)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, record.ScanID, accountID, record.RequestedAt.UTC(), record.SourceImageRef, record.MatchCount,
		data, record.Degraded, record.DegradedReason)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23503" {
			return identity.ErrNotFound
		}
		return fmt.Errorf("insert scan: %w", err)
	}
	return nil
}

const scanColumns = "scan_id, requested_at, source_image_ref, match_count, matches, degraded, degraded_reason"

// ListScans returns the account's scans, oldest first.
func (r *AccountRepository) ListScans(ctx context.Context, accountID string) ([]facematch.ScanRecord, error) {
	if _, err := r.GetAccount(ctx, accountID); err != nil {
		return nil, err
	}
	rows, err := r.pool.Query(ctx,
		"SELECT "+scanColumns+" FROM scans WHERE account_id = $1 ORDER BY id", accountID)
	if err != nil {
		return nil, fmt.Errorf("query scans: %w", err)
	}
	defer rows.Close()

	scans := []facematch.ScanRecord{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		scans = append(scans, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate scans: %w", err)
	}
	return scans, nil
}

// GetScan returns a single scan of the account.
func (r *AccountRepository) GetScan(ctx context.Context, accountID, scanID string) (*facematch.ScanRecord, error) {
	row := r.pool.QueryRow(ctx,
		"SELECT "+scanColumns+" FROM scans WHERE account_id = $1 AND scan_id = $2", accountID, scanID)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, identity.ErrNotFound
	}
	return rec, err
}

// DeleteScans removes the account's whole scan history.
func (r *AccountRepository) DeleteScans(ctx context.Context, accountID string) (int, error) {
	if _, err := r.GetAccount(ctx, accountID); err != nil {
		return 0, err
	}
	result, err := r.pool.Exec(ctx, "DELETE FROM scans WHERE account_id = $1", accountID)
	if err != nil {
		return 0, fmt.Errorf("delete scans: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("getting rows affected: %w", err)
	}
	return int(n), nil
}

func scanRecord(scanner interface{ Scan(...any) error }) (*facematch.ScanRecord, error) {
	var (
		rec  facematch.ScanRecord
		data []byte
	)
	err := scanner.Scan(&rec.ScanID, &rec.RequestedAt, &rec.SourceImageRef, &rec.MatchCount,
		&data, &rec.Degraded, &rec.DegradedReason)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scan record: %w", err)
	}
	if err := json.Unmarshal(data, &rec.Matches); err != nil {
		return nil, fmt.Errorf("unmarshal matches: %w", err)
	}
	return &rec, nil
}

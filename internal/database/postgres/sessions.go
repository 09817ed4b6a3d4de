package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/kozaktomas/facescan/internal/logger"
	"github.com/kozaktomas/facescan/internal/web/middleware"
	"go.uber.org/zap"
)

const (
	upsertSessionSQL = `
		INSERT INTO sessions (id, account_id, email, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET expires_at = EXCLUDED.expires_at`

	selectLiveSessionSQL = `
		SELECT id, account_id, email, created_at, expires_at
		FROM sessions
		WHERE id = $1 AND expires_at > NOW()`
)

// SessionRepository persists web sessions so they survive restarts.
type SessionRepository struct {
	pool *Pool
}

func NewSessionRepository(pool *Pool) *SessionRepository {
	return &SessionRepository{pool: pool}
}

var _ middleware.SessionRepository = (*SessionRepository)(nil)

// Save stores s. Saving an existing id only moves its expiry.
func (r *SessionRepository) Save(ctx context.Context, s middleware.StoredSession) error {
	if _, err := r.pool.Exec(ctx, upsertSessionSQL, s.ID, s.AccountID, s.Email, s.CreatedAt, s.ExpiresAt); err != nil {
		return fmt.Errorf("saving session: %w", err)
	}
	return nil
}

// Get returns the live session with the given id. Expired and unknown ids
// both yield nil, nil.
func (r *SessionRepository) Get(ctx context.Context, sessionID string) (*middleware.StoredSession, error) {
	var s middleware.StoredSession
	err := r.pool.QueryRow(ctx, selectLiveSessionSQL, sessionID).
		Scan(&s.ID, &s.AccountID, &s.Email, &s.CreatedAt, &s.ExpiresAt)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("loading session: %w", err)
	}
	return &s, nil
}

func (r *SessionRepository) Delete(ctx context.Context, sessionID string) error {
	if _, err := r.pool.Exec(ctx, "DELETE FROM sessions WHERE id = $1", sessionID); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}

// DeleteExpired purges sessions past their expiry and returns how many.
func (r *SessionRepository) DeleteExpired(ctx context.Context) (int64, error) {
	result, err := r.pool.Exec(ctx, "DELETE FROM sessions WHERE expires_at <= NOW()")
	if err != nil {
		return 0, fmt.Errorf("purging sessions: %w", err)
	}
	return result.RowsAffected()
}

// RunCleanup purges expired sessions every interval until ctx is done.
func (r *SessionRepository) RunCleanup(ctx context.Context, interval time.Duration) {
	log := logger.FromContext(ctx)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := r.DeleteExpired(ctx)
			if err != nil {
				if ctx.Err() == nil {
					log.Warn("session cleanup failed", zap.Error(err))
				}
				continue
			}
			if n > 0 {
				log.Info("purged expired sessions", zap.Int64("count", n))
			}
		}
	}
}

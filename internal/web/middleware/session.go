package middleware

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/kozaktomas/facescan/internal/logger"
	"go.uber.org/zap"
)

const (
	sessionCookieName = "facescan_session"
	defaultSessionTTL = 24 * time.Hour
	devSessionSecret  = "facescan-dev-secret-change-in-production"
)

// Session binds a signed cookie or bearer token to an account.
type Session struct {
	ID        string
	AccountID string
	Email     string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// StoredSession is the persisted form of a session.
type StoredSession Session

// SessionRepository persists sessions across restarts. Get returns nil, nil
// for unknown or expired sessions.
type SessionRepository interface {
	Save(ctx context.Context, s StoredSession) error
	Get(ctx context.Context, sessionID string) (*StoredSession, error)
	Delete(ctx context.Context, sessionID string) error
}

// SessionOption configures a SessionManager.
type SessionOption func(*SessionManager)

// WithSessionTTL sets how long new sessions stay valid.
func WithSessionTTL(ttl time.Duration) SessionOption {
	return func(sm *SessionManager) {
		if ttl > 0 {
			sm.ttl = ttl
		}
	}
}

// WithSecureCookie marks the session cookie Secure. Enable behind HTTPS.
func WithSecureCookie(secure bool) SessionOption {
	return func(sm *SessionManager) { sm.secure = secure }
}

// SessionManager issues and validates sessions. Live sessions are cached in
// memory; the optional repository is the source of truth across restarts.
type SessionManager struct {
	secret []byte
	repo   SessionRepository
	ttl    time.Duration
	secure bool
	now    func() time.Time

	mu    sync.RWMutex
	cache map[string]*Session
}

// NewSessionManager returns a manager signing with secret. An empty secret
// falls back to a fixed development value. repo may be nil.
func NewSessionManager(secret string, repo SessionRepository, opts ...SessionOption) *SessionManager {
	if secret == "" {
		secret = devSessionSecret
	}
	sm := &SessionManager{
		secret: []byte(secret),
		repo:   repo,
		ttl:    defaultSessionTTL,
		now:    time.Now,
		cache:  make(map[string]*Session),
	}
	for _, opt := range opts {
		opt(sm)
	}
	return sm
}

// CreateSession starts a session for an account and persists it when a
// repository is configured.
func (sm *SessionManager) CreateSession(ctx context.Context, accountID, email string) (*Session, error) {
	id, err := newSessionID()
	if err != nil {
		return nil, err
	}
	now := sm.now()
	session := &Session{
		ID:        id,
		AccountID: accountID,
		Email:     email,
		CreatedAt: now,
		ExpiresAt: now.Add(sm.ttl),
	}

	if sm.repo != nil {
		if err := sm.repo.Save(ctx, StoredSession(*session)); err != nil {
			return nil, fmt.Errorf("persisting session: %w", err)
		}
	}

	sm.mu.Lock()
	sm.evictExpiredLocked(now)
	sm.cache[id] = session
	sm.mu.Unlock()
	return session, nil
}

// GetSession returns the live session with the given id, consulting the
// repository on a cache miss. Expired sessions are deleted and yield nil.
func (sm *SessionManager) GetSession(ctx context.Context, sessionID string) *Session {
	sm.mu.RLock()
	session := sm.cache[sessionID]
	sm.mu.RUnlock()

	if session == nil {
		session = sm.loadSession(ctx, sessionID)
		if session == nil {
			return nil
		}
	}

	if !sm.now().Before(session.ExpiresAt) {
		sm.DeleteSession(ctx, sessionID)
		return nil
	}
	return session
}

func (sm *SessionManager) loadSession(ctx context.Context, sessionID string) *Session {
	if sm.repo == nil {
		return nil
	}
	stored, err := sm.repo.Get(ctx, sessionID)
	if err != nil {
		logger.FromContext(ctx).Warn("session lookup failed", zap.Error(err))
		return nil
	}
	if stored == nil {
		return nil
	}
	session := (*Session)(stored)
	sm.mu.Lock()
	sm.cache[sessionID] = session
	sm.mu.Unlock()
	return session
}

// DeleteSession ends a session. Repository errors are logged only.
func (sm *SessionManager) DeleteSession(ctx context.Context, sessionID string) {
	sm.mu.Lock()
	delete(sm.cache, sessionID)
	sm.mu.Unlock()

	if sm.repo != nil {
		if err := sm.repo.Delete(ctx, sessionID); err != nil {
			logger.FromContext(ctx).Warn("session delete failed", zap.Error(err))
		}
	}
}

// evictExpiredLocked drops expired cache entries. Callers hold mu.
func (sm *SessionManager) evictExpiredLocked(now time.Time) {
	for id, s := range sm.cache {
		if !now.Before(s.ExpiresAt) {
			delete(sm.cache, id)
		}
	}
}

// SetSessionCookie writes the signed session cookie.
func (sm *SessionManager) SetSessionCookie(w http.ResponseWriter, session *Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    sm.token(session.ID),
		Path:     "/",
		HttpOnly: true,
		Secure:   sm.secure,
		SameSite: http.SameSiteLaxMode,
		Expires:  session.ExpiresAt,
		MaxAge:   int(session.ExpiresAt.Sub(sm.now()).Seconds()),
	})
}

// ClearSessionCookie expires the session cookie in the browser.
func (sm *SessionManager) ClearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Path:     "/",
		HttpOnly: true,
		Secure:   sm.secure,
		MaxAge:   -1,
	})
}

// GetSessionFromRequest resolves the session from the signed cookie, or
// from an "Authorization: Bearer <session id>" header for API clients.
func (sm *SessionManager) GetSessionFromRequest(r *http.Request) *Session {
	ctx := r.Context()
	if cookie, err := r.Cookie(sessionCookieName); err == nil {
		if id, ok := sm.parseToken(cookie.Value); ok {
			if session := sm.GetSession(ctx, id); session != nil {
				return session
			}
		}
	}

	if id, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok && id != "" {
		return sm.GetSession(ctx, id)
	}
	return nil
}

// token returns "<id>.<hmac(id)>".
func (sm *SessionManager) token(id string) string {
	return id + "." + sm.sign(id)
}

// parseToken verifies a cookie token and returns the session id in it.
func (sm *SessionManager) parseToken(value string) (string, bool) {
	id, sig, found := strings.Cut(value, ".")
	if !found || id == "" {
		return "", false
	}
	return id, hmac.Equal([]byte(sig), []byte(sm.sign(id)))
}

func (sm *SessionManager) sign(id string) string {
	mac := hmac.New(sha256.New, sm.secret)
	mac.Write([]byte(id))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

func newSessionID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generating session id: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// SessionData is the JSON view of a session returned by the auth endpoints.
type SessionData struct {
	SessionID string `json:"session_id"`
	AccountID string `json:"account_id"`
	Email     string `json:"email"`
	ExpiresAt string `json:"expires_at"`
}

// MarshalJSON renders the session as SessionData.
func (s *Session) MarshalJSON() ([]byte, error) {
	return json.Marshal(SessionData{
		SessionID: s.ID,
		AccountID: s.AccountID,
		Email:     s.Email,
		ExpiresAt: s.ExpiresAt.Format(time.RFC3339),
	})
}

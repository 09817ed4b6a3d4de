// Package identity stores user accounts, their credentials and their scan history.
package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kozaktomas/facescan/internal/facematch"
	"golang.org/x/crypto/bcrypt"
)

const (
	// MinPasswordLength is the shortest accepted password.
	MinPasswordLength = 8
	// MaxPasswordBytes is the longest password bcrypt can hash.
	MaxPasswordBytes = 72
)

var (
	ErrAccountExists      = errors.New("account already exists")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrNotFound           = errors.New("not found")
	ErrInvalidAccount     = errors.New("invalid account data")
)

// Account is a registered user.
type Account struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// Store is the identity store the scan flow attaches history to.
type Store interface {
	CreateAccount(ctx context.Context, email, password string) (*Account, error)
	VerifyCredential(ctx context.Context, email, password string) (*Account, error)
	GetAccount(ctx context.Context, id string) (*Account, error)
	AppendScan(ctx context.Context, accountID string, record *facematch.ScanRecord) error
	ListScans(ctx context.Context, accountID string) ([]facematch.ScanRecord, error)
	GetScan(ctx context.Context, accountID, scanID string) (*facematch.ScanRecord, error)
	DeleteScans(ctx context.Context, accountID string) (int, error)
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// NormalizeEmail trims and lowercases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateRegistration checks an email and password before an account is created.
func ValidateRegistration(email, password string) error {
	if err := validate.Var(email, "required,email"); err != nil {
		return fmt.Errorf("%w: email is not valid", ErrInvalidAccount)
	}
	if len(password) < MinPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters long", ErrInvalidAccount, MinPasswordLength)
	}
	if len(password) > MaxPasswordBytes {
		return fmt.Errorf("%w: password must be at most %d bytes long", ErrInvalidAccount, MaxPasswordBytes)
	}
	return nil
}

// HashPassword returns the bcrypt hash of password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword reports whether password matches a bcrypt hash.
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

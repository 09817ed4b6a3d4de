package identity

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/kozaktomas/facescan/internal/facematch"
)

func TestMemoryStore_CreateAndVerify(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	acc, err := s.CreateAccount(ctx, "  Jane@Example.com ", "correct horse")
	if err != nil {
		t.Fatalf("CreateAccount() error: %v", err)
	}
	if acc.Email != "jane@example.com" || acc.ID == "" {
		t.Errorf("unexpected account: %+v", acc)
	}

	got, err := s.VerifyCredential(ctx, "jane@example.com", "correct horse")
	if err != nil {
		t.Fatalf("VerifyCredential() error: %v", err)
	}
	if got.ID != acc.ID {
		t.Errorf("verified account id = %q, want %q", got.ID, acc.ID)
	}

	if _, err := s.VerifyCredential(ctx, "jane@example.com", "wrong password"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := s.VerifyCredential(ctx, "nobody@example.com", "correct horse"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials for unknown email, got %v", err)
	}
}

func TestMemoryStore_CreateAccountRejects(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	if _, err := s.CreateAccount(ctx, "jane@example.com", "password1"); err != nil {
		t.Fatalf("CreateAccount() error: %v", err)
	}

	tests := []struct {
		name     string
		email    string
		password string
		want     error
	}{
		{"duplicate", "JANE@example.com", "password2", ErrAccountExists},
		{"short password", "john@example.com", "short", ErrInvalidAccount},
		{"bad email", "not-an-email", "password1", ErrInvalidAccount},
		{"empty email", "", "password1", ErrInvalidAccount},
		{"password over bcrypt limit", "john@example.com", strings.Repeat("x", MaxPasswordBytes+1), ErrInvalidAccount},
		{"multibyte password over bcrypt limit", "john@example.com", strings.Repeat("ž", 40), ErrInvalidAccount},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := s.CreateAccount(ctx, tt.email, tt.password); !errors.Is(err, tt.want) {
				t.Errorf("CreateAccount() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestMemoryStore_PasswordAtBcryptLimit(t *testing.T) {
	s := NewMemoryStore()
	password := strings.Repeat("x", MaxPasswordBytes)
	if _, err := s.CreateAccount(context.Background(), "max@example.com", password); err != nil {
		t.Fatalf("CreateAccount() error: %v", err)
	}
	if _, err := s.VerifyCredential(context.Background(), "max@example.com", password); err != nil {
		t.Errorf("VerifyCredential() error: %v", err)
	}
}

func TestMemoryStore_ScanHistory(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	acc, err := s.CreateAccount(ctx, "jane@example.com", "password1")
	if err != nil {
		t.Fatalf("CreateAccount() error: %v", err)
	}

	rec := &facematch.ScanRecord{
		ScanID:      "scan_1",
		RequestedAt: time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC),
		Matches:     []facematch.Match{{IdentityID: "face_1", Confidence: 0.9}},
		MatchCount:  1,
	}
	if err := s.AppendScan(ctx, acc.ID, rec); err != nil {
		t.Fatalf("AppendScan() error: %v", err)
	}
	rec.Matches[0].IdentityID = "mutated"

	if err := s.AppendScan(ctx, acc.ID, &facematch.ScanRecord{ScanID: "scan_2"}); err != nil {
		t.Fatalf("AppendScan() error: %v", err)
	}

	scans, err := s.ListScans(ctx, acc.ID)
	if err != nil {
		t.Fatalf("ListScans() error: %v", err)
	}
	if len(scans) != 2 || scans[0].ScanID != "scan_1" || scans[1].ScanID != "scan_2" {
		t.Fatalf("unexpected history: %+v", scans)
	}
	if scans[0].Matches[0].IdentityID != "face_1" {
		t.Error("stored record was affected by caller mutation")
	}

	got, err := s.GetScan(ctx, acc.ID, "scan_2")
	if err != nil || got.ScanID != "scan_2" {
		t.Errorf("GetScan() = %+v, %v", got, err)
	}
	if _, err := s.GetScan(ctx, acc.ID, "scan_9"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	n, err := s.DeleteScans(ctx, acc.ID)
	if err != nil || n != 2 {
		t.Fatalf("DeleteScans() = %d, %v", n, err)
	}
	if scans, _ := s.ListScans(ctx, acc.ID); len(scans) != 0 {
		t.Errorf("history not cleared: %+v", scans)
	}
}

func TestMemoryStore_UnknownAccount(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	if _, err := s.GetAccount(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetAccount: expected ErrNotFound, got %v", err)
	}
	if err := s.AppendScan(ctx, "nope", &facematch.ScanRecord{}); !errors.Is(err, ErrNotFound) {
		t.Errorf("AppendScan: expected ErrNotFound, got %v", err)
	}
	if _, err := s.ListScans(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("ListScans: expected ErrNotFound, got %v", err)
	}
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("s3cret-pass")
	if err != nil {
		t.Fatalf("HashPassword() error: %v", err)
	}
	if hash == "s3cret-pass" {
		t.Fatal("hash must not equal the password")
	}
	if !CheckPassword(hash, "s3cret-pass") {
		t.Error("CheckPassword rejected the right password")
	}
	if CheckPassword(hash, "s3cret-pasS") {
		t.Error("CheckPassword accepted a wrong password")
	}
}

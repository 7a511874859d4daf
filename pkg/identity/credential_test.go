package identity

import (
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestHashPassword(t *testing.T) {
	password := "test-password-123"

	hash, err := HashPassword(password)
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}

	// bcrypt hashes start with $2a$ or $2b$
	if !strings.HasPrefix(hash, "$2a$") && !strings.HasPrefix(hash, "$2b$") {
		t.Errorf("HashPassword() hash = %q, want bcrypt format", hash)
	}
	if !VerifyPassword(password, hash) {
		t.Error("VerifyPassword() returned false for correct password")
	}
	if NeedsRehash(hash) {
		t.Error("NeedsRehash() = true for a default cost hash")
	}
}

func TestHashPassword_DifferentHashes(t *testing.T) {
	hash1, _ := HashPasswordWithCost("same-password", bcrypt.MinCost)
	hash2, _ := HashPasswordWithCost("same-password", bcrypt.MinCost)

	if hash1 == hash2 {
		t.Error("HashPasswordWithCost() generated same hash twice, expected different salts")
	}
	if !VerifyPassword("same-password", hash1) || !VerifyPassword("same-password", hash2) {
		t.Error("VerifyPassword() failed for a salted hash")
	}
	if !NeedsRehash(hash1) {
		t.Error("NeedsRehash() = false for a MinCost hash")
	}
}

func TestVerifyPassword(t *testing.T) {
	hash, _ := HashPasswordWithCost("my-secure-password", bcrypt.MinCost)

	tests := []struct {
		name     string
		password string
		hash     string
		want     bool
	}{
		{"correct password", "my-secure-password", hash, true},
		{"wrong password", "wrong-password", hash, false},
		{"empty password", "", hash, false},
		{"empty hash", "my-secure-password", "", false},
		{"plain text hash", "my-secure-password", "not-a-hash", false},
		{"partial bcrypt", "my-secure-password", "$2a$", false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := VerifyPassword(tc.password, tc.hash); got != tc.want {
				t.Errorf("VerifyPassword() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		wantErr  error
	}{
		{"valid password", "securepassword123", nil},
		{"minimum length password", "12345678", nil},
		{"short password", "1234567", ErrPasswordTooShort},
		{"empty password", "", ErrPasswordTooShort},
		{"maximum length password", strings.Repeat("a", 72), nil},
		{"password too long", strings.Repeat("a", 73), ErrPasswordTooLong},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if err := ValidatePassword(tc.password); err != tc.wantErr {
				t.Errorf("ValidatePassword(%q) error = %v, want %v", tc.password, err, tc.wantErr)
			}
		})
	}
}

func TestHashPassword_RejectsInvalid(t *testing.T) {
	if _, err := HashPassword("short"); err != ErrPasswordTooShort {
		t.Errorf("HashPassword(short) error = %v, want ErrPasswordTooShort", err)
	}
}

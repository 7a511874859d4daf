package models

import (
	"crypto/rand"
	"encoding/base64"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/marmos91/dittoftp/pkg/identity"
)

const (
	// AdminUsername is the account created on first start.
	AdminUsername = "admin"

	// EnvAdminInitialPassword can be used to set the initial admin password.
	// If not set, a random password is generated.
	EnvAdminInitialPassword = "DITTOFTP_ADMIN_INITIAL_PASSWORD"
)

// DefaultAdminUser creates the initial admin account with every permission.
func DefaultAdminUser(passwordHash string) *User {
	return &User{
		ID:           uuid.New().String(),
		Username:     AdminUsername,
		PasswordHash: passwordHash,
		Perms:        uint8(identity.PermAll),
		Enabled:      true,
		CreatedAt:    time.Now(),
	}
}

// GetOrGenerateAdminPassword returns the admin password from the environment
// variable if set, otherwise a random one.
func GetOrGenerateAdminPassword() (string, error) {
	if pw := os.Getenv(EnvAdminInitialPassword); pw != "" {
		return pw, nil
	}
	return GenerateRandomPassword()
}

// GenerateRandomPassword returns 24 characters of URL-safe base64 (18 random bytes).
func GenerateRandomPassword() (string, error) {
	b := make([]byte, 18)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

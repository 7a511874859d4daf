package identity

import (
	"errors"
	"fmt"
	"regexp"
)

// User is an FTP account as seen by the protocol engine.
//
// Users are immutable once handed to a Registry; a reload replaces the whole set.
type User struct {
	// Username is the login name, unique within a registry.
	Username string `json:"username" yaml:"username" mapstructure:"username"`

	// PasswordHash is the bcrypt hash checked by PASS.
	PasswordHash string `json:"-" yaml:"password_hash" mapstructure:"password_hash"`

	// Home is the directory name under the storage root the user is confined to.
	// Empty means the username.
	Home string `json:"home,omitempty" yaml:"home,omitempty" mapstructure:"home"`

	// Perms is the capability bitmask.
	Perms Permission `json:"perms" yaml:"perms" mapstructure:"perms"`
}

var (
	usernamePattern = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_-]{2,31}$`)
	homePattern     = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
)

var (
	// ErrInvalidUsername is returned for names outside [a-zA-Z][a-zA-Z0-9_-]{2,31}.
	ErrInvalidUsername = errors.New("username must start with a letter and contain 3-32 letters, digits, '_' or '-'")

	// ErrInvalidHome is returned for home names that are not a single safe path segment.
	ErrInvalidHome = errors.New("home must contain only letters, digits, '_' or '-'")

	// ErrInvalidPermission is returned for bitmasks with undefined bits.
	ErrInvalidPermission = errors.New("permission mask out of range")
)

// ValidateUsername checks the username format.
func ValidateUsername(name string) error {
	if !usernamePattern.MatchString(name) {
		return ErrInvalidUsername
	}
	return nil
}

// ValidateHome checks that home is a single path segment. Empty is allowed.
func ValidateHome(home string) error {
	if home != "" && !homePattern.MatchString(home) {
		return ErrInvalidHome
	}
	return nil
}

// HomeName returns the directory name for the user's home.
func (u User) HomeName() string {
	if u.Home != "" {
		return u.Home
	}
	return u.Username
}

// Validate checks every user field the engine relies on.
func (u *User) Validate() error {
	if err := ValidateUsername(u.Username); err != nil {
		return fmt.Errorf("user %q: %w", u.Username, err)
	}
	if err := ValidateHome(u.Home); err != nil {
		return fmt.Errorf("user %q: %w", u.Username, err)
	}
	if !u.Perms.Valid() {
		return fmt.Errorf("user %q: %w", u.Username, ErrInvalidPermission)
	}
	return nil
}

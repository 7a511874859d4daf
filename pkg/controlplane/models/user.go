// Package models defines the persisted FTP account records.
package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/marmos91/dittoftp/pkg/identity"
)

var (
	ErrUserNotFound  = errors.New("user not found")
	ErrDuplicateUser = errors.New("user already exists")
)

// AllModels lists the tables AutoMigrate manages.
func AllModels() []any {
	return []any{&User{}}
}

// User is a stored FTP account.
//
// The protocol engine never sees this type: enabled users are converted with
// Identity and handed to the supervisor's registry.
type User struct {
	ID           string     `gorm:"primaryKey;size:36" json:"id"`
	Username     string     `gorm:"uniqueIndex;not null;size:32" json:"username"`
	PasswordHash string     `gorm:"not null" json:"-"`
	Home         string     `gorm:"size:255" json:"home,omitempty"`
	Perms        uint8      `gorm:"not null;default:0" json:"perms"`
	Enabled      bool       `gorm:"default:true" json:"enabled"`
	CreatedAt    time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
	LastLogin    *time.Time `json:"last_login,omitempty"`
}

// TableName returns the table name for User.
func (User) TableName() string {
	return "users"
}

// Permission returns the capability mask.
func (u *User) Permission() identity.Permission {
	return identity.Permission(u.Perms)
}

// HomeName returns the home directory name, defaulting to the username.
func (u *User) HomeName() string {
	if u.Home != "" {
		return u.Home
	}
	return u.Username
}

// Validate checks the username, home and permission mask.
func (u *User) Validate() error {
	if err := identity.ValidateUsername(u.Username); err != nil {
		return err
	}
	if err := identity.ValidateHome(u.Home); err != nil {
		return err
	}
	if !u.Permission().Valid() {
		return fmt.Errorf("%w: %d", identity.ErrInvalidPermission, u.Perms)
	}
	return nil
}

// Identity converts the record to the engine's view of the account.
func (u *User) Identity() identity.User {
	return identity.User{
		Username:     u.Username,
		PasswordHash: u.PasswordHash,
		Home:         u.HomeName(),
		Perms:        u.Permission(),
	}
}

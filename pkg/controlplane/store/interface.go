// Package store provides persistence for FTP accounts.
//
// Two backends are supported:
//   - SQLite (single-node, default)
//   - PostgreSQL
package store

import (
	"context"
	"time"

	"github.com/marmos91/dittoftp/pkg/controlplane/models"
	"github.com/marmos91/dittoftp/pkg/identity"
)

// Store is the user store consulted by the CLI and the server.
//
// Thread Safety: Implementations must be safe for concurrent use from multiple
// goroutines.
type Store interface {
	// GetUser returns a user by username.
	// Returns models.ErrUserNotFound if the user doesn't exist.
	GetUser(ctx context.Context, username string) (*models.User, error)

	// ListUsers returns all users ordered by username.
	ListUsers(ctx context.Context) ([]*models.User, error)

	// CreateUser validates and creates a user. The ID is generated if empty.
	// Returns models.ErrDuplicateUser if the username is taken.
	CreateUser(ctx context.Context, user *models.User) (string, error)

	// UpdateUser updates home, permissions and the enabled flag.
	// Returns models.ErrUserNotFound if the user doesn't exist.
	UpdateUser(ctx context.Context, user *models.User) error

	// UpdatePassword replaces a user's password hash.
	// Returns models.ErrUserNotFound if the user doesn't exist.
	UpdatePassword(ctx context.Context, username, passwordHash string) error

	// DeleteUser deletes a user by username.
	// Returns models.ErrUserNotFound if the user doesn't exist.
	DeleteUser(ctx context.Context, username string) error

	// UpdateLastLogin records a successful login.
	// Returns models.ErrUserNotFound if the user doesn't exist.
	UpdateLastLogin(ctx context.Context, username string, timestamp time.Time) error

	// LoadUsers returns the enabled users in the form the FTP engine uses.
	LoadUsers(ctx context.Context) ([]identity.User, error)

	// EnsureAdminUser creates the admin account if missing and returns its
	// initial password. It returns "" when the account already existed or
	// when passwordHash was supplied by the operator.
	EnsureAdminUser(ctx context.Context, username, passwordHash string) (string, error)

	// Healthcheck verifies the database is reachable.
	Healthcheck(ctx context.Context) error

	// Close releases the database connection.
	Close() error
}

package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/marmos91/dittoftp/pkg/controlplane/models"
)

// ErrBackupUnsupported is returned by BackupTo for backends without an
// in-process snapshot method.
var ErrBackupUnsupported = errors.New("native backup is only supported for sqlite")

// UserExport is the portable backup of the user table.
type UserExport struct {
	Timestamp    time.Time         `json:"timestamp"`
	Version      string            `json:"version"`
	DatabaseType DatabaseType      `json:"database_type"`
	Users        []UserExportEntry `json:"users"`
}

// UserExportEntry carries the password hash so the export can be restored.
type UserExportEntry struct {
	*models.User
	PasswordHash string `json:"password_hash"`
}

// BackupTo writes a consistent copy of a SQLite database to outputPath using
// VACUUM INTO. The target must not exist.
func (s *GORMStore) BackupTo(ctx context.Context, outputPath string) error {
	if s.config.Type != DatabaseTypeSQLite {
		return ErrBackupUnsupported
	}
	if _, err := os.Stat(outputPath); err == nil {
		return fmt.Errorf("backup target already exists: %s", outputPath)
	}

	if err := s.db.WithContext(ctx).Exec("VACUUM INTO ?", outputPath).Error; err != nil {
		return fmt.Errorf("VACUUM INTO failed: %w", err)
	}
	return nil
}

// ExportUsers returns every user, disabled ones included.
func (s *GORMStore) ExportUsers(ctx context.Context) (*UserExport, error) {
	users, err := s.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	export := &UserExport{
		Timestamp:    time.Now().UTC(),
		Version:      "1.0",
		DatabaseType: s.config.Type,
		Users:        make([]UserExportEntry, 0, len(users)),
	}
	for _, u := range users {
		export.Users = append(export.Users, UserExportEntry{User: u, PasswordHash: u.PasswordHash})
	}
	return export, nil
}

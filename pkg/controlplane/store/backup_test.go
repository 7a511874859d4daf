package store

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/dittoftp/pkg/controlplane/models"
	"github.com/marmos91/dittoftp/pkg/identity"
)

func TestBackupTo(t *testing.T) {
	store := createTestStore(t)
	ctx := context.Background()

	_, err := store.CreateUser(ctx, &models.User{Username: "alice", PasswordHash: "hash-1", Perms: uint8(identity.PermRead), Enabled: true})
	require.NoError(t, err)

	target := filepath.Join(t.TempDir(), "backup.db")
	require.NoError(t, store.BackupTo(ctx, target))

	info, err := os.Stat(target)
	require.NoError(t, err)
	assert.Positive(t, info.Size())

	restored, err := New(&Config{Type: DatabaseTypeSQLite, SQLite: SQLiteConfig{Path: target}})
	require.NoError(t, err)
	defer func() { _ = restored.Close() }()

	got, err := restored.GetUser(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "hash-1", got.PasswordHash)

	// Refuses to overwrite an existing file.
	assert.Error(t, store.BackupTo(ctx, target))
}

func TestBackupToUnsupportedBackend(t *testing.T) {
	s := &GORMStore{config: &Config{Type: DatabaseTypePostgres}}
	assert.ErrorIs(t, s.BackupTo(context.Background(), "/tmp/unused"), ErrBackupUnsupported)
}

func TestExportUsers(t *testing.T) {
	store := createTestStore(t)
	ctx := context.Background()

	_, err := store.CreateUser(ctx, &models.User{Username: "alice", PasswordHash: "hash-1", Home: "shared", Perms: uint8(identity.PermAll), Enabled: true})
	require.NoError(t, err)
	_, err = store.CreateUser(ctx, &models.User{Username: "bob", PasswordHash: "hash-2", Enabled: true})
	require.NoError(t, err)

	export, err := store.ExportUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, DatabaseTypeSQLite, export.DatabaseType)
	require.Len(t, export.Users, 2)

	data, err := json.Marshal(export)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"password_hash":"hash-1"`)
	assert.Contains(t, string(data), `"home":"shared"`)
}

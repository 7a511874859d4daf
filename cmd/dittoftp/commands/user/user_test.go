package user

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/dittoftp/pkg/config"
	"github.com/marmos91/dittoftp/pkg/controlplane/store"
	"github.com/marmos91/dittoftp/pkg/identity"
)

// testEnv is a config file pointing at a fresh SQLite database.
type testEnv struct {
	configPath string
	dbPath     string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	env := &testEnv{
		configPath: filepath.Join(dir, "config.yaml"),
		dbPath:     filepath.Join(dir, "users.db"),
	}

	cfg := config.GetDefaultConfig()
	cfg.Database.SQLite.Path = env.dbPath
	cfg.FTP.StorageRoot = dir
	cfg.Logging.Output = "stderr"
	require.NoError(t, config.SaveConfig(cfg, env.configPath))
	return env
}

// run executes 'user <args>' with stdin and returns stdout.
func (e *testEnv) run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	resetFlags(Cmd)

	root := &cobra.Command{Use: "dittoftp", SilenceUsage: true, SilenceErrors: true}
	root.PersistentFlags().String("config", "", "")
	root.AddCommand(Cmd)

	var out bytes.Buffer
	root.SetOut(&out)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(append(append([]string{"user"}, args...), "--config", e.configPath))
	err := root.Execute()
	return out.String(), err
}

func (e *testEnv) store(t *testing.T) *store.GORMStore {
	t.Helper()
	s, err := store.New(&store.Config{Type: store.DatabaseTypeSQLite, SQLite: store.SQLiteConfig{Path: e.dbPath}})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// resetFlags restores every flag of cmd and its children to its default,
// since the command tree is package state shared between tests.
func resetFlags(cmd *cobra.Command) {
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	})
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

func TestAddAndList(t *testing.T) {
	env := newTestEnv(t)

	out, err := env.run(t, "secret-password\n", "add", "alice", "--perms", "read,write", "--password-stdin")
	require.NoError(t, err)
	assert.Contains(t, out, "User alice created (home alice, perms read,write)")

	_, err = env.run(t, "", "add", "bob", "--home", "shared", "--perms", "all", "--password", "another-password", "--disabled")
	require.NoError(t, err)

	out, err = env.run(t, "", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "alice")
	assert.Contains(t, out, "shared")
	assert.Contains(t, out, "never")

	out, err = env.run(t, "", "list", "-o", "json")
	require.NoError(t, err)
	assert.Contains(t, out, `"perms": "read,write,delete,mkdir,rename"`)
	assert.Contains(t, out, `"enabled": false`)

	users, err := env.store(t).LoadUsers(context.Background())
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "alice", users[0].Username)
	assert.True(t, identity.VerifyPassword("secret-password", users[0].PasswordHash))
}

func TestAddRejectsInvalidInput(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.run(t, "", "add", "alice", "--perms", "fly", "--password", "secret-password")
	assert.Error(t, err)

	_, err = env.run(t, "", "add", "alice", "--home", "../etc", "--password", "secret-password")
	assert.ErrorIs(t, err, identity.ErrInvalidHome)

	_, err = env.run(t, "short\n", "add", "alice", "--password-stdin")
	assert.ErrorIs(t, err, identity.ErrPasswordTooShort)

	_, err = env.run(t, "", "add", "alice", "--password", "secret-password")
	require.NoError(t, err)
	_, err = env.run(t, "", "add", "alice", "--password", "secret-password")
	assert.Error(t, err)
}

func TestUpdatePasswdRemove(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.run(t, "", "add", "alice", "--password", "secret-password")
	require.NoError(t, err)

	_, err = env.run(t, "", "update", "alice")
	assert.Error(t, err)

	out, err := env.run(t, "", "update", "alice", "--perms", "read,mkdir", "--disable")
	require.NoError(t, err)
	assert.Contains(t, out, "perms read,mkdir, enabled false")

	out, err = env.run(t, "", "show", "alice", "-o", "yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "perms: read,mkdir")
	assert.Contains(t, out, "last_login: never")

	_, err = env.run(t, "changed-password\n", "passwd", "alice", "--password-stdin")
	require.NoError(t, err)
	u, err := env.store(t).GetUser(context.Background(), "alice")
	require.NoError(t, err)
	assert.True(t, identity.VerifyPassword("changed-password", u.PasswordHash))

	_, err = env.run(t, "", "passwd", "nobody", "--password", "changed-password")
	assert.Error(t, err)

	out, err = env.run(t, "", "remove", "alice", "--force")
	require.NoError(t, err)
	assert.Contains(t, out, "User alice deleted")

	_, err = env.run(t, "", "remove", "alice", "--force")
	assert.Error(t, err)
}

func TestHashPassword(t *testing.T) {
	env := newTestEnv(t)

	out, err := env.run(t, "secret-password\n", "hash-password", "--password-stdin")
	require.NoError(t, err)

	hash := strings.TrimSpace(out)
	assert.True(t, strings.HasPrefix(hash, "$2a$"))
	assert.True(t, identity.VerifyPassword("secret-password", hash))
}

func TestReadLine(t *testing.T) {
	line, err := readLine(strings.NewReader("pw\r\nignored"))
	require.NoError(t, err)
	assert.Equal(t, "pw", line)

	line, err = readLine(strings.NewReader("no-newline"))
	require.NoError(t, err)
	assert.Equal(t, "no-newline", line)
}

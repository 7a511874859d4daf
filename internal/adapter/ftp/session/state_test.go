package session

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/marmos91/dittoftp/pkg/identity"
)

func TestStateNames(t *testing.T) {
	assert.Equal(t, "unauthenticated", Name(nil))
	assert.Equal(t, "unauthenticated", Name(Unauthenticated{}))
	assert.Equal(t, "awaiting_password", Name(AwaitingPassword{Username: "bob"}))
	assert.Equal(t, "authenticated", Name(&Authenticated{}))
}

func TestAuthenticatedPaths(t *testing.T) {
	home := filepath.FromSlash("/srv/ftp/bob")
	a := NewAuthenticated(&identity.User{Username: "bob"}, home)

	assert.Equal(t, "/", a.Cwd)
	assert.Equal(t, home, a.Resolve(""))
	assert.Equal(t, filepath.Join(home, "docs"), a.Resolve("docs"))

	a.Chdir(filepath.Join(home, "docs"))
	assert.Equal(t, "/docs", a.Cwd)
	assert.Equal(t, filepath.Join(home, "docs", "a.txt"), a.Resolve("a.txt"))
	assert.Equal(t, filepath.Join(home, "docs"), a.ResolveOrCwd(""))
	assert.Equal(t, home, a.Resolve(""))
	assert.Equal(t, home, a.Resolve("../../.."))
}

func TestTakeRename(t *testing.T) {
	a := NewAuthenticated(&identity.User{Username: "bob"}, "/srv/ftp/bob")

	_, ok := a.TakeRename()
	assert.False(t, ok)

	a.RenameFrom = "/srv/ftp/bob/a"
	from, ok := a.TakeRename()
	assert.True(t, ok)
	assert.Equal(t, "/srv/ftp/bob/a", from)
	assert.Empty(t, a.RenameFrom)
}

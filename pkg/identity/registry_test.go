package identity

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func testUser(t *testing.T, name, password string, perms Permission) User {
	t.Helper()
	hash, err := HashPasswordWithCost(password, bcrypt.MinCost)
	require.NoError(t, err)
	return User{Username: name, PasswordHash: hash, Perms: perms}
}

func TestUserValidate(t *testing.T) {
	tests := []struct {
		name    string
		user    User
		wantErr error
	}{
		{"valid", User{Username: "alice", Perms: PermAll}, nil},
		{"valid with home", User{Username: "bob_2", Home: "shared-home", Perms: PermRead}, nil},
		{"too short", User{Username: "al"}, ErrInvalidUsername},
		{"leading digit", User{Username: "1alice"}, ErrInvalidUsername},
		{"slash in name", User{Username: "al/ice"}, ErrInvalidUsername},
		{"traversal home", User{Username: "alice", Home: ".."}, ErrInvalidHome},
		{"nested home", User{Username: "alice", Home: "a/b"}, ErrInvalidHome},
		{"bad mask", User{Username: "alice", Perms: 64}, ErrInvalidPermission},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.user.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestUserHomeName(t *testing.T) {
	assert.Equal(t, "alice", (&User{Username: "alice"}).HomeName())
	assert.Equal(t, "admin_home", (&User{Username: "admin", Home: "admin_home"}).HomeName())
}

func TestRegistryLookup(t *testing.T) {
	r, err := NewRegistry([]User{testUser(t, "bob", "correct-horse", PermAll)})
	require.NoError(t, err)

	assert.Equal(t, 1, r.Len())
	assert.NotNil(t, r.Lookup("bob"))
	assert.Nil(t, r.Lookup("alice"))
	assert.Nil(t, r.Lookup("BOB"), "usernames are case sensitive")
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	_, err := NewRegistry([]User{
		{Username: "bob", Perms: PermRead},
		{Username: "bob", Perms: PermAll},
	})
	assert.Error(t, err)
}

func TestRegistryReplaceKeepsOldOnError(t *testing.T) {
	r, err := NewRegistry([]User{{Username: "bob", Perms: PermRead}})
	require.NoError(t, err)

	err = r.Replace([]User{{Username: "x"}})
	require.Error(t, err)
	assert.NotNil(t, r.Lookup("bob"))
}

func TestRegistryReplaceDoesNotAffectHeldUsers(t *testing.T) {
	r, err := NewRegistry([]User{{Username: "bob", Perms: PermRead}})
	require.NoError(t, err)

	held := r.Lookup("bob")
	require.NoError(t, r.Replace([]User{{Username: "bob", Perms: PermAll}}))

	assert.Equal(t, PermRead, held.Perms)
	assert.Equal(t, PermAll, r.Lookup("bob").Perms)
}

func TestRegistryConcurrentReload(t *testing.T) {
	r, err := NewRegistry([]User{{Username: "bob", Perms: PermRead}})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = r.Replace([]User{{Username: "bob", Perms: PermAll}})
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				assert.NotNil(t, r.Lookup("bob"))
			}
		}()
	}
	wg.Wait()
}

func TestAuthenticate(t *testing.T) {
	u := testUser(t, "bob", "correct-horse", PermAll)

	assert.NoError(t, Authenticate(&u, "correct-horse"))
	assert.ErrorIs(t, Authenticate(&u, "wrong-horse"), ErrInvalidCredentials)
	assert.ErrorIs(t, Authenticate(nil, "anything"), ErrInvalidCredentials)
}

package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var allBits = []Permission{PermRead, PermWrite, PermDelete, PermMkdir, PermRename}

func TestPermissionBitValues(t *testing.T) {
	assert.Equal(t, Permission(1), PermRead)
	assert.Equal(t, Permission(2), PermWrite)
	assert.Equal(t, Permission(4), PermDelete)
	assert.Equal(t, Permission(8), PermMkdir)
	assert.Equal(t, Permission(16), PermRename)
	assert.Equal(t, Permission(31), PermAll)
}

func TestHasPermission_NilUserDeniesEverything(t *testing.T) {
	for _, bit := range allBits {
		assert.False(t, HasPermission(nil, bit), "nil user must not hold %s", bit)
	}
}

func TestHasPermission_ReflectsMask(t *testing.T) {
	u := &User{Username: "bob", Perms: PermRead | PermWrite}

	assert.True(t, HasPermission(u, PermRead))
	assert.True(t, HasPermission(u, PermWrite))
	assert.False(t, HasPermission(u, PermDelete))
	assert.False(t, HasPermission(u, PermMkdir))
	assert.False(t, HasPermission(u, PermRename))
}

func TestHasPermission_EveryMask(t *testing.T) {
	for mask := PermNone; mask <= PermAll; mask++ {
		u := &User{Username: "grid", Perms: mask}
		for _, bit := range allBits {
			assert.Equal(t, mask&bit != 0, HasPermission(u, bit), "mask=%d bit=%d", mask, bit)
		}
	}
}

func TestPermissionString(t *testing.T) {
	assert.Equal(t, "none", PermNone.String())
	assert.Equal(t, "read,write", (PermRead | PermWrite).String())
	assert.Equal(t, "read,write,delete,mkdir,rename", PermAll.String())
	assert.Equal(t, "read,0x20", (PermRead | 32).String())
}

func TestParsePermission(t *testing.T) {
	tests := []struct {
		in      string
		want    Permission
		wantErr bool
	}{
		{"all", PermAll, false},
		{"none", PermNone, false},
		{"", PermNone, false},
		{"31", PermAll, false},
		{"3", PermRead | PermWrite, false},
		{"read, rename", PermRead | PermRename, false},
		{"READ,MKDIR", PermRead | PermMkdir, false},
		{"32", PermNone, true},
		{"execute", PermNone, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParsePermission(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

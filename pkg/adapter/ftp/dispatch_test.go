package ftp

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/marmos91/dittoftp/pkg/identity"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		line, verb, arg string
	}{
		{"USER bob", "USER", "bob"},
		{"user bob", "USER", "bob"},
		{"  NOOP  ", "NOOP", ""},
		{"STOR my file.txt", "STOR", "my file.txt"},
		{"RETR\t  tab.txt", "RETR", "tab.txt"},
		{"PWD", "PWD", ""},
		{"", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			verb, arg := parseCommand(tt.line)
			assert.Equal(t, tt.verb, verb)
			assert.Equal(t, tt.arg, arg)
		})
	}
}

func TestTraceLineHidesPassword(t *testing.T) {
	assert.Equal(t, "PASS ****", traceLine("PASS", "secret", "PASS secret"))
	assert.Equal(t, "PASS", traceLine("PASS", "", "PASS"))
	assert.Equal(t, "USER bob", traceLine("USER", "bob", "USER bob"))
}

func TestCommandTable(t *testing.T) {
	open := []string{"USER", "PASS", "SYST", "PWD", "TYPE", "QUIT", "NOOP", "ABOR"}
	for _, verb := range open {
		spec, ok := commands[verb]
		if assert.True(t, ok, verb) {
			assert.False(t, spec.auth, verb)
			assert.Equal(t, identity.PermNone, spec.perm, verb)
		}
	}

	perms := map[string]identity.Permission{
		"CWD":  identity.PermNone,
		"PASV": identity.PermRead,
		"LIST": identity.PermRead,
		"SIZE": identity.PermRead,
		"RETR": identity.PermRead,
		"STOR": identity.PermWrite,
		"MKD":  identity.PermMkdir,
		"RMD":  identity.PermDelete,
		"DELE": identity.PermDelete,
		"RNFR": identity.PermRename,
		"RNTO": identity.PermRename,
	}
	for verb, perm := range perms {
		spec, ok := commands[verb]
		if assert.True(t, ok, verb) {
			assert.True(t, spec.auth, verb)
			assert.Equal(t, perm, spec.perm, verb)
		}
	}
	assert.Len(t, commands, len(open)+len(perms))
	assert.NotNil(t, commands["RNTO"].precondition)
}

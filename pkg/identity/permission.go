package identity

import (
	"fmt"
	"strconv"
	"strings"
)

// Permission is a bitmask of independent capabilities granted to a user.
type Permission uint8

const (
	// PermRead allows PASV, LIST, SIZE and RETR.
	PermRead Permission = 1 << iota
	// PermWrite allows STOR.
	PermWrite
	// PermDelete allows DELE and RMD.
	PermDelete
	// PermMkdir allows MKD.
	PermMkdir
	// PermRename allows RNFR and RNTO.
	PermRename
)

const (
	// PermNone grants nothing. It is what a missing user resolves to.
	PermNone Permission = 0

	// PermAll grants every capability.
	PermAll = PermRead | PermWrite | PermDelete | PermMkdir | PermRename
)

var permNames = []struct {
	bit  Permission
	name string
}{
	{PermRead, "read"},
	{PermWrite, "write"},
	{PermDelete, "delete"},
	{PermMkdir, "mkdir"},
	{PermRename, "rename"},
}

// Has reports whether every bit of want is set in p.
func (p Permission) Has(want Permission) bool {
	return p&want == want
}

// Valid reports whether p only uses defined bits.
func (p Permission) Valid() bool {
	return p&^PermAll == 0
}

// String renders the set bits as a comma separated list, e.g. "read,write".
func (p Permission) String() string {
	if p == PermNone {
		return "none"
	}
	var parts []string
	for _, n := range permNames {
		if p.Has(n.bit) {
			parts = append(parts, n.name)
		}
	}
	if extra := p &^ PermAll; extra != 0 {
		parts = append(parts, fmt.Sprintf("0x%x", uint8(extra)))
	}
	return strings.Join(parts, ",")
}

// ParsePermission parses either a comma separated list of names ("read,write",
// "all", "none") or a decimal bitmask ("3").
func ParsePermission(s string) (Permission, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	switch s {
	case "", "none":
		return PermNone, nil
	case "all":
		return PermAll, nil
	}

	if n, err := strconv.ParseUint(s, 10, 8); err == nil {
		p := Permission(n)
		if !p.Valid() {
			return PermNone, fmt.Errorf("permission mask %d out of range [0,%d]", n, uint8(PermAll))
		}
		return p, nil
	}

	var p Permission
	for _, tok := range strings.Split(s, ",") {
		tok = strings.TrimSpace(tok)
		found := false
		for _, n := range permNames {
			if n.name == tok {
				p |= n.bit
				found = true
				break
			}
		}
		if !found {
			return PermNone, fmt.Errorf("unknown permission %q", tok)
		}
	}
	return p, nil
}

// HasPermission reports whether u holds the given capability. A nil user holds none.
func HasPermission(u *User, want Permission) bool {
	if u == nil {
		return false
	}
	return u.Perms.Has(want)
}

// Package session holds the per-connection FTP state machine.
//
// The login state is a closed sum type: exactly one of Unauthenticated,
// AwaitingPassword or Authenticated. Handlers switch on it (or use the
// helpers below) instead of probing optional fields.
package session

import (
	"github.com/marmos91/dittoftp/internal/adapter/ftp/vfs"
	"github.com/marmos91/dittoftp/pkg/identity"
)

// State is the login state of a control connection.
type State interface {
	stateName() string
}

// Unauthenticated is the initial state and the state after a failed PASS.
type Unauthenticated struct{}

// AwaitingPassword follows a USER naming a known account.
type AwaitingPassword struct {
	Username string
	User     *identity.User
}

// Authenticated follows a successful PASS.
type Authenticated struct {
	User *identity.User

	// Home is the real directory the session is confined to. Set once at login.
	Home string

	// Cwd is the virtual working directory, slash rooted.
	Cwd string

	// RenameFrom is the sandboxed source recorded by RNFR, empty when no rename is pending.
	RenameFrom string
}

func (Unauthenticated) stateName() string  { return "unauthenticated" }
func (AwaitingPassword) stateName() string { return "awaiting_password" }
func (*Authenticated) stateName() string   { return "authenticated" }

// Name returns a short label for logs and metrics.
func Name(s State) string {
	if s == nil {
		return Unauthenticated{}.stateName()
	}
	return s.stateName()
}

// NewAuthenticated builds the post-login state with the cwd at the virtual root.
func NewAuthenticated(u *identity.User, home string) *Authenticated {
	return &Authenticated{User: u, Home: home, Cwd: vfs.Root}
}

// Resolve sandboxes a client path against the session's home and cwd.
func (a *Authenticated) Resolve(requested string) string {
	return vfs.Resolve(a.Home, a.Cwd, requested)
}

// ResolveOrCwd is Resolve, except an empty argument means the cwd rather than the root.
func (a *Authenticated) ResolveOrCwd(requested string) string {
	if requested == "" {
		requested = a.Cwd
	}
	return a.Resolve(requested)
}

// Chdir moves the cwd to the virtual form of a sandboxed real path.
func (a *Authenticated) Chdir(realPath string) {
	a.Cwd = vfs.Virtual(a.Home, realPath)
}

// TakeRename returns and clears the pending rename source.
func (a *Authenticated) TakeRename() (string, bool) {
	from := a.RenameFrom
	a.RenameFrom = ""
	return from, from != ""
}

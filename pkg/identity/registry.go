package identity

import (
	"fmt"
	"sync"
)

// Registry is the in-memory set of users consulted by USER and PASS.
//
// Lookups take a read lock; Replace swaps the whole set under the write lock.
// Sessions that already authenticated keep the *User they were given, so a
// reload never changes an in-flight session.
type Registry struct {
	mu    sync.RWMutex
	users map[string]*User
}

// NewRegistry creates a registry holding users. Invalid or duplicate users are rejected.
func NewRegistry(users []User) (*Registry, error) {
	r := &Registry{}
	if err := r.Replace(users); err != nil {
		return nil, err
	}
	return r, nil
}

// Replace atomically swaps the registry content. On error the previous content is kept.
func (r *Registry) Replace(users []User) error {
	next := make(map[string]*User, len(users))
	for i := range users {
		u := users[i]
		if err := u.Validate(); err != nil {
			return err
		}
		if _, dup := next[u.Username]; dup {
			return fmt.Errorf("duplicate user %q", u.Username)
		}
		next[u.Username] = &u
	}

	r.mu.Lock()
	r.users = next
	r.mu.Unlock()
	return nil
}

// Lookup returns the user with the given name, or nil.
func (r *Registry) Lookup(username string) *User {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.users[username]
}

// Len returns the number of registered users.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.users)
}

// Authenticate checks a password for u. A nil u still costs one bcrypt comparison
// so that unknown and known users cannot be told apart by timing.
func Authenticate(u *User, password string) error {
	if u == nil {
		burnCompare(password)
		return ErrInvalidCredentials
	}
	if !VerifyPassword(password, u.PasswordHash) {
		return ErrInvalidCredentials
	}
	return nil
}

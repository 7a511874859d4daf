// Package pasv manages passive mode data connections: the shared pool of
// data ports and the per-session listener that accepts one data connection.
package pasv

import (
	"errors"
	"fmt"
	"sync"
)

// ErrPoolExhausted is returned when every port in the passive range is leased.
var ErrPoolExhausted = errors.New("no passive ports available")

// Allocator leases ports from an inclusive range. It is shared by all
// sessions of a server; Allocate and Release are serialized by one mutex.
type Allocator struct {
	mu     sync.Mutex
	low    int
	high   int
	leased map[int]struct{}
}

// NewAllocator creates an allocator for the inclusive range [low, high].
func NewAllocator(low, high int) (*Allocator, error) {
	if low <= 0 || high > 65535 || low > high {
		return nil, fmt.Errorf("invalid passive port range [%d, %d]", low, high)
	}
	return &Allocator{
		low:    low,
		high:   high,
		leased: make(map[int]struct{}),
	}, nil
}

// Allocate leases the lowest free port. ok is false when the pool is exhausted.
func (a *Allocator) Allocate() (port int, ok bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	for p := a.low; p <= a.high; p++ {
		if _, used := a.leased[p]; !used {
			a.leased[p] = struct{}{}
			return p, true
		}
	}
	return 0, false
}

// Release returns port to the pool. Releasing a port that is not leased is a no-op.
func (a *Allocator) Release(port int) {
	a.mu.Lock()
	delete(a.leased, port)
	a.mu.Unlock()
}

// Leased returns the number of ports currently leased.
func (a *Allocator) Leased() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.leased)
}

// isLeased reports whether port is currently leased.
func (a *Allocator) isLeased(port int) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	_, ok := a.leased[port]
	return ok
}

// Size returns the number of ports in the range.
func (a *Allocator) Size() int {
	return a.high - a.low + 1
}

// Range returns the configured bounds.
func (a *Allocator) Range() (low, high int) {
	return a.low, a.high
}

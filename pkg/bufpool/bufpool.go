// Package bufpool provides reusable fixed-size byte buffers for data channel
// transfers.
//
// Every RETR and STOR copies through one buffer taken from the pool, so a busy
// server does not allocate a fresh buffer per transfer. Buffers are backed by
// sync.Pool and are safe to use from many sessions at once.
//
// Usage:
//
//	buf := pool.Get()
//	defer pool.Put(buf)
//	n, err := io.CopyBuffer(dst, src, buf)
package bufpool

import "sync"

const (
	// DefaultSize is the buffer size used when none is configured (256KB).
	DefaultSize = 256 << 10

	// MinSize is the smallest accepted buffer size (4KB).
	MinSize = 4 << 10

	// MaxSize is the largest accepted buffer size (16MB).
	MaxSize = 16 << 20
)

// Pool hands out buffers of a single size.
type Pool struct {
	size int
	pool sync.Pool
}

// New creates a pool of size-byte buffers. Sizes outside [MinSize, MaxSize]
// are clamped; zero or negative selects DefaultSize.
func New(size int) *Pool {
	switch {
	case size <= 0:
		size = DefaultSize
	case size < MinSize:
		size = MinSize
	case size > MaxSize:
		size = MaxSize
	}

	p := &Pool{size: size}
	p.pool.New = func() any {
		buf := make([]byte, p.size)
		return &buf
	}
	return p
}

// Size returns the length of the buffers handed out by Get.
func (p *Pool) Size() int {
	return p.size
}

// Get returns a buffer of length Size. Pair it with Put.
func (p *Pool) Get() []byte {
	return *(p.pool.Get().(*[]byte))
}

// Put returns buf to the pool. Buffers that did not come from this pool
// (different capacity) are dropped and left to the GC.
func (p *Pool) Put(buf []byte) {
	if cap(buf) != p.size {
		return
	}
	buf = buf[:p.size]
	p.pool.Put(&buf)
}

// Package ring is a lock-free single-producer, single-consumer byte ring.
// The producer may be a pump goroutine or interrupt handler; the consumer
// never blocks.
package ring

import "sync/atomic"

type Ring struct {
	buf  []byte
	mask uint32
	rd   atomic.Uint32 // consumer index (monotonic)
	wr   atomic.Uint32 // producer index (monotonic)
}

// New returns a ring of size bytes. size must be a power of two >= 2.
func New(size int) *Ring {
	if size < 2 || (size&(size-1)) != 0 {
		panic("ring: size must be power of two >= 2")
	}
	return &Ring{buf: make([]byte, size), mask: uint32(size - 1)}
}

func (r *Ring) size() uint32 { return uint32(len(r.buf)) }

func (r *Ring) Space() int {
	return int(r.size() - (r.wr.Load() - r.rd.Load()))
}

func (r *Ring) Available() int {
	return int(r.wr.Load() - r.rd.Load())
}

// Producer side

// WriteFrom copies as much of src as fits and returns the count.
func (r *Ring) WriteFrom(src []byte) int {
	rd := r.rd.Load()
	wr := r.wr.Load()
	n := int(r.size() - (wr - rd))
	if len(src) < n {
		n = len(src)
	}
	if n <= 0 {
		return 0
	}
	wrIdx := wr & r.mask
	first := copy(r.buf[wrIdx:], src[:n])
	copy(r.buf, src[first:n])
	r.wr.Store(wr + uint32(n)) // release
	return n
}

// Push appends one byte, reporting false when the ring is full.
func (r *Ring) Push(b byte) bool {
	rd := r.rd.Load()
	wr := r.wr.Load()
	if wr-rd == r.size() {
		return false
	}
	r.buf[wr&r.mask] = b
	r.wr.Store(wr + 1)
	return true
}

// Consumer side

// ReadInto copies up to len(dst) buffered bytes and returns the count.
func (r *Ring) ReadInto(dst []byte) int {
	rd := r.rd.Load()
	wr := r.wr.Load() // acquire
	n := int(wr - rd)
	if len(dst) < n {
		n = len(dst)
	}
	if n <= 0 {
		return 0
	}
	rdIdx := rd & r.mask
	first := copy(dst[:n], r.buf[rdIdx:])
	copy(dst[first:n], r.buf)
	r.rd.Store(rd + uint32(n)) // release
	return n
}

// Pop removes the oldest byte.
func (r *Ring) Pop() (byte, bool) {
	rd := r.rd.Load()
	if r.wr.Load() == rd {
		return 0, false
	}
	b := r.buf[rd&r.mask]
	r.rd.Store(rd + 1)
	return b, true
}

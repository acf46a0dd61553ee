package board

import (
	"errors"
	"sync/atomic"

	"powerctl-go/x/ring"
)

var errRxEmpty = errors.New("rx_empty")

// rxQueue is the receive side of a console port. A pump goroutine pushes,
// the main loop's console poll pops.
type rxQueue struct {
	r       *ring.Ring
	dropped atomic.Uint32
}

func newRxQueue(size int) *rxQueue { return &rxQueue{r: ring.New(size)} }

// push keeps what fits; the main loop is stalled if the ring is full.
func (q *rxQueue) push(p []byte) {
	if n := q.r.WriteFrom(p); n < len(p) {
		q.dropped.Add(uint32(len(p) - n))
	}
}

func (q *rxQueue) Buffered() int { return q.r.Available() }

func (q *rxQueue) ReadByte() (byte, error) {
	b, ok := q.r.Pop()
	if !ok {
		return 0, errRxEmpty
	}
	return b, nil
}

// Dropped counts bytes lost to a full queue.
func (q *rxQueue) Dropped() uint32 { return q.dropped.Load() }

package core

import "github.com/dkeye/roomrec/internal/domain"

// IceBuffer queues candidates until their destination exists, then releases
// them exactly once. It is not safe for concurrent use; the session manager
// owns it.
type IceBuffer struct {
	pending []domain.ICECandidate
	flushed bool
	drains  int
}

// Push queues c. It returns false once the buffer has been flushed, in which
// case the caller must forward c itself.
func (b *IceBuffer) Push(c domain.ICECandidate) bool {
	if b.flushed {
		return false
	}
	b.pending = append(b.pending, c)
	return true
}

// Flush returns the queued candidates in arrival order. Only the first call
// returns anything; later calls are no-ops.
func (b *IceBuffer) Flush() []domain.ICECandidate {
	if b.flushed {
		return nil
	}
	b.flushed = true
	b.drains++
	out := b.pending
	b.pending = nil
	return out
}

func (b *IceBuffer) Flushed() bool { return b.flushed }

func (b *IceBuffer) Len() int { return len(b.pending) }

// Drains counts how many times the buffer was released. It is 0 or 1.
func (b *IceBuffer) Drains() int { return b.drains }

// Reset drops anything still queued. Used at cleanup.
func (b *IceBuffer) Reset() {
	b.pending = nil
}

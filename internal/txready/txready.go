// Package txready implements the single-slot deferred-work hand-off
// spec §4.2's txready/txready_work describes: hardware with its own TX
// FIFO signals room from interrupt context, but pumping the software
// FIFO may take locks that are illegal at interrupt level, so the actual
// work is scheduled onto a worker goroutine instead. Adapted from the
// single-goroutine fan-in worker in
// other_examples/.../kstaniek-go-ampio-server's async_tx.go, narrowed
// from an N-deep channel to a single already-scheduled slot: spec §4.2
// requires at most one outstanding txready_work, not a queue of them.
package txready

import (
	"errors"
	"sync/atomic"
)

// ErrBusy is returned by Schedule when work is already queued; the spec
// observes that the already-queued run will see the updated device
// state, so the caller need not retry.
var ErrBusy = errors.New("txready: work already scheduled")

// Slot schedules at most one outstanding run of a work function.
type Slot struct {
	work    func()
	pending atomic.Bool
}

// NewSlot returns a Slot that runs work on its own goroutine each time it
// is scheduled.
func NewSlot(work func()) *Slot {
	return &Slot{work: work}
}

// Schedule runs the slot's work function on a new goroutine unless one is
// already outstanding, in which case it returns ErrBusy without doing
// anything — the slot is freed for the next Schedule only after the
// currently running work function returns.
func (s *Slot) Schedule() error {
	if !s.pending.CompareAndSwap(false, true) {
		return ErrBusy
	}
	go func() {
		defer s.pending.Store(false)
		s.work()
	}()
	return nil
}

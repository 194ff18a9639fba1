// Package chardev implements the upper half of a CAN character device
// driver: the device-independent state machine (spec §§1-5) that sits
// between a file-like Handle surface and a can.LowerHalf adapter. It is
// ported from original_source/drivers/can.c (NuttX's upper-half CAN
// driver), translating the "interrupts disabled" critical section into a
// per-device sync.Mutex and POSIX semaphores into sync.Cond, whose Wait
// atomically drops and re-acquires that same mutex — exactly the
// "logically held across the wait" discipline spec §5 asks for.
package chardev

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/canio/upperhalf/internal/ringfifo"
	"github.com/canio/upperhalf/internal/txready"
	"github.com/canio/upperhalf/pkg/can"
	"github.com/canio/upperhalf/pkg/config"
)

// ClosePollInterval is the coarse polling granularity Close uses while
// waiting for the software and hardware TX FIFOs to drain. The original
// used the same 500ms: close is not performance-critical, and sleeping
// yields the CPU to whatever path is draining the FIFO.
const ClosePollInterval = 500 * time.Millisecond

var _ can.UpcallReceiver = (*Device)(nil)

type rtrSlot struct {
	id     uint32
	target *can.Msg
	cond   *sync.Cond
}

// Device is one instance of the upper half, owning the RX/TX FIFOs, the
// RTR waiter table, and the open/close lifecycle for a single CAN
// controller. Create one with NewDevice, registered against a
// can.LowerHalf adapter.
type Device struct {
	logger *slog.Logger
	opts   config.Options
	lower  can.LowerHalf

	// mu is the stand-in for the original's global interrupt-disable
	// critical section: every FIFO mutation and the decision to signal
	// a waiter happens with mu held.
	mu      sync.Mutex
	rxCond  *sync.Cond
	txCond  *sync.Cond
	rx      *ringfifo.RXFifo
	tx      *ringfifo.TXFifo
	rtr     []rtrSlot
	nPendRTR int

	nRxWaiters int
	nTxWaiters int

	errorLatch uint8

	txReady *txready.Slot

	// closeMu is cd_closesem: it serializes the open/close lifecycle
	// only, never per-operation data access.
	closeMu   sync.Mutex
	openCount uint8
}

// NewDevice registers a new upper half against lower, the same one-time
// bring-up can_register performs: it calls lower.Reset() exactly once and
// allocates the FIFOs and RTR table, but does not yet touch hardware
// power state — that happens on the first Open.
func NewDevice(lower can.LowerHalf, opts config.Options, logger *slog.Logger) (*Device, error) {
	if lower == nil {
		return nil, fmt.Errorf("chardev: lower half is nil")
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	d := &Device{
		logger: logger,
		opts:   opts,
		lower:  lower,
		rx:     ringfifo.NewRXFifo(opts.FIFOSize),
		tx:     ringfifo.NewTXFifo(opts.FIFOSize),
		rtr:    make([]rtrSlot, opts.PendingRTRSlots),
	}
	d.rxCond = sync.NewCond(&d.mu)
	d.txCond = sync.NewCond(&d.mu)
	for i := range d.rtr {
		d.rtr[i].cond = sync.NewCond(&d.mu)
	}
	if opts.TxReady {
		d.txReady = txready.NewSlot(d.txReadyWork)
	}

	d.lower.Reset()
	return d, nil
}

// waitCond is sync.Cond.Wait with context cancellation: it atomically
// drops mu (which must be held), blocks, and re-acquires mu before
// returning, same as a POSIX sem_wait logically held inside a critical
// section. A canceled context wakes it exactly like the original's
// signal-interrupted sem_wait, except the caller here gets ctx.Err()
// back directly instead of re-looping on EINTR — Go has no equivalent of
// a spurious signal delivery to model, so there is nothing to re-loop on
// beyond the caller's own predicate re-check.
func (d *Device) waitCond(ctx context.Context, cond *sync.Cond) error {
	if ctx == nil || ctx.Done() == nil {
		cond.Wait()
		return nil
	}
	stop := context.AfterFunc(ctx, cond.Broadcast)
	defer stop()
	cond.Wait()
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}

// Stats is a read-only snapshot of device bookkeeping, useful for
// observability. It is not part of the original C driver, but implied by
// the state spec §3 says the device owns; reading it takes the same
// critical section as any other operation.
type Stats struct {
	OpenCount    uint8
	RxWaiters    int
	TxWaiters    int
	PendingRTR   int
	StickyErrors uint8
}

// Stats returns a snapshot of the device's bookkeeping counters.
func (d *Device) Stats() Stats {
	d.mu.Lock()
	defer d.mu.Unlock()
	return Stats{
		OpenCount:    d.openCount,
		RxWaiters:    d.nRxWaiters,
		TxWaiters:    d.nTxWaiters,
		PendingRTR:   d.nPendRTR,
		StickyErrors: d.errorLatch,
	}
}

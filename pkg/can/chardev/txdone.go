package chardev

import "github.com/canio/upperhalf/pkg/can"

// TxDone is the upcall a lower half invokes, from genuine interrupt or
// goroutine context, when hardware completes (or, for a hardware-FIFO
// part, merely accepts) one outstanding frame. Implements spec §4.2's
// can_txdone.
func (d *Device) TxDone() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.txDoneLocked()
}

// TxDoneLocked is TxDone for a LowerHalf.Send that calls back
// synchronously — see can.UpcallReceiver's doc comment for why this
// exists instead of just reusing TxDone.
func (d *Device) TxDoneLocked() {
	d.txDoneLocked()
}

func (d *Device) txDoneLocked() {
	if d.tx.Empty() {
		return
	}
	if !d.tx.AdvanceHead() {
		// head == queue: nothing was actually handed to dev_send. This
		// should not happen; log and do nothing rather than corrupt the
		// ring further.
		d.logger.Warn("can: txdone with no outstanding entry")
		return
	}

	d.xmitLocked()

	if d.nTxWaiters > 0 {
		d.txCond.Signal()
	}
}

// TxReady is the upcall a lower half with its own hardware TX FIFO
// invokes, from interrupt context, to report that the hardware now has
// room for another frame. Only meaningful when the device was built with
// the TxReady option. Implements spec §4.2's can_txready.
func (d *Device) TxReady() error {
	d.mu.Lock()
	empty := d.tx.Empty()
	d.mu.Unlock()

	if empty {
		// No assertion here: a waiter that was just signaled may not
		// have decremented nTxWaiters yet. See spec §9's note on the
		// intentionally suppressed "no waiters when empty" assertion.
		return nil
	}
	if d.txReady == nil {
		return nil
	}
	if err := d.txReady.Schedule(); err != nil {
		return can.ErrBusy
	}
	return nil
}

// txReadyWork is spec §4.2's can_txready_work, run on its own goroutine
// because xmitLocked (via lower.Send) may take locks that are illegal to
// take at interrupt level.
func (d *Device) txReadyWork() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.tx.Empty() {
		return
	}
	if err := d.xmitLocked(); err == nil && d.nTxWaiters > 0 {
		d.txCond.Signal()
	}
}

package chardev

import (
	"context"

	"github.com/canio/upperhalf/pkg/can"
)

// write implements spec §4.2's can_write: parse self-delimiting frames
// out of buf, block (or not, per nonBlocking) for TX FIFO space, and kick
// the xmit engine.
func (d *Device) write(ctx context.Context, buf []byte, nonBlocking bool) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	inactive := d.lower.TxEmpty()
	nsent := 0

	for len(buf)-nsent >= can.MsgLen(0) {
		msg, consumed, ok := can.DecodeMsg(buf[nsent:], d.opts.CANFD)
		if !ok {
			// Shorter-than-minimum trailing bytes: stop, matching the
			// original's buflen-nsent >= CAN_MSGLEN(0) loop guard plus
			// the bounds check Go needs that C's raw memcpy did not.
			break
		}

		for d.tx.Full() {
			if nonBlocking {
				if nsent == 0 {
					return 0, can.ErrWouldBlock
				}
				return nsent, nil
			}

			if inactive {
				d.xmitLocked()
			}

			d.nTxWaiters++
			err := d.waitCond(ctx, d.txCond)
			d.nTxWaiters--
			if err != nil {
				return nsent, err
			}

			inactive = d.lower.TxEmpty()
		}

		d.tx.Push(msg)
		nsent += consumed
	}

	if inactive {
		d.xmitLocked()
	}
	return nsent, nil
}

// xmitLocked implements spec §4.2's can_xmit. Precondition: d.mu held.
func (d *Device) xmitLocked() error {
	if d.tx.Empty() {
		if !d.opts.TxReady {
			d.lower.TxInt(false)
		}
		return can.ErrNothingToDo
	}

	var sendErr error
	for !d.tx.QueueDrained() && d.lower.TxReady() {
		// Advance the queue cursor before calling Send, because Send may
		// synchronously call back into TxDoneLocked, which advances
		// head and must never be allowed to overtake queue.
		msg := d.tx.PeekQueue()
		d.tx.AdvanceQueue()

		if err := d.lower.Send(&msg); err != nil {
			d.logger.Warn("can: dev_send failed", "err", err, "id", msg.ID)
			sendErr = err
			break
		}
	}

	d.lower.TxInt(true)
	return sendErr
}

package chardev

import (
	"context"

	"github.com/canio/upperhalf/pkg/can"
)

// read implements spec §4.3's can_read, including the ERRORS-enabled
// synthesized error frame and the non-blocking / blocking FIFO-empty
// handling.
func (d *Device) read(ctx context.Context, buf []byte, nonBlocking bool) (int, error) {
	if len(buf) < can.MsgLen(0) {
		return 0, nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.opts.Errors && d.errorLatch != 0 {
		if len(buf) < can.MsgLen(int(can.ErrorDLC)) {
			// Not enough room to deliver the error frame; leave the
			// latch set and tell the caller nothing was read, same as
			// the original's early return with ret still 0.
			return 0, nil
		}
		msg := can.Msg{Header: can.Header{
			ID:    can.ErrorInternalID,
			DLC:   can.ErrorDLC,
			Error: true,
		}}
		msg.Data[5] = d.errorLatch
		d.errorLatch = 0
		n := msg.Encode(buf, d.opts.CANFD)
		return n, nil
	}

	for d.rx.Empty() {
		if nonBlocking {
			return 0, can.ErrWouldBlock
		}
		d.nRxWaiters++
		err := d.waitCond(ctx, d.rxCond)
		d.nRxWaiters--
		if err != nil {
			return 0, err
		}
	}

	nread := 0
	for !d.rx.Empty() {
		msg := d.rx.Front()
		nbytes := int(can.DLCToBytes(msg.DLC, d.opts.CANFD))
		msglen := can.MsgLen(nbytes)
		if nread+msglen > len(buf) {
			break
		}
		msg.Encode(buf[nread:], d.opts.CANFD)
		nread += msglen
		d.rx.Advance()
	}
	return nread, nil
}

package chardev

import "github.com/canio/upperhalf/pkg/can"

// Receive is the upcall a lower half invokes, from genuine interrupt or
// goroutine context, when a new frame arrives off the wire. It implements
// spec §4.3's can_receive.
func (d *Device) Receive(hdr can.Header, data []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.receiveLocked(hdr, data)
}

// receiveLocked is the body of Receive. Precondition: d.mu held.
func (d *Device) receiveLocked(hdr can.Header, data []byte) error {
	// RTR matching happens even if the RX FIFO is later found full: an
	// RTR caller is still served. Uses its own index (slotIdx), never
	// reusing a loop variable across the RX-FIFO delivery below — the
	// bug the spec's design notes flag in the original C is a single
	// shared `i` reused between the RTR scan and the copy loop; that
	// shape cannot occur here since each loop has its own variable.
	if d.nPendRTR > 0 {
		for slotIdx := range d.rtr {
			slot := &d.rtr[slotIdx]
			if slot.target == nil || slot.id != hdr.ID {
				continue
			}
			nbytes := int(can.DLCToBytes(hdr.DLC, d.opts.CANFD))
			slot.target.Header = hdr
			copy(slot.target.Data[:nbytes], data[:nbytes])
			slot.target = nil
			d.nPendRTR--
			slot.cond.Signal()
		}
	}

	if d.rx.Full() {
		if d.opts.Errors {
			d.errorLatch |= can.ErrorRxOverflow
		}
		return can.ErrOutOfMemory
	}

	nbytes := int(can.DLCToBytes(hdr.DLC, d.opts.CANFD))
	var msg can.Msg
	msg.Header = hdr
	copy(msg.Data[:nbytes], data[:nbytes])
	d.rx.Push(msg)

	if d.nRxWaiters > 0 {
		d.rxCond.Signal()
	}
	return nil
}

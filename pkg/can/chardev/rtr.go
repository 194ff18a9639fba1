package chardev

import (
	"context"

	"github.com/canio/upperhalf/pkg/can"
)

// rtrRead implements spec §4.4's can_rtrread / the CANIOC_RTR ioctl: a
// send-wait-receive operation. The original tests slot availability with
// `!rtr->ci_msg`, checking the caller's request rather than the slot —
// spec §9 calls this out as almost certainly a bug. This implementation
// uses the corrected predicate: a slot is free iff its own target pointer
// is nil.
func (d *Device) rtrRead(ctx context.Context, id uint32, target *can.Msg) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	var slot *rtrSlot
	for i := range d.rtr {
		if d.rtr[i].target == nil {
			slot = &d.rtr[i]
			break
		}
	}
	if slot == nil {
		return can.ErrOutOfMemory
	}

	slot.id = id
	slot.target = target
	d.nPendRTR++

	if err := d.lower.RemoteRequest(id); err != nil {
		// Unlike the original, which leaves the slot reserved forever
		// if dev_remoterequest fails (nothing will ever post it), free
		// it here: this is a synchronous, immediately-detected failure,
		// not the "abandoned wait" case spec §5 documents as a known
		// leak.
		slot.target = nil
		d.nPendRTR--
		return err
	}

	for slot.target != nil {
		if err := d.waitCond(ctx, slot.cond); err != nil {
			// Per spec §5's Cancellation note, an abandoned RTR wait
			// leaks its slot until a matching frame eventually arrives
			// and Receive frees it; there is no cancellation path that
			// reclaims the slot early.
			return err
		}
	}
	return nil
}

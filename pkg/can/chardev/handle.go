package chardev

import (
	"context"
	"time"

	"github.com/canio/upperhalf/pkg/can"
)

// OpenFlags mirrors the file-open flags spec §6 distinguishes: mainly
// whether Read/Write should block.
type OpenFlags uint32

// ONonBlock is O_NONBLOCK: Read returns can.ErrWouldBlock instead of
// blocking on an empty RX FIFO, and Write returns whatever was copied
// (possibly zero, as can.ErrWouldBlock) instead of blocking on a full TX
// FIFO.
const ONonBlock OpenFlags = 1 << 0

// Handle is one open file description against a Device: several Handles
// may share one Device (open count > 1), each with its own blocking
// mode, matching a real character device's per-fd O_NONBLOCK.
type Handle struct {
	dev         *Device
	nonBlocking bool
	closed      bool
}

// Open implements spec §4.1's can_open: increments the device's open
// count, performing first-open hardware bring-up if this is the first
// Handle. Returns can.ErrTooManyOpens if the 8-bit open counter would
// overflow.
func (d *Device) Open(flags OpenFlags) (*Handle, error) {
	d.closeMu.Lock()
	defer d.closeMu.Unlock()

	next := d.openCount + 1
	if next == 0 {
		// uint8 wrapped past 255: more than 255 concurrent opens.
		return nil, can.ErrTooManyOpens
	}

	if next == 1 {
		d.mu.Lock()
		err := d.lower.Setup()
		if err == nil {
			d.rx.Reset()
			d.tx.Reset()
			d.lower.RxInt(true)
			d.openCount = 1
		}
		d.mu.Unlock()
		if err != nil {
			return nil, err
		}
	} else {
		d.openCount = next
	}

	return &Handle{dev: d, nonBlocking: flags&ONonBlock != 0}, nil
}

// Close implements spec §4.1's can_close. On the last close it disables
// RX interrupts, then polls (outside the hard critical section, at
// ClosePollInterval granularity) until the software TX FIFO and then the
// hardware TX FIFO report empty, before tearing hardware down.
func (h *Handle) Close() error {
	if h.closed {
		return nil
	}
	h.closed = true
	d := h.dev

	d.closeMu.Lock()
	defer d.closeMu.Unlock()

	if d.openCount > 1 {
		d.openCount--
		return nil
	}
	d.openCount = 0

	d.mu.Lock()
	d.lower.RxInt(false)
	d.mu.Unlock()

	for {
		d.mu.Lock()
		empty := d.tx.Empty()
		d.mu.Unlock()
		if empty {
			break
		}
		time.Sleep(ClosePollInterval)
	}
	for !d.lower.TxEmpty() {
		time.Sleep(ClosePollInterval)
	}

	d.mu.Lock()
	err := d.lower.Shutdown()
	d.mu.Unlock()
	return err
}

// Read implements spec §4.3's can_read.
func (h *Handle) Read(buf []byte) (int, error) {
	return h.dev.read(context.Background(), buf, h.nonBlocking)
}

// ReadContext is Read with cancellation: a canceled ctx wakes a blocked
// Read early and returns ctx.Err().
func (h *Handle) ReadContext(ctx context.Context, buf []byte) (int, error) {
	return h.dev.read(ctx, buf, h.nonBlocking)
}

// Write implements spec §4.2's can_write.
func (h *Handle) Write(buf []byte) (int, error) {
	return h.dev.write(context.Background(), buf, h.nonBlocking)
}

// WriteContext is Write with cancellation.
func (h *Handle) WriteContext(ctx context.Context, buf []byte) (int, error) {
	return h.dev.write(ctx, buf, h.nonBlocking)
}

// RTRRead implements ioctl(CANIOC_RTR, ...): send a Remote Transmission
// Request for id and block until a matching frame arrives, filling
// target. See spec §4.4.
func (h *Handle) RTRRead(ctx context.Context, id uint32, target *can.Msg) error {
	return h.dev.rtrRead(ctx, id, target)
}

// IOCtl forwards any command this package does not recognize to the
// lower half, per spec §4.6.
func (h *Handle) IOCtl(cmd int, arg uintptr) error {
	return h.dev.lower.IOCtl(cmd, arg)
}

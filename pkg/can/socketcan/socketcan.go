//go:build linux
// +build linux

// Package socketcan adapts a Linux SocketCAN interface into a
// can.LowerHalf, wrapping github.com/brutella/can the same way the
// teacher's pkg/can/socketcan wraps it for its Bus interface — only the
// target contract differs (LowerHalf's setup/shutdown/send/rxint instead
// of Bus's Connect/Disconnect/Send/Subscribe).
package socketcan

import (
	"errors"
	"log/slog"
	"sync"

	sockcan "github.com/brutella/can"
	"golang.org/x/sys/unix"

	"github.com/canio/upperhalf/pkg/can"
)

// Adapter is a can.LowerHalf backed by a real SocketCAN socket. A
// SocketCAN interface has no visible "hardware TX FIFO full" signal at
// this level, so TxReady/TxEmpty report optimistically and Send reports
// completion synchronously (via TxDoneLocked) once the kernel accepts the
// frame for transmission.
type Adapter struct {
	logger *slog.Logger
	bus    *sockcan.Bus
	upper  can.UpcallReceiver

	mu        sync.Mutex
	rxEnabled bool
}

// New opens (but does not yet connect) a SocketCAN adapter for the given
// interface name, e.g. "can0" or "vcan0".
func New(ifname string, logger *slog.Logger) (*Adapter, error) {
	bus, err := sockcan.NewBusForInterfaceWithName(ifname)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Adapter{bus: bus, logger: logger}, nil
}

// Bind attaches the upper half that will receive upcalls. Must be called
// before Setup, that is, before the device's first Open.
func (a *Adapter) Bind(upper can.UpcallReceiver) {
	a.upper = upper
}

// Setup implements can.LowerHalf.
func (a *Adapter) Setup() error {
	go a.bus.ConnectAndPublish()
	return a.bus.Subscribe(a)
}

// Shutdown implements can.LowerHalf.
func (a *Adapter) Shutdown() error {
	return a.bus.Disconnect()
}

// Reset implements can.LowerHalf.
func (a *Adapter) Reset() {}

// RxInt implements can.LowerHalf by gating delivery in Handle: SocketCAN
// has no interrupt mask to toggle, so frames keep arriving at the socket
// regardless, and we simply stop forwarding them upstream.
func (a *Adapter) RxInt(on bool) {
	a.mu.Lock()
	a.rxEnabled = on
	a.mu.Unlock()
}

// TxInt implements can.LowerHalf. No-op: there is no separate
// transmit-complete interrupt to mask at this abstraction level.
func (a *Adapter) TxInt(on bool) {}

// TxReady implements can.LowerHalf. The kernel socket buffer is assumed
// to always have room; back-pressure would surface as a write error from
// Publish instead.
func (a *Adapter) TxReady() bool { return true }

// TxEmpty implements can.LowerHalf, optimistically: SocketCAN gives no
// way to observe the kernel's internal queue depth from here.
func (a *Adapter) TxEmpty() bool { return true }

// Send implements can.LowerHalf. It publishes msg to the socket and, on
// success, calls back into the upper half's TxDoneLocked synchronously —
// this is the re-entrant dev_send path spec §9 documents.
func (a *Adapter) Send(msg *can.Msg) error {
	nbytes := can.DLCToBytes(msg.DLC, false)
	var data [8]byte
	copy(data[:], msg.Data[:nbytes])

	id := msg.ID
	if msg.RTR {
		id |= unix.CAN_RTR_FLAG
	}
	if msg.ExtID {
		id |= unix.CAN_EFF_FLAG
	}

	frame := sockcan.Frame{ID: id, Length: nbytes, Data: data}
	if err := a.bus.Publish(frame); err != nil {
		return err
	}
	a.upper.TxDoneLocked()
	return nil
}

// RemoteRequest implements can.LowerHalf.
func (a *Adapter) RemoteRequest(id uint32) error {
	return a.bus.Publish(sockcan.Frame{ID: id | unix.CAN_RTR_FLAG})
}

// IOCtl implements can.LowerHalf. SocketCAN has no device-specific
// ioctls modeled here.
func (a *Adapter) IOCtl(cmd int, arg uintptr) error {
	return errors.New("socketcan: unsupported ioctl")
}

// Handle implements brutella/can's frame-handler interface, delivering
// each received frame to the bound upper half when RX interrupts are
// enabled.
func (a *Adapter) Handle(frame sockcan.Frame) {
	a.mu.Lock()
	enabled := a.rxEnabled
	a.mu.Unlock()
	if !enabled || a.upper == nil {
		return
	}

	hdr := can.Header{
		ID:    frame.ID &^ (unix.CAN_RTR_FLAG | unix.CAN_EFF_FLAG),
		DLC:   frame.Length,
		RTR:   frame.ID&unix.CAN_RTR_FLAG != 0,
		ExtID: frame.ID&unix.CAN_EFF_FLAG != 0,
	}
	if err := a.upper.Receive(hdr, frame.Data[:frame.Length]); err != nil {
		a.logger.Debug("can: receive", "err", err)
	}
}

// Package virtual provides an in-process, channel-backed can.LowerHalf
// pair for tests and local demos, the same role the teacher's TCP-loopback
// virtual bus plays for CANopen integration tests — minus the network
// round trip, since nothing here needs to cross a process boundary.
package virtual

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/canio/upperhalf/pkg/can"
)

// queueDepth bounds each direction's in-flight frame channel. A real
// hardware TX FIFO is already modeled one layer up by chardev's TXFifo;
// this only needs enough depth that Send rarely blocks inside the test
// loopback link itself.
const queueDepth = 16

// Endpoint is one side of a connected pair of virtual CAN controllers.
// Frames sent on one Endpoint are delivered to its peer's upper half.
type Endpoint struct {
	logger *slog.Logger
	name   string
	out    chan can.Msg
	in     chan can.Msg

	upper can.UpcallReceiver

	mu        sync.Mutex
	rxEnabled bool
	running   bool
	stop      chan struct{}
	wg        sync.WaitGroup
}

// NewPair returns two Endpoints wired to each other: frames sent on a
// are delivered to b's upper half and vice versa.
func NewPair(logger *slog.Logger) (a, b *Endpoint) {
	if logger == nil {
		logger = slog.Default()
	}
	chAtoB := make(chan can.Msg, queueDepth)
	chBtoA := make(chan can.Msg, queueDepth)
	a = &Endpoint{logger: logger, name: "a", out: chAtoB, in: chBtoA}
	b = &Endpoint{logger: logger, name: "b", out: chBtoA, in: chAtoB}
	return a, b
}

// Bind attaches the upper half that will receive this endpoint's upcalls.
// Must be called before Setup.
func (e *Endpoint) Bind(upper can.UpcallReceiver) {
	e.upper = upper
}

// Setup implements can.LowerHalf, starting the delivery goroutine.
func (e *Endpoint) Setup() error {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return fmt.Errorf("virtual: %s already set up", e.name)
	}
	e.running = true
	e.stop = make(chan struct{})
	e.mu.Unlock()

	e.wg.Add(1)
	go e.loop()
	return nil
}

// Shutdown implements can.LowerHalf, stopping the delivery goroutine.
func (e *Endpoint) Shutdown() error {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return nil
	}
	e.running = false
	close(e.stop)
	e.mu.Unlock()

	e.wg.Wait()
	return nil
}

// Reset implements can.LowerHalf. Nothing to do: the endpoint has no
// latched hardware state outside the channels themselves.
func (e *Endpoint) Reset() {}

// RxInt implements can.LowerHalf.
func (e *Endpoint) RxInt(on bool) {
	e.mu.Lock()
	e.rxEnabled = on
	e.mu.Unlock()
}

// TxInt implements can.LowerHalf. No-op: Send always completes
// synchronously here, so there is no deferred transmit-complete
// interrupt to mask.
func (e *Endpoint) TxInt(on bool) {}

// TxReady implements can.LowerHalf: the outbound channel always has
// room unless the peer has stopped draining it.
func (e *Endpoint) TxReady() bool {
	return len(e.out) < cap(e.out)
}

// TxEmpty implements can.LowerHalf.
func (e *Endpoint) TxEmpty() bool {
	return len(e.out) == 0
}

// Send implements can.LowerHalf by pushing msg onto the peer-facing
// channel, then calling back into the upper half synchronously — this is
// the loopback link's version of spec §9's re-entrant dev_send path, and
// is exactly why TxDoneLocked exists.
func (e *Endpoint) Send(msg *can.Msg) error {
	select {
	case e.out <- *msg:
	default:
		return can.ErrBusy
	}
	e.upper.TxDoneLocked()
	return nil
}

// RemoteRequest implements can.LowerHalf by publishing an RTR frame on
// the link. The peer's upper half receives it like any other frame; it is
// answered only if whoever reads the peer device writes a reply.
func (e *Endpoint) RemoteRequest(id uint32) error {
	msg := can.Msg{Header: can.Header{ID: id, RTR: true}}
	select {
	case e.out <- msg:
		return nil
	default:
		return can.ErrBusy
	}
}

// IOCtl implements can.LowerHalf. No device-specific commands modeled.
func (e *Endpoint) IOCtl(cmd int, arg uintptr) error {
	return fmt.Errorf("virtual: unsupported ioctl %d", cmd)
}

func (e *Endpoint) loop() {
	defer e.wg.Done()
	for {
		select {
		case <-e.stop:
			return
		case msg := <-e.in:
			e.mu.Lock()
			enabled := e.rxEnabled
			e.mu.Unlock()
			if !enabled || e.upper == nil {
				continue
			}
			nbytes := can.DLCToBytes(msg.DLC, false)
			if err := e.upper.Receive(msg.Header, msg.Data[:nbytes]); err != nil {
				e.logger.Debug("virtual: receive", "endpoint", e.name, "err", err)
			}
		}
	}
}

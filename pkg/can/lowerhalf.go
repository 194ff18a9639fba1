package can

// LowerHalf is the hardware-specific adapter contract the upper half
// drives. Implementations sit below pkg/can/chardev.Device and translate
// its calls into whatever a real CAN controller, a SocketCAN socket, or a
// loopback for testing needs. See spec §6 "Lower-half (adapter) contract".
type LowerHalf interface {
	// Setup brings the hardware up. Called once, on the first Open.
	Setup() error
	// Shutdown tears the hardware down. Called once, on the last Close.
	Shutdown() error
	// Reset is called once, when the device is registered, before any
	// Open.
	Reset()
	// RxInt enables or disables the receive interrupt (or its moral
	// equivalent: a software adapter might use this to gate delivery).
	RxInt(on bool)
	// TxInt enables or disables the transmit-complete interrupt.
	TxInt(on bool)
	// TxReady reports, without blocking, whether hardware will accept
	// another frame right now.
	TxReady() bool
	// TxEmpty reports, without blocking, whether the hardware transmit
	// pipeline (including any hardware FIFO) is fully drained.
	TxEmpty() bool
	// Send hands one frame to hardware. Implementations are allowed to
	// call back into the bound UpcallReceiver's TxDoneLocked
	// synchronously, from within Send, before returning — see
	// UpcallReceiver's doc comment.
	Send(msg *Msg) error
	// RemoteRequest emits a Remote Transmission Request for id.
	RemoteRequest(id uint32) error
	// IOCtl is a passthrough for any command the upper half does not
	// recognize itself.
	IOCtl(cmd int, arg uintptr) error
}

// UpcallReceiver is implemented by the upper half and invoked by a
// LowerHalf adapter to report incoming frames and transmit completion.
type UpcallReceiver interface {
	// Receive delivers one incoming frame. Call this from genuine
	// interrupt/goroutine context — it acquires the upper half's
	// critical section itself. Returns ErrOutOfMemory if the RX FIFO
	// was full (the frame is still matched against pending RTR waiters
	// either way).
	Receive(hdr Header, data []byte) error

	// TxDone reports that one outstanding frame completed (or, for
	// hardware with its own TX FIFO, was accepted into it). Call this
	// from genuine interrupt/goroutine context.
	TxDone()

	// TxDoneLocked is TxDone for the case LowerHalf.Send calls back
	// synchronously, on the same goroutine stack, while the upper
	// half's critical section it entered before calling Send is still
	// held. Calling TxDone in that situation would try to re-acquire a
	// non-reentrant lock and deadlock; see the spec's design note on
	// dev_send re-entrancy. An adapter whose Send always completes
	// asynchronously (a real interrupt later) never needs this.
	TxDoneLocked()

	// TxReady signals that hardware has room for another frame. Only
	// meaningful, and only ever called, when the device was built with
	// the TxReady/hardware-FIFO option enabled.
	TxReady() error
}

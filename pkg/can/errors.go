package can

import "errors"

// Sentinel errors returned across the upper-half's file-like surface.
// These are the user-facing error kinds from the design's error taxonomy.
// ErrNothingToDo is xmit's internal "TX FIFO empty" result and never
// crosses Read/Write/IOCtl. TxDone has no return value and reports an
// empty FIFO by simply returning, so ErrNoEntry is not returned by any
// operation in this module.
var (
	ErrWouldBlock   = errors.New("can: operation would block")
	ErrTooManyOpens = errors.New("can: too many opens")
	ErrOutOfMemory  = errors.New("can: out of memory")
	ErrBusy         = errors.New("can: busy")
	ErrNothingToDo  = errors.New("can: nothing to transmit")
	ErrNoEntry      = errors.New("can: no entry")
	ErrClosed       = errors.New("can: device is closed")
)

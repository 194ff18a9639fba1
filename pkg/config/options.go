// Package config turns spec §6's compile-time build options (FIFO_SIZE,
// N_PENDING_RTR, CAN_FD, EXTID, ERRORS, TXREADY) into a runtime Options
// struct, loadable from an ini file the same way the teacher loads EDS
// configuration (pkg/od/parser.go) with gopkg.in/ini.v1 — except the
// schema here is the driver's own option set, not an Object Dictionary.
package config

import "fmt"

// Options configures one Device. A zero-value Options is invalid; use
// Default or Load.
type Options struct {
	// FIFOSize is the capacity of both the RX and TX rings. C-1 of the
	// C slots are usable.
	FIFOSize int
	// PendingRTRSlots is the size of the RTR waiter table.
	PendingRTRSlots int
	// CANFD enables the extended DLC table (codes 9-15 map to 12-64
	// bytes instead of saturating at 8).
	CANFD bool
	// ExtID enables 29-bit identifiers.
	ExtID bool
	// Errors enables the sticky RX-overflow latch and synthesized error
	// frames.
	Errors bool
	// TxReady enables the txready upcall and deferred-work hand-off for
	// hardware with its own TX FIFO.
	TxReady bool
}

// Default returns the option set a small microcontroller-class adapter
// would reasonably use: enough FIFO depth to absorb a burst, a handful of
// outstanding RTRs, errors latched, no hardware TX FIFO.
func Default() Options {
	return Options{
		FIFOSize:        8,
		PendingRTRSlots: 4,
		CANFD:           false,
		ExtID:           false,
		Errors:          true,
		TxReady:         false,
	}
}

// Validate reports whether o describes a usable device.
func (o Options) Validate() error {
	if o.FIFOSize < 2 {
		return fmt.Errorf("config: fifo_size must be >= 2 (need at least one usable slot), got %d", o.FIFOSize)
	}
	if o.PendingRTRSlots < 1 {
		return fmt.Errorf("config: pending_rtr_slots must be >= 1, got %d", o.PendingRTRSlots)
	}
	return nil
}

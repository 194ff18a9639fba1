// Package can defines the data model shared by the upper half and its
// lower-half adapters: the CAN message header, the wire encoding a user
// hands to Write, the CAN/CAN-FD DLC codec, and the LowerHalf contract.
package can

import "encoding/binary"

// HeaderSize is the number of bytes a Header occupies in the wire form
// a caller passes to Write and receives from Read.
const HeaderSize = 8

const (
	flagRTR uint8 = 1 << iota
	flagExtID
	flagError
)

// Header is a CAN message header: 11- or 29-bit id, 4-bit DLC, and flags.
// RTR implies a zero-length payload; Error frames are synthesized by the
// driver itself and are never accepted from a caller's Write buffer.
type Header struct {
	ID    uint32
	DLC   uint8
	RTR   bool
	ExtID bool
	Error bool
}

// Msg is a Header plus up to 64 bytes of payload (CAN-FD's maximum). The
// logical length of Data is DLCToBytes(DLC, canFD), never len(Data).
type Msg struct {
	Header
	Data [64]byte
}

// MsgLen returns the number of wire bytes a frame with nbytes of payload
// occupies: the fixed header plus the payload.
func MsgLen(nbytes int) int {
	return HeaderSize + nbytes
}

// DLCToBytes decodes a 4-bit DLC code into a payload byte count. Codes 0-8
// are literal. Codes 9-15 saturate at 8 bytes for standard CAN, or map to
// the CAN-FD table {9:12, 10:16, 11:20, 12:24, 13:32, 14:48, 15:64} when
// canFD is set. Any code above 15 cannot occur (DLC is 4 bits); callers
// that decode an out-of-range value fall through the default case and are
// treated as 15 (64 bytes under CAN-FD, 8 otherwise), the same saturating
// behavior the original's switch statement has for its default case.
func DLCToBytes(dlc uint8, canFD bool) uint8 {
	if dlc <= 8 {
		return dlc
	}
	if !canFD {
		return 8
	}
	switch dlc {
	case 9:
		return 12
	case 10:
		return 16
	case 11:
		return 20
	case 12:
		return 24
	case 13:
		return 32
	case 14:
		return 48
	default:
		return 64
	}
}

// BytesToDLC is the inverse of DLCToBytes: the smallest DLC code whose
// byte count is >= n. The C original carried this as dead code (#if 0);
// here it is a real, exercised operation, used by cmd/candevctl and the
// tests to turn a payload size back into a DLC.
func BytesToDLC(n uint8, canFD bool) uint8 {
	if n <= 8 {
		return n
	}
	if !canFD {
		return 8
	}
	switch {
	case n <= 12:
		return 9
	case n <= 16:
		return 10
	case n <= 20:
		return 11
	case n <= 24:
		return 12
	case n <= 32:
		return 13
	case n <= 48:
		return 14
	default:
		return 15
	}
}

// EncodeHeader writes h into buf[0:HeaderSize]. buf must be at least
// HeaderSize bytes.
func EncodeHeader(h Header, buf []byte) {
	binary.LittleEndian.PutUint32(buf[0:4], h.ID)
	buf[4] = h.DLC
	var f uint8
	if h.RTR {
		f |= flagRTR
	}
	if h.ExtID {
		f |= flagExtID
	}
	if h.Error {
		f |= flagError
	}
	buf[5] = f
	buf[6] = 0
	buf[7] = 0
}

// DecodeHeader reads a Header from buf[0:HeaderSize]. buf must be at
// least HeaderSize bytes.
func DecodeHeader(buf []byte) Header {
	f := buf[5]
	return Header{
		ID:    binary.LittleEndian.Uint32(buf[0:4]),
		DLC:   buf[4],
		RTR:   f&flagRTR != 0,
		ExtID: f&flagExtID != 0,
		Error: f&flagError != 0,
	}
}

// Encode serializes m into buf as (header, payload), using canFD to decide
// the payload length for m.DLC, and returns the number of bytes written.
// buf must be at least MsgLen(DLCToBytes(m.DLC, canFD)) bytes.
func (m Msg) Encode(buf []byte, canFD bool) int {
	EncodeHeader(m.Header, buf)
	n := int(DLCToBytes(m.DLC, canFD))
	copy(buf[HeaderSize:HeaderSize+n], m.Data[:n])
	return HeaderSize + n
}

// DecodeMsg parses one self-delimiting frame from the front of buf. It
// reports ok=false if buf is too short to hold even the header, or too
// short to hold the header plus the payload DLC implies; both cases are
// the "shorter-than-minimum trailing bytes" that Write silently ignores.
func DecodeMsg(buf []byte, canFD bool) (msg Msg, consumed int, ok bool) {
	if len(buf) < HeaderSize {
		return Msg{}, 0, false
	}
	hdr := DecodeHeader(buf)
	n := int(DLCToBytes(hdr.DLC, canFD))
	total := HeaderSize + n
	if len(buf) < total {
		return Msg{}, 0, false
	}
	msg.Header = hdr
	copy(msg.Data[:n], buf[HeaderSize:total])
	return msg, total, true
}

// Synthesized error frame constants (ERRORS build option). ErrorInternalID
// is a driver-reserved identifier, outside any id a real bus frame would
// carry, used only for the pseudo-frame Read synthesizes from the sticky
// error latch.
const (
	ErrorInternalID uint32 = 1<<29 | 1
	ErrorDLC        uint8  = 8
)

// Sticky error latch bits (ERRORS build option).
const (
	ErrorRxOverflow uint8 = 1 << 0
)

package chardev

import (
	"sync"

	"github.com/canio/upperhalf/pkg/can"
)

// fakeLowerHalf is a synchronous, in-memory can.LowerHalf test double. It
// has no hardware FIFO of its own: TxEmpty/TxReady return the test-set
// txEmptyVal/txReadyVal fields (both true by default), and Send can be
// configured to call back into the bound upper half's TxDoneLocked
// synchronously (the re-entrant dev_send path spec §9 calls out) or to
// leave completion to a later, explicit Device.TxDone call from the test.
type fakeLowerHalf struct {
	mu sync.Mutex

	upper can.UpcallReceiver

	setupCalls    int
	shutdownCalls int
	resetCalls    int
	rxIntOn       bool
	txIntOn       bool

	syncTxDone bool
	sendErr    error
	sent       []can.Msg

	txReadyVal bool
	txEmptyVal bool

	remoteRequests []uint32
	remoteErr      error
}

func newFakeLowerHalf() *fakeLowerHalf {
	return &fakeLowerHalf{txReadyVal: true, txEmptyVal: true}
}

func (f *fakeLowerHalf) Bind(upper can.UpcallReceiver) { f.upper = upper }

func (f *fakeLowerHalf) Setup() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.setupCalls++
	return nil
}

func (f *fakeLowerHalf) Shutdown() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.shutdownCalls++
	return nil
}

func (f *fakeLowerHalf) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resetCalls++
}

func (f *fakeLowerHalf) RxInt(on bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rxIntOn = on
}

func (f *fakeLowerHalf) TxInt(on bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.txIntOn = on
}

func (f *fakeLowerHalf) TxReady() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.txReadyVal
}

func (f *fakeLowerHalf) TxEmpty() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.txEmptyVal
}

func (f *fakeLowerHalf) Send(msg *can.Msg) error {
	f.mu.Lock()
	if f.sendErr != nil {
		err := f.sendErr
		f.mu.Unlock()
		return err
	}
	f.sent = append(f.sent, *msg)
	callBack := f.syncTxDone
	f.mu.Unlock()

	if callBack {
		f.upper.TxDoneLocked()
	}
	return nil
}

func (f *fakeLowerHalf) RemoteRequest(id uint32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.remoteRequests = append(f.remoteRequests, id)
	return f.remoteErr
}

func (f *fakeLowerHalf) IOCtl(cmd int, arg uintptr) error { return nil }

func (f *fakeLowerHalf) sentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

package txready

import (
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduleRunsWork(t *testing.T) {
	done := make(chan struct{})
	s := NewSlot(func() { close(done) })

	require.NoError(t, s.Schedule())

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduled work never ran")
	}
}

func TestScheduleRejectsWhileOutstanding(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	var once sync.Once

	s := NewSlot(func() {
		once.Do(func() { close(started) })
		<-release
	})

	require.NoError(t, s.Schedule())
	<-started

	assert.ErrorIs(t, s.Schedule(), ErrBusy)
	close(release)
}

func TestScheduleAgainAfterCompletion(t *testing.T) {
	var n int
	var mu sync.Mutex
	done := make(chan struct{}, 2)

	s := NewSlot(func() {
		mu.Lock()
		n++
		mu.Unlock()
		done <- struct{}{}
	})

	require.NoError(t, s.Schedule())
	<-done
	// done is sent before the work function returns; the slot is released
	// only once it has returned.
	for s.pending.Load() {
		runtime.Gosched()
	}

	require.NoError(t, s.Schedule())
	<-done

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 2, n)
}

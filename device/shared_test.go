package device

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// TestSlotEmpty verifies the zero-value slot behaves as empty.
func TestSlotEmpty(t *testing.T) {
	var slot Slot[int]

	if !slot.Empty() {
		t.Error("Expected zero-value slot to be empty")
	}
	if ref := slot.Acquire(); ref != nil {
		t.Error("Expected Acquire on empty slot to return nil")
	}
	if ref := slot.Clear(); ref != nil {
		t.Error("Expected Clear on empty slot to return nil")
	}
}

// TestSlotInstallAcquireRelease verifies reference counting through the
// basic lifecycle.
func TestSlotInstallAcquireRelease(t *testing.T) {
	var closed atomic.Int32
	var slot Slot[string]

	slot.Install("dev", func(string) { closed.Add(1) })
	if slot.Empty() {
		t.Fatal("Expected slot to hold the installed value")
	}

	ref := slot.Acquire()
	if ref == nil {
		t.Fatal("Expected Acquire to return a reference")
	}
	if ref.Value() != "dev" {
		t.Errorf("Expected value %q, got %q", "dev", ref.Value())
	}
	if ref.Unique() {
		t.Error("Expected two live references (slot + acquired)")
	}

	ref.Release()
	if closed.Load() != 0 {
		t.Error("Expected value to stay alive while the slot holds it")
	}

	own := slot.Clear()
	if own == nil {
		t.Fatal("Expected Clear to return the slot's reference")
	}
	if !own.Unique() {
		t.Error("Expected the cleared reference to be sole owner")
	}

	own.Release()
	if closed.Load() != 1 {
		t.Errorf("Expected exactly one close, got %d", closed.Load())
	}
}

// TestRefReleaseIdempotent verifies double release neither double-closes
// nor corrupts the count.
func TestRefReleaseIdempotent(t *testing.T) {
	var closed atomic.Int32
	var slot Slot[int]
	slot.Install(1, func(int) { closed.Add(1) })

	ref := slot.Acquire()
	ref.Release()
	ref.Release()

	own := slot.Clear()
	own.Release()
	own.Release()

	if closed.Load() != 1 {
		t.Errorf("Expected exactly one close, got %d", closed.Load())
	}
}

// TestCloseRunsOnReleasingGoroutine verifies the final release invokes
// the close function synchronously, before Release returns.
func TestCloseRunsOnReleasingGoroutine(t *testing.T) {
	closedDuringRelease := false
	closed := false

	var slot Slot[int]
	slot.Install(7, func(int) { closed = true })

	ref := slot.Clear()
	ref.Release()
	closedDuringRelease = closed

	if !closedDuringRelease {
		t.Error("Expected close to complete before Release returned")
	}
}

// TestWaitSoleOwner verifies the wait does not finish until every other
// reference has been released.
func TestWaitSoleOwner(t *testing.T) {
	var slot Slot[int]
	slot.Install(1, nil)

	other := slot.Acquire()
	own := slot.Clear()

	released := make(chan struct{})
	go func() {
		time.Sleep(30 * time.Millisecond)
		close(released)
		other.Release()
	}()

	own.WaitSoleOwner()

	select {
	case <-released:
	default:
		t.Error("Expected WaitSoleOwner to block until the other reference was released")
	}
	own.Release()
}

// TestInstallReplacesPrevious verifies installing over an occupied slot
// drops the slot's reference to the old value.
func TestInstallReplacesPrevious(t *testing.T) {
	var closedA, closedB atomic.Int32
	var slot Slot[string]

	slot.Install("a", func(string) { closedA.Add(1) })
	slot.Install("b", func(string) { closedB.Add(1) })

	if closedA.Load() != 1 {
		t.Errorf("Expected the replaced value to close, got %d closes", closedA.Load())
	}
	if closedB.Load() != 0 {
		t.Error("Expected the new value to stay alive")
	}

	ref := slot.Acquire()
	if ref.Value() != "b" {
		t.Errorf("Expected acquired value %q, got %q", "b", ref.Value())
	}
	ref.Release()
}

// TestSlotConcurrentAcquireRelease exercises the slot under the race
// detector with many goroutines taking and dropping references while the
// control path swaps values.
func TestSlotConcurrentAcquireRelease(t *testing.T) {
	var closes atomic.Int32
	var slot Slot[int]
	slot.Install(0, func(int) { closes.Add(1) })

	var wg sync.WaitGroup
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				if ref := slot.Acquire(); ref != nil {
					_ = ref.Value()
					ref.Release()
				}
			}
		}()
	}

	for swap := 1; swap <= 5; swap++ {
		slot.Install(swap, func(int) { closes.Add(1) })
	}
	wg.Wait()

	if own := slot.Clear(); own != nil {
		own.WaitSoleOwner()
		own.Release()
	}

	if closes.Load() != 6 {
		t.Errorf("Expected 6 closes (5 replaced + 1 final), got %d", closes.Load())
	}
}

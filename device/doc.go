// Package device manages the lifecycle of the capture and render audio
// devices shared between the control goroutine and real-time callback
// goroutines.
//
// The load-bearing primitive is Slot, an atomically swappable cell holding
// a reference-counted device handle. Stopping a device clears the slot so
// no new references can be taken, then cooperatively spins until the local
// reference is the sole survivor, and releases it so the device's Close
// runs synchronously on the stopping goroutine. Audio backends require
// teardown on the control goroutine: several backend destructors take a
// driver-global lock that may already be held by the backend's own
// callback, and destroying the device from inside such a callback (or
// concurrently with one) deadlocks or aborts.
//
// Stop operations must therefore never be called from a device callback
// goroutine; the callback's own reference would never be released while
// the stop spins on it. That precondition is the caller's threading
// discipline and is not checked at runtime.
package device

package audio

import (
	"container/heap"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// stallThreshold is how long the consumer may go without draining before
// the stream counts as stalled. A stalled stream schedules its next frame
// with zero delay and primes the sink's buffer ahead of real data. The
// same threshold drives both decisions.
const stallThreshold = 100.0 // milliseconds

// scheduledEntry is one pending frame keyed by its simulated arrival time,
// in milliseconds on the buffer's ticker.
type scheduledEntry struct {
	at     float64
	packet []byte
}

// entryHeap is a min-heap of scheduled entries ordered by arrival time.
// Entries with equal keys drain in whatever order the heap yields them;
// simulated simultaneous arrival has no defined order.
type entryHeap []scheduledEntry

func (h entryHeap) Len() int           { return len(h) }
func (h entryHeap) Less(i, j int) bool { return h[i].at < h[j].at }
func (h entryHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *entryHeap) Push(x any) {
	*h = append(*h, x.(scheduledEntry))
}

func (h *entryHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = scheduledEntry{}
	*h = old[:n-1]
	return item
}

// JitterBuffer holds the time-ordered pending frames for one audio source
// and paces their release by simulated arrival time.
//
// The buffer runs a monotonic per-source ticker started at creation;
// arrival keys and elapsed-time queries share its millisecond unit. The
// pending collection and the last-drain timestamp are the only mutable
// state, guarded by one short-held mutex; Schedule and Drain may be called
// concurrently from different goroutines and never block on anything else.
type JitterBuffer struct {
	mu        sync.Mutex
	pending   entryHeap
	lastFetch float64 // ticker ms at the last drain pass

	clock TimeProvider
	epoch time.Time
}

// NewJitterBuffer creates an empty buffer whose ticker starts now.
// A nil clock selects the system clock.
func NewJitterBuffer(clock TimeProvider) *JitterBuffer {
	clock = getTimeProvider(clock)
	jb := &JitterBuffer{
		clock: clock,
		epoch: clock.Now(),
	}
	heap.Init(&jb.pending)
	return jb
}

// Elapsed returns the milliseconds elapsed on the buffer's ticker.
func (jb *JitterBuffer) Elapsed() float64 {
	return float64(jb.clock.Now().Sub(jb.epoch)) / float64(time.Millisecond)
}

// Schedule inserts packet with a simulated arrival time of now plus a
// drawn delay. If the consumer has stalled (no drain pass within the
// stall threshold) the delay is forced to zero so playback restarts
// immediately; otherwise the delay comes from draw. Returns whether the
// stalled branch was taken.
func (jb *JitterBuffer) Schedule(packet []byte, draw func() float64) bool {
	jb.mu.Lock()
	defer jb.mu.Unlock()

	now := jb.Elapsed()
	restart := now-jb.lastFetch > stallThreshold

	var delay float64
	if !restart {
		delay = draw()
	}

	heap.Push(&jb.pending, scheduledEntry{at: now + delay, packet: packet})

	logrus.WithFields(logrus.Fields{
		"function": "JitterBuffer.Schedule",
		"arrival":  now + delay,
		"restart":  restart,
		"pending":  len(jb.pending),
	}).Debug("Frame scheduled")

	return restart
}

// Stalled reports whether no drain pass has happened within the stall
// threshold. Callers re-check this outside Schedule's critical section
// before priming the sink, since time may have advanced in between.
func (jb *JitterBuffer) Stalled() bool {
	jb.mu.Lock()
	defer jb.mu.Unlock()
	return jb.Elapsed()-jb.lastFetch > stallThreshold
}

// Drain removes every entry whose arrival time has elapsed, invoking
// deliver for each in non-decreasing arrival order, and resets the stall
// timer. Entries not yet due stay pending. An empty buffer is a no-op and
// leaves the stall timer untouched.
func (jb *JitterBuffer) Drain(deliver func(packet []byte)) {
	jb.mu.Lock()
	defer jb.mu.Unlock()

	if len(jb.pending) == 0 {
		return
	}

	now := jb.Elapsed()
	drained := 0
	for len(jb.pending) > 0 && jb.pending[0].at <= now {
		e := heap.Pop(&jb.pending).(scheduledEntry)
		deliver(e.packet)
		drained++
	}

	// Reset the stall timer even when nothing was due yet: the consumer
	// is demonstrably alive.
	jb.lastFetch = now

	if drained > 0 {
		logrus.WithFields(logrus.Fields{
			"function": "JitterBuffer.Drain",
			"drained":  drained,
			"pending":  len(jb.pending),
		}).Debug("Drain pass completed")
	}
}

// Len returns the number of pending entries.
func (jb *JitterBuffer) Len() int {
	jb.mu.Lock()
	defer jb.mu.Unlock()
	return len(jb.pending)
}

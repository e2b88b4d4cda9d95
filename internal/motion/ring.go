package motion

import (
	"math"
	"sync"
)

// DefaultRingCapacity keeps roughly the last five seconds of samples at the
// nominal 20 Hz sample rate.
const DefaultRingCapacity = 100

// Ring is a fixed-capacity FIFO store of decoded samples used by the stroke
// segmenter. A single goroutine owns Push; the mutex exists so observers can
// take snapshots while the writer is live. The bounded capacity is the
// pipeline's backpressure mechanism: overflow silently evicts the oldest
// sample rather than blocking the producer.
type Ring struct {
	mu   sync.Mutex
	buf  []Sample
	next int // next write position
	size int // number of valid entries
}

// NewRing creates a ring with the given capacity. Zero or negative capacity
// falls back to DefaultRingCapacity.
func NewRing(capacity int) *Ring {
	if capacity <= 0 {
		capacity = DefaultRingCapacity
	}
	return &Ring{buf: make([]Sample, capacity)}
}

// Push appends a sample, evicting the oldest entry once the ring is full.
func (r *Ring) Push(s Sample) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.buf[r.next] = s
	r.next = (r.next + 1) % len(r.buf)
	if r.size < len(r.buf) {
		r.size++
	}
}

// Len returns the number of buffered samples.
func (r *Ring) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.size
}

// Capacity returns the fixed capacity of the ring.
func (r *Ring) Capacity() int { return len(r.buf) }

// Recent returns a copy of the most recent n samples in chronological order.
// If fewer than n samples are buffered, all of them are returned.
func (r *Ring) Recent(n int) []Sample {
	r.mu.Lock()
	defer r.mu.Unlock()
	if n > r.size {
		n = r.size
	}
	if n <= 0 {
		return nil
	}
	out := make([]Sample, n)
	start := r.next - n
	if start < 0 {
		start += len(r.buf)
	}
	for i := 0; i < n; i++ {
		out[i] = r.buf[(start+i)%len(r.buf)]
	}
	return out
}

// Snapshot returns a copy of the most recent samples spanning at most
// durationMs of device time, in chronological order.
func (r *Ring) Snapshot(durationMs uint32) []Sample {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.size == 0 {
		return nil
	}
	newestIdx := r.next - 1
	if newestIdx < 0 {
		newestIdx += len(r.buf)
	}
	newest := r.buf[newestIdx].TimestampMs

	n := 0
	for n < r.size {
		idx := newestIdx - n
		if idx < 0 {
			idx += len(r.buf)
		}
		if ElapsedMs(r.buf[idx].TimestampMs, newest) > durationMs {
			break
		}
		n++
	}
	out := make([]Sample, n)
	start := r.next - n
	if start < 0 {
		start += len(r.buf)
	}
	for i := 0; i < n; i++ {
		out[i] = r.buf[(start+i)%len(r.buf)]
	}
	return out
}

func mag3(x, y, z float64) float64 {
	return math.Sqrt(x*x + y*y + z*z)
}

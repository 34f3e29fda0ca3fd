// Package latency keeps a bounded rolling window of heartbeat round-trip
// samples.
package latency

import "sync"

const windowSize = 10

// Tracker records round-trip times in milliseconds and answers the current
// and windowed-average latency. Safe for concurrent use.
type Tracker struct {
	mu      sync.Mutex
	samples []int64
}

func NewTracker() *Tracker {
	return &Tracker{samples: make([]int64, 0, windowSize)}
}

// Record appends a sample. Once the window is full the oldest sample is
// evicted, FIFO.
func (t *Tracker) Record(ms int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.samples) == windowSize {
		copy(t.samples, t.samples[1:])
		t.samples = t.samples[:windowSize-1]
	}
	t.samples = append(t.samples, ms)
}

// Current returns the most recent sample, or 0 if none were recorded.
func (t *Tracker) Current() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.samples) == 0 {
		return 0
	}
	return t.samples[len(t.samples)-1]
}

// Average returns the arithmetic mean of the retained window, or 0 if empty.
func (t *Tracker) Average() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.samples) == 0 {
		return 0
	}
	var sum int64
	for _, s := range t.samples {
		sum += s
	}
	return float64(sum) / float64(len(t.samples))
}

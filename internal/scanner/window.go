package scanner

import (
	"sync"
	"time"
)

// windowCounter counts events over a trailing 24-hour window using hourly
// buckets. Stale buckets are reclaimed lazily on access.
type windowCounter struct {
	mu      sync.Mutex
	buckets [24]int64
	hours   [24]int64 // unix hour stamped into each bucket
}

func (w *windowCounter) Add(now time.Time, n int64) {
	hour := now.Unix() / 3600
	idx := hour % 24

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.hours[idx] != hour {
		w.hours[idx] = hour
		w.buckets[idx] = 0
	}
	w.buckets[idx] += n
}

func (w *windowCounter) Total(now time.Time) int64 {
	hour := now.Unix() / 3600

	w.mu.Lock()
	defer w.mu.Unlock()
	var total int64
	for i := range w.buckets {
		if hour-w.hours[i] < 24 {
			total += w.buckets[i]
		}
	}
	return total
}

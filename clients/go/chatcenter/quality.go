package chatcenter

import (
	"sync"
	"time"
)

type Quality string

const (
	QualityExcellent Quality = "excellent"
	QualityGood      Quality = "good"
	QualityFair      Quality = "fair"
	QualityPoor      Quality = "poor"
	QualityOffline   Quality = "offline"
)

// qualityTracker keeps a rolling window of ping round-trip samples and
// classifies the connection into quality bands.
type qualityTracker struct {
	mu      sync.Mutex
	samples []time.Duration
	size    int
}

func newQualityTracker(size int) *qualityTracker {
	return &qualityTracker{size: size}
}

func (q *qualityTracker) record(rtt time.Duration) {
	if rtt < 0 {
		return
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.samples = append(q.samples, rtt)
	if len(q.samples) > q.size {
		q.samples = q.samples[len(q.samples)-q.size:]
	}
}

func (q *qualityTracker) reset() {
	q.mu.Lock()
	q.samples = nil
	q.mu.Unlock()
}

func (q *qualityTracker) average() (time.Duration, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.samples) == 0 {
		return 0, false
	}
	var total time.Duration
	for _, s := range q.samples {
		total += s
	}
	return total / time.Duration(len(q.samples)), true
}

func (q *qualityTracker) classify() Quality {
	avg, ok := q.average()
	if !ok {
		// Connected but no samples yet: assume good until measured.
		return QualityGood
	}
	switch {
	case avg < 100*time.Millisecond:
		return QualityExcellent
	case avg < 250*time.Millisecond:
		return QualityGood
	case avg < 600*time.Millisecond:
		return QualityFair
	default:
		return QualityPoor
	}
}

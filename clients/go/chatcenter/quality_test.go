package chatcenter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestQualityTracker_Bands(t *testing.T) {
	cases := []struct {
		rtt  time.Duration
		want Quality
	}{
		{50 * time.Millisecond, QualityExcellent},
		{99 * time.Millisecond, QualityExcellent},
		{100 * time.Millisecond, QualityGood},
		{249 * time.Millisecond, QualityGood},
		{250 * time.Millisecond, QualityFair},
		{599 * time.Millisecond, QualityFair},
		{600 * time.Millisecond, QualityPoor},
		{2 * time.Second, QualityPoor},
	}
	for _, tc := range cases {
		q := newQualityTracker(10)
		q.record(tc.rtt)
		assert.Equal(t, tc.want, q.classify(), "rtt=%s", tc.rtt)
	}
}

func TestQualityTracker_NoSamplesAssumesGood(t *testing.T) {
	q := newQualityTracker(10)
	assert.Equal(t, QualityGood, q.classify())
}

func TestQualityTracker_RollingWindow(t *testing.T) {
	q := newQualityTracker(10)

	// Ten poor samples, then ten excellent ones: the poor samples age out.
	for i := 0; i < 10; i++ {
		q.record(time.Second)
	}
	assert.Equal(t, QualityPoor, q.classify())

	for i := 0; i < 10; i++ {
		q.record(10 * time.Millisecond)
	}
	assert.Equal(t, QualityExcellent, q.classify())

	avg, ok := q.average()
	assert.True(t, ok)
	assert.Equal(t, 10*time.Millisecond, avg)
}

func TestQualityTracker_ResetAndNegativeSamples(t *testing.T) {
	q := newQualityTracker(10)
	q.record(time.Second)
	q.record(-time.Second) // clock skew, ignored

	avg, ok := q.average()
	assert.True(t, ok)
	assert.Equal(t, time.Second, avg)

	q.reset()
	_, ok = q.average()
	assert.False(t, ok)
}

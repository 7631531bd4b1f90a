package utils

import (
	"math"
	"sort"
	"sync"
	"time"
)

// defaultFrameCapacity is the initial interval buffer size for one stream
const defaultFrameCapacity = 1024

// FrameStats records inter-frame arrival intervals of one stream
type FrameStats struct {
	mu sync.Mutex

	intervals []float64 // milliseconds between consecutive frames
	lastTime  time.Time

	now    func() time.Time
	closed bool
}

// NewFrameStats creates a recorder; capacity <= 0 uses the default
func NewFrameStats(capacity int) *FrameStats {
	if capacity <= 0 {
		capacity = defaultFrameCapacity
	}
	return &FrameStats{
		intervals: make([]float64, 0, capacity),
		now:       time.Now,
	}
}

// OnFrame records a frame arrival. The first call only starts the clock.
func (fs *FrameStats) OnFrame() {
	if fs == nil {
		return
	}
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if fs.closed {
		return
	}

	now := fs.now()
	if fs.lastTime.IsZero() {
		fs.lastTime = now
		return
	}

	fs.intervals = append(fs.intervals, float64(now.Sub(fs.lastTime).Microseconds())/1000)
	fs.lastTime = now
}

// End stops recording after a normal finish
func (fs *FrameStats) End() *FrameStatInfo {
	return fs.finalize(false)
}

// Stop stops recording after an aborted stream
func (fs *FrameStats) Stop() *FrameStatInfo {
	return fs.finalize(true)
}

// finalize is idempotent; later calls return nil
func (fs *FrameStats) finalize(isError bool) *FrameStatInfo {
	if fs == nil {
		return nil
	}
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if fs.closed {
		return nil
	}
	fs.closed = true

	intervals := fs.intervals
	fs.intervals = nil
	if len(intervals) == 0 {
		return nil
	}
	return calculateFrameStats(intervals, isError)
}

func calculateFrameStats(intervals []float64, isError bool) *FrameStatInfo {
	n := len(intervals)
	sorted := make([]float64, n)
	copy(sorted, intervals)
	sort.Float64s(sorted)

	var sum float64
	for _, v := range intervals {
		sum += v
	}
	mean := sum / float64(n)

	var variance float64
	for _, v := range intervals {
		diff := v - mean
		variance += diff * diff
	}
	variance /= float64(n)

	return &FrameStatInfo{
		Count:   n,
		Mean:    mean,
		Min:     sorted[0],
		Max:     sorted[n-1],
		StdDev:  math.Sqrt(variance),
		P50:     sorted[n*50/100],
		P95:     sorted[n*95/100],
		IsError: isError,
	}
}

// FrameStatInfo summarizes inter-frame intervals in milliseconds
type FrameStatInfo struct {
	Count   int
	Mean    float64
	Min     float64
	Max     float64
	StdDev  float64
	P50     float64
	P95     float64
	IsError bool
}

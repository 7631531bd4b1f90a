package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeClock(steps ...time.Duration) func() time.Time {
	cur := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	i := 0
	return func() time.Time {
		t := cur
		if i < len(steps) {
			cur = cur.Add(steps[i])
		}
		i++
		return t
	}
}

func TestFrameStats_End(t *testing.T) {
	fs := NewFrameStats(0)
	fs.now = fakeClock(10*time.Millisecond, 20*time.Millisecond, 30*time.Millisecond)

	for i := 0; i < 4; i++ {
		fs.OnFrame()
	}

	info := fs.End()
	require.NotNil(t, info)
	assert.Equal(t, 3, info.Count)
	assert.InDelta(t, 20.0, info.Mean, 0.001)
	assert.InDelta(t, 10.0, info.Min, 0.001)
	assert.InDelta(t, 30.0, info.Max, 0.001)
	assert.InDelta(t, 20.0, info.P50, 0.001)
	assert.False(t, info.IsError)

	// idempotent
	assert.Nil(t, fs.End())
	fs.OnFrame()
	assert.Nil(t, fs.Stop())
}

func TestFrameStats_SingleFrame(t *testing.T) {
	fs := NewFrameStats(4)
	fs.OnFrame()
	assert.Nil(t, fs.Stop())
}

func TestFrameStats_StopMarksError(t *testing.T) {
	fs := NewFrameStats(4)
	fs.now = fakeClock(5 * time.Millisecond)
	fs.OnFrame()
	fs.OnFrame()

	info := fs.Stop()
	require.NotNil(t, info)
	assert.True(t, info.IsError)
	assert.Equal(t, 1, info.Count)
}

func TestFrameStats_NilSafe(t *testing.T) {
	var fs *FrameStats
	fs.OnFrame()
	assert.Nil(t, fs.End())
}

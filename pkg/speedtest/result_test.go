package speedtest

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSizeLabel(t *testing.T) {
	tests := []struct {
		size int
		want string
	}{
		{512, "512B"},
		{10_000, "10KB"},
		{100_000, "100KB"},
		{1_000, "1KB"},
		{1_500, "1500B"},
		{999_999, "999999B"},
		{1_000_000, "1MB"},
		{1_500_000, "1500KB"},
		{25_000_000, "25MB"},
	}

	for _, tc := range tests {
		assert.Equal(t, tc.want, SizeLabel(tc.size))
	}
}

func TestSizeLabel_Distinct(t *testing.T) {
	labels := map[string]int{}
	for _, size := range []int{999, 1_000, 1_001, 1_500, 10_000, 999_000, 1_000_000, 1_000_500, 1_500_000, 2_000_000} {
		label := SizeLabel(size)

		prev, ok := labels[label]
		assert.False(t, ok, "%v and %v share label %v", prev, size, label)

		labels[label] = size
	}
}

func TestNewMeasurement(t *testing.T) {
	m := newMeasurement(1_000, 4, 2*time.Second)
	assert.Equal(t, 2_000.0, m.BytesPerSec)
	assert.False(t, m.Degenerate)

	m = newMeasurement(1_000, 4, 0)
	assert.Zero(t, m.BytesPerSec)
	assert.True(t, m.Degenerate)
	assert.Equal(t, 4, m.Iterations)
}

func TestResult(t *testing.T) {
	r := Result{
		Size:  100_000,
		Write: Measurement{BytesPerSec: 10},
		Read:  Measurement{BytesPerSec: 20},
	}

	assert.Equal(t, "100KB", r.Label())
	assert.Equal(t, 10.0, r.WriteBytesPerSec())
	assert.Equal(t, 20.0, r.ReadBytesPerSec())
	assert.False(t, r.Failed())
	assert.False(t, r.Unreliable())

	r.Read.Degenerate = true
	assert.True(t, r.Unreliable())

	r.Err = errors.New("failed")
	assert.True(t, r.Failed())
}

package concurrent

import (
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEachVisitsAll(t *testing.T) {
	var sum atomic.Int64
	err := Each([]int{1, 2, 3, 4}, func(v int) error {
		sum.Add(int64(v))
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, int64(10), sum.Load())
}

func TestEachReturnsError(t *testing.T) {
	boom := errors.New("boom")
	err := Each([]int{1, 2, 3}, func(v int) error {
		if v == 2 {
			return boom
		}
		return nil
	})
	assert.ErrorIs(t, err, boom)
}

func TestEachLimit(t *testing.T) {
	var running, peak atomic.Int32
	items := make([]int, 32)
	_ = EachLimit(items, 2, func(int) error {
		n := running.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		running.Add(-1)
		return nil
	})
	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestEachMust(t *testing.T) {
	var count atomic.Int32
	EachMust([]string{"a", "b", "c"}, func(string) { count.Add(1) })
	assert.Equal(t, int32(3), count.Load())
}

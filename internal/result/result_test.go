package result

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordWithinCapacity(t *testing.T) {
	b := NewBuffer(4)
	b.Record(10)
	b.Record(20)

	got := b.Drain()
	assert.Equal(t, []uint32{10, 20}, got.Seeds)
	assert.Equal(t, uint32(2), got.Total)
	assert.False(t, got.Overflowed())
	assert.NoError(t, got.Check(3))
}

func TestRecordPastCapacityKeepsCounting(t *testing.T) {
	b := NewBuffer(2)
	for i := uint32(0); i < 5; i++ {
		b.Record(i)
	}
	got := b.Drain()
	assert.Equal(t, []uint32{0, 1}, got.Seeds)
	assert.Equal(t, uint32(5), got.Total)
	assert.True(t, got.Overflowed())

	err := got.Check(9)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrOverflow))
	var oe *OverflowError
	require.ErrorAs(t, err, &oe)
	assert.Equal(t, OverflowError{Shard: 9, Total: 5, Captured: 2}, *oe)
}

func TestResetKeepsCapacity(t *testing.T) {
	b := NewBuffer(3)
	b.Record(1)
	b.Record(2)
	b.Reset()
	assert.Equal(t, uint32(0), b.Count())
	assert.Equal(t, 3, b.Capacity())
	assert.Empty(t, b.Drain().Seeds)

	b.Record(7)
	assert.Equal(t, []uint32{7}, b.Drain().Seeds)
}

func TestConcurrentRecordLosesNothing(t *testing.T) {
	const workers, per = 16, 1000
	b := NewBuffer(workers * per)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < per; i++ {
				b.Record(uint32(w*per + i))
			}
		}(w)
	}
	wg.Wait()

	got := b.Drain()
	require.Equal(t, uint32(workers*per), got.Total)
	seen := make(map[uint32]bool, len(got.Seeds))
	for _, s := range got.Seeds {
		require.Falsef(t, seen[s], "seed %d stored twice", s)
		seen[s] = true
	}
	assert.Len(t, seen, workers*per)
}

func TestDecode(t *testing.T) {
	assert.Equal(t, Batch{Seeds: []uint32{8, 6}, Total: 2}, Decode([]uint32{2, 8, 6, 4, 1}))
	assert.Equal(t, Batch{Seeds: []uint32{8, 6, 4}, Total: 40}, Decode([]uint32{40, 8, 6, 4}))
	assert.Equal(t, Batch{}, Decode(nil))

	over := Decode([]uint32{40, 8, 6, 4})
	assert.True(t, over.Overflowed())
	assert.Equal(t, 3, over.Captured())
}

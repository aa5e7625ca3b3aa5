// Package result collects matching seeds from one shard dispatch.
package result

import (
	"errors"
	"fmt"
	"sync/atomic"
)

// DefaultCapacity is the number of seeds one dispatch can hand back. The
// device buffer is one word larger to hold the counter.
const DefaultCapacity = 999

// ErrOverflow is matched by *OverflowError.
var ErrOverflow = errors.New("result buffer overflow")

// Buffer is a fixed-capacity append-only seed buffer shared by every lane of
// one dispatch. Record is safe for concurrent use; Reset and Drain are not
// and must only run while no lane is writing.
type Buffer struct {
	count atomic.Uint32
	data  []uint32
}

// NewBuffer returns an empty buffer holding up to capacity seeds.
func NewBuffer(capacity int) *Buffer {
	if capacity < 0 {
		capacity = 0
	}
	return &Buffer{data: make([]uint32, capacity)}
}

// Capacity returns the number of seeds the buffer can hold.
func (b *Buffer) Capacity() int {
	return len(b.data)
}

// Record claims the next slot and stores seed there if it fits. The counter
// keeps growing past capacity so the true match count is never lost.
func (b *Buffer) Record(seed uint32) {
	slot := b.count.Add(1) - 1
	if slot < uint32(len(b.data)) {
		b.data[slot] = seed
	}
}

// Count returns the number of Record calls since the last Reset.
func (b *Buffer) Count() uint32 {
	return b.count.Load()
}

// Reset empties the buffer for the next dispatch.
func (b *Buffer) Reset() {
	b.count.Store(0)
}

// Drain copies out the captured seeds.
func (b *Buffer) Drain() Batch {
	total := b.count.Load()
	n := min(int(total), len(b.data))
	seeds := make([]uint32, n)
	copy(seeds, b.data[:n])
	return Batch{Seeds: seeds, Total: total}
}

// Decode reads a device result buffer laid out as [counter, seed0, seed1, ...].
func Decode(words []uint32) Batch {
	if len(words) == 0 {
		return Batch{}
	}
	total := words[0]
	data := words[1:]
	n := min(int(total), len(data))
	seeds := make([]uint32, n)
	copy(seeds, data[:n])
	return Batch{Seeds: seeds, Total: total}
}

// Batch is the outcome of one shard dispatch.
type Batch struct {
	// Seeds holds the captured matches in slot order.
	Seeds []uint32
	// Total is the true number of matches, which exceeds len(Seeds) on
	// overflow.
	Total uint32
}

// Captured returns the number of seeds transferred back.
func (b Batch) Captured() int {
	return len(b.Seeds)
}

// Overflowed reports whether matches were dropped.
func (b Batch) Overflowed() bool {
	return int(b.Total) > len(b.Seeds)
}

// OverflowError reports a shard whose matches did not fit the buffer.
type OverflowError struct {
	Shard    uint32
	Total    uint32
	Captured int
}

func (e *OverflowError) Error() string {
	return fmt.Sprintf("shard %d: %d matches but only %d could be transferred", e.Shard, e.Total, e.Captured)
}

// Is makes errors.Is(err, ErrOverflow) succeed.
func (e *OverflowError) Is(target error) bool {
	return target == ErrOverflow
}

// Check returns an *OverflowError when b overflowed.
func (b Batch) Check(shard uint32) error {
	if !b.Overflowed() {
		return nil
	}
	return &OverflowError{Shard: shard, Total: b.Total, Captured: len(b.Seeds)}
}

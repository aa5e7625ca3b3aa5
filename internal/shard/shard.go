// Package shard partitions the 32-bit seed space into dispatchable batches.
//
// Shard s holds every seed congruent to s modulo Count, so lane l of shard s
// evaluates seed l*Count + s. Count shards of LanesPerShard lanes cover
// [0, 2^32) exactly once.
package shard

import (
	"fmt"
	"iter"
)

const (
	// Count is the number of shards.
	Count = 256
	// LanesPerShard is the invocation count of one full dispatch.
	LanesPerShard = 1 << 24
	// WorkgroupSize is the number of lanes grouped per device workgroup.
	WorkgroupSize = 256
)

// Seed returns the seed evaluated by lane in shard.
func Seed(shard, lane uint32) uint32 {
	return lane*Count + shard
}

// Locate is the inverse of Seed.
func Locate(seed uint32) (shard, lane uint32) {
	return seed % Count, seed / Count
}

// Plan describes which lanes of every shard a run dispatches.
type Plan struct {
	// Lanes per shard, starting at lane 0. A full search uses LanesPerShard;
	// fewer lanes bound the search to seeds below Lanes*Count.
	Lanes uint32
}

// DefaultPlan covers the whole seed space.
func DefaultPlan() Plan {
	return Plan{Lanes: LanesPerShard}
}

// Validate checks that the plan fits inside one residue class.
func (p Plan) Validate() error {
	if p.Lanes == 0 || p.Lanes > LanesPerShard {
		return fmt.Errorf("lanes per shard must be in [1, %d], got %d", LanesPerShard, p.Lanes)
	}
	return nil
}

// Full reports whether the plan covers every seed.
func (p Plan) Full() bool {
	return p.Lanes == LanesPerShard
}

// Workgroups returns the number of WorkgroupSize groups needed for one shard.
func (p Plan) Workgroups() uint32 {
	return (p.Lanes + WorkgroupSize - 1) / WorkgroupSize
}

// Seeds returns the number of seeds the plan evaluates across all shards.
func (p Plan) Seeds() uint64 {
	return uint64(p.Lanes) * Count
}

// Shards yields shard indices in increasing order.
func (p Plan) Shards() iter.Seq[uint32] {
	return func(yield func(uint32) bool) {
		for s := uint32(0); s < Count; s++ {
			if !yield(s) {
				return
			}
		}
	}
}

// Progress is the number of shards finished out of Total.
type Progress struct {
	Completed int
	Total     int
}

func (p Progress) String() string {
	return fmt.Sprintf("progress: %03d / %d", p.Completed, p.Total)
}

// Done reports whether every shard has been processed.
func (p Progress) Done() bool {
	return p.Completed >= p.Total
}

// Package kernel is the host-side search kernel: the per-lane seed test and
// a goroutine dispatcher that runs it across one shard.
package kernel

import (
	"fmt"
	"runtime"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/phpmtseed/phpmtseed/internal/constraint"
	"github.com/phpmtseed/phpmtseed/internal/mt"
	"github.com/phpmtseed/phpmtseed/internal/result"
	"github.com/phpmtseed/phpmtseed/internal/shard"
)

// tableWords is the prefix of the seeded table the first MaxConstraints
// outputs depend on: output i reads words i, i+1 and i+M.
const tableWords = constraint.MaxConstraints + mt.M

// Match reports whether seed satisfies every constraint in set. It seeds
// only the table words the constraints can reach and twists them lazily,
// which yields the same outputs as mt.State for the first N-M draws.
// set must hold at most constraint.MaxConstraints entries.
func Match(seed uint32, set constraint.Set) bool {
	var table [tableWords]uint32
	n := uint32(len(set)) + mt.M
	table[0] = seed
	for i := uint32(1); i < n; i++ {
		table[i] = mt.InitWord(table[i-1], i)
	}
	for i, c := range set {
		v := mt.Temper(mt.Twist(table[i+mt.M], table[i], table[i+1]))
		if !c.Match(v) {
			return false
		}
	}
	return true
}

// Dispatch evaluates lanes [0, lanes) of shard s on workers goroutines and
// records every match in buf. It returns once all lanes have run.
func Dispatch(s, lanes uint32, set constraint.Set, buf *result.Buffer, workers int) error {
	if len(set) == 0 || len(set) > constraint.MaxConstraints {
		return fmt.Errorf("kernel: %d constraints, want 1..%d", len(set), constraint.MaxConstraints)
	}
	if s >= shard.Count || lanes > shard.LanesPerShard {
		return fmt.Errorf("kernel: shard %d with %d lanes is out of range", s, lanes)
	}
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	groups := (lanes + shard.WorkgroupSize - 1) / shard.WorkgroupSize
	var next atomic.Uint32
	var g errgroup.Group
	for w := 0; w < workers; w++ {
		g.Go(func() error {
			for {
				wg := next.Add(1) - 1
				if wg >= groups {
					return nil
				}
				lo := wg * shard.WorkgroupSize
				hi := min(lo+shard.WorkgroupSize, lanes)
				for lane := lo; lane < hi; lane++ {
					seed := shard.Seed(s, lane)
					if Match(seed, set) {
						buf.Record(seed)
					}
				}
			}
		})
	}
	return g.Wait()
}

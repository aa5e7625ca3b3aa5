package search

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phpmtseed/phpmtseed/internal/constraint"
	"github.com/phpmtseed/phpmtseed/internal/kernel"
	"github.com/phpmtseed/phpmtseed/internal/result"
	"github.com/phpmtseed/phpmtseed/internal/shard"
)

type fakeBackend struct {
	calls   []uint32
	batches map[uint32]result.Batch
	failAt  int
}

func (f *fakeBackend) RunShard(s uint32) (result.Batch, error) {
	f.calls = append(f.calls, s)
	if f.failAt >= 0 && int(s) == f.failAt {
		return result.Batch{}, errors.New("device lost")
	}
	return f.batches[s], nil
}

func (f *fakeBackend) Name() string { return "fake" }
func (f *fakeBackend) Close()       {}

func newFake() *fakeBackend {
	return &fakeBackend{batches: map[uint32]result.Batch{}, failAt: -1}
}

func cpuBackend(t *testing.T, set constraint.Set, capacity int, lanes uint32) *kernel.Worker {
	t.Helper()
	w, err := kernel.NewWorker(kernel.WorkerConfig{Constraints: set, Capacity: capacity, Lanes: lanes, Workers: 4})
	require.NoError(t, err)
	t.Cleanup(w.Close)
	return w
}

func TestRunVisitsShardsInOrder(t *testing.T) {
	f := newFake()
	f.batches[3] = result.Batch{Seeds: []uint32{3 + 256*9, 3}, Total: 2}
	f.batches[200] = result.Batch{Seeds: []uint32{200}, Total: 1}

	var progress []shard.Progress
	var found []uint32
	s := New(f, shard.DefaultPlan(),
		WithProgress(func(p shard.Progress) { progress = append(progress, p) }),
		WithFound(func(seed uint32) { found = append(found, seed) }),
	)
	rep, err := s.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, f.calls, shard.Count)
	for i, c := range f.calls {
		assert.Equal(t, uint32(i), c)
	}
	require.Len(t, progress, shard.Count)
	for i, p := range progress {
		assert.Equal(t, shard.Progress{Completed: i + 1, Total: shard.Count}, p)
	}
	assert.Equal(t, []uint32{3, 3 + 256*9, 200}, found)
	assert.Equal(t, []uint32{3, 200, 3 + 256*9}, rep.Seeds)
	assert.Equal(t, shard.Count, rep.Shards)
	assert.Nil(t, rep.Overflow)
}

func TestRunStopsOnOverflow(t *testing.T) {
	f := newFake()
	f.batches[1] = result.Batch{Seeds: []uint32{1}, Total: 1}
	f.batches[2] = result.Batch{Seeds: []uint32{2, 258}, Total: 50}

	rep, err := New(f, shard.DefaultPlan()).Run(context.Background())
	require.ErrorIs(t, err, result.ErrOverflow)
	require.NotNil(t, rep.Overflow)
	assert.Equal(t, result.OverflowError{Shard: 2, Total: 50, Captured: 2}, *rep.Overflow)
	assert.Equal(t, []uint32{1, 2, 258}, rep.Seeds)
	assert.Equal(t, 2, rep.Shards)
	assert.Len(t, f.calls, 3)
}

func TestRunReportsBackendFailure(t *testing.T) {
	f := newFake()
	f.failAt = 5
	f.batches[4] = result.Batch{Seeds: []uint32{4}, Total: 1}

	rep, err := New(f, shard.DefaultPlan()).Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "shard 5")
	assert.Equal(t, 5, rep.Shards)
	assert.Equal(t, []uint32{4}, rep.Seeds)
}

func TestRunHonoursCancellationBetweenShards(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f := newFake()
	s := New(f, shard.DefaultPlan(), WithProgress(func(p shard.Progress) {
		if p.Completed == 4 {
			cancel()
		}
	}))
	rep, err := s.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 4, rep.Shards)
	assert.Len(t, f.calls, 4)
}

func TestRunRejectsInvalidPlan(t *testing.T) {
	_, err := New(newFake(), shard.Plan{}).Run(context.Background())
	assert.Error(t, err)
}

func TestFindsSeedZero(t *testing.T) {
	set := constraint.Set{{MatchMin: 1178568022, MatchMax: 1178568022, RangeMin: 0, RangeMax: 0x7fffffff}}
	rep, err := New(cpuBackend(t, set, result.DefaultCapacity, 1024), shard.Plan{Lanes: 1024}).Run(context.Background())
	require.NoError(t, err)
	assert.Contains(t, rep.Seeds, uint32(0))
}

func TestFindsScaledSeedAfterSkippedCalls(t *testing.T) {
	set, err := constraint.Parse([]string{
		"0", "0", "0", "0",
		"0", "0", "0", "0",
		"1457", "1457", "1000", "10000",
		"5452", "5452", "1000", "10000",
		"4474", "4474", "1000", "10000",
	})
	require.NoError(t, err)

	plan := shard.Plan{Lanes: 2048}
	rep, err := New(cpuBackend(t, set, result.DefaultCapacity, plan.Lanes), plan).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []uint32{424242}, rep.Seeds)
}

func TestOverflowWithHalfTheSeeds(t *testing.T) {
	set := constraint.Set{{MatchMin: 0, MatchMax: 0x3fffffff, RangeMin: 0, RangeMax: constraint.DefaultRangeMax}}
	plan := shard.Plan{Lanes: 4096}
	rep, err := New(cpuBackend(t, set, 8, plan.Lanes), plan).Run(context.Background())
	require.ErrorIs(t, err, result.ErrOverflow)
	require.NotNil(t, rep.Overflow)
	assert.Equal(t, uint32(0), rep.Overflow.Shard)
	assert.Greater(t, rep.Overflow.Total, uint32(100*8))
	assert.Len(t, rep.Seeds, 8)
	for _, seed := range rep.Seeds {
		assert.True(t, set.Accepts(seed))
	}
}

func TestRunIsIdempotent(t *testing.T) {
	set := constraint.Set{{MatchMin: 0, MatchMax: 0x00ffffff, RangeMin: 0, RangeMax: constraint.DefaultRangeMax}}
	plan := shard.Plan{Lanes: 512}
	backend := cpuBackend(t, set, result.DefaultCapacity, plan.Lanes)

	first, err := New(backend, plan).Run(context.Background())
	require.NoError(t, err)
	second, err := New(backend, plan).Run(context.Background())
	require.NoError(t, err)

	require.NotEmpty(t, first.Seeds)
	assert.Equal(t, first.Seeds, second.Seeds)
	for _, seed := range first.Seeds {
		assert.True(t, set.Accepts(seed))
	}
}

func TestStartStreamsSeedsAndStats(t *testing.T) {
	set := constraint.Set{constraint.Exact(1178568022)}
	plan := shard.Plan{Lanes: 256}
	s := New(cpuBackend(t, set, result.DefaultCapacity, plan.Lanes), plan)

	seedCh, statsCh := s.Start(context.Background())
	var seeds []uint32
	var last Stats
	for seedCh != nil || statsCh != nil {
		select {
		case seed, ok := <-seedCh:
			if !ok {
				seedCh = nil
				continue
			}
			seeds = append(seeds, seed)
		case st, ok := <-statsCh:
			if !ok {
				statsCh = nil
				continue
			}
			last = st
		}
	}

	rep, err := s.Wait()
	require.NoError(t, err)
	assert.Contains(t, seeds, uint32(0))
	assert.Equal(t, rep.Seeds, seeds)
	assert.LessOrEqual(t, last.Progress.Completed, shard.Count)
	assert.Equal(t, shard.Count, rep.Shards)
}

func TestStopEndsSearch(t *testing.T) {
	f := newFake()
	s := New(f, shard.DefaultPlan())
	s.Stop() // no-op before Start

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	seedCh, statsCh := s.Start(ctx)
	for range seedCh {
	}
	for range statsCh {
	}
	_, err := s.Wait()
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, f.calls)
}

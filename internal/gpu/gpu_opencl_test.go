//go:build opencl && cgo

package gpu

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phpmtseed/phpmtseed/internal/constraint"
	"github.com/phpmtseed/phpmtseed/internal/kernel"
	"github.com/phpmtseed/phpmtseed/internal/result"
)

func newTestWorker(t *testing.T, set constraint.Set, capacity int, lanes uint32) *Worker {
	t.Helper()
	if !Available() {
		t.Skip("OpenCL GPU not available")
	}
	w, err := NewWorker(WorkerConfig{Constraints: set, Capacity: capacity, Lanes: lanes})
	require.NoError(t, err)
	t.Cleanup(w.Close)
	return w
}

func TestOpenCLFindsSeedZero(t *testing.T) {
	w := newTestWorker(t, constraint.Set{constraint.Exact(1178568022)}, result.DefaultCapacity, 1<<24)
	batch, err := w.RunShard(0)
	require.NoError(t, err)
	assert.Equal(t, []uint32{0}, batch.Seeds)
}

func TestOpenCLFindsScaledSeed(t *testing.T) {
	set := constraint.Set{{}, {}, {1457, 1457, 1000, 10000}, {5452, 5452, 1000, 10000}, {4474, 4474, 1000, 10000}}
	w := newTestWorker(t, set, result.DefaultCapacity, 1<<24)
	batch, err := w.RunShard(424242 % 256)
	require.NoError(t, err)
	assert.Contains(t, batch.Seeds, uint32(424242))
}

// The device and host kernels must capture the same seeds.
func TestOpenCLAgreesWithHostKernel(t *testing.T) {
	set := constraint.Set{{0, 0x00ffffff, 0, constraint.DefaultRangeMax}, {10, 20, 0, 99}}
	const lanes = 1 << 16
	w := newTestWorker(t, set, lanes, lanes)

	host, err := kernel.NewWorker(kernel.WorkerConfig{Constraints: set, Capacity: lanes, Lanes: lanes})
	require.NoError(t, err)

	for _, s := range []uint32{0, 1, 128, 255} {
		dev, err := w.RunShard(s)
		require.NoError(t, err)
		ref, err := host.RunShard(s)
		require.NoError(t, err)

		slices.Sort(dev.Seeds)
		slices.Sort(ref.Seeds)
		assert.Equal(t, ref.Seeds, dev.Seeds, "shard %d", s)
		assert.Equal(t, ref.Total, dev.Total, "shard %d", s)
	}
}

func TestOpenCLOverflow(t *testing.T) {
	set := constraint.Set{{0, 0x3fffffff, 0, constraint.DefaultRangeMax}}
	w := newTestWorker(t, set, 32, 1<<16)
	batch, err := w.RunShard(7)
	require.NoError(t, err)
	assert.True(t, batch.Overflowed())
	assert.Len(t, batch.Seeds, 32)
	assert.Greater(t, batch.Total, uint32(10000))
	for _, seed := range batch.Seeds {
		assert.True(t, set.Accepts(seed))
	}
}

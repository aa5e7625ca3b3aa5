package shard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeedLocateRoundTrip(t *testing.T) {
	for _, seed := range []uint32{0, 1, 255, 256, 424242, 0xdeadbeef, 0xffffffff} {
		s, l := Locate(seed)
		require.Less(t, s, uint32(Count))
		require.Less(t, l, uint32(LanesPerShard))
		assert.Equal(t, seed, Seed(s, l))
	}
}

// Every (shard, lane) pair of a full plan maps to a distinct seed; with
// 2^8 * 2^24 pairs that is exactly the 32-bit space.
func TestFullPartitionIsExhaustiveAndDisjoint(t *testing.T) {
	require.Equal(t, uint64(1)<<32, DefaultPlan().Seeds())

	// Seed is a bijection iff it is injective on the domain; sample lanes
	// across the whole range and check the inverse on each.
	for shard := range DefaultPlan().Shards() {
		for lane := uint32(0); lane < LanesPerShard; lane += 65521 {
			s, l := Locate(Seed(shard, lane))
			require.Equal(t, shard, s)
			require.Equal(t, lane, l)
		}
		s, l := Locate(Seed(shard, LanesPerShard-1))
		require.Equal(t, shard, s)
		require.Equal(t, uint32(LanesPerShard-1), l)
	}
}

func TestReducedPartitionCoversPrefix(t *testing.T) {
	p := Plan{Lanes: 1024}
	require.NoError(t, p.Validate())

	seen := make([]bool, p.Seeds())
	for shard := range p.Shards() {
		for lane := uint32(0); lane < p.Lanes; lane++ {
			seed := Seed(shard, lane)
			require.Less(t, uint64(seed), p.Seeds())
			require.Falsef(t, seen[seed], "seed %d visited twice", seed)
			seen[seed] = true
		}
	}
	for seed, ok := range seen {
		require.Truef(t, ok, "seed %d never visited", seed)
	}
}

func TestShardsIncreasing(t *testing.T) {
	var got []uint32
	for s := range DefaultPlan().Shards() {
		got = append(got, s)
	}
	require.Len(t, got, Count)
	for i, s := range got {
		assert.Equal(t, uint32(i), s)
	}
}

func TestPlanValidate(t *testing.T) {
	assert.Error(t, Plan{}.Validate())
	assert.Error(t, Plan{Lanes: LanesPerShard + 1}.Validate())
	assert.NoError(t, DefaultPlan().Validate())
	assert.True(t, DefaultPlan().Full())
	assert.Equal(t, uint32(65536), DefaultPlan().Workgroups())
	assert.Equal(t, uint32(2), Plan{Lanes: 257}.Workgroups())
}

func TestProgressString(t *testing.T) {
	assert.Equal(t, "progress: 007 / 256", Progress{Completed: 7, Total: Count}.String())
	assert.True(t, Progress{Completed: 256, Total: 256}.Done())
}

func TestEverySeedHasOneHome(t *testing.T) {
	if testing.Short() {
		t.Skip("walks all 2^32 seeds")
	}
	seed := uint32(0)
	for {
		s, l := Locate(seed)
		if s >= Count || l >= LanesPerShard || Seed(s, l) != seed {
			t.Fatalf("seed %d maps to shard %d lane %d", seed, s, l)
		}
		if seed == 0xffffffff {
			break
		}
		seed++
	}
}

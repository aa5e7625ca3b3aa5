package kernel

import (
	"testing"

	"github.com/phpmtseed/phpmtseed/internal/constraint"
	"github.com/phpmtseed/phpmtseed/internal/result"
)

var sinkMatch bool

func BenchmarkMatch(b *testing.B) {
	set := constraint.Set{constraint.Exact(1178568022)}
	for i := 0; i < b.N; i++ {
		sinkMatch = Match(uint32(i), set)
	}
}

func BenchmarkDispatchShard(b *testing.B) {
	set := constraint.Set{constraint.Exact(1178568022)}
	buf := result.NewBuffer(result.DefaultCapacity)
	const lanes = 1 << 16

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		buf.Reset()
		if err := Dispatch(uint32(i%256), lanes, set, buf, 0); err != nil {
			b.Fatal(err)
		}
	}
	b.StopTimer()

	elapsed := b.Elapsed().Seconds()
	if elapsed > 0 {
		b.ReportMetric(float64(b.N)*lanes/elapsed, "seeds/sec")
	}
}

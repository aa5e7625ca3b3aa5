package kernel

import (
	"fmt"

	"github.com/phpmtseed/phpmtseed/internal/constraint"
	"github.com/phpmtseed/phpmtseed/internal/result"
	"github.com/phpmtseed/phpmtseed/internal/shard"
)

// WorkerConfig configures a host search worker.
type WorkerConfig struct {
	Constraints constraint.Set
	Capacity    int    // seeds transferred per shard
	Lanes       uint32 // lanes per shard
	Workers     int    // goroutines; 0 means one per CPU
}

// Worker runs shards on the host CPU with the same buffer protocol as the
// device backends.
type Worker struct {
	cfg WorkerConfig
	buf *result.Buffer
}

// NewWorker validates cfg and allocates the result buffer once.
func NewWorker(cfg WorkerConfig) (*Worker, error) {
	if err := cfg.Constraints.Validate(); err != nil {
		return nil, err
	}
	if err := (shard.Plan{Lanes: cfg.Lanes}).Validate(); err != nil {
		return nil, err
	}
	if cfg.Capacity <= 0 {
		return nil, fmt.Errorf("kernel: result capacity must be positive, got %d", cfg.Capacity)
	}
	return &Worker{cfg: cfg, buf: result.NewBuffer(cfg.Capacity)}, nil
}

// RunShard resets the buffer, runs every lane of s and drains the matches.
func (w *Worker) RunShard(s uint32) (result.Batch, error) {
	w.buf.Reset()
	if err := Dispatch(s, w.cfg.Lanes, w.cfg.Constraints, w.buf, w.cfg.Workers); err != nil {
		return result.Batch{}, err
	}
	return w.buf.Drain(), nil
}

// Name describes the backend for logs.
func (w *Worker) Name() string {
	return "CPU"
}

// Close releases nothing; it exists to satisfy the backend contract.
func (w *Worker) Close() {}

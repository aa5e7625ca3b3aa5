// Package gpu binds the seed-search kernel to a compute device.
package gpu

import (
	_ "embed"
	"errors"

	"github.com/phpmtseed/phpmtseed/internal/constraint"
	"github.com/phpmtseed/phpmtseed/internal/result"
)

// ErrUnavailable is returned when no compatible compute device exists.
var ErrUnavailable = errors.New("no compatible compute device")

//go:embed kernels/mt19937.cl
var kernelSource string

const kernelName = "mt_seed_search"

// Device represents a detected GPU compute device.
type Device struct {
	Name             string
	Vendor           string
	MaxWorkGroupSize int
	Backend          string // "OpenCL"
}

// WorkerConfig configures a GPU seed-search worker.
type WorkerConfig struct {
	DeviceIndex int
	Constraints constraint.Set // uploaded once at creation
	Capacity    int            // seeds transferred back per shard
	Lanes       uint32         // invocations per shard dispatch
}

// Worker represents an active GPU compute session.
// Created by NewWorker, must be closed with Close.
type Worker struct {
	impl   workerImpl
	device Device
}

// RunShard dispatches every lane of one shard and blocks until the device
// finishes, then reads back and decodes the result buffer.
func (w *Worker) RunShard(shard uint32) (result.Batch, error) {
	words, err := w.impl.runShard(shard)
	if err != nil {
		return result.Batch{}, err
	}
	return result.Decode(words), nil
}

// Device returns the device the worker runs on.
func (w *Worker) Device() Device {
	return w.device
}

// Name describes the backend for logs.
func (w *Worker) Name() string {
	return w.device.Backend + " " + w.device.Name
}

// Close releases all GPU resources.
func (w *Worker) Close() {
	w.impl.close()
}

// workerImpl is the platform-specific backend interface. runShard returns
// the raw device buffer [counter, seed0, seed1, ...].
type workerImpl interface {
	runShard(shard uint32) ([]uint32, error)
	close()
}

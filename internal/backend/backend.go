// Package backend opens the compute backend a configuration asks for.
package backend

import (
	"github.com/sirupsen/logrus"

	"github.com/phpmtseed/phpmtseed/internal/config"
	"github.com/phpmtseed/phpmtseed/internal/constraint"
	"github.com/phpmtseed/phpmtseed/internal/gpu"
	"github.com/phpmtseed/phpmtseed/internal/kernel"
	"github.com/phpmtseed/phpmtseed/internal/search"
	"github.com/phpmtseed/phpmtseed/internal/sysinfo"
)

// Open honours cfg.Backend. "auto" prefers a GPU and falls back to the CPU
// when none can be opened; "gpu" fails with gpu.ErrUnavailable instead.
// The caller closes the returned backend.
func Open(cfg *config.Config, set constraint.Set, log logrus.FieldLogger) (search.Backend, error) {
	switch cfg.Backend {
	case config.BackendCPU:
		return openCPU(cfg, set, log)
	case config.BackendGPU:
		return openGPU(cfg, set, log)
	}

	if !gpu.Available() {
		log.Info("no GPU available, using the CPU backend")
		return openCPU(cfg, set, log)
	}
	w, err := openGPU(cfg, set, log)
	if err != nil {
		log.WithError(err).Warn("GPU backend failed, falling back to the CPU backend")
		return openCPU(cfg, set, log)
	}
	return w, nil
}

func openGPU(cfg *config.Config, set constraint.Set, log logrus.FieldLogger) (search.Backend, error) {
	w, err := gpu.NewWorker(gpu.WorkerConfig{
		DeviceIndex: cfg.Device,
		Constraints: set,
		Capacity:    cfg.Capacity,
		Lanes:       cfg.Lanes,
	})
	if err != nil {
		return nil, err
	}
	dev := w.Device()
	log.WithFields(logrus.Fields{
		"device": dev.Name,
		"vendor": dev.Vendor,
		"api":    dev.Backend,
	}).Info("GPU backend ready")
	return w, nil
}

func openCPU(cfg *config.Config, set constraint.Set, log logrus.FieldLogger) (search.Backend, error) {
	workers := cfg.Workers
	if workers == 0 {
		workers = sysinfo.Workers()
	}
	w, err := kernel.NewWorker(kernel.WorkerConfig{
		Constraints: set,
		Capacity:    cfg.Capacity,
		Lanes:       cfg.Lanes,
		Workers:     workers,
	})
	if err != nil {
		return nil, err
	}
	log.WithField("workers", workers).Info("CPU backend ready")
	return w, nil
}

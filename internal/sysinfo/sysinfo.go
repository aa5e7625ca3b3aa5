// Package sysinfo reports host CPU facts used to size the CPU backend.
package sysinfo

import (
	"fmt"
	"runtime"

	gcpu "github.com/shirou/gopsutil/v4/cpu"
	gmem "github.com/shirou/gopsutil/v4/mem"
)

// Info describes the host processor.
type Info struct {
	Model         string
	LogicalCores  int
	PhysicalCores int
	Mhz           float64
	MemoryTotal   uint64 // bytes, 0 when unknown
}

// CPU retrieves processor information. When the platform query fails the
// core count falls back to runtime.NumCPU and the error is returned with it.
func CPU() (Info, error) {
	info := Info{Model: "unknown", LogicalCores: runtime.NumCPU()}

	if n, err := gcpu.Counts(true); err == nil && n > 0 {
		info.LogicalCores = n
	}
	if n, err := gcpu.Counts(false); err == nil && n > 0 {
		info.PhysicalCores = n
	}

	if vm, err := gmem.VirtualMemory(); err == nil {
		info.MemoryTotal = vm.Total
	}

	stats, err := gcpu.Info()
	if err != nil {
		return info, fmt.Errorf("reading CPU info: %w", err)
	}
	if len(stats) > 0 {
		if stats[0].ModelName != "" {
			info.Model = stats[0].ModelName
		}
		info.Mhz = stats[0].Mhz
	}
	return info, nil
}

// String renders info the way the devices listing prints it.
func (i Info) String() string {
	s := fmt.Sprintf("CPU: Model: %s, Cores: %d, Frequency: %.2f MHz", i.Model, i.LogicalCores, i.Mhz)
	if i.MemoryTotal > 0 {
		s += fmt.Sprintf(", Memory: %.1f GiB", float64(i.MemoryTotal)/(1<<30))
	}
	return s
}

// Workers returns the default goroutine count for the CPU backend.
func Workers() int {
	info, _ := CPU()
	if info.LogicalCores < 1 {
		return 1
	}
	return info.LogicalCores
}

// Package sysinfo reports coarse host metrics for the shell's status
// display.
package sysinfo

import (
	"context"
	"fmt"
	"runtime"

	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/load"
	"github.com/shirou/gopsutil/v4/mem"
)

// Info is one snapshot of the host.
type Info struct {
	Platform        string  `json:"platform"`
	CPULoad         float64 `json:"cpuLoad"`
	MemoryUsedBytes uint64  `json:"memoryUsedBytes"`
}

// Collect takes a fresh snapshot. CPU load degrades to zero on
// platforms without load averages; memory stats are required.
func Collect(ctx context.Context) (Info, error) {
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return Info{}, fmt.Errorf("read memory stats: %w", err)
	}

	info := Info{
		Platform:        runtime.GOOS,
		MemoryUsedBytes: vm.Used,
	}

	if hi, err := host.InfoWithContext(ctx); err == nil && hi.Platform != "" {
		info.Platform = hi.Platform
	}
	if avg, err := load.AvgWithContext(ctx); err == nil {
		info.CPULoad = avg.Load1
	}

	return info, nil
}

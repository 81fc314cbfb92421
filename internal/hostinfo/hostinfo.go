// Package hostinfo collects a best-effort snapshot of the host machine for
// startup banners and acceleration defaults.
package hostinfo

import (
	"log/slog"
	"runtime"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"
)

// Info describes the host at startup. Zero fields mean the corresponding
// probe failed; every collector degrades gracefully.
type Info struct {
	OS       string
	Arch     string
	CPUModel string
	Cores    int
	TotalMB  uint64
	AvailMB  uint64
	Load1    float64
}

// Snapshot collects host facts. A failing probe is logged and leaves its
// field zero; it never blocks startup.
func Snapshot() Info {
	info := Info{OS: runtime.GOOS, Arch: runtime.GOARCH}

	if n, err := cpu.Counts(true); err != nil {
		slog.Debug("hostinfo: cpu count probe failed", "error", err)
	} else {
		info.Cores = n
	}

	if stats, err := cpu.Info(); err != nil {
		slog.Debug("hostinfo: cpu info probe failed", "error", err)
	} else if len(stats) > 0 {
		info.CPUModel = stats[0].ModelName
	}

	if vm, err := mem.VirtualMemory(); err != nil {
		slog.Debug("hostinfo: memory probe failed", "error", err)
	} else {
		info.TotalMB = vm.Total / (1 << 20)
		info.AvailMB = vm.Available / (1 << 20)
	}

	if avg, err := load.Avg(); err != nil {
		slog.Debug("hostinfo: load probe failed", "error", err)
	} else {
		info.Load1 = avg.Load1
	}

	return info
}

// SuggestAcceleration returns the decoder mode a host of this size should
// default to. Constrained machines skip hardware decode negotiation, which
// costs startup time and fails more often than it helps there.
func (i Info) SuggestAcceleration() string {
	if i.Cores > 0 && i.Cores < 4 {
		return "software"
	}
	if i.AvailMB > 0 && i.AvailMB < 1024 {
		return "software"
	}
	return "auto"
}

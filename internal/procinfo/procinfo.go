// Package procinfo samples resource usage of a running process for status
// displays.
package procinfo

import (
	"fmt"
	"time"

	gopsproc "github.com/shirou/gopsutil/v4/process"
)

// Info is a point-in-time usage snapshot.
type Info struct {
	PID        int
	Command    string
	Uptime     time.Duration
	CPUPercent float64
	RSSBytes   uint64
}

// RSSMB returns the resident set size in megabytes.
func (i *Info) RSSMB() float64 {
	return float64(i.RSSBytes) / (1024 * 1024)
}

// Snapshot collects usage data for pid. Partial data is fine: only a missing
// process is an error, individual probe failures leave zero values.
func Snapshot(pid int) (*Info, error) {
	p, err := gopsproc.NewProcess(int32(pid))
	if err != nil {
		return nil, fmt.Errorf("process %d: %w", pid, err)
	}
	info := &Info{PID: pid}
	if name, err := p.Cmdline(); err == nil && name != "" {
		info.Command = name
	} else if name, err := p.Name(); err == nil {
		info.Command = name
	}
	if created, err := p.CreateTime(); err == nil && created > 0 {
		info.Uptime = time.Since(time.UnixMilli(created)).Truncate(time.Second)
	}
	if cpu, err := p.CPUPercent(); err == nil {
		info.CPUPercent = cpu
	}
	if mem, err := p.MemoryInfo(); err == nil && mem != nil {
		info.RSSBytes = mem.RSS
	}
	return info, nil
}

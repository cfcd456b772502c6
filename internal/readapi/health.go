package readapi

import (
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// ProcessStats is the instantaneous resource snapshot returned by the
// /health endpoint: a short system-wide CPU window plus instant system
// memory usage, not a continuously running sampler goroutine.
type ProcessStats struct {
	CPUPercent float64
	MemPercent float64
}

// SampleProcessStats takes a brief (100ms) CPU reading and an instant
// memory reading.
func SampleProcessStats() ProcessStats {
	cpuPercent, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil || len(cpuPercent) == 0 {
		cpuPercent = []float64{0}
	}
	memStat, err := mem.VirtualMemory()
	memPercent := 0.0
	if err == nil {
		memPercent = memStat.UsedPercent
	}
	return ProcessStats{CPUPercent: cpuPercent[0], MemPercent: memPercent}
}

package enrichment

import (
	"math"
	"sync"

	"github.com/prometheus/procfs"
)

const (
	bytesPerKiB  = 1024
	percentScale = 100
)

// HostSample is a best-effort reading of host load. Unavailable readings stay nil.
type HostSample struct {
	Load1      *float64
	MemUsedMB  *uint64
	MemTotalMB *uint64
	CPUPercent *float64
}

// HostSampler reads load average, memory and CPU usage from procfs.
// CPU usage is the busy share between two consecutive samples, so the first sample has none.
type HostSampler struct {
	fs    *procfs.FS
	mu    sync.Mutex
	prevT float64
	prevI float64
	ready bool
}

// NewHostSampler opens procfs at mountPoint, or the default mount when empty.
// A missing procfs yields a sampler that reports nothing.
func NewHostSampler(mountPoint string) *HostSampler {
	var (
		fs  procfs.FS
		err error
	)

	if mountPoint == "" {
		fs, err = procfs.NewDefaultFS()
	} else {
		fs, err = procfs.NewFS(mountPoint)
	}

	if err != nil {
		return &HostSampler{}
	}

	return &HostSampler{fs: &fs}
}

func (h *HostSampler) Sample() HostSample {
	var s HostSample

	if h.fs == nil {
		return s
	}

	if load, err := h.fs.LoadAvg(); err == nil {
		s.Load1 = &load.Load1
	}

	if mem, err := h.fs.Meminfo(); err == nil && mem.MemTotal != nil && mem.MemAvailable != nil {
		total := *mem.MemTotal / bytesPerKiB
		used := (*mem.MemTotal - *mem.MemAvailable) / bytesPerKiB
		s.MemTotalMB = &total
		s.MemUsedMB = &used
	}

	s.CPUPercent = h.cpuPercent()

	return s
}

func (h *HostSampler) cpuPercent() *float64 {
	stat, err := h.fs.Stat()
	if err != nil {
		return nil
	}

	c := stat.CPUTotal
	idle := c.Idle + c.Iowait
	total := c.User + c.Nice + c.System + c.Idle + c.Iowait + c.IRQ + c.SoftIRQ + c.Steal

	h.mu.Lock()
	defer h.mu.Unlock()

	prevTotal, prevIdle, ready := h.prevT, h.prevI, h.ready
	h.prevT, h.prevI, h.ready = total, idle, true

	if !ready {
		return nil
	}

	deltaTotal := total - prevTotal
	if deltaTotal <= 0 {
		return nil
	}

	usage := percentScale * (1 - (idle-prevIdle)/deltaTotal)
	usage = math.Round(usage*10) / 10

	return &usage
}

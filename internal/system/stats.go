package system

import (
	"fmt"
	"os"
	"time"

	"github.com/shirou/gopsutil/v3/process"
)

// ProcessReport is a snapshot of this process's resource usage.
type ProcessReport struct {
	PID        int32
	Uptime     time.Duration
	CPUPercent float64
	RSSBytes   uint64
	Threads    int32
	OpenFiles  int
}

// CurrentProcessReport samples the running process.
func CurrentProcessReport() (ProcessReport, error) {
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return ProcessReport{}, err
	}

	report := ProcessReport{PID: p.Pid}
	if created, err := p.CreateTime(); err == nil {
		report.Uptime = time.Since(time.UnixMilli(created))
	}
	if cpu, err := p.CPUPercent(); err == nil {
		report.CPUPercent = cpu
	}
	mem, err := p.MemoryInfo()
	if err != nil {
		return report, fmt.Errorf("memory info: %w", err)
	}
	report.RSSBytes = mem.RSS
	if n, err := p.NumThreads(); err == nil {
		report.Threads = n
	}
	// Not supported everywhere; leave zero on error.
	if files, err := p.OpenFiles(); err == nil {
		report.OpenFiles = len(files)
	}
	return report, nil
}

func (r ProcessReport) String() string {
	return fmt.Sprintf("PID %d | время работы %s | CPU %.1f%% | RSS %.1f МБ | потоков %d | открытых файлов %d",
		r.PID, r.Uptime.Round(time.Millisecond), r.CPUPercent, float64(r.RSSBytes)/(1<<20), r.Threads, r.OpenFiles)
}

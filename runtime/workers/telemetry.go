package workers

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/shirou/gopsutil/process"

	"github.com/Sirco-web/ttls/observability"
)

// Telemetry samples the service's own process stats (resident memory,
// CPU) on a fixed cadence and records them in the monitor, where the
// stats endpoint picks them up.
type Telemetry struct {
	log      *slog.Logger
	monitor  *observability.Monitor
	interval time.Duration
}

func NewTelemetry(log *slog.Logger, monitor *observability.Monitor, interval time.Duration) *Telemetry {
	return &Telemetry{log: log, monitor: monitor, interval: interval}
}

func (t *Telemetry) Run(ctx context.Context) error {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return err
	}

	t.log.Info("telemetry sampler started", "interval", t.interval)
	for {
		select {
		case <-ctx.Done():
			t.log.Info("telemetry sampler stopping")
			return nil
		case <-ticker.C:
			rss, cpu, err := selfStats(p)
			if err != nil {
				t.log.Debug("failed to sample process stats", "err", err)
				continue
			}
			t.monitor.UpdateProcess(rss, cpu)
		}
	}
}

func selfStats(p *process.Process) (uint64, float64, error) {
	memInfo, err := p.MemoryInfo()
	if err != nil {
		return 0, 0, err
	}
	cpuPercent, err := p.CPUPercent()
	if err != nil {
		return 0, 0, err
	}
	return memInfo.RSS, cpuPercent, nil
}

package workers

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/shirou/gopsutil/process"

	"lan-chat/observability"
)

// HeartbeatWorker samples the server's own CPU and memory usage on an
// interval and feeds the monitoring manager serving /healthz.
type HeartbeatWorker struct {
	log        *slog.Logger
	monitoring *observability.MonitoringManager
	interval   time.Duration
}

func NewHeartbeatWorker(log *slog.Logger, monitoring *observability.MonitoringManager, interval time.Duration) *HeartbeatWorker {
	return &HeartbeatWorker{log: log, monitoring: monitoring, interval: interval}
}

func (w *HeartbeatWorker) Run(ctx context.Context) error {
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return err
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			cpu, err := p.CPUPercent()
			if err != nil {
				w.log.Debug("Failed to read cpu usage", "err", err)
				continue
			}
			memInfo, err := p.MemoryInfo()
			if err != nil {
				w.log.Debug("Failed to read memory usage", "err", err)
				continue
			}
			w.monitoring.SetProcessStats(cpu, memInfo.RSS)
			w.log.Debug("Heartbeat", "cpu_percent", cpu, "rss_bytes", memInfo.RSS)
		}
	}
}

package workers

import (
	"context"
	"log/slog"
	"os"
	"time"

	"chat-relay/observability"

	"github.com/shirou/gopsutil/process"
)

// StatsProvider yields the current coordinator snapshot (counters plus
// presence gauges).
type StatsProvider func() observability.Snapshot

// HeartbeatWorker periodically logs a health line: self-process RSS and
// CPU plus the realtime gauges. It is the local replacement for pushing
// node status to a monitoring master.
type HeartbeatWorker struct {
	log      *slog.Logger
	interval time.Duration
	stats    StatsProvider
}

func NewHeartbeatWorker(log *slog.Logger, interval time.Duration, stats StatsProvider) *HeartbeatWorker {
	return &HeartbeatWorker{log: log, interval: interval, stats: stats}
}

func (w *HeartbeatWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			snapshot := w.stats()

			var rssMb uint64
			var cpu float64
			if mem, err := p.MemoryInfo(); err == nil {
				rssMb = mem.RSS / 1024 / 1024
			}
			if percent, err := p.CPUPercent(); err == nil {
				cpu = percent
			}

			w.log.Info("heartbeat",
				"rss_mb", rssMb,
				"cpu_percent", cpu,
				"active_connections", snapshot.ActiveConnections,
				"presence_channels", snapshot.PresenceChannels,
				"presence_users", snapshot.PresenceUsers,
				"messages_persisted", snapshot.MessagesPersisted,
				"events_dropped", snapshot.EventsDropped,
			)
		}
	}
}

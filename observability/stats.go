// Package observability aggregates runtime counters for the stats endpoint
// and the heartbeat log line.
package observability

import (
	"runtime"
	"sync/atomic"
	"time"
)

// Stats collects lock-free counters from the realtime layer. Gauges that
// need the presence/registry maps are injected at snapshot time by the
// caller owning those components.
type Stats struct {
	started time.Time

	connected         uint64
	disconnected      uint64
	authFailures      uint64
	messagesPersisted uint64
	eventsDelivered   uint64
	eventsDropped     uint64
}

func NewStats() *Stats {
	return &Stats{started: time.Now()}
}

func (s *Stats) ConnectionBound()  { atomic.AddUint64(&s.connected, 1) }
func (s *Stats) ConnectionClosed() { atomic.AddUint64(&s.disconnected, 1) }
func (s *Stats) AuthFailure()      { atomic.AddUint64(&s.authFailures, 1) }
func (s *Stats) MessagePersisted() { atomic.AddUint64(&s.messagesPersisted, 1) }
func (s *Stats) EventDelivered()   { atomic.AddUint64(&s.eventsDelivered, 1) }
func (s *Stats) EventDropped()     { atomic.AddUint64(&s.eventsDropped, 1) }

// Snapshot is the serializable stats view served by /stats.
type Snapshot struct {
	UptimeSeconds     int64  `json:"uptime_seconds"`
	ActiveConnections int64  `json:"active_connections"`
	TotalConnections  uint64 `json:"total_connections"`
	AuthFailures      uint64 `json:"auth_failures"`
	MessagesPersisted uint64 `json:"messages_persisted"`
	EventsDelivered   uint64 `json:"events_delivered"`
	EventsDropped     uint64 `json:"events_dropped"`
	PresenceChannels  int    `json:"presence_channels"`
	PresenceUsers     int    `json:"presence_users"`
	AllocMemMb        uint64 `json:"alloc_mem_mb"`
	NumGC             uint32 `json:"num_gc"`
}

// Snapshot reads every counter plus Go memory stats. The presence gauges
// are passed in by the coordinator's stats provider.
func (s *Stats) Snapshot(presenceChannels, presenceUsers int) Snapshot {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	connected := atomic.LoadUint64(&s.connected)
	disconnected := atomic.LoadUint64(&s.disconnected)

	return Snapshot{
		UptimeSeconds:     int64(time.Since(s.started).Seconds()),
		ActiveConnections: int64(connected) - int64(disconnected),
		TotalConnections:  connected,
		AuthFailures:      atomic.LoadUint64(&s.authFailures),
		MessagesPersisted: atomic.LoadUint64(&s.messagesPersisted),
		EventsDelivered:   atomic.LoadUint64(&s.eventsDelivered),
		EventsDropped:     atomic.LoadUint64(&s.eventsDropped),
		PresenceChannels:  presenceChannels,
		PresenceUsers:     presenceUsers,
		AllocMemMb:        mem.Alloc / 1024 / 1024,
		NumGC:             mem.NumGC,
	}
}

// Package observability aggregates runtime counters for the health endpoint
// and the debug inspector.
package observability

import (
	"runtime"
	"sync"
	"sync/atomic"
)

// MonitoringStats is the snapshot served on /healthz.
type MonitoringStats struct {
	OnlineSessions    int64   `json:"online_sessions"`
	MessagesPersisted uint64  `json:"messages_persisted"`
	EventsFanned      uint64  `json:"events_fanned"`
	EventsDropped     uint64  `json:"events_dropped"`
	StorageErrors     uint64  `json:"storage_errors"`
	FilesShared       uint64  `json:"files_shared"`
	ProcessCPUPercent float64 `json:"process_cpu_percent"`
	ProcessRSSBytes   uint64  `json:"process_rss_bytes"`
	AllocMemMB        uint64  `json:"alloc_mem_mb"`
	NumGC             uint32  `json:"num_gc"`
}

// MonitoringManager holds atomic counters updated from the hub and the
// heartbeat worker. Safe for concurrent use.
type MonitoringManager struct {
	onlineSessions    atomic.Int64
	messagesPersisted atomic.Uint64
	eventsFanned      atomic.Uint64
	eventsDropped     atomic.Uint64
	storageErrors     atomic.Uint64
	filesShared       atomic.Uint64

	mu         sync.RWMutex
	cpuPercent float64
	rssBytes   uint64
}

func NewMonitoringManager() *MonitoringManager {
	return &MonitoringManager{}
}

func (m *MonitoringManager) SessionOpened()    { m.onlineSessions.Add(1) }
func (m *MonitoringManager) SessionClosed()    { m.onlineSessions.Add(-1) }
func (m *MonitoringManager) MessagePersisted() { m.messagesPersisted.Add(1) }
func (m *MonitoringManager) EventFanned()      { m.eventsFanned.Add(1) }
func (m *MonitoringManager) EventDropped()     { m.eventsDropped.Add(1) }
func (m *MonitoringManager) StorageError()     { m.storageErrors.Add(1) }
func (m *MonitoringManager) FileShared()       { m.filesShared.Add(1) }

// SetProcessStats is fed by the heartbeat worker.
func (m *MonitoringManager) SetProcessStats(cpuPercent float64, rssBytes uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cpuPercent = cpuPercent
	m.rssBytes = rssBytes
}

// GetLatest assembles the current snapshot, including Go heap numbers.
func (m *MonitoringManager) GetLatest() MonitoringStats {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	m.mu.RLock()
	cpu, rss := m.cpuPercent, m.rssBytes
	m.mu.RUnlock()

	return MonitoringStats{
		OnlineSessions:    m.onlineSessions.Load(),
		MessagesPersisted: m.messagesPersisted.Load(),
		EventsFanned:      m.eventsFanned.Load(),
		EventsDropped:     m.eventsDropped.Load(),
		StorageErrors:     m.storageErrors.Load(),
		FilesShared:       m.filesShared.Load(),
		ProcessCPUPercent: cpu,
		ProcessRSSBytes:   rss,
		AllocMemMB:        mem.Alloc / 1024 / 1024,
		NumGC:             mem.NumGC,
	}
}

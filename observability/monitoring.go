// Package observability aggregates runtime counters and process stats
// for the /api/stats endpoint and the viewer CLI.
package observability

import (
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"
	"time"
)

// Stats is the snapshot served to operators.
type Stats struct {
	Rooms   int `json:"rooms"`
	Clients int `json:"clients"`

	RoomsCreated    uint64 `json:"rooms_created"`
	Joins           uint64 `json:"joins"`
	MessagesSent    uint64 `json:"messages_sent"`
	EventsBroadcast uint64 `json:"events_broadcast"`
	PollsParked     uint64 `json:"polls_parked"`
	PollsTimedOut   uint64 `json:"polls_timed_out"`
	ClientsEvicted  uint64 `json:"clients_evicted"`

	AllocMemMb uint64  `json:"alloc_mem_mb"`
	NumGC      uint32  `json:"num_gc"`
	RSSBytes   uint64  `json:"rss_bytes"`
	CPUPercent float64 `json:"cpu_percent"`

	SampledAt string `json:"sampled_at"`
}

// Monitor collects counters from the orchestrator and periodic process
// samples from the telemetry worker. Safe for concurrent use.
type Monitor struct {
	log *slog.Logger

	mu     sync.RWMutex
	latest Stats

	roomsCreated    uint64
	joins           uint64
	messagesSent    uint64
	eventsBroadcast uint64
	pollsParked     uint64
	pollsTimedOut   uint64
	clientsEvicted  uint64
}

func NewMonitor(log *slog.Logger) *Monitor {
	return &Monitor{log: log}
}

func (m *Monitor) IncrRoomsCreated()         { atomic.AddUint64(&m.roomsCreated, 1) }
func (m *Monitor) IncrJoins()                { atomic.AddUint64(&m.joins, 1) }
func (m *Monitor) IncrMessagesSent()         { atomic.AddUint64(&m.messagesSent, 1) }
func (m *Monitor) IncrEventsBroadcast(n int) { atomic.AddUint64(&m.eventsBroadcast, uint64(n)) }
func (m *Monitor) IncrPollsParked()          { atomic.AddUint64(&m.pollsParked, 1) }
func (m *Monitor) IncrPollsTimedOut()        { atomic.AddUint64(&m.pollsTimedOut, 1) }
func (m *Monitor) IncrClientsEvicted(n int)  { atomic.AddUint64(&m.clientsEvicted, uint64(n)) }

// UpdateProcess stores the latest self-process sample.
func (m *Monitor) UpdateProcess(rssBytes uint64, cpuPercent float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.latest.RSSBytes = rssBytes
	m.latest.CPUPercent = cpuPercent
}

// UpdatePopulation stores the current room/session population.
func (m *Monitor) UpdatePopulation(rooms, clients int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.latest.Rooms = rooms
	m.latest.Clients = clients
}

// Latest merges counters, Go memory stats and the last process sample
// into a fresh snapshot.
func (m *Monitor) Latest() Stats {
	m.mu.RLock()
	stats := m.latest
	m.mu.RUnlock()

	stats.RoomsCreated = atomic.LoadUint64(&m.roomsCreated)
	stats.Joins = atomic.LoadUint64(&m.joins)
	stats.MessagesSent = atomic.LoadUint64(&m.messagesSent)
	stats.EventsBroadcast = atomic.LoadUint64(&m.eventsBroadcast)
	stats.PollsParked = atomic.LoadUint64(&m.pollsParked)
	stats.PollsTimedOut = atomic.LoadUint64(&m.pollsTimedOut)
	stats.ClientsEvicted = atomic.LoadUint64(&m.clientsEvicted)

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	stats.AllocMemMb = mem.Alloc / 1024 / 1024
	stats.NumGC = mem.NumGC
	stats.SampledAt = time.Now().UTC().Format(time.RFC3339)
	return stats
}

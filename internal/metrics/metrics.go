package metrics

import (
	"sync"
	"time"
)

// Counter and gauge names used across the service.
const (
	PollsTotal            = "polls_total"
	PollFailuresTotal     = "poll_failures_total"
	MessagesReceivedTotal = "messages_received_total"
	MessagesSentTotal     = "messages_sent_total"
	SendFailuresTotal     = "send_failures_total"
	DeletesTotal          = "deletes_total"
	DeleteFailuresTotal   = "delete_failures_total"
	CommandsMalformed     = "commands_malformed_total"

	LedgerSize       = "ledger_size"
	PendingDeletions = "pending_deletions"
)

// Registry manages all metrics in memory
type Registry struct {
	mu        sync.RWMutex
	counters  map[string]float64
	gauges    map[string]float64
	startTime time.Time
}

// Snapshot is a point-in-time copy of the registry, serializable for the
// status server's /metrics endpoint.
type Snapshot struct {
	UptimeSeconds float64            `json:"uptime_seconds"`
	Counters      map[string]float64 `json:"counters"`
	Gauges        map[string]float64 `json:"gauges"`
}

// NewRegistry creates a new metrics registry
func NewRegistry() *Registry {
	return &Registry{
		counters:  make(map[string]float64),
		gauges:    make(map[string]float64),
		startTime: time.Now(),
	}
}

// Global registry instance
var globalRegistry = NewRegistry()

// GetRegistry returns the global registry instance
func GetRegistry() *Registry {
	return globalRegistry
}

// IncrementCounter increments a counter metric by one
func (r *Registry) IncrementCounter(name string) {
	r.AddToCounter(name, 1)
}

// AddToCounter adds a value to a counter metric
func (r *Registry) AddToCounter(name string, value float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counters[name] += value
}

// SetGauge sets a gauge metric to the given value
func (r *Registry) SetGauge(name string, value float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gauges[name] = value
}

// CounterValue returns the current value of a counter
func (r *Registry) CounterValue(name string) float64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.counters[name]
}

// GaugeValue returns the current value of a gauge
func (r *Registry) GaugeValue(name string) float64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.gauges[name]
}

// GetSnapshot returns a copy of all current metrics
func (r *Registry) GetSnapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	snap := Snapshot{
		UptimeSeconds: time.Since(r.startTime).Seconds(),
		Counters:      make(map[string]float64, len(r.counters)),
		Gauges:        make(map[string]float64, len(r.gauges)),
	}
	for k, v := range r.counters {
		snap.Counters[k] = v
	}
	for k, v := range r.gauges {
		snap.Gauges[k] = v
	}
	return snap
}

// Reset clears all metrics. Intended for tests.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counters = make(map[string]float64)
	r.gauges = make(map[string]float64)
	r.startTime = time.Now()
}

// Package-level helpers operating on the global registry.

func IncrementCounter(name string) {
	globalRegistry.IncrementCounter(name)
}

func SetGauge(name string, value float64) {
	globalRegistry.SetGauge(name, value)
}

func GetSnapshot() Snapshot {
	return globalRegistry.GetSnapshot()
}

// Package performance records operation timings for the admin perf endpoint.
package performance

import (
	"sync"
	"time"
)

// Marker represents a single performance measurement for an operation
type Marker struct {
	Operation string         `json:"operation"`
	Scope     string         `json:"scope"`
	StartTime time.Time      `json:"startTime"`
	EndTime   time.Time      `json:"endTime"`
	Duration  time.Duration  `json:"duration"`
	Success   bool           `json:"success"`
	Error     string         `json:"error,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	Completed bool           `json:"completed"`

	mu      sync.Mutex
	tracker *Tracker
}

// Complete marks the operation finished and hands it to the tracker. Later
// calls are no-ops.
func (m *Marker) Complete() {
	m.mu.Lock()
	if m.Completed {
		m.mu.Unlock()
		return
	}
	m.EndTime = time.Now()
	m.Duration = m.EndTime.Sub(m.StartTime)
	m.Completed = true
	snapshot := m.snapshotLocked()
	m.mu.Unlock()

	if m.tracker != nil {
		m.tracker.record(snapshot)
	}
}

// SetSuccess marks the operation as successful or failed
func (m *Marker) SetSuccess(success bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Success = success
}

// SetError records err and marks the operation failed. A nil error is ignored.
func (m *Marker) SetError(err error) {
	if err == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Error = err.Error()
	m.Success = false
}

// AddMetadata adds key-value metadata to the marker
func (m *Marker) AddMetadata(key string, value any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Metadata == nil {
		m.Metadata = make(map[string]any)
	}
	m.Metadata[key] = value
}

// Entry is an immutable copy of a completed marker.
type Entry struct {
	Operation string         `json:"operation"`
	Scope     string         `json:"scope"`
	StartTime time.Time      `json:"startTime"`
	Duration  time.Duration  `json:"duration"`
	Success   bool           `json:"success"`
	Error     string         `json:"error,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

func (m *Marker) snapshotLocked() Entry {
	meta := make(map[string]any, len(m.Metadata))
	for k, v := range m.Metadata {
		meta[k] = v
	}
	return Entry{
		Operation: m.Operation,
		Scope:     m.Scope,
		StartTime: m.StartTime,
		Duration:  m.Duration,
		Success:   m.Success,
		Error:     m.Error,
		Metadata:  meta,
	}
}

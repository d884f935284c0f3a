package performance

import (
	"sort"
	"sync"
	"time"
)

// TrackerConfig contains configuration options for the performance tracker
type TrackerConfig struct {
	// MaxEntries bounds the ring of completed markers.
	MaxEntries int `json:"maxEntries"`
	// SlowThreshold flags completed operations slower than this.
	SlowThreshold time.Duration `json:"slowThreshold"`
}

// DefaultTrackerConfig returns a sensible default configuration
func DefaultTrackerConfig() *TrackerConfig {
	return &TrackerConfig{
		MaxEntries:    1000,
		SlowThreshold: 500 * time.Millisecond,
	}
}

// Tracker keeps the most recent completed markers.
type Tracker struct {
	mu      sync.RWMutex
	ring    []Entry
	next    int
	full    bool
	started time.Time
	config  *TrackerConfig
	onSlow  func(Entry)
}

// NewTracker creates a new performance tracker with the given configuration
func NewTracker(config *TrackerConfig) *Tracker {
	if config == nil {
		config = DefaultTrackerConfig()
	}
	if config.MaxEntries <= 0 {
		config.MaxEntries = DefaultTrackerConfig().MaxEntries
	}
	return &Tracker{
		ring:    make([]Entry, config.MaxEntries),
		started: time.Now(),
		config:  config,
	}
}

// OnSlow registers a callback for operations over the slow threshold.
func (t *Tracker) OnSlow(fn func(Entry)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onSlow = fn
}

// StartOperation begins timing operation within scope.
func (t *Tracker) StartOperation(operation, scope string) *Marker {
	return &Marker{
		Operation: operation,
		Scope:     scope,
		StartTime: time.Now(),
		Success:   true,
		tracker:   t,
	}
}

func (t *Tracker) record(e Entry) {
	t.mu.Lock()
	t.ring[t.next] = e
	t.next = (t.next + 1) % len(t.ring)
	if t.next == 0 {
		t.full = true
	}
	onSlow := t.onSlow
	t.mu.Unlock()

	if onSlow != nil && t.config.SlowThreshold > 0 && e.Duration > t.config.SlowThreshold {
		onSlow(e)
	}
}

// Recent returns up to n completed entries, newest first.
func (t *Tracker) Recent(n int) []Entry {
	t.mu.RLock()
	defer t.mu.RUnlock()

	size := t.next
	if t.full {
		size = len(t.ring)
	}
	if n <= 0 || n > size {
		n = size
	}
	out := make([]Entry, 0, n)
	for i := 1; i <= n; i++ {
		idx := (t.next - i + len(t.ring)) % len(t.ring)
		out = append(out, t.ring[idx])
	}
	return out
}

// OperationStats aggregates entries of one operation.
type OperationStats struct {
	Operation string        `json:"operation"`
	Count     int           `json:"count"`
	Failures  int           `json:"failures"`
	Average   time.Duration `json:"average"`
	Max       time.Duration `json:"max"`
}

// Report summarizes the retained entries.
type Report struct {
	Uptime     time.Duration    `json:"uptime"`
	Retained   int              `json:"retained"`
	Operations []OperationStats `json:"operations"`
	Recent     []Entry          `json:"recent"`
}

// Report aggregates retained entries per operation, slowest average first.
func (t *Tracker) Report(recent int) Report {
	all := t.Recent(0)
	byOp := map[string]*OperationStats{}
	total := map[string]time.Duration{}
	for _, e := range all {
		s, ok := byOp[e.Operation]
		if !ok {
			s = &OperationStats{Operation: e.Operation}
			byOp[e.Operation] = s
		}
		s.Count++
		if !e.Success {
			s.Failures++
		}
		total[e.Operation] += e.Duration
		if e.Duration > s.Max {
			s.Max = e.Duration
		}
	}
	ops := make([]OperationStats, 0, len(byOp))
	for op, s := range byOp {
		s.Average = total[op] / time.Duration(s.Count)
		ops = append(ops, *s)
	}
	sort.Slice(ops, func(i, j int) bool {
		if ops[i].Average != ops[j].Average {
			return ops[i].Average > ops[j].Average
		}
		return ops[i].Operation < ops[j].Operation
	})
	if recent > len(all) {
		recent = len(all)
	}
	return Report{
		Uptime:     time.Since(t.started),
		Retained:   len(all),
		Operations: ops,
		Recent:     all[:recent],
	}
}

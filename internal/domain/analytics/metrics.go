// Package analytics holds the site metrics document: visit counters, per-path
// counts, funnel stages and the visitor ledger used for unique counting.
package analytics

import (
	"context"
	"time"
)

// Funnel stages.
const (
	StageHome   = "home"
	StageLogin  = "login"
	StageApply  = "apply"
	StageEnroll = "enroll"
)

// Visitor ledger retention.
const (
	MaxVisitors      = 20000
	VisitorRetention = 120 * 24 * time.Hour
)

// Funnel counts visitors reaching each stage.
type Funnel struct {
	Home   int64 `json:"home"`
	Login  int64 `json:"login"`
	Apply  int64 `json:"apply"`
	Enroll int64 `json:"enroll"`
}

// Metrics is the persisted metrics singleton.
type Metrics struct {
	TotalVisits  int64            `json:"total_visits"`
	UniqueVisits int64            `json:"unique_visits"`
	PathCounts   map[string]int64 `json:"path_counts"`
	Funnel       Funnel           `json:"funnel"`
	Visitors     map[string]int64 `json:"visitors"`
}

// New returns an empty metrics document.
func New() *Metrics {
	return &Metrics{
		PathCounts: map[string]int64{},
		Visitors:   map[string]int64{},
	}
}

// Track records one page view of path by visitID at now.
func (m *Metrics) Track(path, visitID string, now time.Time) {
	m.ensureMaps()
	m.TotalVisits++
	m.PathCounts[path]++
	if visitID != "" {
		if _, seen := m.Visitors[visitID]; !seen {
			m.UniqueVisits++
		}
		m.Visitors[visitID] = now.Unix()
	}
	switch path {
	case "/":
		m.Funnel.Home++
	case "/login":
		m.Funnel.Login++
	}
	m.Prune(now)
}

// Bump increments a funnel stage. Unknown stages are ignored.
func (m *Metrics) Bump(stage string) bool {
	switch stage {
	case StageHome:
		m.Funnel.Home++
	case StageLogin:
		m.Funnel.Login++
	case StageApply:
		m.Funnel.Apply++
	case StageEnroll:
		m.Funnel.Enroll++
	default:
		return false
	}
	return true
}

// Prune drops visitors not seen within VisitorRetention, but only once the
// ledger has grown past MaxVisitors.
func (m *Metrics) Prune(now time.Time) int {
	if len(m.Visitors) <= MaxVisitors {
		return 0
	}
	cutoff := now.Add(-VisitorRetention).Unix()
	removed := 0
	for id, seen := range m.Visitors {
		if seen < cutoff {
			delete(m.Visitors, id)
			removed++
		}
	}
	return removed
}

// Clone returns a deep copy safe to hand to readers.
func (m *Metrics) Clone() *Metrics {
	out := *m
	out.PathCounts = make(map[string]int64, len(m.PathCounts))
	for k, v := range m.PathCounts {
		out.PathCounts[k] = v
	}
	out.Visitors = make(map[string]int64, len(m.Visitors))
	for k, v := range m.Visitors {
		out.Visitors[k] = v
	}
	return &out
}

func (m *Metrics) ensureMaps() {
	if m.PathCounts == nil {
		m.PathCounts = map[string]int64{}
	}
	if m.Visitors == nil {
		m.Visitors = map[string]int64{}
	}
}

// Repository stores the metrics singleton. Update serializes read-modify-write.
type Repository interface {
	Load(ctx context.Context) (*Metrics, error)
	Update(ctx context.Context, fn func(*Metrics)) error
}

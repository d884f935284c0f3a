package analytics

import (
	"bytes"
	"encoding/json"
	"math"
)

// Decode reads a metrics document leniently. Fields that are missing or have the
// wrong type are reset to their zero values instead of failing the load.
func Decode(data []byte) *Metrics {
	m := New()
	var raw map[string]any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil || raw == nil {
		return m
	}
	m.TotalVisits = intField(raw["total_visits"])
	m.UniqueVisits = intField(raw["unique_visits"])
	m.PathCounts = counterMap(raw["path_counts"])
	m.Visitors = counterMap(raw["visitors"])
	if funnel, ok := raw["funnel"].(map[string]any); ok {
		m.Funnel = Funnel{
			Home:   intField(funnel[StageHome]),
			Login:  intField(funnel[StageLogin]),
			Apply:  intField(funnel[StageApply]),
			Enroll: intField(funnel[StageEnroll]),
		}
	}
	return m
}

func intField(v any) int64 {
	n, ok := v.(json.Number)
	if !ok {
		return 0
	}
	if i, err := n.Int64(); err == nil {
		return i
	}
	if f, err := n.Float64(); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
		return int64(f)
	}
	return 0
}

func counterMap(v any) map[string]int64 {
	out := map[string]int64{}
	obj, ok := v.(map[string]any)
	if !ok {
		return out
	}
	for k, val := range obj {
		out[k] = intField(val)
	}
	return out
}

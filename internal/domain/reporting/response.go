package reporting

import (
	"math"
	"sort"
	"time"

	"github.com/politifan/school-peaky-minds/internal/domain/records"
)

// StaleAfter is how long a lead may stay "new" before it counts as overdue.
const StaleAfter = 24 * time.Hour

// StaleLead is an overdue lead.
type StaleLead struct {
	File     string `json:"file"`
	Name     string `json:"name"`
	Course   string `json:"course"`
	AgeHours int64  `json:"age_hours"`
}

// Response summarizes how quickly leads get handled.
type Response struct {
	Stale      []StaleLead `json:"stale"`
	StaleCount int         `json:"stale_count"`
	AvgMinutes float64     `json:"avg_minutes"`
	Measured   int         `json:"measured"`
}

// ResponseStats finds overdue leads (derived "new" and at least StaleAfter old,
// the limit oldest listed) and averages minutes from creation to the first
// manual status change.
func ResponseStats(leads []records.Document, now time.Time, limit int) Response {
	var (
		stale []StaleLead
		total float64
		n     int
	)
	for _, doc := range leads {
		ts, ok := doc.Timestamp()
		if !ok {
			continue
		}
		created := time.Unix(ts, 0)
		if records.LeadStatuses.Derive(doc, now) == records.StatusNew {
			if age := now.Sub(created); age >= StaleAfter {
				stale = append(stale, StaleLead{
					File:     doc.File(),
					Name:     fallback(doc.String(records.FieldName), "Без имени"),
					Course:   fallback(doc.String(records.FieldCourse), "—"),
					AgeHours: int64(math.Round(age.Hours())),
				})
			}
		}
		if updated, ok := doc.Int64(records.FieldStatusUpdatedAt); ok && updated != 0 {
			if delta := time.Unix(updated, 0).Sub(created).Minutes(); delta >= 0 {
				total += delta
				n++
			}
		}
	}
	sort.SliceStable(stale, func(i, j int) bool { return stale[i].AgeHours > stale[j].AgeHours })
	out := Response{StaleCount: len(stale), Measured: n}
	if limit > 0 && len(stale) > limit {
		stale = stale[:limit]
	}
	out.Stale = stale
	if n > 0 {
		out.AvgMinutes = round(total/float64(n), 1)
	}
	return out
}

func fallback(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

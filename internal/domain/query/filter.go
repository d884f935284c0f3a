// Package query implements the admin list pipeline: filter, search, sort and
// paginate over an in-memory record set.
package query

import (
	"strings"
	"time"

	"github.com/politifan/school-peaky-minds/internal/domain/records"
)

// Date is a calendar date with no zone. The zero value means "no bound".
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// ParseDate reads YYYY-MM-DD. Anything else yields the zero Date.
func ParseDate(value string) Date {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(value))
	if err != nil {
		return Date{}
	}
	return DateOf(t)
}

// DateOf returns the calendar date of t in t's location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// IsZero reports whether d is unset.
func (d Date) IsZero() bool { return d == Date{} }

// Before reports whether d is earlier than o.
func (d Date) Before(o Date) bool {
	if d.Year != o.Year {
		return d.Year < o.Year
	}
	if d.Month != o.Month {
		return d.Month < o.Month
	}
	return d.Day < o.Day
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC).Format("2006-01-02")
}

// WithinRange reports whether the local date of ts lies in [from, to]. Zero
// bounds are open; a missing timestamp never passes.
func WithinRange(doc records.Document, from, to Date, loc *time.Location) bool {
	ts, ok := doc.Timestamp()
	if !ok {
		return false
	}
	day := DateOf(time.Unix(ts, 0).In(loc))
	if !from.IsZero() && day.Before(from) {
		return false
	}
	if !to.IsZero() && to.Before(day) {
		return false
	}
	return true
}

// Filter keeps documents matching course exactly and falling in the date range.
func Filter(docs []records.Document, course string, from, to Date, loc *time.Location) []records.Document {
	out := make([]records.Document, 0, len(docs))
	for _, doc := range docs {
		if course != "" && doc.String(records.FieldCourse) != course {
			continue
		}
		if (!from.IsZero() || !to.IsZero()) && !WithinRange(doc, from, to, loc) {
			continue
		}
		out = append(out, doc)
	}
	return out
}

// Search keeps documents where any of fields contains q, case-insensitively.
func Search(docs []records.Document, q string, fields []string) []records.Document {
	if q == "" {
		return docs
	}
	needle := strings.ToLower(q)
	out := make([]records.Document, 0, len(docs))
	for _, doc := range docs {
		for _, field := range fields {
			if _, present := doc[field]; !present {
				continue
			}
			if strings.Contains(strings.ToLower(doc.String(field)), needle) {
				out = append(out, doc)
				break
			}
		}
	}
	return out
}

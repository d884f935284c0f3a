package reporting

import (
	"fmt"
	"time"

	"github.com/politifan/school-peaky-minds/internal/domain/records"
)

// Bucket is one period of a time chart.
type Bucket struct {
	Label string  `json:"label"`
	Count int64   `json:"count"`
	Pct   float64 `json:"pct"`
}

type day struct {
	y int
	m time.Month
	d int
}

func dayOf(t time.Time) day {
	y, m, d := t.Date()
	return day{y, m, d}
}

func (d day) time(loc *time.Location) time.Time {
	return time.Date(d.y, d.m, d.d, 0, 0, 0, 0, loc)
}

func weekStart(t time.Time) time.Time {
	offset := (int(t.Weekday()) + 6) % 7
	y, m, d := t.Date()
	return time.Date(y, m, d-offset, 0, 0, 0, 0, t.Location())
}

func localDay(doc records.Document, loc *time.Location) (time.Time, bool) {
	ts, ok := doc.Timestamp()
	if !ok {
		return time.Time{}, false
	}
	return time.Unix(ts, 0).In(loc), true
}

// Weekly counts docs per Monday-aligned week for the last n weeks ending with
// the week containing now. Labels are the week start as dd.mm.
func Weekly(docs []records.Document, now time.Time, n int) []Bucket {
	loc := now.Location()
	current := weekStart(now)
	starts := make([]day, n)
	index := make(map[day]int, n)
	for i := 0; i < n; i++ {
		s := dayOf(current.AddDate(0, 0, -7*(n-1-i)))
		starts[i] = s
		index[s] = i
	}
	counts := make([]int64, n)
	for _, doc := range docs {
		t, ok := localDay(doc, loc)
		if !ok {
			continue
		}
		if i, ok := index[dayOf(weekStart(t))]; ok {
			counts[i]++
		}
	}
	labels := make([]string, n)
	for i, s := range starts {
		labels[i] = s.time(loc).Format("02.01")
	}
	return buckets(labels, counts)
}

// Monthly counts docs per calendar month for the last n months ending with the
// month containing now. Labels are mm.yy.
func Monthly(docs []records.Document, now time.Time, n int) []Bucket {
	loc := now.Location()
	y, m, _ := now.Date()
	type month struct {
		y int
		m time.Month
	}
	months := make([]month, n)
	index := make(map[month]int, n)
	for i := n - 1; i >= 0; i-- {
		months[i] = month{y, m}
		index[month{y, m}] = i
		m--
		if m == 0 {
			m = 12
			y--
		}
	}
	counts := make([]int64, n)
	for _, doc := range docs {
		t, ok := localDay(doc, loc)
		if !ok {
			continue
		}
		if i, ok := index[month{t.Year(), t.Month()}]; ok {
			counts[i]++
		}
	}
	labels := make([]string, n)
	for i, mo := range months {
		labels[i] = fmt.Sprintf("%02d.%02d", int(mo.m), mo.y%100)
	}
	return buckets(labels, counts)
}

// Daily counts docs per calendar day for the last n days ending today.
func Daily(docs []records.Document, now time.Time, n int) []Bucket {
	loc := now.Location()
	today := dayOf(now).time(loc)
	days := make([]day, n)
	index := make(map[day]int, n)
	for i := 0; i < n; i++ {
		d := dayOf(today.AddDate(0, 0, -(n - 1 - i)))
		days[i] = d
		index[d] = i
	}
	counts := make([]int64, n)
	for _, doc := range docs {
		t, ok := localDay(doc, loc)
		if !ok {
			continue
		}
		if i, ok := index[dayOf(t)]; ok {
			counts[i]++
		}
	}
	labels := make([]string, n)
	for i, d := range days {
		labels[i] = d.time(loc).Format("02.01")
	}
	return buckets(labels, counts)
}

// Total sums bucket counts.
func Total(bs []Bucket) int64 {
	var sum int64
	for _, b := range bs {
		sum += b.Count
	}
	return sum
}

func buckets(labels []string, counts []int64) []Bucket {
	var peak int64 = 1
	for _, c := range counts {
		peak = max(peak, c)
	}
	out := make([]Bucket, len(labels))
	for i := range labels {
		out[i] = Bucket{Label: labels[i], Count: counts[i], Pct: Pct(counts[i], peak)}
	}
	return out
}

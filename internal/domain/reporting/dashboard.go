package reporting

import (
	"sort"
	"time"

	"github.com/politifan/school-peaky-minds/internal/domain/analytics"
	"github.com/politifan/school-peaky-minds/internal/domain/records"
)

// TopLimit caps every top-N list on the dashboard.
const TopLimit = 6

// KPI is a headline figure.
type KPI struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Value string `json:"value"`
	Note  string `json:"note"`
}

// RecentLead is a row of the latest-leads widget.
type RecentLead struct {
	File        string `json:"file"`
	Name        string `json:"name"`
	Course      string `json:"course"`
	Timestamp   int64  `json:"timestamp"`
	Status      string `json:"status"`
	StatusLabel string `json:"status_label"`
}

// Totals are whole-collection sizes.
type Totals struct {
	Leads      int `json:"leads"`
	Agreements int `json:"agreements"`
	Users      int `json:"users"`
}

// Dashboard is the overview page payload.
type Dashboard struct {
	KPIs           []KPI        `json:"kpis"`
	Funnel         []FunnelStep `json:"funnel"`
	LeadChart      []Bucket     `json:"lead_chart"`
	EnrollChart    []Bucket     `json:"enroll_chart"`
	WeeklyLeads    []Bucket     `json:"weekly_leads"`
	WeeklyEnrolls  []Bucket     `json:"weekly_enrolls"`
	MonthlyLeads   []Bucket     `json:"monthly_leads"`
	MonthlyEnrolls []Bucket     `json:"monthly_enrolls"`
	Response       Response     `json:"response"`
	Revenue        Revenue      `json:"revenue"`
	TopCourses     []Count      `json:"top_courses"`
	TopAgreements  []Count      `json:"top_agreements"`
	Sources        []Count      `json:"sources"`
	UTMSources     []Count      `json:"utm_sources"`
	UTMMediums     []Count      `json:"utm_mediums"`
	UTMCampaigns   []Count      `json:"utm_campaigns"`
	RecentLeads    []RecentLead `json:"recent_leads"`
	PathCounts     []PathCount  `json:"path_counts"`
	LastActivity   int64        `json:"last_activity"`
	Courses        []string     `json:"courses"`
	Totals         Totals       `json:"totals"`
}

// PathCount is a page-view tally.
type PathCount struct {
	Path  string `json:"path"`
	Count int64  `json:"count"`
}

// Input is everything the dashboard is computed from. Leads and Agreements are
// full collections ordered newest first.
type Input struct {
	Leads      []records.Document
	Agreements []records.Document
	Metrics    *analytics.Metrics
	Users      int
	Now        time.Time
}

// Build computes the overview dashboard.
func Build(in Input) Dashboard {
	metrics := in.Metrics
	if metrics == nil {
		metrics = analytics.New()
	}
	now := in.Now

	d := Dashboard{
		Funnel:         Funnel(metrics.Funnel),
		LeadChart:      Daily(in.Leads, now, 7),
		EnrollChart:    Daily(in.Agreements, now, 7),
		WeeklyLeads:    Weekly(in.Leads, now, 8),
		WeeklyEnrolls:  Weekly(in.Agreements, now, 8),
		MonthlyLeads:   Monthly(in.Leads, now, 6),
		MonthlyEnrolls: Monthly(in.Agreements, now, 6),
		Response:       ResponseStats(in.Leads, now, TopLimit),
		Revenue:        RevenueStats(in.Agreements, now),
		TopCourses:     courseCounts(in.Leads).Top(TopLimit),
		TopAgreements:  courseCounts(in.Agreements).Top(TopLimit),
		PathCounts:     sortedPaths(metrics.PathCounts),
		LastActivity:   lastActivity(in.Leads, in.Agreements),
		Courses:        Courses(in.Leads, in.Agreements),
		Totals:         Totals{Leads: len(in.Leads), Agreements: len(in.Agreements), Users: in.Users},
	}

	sources := NewCounter()
	for _, doc := range in.Leads {
		sources.Add(Source(doc.String(records.FieldPage)))
	}
	d.Sources = sources.Top(TopLimit)
	d.UTMSources, d.UTMMediums, d.UTMCampaigns = UTMCounts(in.Leads)

	for i, doc := range in.Leads {
		if i == TopLimit {
			break
		}
		ts, _ := doc.Timestamp()
		status := records.LeadStatuses.Derive(doc, now)
		d.RecentLeads = append(d.RecentLeads, RecentLead{
			File:        doc.File(),
			Name:        fallback(doc.String(records.FieldName), "Без имени"),
			Course:      fallback(doc.String(records.FieldCourse), "—"),
			Timestamp:   ts,
			Status:      status,
			StatusLabel: records.LeadStatuses.Label(status),
		})
	}

	d.KPIs = kpis(metrics, d, in, now)
	return d
}

// UTMCounts tallies utm_source, utm_medium and utm_campaign across leads.
func UTMCounts(leads []records.Document) (sources, mediums, campaigns []Count) {
	s, m, c := NewCounter(), NewCounter(), NewCounter()
	for _, doc := range leads {
		utm := ExtractUTM(doc.String(records.FieldPage))
		if utm.Source != "" {
			s.Add(utm.Source)
		}
		if utm.Medium != "" {
			m.Add(utm.Medium)
		}
		if utm.Campaign != "" {
			c.Add(utm.Campaign)
		}
	}
	return s.Top(TopLimit), m.Top(TopLimit), c.Top(TopLimit)
}

// Courses lists the distinct course names across both collections, sorted.
func Courses(sets ...[]records.Document) []string {
	seen := map[string]bool{}
	var out []string
	for _, docs := range sets {
		for _, doc := range docs {
			if c := doc.String(records.FieldCourse); c != "" && !seen[c] {
				seen[c] = true
				out = append(out, c)
			}
		}
	}
	sort.Strings(out)
	return out
}

// CountRecent counts docs created within window before now.
func CountRecent(docs []records.Document, now time.Time, window time.Duration) int {
	since := now.Add(-window).Unix()
	n := 0
	for _, doc := range docs {
		if ts, ok := doc.Timestamp(); ok && ts >= since {
			n++
		}
	}
	return n
}

func courseCounts(docs []records.Document) *Counter {
	c := NewCounter()
	for _, doc := range docs {
		if course := doc.String(records.FieldCourse); course != "" {
			c.Add(course)
		}
	}
	return c
}

func sortedPaths(counts map[string]int64) []PathCount {
	out := make([]PathCount, 0, len(counts))
	for p, c := range counts {
		out = append(out, PathCount{Path: p, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Path < out[j].Path
	})
	return out
}

func lastActivity(sets ...[]records.Document) int64 {
	var last int64
	for _, docs := range sets {
		for _, doc := range docs {
			if ts, ok := doc.Timestamp(); ok && ts > last {
				last = ts
			}
		}
	}
	return last
}

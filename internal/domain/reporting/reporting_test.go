package reporting

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/politifan/school-peaky-minds/internal/domain/analytics"
	"github.com/politifan/school-peaky-minds/internal/domain/records"
	"github.com/politifan/school-peaky-minds/pkg/clock"
)

func lead(ts time.Time, fields ...string) records.Document {
	doc := records.Document{records.FieldTimestamp: ts.Unix()}
	for i := 0; i+1 < len(fields); i += 2 {
		doc[fields[i]] = fields[i+1]
	}
	return doc
}

func TestSource(t *testing.T) {
	t.Parallel()
	tests := map[string]string{
		"":                                           DirectSource,
		"https://example.com/?utm_source=newsletter": "newsletter",
		"https://example.com/?source=partner":        "partner",
		"https://www.google.com/search?q=school":     "Google",
		"https://vk.com/club1":                       "VK",
		"https://t.me/peaky":                         "Telegram",
		"https://blog.example.org/post":              "blog.example.org",
		"not a url at all":                           DirectSource,
	}
	for page, want := range tests {
		assert.Equal(t, want, Source(page), page)
	}
}

func TestExtractUTM(t *testing.T) {
	t.Parallel()
	got := ExtractUTM("https://site/?utm_source=google&utm_medium=cpc&utm_campaign=spring")
	assert.Equal(t, UTM{Source: "google", Medium: "cpc", Campaign: "spring"}, got)
	assert.Equal(t, UTM{}, ExtractUTM(""))
}

func TestFunnel(t *testing.T) {
	t.Parallel()
	steps := Funnel(analytics.Funnel{Home: 200, Login: 50, Apply: 10, Enroll: 0})
	require.Len(t, steps, 4)
	assert.Equal(t, "100%", steps[0].Rate)
	assert.Equal(t, "25.0%", steps[1].Rate)
	assert.Equal(t, "20.0%", steps[2].Rate)
	assert.Equal(t, "0.0%", steps[3].Rate)
	assert.Equal(t, 25.0, steps[1].Pct)

	empty := Funnel(analytics.Funnel{})
	assert.Equal(t, "0.0%", empty[2].Rate)
	assert.Zero(t, empty[0].Pct)
}

func TestPipeline(t *testing.T) {
	t.Parallel()
	now := clock.Fixed().Now()
	leads := []records.Document{
		lead(now.Add(-time.Hour)),
		lead(now.Add(-72*time.Hour)),
		lead(now, records.FieldStatus, records.StatusClosed),
		lead(now, records.FieldStatus, records.StatusPaid),
		lead(now, records.FieldStatus, records.StatusPaid),
		{},
	}
	steps := Pipeline(leads, now)
	got := map[string]int64{}
	for _, s := range steps {
		got[s.Key] = s.Count
	}
	want := map[string]int64{
		records.StatusNew: 1, records.StatusContacted: 1, records.StatusQualified: 0,
		records.StatusCallScheduled: 0, records.StatusPaid: 2, records.StatusLost: 1, records.StatusArchived: 1,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("pipeline mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 100.0, steps[4].Pct)
	assert.Equal(t, 50.0, steps[0].Pct)
}

func TestWeekly(t *testing.T) {
	t.Parallel()
	now := clock.Fixed().Now() // Wednesday 2025-03-12
	docs := []records.Document{
		lead(time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)),
		lead(time.Date(2025, 3, 12, 9, 0, 0, 0, time.UTC)),
		lead(time.Date(2025, 3, 9, 23, 0, 0, 0, time.UTC)),
		lead(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)),
	}
	got := Weekly(docs, now, 8)
	require.Len(t, got, 8)
	assert.Equal(t, "10.03", got[7].Label)
	assert.Equal(t, int64(2), got[7].Count)
	assert.Equal(t, 100.0, got[7].Pct)
	assert.Equal(t, "03.03", got[6].Label)
	assert.Equal(t, int64(1), got[6].Count)
	assert.Equal(t, "20.01", got[0].Label)
	assert.Zero(t, got[0].Count)
}

func TestMonthly(t *testing.T) {
	t.Parallel()
	now := clock.Fixed().Now()
	docs := []records.Document{
		lead(time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)),
		lead(time.Date(2024, 12, 31, 12, 0, 0, 0, time.UTC)),
		lead(time.Date(2024, 9, 30, 12, 0, 0, 0, time.UTC)),
	}
	got := Monthly(docs, now, 6)
	labels := make([]string, len(got))
	for i, b := range got {
		labels[i] = b.Label
	}
	assert.Equal(t, []string{"10.24", "11.24", "12.24", "01.25", "02.25", "03.25"}, labels)
	assert.Equal(t, int64(1), got[2].Count)
	assert.Equal(t, int64(1), got[5].Count)
	assert.Equal(t, int64(2), Total(got))
}

func TestDaily(t *testing.T) {
	t.Parallel()
	now := clock.Fixed().Now()
	docs := []records.Document{
		lead(now.Add(-time.Hour)),
		lead(now.Add(-6 * 24 * time.Hour)),
		lead(now.Add(-7 * 24 * time.Hour)),
	}
	got := Daily(docs, now, 7)
	require.Len(t, got, 7)
	assert.Equal(t, "06.03", got[0].Label)
	assert.Equal(t, "12.03", got[6].Label)
	assert.Equal(t, int64(2), Total(got))
}

func TestResponseStats(t *testing.T) {
	t.Parallel()
	now := clock.Fixed().Now()
	created := now.Add(-48 * time.Hour)
	leads := []records.Document{
		lead(now.Add(-30*time.Hour), records.FieldName, "Old"),
		lead(now.Add(-2 * time.Hour)),
		{
			records.FieldTimestamp:       created.Unix(),
			records.FieldStatus:          records.StatusContacted,
			records.FieldStatusUpdatedAt: created.Add(90 * time.Minute).Unix(),
		},
		{
			records.FieldTimestamp:       created.Unix(),
			records.FieldStatus:          records.StatusContacted,
			records.FieldStatusUpdatedAt: created.Add(-time.Minute).Unix(),
		},
	}
	got := ResponseStats(leads, now, TopLimit)
	// The 30h lead is already past the first day, so it derives to in_progress and is not stale.
	assert.Zero(t, got.StaleCount)
	assert.Equal(t, 90.0, got.AvgMinutes)
	assert.Equal(t, 1, got.Measured)

	manualNew := lead(now.Add(-50*time.Hour), records.FieldStatus, records.StatusNew)
	got = ResponseStats([]records.Document{manualNew}, now, TopLimit)
	require.Equal(t, 1, got.StaleCount)
	assert.Equal(t, int64(50), got.Stale[0].AgeHours)
	assert.Equal(t, "Без имени", got.Stale[0].Name)

	assert.Zero(t, ResponseStats(nil, now, TopLimit).AvgMinutes)
}

func TestRevenueStats(t *testing.T) {
	t.Parallel()
	now := clock.Fixed().Now()
	agreements := []records.Document{
		{records.FieldAmount: "1 200,50", records.FieldStatus: records.StatusPaid},
		{records.FieldAmount: 800.0},
		{records.FieldAmount: "n/a", records.FieldStatus: records.StatusPaid},
		{},
	}
	got := RevenueStats(agreements, now)
	assert.Equal(t, 2000.5, got.Total)
	assert.Equal(t, 1000.25, got.Average)
	assert.Equal(t, 2, got.Priced)
	assert.Equal(t, 2, got.PaidCount)
}

func TestCounterTopKeepsFirstSeenOrderOnTies(t *testing.T) {
	t.Parallel()
	c := NewCounter()
	for _, k := range []string{"b", "a", "c", "a", "d", "e", "f", "g"} {
		c.Add(k)
	}
	top := c.Top(3)
	assert.Equal(t, []Count{{"a", 2}, {"b", 1}, {"c", 1}}, top)
	assert.Len(t, c.Top(0), 7)
}

func TestBuild(t *testing.T) {
	t.Parallel()
	now := clock.Fixed().Now()
	m := analytics.New()
	m.TotalVisits, m.UniqueVisits = 100, 40
	m.Funnel = analytics.Funnel{Home: 80, Login: 20, Apply: 10, Enroll: 2}
	m.PathCounts = map[string]int64{"/": 80, "/login": 20}

	leads := []records.Document{
		lead(now.Add(-time.Hour), records.FieldCourse, "fullstack", records.FieldPage, "https://google.com/?utm_source=google&utm_medium=cpc"),
		lead(now.Add(-2*time.Hour), records.FieldCourse, "fullstack"),
		lead(now.Add(-50*time.Hour), records.FieldCourse, "business"),
	}
	agreements := []records.Document{
		lead(now.Add(-3*time.Hour), records.FieldCourse, "fullstack", records.FieldAmount, "1000"),
	}
	d := Build(Input{Leads: leads, Agreements: agreements, Metrics: m, Users: 4, Now: now})

	assert.Equal(t, Totals{Leads: 3, Agreements: 1, Users: 4}, d.Totals)
	assert.Equal(t, []Count{{"fullstack", 2}, {"business", 1}}, d.TopCourses)
	assert.Equal(t, []string{"business", "fullstack"}, d.Courses)
	assert.Equal(t, []Count{{"google", 1}}, d.UTMSources)
	assert.Equal(t, now.Add(-time.Hour).Unix(), d.LastActivity)
	assert.Len(t, d.RecentLeads, 3)
	assert.Equal(t, "/", d.PathCounts[0].Path)

	require.Len(t, d.KPIs, 8)
	assert.Equal(t, "100", d.KPIs[0].Value)
	assert.Equal(t, "За 24ч: 2 · 7 дней: 3", d.KPIs[2].Note)
	assert.Equal(t, "1000 ₽", d.KPIs[5].Value)
	assert.Equal(t, "25.0%", d.KPIs[6].Value)
	assert.Equal(t, "20.0%", d.KPIs[7].Value)
	assert.Equal(t, "—", d.KPIs[4].Value)
}

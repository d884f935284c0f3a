package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/politifan/school-peaky-minds/internal/domain/query"
	"github.com/politifan/school-peaky-minds/internal/domain/records"
	"github.com/politifan/school-peaky-minds/internal/domain/user"
)

func noParams(string) string { return "" }

func seedAdmin(t *testing.T, f *fixture) {
	t.Helper()
	ctx := context.Background()
	svc := f.recordService()

	_, err := svc.SubmitLead(ctx, LeadForm{Name: "Старый", Contact: "1", Course: "Go", Page: "https://vk.com/x"})
	require.NoError(t, err)
	f.clock.Advance(48 * time.Hour)
	lead, err := svc.SubmitLead(ctx, LeadForm{Name: "Новый", Contact: "2", Course: "Python", Page: "https://peakyminds.school/"})
	require.NoError(t, err)
	_, err = svc.SetStatus(ctx, records.KindLead, lead.File(), "paid")
	require.NoError(t, err)

	agreement, err := svc.SubmitAgreement(ctx, AgreementForm{Course: "Go", FullName: "Пётр", Phone: "8900", Email: "p@e.com"})
	require.NoError(t, err)
	_, err = svc.SetAgreementAmount(ctx, agreement.File(), "15000")
	require.NoError(t, err)
	svc.Wait()

	for _, u := range []user.User{
		{ID: "telegram:5", Provider: "telegram", Name: "Яна"},
		{ID: "email:b@e.com", Provider: "email", Email: "b@e.com", Name: "b@e.com"},
		{ID: "email:a@e.com", Provider: "email", Email: "a@e.com"},
	} {
		_, err := f.users.Upsert(ctx, u)
		require.NoError(t, err)
	}
}

func readCSV(t *testing.T, data []byte) [][]string {
	t.Helper()
	rows, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestExportLeads(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	seedAdmin(t, f)

	var buf bytes.Buffer
	require.NoError(t, f.adminService().ExportRecords(context.Background(), records.KindLead, query.ParseParams(noParams), &buf))
	rows := readCSV(t, buf.Bytes())

	require.Len(t, rows, 3)
	assert.Equal(t, LeadCSVHeader, rows[0])
	assert.Equal(t, []string{"Новый", "2", "Python", "https://peakyminds.school/", "Оплачен"}, rows[1][1:])
	assert.Equal(t, "В работе", rows[2][5])
}

func TestExportAgreementsFiltered(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	seedAdmin(t, f)

	params := query.ParseParams(func(k string) string {
		if k == "course" {
			return "Go"
		}
		return ""
	})
	var buf bytes.Buffer
	require.NoError(t, f.adminService().ExportRecords(context.Background(), records.KindAgreement, params, &buf))
	rows := readCSV(t, buf.Bytes())

	require.Len(t, rows, 2)
	assert.Equal(t, AgreementCSVHeader, rows[0])
	assert.Equal(t, []string{"Go", "Пётр", "8900", "p@e.com", "", "15000"}, rows[1][1:7])
}

func TestExportUsers(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	seedAdmin(t, f)

	var buf bytes.Buffer
	require.NoError(t, f.adminService().ExportUsers(context.Background(), &buf))
	want := [][]string{
		UserCSVHeader,
		{"email:a@e.com", "a@e.com", "", "email"},
		{"email:b@e.com", "b@e.com", "b@e.com", "email"},
		{"telegram:5", "", "Яна", "telegram"},
	}
	if diff := cmp.Diff(want, readCSV(t, buf.Bytes())); diff != "" {
		t.Errorf("users csv mismatch (-want +got):\n%s", diff)
	}
}

func TestOverview(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	seedAdmin(t, f)

	ov, err := f.adminService().Overview(context.Background(), query.ParseParams(noParams))
	require.NoError(t, err)

	assert.Equal(t, query.ViewOverview, ov.View)
	assert.Equal(t, 2, ov.Leads.Count)
	assert.Equal(t, 1, ov.Agreements.Count)
	assert.Equal(t, 2, ov.Dashboard.Totals.Leads)
	assert.Equal(t, 3, ov.Dashboard.Totals.Users)

	names := make([]string, len(ov.Users))
	for i, u := range ov.Users {
		names[i] = u.Provider + "/" + u.Name
	}
	assert.Equal(t, []string{"email/a@e.com", "email/b@e.com", "telegram/Яна"}, names)
	assert.Equal(t, records.StatusAuto, ov.LeadStatuses[len(ov.LeadStatuses)-1].Key)
	assert.Contains(t, ov.Whitelist.IDs, testAdmin)
}

package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/politifan/school-peaky-minds/internal/domain/records"
	"github.com/politifan/school-peaky-minds/internal/infrastructure/messaging"
	"github.com/politifan/school-peaky-minds/internal/infrastructure/observability/logging"
)

func TestSubmitLead(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	svc := f.recordService()
	ctx := context.Background()

	doc, err := svc.SubmitLead(ctx, LeadForm{
		Name:    "  Анна ",
		Contact: "+7 900 000-00-00",
		Course:  "Python",
		Page:    "https://peakyminds.school/?utm_source=vk",
		User:    &records.UserSnapshot{ID: "email:a@b.c", Provider: "email"},
	})
	require.NoError(t, err)
	svc.Wait()

	id := doc.File()
	require.True(t, records.KindLead.ValidID(id))

	stored, ok, err := f.records.Load(ctx, records.KindLead, id)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Анна", stored.String(records.FieldName))
	assert.Equal(t, "Python", stored.String(records.FieldCourse))
	ts, _ := stored.Timestamp()
	assert.Equal(t, f.clock.Now().Unix(), ts)

	m, err := f.metrics.Load(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, m.Funnel.Apply)

	require.Len(t, f.notifier.leads, 1)
	assert.Equal(t, id, f.notifier.leads[0].File())
	assert.Equal(t, []messaging.Event{{Type: "lead", ID: id, Course: "Python", Timestamp: ts}}, f.feed.events)
}

func TestSubmitLeadSurvivesNotifierFailure(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.notifier.err = errors.New("telegram down")
	var logs bytes.Buffer
	logger, err := logging.NewChanneledLogger(&logging.LoggerConfig{Sink: &logs, JSONFormat: true, DefaultLevel: slog.LevelInfo})
	require.NoError(t, err)
	f.logger = logger
	svc := f.recordService()

	doc, err := svc.SubmitLead(context.Background(), LeadForm{Name: "Иван"})
	require.NoError(t, err)
	svc.Wait()

	_, ok, err := f.records.Load(context.Background(), records.KindLead, doc.File())
	require.NoError(t, err)
	assert.True(t, ok)

	var failed map[string]any
	for _, line := range bytes.Split(bytes.TrimSpace(logs.Bytes()), []byte("\n")) {
		var entry map[string]any
		require.NoError(t, json.Unmarshal(line, &entry))
		if entry["msg"] == "Notification failed" {
			failed = entry
		}
	}
	require.NotNil(t, failed)
	assert.Equal(t, "bot", failed["channel"])
	assert.Equal(t, "notify_lead", failed["operation"])
	assert.Equal(t, doc.File(), failed["id"])
	assert.Equal(t, "telegram down", failed["error"])
}

func TestSubmitAgreement(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	svc := f.recordService()
	ctx := context.Background()

	doc, err := svc.SubmitAgreement(ctx, AgreementForm{
		Course:   "Go",
		FullName: "Пётр Петров",
		Phone:    "89001112233",
		Email:    "petr@example.com",
		Consent:  "on",
	})
	require.NoError(t, err)
	svc.Wait()

	stored, ok, err := f.records.Load(ctx, records.KindAgreement, doc.File())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, ContractStatusPending, stored.String(records.FieldContractStatus))
	assert.Len(t, stored.String(records.FieldContractToken), 43)
	assert.Equal(t, "Пётр Петров", stored.String(records.FieldFullName))

	m, err := f.metrics.Load(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, m.Funnel.Enroll)
	assert.Len(t, f.notifier.agreements, 1)
}

func TestSetStatus(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	svc := f.recordService()
	ctx := context.Background()

	lead, err := svc.SubmitLead(ctx, LeadForm{Name: "Лид"})
	require.NoError(t, err)
	svc.Wait()
	id := lead.File()

	t.Run("manual status stamps the change", func(t *testing.T) {
		f.clock.Advance(time.Hour)
		ok, err := svc.SetStatus(ctx, records.KindLead, id, "contacted")
		require.NoError(t, err)
		require.True(t, ok)

		doc, _, err := f.records.Load(ctx, records.KindLead, id)
		require.NoError(t, err)
		assert.Equal(t, records.StatusContacted, doc.String(records.FieldStatus))
		stamp, ok := doc.Int64(records.FieldStatusUpdatedAt)
		require.True(t, ok)
		assert.Equal(t, f.clock.Now().Unix(), stamp)
	})

	t.Run("aliases clear the override", func(t *testing.T) {
		for _, alias := range []string{"auto", "clear", "reset", ""} {
			_, err := svc.SetStatus(ctx, records.KindLead, id, "paid")
			require.NoError(t, err)
			ok, err := svc.SetStatus(ctx, records.KindLead, id, alias)
			require.NoError(t, err)
			require.True(t, ok)

			doc, _, err := f.records.Load(ctx, records.KindLead, id)
			require.NoError(t, err)
			assert.NotContains(t, doc, records.FieldStatus, alias)
			assert.NotContains(t, doc, records.FieldStatusUpdatedAt, alias)
		}
	})

	t.Run("unknown status is rejected", func(t *testing.T) {
		_, err := svc.SetStatus(ctx, records.KindLead, id, "bogus")
		assert.ErrorIs(t, err, records.ErrUnknownStatus)
	})

	t.Run("agreement vocabulary has no timestamp", func(t *testing.T) {
		agreement, err := svc.SubmitAgreement(ctx, AgreementForm{Course: "Go"})
		require.NoError(t, err)
		svc.Wait()

		ok, err := svc.SetStatus(ctx, records.KindAgreement, agreement.File(), "review")
		require.NoError(t, err)
		require.True(t, ok)
		doc, _, err := f.records.Load(ctx, records.KindAgreement, agreement.File())
		require.NoError(t, err)
		assert.Equal(t, records.StatusReview, doc.String(records.FieldStatus))
		assert.NotContains(t, doc, records.FieldStatusUpdatedAt)

		_, err = svc.SetStatus(ctx, records.KindAgreement, agreement.File(), "contacted")
		assert.ErrorIs(t, err, records.ErrUnknownStatus)
	})

	t.Run("missing record reports false", func(t *testing.T) {
		ok, err := svc.SetStatus(ctx, records.KindLead, "lead_1_deadbeef.json", "paid")
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestSetLeadMeta(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	svc := f.recordService()
	ctx := context.Background()

	lead, err := svc.SubmitLead(ctx, LeadForm{Name: "Лид"})
	require.NoError(t, err)
	svc.Wait()

	ok, err := svc.SetLeadMeta(ctx, lead.File(), " vip,\nгорячий ,, ", "  перезвонить  ", "2025-03-20")
	require.NoError(t, err)
	require.True(t, ok)

	doc, _, err := f.records.Load(ctx, records.KindLead, lead.File())
	require.NoError(t, err)
	assert.Equal(t, "vip, горячий", doc.String(records.FieldTags))
	assert.Equal(t, "перезвонить", doc.String(records.FieldNote))
	assert.Equal(t, "2025-03-20", doc.String(records.FieldNextContact))

	_, err = svc.SetLeadMeta(ctx, lead.File(), "", "", "20.03.2025")
	require.NoError(t, err)
	doc, _, err = f.records.Load(ctx, records.KindLead, lead.File())
	require.NoError(t, err)
	assert.NotContains(t, doc, records.FieldTags)
	assert.NotContains(t, doc, records.FieldNote)
	assert.NotContains(t, doc, records.FieldNextContact)
}

func TestSetAgreementAmount(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	svc := f.recordService()
	ctx := context.Background()

	agreement, err := svc.SubmitAgreement(ctx, AgreementForm{Course: "Go"})
	require.NoError(t, err)
	svc.Wait()
	id := agreement.File()

	_, err = svc.SetAgreementAmount(ctx, id, "12 500,50")
	require.NoError(t, err)
	doc, _, err := f.records.Load(ctx, records.KindAgreement, id)
	require.NoError(t, err)
	amount, ok := records.ParseAmount(doc[records.FieldAmount])
	require.True(t, ok)
	assert.InDelta(t, 12500.5, amount, 1e-9)

	_, err = svc.SetAgreementAmount(ctx, id, "много")
	require.NoError(t, err)
	doc, _, err = f.records.Load(ctx, records.KindAgreement, id)
	require.NoError(t, err)
	assert.NotContains(t, doc, records.FieldAmount)
}

package reporting

import (
	"fmt"
	"strconv"
	"time"

	"github.com/politifan/school-peaky-minds/internal/domain/analytics"
	"github.com/politifan/school-peaky-minds/internal/domain/records"
)

const noValue = "—"

func kpis(m *analytics.Metrics, d Dashboard, in Input, now time.Time) []KPI {
	leads24 := CountRecent(in.Leads, now, 24*time.Hour)
	enroll24 := CountRecent(in.Agreements, now, 24*time.Hour)
	leads7 := Total(d.LeadChart)
	enroll7 := Total(d.EnrollChart)

	response := noValue
	if d.Response.AvgMinutes != 0 {
		response = fmt.Sprintf("%s мин", strconv.FormatFloat(d.Response.AvgMinutes, 'f', -1, 64))
	}
	revenue := noValue
	if d.Revenue.Total != 0 {
		revenue = records.FormatFloat(d.Revenue.Total) + " ₽"
	}

	return []KPI{
		{Key: "visits", Label: "Посещения", Value: itoa(m.TotalVisits), Note: "Все визиты сайта"},
		{Key: "unique", Label: "Уникальные", Value: itoa(m.UniqueVisits), Note: "Сессии пользователей"},
		{
			Key: "applications", Label: "Заявки", Value: itoa(m.Funnel.Apply),
			Note: fmt.Sprintf("За 24ч: %d · 7 дней: %d", leads24, leads7),
		},
		{
			Key: "purchases", Label: "Покупки", Value: itoa(m.Funnel.Enroll),
			Note: fmt.Sprintf("За 24ч: %d · 7 дней: %d", enroll24, enroll7),
		},
		{
			Key: "response", Label: "Ответ на лид", Value: response,
			Note: fmt.Sprintf("Просрочено (>24ч): %d", d.Response.StaleCount),
		},
		{
			Key: "revenue", Label: "Выручка", Value: revenue,
			Note: fmt.Sprintf("Средний чек: %s ₽ · Оплат: %d", records.FormatFloat(d.Revenue.Average), d.Revenue.PaidCount),
		},
		{
			Key: "apply_conversion", Label: "Конверсия в заявку",
			Value: rate(m.Funnel.Apply, m.UniqueVisits), Note: "От уникальных визитов",
		},
		{
			Key: "enroll_conversion", Label: "Конверсия в покупку",
			Value: rate(m.Funnel.Enroll, m.Funnel.Apply), Note: "От заявок",
		},
	}
}

func itoa(n int64) string { return strconv.FormatInt(n, 10) }

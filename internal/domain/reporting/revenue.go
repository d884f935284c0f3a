package reporting

import (
	"time"

	"github.com/politifan/school-peaky-minds/internal/domain/records"
)

// Revenue totals agreement amounts.
type Revenue struct {
	Total     float64 `json:"total"`
	Average   float64 `json:"average"`
	Priced    int     `json:"priced"`
	PaidCount int     `json:"paid_count"`
}

// RevenueStats sums parseable amounts and counts agreements whose derived
// status is paid.
func RevenueStats(agreements []records.Document, now time.Time) Revenue {
	var out Revenue
	var sum float64
	for _, doc := range agreements {
		if amount, ok := records.ParseAmount(doc[records.FieldAmount]); ok {
			sum += amount
			out.Priced++
		}
		if records.AgreementStatuses.Derive(doc, now) == records.StatusPaid {
			out.PaidCount++
		}
	}
	if out.Priced > 0 {
		out.Total = round(sum, 2)
		out.Average = round(out.Total/float64(out.Priced), 2)
	}
	return out
}

package reporting

import (
	"time"

	"github.com/politifan/school-peaky-minds/internal/domain/records"
)

// PipelineOrder is the fixed sequence of pipeline buckets.
var PipelineOrder = []string{
	records.StatusNew, records.StatusContacted, records.StatusQualified, records.StatusCallScheduled,
	records.StatusPaid, records.StatusLost, records.StatusArchived,
}

var pipelineLabels = map[string]string{
	records.StatusNew:           "Новый",
	records.StatusContacted:     "Связались",
	records.StatusQualified:     "Квалифицирован",
	records.StatusCallScheduled: "Созвон",
	records.StatusPaid:          "Оплатил",
	records.StatusLost:          "Потерян",
	records.StatusArchived:      "Архив",
}

// Step is a labelled bar with a count and its share of the largest bar.
type Step struct {
	Key   string  `json:"key"`
	Label string  `json:"label"`
	Count int64   `json:"count"`
	Pct   float64 `json:"pct"`
}

// PipelineBucket maps a derived lead status onto its pipeline bucket.
func PipelineBucket(status string) string {
	switch status {
	case records.StatusInProgress:
		return records.StatusContacted
	case records.StatusClosed:
		return records.StatusLost
	}
	if _, ok := pipelineLabels[status]; ok {
		return status
	}
	return records.StatusArchived
}

// Pipeline counts leads per pipeline bucket.
func Pipeline(leads []records.Document, now time.Time) []Step {
	counts := make(map[string]int64, len(PipelineOrder))
	for _, doc := range leads {
		counts[PipelineBucket(records.LeadStatuses.Derive(doc, now))]++
	}
	var peak int64 = 1
	for _, c := range counts {
		peak = max(peak, c)
	}
	steps := make([]Step, len(PipelineOrder))
	for i, key := range PipelineOrder {
		steps[i] = Step{Key: key, Label: pipelineLabels[key], Count: counts[key], Pct: Pct(counts[key], peak)}
	}
	return steps
}

// Package reporting turns record sets and site metrics into dashboard figures.
// Every function is pure; "now" is always passed in.
package reporting

import (
	"fmt"
	"math"

	"github.com/politifan/school-peaky-minds/internal/domain/analytics"
)

// Pct is part/total as a percentage rounded to one decimal; 0 when total is 0.
func Pct(part, total int64) float64 {
	if total == 0 {
		return 0
	}
	return round(float64(part)/float64(total)*100, 1)
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

// FunnelStep is one stage of the conversion funnel.
type FunnelStep struct {
	Key   string  `json:"key"`
	Label string  `json:"label"`
	Count int64   `json:"count"`
	Pct   float64 `json:"pct"`
	Rate  string  `json:"rate"`
}

// Funnel renders the four funnel stages. Pct is relative to the largest stage,
// Rate is conversion from the previous stage.
func Funnel(f analytics.Funnel) []FunnelStep {
	peak := max(f.Home, f.Login, f.Apply, f.Enroll, 1)
	return []FunnelStep{
		{Key: analytics.StageHome, Label: "Главная", Count: f.Home, Pct: Pct(f.Home, peak), Rate: "100%"},
		{Key: analytics.StageLogin, Label: "Логин", Count: f.Login, Pct: Pct(f.Login, peak), Rate: rate(f.Login, f.Home)},
		{Key: analytics.StageApply, Label: "Заявки", Count: f.Apply, Pct: Pct(f.Apply, peak), Rate: rate(f.Apply, f.Login)},
		{Key: analytics.StageEnroll, Label: "Покупки", Count: f.Enroll, Pct: Pct(f.Enroll, peak), Rate: rate(f.Enroll, f.Apply)},
	}
}

func rate(part, total int64) string {
	return fmt.Sprintf("%.1f%%", Pct(part, total))
}

package database

import (
	"time"

	"github.com/politifan/school-peaky-minds/internal/infrastructure/observability/logging"
	"github.com/politifan/school-peaky-minds/pkg/config"
)

// GetSlowQueryThreshold returns the configured slow query threshold
func GetSlowQueryThreshold() time.Duration {
	return config.SlowQueryThreshold
}

// CheckAndLogSlowQuery logs query on the slow-query channel when duration
// exceeds the threshold. Full-collection scans get three times the budget.
func CheckAndLogSlowQuery(logger *logging.ChanneledLogger, query string, duration time.Duration) {
	threshold := GetSlowQueryThreshold()
	if len(query) >= 5 && query[:5] == "SCAN_" {
		threshold *= 3
	}
	if duration > threshold {
		logger.LogSlowQuery(query, duration)
	}
}

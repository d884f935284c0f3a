package services

import (
	"context"

	"github.com/politifan/school-peaky-minds/internal/domain/analytics"
	"github.com/politifan/school-peaky-minds/internal/infrastructure/observability/logging"
	"github.com/politifan/school-peaky-minds/internal/infrastructure/observability/performance"
	"github.com/politifan/school-peaky-minds/pkg/clock"
)

// AnalyticsService records page views into the metrics document.
type AnalyticsService struct {
	repo        analytics.Repository
	clock       clock.Clock
	logger      *logging.ChanneledLogger
	perfTracker *performance.Tracker
}

func NewAnalyticsService(repo analytics.Repository, clk clock.Clock, logger *logging.ChanneledLogger, perfTracker *performance.Tracker) *AnalyticsService {
	return &AnalyticsService{
		repo:        repo,
		clock:       clk,
		logger:      logger,
		perfTracker: perfTracker,
	}
}

// TrackVisit counts one view of path by visitID. Failures are logged, never returned.
func (s *AnalyticsService) TrackVisit(ctx context.Context, path, visitID string) {
	marker := s.perfTracker.StartOperation("track_visit", path)
	defer marker.Complete()

	now := s.clock.Now()
	err := s.repo.Update(ctx, func(m *analytics.Metrics) {
		m.Track(path, visitID, now)
	})
	if err != nil {
		marker.SetError(err)
		s.logger.Analytics().Warn("Failed to track visit", "path", path, "error", err.Error())
	}
}

// Metrics returns the current metrics document.
func (s *AnalyticsService) Metrics(ctx context.Context) (*analytics.Metrics, error) {
	return s.repo.Load(ctx)
}

package analytics

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/politifan/school-peaky-minds/internal/domain/analytics"
	"github.com/politifan/school-peaky-minds/internal/infrastructure/observability/logging"
	"github.com/politifan/school-peaky-minds/pkg/clock"
)

func TestMetricsRepositoryDefaultsAndPersists(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "metrics.json")
	repo := NewFileMetricsRepository(path, logging.NewDiscardLogger())
	ctx := context.Background()

	m, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), m.TotalVisits)

	now := clock.Fixed().Now()
	require.NoError(t, repo.Update(ctx, func(m *analytics.Metrics) {
		m.Track("/", "v1", now)
		m.Bump(analytics.StageApply)
	}))

	reopened := NewFileMetricsRepository(path, logging.NewDiscardLogger())
	m, err = reopened.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), m.TotalVisits)
	assert.Equal(t, int64(1), m.UniqueVisits)
	assert.Equal(t, int64(1), m.Funnel.Home)
	assert.Equal(t, int64(1), m.Funnel.Apply)
	assert.Equal(t, int64(1), m.PathCounts["/"])
}

func TestMetricsRepositoryRecoversFromGarbage(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "metrics.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"total_visits":"many","funnel":[]}`), 0o644))
	repo := NewFileMetricsRepository(path, logging.NewDiscardLogger())

	m, err := repo.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(0), m.TotalVisits)
	assert.NotNil(t, m.PathCounts)
}

func TestMetricsRepositorySerializesUpdates(t *testing.T) {
	t.Parallel()

	repo := NewFileMetricsRepository(filepath.Join(t.TempDir(), "metrics.json"), logging.NewDiscardLogger())
	ctx := context.Background()
	now := clock.Fixed().Now()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, repo.Update(ctx, func(m *analytics.Metrics) { m.Track("/courses", "same", now) }))
		}()
	}
	wg.Wait()

	m, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(20), m.TotalVisits)
	assert.Equal(t, int64(1), m.UniqueVisits)
}
